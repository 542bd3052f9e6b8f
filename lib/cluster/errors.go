// Copyright 2026 The Kubefs Authors
// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"context"
	"errors"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// Reason classifies a cluster operation failure. The filesystem layer
// maps each reason to one errno; nothing here is fatal to the mount.
type Reason int

const (
	// ReasonNotFound means the coordinate names nothing in the cluster.
	ReasonNotFound Reason = iota
	// ReasonPermissionDenied is a cluster-side authorization failure,
	// passed through.
	ReasonPermissionDenied
	// ReasonUnavailable is a transient network or timeout failure.
	// Re-running the filesystem operation retries; the core never
	// retries on its own.
	ReasonUnavailable
)

func (r Reason) String() string {
	switch r {
	case ReasonNotFound:
		return "not found"
	case ReasonPermissionDenied:
		return "permission denied"
	case ReasonUnavailable:
		return "unavailable"
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Error is a classified cluster operation failure.
type Error struct {
	Reason Reason
	Op     string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NotFoundError returns a ReasonNotFound error for the operation.
func NotFoundError(op string) *Error {
	return &Error{Reason: ReasonNotFound, Op: op}
}

// IsNotFound reports whether err carries ReasonNotFound.
func IsNotFound(err error) bool { return hasReason(err, ReasonNotFound) }

// IsPermissionDenied reports whether err carries ReasonPermissionDenied.
func IsPermissionDenied(err error) bool { return hasReason(err, ReasonPermissionDenied) }

// IsUnavailable reports whether err carries ReasonUnavailable.
func IsUnavailable(err error) bool { return hasReason(err, ReasonUnavailable) }

func hasReason(err error, reason Reason) bool {
	var clusterError *Error
	return errors.As(err, &clusterError) && clusterError.Reason == reason
}

// normalize translates a client-go error into the taxonomy. Anything
// that is not a definite not-found or authorization failure counts as
// transient.
func normalize(op string, err error) error {
	if err == nil {
		return nil
	}
	var clusterError *Error
	if errors.As(err, &clusterError) {
		return err
	}
	reason := ReasonUnavailable
	switch {
	case apierrors.IsNotFound(err) || apierrors.IsGone(err):
		reason = ReasonNotFound
	case apierrors.IsForbidden(err) || apierrors.IsUnauthorized(err):
		reason = ReasonPermissionDenied
	case errors.Is(err, context.DeadlineExceeded) || apierrors.IsTimeout(err) ||
		apierrors.IsServerTimeout(err) || apierrors.IsServiceUnavailable(err):
		reason = ReasonUnavailable
	}
	return &Error{Reason: reason, Op: op, Err: err}
}
