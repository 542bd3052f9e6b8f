// Copyright 2026 The Kubefs Authors
// SPDX-License-Identifier: Apache-2.0

package kubefs

import (
	"errors"
	"syscall"

	"github.com/kubefs-project/kubefs/lib/cluster"
	"github.com/kubefs-project/kubefs/lib/coordinate"
	"github.com/kubefs-project/kubefs/lib/viewcache"
)

// errnoFromError maps the error taxonomy onto errnos. Every failure
// is scoped to the operation that hit it; nothing here is fatal to
// the mount.
func errnoFromError(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case cluster.IsNotFound(err):
		return syscall.ENOENT
	case cluster.IsPermissionDenied(err):
		return syscall.EACCES
	case cluster.IsUnavailable(err):
		return syscall.EIO
	case errors.Is(err, viewcache.ErrInterrupted):
		return syscall.EINTR
	case errors.Is(err, coordinate.ErrInvalidPath):
		// A name the grammar rejects cannot exist.
		return syscall.ENOENT
	case errors.Is(err, errNotDirectory):
		return syscall.ENOTDIR
	case errors.Is(err, errIsDirectory):
		return syscall.EISDIR
	default:
		return syscall.EIO
	}
}
