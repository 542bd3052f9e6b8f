// Copyright 2026 The Kubefs Authors
// SPDX-License-Identifier: Apache-2.0

// Package cluster is the resource client consumed by the cache layer:
// typed list and get operations against a Kubernetes API server, with
// failures normalized to a small taxonomy (not found, permission
// denied, unavailable). Authentication and connection lifecycle belong
// to client-go; this package only constructs and adapts it.
package cluster

import (
	"context"

	"github.com/kubefs-project/kubefs/lib/document"
)

// Client is the read surface the filesystem consumes. An empty
// namespace addresses cluster-scoped resources.
type Client interface {
	// Namespaces lists namespace names in API server order.
	Namespaces(ctx context.Context) ([]string, error)

	// Resources lists the plural names of resources that support list
	// and get, namespaced or cluster-scoped per the flag.
	Resources(ctx context.Context, clusterScoped bool) ([]string, error)

	// List returns the object names of one resource in API server
	// order. The resource name is the plural form, such as "pods".
	List(ctx context.Context, namespace, resource string) ([]string, error)

	// Get fetches one object's full document, metadata included.
	Get(ctx context.Context, namespace, resource, name string) (document.Document, error)
}
