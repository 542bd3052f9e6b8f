// Copyright 2026 The Kubefs Authors
// SPDX-License-Identifier: Apache-2.0

package kubefs

import (
	"context"
	"fmt"
	"strings"

	"github.com/kubefs-project/kubefs/lib/cluster"
	"github.com/kubefs-project/kubefs/lib/coordinate"
	"github.com/kubefs-project/kubefs/lib/viewcache"
)

// clusterFetcher materializes coordinates by asking the cluster: the
// root lists namespaces, a namespace lists kinds from discovery, a
// kind lists object names, and object and field coordinates project
// the object's document tree.
type clusterFetcher struct {
	client cluster.Client
}

var _ viewcache.Fetcher = (*clusterFetcher)(nil)

func (f *clusterFetcher) Fetch(ctx context.Context, coord coordinate.Coordinate) (viewcache.Payload, error) {
	switch coord.Scope() {
	case coordinate.Root:
		return f.fetchRoot(ctx)
	case coordinate.Namespace:
		return f.fetchKinds(ctx, coord)
	case coordinate.Kind:
		return f.fetchObjects(ctx, coord)
	default:
		return f.fetchDocument(ctx, coord)
	}
}

func (f *clusterFetcher) fetchRoot(ctx context.Context) (viewcache.Payload, error) {
	namespaces, err := f.client.Namespaces(ctx)
	if err != nil {
		return viewcache.Payload{}, err
	}
	entries := make([]viewcache.DirEntry, 0, len(namespaces)+1)
	entries = append(entries, viewcache.DirEntry{Name: coordinate.ClusterDir, Dir: true})
	for _, namespace := range namespaces {
		entries = append(entries, viewcache.DirEntry{Name: namespace, Dir: true})
	}
	return viewcache.Payload{Dir: true, Entries: entries}, nil
}

func (f *clusterFetcher) fetchKinds(ctx context.Context, coord coordinate.Coordinate) (viewcache.Payload, error) {
	resources, err := f.client.Resources(ctx, coord.ClusterScoped())
	if err != nil {
		return viewcache.Payload{}, err
	}
	entries := make([]viewcache.DirEntry, 0, len(resources))
	for _, resource := range resources {
		entries = append(entries, viewcache.DirEntry{Name: resource, Dir: true})
	}
	return viewcache.Payload{Dir: true, Entries: entries}, nil
}

func (f *clusterFetcher) fetchObjects(ctx context.Context, coord coordinate.Coordinate) (viewcache.Payload, error) {
	names, err := f.client.List(ctx, coord.Namespace(), coord.Resource())
	if err != nil {
		return viewcache.Payload{}, err
	}
	entries := make([]viewcache.DirEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, viewcache.DirEntry{Name: name, Dir: true})
	}
	return viewcache.Payload{Dir: true, Entries: entries}, nil
}

// fetchDocument serves Object and Field coordinates. Objects and
// container-valued fields are directories over the document tree;
// scalar fields are files holding the literal value.
func (f *clusterFetcher) fetchDocument(ctx context.Context, coord coordinate.Coordinate) (viewcache.Payload, error) {
	doc, err := f.client.Get(ctx, coord.Namespace(), coord.Resource(), coord.Name())
	if err != nil {
		return viewcache.Payload{}, err
	}

	value := doc.Root()
	if field := coord.Field(); len(field) > 0 {
		inner, ok := doc.Field(field)
		if !ok {
			return viewcache.Payload{}, cluster.NotFoundError(
				fmt.Sprintf("resolving field %v of %s", field, coord.Path()))
		}
		value = inner
	}

	if value.Container() {
		children := value.Children()
		entries := make([]viewcache.DirEntry, 0, len(children))
		for _, child := range children {
			// A map key with a slash (annotation keys such as
			// app.kubernetes.io/name) cannot form a path segment, so
			// no filesystem operation could ever reach it. Omit it
			// here so the listing matches what lookup can resolve.
			if strings.ContainsRune(child.Name, '/') {
				continue
			}
			entries = append(entries, viewcache.DirEntry{Name: child.Name, Dir: child.Container})
		}
		return viewcache.Payload{Dir: true, Entries: entries}, nil
	}

	data, err := value.Render()
	if err != nil {
		return viewcache.Payload{}, fmt.Errorf("rendering %s: %w", coord.Path(), err)
	}
	return viewcache.Payload{Bytes: data}, nil
}
