// Copyright 2026 The Kubefs Authors
// SPDX-License-Identifier: Apache-2.0

package kubefs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"syscall"
	"testing"

	"github.com/kubefs-project/kubefs/lib/cluster"
	"github.com/kubefs-project/kubefs/lib/coordinate"
	"github.com/kubefs-project/kubefs/lib/document"
	"github.com/kubefs-project/kubefs/lib/viewcache"
)

// fakeClient is an in-memory cluster.Client over canned objects.
type fakeClient struct {
	namespaces          []string
	namespacedResources []string
	clusterResources    []string
	// objects maps "namespace/resource" (namespace empty for
	// cluster-scoped) to object names in server order.
	objects map[string][]string
	// docs maps "namespace/resource/name" to content.
	docs map[string]map[string]any
}

func (f *fakeClient) Namespaces(ctx context.Context) ([]string, error) {
	return f.namespaces, nil
}

func (f *fakeClient) Resources(ctx context.Context, clusterScoped bool) ([]string, error) {
	if clusterScoped {
		return f.clusterResources, nil
	}
	return f.namespacedResources, nil
}

func (f *fakeClient) List(ctx context.Context, namespace, resource string) ([]string, error) {
	names, ok := f.objects[namespace+"/"+resource]
	if !ok {
		return nil, cluster.NotFoundError(fmt.Sprintf("listing %s in %q", resource, namespace))
	}
	return names, nil
}

func (f *fakeClient) Get(ctx context.Context, namespace, resource, name string) (document.Document, error) {
	content, ok := f.docs[namespace+"/"+resource+"/"+name]
	if !ok {
		return document.Document{}, cluster.NotFoundError(
			fmt.Sprintf("getting %s/%s in %q", resource, name, namespace))
	}
	return document.New(content), nil
}

func testCluster() *fakeClient {
	return &fakeClient{
		namespaces:          []string{"default", "kube-system"},
		namespacedResources: []string{"pods", "services"},
		clusterResources:    []string{"namespaces", "nodes"},
		objects: map[string][]string{
			"default/pods":     {"my-pod", "zz-pod", "aa-pod"},
			"default/services": {"kubernetes"},
			"/nodes":           {"worker-1"},
		},
		docs: map[string]map[string]any{
			"default/pods/my-pod": {
				"apiVersion": "v1",
				"kind":       "Pod",
				"metadata": map[string]any{
					"name":      "my-pod",
					"namespace": "default",
					"annotations": map[string]any{
						"app.kubernetes.io/name": "demo",
						"team":                   "payments",
					},
				},
				"status": map[string]any{"phase": "Running"},
			},
			"/nodes/worker-1": {
				"apiVersion": "v1",
				"kind":       "Node",
				"metadata":   map[string]any{"name": "worker-1"},
				"status":     map[string]any{"capacity": map[string]any{"cpu": "8"}},
			},
		},
	}
}

func newTestView(t *testing.T, client cluster.Client) *View {
	t.Helper()
	cache, err := viewcache.New(viewcache.Options{
		Fetcher: &clusterFetcher{client: client},
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(cache.Close)
	return NewView(cache, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func entryNames(entries []viewcache.DirEntry) []string {
	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.Name
	}
	return names
}

func TestRootListsNamespaces(t *testing.T) {
	view := newTestView(t, testCluster())

	entries, err := view.Entries(context.Background(), coordinate.RootCoordinate())
	if err != nil {
		t.Fatal(err)
	}
	names := entryNames(entries)
	want := []string{coordinate.ClusterDir, "default", "kube-system"}
	if len(names) != len(want) {
		t.Fatalf("root listing = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("root listing = %v, want %v", names, want)
		}
		if !entries[i].Dir {
			t.Errorf("root entry %q is not a directory", names[i])
		}
	}
}

func TestNamespaceListsKinds(t *testing.T) {
	view := newTestView(t, testCluster())
	coord := mustCoord(t, "/default")

	entries, err := view.Entries(context.Background(), coord)
	if err != nil {
		t.Fatal(err)
	}
	names := entryNames(entries)
	if len(names) != 2 || names[0] != "pods" || names[1] != "services" {
		t.Errorf("namespace listing = %v", names)
	}
}

func TestClusterDirListsClusterKinds(t *testing.T) {
	view := newTestView(t, testCluster())

	entries, err := view.Entries(context.Background(), mustCoord(t, "/_cluster"))
	if err != nil {
		t.Fatal(err)
	}
	names := entryNames(entries)
	if len(names) != 2 || names[0] != "namespaces" || names[1] != "nodes" {
		t.Errorf("_cluster listing = %v", names)
	}
}

func TestKindListingPreservesServerOrder(t *testing.T) {
	view := newTestView(t, testCluster())

	entries, err := view.Entries(context.Background(), mustCoord(t, "/default/pods"))
	if err != nil {
		t.Fatal(err)
	}
	names := entryNames(entries)
	// Server order, deliberately unsorted.
	want := []string{"my-pod", "zz-pod", "aa-pod"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("kind listing = %v, want %v (server order)", names, want)
		}
	}
}

func TestObjectListsDocumentFields(t *testing.T) {
	view := newTestView(t, testCluster())

	entries, err := view.Entries(context.Background(), mustCoord(t, "/default/pods/my-pod"))
	if err != nil {
		t.Fatal(err)
	}
	byName := make(map[string]bool)
	for _, entry := range entries {
		byName[entry.Name] = entry.Dir
	}
	if dir, ok := byName["status"]; !ok || !dir {
		t.Errorf("object listing missing status directory: %v", entryNames(entries))
	}
	if dir, ok := byName["apiVersion"]; !ok || dir {
		t.Errorf("object listing missing apiVersion file: %v", entryNames(entries))
	}
}

func TestSlashMapKeysOmittedFromListing(t *testing.T) {
	view := newTestView(t, testCluster())

	entries, err := view.Entries(context.Background(), mustCoord(t, "/default/pods/my-pod/metadata/annotations"))
	if err != nil {
		t.Fatal(err)
	}
	names := entryNames(entries)
	// app.kubernetes.io/name cannot form a path segment, so the
	// listing must not advertise it.
	if len(names) != 1 || names[0] != "team" {
		t.Errorf("annotations listing = %v, want [team]", names)
	}

	data, err := view.Contents(context.Background(), mustCoord(t, "/default/pods/my-pod/metadata/annotations/team"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payments\n" {
		t.Errorf("contents = %q", data)
	}
}

func TestScalarFieldContents(t *testing.T) {
	view := newTestView(t, testCluster())

	data, err := view.Contents(context.Background(), mustCoord(t, "/default/pods/my-pod/status/phase"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Running\n" {
		t.Errorf("contents = %q, want %q", data, "Running\n")
	}
}

func TestClusterScopedFieldContents(t *testing.T) {
	view := newTestView(t, testCluster())

	data, err := view.Contents(context.Background(), mustCoord(t, "/_cluster/nodes/worker-1/status/capacity/cpu"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "8\n" {
		t.Errorf("contents = %q", data)
	}
}

func TestLookupResolvesChild(t *testing.T) {
	view := newTestView(t, testCluster())

	child, isDir, err := view.Lookup(context.Background(), mustCoord(t, "/default/pods"), "my-pod")
	if err != nil {
		t.Fatal(err)
	}
	if child.Path() != "/default/pods/my-pod" || !isDir {
		t.Errorf("Lookup = %q, dir=%v", child.Path(), isDir)
	}
}

func TestLookupGhostIsNotFound(t *testing.T) {
	view := newTestView(t, testCluster())

	_, _, err := view.Lookup(context.Background(), mustCoord(t, "/default/pods"), "ghost")
	if !cluster.IsNotFound(err) {
		t.Errorf("Lookup(ghost) = %v, want not-found", err)
	}
}

func TestLookupReservedNameFails(t *testing.T) {
	view := newTestView(t, testCluster())

	_, _, err := view.Lookup(context.Background(), mustCoord(t, "/default"), coordinate.ClusterDir)
	if err == nil {
		t.Fatal("Lookup(_cluster) under a namespace succeeded")
	}
}

func TestMissingFieldIsNotFound(t *testing.T) {
	view := newTestView(t, testCluster())

	_, err := view.Contents(context.Background(), mustCoord(t, "/default/pods/my-pod/status/ghost"))
	if !cluster.IsNotFound(err) {
		t.Errorf("Contents(missing field) = %v, want not-found", err)
	}
}

func TestEntriesOnFileFails(t *testing.T) {
	view := newTestView(t, testCluster())

	_, err := view.Entries(context.Background(), mustCoord(t, "/default/pods/my-pod/status/phase"))
	if errnoFromError(err) != syscall.ENOTDIR {
		t.Errorf("Entries on a file = %v", err)
	}
}

func TestContentsOnDirectoryFails(t *testing.T) {
	view := newTestView(t, testCluster())

	_, err := view.Contents(context.Background(), mustCoord(t, "/default/pods"))
	if errnoFromError(err) != syscall.EISDIR {
		t.Errorf("Contents on a directory = %v", err)
	}
}

func TestInodeStability(t *testing.T) {
	view := newTestView(t, testCluster())
	coord := mustCoord(t, "/default/pods/my-pod")

	first := view.InodeID(coord)
	second := view.InodeID(coord)
	if first != second {
		t.Errorf("inode unstable: %d then %d", first, second)
	}
	other := view.InodeID(mustCoord(t, "/default/pods/zz-pod"))
	if other == first {
		t.Errorf("distinct coordinates share inode %d", first)
	}
}

func mustCoord(t *testing.T, path string) coordinate.Coordinate {
	t.Helper()
	coord, err := coordinate.Resolve(path)
	if err != nil {
		t.Fatal(err)
	}
	return coord
}
