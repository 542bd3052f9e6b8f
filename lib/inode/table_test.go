// Copyright 2026 The Kubefs Authors
// SPDX-License-Identifier: Apache-2.0

package inode

import (
	"fmt"
	"sync"
	"testing"

	"github.com/kubefs-project/kubefs/lib/coordinate"
)

func mustResolve(t *testing.T, path string) coordinate.Coordinate {
	t.Helper()
	coord, err := coordinate.Resolve(path)
	if err != nil {
		t.Fatalf("Resolve(%q): %v", path, err)
	}
	return coord
}

func TestRootPinned(t *testing.T) {
	table := NewTable()
	if id := table.GetOrCreate(coordinate.RootCoordinate()); id != RootID {
		t.Fatalf("root inode = %d, want %d", id, RootID)
	}
	coord, ok := table.Lookup(RootID)
	if !ok || coord.Path() != "/" {
		t.Fatalf("Lookup(RootID) = %v, %v", coord, ok)
	}
}

func TestStableAndDistinct(t *testing.T) {
	table := NewTable()
	paths := []string{"/default", "/default/pods", "/default/pods/a", "/kube-system"}
	seen := make(map[uint64]string)
	for _, path := range paths {
		coord := mustResolve(t, path)
		id := table.GetOrCreate(coord)
		if previous, dup := seen[id]; dup {
			t.Fatalf("inode %d allocated for both %q and %q", id, previous, path)
		}
		seen[id] = path
		if again := table.GetOrCreate(coord); again != id {
			t.Errorf("GetOrCreate(%q) unstable: %d then %d", path, id, again)
		}
		back, ok := table.Lookup(id)
		if !ok || back.Path() != path {
			t.Errorf("Lookup(%d) = %v, %v, want %q", id, back, ok, path)
		}
	}
}

func TestConcurrentCreationSingleID(t *testing.T) {
	table := NewTable()
	coord := mustResolve(t, "/default/pods/racer")

	const workers = 32
	ids := make([]uint64, workers)
	var wg sync.WaitGroup
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start.Wait()
			ids[i] = table.GetOrCreate(coord)
		}(i)
	}
	start.Done()
	wg.Wait()

	for i := 1; i < workers; i++ {
		if ids[i] != ids[0] {
			t.Fatalf("duplicate allocation: ids[%d]=%d, ids[0]=%d", i, ids[i], ids[0])
		}
	}
	// Losing allocations must not leave dangling reverse mappings.
	if table.Len() != 2 { // root + racer
		t.Errorf("Len() = %d, want 2", table.Len())
	}
}

func TestConcurrentDistinctCoordinates(t *testing.T) {
	table := NewTable()
	const n = 100
	var wg sync.WaitGroup
	ids := make([]uint64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			coord := mustResolve(t, fmt.Sprintf("/default/pods/pod-%d", i))
			ids[i] = table.GetOrCreate(coord)
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool)
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("inode %d allocated twice", id)
		}
		seen[id] = true
	}
}
