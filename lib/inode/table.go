// Copyright 2026 The Kubefs Authors
// SPDX-License-Identifier: Apache-2.0

// Package inode assigns stable inode numbers to resource coordinates.
//
// The kernel caches inode numbers for as long as it likes, so the
// table never reuses a number for a different coordinate and never
// evicts a mapping while the mount is alive. Memory is bounded by the
// number of distinct paths the kernel has ever seen, which is fine for
// a session-scoped mount.
package inode

import (
	"sync"
	"sync/atomic"

	"github.com/kubefs-project/kubefs/lib/coordinate"
)

// RootID is the inode number of the mount root, fixed by the FUSE
// protocol.
const RootID = 1

// Table is a bijection between coordinates and inode numbers.
// Numbers are allocated monotonically starting at RootID. Lookups and
// creations for distinct coordinates do not block one another.
type Table struct {
	next    atomic.Uint64
	byPath  sync.Map // coordinate path -> uint64
	byID    sync.Map // uint64 -> coordinate.Coordinate
	created atomic.Int64
}

// NewTable returns a table with the root coordinate pinned to RootID.
func NewTable() *Table {
	table := &Table{}
	if id := table.GetOrCreate(coordinate.RootCoordinate()); id != RootID {
		panic("inode: root not allocated first")
	}
	return table
}

// GetOrCreate returns the inode number for the coordinate, allocating
// a new one on first sight. Concurrent calls for the same new
// coordinate resolve to a single number; the loser's provisional
// allocation is discarded, so numbers may have gaps but never alias.
func (t *Table) GetOrCreate(coord coordinate.Coordinate) uint64 {
	key := coord.Path()
	if id, ok := t.byPath.Load(key); ok {
		return id.(uint64)
	}
	id := t.next.Add(1)
	// Publish the reverse mapping before the forward one so that a
	// Lookup racing with creation never sees a dangling number.
	t.byID.Store(id, coord)
	if actual, loaded := t.byPath.LoadOrStore(key, id); loaded {
		t.byID.Delete(id)
		return actual.(uint64)
	}
	t.created.Add(1)
	return id
}

// Lookup returns the coordinate for an inode number previously
// returned by GetOrCreate.
func (t *Table) Lookup(id uint64) (coordinate.Coordinate, bool) {
	value, ok := t.byID.Load(id)
	if !ok {
		return coordinate.Coordinate{}, false
	}
	return value.(coordinate.Coordinate), true
}

// Len returns the number of coordinates the table has mapped.
func (t *Table) Len() int {
	return int(t.created.Load())
}
