// Copyright 2026 The Kubefs Authors
// SPDX-License-Identifier: Apache-2.0

package kubefs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kubefs-project/kubefs/lib/cluster"
	"github.com/kubefs-project/kubefs/lib/coordinate"
	"github.com/kubefs-project/kubefs/lib/inode"
	"github.com/kubefs-project/kubefs/lib/viewcache"
)

// errNotDirectory and errIsDirectory report a kind mismatch between
// the requested operation and the coordinate's shape.
var (
	errNotDirectory = errors.New("not a directory")
	errIsDirectory  = errors.New("is a directory")
)

// View is the bridge the filesystem handlers run against: it owns the
// inode table and consults the cache, holding no state of its own
// across calls. One View serves one mount; multiple independent
// mounts in-process get independent Views.
type View struct {
	inodes *inode.Table
	cache  *viewcache.Cache
	logger *slog.Logger
}

// NewView builds a view over the cache.
func NewView(cache *viewcache.Cache, logger *slog.Logger) *View {
	return &View{
		inodes: inode.NewTable(),
		cache:  cache,
		logger: logger,
	}
}

// InodeID returns the stable inode number for the coordinate.
func (v *View) InodeID(coord coordinate.Coordinate) uint64 {
	return v.inodes.GetOrCreate(coord)
}

// Lookup resolves one child name under a parent directory. Existence
// is membership in the parent's listing; the result reports whether
// the child is a directory.
func (v *View) Lookup(ctx context.Context, parent coordinate.Coordinate, name string) (coordinate.Coordinate, bool, error) {
	child, err := parent.Child(name)
	if err != nil {
		return coordinate.Coordinate{}, false, err
	}
	payload, err := v.cache.Get(ctx, parent)
	if err != nil {
		return coordinate.Coordinate{}, false, err
	}
	if !payload.Dir {
		return coordinate.Coordinate{}, false, fmt.Errorf("%w: %s", errNotDirectory, parent.Path())
	}
	for _, entry := range payload.Entries {
		if entry.Name == name {
			return child, entry.Dir, nil
		}
	}
	return coordinate.Coordinate{}, false, cluster.NotFoundError(fmt.Sprintf("lookup %s", child.Path()))
}

// Entries returns a directory coordinate's listing in fetch order.
func (v *View) Entries(ctx context.Context, coord coordinate.Coordinate) ([]viewcache.DirEntry, error) {
	payload, err := v.cache.Get(ctx, coord)
	if err != nil {
		return nil, err
	}
	if !payload.Dir {
		return nil, fmt.Errorf("%w: %s", errNotDirectory, coord.Path())
	}
	return payload.Entries, nil
}

// Contents returns a file coordinate's rendered bytes.
func (v *View) Contents(ctx context.Context, coord coordinate.Coordinate) ([]byte, error) {
	payload, err := v.cache.Get(ctx, coord)
	if err != nil {
		return nil, err
	}
	if payload.Dir {
		return nil, fmt.Errorf("%w: %s", errIsDirectory, coord.Path())
	}
	return payload.Bytes, nil
}
