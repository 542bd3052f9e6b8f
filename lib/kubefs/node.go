// Copyright 2026 The Kubefs Authors
// SPDX-License-Identifier: Apache-2.0

package kubefs

import (
	"context"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/kubefs-project/kubefs/lib/coordinate"
)

const (
	dirMode  = syscall.S_IFDIR | 0o555
	fileMode = syscall.S_IFREG | 0o444
)

// node is one coordinate of the virtual tree. It holds no payload
// state: every operation is a transaction against the View, so the
// kernel's worker threads block independently and only on their own
// coordinate's fetch.
type node struct {
	gofuse.Inode
	view  *View
	coord coordinate.Coordinate
	isDir bool
	owner fuse.Owner
}

var _ gofuse.InodeEmbedder = (*node)(nil)
var _ gofuse.NodeLookuper = (*node)(nil)
var _ gofuse.NodeReaddirer = (*node)(nil)
var _ gofuse.NodeGetattrer = (*node)(nil)
var _ gofuse.NodeOpener = (*node)(nil)
var _ gofuse.NodeReader = (*node)(nil)

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	child, isDir, err := n.view.Lookup(ctx, n.coord, name)
	if err != nil {
		return nil, errnoFromError(err)
	}

	stable := gofuse.StableAttr{Ino: n.view.InodeID(child)}
	if isDir {
		stable.Mode = syscall.S_IFDIR
		out.Mode = dirMode
		out.Nlink = 2
	} else {
		stable.Mode = syscall.S_IFREG
		out.Mode = fileMode
		out.Nlink = 1
		// The kernel trusts the size it gets here, so a file entry
		// must materialize its content up front.
		data, err := n.view.Contents(ctx, child)
		if err != nil {
			return nil, errnoFromError(err)
		}
		out.Size = uint64(len(data))
	}
	out.Owner = n.owner

	childNode := &node{view: n.view, coord: child, isDir: isDir, owner: n.owner}
	return n.NewInode(ctx, childNode, stable), 0
}

func (n *node) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	if !n.isDir {
		return nil, syscall.ENOTDIR
	}
	listing, err := n.view.Entries(ctx, n.coord)
	if err != nil {
		return nil, errnoFromError(err)
	}

	entries := make([]fuse.DirEntry, 0, len(listing))
	for _, entry := range listing {
		child, err := n.coord.Child(entry.Name)
		if err != nil {
			continue
		}
		mode := uint32(syscall.S_IFREG)
		if entry.Dir {
			mode = syscall.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{
			Name: entry.Name,
			Mode: mode,
			Ino:  n.view.InodeID(child),
		})
	}
	return &sliceDirStream{entries: entries}, 0
}

func (n *node) Getattr(ctx context.Context, handle gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Owner = n.owner
	if n.isDir {
		out.Mode = dirMode
		out.Nlink = 2
		return 0
	}
	data, err := n.view.Contents(ctx, n.coord)
	if err != nil {
		return errnoFromError(err)
	}
	out.Mode = fileMode
	out.Nlink = 1
	out.Size = uint64(len(data))
	out.Blocks = (out.Size + 511) / 512
	return 0
}

func (n *node) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if n.isDir {
		return nil, 0, syscall.EISDIR
	}
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	// Warm the cache so the open/read pair sees one consistent
	// payload. No OS-level handle exists; the coordinate is the
	// handle.
	if _, err := n.view.Contents(ctx, n.coord); err != nil {
		return nil, 0, errnoFromError(err)
	}
	// Cluster state moves under the kernel's feet; bypass the page
	// cache so each read sees the cache's current payload.
	return nil, fuse.FOPEN_DIRECT_IO, 0
}

func (n *node) Read(ctx context.Context, handle gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, err := n.view.Contents(ctx, n.coord)
	if err != nil {
		return nil, errnoFromError(err)
	}
	return fuse.ReadResultData(readSlice(data, dest, off)), 0
}

// readSlice implements the short-read contract: an offset at or past
// the end yields zero bytes, not an error, and a read spanning the
// end returns only the remaining bytes.
func readSlice(data, dest []byte, off int64) []byte {
	if off < 0 || off >= int64(len(data)) {
		return nil
	}
	end := off + int64(len(dest))
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return data[off:end]
}

// The mount is read-only: mutation would require write-back into the
// cluster with optimistic-concurrency handling this filesystem does
// not undertake.

var _ gofuse.NodeCreater = (*node)(nil)
var _ gofuse.NodeMkdirer = (*node)(nil)
var _ gofuse.NodeUnlinker = (*node)(nil)
var _ gofuse.NodeRmdirer = (*node)(nil)
var _ gofuse.NodeRenamer = (*node)(nil)
var _ gofuse.NodeSetattrer = (*node)(nil)
var _ gofuse.NodeWriter = (*node)(nil)

func (n *node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	return nil, nil, 0, syscall.EROFS
}

func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	return nil, syscall.EROFS
}

func (n *node) Unlink(ctx context.Context, name string) syscall.Errno {
	return syscall.EROFS
}

func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return syscall.EROFS
}

func (n *node) Rename(ctx context.Context, name string, newParent gofuse.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	return syscall.EROFS
}

func (n *node) Setattr(ctx context.Context, handle gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	return syscall.EROFS
}

func (n *node) Write(ctx context.Context, handle gofuse.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	return 0, syscall.EROFS
}

// sliceDirStream implements fs.DirStream from a slice of entries.
type sliceDirStream struct {
	entries []fuse.DirEntry
	index   int
}

func (s *sliceDirStream) HasNext() bool {
	return s.index < len(s.entries)
}

func (s *sliceDirStream) Next() (fuse.DirEntry, syscall.Errno) {
	if s.index >= len(s.entries) {
		return fuse.DirEntry{}, syscall.EINVAL
	}
	entry := s.entries[s.index]
	s.index++
	return entry, 0
}

func (s *sliceDirStream) Close() {}
