// Copyright 2026 The Kubefs Authors
// SPDX-License-Identifier: Apache-2.0

// Package kubefs mounts a live Kubernetes cluster as a read-only
// filesystem: namespaces at the root, pluralized kind directories
// inside each namespace, objects inside each kind, and each object's
// document navigable as nested directories with scalar leaves as
// files. Cluster-scoped kinds sit under the reserved "_cluster"
// entry.
//
// Map keys containing a slash (annotation and label keys such as
// app.kubernetes.io/name) cannot be encoded as a path segment and are
// omitted from field listings.
//
// The kernel drives operations on blocking worker threads; the
// cluster client is asynchronous. The viewcache is the bridge: a
// thread needing fresh data parks on exactly its own coordinate's
// fetch, never on the mount's whole workload.
package kubefs

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/kubefs-project/kubefs/lib/clock"
	"github.com/kubefs-project/kubefs/lib/cluster"
	"github.com/kubefs-project/kubefs/lib/coordinate"
	"github.com/kubefs-project/kubefs/lib/viewcache"
)

// Options configures the mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted.
	// Created if it does not exist. Required.
	Mountpoint string

	// Client serves cluster reads. Required.
	Client cluster.Client

	// DirTTL and FileTTL bound cache freshness for directory listings
	// and file contents. Zero uses the viewcache defaults.
	DirTTL  time.Duration
	FileTTL time.Duration

	// IdleEviction drops cache entries unused for this long. Zero
	// uses the viewcache default.
	IdleEviction time.Duration

	// FetchTimeout bounds each cluster fetch. Zero uses the viewcache
	// default.
	FetchTimeout time.Duration

	// FSName is the filesystem name shown by mount(8). Empty uses
	// "kubefs".
	FSName string

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Debug enables FUSE protocol logging.
	Debug bool

	// Clock supplies time. Nil uses the real clock.
	Clock clock.Clock

	// Logger receives diagnostic messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// Server is a mounted filesystem session. Wait blocks until unmount
// and releases the cache.
type Server struct {
	fuseServer *fuse.Server
	cache      *viewcache.Cache
	logger     *slog.Logger
}

// Mount mounts the cluster filesystem at the configured mountpoint.
func Mount(options Options) (*Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Client == nil {
		return nil, fmt.Errorf("cluster client is required")
	}
	if options.FSName == "" {
		options.FSName = "kubefs"
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	cache, err := viewcache.New(viewcache.Options{
		Fetcher:      &clusterFetcher{client: options.Client},
		Clock:        options.Clock,
		DirTTL:       options.DirTTL,
		FileTTL:      options.FileTTL,
		IdleEviction: options.IdleEviction,
		FetchTimeout: options.FetchTimeout,
		Logger:       options.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building cache: %w", err)
	}

	view := NewView(cache, options.Logger)
	root := &node{
		view:  view,
		coord: coordinate.RootCoordinate(),
		isDir: true,
		owner: fuse.Owner{Uid: uint32(os.Getuid()), Gid: uint32(os.Getgid())},
	}

	// Short kernel-side caching: entries and attributes move with the
	// cluster, so the kernel revalidates often and the viewcache does
	// the real freshness work.
	entryTimeout := 1 * time.Second
	attrTimeout := 1 * time.Second
	negativeTimeout := 100 * time.Millisecond

	fuseServer, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     options.FSName,
			Name:       "kubefs",
			AllowOther: options.AllowOther,
			Debug:      options.Debug,
			Options:    []string{"ro"},
		},
	})
	if err != nil {
		cache.Close()
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("cluster filesystem mounted", "mountpoint", options.Mountpoint)
	return &Server{fuseServer: fuseServer, cache: cache, logger: options.Logger}, nil
}

// Wait blocks until the filesystem is unmounted, then releases the
// cache.
func (s *Server) Wait() {
	s.fuseServer.Wait()
	s.cache.Close()
	s.logger.Info("cluster filesystem unmounted")
}

// Unmount asks the kernel to unmount. Outstanding operations finish
// first; Wait returns once the kernel lets go.
func (s *Server) Unmount() error {
	return s.fuseServer.Unmount()
}
