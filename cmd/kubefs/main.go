// Copyright 2026 The Kubefs Authors
// SPDX-License-Identifier: Apache-2.0

// Command kubefs mounts a Kubernetes cluster as a read-only FUSE
// filesystem:
//
//	kubefs [flags] MOUNTPOINT
//
// The mount exposes namespaces as top-level directories, resource
// kinds inside each namespace, objects inside each kind, and object
// fields as nested directories with scalar values as files.
// Cluster-scoped kinds live under the reserved "_cluster" directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/kubefs-project/kubefs/lib/cluster"
	"github.com/kubefs-project/kubefs/lib/config"
	"github.com/kubefs-project/kubefs/lib/kubefs"
	"github.com/kubefs-project/kubefs/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "kubefs: %v\n", err)
		var usage *usageError
		if errors.As(err, &usage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// usageError marks errors in how the command was invoked, as opposed
// to runtime failures. They exit with status 2, matching pflag's own
// behavior on unknown flags.
type usageError struct {
	message string
}

func (e *usageError) Error() string { return e.message }

func run() error {
	flags := pflag.CommandLine
	flags.SortFlags = false

	kubeconfig := flags.String("kubeconfig", "", "explicit kubeconfig path (default: standard loading rules)")
	kubeContext := flags.String("context", "", "kubeconfig context to use instead of the current one")
	configPath := flags.String("config", "", "path to a kubefs YAML configuration file")
	dirTTL := flags.Duration("dir-ttl", 5*time.Second, "how long directory listings count as fresh")
	fileTTL := flags.Duration("file-ttl", 30*time.Second, "how long file contents count as fresh")
	requestTimeout := flags.Duration("request-timeout", 10*time.Second, "timeout for each API server request")
	allowOther := flags.Bool("allow-other", false, "allow other users to access the mount (needs user_allow_other in /etc/fuse.conf)")
	foreground := flags.Bool("foreground", false, "stay in the foreground instead of daemonizing")
	debug := flags.BoolP("debug", "d", false, "log at debug level and trace FUSE requests (implies --foreground)")
	showVersion := flags.Bool("version", false, "print version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Printf("kubefs %s\n", version.Info())
		return nil
	}
	if pflag.NArg() != 1 {
		return &usageError{"expected exactly one argument: the mountpoint"}
	}
	mountpoint := pflag.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	// Flags override the file, but only when actually set on the
	// command line.
	if flags.Changed("kubeconfig") {
		cfg.Kubeconfig = *kubeconfig
	}
	if flags.Changed("context") {
		cfg.Context = *kubeContext
	}
	if flags.Changed("dir-ttl") {
		cfg.Cache.DirTTL = config.Duration(*dirTTL)
	}
	if flags.Changed("file-ttl") {
		cfg.Cache.FileTTL = config.Duration(*fileTTL)
	}
	if flags.Changed("request-timeout") {
		cfg.Cache.RequestTimeout = config.Duration(*requestTimeout)
	}
	if flags.Changed("allow-other") {
		cfg.Mount.AllowOther = *allowOther
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(*debug)

	client, err := cluster.New(cluster.Options{
		Kubeconfig:     cfg.Kubeconfig,
		Context:        cfg.Context,
		RequestTimeout: cfg.Cache.RequestTimeout.Std(),
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Probe the cluster before mounting. A bad kubeconfig or an
	// unreachable API server should fail the command, not produce a
	// mount where every operation returns EIO.
	if _, err := client.Namespaces(ctx); err != nil {
		return fmt.Errorf("cannot reach cluster: %w", err)
	}

	if !*foreground && !*debug {
		return daemonize(mountpoint)
	}

	server, err := kubefs.Mount(mountOptions(cfg, mountpoint, client, *debug, logger))
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down", "reason", context.Cause(ctx))
		if err := server.Unmount(); err != nil {
			logger.Error("unmount failed, is the mountpoint busy?", "error", err)
		}
	}()

	server.Wait()
	return nil
}

// fetchHeadroom keeps the cache's fetch deadline above the cluster
// client's per-request deadline, so a slow API server surfaces as the
// client's timeout rather than the fetch context expiring first.
const fetchHeadroom = 2 * time.Second

// mountOptions assembles the mount configuration from the merged
// config.
func mountOptions(cfg *config.Config, mountpoint string, client cluster.Client, debug bool, logger *slog.Logger) kubefs.Options {
	return kubefs.Options{
		Mountpoint:   mountpoint,
		Client:       client,
		DirTTL:       cfg.Cache.DirTTL.Std(),
		FileTTL:      cfg.Cache.FileTTL.Std(),
		IdleEviction: cfg.Cache.IdleEviction.Std(),
		FetchTimeout: cfg.Cache.RequestTimeout.Std() + fetchHeadroom,
		FSName:       cfg.Mount.FSName,
		AllowOther:   cfg.Mount.AllowOther,
		Debug:        debug,
		Logger:       logger,
	}
}

// loadConfig returns the file's configuration when --config was given
// and the defaults otherwise.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadFile(path)
}

// newLogger builds the process logger. A terminal on stderr gets
// human-readable text; anything else (scripts, service managers) gets
// JSON lines.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

// daemonize re-executes the command with --foreground in a new
// session, detached from the controlling terminal. The cluster has
// already been probed, so the detached child is very likely to mount
// successfully.
func daemonize(mountpoint string) error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving own executable: %w", err)
	}
	args := append([]string{"--foreground"}, os.Args[1:]...)
	child := exec.Command(executable, args...)
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := child.Start(); err != nil {
		return fmt.Errorf("starting background process: %w", err)
	}
	fmt.Printf("kubefs mounted at %s (pid %d)\n", mountpoint, child.Process.Pid)
	return child.Process.Release()
}
