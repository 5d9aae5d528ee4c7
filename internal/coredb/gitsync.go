package coredb

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultHost is the CoRe database git host.
const DefaultHost = "core-gitlfs.tpi.uni-jena.de"

// gitGroup is the path component grouping the per-simulation repositories.
const gitGroup = "core_database"

// SyncError wraps a failed fetch for one simulation key.
type SyncError struct {
	Key string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("coredb: sync %s: %v", e.Key, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// runner executes one git invocation inside dir (empty dir = inherit cwd).
// Swapped out in tests.
type runner func(ctx context.Context, dir string, stdout, stderr io.Writer, args ...string) error

func execGit(ctx context.Context, dir string, stdout, stderr io.Writer, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// GitSyncer fetches simulation repositories by cloning or pulling them
// under the mirror root, one repository per simulation key.
type GitSyncer struct {
	Root string
	Host string

	run    runner
	logger *slog.Logger
}

// GitOption configures a GitSyncer.
type GitOption func(*GitSyncer)

// WithHost overrides the CoRe git host.
func WithHost(host string) GitOption {
	return func(s *GitSyncer) { s.Host = host }
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) GitOption {
	return func(s *GitSyncer) { s.logger = l }
}

// withRunner swaps the git process launcher; tests only.
func withRunner(r runner) GitOption {
	return func(s *GitSyncer) { s.run = r }
}

// NewGitSyncer creates a syncer storing repositories under root.
func NewGitSyncer(root string, opts ...GitOption) *GitSyncer {
	s := &GitSyncer{
		Root: root,
		Host: DefaultHost,
		run:  execGit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// RepoURL builds the remote URL for a simulation key under the configured
// transport protocol.
func (s *GitSyncer) RepoURL(key, protocol string) string {
	name := DirName(key)
	if strings.EqualFold(protocol, "ssh") {
		return fmt.Sprintf("git@%s:%s/%s.git", s.Host, gitGroup, name)
	}
	return fmt.Sprintf("https://%s/%s/%s.git", s.Host, gitGroup, name)
}

// Sync clones each key's repository under Root, or pulls when a clone
// already exists. With opts.LFS the large-file objects are pulled
// afterwards. The first failing key aborts the batch; retries are the
// caller's concern.
func (s *GitSyncer) Sync(ctx context.Context, keys []string, opts SyncOptions) error {
	var stdout, stderr io.Writer
	if opts.Verbose {
		stdout, stderr = os.Stdout, os.Stderr
	}

	for _, key := range keys {
		dir := filepath.Join(s.Root, DirName(key))
		fresh := false
		if _, err := os.Stat(filepath.Join(dir, ".git")); err != nil {
			fresh = true
		}

		if fresh {
			s.logger.Info("cloning simulation", "key", key, "url", s.RepoURL(key, opts.Protocol))
			if err := s.run(ctx, "", stdout, stderr, "clone", s.RepoURL(key, opts.Protocol), dir); err != nil {
				return &SyncError{Key: key, Err: err}
			}
		} else {
			s.logger.Info("refreshing simulation", "key", key, "dir", dir)
			if err := s.run(ctx, dir, stdout, stderr, "pull"); err != nil {
				return &SyncError{Key: key, Err: err}
			}
		}

		if opts.LFS {
			if err := s.run(ctx, dir, stdout, stderr, "lfs", "pull"); err != nil {
				return &SyncError{Key: key, Err: err}
			}
		}
	}
	return nil
}

// Verify compile-time interface compliance.
var _ Syncer = (*GitSyncer)(nil)
