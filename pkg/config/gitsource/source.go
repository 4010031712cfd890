// Package gitsource serves configuration documents from a git checkout.
//
// The repository is cloned once with Clone; Pull (or Sync on an interval)
// fast-forwards it and reports whether HEAD moved, so callers can invalidate
// their config.Store.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"azops-hq/sweeper/pkg/config"
)

// DefaultTimeout bounds a single clone or pull.
const DefaultTimeout = 60 * time.Second

// Config describes the repository holding the configuration documents.
type Config struct {
	// URL is the remote repository (https URL or local path).
	URL string

	// Branch to check out. Empty uses the remote HEAD.
	Branch string

	// Path is the directory inside the repository containing the documents.
	Path string

	// LocalPath is where the repository is cloned.
	// Default: <tmp>/sweeper-config
	LocalPath string

	// Token is an HTTPS access token. Empty means anonymous access.
	Token string

	// Timeout bounds a single clone or pull.
	// Default: 60s
	Timeout time.Duration
}

// Source is a config.DocumentSource backed by a git working tree.
type Source struct {
	cfg    Config
	logger *slog.Logger

	mu   sync.RWMutex
	repo *gogit.Repository
	dir  *config.DirSource
}

// New validates cfg and returns an unopened Source. Call Clone before Read.
func New(cfg Config, logger *slog.Logger) (*Source, error) {
	if cfg.URL == "" {
		return nil, errors.New("gitsource: repository URL cannot be empty")
	}
	if cfg.LocalPath == "" {
		cfg.LocalPath = filepath.Join(os.TempDir(), "sweeper-config")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		cfg:    cfg,
		logger: logger.With("component", "config.gitsource"),
	}, nil
}

func (s *Source) auth() transport.AuthMethod {
	if s.cfg.Token == "" {
		return nil
	}
	return &http.BasicAuth{Username: "git", Password: s.cfg.Token}
}

// Clone opens the existing checkout at LocalPath or clones the repository there.
func (s *Source) Clone(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(filepath.Join(s.cfg.LocalPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(s.cfg.LocalPath)
		if err != nil {
			return fmt.Errorf("open existing checkout: %w", err)
		}
		s.repo = repo
		return s.openDir()
	}

	if err := os.MkdirAll(s.cfg.LocalPath, 0o755); err != nil {
		return fmt.Errorf("create checkout directory: %w", err)
	}

	opts := &gogit.CloneOptions{
		URL:  s.cfg.URL,
		Auth: s.auth(),
	}
	if s.cfg.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(s.cfg.Branch)
		opts.SingleBranch = true
	}

	cloneCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	repo, err := gogit.PlainCloneContext(cloneCtx, s.cfg.LocalPath, false, opts)
	if err != nil {
		return fmt.Errorf("clone %s: %w", s.cfg.URL, err)
	}
	s.repo = repo

	s.logger.Info("cloned configuration repository",
		"url", s.cfg.URL,
		"branch", s.cfg.Branch,
		"duration", time.Since(start),
	)
	return s.openDir()
}

func (s *Source) openDir() error {
	dir, err := config.NewDirSource(filepath.Join(s.cfg.LocalPath, s.cfg.Path))
	if err != nil {
		return err
	}
	s.dir = dir
	return nil
}

// Pull fast-forwards the checkout. changed reports whether HEAD moved.
func (s *Source) Pull(ctx context.Context) (changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		return false, errors.New("gitsource: repository not cloned")
	}

	before, err := s.repo.Head()
	if err != nil {
		return false, fmt.Errorf("read HEAD: %w", err)
	}

	worktree, err := s.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("open worktree: %w", err)
	}

	opts := &gogit.PullOptions{
		RemoteName: "origin",
		Auth:       s.auth(),
	}
	if s.cfg.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(s.cfg.Branch)
		opts.SingleBranch = true
	}

	pullCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if err := worktree.PullContext(pullCtx, opts); err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return false, fmt.Errorf("pull: %w", err)
	}

	after, err := s.repo.Head()
	if err != nil {
		return false, fmt.Errorf("read HEAD: %w", err)
	}

	changed = before.Hash() != after.Hash()
	if changed {
		s.logger.Info("configuration repository updated",
			"from", before.Hash().String(),
			"to", after.Hash().String(),
		)
	}
	return changed, nil
}

// Head returns the commit currently checked out.
func (s *Source) Head() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.repo == nil {
		return "", errors.New("gitsource: repository not cloned")
	}
	ref, err := s.repo.Head()
	if err != nil {
		return "", err
	}
	return ref.Hash().String(), nil
}

// Read implements config.DocumentSource.
func (s *Source) Read(name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dir == nil {
		return nil, errors.New("gitsource: repository not cloned")
	}
	return s.dir.Read(name)
}

// Location implements config.DocumentSource.
func (s *Source) Location() string {
	if s.cfg.Path == "" {
		return s.cfg.URL
	}
	return s.cfg.URL + "//" + s.cfg.Path
}

// Sync pulls every interval until ctx is done and calls onChange after each
// pull that moved HEAD. Pull failures are logged and retried on the next tick.
func (s *Source) Sync(ctx context.Context, interval time.Duration, onChange func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			changed, err := s.Pull(ctx)
			if err != nil {
				s.logger.Error("configuration pull failed", "error", err)
				continue
			}
			if changed {
				onChange()
			}
		}
	}
}
