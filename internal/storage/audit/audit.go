// Package audit records every change of the data directory as a git commit.
//
// It uses go-git so no git binary is needed on the host.
package audit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	defaultName  = "vyaparitrack"
	defaultEmail = "vyaparitrack@localhost"
	maxHistory   = 1000
)

// Files that change on every request and would drown the history.
var ignored = []string{"sessions.jsonl", "push_subscriptions.jsonl"}

// Author identifies who made a change.
type Author struct {
	Name  string
	Email string
}

// Commit is one entry of the history.
type Commit struct {
	Hash        string    `json:"hash"`
	Message     string    `json:"message"`
	Author      string    `json:"author"`
	AuthorEmail string    `json:"author_email"`
	When        time.Time `json:"when"`
	Files       int       `json:"files"`
}

// Repo is the git repository of a data directory.
type Repo struct {
	dir  string
	mu   sync.Mutex
	repo *gogit.Repository
}

// Open opens the repository in dir, initializing it if needed.
func Open(dir string) (*Repo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: data directory
		return nil, fmt.Errorf("failed to create repo directory: %w", err)
	}
	repo, err := gogit.PlainOpen(dir)
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		if repo, err = gogit.PlainInit(dir, false); err != nil {
			return nil, fmt.Errorf("failed to initialize git repo: %w", err)
		}
		cfg, err := repo.Config()
		if err != nil {
			return nil, fmt.Errorf("failed to read git config: %w", err)
		}
		cfg.User.Name = defaultName
		cfg.User.Email = defaultEmail
		if err := repo.SetConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to write git config: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to open git repo: %w", err)
	}
	gitignore := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(gitignore); os.IsNotExist(err) {
		if err := os.WriteFile(gitignore, []byte(strings.Join(ignored, "\n")+"\n"), 0o644); err != nil { //nolint:gosec // G306: not secret
			return nil, err
		}
	}
	return &Repo{dir: dir, repo: repo}, nil
}

// Commit stages every change in the working directory and commits it. It
// returns false without error when there was nothing to commit.
func (r *Repo) Commit(ctx context.Context, author Author, msg string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	w, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := w.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return false, fmt.Errorf("failed to stage files: %w", err)
	}
	status, err := w.Status()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree status: %w", err)
	}
	if status.IsClean() {
		return false, nil
	}
	if author.Name == "" {
		author.Name = defaultName
	}
	if author.Email == "" {
		author.Email = defaultEmail
	}
	now := time.Now()
	_, err = w.Commit(msg, &gogit.CommitOptions{
		Author:    &object.Signature{Name: author.Name, Email: author.Email, When: now},
		Committer: &object.Signature{Name: defaultName, Email: defaultEmail, When: now},
	})
	if err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return true, nil
}

// History returns the latest n commits, newest first. n is capped at 1000;
// n <= 0 means the cap.
func (r *Repo) History(_ context.Context, n int) ([]*Commit, error) {
	if n <= 0 || n > maxHistory {
		n = maxHistory
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.repo.Head(); errors.Is(err, plumbing.ErrReferenceNotFound) {
		return []*Commit{}, nil
	} else if err != nil {
		return nil, err
	}
	it, err := r.repo.Log(&gogit.LogOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer it.Close()
	commits := []*Commit{}
	for range n {
		c, err := it.Next()
		if err != nil {
			break
		}
		files := 0
		if stats, err := c.Stats(); err == nil {
			files = len(stats)
		}
		subject, _, _ := strings.Cut(c.Message, "\n")
		commits = append(commits, &Commit{
			Hash:        c.Hash.String(),
			Message:     subject,
			Author:      c.Author.Name,
			AuthorEmail: c.Author.Email,
			When:        c.Author.When.UTC(),
			Files:       files,
		})
	}
	return commits, nil
}
