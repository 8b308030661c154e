package kv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Git keeps each key as a file in a repository worktree and commits every
// change, so saved projects carry their own history.
type Git struct {
	dir    string
	author string
	mu     sync.Mutex
	repo   *git.Repository
}

// Revision is one commit touching a key.
type Revision struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	When    time.Time `json:"when"`
}

// OpenGit opens the repository at dir, initialising it on first use.
func OpenGit(dir, author string) (*Git, error) {
	if author == "" {
		author = "collate"
	}
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create repo dir: %w", err)
		}
		repo, err = git.PlainInit(dir, false)
		if err != nil {
			return nil, fmt.Errorf("init repo: %w", err)
		}
		if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
			return nil, fmt.Errorf("set HEAD to main: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	return &Git{dir: dir, author: author, repo: repo}, nil
}

func (g *Git) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(filepath.Join(g.dir, fileName(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return data, true, nil
}

func (g *Git) Set(_ context.Context, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	name := fileName(key)
	if err := writeAtomic(filepath.Join(g.dir, name), value); err != nil {
		return err
	}
	worktree, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if _, err := worktree.Add(name); err != nil {
		return fmt.Errorf("git add %s: %w", key, err)
	}
	return g.commit(worktree, "Save "+key)
}

func (g *Git) Remove(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	name := fileName(key)
	if _, err := os.Stat(filepath.Join(g.dir, name)); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	worktree, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if _, err := worktree.Remove(name); err != nil {
		return fmt.Errorf("git rm %s: %w", key, err)
	}
	return g.commit(worktree, "Remove "+key)
}

// commit records staged changes; a clean worktree is left alone.
func (g *Git) commit(worktree *git.Worktree, message string) error {
	status, err := worktree.Status()
	if err != nil {
		return fmt.Errorf("git status: %w", err)
	}
	if status.IsClean() {
		return nil
	}
	_, err = worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  g.author,
			Email: g.author + "@local.collate",
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("git commit: %w", err)
	}
	return nil
}

// History lists the commits that touched key, newest first.
func (g *Git) History(key string) ([]Revision, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := g.repo.Head(); errors.Is(err, plumbing.ErrReferenceNotFound) {
		return []Revision{}, nil
	}
	name := fileName(key)
	iter, err := g.repo.Log(&git.LogOptions{FileName: &name})
	if err != nil {
		return nil, fmt.Errorf("git log: %w", err)
	}
	defer iter.Close()

	revisions := []Revision{}
	err = iter.ForEach(func(c *object.Commit) error {
		revisions = append(revisions, Revision{
			Hash:    c.Hash.String(),
			Message: c.Message,
			When:    c.Author.When,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk history: %w", err)
	}
	return revisions, nil
}

func (g *Git) Ping(context.Context) error {
	_, err := g.repo.Worktree()
	return err
}

func (g *Git) Close() error { return nil }
