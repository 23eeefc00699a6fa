// Package history keeps a commit-per-save revision log of the site document
// in a local git repository. It is best-effort: a history failure never fails
// the write that triggered it.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ecosupply/api/internal/site"
	"ecosupply/api/internal/store"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const documentFile = "site.json"

type Entry struct {
	Hash    string    `json:"hash"`
	Author  string    `json:"author"`
	Message string    `json:"message"`
	When    time.Time `json:"when"`
}

type Service struct {
	dir string
	mu  sync.Mutex
}

func New(dir string) *Service {
	return &Service{dir: dir}
}

// Ensure initializes the history repository with a baseline commit of the
// given document. Calling it on an existing repository is a no-op.
func (s *Service) Ensure(initial site.Document, author string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(filepath.Join(s.dir, ".git")); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat history dir: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}

	repo, err := git.PlainInit(s.dir, false)
	if err != nil {
		return fmt.Errorf("init history repo: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if err := s.writeDocument(initial); err != nil {
		return err
	}
	if _, err := worktree.Add(documentFile); err != nil {
		return fmt.Errorf("git add baseline: %w", err)
	}
	hash, err := worktree.Commit("Seed site document", &git.CommitOptions{
		Author: signature(author),
	})
	if err != nil {
		return fmt.Errorf("commit baseline: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), hash)); err != nil {
		return fmt.Errorf("set main branch ref: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return fmt.Errorf("set HEAD to main: %w", err)
	}
	return nil
}

// Commit records one saved document state. Saves that do not change the
// document are skipped.
func (s *Service) Commit(doc site.Document, author, message string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return Entry{}, fmt.Errorf("open history repo: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return Entry{}, fmt.Errorf("open worktree: %w", err)
	}

	if err := s.writeDocument(doc); err != nil {
		return Entry{}, err
	}
	if _, err := worktree.Add(documentFile); err != nil {
		return Entry{}, fmt.Errorf("git add document: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return Entry{}, fmt.Errorf("worktree status: %w", err)
	}
	if status.IsClean() {
		head, err := repo.Head()
		if err != nil {
			return Entry{}, fmt.Errorf("read head: %w", err)
		}
		return Entry{Hash: head.Hash().String(), Author: author, Message: "unchanged"}, nil
	}

	if message == "" {
		message = "Update site document"
	}
	sig := signature(author)
	hash, err := worktree.Commit(message, &git.CommitOptions{Author: sig})
	if err != nil {
		return Entry{}, fmt.Errorf("commit document: %w", err)
	}
	return Entry{Hash: hash.String(), Author: sig.Name, Message: message, When: sig.When}, nil
}

// List returns the most recent entries, newest first.
func (s *Service) List(limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return nil, fmt.Errorf("open history repo: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("read head: %w", err)
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	entries := []Entry{}
	err = iter.ForEach(func(c *object.Commit) error {
		entries = append(entries, Entry{
			Hash:    c.Hash.String(),
			Author:  c.Author.Name,
			Message: c.Message,
			When:    c.Author.When,
		})
		if limit > 0 && len(entries) >= limit {
			return errStopIteration
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return nil, fmt.Errorf("walk log: %w", err)
	}
	return entries, nil
}

// ReadAt returns the document as of a given commit.
func (s *Service) ReadAt(hash string) (site.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return site.Document{}, fmt.Errorf("open history repo: %w", err)
	}
	commit, err := repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return site.Document{}, fmt.Errorf("read commit %s: %w", hash, err)
	}
	file, err := commit.File(documentFile)
	if err != nil {
		return site.Document{}, fmt.Errorf("read %s at %s: %w", documentFile, hash, err)
	}
	contents, err := file.Contents()
	if err != nil {
		return site.Document{}, fmt.Errorf("read file contents: %w", err)
	}
	var doc site.Document
	if err := json.Unmarshal([]byte(contents), &doc); err != nil {
		return site.Document{}, fmt.Errorf("parse historic document: %w", err)
	}
	return doc, nil
}

var errStopIteration = errors.New("stop iteration")

func (s *Service) writeDocument(doc site.Document) error {
	raw, err := store.MarshalDocument(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(s.dir, documentFile), raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", documentFile, err)
	}
	return nil
}

func signature(author string) *object.Signature {
	if author == "" {
		author = "editor"
	}
	return &object.Signature{
		Name:  author,
		Email: author + "@local.ecosupply.dev",
		When:  time.Now(),
	}
}
