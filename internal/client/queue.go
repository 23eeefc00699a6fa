package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ecosupply/api/internal/site"
)

const queueFile = "queue.json"

// QueueStatus tracks one queued write through its lifecycle.
type QueueStatus string

const (
	StatusPending   QueueStatus = "pending"
	StatusConfirmed QueueStatus = "confirmed"
	StatusFailed    QueueStatus = "failed"
)

// QueueEntry is one write that could not reach the backend when it was made.
type QueueEntry struct {
	ID        int           `json:"id"`
	Doc       site.Document `json:"doc"`
	Status    QueueStatus   `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func (c *Client) queuePath() string { return filepath.Join(c.dir, queueFile) }

// Pending returns the queued writes that have not been replayed yet.
func (c *Client) Pending() ([]QueueEntry, error) {
	entries, err := c.readQueue()
	if err != nil {
		return nil, err
	}
	pending := []QueueEntry{}
	for _, e := range entries {
		if e.Status == StatusPending {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

// Flush replays unconfirmed writes in order, retrying earlier failed entries
// before anything queued after them. Each replayed entry is marked confirmed
// or failed; replay stops at the first failure so later writes cannot land
// before an earlier one. Confirmed entries are pruned from the queue; the
// returned report covers every entry the flush saw.
func (c *Client) Flush(ctx context.Context, cred *Credential) ([]QueueEntry, error) {
	entries, err := c.readQueue()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	stopped := false
	for i := range entries {
		if entries[i].Status == StatusConfirmed || stopped {
			continue
		}
		if err := c.putRemote(ctx, entries[i].Doc, cred); err != nil {
			entries[i].Status = StatusFailed
			entries[i].UpdatedAt = now
			stopped = true
			continue
		}
		entries[i].Status = StatusConfirmed
		entries[i].UpdatedAt = now
	}

	report := make([]QueueEntry, len(entries))
	copy(report, entries)

	kept := make([]QueueEntry, 0, len(entries))
	for _, e := range entries {
		if e.Status != StatusConfirmed {
			kept = append(kept, e)
		}
	}
	if err := c.writeQueue(kept); err != nil {
		return nil, err
	}
	return report, nil
}

func (c *Client) enqueue(doc site.Document) error {
	entries, err := c.readQueue()
	if err != nil {
		return err
	}
	nextID := 1
	for _, e := range entries {
		if e.ID >= nextID {
			nextID = e.ID + 1
		}
	}
	now := time.Now()
	entries = append(entries, QueueEntry{
		ID:        nextID,
		Doc:       doc,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return c.writeQueue(entries)
}

func (c *Client) readQueue() ([]QueueEntry, error) {
	raw, err := os.ReadFile(c.queuePath())
	if errors.Is(err, os.ErrNotExist) {
		return []QueueEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read queue: %w", err)
	}
	var entries []QueueEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse queue: %w", err)
	}
	return entries, nil
}

func (c *Client) writeQueue(entries []QueueEntry) error {
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal queue: %w", err)
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if err := os.WriteFile(c.queuePath(), raw, 0o644); err != nil {
		return fmt.Errorf("write queue: %w", err)
	}
	return nil
}
