package search

import (
	"log"
	"sync"

	"ecosupply/api/internal/site"
)

// Service is the facade that tries Meilisearch first and falls back to a
// scan over the in-memory records. meili may be nil when not configured.
type Service struct {
	meili *Meili

	mu      sync.RWMutex
	records []Record
	indexed map[string]struct{}
}

func NewService(meili *Meili) *Service {
	return &Service{meili: meili, indexed: map[string]struct{}{}}
}

// Index rebuilds the record set from the document. The Meilisearch push is
// fire-and-forget; the in-memory fallback set is updated synchronously so
// queries right after a save see the new content.
func (s *Service) Index(doc site.Document) {
	records := BuildRecords(doc)

	s.mu.Lock()
	current := make(map[string]struct{}, len(records))
	for _, r := range records {
		current[r.ID] = struct{}{}
	}
	var removed []string
	for id := range s.indexed {
		if _, ok := current[id]; !ok {
			removed = append(removed, id)
		}
	}
	s.records = records
	s.indexed = current
	s.mu.Unlock()

	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexRecords(records, removed); err != nil {
			log.Printf("search: index site records: %v", err)
		}
	}()
}

// Search tries Meilisearch if healthy, otherwise scans the fallback records.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to scan: %v", err)
	}
	return s.scan(q)
}

func (s *Service) scan(q Query) Response {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := q.Limit
	if limit == 0 {
		limit = 20
	}

	results := []Result{}
	total := 0
	for _, r := range s.records {
		if q.FilterType != "" && r.Type != q.FilterType {
			continue
		}
		if !r.matches(q.Text) {
			continue
		}
		total++
		if len(results) < limit {
			results = append(results, Result{
				Type:    r.Type,
				ID:      r.ID,
				Title:   r.Title,
				Snippet: snippet(r.Body),
				PageID:  r.PageID,
			})
		}
	}
	return Response{Results: results, Total: total, Query: q.Text}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
