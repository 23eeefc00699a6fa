// Package search indexes the site content (tiles, pages, seals) and answers
// text queries. Meilisearch is used when configured and healthy; otherwise a
// substring scan over the in-memory records answers the query.
package search

import "strings"

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultTile ResultType = "tile"
	ResultPage ResultType = "page"
	ResultSeal ResultType = "seal"
)

// Record is the flattened unit we index: one per tile, page, and seal.
type Record struct {
	ID     string     `json:"id"`
	Type   ResultType `json:"type"`
	Title  string     `json:"title"`
	Body   string     `json:"body"`
	PageID string     `json:"pageId,omitempty"`
}

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
	PageID  string     `json:"pageId,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	Limit      int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

func (r Record) matches(text string) bool {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(r.Title), needle) ||
		strings.Contains(strings.ToLower(r.Body), needle)
}

func snippet(body string) string {
	runes := []rune(strings.TrimSpace(body))
	if len(runes) > 160 {
		return string(runes[:160])
	}
	return string(runes)
}
