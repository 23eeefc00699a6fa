package search

import (
	"strings"

	"ecosupply/api/internal/site"
)

// BuildRecords flattens the document into index records. Disabled entries are
// skipped; they should not surface in search even though the home page still
// shows them tagged.
func BuildRecords(doc site.Document) []Record {
	var records []Record

	for _, t := range doc.Tiles {
		if !t.IsEnabled() {
			continue
		}
		records = append(records, Record{
			ID:     "tile-" + t.ID,
			Type:   ResultTile,
			Title:  t.Title,
			Body:   strings.TrimSpace(t.Origin + " " + t.Short),
			PageID: t.ResolvedPageID(),
		})
	}

	for id, p := range doc.Pages {
		var parts []string
		parts = append(parts, p.Hero)
		for _, s := range p.Sections {
			parts = append(parts, s.H, s.P)
		}
		parts = append(parts, p.Extra)
		records = append(records, Record{
			ID:     "page-" + id,
			Type:   ResultPage,
			Title:  p.Title,
			Body:   strings.TrimSpace(strings.Join(parts, " ")),
			PageID: id,
		})
	}

	for _, s := range doc.BioSeals {
		if !s.IsEnabled() {
			continue
		}
		body := s.Short + " " + s.Verdict + " " + strings.Join(s.Points, " ")
		records = append(records, Record{
			ID:    "seal-" + s.ID,
			Type:  ResultSeal,
			Title: s.Title,
			Body:  strings.TrimSpace(body),
		})
	}

	return records
}
