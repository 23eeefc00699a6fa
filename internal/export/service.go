// Package export prints product pages to PDF through headless Chromium.
package export

import (
	"fmt"

	"ecosupply/api/internal/render"
	"ecosupply/api/internal/site"
)

type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// Page renders the product page for pageID and converts it to PDF.
func Page(doc site.Document, pageID string) (*Result, error) {
	html, err := render.Page(doc, pageID)
	if err != nil {
		return nil, fmt.Errorf("render page %s: %w", pageID, err)
	}

	data, err := printPDF(html)
	if err != nil {
		return nil, err
	}

	title := pageID
	if page, ok := doc.Pages[pageID]; ok && page.Title != "" {
		title = page.Title
	}
	return &Result{
		Data:     data,
		Filename: sanitizeFilename(title) + ".pdf",
		MimeType: "application/pdf",
	}, nil
}

func sanitizeFilename(title string) string {
	result := ""
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			result += string(r)
		case r == ' ':
			result += "-"
		case r == '-', r == '_':
			result += string(r)
		}
	}
	if len(result) > 50 {
		result = result[:50]
	}
	if result == "" {
		result = "seite"
	}
	return result
}
