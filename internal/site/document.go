// Package site defines the SiteDocument aggregate: the single JSON document
// that describes the whole marketing site (tiles, pages, home grids, seals).
package site

import (
	"encoding/json"
	"errors"
	"fmt"
)

// SchemaVersion is the current document schema version. Documents persisted
// before versioning carry no field and are treated as version 0.
const SchemaVersion = 1

var (
	ErrTilesMissing = errors.New("tiles missing")
	ErrPagesMissing = errors.New("pages missing")
)

type Document struct {
	Schema   int             `json:"schemaVersion,omitempty"`
	Site     Meta            `json:"site"`
	Tiles    []Tile          `json:"tiles"`
	Pages    map[string]Page `json:"pages"`
	BioSeals []Seal          `json:"bioSeals,omitempty"`
}

type Meta struct {
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle"`
	HomeGrids []Grid `json:"homeGrids,omitempty"`
}

// Tile links one product card on the home page to its page via PageID.
type Tile struct {
	ID      string `json:"id"`
	PageID  string `json:"pageId,omitempty"`
	Emoji   string `json:"emoji"`
	Title   string `json:"title"`
	Origin  string `json:"origin"`
	Short   string `json:"short"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// Page is owned 1:1 by the tile whose pageId matches the map key.
type Page struct {
	Title    string    `json:"title"`
	Hero     string    `json:"hero"`
	Sections []Section `json:"sections"`
	Extra    string    `json:"extra,omitempty"`
	Origins  []Origin  `json:"origins,omitempty"`
}

type Section struct {
	H string `json:"h"`
	P string `json:"p"`
}

// Origin is a geographic pin plotted on the globe.
type Origin struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Grid is a decorative extra card on the home page, sorted by Order then Title.
type Grid struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Desc     string `json:"desc,omitempty"`
	Href     string `json:"href"`
	Emoji    string `json:"emoji"`
	Variant  string `json:"variant,omitempty"`
	Order    int    `json:"order"`
	Enabled  *bool  `json:"enabled,omitempty"`
}

type Seal struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Year        int          `json:"year"`
	Strictness  int          `json:"strictness"`
	Verdict     string       `json:"verdict"`
	Short       string       `json:"short"`
	Points      []string     `json:"points"`
	Image       string       `json:"image"`
	SourceLinks []SourceLink `json:"sourceLinks"`
	Enabled     *bool        `json:"enabled,omitempty"`
}

type SourceLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

func (t Tile) IsEnabled() bool { return t.Enabled == nil || *t.Enabled }

// ResolvedPageID is the page key the tile links to (defaults to the tile id).
func (t Tile) ResolvedPageID() string {
	if t.PageID != "" {
		return t.PageID
	}
	return t.ID
}

func (g Grid) IsEnabled() bool { return g.Enabled == nil || *g.Enabled }

func (s Seal) IsEnabled() bool { return s.Enabled == nil || *s.Enabled }

// Default returns the minimal empty shell used to seed storage and as the
// client's last-resort fallback.
func Default() Document {
	return Document{
		Schema: SchemaVersion,
		Site:   Meta{Title: "EcoSupply", Subtitle: ""},
		Tiles:  []Tile{},
		Pages:  map[string]Page{},
	}
}

// Validate checks the wire shape of an incoming document: tiles must be an
// array and pages a keyed object. Everything else is additive by convention.
func Validate(doc Document) error {
	if doc.Tiles == nil {
		return ErrTilesMissing
	}
	if doc.Pages == nil {
		return ErrPagesMissing
	}
	return nil
}

// ClampStrictness bounds a seal strictness rating to [1,5]. Applied at save
// time and again defensively at render time; stored legacy values may be out
// of range.
func ClampStrictness(n int) int {
	if n < 1 {
		return 1
	}
	if n > 5 {
		return 5
	}
	return n
}

// Normalize fills save-time defaults in place: nil collections become empty,
// tiles get their pageId and enabled defaults, seal strictness is clamped.
func Normalize(doc *Document) {
	doc.Schema = SchemaVersion
	if doc.Tiles == nil {
		doc.Tiles = []Tile{}
	}
	if doc.Pages == nil {
		doc.Pages = map[string]Page{}
	}
	enabled := true
	for i := range doc.Tiles {
		t := &doc.Tiles[i]
		if t.PageID == "" {
			t.PageID = t.ID
		}
		if t.Enabled == nil {
			v := enabled
			t.Enabled = &v
		}
	}
	for i := range doc.Site.HomeGrids {
		g := &doc.Site.HomeGrids[i]
		if g.Enabled == nil {
			v := enabled
			g.Enabled = &v
		}
	}
	for id, page := range doc.Pages {
		if page.Sections == nil {
			page.Sections = []Section{}
			doc.Pages[id] = page
		}
	}
	for i := range doc.BioSeals {
		s := &doc.BioSeals[i]
		s.Strictness = ClampStrictness(s.Strictness)
		if s.Points == nil {
			s.Points = []string{}
		}
		if s.SourceLinks == nil {
			s.SourceLinks = []SourceLink{}
		}
		if s.Enabled == nil {
			v := enabled
			s.Enabled = &v
		}
	}
}

// Clone deep-copies a document. Editors work on clones so unsaved state never
// aliases the cached copy.
func Clone(doc Document) (Document, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return Document{}, fmt.Errorf("marshal document: %w", err)
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return Document{}, fmt.Errorf("unmarshal document: %w", err)
	}
	return out, nil
}
