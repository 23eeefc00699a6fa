// Package render projects the site document into HTML. Renderers are pure:
// they never mutate the document and fall back to placeholder text when a
// tile points at a page that does not exist.
package render

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"ecosupply/api/internal/site"
)

type HomeView struct {
	Title     string
	Headline  string
	Subtitle  string
	TileCount int
	Grids     []GridView
	Tiles     []TileView
}

type GridView struct {
	Title    string
	Subtitle string
	Desc     string
	Href     string
	Emoji    string
	Variant  string
}

type TileView struct {
	ID       string
	PageID   string
	Emoji    string
	Title    string
	Origin   string
	Short    string
	Disabled bool
	Tag      string
}

type PageView struct {
	SiteTitle string
	Title     string
	Hero      string
	Intro     string
	Sections  []site.Section
	Extra     string
	Origins   []site.Origin
}

type SealsView struct {
	SiteTitle string
	Seals     []SealView
}

type SealView struct {
	Title      string
	Year       int
	Strictness int
	Verdict    string
	Short      string
	Points     []string
	Image      string
	Sources    []site.SourceLink
}

// Home builds the home page: headline, optional extra grids (sorted by order
// then title, disabled ones dropped), then the product tile grid with
// disabled tiles tagged rather than hidden.
func Home(doc site.Document) (string, error) {
	view := HomeView{
		Title:    orDefault(doc.Site.Title, "EcoSupply"),
		Headline: orDefault(doc.Site.Title, "Globale Produkte"),
		Subtitle: doc.Site.Subtitle,
	}

	grids := make([]site.Grid, 0, len(doc.Site.HomeGrids))
	for _, g := range doc.Site.HomeGrids {
		if g.IsEnabled() {
			grids = append(grids, g)
		}
	}
	sort.SliceStable(grids, func(i, j int) bool {
		if grids[i].Order != grids[j].Order {
			return grids[i].Order < grids[j].Order
		}
		return grids[i].Title < grids[j].Title
	})
	for _, g := range grids {
		view.Grids = append(view.Grids, GridView{
			Title:    g.Title,
			Subtitle: g.Subtitle,
			Desc:     g.Desc,
			Href:     orDefault(g.Href, "#"),
			Emoji:    orDefault(g.Emoji, "✨"),
			Variant:  g.Variant,
		})
	}

	for _, t := range doc.Tiles {
		tag := "Aktiv"
		if !t.IsEnabled() {
			tag = "Aus"
		} else {
			view.TileCount++
		}
		view.Tiles = append(view.Tiles, TileView{
			ID:       t.ID,
			PageID:   t.ResolvedPageID(),
			Emoji:    orDefault(t.Emoji, "🌿"),
			Title:    orDefault(t.Title, "Feld"),
			Origin:   t.Origin,
			Short:    t.Short,
			Disabled: !t.IsEnabled(),
			Tag:      tag,
		})
	}

	return execute(homeTemplate, view)
}

// Page renders one product page. A missing page falls back to the owning
// tile's title and emoji; a missing tile falls back to placeholder text.
// Sections are capped at four, matching the original layout.
func Page(doc site.Document, pageID string) (string, error) {
	page, hasPage := doc.Pages[pageID]

	var tile *site.Tile
	for i := range doc.Tiles {
		if doc.Tiles[i].ResolvedPageID() == pageID {
			tile = &doc.Tiles[i]
			break
		}
	}

	view := PageView{
		SiteTitle: orDefault(doc.Site.Title, "EcoSupply"),
		Title:     "Seite",
		Hero:      "🌿 Seite",
	}
	if tile != nil {
		view.Title = orDefault(tile.Title, view.Title)
		view.Hero = fmt.Sprintf("%s %s", orDefault(tile.Emoji, "🌿"), tile.Title)
		var bits []string
		if tile.Origin != "" {
			bits = append(bits, "Herkunft/Region: "+tile.Origin)
		}
		if tile.Short != "" {
			bits = append(bits, tile.Short)
		}
		view.Intro = strings.Join(bits, " • ")
	}
	if hasPage {
		view.Title = orDefault(page.Title, view.Title)
		view.Hero = orDefault(page.Hero, view.Hero)
		sections := page.Sections
		if len(sections) > 4 {
			sections = sections[:4]
		}
		view.Sections = sections
		view.Extra = strings.TrimSpace(page.Extra)
		view.Origins = page.Origins
	}
	if view.Intro == "" {
		view.Intro = "Inhalte aus dem Editor."
	}

	return execute(pageTemplate, view)
}

// Seals renders the bio-seal catalog. Strictness is clamped again here:
// legacy documents may hold out-of-range values.
func Seals(doc site.Document) (string, error) {
	view := SealsView{SiteTitle: orDefault(doc.Site.Title, "EcoSupply")}
	for _, s := range doc.BioSeals {
		if !s.IsEnabled() {
			continue
		}
		view.Seals = append(view.Seals, SealView{
			Title:      s.Title,
			Year:       s.Year,
			Strictness: site.ClampStrictness(s.Strictness),
			Verdict:    s.Verdict,
			Short:      s.Short,
			Points:     s.Points,
			Image:      s.Image,
			Sources:    s.SourceLinks,
		})
	}
	return execute(sealsTemplate, view)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func execute(name string, view any) (string, error) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, view); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
