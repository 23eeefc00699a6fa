package render

import (
	"embed"
	"html/template"
	"strings"
)

const (
	homeTemplate  = "home.html"
	pageTemplate  = "page.html"
	sealsTemplate = "seals.html"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"stars": func(n int) string {
			if n < 0 {
				n = 0
			}
			if n > 5 {
				n = 5
			}
			return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
		},
	}
	pageTemplates = template.Must(
		template.New("site").Funcs(funcMap).ParseFS(templateFS, "templates/*.html"),
	)
}
