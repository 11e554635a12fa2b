package web

import (
	"embed"
	"io/fs"
)

//go:embed templates
var templates embed.FS

//go:embed static
var static embed.FS

// TemplatePatterns are parsed in order: layouts, then partials, then pages.
var TemplatePatterns = []string{
	"templates/layouts/*.html",
	"templates/partials/*.html",
	"templates/pages/*.html",
}

// Templates returns the embedded template tree rooted above templates/.
func Templates() fs.FS {
	return templates
}

// Static returns the embedded assets with the static/ prefix stripped, ready
// for http.FS under /static/.
func Static() (fs.FS, error) {
	return fs.Sub(static, "static")
}
