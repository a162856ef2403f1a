// Package assets bundles everything the binary serves or applies at runtime:
// HTML templates, static files and SQL migrations.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html
var Templates embed.FS

//go:embed static
var static embed.FS

//go:embed sql/*.sql
var Migrations embed.FS

// Static returns the static directory rooted at its contents (style.css, app.js).
func Static() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		// static is compiled in; Sub only fails on an invalid path literal.
		panic(err)
	}
	return sub
}
