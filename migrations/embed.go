// Package migrations embeds the SQL schema files, applied in name order.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
)

// FS holds the schema files.
//
//go:embed *.sql
var FS embed.FS

// Files returns the embedded file names in apply order.
func Files() ([]string, error) {
	names, err := fs.Glob(FS, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
