// Package migrations carries the SQL schema migrations compiled into the
// binaries, so goose runs them without an on-disk copy.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
