// Package migrations embeds the brain store schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
