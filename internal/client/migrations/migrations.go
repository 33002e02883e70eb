// Package migrations embeds the CLI's goose SQL migrations for its local
// sqlite store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
