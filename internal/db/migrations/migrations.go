// Package migrations embeds the goose SQL migration files for the
// cluster-graph input schema (00001) and output schema (00002).
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
