// Package migrations embeds the SQL schema of the quote database so the
// server and the migrate command can apply it without a checkout.
package migrations

import "embed"

// Files holds the numbered up/down migration pairs
//
//go:embed *.sql
var Files embed.FS
