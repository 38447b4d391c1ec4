// Package migrations embeds the SQLite schema of the device-side queue.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
