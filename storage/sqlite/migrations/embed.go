/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package migrations holds the SQLite schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
