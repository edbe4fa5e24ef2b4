// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package types

// Backend identifies where index builds are persisted.
type Backend string

const (
	// BackendSQLite keeps each build as a directory of files under the data dir.
	BackendSQLite Backend = "sqlite"
	// BackendPostgres keeps builds in a pgvector-enabled database.
	BackendPostgres Backend = "postgres"
)

// Valid reports whether b is a known backend.
func (b Backend) Valid() bool {
	switch b {
	case BackendSQLite, BackendPostgres:
		return true
	default:
		return false
	}
}
