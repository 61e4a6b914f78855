// Package core provides core types used throughout LedgerDB.
//
// The package defines the Commit record, commit id derivation, the Identity
// used for attributed checkpoint writes, and the Stats status record shared
// by the timeline, engine, and CLI layers.
//
// # Commits
//
// A commit records one atomic set of changes to a single table:
//
//	commit := core.Commit{
//	    ID:            core.CommitID("users", 1700000000000),
//	    Timestamp:     1700000000000,
//	    Table:         "users",
//	    SchemaVersion: 1,
//	    Changes:       []string{"INSERT INTO users VALUES (1, 'Alice')"},
//	}
//
// Commit ids are deterministic: the same (table, timestamp) pair always
// produces the same id, and ParseCommitID recovers both parts.
//
// # Stats
//
// Stats is the plain status record returned by Engine.Stats for CLI and
// monitoring consumers.
package core
