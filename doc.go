// Package LedgerDB provides a tamper-evident commit timeline database.
//
// LedgerDB records every table mutation as a timestamped commit in a
// Merkle-authenticated index. The root hash over the whole history moves
// with every commit, so any tampering with past commits is detectable,
// and any individual commit can be proven included without revealing the
// rest of the history.
//
// # Quick Start
//
// Create an in-memory instance:
//
//	instance := LedgerDB.Open(ps.NewMemoryStore())
//	engine := instance.Engine("ledger", zerolog.Nop())
//
//	id, _ := engine.Commit("users", []string{"INSERT user 1"}, 1)
//	commits, _ := engine.QueryAsOf("users", time.Now().UnixMilli())
//
// # Features
//
//   - Time-travel queries: as-of, since, and windowed reads per table
//   - Named snapshots and per-table watermarks
//   - Schema version tracking resolved at any timestamp
//   - Merkle inclusion proofs and signed receipts per commit
//   - Threshold-driven compaction of the commit tree
//   - Checkpoints to memory, disk, git, or S3 blob stores
package LedgerDB
