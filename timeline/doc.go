// Package timeline implements the commit timeline: a monotonic,
// tamper-evident history of table mutations with time-travel queries,
// named snapshots, per-table watermarks, and schema version tracking.
//
// Every commit is timestamped in milliseconds, serialized, and inserted
// into an authenticated index keyed by its timestamp. Timestamps are
// strictly increasing; commits landing in the same millisecond are pushed
// one millisecond apart so that no two commits ever share a key.
//
//	tl := timeline.New(0)
//	id, err := tl.Commit("users", []string{"INSERT user 1"}, 1)
//	if err != nil {
//		return err
//	}
//
//	commits, err := tl.QueryAsOf("users", time.Now().UnixMilli())
//
// Snapshots bind names to timestamps for reproducible reads, and
// watermarks let downstream consumers track how far they have applied
// the changelog:
//
//	tl.CreateSnapshot("before-migration", ts)
//	changes, err := tl.CommitsSince("users", lastApplied)
//
// Integrity is checked by recomputing the tree's hashes bottom-up, and
// individual commits can be proven against the root hash without
// revealing the rest of the history:
//
//	proof, err := tl.CommitProof(id)
//	ok := tl.VerifyCommitProof(proof)
//
// When enough deletions or skewed inserts leave the tree underutilized,
// Compact rebuilds it by sorted reinsertion and atomically swaps it in.
package timeline
