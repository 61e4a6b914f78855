// Package db ties the commit timeline, checkpoint store, receipt signer,
// and observability together behind one Engine.
//
//	engine := db.NewEngine(db.Config{
//		Name:  "ledger",
//		Store: ps.NewMemoryStore(),
//	})
//
//	id, err := engine.Commit("users", []string{"INSERT user 1"}, 1)
//	commits, err := engine.QueryAsOf("users", time.Now().UnixMilli())
//
// The engine logs structured events through zerolog and counts commits,
// compactions, checkpoints, and integrity failures in prometheus
// counters; Metrics.Register exposes them when the process runs an
// exporter.
//
// Save writes the timeline and its root hash to the blob store as two
// separate blobs; Load refuses any checkpoint whose tree does not
// reproduce the pinned root.
//
// The Materializer replays the changelog into embedded DuckDB so commit
// histories can be joined and aggregated with SQL.
package db
