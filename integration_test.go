package LedgerDB

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/grizzlydb/LedgerDB/core"
	"github.com/grizzlydb/LedgerDB/db"
	"github.com/grizzlydb/LedgerDB/ps"
)

// TestFunc is the signature for test functions that work with any store
type TestFunc func(t *testing.T, engine *db.Engine)

// runWithAllStores runs a test function against every checkpoint backend
func runWithAllStores(t *testing.T, testFunc TestFunc) {
	t.Run("Memory", func(t *testing.T) {
		instance := Open(ps.NewMemoryStore())
		testFunc(t, instance.Engine("test", zerolog.Nop()))
	})

	t.Run("File", func(t *testing.T) {
		store, err := ps.NewFileStore(t.TempDir())
		if err != nil {
			t.Fatalf("Failed to initialize file store: %v", err)
		}
		instance := Open(store)
		testFunc(t, instance.Engine("test", zerolog.Nop()))
	})

	t.Run("Git", func(t *testing.T) {
		store, err := ps.NewGitMemoryStore(core.Identity{Name: "test", Email: "test@test.com"})
		if err != nil {
			t.Fatalf("Failed to initialize git store: %v", err)
		}
		instance := Open(store)
		testFunc(t, instance.Engine("test", zerolog.Nop()))
	})
}

// TestIntegrationWorkflow runs a complete commit-query-prove-checkpoint
// workflow against every store backend.
func TestIntegrationWorkflow(t *testing.T) {
	runWithAllStores(t, func(t *testing.T, engine *db.Engine) {

		// Record history across two tables
		var ids []string
		for _, commit := range []struct {
			table   string
			changes []string
			schema  int32
		}{
			{"employees", []string{"INSERT employee 1 Alice"}, 1},
			{"employees", []string{"INSERT employee 2 Bob"}, 1},
			{"departments", []string{"INSERT department 1 Engineering"}, 1},
			{"employees", []string{"ALTER add column salary", "UPDATE employee 1 salary 80000"}, 2},
		} {
			id, err := engine.Commit(commit.table, commit.changes, commit.schema)
			if err != nil {
				t.Fatalf("Failed to commit: %v", err)
			}
			ids = append(ids, id)
		}

		// Time travel: as of the second commit, only two employee commits
		_, secondTs, err := core.ParseCommitID(ids[1])
		if err != nil {
			t.Fatalf("Failed to parse commit id: %v", err)
		}
		commits, err := engine.QueryAsOf("employees", secondTs)
		if err != nil {
			t.Fatalf("Failed to query as of: %v", err)
		}
		if len(commits) != 2 {
			t.Fatalf("Expected 2 employee commits as of %d, got %d", secondTs, len(commits))
		}

		// Schema resolution follows the latest commit at or before the time
		if v := engine.SchemaVersionAt(secondTs); v != 1 {
			t.Errorf("Expected schema version 1 at %d, got %d", secondTs, v)
		}
		_, lastTs, _ := core.ParseCommitID(ids[3])
		if v := engine.SchemaVersionAt(lastTs); v != 2 {
			t.Errorf("Expected schema version 2 at %d, got %d", lastTs, v)
		}

		// Incremental feed picks up only what is new
		newer, err := engine.CommitsSince("employees", secondTs)
		if err != nil {
			t.Fatalf("Failed to query since: %v", err)
		}
		if len(newer) != 1 {
			t.Fatalf("Expected 1 employee commit since %d, got %d", secondTs, len(newer))
		}

		// Snapshots pin a point in time
		if err := engine.CreateSnapshot("before-schema-change", secondTs); err != nil {
			t.Fatalf("Failed to create snapshot: %v", err)
		}
		snapCommits, err := engine.QueryAtSnapshot("employees", "before-schema-change")
		if err != nil {
			t.Fatalf("Failed to query at snapshot: %v", err)
		}
		if len(snapCommits) != 2 {
			t.Fatalf("Expected snapshot to see 2 commits, got %d", len(snapCommits))
		}

		// Every commit is provable against the root hash
		for _, id := range ids {
			proof, err := engine.Proof(id)
			if err != nil {
				t.Fatalf("Failed to prove %s: %v", id, err)
			}
			if !engine.VerifyProof(proof) {
				t.Fatalf("Proof for %s did not verify", id)
			}
		}

		if err := engine.VerifyIntegrity(); err != nil {
			t.Fatalf("Integrity check failed: %v", err)
		}

		// Checkpoint round trip preserves the authenticated state
		root := engine.RootHash()
		if err := engine.Save(); err != nil {
			t.Fatalf("Failed to save: %v", err)
		}
		if err := engine.Load(); err != nil {
			t.Fatalf("Failed to load: %v", err)
		}
		if engine.RootHash() != root {
			t.Fatalf("Expected root %s after reload, got %s", root, engine.RootHash())
		}

		stats := engine.Stats()
		if stats.Commits != 4 {
			t.Errorf("Expected 4 commits in stats, got %d", stats.Commits)
		}
		if !stats.IntegrityOK {
			t.Error("Expected stats to report intact integrity")
		}
	})
}
