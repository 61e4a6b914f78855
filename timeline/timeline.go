package timeline

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/grizzlydb/LedgerDB/core"
	"github.com/grizzlydb/LedgerDB/index"
)

var (
	ErrSnapshotExists = errors.New("snapshot already exists")

	// ErrIntegrityViolation reports a hash mismatch in the commit tree.
	// A timeline failing this check must not be trusted for further
	// writes until rebuilt from a trusted checkpoint.
	ErrIntegrityViolation = errors.New("timeline integrity violated")
)

// Clock returns the current time in milliseconds since the epoch.
type Clock func() int64

func systemClock() int64 {
	return time.Now().UnixMilli()
}

// Timeline is a monotonic, tamper-evident commit log. Every mutation to
// every table is recorded as a timestamped commit in an authenticated
// index; watermarks, named snapshots, and schema versions are tracked
// alongside.
//
// The timeline is single-writer, multiple-reader: Commit and Compact take
// the write lock, queries and proofs take the read lock.
type Timeline struct {
	mu sync.RWMutex

	tree     *index.Tree
	strategy *UniversalCompaction

	snapshots      map[string]int64
	watermarks     map[string]int64
	schemaVersions map[int64]int32

	lastTimestamp int64
	clock         Clock
}

// New creates an empty timeline whose commit tree uses the given fan-out
// bound (zero selects the default).
func New(fanout int) *Timeline {
	return NewWithClock(fanout, systemClock)
}

// NewWithClock creates a timeline with an injected clock source, used by
// tests to make timestamps deterministic.
func NewWithClock(fanout int, clock Clock) *Timeline {
	return &Timeline{
		tree:           index.New(fanout),
		strategy:       NewUniversalCompaction(0),
		snapshots:      make(map[string]int64),
		watermarks:     make(map[string]int64),
		schemaVersions: make(map[int64]int32),
		clock:          clock,
	}
}

// nextTimestamp assigns a timestamp strictly greater than any previously
// assigned one. Clock ties or regressions are broken by advancing one
// millisecond past the last assignment.
func (tl *Timeline) nextTimestamp() int64 {
	ts := tl.clock()
	if ts <= tl.lastTimestamp {
		ts = tl.lastTimestamp + 1
	}
	tl.lastTimestamp = ts
	return ts
}

// Commit records one atomic set of changes to a table and returns the new
// commit's id. The commit is serialized and inserted into the index keyed
// by its timestamp; the table watermark and schema version map are
// updated in the same critical section.
func (tl *Timeline) Commit(table string, changes []string, schemaVersion int32) (string, error) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	ts := tl.nextTimestamp()
	commit := core.Commit{
		ID:            core.CommitID(table, ts),
		Timestamp:     ts,
		Table:         table,
		SchemaVersion: schemaVersion,
		Changes:       changes,
	}

	blob, err := commit.Encode()
	if err != nil {
		return "", err
	}

	// The timeline is the index's single writer and timestamps are
	// unique by construction, so a duplicate key here is a logic bug.
	if err := tl.tree.Insert(ts, string(blob)); err != nil {
		return "", fmt.Errorf("failed to append commit at %d: %w", ts, err)
	}

	tl.watermarks[table] = ts
	tl.schemaVersions[ts] = schemaVersion
	return commit.ID, nil
}

// QueryAsOf returns every commit for table with a timestamp at or before
// asOf, in timestamp order.
func (tl *Timeline) QueryAsOf(table string, asOf int64) ([]core.Commit, error) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return tl.collect(table, 0, asOf)
}

// QueryAsOfWithSchema is QueryAsOf plus the schema version in effect at
// the asOf timestamp.
func (tl *Timeline) QueryAsOfWithSchema(table string, asOf int64) ([]core.Commit, int32, error) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	commits, err := tl.collect(table, 0, asOf)
	if err != nil {
		return nil, 0, err
	}
	return commits, tl.schemaVersionAt(asOf), nil
}

// CommitsSince returns every commit for table strictly after the since
// timestamp, in timestamp order. This is the incremental changelog feed
// for downstream materialization.
func (tl *Timeline) CommitsSince(table string, since int64) ([]core.Commit, error) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	if since == math.MaxInt64 {
		return nil, nil
	}
	return tl.collect(table, since+1, math.MaxInt64)
}

// QueryTimeRange returns table commits in the given window. Reversed
// bounds are normalized; an end of zero means "unbounded future".
func (tl *Timeline) QueryTimeRange(table string, start, end int64) ([]core.Commit, error) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	if end == 0 {
		end = math.MaxInt64
	} else if start > end {
		start, end = end, start
	}
	return tl.collect(table, start, end)
}

// collect range-queries the index and filters to one table, preserving
// index order. Callers hold at least the read lock.
func (tl *Timeline) collect(table string, start, end int64) ([]core.Commit, error) {
	var commits []core.Commit
	for _, entry := range tl.tree.RangeEntries(start, end) {
		commit, err := core.DecodeCommit([]byte(entry.Value))
		if err != nil {
			return nil, fmt.Errorf("%w: undecodable commit at %d (table %s, range [%d, %d])",
				ErrIntegrityViolation, entry.Key, table, start, end)
		}
		if commit.Table == table {
			commits = append(commits, commit)
		}
	}
	return commits, nil
}

// SchemaVersionAt resolves the schema version in effect at a timestamp:
// the version recorded by the most recent commit at or before it, or 0
// when the timestamp predates every commit.
func (tl *Timeline) SchemaVersionAt(ts int64) int32 {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return tl.schemaVersionAt(ts)
}

func (tl *Timeline) schemaVersionAt(ts int64) int32 {
	var (
		best      int64 = math.MinInt64
		version   int32
		haveMatch bool
	)
	for t, v := range tl.schemaVersions {
		if t <= ts && t > best {
			best, version, haveMatch = t, v, true
		}
	}
	if !haveMatch {
		return 0
	}
	return version
}

// CreateSnapshot binds a caller-assigned name to a timestamp. Snapshots
// are immutable once created and never auto-expired.
func (tl *Timeline) CreateSnapshot(name string, ts int64) error {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if _, exists := tl.snapshots[name]; exists {
		return fmt.Errorf("%w: %s", ErrSnapshotExists, name)
	}
	tl.snapshots[name] = ts
	return nil
}

// Snapshot returns the timestamp bound to a snapshot name.
func (tl *Timeline) Snapshot(name string) (int64, bool) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	ts, ok := tl.snapshots[name]
	return ts, ok
}

// UpdateWatermark records the last-seen timestamp for a table. Watermarks
// are monotonic: an older timestamp than the current watermark is ignored.
func (tl *Timeline) UpdateWatermark(table string, watermark int64) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if current, ok := tl.watermarks[table]; ok && watermark < current {
		return
	}
	tl.watermarks[table] = watermark
}

// Watermark returns the last-seen timestamp for a table.
func (tl *Timeline) Watermark(table string) (int64, bool) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	w, ok := tl.watermarks[table]
	return w, ok
}

// CommitProof generates an inclusion proof for one commit, keyed by the
// timestamp embedded in its id.
func (tl *Timeline) CommitProof(commitID string) (index.MerkleProof, error) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	_, ts, err := core.ParseCommitID(commitID)
	if err != nil {
		return index.MerkleProof{}, err
	}
	proof, err := tl.tree.Proof(ts)
	if err != nil {
		return index.MerkleProof{}, fmt.Errorf("no proof for commit %s: %w", commitID, err)
	}
	return proof, nil
}

// VerifyCommitProof checks a proof against the timeline's current root
// hash.
func (tl *Timeline) VerifyCommitProof(proof index.MerkleProof) bool {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return proof.Verify(tl.tree.RootHash())
}

// RootHash returns the current root hash of the commit tree.
func (tl *Timeline) RootHash() index.Hash {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return tl.tree.RootHash()
}

// VerifyIntegrity recomputes the commit tree's hashes bottom-up. A
// structural fault surfaces as the index's arena error; a hash mismatch
// surfaces as ErrIntegrityViolation with enough context to pick a
// fallback snapshot.
func (tl *Timeline) VerifyIntegrity() error {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	if err := tl.tree.Validate(); err != nil {
		return err
	}
	if !tl.tree.VerifyIntegrity() {
		return fmt.Errorf("%w: root %s over %d commits (last timestamp %d)",
			ErrIntegrityViolation, tl.tree.RootHash(), tl.tree.Size(), tl.lastTimestamp)
	}
	return nil
}

// Compact asks the strategy whether the commit tree is underutilized
// enough to reorganize and, if so, rebuilds it by sorted reinsertion into
// a scratch tree. The live tree is replaced only after the rebuild fully
// succeeds, so readers observe either the old tree or the new one, never
// a partial mixture.
func (tl *Timeline) Compact() (bool, error) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	if !tl.strategy.ShouldCompact(tl.tree) {
		return false, nil
	}

	sorted := tl.strategy.CompactData(tl.tree.Entries())
	scratch := index.New(tl.tree.Fanout())
	for _, entry := range sorted {
		if err := scratch.Insert(entry.Key, entry.Value); err != nil {
			return false, fmt.Errorf("compaction aborted, live tree unchanged: %w", err)
		}
	}

	tl.tree = scratch
	return true, nil
}

// Stats returns a point-in-time status record for monitoring.
func (tl *Timeline) Stats() core.Stats {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	return core.Stats{
		Nodes:              tl.tree.NodeCount(),
		UnderutilizedNodes: tl.tree.UnderutilizedCount(),
		Commits:            tl.tree.Size(),
		Snapshots:          len(tl.snapshots),
		Watermarks:         len(tl.watermarks),
		SchemaVersions:     len(tl.schemaVersions),
		Reorganizations:    tl.strategy.Reorganizations(),
		RootHash:           tl.tree.RootHash().String(),
		IntegrityOK:        tl.tree.VerifyIntegrity(),
	}
}
