package timeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grizzlydb/LedgerDB/core"
)

// fakeClock is a manually advanced millisecond clock.
type fakeClock struct {
	now int64
}

func (c *fakeClock) Now() int64 {
	return c.now
}

func newTestTimeline(start int64) (*Timeline, *fakeClock) {
	clock := &fakeClock{now: start}
	return NewWithClock(0, clock.Now), clock
}

func timestamps(commits []core.Commit) []int64 {
	ts := make([]int64, 0, len(commits))
	for _, c := range commits {
		ts = append(ts, c.Timestamp)
	}
	return ts
}

func TestCommitAssignsMonotonicTimestamps(t *testing.T) {
	tl, clock := newTestTimeline(1000)

	// Three commits inside the same millisecond must still get three
	// distinct, increasing timestamps.
	var ids []string
	for i := 0; i < 3; i++ {
		id, err := tl.Commit("users", []string{"INSERT"}, 1)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	for i, want := range []int64{1000, 1001, 1002} {
		table, ts, err := core.ParseCommitID(ids[i])
		require.NoError(t, err)
		assert.Equal(t, "users", table)
		assert.Equal(t, want, ts)
	}

	// A clock regression must not produce a timestamp at or below the
	// previous one.
	clock.now = 500
	id, err := tl.Commit("users", []string{"INSERT"}, 1)
	require.NoError(t, err)
	_, ts, err := core.ParseCommitID(id)
	require.NoError(t, err)
	assert.Equal(t, int64(1003), ts)
}

func TestQueryAsOfFiltersByTableAndTime(t *testing.T) {
	tl, clock := newTestTimeline(100)

	clock.now = 100
	_, err := tl.Commit("users", []string{"INSERT user 1"}, 1)
	require.NoError(t, err)
	clock.now = 200
	_, err = tl.Commit("orders", []string{"INSERT order 1"}, 1)
	require.NoError(t, err)
	clock.now = 300
	_, err = tl.Commit("users", []string{"UPDATE user 1"}, 1)
	require.NoError(t, err)

	commits, err := tl.QueryAsOf("users", 250)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, int64(100), commits[0].Timestamp)
	assert.Equal(t, []string{"INSERT user 1"}, commits[0].Changes)

	commits, err = tl.QueryAsOf("users", 300)
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 300}, timestamps(commits))

	// A timestamp before every commit sees an empty table.
	commits, err = tl.QueryAsOf("users", 50)
	require.NoError(t, err)
	assert.Empty(t, commits)
}

func TestQueryAsOfWithSchema(t *testing.T) {
	tl, clock := newTestTimeline(100)

	clock.now = 100
	_, err := tl.Commit("users", []string{"INSERT"}, 1)
	require.NoError(t, err)
	clock.now = 200
	_, err = tl.Commit("users", []string{"ALTER"}, 2)
	require.NoError(t, err)

	commits, version, err := tl.QueryAsOfWithSchema("users", 150)
	require.NoError(t, err)
	assert.Len(t, commits, 1)
	assert.Equal(t, int32(1), version)

	commits, version, err = tl.QueryAsOfWithSchema("users", 200)
	require.NoError(t, err)
	assert.Len(t, commits, 2)
	assert.Equal(t, int32(2), version)
}

func TestCommitsSinceIsStrictlyAfter(t *testing.T) {
	tl, clock := newTestTimeline(100)

	for _, ts := range []int64{100, 200, 300} {
		clock.now = ts
		_, err := tl.Commit("users", []string{"INSERT"}, 1)
		require.NoError(t, err)
	}

	commits, err := tl.CommitsSince("users", 100)
	require.NoError(t, err)
	assert.Equal(t, []int64{200, 300}, timestamps(commits))

	commits, err = tl.CommitsSince("users", 300)
	require.NoError(t, err)
	assert.Empty(t, commits)

	commits, err = tl.CommitsSince("users", math.MaxInt64)
	require.NoError(t, err)
	assert.Empty(t, commits)
}

func TestQueryTimeRangeNormalizesBounds(t *testing.T) {
	tl, clock := newTestTimeline(100)

	for _, ts := range []int64{100, 200, 300, 400} {
		clock.now = ts
		_, err := tl.Commit("users", []string{"INSERT"}, 1)
		require.NoError(t, err)
	}

	commits, err := tl.QueryTimeRange("users", 150, 350)
	require.NoError(t, err)
	assert.Equal(t, []int64{200, 300}, timestamps(commits))

	// Reversed bounds behave like the normalized window.
	reversed, err := tl.QueryTimeRange("users", 350, 150)
	require.NoError(t, err)
	assert.Equal(t, timestamps(commits), timestamps(reversed))

	// An end of zero means unbounded.
	commits, err = tl.QueryTimeRange("users", 250, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{300, 400}, timestamps(commits))
}

func TestSchemaVersionAt(t *testing.T) {
	tl, clock := newTestTimeline(100)

	assert.Equal(t, int32(0), tl.SchemaVersionAt(1000))

	clock.now = 100
	_, err := tl.Commit("users", []string{"INSERT"}, 1)
	require.NoError(t, err)
	clock.now = 300
	_, err = tl.Commit("users", []string{"ALTER"}, 3)
	require.NoError(t, err)

	assert.Equal(t, int32(0), tl.SchemaVersionAt(50))
	assert.Equal(t, int32(1), tl.SchemaVersionAt(100))
	assert.Equal(t, int32(1), tl.SchemaVersionAt(299))
	assert.Equal(t, int32(3), tl.SchemaVersionAt(300))
	assert.Equal(t, int32(3), tl.SchemaVersionAt(10000))
}

func TestSnapshotsAreImmutable(t *testing.T) {
	tl, clock := newTestTimeline(100)

	clock.now = 100
	_, err := tl.Commit("users", []string{"INSERT user 1"}, 1)
	require.NoError(t, err)

	require.NoError(t, tl.CreateSnapshot("release", 100))

	err = tl.CreateSnapshot("release", 999)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSnapshotExists)

	ts, ok := tl.Snapshot("release")
	require.True(t, ok)
	assert.Equal(t, int64(100), ts)

	_, ok = tl.Snapshot("missing")
	assert.False(t, ok)

	// Later commits do not change what the snapshot sees.
	clock.now = 200
	_, err = tl.Commit("users", []string{"DELETE user 1"}, 1)
	require.NoError(t, err)

	commits, err := tl.QueryAsOf("users", ts)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, []string{"INSERT user 1"}, commits[0].Changes)
}

func TestWatermarksAreMonotonic(t *testing.T) {
	tl, clock := newTestTimeline(100)

	_, ok := tl.Watermark("users")
	assert.False(t, ok)

	clock.now = 100
	_, err := tl.Commit("users", []string{"INSERT"}, 1)
	require.NoError(t, err)

	w, ok := tl.Watermark("users")
	require.True(t, ok)
	assert.Equal(t, int64(100), w)

	tl.UpdateWatermark("users", 500)
	w, _ = tl.Watermark("users")
	assert.Equal(t, int64(500), w)

	// Regressions are ignored.
	tl.UpdateWatermark("users", 10)
	w, _ = tl.Watermark("users")
	assert.Equal(t, int64(500), w)
}

func TestCommitProofRoundTrip(t *testing.T) {
	tl, clock := newTestTimeline(100)

	var ids []string
	for i := int64(0); i < 20; i++ {
		clock.now = 100 + i*10
		id, err := tl.Commit("users", []string{"INSERT"}, 1)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	proof, err := tl.CommitProof(ids[7])
	require.NoError(t, err)
	assert.True(t, tl.VerifyCommitProof(proof))
	assert.True(t, proof.Verify(tl.RootHash()))

	// The root hash moves with every commit, so a stale proof no longer
	// verifies against the live timeline.
	clock.now = 10000
	_, err = tl.Commit("users", []string{"INSERT"}, 1)
	require.NoError(t, err)
	assert.False(t, tl.VerifyCommitProof(proof))

	// Unknown and malformed commit ids are rejected.
	_, err = tl.CommitProof(core.CommitID("users", 424242))
	require.Error(t, err)
	_, err = tl.CommitProof("not-a-commit-id")
	require.Error(t, err)
}

func TestVerifyIntegrityOnCleanTimeline(t *testing.T) {
	tl, clock := newTestTimeline(100)

	for i := int64(0); i < 50; i++ {
		clock.now = 100 + i
		_, err := tl.Commit("users", []string{"INSERT"}, 1)
		require.NoError(t, err)
	}

	require.NoError(t, tl.VerifyIntegrity())

	stats := tl.Stats()
	assert.Equal(t, 50, stats.Commits)
	assert.True(t, stats.IntegrityOK)
	assert.Equal(t, tl.RootHash().String(), stats.RootHash)
}

func TestCompactPreservesDataAndRootHash(t *testing.T) {
	tl, clock := newTestTimeline(100)

	// A single commit leaves the lone root leaf under the utilization
	// floor, which is enough to trigger a reorganization.
	clock.now = 100
	_, err := tl.Commit("users", []string{"INSERT user 1"}, 1)
	require.NoError(t, err)

	before := tl.RootHash()
	compacted, err := tl.Compact()
	require.NoError(t, err)
	assert.True(t, compacted)
	assert.EqualValues(t, 1, tl.Stats().Reorganizations)

	// Reinserting the same entries in key order reproduces the same
	// authenticated content.
	assert.Equal(t, before, tl.RootHash())
	require.NoError(t, tl.VerifyIntegrity())

	commits, err := tl.QueryAsOf("users", 100)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, []string{"INSERT user 1"}, commits[0].Changes)
}

func TestCompactDeclinesHealthyTree(t *testing.T) {
	tl, clock := newTestTimeline(100)

	for i := int64(0); i < 200; i++ {
		clock.now = 100 + i
		_, err := tl.Commit("users", []string{"INSERT"}, 1)
		require.NoError(t, err)
	}

	stats := tl.Stats()
	require.Less(t, float64(stats.UnderutilizedNodes)/float64(stats.Nodes), DefaultCompactionThreshold)

	before := tl.RootHash()
	compacted, err := tl.Compact()
	require.NoError(t, err)
	assert.False(t, compacted)
	assert.Equal(t, before, tl.RootHash())
	assert.EqualValues(t, 0, tl.Stats().Reorganizations)
}
