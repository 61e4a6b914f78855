package index

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAndSearch(t *testing.T) {
	tree := New(4)

	require.NoError(t, tree.Insert(10, "ten"))
	require.NoError(t, tree.Insert(20, "twenty"))
	require.NoError(t, tree.Insert(5, "five"))

	v, ok := tree.Search(10)
	require.True(t, ok)
	assert.Equal(t, "ten", v)

	v, ok = tree.Search(5)
	require.True(t, ok)
	assert.Equal(t, "five", v)

	_, ok = tree.Search(100)
	assert.False(t, ok)
}

func TestInsertDuplicateKey(t *testing.T) {
	tree := New(4)
	require.NoError(t, tree.Insert(7, "first"))

	err := tree.Insert(7, "second")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateKey))

	// The original value survives the rejected insert.
	v, ok := tree.Search(7)
	require.True(t, ok)
	assert.Equal(t, "first", v)
	assert.True(t, tree.VerifyIntegrity())
}

func TestInsertManyVerifyEveryStep(t *testing.T) {
	tree := New(4)
	rng := rand.New(rand.NewSource(1))
	keys := rng.Perm(200)

	for _, k := range keys {
		key := int64(k)
		require.NoError(t, tree.Insert(key, fmt.Sprintf("value-%d", key)))
		require.True(t, tree.VerifyIntegrity(), "integrity broken after inserting %d", key)
	}

	for _, k := range keys {
		key := int64(k)
		v, ok := tree.Search(key)
		require.True(t, ok, "key %d missing", key)
		assert.Equal(t, fmt.Sprintf("value-%d", key), v)
	}
}

func TestSplittingGrowsHeight(t *testing.T) {
	tree := New(32)
	for i := 0; i < 200; i++ {
		require.NoError(t, tree.Insert(int64(1000+i), fmt.Sprintf("commit-%d", i)))
	}

	assert.Greater(t, tree.Height(), 1, "200 entries at fanout 32 must have split")
	assert.True(t, tree.VerifyIntegrity())
	assert.Equal(t, 200, tree.Size())
}

func TestRangeQuery(t *testing.T) {
	tree := New(4)
	for i := 1; i <= 10; i++ {
		require.NoError(t, tree.Insert(int64(i*10), fmt.Sprintf("value-%d", i)))
	}

	values := tree.RangeQuery(25, 75)
	require.Equal(t, []string{"value-3", "value-4", "value-5", "value-6", "value-7"}, values)

	assert.Empty(t, tree.RangeQuery(200, 300))
	assert.Empty(t, tree.RangeQuery(75, 25), "reversed bounds yield nothing at this layer")
}

func TestRangeEntriesSpansLeaves(t *testing.T) {
	tree := New(4)
	for i := 0; i < 100; i++ {
		require.NoError(t, tree.Insert(int64(i), fmt.Sprintf("v%d", i)))
	}

	entries := tree.RangeEntries(13, 57)
	require.Len(t, entries, 45)
	for i, e := range entries {
		assert.Equal(t, int64(13+i), e.Key)
	}
}

func TestEntriesSortedAfterRandomInserts(t *testing.T) {
	tree := New(4)
	rng := rand.New(rand.NewSource(7))
	for _, k := range rng.Perm(300) {
		require.NoError(t, tree.Insert(int64(k), fmt.Sprintf("v%d", k)))
	}

	entries := tree.Entries()
	require.Len(t, entries, 300)
	for i, e := range entries {
		require.Equal(t, int64(i), e.Key)
		require.Equal(t, fmt.Sprintf("v%d", i), e.Value)
	}
}

func TestEmptyTree(t *testing.T) {
	tree := New(0)
	assert.Equal(t, DefaultFanout, tree.Fanout())
	assert.Equal(t, 1, tree.NodeCount())
	assert.Equal(t, 1, tree.UnderutilizedCount())
	assert.Equal(t, 0, tree.Size())
	assert.True(t, tree.VerifyIntegrity())
	assert.Empty(t, tree.Entries())
}

func TestUnderutilizedCount(t *testing.T) {
	tree := New(4)
	require.NoError(t, tree.Insert(1, "a"))
	// Single-entry root leaf is below the utilization floor.
	assert.Equal(t, 1, tree.UnderutilizedCount())

	require.NoError(t, tree.Insert(2, "b"))
	assert.Equal(t, 0, tree.UnderutilizedCount())
}

func TestRootHashChangesOnInsert(t *testing.T) {
	tree := New(4)
	require.NoError(t, tree.Insert(1, "a"))
	before := tree.RootHash()

	require.NoError(t, tree.Insert(2, "b"))
	assert.NotEqual(t, before, tree.RootHash())
}

func TestValidateDetectsDanglingChild(t *testing.T) {
	tree := New(4)
	for i := 0; i < 20; i++ {
		require.NoError(t, tree.Insert(int64(i), "v"))
	}

	// Corrupt an internal node to reference a slot beyond the arena.
	for i := range tree.arena {
		if !tree.arena[i].leaf {
			tree.arena[i].children[0] = int32(len(tree.arena) + 5)
			break
		}
	}

	err := tree.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrArenaInvariant))
	assert.False(t, tree.VerifyIntegrity())
}
