package timeline

import (
	"sort"

	"github.com/grizzlydb/LedgerDB/index"
)

// DefaultCompactionThreshold is the underutilized-node ratio at which a
// commit tree is considered worth reorganizing.
const DefaultCompactionThreshold = 0.7

// UniversalCompaction decides when a commit tree should be rebuilt and
// prepares its data for reinsertion. The decision is a pure function of
// tree shape; the strategy itself only accumulates a reorganization
// counter.
type UniversalCompaction struct {
	threshold       float64
	reorganizations uint64
}

// NewUniversalCompaction creates a strategy with the given trigger
// threshold (values at or below zero select the default).
func NewUniversalCompaction(threshold float64) *UniversalCompaction {
	if threshold <= 0 {
		threshold = DefaultCompactionThreshold
	}
	return &UniversalCompaction{threshold: threshold}
}

// ShouldCompact reports whether the fraction of underutilized nodes has
// reached the threshold. Repeated calls on an unchanged tree always agree.
func (s *UniversalCompaction) ShouldCompact(t *index.Tree) bool {
	total := t.NodeCount()
	if total == 0 || t.Size() == 0 {
		return false
	}
	return float64(t.UnderutilizedCount())/float64(total) >= s.threshold
}

// CompactData returns the entries sorted by key for sequential
// reinsertion, leaving the input untouched, and counts one
// reorganization.
func (s *UniversalCompaction) CompactData(entries []index.Entry) []index.Entry {
	sorted := append([]index.Entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	s.reorganizations++
	return sorted
}

// Reorganizations returns how many compactions this strategy has prepared.
func (s *UniversalCompaction) Reorganizations() uint64 {
	return s.reorganizations
}
