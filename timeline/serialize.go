package timeline

import (
	"encoding/json"
	"fmt"

	"github.com/grizzlydb/LedgerDB/index"
)

// stateRecord is the checkpoint layout for a timeline. The commit tree is
// embedded in its own arena encoding; the maps and counters travel
// alongside so a restored timeline resumes exactly where it stopped.
type stateRecord struct {
	Tree            json.RawMessage  `json:"tree"`
	Snapshots       map[string]int64 `json:"snapshots"`
	Watermarks      map[string]int64 `json:"watermarks"`
	SchemaVersions  map[int64]int32  `json:"schemaVersions"`
	LastTimestamp   int64            `json:"lastTimestamp"`
	Reorganizations uint64           `json:"reorganizations"`
}

// Encode serializes the full timeline state for checkpointing.
func (tl *Timeline) Encode() ([]byte, error) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	tree, err := tl.tree.Encode()
	if err != nil {
		return nil, err
	}
	return json.Marshal(stateRecord{
		Tree:            tree,
		Snapshots:       tl.snapshots,
		Watermarks:      tl.watermarks,
		SchemaVersions:  tl.schemaVersions,
		LastTimestamp:   tl.lastTimestamp,
		Reorganizations: tl.strategy.reorganizations,
	})
}

// Decode restores a timeline from a checkpoint, attaching the given clock
// (nil selects the system clock). Stored tree hashes are kept verbatim;
// callers decide whether to run VerifyIntegrity afterwards.
func Decode(data []byte, clock Clock) (*Timeline, error) {
	var record stateRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode timeline: %w", err)
	}

	tree, err := index.Decode(record.Tree)
	if err != nil {
		return nil, err
	}

	if clock == nil {
		clock = systemClock
	}
	tl := NewWithClock(tree.Fanout(), clock)
	tl.tree = tree
	tl.lastTimestamp = record.LastTimestamp
	tl.strategy.reorganizations = record.Reorganizations
	if record.Snapshots != nil {
		tl.snapshots = record.Snapshots
	}
	if record.Watermarks != nil {
		tl.watermarks = record.Watermarks
	}
	if record.SchemaVersions != nil {
		tl.schemaVersions = record.SchemaVersions
	}
	return tl, nil
}
