package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Commit is one atomic, immutable record of changes applied to a table.
// A commit is created exactly once when it is appended to the timeline
// and is never mutated afterwards.
type Commit struct {
	ID            string   `json:"id"`
	Timestamp     int64    `json:"timestamp"`
	Table         string   `json:"table"`
	SchemaVersion int32    `json:"schemaVersion"`
	Changes       []string `json:"changes"` // serialized DML statements, applied in order
}

// CommitID derives the commit identifier from the table name and timestamp.
// The derivation is deterministic so the same commit always has the same id.
func CommitID(table string, timestamp int64) string {
	return fmt.Sprintf("%s@%d", table, timestamp)
}

// ParseCommitID splits a commit id back into its table and timestamp parts.
func ParseCommitID(id string) (table string, timestamp int64, err error) {
	at := strings.LastIndex(id, "@")
	if at < 1 || at == len(id)-1 {
		return "", 0, fmt.Errorf("malformed commit id: %q", id)
	}
	timestamp, err = strconv.ParseInt(id[at+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed commit id %q: %w", id, err)
	}
	return id[:at], timestamp, nil
}

// Encode serializes the commit to its stored blob form.
func (commit Commit) Encode() ([]byte, error) {
	data, err := json.Marshal(commit)
	if err != nil {
		return nil, fmt.Errorf("failed to encode commit %s: %w", commit.ID, err)
	}
	return data, nil
}

// DecodeCommit deserializes a stored commit blob.
func DecodeCommit(data []byte) (Commit, error) {
	var commit Commit
	if err := json.Unmarshal(data, &commit); err != nil {
		return Commit{}, fmt.Errorf("failed to decode commit: %w", err)
	}
	return commit, nil
}

// Time returns the commit timestamp as a time.Time.
func (commit Commit) Time() time.Time {
	return time.UnixMilli(commit.Timestamp)
}

func (commit Commit) String() string {
	return fmt.Sprintf("Commit{Id: %s, Table: %s, Timestamp: %d, SchemaVersion: %d, Changes: %d}",
		commit.ID, commit.Table, commit.Timestamp, commit.SchemaVersion, len(commit.Changes))
}
