package core

import (
	"testing"
)

func TestCommitIDRoundTrip(t *testing.T) {
	id := CommitID("users", 1700000000123)
	table, ts, err := ParseCommitID(id)
	if err != nil {
		t.Fatalf("Failed to parse commit id: %v", err)
	}
	if table != "users" {
		t.Errorf("Expected table 'users', got '%s'", table)
	}
	if ts != 1700000000123 {
		t.Errorf("Expected timestamp 1700000000123, got %d", ts)
	}
}

func TestParseCommitIDTableWithAt(t *testing.T) {
	// Table names containing '@' must still parse: the split is on the
	// last separator.
	id := CommitID("audit@eu", 42)
	table, ts, err := ParseCommitID(id)
	if err != nil {
		t.Fatalf("Failed to parse commit id: %v", err)
	}
	if table != "audit@eu" {
		t.Errorf("Expected table 'audit@eu', got '%s'", table)
	}
	if ts != 42 {
		t.Errorf("Expected timestamp 42, got %d", ts)
	}
}

func TestParseCommitIDMalformed(t *testing.T) {
	for _, id := range []string{"", "users", "@123", "users@", "users@abc"} {
		if _, _, err := ParseCommitID(id); err == nil {
			t.Errorf("Expected error for malformed id %q", id)
		}
	}
}

func TestCommitEncodeDecode(t *testing.T) {
	commit := Commit{
		ID:            CommitID("orders", 1000),
		Timestamp:     1000,
		Table:         "orders",
		SchemaVersion: 2,
		Changes:       []string{"INSERT INTO orders VALUES (1)", "UPDATE orders SET total = 5"},
	}

	data, err := commit.Encode()
	if err != nil {
		t.Fatalf("Failed to encode commit: %v", err)
	}

	decoded, err := DecodeCommit(data)
	if err != nil {
		t.Fatalf("Failed to decode commit: %v", err)
	}

	if decoded.ID != commit.ID || decoded.Table != commit.Table ||
		decoded.Timestamp != commit.Timestamp || decoded.SchemaVersion != commit.SchemaVersion {
		t.Errorf("Decoded commit does not match: %v", decoded)
	}
	if len(decoded.Changes) != 2 || decoded.Changes[0] != commit.Changes[0] {
		t.Errorf("Decoded changes do not match: %v", decoded.Changes)
	}
}

func TestDecodeCommitInvalid(t *testing.T) {
	if _, err := DecodeCommit([]byte("not json")); err == nil {
		t.Error("Expected error when decoding invalid blob")
	}
}
