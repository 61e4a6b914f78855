package core

import "fmt"

// Stats is a point-in-time status record for a ledger, suitable for
// CLI display and monitoring layers.
type Stats struct {
	Nodes              int    `json:"nodes"`
	UnderutilizedNodes int    `json:"underutilizedNodes"`
	Commits            int    `json:"commits"`
	Snapshots          int    `json:"snapshots"`
	Watermarks         int    `json:"watermarks"`
	SchemaVersions     int    `json:"schemaVersions"`
	Reorganizations    uint64 `json:"reorganizations"`
	RootHash           string `json:"rootHash"`
	IntegrityOK        bool   `json:"integrityOk"`
}

func (stats Stats) String() string {
	return fmt.Sprintf("Stats{Nodes: %d, Commits: %d, Snapshots: %d, Watermarks: %d, Reorganizations: %d, IntegrityOK: %t}",
		stats.Nodes, stats.Commits, stats.Snapshots, stats.Watermarks, stats.Reorganizations, stats.IntegrityOK)
}
