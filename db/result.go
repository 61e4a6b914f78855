package db

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/grizzlydb/LedgerDB/core"
)

type ResultType int

const (
	QueryResultType ResultType = iota
	CommitResultType
	StatsResultType
)

type Result interface {
	Type() ResultType
	Display()
}

// QueryResult is a set of commits ready for terminal display.
type QueryResult struct {
	Commits          []core.Commit
	SchemaVersion    int32
	HasSchema        bool
	ExecutionTimeSec float64
}

// CommitResult reports a completed write.
type CommitResult struct {
	CommitID         string
	RootHash         string
	ExecutionTimeSec float64
}

// StatsResult wraps engine status for display.
type StatsResult struct {
	Stats core.Stats
}

func (result QueryResult) Type() ResultType  { return QueryResultType }
func (result CommitResult) Type() ResultType { return CommitResultType }
func (result StatsResult) Type() ResultType  { return StatsResultType }

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	switch {
	case secs < 0.001:
		return "<1ms"
	case secs < 1:
		ms := secs * 1000
		if ms < 10 {
			return fmt.Sprintf("%.1fms", ms)
		}
		return fmt.Sprintf("%dms", int(ms))
	case secs < 60:
		if secs < 10 {
			return fmt.Sprintf("%.1fs", secs)
		}
		return fmt.Sprintf("%ds", int(secs))
	default:
		mins := int(secs / 60)
		remain := int(secs) % 60
		if remain == 0 {
			return fmt.Sprintf("%dm", mins)
		}
		return fmt.Sprintf("%dm%ds", mins, remain)
	}
}

func (result QueryResult) Display() {
	if len(result.Commits) > 0 {
		table := NewTable(os.Stdout)
		table.Header([]string{"Commit", "Table", "Timestamp", "Schema", "Changes"})
		for _, commit := range result.Commits {
			table.Row([]string{
				commit.ID,
				commit.Table,
				humanize.Time(commit.Time()),
				strconv.Itoa(int(commit.SchemaVersion)),
				strconv.Itoa(len(commit.Changes)),
			})
		}
		table.Render()
	}

	if result.HasSchema {
		fmt.Printf("%d commit(s), schema version %d (%s)\n",
			len(result.Commits), result.SchemaVersion, formatDuration(result.ExecutionTimeSec))
		return
	}
	fmt.Printf("%d commit(s) (%s)\n", len(result.Commits), formatDuration(result.ExecutionTimeSec))
}

func (result CommitResult) Display() {
	fmt.Printf("Committed %s, root %s (%s)\n",
		result.CommitID, result.RootHash, formatDuration(result.ExecutionTimeSec))
}

func (result StatsResult) Display() {
	s := result.Stats

	table := NewTable(os.Stdout)
	table.Header([]string{"Stat", "Value"})
	table.Bulk([][]string{
		{"Commits", humanize.Comma(int64(s.Commits))},
		{"Nodes", humanize.Comma(int64(s.Nodes))},
		{"Underutilized nodes", humanize.Comma(int64(s.UnderutilizedNodes))},
		{"Reorganizations", humanize.Comma(int64(s.Reorganizations))},
		{"Snapshots", strconv.Itoa(s.Snapshots)},
		{"Watermarks", strconv.Itoa(s.Watermarks)},
		{"Schema versions", strconv.Itoa(s.SchemaVersions)},
		{"Integrity", map[bool]string{true: "OK", false: "VIOLATED"}[s.IntegrityOK]},
		{"Root hash", s.RootHash},
	})
	table.Render()
}
