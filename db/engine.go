package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/grizzlydb/LedgerDB/core"
	"github.com/grizzlydb/LedgerDB/index"
	"github.com/grizzlydb/LedgerDB/ps"
	"github.com/grizzlydb/LedgerDB/receipt"
	"github.com/grizzlydb/LedgerDB/timeline"
)

var (
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrRootMismatch means a loaded checkpoint's tree does not match the
	// root hash pinned alongside it.
	ErrRootMismatch = errors.New("checkpoint root hash mismatch")
)

// Config configures an engine.
type Config struct {
	// Name identifies the timeline in the blob store.
	Name string

	// Fanout is the commit tree's fan-out bound (zero selects default).
	Fanout int

	// Store receives checkpoints. Optional; without one Save and Load
	// report ErrStoreNotInitialized.
	Store ps.Store

	// Logger receives structured engine events.
	Logger zerolog.Logger

	// ReceiptSecret enables signed inclusion receipts when non-empty.
	ReceiptSecret []byte

	// ReceiptIssuer is the "iss" claim stamped on receipts.
	ReceiptIssuer string

	// Clock overrides timestamp assignment, for tests.
	Clock timeline.Clock
}

// Engine ties one timeline to a checkpoint store, structured logging,
// metrics, and receipt signing. It is the embedding point for everything
// above the timeline: the CLI, tests, and library consumers all talk to
// an Engine.
type Engine struct {
	name     string
	store    ps.Store
	timeline *timeline.Timeline
	log      zerolog.Logger
	metrics  *Metrics
	signer   *receipt.Signer
	clock    timeline.Clock
}

// NewEngine creates an engine from a config.
func NewEngine(cfg Config) *Engine {
	name := cfg.Name
	if name == "" {
		name = "ledger"
	}

	clock := cfg.Clock
	var tl *timeline.Timeline
	if clock != nil {
		tl = timeline.NewWithClock(cfg.Fanout, clock)
	} else {
		tl = timeline.New(cfg.Fanout)
	}

	var signer *receipt.Signer
	if len(cfg.ReceiptSecret) > 0 {
		signer = receipt.NewSigner(cfg.ReceiptSecret, cfg.ReceiptIssuer, 0)
	}

	return &Engine{
		name:     name,
		store:    cfg.Store,
		timeline: tl,
		log:      cfg.Logger.With().Str("timeline", name).Logger(),
		metrics:  NewMetrics(),
		signer:   signer,
		clock:    clock,
	}
}

// Name returns the engine's timeline name.
func (e *Engine) Name() string {
	return e.name
}

// Commit records one atomic set of changes to a table.
func (e *Engine) Commit(table string, changes []string, schemaVersion int32) (string, error) {
	start := time.Now()
	id, err := e.timeline.Commit(table, changes, schemaVersion)
	if err != nil {
		e.log.Error().Err(err).Str("table", table).Msg("commit failed")
		return "", err
	}

	e.metrics.Commits.Inc()
	e.log.Debug().
		Str("commit", id).
		Str("table", table).
		Int("changes", len(changes)).
		Int32("schema_version", schemaVersion).
		Dur("took", time.Since(start)).
		Msg("commit recorded")
	return id, nil
}

// QueryAsOf returns table commits at or before a timestamp.
func (e *Engine) QueryAsOf(table string, asOf int64) ([]core.Commit, error) {
	return e.timeline.QueryAsOf(table, asOf)
}

// QueryAsOfWithSchema is QueryAsOf plus the schema version in effect.
func (e *Engine) QueryAsOfWithSchema(table string, asOf int64) ([]core.Commit, int32, error) {
	return e.timeline.QueryAsOfWithSchema(table, asOf)
}

// CommitsSince returns table commits strictly after a timestamp.
func (e *Engine) CommitsSince(table string, since int64) ([]core.Commit, error) {
	return e.timeline.CommitsSince(table, since)
}

// QueryTimeRange returns table commits in a time window.
func (e *Engine) QueryTimeRange(table string, start, end int64) ([]core.Commit, error) {
	return e.timeline.QueryTimeRange(table, start, end)
}

// SchemaVersionAt resolves the schema version in effect at a timestamp.
func (e *Engine) SchemaVersionAt(ts int64) int32 {
	return e.timeline.SchemaVersionAt(ts)
}

// CreateSnapshot binds a name to a timestamp.
func (e *Engine) CreateSnapshot(name string, ts int64) error {
	if err := e.timeline.CreateSnapshot(name, ts); err != nil {
		return err
	}
	e.log.Info().Str("snapshot", name).Int64("ts", ts).Msg("snapshot created")
	return nil
}

// Snapshot returns the timestamp bound to a snapshot name.
func (e *Engine) Snapshot(name string) (int64, bool) {
	return e.timeline.Snapshot(name)
}

// QueryAtSnapshot reads a table as of a named snapshot.
func (e *Engine) QueryAtSnapshot(table, snapshot string) ([]core.Commit, error) {
	ts, ok := e.timeline.Snapshot(snapshot)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, snapshot)
	}
	return e.timeline.QueryAsOf(table, ts)
}

// UpdateWatermark records the last-seen timestamp for a table.
func (e *Engine) UpdateWatermark(table string, watermark int64) {
	e.timeline.UpdateWatermark(table, watermark)
}

// Watermark returns the last-seen timestamp for a table.
func (e *Engine) Watermark(table string) (int64, bool) {
	return e.timeline.Watermark(table)
}

// Proof generates an inclusion proof for a commit.
func (e *Engine) Proof(commitID string) (index.MerkleProof, error) {
	return e.timeline.CommitProof(commitID)
}

// VerifyProof checks a proof against the current root hash.
func (e *Engine) VerifyProof(proof index.MerkleProof) bool {
	return e.timeline.VerifyCommitProof(proof)
}

// Receipt issues a signed inclusion receipt for a commit.
func (e *Engine) Receipt(commitID string) (string, error) {
	if e.signer == nil {
		return "", errors.New("receipts not configured")
	}

	proof, err := e.timeline.CommitProof(commitID)
	if err != nil {
		return "", err
	}
	table, ts, err := core.ParseCommitID(commitID)
	if err != nil {
		return "", err
	}

	return e.signer.Sign(receipt.Receipt{
		CommitID:  commitID,
		Table:     table,
		Timestamp: ts,
		RootHash:  e.timeline.RootHash().String(),
		Proof:     proof,
	})
}

// VerifyReceipt checks a signed receipt and returns it.
func (e *Engine) VerifyReceipt(token string) (receipt.Receipt, error) {
	if e.signer == nil {
		return receipt.Receipt{}, errors.New("receipts not configured")
	}
	return e.signer.Verify(token)
}

// RootHash returns the current root hash of the commit tree.
func (e *Engine) RootHash() index.Hash {
	return e.timeline.RootHash()
}

// VerifyIntegrity recomputes the commit tree's hashes bottom-up.
func (e *Engine) VerifyIntegrity() error {
	if err := e.timeline.VerifyIntegrity(); err != nil {
		e.metrics.IntegrityFailures.Inc()
		e.log.Error().Err(err).Msg("integrity check failed")
		return err
	}
	return nil
}

// Compact reorganizes the commit tree when it is underutilized enough.
func (e *Engine) Compact() (bool, error) {
	start := time.Now()
	compacted, err := e.timeline.Compact()
	if err != nil {
		e.log.Error().Err(err).Msg("compaction failed")
		return false, err
	}
	if compacted {
		e.metrics.Compactions.Inc()
		e.log.Info().Dur("took", time.Since(start)).Msg("commit tree compacted")
	}
	return compacted, nil
}

// Stats returns a point-in-time status record.
func (e *Engine) Stats() core.Stats {
	return e.timeline.Stats()
}

// Save checkpoints the timeline: the serialized arena and the pinned
// root hash are written as two blobs.
func (e *Engine) Save() error {
	if e.store == nil {
		return ps.ErrStoreNotInitialized
	}

	data, err := e.timeline.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode timeline: %w", err)
	}

	root := e.timeline.RootHash()
	if err := e.store.WriteBlob(ps.ArenaPath(e.name), data); err != nil {
		return fmt.Errorf("failed to write arena: %w", err)
	}
	if err := e.store.WriteBlob(ps.RootHashPath(e.name), []byte(root.String())); err != nil {
		return fmt.Errorf("failed to write root hash: %w", err)
	}

	e.metrics.Checkpoints.Inc()
	e.log.Info().Str("root", root.String()).Int("bytes", len(data)).Msg("checkpoint saved")
	return nil
}

// Load replaces the engine's timeline with the checkpointed one after
// verifying it against the pinned root hash.
func (e *Engine) Load() error {
	if e.store == nil {
		return ps.ErrStoreNotInitialized
	}

	data, err := e.store.ReadBlob(ps.ArenaPath(e.name))
	if err != nil {
		return fmt.Errorf("failed to read arena: %w", err)
	}
	pinned, err := e.store.ReadBlob(ps.RootHashPath(e.name))
	if err != nil {
		return fmt.Errorf("failed to read root hash: %w", err)
	}

	tl, err := timeline.Decode(data, e.clock)
	if err != nil {
		return err
	}

	if got := tl.RootHash().String(); got != string(pinned) {
		e.metrics.IntegrityFailures.Inc()
		return fmt.Errorf("%w: pinned %s, loaded %s", ErrRootMismatch, pinned, got)
	}
	if err := tl.VerifyIntegrity(); err != nil {
		e.metrics.IntegrityFailures.Inc()
		return err
	}

	e.timeline = tl
	e.log.Info().Str("root", string(pinned)).Msg("checkpoint loaded")
	return nil
}
