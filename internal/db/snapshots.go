package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/riskmonitor/internal/config"
	"github.com/ajitpratap0/riskmonitor/internal/persistence"
)

// DefaultRetention is the number of snapshots kept after each save
const DefaultRetention = 50

// SnapshotRecord is the metadata of one stored snapshot
type SnapshotRecord struct {
	ID            string    `json:"id"`
	SchemaVersion string    `json:"schema_version"`
	SignalCount   int       `json:"signal_count"`
	ActionCount   int       `json:"action_count"`
	InsightCount  int       `json:"insight_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// snapshotHeader is decoded from the payload to fill the metadata columns
type snapshotHeader struct {
	Version          string            `json:"version"`
	Signals          []json.RawMessage `json:"signals"`
	Actions          []json.RawMessage `json:"actions"`
	LearningInsights []json.RawMessage `json:"learningInsights"`
}

// SnapshotRepository keeps exported monitoring logs in risk_monitoring_snapshots.
// Every save inserts a new row; Load returns the newest.
type SnapshotRepository struct {
	db        Querier
	retention int
	now       func() time.Time
}

// NewSnapshotRepository creates a repository. retention <= 0 uses DefaultRetention.
func NewSnapshotRepository(db Querier, retention int) *SnapshotRepository {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &SnapshotRepository{
		db:        db,
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Name implements persistence.Persister
func (r *SnapshotRepository) Name() string { return config.BackendPostgres }

// Save inserts the snapshot and prunes rows beyond the retention limit
func (r *SnapshotRepository) Save(ctx context.Context, data []byte) error {
	if r.db == nil {
		return fmt.Errorf("database connection not available")
	}

	var header snapshotHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return fmt.Errorf("failed to decode snapshot header: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO risk_monitoring_snapshots (id, schema_version, signal_count, action_count, insight_count, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id,
		header.Version,
		len(header.Signals),
		len(header.Actions),
		len(header.LearningInsights),
		data,
		r.now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		DELETE FROM risk_monitoring_snapshots
		WHERE id NOT IN (
			SELECT id FROM risk_monitoring_snapshots ORDER BY created_at DESC LIMIT $1
		)`, r.retention)
	if err != nil {
		return fmt.Errorf("failed to prune snapshots: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	log.Debug().
		Str("snapshot_id", id).
		Int("signals", len(header.Signals)).
		Int64("pruned", tag.RowsAffected()).
		Msg("Snapshot stored")
	return nil
}

// Load returns the payload of the newest snapshot
func (r *SnapshotRepository) Load(ctx context.Context) ([]byte, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database connection not available")
	}

	var payload []byte
	err := r.db.QueryRow(ctx, `
		SELECT payload FROM risk_monitoring_snapshots
		ORDER BY created_at DESC
		LIMIT 1`).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return payload, nil
}

// GetByID returns the payload of one snapshot
func (r *SnapshotRepository) GetByID(ctx context.Context, id string) ([]byte, error) {
	var payload []byte
	err := r.db.QueryRow(ctx, `SELECT payload FROM risk_monitoring_snapshots WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, persistence.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot %s: %w", id, err)
	}
	return payload, nil
}

// List returns snapshot metadata, newest first
func (r *SnapshotRepository) List(ctx context.Context, limit int) ([]SnapshotRecord, error) {
	if limit <= 0 {
		limit = r.retention
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, schema_version, signal_count, action_count, insight_count, created_at
		FROM risk_monitoring_snapshots
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var records []SnapshotRecord
	for rows.Next() {
		var rec SnapshotRecord
		if err := rows.Scan(&rec.ID, &rec.SchemaVersion, &rec.SignalCount, &rec.ActionCount, &rec.InsightCount, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return records, nil
}
