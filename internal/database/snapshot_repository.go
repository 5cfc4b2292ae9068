package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/daybrew/pulse/internal/models"
)

// SnapshotRepository manages the sentiment_daily table.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new snapshot repository.
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Exists reports whether a snapshot exists for the given date.
func (r *SnapshotRepository) Exists(ctx context.Context, date string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM sentiment_daily WHERE date = $1)", date).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check snapshot existence: %w", err)
	}
	return exists, nil
}

// Get returns the snapshot for a date, or nil when none exists.
func (r *SnapshotRepository) Get(ctx context.Context, date string) (*models.SentimentSnapshot, error) {
	var s models.SentimentSnapshot
	var topPositive, topNegative sql.NullInt64

	err := r.db.QueryRowContext(ctx, `
		SELECT date, positive_pct, neutral_pct, negative_pct, sample_size,
			top_positive_id, top_negative_id, summary, created_at
		FROM sentiment_daily WHERE date = $1`, date).Scan(
		&s.Date, &s.PositivePct, &s.NeutralPct, &s.NegativePct, &s.SampleSize,
		&topPositive, &topNegative, &s.Summary, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	s.TopPositiveID = intPtr(topPositive)
	s.TopNegativeID = intPtr(topNegative)
	return &s, nil
}

// Latest returns the most recent snapshot, or nil when the table is empty.
func (r *SnapshotRepository) Latest(ctx context.Context) (*models.SentimentSnapshot, error) {
	var s models.SentimentSnapshot
	var topPositive, topNegative sql.NullInt64

	err := r.db.QueryRowContext(ctx, `
		SELECT date, positive_pct, neutral_pct, negative_pct, sample_size,
			top_positive_id, top_negative_id, summary, created_at
		FROM sentiment_daily ORDER BY date DESC LIMIT 1`).Scan(
		&s.Date, &s.PositivePct, &s.NeutralPct, &s.NegativePct, &s.SampleSize,
		&topPositive, &topNegative, &s.Summary, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}

	s.TopPositiveID = intPtr(topPositive)
	s.TopNegativeID = intPtr(topNegative)
	return &s, nil
}

// LatestSummaryBefore returns the summary of the newest snapshot strictly
// before the given date, or "" when there is none. Used for summary
// continuity when generation fails.
func (r *SnapshotRepository) LatestSummaryBefore(ctx context.Context, date string) (string, error) {
	var summary string
	err := r.db.QueryRowContext(ctx,
		"SELECT summary FROM sentiment_daily WHERE date < $1 ORDER BY date DESC LIMIT 1",
		date).Scan(&summary)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get previous summary: %w", err)
	}
	return summary, nil
}

// upsertTx writes the snapshot inside an existing transaction, keyed by date.
func (r *SnapshotRepository) upsertTx(ctx context.Context, tx *sql.Tx, snapshot models.SnapshotWrite, topPositiveID, topNegativeID *int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sentiment_daily (
			date, positive_pct, neutral_pct, negative_pct, sample_size,
			top_positive_id, top_negative_id, summary
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (date) DO UPDATE SET
			positive_pct = EXCLUDED.positive_pct,
			neutral_pct = EXCLUDED.neutral_pct,
			negative_pct = EXCLUDED.negative_pct,
			sample_size = EXCLUDED.sample_size,
			top_positive_id = EXCLUDED.top_positive_id,
			top_negative_id = EXCLUDED.top_negative_id,
			summary = EXCLUDED.summary`,
		snapshot.Date, snapshot.PositivePct, snapshot.NeutralPct,
		snapshot.NegativePct, snapshot.SampleSize,
		nullInt(topPositiveID), nullInt(topNegativeID), snapshot.Summary)
	if err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", snapshot.Date, err)
	}
	return nil
}

// DeleteOlderThan removes snapshots dated strictly before the cutoff.
func (r *SnapshotRepository) DeleteOlderThan(ctx context.Context, beforeDate string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sentiment_daily WHERE date < $1", beforeDate)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return result.RowsAffected()
}
