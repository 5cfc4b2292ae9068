package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/daybrew/pulse/internal/models"
)

// TelemetryRepository manages the review_telemetry table.
type TelemetryRepository struct {
	db *sql.DB
}

// NewTelemetryRepository creates a new telemetry repository.
func NewTelemetryRepository(db *sql.DB) *TelemetryRepository {
	return &TelemetryRepository{db: db}
}

// Upsert writes one entry keyed by (plan_id, review_id).
func (r *TelemetryRepository) Upsert(ctx context.Context, entry models.ReviewTelemetryEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO review_telemetry (date, plan_id, review_id, model_name,
			review_type, critical_issues, improvements, suggestions, strengths,
			verdict, confidence_score, duration_ms, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (plan_id, review_id) DO UPDATE SET
			model_name = EXCLUDED.model_name,
			review_type = EXCLUDED.review_type,
			critical_issues = EXCLUDED.critical_issues,
			improvements = EXCLUDED.improvements,
			suggestions = EXCLUDED.suggestions,
			strengths = EXCLUDED.strengths,
			verdict = EXCLUDED.verdict,
			confidence_score = EXCLUDED.confidence_score,
			duration_ms = EXCLUDED.duration_ms,
			fetched_at = EXCLUDED.fetched_at`,
		entry.Date, entry.PlanID, entry.ReviewID, entry.ModelName,
		entry.ReviewType, entry.CriticalIssues, entry.Improvements,
		entry.Suggestions, entry.Strengths, entry.Verdict,
		nullFloat(entry.ConfidenceScore), nullInt(entry.DurationMs),
		entry.FetchedAt)
	if err != nil {
		return fmt.Errorf("upsert telemetry %s/%s: %w", entry.PlanID, entry.ReviewID, err)
	}
	return nil
}

// ListByDate returns entries for one date, newest first.
func (r *TelemetryRepository) ListByDate(ctx context.Context, date string) ([]models.ReviewTelemetryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, plan_id, review_id, model_name, review_type,
			critical_issues, improvements, suggestions, strengths, verdict,
			confidence_score, duration_ms, fetched_at
		FROM review_telemetry WHERE date = $1 ORDER BY fetched_at DESC`, date)
	if err != nil {
		return nil, fmt.Errorf("list telemetry: %w", err)
	}
	defer rows.Close()

	var entries []models.ReviewTelemetryEntry
	for rows.Next() {
		var e models.ReviewTelemetryEntry
		var confidence sql.NullFloat64
		var duration sql.NullInt64

		err := rows.Scan(&e.ID, &e.Date, &e.PlanID, &e.ReviewID, &e.ModelName,
			&e.ReviewType, &e.CriticalIssues, &e.Improvements, &e.Suggestions,
			&e.Strengths, &e.Verdict, &confidence, &duration, &e.FetchedAt)
		if err != nil {
			return nil, fmt.Errorf("scan telemetry: %w", err)
		}

		e.ConfidenceScore = floatPtr(confidence)
		e.DurationMs = intPtr(duration)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
