package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/daybrew/pulse/internal/models"
)

// BriefingRepository manages the briefing_tldr table.
type BriefingRepository struct {
	db *sql.DB
}

// NewBriefingRepository creates a new briefing repository.
func NewBriefingRepository(db *sql.DB) *BriefingRepository {
	return &BriefingRepository{db: db}
}

// Upsert writes one TL;DR, keyed by (date, slot).
func (r *BriefingRepository) Upsert(ctx context.Context, tldr models.BriefingTLDR) error {
	facts, err := toJSONB(tldr.Facts)
	if err != nil {
		return err
	}
	if facts == nil {
		facts = []byte("[]")
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO briefing_tldr (date, slot, facts, try_today, insight)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (date, slot) DO UPDATE SET
			facts = EXCLUDED.facts,
			try_today = EXCLUDED.try_today,
			insight = EXCLUDED.insight`,
		tldr.Date, tldr.Slot, facts, nullString(tldr.TryToday), nullString(tldr.Insight))
	if err != nil {
		return fmt.Errorf("upsert tldr %s/%s: %w", tldr.Date, tldr.Slot, err)
	}
	return nil
}

// Get returns the TL;DR for a (date, slot), or nil when none exists.
func (r *BriefingRepository) Get(ctx context.Context, date string, slot models.Slot) (*models.BriefingTLDR, error) {
	var tldr models.BriefingTLDR
	var facts []byte
	var tryToday, insight sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT date, slot, facts, try_today, insight, created_at
		FROM briefing_tldr WHERE date = $1 AND slot = $2`, date, slot).Scan(
		&tldr.Date, &tldr.Slot, &facts, &tryToday, &insight, &tldr.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tldr: %w", err)
	}

	if err := fromJSONB(facts, &tldr.Facts); err != nil {
		return nil, err
	}
	tldr.TryToday = stringPtr(tryToday)
	tldr.Insight = stringPtr(insight)
	return &tldr, nil
}
