package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/daybrew/pulse/internal/models"
)

// ChangelogRepository manages the changelog_highlights table.
type ChangelogRepository struct {
	db *sql.DB
}

// NewChangelogRepository creates a new changelog repository.
func NewChangelogRepository(db *sql.DB) *ChangelogRepository {
	return &ChangelogRepository{db: db}
}

// UpsertMany writes highlights keyed by release tag and returns the number
// processed.
func (r *ChangelogRepository) UpsertMany(ctx context.Context, highlights []models.ChangelogHighlight) (int, error) {
	processed := 0
	for _, h := range highlights {
		if err := r.upsert(ctx, h); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

func (r *ChangelogRepository) upsert(ctx context.Context, h models.ChangelogHighlight) error {
	hookRelevance, err := toJSONB(h.HookRelevance)
	if err != nil {
		return err
	}
	highlights, err := toJSONB(h.Highlights)
	if err != nil {
		return err
	}
	breaking, err := toJSONB(h.BreakingChanges)
	if err != nil {
		return err
	}
	var diffStats any
	if h.DiffStats != nil {
		diffStats, err = toJSONB(h.DiffStats)
		if err != nil {
			return err
		}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO changelog_highlights (date, release_tag, prev_release_tag,
			release_url, hook_relevance, highlights, breaking_changes,
			diff_stats, raw_body, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (release_tag) DO UPDATE SET
			date = EXCLUDED.date,
			prev_release_tag = EXCLUDED.prev_release_tag,
			hook_relevance = EXCLUDED.hook_relevance,
			highlights = EXCLUDED.highlights,
			breaking_changes = EXCLUDED.breaking_changes,
			diff_stats = EXCLUDED.diff_stats,
			fetched_at = EXCLUDED.fetched_at`,
		h.Date, h.ReleaseTag, h.PrevReleaseTag, h.ReleaseURL,
		hookRelevance, highlights, breaking, diffStats, h.RawBody, h.FetchedAt)
	if err != nil {
		return fmt.Errorf("upsert changelog %s: %w", h.ReleaseTag, err)
	}
	return nil
}

// Recent returns the newest highlights, newest release first.
func (r *ChangelogRepository) Recent(ctx context.Context, limit int) ([]models.ChangelogHighlight, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, release_tag, prev_release_tag, release_url,
			hook_relevance, highlights, breaking_changes, diff_stats,
			raw_body, fetched_at
		FROM changelog_highlights ORDER BY fetched_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list changelog: %w", err)
	}
	defer rows.Close()

	var result []models.ChangelogHighlight
	for rows.Next() {
		var h models.ChangelogHighlight
		var hookRelevance, highlights, breaking, diffStats []byte

		err := rows.Scan(&h.ID, &h.Date, &h.ReleaseTag, &h.PrevReleaseTag,
			&h.ReleaseURL, &hookRelevance, &highlights, &breaking,
			&diffStats, &h.RawBody, &h.FetchedAt)
		if err != nil {
			return nil, fmt.Errorf("scan changelog: %w", err)
		}

		if err := fromJSONB(hookRelevance, &h.HookRelevance); err != nil {
			return nil, err
		}
		if err := fromJSONB(highlights, &h.Highlights); err != nil {
			return nil, err
		}
		if err := fromJSONB(breaking, &h.BreakingChanges); err != nil {
			return nil, err
		}
		if len(diffStats) > 0 {
			h.DiffStats = &models.DiffStats{}
			if err := fromJSONB(diffStats, h.DiffStats); err != nil {
				return nil, err
			}
		}

		result = append(result, h)
	}

	return result, rows.Err()
}
