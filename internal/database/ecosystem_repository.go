package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/daybrew/pulse/internal/models"
)

// EcosystemRepository manages the ecosystem catalog table.
type EcosystemRepository struct {
	db *sql.DB
}

// NewEcosystemRepository creates a new ecosystem repository.
func NewEcosystemRepository(db *sql.DB) *EcosystemRepository {
	return &EcosystemRepository{db: db}
}

// UpsertMany writes entries and returns the number processed. Entries with a
// GitHub URL are keyed by it; URL-less entries are deduplicated by name.
// Re-seen entries bump mention_count and refresh mutable fields.
func (r *EcosystemRepository) UpsertMany(ctx context.Context, entries []models.EcosystemEntry) (int, error) {
	processed := 0
	for _, entry := range entries {
		if err := r.upsert(ctx, entry); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

func (r *EcosystemRepository) upsert(ctx context.Context, entry models.EcosystemEntry) error {
	categoryTags, err := toJSONB(entry.CategoryTags)
	if err != nil {
		return err
	}
	var agentMeta any
	if entry.AgentMeta != nil {
		agentMeta, err = toJSONB(entry.AgentMeta)
		if err != nil {
			return err
		}
	}

	if entry.GitHubURL != "" {
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO ecosystem (name, type, author, description, github_url,
				stars, last_updated, category_tags, mention_count, agent_meta)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (github_url) DO UPDATE SET
				name = EXCLUDED.name,
				type = EXCLUDED.type,
				description = EXCLUDED.description,
				stars = EXCLUDED.stars,
				last_updated = EXCLUDED.last_updated,
				category_tags = EXCLUDED.category_tags,
				mention_count = ecosystem.mention_count + 1,
				agent_meta = EXCLUDED.agent_meta,
				updated_at = NOW()`,
			entry.Name, entry.Type, entry.Author, entry.Description,
			entry.GitHubURL, entry.Stars, entry.LastUpdated, categoryTags,
			max(entry.MentionCount, 1), agentMeta)
		if err != nil {
			return fmt.Errorf("upsert ecosystem entry %s: %w", entry.GitHubURL, err)
		}
		return nil
	}

	// No natural key: match an existing URL-less row by name.
	result, err := r.db.ExecContext(ctx, `
		UPDATE ecosystem SET
			type = $2, description = $3,
			mention_count = mention_count + 1, updated_at = NOW()
		WHERE name = $1 AND github_url IS NULL`,
		entry.Name, entry.Type, entry.Description)
	if err != nil {
		return fmt.Errorf("update ecosystem entry %s: %w", entry.Name, err)
	}
	if n, err := result.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO ecosystem (name, type, author, description, github_url,
			stars, category_tags, mention_count, agent_meta)
		VALUES ($1, $2, $3, $4, NULL, $5, $6, $7, $8)`,
		entry.Name, entry.Type, entry.Author, entry.Description,
		entry.Stars, categoryTags, max(entry.MentionCount, 1), agentMeta)
	if err != nil {
		return fmt.Errorf("insert ecosystem entry %s: %w", entry.Name, err)
	}
	return nil
}

// List returns catalog entries of one type (or all when entryType is empty),
// most mentioned first.
func (r *EcosystemRepository) List(ctx context.Context, entryType models.EntryType, limit uint64) ([]models.EcosystemEntry, error) {
	builder := psql.Select(`id, name, type, author, description,
		COALESCE(github_url, ''), stars, last_updated, category_tags,
		mention_count, agent_meta, created_at, updated_at`).
		From("ecosystem").
		OrderBy("mention_count DESC, stars DESC")
	if entryType != "" {
		builder = builder.Where("type = ?", entryType)
	}
	if limit > 0 {
		builder = builder.Limit(limit)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ecosystem query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ecosystem: %w", err)
	}
	defer rows.Close()

	var entries []models.EcosystemEntry
	for rows.Next() {
		var entry models.EcosystemEntry
		var lastUpdated sql.NullTime
		var categoryTags, agentMeta []byte

		err := rows.Scan(&entry.ID, &entry.Name, &entry.Type, &entry.Author,
			&entry.Description, &entry.GitHubURL, &entry.Stars, &lastUpdated,
			&categoryTags, &entry.MentionCount, &agentMeta,
			&entry.CreatedAt, &entry.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan ecosystem entry: %w", err)
		}

		if lastUpdated.Valid {
			t := lastUpdated.Time
			entry.LastUpdated = &t
		}
		if err := fromJSONB(categoryTags, &entry.CategoryTags); err != nil {
			return nil, err
		}
		if len(agentMeta) > 0 {
			entry.AgentMeta = &models.AgentConfigMeta{}
			if err := fromJSONB(agentMeta, entry.AgentMeta); err != nil {
				return nil, err
			}
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
