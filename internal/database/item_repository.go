package database

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/daybrew/pulse/internal/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ItemRepository manages the items table.
type ItemRepository struct {
	db *sql.DB
}

// NewItemRepository creates a new item repository.
func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

const itemColumns = `id, date, source, category, title, url, author, excerpt, thumbnail_url,
	engagement_score, raw_metrics, sentiment, sentiment_confidence, topic_tags,
	one_line_quote, is_tip, tip_confidence, community_action, pattern_type,
	pattern_recipe, fetched_at, created_at`

// upsertTx inserts or updates one classified item inside an existing
// transaction, keyed by URL, and returns the row ID. created_at is written on
// insert only, so re-fetches keep the first-seen publication time.
func (r *ItemRepository) upsertTx(ctx context.Context, tx *sql.Tx, item models.ClassifiedItem) (int64, error) {
	rawMetrics, err := toJSONB(item.RawMetrics)
	if err != nil {
		return 0, err
	}
	topicTags, err := toJSONB(item.TopicTags)
	if err != nil {
		return 0, err
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO items (
			date, source, category, title, url, author, excerpt, thumbnail_url,
			engagement_score, raw_metrics, sentiment, sentiment_confidence,
			topic_tags, one_line_quote, is_tip, tip_confidence, community_action,
			pattern_type, pattern_recipe, fetched_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		ON CONFLICT (url) DO UPDATE SET
			date = EXCLUDED.date,
			title = EXCLUDED.title,
			excerpt = EXCLUDED.excerpt,
			thumbnail_url = EXCLUDED.thumbnail_url,
			engagement_score = EXCLUDED.engagement_score,
			raw_metrics = EXCLUDED.raw_metrics,
			sentiment = EXCLUDED.sentiment,
			sentiment_confidence = EXCLUDED.sentiment_confidence,
			topic_tags = EXCLUDED.topic_tags,
			one_line_quote = EXCLUDED.one_line_quote,
			is_tip = EXCLUDED.is_tip,
			tip_confidence = EXCLUDED.tip_confidence,
			community_action = EXCLUDED.community_action,
			pattern_type = EXCLUDED.pattern_type,
			pattern_recipe = EXCLUDED.pattern_recipe,
			fetched_at = EXCLUDED.fetched_at
		RETURNING id`,
		item.Date, item.Source, item.Category, item.Title, item.URL,
		item.Author, item.Excerpt, item.ThumbnailURL, item.EngagementScore,
		rawMetrics, nullString(item.Sentiment), nullFloat(item.SentimentConfidence),
		topicTags, nullString(item.OneLineQuote), item.IsTip,
		nullFloat(item.TipConfidence), nullString(item.CommunityAction),
		nullString(item.PatternType), nullString(item.PatternRecipe),
		item.FetchedAt, item.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert item %s: %w", item.URL, err)
	}

	return id, nil
}

// ItemFilter narrows List results. Zero values mean "no constraint".
type ItemFilter struct {
	Date     string
	Source   string
	Category string
	TipsOnly bool
	Limit    uint64
}

// List returns classified items matching the filter, ranked by engagement.
func (r *ItemRepository) List(ctx context.Context, filter ItemFilter) ([]models.ClassifiedItem, error) {
	builder := psql.Select(itemColumns).
		From("items").
		OrderBy("engagement_score DESC, id ASC")

	if filter.Date != "" {
		builder = builder.Where(sq.Eq{"date": filter.Date})
	}
	if filter.Source != "" {
		builder = builder.Where(sq.Eq{"source": filter.Source})
	}
	if filter.Category != "" {
		builder = builder.Where(sq.Eq{"category": filter.Category})
	}
	if filter.TipsOnly {
		builder = builder.Where(sq.Eq{"is_tip": true})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build item query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []models.ClassifiedItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func scanItem(rows *sql.Rows) (models.ClassifiedItem, error) {
	var item models.ClassifiedItem
	var rawMetrics, topicTags []byte
	var sentiment, oneLineQuote, communityAction, patternType, patternRecipe sql.NullString
	var sentimentConfidence, tipConfidence sql.NullFloat64

	err := rows.Scan(
		&item.ID, &item.Date, &item.Source, &item.Category, &item.Title,
		&item.URL, &item.Author, &item.Excerpt, &item.ThumbnailURL,
		&item.EngagementScore, &rawMetrics, &sentiment, &sentimentConfidence,
		&topicTags, &oneLineQuote, &item.IsTip, &tipConfidence,
		&communityAction, &patternType, &patternRecipe,
		&item.FetchedAt, &item.CreatedAt,
	)
	if err != nil {
		return item, fmt.Errorf("scan item: %w", err)
	}

	if err := fromJSONB(rawMetrics, &item.RawMetrics); err != nil {
		return item, err
	}
	if err := fromJSONB(topicTags, &item.TopicTags); err != nil {
		return item, err
	}
	item.Sentiment = stringPtr(sentiment)
	item.SentimentConfidence = floatPtr(sentimentConfidence)
	item.OneLineQuote = stringPtr(oneLineQuote)
	item.TipConfidence = floatPtr(tipConfidence)
	item.CommunityAction = stringPtr(communityAction)
	item.PatternType = stringPtr(patternType)
	item.PatternRecipe = stringPtr(patternRecipe)

	return item, nil
}

// CountBySource returns the item counts per source for one date.
func (r *ItemRepository) CountBySource(ctx context.Context, date string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT source, COUNT(*) FROM items WHERE date = $1 GROUP BY source", date)
	if err != nil {
		return nil, fmt.Errorf("count items by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("scan source count: %w", err)
		}
		counts[source] = count
	}

	return counts, rows.Err()
}

// DeleteOlderThan removes items with a date strictly before the cutoff and
// returns the number deleted.
func (r *ItemRepository) DeleteOlderThan(ctx context.Context, beforeDate string) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM items WHERE date < $1", beforeDate)
	if err != nil {
		return 0, fmt.Errorf("prune items: %w", err)
	}
	return result.RowsAffected()
}

// findIDByURL resolves an item URL to its row ID inside a transaction.
func findIDByURL(ctx context.Context, tx *sql.Tx, url string) (*int64, error) {
	if url == "" {
		return nil, nil
	}

	var id int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM items WHERE url = $1", url).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve item id for %s: %w", url, err)
	}
	return &id, nil
}
