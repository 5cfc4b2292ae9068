package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/daybrew/pulse/internal/config"
	"github.com/daybrew/pulse/internal/models"
)

// RSS fetches items from configured RSS/Atom feeds. Feed entries older than
// the lookback window are dropped so a quiet feed does not flood the briefing
// with stale posts.
type RSS struct {
	parser   *gofeed.Parser
	feeds    []config.FeedConfig
	lookback time.Duration
	name     string
}

// NewRSS returns a fetcher over the configured feeds.
func NewRSS(feeds []config.FeedConfig) *RSS {
	return &RSS{
		parser:   gofeed.NewParser(),
		feeds:    feeds,
		lookback: 48 * time.Hour,
		name:     "rss",
	}
}

func (r *RSS) Name() string { return r.name }

func (r *RSS) Fetch(ctx context.Context) ([]models.FetchedItem, error) {
	var items []models.FetchedItem
	var failures []string

	for _, feed := range r.feeds {
		feedItems, err := r.fetchFeed(ctx, feed)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", feed.URL, err))
			continue
		}
		items = append(items, feedItems...)
	}

	if len(items) == 0 && len(failures) > 0 {
		return nil, fmt.Errorf("all feeds failed: %s", strings.Join(failures, "; "))
	}

	return items, nil
}

func (r *RSS) fetchFeed(ctx context.Context, cfg config.FeedConfig) ([]models.FetchedItem, error) {
	feedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	feed, err := r.parser.ParseURLWithContext(cfg.URL, feedCtx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	source := models.Source(cfg.Source)
	if !source.IsValid() {
		source = models.SourceSubstack
	}
	category := models.Category(cfg.Category)
	if !category.IsValid() {
		category = models.CategoryNews
	}

	cutoff := time.Now().Add(-r.lookback)
	var items []models.FetchedItem
	for _, entry := range feed.Items {
		if entry.Title == "" || entry.Link == "" {
			continue
		}

		published := time.Now().UTC()
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}
		if published.Before(cutoff) {
			continue
		}

		item := models.FetchedItem{
			Source:    source,
			Category:  category,
			Title:     entry.Title,
			URL:       entry.Link,
			Excerpt:   truncate(strip(entry.Description), 500),
			CreatedAt: published,
		}
		if len(entry.Authors) > 0 {
			item.Author = entry.Authors[0].Name
		}
		if entry.Image != nil {
			item.ThumbnailURL = entry.Image.URL
		}

		items = append(items, item)
	}

	return items, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// strip removes rudimentary HTML tags from feed descriptions.
func strip(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
