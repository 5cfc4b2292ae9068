package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/daybrew/pulse/internal/models"
)

const defaultYouTubeFeedBase = "https://www.youtube.com/feeds/videos.xml?channel_id="

// YouTube fetches recent videos from channel Atom feeds. No API key needed.
type YouTube struct {
	parser   *gofeed.Parser
	feedBase string
	channels []string
	lookback time.Duration
}

// NewYouTube returns a fetcher over the given channel IDs.
func NewYouTube(channelIDs []string) *YouTube {
	return &YouTube{
		parser:   gofeed.NewParser(),
		feedBase: defaultYouTubeFeedBase,
		channels: channelIDs,
		lookback: 48 * time.Hour,
	}
}

func (y *YouTube) Name() string { return string(models.SourceYouTube) }

func (y *YouTube) Fetch(ctx context.Context) ([]models.FetchedItem, error) {
	var items []models.FetchedItem
	var failures []string

	cutoff := time.Now().Add(-y.lookback)
	for _, channel := range y.channels {
		feedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		feed, err := y.parser.ParseURLWithContext(y.feedBase+channel, feedCtx)
		cancel()
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", channel, err))
			continue
		}

		for _, entry := range feed.Items {
			if entry.Title == "" || entry.Link == "" {
				continue
			}

			published := time.Now().UTC()
			if entry.PublishedParsed != nil {
				published = entry.PublishedParsed.UTC()
			}
			if published.Before(cutoff) {
				continue
			}

			item := models.FetchedItem{
				Source:    models.SourceYouTube,
				Category:  models.CategoryVideo,
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
	}

	if len(items) == 0 && len(failures) > 0 {
		return nil, fmt.Errorf("all channels failed: %s", strings.Join(failures, "; "))
	}

	return items, nil
}
