package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/daybrew/pulse/internal/models"
)

const defaultRedditBaseURL = "https://www.reddit.com"

// Reddit fetches top daily posts from a set of subreddits via the public
// JSON listing endpoints.
type Reddit struct {
	client     *http.Client
	baseURL    string
	subreddits []string
	userAgent  string
}

// NewReddit returns a fetcher over the given subreddits.
func NewReddit(subreddits []string) *Reddit {
	return &Reddit{
		client:     newHTTPClient(10 * time.Second),
		baseURL:    defaultRedditBaseURL,
		subreddits: subreddits,
		userAgent:  "pulse-aggregator/1.0",
	}
}

func (r *Reddit) Name() string { return string(models.SourceReddit) }

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title       string  `json:"title"`
				Permalink   string  `json:"permalink"`
				URL         string  `json:"url"`
				Author      string  `json:"author"`
				SelfText    string  `json:"selftext"`
				Thumbnail   string  `json:"thumbnail"`
				Score       float64 `json:"score"`
				NumComments float64 `json:"num_comments"`
				CreatedUTC  float64 `json:"created_utc"`
				Stickied    bool    `json:"stickied"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (r *Reddit) Fetch(ctx context.Context) ([]models.FetchedItem, error) {
	var items []models.FetchedItem
	var failures []string

	for _, sub := range r.subreddits {
		subItems, err := r.fetchSubreddit(ctx, sub)
		if err != nil {
			failures = append(failures, fmt.Sprintf("r/%s: %v", sub, err))
			continue
		}
		items = append(items, subItems...)
	}

	// Partial results count as success; only a total wipeout is an error.
	if len(items) == 0 && len(failures) > 0 {
		return nil, fmt.Errorf("all subreddits failed: %s", strings.Join(failures, "; "))
	}

	return items, nil
}

func (r *Reddit) fetchSubreddit(ctx context.Context, sub string) ([]models.FetchedItem, error) {
	endpoint := fmt.Sprintf("%s/r/%s/top.json?t=day&limit=25", r.baseURL, sub)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}

	items := make([]models.FetchedItem, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		post := child.Data
		if post.Stickied || post.Title == "" {
			continue
		}

		excerpt := post.SelfText
		if len(excerpt) > 500 {
			excerpt = excerpt[:500]
		}

		thumbnail := post.Thumbnail
		if !strings.HasPrefix(thumbnail, "http") {
			thumbnail = ""
		}

		items = append(items, models.FetchedItem{
			Source:       models.SourceReddit,
			Category:     models.CategoryNews,
			Title:        post.Title,
			URL:          defaultRedditBaseURL + post.Permalink,
			Author:       post.Author,
			Excerpt:      excerpt,
			ThumbnailURL: thumbnail,
			RawMetrics: map[string]float64{
				"score":    post.Score,
				"comments": post.NumComments,
			},
			CreatedAt: time.Unix(int64(post.CreatedUTC), 0).UTC(),
		})
	}

	return items, nil
}
