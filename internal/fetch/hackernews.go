package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/daybrew/pulse/internal/models"
)

const defaultAlgoliaBaseURL = "https://hn.algolia.com/api/v1"

// HackerNews fetches recent stories matching a query from the Algolia
// search API.
type HackerNews struct {
	client  *http.Client
	baseURL string
	query   string
	window  time.Duration
}

// NewHackerNews returns a fetcher for stories from the last 24 hours.
func NewHackerNews(query string) *HackerNews {
	return &HackerNews{
		client:  newHTTPClient(10 * time.Second),
		baseURL: defaultAlgoliaBaseURL,
		query:   query,
		window:  24 * time.Hour,
	}
}

func (h *HackerNews) Name() string { return string(models.SourceHackerNews) }

type algoliaResponse struct {
	Hits []struct {
		ObjectID    string `json:"objectID"`
		Title       string `json:"title"`
		URL         string `json:"url"`
		Author      string `json:"author"`
		Points      int    `json:"points"`
		NumComments int    `json:"num_comments"`
		CreatedAtI  int64  `json:"created_at_i"`
	} `json:"hits"`
}

func (h *HackerNews) Fetch(ctx context.Context) ([]models.FetchedItem, error) {
	since := time.Now().Add(-h.window).Unix()
	endpoint := fmt.Sprintf("%s/search?query=%s&tags=story&numericFilters=created_at_i>%d&hitsPerPage=30",
		h.baseURL, url.QueryEscape(h.query), since)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("algolia search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("algolia search: unexpected status %d", resp.StatusCode)
	}

	var parsed algoliaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode algolia response: %w", err)
	}

	items := make([]models.FetchedItem, 0, len(parsed.Hits))
	for _, hit := range parsed.Hits {
		if hit.Title == "" {
			continue
		}

		itemURL := hit.URL
		if itemURL == "" {
			itemURL = "https://news.ycombinator.com/item?id=" + hit.ObjectID
		}

		items = append(items, models.FetchedItem{
			Source:   models.SourceHackerNews,
			Category: models.CategoryNews,
			Title:    hit.Title,
			URL:      itemURL,
			Author:   hit.Author,
			RawMetrics: map[string]float64{
				"points":   float64(hit.Points),
				"comments": float64(hit.NumComments),
			},
			CreatedAt: time.Unix(hit.CreatedAtI, 0).UTC(),
		})
	}

	return items, nil
}
