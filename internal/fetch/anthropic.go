package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/daybrew/pulse/internal/models"
)

// VendorNews scrapes the vendor's news listing page for recent announcement
// links. Listing pages carry no reliable timestamps, so every discovered link
// is treated as current; URL-level dedup downstream absorbs repeats.
type VendorNews struct {
	client   *http.Client
	indexURL string
	maxItems int
}

// NewVendorNews returns a fetcher over the given listing page.
func NewVendorNews(indexURL string) *VendorNews {
	return &VendorNews{
		client:   newHTTPClient(10 * time.Second),
		indexURL: indexURL,
		maxItems: 10,
	}
}

func (v *VendorNews) Name() string { return string(models.SourceAnthropic) }

func (v *VendorNews) Fetch(ctx context.Context) ([]models.FetchedItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.indexURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	base, err := url.Parse(v.indexURL)
	if err != nil {
		return nil, fmt.Errorf("parse index url: %w", err)
	}

	now := time.Now().UTC()
	seen := make(map[string]bool)
	var items []models.FetchedItem

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		title := strings.TrimSpace(sel.Text())
		if title == "" || len(title) < 10 {
			return true
		}

		link, err := base.Parse(href)
		if err != nil {
			return true
		}
		// Only article links under the listing's own path.
		if link.Host != base.Host || !strings.HasPrefix(link.Path, base.Path+"/") {
			return true
		}

		absolute := link.String()
		if seen[absolute] {
			return true
		}
		seen[absolute] = true

		items = append(items, models.FetchedItem{
			Source:    models.SourceAnthropic,
			Category:  models.CategoryFeature,
			Title:     title,
			URL:       absolute,
			CreatedAt: now,
		})
		return len(items) < v.maxItems
	})

	return items, nil
}
