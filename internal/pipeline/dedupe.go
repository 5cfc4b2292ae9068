package pipeline

import (
	"regexp"
	"strings"

	"github.com/daybrew/pulse/internal/models"
)

var titlePunct = regexp.MustCompile(`[^\w\s]`)

// Dedupe removes duplicate items in two passes: first by exact URL, then by
// normalized title. Within a duplicate group the item with the higher
// engagement score wins; on ties the first-seen item is kept. Input order of
// survivors is preserved and the input slice is never mutated.
func Dedupe(items []models.FetchedItem) []models.FetchedItem {
	byURL := dedupeBy(items, func(item models.FetchedItem) string {
		return item.URL
	})

	return dedupeBy(byURL, func(item models.FetchedItem) string {
		return normalizeTitle(item.Title)
	})
}

func dedupeBy(items []models.FetchedItem, key func(models.FetchedItem) string) []models.FetchedItem {
	best := make(map[string]int, len(items))
	result := make([]models.FetchedItem, 0, len(items))

	for _, item := range items {
		k := key(item)
		idx, seen := best[k]
		if !seen {
			best[k] = len(result)
			result = append(result, item)
			continue
		}
		if item.EngagementScore > result[idx].EngagementScore {
			result[idx] = item
		}
	}

	return result
}

// normalizeTitle lowercases, strips punctuation, collapses whitespace, and
// keeps the first 10 words. Empty titles normalize to the same key and
// therefore collapse together.
func normalizeTitle(title string) string {
	normalized := strings.ToLower(title)
	normalized = titlePunct.ReplaceAllString(normalized, "")
	words := strings.Fields(normalized)
	if len(words) > 10 {
		words = words[:10]
	}
	return strings.Join(words, " ")
}
