package pipeline

import (
	"math"

	"github.com/daybrew/pulse/internal/models"
)

// buildSnapshot rolls classified items up into the daily sentiment snapshot.
// Percentages are computed over items with a sentiment (unclassified items
// are excluded from the sample) and rounded to whole numbers. Representative
// items are the highest-engagement positive and negative items; their URLs
// are resolved to row IDs at commit time.
func buildSnapshot(date string, items []models.ClassifiedItem, summary string) models.SnapshotWrite {
	snapshot := models.SnapshotWrite{
		Date:    date,
		Summary: summary,
	}

	var positive, neutral, negative int
	var topPositive, topNegative *models.ClassifiedItem

	for i := range items {
		item := &items[i]
		if item.Sentiment == nil {
			continue
		}

		switch *item.Sentiment {
		case models.SentimentPositive:
			positive++
			if topPositive == nil || item.EngagementScore > topPositive.EngagementScore {
				topPositive = item
			}
		case models.SentimentNeutral:
			neutral++
		case models.SentimentNegative:
			negative++
			if topNegative == nil || item.EngagementScore > topNegative.EngagementScore {
				topNegative = item
			}
		}
	}

	sample := positive + neutral + negative
	snapshot.SampleSize = sample
	if sample > 0 {
		snapshot.PositivePct = pct(positive, sample)
		snapshot.NeutralPct = pct(neutral, sample)
		snapshot.NegativePct = pct(negative, sample)
	}

	if topPositive != nil {
		snapshot.TopPositiveURL = topPositive.URL
	}
	if topNegative != nil {
		snapshot.TopNegativeURL = topNegative.URL
	}

	return snapshot
}

func pct(count, total int) int {
	return int(math.Round(float64(count) / float64(total) * 100))
}
