package pipeline

import (
	"math"
	"sort"
	"time"

	"github.com/daybrew/pulse/internal/models"
)

// Rank scores every item and returns a new slice sorted by score descending.
// Rank is the only stage that writes EngagementScore; callers must rank before
// reading scores.
//
// engagement is the maximum raw metric value (0 when no metrics), normalized
// against the batch maximum (floored at 1 so an all-zero batch scores 0).
// recency decays exponentially from the item's publication time with a
// 24-hour half-weight; items without a publication time fall back to their
// fetch time. The combined score is 0.6*engagement + 0.4*recency, rounded to
// 3 decimals. The sort is stable, so equally scored items keep their input
// order.
func Rank(items []models.FetchedItem, now time.Time) []models.FetchedItem {
	ranked := make([]models.FetchedItem, len(items))
	copy(ranked, items)

	engagements := make([]float64, len(ranked))
	maxEngagement := 1.0
	for i, item := range ranked {
		engagements[i] = maxMetric(item.RawMetrics)
		if engagements[i] > maxEngagement {
			maxEngagement = engagements[i]
		}
	}

	for i := range ranked {
		normalized := engagements[i] / maxEngagement

		published := ranked[i].CreatedAt
		if published.IsZero() {
			published = ranked[i].FetchedAt
		}
		hoursAgo := now.Sub(published).Hours()
		if hoursAgo < 0 {
			hoursAgo = 0
		}
		recency := math.Exp(-hoursAgo / 24)

		score := 0.6*normalized + 0.4*recency
		ranked[i].EngagementScore = math.Round(score*1000) / 1000
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].EngagementScore > ranked[b].EngagementScore
	})

	return ranked
}

func maxMetric(metrics map[string]float64) float64 {
	var max float64
	for _, v := range metrics {
		if v > max {
			max = v
		}
	}
	return max
}
