package models

import "time"

// SentimentSnapshot is the persisted daily rollup of classified sentiment.
// Date is the primary key (YYYY-MM-DD).
type SentimentSnapshot struct {
	Date           string    `json:"date"`
	PositivePct    int       `json:"positivePct"`
	NeutralPct     int       `json:"neutralPct"`
	NegativePct    int       `json:"negativePct"`
	SampleSize     int       `json:"sampleSize"`
	TopPositiveID  *int64    `json:"topPositiveId,omitempty"`
	TopNegativeID  *int64    `json:"topNegativeId,omitempty"`
	Summary        string    `json:"summary"`
	CreatedAt      time.Time `json:"createdAt,omitempty"`
}

// SnapshotWrite carries the snapshot fields the pipeline computes before item
// IDs exist. Representative items are referenced by URL; the write transaction
// resolves them to row IDs after upserting the items.
type SnapshotWrite struct {
	Date           string
	PositivePct    int
	NeutralPct     int
	NegativePct    int
	SampleSize     int
	TopPositiveURL string
	TopNegativeURL string
	Summary        string
}

// BriefingTLDR is the structured at-a-glance summary, keyed by (date, slot).
type BriefingTLDR struct {
	Date      string    `json:"date"`
	Slot      Slot      `json:"slot"`
	Facts     []string  `json:"facts"`
	TryToday  *string   `json:"tryToday,omitempty"`
	Insight   *string   `json:"insight,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}
