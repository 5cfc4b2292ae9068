package models

import "time"

// ReviewTelemetryEntry records one automated code-review result submitted via
// the telemetry endpoint. (PlanID, ReviewID) is the composite upsert key.
type ReviewTelemetryEntry struct {
	ID              int64     `json:"id,omitempty"`
	Date            string    `json:"date"`
	PlanID          string    `json:"planId"`
	ReviewID        string    `json:"reviewId"`
	ModelName       string    `json:"modelName"`
	ReviewType      string    `json:"reviewType,omitempty"`
	CriticalIssues  int       `json:"criticalIssues"`
	Improvements    int       `json:"improvements"`
	Suggestions     int       `json:"suggestions"`
	Strengths       int       `json:"strengths"`
	Verdict         string    `json:"verdict,omitempty"`
	ConfidenceScore *float64  `json:"confidenceScore,omitempty"`
	DurationMs      *int64    `json:"durationMs,omitempty"`
	FetchedAt       time.Time `json:"fetchedAt"`
}
