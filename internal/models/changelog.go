package models

import "time"

// DiffStats summarizes the compare view between a release and its predecessor.
type DiffStats struct {
	FilesChanged int `json:"filesChanged"`
	Additions    int `json:"additions"`
	Deletions    int `json:"deletions"`
}

// ChangelogHighlight is one classified release of the tracked repository.
// ReleaseTag is unique.
type ChangelogHighlight struct {
	ID              int64      `json:"id,omitempty"`
	Date            string     `json:"date"`
	ReleaseTag      string     `json:"releaseTag"`
	PrevReleaseTag  string     `json:"prevReleaseTag,omitempty"`
	ReleaseURL      string     `json:"releaseUrl"`
	HookRelevance   []string   `json:"hookRelevance,omitempty"`
	Highlights      []string   `json:"highlights,omitempty"`
	BreakingChanges []string   `json:"breakingChanges,omitempty"`
	DiffStats       *DiffStats `json:"diffStats,omitempty"`
	RawBody         string     `json:"rawBody,omitempty"`
	FetchedAt       time.Time  `json:"fetchedAt"`
}
