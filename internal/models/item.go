package models

import "time"

// Source identifies where an item was fetched from.
type Source string

const (
	SourceReddit     Source = "reddit"
	SourceYouTube    Source = "youtube"
	SourceGitHub     Source = "github"
	SourceX          Source = "x"
	SourceAnthropic  Source = "anthropic"
	SourceSubstack   Source = "substack"
	SourceHackerNews Source = "hackernews"
)

// ValidSources lists all accepted item sources.
var ValidSources = []Source{
	SourceReddit,
	SourceYouTube,
	SourceGitHub,
	SourceX,
	SourceAnthropic,
	SourceSubstack,
	SourceHackerNews,
}

// IsValid reports whether the source is one of the known values.
func (s Source) IsValid() bool {
	for _, v := range ValidSources {
		if s == v {
			return true
		}
	}
	return false
}

// Category is the coarse content type assigned at fetch time.
type Category string

const (
	CategoryNews    Category = "news"
	CategoryFeature Category = "feature"
	CategoryTip     Category = "tip"
	CategoryPlugin  Category = "plugin"
	CategoryVideo   Category = "video"
)

// IsValid reports whether the category is one of the known values.
func (c Category) IsValid() bool {
	switch c {
	case CategoryNews, CategoryFeature, CategoryTip, CategoryPlugin, CategoryVideo:
		return true
	}
	return false
}

// Sentiment values assigned by classification.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// IsValidSentiment reports whether s is a recognized sentiment label.
func IsValidSentiment(s string) bool {
	switch s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

// Pattern types for community workflow write-ups.
const (
	PatternWorkflow        = "workflow"
	PatternContextStrategy = "context_strategy"
	PatternModelMix        = "model_mix"
	PatternHookPattern     = "hook_pattern"
)

// IsValidPatternType reports whether p is a recognized pattern label.
func IsValidPatternType(p string) bool {
	switch p {
	case PatternWorkflow, PatternContextStrategy, PatternModelMix, PatternHookPattern:
		return true
	}
	return false
}

// FetchedItem is one piece of content pulled from a source, before
// classification. Date is the briefing day in YYYY-MM-DD form. URL is the
// natural key across the whole pipeline.
type FetchedItem struct {
	ID              int64              `json:"id,omitempty"`
	Date            string             `json:"date"`
	Source          Source             `json:"source"`
	Category        Category           `json:"category"`
	Title           string             `json:"title"`
	URL             string             `json:"url"`
	Author          string             `json:"author,omitempty"`
	Excerpt         string             `json:"excerpt,omitempty"`
	ThumbnailURL    string             `json:"thumbnailUrl,omitempty"`
	EngagementScore float64            `json:"engagementScore"`
	RawMetrics      map[string]float64 `json:"rawMetrics,omitempty"`
	FetchedAt       time.Time          `json:"fetchedAt"`
	CreatedAt       time.Time          `json:"createdAt,omitempty"`
}

// ClassifiedItem is a FetchedItem with LLM-assigned fields attached. Nil
// pointers mean the item was not classified (or the field did not apply).
type ClassifiedItem struct {
	FetchedItem
	Sentiment           *string  `json:"sentiment,omitempty"`
	SentimentConfidence *float64 `json:"sentimentConfidence,omitempty"`
	TopicTags           []string `json:"topicTags,omitempty"`
	OneLineQuote        *string  `json:"oneLineQuote,omitempty"`
	IsTip               bool     `json:"isTip"`
	TipConfidence       *float64 `json:"tipConfidence,omitempty"`
	CommunityAction     *string  `json:"communityAction,omitempty"`
	PatternType         *string  `json:"patternType,omitempty"`
	PatternRecipe       *string  `json:"patternRecipe,omitempty"`
}

// RawRelease is an unclassified release pulled from the tracked repository.
type RawRelease struct {
	TagName     string    `json:"tagName"`
	URL         string    `json:"url"`
	Body        string    `json:"body"`
	PublishedAt time.Time `json:"publishedAt"`
}
