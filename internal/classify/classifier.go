package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/daybrew/pulse/internal/models"
)

const classifierSystemPrompt = `You are an analyst for a daily developer-tool ecosystem briefing.
For each numbered item you receive, assess community sentiment and extract structure.
Respond with a JSON object: {"items": [...]} where each element has:
  "index": the item's 1-based number from the input,
  "sentiment": "positive" | "neutral" | "negative",
  "sentiment_confidence": 0.0-1.0,
  "topic_tags": up to 3 short lowercase tags,
  "one_line_quote": a short representative phrase from the item, or "",
  "is_tip": true if the item teaches a concrete technique,
  "tip_confidence": 0.0-1.0,
  "community_action": a one-line suggested action for readers, or "",
  "pattern_type": "workflow" | "context_strategy" | "model_mix" | "hook_pattern" | "",
  "pattern_recipe": if pattern_type is set, a 1-2 sentence recipe, else "".
Include every index exactly once. Output JSON only.`

// Classifier assigns sentiment and structure to fetched items in batches.
type Classifier struct {
	completer        Completer
	logger           *slog.Logger
	batchSize        int
	maxAttempts      int
	retryDelay       time.Duration
	failureThreshold int
}

// NewClassifier returns a classifier with production batching and retry
// settings: batches of 10, 3 attempts per batch with doubling delays, and a
// circuit breaker that opens after 2 consecutive batch failures.
func NewClassifier(completer Completer, logger *slog.Logger) *Classifier {
	return &Classifier{
		completer:        completer,
		logger:           logger,
		batchSize:        10,
		maxAttempts:      3,
		retryDelay:       1 * time.Second,
		failureThreshold: 2,
	}
}

// Classify is total: it always returns one ClassifiedItem per input item, in
// input order, and never returns an error. Items in batches that fail all
// attempts, or that fall after the circuit breaker opens, come back with nil
// classification fields. The breaker counter is local to this call and resets
// on any successful batch.
func (c *Classifier) Classify(ctx context.Context, items []models.FetchedItem) []models.ClassifiedItem {
	out := make([]models.ClassifiedItem, len(items))
	for i, item := range items {
		out[i] = models.ClassifiedItem{FetchedItem: item}
	}
	if len(items) == 0 {
		return out
	}

	consecutiveFailures := 0
	for start := 0; start < len(items); start += c.batchSize {
		if consecutiveFailures >= c.failureThreshold {
			c.logger.Warn("classification circuit open, skipping remaining items",
				"consecutive_failures", consecutiveFailures,
				"unclassified_from", start,
				"total", len(items))
			break
		}

		end := start + c.batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		results, err := c.classifyBatch(ctx, batch)
		if err != nil {
			consecutiveFailures++
			c.logger.Warn("batch classification failed",
				"batch_start", start,
				"batch_size", len(batch),
				"error", err)
			continue
		}

		consecutiveFailures = 0
		applyClassifications(out[start:end], results)
	}

	return out
}

func (c *Classifier) classifyBatch(ctx context.Context, batch []models.FetchedItem) ([]itemClassification, error) {
	prompt := buildBatchPrompt(batch)

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		raw, err := c.completer.Complete(ctx, classifierSystemPrompt, prompt)
		if err == nil {
			results, parseErr := parseBatchResponse(raw)
			if parseErr == nil {
				return results, nil
			}
			err = parseErr
		}

		lastErr = err
		if attempt == c.maxAttempts-1 {
			break
		}

		delay := c.retryDelay << attempt
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("all %d attempts failed: %w", c.maxAttempts, lastErr)
}

func buildBatchPrompt(batch []models.FetchedItem) string {
	var b strings.Builder
	b.WriteString("Items:\n")
	for i, item := range batch {
		fmt.Fprintf(&b, "%d. [%s/%s] %s", i+1, item.Source, item.Category, item.Title)
		if item.Excerpt != "" {
			excerpt := item.Excerpt
			if len(excerpt) > 300 {
				excerpt = excerpt[:300]
			}
			fmt.Fprintf(&b, "\n   %s", excerpt)
		}
		b.WriteString("\n")
	}
	return b.String()
}

type itemClassification struct {
	Index               int      `json:"index"`
	Sentiment           string   `json:"sentiment"`
	SentimentConfidence *float64 `json:"sentiment_confidence"`
	TopicTags           []string `json:"topic_tags"`
	OneLineQuote        string   `json:"one_line_quote"`
	IsTip               bool     `json:"is_tip"`
	TipConfidence       *float64 `json:"tip_confidence"`
	CommunityAction     string   `json:"community_action"`
	PatternType         string   `json:"pattern_type"`
	PatternRecipe       string   `json:"pattern_recipe"`
}

type batchEnvelope struct {
	Items []itemClassification `json:"items"`
}

// parseBatchResponse accepts either the documented {"items": [...]} envelope
// or a bare array, with optional markdown code fences around either.
func parseBatchResponse(raw string) ([]itemClassification, error) {
	cleaned := stripCodeFences(raw)

	var envelope batchEnvelope
	if err := json.Unmarshal([]byte(cleaned), &envelope); err == nil && envelope.Items != nil {
		return envelope.Items, nil
	}

	var list []itemClassification
	if err := json.Unmarshal([]byte(cleaned), &list); err == nil {
		return list, nil
	}

	return nil, fmt.Errorf("unparseable classification response (%d bytes)", len(raw))
}

func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// applyClassifications reconciles model output to batch positions by the
// 1-based index field. Out-of-range indexes are dropped; positions the model
// never mentions stay unclassified.
func applyClassifications(out []models.ClassifiedItem, results []itemClassification) {
	for _, res := range results {
		if res.Index < 1 || res.Index > len(out) {
			continue
		}
		sanitize(&out[res.Index-1], res)
	}
}

func sanitize(item *models.ClassifiedItem, res itemClassification) {
	if models.IsValidSentiment(res.Sentiment) {
		s := res.Sentiment
		item.Sentiment = &s
		if res.SentimentConfidence != nil {
			conf := clamp01(*res.SentimentConfidence)
			item.SentimentConfidence = &conf
		}
	}

	if len(res.TopicTags) > 0 {
		tags := res.TopicTags
		if len(tags) > 3 {
			tags = tags[:3]
		}
		item.TopicTags = tags
	}

	if q := strings.TrimSpace(res.OneLineQuote); q != "" {
		item.OneLineQuote = &q
	}

	if res.TipConfidence != nil {
		conf := clamp01(*res.TipConfidence)
		item.TipConfidence = &conf
	}
	// A tip claim without high confidence is downgraded to not-a-tip.
	item.IsTip = res.IsTip && res.TipConfidence != nil && *res.TipConfidence > 0.8

	if a := strings.TrimSpace(res.CommunityAction); a != "" {
		item.CommunityAction = &a
	}

	if models.IsValidPatternType(res.PatternType) {
		p := res.PatternType
		item.PatternType = &p
		if r := strings.TrimSpace(res.PatternRecipe); r != "" {
			item.PatternRecipe = &r
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
