package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/daybrew/pulse/internal/models"
)

// PlaceholderSummary is served when no summary can be produced and no
// previous day's summary exists.
const PlaceholderSummary = "Today's briefing is being prepared. Check back shortly."

const summarySystemPrompt = `You write the narrative paragraph for a daily developer-tool ecosystem briefing.
Given today's top items, respond with a JSON object: {"summary": "..."}.
The summary is 2-4 sentences, concrete, and mentions the most notable items by name. Output JSON only.`

const tldrSystemPrompt = `You write the at-a-glance section of a daily developer-tool ecosystem briefing.
Given today's top items, respond with a JSON object:
  "facts": 3-5 short factual bullet strings about today's activity,
  "try_today": one concrete thing a reader could try today, or "",
  "insight": one non-obvious observation across the items, or "".
Output JSON only.`

// Completer produces a completion for a system/user prompt pair.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Summarizer produces the daily narrative summary and the structured TL;DR.
// Both operations are total: on exhausted retries they fall back instead of
// returning an error.
type Summarizer struct {
	completer   Completer
	logger      *slog.Logger
	maxAttempts int
	retryDelay  time.Duration
}

// NewSummarizer returns a summarizer with 3 attempts per operation.
func NewSummarizer(completer Completer, logger *slog.Logger) *Summarizer {
	return &Summarizer{
		completer:   completer,
		logger:      logger,
		maxAttempts: 3,
		retryDelay:  1 * time.Second,
	}
}

// Summary builds a narrative summary from the top 10 items. items must
// already be ranked descending. A non-empty previousSummary is handed to the
// model for day-to-day continuity; on failure it also serves as the fallback,
// ahead of the fixed placeholder.
func (s *Summarizer) Summary(ctx context.Context, items []models.ClassifiedItem, previousSummary string) string {
	top := items
	if len(top) > 10 {
		top = top[:10]
	}

	if len(top) > 0 {
		prompt := buildItemsPrompt(top)
		if previousSummary != "" {
			prompt += "\nYesterday's summary for continuity: " + previousSummary + "\n"
		}

		summary, err := s.withRetries(ctx, func() (string, error) {
			raw, err := s.completer.Complete(ctx, summarySystemPrompt, prompt)
			if err != nil {
				return "", err
			}
			var parsed struct {
				Summary string `json:"summary"`
			}
			if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil || strings.TrimSpace(parsed.Summary) == "" {
				return "", fmt.Errorf("unparseable summary response")
			}
			return strings.TrimSpace(parsed.Summary), nil
		})
		if err == nil {
			return summary
		}
		s.logger.Warn("summary generation failed, falling back", "error", err)
	}

	if previousSummary != "" {
		return previousSummary
	}
	return PlaceholderSummary
}

// TLDR builds the structured at-a-glance block from the top 15 items. On
// failure it falls back to facts derived from the top 5 titles, with no
// try-today or insight.
func (s *Summarizer) TLDR(ctx context.Context, date string, slot models.Slot, items []models.ClassifiedItem) models.BriefingTLDR {
	top := items
	if len(top) > 15 {
		top = top[:15]
	}

	tldr := models.BriefingTLDR{Date: date, Slot: slot}

	if len(top) > 0 {
		type tldrBody struct {
			Facts    []string `json:"facts"`
			TryToday string   `json:"try_today"`
			Insight  string   `json:"insight"`
		}
		var parsed tldrBody
		_, err := s.withRetries(ctx, func() (string, error) {
			raw, err := s.completer.Complete(ctx, tldrSystemPrompt, buildItemsPrompt(top))
			if err != nil {
				return "", err
			}
			parsed = tldrBody{}
			if err := json.Unmarshal([]byte(stripFences(raw)), &parsed); err != nil || len(parsed.Facts) == 0 {
				return "", fmt.Errorf("unparseable tldr response")
			}
			return raw, nil
		})
		if err == nil {
			tldr.Facts = parsed.Facts
			if v := strings.TrimSpace(parsed.TryToday); v != "" {
				tldr.TryToday = &v
			}
			if v := strings.TrimSpace(parsed.Insight); v != "" {
				tldr.Insight = &v
			}
			return tldr
		}
		s.logger.Warn("tldr generation failed, falling back", "error", err)
	}

	tldr.Facts = fallbackFacts(top)
	return tldr
}

// fallbackFacts derives bare facts from the top 5 item titles.
func fallbackFacts(items []models.ClassifiedItem) []string {
	if len(items) > 5 {
		items = items[:5]
	}

	facts := make([]string, 0, len(items))
	for _, item := range items {
		if title := strings.TrimSpace(item.Title); title != "" {
			facts = append(facts, fmt.Sprintf("%s (%s)", title, item.Source))
		}
	}
	return facts
}

// withRetries runs fn up to maxAttempts times. Transport and parse failures
// both count as failed attempts.
func (s *Summarizer) withRetries(ctx context.Context, fn func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err
		if attempt == s.maxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}
	return "", lastErr
}

func buildItemsPrompt(items []models.ClassifiedItem) string {
	var b strings.Builder
	b.WriteString("Today's top items:\n")
	for i, item := range items {
		fmt.Fprintf(&b, "%d. [%s/%s] %s", i+1, item.Source, item.Category, item.Title)
		if item.Sentiment != nil {
			fmt.Fprintf(&b, " (sentiment: %s)", *item.Sentiment)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func stripFences(raw string) string {
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
