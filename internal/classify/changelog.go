package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/daybrew/pulse/internal/models"
)

const changelogSystemPrompt = `You analyze release notes for a developer tool.
Respond with a JSON object:
  "highlights": up to 5 short bullet strings of user-visible changes,
  "breaking_changes": bullet strings of breaking changes (empty array if none),
  "hook_relevance": bullet strings describing changes relevant to hook/extension authors (empty array if none).
Output JSON only.`

// ChangelogClassifier extracts structured highlights from recent releases.
// It is best-effort end to end: per-release failures become warnings and the
// release is skipped.
type ChangelogClassifier struct {
	completer   Completer
	logger      *slog.Logger
	maxReleases int
	maxAttempts int
	retryDelay  time.Duration
}

// NewChangelogClassifier returns a classifier covering the 3 most recent
// releases with 2 attempts each.
func NewChangelogClassifier(completer Completer, logger *slog.Logger) *ChangelogClassifier {
	return &ChangelogClassifier{
		completer:   completer,
		logger:      logger,
		maxReleases: 3,
		maxAttempts: 2,
		retryDelay:  2 * time.Second,
	}
}

type changelogResult struct {
	Highlights      []string `json:"highlights"`
	BreakingChanges []string `json:"breaking_changes"`
	HookRelevance   []string `json:"hook_relevance"`
}

// Classify processes releases sequentially, newest first. releases must be
// ordered newest-first; each highlight's PrevReleaseTag is the next release in
// the list. diffStats, keyed by tag, is attached when present.
func (c *ChangelogClassifier) Classify(ctx context.Context, date string, releases []models.RawRelease, diffStats map[string]models.DiffStats) ([]models.ChangelogHighlight, []string) {
	if len(releases) > c.maxReleases {
		releases = releases[:c.maxReleases]
	}

	var highlights []models.ChangelogHighlight
	var warnings []string

	for i, release := range releases {
		result, err := c.classifyRelease(ctx, release)
		if err != nil {
			warning := fmt.Sprintf("changelog classification failed for %s: %v", release.TagName, err)
			c.logger.Warn("release classification failed", "tag", release.TagName, "error", err)
			warnings = append(warnings, warning)
			continue
		}

		highlight := models.ChangelogHighlight{
			Date:            date,
			ReleaseTag:      release.TagName,
			ReleaseURL:      release.URL,
			HookRelevance:   result.HookRelevance,
			Highlights:      result.Highlights,
			BreakingChanges: result.BreakingChanges,
			RawBody:         release.Body,
			FetchedAt:       time.Now().UTC(),
		}
		if i+1 < len(releases) {
			highlight.PrevReleaseTag = releases[i+1].TagName
		}
		if stats, ok := diffStats[release.TagName]; ok {
			s := stats
			highlight.DiffStats = &s
		}

		highlights = append(highlights, highlight)
	}

	return highlights, warnings
}

func (c *ChangelogClassifier) classifyRelease(ctx context.Context, release models.RawRelease) (changelogResult, error) {
	body := release.Body
	if len(body) > 6000 {
		body = body[:6000]
	}
	prompt := fmt.Sprintf("Release %s:\n\n%s", release.TagName, body)

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		raw, err := c.completer.Complete(ctx, changelogSystemPrompt, prompt)
		if err == nil {
			var result changelogResult
			if parseErr := json.Unmarshal([]byte(stripCodeFences(raw)), &result); parseErr == nil {
				return result, nil
			} else {
				err = fmt.Errorf("unparseable changelog response: %w", parseErr)
			}
		}

		lastErr = err
		if attempt == c.maxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return changelogResult{}, ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}

	return changelogResult{}, lastErr
}
