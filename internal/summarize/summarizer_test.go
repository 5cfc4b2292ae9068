package summarize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/daybrew/pulse/internal/models"
)

type fakeCompleter struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (f *fakeCompleter) Complete(_ context.Context, _ string, userPrompt string) (string, error) {
	idx := f.calls
	f.calls++
	f.prompts = append(f.prompts, userPrompt)

	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	if idx < 0 {
		return "", errors.New("no scripted response")
	}
	var err error
	if idx < len(f.errs) {
		err = f.errs[idx]
	}
	return f.responses[idx], err
}

func fastSummarizer(completer Completer) *Summarizer {
	s := NewSummarizer(completer, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.retryDelay = time.Millisecond
	return s
}

func classifiedItems(n int) []models.ClassifiedItem {
	items := make([]models.ClassifiedItem, n)
	for i := range items {
		items[i] = models.ClassifiedItem{
			FetchedItem: models.FetchedItem{
				Source:   models.SourceHackerNews,
				Category: models.CategoryNews,
				Title:    fmt.Sprintf("story %d", i),
				URL:      fmt.Sprintf("https://example.com/%d", i),
			},
		}
	}
	return items
}

func TestSummarySuccess(t *testing.T) {
	completer := &fakeCompleter{responses: []string{`{"summary": "A busy day for the ecosystem."}`}}

	got := fastSummarizer(completer).Summary(context.Background(), classifiedItems(3), "yesterday")

	if got != "A busy day for the ecosystem." {
		t.Errorf("unexpected summary: %q", got)
	}
}

func TestSummaryLimitsToTopTen(t *testing.T) {
	completer := &fakeCompleter{responses: []string{`{"summary": "ok"}`}}

	_ = fastSummarizer(completer).Summary(context.Background(), classifiedItems(30), "")

	prompt := completer.prompts[0]
	if strings.Contains(prompt, "story 10") {
		t.Error("expected only the top 10 items in the prompt")
	}
	if !strings.Contains(prompt, "story 9") {
		t.Error("expected the 10th item in the prompt")
	}
}

func TestSummaryPromptCarriesPreviousForContinuity(t *testing.T) {
	completer := &fakeCompleter{responses: []string{`{"summary": "ok"}`}}

	_ = fastSummarizer(completer).Summary(context.Background(), classifiedItems(2), "Yesterday the new hooks landed.")

	prompt := completer.prompts[0]
	if !strings.Contains(prompt, "Yesterday's summary for continuity: Yesterday the new hooks landed.") {
		t.Errorf("expected previous summary in the prompt, got %q", prompt)
	}
}

func TestSummaryPromptOmitsContinuityWhenNoPrevious(t *testing.T) {
	completer := &fakeCompleter{responses: []string{`{"summary": "ok"}`}}

	_ = fastSummarizer(completer).Summary(context.Background(), classifiedItems(2), "")

	if strings.Contains(completer.prompts[0], "continuity") {
		t.Errorf("expected no continuity line without a previous summary, got %q", completer.prompts[0])
	}
}

func TestSummaryFallsBackToPrevious(t *testing.T) {
	completer := &fakeCompleter{
		responses: []string{""},
		errs:      []error{errors.New("down")},
	}

	s := fastSummarizer(completer)
	got := s.Summary(context.Background(), classifiedItems(2), "yesterday's summary")

	if got != "yesterday's summary" {
		t.Errorf("expected previous summary fallback, got %q", got)
	}
	if completer.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", completer.calls)
	}
}

func TestSummaryFallsBackToPlaceholder(t *testing.T) {
	completer := &fakeCompleter{
		responses: []string{""},
		errs:      []error{errors.New("down")},
	}

	got := fastSummarizer(completer).Summary(context.Background(), classifiedItems(2), "")

	if got != PlaceholderSummary {
		t.Errorf("expected placeholder, got %q", got)
	}
}

func TestSummaryRetriesOnGarbageThenSucceeds(t *testing.T) {
	completer := &fakeCompleter{responses: []string{"not json", `{"summary": "recovered"}`}}

	got := fastSummarizer(completer).Summary(context.Background(), classifiedItems(2), "prev")

	if got != "recovered" {
		t.Errorf("expected recovery after parse failure, got %q", got)
	}
	if completer.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", completer.calls)
	}
}

func TestSummaryEmptyItems(t *testing.T) {
	completer := &fakeCompleter{}

	got := fastSummarizer(completer).Summary(context.Background(), nil, "")

	if got != PlaceholderSummary {
		t.Errorf("expected placeholder for empty input, got %q", got)
	}
	if completer.calls != 0 {
		t.Errorf("expected no completion calls for empty input, got %d", completer.calls)
	}
}

func TestTLDRSuccess(t *testing.T) {
	completer := &fakeCompleter{responses: []string{
		`{"facts": ["fact one", "fact two", "fact three"], "try_today": "enable the new hook", "insight": "tips dominated"}`,
	}}

	got := fastSummarizer(completer).TLDR(context.Background(), "2025-06-01", models.SlotMorning, classifiedItems(3))

	if got.Date != "2025-06-01" || got.Slot != models.SlotMorning {
		t.Errorf("unexpected key: %s/%s", got.Date, got.Slot)
	}
	if len(got.Facts) != 3 {
		t.Errorf("expected 3 facts, got %v", got.Facts)
	}
	if got.TryToday == nil || *got.TryToday != "enable the new hook" {
		t.Errorf("unexpected tryToday: %v", got.TryToday)
	}
	if got.Insight == nil {
		t.Error("expected insight")
	}
}

func TestTLDRLimitsToTopFifteen(t *testing.T) {
	completer := &fakeCompleter{responses: []string{`{"facts": ["f"]}`}}

	_ = fastSummarizer(completer).TLDR(context.Background(), "2025-06-01", models.SlotMidday, classifiedItems(40))

	prompt := completer.prompts[0]
	if strings.Contains(prompt, "story 15") {
		t.Error("expected only the top 15 items in the prompt")
	}
	if !strings.Contains(prompt, "story 14") {
		t.Error("expected the 15th item in the prompt")
	}
}

func TestTLDRFallbackFacts(t *testing.T) {
	completer := &fakeCompleter{
		responses: []string{""},
		errs:      []error{errors.New("down")},
	}

	got := fastSummarizer(completer).TLDR(context.Background(), "2025-06-01", models.SlotEvening, classifiedItems(8))

	if len(got.Facts) != 5 {
		t.Fatalf("expected 5 fallback facts from top titles, got %d", len(got.Facts))
	}
	if !strings.Contains(got.Facts[0], "story 0") {
		t.Errorf("expected fallback fact from top title, got %q", got.Facts[0])
	}
	if got.TryToday != nil || got.Insight != nil {
		t.Error("fallback TLDR should have nil tryToday and insight")
	}
}

func TestTLDREmptyItems(t *testing.T) {
	completer := &fakeCompleter{}

	got := fastSummarizer(completer).TLDR(context.Background(), "2025-06-01", models.SlotMorning, nil)

	if len(got.Facts) != 0 {
		t.Errorf("expected no facts for empty input, got %v", got.Facts)
	}
	if completer.calls != 0 {
		t.Errorf("expected no completion calls, got %d", completer.calls)
	}
}
