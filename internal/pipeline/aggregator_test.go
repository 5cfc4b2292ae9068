package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/daybrew/pulse/internal/backoff"
	"github.com/daybrew/pulse/internal/fetch"
	"github.com/daybrew/pulse/internal/models"
)

type stubFetcher struct {
	name  string
	items []models.FetchedItem
	err   error
}

func (s *stubFetcher) Name() string { return s.name }

func (s *stubFetcher) Fetch(context.Context) ([]models.FetchedItem, error) {
	return s.items, s.err
}

type passthroughClassifier struct {
	sentiments map[string]string
}

func (p *passthroughClassifier) Classify(_ context.Context, items []models.FetchedItem) []models.ClassifiedItem {
	out := make([]models.ClassifiedItem, len(items))
	for i, item := range items {
		out[i] = models.ClassifiedItem{FetchedItem: item}
		if s, ok := p.sentiments[item.URL]; ok {
			sentiment := s
			out[i].Sentiment = &sentiment
		}
	}
	return out
}

type stubSummarizer struct {
	summary string
}

func (s *stubSummarizer) Summary(context.Context, []models.ClassifiedItem, string) string {
	return s.summary
}

func (s *stubSummarizer) TLDR(_ context.Context, date string, slot models.Slot, _ []models.ClassifiedItem) models.BriefingTLDR {
	return models.BriefingTLDR{Date: date, Slot: slot, Facts: []string{"fact"}}
}

type fakeStore struct {
	snapshotExists   bool
	existsErr        error
	previousSummary  string
	commitErrs       []error
	commitCalls      int
	committedItems   []models.ClassifiedItem
	committed        *models.SnapshotWrite
	tldrSaved        *models.BriefingTLDR
	tldrErr          error
	ecosystemEntries []models.EcosystemEntry
	itemCutoff       string
	snapshotCutoff   string
}

func (f *fakeStore) SnapshotExists(_ context.Context, _ string) (bool, error) {
	return f.snapshotExists, f.existsErr
}

func (f *fakeStore) PreviousSummary(_ context.Context, _ string) (string, error) {
	return f.previousSummary, nil
}

func (f *fakeStore) CommitRun(_ context.Context, items []models.ClassifiedItem, snapshot models.SnapshotWrite) error {
	call := f.commitCalls
	f.commitCalls++
	if call < len(f.commitErrs) && f.commitErrs[call] != nil {
		return f.commitErrs[call]
	}
	f.committedItems = items
	f.committed = &snapshot
	return nil
}

func (f *fakeStore) SaveTLDR(_ context.Context, tldr models.BriefingTLDR) error {
	if f.tldrErr != nil {
		return f.tldrErr
	}
	f.tldrSaved = &tldr
	return nil
}

func (f *fakeStore) UpsertEcosystemEntries(_ context.Context, entries []models.EcosystemEntry) (int, error) {
	f.ecosystemEntries = entries
	return len(entries), nil
}

func (f *fakeStore) SaveChangelogHighlights(_ context.Context, highlights []models.ChangelogHighlight) (int, error) {
	return len(highlights), nil
}

func (f *fakeStore) PruneItems(_ context.Context, beforeDate string) (int64, error) {
	f.itemCutoff = beforeDate
	return 3, nil
}

func (f *fakeStore) PruneSnapshots(_ context.Context, beforeDate string) (int64, error) {
	f.snapshotCutoff = beforeDate
	return 1, nil
}

func fetchedItem(url string, score float64) models.FetchedItem {
	return models.FetchedItem{
		Source:     models.SourceReddit,
		Category:   models.CategoryNews,
		Title:      "title " + url,
		URL:        url,
		RawMetrics: map[string]float64{"score": score},
		CreatedAt:  time.Now().Add(-1 * time.Hour),
	}
}

func newTestAggregator(store Store, fetchers []fetch.Fetcher, classifier Classifier) *Aggregator {
	agg := NewAggregator(Deps{
		Fetchers:              fetchers,
		Classifier:            classifier,
		Summarizer:            &stubSummarizer{summary: "daily summary"},
		Store:                 store,
		Logger:                slog.New(slog.NewTextHandler(io.Discard, nil)),
		ItemRetentionDays:     90,
		SnapshotRetentionDays: 365,
	})
	agg.commitPolicy = backoff.Policy{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		BackoffFactor:  1,
	}
	return agg
}

func TestRunHappyPath(t *testing.T) {
	store := &fakeStore{}
	fetchers := []fetch.Fetcher{
		&stubFetcher{name: "reddit", items: []models.FetchedItem{fetchedItem("https://a/1", 10), fetchedItem("https://a/2", 5)}},
		&stubFetcher{name: "hackernews", items: []models.FetchedItem{fetchedItem("https://b/1", 50)}},
	}
	classifier := &passthroughClassifier{sentiments: map[string]string{
		"https://a/1": models.SentimentPositive,
		"https://b/1": models.SentimentNegative,
	}}

	report, err := newTestAggregator(store, fetchers, classifier).Run(context.Background(), "2025-06-01", models.SlotMorning, false)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if report.Skipped {
		t.Error("expected run not to be skipped")
	}
	if report.TotalFetched != 3 || report.AfterDedupe != 3 {
		t.Errorf("unexpected counts: fetched=%d deduped=%d", report.TotalFetched, report.AfterDedupe)
	}
	if report.SourceCounts["reddit"] != 2 || report.SourceCounts["hackernews"] != 1 {
		t.Errorf("unexpected source counts: %v", report.SourceCounts)
	}
	if report.SampleSize != 2 {
		t.Errorf("expected sample size 2, got %d", report.SampleSize)
	}

	if store.committed == nil {
		t.Fatal("expected snapshot to be committed")
	}
	if store.committed.Summary != "daily summary" {
		t.Errorf("unexpected committed summary %q", store.committed.Summary)
	}
	for _, item := range store.committedItems {
		if item.Date != "2025-06-01" {
			t.Errorf("expected items stamped with run date, got %q", item.Date)
		}
	}

	if store.tldrSaved == nil || store.tldrSaved.Slot != models.SlotMorning {
		t.Error("expected TLDR saved for the run slot")
	}
	if report.ItemsPruned != 3 || report.SnapshotsPruned != 1 {
		t.Errorf("unexpected prune counts: %d/%d", report.ItemsPruned, report.SnapshotsPruned)
	}
}

func TestRunStampsFetchAndPublicationTimes(t *testing.T) {
	// FetchedAt is always the run clock; CreatedAt keeps the source's
	// publication time and only defaults when the source reported none.
	store := &fakeStore{}
	published := time.Date(2025, 5, 31, 8, 0, 0, 0, time.UTC)
	fetchers := []fetch.Fetcher{
		&stubFetcher{name: "reddit", items: []models.FetchedItem{
			{Source: models.SourceReddit, Category: models.CategoryNews, Title: "dated", URL: "https://a/1", CreatedAt: published},
			{Source: models.SourceReddit, Category: models.CategoryNews, Title: "undated", URL: "https://a/2"},
		}},
	}

	agg := newTestAggregator(store, fetchers, &passthroughClassifier{})
	runTime := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	agg.now = func() time.Time { return runTime }

	if _, err := agg.Run(context.Background(), "2025-06-01", models.SlotMorning, false); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	byURL := make(map[string]models.ClassifiedItem)
	for _, item := range store.committedItems {
		byURL[item.URL] = item
	}

	for url, item := range byURL {
		if !item.FetchedAt.Equal(runTime) {
			t.Errorf("%s: expected FetchedAt stamped with run time, got %v", url, item.FetchedAt)
		}
	}
	if !byURL["https://a/1"].CreatedAt.Equal(published) {
		t.Errorf("expected publication time preserved, got %v", byURL["https://a/1"].CreatedAt)
	}
	if !byURL["https://a/2"].CreatedAt.Equal(runTime) {
		t.Errorf("expected undated item defaulted to run time, got %v", byURL["https://a/2"].CreatedAt)
	}
}

func TestRunSkipsWhenSnapshotExists(t *testing.T) {
	store := &fakeStore{snapshotExists: true}

	report, err := newTestAggregator(store, nil, &passthroughClassifier{}).Run(context.Background(), "2025-06-01", models.SlotMorning, false)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if !report.Skipped {
		t.Error("expected skipped report")
	}
	if store.commitCalls != 0 {
		t.Errorf("expected no commit for skipped run, got %d", store.commitCalls)
	}
}

func TestRunForceOverridesIdempotency(t *testing.T) {
	store := &fakeStore{snapshotExists: true}
	fetchers := []fetch.Fetcher{
		&stubFetcher{name: "reddit", items: []models.FetchedItem{fetchedItem("https://a/1", 1)}},
	}

	report, err := newTestAggregator(store, fetchers, &passthroughClassifier{}).Run(context.Background(), "2025-06-01", models.SlotMidday, true)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if report.Skipped {
		t.Error("force run must not be skipped")
	}
	if store.commitCalls != 1 {
		t.Errorf("expected 1 commit, got %d", store.commitCalls)
	}
}

func TestRunIdempotencyCheckErrorIsFatal(t *testing.T) {
	store := &fakeStore{existsErr: errors.New("db down")}

	_, err := newTestAggregator(store, nil, &passthroughClassifier{}).Run(context.Background(), "2025-06-01", models.SlotMorning, false)
	if err == nil {
		t.Fatal("expected error when idempotency check fails")
	}
}

func TestRunToleratesFetcherFailures(t *testing.T) {
	store := &fakeStore{}
	fetchers := []fetch.Fetcher{
		&stubFetcher{name: "reddit", err: errors.New("rate limited")},
		&stubFetcher{name: "hackernews", items: []models.FetchedItem{fetchedItem("https://b/1", 1)}},
	}

	report, err := newTestAggregator(store, fetchers, &passthroughClassifier{}).Run(context.Background(), "2025-06-01", models.SlotMorning, false)
	if err != nil {
		t.Fatalf("partial fetch failure must not fail the run: %v", err)
	}

	if report.SourceErrors["reddit"] == "" {
		t.Error("expected reddit error recorded")
	}
	if report.SourceCounts["reddit"] != 0 {
		t.Errorf("expected zero count for failed source, got %d", report.SourceCounts["reddit"])
	}
	if len(report.Warnings) == 0 {
		t.Error("expected a warning for the failed source")
	}
	if store.committed == nil {
		t.Error("expected commit despite fetch failure")
	}
}

func TestRunAllSourcesFailStillCommits(t *testing.T) {
	store := &fakeStore{}
	fetchers := []fetch.Fetcher{
		&stubFetcher{name: "reddit", err: errors.New("down")},
		&stubFetcher{name: "hackernews", err: errors.New("down")},
	}

	report, err := newTestAggregator(store, fetchers, &passthroughClassifier{}).Run(context.Background(), "2025-06-01", models.SlotMorning, false)
	if err != nil {
		t.Fatalf("total fetch failure must degrade, not fail: %v", err)
	}

	if report.TotalFetched != 0 || report.SampleSize != 0 {
		t.Errorf("unexpected counts: %+v", report)
	}
	if store.committed == nil {
		t.Fatal("expected empty snapshot committed")
	}
}

func TestRunCommitRetriesTransientThenSucceeds(t *testing.T) {
	store := &fakeStore{
		commitErrs: []error{
			backoff.Retryable(errors.New("serialization conflict")),
			backoff.Retryable(errors.New("serialization conflict")),
			nil,
		},
	}
	fetchers := []fetch.Fetcher{
		&stubFetcher{name: "reddit", items: []models.FetchedItem{fetchedItem("https://a/1", 1)}},
	}

	_, err := newTestAggregator(store, fetchers, &passthroughClassifier{}).Run(context.Background(), "2025-06-01", models.SlotMorning, false)
	if err != nil {
		t.Fatalf("expected success on third commit attempt: %v", err)
	}

	if store.commitCalls != 3 {
		t.Errorf("expected 3 commit attempts, got %d", store.commitCalls)
	}
	if store.committed == nil {
		t.Error("expected snapshot committed on final attempt")
	}
}

func TestRunCommitExhaustedIsFatal(t *testing.T) {
	transient := backoff.Retryable(errors.New("lock timeout"))
	store := &fakeStore{commitErrs: []error{transient, transient, transient}}
	fetchers := []fetch.Fetcher{
		&stubFetcher{name: "reddit", items: []models.FetchedItem{fetchedItem("https://a/1", 1)}},
	}

	report, err := newTestAggregator(store, fetchers, &passthroughClassifier{}).Run(context.Background(), "2025-06-01", models.SlotMorning, false)
	if err == nil {
		t.Fatal("expected fatal error after exhausted retries")
	}
	if store.commitCalls != 3 {
		t.Errorf("expected 3 attempts, got %d", store.commitCalls)
	}
	if report.DurationMs < 0 {
		t.Error("expected non-negative duration in failure report")
	}
}

func TestRunCommitNonTransientFailsFast(t *testing.T) {
	store := &fakeStore{commitErrs: []error{errors.New("constraint violation")}}
	fetchers := []fetch.Fetcher{
		&stubFetcher{name: "reddit", items: []models.FetchedItem{fetchedItem("https://a/1", 1)}},
	}

	_, err := newTestAggregator(store, fetchers, &passthroughClassifier{}).Run(context.Background(), "2025-06-01", models.SlotMorning, false)
	if err == nil {
		t.Fatal("expected error for non-transient commit failure")
	}
	if store.commitCalls != 1 {
		t.Errorf("expected no retry for non-transient error, got %d attempts", store.commitCalls)
	}
}

func TestRunTLDRSaveFailureIsWarning(t *testing.T) {
	store := &fakeStore{tldrErr: errors.New("disk full")}
	fetchers := []fetch.Fetcher{
		&stubFetcher{name: "reddit", items: []models.FetchedItem{fetchedItem("https://a/1", 1)}},
	}

	report, err := newTestAggregator(store, fetchers, &passthroughClassifier{}).Run(context.Background(), "2025-06-01", models.SlotMorning, false)
	if err != nil {
		t.Fatalf("TLDR failure must not fail the run: %v", err)
	}

	found := false
	for _, w := range report.Warnings {
		if strings.Contains(w, "save tldr") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected warning for failed TLDR save, got %v", report.Warnings)
	}
}

func TestRunPruneCutoffs(t *testing.T) {
	store := &fakeStore{}
	agg := newTestAggregator(store, nil, &passthroughClassifier{})
	agg.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}

	if _, err := agg.Run(context.Background(), "2025-06-01", models.SlotMorning, false); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if store.itemCutoff != "2025-03-03" {
		t.Errorf("expected item cutoff 90 days back (2025-03-03), got %q", store.itemCutoff)
	}
	if store.snapshotCutoff != "2024-06-01" {
		t.Errorf("expected snapshot cutoff 365 days back (2024-06-01), got %q", store.snapshotCutoff)
	}
}

func TestRunPluginItemsBecomeEcosystemEntries(t *testing.T) {
	store := &fakeStore{}
	plugin := models.FetchedItem{
		Source:     models.SourceGitHub,
		Category:   models.CategoryPlugin,
		Title:      "alice/cool-hook",
		URL:        "https://github.com/alice/cool-hook",
		Author:     "alice",
		RawMetrics: map[string]float64{"stars": 42},
		CreatedAt:  time.Now(),
	}
	fetchers := []fetch.Fetcher{
		&stubFetcher{name: "github", items: []models.FetchedItem{plugin}},
	}

	_, err := newTestAggregator(store, fetchers, &passthroughClassifier{}).Run(context.Background(), "2025-06-01", models.SlotMorning, false)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(store.ecosystemEntries) != 1 {
		t.Fatalf("expected 1 ecosystem entry, got %d", len(store.ecosystemEntries))
	}
	entry := store.ecosystemEntries[0]
	if entry.Name != "alice/cool-hook" || entry.Stars != 42 || entry.Type != models.EntryPlugin {
		t.Errorf("unexpected entry: %+v", entry)
	}
}

type panickingClassifier struct{}

func (panickingClassifier) Classify(context.Context, []models.FetchedItem) []models.ClassifiedItem {
	panic("nil response body")
}

func TestRunRecoversFromCollaboratorPanic(t *testing.T) {
	store := &fakeStore{}
	fetchers := []fetch.Fetcher{
		&stubFetcher{name: "reddit", items: []models.FetchedItem{fetchedItem("https://a/1", 1)}},
	}

	report, err := newTestAggregator(store, fetchers, panickingClassifier{}).Run(context.Background(), "2025-06-01", models.SlotMorning, false)
	if err == nil {
		t.Fatal("expected error from panicking classifier")
	}
	if !strings.Contains(err.Error(), "panic") {
		t.Errorf("expected panic error, got %v", err)
	}
	if report.DurationMs < 0 {
		t.Error("expected non-negative duration in failure report")
	}
	if store.commitCalls != 0 {
		t.Errorf("expected no commit after panic, got %d", store.commitCalls)
	}
}

func TestReportWarningsAreStrings(t *testing.T) {
	// Warning formatting must never panic on odd inputs.
	store := &fakeStore{}
	fetchers := []fetch.Fetcher{
		&stubFetcher{name: "weird", err: fmt.Errorf("wrapped: %w", errors.New("inner"))},
	}

	report, err := newTestAggregator(store, fetchers, &passthroughClassifier{}).Run(context.Background(), "2025-06-01", models.SlotMorning, false)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(report.Warnings) != 1 {
		t.Errorf("expected 1 warning, got %v", report.Warnings)
	}
}
