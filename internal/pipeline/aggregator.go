package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/daybrew/pulse/internal/backoff"
	"github.com/daybrew/pulse/internal/fetch"
	"github.com/daybrew/pulse/internal/models"
)

// Classifier assigns sentiment and structure to fetched items. It is total:
// one output per input, never an error.
type Classifier interface {
	Classify(ctx context.Context, items []models.FetchedItem) []models.ClassifiedItem
}

// Summarizer produces the narrative summary and the structured TL;DR, with
// internal fallbacks instead of errors.
type Summarizer interface {
	Summary(ctx context.Context, items []models.ClassifiedItem, previousSummary string) string
	TLDR(ctx context.Context, date string, slot models.Slot, items []models.ClassifiedItem) models.BriefingTLDR
}

// ChangelogClassifier extracts highlights from raw releases.
type ChangelogClassifier interface {
	Classify(ctx context.Context, date string, releases []models.RawRelease, diffStats map[string]models.DiffStats) ([]models.ChangelogHighlight, []string)
}

// ReleaseSource provides recent releases of the tracked repository.
type ReleaseSource interface {
	Releases(ctx context.Context) ([]models.RawRelease, map[string]models.DiffStats, error)
}

// EcosystemSource provides catalog entries from the community list.
type EcosystemSource interface {
	EcosystemEntries(ctx context.Context) ([]models.EcosystemEntry, error)
}

// Store is the persistence surface the pipeline needs. CommitRun performs a
// single transactional attempt and marks transient failures with
// backoff.RetryableError so the pipeline's retry wrapper can distinguish them.
type Store interface {
	SnapshotExists(ctx context.Context, date string) (bool, error)
	PreviousSummary(ctx context.Context, beforeDate string) (string, error)
	CommitRun(ctx context.Context, items []models.ClassifiedItem, snapshot models.SnapshotWrite) error
	SaveTLDR(ctx context.Context, tldr models.BriefingTLDR) error
	UpsertEcosystemEntries(ctx context.Context, entries []models.EcosystemEntry) (int, error)
	SaveChangelogHighlights(ctx context.Context, highlights []models.ChangelogHighlight) (int, error)
	PruneItems(ctx context.Context, beforeDate string) (int64, error)
	PruneSnapshots(ctx context.Context, beforeDate string) (int64, error)
}

// RunRecorder receives pipeline run outcomes for metrics.
type RunRecorder interface {
	RecordPipelineRun(status string, duration time.Duration)
}

// Report is the structured outcome of one aggregation run.
type Report struct {
	RunID            string            `json:"runId"`
	Date             string            `json:"date"`
	Slot             models.Slot       `json:"slot"`
	Skipped          bool              `json:"skipped"`
	SourceCounts     map[string]int    `json:"sourceCounts,omitempty"`
	SourceErrors     map[string]string `json:"sourceErrors,omitempty"`
	TotalFetched     int               `json:"totalFetched"`
	AfterDedupe      int               `json:"afterDedupe"`
	SampleSize       int               `json:"sampleSize"`
	PositivePct      int               `json:"positivePct"`
	NegativePct      int               `json:"negativePct"`
	EcosystemUpserts int               `json:"ecosystemUpserts"`
	ChangelogCount   int               `json:"changelogCount"`
	ItemsPruned      int64             `json:"itemsPruned"`
	SnapshotsPruned  int64             `json:"snapshotsPruned"`
	Warnings         []string          `json:"warnings,omitempty"`
	DurationMs       int64             `json:"durationMs"`
}

// Deps wires an Aggregator. Releases and Ecosystem may be nil; those
// enrichment steps are then skipped.
type Deps struct {
	Fetchers              []fetch.Fetcher
	Classifier            Classifier
	Summarizer            Summarizer
	Changelog             ChangelogClassifier
	Releases              ReleaseSource
	Ecosystem             EcosystemSource
	Store                 Store
	Logger                *slog.Logger
	Metrics               RunRecorder
	ItemRetentionDays     int
	SnapshotRetentionDays int
}

// Aggregator orchestrates one briefing run end to end: fetch, dedupe, rank,
// classify, summarize, commit, enrich, prune.
type Aggregator struct {
	deps         Deps
	commitPolicy backoff.Policy
	now          func() time.Time
}

// NewAggregator returns an aggregator with the production commit retry
// policy: 3 attempts with 1s/2s backoff on transient database errors.
func NewAggregator(deps Deps) *Aggregator {
	if deps.ItemRetentionDays <= 0 {
		deps.ItemRetentionDays = 90
	}
	if deps.SnapshotRetentionDays <= 0 {
		deps.SnapshotRetentionDays = 365
	}

	return &Aggregator{
		deps: deps,
		commitPolicy: backoff.Policy{
			MaxRetries:     2,
			InitialBackoff: 1 * time.Second,
			MaxBackoff:     4 * time.Second,
			BackoffFactor:  2.0,
			Jitter:         true,
		},
		now: time.Now,
	}
}

// Run executes one aggregation for the given date and slot. A run for a date
// that already has a snapshot is skipped unless force is set. Partial source
// failures degrade to warnings; only the idempotency check and the final
// commit are fatal.
func (a *Aggregator) Run(ctx context.Context, date string, slot models.Slot, force bool) (report Report, err error) {
	start := a.now()
	report = Report{
		RunID: uuid.New().String(),
		Date:  date,
		Slot:  slot,
	}
	logger := a.deps.Logger.With("run_id", report.RunID, "date", date, "slot", slot)

	// A panicking collaborator must surface as a failed run, not take down
	// the caller.
	defer func() {
		if r := recover(); r != nil {
			report.DurationMs = time.Since(start).Milliseconds()
			a.record("error", time.Since(start))
			logger.Error("aggregation panicked", "panic", r)
			err = fmt.Errorf("aggregation panic: %v", r)
		}
	}()

	fail := func(err error) (Report, error) {
		report.DurationMs = time.Since(start).Milliseconds()
		a.record("error", time.Since(start))
		return report, err
	}

	if !force {
		exists, err := a.deps.Store.SnapshotExists(ctx, date)
		if err != nil {
			return fail(fmt.Errorf("idempotency check: %w", err))
		}
		if exists {
			logger.Info("briefing already aggregated, skipping")
			report.Skipped = true
			report.DurationMs = time.Since(start).Milliseconds()
			a.record("skipped", time.Since(start))
			return report, nil
		}
	}

	// Fan-out fetch with per-source isolation.
	items, counts, sourceErrs := a.fetchAll(ctx, date)
	report.SourceCounts = counts
	report.SourceErrors = sourceErrs
	report.TotalFetched = len(items)
	for source, msg := range sourceErrs {
		report.Warnings = append(report.Warnings, fmt.Sprintf("fetch %s: %s", source, msg))
	}
	logger.Info("fetch complete", "total", len(items), "failed_sources", len(sourceErrs))

	deduped := Dedupe(items)
	ranked := Rank(deduped, a.now())
	report.AfterDedupe = len(ranked)

	classified := a.deps.Classifier.Classify(ctx, ranked)

	previousSummary, err := a.deps.Store.PreviousSummary(ctx, date)
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("previous summary lookup: %v", err))
		previousSummary = ""
	}
	summary := a.deps.Summarizer.Summary(ctx, classified, previousSummary)

	snapshot := buildSnapshot(date, classified, summary)
	report.SampleSize = snapshot.SampleSize
	report.PositivePct = snapshot.PositivePct
	report.NegativePct = snapshot.NegativePct

	// The transactional write is the one step that must succeed.
	commitErr := backoff.Retry(ctx, a.commitPolicy, func() error {
		return a.deps.Store.CommitRun(ctx, classified, snapshot)
	})
	if commitErr != nil {
		return fail(fmt.Errorf("commit run: %w", commitErr))
	}
	logger.Info("run committed", "items", len(classified), "sample_size", snapshot.SampleSize)

	// Everything past the commit is best-effort enrichment.
	tldr := a.deps.Summarizer.TLDR(ctx, date, slot, classified)
	if err := a.deps.Store.SaveTLDR(ctx, tldr); err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("save tldr: %v", err))
	}

	report.EcosystemUpserts = a.upsertEcosystem(ctx, classified, &report)
	report.ChangelogCount = a.classifyChangelog(ctx, date, &report)

	report.ItemsPruned, report.SnapshotsPruned = a.prune(ctx, &report)

	report.DurationMs = time.Since(start).Milliseconds()
	a.record("success", time.Since(start))
	logger.Info("aggregation complete",
		"duration_ms", report.DurationMs,
		"warnings", len(report.Warnings))

	return report, nil
}

func (a *Aggregator) fetchAll(ctx context.Context, date string) ([]models.FetchedItem, map[string]int, map[string]string) {
	results := fetch.FetchAll(ctx, a.deps.Fetchers)

	counts := make(map[string]int, len(results))
	sourceErrs := make(map[string]string)
	var items []models.FetchedItem

	now := a.now().UTC()
	for _, result := range results {
		if result.Err != nil {
			sourceErrs[result.Source] = result.Err.Error()
			counts[result.Source] = 0
			continue
		}
		counts[result.Source] = len(result.Items)

		for _, item := range result.Items {
			item.Date = date
			// FetchedAt is the run timestamp; CreatedAt is the publication
			// time reported by the source, defaulted when the source has none.
			item.FetchedAt = now
			if item.CreatedAt.IsZero() {
				item.CreatedAt = now
			}
			items = append(items, item)
		}
	}

	return items, counts, sourceErrs
}

// upsertEcosystem merges catalog entries from the awesome list with plugin
// items discovered by the GitHub search.
func (a *Aggregator) upsertEcosystem(ctx context.Context, classified []models.ClassifiedItem, report *Report) int {
	var entries []models.EcosystemEntry

	if a.deps.Ecosystem != nil {
		catalog, err := a.deps.Ecosystem.EcosystemEntries(ctx)
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("ecosystem catalog: %v", err))
		} else {
			entries = append(entries, catalog...)
		}
	}

	for _, item := range classified {
		if item.Source != models.SourceGitHub || item.Category != models.CategoryPlugin {
			continue
		}
		entries = append(entries, models.EcosystemEntry{
			Name:         item.Title,
			Type:         models.EntryPlugin,
			Author:       item.Author,
			Description:  item.Excerpt,
			GitHubURL:    item.URL,
			Stars:        int(item.RawMetrics["stars"]),
			CategoryTags: item.TopicTags,
			MentionCount: 1,
		})
	}

	if len(entries) == 0 {
		return 0
	}

	n, err := a.deps.Store.UpsertEcosystemEntries(ctx, entries)
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("ecosystem upsert: %v", err))
		return 0
	}
	return n
}

func (a *Aggregator) classifyChangelog(ctx context.Context, date string, report *Report) int {
	if a.deps.Releases == nil || a.deps.Changelog == nil {
		return 0
	}

	releases, diffStats, err := a.deps.Releases.Releases(ctx)
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("list releases: %v", err))
		return 0
	}
	if len(releases) == 0 {
		return 0
	}

	highlights, warnings := a.deps.Changelog.Classify(ctx, date, releases, diffStats)
	report.Warnings = append(report.Warnings, warnings...)
	if len(highlights) == 0 {
		return 0
	}

	n, err := a.deps.Store.SaveChangelogHighlights(ctx, highlights)
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("save changelog: %v", err))
		return 0
	}
	return n
}

func (a *Aggregator) prune(ctx context.Context, report *Report) (int64, int64) {
	now := a.now()
	itemCutoff := now.AddDate(0, 0, -a.deps.ItemRetentionDays).Format("2006-01-02")
	snapshotCutoff := now.AddDate(0, 0, -a.deps.SnapshotRetentionDays).Format("2006-01-02")

	itemsPruned, err := a.deps.Store.PruneItems(ctx, itemCutoff)
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("prune items: %v", err))
	}

	snapshotsPruned, err := a.deps.Store.PruneSnapshots(ctx, snapshotCutoff)
	if err != nil {
		report.Warnings = append(report.Warnings, fmt.Sprintf("prune snapshots: %v", err))
	}

	return itemsPruned, snapshotsPruned
}

func (a *Aggregator) record(status string, duration time.Duration) {
	if a.deps.Metrics != nil {
		a.deps.Metrics.RecordPipelineRun(status, duration)
	}
}
