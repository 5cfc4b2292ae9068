package database

import (
	"context"
	"database/sql"

	"github.com/daybrew/pulse/internal/models"
)

// Store bundles the repositories behind the persistence surface the pipeline
// and API handlers consume.
type Store struct {
	db         *sql.DB
	Items      *ItemRepository
	Snapshots  *SnapshotRepository
	Briefings  *BriefingRepository
	Ecosystem  *EcosystemRepository
	Changelog  *ChangelogRepository
	Telemetry  *TelemetryRepository
	pipelineTx *PipelineTx
}

// NewStore wires all repositories over one connection pool.
func NewStore(db *sql.DB) *Store {
	items := NewItemRepository(db)
	snapshots := NewSnapshotRepository(db)

	return &Store{
		db:         db,
		Items:      items,
		Snapshots:  snapshots,
		Briefings:  NewBriefingRepository(db),
		Ecosystem:  NewEcosystemRepository(db),
		Changelog:  NewChangelogRepository(db),
		Telemetry:  NewTelemetryRepository(db),
		pipelineTx: NewPipelineTx(db, items, snapshots),
	}
}

// DB exposes the underlying pool for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// SnapshotExists implements the pipeline idempotency check.
func (s *Store) SnapshotExists(ctx context.Context, date string) (bool, error) {
	return s.Snapshots.Exists(ctx, date)
}

// PreviousSummary returns the newest summary before the given date.
func (s *Store) PreviousSummary(ctx context.Context, beforeDate string) (string, error) {
	return s.Snapshots.LatestSummaryBefore(ctx, beforeDate)
}

// CommitRun performs one transactional write attempt for a pipeline run.
func (s *Store) CommitRun(ctx context.Context, items []models.ClassifiedItem, snapshot models.SnapshotWrite) error {
	return s.pipelineTx.Run(ctx, items, snapshot)
}

// SaveTLDR persists the structured at-a-glance block.
func (s *Store) SaveTLDR(ctx context.Context, tldr models.BriefingTLDR) error {
	return s.Briefings.Upsert(ctx, tldr)
}

// UpsertEcosystemEntries persists catalog entries.
func (s *Store) UpsertEcosystemEntries(ctx context.Context, entries []models.EcosystemEntry) (int, error) {
	return s.Ecosystem.UpsertMany(ctx, entries)
}

// SaveChangelogHighlights persists classified releases.
func (s *Store) SaveChangelogHighlights(ctx context.Context, highlights []models.ChangelogHighlight) (int, error) {
	return s.Changelog.UpsertMany(ctx, highlights)
}

// PruneItems removes items older than the cutoff date.
func (s *Store) PruneItems(ctx context.Context, beforeDate string) (int64, error) {
	return s.Items.DeleteOlderThan(ctx, beforeDate)
}

// PruneSnapshots removes snapshots older than the cutoff date.
func (s *Store) PruneSnapshots(ctx context.Context, beforeDate string) (int64, error) {
	return s.Snapshots.DeleteOlderThan(ctx, beforeDate)
}

// LatestSnapshot returns the most recent daily snapshot for the health check.
func (s *Store) LatestSnapshot(ctx context.Context) (*models.SentimentSnapshot, error) {
	return s.Snapshots.Latest(ctx)
}

// GetSnapshot returns the snapshot for one date, or nil when none exists.
func (s *Store) GetSnapshot(ctx context.Context, date string) (*models.SentimentSnapshot, error) {
	return s.Snapshots.Get(ctx, date)
}

// GetTLDR returns the at-a-glance block for a (date, slot), or nil.
func (s *Store) GetTLDR(ctx context.Context, date string, slot models.Slot) (*models.BriefingTLDR, error) {
	return s.Briefings.Get(ctx, date, slot)
}

// ListItems returns classified items matching the filter.
func (s *Store) ListItems(ctx context.Context, filter ItemFilter) ([]models.ClassifiedItem, error) {
	return s.Items.List(ctx, filter)
}

// ListEcosystem returns catalog entries, most mentioned first.
func (s *Store) ListEcosystem(ctx context.Context, entryType models.EntryType, limit uint64) ([]models.EcosystemEntry, error) {
	return s.Ecosystem.List(ctx, entryType, limit)
}

// RecentChangelog returns the newest classified releases.
func (s *Store) RecentChangelog(ctx context.Context, limit int) ([]models.ChangelogHighlight, error) {
	return s.Changelog.Recent(ctx, limit)
}

// CountItemsBySource returns per-source item counts for one date.
func (s *Store) CountItemsBySource(ctx context.Context, date string) (map[string]int, error) {
	return s.Items.CountBySource(ctx, date)
}

// UpsertTelemetry writes one review-telemetry record.
func (s *Store) UpsertTelemetry(ctx context.Context, entry models.ReviewTelemetryEntry) error {
	return s.Telemetry.Upsert(ctx, entry)
}
