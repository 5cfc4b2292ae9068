package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/daybrew/pulse/internal/backoff"
	"github.com/daybrew/pulse/internal/models"
)

// PipelineTx performs the pipeline's write step as a single transaction:
// upsert every item, resolve the representative item IDs, upsert the daily
// snapshot. All or nothing.
type PipelineTx struct {
	db        *sql.DB
	items     *ItemRepository
	snapshots *SnapshotRepository
}

// NewPipelineTx creates the transactional writer.
func NewPipelineTx(db *sql.DB, items *ItemRepository, snapshots *SnapshotRepository) *PipelineTx {
	return &PipelineTx{db: db, items: items, snapshots: snapshots}
}

// Run executes one commit attempt. Transient Postgres conflicts
// (serialization failures, deadlocks, lock timeouts) come back wrapped as
// retryable so the caller's backoff policy can re-attempt; everything else is
// terminal.
func (p *PipelineTx) Run(ctx context.Context, items []models.ClassifiedItem, snapshot models.SnapshotWrite) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("begin pipeline tx: %w", err))
	}
	defer tx.Rollback()

	for _, item := range items {
		if _, err := p.items.upsertTx(ctx, tx, item); err != nil {
			return classify(err)
		}
	}

	topPositiveID, err := findIDByURL(ctx, tx, snapshot.TopPositiveURL)
	if err != nil {
		return classify(err)
	}
	topNegativeID, err := findIDByURL(ctx, tx, snapshot.TopNegativeURL)
	if err != nil {
		return classify(err)
	}

	if err := p.snapshots.upsertTx(ctx, tx, snapshot, topPositiveID, topNegativeID); err != nil {
		return classify(err)
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit pipeline tx: %w", err))
	}

	return nil
}

func classify(err error) error {
	if isTransient(err) {
		return backoff.Retryable(err)
	}
	return err
}
