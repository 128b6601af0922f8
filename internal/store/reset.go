package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/histnorm/internal/logging"
	"github.com/JonMunkholm/histnorm/internal/schema"
)

// ResetTimeout is the maximum duration for reset operations.
const ResetTimeout = 30 * time.Second

type resetFn func(ctx context.Context, tx pgx.Tx) (int64, error)

// Reset deletes the stored rows of the given datasets, or every row when
// none are given. All deletions run in one transaction.
func (s *ObservationStore) Reset(ctx context.Context, datasetIDs ...string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	var resets []resetFn
	if len(datasetIDs) == 0 {
		resets = append(resets, s.resetAll)
	}
	for _, id := range datasetIDs {
		resets = append(resets, s.resetDataset(id))
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	total, err := runResets(ctx, tx, resets)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	logging.FromContext(ctx).Info("observations reset", "datasets", datasetIDs, "deleted", total)
	return total, nil
}

func (s *ObservationStore) resetAll(ctx context.Context, tx pgx.Tx) (int64, error) {
	tag, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s", pgx.Identifier{s.table}.Sanitize()))
	if err != nil {
		return 0, fmt.Errorf("reset %s: %w", s.table, err)
	}
	return tag.RowsAffected(), nil
}

func (s *ObservationStore) resetDataset(id string) resetFn {
	return func(ctx context.Context, tx pgx.Tx) (int64, error) {
		del := fmt.Sprintf("DELETE FROM %s WHERE %s = $1",
			pgx.Identifier{s.table}.Sanitize(),
			pgx.Identifier{schema.ID.Dimension()}.Sanitize(),
		)
		tag, err := tx.Exec(ctx, del, id)
		if err != nil {
			return 0, fmt.Errorf("reset %s: %w", id, err)
		}
		return tag.RowsAffected(), nil
	}
}

func runResets(ctx context.Context, tx pgx.Tx, resets []resetFn) (int64, error) {
	var total int64
	for _, reset := range resets {
		n, err := reset(ctx, tx)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
