package allocation

import (
	"context"
	"fmt"

	"aanganwadi/internal/repository"
	"aanganwadi/pkg/models"

	"github.com/doug-martin/goqu/v9"
)

// MarkerStore records "allocation applied for appeal X at status version Y".
type MarkerStore interface {
	// Claim atomically sets the marker and reports whether this caller set it.
	Claim(ctx context.Context, appealID, statusVersion int, status models.AppealStatus, trigger Trigger) (bool, error)
}

type PostgresMarkerStore struct {
	repository *repository.Repository
}

func NewMarkerStore(r *repository.Repository) *PostgresMarkerStore {
	return &PostgresMarkerStore{repository: r}
}

func (s *PostgresMarkerStore) Claim(ctx context.Context, appealID, statusVersion int, status models.AppealStatus, trigger Trigger) (bool, error) {
	result, err := s.repository.GoquDBWrapper.Insert("allocation_markers").
		Rows(goqu.Record{
			"appeal_id":      appealID,
			"status_version": statusVersion,
			"status":         status,
			"trigger_source": trigger,
		}).
		OnConflict(goqu.DoNothing()).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to claim allocation marker: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result: %w", err)
	}
	return affected == 1, nil
}
