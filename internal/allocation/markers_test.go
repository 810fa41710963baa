package allocation

import (
	"context"
	"errors"
	"testing"

	"aanganwadi/internal/repository"
	"aanganwadi/pkg/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const claimQuery = `INSERT INTO "allocation_markers" \("appeal_id", "status", "status_version", "trigger_source"\) ` +
	`VALUES \(10, 'approved', 2, '(save|watcher)'\) ON CONFLICT DO NOTHING`

func newSQLMarkers(t *testing.T) (*PostgresMarkerStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMarkerStore(repository.NewRepository(db)), mock
}

func TestClaimFirstCallerWins(t *testing.T) {
	markers, mock := newSQLMarkers(t)
	mock.ExpectExec(claimQuery).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(claimQuery).WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := markers.Claim(context.Background(), 10, 2, models.AppealApproved, TriggerSave)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = markers.Claim(context.Background(), 10, 2, models.AppealApproved, TriggerWatcher)
	require.NoError(t, err)
	assert.False(t, claimed)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimReportsStorageError(t *testing.T) {
	markers, mock := newSQLMarkers(t)
	mock.ExpectExec(claimQuery).WillReturnError(errors.New("connection reset"))

	claimed, err := markers.Claim(context.Background(), 10, 2, models.AppealApproved, TriggerSave)
	require.Error(t, err)
	assert.False(t, claimed)
}
