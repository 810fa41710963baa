package appeals_test

import (
	"context"
	"testing"
	"time"

	"aanganwadi/internal/appeals"
	"aanganwadi/internal/repository"
	"aanganwadi/pkg/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLAppealRepository(t *testing.T) (appeals.Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return appeals.NewRepository(repository.NewRepository(db)), mock
}

func storedAppeal(status models.AppealStatus) *models.Appeal {
	reviewer := 1
	return &models.Appeal{
		ID:             5,
		AppealCode:     "APP000005",
		CoordinatorID:  2,
		CenterCode:     "AW01",
		Title:          "Books",
		Justification:  "New intake",
		Urgency:        models.UrgencyMedium,
		RequestedItems: models.LineItems{models.NewGoodsLine(models.ItemBooks, "Story books", 10)},
		Status:         status,
		StatusVersion:  2,
		ReviewedBy:     &reviewer,
	}
}

func expectLockAndUpdate(mock sqlmock.Sqlmock, previous string, version int) {
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "status" FROM "appeals" WHERE \("id" = 5\).*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(previous))
	mock.ExpectQuery(`UPDATE "appeals" SET .* WHERE \("id" = 5\) RETURNING "id", "status_version", "created_at", "updated_at"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status_version", "created_at", "updated_at"}).
			AddRow(5, version, now, now))
}

func TestSaveSameStatusAddsNoHistory(t *testing.T) {
	repo, mock := newSQLAppealRepository(t)
	expectLockAndUpdate(mock, "approved", 2)
	mock.ExpectCommit()

	appeal := storedAppeal(models.AppealApproved)
	require.NoError(t, repo.Save(context.Background(), appeal))

	assert.Empty(t, appeal.StatusUpdates)
	assert.Equal(t, 2, appeal.StatusVersion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveStatusChangeAddsOneHistoryRow(t *testing.T) {
	repo, mock := newSQLAppealRepository(t)
	expectLockAndUpdate(mock, "under_review", 3)
	mock.ExpectQuery(`INSERT INTO "appeal_status_updates" \("appeal_id", "created_at", "message", "status", "updated_by"\) ` +
		`VALUES \(5, .*, 'Status changed to approved', 'approved', 1\) RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(41))
	mock.ExpectCommit()

	appeal := storedAppeal(models.AppealApproved)
	require.NoError(t, repo.Save(context.Background(), appeal))

	require.Len(t, appeal.StatusUpdates, 1)
	assert.Equal(t, 41, appeal.StatusUpdates[0].ID)
	assert.Equal(t, models.AppealApproved, appeal.StatusUpdates[0].Status)
	assert.Equal(t, 3, appeal.StatusVersion)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveMissingAppealRollsBack(t *testing.T) {
	repo, mock := newSQLAppealRepository(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "status" FROM "appeals"`).
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), storedAppeal(models.AppealApproved))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
