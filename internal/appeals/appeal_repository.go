package appeals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aanganwadi/internal/repository"
	custom_error "aanganwadi/pkg/errors"
	"aanganwadi/pkg/metadata"
	"aanganwadi/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"
)

// Repository persists appeals. Save appends a status history entry whenever
// the status of an existing appeal differs from the stored one.
type Repository interface {
	Save(ctx context.Context, appeal *models.Appeal) error
	Get(ctx context.Context, id int) (*models.Appeal, error)
	List(ctx context.Context, conditions repository.QueryBuilder) ([]models.Appeal, error)
	Stats(ctx context.Context) (*models.AppealStats, error)
}

type appealRepositoryImpl struct {
	repository *repository.Repository
	now        func() time.Time
}

func NewRepository(r *repository.Repository) Repository {
	return &appealRepositoryImpl{repository: r, now: time.Now}
}

var listAliases = map[string]string{
	"status":         "status",
	"urgency":        "urgency",
	"center_code":    "center_code",
	"coordinator_id": "coordinator_id",
	"is_archived":    "is_archived",
}

type savedRow struct {
	ID            int       `db:"id"`
	StatusVersion int       `db:"status_version"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r *appealRepositoryImpl) Save(ctx context.Context, appeal *models.Appeal) error {
	return r.repository.Transaction(ctx, func(tx *goqu.TxDatabase) error {
		if appeal.IsNew() {
			return r.insert(ctx, tx, appeal)
		}
		return r.update(ctx, tx, appeal)
	})
}

func (r *appealRepositoryImpl) insert(ctx context.Context, tx *goqu.TxDatabase, appeal *models.Appeal) error {
	if appeal.AppealCode == "" {
		var seq int64
		if _, err := tx.Select(goqu.Func("nextval", "appeal_code_seq")).ScanValContext(ctx, &seq); err != nil {
			return fmt.Errorf("failed to reserve appeal code: %w", err)
		}
		appeal.AppealCode = metadata.NewAppealCode(seq).String()
	}

	record, err := appealColumns(appeal)
	if err != nil {
		return err
	}
	record["appeal_code"] = appeal.AppealCode
	record["coordinator_id"] = appeal.CoordinatorID

	var row savedRow
	found, err := tx.Insert("appeals").
		Rows(record).
		Returning("id", "status_version", "created_at", "updated_at").
		Executor().
		ScanStructContext(ctx, &row)
	if err != nil {
		return wrapPQ(err, "failed to insert appeal")
	}
	if !found {
		return errors.New("insert returned no row")
	}

	appeal.ID = row.ID
	appeal.StatusVersion = row.StatusVersion
	appeal.CreatedAt = row.CreatedAt
	appeal.UpdatedAt = row.UpdatedAt
	if appeal.StatusUpdates == nil {
		appeal.StatusUpdates = []models.StatusUpdate{}
	}
	return nil
}

func (r *appealRepositoryImpl) update(ctx context.Context, tx *goqu.TxDatabase, appeal *models.Appeal) error {
	var previous string
	found, err := tx.From("appeals").
		Select("status").
		Where(goqu.Ex{"id": appeal.ID}).
		ForUpdate(exp.Wait).
		ScanValContext(ctx, &previous)
	if err != nil {
		return fmt.Errorf("failed to lock appeal: %w", err)
	}
	if !found {
		return custom_error.NotFound("appeal", appeal.ID)
	}

	record, err := appealColumns(appeal)
	if err != nil {
		return err
	}

	// status_version and updated_at are maintained by the table trigger
	var row savedRow
	if _, err := tx.Update("appeals").
		Set(record).
		Where(goqu.Ex{"id": appeal.ID}).
		Returning("id", "status_version", "created_at", "updated_at").
		Executor().
		ScanStructContext(ctx, &row); err != nil {
		return wrapPQ(err, "failed to update appeal")
	}
	appeal.StatusVersion = row.StatusVersion
	appeal.UpdatedAt = row.UpdatedAt

	if models.AppealStatus(previous) == appeal.Status {
		return nil
	}

	update := appeal.NewStatusUpdate(r.now())
	if _, err := tx.Insert("appeal_status_updates").
		Rows(goqu.Record{
			"appeal_id":  update.AppealID,
			"status":     update.Status,
			"message":    update.Message,
			"updated_by": update.UpdatedBy,
			"created_at": update.Timestamp,
		}).
		Returning("id").
		Executor().
		ScanValContext(ctx, &update.ID); err != nil {
		return wrapPQ(err, "failed to record status update")
	}
	appeal.StatusUpdates = append(appeal.StatusUpdates, update)
	return nil
}

func appealColumns(a *models.Appeal) (goqu.Record, error) {
	situation, err := nullableJSON(a.CurrentSituation, a.CurrentSituation == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal current situation: %w", err)
	}
	tags, err := nullableJSON(a.Tags, a.Tags == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}
	feedback, err := nullableJSON(a.CoordinatorFeedback, a.CoordinatorFeedback == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal coordinator feedback: %w", err)
	}

	return goqu.Record{
		"center_code":               a.CenterCode,
		"center_name":               a.CenterName,
		"title":                     a.Title,
		"description":               a.Description,
		"justification":             a.Justification,
		"urgency":                   a.Urgency,
		"requested_items":           a.RequestedItems,
		"current_situation":         situation,
		"tags":                      tags,
		"status":                    a.Status,
		"reviewed_by":               a.ReviewedBy,
		"review_date":               a.ReviewDate,
		"review_comments":           a.ReviewComments,
		"approved_by":               a.ApprovedBy,
		"approval_date":             a.ApprovalDate,
		"approval_comments":         a.ApprovalComments,
		"approved_items":            a.ApprovedItems,
		"fulfillment_status":        a.FulfillmentStatus,
		"fulfilled_items":           a.FulfilledItems,
		"expected_fulfillment_date": a.ExpectedFulfillmentDate,
		"actual_fulfillment_date":   a.ActualFulfillmentDate,
		"coordinator_feedback":      feedback,
		"is_archived":               a.IsArchived,
		"archived_date":             a.ArchivedDate,
		"archived_by":               a.ArchivedBy,
	}, nil
}

func nullableJSON(v any, isNil bool) (any, error) {
	if isNil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (r *appealRepositoryImpl) Get(ctx context.Context, id int) (*models.Appeal, error) {
	var flat models.FlatAppealRecord
	found, err := r.repository.GoquDBWrapper.From("appeals").Where(goqu.Ex{"id": id}).ScanStructContext(ctx, &flat)
	if err != nil {
		return nil, fmt.Errorf("failed to get appeal: %w", err)
	}
	if !found {
		return nil, custom_error.NotFound("appeal", id)
	}

	appeal, err := flat.TransformToAppeal()
	if err != nil {
		return nil, err
	}

	appeal.StatusUpdates = []models.StatusUpdate{}
	err = r.repository.GoquDBWrapper.From("appeal_status_updates").
		Where(goqu.Ex{"appeal_id": id}).
		Order(goqu.I("id").Asc()).
		ScanStructsContext(ctx, &appeal.StatusUpdates)
	if err != nil {
		return nil, fmt.Errorf("failed to get status updates: %w", err)
	}

	return appeal, nil
}

func (r *appealRepositoryImpl) List(ctx context.Context, conditions repository.QueryBuilder) ([]models.Appeal, error) {
	query := r.repository.GoquDBWrapper.From("appeals").
		Where(conditions.BuildConditions(listAliases)).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc())

	var flats []models.FlatAppealRecord
	if err := query.ScanStructsContext(ctx, &flats); err != nil {
		return nil, fmt.Errorf("unable to select appeals from database: %w", err)
	}

	appeals := make([]models.Appeal, 0, len(flats))
	for _, flat := range flats {
		appeal, err := flat.TransformToAppeal()
		if err != nil {
			return nil, err
		}
		appeals = append(appeals, *appeal)
	}
	return appeals, nil
}

func (r *appealRepositoryImpl) Stats(ctx context.Context) (*models.AppealStats, error) {
	stats := &models.AppealStats{
		ByStatus:  []models.CountBucket{},
		ByUrgency: []models.CountBucket{},
		ByCenter:  []models.CenterBucket{},
	}

	for column, dst := range map[string]*[]models.CountBucket{"status": &stats.ByStatus, "urgency": &stats.ByUrgency} {
		query := r.repository.GoquDBWrapper.From("appeals").
			Select(goqu.C(column).As("key"), goqu.COUNT("*").As("count")).
			GroupBy(column).
			Order(goqu.C(column).Asc())
		if err := query.ScanStructsContext(ctx, dst); err != nil {
			return nil, fmt.Errorf("unable to aggregate appeals by %s: %w", column, err)
		}
	}

	byCenter := r.repository.GoquDBWrapper.From("appeals").
		Select(
			goqu.C("center_code"),
			goqu.MAX("center_name").As("center_name"),
			goqu.COUNT("*").As("count"),
		).
		GroupBy("center_code").
		Order(goqu.L("count").Desc(), goqu.C("center_code").Asc())
	if err := byCenter.ScanStructsContext(ctx, &stats.ByCenter); err != nil {
		return nil, fmt.Errorf("unable to aggregate appeals by center: %w", err)
	}

	return stats, nil
}

func wrapPQ(err error, message string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return custom_error.WrapDBError(message+": "+pqErr.Message, string(pqErr.Code))
	}
	return fmt.Errorf("%s: %w", message, err)
}
