package inventory

import (
	"context"
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
	"github.com/shopspring/decimal"
)

// Repository is the inventory ledger store. Every write path calls
// InventoryRecord.Recompute right before the row is written.
type Repository interface {
	Create(ctx context.Context, rec *models.InventoryRecord) error
	Get(ctx context.Context, id int) (*models.InventoryRecord, error)
	List(ctx context.Context, conditions repository.QueryBuilder) ([]models.InventoryRecord, error)
	LowStock(ctx context.Context) ([]models.InventoryRecord, error)
	Stats(ctx context.Context) (*models.InventoryStats, error)
	// Mutate locks the row, applies fn, recomputes and writes it back.
	Mutate(ctx context.Context, id int, fn func(rec *models.InventoryRecord) error) (*models.InventoryRecord, error)
	// Delete locks the row and removes it when guard passes.
	Delete(ctx context.Context, id int, guard func(rec *models.InventoryRecord) error) (*models.InventoryRecord, error)
	// AllocateFirstFit increments the first record of itemType whose headroom
	// covers delta. It returns nil, nil when no record qualifies.
	AllocateFirstFit(ctx context.Context, itemType models.ItemType, delta decimal.Decimal, updatedBy *int) (*FitResult, error)
}

// FitResult is a record before and after an allocation.
type FitResult struct {
	Before models.InventoryRecord
	After  models.InventoryRecord
}

type inventoryRepositoryImpl struct {
	repository *repository.Repository
	now        func() time.Time
}

func NewRepository(r *repository.Repository) Repository {
	return &inventoryRepositoryImpl{repository: r, now: time.Now}
}

var listAliases = map[string]string{
	"item_type": "item_type",
	"status":    "status",
	"category":  "category",
	"age_group": "age_group",
}

func (r *inventoryRepositoryImpl) Create(ctx context.Context, rec *models.InventoryRecord) error {
	rec.Recompute(r.now())

	return r.repository.Transaction(ctx, func(tx *goqu.TxDatabase) error {
		var seq int64
		if _, err := tx.Select(goqu.Func("nextval", "inventory_code_seq")).ScanValContext(ctx, &seq); err != nil {
			return fmt.Errorf("failed to reserve inventory code: %w", err)
		}
		rec.ItemCode = metadata.NewInventoryCode(seq).String()

		record := writableColumns(rec)
		record["item_code"] = rec.ItemCode

		found, err := tx.Insert("inventory").
			Rows(record).
			Returning("id", "created_at").
			Executor().
			ScanStructContext(ctx, rec)
		if err != nil {
			return wrapPQ(err, "failed to insert inventory record")
		}
		if !found {
			return errors.New("insert returned no row")
		}
		return nil
	})
}

func (r *inventoryRepositoryImpl) Get(ctx context.Context, id int) (*models.InventoryRecord, error) {
	var rec models.InventoryRecord
	found, err := r.repository.GoquDBWrapper.From("inventory").Where(goqu.Ex{"id": id}).ScanStructContext(ctx, &rec)
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory record: %w", err)
	}
	if !found {
		return nil, custom_error.NotFound("inventory item", id)
	}
	return &rec, nil
}

func (r *inventoryRepositoryImpl) List(ctx context.Context, conditions repository.QueryBuilder) ([]models.InventoryRecord, error) {
	query := r.repository.GoquDBWrapper.From("inventory").
		Where(conditions.BuildConditions(listAliases)).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc())

	records := []models.InventoryRecord{}
	if err := query.ScanStructsContext(ctx, &records); err != nil {
		return nil, fmt.Errorf("unable to select inventory from database: %w", err)
	}
	return records, nil
}

func (r *inventoryRepositoryImpl) LowStock(ctx context.Context) ([]models.InventoryRecord, error) {
	query := r.repository.GoquDBWrapper.From("inventory").
		Where(
			goqu.C("item_type").Neq(models.ItemMoney),
			goqu.C("available_quantity").Lte(goqu.C("minimum_stock")),
		).
		Order(goqu.I("available_quantity").Asc(), goqu.I("id").Asc())

	records := []models.InventoryRecord{}
	if err := query.ScanStructsContext(ctx, &records); err != nil {
		return nil, fmt.Errorf("unable to select low stock inventory: %w", err)
	}
	return records, nil
}

func (r *inventoryRepositoryImpl) Stats(ctx context.Context) (*models.InventoryStats, error) {
	stats := &models.InventoryStats{ByItemType: []models.ItemTypeStats{}, ByStatus: []models.CountBucket{}}

	byType := r.repository.GoquDBWrapper.From("inventory").
		Select(
			goqu.C("item_type"),
			goqu.COUNT("*").As("total_items"),
			goqu.COALESCE(goqu.SUM("total_quantity"), 0).As("total_quantity"),
			goqu.COALESCE(goqu.SUM("available_quantity"), 0).As("available_quantity"),
			goqu.COALESCE(goqu.SUM("total_amount"), 0).As("total_amount"),
			goqu.COALESCE(goqu.SUM("available_amount"), 0).As("available_amount"),
		).
		GroupBy("item_type").
		Order(goqu.C("item_type").Asc())
	if err := byType.ScanStructsContext(ctx, &stats.ByItemType); err != nil {
		return nil, fmt.Errorf("unable to aggregate inventory by item type: %w", err)
	}

	byStatus := r.repository.GoquDBWrapper.From("inventory").
		Select(goqu.C("status").As("key"), goqu.COUNT("*").As("count")).
		GroupBy("status").
		Order(goqu.C("status").Asc())
	if err := byStatus.ScanStructsContext(ctx, &stats.ByStatus); err != nil {
		return nil, fmt.Errorf("unable to aggregate inventory by status: %w", err)
	}

	return stats, nil
}

func (r *inventoryRepositoryImpl) Mutate(ctx context.Context, id int, fn func(rec *models.InventoryRecord) error) (*models.InventoryRecord, error) {
	var rec models.InventoryRecord
	err := r.repository.Transaction(ctx, func(tx *goqu.TxDatabase) error {
		found, err := tx.From("inventory").
			Where(goqu.Ex{"id": id}).
			ForUpdate(exp.Wait).
			ScanStructContext(ctx, &rec)
		if err != nil {
			return fmt.Errorf("failed to lock inventory record: %w", err)
		}
		if !found {
			return custom_error.NotFound("inventory item", id)
		}

		if err := fn(&rec); err != nil {
			return err
		}
		return r.write(ctx, tx, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *inventoryRepositoryImpl) Delete(ctx context.Context, id int, guard func(rec *models.InventoryRecord) error) (*models.InventoryRecord, error) {
	var rec models.InventoryRecord
	err := r.repository.Transaction(ctx, func(tx *goqu.TxDatabase) error {
		found, err := tx.From("inventory").
			Where(goqu.Ex{"id": id}).
			ForUpdate(exp.Wait).
			ScanStructContext(ctx, &rec)
		if err != nil {
			return fmt.Errorf("failed to lock inventory record: %w", err)
		}
		if !found {
			return custom_error.NotFound("inventory item", id)
		}
		if err := guard(&rec); err != nil {
			return err
		}

		if _, err := tx.Delete("inventory").Where(goqu.Ex{"id": id}).Executor().ExecContext(ctx); err != nil {
			return wrapPQ(err, "failed to delete inventory record")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// AllocateFirstFit picks candidates in id order and skips rows another
// transaction is already allocating from, so two allocators never both pass
// the headroom check on the same row.
func (r *inventoryRepositoryImpl) AllocateFirstFit(ctx context.Context, itemType models.ItemType, delta decimal.Decimal, updatedBy *int) (*FitResult, error) {
	headroom := goqu.L("total_quantity - allocated_quantity").Gte(delta.IntPart())
	if itemType.IsMoney() {
		headroom = goqu.L("total_amount - allocated_amount").Gte(delta)
	}

	var result *FitResult
	err := r.repository.Transaction(ctx, func(tx *goqu.TxDatabase) error {
		var rec models.InventoryRecord
		found, err := tx.From("inventory").
			Where(goqu.Ex{"item_type": itemType}, headroom).
			Order(goqu.I("id").Asc()).
			Limit(1).
			ForUpdate(exp.SkipLocked).
			ScanStructContext(ctx, &rec)
		if err != nil {
			return fmt.Errorf("failed to select inventory candidate: %w", err)
		}
		if !found {
			return nil
		}

		before := rec
		rec.Increase(delta)
		rec.UpdatedBy = updatedBy
		if err := r.write(ctx, tx, &rec); err != nil {
			return err
		}
		result = &FitResult{Before: before, After: rec}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *inventoryRepositoryImpl) write(ctx context.Context, tx *goqu.TxDatabase, rec *models.InventoryRecord) error {
	rec.Recompute(r.now())
	_, err := tx.Update("inventory").
		Set(writableColumns(rec)).
		Where(goqu.Ex{"id": rec.ID}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return wrapPQ(err, "failed to update inventory record")
	}
	return nil
}

func writableColumns(rec *models.InventoryRecord) goqu.Record {
	return goqu.Record{
		"item_type":          rec.ItemType,
		"total_amount":       rec.TotalAmount,
		"allocated_amount":   rec.AllocatedAmount,
		"available_amount":   rec.AvailableAmount,
		"item_name":          rec.ItemName,
		"item_description":   rec.ItemDescription,
		"category":           rec.Category,
		"size":               rec.Size,
		"age_group":          rec.AgeGroup,
		"total_quantity":     rec.TotalQuantity,
		"allocated_quantity": rec.AllocatedQuantity,
		"available_quantity": rec.AvailableQuantity,
		"condition":          rec.Condition,
		"source_type":        rec.SourceType,
		"source_donation_id": rec.SourceDonationID,
		"location":           rec.Location,
		"expiry_date":        rec.ExpiryDate,
		"status":             rec.Status,
		"minimum_stock":      rec.MinimumStock,
		"last_updated":       rec.LastUpdated,
		"updated_by":         rec.UpdatedBy,
		"notes":              rec.Notes,
	}
}

func wrapPQ(err error, message string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return custom_error.WrapDBError(message+": "+pqErr.Message, string(pqErr.Code))
	}
	return fmt.Errorf("%s: %w", message, err)
}
