package inventory

import (
	"context"
	"fmt"
	"strings"

	"aanganwadi/internal/repository"
	"aanganwadi/pkg/auditlog"
	custom_error "aanganwadi/pkg/errors"
	"aanganwadi/pkg/metadata"
	"aanganwadi/pkg/models"
	"aanganwadi/pkg/validation"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultLocation = "Main Warehouse"

type Service struct {
	repo      Repository
	auditLog  *auditlog.Auditlog
	validator *validation.Validator
	log       *zap.Logger
}

func NewService(repo Repository, auditLog *auditlog.Auditlog, validator *validation.Validator, log *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		auditLog:  auditLog,
		validator: validator,
		log:       log.Named("inventory"),
	}
}

func (s *Service) Create(ctx context.Context, actor models.Actor, req CreateInventoryRequest) (*models.InventoryRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	source, err := metadata.NewSourceType(req.SourceType)
	if err != nil {
		return nil, custom_error.NewValidationError("sourceType", err.Error())
	}

	rec := &models.InventoryRecord{
		ItemType:         req.ItemType,
		ItemName:         strings.TrimSpace(req.ItemName),
		ItemDescription:  req.ItemDescription,
		Category:         req.Category,
		Size:             req.Size,
		AgeGroup:         req.AgeGroup,
		Condition:        req.Condition,
		SourceType:       source.String(),
		SourceDonationID: req.SourceDonationID,
		Location:         req.Location,
		ExpiryDate:       req.ExpiryDate,
		MinimumStock:     models.DefaultMinimumStock,
		Notes:            req.Notes,
		UpdatedBy:        actor.UserRef(),
	}
	if rec.Location == "" {
		rec.Location = defaultLocation
	}
	if req.MinimumStock != nil {
		rec.MinimumStock = *req.MinimumStock
	}

	if req.ItemType.IsMoney() {
		if req.TotalAmount == nil || req.TotalAmount.IsNegative() {
			return nil, custom_error.NewValidationError("totalAmount", "is required for money and must not be negative")
		}
		rec.TotalAmount = *req.TotalAmount
	} else {
		if req.TotalQuantity == nil {
			return nil, custom_error.NewValidationError("totalQuantity", "is required for physical items")
		}
		if rec.ItemName == "" {
			return nil, custom_error.NewValidationError("itemName", "is required for physical items")
		}
		rec.TotalQuantity = *req.TotalQuantity
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	s.auditLog.Log(ctx, actor, "create", map[string]any{
		"item_code": rec.ItemCode,
		"item_type": rec.ItemType,
		"total":     totalOf(rec).String(),
	}, rec)

	return rec, nil
}

func (s *Service) Get(ctx context.Context, id int) (*models.InventoryRecord, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]models.InventoryRecord, error) {
	if filter.ItemType != "" && !models.ItemType(filter.ItemType).IsValid() {
		return nil, custom_error.NewValidationError("item_type", "unknown item type")
	}
	if filter.Status != "" && !models.StockStatus(filter.Status).IsValid() {
		return nil, custom_error.NewValidationError("status", "unknown stock status")
	}

	conditions := repository.NewQueryBuilder()
	conditions.AddCondition("item_type", filter.ItemType)
	conditions.AddCondition("status", filter.Status)
	conditions.AddCondition("category", filter.Category)
	conditions.AddCondition("age_group", filter.AgeGroup)

	return s.repo.List(ctx, conditions)
}

func (s *Service) LowStock(ctx context.Context) ([]models.InventoryRecord, error) {
	return s.repo.LowStock(ctx)
}

func (s *Service) Stats(ctx context.Context) (*models.InventoryStats, error) {
	return s.repo.Stats(ctx)
}

func (s *Service) Update(ctx context.Context, actor models.Actor, id int, req UpdateInventoryRequest) (*models.InventoryRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	rec, err := s.repo.Mutate(ctx, id, func(rec *models.InventoryRecord) error {
		if err := applyUpdate(rec, req); err != nil {
			return err
		}
		rec.UpdatedBy = actor.UserRef()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditLog.Log(ctx, actor, "update", req, rec)
	return rec, nil
}

func applyUpdate(rec *models.InventoryRecord, req UpdateInventoryRequest) error {
	if req.TotalAmount != nil {
		if !rec.ItemType.IsMoney() {
			return custom_error.NewValidationError("totalAmount", "only applies to money records")
		}
		if req.TotalAmount.LessThan(rec.AllocatedAmount) {
			return custom_error.NewValidationError("totalAmount",
				fmt.Sprintf("cannot be below the allocated amount %s", rec.AllocatedAmount))
		}
		rec.TotalAmount = *req.TotalAmount
	}
	if req.TotalQuantity != nil {
		if rec.ItemType.IsMoney() {
			return custom_error.NewValidationError("totalQuantity", "does not apply to money records")
		}
		if *req.TotalQuantity < rec.AllocatedQuantity {
			return custom_error.NewValidationError("totalQuantity",
				fmt.Sprintf("cannot be below the allocated quantity %d", rec.AllocatedQuantity))
		}
		rec.TotalQuantity = *req.TotalQuantity
	}

	setString(&rec.ItemName, req.ItemName)
	setString(&rec.ItemDescription, req.ItemDescription)
	setString(&rec.Category, req.Category)
	setString(&rec.Size, req.Size)
	setString(&rec.AgeGroup, req.AgeGroup)
	setString(&rec.Condition, req.Condition)
	setString(&rec.Location, req.Location)
	setString(&rec.Notes, req.Notes)
	if req.ExpiryDate != nil {
		rec.ExpiryDate = req.ExpiryDate
	}
	if req.MinimumStock != nil {
		rec.MinimumStock = *req.MinimumStock
	}
	return nil
}

func setString(dst *string, value *string) {
	if value != nil {
		*dst = *value
	}
}

// Allocate is the manual allocation against one named record. Unlike the
// allocation engine it does not search; it only checks the record's headroom.
func (s *Service) Allocate(ctx context.Context, actor models.Actor, id int, req AdjustRequest) (*models.InventoryRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	var delta decimal.Decimal
	rec, err := s.repo.Mutate(ctx, id, func(rec *models.InventoryRecord) error {
		var err error
		if delta, err = adjustment(rec, req); err != nil {
			return err
		}
		if delta.GreaterThan(rec.Headroom()) {
			field := "quantity"
			if rec.ItemType.IsMoney() {
				field = "amount"
			}
			return custom_error.NewValidationError(field,
				fmt.Sprintf("requested %s exceeds available %s", delta, rec.Headroom()))
		}
		rec.Increase(delta)
		rec.UpdatedBy = actor.UserRef()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Manual allocation",
		zap.String("inventory_code", rec.ItemCode),
		zap.String("delta", delta.String()),
		zap.Int("user_id", actor.UserID),
	)
	s.auditLog.Log(ctx, actor, "allocate", map[string]any{
		"delta":     delta.String(),
		"appeal_id": req.AppealID,
	}, rec)
	return rec, nil
}

// Release gives back an allocation, flooring at zero. It is only ever
// called by an operator.
func (s *Service) Release(ctx context.Context, actor models.Actor, id int, req AdjustRequest) (*models.InventoryRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	var delta decimal.Decimal
	rec, err := s.repo.Mutate(ctx, id, func(rec *models.InventoryRecord) error {
		var err error
		if delta, err = adjustment(rec, req); err != nil {
			return err
		}
		rec.Decrease(delta)
		rec.UpdatedBy = actor.UserRef()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditLog.Log(ctx, actor, "release", map[string]any{
		"delta":     delta.String(),
		"appeal_id": req.AppealID,
	}, rec)
	return rec, nil
}

func (s *Service) Delete(ctx context.Context, actor models.Actor, id int) error {
	rec, err := s.repo.Delete(ctx, id, func(rec *models.InventoryRecord) error {
		if rec.HasAllocation() {
			return custom_error.Conflict("cannot delete item with allocated stock, release allocations first")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.auditLog.Log(ctx, actor, "delete", map[string]any{"item_code": rec.ItemCode}, rec)
	return nil
}

// adjustment reads the delta matching the record's kind.
func adjustment(rec *models.InventoryRecord, req AdjustRequest) (decimal.Decimal, error) {
	if rec.ItemType.IsMoney() {
		if req.Amount == nil || !req.Amount.IsPositive() {
			return decimal.Zero, custom_error.NewValidationError("amount", "must be a positive amount for money records")
		}
		return *req.Amount, nil
	}
	if req.Quantity == nil || *req.Quantity <= 0 {
		return decimal.Zero, custom_error.NewValidationError("quantity", "must be a positive quantity for physical items")
	}
	return decimal.NewFromInt(int64(*req.Quantity)), nil
}

func totalOf(rec *models.InventoryRecord) decimal.Decimal {
	if rec.ItemType.IsMoney() {
		return rec.TotalAmount
	}
	return decimal.NewFromInt(int64(rec.TotalQuantity))
}
