package appeals

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"aanganwadi/internal/allocation"
	"aanganwadi/internal/rate_limiter"
	"aanganwadi/internal/repository"
	"aanganwadi/pkg/auditlog"
	custom_error "aanganwadi/pkg/errors"
	"aanganwadi/pkg/models"
	"aanganwadi/pkg/roles"
	"aanganwadi/pkg/validation"

	"go.uber.org/zap"
)

// UserReader resolves the coordinator behind a submission.
type UserReader interface {
	GetUser(ctx context.Context, id int) (*models.User, error)
}

// TransitionAllocator runs allocation for an appeal that entered an approval status.
type TransitionAllocator interface {
	AllocateForTransition(ctx context.Context, appeal *models.Appeal, trigger allocation.Trigger) (*allocation.Report, error)
}

// Notifier tells users about appeal activity. Calls never fail the operation.
type Notifier interface {
	AppealSubmitted(ctx context.Context, appeal *models.Appeal, coordinator *models.User)
	AppealStatusChanged(ctx context.Context, appeal *models.Appeal)
	FulfillmentUpdated(ctx context.Context, appeal *models.Appeal)
}

type Service struct {
	repo      Repository
	users     UserReader
	allocator TransitionAllocator
	notifier  Notifier
	limiter   *rate_limiter.RateLimiter
	auditLog  *auditlog.Auditlog
	validator *validation.Validator
	log       *zap.Logger
	now       func() time.Time
}

func NewService(
	repo Repository,
	users UserReader,
	allocator TransitionAllocator,
	notifier Notifier,
	limiter *rate_limiter.RateLimiter,
	auditLog *auditlog.Auditlog,
	validator *validation.Validator,
	log *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		users:     users,
		allocator: allocator,
		notifier:  notifier,
		limiter:   limiter,
		auditLog:  auditLog,
		validator: validator,
		log:       log.Named("appeals"),
		now:       time.Now,
	}
}

// Submit files a new pending appeal for the coordinator's own center.
func (s *Service) Submit(ctx context.Context, actor models.Actor, req SubmitAppealRequest) (*models.Appeal, error) {
	if actor.Role != roles.Coordinator {
		return nil, custom_error.Forbidden("Only coordinators can create appeals")
	}

	key := strconv.Itoa(actor.UserID)
	if s.limiter != nil && !s.limiter.IsAllowed(key) {
		return nil, &custom_error.RateLimitError{RetryAfter: s.limiter.ResetAt(key).Sub(s.now())}
	}

	if err := s.validateSubmit(req); err != nil {
		return nil, err
	}

	coordinator, err := s.users.GetUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if coordinator.CenterCode == nil || *coordinator.CenterCode == "" {
		return nil, custom_error.NewValidationError("aanganwadiCode", "coordinator must be assigned to an aanganwadi")
	}

	appeal := &models.Appeal{
		CoordinatorID:           actor.UserID,
		CenterCode:              *coordinator.CenterCode,
		CenterName:              fmt.Sprintf("Aanganwadi %s", *coordinator.CenterCode),
		Title:                   strings.TrimSpace(req.Title),
		Description:             req.Description,
		Justification:           req.Justification,
		Urgency:                 req.Urgency,
		RequestedItems:          req.RequestedItems,
		CurrentSituation:        req.CurrentSituation,
		Tags:                    req.Tags,
		ExpectedFulfillmentDate: req.ExpectedFulfillmentDate,
		Status:                  models.AppealPending,
		FulfillmentStatus:       models.FulfillmentNotStarted,
		FulfilledItems:          models.FulfilledItems{},
	}
	if coordinator.CenterName != nil && *coordinator.CenterName != "" {
		appeal.CenterName = *coordinator.CenterName
	}
	if appeal.Urgency == "" {
		appeal.Urgency = models.UrgencyMedium
	}

	if err := s.repo.Save(ctx, appeal); err != nil {
		return nil, err
	}

	s.log.Info("Appeal submitted",
		zap.Int("appeal_id", appeal.ID),
		zap.String("appeal_code", appeal.AppealCode),
		zap.Int("coordinator_id", actor.UserID),
	)
	s.auditLog.Log(ctx, actor, "create", map[string]any{
		"appeal_code": appeal.AppealCode,
		"items":       len(appeal.RequestedItems),
	}, appeal)
	s.notifier.AppealSubmitted(ctx, appeal, coordinator)

	return appeal, nil
}

func (s *Service) validateSubmit(req SubmitAppealRequest) error {
	errs := &custom_error.ValidationError{}
	if err := s.validator.Struct(req); err != nil {
		ve, ok := err.(*custom_error.ValidationError)
		if !ok {
			return err
		}
		errs = ve
	}
	checkLineItems("requestedItems", req.RequestedItems, errs)
	if len(errs.Fields) > 0 {
		return errs
	}
	return nil
}

// SetStatus records an admin decision. Entering an approval status allocates
// inventory for the approved items; allocation problems are logged and never
// fail the status change.
func (s *Service) SetStatus(ctx context.Context, actor models.Actor, id int, req SetStatusRequest) (*models.Appeal, error) {
	if actor.Role != roles.Admin {
		return nil, custom_error.Forbidden("Only admins can update appeal status")
	}

	errs := &custom_error.ValidationError{}
	if err := s.validator.Struct(req); err != nil {
		ve, ok := err.(*custom_error.ValidationError)
		if !ok {
			return nil, err
		}
		errs = ve
	}
	checkLineItems("approvedItems", req.ApprovedItems, errs)
	if len(errs.Fields) > 0 {
		return nil, errs
	}

	appeal, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	appeal.Status = req.Status
	appeal.ReviewedBy = actor.UserRef()
	appeal.ReviewDate = &now
	appeal.ReviewComments = req.ReviewComments

	if req.Status.IsApproval() {
		appeal.ApprovedBy = actor.UserRef()
		appeal.ApprovalDate = &now
		appeal.ApprovalComments = req.ReviewComments
		if len(req.ApprovedItems) > 0 {
			appeal.ApprovedItems = req.ApprovedItems
		} else {
			appeal.ApprovedItems = appeal.RequestedItems
		}
	}

	if err := s.repo.Save(ctx, appeal); err != nil {
		return nil, err
	}

	s.auditLog.Log(ctx, actor, "status", map[string]any{
		"status":         appeal.Status,
		"status_version": appeal.StatusVersion,
	}, appeal)

	if _, err := s.allocator.AllocateForTransition(ctx, appeal, allocation.TriggerSave); err != nil {
		s.log.Error("Allocation after status change failed",
			zap.Int("appeal_id", appeal.ID),
			zap.String("status", string(appeal.Status)),
			zap.Error(err),
		)
	}

	s.notifier.AppealStatusChanged(ctx, appeal)
	return appeal, nil
}

func (s *Service) UpdateFulfillment(ctx context.Context, actor models.Actor, id int, req FulfillmentRequest) (*models.Appeal, error) {
	if actor.Role != roles.Admin {
		return nil, custom_error.Forbidden("Only admins can update fulfillment status")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	appeal, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	appeal.FulfillmentStatus = req.FulfillmentStatus
	if req.FulfilledItems != nil {
		appeal.FulfilledItems = req.FulfilledItems
	}
	if req.ActualFulfillmentDate != nil {
		appeal.ActualFulfillmentDate = req.ActualFulfillmentDate
	}

	if err := s.repo.Save(ctx, appeal); err != nil {
		return nil, err
	}

	s.auditLog.Log(ctx, actor, "fulfillment", map[string]any{
		"fulfillment_status": appeal.FulfillmentStatus,
		"fulfilled_items":    len(appeal.FulfilledItems),
	}, appeal)
	s.notifier.FulfillmentUpdated(ctx, appeal)

	return appeal, nil
}

// SubmitFeedback stores the owning coordinator's rating. It can be given once.
func (s *Service) SubmitFeedback(ctx context.Context, actor models.Actor, id int, req FeedbackRequest) (*models.Appeal, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	appeal, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appeal.CoordinatorID != actor.UserID {
		return nil, custom_error.Forbidden("Access denied")
	}
	if appeal.CoordinatorFeedback != nil {
		return nil, custom_error.Conflict("Feedback was already submitted for appeal %s", appeal.AppealCode)
	}

	appeal.CoordinatorFeedback = &models.CoordinatorFeedback{
		Rating:       req.Rating,
		Comments:     req.Comments,
		ReceivedDate: req.ReceivedDate,
		FeedbackDate: s.now(),
	}
	if err := s.repo.Save(ctx, appeal); err != nil {
		return nil, err
	}

	s.auditLog.Log(ctx, actor, "feedback", map[string]any{"rating": req.Rating}, appeal)
	return appeal, nil
}

func (s *Service) Archive(ctx context.Context, actor models.Actor, id int) (*models.Appeal, error) {
	if actor.Role != roles.Admin {
		return nil, custom_error.Forbidden("Only admins can archive appeals")
	}

	appeal, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appeal.IsArchived {
		return appeal, nil
	}

	now := s.now()
	appeal.IsArchived = true
	appeal.ArchivedDate = &now
	appeal.ArchivedBy = actor.UserRef()
	if err := s.repo.Save(ctx, appeal); err != nil {
		return nil, err
	}

	s.auditLog.Log(ctx, actor, "archive", nil, appeal)
	return appeal, nil
}

// Get returns an appeal to an admin or to the coordinator who filed it.
func (s *Service) Get(ctx context.Context, actor models.Actor, id int) (*models.Appeal, error) {
	appeal, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != roles.Admin && appeal.CoordinatorID != actor.UserID {
		return nil, custom_error.Forbidden("Access denied")
	}
	return appeal, nil
}

// List returns every appeal to admins and only their own to coordinators.
func (s *Service) List(ctx context.Context, actor models.Actor, filter ListFilter) ([]models.Appeal, error) {
	if filter.Status != "" && !models.AppealStatus(filter.Status).IsValid() {
		return nil, custom_error.NewValidationError("status", "unknown appeal status")
	}
	if filter.Urgency != "" && !models.Urgency(filter.Urgency).IsValid() {
		return nil, custom_error.NewValidationError("urgency", "unknown urgency")
	}

	conditions := repository.NewQueryBuilder()
	if actor.Role == roles.Coordinator {
		conditions.AddCondition("coordinator_id", actor.UserID)
	}
	conditions.AddCondition("status", filter.Status)
	conditions.AddCondition("urgency", filter.Urgency)
	conditions.AddCondition("center_code", filter.CenterCode)
	if filter.Archived != nil {
		conditions.AddCondition("is_archived", *filter.Archived)
	}

	return s.repo.List(ctx, conditions)
}

func (s *Service) Stats(ctx context.Context) (*models.AppealStats, error) {
	return s.repo.Stats(ctx)
}
