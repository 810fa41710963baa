package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aanganwadi/internal/inventory"
	"aanganwadi/pkg/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const transitionTimeout = 2 * time.Minute

// Ledger is the slice of the inventory store the engine needs.
type Ledger interface {
	AllocateFirstFit(ctx context.Context, itemType models.ItemType, delta decimal.Decimal, updatedBy *int) (*inventory.FitResult, error)
}

// Notifier is told about every committed allocation batch.
type Notifier interface {
	AllocationCompleted(ctx context.Context, appeal *models.Appeal, report *Report)
}

type Engine struct {
	ledger   Ledger
	markers  MarkerStore
	locker   Locker
	notifier Notifier
	metrics  *Metrics
	log      *zap.Logger
}

func NewEngine(ledger Ledger, markers MarkerStore, locker Locker, notifier Notifier, metrics *Metrics, log *zap.Logger) *Engine {
	if locker == nil {
		locker = NoopLocker{}
	}
	return &Engine{
		ledger:   ledger,
		markers:  markers,
		locker:   locker,
		notifier: notifier,
		metrics:  metrics,
		log:      log.Named("allocation"),
	}
}

// Allocate attempts every line item independently. It is not idempotent:
// calling it twice with the same items allocates twice. Callers reacting to
// status transitions go through AllocateForTransition.
func (e *Engine) Allocate(ctx context.Context, appeal *models.Appeal, items []models.LineItem, trigger Trigger) *Report {
	report := &Report{
		AppealID:      appeal.ID,
		StatusVersion: appeal.StatusVersion,
		Trigger:       trigger,
		Outcomes:      make([]Outcome, 0, len(items)),
	}

	for _, item := range items {
		outcome := e.allocateItem(ctx, appeal, item, trigger)
		e.metrics.Outcomes.WithLabelValues(string(outcome.ItemType), string(outcome.Kind)).Inc()
		report.Outcomes = append(report.Outcomes, outcome)
	}

	return report
}

func (e *Engine) allocateItem(ctx context.Context, appeal *models.Appeal, item models.LineItem, trigger Trigger) Outcome {
	outcome := Outcome{ItemType: item.ItemType, Requested: item.Requested()}
	log := e.log.With(
		zap.Int("appeal_id", appeal.ID),
		zap.String("item_type", string(item.ItemType)),
		zap.String("requested", outcome.Requested.String()),
		zap.String("trigger", string(trigger)),
	)

	if !item.Allocatable() {
		outcome.Kind = OutcomeSkipped
		return outcome
	}

	fit, err := e.ledger.AllocateFirstFit(ctx, item.ItemType, outcome.Requested, appeal.ApprovedBy)
	if err != nil {
		log.Error("Allocation failed", zap.Error(err))
		outcome.Kind = OutcomeFailed
		outcome.Err = err
		return outcome
	}
	if fit == nil {
		log.Warn("Insufficient inventory")
		outcome.Kind = OutcomeDeficient
		return outcome
	}

	outcome.Kind = OutcomeAllocated
	outcome.InventoryID = fit.After.ID
	outcome.InventoryCode = fit.After.ItemCode
	log.Info("Allocated inventory",
		zap.String("inventory_code", fit.After.ItemCode),
		zap.String("available_before", fit.Before.Headroom().String()),
		zap.String("available_after", fit.After.Headroom().String()),
	)
	return outcome
}

// AllocateForTransition allocates for an appeal that has entered an approval
// status, at most once per (appeal, status version) no matter how many
// triggers observe the transition. It returns nil when there was nothing to do.
func (e *Engine) AllocateForTransition(ctx context.Context, appeal *models.Appeal, trigger Trigger) (*Report, error) {
	if !appeal.Status.IsApproval() {
		return nil, nil
	}

	// Once the marker is claimed no other trigger will retry this transition,
	// so the batch must not die with the request or the watcher.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), transitionTimeout)
	defer cancel()

	release, err := e.locker.Obtain(ctx, fmt.Sprintf("lock:appeal-allocation:%d", appeal.ID))
	if err != nil {
		e.metrics.Transitions.WithLabelValues(string(trigger), "unlocked").Inc()
		e.log.Warn("Proceeding without allocation lock",
			zap.Int("appeal_id", appeal.ID),
			zap.String("trigger", string(trigger)),
			zap.Error(err),
		)
		release = nil
	}
	if release != nil {
		defer func() {
			releaseCtx, cancelRelease := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancelRelease()
			if err := release(releaseCtx); err != nil && !errors.Is(err, context.Canceled) {
				e.log.Warn("Failed to release allocation lock", zap.Int("appeal_id", appeal.ID), zap.Error(err))
			}
		}()
	}

	claimed, err := e.markers.Claim(ctx, appeal.ID, appeal.StatusVersion, appeal.Status, trigger)
	if err != nil {
		e.metrics.Transitions.WithLabelValues(string(trigger), "error").Inc()
		return nil, err
	}
	if !claimed {
		e.metrics.Transitions.WithLabelValues(string(trigger), "duplicate").Inc()
		e.log.Debug("Allocation already applied for this transition",
			zap.Int("appeal_id", appeal.ID),
			zap.Int("status_version", appeal.StatusVersion),
			zap.String("trigger", string(trigger)),
		)
		return nil, nil
	}
	e.metrics.Transitions.WithLabelValues(string(trigger), "applied").Inc()

	report := e.Allocate(ctx, appeal, appeal.AllocationItems(), trigger)
	e.log.Info("Allocation batch finished",
		zap.Int("appeal_id", appeal.ID),
		zap.Int("status_version", appeal.StatusVersion),
		zap.String("trigger", string(trigger)),
		zap.Int("allocated", report.Count(OutcomeAllocated)),
		zap.Int("deficient", report.Count(OutcomeDeficient)),
		zap.Int("failed", report.Count(OutcomeFailed)),
	)
	if e.notifier != nil {
		e.notifier.AllocationCompleted(ctx, appeal, report)
	}

	return report, nil
}
