package allocation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"aanganwadi/internal/inventory/inventorytest"
	"aanganwadi/pkg/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryMarkers struct {
	mu      sync.Mutex
	claimed map[[2]int]Trigger
}

func newMemoryMarkers() *memoryMarkers {
	return &memoryMarkers{claimed: map[[2]int]Trigger{}}
}

func (m *memoryMarkers) Claim(ctx context.Context, appealID, statusVersion int, status models.AppealStatus, trigger Trigger) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]int{appealID, statusVersion}
	if _, ok := m.claimed[key]; ok {
		return false, nil
	}
	m.claimed[key] = trigger
	return true, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	reports []*Report
}

func (n *recordingNotifier) AllocationCompleted(ctx context.Context, appeal *models.Appeal, report *Report) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reports = append(n.reports, report)
}

type fixture struct {
	engine   *Engine
	ledger   *inventorytest.MemoryRepository
	markers  *memoryMarkers
	notifier *recordingNotifier
	metrics  *Metrics
}

func newFixture(records ...models.InventoryRecord) *fixture {
	f := &fixture{
		ledger:   inventorytest.NewMemoryRepository(records...),
		markers:  newMemoryMarkers(),
		notifier: &recordingNotifier{},
		metrics:  NewMetrics(prometheus.NewRegistry()),
	}
	f.engine = NewEngine(f.ledger, f.markers, nil, f.notifier, f.metrics, zap.NewNop())
	return f
}

func moneyRecord(total, allocated int64) models.InventoryRecord {
	return models.InventoryRecord{
		ItemType:        models.ItemMoney,
		TotalAmount:     decimal.NewFromInt(total),
		AllocatedAmount: decimal.NewFromInt(allocated),
	}
}

func goodsRecord(itemType models.ItemType, total int) models.InventoryRecord {
	return models.InventoryRecord{ItemType: itemType, ItemName: string(itemType), TotalQuantity: total, MinimumStock: 5}
}

func approvedAppeal(items ...models.LineItem) *models.Appeal {
	approver := 1
	return &models.Appeal{
		ID:             10,
		Status:         models.AppealApproved,
		StatusVersion:  2,
		ApprovedBy:     &approver,
		RequestedItems: items,
	}
}

func TestMoneyAllocationWithHeadroom(t *testing.T) {
	f := newFixture(moneyRecord(1000, 0))
	appeal := approvedAppeal(models.NewMoneyLine(decimal.NewFromInt(500), "meals"))

	report, err := f.engine.AllocateForTransition(context.Background(), appeal, TriggerSave)
	require.NoError(t, err)
	require.NotNil(t, report)

	rec := f.ledger.Snapshot(1)
	assert.True(t, rec.AllocatedAmount.Equal(decimal.NewFromInt(500)))
	assert.True(t, rec.AvailableAmount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, OutcomeAllocated, report.Outcomes[0].Kind)
	assert.Equal(t, "INV000001", report.Outcomes[0].InventoryCode)
}

func TestMoneyAllocationWithoutHeadroom(t *testing.T) {
	f := newFixture(moneyRecord(1000, 900))
	appeal := approvedAppeal(models.NewMoneyLine(decimal.NewFromInt(500), "meals"))

	report, err := f.engine.AllocateForTransition(context.Background(), appeal, TriggerSave)
	require.NoError(t, err, "a deficiency is not an error")

	assert.Equal(t, OutcomeDeficient, report.Outcomes[0].Kind)
	assert.Equal(t, 0, f.ledger.Writes)
	assert.True(t, f.ledger.Snapshot(1).AllocatedAmount.Equal(decimal.NewFromInt(900)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Outcomes.WithLabelValues("money", "deficient")))
}

func TestMixedBatchIsIndependent(t *testing.T) {
	f := newFixture(goodsRecord(models.ItemBooks, 20))
	appeal := approvedAppeal(
		models.NewGoodsLine(models.ItemBooks, "Story books", 10),
		models.NewMoneyLine(decimal.NewFromInt(200), "transport"),
	)

	report, err := f.engine.AllocateForTransition(context.Background(), appeal, TriggerSave)
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, OutcomeAllocated, report.Outcomes[0].Kind)
	assert.Equal(t, OutcomeDeficient, report.Outcomes[1].Kind)
	assert.Equal(t, 10, f.ledger.Snapshot(1).AllocatedQuantity)
	assert.Equal(t, 10, f.ledger.Snapshot(1).AvailableQuantity)
}

func TestStorageFailureDoesNotStopBatch(t *testing.T) {
	f := newFixture(moneyRecord(1000, 0), goodsRecord(models.ItemToys, 5))
	f.ledger.FailFirstFit[models.ItemMoney] = errors.New("connection reset")
	appeal := approvedAppeal(
		models.NewMoneyLine(decimal.NewFromInt(100), "toys"),
		models.NewGoodsLine(models.ItemToys, "Blocks", 2),
	)

	report := f.engine.Allocate(context.Background(), appeal, appeal.AllocationItems(), TriggerSave)

	assert.Equal(t, OutcomeFailed, report.Outcomes[0].Kind)
	assert.Error(t, report.Outcomes[0].Err)
	assert.Equal(t, OutcomeAllocated, report.Outcomes[1].Kind)
	assert.Equal(t, 2, f.ledger.Snapshot(2).AllocatedQuantity)
}

func TestUnusableItemsAreSkipped(t *testing.T) {
	f := newFixture(goodsRecord(models.ItemClothes, 10))
	appeal := approvedAppeal(models.NewGoodsLine(models.ItemClothes, "Sweaters", 0))

	report := f.engine.Allocate(context.Background(), appeal, appeal.AllocationItems(), TriggerSave)

	assert.Equal(t, OutcomeSkipped, report.Outcomes[0].Kind)
	assert.Equal(t, 0, f.ledger.Writes)
}

func TestFirstFitPicksLowestIDWithHeadroom(t *testing.T) {
	f := newFixture(moneyRecord(100, 0), moneyRecord(1000, 0), moneyRecord(1000, 0))
	appeal := approvedAppeal(models.NewMoneyLine(decimal.NewFromInt(300), "meals"))

	report := f.engine.Allocate(context.Background(), appeal, appeal.AllocationItems(), TriggerSave)

	assert.Equal(t, 2, report.Outcomes[0].InventoryID)
	assert.True(t, f.ledger.Snapshot(3).AllocatedAmount.IsZero())
}

// Allocate itself is not idempotent; AllocateForTransition is what callers use.
func TestRawAllocateTwiceAllocatesTwice(t *testing.T) {
	f := newFixture(moneyRecord(1000, 0))
	appeal := approvedAppeal(models.NewMoneyLine(decimal.NewFromInt(300), "meals"))

	f.engine.Allocate(context.Background(), appeal, appeal.AllocationItems(), TriggerSave)
	f.engine.Allocate(context.Background(), appeal, appeal.AllocationItems(), TriggerWatcher)

	assert.True(t, f.ledger.Snapshot(1).AllocatedAmount.Equal(decimal.NewFromInt(600)))
}

func TestBothTriggersAllocateOnce(t *testing.T) {
	f := newFixture(moneyRecord(1000, 0))
	appeal := approvedAppeal(models.NewMoneyLine(decimal.NewFromInt(300), "meals"))

	var wg sync.WaitGroup
	for _, trigger := range []Trigger{TriggerSave, TriggerWatcher, TriggerSave, TriggerWatcher} {
		wg.Add(1)
		go func(trigger Trigger) {
			defer wg.Done()
			_, err := f.engine.AllocateForTransition(context.Background(), appeal, trigger)
			assert.NoError(t, err)
		}(trigger)
	}
	wg.Wait()

	assert.True(t, f.ledger.Snapshot(1).AllocatedAmount.Equal(decimal.NewFromInt(300)))
	assert.Len(t, f.notifier.reports, 1)
}

func TestNewTransitionAllocatesAgain(t *testing.T) {
	f := newFixture(moneyRecord(1000, 0))
	appeal := approvedAppeal(models.NewMoneyLine(decimal.NewFromInt(300), "meals"))

	_, err := f.engine.AllocateForTransition(context.Background(), appeal, TriggerSave)
	require.NoError(t, err)

	// re-saving with the same status does not bump the version
	report, err := f.engine.AllocateForTransition(context.Background(), appeal, TriggerSave)
	require.NoError(t, err)
	assert.Nil(t, report)

	// rejected, then approved again: a new transition
	appeal.StatusVersion += 2
	report, err = f.engine.AllocateForTransition(context.Background(), appeal, TriggerSave)
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.True(t, f.ledger.Snapshot(1).AllocatedAmount.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Transitions.WithLabelValues("save", "duplicate")))
}

func TestNonApprovalStatusIsIgnored(t *testing.T) {
	f := newFixture(moneyRecord(1000, 0))
	appeal := approvedAppeal(models.NewMoneyLine(decimal.NewFromInt(300), "meals"))
	appeal.Status = models.AppealRejected

	report, err := f.engine.AllocateForTransition(context.Background(), appeal, TriggerSave)
	require.NoError(t, err)
	assert.Nil(t, report)
	assert.Empty(t, f.markers.claimed)
}

func TestApprovedItemsTakePrecedence(t *testing.T) {
	f := newFixture(moneyRecord(1000, 0))
	appeal := approvedAppeal(models.NewMoneyLine(decimal.NewFromInt(500), "meals"))
	appeal.ApprovedItems = models.LineItems{models.NewMoneyLine(decimal.NewFromInt(200), "meals")}

	_, err := f.engine.AllocateForTransition(context.Background(), appeal, TriggerSave)
	require.NoError(t, err)

	assert.True(t, f.ledger.Snapshot(1).AllocatedAmount.Equal(decimal.NewFromInt(200)))
}

type failingLocker struct{}

func (failingLocker) Obtain(ctx context.Context, key string) (func(context.Context) error, error) {
	return nil, ErrLockNotObtained
}

func TestLockFailureStillAllocatesOnce(t *testing.T) {
	f := newFixture(moneyRecord(1000, 0))
	f.engine = NewEngine(f.ledger, f.markers, failingLocker{}, nil, f.metrics, zap.NewNop())
	appeal := approvedAppeal(models.NewMoneyLine(decimal.NewFromInt(100), "meals"))

	_, err := f.engine.AllocateForTransition(context.Background(), appeal, TriggerWatcher)
	require.NoError(t, err)
	_, err = f.engine.AllocateForTransition(context.Background(), appeal, TriggerSave)
	require.NoError(t, err)

	assert.True(t, f.ledger.Snapshot(1).AllocatedAmount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Transitions.WithLabelValues("watcher", "unlocked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Transitions.WithLabelValues("save", "unlocked")))
}

func TestCancelledRequestStillAllocatesWholeBatch(t *testing.T) {
	f := newFixture(moneyRecord(1000, 0), goodsRecord(models.ItemBooks, 20))
	appeal := approvedAppeal(
		models.NewMoneyLine(decimal.NewFromInt(400), "meals"),
		models.NewGoodsLine(models.ItemBooks, "Story books", 5),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.engine.AllocateForTransition(ctx, appeal, TriggerSave)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 2, report.Count(OutcomeAllocated))
	assert.Zero(t, report.Count(OutcomeFailed))

	report, err = f.engine.AllocateForTransition(context.Background(), appeal, TriggerWatcher)
	require.NoError(t, err)
	assert.Nil(t, report)

	assert.True(t, f.ledger.Snapshot(1).AllocatedAmount.Equal(decimal.NewFromInt(400)))
	assert.Equal(t, 5, f.ledger.Snapshot(2).AllocatedQuantity)
}

func TestRawAllocateHonoursCallerContext(t *testing.T) {
	f := newFixture(moneyRecord(1000, 0))
	appeal := approvedAppeal(models.NewMoneyLine(decimal.NewFromInt(400), "meals"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := f.engine.Allocate(ctx, appeal, appeal.AllocationItems(), TriggerSave)

	assert.Equal(t, OutcomeFailed, report.Outcomes[0].Kind)
	assert.ErrorIs(t, report.Outcomes[0].Err, context.Canceled)
	assert.True(t, f.ledger.Snapshot(1).AllocatedAmount.IsZero())
}
