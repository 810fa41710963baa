// Package inventorytest provides an in-memory inventory ledger for tests.
package inventorytest

import (
	"context"
	"sort"
	"sync"
	"time"

	"aanganwadi/internal/inventory"
	"aanganwadi/internal/repository"
	custom_error "aanganwadi/pkg/errors"
	"aanganwadi/pkg/metadata"
	"aanganwadi/pkg/models"

	"github.com/shopspring/decimal"
)

// MemoryRepository mirrors the SQL repository semantics: first fit in id
// order, recompute before every write, and a mutex in place of row locks.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[int]models.InventoryRecord
	nextID  int
	// FailFirstFit makes AllocateFirstFit fail for the given item type.
	FailFirstFit map[models.ItemType]error
	Writes       int
}

var _ inventory.Repository = (*MemoryRepository)(nil)

func NewMemoryRepository(records ...models.InventoryRecord) *MemoryRepository {
	m := &MemoryRepository{records: map[int]models.InventoryRecord{}, FailFirstFit: map[models.ItemType]error{}}
	for _, rec := range records {
		r := rec
		_ = m.Create(context.Background(), &r)
	}
	m.Writes = 0
	return m
}

func (m *MemoryRepository) Create(ctx context.Context, rec *models.InventoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	rec.ID = m.nextID
	rec.ItemCode = metadata.NewInventoryCode(int64(rec.ID)).String()
	rec.CreatedAt = time.Now()
	rec.Recompute(time.Now())
	m.records[rec.ID] = *rec
	m.Writes++
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, id int) (*models.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, custom_error.NotFound("inventory item", id)
	}
	return &rec, nil
}

// Snapshot returns a record without error handling, for assertions.
func (m *MemoryRepository) Snapshot(id int) models.InventoryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id]
}

func (m *MemoryRepository) sorted() []models.InventoryRecord {
	records := make([]models.InventoryRecord, 0, len(m.records))
	for _, rec := range m.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}

func (m *MemoryRepository) List(ctx context.Context, conditions repository.QueryBuilder) ([]models.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ex := conditions.BuildConditions(nil)
	result := []models.InventoryRecord{}
	for _, rec := range m.sorted() {
		if v, ok := ex["item_type"]; ok && string(rec.ItemType) != v {
			continue
		}
		if v, ok := ex["status"]; ok && string(rec.Status) != v {
			continue
		}
		if v, ok := ex["category"]; ok && rec.Category != v {
			continue
		}
		if v, ok := ex["age_group"]; ok && rec.AgeGroup != v {
			continue
		}
		result = append(result, rec)
	}
	return result, nil
}

func (m *MemoryRepository) LowStock(ctx context.Context) ([]models.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := []models.InventoryRecord{}
	for _, rec := range m.sorted() {
		if !rec.ItemType.IsMoney() && rec.AvailableQuantity <= rec.MinimumStock {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (m *MemoryRepository) Stats(ctx context.Context) (*models.InventoryStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byType := map[models.ItemType]*models.ItemTypeStats{}
	byStatus := map[models.StockStatus]int{}
	for _, rec := range m.sorted() {
		s, ok := byType[rec.ItemType]
		if !ok {
			s = &models.ItemTypeStats{ItemType: string(rec.ItemType)}
			byType[rec.ItemType] = s
		}
		s.TotalItems++
		s.TotalQuantity += rec.TotalQuantity
		s.AvailableQuantity += rec.AvailableQuantity
		s.TotalAmount = s.TotalAmount.Add(rec.TotalAmount)
		s.AvailableAmount = s.AvailableAmount.Add(rec.AvailableAmount)
		byStatus[rec.Status]++
	}

	stats := &models.InventoryStats{}
	for _, t := range models.ItemTypes {
		if s, ok := byType[t]; ok {
			stats.ByItemType = append(stats.ByItemType, *s)
		}
	}
	for status, count := range byStatus {
		stats.ByStatus = append(stats.ByStatus, models.CountBucket{Key: string(status), Count: count})
	}
	sort.Slice(stats.ByStatus, func(i, j int) bool { return stats.ByStatus[i].Key < stats.ByStatus[j].Key })
	return stats, nil
}

func (m *MemoryRepository) Mutate(ctx context.Context, id int, fn func(rec *models.InventoryRecord) error) (*models.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, custom_error.NotFound("inventory item", id)
	}
	if err := fn(&rec); err != nil {
		return nil, err
	}
	rec.Recompute(time.Now())
	m.records[id] = rec
	m.Writes++
	return &rec, nil
}

func (m *MemoryRepository) Delete(ctx context.Context, id int, guard func(rec *models.InventoryRecord) error) (*models.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, custom_error.NotFound("inventory item", id)
	}
	if err := guard(&rec); err != nil {
		return nil, err
	}
	delete(m.records, id)
	return &rec, nil
}

func (m *MemoryRepository) AllocateFirstFit(ctx context.Context, itemType models.ItemType, delta decimal.Decimal, updatedBy *int) (*inventory.FitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.FailFirstFit[itemType]; err != nil {
		return nil, err
	}

	for _, rec := range m.sorted() {
		if rec.ItemType != itemType || rec.Headroom().LessThan(delta) {
			continue
		}
		before := rec
		rec.Increase(delta)
		rec.UpdatedBy = updatedBy
		rec.Recompute(time.Now())
		m.records[rec.ID] = rec
		m.Writes++
		return &inventory.FitResult{Before: before, After: rec}, nil
	}
	return nil, nil
}
