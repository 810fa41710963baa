// Package appealstest provides an in-memory appeal store for tests.
package appealstest

import (
	"context"
	"sort"
	"sync"
	"time"

	"aanganwadi/internal/appeals"
	"aanganwadi/internal/repository"
	custom_error "aanganwadi/pkg/errors"
	"aanganwadi/pkg/metadata"
	"aanganwadi/pkg/models"
)

// MemoryRepository mirrors the SQL store and its table trigger: a status
// change bumps StatusVersion and appends one history entry.
type MemoryRepository struct {
	mu      sync.Mutex
	appeals map[int]models.Appeal
	nextID  int
	// OnUpdate runs after an existing appeal is written, like a row trigger.
	OnUpdate func(previous, current models.Appeal)
}

var _ appeals.Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{appeals: map[int]models.Appeal{}}
}

func (m *MemoryRepository) Save(ctx context.Context, appeal *models.Appeal) error {
	m.mu.Lock()

	now := time.Now()
	if appeal.IsNew() {
		m.nextID++
		appeal.ID = m.nextID
		if appeal.AppealCode == "" {
			appeal.AppealCode = metadata.NewAppealCode(int64(m.nextID)).String()
		}
		appeal.CreatedAt = now
		appeal.UpdatedAt = now
		if appeal.StatusUpdates == nil {
			appeal.StatusUpdates = []models.StatusUpdate{}
		}
		m.appeals[appeal.ID] = clone(*appeal)
		m.mu.Unlock()
		return nil
	}

	previous, ok := m.appeals[appeal.ID]
	if !ok {
		m.mu.Unlock()
		return custom_error.NotFound("appeal", appeal.ID)
	}

	appeal.StatusVersion = previous.StatusVersion
	appeal.StatusUpdates = append([]models.StatusUpdate{}, previous.StatusUpdates...)
	if previous.Status != appeal.Status {
		appeal.StatusVersion++
		update := appeal.NewStatusUpdate(now)
		update.ID = len(appeal.StatusUpdates) + 1
		appeal.StatusUpdates = append(appeal.StatusUpdates, update)
	}
	appeal.UpdatedAt = now
	m.appeals[appeal.ID] = clone(*appeal)
	hook := m.OnUpdate
	current := clone(*appeal)
	m.mu.Unlock()

	if hook != nil {
		hook(previous, current)
	}
	return nil
}

func (m *MemoryRepository) Get(ctx context.Context, id int) (*models.Appeal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	appeal, ok := m.appeals[id]
	if !ok {
		return nil, custom_error.NotFound("appeal", id)
	}
	out := clone(appeal)
	return &out, nil
}

// List honours the equality filters the service builds.
func (m *MemoryRepository) List(ctx context.Context, conditions repository.QueryBuilder) ([]models.Appeal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	where := conditions.BuildConditions(map[string]string{
		"status":         "status",
		"urgency":        "urgency",
		"center_code":    "center_code",
		"coordinator_id": "coordinator_id",
		"is_archived":    "is_archived",
	})

	out := []models.Appeal{}
	for _, a := range m.appeals {
		if v, ok := where["status"]; ok && string(a.Status) != v {
			continue
		}
		if v, ok := where["urgency"]; ok && string(a.Urgency) != v {
			continue
		}
		if v, ok := where["center_code"]; ok && a.CenterCode != v {
			continue
		}
		if v, ok := where["coordinator_id"]; ok && a.CoordinatorID != v {
			continue
		}
		if v, ok := where["is_archived"]; ok && a.IsArchived != v {
			continue
		}
		out = append(out, clone(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemoryRepository) Stats(ctx context.Context) (*models.AppealStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byStatus := map[string]int{}
	byUrgency := map[string]int{}
	for _, a := range m.appeals {
		byStatus[string(a.Status)]++
		byUrgency[string(a.Urgency)]++
	}
	return &models.AppealStats{
		ByStatus:  buckets(byStatus),
		ByUrgency: buckets(byUrgency),
		ByCenter:  []models.CenterBucket{},
	}, nil
}

// Put stores an appeal as if another client had written it directly.
func (m *MemoryRepository) Put(appeal models.Appeal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appeals[appeal.ID] = clone(appeal)
	if appeal.ID > m.nextID {
		m.nextID = appeal.ID
	}
}

func buckets(counts map[string]int) []models.CountBucket {
	out := make([]models.CountBucket, 0, len(counts))
	for k, v := range counts {
		out = append(out, models.CountBucket{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func clone(a models.Appeal) models.Appeal {
	a.StatusUpdates = append([]models.StatusUpdate{}, a.StatusUpdates...)
	a.RequestedItems = append(models.LineItems(nil), a.RequestedItems...)
	if a.ApprovedItems != nil {
		a.ApprovedItems = append(models.LineItems{}, a.ApprovedItems...)
	}
	a.FulfilledItems = append(models.FulfilledItems{}, a.FulfilledItems...)
	return a
}
