package auditlog

import (
	"context"
	"errors"
	"testing"

	"aanganwadi/pkg/models"
	"aanganwadi/pkg/roles"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockPersister struct {
	mock.Mock
}

func (m *MockPersister) PersistLog(ctx context.Context, auditlog models.AuditLog, data any) error {
	args := m.Called(auditlog, data)
	return args.Error(0)
}

func TestLogStampsActionAndUser(t *testing.T) {
	persister := new(MockPersister)
	a := NewAuditLog(persister, zap.NewNop())
	record := &models.InventoryRecord{ID: 12}
	data := map[string]any{"quantity": 3}

	persister.On("PersistLog", models.AuditLog{
		ResourceID:   12,
		ResourceType: "inventory",
		Action:       "allocate",
		UserID:       intPtr(5),
	}, data).Return(nil)

	a.Log(context.Background(), models.Actor{UserID: 5, Role: roles.Admin}, "allocate", data, record)

	persister.AssertExpectations(t)
}

func TestLogSwallowsErrors(t *testing.T) {
	persister := new(MockPersister)
	a := NewAuditLog(persister, zap.NewNop())
	persister.On("PersistLog", mock.Anything, mock.Anything).Return(errors.New("db down"))

	assert.NotPanics(t, func() {
		a.Log(context.Background(), models.SystemActor, "update", nil, &models.InventoryRecord{ID: 1})
	})
	persister.AssertNumberOfCalls(t, "PersistLog", 1)
}

func intPtr(v int) *int { return &v }
