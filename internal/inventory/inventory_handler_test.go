package inventory_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"aanganwadi/internal/inventory"
	"aanganwadi/pkg/models"
	"aanganwadi/pkg/roles"
	"aanganwadi/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type stubHistory struct {
	logs []models.AuditLog
}

func (s stubHistory) GetResourceLog(ctx context.Context, id int, resourceType string) ([]models.AuditLog, error) {
	return s.logs, nil
}

func newRouter(t *testing.T, actor models.Actor, records ...models.InventoryRecord) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, _, _ := newService(t, records...)
	handler := inventory.NewInventoryHandler(svc, stubHistory{logs: []models.AuditLog{{ID: 1, Action: "create"}}})

	router := gin.New()
	group := router.Group("", func(c *gin.Context) {
		security.SetActor(c, actor)
		c.Next()
	})
	handler.RegisterRoutes(group)
	return router
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestInventoryRoutes(t *testing.T) {
	coordinator := models.Actor{UserID: 2, Role: roles.Coordinator}

	tests := []struct {
		name           string
		actor          models.Actor
		method         string
		path           string
		body           any
		expectedStatus int
	}{
		{name: "coordinator creates", actor: coordinator, method: http.MethodPost, path: "/inventory",
			body: map[string]any{"itemType": "food", "itemName": "Rice", "totalQuantity": 40}, expectedStatus: http.StatusCreated},
		{name: "coordinator cannot delete", actor: coordinator, method: http.MethodDelete, path: "/inventory/1", expectedStatus: http.StatusForbidden},
		{name: "admin delete blocked by allocation", actor: admin, method: http.MethodDelete, path: "/inventory/1", expectedStatus: http.StatusConflict},
		{name: "admin deletes free record", actor: admin, method: http.MethodDelete, path: "/inventory/2", expectedStatus: http.StatusOK},
		{name: "missing record", actor: admin, method: http.MethodGet, path: "/inventory/99", expectedStatus: http.StatusNotFound},
		{name: "bad id", actor: admin, method: http.MethodGet, path: "/inventory/abc", expectedStatus: http.StatusBadRequest},
		{name: "over allocation", actor: admin, method: http.MethodPost, path: "/inventory/2/allocate",
			body: map[string]any{"quantity": 11}, expectedStatus: http.StatusBadRequest},
		{name: "allocation", actor: admin, method: http.MethodPost, path: "/inventory/2/allocate",
			body: map[string]any{"quantity": 4}, expectedStatus: http.StatusOK},
		{name: "coordinator cannot release", actor: coordinator, method: http.MethodPost, path: "/inventory/1/release",
			body: map[string]any{"quantity": 1}, expectedStatus: http.StatusForbidden},
		{name: "stats", actor: coordinator, method: http.MethodGet, path: "/inventory/stats", expectedStatus: http.StatusOK},
		{name: "history", actor: admin, method: http.MethodGet, path: "/inventory/1/history", expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(t, tt.actor, books(10, 5), books(10, 0))

			w := doJSON(router, tt.method, tt.path, tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}
}

func TestExportWorkbook(t *testing.T) {
	router := newRouter(t, admin, books(10, 5), money(1000, 0))

	w := doJSON(router, http.MethodGet, "/inventory/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Stock")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Item ID", rows[0][0])
	assert.Equal(t, "INV000001", rows[1][0])
	assert.Equal(t, "books", rows[1][1])
	assert.Equal(t, "money", rows[2][1])
}
