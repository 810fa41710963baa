package appeals_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"aanganwadi/internal/appeals"
	"aanganwadi/pkg/models"
	"aanganwadi/pkg/roles"
	"aanganwadi/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHistory struct{}

func (stubHistory) GetResourceLog(ctx context.Context, id int, resourceType string) ([]models.AuditLog, error) {
	return []models.AuditLog{{ID: 1, ResourceID: id, ResourceType: resourceType, Action: "create"}}, nil
}

func newRouter(f *fixture, actor models.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("", func(c *gin.Context) {
		security.SetActor(c, actor)
		c.Next()
	})
	appeals.NewAppealHandler(f.svc, stubHistory{}).RegisterRoutes(group)
	return router
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

const createBody = `{
	"title": "Books for the reading corner",
	"justification": "New enrolments",
	"urgency": "high",
	"requestedItems": [
		{"itemType": "books", "itemName": "Picture books", "quantity": 12},
		{"itemType": "money", "amount": "250.50", "purpose": "shelves"}
	],
	"currentSituation": {"numberOfChildren": 30}
}`

func TestCreateAppealRoute(t *testing.T) {
	f := newFixture(t, 10)

	w := doJSON(newRouter(f, coordinator), http.MethodPost, "/appeals", createBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		Appeal models.Appeal `json:"appeal"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "APP000001", body.Appeal.AppealCode)
	require.Len(t, body.Appeal.RequestedItems, 2)
	assert.Equal(t, models.LineItemGoods, body.Appeal.RequestedItems[0].Kind)
	assert.Equal(t, "250.5", body.Appeal.RequestedItems[1].Money.Amount.String())
	assert.Equal(t, 30, body.Appeal.CurrentSituation.NumberOfChildren)
}

func TestAppealRoutesAuthorization(t *testing.T) {
	doctor := models.Actor{UserID: 9, Role: roles.Doctor}

	tests := []struct {
		name   string
		actor  models.Actor
		method string
		path   string
		body   string
		want   int
	}{
		{name: "admin cannot create", actor: admin, method: http.MethodPost, path: "/appeals", body: createBody, want: http.StatusForbidden},
		{name: "doctor cannot list", actor: doctor, method: http.MethodGet, path: "/appeals", want: http.StatusForbidden},
		{name: "coordinator cannot read stats", actor: coordinator, method: http.MethodGet, path: "/appeals/stats", want: http.StatusForbidden},
		{name: "admin reads stats", actor: admin, method: http.MethodGet, path: "/appeals/stats", want: http.StatusOK},
		{name: "coordinator cannot set status", actor: coordinator, method: http.MethodPut, path: "/appeals/1/status", body: `{"status":"approved"}`, want: http.StatusForbidden},
		{name: "other coordinator cannot read", actor: otherCoord, method: http.MethodGet, path: "/appeals/1", want: http.StatusForbidden},
		{name: "owner reads", actor: coordinator, method: http.MethodGet, path: "/appeals/1", want: http.StatusOK},
		{name: "missing appeal", actor: admin, method: http.MethodGet, path: "/appeals/99", want: http.StatusNotFound},
		{name: "bad id", actor: admin, method: http.MethodGet, path: "/appeals/x", want: http.StatusBadRequest},
		{name: "invalid status value", actor: admin, method: http.MethodPut, path: "/appeals/1/status", body: `{"status":"closed"}`, want: http.StatusBadRequest},
		{name: "admin reads history", actor: admin, method: http.MethodGet, path: "/appeals/1/history", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 10)
			submit(t, f, models.NewMoneyLine(decimalFromInt(10), ""))

			w := doJSON(newRouter(f, tt.actor), tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestUpdateStatusRoute(t *testing.T) {
	f := newFixture(t, 10, moneyStock(1000, 0))
	appeal := submit(t, f, models.NewMoneyLine(decimalFromInt(400), ""))

	w := doJSON(newRouter(f, admin), http.MethodPut, "/appeals/1/status", `{"status":"approved","reviewComments":"ok"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Appeal models.Appeal `json:"appeal"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, appeal.ID, body.Appeal.ID)
	assert.Equal(t, models.AppealApproved, body.Appeal.Status)
	assert.Len(t, body.Appeal.StatusUpdates, 1)
	assert.Equal(t, "400", f.ledger.Snapshot(1).AllocatedAmount.String())
}

func TestCreateAppealRateLimitedRoute(t *testing.T) {
	f := newFixture(t, 1)
	router := newRouter(f, coordinator)

	require.Equal(t, http.StatusCreated, doJSON(router, http.MethodPost, "/appeals", createBody).Code)
	assert.Equal(t, http.StatusTooManyRequests, doJSON(router, http.MethodPost, "/appeals", createBody).Code)
}
