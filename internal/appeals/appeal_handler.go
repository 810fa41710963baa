package appeals

import (
	"context"
	"net/http"
	"strconv"

	"aanganwadi/internal/core/response"
	"aanganwadi/pkg/models"
	"aanganwadi/pkg/roles"
	"aanganwadi/pkg/security"

	"github.com/gin-gonic/gin"
)

// HistoryReader returns the audit trail of one appeal.
type HistoryReader interface {
	GetResourceLog(ctx context.Context, id int, resourceType string) ([]models.AuditLog, error)
}

type AppealHandler struct {
	Service *Service
	History HistoryReader
}

func NewAppealHandler(s *Service, h HistoryReader) *AppealHandler {
	return &AppealHandler{Service: s, History: h}
}

func (h *AppealHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := security.Authorize(roles.Admin, roles.Coordinator)
	admin := security.Authorize(roles.Admin)
	coordinator := security.Authorize(roles.Coordinator)

	router.POST("/appeals", coordinator, h.CreateAppeal)
	router.GET("/appeals", staff, h.GetAppeals)
	router.GET("/appeals/stats", admin, h.GetStats)
	router.GET("/appeals/:id", staff, h.GetAppeal)
	router.GET("/appeals/:id/history", admin, h.GetHistory)
	router.PUT("/appeals/:id/status", admin, h.UpdateStatus)
	router.PUT("/appeals/:id/fulfillment", admin, h.UpdateFulfillment)
	router.POST("/appeals/:id/feedback", coordinator, h.SubmitFeedback)
	router.POST("/appeals/:id/archive", admin, h.ArchiveAppeal)
}

func (h *AppealHandler) CreateAppeal(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req SubmitAppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload", err)
		return
	}

	appeal, err := h.Service.Submit(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, "Failed to create appeal", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Appeal created successfully", "appeal": appeal})
}

func (h *AppealHandler) GetAppeals(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var filter ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	appeals, err := h.Service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, "Failed to fetch appeals", err)
		return
	}

	c.JSON(http.StatusOK, appeals)
}

func (h *AppealHandler) GetStats(c *gin.Context) {
	stats, err := h.Service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, "Failed to fetch appeal statistics", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *AppealHandler) GetAppeal(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := appealID(c)
	if !ok {
		return
	}

	appeal, err := h.Service.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, "Failed to fetch appeal", err)
		return
	}

	c.JSON(http.StatusOK, appeal)
}

func (h *AppealHandler) GetHistory(c *gin.Context) {
	id, ok := appealID(c)
	if !ok {
		return
	}

	logs, err := h.History.GetResourceLog(c.Request.Context(), id, "appeal")
	if err != nil {
		response.Error(c, "Failed to fetch appeal history", err)
		return
	}

	c.JSON(http.StatusOK, logs)
}

func (h *AppealHandler) UpdateStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := appealID(c)
	if !ok {
		return
	}

	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload", err)
		return
	}

	appeal, err := h.Service.SetStatus(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, "Failed to update appeal status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Appeal status updated successfully", "appeal": appeal})
}

func (h *AppealHandler) UpdateFulfillment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := appealID(c)
	if !ok {
		return
	}

	var req FulfillmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload", err)
		return
	}

	appeal, err := h.Service.UpdateFulfillment(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, "Failed to update fulfillment status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Fulfillment status updated successfully", "appeal": appeal})
}

func (h *AppealHandler) SubmitFeedback(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := appealID(c)
	if !ok {
		return
	}

	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload", err)
		return
	}

	appeal, err := h.Service.SubmitFeedback(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, "Failed to submit feedback", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Feedback submitted successfully", "appeal": appeal})
}

func (h *AppealHandler) ArchiveAppeal(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := appealID(c)
	if !ok {
		return
	}

	appeal, err := h.Service.Archive(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, "Failed to archive appeal", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Appeal archived successfully", "appeal": appeal})
}

func appealID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid appeal ID"})
		return 0, false
	}
	return id, true
}

func currentActor(c *gin.Context) (models.Actor, bool) {
	actor, err := security.CurrentActor(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "details": err.Error()})
		return models.Actor{}, false
	}
	return actor, true
}
