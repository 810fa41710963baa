package inventory

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"aanganwadi/internal/core/response"
	"aanganwadi/pkg/models"
	"aanganwadi/pkg/roles"
	"aanganwadi/pkg/security"

	"github.com/gin-gonic/gin"
)

// HistoryReader returns the audit trail of one record.
type HistoryReader interface {
	GetResourceLog(ctx context.Context, id int, resourceType string) ([]models.AuditLog, error)
}

type InventoryHandler struct {
	Service *Service
	History HistoryReader
}

func NewInventoryHandler(s *Service, h HistoryReader) *InventoryHandler {
	return &InventoryHandler{Service: s, History: h}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	staff := security.Authorize(roles.Admin, roles.Coordinator)
	admin := security.Authorize(roles.Admin)

	router.POST("/inventory", staff, h.CreateItem)
	router.GET("/inventory", staff, h.GetItems)
	router.GET("/inventory/stats", staff, h.GetStats)
	router.GET("/inventory/low-stock", staff, h.GetLowStock)
	router.GET("/inventory/export", admin, h.ExportItems)
	router.GET("/inventory/:id", staff, h.GetItem)
	router.GET("/inventory/:id/history", admin, h.GetHistory)
	router.PUT("/inventory/:id", staff, h.UpdateItem)
	router.DELETE("/inventory/:id", admin, h.DeleteItem)
	router.POST("/inventory/:id/allocate", admin, h.AllocateItem)
	router.POST("/inventory/:id/release", admin, h.ReleaseItem)
}

func (h *InventoryHandler) CreateItem(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req CreateInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload", err)
		return
	}

	rec, err := h.Service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, "Failed to create inventory item", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Inventory item created successfully", "item": rec})
}

func (h *InventoryHandler) GetItems(c *gin.Context) {
	var filter ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	records, err := h.Service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, "Failed to fetch inventory items", err)
		return
	}

	c.JSON(http.StatusOK, records)
}

func (h *InventoryHandler) GetStats(c *gin.Context) {
	stats, err := h.Service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, "Failed to fetch inventory statistics", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *InventoryHandler) GetLowStock(c *gin.Context) {
	records, err := h.Service.LowStock(c.Request.Context())
	if err != nil {
		response.Error(c, "Failed to fetch low stock alerts", err)
		return
	}

	c.JSON(http.StatusOK, records)
}

func (h *InventoryHandler) ExportItems(c *gin.Context) {
	var filter ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	records, err := h.Service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, "Failed to fetch inventory items", err)
		return
	}

	filename := fmt.Sprintf("inventory-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := WriteStockSheet(c.Writer, records); err != nil {
		_ = c.Error(err)
	}
}

func (h *InventoryHandler) GetItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}

	rec, err := h.Service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, "Failed to fetch inventory item", err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (h *InventoryHandler) GetHistory(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}

	logs, err := h.History.GetResourceLog(c.Request.Context(), id, "inventory")
	if err != nil {
		response.Error(c, "Failed to fetch inventory history", err)
		return
	}

	c.JSON(http.StatusOK, logs)
}

func (h *InventoryHandler) UpdateItem(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := itemID(c)
	if !ok {
		return
	}

	var req UpdateInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload", err)
		return
	}

	rec, err := h.Service.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, "Failed to update inventory item", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Inventory item updated successfully", "item": rec})
}

func (h *InventoryHandler) DeleteItem(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := itemID(c)
	if !ok {
		return
	}

	if err := h.Service.Delete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, "Failed to delete inventory item", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Inventory item deleted successfully"})
}

func (h *InventoryHandler) AllocateItem(c *gin.Context) {
	h.adjust(c, h.Service.Allocate, "Inventory allocated successfully", "Failed to allocate inventory")
}

func (h *InventoryHandler) ReleaseItem(c *gin.Context) {
	h.adjust(c, h.Service.Release, "Inventory released successfully", "Failed to release inventory")
}

type adjustFunc func(ctx context.Context, actor models.Actor, id int, req AdjustRequest) (*models.InventoryRecord, error)

func (h *InventoryHandler) adjust(c *gin.Context, fn adjustFunc, okMessage, failMessage string) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := itemID(c)
	if !ok {
		return
	}

	var req AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request payload", err)
		return
	}

	rec, err := fn(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, failMessage, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": okMessage, "item": rec})
}

func itemID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid inventory ID"})
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
