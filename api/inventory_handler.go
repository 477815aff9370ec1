package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"example.com/roofops/services/portal/internal/models"
	"example.com/roofops/services/portal/internal/service"
)

// InventoryHandler handles inventory and restock endpoints
type InventoryHandler struct {
	portal *service.DeliveryPortalService
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(portal *service.DeliveryPortalService) *InventoryHandler {
	return &InventoryHandler{portal: portal}
}

// CreateItem creates an inventory item
func (h *InventoryHandler) CreateItem(c *gin.Context) {
	var req service.CreateInventoryItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("invalid inventory payload: %v", err))
		return
	}

	item, err := h.portal.CreateInventoryItem(c.Request.Context(), &req)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "item": item})
}

// ListItems lists all inventory items
func (h *InventoryHandler) ListItems(c *gin.Context) {
	items, err := h.portal.ListInventory(c.Request.Context())
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "items": items})
}

// ListLowStock lists items below their reorder threshold
func (h *InventoryHandler) ListLowStock(c *gin.Context) {
	items, err := h.portal.GetLowStockItems(c.Request.Context())
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "items": items})
}

// adjustQuantityRequest is an inventory adjustment request
type adjustQuantityRequest struct {
	Change int    `json:"change" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// AdjustQuantity applies an additive quantity adjustment
func (h *InventoryHandler) AdjustQuantity(c *gin.Context) {
	var req adjustQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("change and reason are required"))
		return
	}

	item, err := h.portal.UpdateInventoryQty(c.Request.Context(), c.Param("productId"), req.Change, req.Reason)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "item": item})
}

// submitCountRequest is a physical count submission
type submitCountRequest struct {
	ActualQty int    `json:"actual_qty" binding:"gte=0"`
	CountedBy string `json:"counted_by" binding:"required"`
	Notes     string `json:"notes"`
}

// SubmitCount reconciles a physical count against recorded quantity
func (h *InventoryHandler) SubmitCount(c *gin.Context) {
	var req submitCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("actual_qty and counted_by are required"))
		return
	}

	result, err := h.portal.SubmitInventoryCount(c.Request.Context(),
		c.Param("productId"), req.ActualQty, req.CountedBy, req.Notes)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// createRestockRequest is a restock request creation payload
type createRestockRequest struct {
	ProductID    string `json:"product_id" binding:"required"`
	RequestedQty int    `json:"requested_qty" binding:"required,gt=0"`
}

// CreateRestock opens a restock request
func (h *InventoryHandler) CreateRestock(c *gin.Context) {
	var req createRestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("product_id and requested_qty are required"))
		return
	}

	requestedBy := ""
	if user := CurrentUser(c); user != nil {
		requestedBy = user.Name
	}

	request, err := h.portal.CreateRestockRequest(c.Request.Context(), req.ProductID, req.RequestedQty, requestedBy)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "request": request})
}

// ListPendingRestocks lists restock requests awaiting review
func (h *InventoryHandler) ListPendingRestocks(c *gin.Context) {
	requests, err := h.portal.ListPendingRestockRequests(c.Request.Context())
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "requests": requests})
}

// ApproveRestock approves a pending restock request
func (h *InventoryHandler) ApproveRestock(c *gin.Context) {
	h.resolveRestock(c, true)
}

// RejectRestock rejects a pending restock request
func (h *InventoryHandler) RejectRestock(c *gin.Context) {
	h.resolveRestock(c, false)
}

func (h *InventoryHandler) resolveRestock(c *gin.Context, approve bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		WriteError(c, service.NewValidationError("invalid restock request id"))
		return
	}

	actor := ""
	if user := CurrentUser(c); user != nil {
		actor = user.Name
	}

	var request *models.RestockRequest
	if approve {
		request, err = h.portal.ApproveRestockRequest(c.Request.Context(), id, actor)
	} else {
		request, err = h.portal.RejectRestockRequest(c.Request.Context(), id, actor)
	}
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "request": request})
}
