package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"example.com/roofops/services/portal/internal/models"
	"example.com/roofops/services/portal/internal/service"
)

// DeliveryHandler handles delivery, order and driver endpoints
type DeliveryHandler struct {
	portal *service.DeliveryPortalService
}

// NewDeliveryHandler creates a new delivery handler
func NewDeliveryHandler(portal *service.DeliveryPortalService) *DeliveryHandler {
	return &DeliveryHandler{portal: portal}
}

// CreateOrder creates a customer order
func (h *DeliveryHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("invalid order payload: %v", err))
		return
	}

	order, err := h.portal.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "order": order})
}

// GetOrder fetches a single order with its line items
func (h *DeliveryHandler) GetOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		WriteError(c, service.NewValidationError("invalid order id"))
		return
	}

	order, err := h.portal.GetOrder(c.Request.Context(), id)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

// CancelOrder cancels an order
func (h *DeliveryHandler) CancelOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		WriteError(c, service.NewValidationError("invalid order id"))
		return
	}

	order, err := h.portal.CancelOrder(c.Request.Context(), id)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}

// CreateDelivery creates a delivery for an order
func (h *DeliveryHandler) CreateDelivery(c *gin.Context) {
	var req service.CreateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("invalid delivery payload: %v", err))
		return
	}

	delivery, err := h.portal.CreateDelivery(c.Request.Context(), &req)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "delivery": delivery})
}

// GetDelivery fetches a single delivery
func (h *DeliveryHandler) GetDelivery(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		WriteError(c, service.NewValidationError("invalid delivery id"))
		return
	}

	delivery, err := h.portal.GetDelivery(c.Request.Context(), id)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "delivery": delivery})
}

// ListDeliveries lists scheduled deliveries
func (h *DeliveryHandler) ListDeliveries(c *gin.Context) {
	deliveries, err := h.portal.ListScheduledDeliveries(c.Request.Context())
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deliveries": deliveries})
}

// assignDriverRequest is a driver assignment request
type assignDriverRequest struct {
	DriverID uuid.UUID `json:"driver_id" binding:"required"`
}

// AssignDriver assigns an available driver to a pending delivery
func (h *DeliveryHandler) AssignDriver(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		WriteError(c, service.NewValidationError("invalid delivery id"))
		return
	}

	var req assignDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("driver_id is required"))
		return
	}

	delivery, err := h.portal.AssignDriver(c.Request.Context(), id, req.DriverID)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "delivery": delivery})
}

// confirmLoadRequest is a load confirmation request
type confirmLoadRequest struct {
	DriverName string `json:"driver_name" binding:"required"`
}

// ConfirmLoad confirms the load for an assigned delivery
func (h *DeliveryHandler) ConfirmLoad(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		WriteError(c, service.NewValidationError("invalid delivery id"))
		return
	}

	var req confirmLoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("driver_name is required"))
		return
	}

	delivery, err := h.portal.ConfirmLoad(c.Request.Context(), id, req.DriverName)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "delivery": delivery})
}

// updateDeliveryStatusRequest is a delivery status update request
type updateDeliveryStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateDeliveryStatus applies a delivery status transition. A
// delivered transition reports the completion sequence outcome even
// when later steps failed, so the operator can reconcile.
func (h *DeliveryHandler) UpdateDeliveryStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		WriteError(c, service.NewValidationError("invalid delivery id"))
		return
	}

	var req updateDeliveryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("status is required"))
		return
	}

	actor := ""
	if user := CurrentUser(c); user != nil {
		actor = user.Name
	}

	result, err := h.portal.UpdateDeliveryStatus(c.Request.Context(), id,
		models.DeliveryStatus(req.Status), actor)
	if err != nil {
		WriteError(c, err)
		return
	}

	response := gin.H{"success": true, "delivery": result.Delivery}
	if result.Completion != nil {
		response["completion"] = result.Completion
	}
	c.JSON(http.StatusOK, response)
}

// CancelDelivery cancels a delivery and reopens its order
func (h *DeliveryHandler) CancelDelivery(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		WriteError(c, service.NewValidationError("invalid delivery id"))
		return
	}

	actor := ""
	if user := CurrentUser(c); user != nil {
		actor = user.Name
	}

	delivery, err := h.portal.CancelDelivery(c.Request.Context(), id, actor)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "delivery": delivery})
}

// GetCompletionStatus returns the persisted completion marker
func (h *DeliveryHandler) GetCompletionStatus(c *gin.Context) {
	completion, err := h.portal.GetCompletionStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "completion": completion})
}

// CreateDriver creates a driver
func (h *DeliveryHandler) CreateDriver(c *gin.Context) {
	var req service.CreateDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("invalid driver payload: %v", err))
		return
	}

	driver, err := h.portal.CreateDriver(c.Request.Context(), &req)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "driver": driver})
}

// ListDrivers lists all drivers
func (h *DeliveryHandler) ListDrivers(c *gin.Context) {
	drivers, err := h.portal.ListDrivers(c.Request.Context())
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "drivers": drivers})
}

// updateDriverStatusRequest is a driver status update request
type updateDriverStatusRequest struct {
	Status   string `json:"status" binding:"required"`
	Location string `json:"location"`
}

// UpdateDriverStatus records a driver's status and location
func (h *DeliveryHandler) UpdateDriverStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		WriteError(c, service.NewValidationError("invalid driver id"))
		return
	}

	var req updateDriverStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("status is required"))
		return
	}

	driver, err := h.portal.UpdateDriverStatus(c.Request.Context(), id,
		models.DriverStatus(req.Status), req.Location)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "driver": driver})
}
