package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"example.com/roofops/services/portal/internal/models"
	"example.com/roofops/services/portal/internal/service"
)

// PricingHandler handles price-book, verification and alert endpoints
type PricingHandler struct {
	pricing *service.PriceVerificationService
}

// NewPricingHandler creates a new pricing handler
func NewPricingHandler(pricing *service.PriceVerificationService) *PricingHandler {
	return &PricingHandler{pricing: pricing}
}

// importPricingRequest carries price-book rows to upsert
type importPricingRequest struct {
	Rows []service.SupplierPricingRow `json:"rows" binding:"required"`
}

// ImportPricing upserts supplier price-book rows
func (h *PricingHandler) ImportPricing(c *gin.Context) {
	var req importPricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("invalid pricing payload: %v", err))
		return
	}

	imported, err := h.pricing.ImportSupplierPricing(c.Request.Context(), req.Rows)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "imported": imported})
}

// verifyInvoiceRequest carries a supplier invoice to verify
type verifyInvoiceRequest struct {
	Supplier      string                    `json:"supplier" binding:"required"`
	InvoiceNumber string                    `json:"invoice_number"`
	Items         []service.InvoiceLineItem `json:"items" binding:"required,dive"`
}

// VerifyInvoice checks supplier invoice lines against the price book
// without raising alerts
func (h *PricingHandler) VerifyInvoice(c *gin.Context) {
	var req verifyInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("invalid invoice payload: %v", err))
		return
	}

	result, err := h.pricing.VerifyInvoiceLineItems(c.Request.Context(), req.Supplier, req.Items)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// ProcessInvoice verifies a supplier invoice and raises an alert per
// overcharged line
func (h *PricingHandler) ProcessInvoice(c *gin.Context) {
	var req verifyInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("invalid invoice payload: %v", err))
		return
	}
	if req.InvoiceNumber == "" {
		WriteError(c, service.NewValidationError("invoice_number is required"))
		return
	}

	actor := ""
	if user := CurrentUser(c); user != nil {
		actor = user.Name
	}

	result, alerts, err := h.pricing.ProcessSupplierInvoice(c.Request.Context(),
		req.Supplier, req.InvoiceNumber, req.Items, actor)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result, "alerts": alerts})
}

// CreateAlert raises a price alert manually
func (h *PricingHandler) CreateAlert(c *gin.Context) {
	var req service.CreatePriceAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("invalid alert payload: %v", err))
		return
	}

	actor := ""
	if user := CurrentUser(c); user != nil {
		actor = user.Name
	}

	alert, err := h.pricing.CreatePriceAlert(c.Request.Context(), &req, actor)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "alert": alert})
}

// UpdateAlert applies triage updates to a price alert
func (h *PricingHandler) UpdateAlert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		WriteError(c, service.NewValidationError("invalid alert id"))
		return
	}

	var req service.UpdatePriceAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("invalid alert payload: %v", err))
		return
	}

	actor := ""
	if user := CurrentUser(c); user != nil {
		actor = user.Name
	}

	alert, err := h.pricing.UpdatePriceAlert(c.Request.Context(), id, &req, actor)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "alert": alert})
}

// ListAlerts lists price alerts by triage status
func (h *PricingHandler) ListAlerts(c *gin.Context) {
	alerts, err := h.pricing.ListAlertsByStatus(c.Request.Context(), models.PriceAlertStatus(c.Query("status")))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "alerts": alerts})
}

// logAuditActionRequest records a manual audit trail entry
type logAuditActionRequest struct {
	ActionType  string `json:"action_type" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// LogAuditAction appends a manual entry to the audit trail
func (h *PricingHandler) LogAuditAction(c *gin.Context) {
	var req logAuditActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("action_type and description are required"))
		return
	}

	actor := ""
	if user := CurrentUser(c); user != nil {
		actor = user.Name
	}

	if err := h.pricing.LogAuditAction(c.Request.Context(), req.ActionType, req.Description, actor); err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

// GetAuditSummary aggregates alert activity over a date range. Dates
// use YYYY-MM-DD; both are optional.
func (h *PricingHandler) GetAuditSummary(c *gin.Context) {
	var start, end time.Time
	var err error
	if raw := c.Query("start"); raw != "" {
		start, err = time.Parse("2006-01-02", raw)
		if err != nil {
			WriteError(c, service.NewValidationError("invalid start date %q", raw))
			return
		}
	}
	if raw := c.Query("end"); raw != "" {
		end, err = time.Parse("2006-01-02", raw)
		if err != nil {
			WriteError(c, service.NewValidationError("invalid end date %q", raw))
			return
		}
	}

	summary, err := h.pricing.GetAuditSummary(c.Request.Context(), start, end)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": summary})
}
