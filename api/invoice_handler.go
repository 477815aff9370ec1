package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"example.com/roofops/services/portal/internal/models"
	"example.com/roofops/services/portal/internal/service"
)

// InvoiceHandler handles invoice and work-order ticket endpoints
type InvoiceHandler struct {
	workflow *service.DeliveryWorkflowService
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(workflow *service.DeliveryWorkflowService) *InvoiceHandler {
	return &InvoiceHandler{workflow: workflow}
}

// CreateInvoice opens a draft invoice
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("invalid invoice payload: %v", err))
		return
	}

	invoice, err := h.workflow.CreateInvoiceDraft(c.Request.Context(), &req)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "invoice": invoice})
}

// ListInvoices lists invoices, optionally filtered by status
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			WriteError(c, service.NewValidationError("invalid limit %q", raw))
			return
		}
		limit = parsed
	}

	invoices, err := h.workflow.GetInvoices(c.Request.Context(), models.InvoiceStatus(c.Query("status")), limit)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "invoices": invoices})
}

// GetInvoice fetches a single invoice
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		WriteError(c, service.NewValidationError("invalid invoice id"))
		return
	}

	invoice, err := h.workflow.GetInvoiceByID(c.Request.Context(), id)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "invoice": invoice})
}

// updateInvoiceStatusRequest is an invoice status change request
type updateInvoiceStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateInvoiceStatus moves an invoice through its lifecycle
func (h *InvoiceHandler) UpdateInvoiceStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		WriteError(c, service.NewValidationError("invalid invoice id"))
		return
	}

	var req updateInvoiceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("status is required"))
		return
	}

	invoice, err := h.workflow.UpdateInvoiceStatus(c.Request.Context(), id, models.InvoiceStatus(req.Status))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "invoice": invoice})
}

// markPaidRequest carries the payment details for settling an invoice
type markPaidRequest struct {
	PaymentMethod    string `json:"payment_method" binding:"required"`
	PaymentReference string `json:"payment_reference" binding:"required"`
}

// MarkPaid settles an invoice
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		WriteError(c, service.NewValidationError("invalid invoice id"))
		return
	}

	var req markPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("payment_method and payment_reference are required"))
		return
	}

	invoice, err := h.workflow.MarkInvoicePaid(c.Request.Context(), id, req.PaymentMethod, req.PaymentReference)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "invoice": invoice})
}

// CancelInvoice cancels an unpaid invoice
func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		WriteError(c, service.NewValidationError("invalid invoice id"))
		return
	}

	invoice, err := h.workflow.CancelInvoice(c.Request.Context(), id)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "invoice": invoice})
}

// CreateTicket creates a work-order ticket
func (h *InvoiceHandler) CreateTicket(c *gin.Context) {
	var req service.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("invalid ticket payload: %v", err))
		return
	}
	if req.CreatedBy == "" {
		if user := CurrentUser(c); user != nil {
			req.CreatedBy = user.Name
		}
	}

	ticket, err := h.workflow.CreateTicket(c.Request.Context(), &req)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "ticket": ticket})
}

// addChecklistItemRequest adds one checklist entry to a ticket
type addChecklistItemRequest struct {
	Label string `json:"label" binding:"required"`
}

// AddChecklistItem appends a checklist entry to a ticket
func (h *InvoiceHandler) AddChecklistItem(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		WriteError(c, service.NewValidationError("invalid ticket id"))
		return
	}

	var req addChecklistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("label is required"))
		return
	}

	item, err := h.workflow.AddChecklistItem(c.Request.Context(), ticketID, req.Label)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "item": item})
}

// CompleteChecklistItem marks a checklist entry done
func (h *InvoiceHandler) CompleteChecklistItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		WriteError(c, service.NewValidationError("invalid checklist item id"))
		return
	}

	doneBy := ""
	if user := CurrentUser(c); user != nil {
		doneBy = user.Name
	}

	item, err := h.workflow.CompleteChecklistItem(c.Request.Context(), itemID, doneBy)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "item": item})
}

// GetChecklist lists a ticket's checklist in position order
func (h *InvoiceHandler) GetChecklist(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		WriteError(c, service.NewValidationError("invalid ticket id"))
		return
	}

	items, err := h.workflow.GetTicketChecklist(c.Request.Context(), ticketID)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "items": items})
}

// AttachPhoto attaches a classified photo to a ticket
func (h *InvoiceHandler) AttachPhoto(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		WriteError(c, service.NewValidationError("invalid ticket id"))
		return
	}

	var req service.AttachPhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("invalid photo payload: %v", err))
		return
	}
	if req.TakenBy == "" {
		if user := CurrentUser(c); user != nil {
			req.TakenBy = user.Name
		}
	}

	photo, err := h.workflow.AttachPhoto(c.Request.Context(), ticketID, &req)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "photo": photo})
}

// GetPhotos lists a ticket's photos, optionally filtered by type
func (h *InvoiceHandler) GetPhotos(c *gin.Context) {
	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		WriteError(c, service.NewValidationError("invalid ticket id"))
		return
	}

	photos, err := h.workflow.GetTicketPhotos(c.Request.Context(), ticketID, c.Query("type"))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "photos": photos})
}
