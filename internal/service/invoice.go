package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/roofops/services/portal/internal/models"
	"example.com/roofops/services/portal/internal/repository"
	"example.com/roofops/services/portal/internal/validation"
)

// DeliveryWorkflowService owns the invoice lifecycle and per-delivery
// ticket artifacts. Deliveries are referenced by identifier only.
type DeliveryWorkflowService struct {
	invoices repository.InvoiceRepository
	tickets  repository.TicketRepository
	dueAfter time.Duration
}

// NewDeliveryWorkflowService creates a new delivery workflow service
func NewDeliveryWorkflowService(invoices repository.InvoiceRepository, tickets repository.TicketRepository, dueAfter time.Duration) *DeliveryWorkflowService {
	if dueAfter <= 0 {
		dueAfter = 30 * 24 * time.Hour
	}
	return &DeliveryWorkflowService{
		invoices: invoices,
		tickets:  tickets,
		dueAfter: dueAfter,
	}
}

// CreateInvoiceRequest defines the request to create an invoice draft
type CreateInvoiceRequest struct {
	DeliveryID  *uuid.UUID `json:"delivery_id"`
	CustomerRef string     `json:"customer_ref" validate:"required"`
	Amount      string     `json:"amount" validate:"required"`
}

// CreateInvoiceDraft opens a draft invoice, typically for a completed
// delivery but also standalone.
func (s *DeliveryWorkflowService) CreateInvoiceDraft(ctx context.Context, req *CreateInvoiceRequest) (*models.Invoice, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid invoice request: %v", err)
	}
	amount, err := parseMoney(req.Amount)
	if err != nil {
		return nil, NewValidationError("invalid invoice amount %q", req.Amount)
	}
	if amount.IsNegative() {
		return nil, NewValidationError("invoice amount cannot be negative")
	}

	invoice := &models.Invoice{
		InvoiceNumber: newInvoiceNumber(),
		DeliveryID:    req.DeliveryID,
		Status:        models.InvoiceDraft,
		Amount:        amount,
		CustomerRef:   req.CustomerRef,
	}
	created, err := retried(ctx, "invoice create", func() (*models.Invoice, error) {
		return s.invoices.Create(ctx, invoice)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create invoice draft")
	}

	log.Info().
		Str("invoice_id", created.ID.String()).
		Str("invoice_number", created.InvoiceNumber).
		Str("amount", created.Amount.StringFixed(2)).
		Msg("Invoice draft created")

	return created, nil
}

// UpdateInvoiceStatus applies an invoice status transition. Paid is not
// reachable here; MarkInvoicePaid is the only path to paid.
func (s *DeliveryWorkflowService) UpdateInvoiceStatus(ctx context.Context, invoiceID uuid.UUID, status models.InvoiceStatus) (*models.Invoice, error) {
	if models.InvoiceStatusFromString(string(status)) == "" {
		return nil, NewValidationError("unknown invoice status %q", status)
	}
	if status == models.InvoicePaid {
		return nil, NewValidationError("paid status must go through MarkInvoicePaid")
	}

	invoice, err := retried(ctx, "invoice lookup", func() (*models.Invoice, error) {
		return s.invoices.GetByID(ctx, invoiceID)
	})
	if err != nil {
		return nil, notFoundOr(err, "invoice %s not found", invoiceID)
	}
	if !invoice.Status.CanTransitionTo(status) {
		return nil, NewPreconditionError("cannot move invoice from %s to %s", invoice.Status, status)
	}

	invoice.Status = status
	if status == models.InvoiceSent && invoice.DueDate == nil {
		due := time.Now().Add(s.dueAfter)
		invoice.DueDate = &due
	}

	updated, err := retried(ctx, "invoice update", func() (*models.Invoice, error) {
		return s.invoices.Update(ctx, invoice)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to update invoice status")
	}

	log.Info().
		Str("invoice_id", invoiceID.String()).
		Str("status", string(status)).
		Msg("Invoice status updated")

	return updated, nil
}

// MarkInvoicePaid records payment on an invoice. Both payment method
// and reference are required. The call is idempotent: paying an
// already-paid invoice is a no-op success so retried client requests
// do not duplicate payment records.
func (s *DeliveryWorkflowService) MarkInvoicePaid(ctx context.Context, invoiceID uuid.UUID, paymentMethod, reference string) (*models.Invoice, error) {
	if paymentMethod == "" || reference == "" {
		return nil, NewValidationError("payment method and reference are required")
	}

	invoice, err := retried(ctx, "invoice lookup", func() (*models.Invoice, error) {
		return s.invoices.GetByID(ctx, invoiceID)
	})
	if err != nil {
		return nil, notFoundOr(err, "invoice %s not found", invoiceID)
	}

	if invoice.Status == models.InvoicePaid {
		return invoice, nil
	}
	if invoice.Status == models.InvoiceCancelled {
		return nil, NewPreconditionError("invoice %s is cancelled", invoiceID)
	}

	now := time.Now()
	invoice.Status = models.InvoicePaid
	invoice.PaymentMethod = paymentMethod
	invoice.PaymentReference = reference
	invoice.PaidAt = &now

	updated, err := retried(ctx, "invoice update", func() (*models.Invoice, error) {
		return s.invoices.Update(ctx, invoice)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to mark invoice paid")
	}

	log.Info().
		Str("invoice_id", invoiceID.String()).
		Str("payment_method", paymentMethod).
		Msg("Invoice marked paid")

	return updated, nil
}

// CancelInvoice cancels an invoice from any non-paid state
func (s *DeliveryWorkflowService) CancelInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := retried(ctx, "invoice lookup", func() (*models.Invoice, error) {
		return s.invoices.GetByID(ctx, invoiceID)
	})
	if err != nil {
		return nil, notFoundOr(err, "invoice %s not found", invoiceID)
	}
	if invoice.Status == models.InvoicePaid {
		return nil, NewPreconditionError("invoice %s is already paid", invoiceID)
	}
	if invoice.Status == models.InvoiceCancelled {
		return invoice, nil
	}

	invoice.Status = models.InvoiceCancelled
	return retried(ctx, "invoice update", func() (*models.Invoice, error) {
		return s.invoices.Update(ctx, invoice)
	})
}

// GetInvoices lists invoices most recent first, optionally filtered by
// status and truncated. The ordering is part of the contract.
func (s *DeliveryWorkflowService) GetInvoices(ctx context.Context, status models.InvoiceStatus, limit int) ([]*models.Invoice, error) {
	if status != "" && models.InvoiceStatusFromString(string(status)) == "" {
		return nil, NewValidationError("unknown invoice status %q", status)
	}
	return retried(ctx, "invoice list", func() ([]*models.Invoice, error) {
		return s.invoices.List(ctx, repository.InvoiceFilter{Status: status, Limit: limit})
	})
}

// GetInvoiceByID gets an invoice, failing loudly when absent
func (s *DeliveryWorkflowService) GetInvoiceByID(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	invoice, err := retried(ctx, "invoice lookup", func() (*models.Invoice, error) {
		return s.invoices.GetByID(ctx, invoiceID)
	})
	if err != nil {
		return nil, notFoundOr(err, "invoice %s not found", invoiceID)
	}
	return invoice, nil
}

// MarkOverdueInvoices sweeps sent invoices past their due date into
// overdue. Run periodically from the worker.
func (s *DeliveryWorkflowService) MarkOverdueInvoices(ctx context.Context) (int, error) {
	due, err := retried(ctx, "overdue candidate list", func() ([]*models.Invoice, error) {
		return s.invoices.ListSentDueBefore(ctx, time.Now())
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to list overdue candidates")
	}

	marked := 0
	for _, invoice := range due {
		invoice.Status = models.InvoiceOverdue
		if _, err := retried(ctx, "invoice update", func() (*models.Invoice, error) {
			return s.invoices.Update(ctx, invoice)
		}); err != nil {
			log.Error().Err(err).
				Str("invoice_id", invoice.ID.String()).
				Msg("Failed to mark invoice overdue")
			continue
		}
		marked++
	}

	if marked > 0 {
		log.Info().Int("count", marked).Msg("Marked invoices overdue")
	}
	return marked, nil
}

// newInvoiceNumber generates a short unique invoice number
func newInvoiceNumber() string {
	return fmt.Sprintf("INV-%s", strings.ToUpper(uuid.New().String()[:8]))
}
