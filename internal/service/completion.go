package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"example.com/roofops/services/portal/internal/metrics"
	"example.com/roofops/services/portal/internal/models"
)

// CompletionResult names which steps of the delivery completion
// sequence succeeded. The backing store has no multi-row transactions,
// so the sequence is independent writes with no rollback; a partial
// outcome is reported to the operator rather than collapsed into one
// opaque error.
type CompletionResult struct {
	DeliveryID        string   `json:"delivery_id"`
	StatusUpdated     bool     `json:"status_updated"`
	InventoryAdjusted bool     `json:"inventory_adjusted"`
	InvoiceCreated    bool     `json:"invoice_created"`
	InvoiceID         string   `json:"invoice_id,omitempty"`
	StepErrors        []string `json:"step_errors,omitempty"`
}

// completeDelivery runs the post-delivery side effects: decrement
// inventory for every order line, then open an invoice draft. Each
// completed step is persisted as a marker so a crash mid-sequence is
// diagnosable and resumable.
func (s *DeliveryPortalService) completeDelivery(ctx context.Context, delivery *models.Delivery, actor string) *CompletionResult {
	result := &CompletionResult{
		DeliveryID:    delivery.ID.String(),
		StatusUpdated: true,
	}

	marker := &models.DeliveryCompletion{
		DeliveryID: delivery.ID,
		LastStep:   models.CompletionStepStatus,
	}
	s.persistMarker(ctx, marker)

	order, err := retried(ctx, "order lookup", func() (*models.Order, error) {
		return s.orders.GetByID(ctx, delivery.OrderID)
	})
	if err != nil {
		result.StepErrors = append(result.StepErrors,
			fmt.Sprintf("load order for inventory decrement: %v", err))
		marker.FailedStep = models.CompletionStepInventory
		marker.FailureDetail = err.Error()
		s.persistMarker(ctx, marker)
		metrics.CompletionStepErrorCounter.WithLabelValues(models.CompletionStepInventory).Inc()
		return result
	}

	// Step two: inventory decrement per line item. A failed line is
	// reported and the rest still run; quantities already written stay
	// written.
	inventoryOK := true
	amount := decimal.Zero
	for _, line := range order.LineItems {
		amount = amount.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		reason := fmt.Sprintf("delivery %s completed", delivery.ID)
		if _, err := s.UpdateInventoryQty(ctx, line.ProductID, -line.Quantity, reason); err != nil {
			inventoryOK = false
			result.StepErrors = append(result.StepErrors,
				fmt.Sprintf("decrement %s by %d: %v", line.ProductID, line.Quantity, err))
			metrics.CompletionStepErrorCounter.WithLabelValues(models.CompletionStepInventory).Inc()
		}
	}
	result.InventoryAdjusted = inventoryOK
	if inventoryOK {
		marker.LastStep = models.CompletionStepInventory
	} else {
		marker.FailedStep = models.CompletionStepInventory
		marker.FailureDetail = "one or more line decrements failed"
	}
	s.persistMarker(ctx, marker)

	// Step three: open the invoice draft downstream.
	invoice, err := s.workflow.CreateInvoiceDraft(ctx, &CreateInvoiceRequest{
		DeliveryID:  &delivery.ID,
		CustomerRef: order.CustomerRef,
		Amount:      amount.StringFixed(2),
	})
	if err != nil {
		result.StepErrors = append(result.StepErrors,
			fmt.Sprintf("create invoice draft: %v", err))
		marker.FailedStep = models.CompletionStepInvoice
		marker.FailureDetail = err.Error()
		s.persistMarker(ctx, marker)
		metrics.CompletionStepErrorCounter.WithLabelValues(models.CompletionStepInvoice).Inc()

		log.Error().Err(err).
			Str("delivery_id", delivery.ID.String()).
			Msg("Delivery marked delivered but invoice draft failed; manual reconciliation needed")
	} else {
		result.InvoiceCreated = true
		result.InvoiceID = invoice.ID.String()
		marker.LastStep = models.CompletionStepInvoice
		marker.InvoiceID = &invoice.ID
		marker.FailedStep = ""
		marker.FailureDetail = ""
		s.persistMarker(ctx, marker)
	}

	if !order.Status.Terminal() {
		order.Status = models.OrderFulfilled
		if _, err := retried(ctx, "order update", func() (*models.Order, error) {
			return s.orders.Update(ctx, order)
		}); err != nil {
			log.Warn().Err(err).
				Str("order_id", order.ID.String()).
				Msg("Failed to mark order fulfilled after delivery")
		}
	}

	log.Info().
		Str("delivery_id", delivery.ID.String()).
		Bool("inventory_adjusted", result.InventoryAdjusted).
		Bool("invoice_created", result.InvoiceCreated).
		Str("actor", actor).
		Msg("Delivery completion sequence finished")

	return result
}

// persistMarker saves the completion step marker, logging on failure.
// The marker is diagnostic state; losing it never aborts the sequence.
func (s *DeliveryPortalService) persistMarker(ctx context.Context, marker *models.DeliveryCompletion) {
	if _, err := retried(ctx, "completion marker upsert", func() (*models.DeliveryCompletion, error) {
		return s.completions.Upsert(ctx, marker)
	}); err != nil {
		log.Warn().Err(err).
			Str("delivery_id", marker.DeliveryID.String()).
			Msg("Failed to persist completion step marker")
	}
}

// GetCompletionStatus returns the persisted completion marker for a
// delivery, for operators reconciling a partial failure.
func (s *DeliveryPortalService) GetCompletionStatus(ctx context.Context, deliveryID string) (*models.DeliveryCompletion, error) {
	id, err := parseUUID(deliveryID)
	if err != nil {
		return nil, NewValidationError("invalid delivery id %q", deliveryID)
	}
	completion, err := retried(ctx, "completion lookup", func() (*models.DeliveryCompletion, error) {
		return s.completions.GetByDeliveryID(ctx, id)
	})
	if err != nil {
		return nil, notFoundOr(err, "no completion record for delivery %s", deliveryID)
	}
	return completion, nil
}
