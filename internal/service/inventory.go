package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/roofops/services/portal/internal/models"
	"example.com/roofops/services/portal/internal/repository"
	"example.com/roofops/services/portal/internal/store"
)

// UpdateInventoryQty applies an additive quantity adjustment. The write
// is read-modify-write against the store with a bounded retry loop: the
// store is the sole arbiter of consistency, and the non-negative check
// is re-validated on every attempt. Every adjustment is logged with its
// reason.
func (s *DeliveryPortalService) UpdateInventoryQty(ctx context.Context, productID string, qtyChange int, reason string) (*models.InventoryItem, error) {
	if reason == "" {
		return nil, NewValidationError("adjustment reason is required")
	}
	if qtyChange == 0 {
		return nil, NewValidationError("adjustment must be non-zero")
	}

	var lastErr error
	for attempt := 0; attempt < s.retryLimit; attempt++ {
		item, err := s.inventory.GetByProductID(ctx, productID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, NewNotFoundError("inventory item %s not found", productID)
			}
			if store.IsTransient(err) {
				lastErr = err
				backoffWait(ctx, attempt)
				continue
			}
			return nil, errors.Wrap(err, "failed to read inventory item")
		}

		next := item.QuantityOnHand + qtyChange
		if next < 0 {
			return nil, NewValidationError(
				"adjustment of %d would drive %s below zero (on hand: %d)",
				qtyChange, productID, item.QuantityOnHand)
		}

		err = s.inventory.CompareAndSetQuantity(ctx, productID, item.QuantityOnHand, next)
		if err == nil {
			adjustment := &models.InventoryAdjustment{
				ProductID: productID,
				Change:    qtyChange,
				Reason:    reason,
			}
			if err := s.inventory.RecordAdjustment(ctx, adjustment); err != nil {
				log.Warn().Err(err).
					Str("product_id", productID).
					Int("change", qtyChange).
					Msg("Quantity updated but adjustment record failed")
			}
			item.QuantityOnHand = next
			return item, nil
		}

		if errors.Is(err, repository.ErrConflict) {
			// Lost the race; re-read and try again
			continue
		}
		if store.IsTransient(err) {
			lastErr = err
			backoffWait(ctx, attempt)
			continue
		}
		return nil, errors.Wrap(err, "failed to write inventory quantity")
	}

	if lastErr != nil {
		log.Error().Err(lastErr).Str("product_id", productID).Msg("Inventory adjustment exhausted retries")
		return nil, NewUnavailableError("inventory store unavailable for %s", productID)
	}
	return nil, NewUnavailableError("inventory adjustment for %s kept conflicting", productID)
}

// InventoryCountResult reports a physical count reconciliation
type InventoryCountResult struct {
	ProductID         string `json:"product_id"`
	RecordedQty       int    `json:"recorded_qty"`
	ActualQty         int    `json:"actual_qty"`
	Variance          int    `json:"variance"`
	CorrectionApplied bool   `json:"correction_applied"`
}

// SubmitInventoryCount reconciles a physical count against the recorded
// quantity. The count is ground truth: a non-zero variance writes a
// correction and an audit note, never silently discarded.
func (s *DeliveryPortalService) SubmitInventoryCount(ctx context.Context, productID string, actualQty int, countedBy, notes string) (*InventoryCountResult, error) {
	if actualQty < 0 {
		return nil, NewValidationError("counted quantity cannot be negative")
	}
	if countedBy == "" {
		return nil, NewValidationError("counted-by is required")
	}

	item, err := retried(ctx, "inventory lookup", func() (*models.InventoryItem, error) {
		return s.inventory.GetByProductID(ctx, productID)
	})
	if err != nil {
		return nil, notFoundOr(err, "inventory item %s not found", productID)
	}

	result := &InventoryCountResult{
		ProductID:   productID,
		RecordedQty: item.QuantityOnHand,
		ActualQty:   actualQty,
		Variance:    actualQty - item.QuantityOnHand,
	}
	if result.Variance == 0 {
		return result, nil
	}

	err = retriedDo(ctx, "count correction", func() error {
		return s.inventory.CompareAndSetQuantity(ctx, productID, item.QuantityOnHand, actualQty)
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, NewPreconditionError("inventory for %s changed during count; recount required", productID)
		}
		return nil, errors.Wrap(err, "failed to apply count correction")
	}
	result.CorrectionApplied = true

	adjustment := &models.InventoryAdjustment{
		ProductID: productID,
		Change:    result.Variance,
		Reason:    "physical count correction",
		CountedBy: countedBy,
		Variance:  result.Variance,
		Notes:     notes,
	}
	if err := retriedDo(ctx, "adjustment record", func() error {
		return s.inventory.RecordAdjustment(ctx, adjustment)
	}); err != nil {
		log.Warn().Err(err).Str("product_id", productID).Msg("Count correction applied but adjustment record failed")
	}

	entry := &models.AuditLogEntry{
		ActionType: "inventory-count",
		Description: fmt.Sprintf("Count for %s: recorded %d, actual %d, variance %+d",
			productID, result.RecordedQty, actualQty, result.Variance),
		Actor: countedBy,
	}
	if err := retriedDo(ctx, "count audit", func() error {
		return s.audit.Append(ctx, entry)
	}); err != nil {
		log.Warn().Err(err).Str("product_id", productID).Msg("Failed to write count audit note")
	}

	log.Info().
		Str("product_id", productID).
		Int("variance", result.Variance).
		Str("counted_by", countedBy).
		Msg("Inventory count reconciled")

	return result, nil
}

// GetLowStockItems lists items below their reorder threshold
func (s *DeliveryPortalService) GetLowStockItems(ctx context.Context) ([]*models.InventoryItem, error) {
	items, err := retried(ctx, "low stock list", func() ([]*models.InventoryItem, error) {
		return s.inventory.ListLowStock(ctx)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list low stock items")
	}
	return items, nil
}

// ListInventory lists all inventory items
func (s *DeliveryPortalService) ListInventory(ctx context.Context) ([]*models.InventoryItem, error) {
	return retried(ctx, "inventory list", func() ([]*models.InventoryItem, error) {
		return s.inventory.List(ctx)
	})
}

// CreateInventoryItemRequest defines the request to create an inventory item
type CreateInventoryItemRequest struct {
	ProductID        string `json:"product_id" validate:"required"`
	Category         string `json:"category"`
	QuantityOnHand   int    `json:"quantity_on_hand" validate:"gte=0"`
	ReorderThreshold int    `json:"reorder_threshold" validate:"gte=0"`
}

// CreateInventoryItem creates an inventory item
func (s *DeliveryPortalService) CreateInventoryItem(ctx context.Context, req *CreateInventoryItemRequest) (*models.InventoryItem, error) {
	if req.ProductID == "" {
		return nil, NewValidationError("product id is required")
	}
	if req.QuantityOnHand < 0 {
		return nil, NewValidationError("quantity on hand cannot be negative")
	}

	item := &models.InventoryItem{
		ProductID:        req.ProductID,
		Category:         req.Category,
		QuantityOnHand:   req.QuantityOnHand,
		ReorderThreshold: req.ReorderThreshold,
	}
	return retried(ctx, "inventory create", func() (*models.InventoryItem, error) {
		return s.inventory.Create(ctx, item)
	})
}

// CreateRestockRequest opens a pending restock request for a product
func (s *DeliveryPortalService) CreateRestockRequest(ctx context.Context, productID string, requestedQty int, requestedBy string) (*models.RestockRequest, error) {
	if requestedQty <= 0 {
		return nil, NewValidationError("requested quantity must be positive")
	}
	if _, err := retried(ctx, "inventory lookup", func() (*models.InventoryItem, error) {
		return s.inventory.GetByProductID(ctx, productID)
	}); err != nil {
		return nil, notFoundOr(err, "inventory item %s not found", productID)
	}

	request := &models.RestockRequest{
		ProductID:    productID,
		RequestedQty: requestedQty,
		RequestedBy:  requestedBy,
		Status:       models.RestockPending,
	}
	return retried(ctx, "restock create", func() (*models.RestockRequest, error) {
		return s.restocks.Create(ctx, request)
	})
}

// ApproveRestockRequest approves a pending restock request and stamps
// the approver. Requests only transition out of pending.
func (s *DeliveryPortalService) ApproveRestockRequest(ctx context.Context, requestID uuid.UUID, approvedBy string) (*models.RestockRequest, error) {
	return s.resolveRestockRequest(ctx, requestID, models.RestockApproved, approvedBy)
}

// RejectRestockRequest rejects a pending restock request
func (s *DeliveryPortalService) RejectRestockRequest(ctx context.Context, requestID uuid.UUID, rejectedBy string) (*models.RestockRequest, error) {
	return s.resolveRestockRequest(ctx, requestID, models.RestockRejected, rejectedBy)
}

func (s *DeliveryPortalService) resolveRestockRequest(ctx context.Context, requestID uuid.UUID, status models.RestockRequestStatus, actor string) (*models.RestockRequest, error) {
	if actor == "" {
		return nil, NewValidationError("approver name is required")
	}

	request, err := retried(ctx, "restock lookup", func() (*models.RestockRequest, error) {
		return s.restocks.GetByID(ctx, requestID)
	})
	if err != nil {
		return nil, notFoundOr(err, "restock request %s not found", requestID)
	}
	if request.Status != models.RestockPending {
		return nil, NewPreconditionError("restock request %s is already %s", requestID, request.Status)
	}

	request.Status = status
	request.ApprovedBy = actor
	updated, err := retried(ctx, "restock update", func() (*models.RestockRequest, error) {
		return s.restocks.Update(ctx, request)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve restock request")
	}

	log.Info().
		Str("request_id", requestID.String()).
		Str("status", string(status)).
		Str("by", actor).
		Msg("Restock request resolved")

	return updated, nil
}

// ListPendingRestockRequests lists restock requests awaiting review
func (s *DeliveryPortalService) ListPendingRestockRequests(ctx context.Context) ([]*models.RestockRequest, error) {
	return retried(ctx, "restock list", func() ([]*models.RestockRequest, error) {
		return s.restocks.ListByStatus(ctx, models.RestockPending)
	})
}

// backoffWait sleeps for an exponential backoff step, capped, honoring
// context cancellation.
func backoffWait(ctx context.Context, attempt int) {
	backoff := time.Duration(1<<uint(attempt)) * 100 * time.Millisecond
	if backoff > 2*time.Second {
		backoff = 2 * time.Second
	}
	select {
	case <-time.After(backoff):
	case <-ctx.Done():
	}
}
