package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/roofops/services/portal/internal/cache"
	"example.com/roofops/services/portal/internal/metrics"
	"example.com/roofops/services/portal/internal/models"
	"example.com/roofops/services/portal/internal/repository"
	"example.com/roofops/services/portal/internal/validation"
)

// DeliveryPortalService owns drivers, deliveries, orders, inventory and
// restock requests, and drives the delivery lifecycle.
type DeliveryPortalService struct {
	deliveries  repository.DeliveryRepository
	orders      repository.OrderRepository
	drivers     repository.DriverRepository
	inventory   repository.InventoryRepository
	restocks    repository.RestockRepository
	completions repository.CompletionRepository
	audit       repository.AuditRepository
	workflow    *DeliveryWorkflowService
	cache       *cache.RedisCache
	retryLimit  int
}

// NewDeliveryPortalService creates a new delivery portal service
func NewDeliveryPortalService(
	deliveries repository.DeliveryRepository,
	orders repository.OrderRepository,
	drivers repository.DriverRepository,
	inventory repository.InventoryRepository,
	restocks repository.RestockRepository,
	completions repository.CompletionRepository,
	audit repository.AuditRepository,
	workflow *DeliveryWorkflowService,
	redisCache *cache.RedisCache,
	retryLimit int,
) *DeliveryPortalService {
	if retryLimit <= 0 {
		retryLimit = 3
	}
	return &DeliveryPortalService{
		deliveries:  deliveries,
		orders:      orders,
		drivers:     drivers,
		inventory:   inventory,
		restocks:    restocks,
		completions: completions,
		audit:       audit,
		workflow:    workflow,
		cache:       redisCache,
		retryLimit:  retryLimit,
	}
}

// CreateOrderRequest defines the request to create an order
type CreateOrderRequest struct {
	CustomerRef string                 `json:"customer_ref" validate:"required"`
	LineItems   []OrderLineItemRequest `json:"line_items" validate:"required,dive"`
}

// OrderLineItemRequest defines one product line on an order request
type OrderLineItemRequest struct {
	ProductID   string `json:"product_id" validate:"required"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity" validate:"required,gt=0"`
	UnitPrice   string `json:"unit_price"`
}

// CreateDeliveryRequest defines the request to create a delivery
type CreateDeliveryRequest struct {
	OrderID       uuid.UUID `json:"order_id" validate:"required"`
	ScheduledDate time.Time `json:"scheduled_date" validate:"required"`
	Notes         string    `json:"notes"`
}

// CreateOrder creates a customer order with its line items
func (s *DeliveryPortalService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid order request: %v", err)
	}
	if len(req.LineItems) == 0 {
		return nil, NewValidationError("order requires at least one line item")
	}

	order := &models.Order{
		CustomerRef: req.CustomerRef,
		Status:      models.OrderOpen,
	}
	for _, li := range req.LineItems {
		if li.Quantity <= 0 {
			return nil, NewValidationError("line item quantity must be positive")
		}
		price, err := parseMoney(li.UnitPrice)
		if err != nil {
			return nil, NewValidationError("invalid unit price %q", li.UnitPrice)
		}
		order.LineItems = append(order.LineItems, models.OrderLineItem{
			ProductID:   li.ProductID,
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   price,
		})
	}

	created, err := retried(ctx, "order create", func() (*models.Order, error) {
		return s.orders.Create(ctx, order)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create order")
	}

	log.Info().
		Str("order_id", created.ID.String()).
		Str("customer_ref", created.CustomerRef).
		Int("line_items", len(created.LineItems)).
		Msg("Order created")

	return created, nil
}

// GetOrder gets an order with its line items
func (s *DeliveryPortalService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := retried(ctx, "order lookup", func() (*models.Order, error) {
		return s.orders.GetByID(ctx, id)
	})
	if err != nil {
		return nil, notFoundOr(err, "order %s not found", id)
	}
	return order, nil
}

// CancelOrder cancels an order that has not reached a terminal state.
// Orders are independently cancellable, e.g. before a delivery exists.
func (s *DeliveryPortalService) CancelOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := retried(ctx, "order lookup", func() (*models.Order, error) {
		return s.orders.GetByID(ctx, id)
	})
	if err != nil {
		return nil, notFoundOr(err, "order %s not found", id)
	}
	if order.Status.Terminal() {
		return nil, NewPreconditionError("order %s is already %s", id, order.Status)
	}

	order.Status = models.OrderCancelled
	updated, err := retried(ctx, "order update", func() (*models.Order, error) {
		return s.orders.Update(ctx, order)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to cancel order")
	}

	log.Info().Str("order_id", id.String()).Msg("Order cancelled")
	return updated, nil
}

// CreateDelivery creates a pending delivery for an order. Referential
// integrity is the service's job: the store enforces no foreign keys.
func (s *DeliveryPortalService) CreateDelivery(ctx context.Context, req *CreateDeliveryRequest) (*models.Delivery, error) {
	if req.ScheduledDate.IsZero() {
		return nil, NewValidationError("scheduled date is required")
	}

	order, err := retried(ctx, "order lookup", func() (*models.Order, error) {
		return s.orders.GetByID(ctx, req.OrderID)
	})
	if err != nil {
		return nil, notFoundOr(err, "order %s not found", req.OrderID)
	}
	if order.Status.Terminal() {
		return nil, NewPreconditionError("cannot schedule delivery for %s order", order.Status)
	}

	delivery := &models.Delivery{
		OrderID:       order.ID,
		Status:        models.DeliveryPending,
		ScheduledDate: req.ScheduledDate,
		Notes:         req.Notes,
	}
	created, err := retried(ctx, "delivery create", func() (*models.Delivery, error) {
		return s.deliveries.Create(ctx, delivery)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create delivery")
	}

	order.Status = models.OrderScheduled
	if _, err := retried(ctx, "order update", func() (*models.Order, error) {
		return s.orders.Update(ctx, order)
	}); err != nil {
		log.Warn().Err(err).
			Str("order_id", order.ID.String()).
			Msg("Delivery created but order status update failed")
	}

	log.Info().
		Str("delivery_id", created.ID.String()).
		Str("order_id", order.ID.String()).
		Time("scheduled", created.ScheduledDate).
		Msg("Delivery created")

	return created, nil
}

// GetDelivery gets a delivery by ID
func (s *DeliveryPortalService) GetDelivery(ctx context.Context, id uuid.UUID) (*models.Delivery, error) {
	delivery, err := retried(ctx, "delivery lookup", func() (*models.Delivery, error) {
		return s.deliveries.GetByID(ctx, id)
	})
	if err != nil {
		return nil, notFoundOr(err, "delivery %s not found", id)
	}
	return delivery, nil
}

// ListScheduledDeliveries lists non-terminal deliveries by schedule date
func (s *DeliveryPortalService) ListScheduledDeliveries(ctx context.Context) ([]*models.Delivery, error) {
	return retried(ctx, "delivery list", func() ([]*models.Delivery, error) {
		return s.deliveries.ListScheduled(ctx)
	})
}

// AssignDriver moves a pending delivery to assigned. The driver must
// exist and be available; the driver's own status is left alone.
func (s *DeliveryPortalService) AssignDriver(ctx context.Context, deliveryID, driverID uuid.UUID) (*models.Delivery, error) {
	delivery, err := retried(ctx, "delivery lookup", func() (*models.Delivery, error) {
		return s.deliveries.GetByID(ctx, deliveryID)
	})
	if err != nil {
		return nil, notFoundOr(err, "delivery %s not found", deliveryID)
	}
	if !delivery.Status.CanTransitionTo(models.DeliveryAssigned) {
		return nil, NewPreconditionError("cannot assign driver to %s delivery", delivery.Status)
	}

	driver, err := retried(ctx, "driver lookup", func() (*models.Driver, error) {
		return s.drivers.GetByID(ctx, driverID)
	})
	if err != nil {
		return nil, notFoundOr(err, "driver %s not found", driverID)
	}
	if driver.Status != models.DriverAvailable {
		return nil, NewPreconditionError("driver %s is %s, not available", driver.Name, driver.Status)
	}

	delivery.DriverID = &driver.ID
	delivery.Status = models.DeliveryAssigned
	updated, err := retried(ctx, "delivery update", func() (*models.Delivery, error) {
		return s.deliveries.Update(ctx, delivery)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to assign driver")
	}
	metrics.DeliveryTransitionCounter.WithLabelValues(string(models.DeliveryAssigned)).Inc()

	if order, err := retried(ctx, "order lookup", func() (*models.Order, error) {
		return s.orders.GetByID(ctx, delivery.OrderID)
	}); err == nil {
		order.AssignedDriverID = &driver.ID
		if _, err := retried(ctx, "order update", func() (*models.Order, error) {
			return s.orders.Update(ctx, order)
		}); err != nil {
			log.Warn().Err(err).Str("order_id", order.ID.String()).Msg("Failed to mirror driver onto order")
		}
	}

	log.Info().
		Str("delivery_id", deliveryID.String()).
		Str("driver_id", driverID.String()).
		Msg("Driver assigned to delivery")

	return updated, nil
}

// ConfirmLoad confirms the truck load for an assigned delivery and
// stamps who confirmed it and when.
func (s *DeliveryPortalService) ConfirmLoad(ctx context.Context, deliveryID uuid.UUID, driverName string) (*models.Delivery, error) {
	if driverName == "" {
		return nil, NewValidationError("driver name is required")
	}

	delivery, err := retried(ctx, "delivery lookup", func() (*models.Delivery, error) {
		return s.deliveries.GetByID(ctx, deliveryID)
	})
	if err != nil {
		return nil, notFoundOr(err, "delivery %s not found", deliveryID)
	}
	if delivery.Status != models.DeliveryAssigned {
		return nil, NewPreconditionError("cannot confirm load for %s delivery", delivery.Status)
	}

	now := time.Now()
	delivery.Status = models.DeliveryLoaded
	delivery.LoadConfirmedBy = driverName
	delivery.LoadConfirmedAt = &now

	updated, err := retried(ctx, "delivery update", func() (*models.Delivery, error) {
		return s.deliveries.Update(ctx, delivery)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to confirm load")
	}
	metrics.DeliveryTransitionCounter.WithLabelValues(string(models.DeliveryLoaded)).Inc()

	log.Info().
		Str("delivery_id", deliveryID.String()).
		Str("confirmed_by", driverName).
		Msg("Load confirmed")

	return updated, nil
}

// UpdateDeliveryStatusResult reports a status update. For delivered
// deliveries the completion sequence outcome is attached: the store has
// no transactions, so later steps can fail after earlier ones landed.
type UpdateDeliveryStatusResult struct {
	Delivery   *models.Delivery
	Completion *CompletionResult
}

// UpdateDeliveryStatus applies a status transition, rejecting anything
// the transition table does not allow. Delivered triggers the
// completion sequence (inventory decrement, invoice draft).
func (s *DeliveryPortalService) UpdateDeliveryStatus(ctx context.Context, deliveryID uuid.UUID, status models.DeliveryStatus, actor string) (*UpdateDeliveryStatusResult, error) {
	if models.DeliveryStatusFromString(string(status)) == "" {
		return nil, NewValidationError("unknown delivery status %q", status)
	}
	if status == models.DeliveryAssigned {
		return nil, NewValidationError("driver assignment must go through AssignDriver")
	}
	if status == models.DeliveryLoaded {
		return nil, NewValidationError("load confirmation must go through ConfirmLoad")
	}

	delivery, err := retried(ctx, "delivery lookup", func() (*models.Delivery, error) {
		return s.deliveries.GetByID(ctx, deliveryID)
	})
	if err != nil {
		return nil, notFoundOr(err, "delivery %s not found", deliveryID)
	}
	if !delivery.Status.CanTransitionTo(status) {
		return nil, NewPreconditionError("cannot move delivery from %s to %s", delivery.Status, status)
	}

	delivery.Status = status
	if status == models.DeliveryDelivered {
		now := time.Now()
		delivery.DeliveredAt = &now
	}

	updated, err := retried(ctx, "delivery update", func() (*models.Delivery, error) {
		return s.deliveries.Update(ctx, delivery)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to update delivery status")
	}
	metrics.DeliveryTransitionCounter.WithLabelValues(string(status)).Inc()

	log.Info().
		Str("delivery_id", deliveryID.String()).
		Str("status", string(status)).
		Str("actor", actor).
		Msg("Delivery status updated")

	result := &UpdateDeliveryStatusResult{Delivery: updated}

	switch status {
	case models.DeliveryInTransit:
		s.markOrderInProgress(ctx, updated.OrderID)
	case models.DeliveryDelivered:
		// The status write above is step one of the completion
		// sequence; the rest runs as independent writes.
		result.Completion = s.completeDelivery(ctx, updated, actor)
	case models.DeliveryCancelled:
		// Inventory changes already committed are not reversed here;
		// compensating adjustments are an explicit separate operation.
		s.reopenOrder(ctx, updated.OrderID)
	}

	return result, nil
}

// CancelDelivery cancels a delivery and reopens its order. Allowed from
// any non-terminal status.
func (s *DeliveryPortalService) CancelDelivery(ctx context.Context, deliveryID uuid.UUID, actor string) (*models.Delivery, error) {
	result, err := s.UpdateDeliveryStatus(ctx, deliveryID, models.DeliveryCancelled, actor)
	if err != nil {
		return nil, err
	}
	return result.Delivery, nil
}

// reopenOrder returns an order to open after its delivery was cancelled
func (s *DeliveryPortalService) reopenOrder(ctx context.Context, orderID uuid.UUID) {
	order, err := retried(ctx, "order lookup", func() (*models.Order, error) {
		return s.orders.GetByID(ctx, orderID)
	})
	if err != nil {
		log.Warn().Err(err).Str("order_id", orderID.String()).Msg("Failed to load order after delivery cancellation")
		return
	}
	if order.Status.Terminal() {
		return
	}
	order.Status = models.OrderOpen
	order.AssignedDriverID = nil
	if _, err := retried(ctx, "order update", func() (*models.Order, error) {
		return s.orders.Update(ctx, order)
	}); err != nil {
		log.Warn().Err(err).Str("order_id", orderID.String()).Msg("Failed to reopen order after delivery cancellation")
	}
}

// markOrderInProgress mirrors an in-transit delivery onto its order
func (s *DeliveryPortalService) markOrderInProgress(ctx context.Context, orderID uuid.UUID) {
	order, err := retried(ctx, "order lookup", func() (*models.Order, error) {
		return s.orders.GetByID(ctx, orderID)
	})
	if err != nil {
		log.Warn().Err(err).Str("order_id", orderID.String()).Msg("Failed to load order for in-progress mirror")
		return
	}
	if order.Status.Terminal() || order.Status == models.OrderInProgress {
		return
	}
	order.Status = models.OrderInProgress
	if _, err := retried(ctx, "order update", func() (*models.Order, error) {
		return s.orders.Update(ctx, order)
	}); err != nil {
		log.Warn().Err(err).Str("order_id", orderID.String()).Msg("Failed to mark order in progress")
	}
}

// UpdateDriverStatus records a driver's status and location. This is a
// free-form write reflecting dispatch reality, no transition rules.
func (s *DeliveryPortalService) UpdateDriverStatus(ctx context.Context, driverID uuid.UUID, status models.DriverStatus, location string) (*models.Driver, error) {
	if !status.Valid() {
		return nil, NewValidationError("unknown driver status %q", status)
	}

	driver, err := retried(ctx, "driver lookup", func() (*models.Driver, error) {
		return s.drivers.GetByID(ctx, driverID)
	})
	if err != nil {
		return nil, notFoundOr(err, "driver %s not found", driverID)
	}

	driver.Status = status
	if location != "" {
		driver.LastKnownLocation = location
	}

	updated, err := retried(ctx, "driver update", func() (*models.Driver, error) {
		return s.drivers.Update(ctx, driver)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to update driver status")
	}

	if err := s.cache.Invalidate(ctx, cache.DriverListKey); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate driver list cache")
	}

	return updated, nil
}

// ListDrivers lists drivers through the short-lived read cache. The
// listing is a low-volatility display read; every driver write
// invalidates it.
func (s *DeliveryPortalService) ListDrivers(ctx context.Context) ([]*models.Driver, error) {
	var cached []*models.Driver
	if err := s.cache.Get(ctx, cache.DriverListKey, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		log.Warn().Err(err).Msg("Failed to read driver list from cache")
	}

	drivers, err := retried(ctx, "driver list", func() ([]*models.Driver, error) {
		return s.drivers.List(ctx)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list drivers")
	}

	if err := s.cache.Set(ctx, cache.DriverListKey, drivers); err != nil {
		log.Warn().Err(err).Msg("Failed to cache driver list")
	}

	return drivers, nil
}

// CreateDriverRequest defines the request to create a driver
type CreateDriverRequest struct {
	Name string `json:"name" validate:"required"`
	PIN  string `json:"pin" validate:"required,min=4"`
}

// CreateDriver creates a driver. The PIN must be unique across drivers;
// the unique index is the arbiter.
func (s *DeliveryPortalService) CreateDriver(ctx context.Context, req *CreateDriverRequest) (*models.Driver, error) {
	if req.Name == "" || len(req.PIN) < 4 {
		return nil, NewValidationError("driver name and a PIN of at least 4 digits are required")
	}

	driver := &models.Driver{
		Name:   req.Name,
		PIN:    req.PIN,
		Status: models.DriverAvailable,
	}
	created, err := retried(ctx, "driver create", func() (*models.Driver, error) {
		return s.drivers.Create(ctx, driver)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create driver")
	}

	if err := s.cache.Invalidate(ctx, cache.DriverListKey); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate driver list cache")
	}

	return created, nil
}
