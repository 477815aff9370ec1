package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/roofops/services/portal/internal/database"
	"example.com/roofops/services/portal/internal/models"
)

// DriverRepository defines the interface for driver persistence
type DriverRepository interface {
	Create(ctx context.Context, driver *models.Driver) (*models.Driver, error)
	Update(ctx context.Context, driver *models.Driver) (*models.Driver, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Driver, error)
	GetByPIN(ctx context.Context, pin string) (*models.Driver, error)
	List(ctx context.Context) ([]*models.Driver, error)
}

// driverRepository implements DriverRepository
type driverRepository struct {
	db *gorm.DB
}

// NewDriverRepository creates a new driver repository
func NewDriverRepository(db *gorm.DB) DriverRepository {
	return &driverRepository{db: db}
}

// Create creates a new driver
func (r *driverRepository) Create(ctx context.Context, driver *models.Driver) (*models.Driver, error) {
	if err := r.db.WithContext(ctx).Create(driver).Error; err != nil {
		return nil, err
	}
	return driver, nil
}

// Update saves changes to a driver
func (r *driverRepository) Update(ctx context.Context, driver *models.Driver) (*models.Driver, error) {
	if err := r.db.WithContext(ctx).Save(driver).Error; err != nil {
		return nil, err
	}
	return driver, nil
}

// GetByID gets a driver by ID
func (r *driverRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Driver, error) {
	var driver models.Driver
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&driver).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &driver, nil
}

// GetByPIN gets a driver by their unique PIN
func (r *driverRepository) GetByPIN(ctx context.Context, pin string) (*models.Driver, error) {
	var driver models.Driver
	err := r.db.WithContext(ctx).Where("pin = ?", pin).First(&driver).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &driver, nil
}

// List lists all drivers
func (r *driverRepository) List(ctx context.Context) ([]*models.Driver, error) {
	var drivers []*models.Driver
	if err := r.db.WithContext(ctx).Order("name").Find(&drivers).Error; err != nil {
		return nil, err
	}
	return drivers, nil
}

// DeliveryRepository defines the interface for delivery persistence
type DeliveryRepository interface {
	Create(ctx context.Context, delivery *models.Delivery) (*models.Delivery, error)
	Update(ctx context.Context, delivery *models.Delivery) (*models.Delivery, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Delivery, error)
	ListByStatus(ctx context.Context, status models.DeliveryStatus) ([]*models.Delivery, error)
	ListScheduled(ctx context.Context) ([]*models.Delivery, error)
}

// deliveryRepository implements DeliveryRepository
type deliveryRepository struct {
	db *gorm.DB
}

// NewDeliveryRepository creates a new delivery repository
func NewDeliveryRepository(db *gorm.DB) DeliveryRepository {
	return &deliveryRepository{db: db}
}

// Create creates a new delivery
func (r *deliveryRepository) Create(ctx context.Context, delivery *models.Delivery) (*models.Delivery, error) {
	if err := r.db.WithContext(ctx).Create(delivery).Error; err != nil {
		return nil, err
	}
	return delivery, nil
}

// Update saves changes to a delivery
func (r *deliveryRepository) Update(ctx context.Context, delivery *models.Delivery) (*models.Delivery, error) {
	if err := r.db.WithContext(ctx).Save(delivery).Error; err != nil {
		return nil, err
	}
	return delivery, nil
}

// GetByID gets a delivery by ID
func (r *deliveryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&delivery).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &delivery, nil
}

// ListByStatus lists deliveries with the given status, most recent first
func (r *deliveryRepository) ListByStatus(ctx context.Context, status models.DeliveryStatus) ([]*models.Delivery, error) {
	var deliveries []*models.Delivery
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Find(&deliveries).Error
	if err != nil {
		return nil, err
	}
	return deliveries, nil
}

// ListScheduled lists non-terminal deliveries ordered by schedule date
func (r *deliveryRepository) ListScheduled(ctx context.Context) ([]*models.Delivery, error) {
	var deliveries []*models.Delivery
	err := r.db.WithContext(ctx).
		Where("status NOT IN (?)", []models.DeliveryStatus{
			models.DeliveryDelivered,
			models.DeliveryCancelled,
		}).
		Order("scheduled_date").
		Find(&deliveries).Error
	if err != nil {
		return nil, err
	}
	return deliveries, nil
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	Update(ctx context.Context, order *models.Order) (*models.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// orderRepository implements OrderRepository
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create creates a new order with its line items
func (r *orderRepository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// Update saves changes to an order
func (r *orderRepository) Update(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Omit("LineItems").Save(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// GetByID gets an order by ID with its line items
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("LineItems").Where("id = ?", id).First(&order).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// CompletionRepository persists delivery completion step markers
type CompletionRepository interface {
	Upsert(ctx context.Context, completion *models.DeliveryCompletion) (*models.DeliveryCompletion, error)
	GetByDeliveryID(ctx context.Context, deliveryID uuid.UUID) (*models.DeliveryCompletion, error)
}

// completionRepository implements CompletionRepository
type completionRepository struct {
	db *gorm.DB
}

// NewCompletionRepository creates a new completion repository
func NewCompletionRepository(db *gorm.DB) CompletionRepository {
	return &completionRepository{db: db}
}

// Upsert creates or updates the completion marker for a delivery
func (r *completionRepository) Upsert(ctx context.Context, completion *models.DeliveryCompletion) (*models.DeliveryCompletion, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "delivery_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"last_step", "invoice_id", "failed_step", "failure_detail", "updated_at",
		}),
	}).Create(completion).Error
	if err != nil {
		return nil, err
	}
	return completion, nil
}

// GetByDeliveryID gets the completion marker for a delivery
func (r *completionRepository) GetByDeliveryID(ctx context.Context, deliveryID uuid.UUID) (*models.DeliveryCompletion, error) {
	var completion models.DeliveryCompletion
	err := r.db.WithContext(ctx).Where("delivery_id = ?", deliveryID).First(&completion).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &completion, nil
}
