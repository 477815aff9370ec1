package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"example.com/roofops/services/portal/internal/database"
	"example.com/roofops/services/portal/internal/models"
)

// InventoryRepository defines the interface for inventory persistence
type InventoryRepository interface {
	Create(ctx context.Context, item *models.InventoryItem) (*models.InventoryItem, error)
	GetByProductID(ctx context.Context, productID string) (*models.InventoryItem, error)
	List(ctx context.Context) ([]*models.InventoryItem, error)
	ListLowStock(ctx context.Context) ([]*models.InventoryItem, error)
	CompareAndSetQuantity(ctx context.Context, productID string, expected, next int) error
	RecordAdjustment(ctx context.Context, adjustment *models.InventoryAdjustment) error
}

// inventoryRepository implements InventoryRepository
type inventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

// Create creates a new inventory item
func (r *inventoryRepository) Create(ctx context.Context, item *models.InventoryItem) (*models.InventoryItem, error) {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// GetByProductID gets an inventory item by product ID
func (r *inventoryRepository) GetByProductID(ctx context.Context, productID string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&item).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// List lists all inventory items
func (r *inventoryRepository) List(ctx context.Context) ([]*models.InventoryItem, error) {
	var items []*models.InventoryItem
	if err := r.db.WithContext(ctx).Order("product_id").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListLowStock lists items below their reorder threshold
func (r *inventoryRepository) ListLowStock(ctx context.Context) ([]*models.InventoryItem, error) {
	var items []*models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("quantity_on_hand < reorder_threshold").
		Order("product_id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// CompareAndSetQuantity writes the next quantity only if the row still
// holds the expected quantity. The store is the sole arbiter of
// consistency: a lost race surfaces as ErrConflict and the caller
// re-reads and retries.
func (r *inventoryRepository) CompareAndSetQuantity(ctx context.Context, productID string, expected, next int) error {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("product_id = ? AND quantity_on_hand = ?", productID, expected).
		Update("quantity_on_hand", next)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// RecordAdjustment appends an adjustment record
func (r *inventoryRepository) RecordAdjustment(ctx context.Context, adjustment *models.InventoryAdjustment) error {
	return r.db.WithContext(ctx).Create(adjustment).Error
}

// RestockRepository defines the interface for restock request persistence
type RestockRepository interface {
	Create(ctx context.Context, request *models.RestockRequest) (*models.RestockRequest, error)
	Update(ctx context.Context, request *models.RestockRequest) (*models.RestockRequest, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.RestockRequest, error)
	ListByStatus(ctx context.Context, status models.RestockRequestStatus) ([]*models.RestockRequest, error)
}

// restockRepository implements RestockRepository
type restockRepository struct {
	db *gorm.DB
}

// NewRestockRepository creates a new restock repository
func NewRestockRepository(db *gorm.DB) RestockRepository {
	return &restockRepository{db: db}
}

// Create creates a new restock request
func (r *restockRepository) Create(ctx context.Context, request *models.RestockRequest) (*models.RestockRequest, error) {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

// Update saves changes to a restock request
func (r *restockRepository) Update(ctx context.Context, request *models.RestockRequest) (*models.RestockRequest, error) {
	if err := r.db.WithContext(ctx).Save(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

// GetByID gets a restock request by ID
func (r *restockRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RestockRequest, error) {
	var request models.RestockRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &request, nil
}

// ListByStatus lists restock requests with the given status, oldest first
func (r *restockRepository) ListByStatus(ctx context.Context, status models.RestockRequestStatus) ([]*models.RestockRequest, error) {
	var requests []*models.RestockRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}
