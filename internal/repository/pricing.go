package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/roofops/services/portal/internal/database"
	"example.com/roofops/services/portal/internal/models"
)

// PricingRepository defines the interface for price-book persistence
type PricingRepository interface {
	Upsert(ctx context.Context, pricing *models.SupplierPricing) (*models.SupplierPricing, error)
	GetByProductSupplier(ctx context.Context, productID, supplier string) (*models.SupplierPricing, error)
	ListBySupplier(ctx context.Context, supplier string) ([]*models.SupplierPricing, error)
}

// pricingRepository implements PricingRepository
type pricingRepository struct {
	db *gorm.DB
}

// NewPricingRepository creates a new pricing repository
func NewPricingRepository(db *gorm.DB) PricingRepository {
	return &pricingRepository{db: db}
}

// Upsert creates or updates the price-book row for (product, supplier)
func (r *pricingRepository) Upsert(ctx context.Context, pricing *models.SupplierPricing) (*models.SupplierPricing, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_id"}, {Name: "supplier"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"agreed_unit_price", "effective_date", "updated_at",
		}),
	}).Create(pricing).Error
	if err != nil {
		return nil, err
	}
	return pricing, nil
}

// GetByProductSupplier gets the price-book row for (product, supplier)
func (r *pricingRepository) GetByProductSupplier(ctx context.Context, productID, supplier string) (*models.SupplierPricing, error) {
	var pricing models.SupplierPricing
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND supplier = ?", productID, supplier).
		First(&pricing).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &pricing, nil
}

// ListBySupplier lists price-book rows for a supplier
func (r *pricingRepository) ListBySupplier(ctx context.Context, supplier string) ([]*models.SupplierPricing, error) {
	var rows []*models.SupplierPricing
	err := r.db.WithContext(ctx).
		Where("supplier = ?", supplier).
		Order("product_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// AlertRepository defines the interface for price alert persistence
type AlertRepository interface {
	Create(ctx context.Context, alert *models.PriceAlert) (*models.PriceAlert, error)
	Update(ctx context.Context, alert *models.PriceAlert) (*models.PriceAlert, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.PriceAlert, error)
	ListByStatus(ctx context.Context, status models.PriceAlertStatus) ([]*models.PriceAlert, error)
	ListInRange(ctx context.Context, start, end time.Time) ([]*models.PriceAlert, error)
}

// alertRepository implements AlertRepository
type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

// Create creates a new price alert
func (r *alertRepository) Create(ctx context.Context, alert *models.PriceAlert) (*models.PriceAlert, error) {
	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		return nil, err
	}
	return alert, nil
}

// Update saves changes to a price alert
func (r *alertRepository) Update(ctx context.Context, alert *models.PriceAlert) (*models.PriceAlert, error) {
	if err := r.db.WithContext(ctx).Save(alert).Error; err != nil {
		return nil, err
	}
	return alert, nil
}

// GetByID gets a price alert by ID
func (r *alertRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PriceAlert, error) {
	var alert models.PriceAlert
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&alert).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &alert, nil
}

// ListByStatus lists alerts with the given status, most recent first
func (r *alertRepository) ListByStatus(ctx context.Context, status models.PriceAlertStatus) ([]*models.PriceAlert, error) {
	var alerts []*models.PriceAlert
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// ListInRange lists alerts created within the inclusive date range
func (r *alertRepository) ListInRange(ctx context.Context, start, end time.Time) ([]*models.PriceAlert, error) {
	var alerts []*models.PriceAlert
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at <= ?", start, end).
		Order("created_at").
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// AuditRepository persists the append-only audit log
type AuditRepository interface {
	Append(ctx context.Context, entry *models.AuditLogEntry) error
	ListInRange(ctx context.Context, start, end time.Time) ([]*models.AuditLogEntry, error)
}

// auditRepository implements AuditRepository
type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Append appends an audit log entry. Entries are never updated.
func (r *auditRepository) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListInRange lists audit entries within the inclusive date range
func (r *auditRepository) ListInRange(ctx context.Context, start, end time.Time) ([]*models.AuditLogEntry, error) {
	var entries []*models.AuditLogEntry
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at <= ?", start, end).
		Order("created_at").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
