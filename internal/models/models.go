package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model fields shared by all models
type Base struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns an ID when one was not provided
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// SetupModels runs the schema migrations for all portal entities
func SetupModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&PortalUser{},
		&Driver{},
		&Delivery{},
		&Order{},
		&OrderLineItem{},
		&DeliveryCompletion{},
		&InventoryItem{},
		&InventoryAdjustment{},
		&RestockRequest{},
		&Invoice{},
		&Ticket{},
		&TicketChecklistItem{},
		&TicketPhoto{},
		&SupplierPricing{},
		&PriceAlert{},
		&AuditLogEntry{},
	)
}
