package models

import (
	"github.com/google/uuid"
)

// InventoryItem represents stock of one product in the warehouse
type InventoryItem struct {
	Base
	ProductID        string `json:"product_id" gorm:"uniqueIndex"`
	Category         string `json:"category"`
	QuantityOnHand   int    `json:"quantity_on_hand"`
	ReorderThreshold int    `json:"reorder_threshold"`
}

// LowStock reports whether the item has fallen below its reorder threshold
func (i *InventoryItem) LowStock() bool {
	return i.QuantityOnHand < i.ReorderThreshold
}

// InventoryAdjustment is an append-only record of a quantity change.
// Count corrections carry the counted-by and variance fields.
type InventoryAdjustment struct {
	Base
	ProductID string `json:"product_id" gorm:"index"`
	Change    int    `json:"change"`
	Reason    string `json:"reason"`
	CountedBy string `json:"counted_by"`
	Variance  int    `json:"variance"`
	Notes     string `json:"notes"`
}

// RestockRequestStatus defines the approval status of a restock request
type RestockRequestStatus string

const (
	// RestockPending awaits review
	RestockPending RestockRequestStatus = "pending"
	// RestockApproved was accepted by a reviewer
	RestockApproved RestockRequestStatus = "approved"
	// RestockRejected was declined by a reviewer
	RestockRejected RestockRequestStatus = "rejected"
)

// RestockRequest represents a request to reorder stock for a product
type RestockRequest struct {
	Base
	ProductID    string               `json:"product_id" gorm:"index"`
	RequestedQty int                  `json:"requested_qty"`
	RequestedBy  string               `json:"requested_by"`
	Status       RestockRequestStatus `json:"status"`
	ApprovedBy   string               `json:"approved_by"`
}

// TicketPhotoType classifies photos attached to a delivery ticket
type TicketPhotoType string

const (
	// PhotoBefore is taken before unloading
	PhotoBefore TicketPhotoType = "before"
	// PhotoAfter is taken after unloading
	PhotoAfter TicketPhotoType = "after"
	// PhotoDamage documents damaged material or property
	PhotoDamage TicketPhotoType = "damage"
	// PhotoOther covers anything else
	PhotoOther TicketPhotoType = "other"
)

// Valid reports whether the photo type is a known classification
func (t TicketPhotoType) Valid() bool {
	switch t {
	case PhotoBefore, PhotoAfter, PhotoDamage, PhotoOther:
		return true
	}
	return false
}

// Ticket is a work-order artifact tied to a delivery
type Ticket struct {
	Base
	DeliveryID uuid.UUID `json:"delivery_id" gorm:"type:uuid;index"`
	Title      string    `json:"title"`
	CreatedBy  string    `json:"created_by"`
}

// TicketChecklistItem is one ordered required step on a ticket
type TicketChecklistItem struct {
	Base
	TicketID uuid.UUID `json:"ticket_id" gorm:"type:uuid;index"`
	Position int       `json:"position"`
	Label    string    `json:"label"`
	Done     bool      `json:"done"`
	DoneBy   string    `json:"done_by"`
}

// TicketPhoto is a classified photo attached to a ticket
type TicketPhoto struct {
	Base
	TicketID uuid.UUID       `json:"ticket_id" gorm:"type:uuid;index"`
	Type     TicketPhotoType `json:"type" gorm:"index"`
	URL      string          `json:"url"`
	Caption  string          `json:"caption"`
	TakenBy  string          `json:"taken_by"`
}
