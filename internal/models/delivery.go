package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DriverStatus defines the availability status of a driver
type DriverStatus string

const (
	// DriverAvailable means the driver can take a new delivery
	DriverAvailable DriverStatus = "available"
	// DriverOnRoute means the driver is out on a delivery
	DriverOnRoute DriverStatus = "on-route"
	// DriverOffline means the driver is not working
	DriverOffline DriverStatus = "offline"
)

// DriverStatusFromString converts a string to a DriverStatus
func DriverStatusFromString(status string) DriverStatus {
	switch status {
	case "available":
		return DriverAvailable
	case "on-route":
		return DriverOnRoute
	case "offline":
		return DriverOffline
	default:
		return ""
	}
}

// Valid reports whether the status is a known driver status
func (s DriverStatus) Valid() bool {
	switch s {
	case DriverAvailable, DriverOnRoute, DriverOffline:
		return true
	}
	return false
}

// Driver represents a delivery driver
type Driver struct {
	Base
	Name              string       `json:"name"`
	PIN               string       `json:"-" gorm:"column:pin;uniqueIndex"`
	Status            DriverStatus `json:"status"`
	LastKnownLocation string       `json:"last_known_location"`
}

// DeliveryStatus defines the lifecycle status of a delivery
type DeliveryStatus string

const (
	// DeliveryPending is the initial status of a delivery
	DeliveryPending DeliveryStatus = "pending"
	// DeliveryAssigned means a driver has been assigned
	DeliveryAssigned DeliveryStatus = "assigned"
	// DeliveryLoaded means the load has been confirmed onto the truck
	DeliveryLoaded DeliveryStatus = "loaded"
	// DeliveryInTransit means the truck is on its way
	DeliveryInTransit DeliveryStatus = "in-transit"
	// DeliveryDelivered is the successful terminal status
	DeliveryDelivered DeliveryStatus = "delivered"
	// DeliveryCancelled is the abandoned terminal status
	DeliveryCancelled DeliveryStatus = "cancelled"
)

// DeliveryStatusFromString converts a string to a DeliveryStatus
func DeliveryStatusFromString(status string) DeliveryStatus {
	switch status {
	case "pending":
		return DeliveryPending
	case "assigned":
		return DeliveryAssigned
	case "loaded":
		return DeliveryLoaded
	case "in-transit":
		return DeliveryInTransit
	case "delivered":
		return DeliveryDelivered
	case "cancelled":
		return DeliveryCancelled
	default:
		return ""
	}
}

// Terminal reports whether the status ends the delivery lifecycle
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryDelivered || s == DeliveryCancelled
}

// deliverySuccessor maps each status to its single legal forward successor
var deliverySuccessor = map[DeliveryStatus]DeliveryStatus{
	DeliveryPending:   DeliveryAssigned,
	DeliveryAssigned:  DeliveryLoaded,
	DeliveryLoaded:    DeliveryInTransit,
	DeliveryInTransit: DeliveryDelivered,
}

// CanTransitionTo reports whether the transition from s to next is legal.
// Deliveries move along the single forward chain, with cancellation
// reachable from any non-terminal status.
func (s DeliveryStatus) CanTransitionTo(next DeliveryStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == DeliveryCancelled {
		return true
	}
	return deliverySuccessor[s] == next
}

// Delivery represents a scheduled material delivery to a job site
type Delivery struct {
	Base
	OrderID         uuid.UUID      `json:"order_id" gorm:"type:uuid;index"`
	DriverID        *uuid.UUID     `json:"driver_id" gorm:"type:uuid"`
	Status          DeliveryStatus `json:"status" gorm:"index"`
	ScheduledDate   time.Time      `json:"scheduled_date"`
	LoadConfirmedBy string         `json:"load_confirmed_by"`
	LoadConfirmedAt *time.Time     `json:"load_confirmed_at"`
	DeliveredAt     *time.Time     `json:"delivered_at"`
	Notes           string         `json:"notes"`
}

// OrderStatus defines the lifecycle status of a customer order
type OrderStatus string

const (
	// OrderOpen means the order has no active delivery yet
	OrderOpen OrderStatus = "open"
	// OrderScheduled means a delivery exists for the order
	OrderScheduled OrderStatus = "scheduled"
	// OrderInProgress means the delivery is underway
	OrderInProgress OrderStatus = "in-progress"
	// OrderFulfilled means the delivery completed
	OrderFulfilled OrderStatus = "fulfilled"
	// OrderCancelled means the order was called off
	OrderCancelled OrderStatus = "cancelled"
)

// Terminal reports whether the status ends the order lifecycle
func (s OrderStatus) Terminal() bool {
	return s == OrderFulfilled || s == OrderCancelled
}

// Order represents a customer material order
type Order struct {
	Base
	CustomerRef      string          `json:"customer_ref"`
	Status           OrderStatus     `json:"status" gorm:"index"`
	AssignedDriverID *uuid.UUID      `json:"assigned_driver_id" gorm:"type:uuid"`
	LineItems        []OrderLineItem `json:"line_items" gorm:"foreignKey:OrderID"`
}

// OrderLineItem represents one product line on an order
type OrderLineItem struct {
	Base
	OrderID     uuid.UUID       `json:"order_id" gorm:"type:uuid;index"`
	ProductID   string          `json:"product_id"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:numeric"`
}

// Completion step markers. Delivery completion is a multi-write sequence
// against a store with no transactions; each step is recorded as it
// lands so a partial failure is diagnosable.
const (
	CompletionStepStatus    = "status-updated"
	CompletionStepInventory = "inventory-adjusted"
	CompletionStepInvoice   = "invoice-created"
)

// DeliveryCompletion records progress of the delivery completion sequence
type DeliveryCompletion struct {
	Base
	DeliveryID    uuid.UUID  `json:"delivery_id" gorm:"type:uuid;uniqueIndex"`
	LastStep      string     `json:"last_step"`
	InvoiceID     *uuid.UUID `json:"invoice_id" gorm:"type:uuid"`
	FailedStep    string     `json:"failed_step"`
	FailureDetail string     `json:"failure_detail"`
}
