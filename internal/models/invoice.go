package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus defines the lifecycle status of an invoice
type InvoiceStatus string

const (
	// InvoiceDraft is the initial status of an invoice
	InvoiceDraft InvoiceStatus = "draft"
	// InvoicePending is ready to send
	InvoicePending InvoiceStatus = "pending"
	// InvoiceSent has gone out to the customer
	InvoiceSent InvoiceStatus = "sent"
	// InvoicePaid is the successful terminal status
	InvoicePaid InvoiceStatus = "paid"
	// InvoiceOverdue is a sent invoice past its due date
	InvoiceOverdue InvoiceStatus = "overdue"
	// InvoiceCancelled is the abandoned terminal status
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// InvoiceStatusFromString converts a string to an InvoiceStatus
func InvoiceStatusFromString(status string) InvoiceStatus {
	switch status {
	case "draft":
		return InvoiceDraft
	case "pending":
		return InvoicePending
	case "sent":
		return InvoiceSent
	case "paid":
		return InvoicePaid
	case "overdue":
		return InvoiceOverdue
	case "cancelled":
		return InvoiceCancelled
	default:
		return ""
	}
}

// Terminal reports whether the status ends the invoice lifecycle
func (s InvoiceStatus) Terminal() bool {
	return s == InvoicePaid || s == InvoiceCancelled
}

// invoiceTransitions lists the legal forward transitions per status.
// Paid is reachable only through MarkInvoicePaid, never through a
// generic status write.
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceDraft:   {InvoicePending, InvoiceCancelled},
	InvoicePending: {InvoiceSent, InvoiceCancelled},
	InvoiceSent:    {InvoiceOverdue, InvoiceCancelled},
	InvoiceOverdue: {InvoiceCancelled},
}

// CanTransitionTo reports whether the transition from s to next is legal
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	for _, candidate := range invoiceTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Invoice represents a customer invoice, optionally tied to a delivery
type Invoice struct {
	Base
	InvoiceNumber    string          `json:"invoice_number" gorm:"uniqueIndex"`
	DeliveryID       *uuid.UUID      `json:"delivery_id" gorm:"type:uuid;index"`
	Status           InvoiceStatus   `json:"status" gorm:"index"`
	Amount           decimal.Decimal `json:"amount" gorm:"type:numeric"`
	CustomerRef      string          `json:"customer_ref"`
	DueDate          *time.Time      `json:"due_date"`
	PaymentMethod    string          `json:"payment_method"`
	PaymentReference string          `json:"payment_reference"`
	PaidAt           *time.Time      `json:"paid_at"`
}
