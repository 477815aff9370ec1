package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SupplierPricing is one price-book row: the agreed unit price for a
// product from a supplier, unique per (product, supplier).
type SupplierPricing struct {
	Base
	ProductID       string          `json:"product_id" gorm:"uniqueIndex:idx_product_supplier"`
	Supplier        string          `json:"supplier" gorm:"uniqueIndex:idx_product_supplier"`
	AgreedUnitPrice decimal.Decimal `json:"agreed_unit_price" gorm:"type:numeric"`
	EffectiveDate   time.Time       `json:"effective_date"`
}

// PriceAlertStatus defines the triage status of a price alert
type PriceAlertStatus string

const (
	// AlertNew is the initial status of an alert
	AlertNew PriceAlertStatus = "new"
	// AlertUnderReview means someone is looking into the discrepancy
	AlertUnderReview PriceAlertStatus = "under-review"
	// AlertDisputed means the supplier has been challenged
	AlertDisputed PriceAlertStatus = "disputed"
	// AlertResolved means the discrepancy was settled
	AlertResolved PriceAlertStatus = "resolved"
	// AlertCreditReceived means the supplier issued a credit
	AlertCreditReceived PriceAlertStatus = "credit-received"
)

// PriceAlertStatusFromString converts a string to a PriceAlertStatus
func PriceAlertStatusFromString(status string) PriceAlertStatus {
	switch status {
	case "new":
		return AlertNew
	case "under-review":
		return AlertUnderReview
	case "disputed":
		return AlertDisputed
	case "resolved":
		return AlertResolved
	case "credit-received":
		return AlertCreditReceived
	default:
		return ""
	}
}

// alertTransitions lists the legal forward transitions per status
var alertTransitions = map[PriceAlertStatus][]PriceAlertStatus{
	AlertNew:         {AlertUnderReview},
	AlertUnderReview: {AlertDisputed, AlertResolved},
	AlertDisputed:    {AlertResolved},
	AlertResolved:    {AlertCreditReceived},
}

// CanTransitionTo reports whether the transition from s to next is legal.
// Alerts only move forward through the triage sequence.
func (s PriceAlertStatus) CanTransitionTo(next PriceAlertStatus) bool {
	for _, candidate := range alertTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// PriceAlert records a supplier invoice line billed above the agreed price
type PriceAlert struct {
	Base
	ProductID          string           `json:"product_id" gorm:"index"`
	Supplier           string           `json:"supplier" gorm:"index"`
	InvoiceNumber      string           `json:"invoice_number"`
	AgreedPrice        decimal.Decimal  `json:"agreed_price" gorm:"type:numeric"`
	InvoicedPrice      decimal.Decimal  `json:"invoiced_price" gorm:"type:numeric"`
	Quantity           int              `json:"quantity"`
	Discrepancy        decimal.Decimal  `json:"discrepancy" gorm:"type:numeric"`
	DiscrepancyPercent decimal.Decimal  `json:"discrepancy_percent" gorm:"type:numeric"`
	TotalOvercharge    decimal.Decimal  `json:"total_overcharge" gorm:"type:numeric"`
	Status             PriceAlertStatus `json:"status" gorm:"index"`
	CreditAmount       *decimal.Decimal `json:"credit_amount" gorm:"type:numeric"`
	Notes              string           `json:"notes"`
}

// AuditLogEntry is an append-only record of a portal action
type AuditLogEntry struct {
	Base
	ActionType  string `json:"action_type" gorm:"index"`
	Description string `json:"description"`
	Actor       string `json:"actor"`
}
