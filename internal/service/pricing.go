package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"example.com/roofops/services/portal/internal/metrics"
	"example.com/roofops/services/portal/internal/models"
	"example.com/roofops/services/portal/internal/repository"
	"example.com/roofops/services/portal/internal/store"
	"example.com/roofops/services/portal/internal/validation"
)

// PriceVerificationService verifies supplier invoice line items against
// the agreed price book, raises alerts on overcharges and maintains the
// audit trail.
type PriceVerificationService struct {
	pricing      repository.PricingRepository
	alerts       repository.AlertRepository
	audit        repository.AuditRepository
	summaryRange time.Duration
}

// NewPriceVerificationService creates a new price verification service
func NewPriceVerificationService(
	pricing repository.PricingRepository,
	alerts repository.AlertRepository,
	audit repository.AuditRepository,
	summaryRange time.Duration,
) *PriceVerificationService {
	if summaryRange <= 0 {
		summaryRange = 6 * 30 * 24 * time.Hour
	}
	return &PriceVerificationService{
		pricing:      pricing,
		alerts:       alerts,
		audit:        audit,
		summaryRange: summaryRange,
	}
}

// LineItemOutcome classifies one verified invoice line
type LineItemOutcome string

const (
	// OutcomeMatch means the invoiced price equals the agreed price
	OutcomeMatch LineItemOutcome = "match"
	// OutcomeOvercharge means the invoiced price exceeds the agreed price
	OutcomeOvercharge LineItemOutcome = "overcharge"
	// OutcomeUndercharge means the invoiced price is below the agreed price
	OutcomeUndercharge LineItemOutcome = "undercharge"
	// OutcomeUnverified means no price-book entry exists for the item
	OutcomeUnverified LineItemOutcome = "unverified"
)

// InvoiceLineItem is one line of a supplier invoice to verify
type InvoiceLineItem struct {
	ProductID     string `json:"product_id" validate:"required"`
	Description   string `json:"description"`
	Quantity      int    `json:"quantity" validate:"required,gt=0"`
	InvoicedPrice string `json:"invoiced_price" validate:"required"`
}

// LineItemResult is the verification outcome for one line item
type LineItemResult struct {
	ProductID     string          `json:"product_id"`
	Outcome       LineItemOutcome `json:"outcome"`
	AgreedPrice   decimal.Decimal `json:"agreed_price"`
	InvoicedPrice decimal.Decimal `json:"invoiced_price"`
	PriceDiff     decimal.Decimal `json:"price_diff"`
	Quantity      int             `json:"quantity"`
}

// VerificationResult aggregates per-item outcomes. TotalDiscrepancy
// sums priceDiff x quantity over overcharge items only: undercharges do
// not offset overcharges, because the risk being tracked is being
// billed above agreement.
type VerificationResult struct {
	Supplier         string           `json:"supplier"`
	Items            []LineItemResult `json:"items"`
	HasOvercharges   bool             `json:"has_overcharges"`
	DiscrepancyCount int              `json:"discrepancy_count"`
	TotalDiscrepancy decimal.Decimal  `json:"total_discrepancy"`
}

// VerifyInvoiceLineItems verifies each line against the price book.
// A missing price-book entry marks the item unverified; that is
// expected and never blocks invoice processing.
func (s *PriceVerificationService) VerifyInvoiceLineItems(ctx context.Context, supplier string, items []InvoiceLineItem) (*VerificationResult, error) {
	if supplier == "" {
		return nil, NewValidationError("supplier is required")
	}
	if len(items) == 0 {
		return nil, NewValidationError("at least one line item is required")
	}

	result := &VerificationResult{
		Supplier:         supplier,
		TotalDiscrepancy: decimal.Zero,
	}

	for _, item := range items {
		invoiced, err := parseMoney(item.InvoicedPrice)
		if err != nil {
			return nil, NewValidationError("invalid invoiced price %q for %s", item.InvoicedPrice, item.ProductID)
		}
		if item.Quantity <= 0 {
			return nil, NewValidationError("quantity for %s must be positive", item.ProductID)
		}

		itemResult := LineItemResult{
			ProductID:     item.ProductID,
			InvoicedPrice: invoiced,
			Quantity:      item.Quantity,
		}

		pricing, err := retried(ctx, "price book lookup", func() (*models.SupplierPricing, error) {
			return s.pricing.GetByProductSupplier(ctx, item.ProductID, supplier)
		})
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, errors.Wrap(err, "failed to look up price book entry")
			}
			itemResult.Outcome = OutcomeUnverified
			result.Items = append(result.Items, itemResult)
			continue
		}

		itemResult.AgreedPrice = pricing.AgreedUnitPrice
		itemResult.PriceDiff = invoiced.Sub(pricing.AgreedUnitPrice)

		switch {
		case itemResult.PriceDiff.IsPositive():
			itemResult.Outcome = OutcomeOvercharge
			result.HasOvercharges = true
			result.DiscrepancyCount++
			result.TotalDiscrepancy = result.TotalDiscrepancy.Add(
				itemResult.PriceDiff.Mul(decimal.NewFromInt(int64(item.Quantity))))
		case itemResult.PriceDiff.IsNegative():
			itemResult.Outcome = OutcomeUndercharge
			result.DiscrepancyCount++
		default:
			itemResult.Outcome = OutcomeMatch
		}

		result.Items = append(result.Items, itemResult)
	}

	return result, nil
}

// ProcessSupplierInvoice verifies an invoice and raises one price alert
// per overcharge line.
func (s *PriceVerificationService) ProcessSupplierInvoice(ctx context.Context, supplier, invoiceNumber string, items []InvoiceLineItem, actor string) (*VerificationResult, []*models.PriceAlert, error) {
	result, err := s.VerifyInvoiceLineItems(ctx, supplier, items)
	if err != nil {
		return nil, nil, err
	}

	var alerts []*models.PriceAlert
	for _, item := range result.Items {
		if item.Outcome != OutcomeOvercharge {
			continue
		}
		alert, err := s.CreatePriceAlert(ctx, &CreatePriceAlertRequest{
			ProductID:     item.ProductID,
			Supplier:      supplier,
			InvoiceNumber: invoiceNumber,
			AgreedPrice:   item.AgreedPrice.String(),
			InvoicedPrice: item.InvoicedPrice.String(),
			Quantity:      item.Quantity,
		}, actor)
		if err != nil {
			// The verification stands; report the alert failure
			return result, alerts, errors.Wrapf(err, "failed to raise alert for %s", item.ProductID)
		}
		alerts = append(alerts, alert)
	}

	return result, alerts, nil
}

// CreatePriceAlertRequest defines the request to raise a price alert
type CreatePriceAlertRequest struct {
	ProductID     string `json:"product_id" validate:"required"`
	Supplier      string `json:"supplier" validate:"required"`
	InvoiceNumber string `json:"invoice_number" validate:"required"`
	AgreedPrice   string `json:"agreed_price" validate:"required"`
	InvoicedPrice string `json:"invoiced_price" validate:"required"`
	Quantity      int    `json:"quantity" validate:"required,gt=0"`
	Notes         string `json:"notes"`
}

// CreatePriceAlert persists a new price alert. The discrepancy percent
// guards against a zero agreed price, yielding zero rather than a
// division fault.
func (s *PriceVerificationService) CreatePriceAlert(ctx context.Context, req *CreatePriceAlertRequest, actor string) (*models.PriceAlert, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid alert request: %v", err)
	}
	agreed, err := parseMoney(req.AgreedPrice)
	if err != nil {
		return nil, NewValidationError("invalid agreed price %q", req.AgreedPrice)
	}
	invoiced, err := parseMoney(req.InvoicedPrice)
	if err != nil {
		return nil, NewValidationError("invalid invoiced price %q", req.InvoicedPrice)
	}

	diff := invoiced.Sub(agreed)
	percent := decimal.Zero
	if !agreed.IsZero() {
		percent = diff.Div(agreed).Mul(decimal.NewFromInt(100))
	}

	alert := &models.PriceAlert{
		ProductID:          req.ProductID,
		Supplier:           req.Supplier,
		InvoiceNumber:      req.InvoiceNumber,
		AgreedPrice:        agreed,
		InvoicedPrice:      invoiced,
		Quantity:           req.Quantity,
		Discrepancy:        diff,
		DiscrepancyPercent: percent,
		TotalOvercharge:    diff.Mul(decimal.NewFromInt(int64(req.Quantity))),
		Status:             models.AlertNew,
		Notes:              req.Notes,
	}

	created, err := retried(ctx, "alert create", func() (*models.PriceAlert, error) {
		return s.alerts.Create(ctx, alert)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create price alert")
	}
	metrics.PriceAlertCounter.Inc()

	s.auditAlertMutation(ctx, actor, fmt.Sprintf(
		"Price alert raised for %s from %s on invoice %s: agreed %s, invoiced %s, overcharge %s",
		req.ProductID, req.Supplier, req.InvoiceNumber,
		agreed.StringFixed(2), invoiced.StringFixed(2), created.TotalOvercharge.StringFixed(2)))

	log.Info().
		Str("alert_id", created.ID.String()).
		Str("product_id", req.ProductID).
		Str("supplier", req.Supplier).
		Str("total_overcharge", created.TotalOvercharge.StringFixed(2)).
		Msg("Price alert created")

	return created, nil
}

// UpdatePriceAlertRequest defines the mutable price alert fields
type UpdatePriceAlertRequest struct {
	Status       string `json:"status"`
	CreditAmount string `json:"credit_amount"`
	Notes        string `json:"notes"`
}

// UpdatePriceAlert applies triage updates to an alert. Status writes
// must follow the forward triage sequence; anything else fails with a
// precondition error. A credit amount is only meaningful once the
// status is credit-received.
func (s *PriceVerificationService) UpdatePriceAlert(ctx context.Context, alertID uuid.UUID, req *UpdatePriceAlertRequest, actor string) (*models.PriceAlert, error) {
	alert, err := retried(ctx, "alert lookup", func() (*models.PriceAlert, error) {
		return s.alerts.GetByID(ctx, alertID)
	})
	if err != nil {
		return nil, notFoundOr(err, "price alert %s not found", alertID)
	}

	if req.Status != "" {
		next := models.PriceAlertStatusFromString(req.Status)
		if next == "" {
			return nil, NewValidationError("unknown alert status %q", req.Status)
		}
		if next != alert.Status && !alert.Status.CanTransitionTo(next) {
			return nil, NewPreconditionError("cannot move alert from %s to %s", alert.Status, next)
		}
		alert.Status = next
	}

	if req.CreditAmount != "" {
		if alert.Status != models.AlertCreditReceived {
			return nil, NewPreconditionError("credit amount requires credit-received status")
		}
		credit, err := parseMoney(req.CreditAmount)
		if err != nil {
			return nil, NewValidationError("invalid credit amount %q", req.CreditAmount)
		}
		alert.CreditAmount = &credit
	}

	if req.Notes != "" {
		alert.Notes = req.Notes
	}

	updated, err := retried(ctx, "alert update", func() (*models.PriceAlert, error) {
		return s.alerts.Update(ctx, alert)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to update price alert")
	}

	s.auditAlertMutation(ctx, actor, fmt.Sprintf(
		"Price alert %s updated: status %s", alertID, updated.Status))

	return updated, nil
}

// ListAlertsByStatus lists alerts in a triage status, most recent first
func (s *PriceVerificationService) ListAlertsByStatus(ctx context.Context, status models.PriceAlertStatus) ([]*models.PriceAlert, error) {
	if models.PriceAlertStatusFromString(string(status)) == "" {
		return nil, NewValidationError("unknown alert status %q", status)
	}
	return retried(ctx, "alert list", func() ([]*models.PriceAlert, error) {
		return s.alerts.ListByStatus(ctx, status)
	})
}

// LogAuditAction appends an immutable audit log entry
func (s *PriceVerificationService) LogAuditAction(ctx context.Context, actionType, description, actor string) error {
	if actionType == "" {
		return NewValidationError("action type is required")
	}
	entry := &models.AuditLogEntry{
		ActionType:  actionType,
		Description: description,
		Actor:       actor,
	}
	if err := retriedDo(ctx, "audit append", func() error {
		return s.audit.Append(ctx, entry)
	}); err != nil {
		return errors.Wrap(err, "failed to append audit entry")
	}
	return nil
}

// AuditSummary aggregates alert activity over a date range
type AuditSummary struct {
	Start           time.Time                       `json:"start"`
	End             time.Time                       `json:"end"`
	AlertCount      int                             `json:"alert_count"`
	CountsByStatus  map[models.PriceAlertStatus]int `json:"counts_by_status"`
	TotalOvercharge decimal.Decimal                 `json:"total_overcharge"`
	TotalCredited   decimal.Decimal                 `json:"total_credited"`
}

// GetAuditSummary aggregates alert counts and dollar totals within the
// inclusive date range. A zero range defaults to the trailing six
// months.
func (s *PriceVerificationService) GetAuditSummary(ctx context.Context, start, end time.Time) (*AuditSummary, error) {
	if end.IsZero() {
		end = time.Now()
	}
	if start.IsZero() {
		start = end.Add(-s.summaryRange)
	}
	if start.After(end) {
		return nil, NewValidationError("start date is after end date")
	}

	alerts, err := retried(ctx, "alert range list", func() ([]*models.PriceAlert, error) {
		return s.alerts.ListInRange(ctx, start, end)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list alerts for summary")
	}

	summary := &AuditSummary{
		Start:           start,
		End:             end,
		AlertCount:      len(alerts),
		CountsByStatus:  make(map[models.PriceAlertStatus]int),
		TotalOvercharge: decimal.Zero,
		TotalCredited:   decimal.Zero,
	}
	for _, alert := range alerts {
		summary.CountsByStatus[alert.Status]++
		summary.TotalOvercharge = summary.TotalOvercharge.Add(alert.TotalOvercharge)
		if alert.CreditAmount != nil {
			summary.TotalCredited = summary.TotalCredited.Add(*alert.CreditAmount)
		}
	}

	return summary, nil
}

// SupplierPricingRow is one price-book import row
type SupplierPricingRow struct {
	ProductID       string `json:"product_id" validate:"required"`
	Supplier        string `json:"supplier" validate:"required"`
	AgreedUnitPrice string `json:"agreed_unit_price" validate:"required"`
	EffectiveDate   string `json:"effective_date"`
}

// ImportSupplierPricing upserts price-book rows keyed by (product,
// supplier). Re-importing the same row updates price and effective date
// rather than duplicating.
func (s *PriceVerificationService) ImportSupplierPricing(ctx context.Context, rows []SupplierPricingRow) (int, error) {
	if len(rows) == 0 {
		return 0, NewValidationError("no rows to import")
	}

	imported := 0
	for _, row := range rows {
		if err := validation.ValidateStruct(row); err != nil {
			return imported, NewValidationError("invalid pricing row for %s: %v", row.ProductID, err)
		}
		price, err := parseMoney(row.AgreedUnitPrice)
		if err != nil {
			return imported, NewValidationError("invalid agreed price %q for %s", row.AgreedUnitPrice, row.ProductID)
		}

		effective := time.Now()
		if row.EffectiveDate != "" {
			parsed, err := time.Parse("2006-01-02", row.EffectiveDate)
			if err != nil {
				return imported, NewValidationError("invalid effective date %q for %s", row.EffectiveDate, row.ProductID)
			}
			effective = parsed
		}

		pricing := &models.SupplierPricing{
			ProductID:       row.ProductID,
			Supplier:        row.Supplier,
			AgreedUnitPrice: price,
			EffectiveDate:   effective,
		}
		if _, err := retried(ctx, "price book upsert", func() (*models.SupplierPricing, error) {
			return s.pricing.Upsert(ctx, pricing)
		}); err != nil {
			return imported, errors.Wrapf(err, "failed to upsert pricing for %s/%s", row.ProductID, row.Supplier)
		}
		imported++
	}

	log.Info().Int("rows", imported).Msg("Supplier pricing imported")
	return imported, nil
}

// auditAlertMutation writes the audit record paired with an alert
// mutation. The write is retried against transient store failures and
// logged loudly if it still fails; it never blocks the mutation itself.
func (s *PriceVerificationService) auditAlertMutation(ctx context.Context, actor, description string) {
	entry := &models.AuditLogEntry{
		ActionType:  "price-alert",
		Description: description,
		Actor:       actor,
	}
	err := store.RetryWithBackoff(ctx, func() error {
		return s.audit.Append(ctx, entry)
	}, 3)
	if err != nil {
		log.Error().Err(err).
			Str("actor", actor).
			Str("description", description).
			Msg("Audit write for alert mutation failed after retries")
	}
}
