package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"example.com/roofops/services/portal/internal/database"
	"example.com/roofops/services/portal/internal/models"
)

// InvoiceFilter narrows invoice listings
type InvoiceFilter struct {
	Status models.InvoiceStatus
	Limit  int
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error)
	Update(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, filter InvoiceFilter) ([]*models.Invoice, error)
	ListSentDueBefore(ctx context.Context, cutoff time.Time) ([]*models.Invoice, error)
}

// invoiceRepository implements InvoiceRepository
type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

// Create creates a new invoice
func (r *invoiceRepository) Create(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	if err := r.db.WithContext(ctx).Create(invoice).Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

// Update saves changes to an invoice
func (r *invoiceRepository) Update(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	if err := r.db.WithContext(ctx).Save(invoice).Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

// GetByID gets an invoice by ID
func (r *invoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&invoice).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// List lists invoices most recent first. UI pagination depends on the
// ordering, so it is part of the contract here.
func (r *invoiceRepository) List(ctx context.Context, filter InvoiceFilter) ([]*models.Invoice, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var invoices []*models.Invoice
	if err := q.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// ListSentDueBefore lists sent invoices whose due date passed before cutoff
func (r *invoiceRepository) ListSentDueBefore(ctx context.Context, cutoff time.Time) ([]*models.Invoice, error) {
	var invoices []*models.Invoice
	err := r.db.WithContext(ctx).
		Where("status = ? AND due_date IS NOT NULL AND due_date < ?", models.InvoiceSent, cutoff).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

// TicketRepository defines the interface for ticket artifact persistence
type TicketRepository interface {
	CreateTicket(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error)
	GetTicket(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	AddChecklistItem(ctx context.Context, item *models.TicketChecklistItem) (*models.TicketChecklistItem, error)
	UpdateChecklistItem(ctx context.Context, item *models.TicketChecklistItem) (*models.TicketChecklistItem, error)
	GetChecklistItem(ctx context.Context, id uuid.UUID) (*models.TicketChecklistItem, error)
	ListChecklist(ctx context.Context, ticketID uuid.UUID) ([]*models.TicketChecklistItem, error)
	AddPhoto(ctx context.Context, photo *models.TicketPhoto) (*models.TicketPhoto, error)
	ListPhotos(ctx context.Context, ticketID uuid.UUID, photoType models.TicketPhotoType) ([]*models.TicketPhoto, error)
}

// ticketRepository implements TicketRepository
type ticketRepository struct {
	db *gorm.DB
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

// CreateTicket creates a new ticket
func (r *ticketRepository) CreateTicket(ctx context.Context, ticket *models.Ticket) (*models.Ticket, error) {
	if err := r.db.WithContext(ctx).Create(ticket).Error; err != nil {
		return nil, err
	}
	return ticket, nil
}

// GetTicket gets a ticket by ID
func (r *ticketRepository) GetTicket(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&ticket).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

// AddChecklistItem appends a checklist item to a ticket
func (r *ticketRepository) AddChecklistItem(ctx context.Context, item *models.TicketChecklistItem) (*models.TicketChecklistItem, error) {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateChecklistItem saves changes to a checklist item
func (r *ticketRepository) UpdateChecklistItem(ctx context.Context, item *models.TicketChecklistItem) (*models.TicketChecklistItem, error) {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// GetChecklistItem gets a checklist item by ID
func (r *ticketRepository) GetChecklistItem(ctx context.Context, id uuid.UUID) (*models.TicketChecklistItem, error) {
	var item models.TicketChecklistItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// ListChecklist lists a ticket's checklist in order
func (r *ticketRepository) ListChecklist(ctx context.Context, ticketID uuid.UUID) ([]*models.TicketChecklistItem, error) {
	var items []*models.TicketChecklistItem
	err := r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("position").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// AddPhoto attaches a photo to a ticket
func (r *ticketRepository) AddPhoto(ctx context.Context, photo *models.TicketPhoto) (*models.TicketPhoto, error) {
	if err := r.db.WithContext(ctx).Create(photo).Error; err != nil {
		return nil, err
	}
	return photo, nil
}

// ListPhotos lists a ticket's photos, optionally filtered by exact type
func (r *ticketRepository) ListPhotos(ctx context.Context, ticketID uuid.UUID, photoType models.TicketPhotoType) ([]*models.TicketPhoto, error) {
	q := r.db.WithContext(ctx).Where("ticket_id = ?", ticketID)
	if photoType != "" {
		q = q.Where("type = ?", photoType)
	}

	var photos []*models.TicketPhoto
	if err := q.Order("created_at").Find(&photos).Error; err != nil {
		return nil, err
	}
	return photos, nil
}
