package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"example.com/roofops/services/portal/internal/models"
	"example.com/roofops/services/portal/internal/validation"
)

// CreateTicketRequest defines the request to create a ticket
type CreateTicketRequest struct {
	DeliveryID uuid.UUID `json:"delivery_id" validate:"required"`
	Title      string    `json:"title" validate:"required"`
	CreatedBy  string    `json:"created_by" validate:"required"`
	Checklist  []string  `json:"checklist"`
}

// CreateTicket creates a work-order ticket for a delivery, optionally
// seeding an ordered checklist.
func (s *DeliveryWorkflowService) CreateTicket(ctx context.Context, req *CreateTicketRequest) (*models.Ticket, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid ticket request: %v", err)
	}

	ticket := &models.Ticket{
		DeliveryID: req.DeliveryID,
		Title:      req.Title,
		CreatedBy:  req.CreatedBy,
	}
	created, err := retried(ctx, "ticket create", func() (*models.Ticket, error) {
		return s.tickets.CreateTicket(ctx, ticket)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create ticket")
	}

	for i, label := range req.Checklist {
		item := &models.TicketChecklistItem{
			TicketID: created.ID,
			Position: i + 1,
			Label:    label,
		}
		if _, err := retried(ctx, "checklist seed", func() (*models.TicketChecklistItem, error) {
			return s.tickets.AddChecklistItem(ctx, item)
		}); err != nil {
			return nil, errors.Wrap(err, "failed to seed ticket checklist")
		}
	}

	return created, nil
}

// AddChecklistItem appends a required step to a ticket's checklist
func (s *DeliveryWorkflowService) AddChecklistItem(ctx context.Context, ticketID uuid.UUID, label string) (*models.TicketChecklistItem, error) {
	if label == "" {
		return nil, NewValidationError("checklist label is required")
	}
	if _, err := retried(ctx, "ticket lookup", func() (*models.Ticket, error) {
		return s.tickets.GetTicket(ctx, ticketID)
	}); err != nil {
		return nil, notFoundOr(err, "ticket %s not found", ticketID)
	}

	existing, err := retried(ctx, "checklist list", func() ([]*models.TicketChecklistItem, error) {
		return s.tickets.ListChecklist(ctx, ticketID)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list checklist")
	}

	item := &models.TicketChecklistItem{
		TicketID: ticketID,
		Position: len(existing) + 1,
		Label:    label,
	}
	return retried(ctx, "checklist add", func() (*models.TicketChecklistItem, error) {
		return s.tickets.AddChecklistItem(ctx, item)
	})
}

// CompleteChecklistItem flags a checklist step done and stamps who did it
func (s *DeliveryWorkflowService) CompleteChecklistItem(ctx context.Context, itemID uuid.UUID, doneBy string) (*models.TicketChecklistItem, error) {
	if doneBy == "" {
		return nil, NewValidationError("done-by is required")
	}

	item, err := retried(ctx, "checklist lookup", func() (*models.TicketChecklistItem, error) {
		return s.tickets.GetChecklistItem(ctx, itemID)
	})
	if err != nil {
		return nil, notFoundOr(err, "checklist item %s not found", itemID)
	}
	if item.Done {
		return item, nil
	}

	item.Done = true
	item.DoneBy = doneBy
	return retried(ctx, "checklist update", func() (*models.TicketChecklistItem, error) {
		return s.tickets.UpdateChecklistItem(ctx, item)
	})
}

// AttachPhotoRequest defines the request to attach a ticket photo
type AttachPhotoRequest struct {
	Type    string `json:"type" validate:"required"`
	URL     string `json:"url" validate:"required"`
	Caption string `json:"caption"`
	TakenBy string `json:"taken_by"`
}

// AttachPhoto attaches a classified photo to a ticket
func (s *DeliveryWorkflowService) AttachPhoto(ctx context.Context, ticketID uuid.UUID, req *AttachPhotoRequest) (*models.TicketPhoto, error) {
	photoType := models.TicketPhotoType(req.Type)
	if !photoType.Valid() {
		return nil, NewValidationError("unknown photo type %q", req.Type)
	}
	if req.URL == "" {
		return nil, NewValidationError("photo URL is required")
	}
	if _, err := retried(ctx, "ticket lookup", func() (*models.Ticket, error) {
		return s.tickets.GetTicket(ctx, ticketID)
	}); err != nil {
		return nil, notFoundOr(err, "ticket %s not found", ticketID)
	}

	photo := &models.TicketPhoto{
		TicketID: ticketID,
		Type:     photoType,
		URL:      req.URL,
		Caption:  req.Caption,
		TakenBy:  req.TakenBy,
	}
	return retried(ctx, "photo attach", func() (*models.TicketPhoto, error) {
		return s.tickets.AddPhoto(ctx, photo)
	})
}

// GetTicketChecklist returns a ticket's checklist in order
func (s *DeliveryWorkflowService) GetTicketChecklist(ctx context.Context, ticketID uuid.UUID) ([]*models.TicketChecklistItem, error) {
	if _, err := retried(ctx, "ticket lookup", func() (*models.Ticket, error) {
		return s.tickets.GetTicket(ctx, ticketID)
	}); err != nil {
		return nil, notFoundOr(err, "ticket %s not found", ticketID)
	}
	return retried(ctx, "checklist list", func() ([]*models.TicketChecklistItem, error) {
		return s.tickets.ListChecklist(ctx, ticketID)
	})
}

// GetTicketPhotos returns a ticket's photos. An empty type returns all
// photos; otherwise the filter is an exact match.
func (s *DeliveryWorkflowService) GetTicketPhotos(ctx context.Context, ticketID uuid.UUID, photoType string) ([]*models.TicketPhoto, error) {
	filter := models.TicketPhotoType(photoType)
	if photoType != "" && !filter.Valid() {
		return nil, NewValidationError("unknown photo type %q", photoType)
	}
	if _, err := retried(ctx, "ticket lookup", func() (*models.Ticket, error) {
		return s.tickets.GetTicket(ctx, ticketID)
	}); err != nil {
		return nil, notFoundOr(err, "ticket %s not found", ticketID)
	}
	return retried(ctx, "photo list", func() ([]*models.TicketPhoto, error) {
		return s.tickets.ListPhotos(ctx, ticketID, filter)
	})
}
