package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/roofops/services/portal/internal/models"
	"example.com/roofops/services/portal/internal/repository"
)

func newWorkflowService() (*DeliveryWorkflowService, *MockInvoiceRepository, *MockTicketRepository) {
	invoices := new(MockInvoiceRepository)
	tickets := new(MockTicketRepository)
	return NewDeliveryWorkflowService(invoices, tickets, 0), invoices, tickets
}

func TestCreateInvoiceDraft(t *testing.T) {
	svc, invoices, _ := newWorkflowService()

	invoices.On("Create", mock.Anything, mock.MatchedBy(func(inv *models.Invoice) bool {
		return inv.Status == models.InvoiceDraft &&
			inv.Amount.Equal(decimal.RequireFromString("540.00")) &&
			strings.HasPrefix(inv.InvoiceNumber, "INV-")
	})).Return(&models.Invoice{Status: models.InvoiceDraft}, nil)

	invoice, err := svc.CreateInvoiceDraft(context.Background(), &CreateInvoiceRequest{
		CustomerRef: "JOB-1042",
		Amount:      "540.00",
	})

	require.NoError(t, err)
	require.Equal(t, models.InvoiceDraft, invoice.Status)
	invoices.AssertExpectations(t)
}

func TestCreateInvoiceDraft_Validation(t *testing.T) {
	svc, _, _ := newWorkflowService()

	_, err := svc.CreateInvoiceDraft(context.Background(), &CreateInvoiceRequest{Amount: "10.00"})
	require.Equal(t, KindValidation, KindOf(err))

	_, err = svc.CreateInvoiceDraft(context.Background(), &CreateInvoiceRequest{
		CustomerRef: "JOB-1042", Amount: "-5.00",
	})
	require.Equal(t, KindValidation, KindOf(err))
}

func TestUpdateInvoiceStatus_Transitions(t *testing.T) {
	invoiceID := uuid.New()

	cases := []struct {
		name    string
		from    models.InvoiceStatus
		to      models.InvoiceStatus
		wantErr bool
	}{
		{"draft to pending", models.InvoiceDraft, models.InvoicePending, false},
		{"pending to sent", models.InvoicePending, models.InvoiceSent, false},
		{"sent to overdue", models.InvoiceSent, models.InvoiceOverdue, false},
		{"draft to sent skips pending", models.InvoiceDraft, models.InvoiceSent, true},
		{"overdue back to draft", models.InvoiceOverdue, models.InvoiceDraft, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, invoices, _ := newWorkflowService()
			invoices.On("GetByID", mock.Anything, invoiceID).
				Return(&models.Invoice{Status: tc.from}, nil)
			if !tc.wantErr {
				invoices.On("Update", mock.Anything, mock.Anything).
					Return(&models.Invoice{Status: tc.to}, nil)
			}

			_, err := svc.UpdateInvoiceStatus(context.Background(), invoiceID, tc.to)
			if tc.wantErr {
				require.Error(t, err)
				require.Equal(t, KindPreconditionFailed, KindOf(err))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestUpdateInvoiceStatus_SentStampsDueDate(t *testing.T) {
	svc, invoices, _ := newWorkflowService()
	invoiceID := uuid.New()

	invoices.On("GetByID", mock.Anything, invoiceID).
		Return(&models.Invoice{Status: models.InvoicePending}, nil)
	invoices.On("Update", mock.Anything, mock.MatchedBy(func(inv *models.Invoice) bool {
		return inv.Status == models.InvoiceSent && inv.DueDate != nil
	})).Return(&models.Invoice{Status: models.InvoiceSent}, nil)

	_, err := svc.UpdateInvoiceStatus(context.Background(), invoiceID, models.InvoiceSent)

	require.NoError(t, err)
	invoices.AssertExpectations(t)
}

func TestUpdateInvoiceStatus_PaidNotReachableHere(t *testing.T) {
	svc, _, _ := newWorkflowService()

	_, err := svc.UpdateInvoiceStatus(context.Background(), uuid.New(), models.InvoicePaid)

	require.Error(t, err)
	require.Equal(t, KindValidation, KindOf(err))
}

func TestMarkInvoicePaid(t *testing.T) {
	svc, invoices, _ := newWorkflowService()
	invoiceID := uuid.New()

	invoices.On("GetByID", mock.Anything, invoiceID).
		Return(&models.Invoice{Status: models.InvoiceSent}, nil)
	invoices.On("Update", mock.Anything, mock.MatchedBy(func(inv *models.Invoice) bool {
		return inv.Status == models.InvoicePaid &&
			inv.PaymentMethod == "check" && inv.PaymentReference == "CHK-8841" &&
			inv.PaidAt != nil
	})).Return(&models.Invoice{Status: models.InvoicePaid}, nil)

	invoice, err := svc.MarkInvoicePaid(context.Background(), invoiceID, "check", "CHK-8841")

	require.NoError(t, err)
	require.Equal(t, models.InvoicePaid, invoice.Status)
}

func TestMarkInvoicePaid_Idempotent(t *testing.T) {
	svc, invoices, _ := newWorkflowService()
	invoiceID := uuid.New()

	invoices.On("GetByID", mock.Anything, invoiceID).
		Return(&models.Invoice{Status: models.InvoicePaid, PaymentReference: "CHK-8841"}, nil)

	invoice, err := svc.MarkInvoicePaid(context.Background(), invoiceID, "check", "CHK-8841")

	require.NoError(t, err)
	require.Equal(t, models.InvoicePaid, invoice.Status)
	invoices.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestMarkInvoicePaid_RequiresMethodAndReference(t *testing.T) {
	svc, _, _ := newWorkflowService()

	_, err := svc.MarkInvoicePaid(context.Background(), uuid.New(), "", "CHK-8841")
	require.Equal(t, KindValidation, KindOf(err))

	_, err = svc.MarkInvoicePaid(context.Background(), uuid.New(), "check", "")
	require.Equal(t, KindValidation, KindOf(err))
}

func TestMarkInvoicePaid_CancelledRejected(t *testing.T) {
	svc, invoices, _ := newWorkflowService()
	invoiceID := uuid.New()

	invoices.On("GetByID", mock.Anything, invoiceID).
		Return(&models.Invoice{Status: models.InvoiceCancelled}, nil)

	_, err := svc.MarkInvoicePaid(context.Background(), invoiceID, "check", "CHK-8841")

	require.Error(t, err)
	require.Equal(t, KindPreconditionFailed, KindOf(err))
}

func TestMarkInvoicePaid_RetriesTransientReadFailure(t *testing.T) {
	svc, invoices, _ := newWorkflowService()
	invoiceID := uuid.New()

	invoices.On("GetByID", mock.Anything, invoiceID).
		Return(nil, errors.New("ERROR: rate limit exceeded")).Once()
	invoices.On("GetByID", mock.Anything, invoiceID).
		Return(&models.Invoice{Base: models.Base{ID: invoiceID}, Status: models.InvoiceSent}, nil).Once()
	invoices.On("Update", mock.Anything, mock.MatchedBy(func(inv *models.Invoice) bool {
		return inv.Status == models.InvoicePaid
	})).Return(&models.Invoice{Status: models.InvoicePaid}, nil)

	invoice, err := svc.MarkInvoicePaid(context.Background(), invoiceID, "check", "CHK-1042")

	require.NoError(t, err)
	require.Equal(t, models.InvoicePaid, invoice.Status)
	invoices.AssertExpectations(t)
}

func TestMarkInvoicePaid_StoreOutageSurfacesUnavailable(t *testing.T) {
	svc, invoices, _ := newWorkflowService()
	invoiceID := uuid.New()

	invoices.On("GetByID", mock.Anything, invoiceID).
		Return(nil, errors.New("dial tcp: connection refused"))

	_, err := svc.MarkInvoicePaid(context.Background(), invoiceID, "check", "CHK-1042")

	require.Error(t, err)
	require.Equal(t, KindUnavailable, KindOf(err))
}

func TestCancelInvoice_PaidRejected(t *testing.T) {
	svc, invoices, _ := newWorkflowService()
	invoiceID := uuid.New()

	invoices.On("GetByID", mock.Anything, invoiceID).
		Return(&models.Invoice{Status: models.InvoicePaid}, nil)

	_, err := svc.CancelInvoice(context.Background(), invoiceID)

	require.Error(t, err)
	require.Equal(t, KindPreconditionFailed, KindOf(err))
}

func TestGetInvoices_UnknownStatus(t *testing.T) {
	svc, _, _ := newWorkflowService()

	_, err := svc.GetInvoices(context.Background(), models.InvoiceStatus("imaginary"), 0)

	require.Error(t, err)
	require.Equal(t, KindValidation, KindOf(err))
}

func TestGetInvoices_PassesFilter(t *testing.T) {
	svc, invoices, _ := newWorkflowService()

	invoices.On("List", mock.Anything, repository.InvoiceFilter{Status: models.InvoiceSent, Limit: 10}).
		Return([]*models.Invoice{{Status: models.InvoiceSent}}, nil)

	result, err := svc.GetInvoices(context.Background(), models.InvoiceSent, 10)

	require.NoError(t, err)
	require.Len(t, result, 1)
	invoices.AssertExpectations(t)
}

func TestMarkOverdueInvoices(t *testing.T) {
	svc, invoices, _ := newWorkflowService()

	invoices.On("ListSentDueBefore", mock.Anything, mock.Anything).
		Return([]*models.Invoice{
			{Status: models.InvoiceSent},
			{Status: models.InvoiceSent},
		}, nil)
	invoices.On("Update", mock.Anything, mock.MatchedBy(func(inv *models.Invoice) bool {
		return inv.Status == models.InvoiceOverdue
	})).Return(&models.Invoice{Status: models.InvoiceOverdue}, nil)

	marked, err := svc.MarkOverdueInvoices(context.Background())

	require.NoError(t, err)
	require.Equal(t, 2, marked)
}

func TestCreateTicket_SeedsChecklist(t *testing.T) {
	svc, _, tickets := newWorkflowService()
	deliveryID := uuid.New()
	ticketID := uuid.New()

	tickets.On("CreateTicket", mock.Anything, mock.Anything).
		Return(&models.Ticket{Base: models.Base{ID: ticketID}}, nil)
	tickets.On("AddChecklistItem", mock.Anything, mock.MatchedBy(func(item *models.TicketChecklistItem) bool {
		return item.Position == 1 && item.Label == "Verify address"
	})).Return(&models.TicketChecklistItem{}, nil).Once()
	tickets.On("AddChecklistItem", mock.Anything, mock.MatchedBy(func(item *models.TicketChecklistItem) bool {
		return item.Position == 2 && item.Label == "Photograph roof access"
	})).Return(&models.TicketChecklistItem{}, nil).Once()

	_, err := svc.CreateTicket(context.Background(), &CreateTicketRequest{
		DeliveryID: deliveryID,
		Title:      "Job-site delivery checklist",
		CreatedBy:  "dispatch",
		Checklist:  []string{"Verify address", "Photograph roof access"},
	})

	require.NoError(t, err)
	tickets.AssertExpectations(t)
}

func TestCompleteChecklistItem_Idempotent(t *testing.T) {
	svc, _, tickets := newWorkflowService()
	itemID := uuid.New()

	tickets.On("GetChecklistItem", mock.Anything, itemID).
		Return(&models.TicketChecklistItem{Done: true, DoneBy: "sam"}, nil)

	item, err := svc.CompleteChecklistItem(context.Background(), itemID, "pat")

	require.NoError(t, err)
	require.True(t, item.Done)
	require.Equal(t, "sam", item.DoneBy)
	tickets.AssertNotCalled(t, "UpdateChecklistItem", mock.Anything, mock.Anything)
}

func TestAttachPhoto_RejectsUnknownType(t *testing.T) {
	svc, _, _ := newWorkflowService()

	_, err := svc.AttachPhoto(context.Background(), uuid.New(), &AttachPhotoRequest{
		Type: "selfie",
		URL:  "https://example.com/p.jpg",
	})

	require.Error(t, err)
	require.Equal(t, KindValidation, KindOf(err))
}
