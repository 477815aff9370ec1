package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/roofops/services/portal/internal/models"
	"example.com/roofops/services/portal/internal/repository"
)

type portalMocks struct {
	deliveries  *MockDeliveryRepository
	orders      *MockOrderRepository
	drivers     *MockDriverRepository
	inventory   *MockInventoryRepository
	restocks    *MockRestockRepository
	completions *MockCompletionRepository
	audit       *MockAuditRepository
	invoices    *MockInvoiceRepository
	tickets     *MockTicketRepository
}

func newPortalService() (*DeliveryPortalService, *portalMocks) {
	m := &portalMocks{
		deliveries:  new(MockDeliveryRepository),
		orders:      new(MockOrderRepository),
		drivers:     new(MockDriverRepository),
		inventory:   new(MockInventoryRepository),
		restocks:    new(MockRestockRepository),
		completions: new(MockCompletionRepository),
		audit:       new(MockAuditRepository),
		invoices:    new(MockInvoiceRepository),
		tickets:     new(MockTicketRepository),
	}
	workflow := NewDeliveryWorkflowService(m.invoices, m.tickets, 0)
	svc := NewDeliveryPortalService(
		m.deliveries, m.orders, m.drivers,
		m.inventory, m.restocks, m.completions, m.audit,
		workflow, nil, 3)
	return svc, m
}

func TestUpdateInventoryQty(t *testing.T) {
	svc, m := newPortalService()

	m.inventory.On("GetByProductID", mock.Anything, "SHINGLE-30YR").
		Return(&models.InventoryItem{ProductID: "SHINGLE-30YR", QuantityOnHand: 50}, nil)
	m.inventory.On("CompareAndSetQuantity", mock.Anything, "SHINGLE-30YR", 50, 38).Return(nil)
	m.inventory.On("RecordAdjustment", mock.Anything, mock.MatchedBy(func(a *models.InventoryAdjustment) bool {
		return a.Change == -12 && a.Reason == "delivery load-out"
	})).Return(nil)

	item, err := svc.UpdateInventoryQty(context.Background(), "SHINGLE-30YR", -12, "delivery load-out")

	require.NoError(t, err)
	require.Equal(t, 38, item.QuantityOnHand)
	m.inventory.AssertExpectations(t)
}

func TestUpdateInventoryQty_RejectsNegativeResult(t *testing.T) {
	svc, m := newPortalService()

	m.inventory.On("GetByProductID", mock.Anything, "SHINGLE-30YR").
		Return(&models.InventoryItem{ProductID: "SHINGLE-30YR", QuantityOnHand: 5}, nil)

	_, err := svc.UpdateInventoryQty(context.Background(), "SHINGLE-30YR", -6, "delivery load-out")

	require.Error(t, err)
	require.Equal(t, KindValidation, KindOf(err))
	require.Contains(t, err.Error(), "on hand: 5")
	m.inventory.AssertNotCalled(t, "CompareAndSetQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateInventoryQty_RetriesOnConflict(t *testing.T) {
	svc, m := newPortalService()

	// First attempt loses the race, second attempt sees the new
	// quantity and wins.
	m.inventory.On("GetByProductID", mock.Anything, "NAIL-COIL").
		Return(&models.InventoryItem{ProductID: "NAIL-COIL", QuantityOnHand: 20}, nil).Once()
	m.inventory.On("CompareAndSetQuantity", mock.Anything, "NAIL-COIL", 20, 15).
		Return(repository.ErrConflict).Once()
	m.inventory.On("GetByProductID", mock.Anything, "NAIL-COIL").
		Return(&models.InventoryItem{ProductID: "NAIL-COIL", QuantityOnHand: 18}, nil).Once()
	m.inventory.On("CompareAndSetQuantity", mock.Anything, "NAIL-COIL", 18, 13).
		Return(nil).Once()
	m.inventory.On("RecordAdjustment", mock.Anything, mock.Anything).Return(nil)

	item, err := svc.UpdateInventoryQty(context.Background(), "NAIL-COIL", -5, "delivery load-out")

	require.NoError(t, err)
	require.Equal(t, 13, item.QuantityOnHand)
	m.inventory.AssertExpectations(t)
}

func TestUpdateInventoryQty_ExhaustsRetries(t *testing.T) {
	svc, m := newPortalService()

	m.inventory.On("GetByProductID", mock.Anything, "NAIL-COIL").
		Return(&models.InventoryItem{ProductID: "NAIL-COIL", QuantityOnHand: 20}, nil)
	m.inventory.On("CompareAndSetQuantity", mock.Anything, "NAIL-COIL", 20, 15).
		Return(repository.ErrConflict)

	_, err := svc.UpdateInventoryQty(context.Background(), "NAIL-COIL", -5, "delivery load-out")

	require.Error(t, err)
	require.Equal(t, KindUnavailable, KindOf(err))
}

func TestUpdateInventoryQty_RetriesTransientWriteFailure(t *testing.T) {
	svc, m := newPortalService()

	m.inventory.On("GetByProductID", mock.Anything, "SHINGLE-30YR").
		Return(&models.InventoryItem{ProductID: "SHINGLE-30YR", QuantityOnHand: 50}, nil)
	m.inventory.On("CompareAndSetQuantity", mock.Anything, "SHINGLE-30YR", 50, 38).
		Return(errors.New("ERROR: rate limit exceeded")).Once()
	m.inventory.On("CompareAndSetQuantity", mock.Anything, "SHINGLE-30YR", 50, 38).
		Return(nil).Once()
	m.inventory.On("RecordAdjustment", mock.Anything, mock.Anything).Return(nil)

	item, err := svc.UpdateInventoryQty(context.Background(), "SHINGLE-30YR", -12, "delivery load-out")

	require.NoError(t, err)
	require.Equal(t, 38, item.QuantityOnHand)
	m.inventory.AssertExpectations(t)
}

func TestUpdateInventoryQty_Validation(t *testing.T) {
	svc, _ := newPortalService()

	_, err := svc.UpdateInventoryQty(context.Background(), "X", -5, "")
	require.Equal(t, KindValidation, KindOf(err))

	_, err = svc.UpdateInventoryQty(context.Background(), "X", 0, "restock")
	require.Equal(t, KindValidation, KindOf(err))
}

func TestSubmitInventoryCount_VarianceCorrected(t *testing.T) {
	svc, m := newPortalService()

	m.inventory.On("GetByProductID", mock.Anything, "UNDERLAY").
		Return(&models.InventoryItem{ProductID: "UNDERLAY", QuantityOnHand: 40}, nil)
	m.inventory.On("CompareAndSetQuantity", mock.Anything, "UNDERLAY", 40, 37).Return(nil)
	m.inventory.On("RecordAdjustment", mock.Anything, mock.MatchedBy(func(a *models.InventoryAdjustment) bool {
		return a.Variance == -3 && a.CountedBy == "pat" && a.Reason == "physical count correction"
	})).Return(nil)
	m.audit.On("Append", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.SubmitInventoryCount(context.Background(), "UNDERLAY", 37, "pat", "")

	require.NoError(t, err)
	require.Equal(t, -3, result.Variance)
	require.True(t, result.CorrectionApplied)
	m.inventory.AssertExpectations(t)
	m.audit.AssertExpectations(t)
}

func TestSubmitInventoryCount_NoVariance(t *testing.T) {
	svc, m := newPortalService()

	m.inventory.On("GetByProductID", mock.Anything, "UNDERLAY").
		Return(&models.InventoryItem{ProductID: "UNDERLAY", QuantityOnHand: 40}, nil)

	result, err := svc.SubmitInventoryCount(context.Background(), "UNDERLAY", 40, "pat", "")

	require.NoError(t, err)
	require.Equal(t, 0, result.Variance)
	require.False(t, result.CorrectionApplied)
	m.inventory.AssertNotCalled(t, "CompareAndSetQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitInventoryCount_RecountOnConcurrentChange(t *testing.T) {
	svc, m := newPortalService()

	m.inventory.On("GetByProductID", mock.Anything, "UNDERLAY").
		Return(&models.InventoryItem{ProductID: "UNDERLAY", QuantityOnHand: 40}, nil)
	m.inventory.On("CompareAndSetQuantity", mock.Anything, "UNDERLAY", 40, 35).
		Return(repository.ErrConflict)

	_, err := svc.SubmitInventoryCount(context.Background(), "UNDERLAY", 35, "pat", "")

	require.Error(t, err)
	require.Equal(t, KindPreconditionFailed, KindOf(err))
}

func TestCreateRestockRequest(t *testing.T) {
	svc, m := newPortalService()

	m.inventory.On("GetByProductID", mock.Anything, "RIDGE-CAP").
		Return(&models.InventoryItem{ProductID: "RIDGE-CAP"}, nil)
	m.restocks.On("Create", mock.Anything, mock.MatchedBy(func(r *models.RestockRequest) bool {
		return r.Status == models.RestockPending && r.RequestedQty == 100 && r.RequestedBy == "pat"
	})).Return(&models.RestockRequest{Status: models.RestockPending}, nil)

	request, err := svc.CreateRestockRequest(context.Background(), "RIDGE-CAP", 100, "pat")

	require.NoError(t, err)
	require.Equal(t, models.RestockPending, request.Status)
	m.restocks.AssertExpectations(t)
}

func TestApproveRestockRequest(t *testing.T) {
	svc, m := newPortalService()
	requestID := uuid.New()

	m.restocks.On("GetByID", mock.Anything, requestID).
		Return(&models.RestockRequest{Status: models.RestockPending}, nil)
	m.restocks.On("Update", mock.Anything, mock.MatchedBy(func(r *models.RestockRequest) bool {
		return r.Status == models.RestockApproved && r.ApprovedBy == "lee"
	})).Return(&models.RestockRequest{Status: models.RestockApproved, ApprovedBy: "lee"}, nil)

	request, err := svc.ApproveRestockRequest(context.Background(), requestID, "lee")

	require.NoError(t, err)
	require.Equal(t, models.RestockApproved, request.Status)
}

func TestResolveRestockRequest_OnlyFromPending(t *testing.T) {
	svc, m := newPortalService()
	requestID := uuid.New()

	m.restocks.On("GetByID", mock.Anything, requestID).
		Return(&models.RestockRequest{Status: models.RestockApproved}, nil)

	_, err := svc.RejectRestockRequest(context.Background(), requestID, "lee")

	require.Error(t, err)
	require.Equal(t, KindPreconditionFailed, KindOf(err))
	m.restocks.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestGetLowStockItems(t *testing.T) {
	svc, m := newPortalService()

	m.inventory.On("ListLowStock", mock.Anything).Return([]*models.InventoryItem{
		{ProductID: "RIDGE-CAP", QuantityOnHand: 3, ReorderThreshold: 10},
	}, nil)

	items, err := svc.GetLowStockItems(context.Background())

	require.NoError(t, err)
	require.Len(t, items, 1)
	require.True(t, items[0].LowStock())
}
