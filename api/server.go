package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/roofops/services/portal/config"
	"example.com/roofops/services/portal/internal/metrics"
	"example.com/roofops/services/portal/internal/service"
)

// Server represents the HTTP server
type Server struct {
	router     *gin.Engine
	config     *config.Config
	httpServer *http.Server
}

// NewServer creates a new HTTP server and wires up all routes
func NewServer(
	cfg *config.Config,
	auth *service.AuthService,
	portal *service.DeliveryPortalService,
	workflow *service.DeliveryWorkflowService,
	pricing *service.PriceVerificationService,
) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metrics.Middleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	authHandler := NewAuthHandler(auth)
	deliveryHandler := NewDeliveryHandler(portal)
	inventoryHandler := NewInventoryHandler(portal)
	invoiceHandler := NewInvoiceHandler(workflow)
	pricingHandler := NewPricingHandler(pricing)

	v1 := router.Group("/api/v1")

	// Login endpoints are the only unauthenticated routes.
	v1.POST("/auth/login/pin", authHandler.LoginByPIN)
	v1.POST("/auth/login/passcode", authHandler.LoginByPasscode)

	authed := v1.Group("")
	authed.Use(RequireAuth(auth))

	users := authed.Group("/users")
	users.Use(RequirePermission(auth, service.PermManageUsers))
	{
		users.POST("", authHandler.CreateUser)
		users.GET("/:id", authHandler.GetUser)
		users.POST("/passcode", authHandler.IssuePasscode)
	}

	orders := authed.Group("/orders")
	orders.Use(RequirePermission(auth, service.PermManageDelivery))
	{
		orders.POST("", deliveryHandler.CreateOrder)
		orders.GET("/:id", deliveryHandler.GetOrder)
		orders.POST("/:id/cancel", deliveryHandler.CancelOrder)
	}

	deliveries := authed.Group("/deliveries")
	deliveries.Use(RequirePermission(auth, service.PermManageDelivery))
	{
		deliveries.POST("", deliveryHandler.CreateDelivery)
		deliveries.GET("", deliveryHandler.ListDeliveries)
		deliveries.GET("/:id", deliveryHandler.GetDelivery)
		deliveries.POST("/:id/assign", deliveryHandler.AssignDriver)
		deliveries.PUT("/:id/status", deliveryHandler.UpdateDeliveryStatus)
		deliveries.POST("/:id/cancel", deliveryHandler.CancelDelivery)
		deliveries.GET("/:id/completion", deliveryHandler.GetCompletionStatus)
	}
	// Load confirmation sits under its own permission so warehouse
	// staff can confirm without full delivery management rights.
	authed.POST("/deliveries/:id/confirm-load",
		RequirePermission(auth, service.PermConfirmLoad), deliveryHandler.ConfirmLoad)

	drivers := authed.Group("/drivers")
	drivers.Use(RequirePermission(auth, service.PermManageDrivers))
	{
		drivers.POST("", deliveryHandler.CreateDriver)
		drivers.GET("", deliveryHandler.ListDrivers)
		drivers.PUT("/:id/status", deliveryHandler.UpdateDriverStatus)
	}

	inventory := authed.Group("/inventory")
	inventory.Use(RequirePermission(auth, service.PermManageInventory))
	{
		inventory.POST("/items", inventoryHandler.CreateItem)
		inventory.GET("/items", inventoryHandler.ListItems)
		inventory.GET("/items/low-stock", inventoryHandler.ListLowStock)
		inventory.PUT("/items/:productId/quantity", inventoryHandler.AdjustQuantity)
		inventory.POST("/items/:productId/count", inventoryHandler.SubmitCount)
		inventory.POST("/restocks", inventoryHandler.CreateRestock)
		inventory.GET("/restocks/pending", inventoryHandler.ListPendingRestocks)
	}
	authed.POST("/inventory/restocks/:id/approve",
		RequirePermission(auth, service.PermApproveRestock), inventoryHandler.ApproveRestock)
	authed.POST("/inventory/restocks/:id/reject",
		RequirePermission(auth, service.PermApproveRestock), inventoryHandler.RejectRestock)

	invoices := authed.Group("/invoices")
	invoices.Use(RequirePermission(auth, service.PermManageInvoices))
	{
		invoices.POST("", invoiceHandler.CreateInvoice)
		invoices.GET("", invoiceHandler.ListInvoices)
		invoices.GET("/:id", invoiceHandler.GetInvoice)
		invoices.PUT("/:id/status", invoiceHandler.UpdateInvoiceStatus)
		invoices.POST("/:id/pay", invoiceHandler.MarkPaid)
		invoices.POST("/:id/cancel", invoiceHandler.CancelInvoice)
	}

	tickets := authed.Group("/tickets")
	tickets.Use(RequirePermission(auth, service.PermManageDelivery))
	{
		tickets.POST("", invoiceHandler.CreateTicket)
		tickets.POST("/:id/checklist", invoiceHandler.AddChecklistItem)
		tickets.GET("/:id/checklist", invoiceHandler.GetChecklist)
		tickets.PUT("/:id/checklist/:itemId/done", invoiceHandler.CompleteChecklistItem)
		tickets.POST("/:id/photos", invoiceHandler.AttachPhoto)
		tickets.GET("/:id/photos", invoiceHandler.GetPhotos)
	}

	pricingGroup := authed.Group("/pricing")
	pricingGroup.Use(RequirePermission(auth, service.PermManagePricing))
	{
		pricingGroup.POST("/import", pricingHandler.ImportPricing)
		pricingGroup.POST("/verify", pricingHandler.VerifyInvoice)
		pricingGroup.POST("/process-invoice", pricingHandler.ProcessInvoice)
		pricingGroup.POST("/alerts", pricingHandler.CreateAlert)
		pricingGroup.PUT("/alerts/:id", pricingHandler.UpdateAlert)
		pricingGroup.GET("/alerts", pricingHandler.ListAlerts)
	}

	audit := authed.Group("/audit")
	audit.Use(RequirePermission(auth, service.PermViewReports))
	{
		audit.POST("/actions", pricingHandler.LogAuditAction)
		audit.GET("/summary", pricingHandler.GetAuditSummary)
	}

	return &Server{
		router: router,
		config: cfg,
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress,
			Handler:      router,
			ReadTimeout:  cfg.ServerTimeout,
			WriteTimeout: cfg.ServerTimeout,
		},
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("Starting HTTP server")
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the HTTP server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
