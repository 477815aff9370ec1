package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"example.com/roofops/services/portal/api"
	"example.com/roofops/services/portal/config"
	"example.com/roofops/services/portal/internal/cache"
	"example.com/roofops/services/portal/internal/database"
	"example.com/roofops/services/portal/internal/repository"
	"example.com/roofops/services/portal/internal/service"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server for the operations portal`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
	}

	authService, portalService, workflowService, pricingService := buildServices(db, redisCache, &cfg)

	server := api.NewServer(&cfg, authService, portalService, workflowService, pricingService)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}

func buildServices(db *gorm.DB, redisCache *cache.RedisCache, cfg *config.Config) (
	*service.AuthService,
	*service.DeliveryPortalService,
	*service.DeliveryWorkflowService,
	*service.PriceVerificationService,
) {
	userRepo := repository.NewUserRepository(db)
	driverRepo := repository.NewDriverRepository(db)
	deliveryRepo := repository.NewDeliveryRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	completionRepo := repository.NewCompletionRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	restockRepo := repository.NewRestockRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	pricingRepo := repository.NewPricingRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	workflowService := service.NewDeliveryWorkflowService(invoiceRepo, ticketRepo, cfg.Workflow.InvoiceDueAfter)
	portalService := service.NewDeliveryPortalService(
		deliveryRepo, orderRepo, driverRepo,
		inventoryRepo, restockRepo, completionRepo, auditRepo,
		workflowService, redisCache, cfg.Workflow.InventoryRetryLimit)
	authService := service.NewAuthService(userRepo, auditRepo, cfg.Workflow.TempPasscodeLifetime)
	pricingService := service.NewPriceVerificationService(
		pricingRepo, alertRepo, auditRepo, cfg.Workflow.AuditSummaryDefault)

	return authService, portalService, workflowService, pricingService
}
