package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"example.com/roofops/services/portal/config"
	"example.com/roofops/services/portal/internal/cache"
	"example.com/roofops/services/portal/internal/database"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that sweeps sent invoices past their due date into overdue`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
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

	g, ctx := errgroup.WithContext(ctx)

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

	_, _, workflowService, _ := buildServices(db, redisCache, &cfg)

	g.Go(func() error {
		log.Info().Dur("interval", cfg.Workflow.OverdueSweepInterval).Msg("Starting overdue invoice sweep")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Workflow.OverdueSweepInterval),
			gocron.NewTask(func() {
				marked, err := workflowService.MarkOverdueInvoices(ctx)
				if err != nil {
					log.Error().Err(err).Msg("Failed to mark overdue invoices")
					return
				}
				if marked > 0 {
					log.Info().Int("count", marked).Msg("Marked invoices overdue")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		<-ctx.Done()
		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}

	log.Info().Msg("Shutting down worker")
	return nil
}
