package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"example.com/roofops/services/portal/config"
	"example.com/roofops/services/portal/internal/database"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Runs database migrations to ensure the database schema
is up-to-date. This is useful for CI/CD pipelines or initial setup.`,
	RunE:  runMigration,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigration(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	log.Info().Msg("Connecting to database")
	db, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}

	log.Info().Msg("Running database migrations")
	if err := database.Migrate(db); err != nil {
		return err
	}

	log.Info().Msg("Database migrations completed")
	return nil
}
