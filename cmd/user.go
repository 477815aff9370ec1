package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"example.com/roofops/services/portal/config"
	"example.com/roofops/services/portal/internal/database"
	"example.com/roofops/services/portal/internal/repository"
	"example.com/roofops/services/portal/internal/service"
)

var (
	userName  string
	userEmail string
	userRole  string
	userPIN   string
)

// createUserCmd bootstraps a portal user from the command line. The
// first admin has to come from here since user creation over HTTP
// requires an authenticated admin.
var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create a portal user",
	RunE:  runCreateUser,
}

func init() {
	createUserCmd.Flags().StringVar(&userName, "name", "", "display name")
	createUserCmd.Flags().StringVar(&userEmail, "email", "", "email address")
	createUserCmd.Flags().StringVar(&userRole, "role", "admin", "role (admin, dispatcher, driver, warehouse)")
	createUserCmd.Flags().StringVar(&userPIN, "pin", "", "login PIN")
	rootCmd.AddCommand(createUserCmd)
}

func runCreateUser(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	db, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	authService := service.NewAuthService(userRepo, auditRepo, cfg.Workflow.TempPasscodeLifetime)

	user, err := authService.CreateUser(cmd.Context(), &service.CreateUserRequest{
		Name:  userName,
		Email: userEmail,
		Role:  userRole,
		PIN:   userPIN,
	})
	if err != nil {
		return err
	}

	log.Info().Str("id", user.ID.String()).Str("email", user.Email).Msg("User created")
	return nil
}
