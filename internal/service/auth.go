package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"example.com/roofops/services/portal/internal/models"
	"example.com/roofops/services/portal/internal/repository"
	"example.com/roofops/services/portal/internal/validation"
)

// Permission tags gate privileged portal operations
type Permission string

const (
	PermManageUsers     Permission = "manage-users"
	PermManageDrivers   Permission = "manage-drivers"
	PermManageDelivery  Permission = "manage-deliveries"
	PermConfirmLoad     Permission = "confirm-load"
	PermManageInventory Permission = "manage-inventory"
	PermApproveRestock  Permission = "approve-restock"
	PermManageInvoices  Permission = "manage-invoices"
	PermManagePricing   Permission = "manage-pricing"
	PermViewReports     Permission = "view-reports"
)

// rolePermissions is the fixed role to permission-set table
var rolePermissions = map[models.Role][]Permission{
	models.RoleAdmin: {
		PermManageUsers, PermManageDrivers, PermManageDelivery, PermConfirmLoad,
		PermManageInventory, PermApproveRestock, PermManageInvoices,
		PermManagePricing, PermViewReports,
	},
	models.RoleDispatcher: {
		PermManageDrivers, PermManageDelivery, PermManageInvoices, PermViewReports,
	},
	models.RoleDriver: {
		PermConfirmLoad,
	},
	models.RoleWarehouse: {
		PermManageInventory, PermApproveRestock, PermViewReports,
	},
}

// AuthService authenticates portal users and resolves their permissions.
// It is stateless: no sessions or tokens are issued and identity is
// re-asserted on every privileged call.
type AuthService struct {
	users            repository.UserRepository
	audit            repository.AuditRepository
	passcodeLifetime time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(users repository.UserRepository, audit repository.AuditRepository, passcodeLifetime time.Duration) *AuthService {
	return &AuthService{
		users:            users,
		audit:            audit,
		passcodeLifetime: passcodeLifetime,
	}
}

// AuthResult is a successful authentication outcome
type AuthResult struct {
	User        *models.PortalUser
	Permissions []Permission
}

// AuthenticateByPIN authenticates a user by their portal PIN. The
// failure never reveals whether any user exists.
func (s *AuthService) AuthenticateByPIN(ctx context.Context, pin string) (*AuthResult, error) {
	if pin == "" {
		return nil, ErrInvalidCredentials
	}

	users, err := retried(ctx, "user list", func() ([]*models.PortalUser, error) {
		return s.users.List(ctx)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users for PIN authentication")
	}

	for _, user := range users {
		if user.PINHash == "" {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PINHash), []byte(pin)) == nil {
			s.recordLogin(ctx, user, "pin")
			return &AuthResult{
				User:        user,
				Permissions: s.GetPermissions(user.Role),
			}, nil
		}
	}

	return nil, ErrInvalidCredentials
}

// AuthenticateByTempPasscode authenticates a user by email and a
// temporary passcode. The passcode is single-use: it is invalidated
// before the success is returned, so a replayed passcode fails.
func (s *AuthService) AuthenticateByTempPasscode(ctx context.Context, email, passcode string) (*AuthResult, error) {
	if email == "" || passcode == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := retried(ctx, "user lookup", func() (*models.PortalUser, error) {
		return s.users.GetByEmail(ctx, email)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "failed to look up user for passcode authentication")
	}

	if user.TempPasscode == "" || user.TempPasscode != passcode {
		return nil, ErrInvalidCredentials
	}
	if user.TempPasscodeExpiry == nil || time.Now().After(*user.TempPasscodeExpiry) {
		return nil, ErrExpired
	}

	// Consume the passcode before reporting success
	user.TempPasscode = ""
	user.TempPasscodeExpiry = nil
	if _, err := retried(ctx, "passcode consume", func() (*models.PortalUser, error) {
		return s.users.Update(ctx, user)
	}); err != nil {
		return nil, errors.Wrap(err, "failed to consume temp passcode")
	}

	s.recordLogin(ctx, user, "temp-passcode")
	return &AuthResult{
		User:        user,
		Permissions: s.GetPermissions(user.Role),
	}, nil
}

// IssueTempPasscode generates a fresh temporary passcode for the user,
// replacing any previous one. At most one passcode is active per user.
func (s *AuthService) IssueTempPasscode(ctx context.Context, email string) (string, error) {
	user, err := retried(ctx, "user lookup", func() (*models.PortalUser, error) {
		return s.users.GetByEmail(ctx, email)
	})
	if err != nil {
		return "", notFoundOr(err, "user not found")
	}

	passcode, err := generatePasscode()
	if err != nil {
		return "", errors.Wrap(err, "failed to generate passcode")
	}

	expiry := time.Now().Add(s.passcodeLifetime)
	user.TempPasscode = passcode
	user.TempPasscodeExpiry = &expiry
	if _, err := retried(ctx, "passcode store", func() (*models.PortalUser, error) {
		return s.users.Update(ctx, user)
	}); err != nil {
		return "", errors.Wrap(err, "failed to store temp passcode")
	}

	return passcode, nil
}

// GetPermissions returns the permission set for a role. Pure function
// over the fixed role table.
func (s *AuthService) GetPermissions(role models.Role) []Permission {
	perms := rolePermissions[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// HasPermission reports whether the user's role carries the permission
func (s *AuthService) HasPermission(user *models.PortalUser, permission Permission) bool {
	for _, p := range rolePermissions[user.Role] {
		if p == permission {
			return true
		}
	}
	return false
}

// GetUserByID gets a portal user by ID
func (s *AuthService) GetUserByID(ctx context.Context, id uuid.UUID) (*models.PortalUser, error) {
	user, err := retried(ctx, "user lookup", func() (*models.PortalUser, error) {
		return s.users.GetByID(ctx, id)
	})
	if err != nil {
		return nil, notFoundOr(err, "user %s not found", id)
	}
	return user, nil
}

// CreateUserRequest defines the request to create a portal user
type CreateUserRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required"`
	PIN   string `json:"pin" validate:"required,min=4"`
}

// CreateUser creates a portal user with a bcrypt-hashed PIN. The role
// is fixed at creation.
func (s *AuthService) CreateUser(ctx context.Context, req *CreateUserRequest) (*models.PortalUser, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid user request: %v", err)
	}

	role := models.RoleFromString(req.Role)
	if !role.Valid() {
		return nil, NewValidationError("unknown role %q", req.Role)
	}
	if len(req.PIN) < 4 {
		return nil, NewValidationError("PIN must be at least 4 digits")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash PIN")
	}

	user := &models.PortalUser{
		Name:    req.Name,
		Email:   req.Email,
		Role:    role,
		PINHash: string(hash),
	}
	return retried(ctx, "user create", func() (*models.PortalUser, error) {
		return s.users.Create(ctx, user)
	})
}

// recordLogin stamps the last login and writes the login audit record.
// Both are best-effort write-throughs; a failure never blocks the login.
func (s *AuthService) recordLogin(ctx context.Context, user *models.PortalUser, method string) {
	now := time.Now()
	user.LastLoginAt = &now
	if _, err := retried(ctx, "last login stamp", func() (*models.PortalUser, error) {
		return s.users.Update(ctx, user)
	}); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("Failed to stamp last login")
	}

	entry := &models.AuditLogEntry{
		ActionType:  "login",
		Description: fmt.Sprintf("User %s logged in via %s", user.Name, method),
		Actor:       user.Name,
	}
	if err := retriedDo(ctx, "login audit", func() error {
		return s.audit.Append(ctx, entry)
	}); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("Failed to write login audit record")
	}
}

// generatePasscode produces a 6-digit numeric passcode
func generatePasscode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
