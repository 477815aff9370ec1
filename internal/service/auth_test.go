package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"example.com/roofops/services/portal/internal/models"
	"example.com/roofops/services/portal/internal/repository"
)

func hashPIN(t *testing.T, pin string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthenticateByPIN(t *testing.T) {
	users := new(MockUserRepository)
	audit := new(MockAuditRepository)
	svc := NewAuthService(users, audit, time.Hour)

	dispatcher := &models.PortalUser{
		Name:    "Kim",
		Email:   "kim@example.com",
		Role:    models.RoleDispatcher,
		PINHash: hashPIN(t, "4821"),
	}
	users.On("List", mock.Anything).Return([]*models.PortalUser{dispatcher}, nil)
	users.On("Update", mock.Anything, mock.Anything).Return(dispatcher, nil)
	audit.On("Append", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.AuthenticateByPIN(context.Background(), "4821")

	require.NoError(t, err)
	require.Equal(t, "Kim", result.User.Name)
	require.Contains(t, result.Permissions, PermManageDelivery)
	require.NotContains(t, result.Permissions, PermManageUsers)
}

func TestAuthenticateByPIN_WrongPIN(t *testing.T) {
	users := new(MockUserRepository)
	svc := NewAuthService(users, new(MockAuditRepository), time.Hour)

	users.On("List", mock.Anything).Return([]*models.PortalUser{
		{PINHash: hashPIN(t, "4821")},
	}, nil)

	_, err := svc.AuthenticateByPIN(context.Background(), "9999")

	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateByTempPasscode_ConsumedOnUse(t *testing.T) {
	users := new(MockUserRepository)
	audit := new(MockAuditRepository)
	svc := NewAuthService(users, audit, time.Hour)

	expiry := time.Now().Add(30 * time.Minute)
	user := &models.PortalUser{
		Email:              "kim@example.com",
		Role:               models.RoleDispatcher,
		TempPasscode:       "482913",
		TempPasscodeExpiry: &expiry,
	}
	users.On("GetByEmail", mock.Anything, "kim@example.com").Return(user, nil)
	users.On("Update", mock.Anything, mock.MatchedBy(func(u *models.PortalUser) bool {
		return u.TempPasscode == "" && u.TempPasscodeExpiry == nil
	})).Return(user, nil)
	audit.On("Append", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.AuthenticateByTempPasscode(context.Background(), "kim@example.com", "482913")

	require.NoError(t, err)
	require.Equal(t, "kim@example.com", result.User.Email)
	users.AssertExpectations(t)
}

func TestAuthenticateByTempPasscode_ReplayFails(t *testing.T) {
	users := new(MockUserRepository)
	svc := NewAuthService(users, new(MockAuditRepository), time.Hour)

	// Passcode already consumed by a previous login.
	users.On("GetByEmail", mock.Anything, "kim@example.com").
		Return(&models.PortalUser{Email: "kim@example.com", TempPasscode: ""}, nil)

	_, err := svc.AuthenticateByTempPasscode(context.Background(), "kim@example.com", "482913")

	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateByTempPasscode_Expired(t *testing.T) {
	users := new(MockUserRepository)
	svc := NewAuthService(users, new(MockAuditRepository), time.Hour)

	expiry := time.Now().Add(-time.Minute)
	users.On("GetByEmail", mock.Anything, "kim@example.com").
		Return(&models.PortalUser{
			Email:              "kim@example.com",
			TempPasscode:       "482913",
			TempPasscodeExpiry: &expiry,
		}, nil)

	_, err := svc.AuthenticateByTempPasscode(context.Background(), "kim@example.com", "482913")

	require.ErrorIs(t, err, ErrExpired)
}

func TestAuthenticateByTempPasscode_UnknownUser(t *testing.T) {
	users := new(MockUserRepository)
	svc := NewAuthService(users, new(MockAuditRepository), time.Hour)

	users.On("GetByEmail", mock.Anything, "ghost@example.com").
		Return(nil, repository.ErrNotFound)

	_, err := svc.AuthenticateByTempPasscode(context.Background(), "ghost@example.com", "482913")

	// Unknown user and wrong passcode are indistinguishable.
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestIssueTempPasscode(t *testing.T) {
	users := new(MockUserRepository)
	svc := NewAuthService(users, new(MockAuditRepository), time.Hour)

	user := &models.PortalUser{Email: "kim@example.com"}
	users.On("GetByEmail", mock.Anything, "kim@example.com").Return(user, nil)
	users.On("Update", mock.Anything, mock.MatchedBy(func(u *models.PortalUser) bool {
		return len(u.TempPasscode) == 6 && u.TempPasscodeExpiry != nil
	})).Return(user, nil)

	passcode, err := svc.IssueTempPasscode(context.Background(), "kim@example.com")

	require.NoError(t, err)
	require.Len(t, passcode, 6)
	users.AssertExpectations(t)
}

func TestCreateUser(t *testing.T) {
	users := new(MockUserRepository)
	svc := NewAuthService(users, new(MockAuditRepository), time.Hour)

	users.On("Create", mock.Anything, mock.MatchedBy(func(u *models.PortalUser) bool {
		return u.Role == models.RoleWarehouse && u.PINHash != "" && u.PINHash != "7733"
	})).Return(&models.PortalUser{Role: models.RoleWarehouse}, nil)

	user, err := svc.CreateUser(context.Background(), &CreateUserRequest{
		Name:  "Pat",
		Email: "pat@example.com",
		Role:  "warehouse",
		PIN:   "7733",
	})

	require.NoError(t, err)
	require.Equal(t, models.RoleWarehouse, user.Role)
}

func TestCreateUser_Validation(t *testing.T) {
	svc := NewAuthService(new(MockUserRepository), new(MockAuditRepository), time.Hour)

	_, err := svc.CreateUser(context.Background(), &CreateUserRequest{
		Name: "Pat", Email: "pat@example.com", Role: "supervisor", PIN: "7733",
	})
	require.Equal(t, KindValidation, KindOf(err))

	_, err = svc.CreateUser(context.Background(), &CreateUserRequest{
		Name: "Pat", Email: "pat@example.com", Role: "warehouse", PIN: "12",
	})
	require.Equal(t, KindValidation, KindOf(err))
}

func TestRolePermissions(t *testing.T) {
	svc := NewAuthService(new(MockUserRepository), new(MockAuditRepository), time.Hour)

	admin := &models.PortalUser{Role: models.RoleAdmin}
	require.True(t, svc.HasPermission(admin, PermManageUsers))
	require.True(t, svc.HasPermission(admin, PermManagePricing))

	driver := &models.PortalUser{Role: models.RoleDriver}
	require.True(t, svc.HasPermission(driver, PermConfirmLoad))
	require.False(t, svc.HasPermission(driver, PermManageUsers))
	require.False(t, svc.HasPermission(driver, PermManagePricing))

	warehouse := &models.PortalUser{Role: models.RoleWarehouse}
	require.True(t, svc.HasPermission(warehouse, PermManageInventory))
	require.True(t, svc.HasPermission(warehouse, PermApproveRestock))
	require.False(t, svc.HasPermission(warehouse, PermManageInvoices))
}

func TestGetPermissions_ReturnsCopy(t *testing.T) {
	svc := NewAuthService(new(MockUserRepository), new(MockAuditRepository), time.Hour)

	perms := svc.GetPermissions(models.RoleDriver)
	require.NotEmpty(t, perms)
	perms[0] = Permission("tampered")

	fresh := svc.GetPermissions(models.RoleDriver)
	require.NotContains(t, fresh, Permission("tampered"))
}
