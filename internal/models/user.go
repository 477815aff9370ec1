package models

import "time"

// Role defines the portal role of a user
type Role string

const (
	// RoleAdmin has full access to the portal
	RoleAdmin Role = "admin"
	// RoleDispatcher manages deliveries and driver assignments
	RoleDispatcher Role = "dispatcher"
	// RoleDriver confirms loads and updates delivery progress
	RoleDriver Role = "driver"
	// RoleWarehouse manages inventory and restock requests
	RoleWarehouse Role = "warehouse"
)

// RoleFromString converts a string to a Role
func RoleFromString(role string) Role {
	switch role {
	case "admin":
		return RoleAdmin
	case "dispatcher":
		return RoleDispatcher
	case "driver":
		return RoleDriver
	case "warehouse":
		return RoleWarehouse
	default:
		return ""
	}
}

// Valid reports whether the role is a known portal role
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDispatcher, RoleDriver, RoleWarehouse:
		return true
	}
	return false
}

// PortalUser represents an operations portal user.
// The role is immutable after creation and at most one temp passcode
// is active per user at any time.
type PortalUser struct {
	Base
	Name               string     `json:"name"`
	Email              string     `json:"email" gorm:"uniqueIndex"`
	Role               Role       `json:"role" gorm:"column:role"`
	PINHash            string     `json:"-" gorm:"column:pin_hash"`
	TempPasscode       string     `json:"-" gorm:"column:temp_passcode"`
	TempPasscodeExpiry *time.Time `json:"-" gorm:"column:temp_passcode_expiry"`
	LastLoginAt        *time.Time `json:"last_login_at"`
}
