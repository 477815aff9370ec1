package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"example.com/roofops/services/portal/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// pinLoginRequest is a PIN authentication request
type pinLoginRequest struct {
	PIN string `json:"pin" binding:"required"`
}

// passcodeLoginRequest is a temp passcode authentication request
type passcodeLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Passcode string `json:"passcode" binding:"required"`
}

// LoginByPIN authenticates by PIN
func (h *AuthHandler) LoginByPIN(c *gin.Context) {
	var req pinLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("pin is required"))
		return
	}

	result, err := h.auth.AuthenticateByPIN(c.Request.Context(), req.PIN)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"user":        result.User,
		"permissions": result.Permissions,
	})
}

// LoginByPasscode authenticates by email and temporary passcode
func (h *AuthHandler) LoginByPasscode(c *gin.Context) {
	var req passcodeLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("email and passcode are required"))
		return
	}

	result, err := h.auth.AuthenticateByTempPasscode(c.Request.Context(), req.Email, req.Passcode)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"user":        result.User,
		"permissions": result.Permissions,
	})
}

// CreateUser creates a portal user (admin only)
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("invalid user payload: %v", err))
		return
	}

	user, err := h.auth.CreateUser(c.Request.Context(), &req)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "user": user})
}

// issuePasscodeRequest asks for a temporary passcode for a user
type issuePasscodeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// IssuePasscode issues a single-use temporary passcode for a user
// (admin only). The passcode is returned in the response for the admin
// to relay out of band.
func (h *AuthHandler) IssuePasscode(c *gin.Context) {
	var req issuePasscodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		WriteError(c, service.NewValidationError("email is required"))
		return
	}

	passcode, err := h.auth.IssueTempPasscode(c.Request.Context(), req.Email)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "passcode": passcode})
}

// GetUser gets a portal user by ID
func (h *AuthHandler) GetUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		WriteError(c, service.NewValidationError("invalid user id"))
		return
	}

	user, err := h.auth.GetUserByID(c.Request.Context(), id)
	if err != nil {
		WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}
