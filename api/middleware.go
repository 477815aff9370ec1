package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/roofops/services/portal/internal/models"
	"example.com/roofops/services/portal/internal/service"
)

// userContextKey is where the authenticated user lives on the request
const userContextKey = "portal_user"

// RequireAuth re-asserts the caller's identity on every privileged
// call from the X-Portal-Pin header. No sessions or tokens exist;
// the boundary is deliberately stateless.
func RequireAuth(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		pin := c.GetHeader("X-Portal-Pin")
		if pin == "" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Success: false,
				Message: "authentication required",
				Code:    string(service.KindInvalidCredentials),
			})
			c.Abort()
			return
		}

		result, err := auth.AuthenticateByPIN(c.Request.Context(), pin)
		if err != nil {
			WriteError(c, err)
			c.Abort()
			return
		}

		c.Set(userContextKey, result.User)
		c.Next()
	}
}

// RequirePermission gates a route on the authenticated user's role
func RequirePermission(auth *service.AuthService, permission service.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !auth.HasPermission(user, permission) {
			c.JSON(http.StatusForbidden, ErrorResponse{
				Success: false,
				Message: "insufficient permissions",
				Code:    "FORBIDDEN",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user on the request, if any
func CurrentUser(c *gin.Context) *models.PortalUser {
	value, ok := c.Get(userContextKey)
	if !ok {
		return nil
	}
	user, ok := value.(*models.PortalUser)
	if !ok {
		return nil
	}
	return user
}
