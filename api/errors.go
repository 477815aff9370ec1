package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/roofops/services/portal/internal/service"
)

// ErrorResponse defines the structure of an error response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// statusForKind maps service error kinds to HTTP status codes
func statusForKind(kind service.ErrorKind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindInvalidCredentials, service.KindExpired:
		return http.StatusUnauthorized
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindPreconditionFailed:
		return http.StatusConflict
	case service.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes a classified error response. Unclassified errors
// are logged and reported as an opaque internal error with no stack
// detail crossing the boundary.
func WriteError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	status := statusForKind(kind)

	message := err.Error()
	if status >= http.StatusInternalServerError && kind == service.KindUnavailable {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Store unavailable")
		message = "service temporarily unavailable"
	}

	c.JSON(status, ErrorResponse{
		Success: false,
		Message: message,
		Code:    string(kind),
	})
}
