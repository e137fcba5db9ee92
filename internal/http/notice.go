package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"notes-console/internal/domain"
	"notes-console/internal/service"
)

// Notice es el aviso que acompaña cada mutacion, uno por respuesta.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Variant     string `json:"variant,omitempty"`
}

const variantDestructive = "destructive"

func successNotice(title, description string) Notice {
	return Notice{Title: title, Description: description}
}

func errorNotice(description string) Notice {
	return Notice{Title: "Error", Description: description, Variant: variantDestructive}
}

// accessDeniedNotice es el placeholder del panel de admin para quien no es admin.
var accessDeniedNotice = Notice{Title: "Access denied", Description: "Access denied. Admin only.", Variant: variantDestructive}

// statusFor traduce los errores de servicio a codigos HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, service.ErrConfirmationRequired):
		return http.StatusPreconditionRequired
	case errors.Is(err, domain.ErrInvalidField):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrWeakPassword):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrJWTInvalid),
		errors.Is(err, service.ErrJWTExpired):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrAccountInactive):
		return http.StatusForbidden
	case service.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errorCode es la clave estable que acompaña al aviso.
func errorCode(err error) string {
	switch {
	case errors.Is(err, service.ErrNoSession):
		return "no_session"
	case errors.Is(err, service.ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, service.ErrConfirmationRequired):
		return "confirmation_required"
	case errors.Is(err, domain.ErrInvalidField):
		return "invalid_field"
	case service.IsAuthError(err):
		return "auth_error"
	case errors.Is(err, service.ErrJWTInvalid), errors.Is(err, service.ErrJWTExpired):
		return "invalid_token"
	case service.IsNotFound(err):
		return "not_found"
	default:
		return "backend_error"
	}
}

func writeError(c *gin.Context, err error, notice Notice) {
	if errors.Is(err, service.ErrAccessDenied) {
		notice = accessDeniedNotice
	}
	c.JSON(statusFor(err), gin.H{"error": errorCode(err), "notice": notice})
}
