package service

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Errores del proveedor de identidad (AuthError).
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password too short")
	ErrEmailTaken         = errors.New("email already registered")
	ErrRateLimited        = errors.New("rate limited")
	ErrAccountInactive    = errors.New("account is banned or disabled")
)

// Errores de las vistas.
var (
	ErrNoSession            = errors.New("no active session")
	ErrAccessDenied         = errors.New("access denied")
	ErrConfirmationRequired = errors.New("confirmation required")
)

// IsAuthError agrupa los rechazos del proveedor de identidad.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrInvalidEmail) ||
		errors.Is(err, ErrWeakPassword) ||
		errors.Is(err, ErrEmailTaken) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrAccountInactive)
}

// BackendError envuelve una falla del store con la accion que se intentaba.
type BackendError struct {
	Action string
	Err    error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Action, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func backendErr(action string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Action: action, Err: err}
}

// IsNotFound reporta si el error viene de un documento inexistente.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
