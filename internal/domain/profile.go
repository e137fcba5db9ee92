package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Subscription string

const (
	SubscriptionFree    Subscription = "Free"
	SubscriptionPremium Subscription = "Premium"
	SubscriptionAdmin   Subscription = "Admin"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusBanned   Status = "banned"
	StatusDisabled Status = "disabled"
)

// ProfileField identifica las columnas editables desde el panel de admin.
type ProfileField string

const (
	FieldRole         ProfileField = "role"
	FieldSubscription ProfileField = "subscription"
	FieldStatus       ProfileField = "status"
	FieldName         ProfileField = "name"
)

// ErrInvalidField se devuelve cuando un campo o valor queda fuera de su enumeracion.
var ErrInvalidField = errors.New("invalid profile field")

// ValidationError describe el campo y el valor rechazados antes de escribir.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value %q for %s", e.Value, e.Field)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidField }

// Profile es el documento de usuario, uno por Identity y con la misma clave.
type Profile struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	Role         Role         `json:"role"`
	Subscription Subscription `json:"subscription"`
	Status       Status       `json:"status"`
	Name         string       `json:"name,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// IsAdmin reporta si el perfil tiene rol de administrador.
func (p Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// IsActive es falso para cuentas baneadas o deshabilitadas.
func (p Profile) IsActive() bool {
	return p.Status == "" || p.Status == StatusActive
}

// NewDefaultProfile arma el perfil que se crea la primera vez que se observa una identidad.
// adminEmail es la direccion de arranque que recibe rol y suscripcion de admin.
func NewDefaultProfile(identity Identity, adminEmail string, now time.Time) Profile {
	p := Profile{
		ID:           identity.ID,
		Email:        identity.Email,
		Role:         RoleUser,
		Subscription: SubscriptionFree,
		Status:       StatusActive,
		CreatedAt:    now.UTC(),
	}
	if adminEmail != "" && strings.EqualFold(strings.TrimSpace(identity.Email), adminEmail) {
		p.Role = RoleAdmin
		p.Subscription = SubscriptionAdmin
	}
	return p
}

// NewSignUpProfile arma el perfil escrito por el alta con email y password.
func NewSignUpProfile(identity Identity, now time.Time) Profile {
	return Profile{
		ID:           identity.ID,
		Email:        identity.Email,
		Role:         RoleUser,
		Subscription: SubscriptionFree,
		Status:       StatusActive,
		CreatedAt:    now.UTC(),
	}
}

func ParseRole(v string) (Role, error) {
	switch r := Role(strings.TrimSpace(v)); r {
	case RoleUser, RoleAdmin:
		return r, nil
	}
	return "", &ValidationError{Field: string(FieldRole), Value: v}
}

func ParseSubscription(v string) (Subscription, error) {
	switch s := Subscription(strings.TrimSpace(v)); s {
	case SubscriptionFree, SubscriptionPremium, SubscriptionAdmin:
		return s, nil
	}
	return "", &ValidationError{Field: string(FieldSubscription), Value: v}
}

func ParseStatus(v string) (Status, error) {
	switch s := Status(strings.TrimSpace(v)); s {
	case StatusActive, StatusBanned, StatusDisabled:
		return s, nil
	}
	return "", &ValidationError{Field: string(FieldStatus), Value: v}
}

// FieldUpdate es una edicion de un solo campo ya validada.
type FieldUpdate struct {
	Field ProfileField
	Value string
}

// ParseFieldUpdate valida campo y valor en el borde de edicion.
func ParseFieldUpdate(field, value string) (FieldUpdate, error) {
	switch ProfileField(strings.TrimSpace(field)) {
	case FieldRole:
		r, err := ParseRole(value)
		return FieldUpdate{Field: FieldRole, Value: string(r)}, err
	case FieldSubscription:
		s, err := ParseSubscription(value)
		return FieldUpdate{Field: FieldSubscription, Value: string(s)}, err
	case FieldStatus:
		s, err := ParseStatus(value)
		return FieldUpdate{Field: FieldStatus, Value: string(s)}, err
	case FieldName:
		return FieldUpdate{Field: FieldName, Value: strings.TrimSpace(value)}, nil
	}
	return FieldUpdate{}, &ValidationError{Field: "field", Value: field}
}
