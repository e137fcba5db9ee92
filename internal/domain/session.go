package domain

// Session une la identidad viva con los campos de su perfil.
// Un puntero nil significa "sin sesion".
type Session struct {
	ID           string       `json:"session_id"`
	Identity     Identity     `json:"identity"`
	Role         Role         `json:"role"`
	Subscription Subscription `json:"subscription"`
	Status       Status       `json:"status"`
	Name         string       `json:"name,omitempty"`
}

// NewSession publica identity ⊕ profile bajo el id de sesion del cliente.
func NewSession(sessionID string, identity Identity, profile Profile) *Session {
	return &Session{
		ID:           sessionID,
		Identity:     identity,
		Role:         profile.Role,
		Subscription: profile.Subscription,
		Status:       profile.Status,
		Name:         profile.Name,
	}
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// IsActive es falso si el perfil detras de la sesion esta baneado o deshabilitado.
func (s *Session) IsActive() bool {
	return s != nil && (s.Status == "" || s.Status == StatusActive)
}

func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	return s.Identity.ID
}
