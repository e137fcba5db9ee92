package service

import (
	"context"

	"go.uber.org/zap"

	"notes-console/internal/domain"
	"notes-console/internal/metrics"
	"notes-console/internal/repository"
)

// AccountSettings es lo que ve el dueño de la sesion de su propio perfil.
type AccountSettings struct {
	Name         string              `json:"name"`
	Email        string              `json:"email"`
	Subscription domain.Subscription `json:"subscription"`
}

type SettingsService struct {
	logger   *zap.Logger
	profiles repository.ProfileRepository
	deletion *AccountDeletion
	metrics  metrics.Recorder
}

func NewSettingsService(logger *zap.Logger, profiles repository.ProfileRepository, deletion *AccountDeletion, recorder metrics.Recorder) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &SettingsService{logger: logger, profiles: profiles, deletion: deletion, metrics: recorder}
}

func (s *SettingsService) Get(ctx context.Context, session *domain.Session) (AccountSettings, error) {
	if session == nil {
		return AccountSettings{}, ErrNoSession
	}
	profile, err := s.profiles.GetByID(ctx, session.UserID())
	if err != nil {
		return AccountSettings{}, backendErr("read profile", err)
	}
	settings := AccountSettings{
		Name:         profile.Name,
		Email:        profile.Email,
		Subscription: profile.Subscription,
	}
	if settings.Email == "" {
		settings.Email = session.Identity.Email
	}
	if settings.Subscription == "" {
		settings.Subscription = domain.SubscriptionFree
	}
	return settings, nil
}

// SaveName escribe solo el nombre; email y suscripcion no se editan desde aqui.
func (s *SettingsService) SaveName(ctx context.Context, session *domain.Session, name string) error {
	if session == nil {
		return ErrNoSession
	}
	update, err := domain.ParseFieldUpdate(string(domain.FieldName), name)
	if err != nil {
		return err
	}
	return s.write(ctx, session, "save_name", update)
}

// CancelSubscription fuerza Free sin importar el plan actual.
func (s *SettingsService) CancelSubscription(ctx context.Context, session *domain.Session) error {
	if session == nil {
		return ErrNoSession
	}
	update := domain.FieldUpdate{Field: domain.FieldSubscription, Value: string(domain.SubscriptionFree)}
	return s.write(ctx, session, "cancel_subscription", update)
}

func (s *SettingsService) write(ctx context.Context, session *domain.Session, op string, update domain.FieldUpdate) error {
	err := s.profiles.UpdateField(ctx, session.UserID(), update)
	s.metrics.RecordProfileMutation(op, err == nil)
	if err != nil {
		s.logger.Warn("settings update failed", zap.String("user_id", session.UserID()), zap.String("operation", op), zap.Error(err))
		return backendErr("update profile", err)
	}
	return nil
}

// DeleteAccount delega en el flujo de borrado de cuenta.
func (s *SettingsService) DeleteAccount(ctx context.Context, session *domain.Session, refreshToken string, confirmed bool) (DeletionResult, error) {
	if session == nil {
		return DeletionResult{}, ErrNoSession
	}
	if !confirmed {
		return DeletionResult{}, ErrConfirmationRequired
	}
	return s.deletion.Run(ctx, session, refreshToken)
}
