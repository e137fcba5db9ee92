package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"notes-console/internal/domain"
	"notes-console/internal/metrics"
	"notes-console/internal/repository"
)

// AdminDashboard es la lista completa, sin paginar, de perfiles y notas.
type AdminDashboard struct {
	Profiles []domain.Profile `json:"profiles"`
	Notes    []domain.Note    `json:"notes"`
}

// AdminService sirve el panel de administracion. Toda operacion exige rol admin
// y no toca el store si la sesion no lo tiene.
type AdminService struct {
	logger   *zap.Logger
	profiles repository.ProfileRepository
	notes    repository.NoteRepository
	metrics  metrics.Recorder
}

func NewAdminService(logger *zap.Logger, profiles repository.ProfileRepository, notes repository.NoteRepository, recorder metrics.Recorder) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &AdminService{logger: logger, profiles: profiles, notes: notes, metrics: recorder}
}

func requireAdmin(session *domain.Session) error {
	if session == nil {
		return ErrNoSession
	}
	if !session.IsAdmin() {
		return ErrAccessDenied
	}
	return nil
}

func (s *AdminService) Dashboard(ctx context.Context, session *domain.Session) (AdminDashboard, error) {
	if err := requireAdmin(session); err != nil {
		return AdminDashboard{}, err
	}
	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return AdminDashboard{}, backendErr("list profiles", err)
	}
	notes, err := s.notes.ListAll(ctx)
	if err != nil {
		return AdminDashboard{}, backendErr("list notes", err)
	}
	if profiles == nil {
		profiles = []domain.Profile{}
	}
	if notes == nil {
		notes = []domain.Note{}
	}
	return AdminDashboard{Profiles: profiles, Notes: notes}, nil
}

// UpdateProfileField valida el valor contra su enumeracion y escribe un solo campo.
// La lista de perfiles se vuelve a leer siempre, tambien cuando la escritura falla,
// y se devuelve junto al error de la escritura.
func (s *AdminService) UpdateProfileField(ctx context.Context, session *domain.Session, userID, field, value string) ([]domain.Profile, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}

	writeErr := s.updateField(ctx, userID, field, value)
	s.metrics.RecordProfileMutation("admin_update", writeErr == nil)
	if writeErr != nil {
		s.logger.Warn("admin profile update failed",
			zap.String("admin_id", session.UserID()),
			zap.String("user_id", userID),
			zap.String("field", field),
			zap.Error(writeErr),
		)
	}

	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, errors.Join(writeErr, backendErr("list profiles", err))
	}
	return profiles, writeErr
}

func (s *AdminService) updateField(ctx context.Context, userID, field, value string) error {
	update, err := domain.ParseFieldUpdate(field, value)
	if err != nil {
		return err
	}
	if err := s.profiles.UpdateField(ctx, userID, update); err != nil {
		return backendErr("update profile", err)
	}
	return nil
}

// DeleteProfile borra solo el documento de perfil; la identidad y las notas quedan.
func (s *AdminService) DeleteProfile(ctx context.Context, session *domain.Session, userID string, confirmed bool) ([]domain.Profile, error) {
	if err := requireAdmin(session); err != nil {
		return nil, err
	}
	if !confirmed {
		return nil, ErrConfirmationRequired
	}

	var writeErr error
	if err := s.profiles.Delete(ctx, userID); err != nil {
		writeErr = backendErr("delete profile", err)
		s.logger.Warn("admin profile delete failed", zap.String("user_id", userID), zap.Error(err))
	} else {
		s.logger.Info("admin deleted profile", zap.String("admin_id", session.UserID()), zap.String("user_id", userID))
	}
	s.metrics.RecordProfileMutation("admin_delete", writeErr == nil)

	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, errors.Join(writeErr, backendErr("list profiles", err))
	}
	return profiles, writeErr
}
