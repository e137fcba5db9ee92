package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"notes-console/internal/domain"
	"notes-console/internal/email"
	"notes-console/internal/metrics"
	"notes-console/internal/repository"
)

// Politicas para las notas de una cuenta borrada.
const (
	OrphanPolicyRetain = "retain"
	OrphanPolicyPurge  = "purge"
)

// DeletionResult resume lo que hizo el borrado; Redirect es la ruta de inicio.
type DeletionResult struct {
	NotesDeleted int64  `json:"notes_deleted"`
	Redirect     string `json:"redirect"`
}

// AccountDeletion borra la cuenta propia en orden fijo:
// notas (solo con purge), perfil, cierre de sesion y aviso por email.
// Las credenciales de la identidad no se borran.
type AccountDeletion struct {
	logger   *zap.Logger
	profiles repository.ProfileRepository
	notes    repository.NoteRepository
	sessions *SessionContext
	notifier email.Sender
	metrics  metrics.Recorder
	policy   string
}

func NewAccountDeletion(
	logger *zap.Logger,
	profiles repository.ProfileRepository,
	notes repository.NoteRepository,
	sessions *SessionContext,
	notifier email.Sender,
	recorder metrics.Recorder,
	policy string,
) *AccountDeletion {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if policy != OrphanPolicyPurge {
		policy = OrphanPolicyRetain
	}
	return &AccountDeletion{
		logger:   logger,
		profiles: profiles,
		notes:    notes,
		sessions: sessions,
		notifier: notifier,
		metrics:  recorder,
		policy:   policy,
	}
}

func (d *AccountDeletion) Run(ctx context.Context, session *domain.Session, refreshToken string) (DeletionResult, error) {
	userID := session.UserID()
	result := DeletionResult{Redirect: "/"}

	if d.policy == OrphanPolicyPurge {
		deleted, err := d.notes.DeleteByUserID(ctx, userID)
		if err != nil {
			return DeletionResult{}, backendErr("delete notes", err)
		}
		result.NotesDeleted = deleted
	}

	if err := d.profiles.Delete(ctx, userID); err != nil && !IsNotFound(err) {
		d.metrics.RecordProfileMutation("delete_account", false)
		return DeletionResult{}, backendErr("delete profile", err)
	}
	d.metrics.RecordProfileMutation("delete_account", true)

	if err := d.sessions.SignOut(ctx, session.ID, refreshToken); err != nil {
		return DeletionResult{}, err
	}

	d.logger.Info("account deleted",
		zap.String("user_id", userID),
		zap.String("orphan_policy", d.policy),
		zap.Int64("notes_deleted", result.NotesDeleted),
	)
	if d.notifier != nil {
		if err := d.notifier.Send(ctx, email.AccountDeletedNotice(session.Identity.Email)); err != nil && !errors.Is(err, email.ErrDisabled) {
			d.logger.Warn("account deleted notice failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return result, nil
}
