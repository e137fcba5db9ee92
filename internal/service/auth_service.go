package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"notes-console/internal/domain"
	"notes-console/internal/repository"
)

// IdentityProvider es la interfaz angosta hacia el servicio de autenticacion.
type IdentityProvider interface {
	CreateCredentials(ctx context.Context, email, password string) (domain.Identity, error)
	VerifyCredentials(ctx context.Context, email, password string) (domain.Identity, error)
}

const minPasswordLength = 6

// AuthService es el proveedor de identidad local: email + hash bcrypt.
type AuthService struct {
	logger *zap.Logger
	users  repository.UserRepository
	now    func() time.Time
}

func NewAuthService(logger *zap.Logger, users repository.UserRepository) *AuthService {
	return &AuthService{
		logger: logger,
		users:  users,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *AuthService) CreateCredentials(ctx context.Context, email, password string) (domain.Identity, error) {
	if s.users == nil {
		return domain.Identity{}, errors.New("auth service not configured")
	}

	email = normalizeEmail(email)
	if !isPlausibleEmail(email) {
		return domain.Identity{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return domain.Identity{}, ErrWeakPassword
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Identity{}, err
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hashBytes),
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.Identity{}, ErrEmailTaken
		}
		return domain.Identity{}, err
	}
	if s.logger != nil {
		s.logger.Info("credentials created", zap.String("user_id", user.ID))
	}
	return user.Identity(), nil
}

func (s *AuthService) VerifyCredentials(ctx context.Context, email, password string) (domain.Identity, error) {
	if s.users == nil {
		return domain.Identity{}, errors.New("auth service not configured")
	}

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return domain.Identity{}, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Identity{}, ErrInvalidCredentials
		}
		return domain.Identity{}, err
	}
	if user.PasswordHash == "" {
		return domain.Identity{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.Identity{}, ErrInvalidCredentials
	}
	return user.Identity(), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isPlausibleEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\n")
}
