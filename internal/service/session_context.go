package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"notes-console/internal/domain"
	"notes-console/internal/email"
	"notes-console/internal/metrics"
	"notes-console/internal/repository"
)

const (
	defaultResolveTimeout = 3 * time.Second
	defaultEndedRetention = 30 * 24 * time.Hour
)

// SessionContextConfig agrupa las reglas de arranque de perfiles y el gating por status.
type SessionContextConfig struct {
	AdminEmail     string
	EnforceStatus  bool
	ResolveTimeout time.Duration
	// EndedRetention es cuanto se recuerda un id de sesion cerrado; debe cubrir el TTL del refresh.
	EndedRetention time.Duration
}

type resolveResult struct {
	session *domain.Session
	err     error
}

// SessionContext mantiene las sesiones publicadas (identidad + perfil) por id de sesion.
// Las vistas solo leen copias; el unico escritor es el procesamiento de eventos del feed
// y la resolucion perezosa de Resolve.
type SessionContext struct {
	logger   *zap.Logger
	identity IdentityProvider
	feed     IdentityFeed
	profiles repository.ProfileRepository
	tokens   *JWTService
	limiter  LoginRateLimiter
	metrics  metrics.Recorder
	notifier email.Sender
	cfg      SessionContextConfig
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*domain.Session
	ended    map[string]time.Time
	waiters  map[string][]chan resolveResult
	running  bool

	lifeCtx     context.Context
	stop        context.CancelFunc
	unsubscribe func()
	done        chan struct{}
}

func NewSessionContext(
	logger *zap.Logger,
	identity IdentityProvider,
	feed IdentityFeed,
	profiles repository.ProfileRepository,
	tokens *JWTService,
	limiter LoginRateLimiter,
	recorder metrics.Recorder,
	notifier email.Sender,
	cfg SessionContextConfig,
) *SessionContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if feed == nil {
		feed = NewMemoryIdentityFeed()
	}
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = defaultResolveTimeout
	}
	if cfg.EndedRetention <= 0 {
		cfg.EndedRetention = defaultEndedRetention
	}
	cfg.AdminEmail = strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	return &SessionContext{
		logger:   logger,
		identity: identity,
		feed:     feed,
		profiles: profiles,
		tokens:   tokens,
		limiter:  limiter,
		metrics:  recorder,
		notifier: notifier,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		sessions: make(map[string]*domain.Session),
		ended:    make(map[string]time.Time),
		waiters:  make(map[string][]chan resolveResult),
	}
}

// Init se suscribe al feed de identidad y arranca el procesamiento de eventos.
func (s *SessionContext) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("session context already initialized")
	}
	s.mu.Unlock()

	events, unsubscribe, err := s.feed.Subscribe(ctx)
	if err != nil {
		return err
	}

	lifeCtx, stop := context.WithCancel(context.Background())
	s.mu.Lock()
	s.lifeCtx = lifeCtx
	s.stop = stop
	s.unsubscribe = unsubscribe
	s.done = make(chan struct{})
	s.running = true
	s.mu.Unlock()

	go s.run(events, s.done)
	s.logger.Info("session context started")
	return nil
}

// Teardown cancela la suscripcion y espera a que termine el evento en curso.
// Un resultado que llega despues de Teardown no se publica.
func (s *SessionContext) Teardown() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, unsubscribe, done := s.stop, s.unsubscribe, s.done
	s.mu.Unlock()

	stop()
	unsubscribe()
	<-done
	s.logger.Info("session context stopped")
}

// Loading es verdadero hasta que Init termino de suscribirse.
func (s *SessionContext) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.running
}

// Current devuelve una copia de la sesion publicada, o nil.
func (s *SessionContext) Current(sessionID string) *domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	cp := *session
	return &cp
}

func (s *SessionContext) run(events <-chan IdentityEvent, done chan struct{}) {
	defer close(done)
	for event := range events {
		s.handle(event)
	}
}

func (s *SessionContext) handle(event IdentityEvent) {
	if event.Identity == nil {
		s.end(event.SessionID)
		return
	}

	ctx := s.lifecycle()
	session, err := s.resolve(ctx, event.SessionID, *event.Identity)
	if err != nil {
		s.logger.Warn("session resolution failed",
			zap.String("session_id", event.SessionID),
			zap.String("user_id", event.Identity.ID),
			zap.Error(err),
		)
		s.metrics.RecordSessionResolveFailure()
		s.wake(event.SessionID, resolveResult{err: err})
		return
	}
	s.wake(event.SessionID, resolveResult{session: session})
}

func (s *SessionContext) lifecycle() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lifeCtx == nil {
		return context.Background()
	}
	return s.lifeCtx
}

// Resolve publica la sesion de una identidad ya autenticada, releyendo o creando su perfil.
// Cada llamada vuelve a leer el perfil, asi un cambio de rol o un baneo llega a la sesion viva.
// Con EnforceStatus, un perfil inactivo cierra la sesion y devuelve ErrAccountInactive.
func (s *SessionContext) Resolve(ctx context.Context, sessionID string, identity domain.Identity) (*domain.Session, error) {
	if s.isEnded(sessionID) {
		return nil, ErrNoSession
	}
	session, err := s.resolve(ctx, sessionID, identity)
	if err != nil {
		return nil, err
	}
	if s.cfg.EnforceStatus && !session.IsActive() {
		s.deactivate(ctx, session)
		return nil, ErrAccountInactive
	}
	return session, nil
}

// deactivate cierra una sesion cuyo perfil dejo de estar activo y avisa a las demas replicas.
func (s *SessionContext) deactivate(ctx context.Context, session *domain.Session) {
	s.logger.Info("session closed by profile status",
		zap.String("session_id", session.ID),
		zap.String("user_id", session.UserID()),
		zap.String("status", string(session.Status)),
	)
	s.metrics.RecordAuthFailure("inactive")
	s.end(session.ID)
	if err := s.feed.Publish(ctx, IdentityEvent{SessionID: session.ID}); err != nil {
		s.logger.Warn("identity feed publish failed", zap.String("session_id", session.ID), zap.Error(err))
	}
}

func (s *SessionContext) resolve(ctx context.Context, sessionID string, identity domain.Identity) (*domain.Session, error) {
	profile, created, err := s.ensureProfile(ctx, identity)
	if err != nil {
		return nil, err
	}
	// La respuesta puede llegar despues de un cierre; no se publica nada en ese caso.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.publish(sessionID, identity, profile, created)
}

// ensureProfile lee el perfil y, si no existe, escribe los valores por defecto
// con una escritura condicional. Si otro escritor gano, se devuelve el suyo.
func (s *SessionContext) ensureProfile(ctx context.Context, identity domain.Identity) (domain.Profile, bool, error) {
	profile, err := s.profiles.GetByID(ctx, identity.ID)
	if err == nil {
		return profile, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Profile{}, false, backendErr("read profile", err)
	}

	defaults := domain.NewDefaultProfile(identity, s.cfg.AdminEmail, s.now())
	stored, created, err := s.profiles.CreateIfAbsent(ctx, defaults)
	if err != nil {
		return domain.Profile{}, false, backendErr("create profile", err)
	}
	if created {
		s.logger.Info("profile created",
			zap.String("user_id", identity.ID),
			zap.String("role", string(stored.Role)),
		)
	}
	return stored, created, nil
}

func (s *SessionContext) publish(sessionID string, identity domain.Identity, profile domain.Profile, created bool) (*domain.Session, error) {
	session := domain.NewSession(sessionID, identity, profile)

	s.mu.Lock()
	if _, gone := s.ended[sessionID]; gone {
		s.mu.Unlock()
		return nil, ErrNoSession
	}
	_, existed := s.sessions[sessionID]
	s.sessions[sessionID] = session
	s.mu.Unlock()

	if !existed {
		s.metrics.RecordSessionResolved(created)
	}
	cp := *session
	return &cp, nil
}

func (s *SessionContext) end(sessionID string) {
	now := s.now()

	s.mu.Lock()
	_, existed := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	for id, at := range s.ended {
		if now.Sub(at) > s.cfg.EndedRetention {
			delete(s.ended, id)
		}
	}
	s.ended[sessionID] = now
	s.mu.Unlock()

	if existed {
		s.metrics.RecordSessionEnded()
	}
	s.wake(sessionID, resolveResult{err: ErrNoSession})
}

func (s *SessionContext) isEnded(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ended[sessionID]
	return ok
}

func (s *SessionContext) wait(sessionID string) chan resolveResult {
	ch := make(chan resolveResult, 1)
	s.mu.Lock()
	s.waiters[sessionID] = append(s.waiters[sessionID], ch)
	s.mu.Unlock()
	return ch
}

func (s *SessionContext) forget(sessionID string, ch chan resolveResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.waiters[sessionID]
	for i, c := range list {
		if c == ch {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(s.waiters, sessionID)
		return
	}
	s.waiters[sessionID] = list
}

func (s *SessionContext) wake(sessionID string, res resolveResult) {
	s.mu.Lock()
	list := s.waiters[sessionID]
	delete(s.waiters, sessionID)
	s.mu.Unlock()
	for _, ch := range list {
		ch <- res
	}
}

// announce publica la identidad en el feed y espera a que el procesamiento la resuelva.
// Sin suscripcion activa, o si el feed no responde a tiempo, resuelve en linea.
func (s *SessionContext) announce(ctx context.Context, sessionID string, identity domain.Identity) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Loading() {
		return s.Resolve(ctx, sessionID, identity)
	}

	ch := s.wait(sessionID)
	if err := s.feed.Publish(ctx, IdentityEvent{SessionID: sessionID, Identity: &identity}); err != nil {
		s.forget(sessionID, ch)
		s.logger.Warn("identity feed publish failed", zap.String("session_id", sessionID), zap.Error(err))
		return s.Resolve(ctx, sessionID, identity)
	}

	timer := time.NewTimer(s.cfg.ResolveTimeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		return res.session, res.err
	case <-timer.C:
		s.forget(sessionID, ch)
		s.logger.Warn("identity feed resolution timed out", zap.String("session_id", sessionID))
		return s.Resolve(ctx, sessionID, identity)
	case <-ctx.Done():
		s.forget(sessionID, ch)
		return nil, ctx.Err()
	}
}

func (s *SessionContext) start(ctx context.Context, identity domain.Identity) (*domain.Session, TokenPair, error) {
	sessionID := uuid.NewString()
	session, err := s.announce(ctx, sessionID, identity)
	if err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.tokens.GeneratePair(ctx, identity, sessionID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return session, pair, nil
}

// SignUp crea credenciales y escribe el perfil inicial Free/user/active.
// Si la escritura del perfil falla la identidad queda sin perfil; se crea en el proximo ingreso.
func (s *SessionContext) SignUp(ctx context.Context, emailAddr, password string) (*domain.Session, TokenPair, error) {
	identity, err := s.identity.CreateCredentials(ctx, emailAddr, password)
	if err != nil {
		s.metrics.RecordAuthFailure("signup")
		return nil, TokenPair{}, err
	}

	profile := domain.NewSignUpProfile(identity, s.now())
	if err := s.profiles.Put(ctx, profile); err != nil {
		s.metrics.RecordProfileMutation("signup", false)
		s.logger.Error("signup profile write failed", zap.String("user_id", identity.ID), zap.Error(err))
		return nil, TokenPair{}, backendErr("create profile", err)
	}
	s.metrics.RecordProfileMutation("signup", true)

	session, pair, err := s.start(ctx, identity)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.sendNotice(ctx, email.WelcomeNotice(identity.Email))
	return session, pair, nil
}

// SignIn verifica credenciales y abre una sesion nueva.
func (s *SessionContext) SignIn(ctx context.Context, emailAddr, password string) (*domain.Session, TokenPair, error) {
	if s.limiter != nil && !s.limiter.Allow(ctx, normalizeEmail(emailAddr)) {
		s.metrics.RecordAuthFailure("signin")
		return nil, TokenPair{}, ErrRateLimited
	}

	identity, err := s.identity.VerifyCredentials(ctx, emailAddr, password)
	if err != nil {
		s.metrics.RecordAuthFailure("signin")
		return nil, TokenPair{}, err
	}

	if s.cfg.EnforceStatus {
		profile, _, err := s.ensureProfile(ctx, identity)
		if err != nil {
			return nil, TokenPair{}, err
		}
		if !profile.IsActive() {
			s.metrics.RecordAuthFailure("signin")
			s.logger.Info("signin rejected by profile status",
				zap.String("user_id", identity.ID),
				zap.String("status", string(profile.Status)),
			)
			return nil, TokenPair{}, ErrAccountInactive
		}
	}

	return s.start(ctx, identity)
}

// SignOut revoca el refresh token y deja la sesion en nil.
func (s *SessionContext) SignOut(ctx context.Context, sessionID, refreshToken string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrNoSession
	}
	if refreshToken != "" {
		if _, err := s.tokens.RevokeRefresh(ctx, refreshToken); err != nil {
			s.logger.Warn("refresh revoke failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	s.end(sessionID)
	if err := s.feed.Publish(ctx, IdentityEvent{SessionID: sessionID}); err != nil {
		s.logger.Warn("identity feed publish failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	return nil
}

// Refresh rota el par de tokens conservando el id de sesion.
// Si el perfil ya no permite la sesion, el par nuevo se revoca antes de devolver el error.
func (s *SessionContext) Refresh(ctx context.Context, refreshToken string) (*domain.Session, TokenPair, error) {
	claims, err := s.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if s.isEnded(claims.SessionID) {
		return nil, TokenPair{}, ErrNoSession
	}
	pair, claims, err := s.tokens.RefreshPair(ctx, refreshToken)
	if err != nil {
		return nil, TokenPair{}, err
	}
	// La rotacion equivale a un cambio de estado de auth: el perfil se relee y la sesion se republica.
	session, err := s.Resolve(ctx, claims.SessionID, claims.Identity())
	if err != nil {
		if _, revokeErr := s.tokens.RevokeRefresh(ctx, pair.RefreshToken); revokeErr != nil {
			s.logger.Warn("refresh revoke failed", zap.String("session_id", claims.SessionID), zap.Error(revokeErr))
		}
		return nil, TokenPair{}, err
	}
	return session, pair, nil
}

func (s *SessionContext) sendNotice(ctx context.Context, notice email.Notice) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, notice); err != nil && !errors.Is(err, email.ErrDisabled) {
		s.logger.Warn("notice email failed", zap.String("kind", string(notice.Kind)), zap.Error(err))
	}
}
