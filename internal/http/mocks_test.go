package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"notes-console/internal/domain"
	"notes-console/internal/repository"
	"notes-console/internal/service"
)

type mockUserRepo struct {
	mu      sync.Mutex
	byID    map[string]domain.User
	byEmail map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byID: make(map[string]domain.User), byEmail: make(map[string]string)}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[user.Email]; ok {
		return repository.ErrDuplicate
	}
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.byID[id], nil
}

type mockProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]domain.Profile
	getCalls  int
	calls     int
	updateErr error
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[string]domain.Profile)}
}

func (m *mockProfileRepo) GetByID(_ context.Context, id string) (domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	p, ok := m.profiles[id]
	if !ok {
		return domain.Profile{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockProfileRepo) List(_ context.Context) ([]domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	out := make([]domain.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockProfileRepo) CreateIfAbsent(_ context.Context, profile domain.Profile) (domain.Profile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if existing, ok := m.profiles[profile.ID]; ok {
		return existing, false, nil
	}
	m.profiles[profile.ID] = profile
	return profile, true, nil
}

func (m *mockProfileRepo) Put(_ context.Context, profile domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.profiles[profile.ID] = profile
	return nil
}

func (m *mockProfileRepo) UpdateField(_ context.Context, id string, update domain.FieldUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.updateErr != nil {
		return m.updateErr
	}
	p, ok := m.profiles[id]
	if !ok {
		return pgx.ErrNoRows
	}
	switch update.Field {
	case domain.FieldRole:
		p.Role = domain.Role(update.Value)
	case domain.FieldSubscription:
		p.Subscription = domain.Subscription(update.Value)
	case domain.FieldStatus:
		p.Status = domain.Status(update.Value)
	case domain.FieldName:
		p.Name = update.Value
	}
	m.profiles[id] = p
	return nil
}

func (m *mockProfileRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if _, ok := m.profiles[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.profiles, id)
	return nil
}

// callCount no incluye GetByID: el middleware relee el perfil de la sesion en cada request.
func (m *mockProfileRepo) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockNoteRepo struct {
	mu    sync.Mutex
	notes []domain.Note
	calls int
}

func (m *mockNoteRepo) ListAll(_ context.Context) ([]domain.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return append([]domain.Note(nil), m.notes...), nil
}

func (m *mockNoteRepo) ListByUserID(_ context.Context, userID string) ([]domain.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	var out []domain.Note
	for _, n := range m.notes {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNoteRepo) DeleteByUserID(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return 0, nil
}

func (m *mockNoteRepo) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

const testAdminEmail = "admin@example.com"

type testApp struct {
	router   *gin.Engine
	users    *mockUserRepo
	profiles *mockProfileRepo
	notes    *mockNoteRepo
	auth     *service.AuthService
	sessions *service.SessionContext
}

func newTestApp(t *testing.T, limiter *ClientRateLimiter) *testApp {
	t.Helper()
	return newTestAppWithLogger(t, limiter, zap.NewNop())
}

func newTestAppWithLogger(t *testing.T, limiter *ClientRateLimiter, logger *zap.Logger) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := newMockUserRepo()
	profiles := newMockProfileRepo()
	notes := &mockNoteRepo{}
	authSvc := service.NewAuthService(logger, users)
	jwtSvc := service.NewJWTServiceWithStore("secret", 15*time.Minute, time.Hour, service.NewMemoryRefreshTokenStore())
	sessions := service.NewSessionContext(logger, authSvc, service.NewMemoryIdentityFeed(), profiles, jwtSvc, nil, nil, nil,
		service.SessionContextConfig{AdminEmail: testAdminEmail, EnforceStatus: true})
	if err := sessions.Init(context.Background()); err != nil {
		t.Fatalf("init sessions: %v", err)
	}
	t.Cleanup(sessions.Teardown)

	deletion := service.NewAccountDeletion(logger, profiles, notes, sessions, nil, nil, service.OrphanPolicyRetain)
	router := NewRouter(RouterDeps{
		Logger:      logger,
		RateLimiter: limiter,
		JWT:         jwtSvc,
		Sessions:    sessions,
		Auth:        NewAuthHandler(logger, sessions),
		Admin:       NewAdminHandler(logger, service.NewAdminService(logger, profiles, notes, nil)),
		Analytics:   NewAnalyticsHandler(logger, service.NewAnalyticsService(notes, time.UTC, "2006-01-02", 1000)),
		Settings:    NewSettingsHandler(logger, service.NewSettingsService(logger, profiles, deletion, nil)),
	})
	return &testApp{router: router, users: users, profiles: profiles, notes: notes, auth: authSvc, sessions: sessions}
}

type authResponse struct {
	Session *domain.Session   `json:"session"`
	Tokens  service.TokenPair `json:"tokens"`
}

func (a *testApp) signUp(t *testing.T, email string) authResponse {
	t.Helper()
	rec := performRequest(a.router, http.MethodPost, "/auth/signup", map[string]string{"email": email, "password": "secret123"}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	return decodeAuth(t, rec)
}

// signInAdmin crea credenciales sin perfil; el ingreso crea el perfil de admin.
func (a *testApp) signInAdmin(t *testing.T) authResponse {
	t.Helper()
	if _, err := a.auth.CreateCredentials(context.Background(), testAdminEmail, "secret123"); err != nil {
		t.Fatalf("create admin credentials: %v", err)
	}
	rec := performRequest(a.router, http.MethodPost, "/auth/signin", map[string]string{"email": testAdminEmail, "password": "secret123"}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("signin: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	return decodeAuth(t, rec)
}

func decodeAuth(t *testing.T, rec *httptest.ResponseRecorder) authResponse {
	t.Helper()
	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode auth response: %v", err)
	}
	if resp.Session == nil || resp.Tokens.AccessToken == "" {
		t.Fatalf("expected session and tokens, got %s", rec.Body.String())
	}
	return resp
}

func performRequest(r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type errorResponse struct {
	Error  string `json:"error"`
	Notice Notice `json:"notice"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}
