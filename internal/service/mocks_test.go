package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"notes-console/internal/domain"
	"notes-console/internal/email"
)

type mockProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]domain.Profile

	getErr    error
	listErr   error
	createErr error
	putErr    error
	updateErr error
	deleteErr error

	getCalls    int
	listCalls   int
	createCalls int
	putCalls    int
	updateCalls int
	deleteCalls int
}

func newMockProfileRepo(profiles ...domain.Profile) *mockProfileRepo {
	m := &mockProfileRepo{profiles: make(map[string]domain.Profile)}
	for _, p := range profiles {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *mockProfileRepo) GetByID(_ context.Context, id string) (domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return domain.Profile{}, m.getErr
	}
	p, ok := m.profiles[id]
	if !ok {
		return domain.Profile{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockProfileRepo) List(_ context.Context) ([]domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockProfileRepo) CreateIfAbsent(_ context.Context, profile domain.Profile) (domain.Profile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createErr != nil {
		return domain.Profile{}, false, m.createErr
	}
	if existing, ok := m.profiles[profile.ID]; ok {
		return existing, false, nil
	}
	m.profiles[profile.ID] = profile
	return profile, true, nil
}

func (m *mockProfileRepo) Put(_ context.Context, profile domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	if m.putErr != nil {
		return m.putErr
	}
	m.profiles[profile.ID] = profile
	return nil
}

func (m *mockProfileRepo) UpdateField(_ context.Context, id string, update domain.FieldUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
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
	m.deleteCalls++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.profiles[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.profiles, id)
	return nil
}

func (m *mockProfileRepo) storeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getCalls + m.listCalls + m.createCalls + m.putCalls + m.updateCalls + m.deleteCalls
}

type mockNoteRepo struct {
	mu      sync.Mutex
	notes   []domain.Note
	listErr error
	calls   int
}

func (m *mockNoteRepo) ListAll(_ context.Context) ([]domain.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]domain.Note(nil), m.notes...), nil
}

func (m *mockNoteRepo) ListByUserID(_ context.Context, userID string) ([]domain.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.listErr != nil {
		return nil, m.listErr
	}
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
	kept := m.notes[:0]
	var deleted int64
	for _, n := range m.notes {
		if n.UserID == userID {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	m.notes = kept
	return deleted, nil
}

type mockSender struct {
	mu   sync.Mutex
	sent []email.Notice
}

func (m *mockSender) Send(_ context.Context, notice email.Notice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, notice)
	return nil
}

func (m *mockSender) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, s := range m.sent {
		out = append(out, s.Subject)
	}
	return out
}

const testAdminEmail = "admin@example.com"

type sessionFixture struct {
	ctx      *SessionContext
	users    *mockUserRepo
	profiles *mockProfileRepo
	tokens   *JWTService
	feed     IdentityFeed
	sender   *mockSender
}

func newSessionFixture(t *testing.T, profiles *mockProfileRepo, cfg SessionContextConfig) *sessionFixture {
	t.Helper()
	if profiles == nil {
		profiles = newMockProfileRepo()
	}
	if cfg.AdminEmail == "" {
		cfg.AdminEmail = testAdminEmail
	}
	users := newMockUserRepo()
	tokens := NewJWTServiceWithStore("secret", 15*time.Minute, time.Hour, NewMemoryRefreshTokenStore())
	feed := NewMemoryIdentityFeed()
	sender := &mockSender{}
	sc := NewSessionContext(
		nil,
		NewAuthService(nil, users),
		feed,
		profiles,
		tokens,
		NewLoginRateLimiter(time.Minute, 3),
		nil,
		sender,
		cfg,
	)
	return &sessionFixture{ctx: sc, users: users, profiles: profiles, tokens: tokens, feed: feed, sender: sender}
}

func (f *sessionFixture) start(t *testing.T) {
	t.Helper()
	if err := f.ctx.Init(context.Background()); err != nil {
		t.Fatalf("init session context: %v", err)
	}
	t.Cleanup(f.ctx.Teardown)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
