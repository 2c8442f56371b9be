package test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/yourorg/mailseat/internal/directory"
	"github.com/yourorg/mailseat/internal/domain"
	"github.com/yourorg/mailseat/internal/events"
	"github.com/yourorg/mailseat/internal/handler"
	"github.com/yourorg/mailseat/internal/registry"
	"github.com/yourorg/mailseat/internal/security/audit"
	"github.com/yourorg/mailseat/internal/security/auth"
	"github.com/yourorg/mailseat/internal/security/middleware"
	"github.com/yourorg/mailseat/internal/security/ratelimit"
	"github.com/yourorg/mailseat/internal/service"
)

// memDomainRepo is an in-memory domain.DomainRepository for API tests
type memDomainRepo struct {
	mu     sync.Mutex
	seq    int64
	byID   map[int64]*domain.Domain
	byName map[string]*domain.Domain
}

func newMemDomainRepo() *memDomainRepo {
	return &memDomainRepo{byID: map[int64]*domain.Domain{}, byName: map[string]*domain.Domain{}}
}

func (m *memDomainRepo) Create(d *domain.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	d.ID = m.seq
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	cp := *d
	m.byID[d.ID] = &cp
	m.byName[d.Name] = &cp
	return nil
}

func (m *memDomainRepo) GetByID(id int64) (*domain.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.byID[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, domain.ErrDomainNotFound
}

func (m *memDomainRepo) GetByName(name string) (*domain.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.byName[name]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, domain.ErrDomainNotFound
}

func (m *memDomainRepo) Update(d *domain.Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[d.ID]; !ok {
		return domain.ErrDomainNotFound
	}
	d.UpdatedAt = time.Now()
	cp := *d
	m.byID[d.ID] = &cp
	m.byName[d.Name] = &cp
	return nil
}

func (m *memDomainRepo) Delete(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return domain.ErrDomainNotFound
	}
	delete(m.byName, d.Name)
	delete(m.byID, id)
	return nil
}

func (m *memDomainRepo) List() ([]*domain.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Domain, 0, len(m.byID))
	for _, d := range m.byID {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

// memAccountRepo is an in-memory domain.AccountRepository for API tests
type memAccountRepo struct {
	mu      sync.Mutex
	seq     int
	byID    map[string]*domain.Account
	byEmail map[string]*domain.Account
	byUser  map[string]*domain.Account
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{
		byID:    map[string]*domain.Account{},
		byEmail: map[string]*domain.Account{},
		byUser:  map[string]*domain.Account{},
	}
}

func (m *memAccountRepo) Create(a *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	a.ID = fmt.Sprintf("acct-%d", m.seq)
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.byID[a.ID] = a
	m.byEmail[a.Email] = a
	m.byUser[a.Username] = a
	return nil
}

func (m *memAccountRepo) GetByID(id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byID[id]; ok {
		return a, nil
	}
	return nil, errors.New("account not found")
}

func (m *memAccountRepo) GetByEmail(email string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byEmail[email]; ok {
		return a, nil
	}
	return nil, errors.New("account not found")
}

func (m *memAccountRepo) GetByUsername(username string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byUser[username]; ok {
		return a, nil
	}
	return nil, errors.New("account not found")
}

func (m *memAccountRepo) Update(a *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.UpdatedAt = time.Now()
	m.byID[a.ID] = a
	m.byEmail[a.Email] = a
	m.byUser[a.Username] = a
	return nil
}

func (m *memAccountRepo) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

func (m *memAccountRepo) ListByDomain(domainID int64) ([]*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Account{}
	for _, a := range m.byID {
		if a.DomainID == domainID {
			out = append(out, a)
		}
	}
	return out, nil
}

// TestServerHelper assembles the full API surface against in-memory stores
type TestServerHelper struct {
	Server    *httptest.Server
	Logger    *slog.Logger
	Directory *directory.Directory
	Registry  *registry.Registry
	Broker    *events.Broker
	Tokens    *auth.TokenManager
}

// NewTestServer wires the real handlers, services, and JWT middleware over
// in-memory repositories. No Redis or Postgres is needed.
func NewTestServer(t *testing.T) *TestServerHelper {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	dir := directory.New()
	reg := registry.New(newMemDomainRepo(), dir, log)
	broker := events.NewBroker(16)
	t.Cleanup(broker.Close)

	tokenManager := auth.NewTokenManager("test-secret", "mailseat")
	directoryService := service.NewDirectoryService(dir, reg, broker, []string{"postmaster", "abuse"}, log)
	authService := service.NewAuthService(newMemAccountRepo(), tokenManager, log)
	auditLogger := audit.NewLogger(log)

	rateLimiter := ratelimit.NewLimiter(1000, time.Minute)
	t.Cleanup(rateLimiter.Stop)

	authHandler := handler.NewAuthHandler(authService, rateLimiter, log)
	domainsHandler := handler.NewDomainsHandler(reg, dir, log)
	usersHandler := handler.NewUsersHandler(directoryService, reg, auditLogger, log)
	userDetailHandler := handler.NewUserDetailHandler(directoryService, reg, auditLogger, log)
	eventsHandler := handler.NewEventsHandler(broker, tokenManager, log, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/change-password", authHandler.ChangePassword)
	mux.HandleFunc("GET /api/domains", domainsHandler.List)
	mux.HandleFunc("POST /api/domains", domainsHandler.Create)
	mux.HandleFunc("GET /api/domains/{id}", domainsHandler.Get)
	mux.HandleFunc("PATCH /api/domains/{id}", domainsHandler.Update)
	mux.HandleFunc("DELETE /api/domains/{id}", domainsHandler.Delete)
	mux.HandleFunc("POST /api/domains/{id}/verify", domainsHandler.Verify)
	mux.HandleFunc("GET /api/domains/{id}/users", usersHandler.List)
	mux.HandleFunc("POST /api/domains/{id}/users", usersHandler.Create)
	mux.HandleFunc("GET /api/users/{id}", userDetailHandler.Get)
	mux.HandleFunc("PATCH /api/users/{id}", userDetailHandler.Update)
	mux.HandleFunc("DELETE /api/users/{id}", userDetailHandler.Delete)
	mux.HandleFunc("POST /api/users/{id}/rename", userDetailHandler.Rename)
	mux.Handle("GET /ws/events", eventsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	root := middleware.JWTMiddleware(tokenManager, log)(mux)
	server := httptest.NewServer(root)
	t.Cleanup(server.Close)

	return &TestServerHelper{
		Server:    server,
		Logger:    log,
		Directory: dir,
		Registry:  reg,
		Broker:    broker,
		Tokens:    tokenManager,
	}
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// Do sends a JSON request with an optional bearer token and decodes the
// JSON response body (when any) into a generic map.
func (h *TestServerHelper) Do(t *testing.T, method, path, token string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, h.URL()+path, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		json.Unmarshal(raw, &decoded)
	}
	return resp.StatusCode, decoded
}

// RegisterOperator registers an operator and returns its token.
func (h *TestServerHelper) RegisterOperator(t *testing.T, email, username, role string, domainID int64) string {
	t.Helper()
	status, body := h.Do(t, "POST", "/api/auth/register", "", map[string]interface{}{
		"email":    email,
		"username": username,
		"password": "Password123",
		"domainId": domainID,
		"role":     role,
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s: status %d body %v", email, status, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("register %s: no token in %v", email, body)
	}
	return token
}
