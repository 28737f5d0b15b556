package handlers

import (
	"context"
	"net/http"
	"sync"

	"user_accounts/internal/models"
	"user_accounts/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int64
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int64
	parseErr      error

	lastSignUp      models.User
	lastGenEmail    string
	lastGenPassword string
	lastParseToken  string
}

func (m *mockAuth) SignUp(_ context.Context, u models.User) (int64, error) {
	m.lastSignUp = u
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(_ context.Context, email, password string) (string, error) {
	m.lastGenEmail = email
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int64, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockAccounts struct {
	user      *models.User
	getErr    error
	updateErr error

	lastGetID    int64
	lastUpdateID int64
	lastUpdate   models.UserUpdate
	updateCalls  int
}

func (m *mockAccounts) Register(_ context.Context, _ models.User) (int64, error) {
	return 0, nil
}
func (m *mockAccounts) Get(_ context.Context, id int64) (*models.User, error) {
	m.lastGetID = id
	return m.user, m.getErr
}
func (m *mockAccounts) Update(_ context.Context, id int64, upd models.UserUpdate) error {
	m.updateCalls++
	m.lastUpdateID = id
	m.lastUpdate = upd
	return m.updateErr
}
func (m *mockAccounts) Authenticate(_ context.Context, _, _ string) (*models.User, error) {
	return m.user, nil
}

type mockAuditLog struct {
	mu    sync.Mutex
	resp  []models.AccountEvent
	err   error
	calls []service.LogFilter
}

func (m *mockAuditLog) List(_ context.Context, f service.LogFilter) ([]models.AccountEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, f)
	out := make([]models.AccountEvent, len(m.resp))
	copy(out, m.resp)
	return out, m.err
}

func (m *mockAuditLog) set(events []models.AccountEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resp = events
}

func (m *mockAuditLog) last() service.LogFilter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return service.LogFilter{}
	}
	return m.calls[len(m.calls)-1]
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
