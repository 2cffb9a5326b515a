package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-analytics/internal/domain"
	"user-analytics/internal/service"
)

type mockUserRepo struct {
	users []domain.User
}

func (m *mockUserRepo) ListAll(_ context.Context) ([]domain.User, error) {
	return m.users, nil
}

func (m *mockUserRepo) Count(_ context.Context) (int64, error) {
	return int64(len(m.users)), nil
}

func (m *mockUserRepo) BulkInsert(_ context.Context, users []domain.User) error {
	m.users = append(m.users, users...)
	return nil
}

func newTestRouter(t *testing.T, accountRepo *mockAccountRepo, userRepo *mockUserRepo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	jwtSvc := service.NewJWTService("secret", 30*time.Minute)
	accountSvc := service.NewAccountService(logger, accountRepo)
	oauthSvc := service.NewOAuthService(logger, accountRepo, "client-id", "client-secret", "http://localhost:8000/callback/google", service.NewMemoryStateStore())
	analyticsSvc := service.NewAnalyticsService(userRepo)

	authH := NewAuthHandler(logger, accountSvc, oauthSvc, jwtSvc)
	userH := NewUserHandler(logger, userRepo)
	analyticsH := NewAnalyticsHandler(logger, analyticsSvc)

	return NewRouter(logger, []string{"http://localhost:8000"}, jwtSvc, accountRepo, authH, userH, analyticsH)
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func extractToken(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode token response: %v", err)
	}
	if resp.AccessToken == "" || resp.TokenType != "bearer" {
		t.Fatalf("unexpected token response: %s", rec.Body.String())
	}
	return resp.AccessToken
}

func TestRegisterThenLogin(t *testing.T) {
	r := newTestRouter(t, newMockAccountRepo(), &mockUserRepo{})

	rec := doJSON(t, r, http.MethodPost, "/register", "", gin.H{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "s3cret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	extractToken(t, rec)

	rec = doJSON(t, r, http.MethodPost, "/login", "", gin.H{
		"username": "alice",
		"password": "s3cret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	extractToken(t, rec)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	r := newTestRouter(t, newMockAccountRepo(), &mockUserRepo{})

	payload := gin.H{"username": "alice", "email": "alice@example.com", "password": "pw"}
	if rec := doJSON(t, r, http.MethodPost, "/register", "", payload); rec.Code != http.StatusOK {
		t.Fatalf("first register: expected 200, got %d", rec.Code)
	}

	payload["username"] = "alice2"
	if rec := doJSON(t, r, http.MethodPost, "/register", "", payload); rec.Code != http.StatusConflict {
		t.Fatalf("second register: expected 409, got %d", rec.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newMockAccountRepo()
	seedLocalAccount(t, repo, "admin", "admin@example.com", "admin123")
	r := newTestRouter(t, repo, &mockUserRepo{})

	rec := doJSON(t, r, http.MethodPost, "/login", "", gin.H{
		"username": "admin",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAdminSeedLogin(t *testing.T) {
	repo := newMockAccountRepo()
	seedLocalAccount(t, repo, "admin", "admin@example.com", "admin123")
	r := newTestRouter(t, repo, &mockUserRepo{})

	rec := doJSON(t, r, http.MethodPost, "/login", "", gin.H{
		"username": "admin",
		"password": "admin123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	token := extractToken(t, rec)

	rec = doJSON(t, r, http.MethodGet, "/test-auth", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("test-auth: expected 200, got %d", rec.Code)
	}
	var resp struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Username != "admin" {
		t.Fatalf("expected subject admin, got %q", resp.Username)
	}
}

func TestAccountUpdateWrongPassword(t *testing.T) {
	repo := newMockAccountRepo()
	seedLocalAccount(t, repo, "alice", "alice@example.com", "s3cret")
	r := newTestRouter(t, repo, &mockUserRepo{})

	token := loginFor(t, r, "alice", "s3cret")
	rec := doJSON(t, r, http.MethodPost, "/account/update", token, gin.H{
		"current_password": "wrong",
		"new_username":     "alicia",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	if _, err := repo.GetByUsername(context.Background(), "alice"); err != nil {
		t.Fatalf("account should be unchanged: %v", err)
	}
}

func TestAccountUpdateUsernameConflict(t *testing.T) {
	repo := newMockAccountRepo()
	seedLocalAccount(t, repo, "alice", "alice@example.com", "s3cret")
	seedLocalAccount(t, repo, "bob", "bob@example.com", "pw")
	r := newTestRouter(t, repo, &mockUserRepo{})

	token := loginFor(t, r, "alice", "s3cret")
	rec := doJSON(t, r, http.MethodPost, "/account/update", token, gin.H{
		"current_password": "s3cret",
		"new_username":     "bob",
		"new_email":        "fresh@example.com",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}

	stored, err := repo.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("alice should survive: %v", err)
	}
	if stored.Email != "alice@example.com" {
		t.Fatalf("email mutated despite conflict: %q", stored.Email)
	}
}

func TestAccountUpdateReissuesTokenForNewUsername(t *testing.T) {
	repo := newMockAccountRepo()
	seedLocalAccount(t, repo, "alice", "alice@example.com", "s3cret")
	r := newTestRouter(t, repo, &mockUserRepo{})

	token := loginFor(t, r, "alice", "s3cret")
	rec := doJSON(t, r, http.MethodPost, "/account/update", token, gin.H{
		"current_password": "s3cret",
		"new_username":     "alicia",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	newToken := extractToken(t, rec)

	rec = doJSON(t, r, http.MethodGet, "/test-auth", newToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("new token rejected: %d", rec.Code)
	}

	// El token viejo apunta a un username que ya no existe.
	rec = doJSON(t, r, http.MethodGet, "/test-auth", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("old token should fail resolution, got %d", rec.Code)
	}
}

func TestAccountDeleteInvalidatesResolution(t *testing.T) {
	repo := newMockAccountRepo()
	seedLocalAccount(t, repo, "alice", "alice@example.com", "s3cret")
	r := newTestRouter(t, repo, &mockUserRepo{})

	token := loginFor(t, r, "alice", "s3cret")
	rec := doJSON(t, r, http.MethodPost, "/account/delete", token, gin.H{
		"password": "s3cret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// La firma del token sigue siendo válida pero la cuenta no existe.
	rec = doJSON(t, r, http.MethodGet, "/test-auth", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after deletion, got %d", rec.Code)
	}
}

func TestGoogleTokenLoginRequiresTokenAndEmail(t *testing.T) {
	r := newTestRouter(t, newMockAccountRepo(), &mockUserRepo{})

	rec := doJSON(t, r, http.MethodPost, "/callback/google", "", gin.H{
		"name": "Jane",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGoogleTokenLoginIssuesToken(t *testing.T) {
	r := newTestRouter(t, newMockAccountRepo(), &mockUserRepo{})

	rec := doJSON(t, r, http.MethodPost, "/callback/google", "", gin.H{
		"token": "client-asserted",
		"email": "jane@example.com",
		"name":  "Jane Doe",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	extractToken(t, rec)
}

func TestGoogleLoginRedirects(t *testing.T) {
	r := newTestRouter(t, newMockAccountRepo(), &mockUserRepo{})

	req := httptest.NewRequest(http.MethodGet, "/login/google", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc == "" {
		t.Fatalf("expected Location header")
	}
}

func TestProtectedDataEndpoints(t *testing.T) {
	repo := newMockAccountRepo()
	seedLocalAccount(t, repo, "alice", "alice@example.com", "s3cret")
	userRepo := &mockUserRepo{users: []domain.User{
		{ID: 1, Name: "A", Age: 25, City: "Berlin", Salary: 40000, JoinDate: time.Now().UTC()},
		{ID: 2, Name: "B", Age: 35, City: "Tokyo", Salary: 60000, JoinDate: time.Now().UTC()},
	}}
	r := newTestRouter(t, repo, userRepo)

	token := loginFor(t, r, "alice", "s3cret")
	for _, path := range []string{"/users/all", "/analytics/by_city", "/analytics/by_age_range", "/analytics/salary_histogram"} {
		rec := doJSON(t, r, http.MethodPost, path, token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", path, rec.Code, rec.Body.String())
		}
		rec = doJSON(t, r, http.MethodPost, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s without token: expected 401, got %d", path, rec.Code)
		}
	}
}

func loginFor(t *testing.T, r *gin.Engine, username, password string) string {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/login", "", gin.H{
		"username": username,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", username, rec.Code, rec.Body.String())
	}
	return extractToken(t, rec)
}
