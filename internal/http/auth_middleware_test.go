package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"user-analytics/internal/domain"
	"user-analytics/internal/repository"
	"user-analytics/internal/service"
)

type mockAccountRepo struct {
	mu   sync.Mutex
	byID map[string]domain.Account
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{byID: make(map[string]domain.Account)}
}

func (m *mockAccountRepo) Create(_ context.Context, account domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == account.Email {
			return repository.ErrEmailTaken
		}
		if a.Username == account.Username {
			return repository.ErrUsernameTaken
		}
	}
	m.byID[account.ID] = account
	return nil
}

func (m *mockAccountRepo) GetByUsername(_ context.Context, username string) (domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Username == username {
			return a, nil
		}
	}
	return domain.Account{}, pgx.ErrNoRows
}

func (m *mockAccountRepo) GetByEmail(_ context.Context, email string) (domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == email {
			return a, nil
		}
	}
	return domain.Account{}, pgx.ErrNoRows
}

func (m *mockAccountRepo) GetByFederated(_ context.Context, provider, subject string) (domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.FederatedProvider == provider && a.FederatedSubject == subject {
			return a, nil
		}
	}
	return domain.Account{}, pgx.ErrNoRows
}

func (m *mockAccountRepo) Update(_ context.Context, account domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.byID[account.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	for id, a := range m.byID {
		if id == account.ID {
			continue
		}
		if a.Email == account.Email {
			return repository.ErrEmailTaken
		}
		if a.Username == account.Username {
			return repository.ErrUsernameTaken
		}
	}
	current.Email = account.Email
	current.Username = account.Username
	current.PasswordHash = account.PasswordHash
	m.byID[account.ID] = current
	return nil
}

func (m *mockAccountRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

func seedLocalAccount(t *testing.T, repo *mockAccountRepo, username, email, password string) domain.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	account := domain.Account{
		ID:           username + "-id",
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	repo.byID[account.ID] = account
	return account
}

func protectedRouter(jwtSvc *service.JWTService, repo *mockAccountRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", AuthRequired(jwtSvc, repo), func(c *gin.Context) {
		account, ok := CurrentAccount(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"username": account.Username})
	})
	return r
}

func TestAuthRequired_AllowsValidToken(t *testing.T) {
	repo := newMockAccountRepo()
	seedLocalAccount(t, repo, "alice", "alice@example.com", "pw")
	jwtSvc := service.NewJWTService("secret", 30*time.Minute)
	token, err := jwtSvc.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	r := protectedRouter(jwtSvc, repo)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthRequired_RejectsMissingToken(t *testing.T) {
	repo := newMockAccountRepo()
	jwtSvc := service.NewJWTService("secret", 30*time.Minute)

	r := protectedRouter(jwtSvc, repo)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Fatalf("expected WWW-Authenticate challenge")
	}
}

func TestAuthRequired_RejectsInvalidToken(t *testing.T) {
	repo := newMockAccountRepo()
	jwtSvc := service.NewJWTService("secret", 30*time.Minute)

	r := protectedRouter(jwtSvc, repo)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthRequired_RejectsTokenForDeletedAccount(t *testing.T) {
	repo := newMockAccountRepo()
	account := seedLocalAccount(t, repo, "alice", "alice@example.com", "pw")
	jwtSvc := service.NewJWTService("secret", 30*time.Minute)
	token, err := jwtSvc.Issue("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// La firma sigue siendo válida; la resolución de cuenta debe fallar.
	if err := repo.Delete(context.Background(), account.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	r := protectedRouter(jwtSvc, repo)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deleted account, got %d", rec.Code)
	}
}
