package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"user-analytics/internal/domain"
	"user-analytics/internal/repository"
)

const (
	googleProvider         = "google"
	googleUserInfoEndpoint = "https://www.googleapis.com/oauth2/v3/userinfo"
	oauthStateTTL          = 10 * time.Minute
)

var (
	ErrOAuthInvalid = errors.New("oauth data invalid")
	ErrOAuthState   = errors.New("oauth state invalid")
)

// OAuthService resuelve identidades federadas de Google contra cuentas locales.
type OAuthService struct {
	logger           *zap.Logger
	accounts         repository.AccountRepository
	config           *oauth2.Config
	states           StateStore
	userInfoEndpoint string
}

func NewOAuthService(logger *zap.Logger, accounts repository.AccountRepository, clientID, clientSecret, redirectURL string, states StateStore) *OAuthService {
	if states == nil {
		states = NewMemoryStateStore()
	}
	return &OAuthService{
		logger:   logger,
		accounts: accounts,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoints.Google,
		},
		states:           states,
		userInfoEndpoint: googleUserInfoEndpoint,
	}
}

// AuthURL genera la URL de autorización de Google y registra el state.
func (s *OAuthService) AuthURL() (string, error) {
	if s.config.ClientID == "" {
		return "", ErrOAuthInvalid
	}
	state := uuid.NewString()
	if err := s.states.Save(state, s.config.RedirectURL, oauthStateTTL); err != nil {
		return "", err
	}
	return s.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

type providerIdentity struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

// Complete cierra el flujo redirect: valida state, canjea el code y
// resuelve o crea la cuenta federada.
func (s *OAuthService) Complete(ctx context.Context, state, code string) (domain.Account, error) {
	if _, ok := s.states.Take(state); !ok {
		return domain.Account{}, ErrOAuthState
	}
	if strings.TrimSpace(code) == "" {
		return domain.Account{}, ErrOAuthInvalid
	}

	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return domain.Account{}, fmt.Errorf("exchange code: %w", err)
	}

	identity, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		return domain.Account{}, err
	}
	return s.resolveOrCreate(ctx, identity)
}

// DirectLogin acepta claims ya obtenidos por el cliente y resuelve por email.
// El token no se reverifica contra Google: el cliente móvil original depende
// de este atajo.
func (s *OAuthService) DirectLogin(ctx context.Context, token, email, name string) (domain.Account, error) {
	token = strings.TrimSpace(token)
	email = normalizeEmail(email)
	if token == "" || email == "" {
		return domain.Account{}, ErrOAuthInvalid
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, err
	}

	username := fmt.Sprintf("%s_%d",
		strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_"),
		time.Now().Unix(),
	)
	account = domain.Account{
		ID:                uuid.NewString(),
		Email:             email,
		Username:          username,
		FederatedSubject:  token,
		FederatedProvider: googleProvider,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

func (s *OAuthService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (providerIdentity, error) {
	client := s.config.Client(ctx, token)
	resp, err := client.Get(s.userInfoEndpoint)
	if err != nil {
		return providerIdentity{}, fmt.Errorf("user info request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return providerIdentity{}, fmt.Errorf("user info status: %s", resp.Status)
	}

	var identity providerIdentity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return providerIdentity{}, fmt.Errorf("decode user info: %w", err)
	}
	if identity.Subject == "" || identity.Email == "" {
		return providerIdentity{}, ErrOAuthInvalid
	}
	identity.Email = normalizeEmail(identity.Email)
	return identity, nil
}

func (s *OAuthService) resolveOrCreate(ctx context.Context, identity providerIdentity) (domain.Account, error) {
	account, err := s.accounts.GetByFederated(ctx, googleProvider, identity.Subject)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, err
	}

	// Colisión local/federada de email: se rechaza, no se fusiona.
	if _, err := s.accounts.GetByEmail(ctx, identity.Email); err == nil {
		return domain.Account{}, repository.ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, err
	}

	account = domain.Account{
		ID:                uuid.NewString(),
		Email:             identity.Email,
		Username:          deriveUsername(identity.Name, identity.Subject),
		FederatedSubject:  identity.Subject,
		FederatedProvider: googleProvider,
		CreatedAt:         time.Now().UTC(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return domain.Account{}, err
	}
	s.logger.Info("provisioned federated account", zap.String("username", account.Username))
	return account, nil
}

func deriveUsername(name, subject string) string {
	base := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "")
	if base == "" {
		base = googleProvider
	}
	fragment := subject
	if len(fragment) > 8 {
		fragment = fragment[:8]
	}
	return base + "_" + fragment
}
