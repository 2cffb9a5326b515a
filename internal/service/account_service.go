package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"user-analytics/internal/domain"
	"user-analytics/internal/repository"
)

// AccountService coordina reglas de negocio para cuentas.
type AccountService struct {
	logger   *zap.Logger
	accounts repository.AccountRepository
}

func NewAccountService(logger *zap.Logger, accounts repository.AccountRepository) *AccountService {
	return &AccountService{
		logger:   logger,
		accounts: accounts,
	}
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrFederatedAccount   = errors.New("federated accounts have no local password")
	ErrInvalidInput       = errors.New("invalid input")
)

// Register crea una cuenta local con password y la devuelve.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (domain.Account, error) {
	if s.accounts == nil {
		return domain.Account{}, errors.New("account service not configured")
	}

	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	password = strings.TrimSpace(password)
	if username == "" || email == "" || password == "" {
		return domain.Account{}, ErrInvalidInput
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return domain.Account{}, err
	}

	account := domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	// Los índices únicos deciden el conflicto; no hay check-then-insert con carrera.
	if err := s.accounts.Create(ctx, account); err != nil {
		return domain.Account{}, err
	}
	return account, nil
}

// Login autentica username + password contra la credencial local.
func (s *AccountService) Login(ctx context.Context, username, password string) (domain.Account, error) {
	if s.accounts == nil {
		return domain.Account{}, errors.New("account service not configured")
	}

	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return domain.Account{}, ErrInvalidCredentials
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, ErrInvalidCredentials
		}
		return domain.Account{}, err
	}
	if account.PasswordHash == "" {
		// Cuenta solo federada: no hay password que verificar.
		return domain.Account{}, ErrInvalidCredentials
	}
	if !verifyPassword(password, account.PasswordHash) {
		return domain.Account{}, ErrInvalidCredentials
	}
	return account, nil
}

type UpdateAccountInput struct {
	CurrentPassword string
	NewUsername     string
	NewEmail        string
	NewPassword     string
}

// Update aplica cambios de credenciales tras reverificar el password actual.
// Si alguna verificación de unicidad falla no se muta ningún campo.
func (s *AccountService) Update(ctx context.Context, account domain.Account, input UpdateAccountInput) (domain.Account, error) {
	if s.accounts == nil {
		return domain.Account{}, errors.New("account service not configured")
	}

	if account.IsFederated() {
		return domain.Account{}, ErrFederatedAccount
	}
	if !verifyPassword(strings.TrimSpace(input.CurrentPassword), account.PasswordHash) {
		return domain.Account{}, ErrInvalidCredentials
	}

	newUsername := strings.TrimSpace(input.NewUsername)
	newEmail := normalizeEmail(input.NewEmail)
	newPassword := strings.TrimSpace(input.NewPassword)

	updated := account
	if newUsername != "" && newUsername != account.Username {
		if err := s.checkUsernameFree(ctx, newUsername, account.ID); err != nil {
			return domain.Account{}, err
		}
		updated.Username = newUsername
	}
	if newEmail != "" && newEmail != account.Email {
		if err := s.checkEmailFree(ctx, newEmail, account.ID); err != nil {
			return domain.Account{}, err
		}
		updated.Email = newEmail
	}
	if newPassword != "" {
		hash, err := hashPassword(newPassword)
		if err != nil {
			return domain.Account{}, err
		}
		updated.PasswordHash = hash
	}

	// Una sola fila, un solo UPDATE: el repo vuelve a mapear 23505 si otra
	// registración ganó la carrera entre el check y el write.
	if err := s.accounts.Update(ctx, updated); err != nil {
		return domain.Account{}, err
	}
	return updated, nil
}

// Delete elimina la cuenta. Las cuentas locales reverifican password;
// las federadas se borran con cualquier request autenticado.
func (s *AccountService) Delete(ctx context.Context, account domain.Account, password string) error {
	if s.accounts == nil {
		return errors.New("account service not configured")
	}

	if !account.IsFederated() {
		if !verifyPassword(strings.TrimSpace(password), account.PasswordHash) {
			return ErrInvalidCredentials
		}
	}
	return s.accounts.Delete(ctx, account.ID)
}

func (s *AccountService) checkUsernameFree(ctx context.Context, username, selfID string) error {
	other, err := s.accounts.GetByUsername(ctx, username)
	if err == nil && other.ID != selfID {
		return repository.ErrUsernameTaken
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	return nil
}

func (s *AccountService) checkEmailFree(ctx context.Context, email, selfID string) error {
	other, err := s.accounts.GetByEmail(ctx, email)
	if err == nil && other.ID != selfID {
		return repository.ErrEmailTaken
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
