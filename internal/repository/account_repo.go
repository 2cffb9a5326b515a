package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"user-analytics/internal/domain"
)

// Errores de unicidad que el resto del sistema traduce a Conflict.
var (
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")
)

// AccountRepository define el contrato de persistencia para cuentas.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByUsername(ctx context.Context, username string) (domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	GetByFederated(ctx context.Context, provider, subject string) (domain.Account, error)
	Update(ctx context.Context, account domain.Account) error
	Delete(ctx context.Context, id string) error
}

// PgAccountRepository implementa AccountRepository usando pgxpool.
type PgAccountRepository struct {
	pool *pgxpool.Pool
}

func NewPgAccountRepository(pool *pgxpool.Pool) *PgAccountRepository {
	return &PgAccountRepository{pool: pool}
}

const accountColumns = `
	id, email, username,
	COALESCE(password_hash, ''),
	COALESCE(federated_subject, ''),
	COALESCE(federated_provider, ''),
	created_at
`

func (r *PgAccountRepository) Create(ctx context.Context, account domain.Account) error {
	const query = `
		INSERT INTO accounts (id, email, username, password_hash, federated_subject, federated_provider, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7)
	`
	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.Email,
		account.Username,
		account.PasswordHash,
		account.FederatedSubject,
		account.FederatedProvider,
		account.CreatedAt,
	)
	return mapUniqueViolation(err)
}

func (r *PgAccountRepository) GetByUsername(ctx context.Context, username string) (domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	return r.scanOne(ctx, query, username)
}

func (r *PgAccountRepository) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return r.scanOne(ctx, query, email)
}

func (r *PgAccountRepository) GetByFederated(ctx context.Context, provider, subject string) (domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE federated_provider = $1 AND federated_subject = $2`
	return r.scanOne(ctx, query, provider, subject)
}

func (r *PgAccountRepository) Update(ctx context.Context, account domain.Account) error {
	const query = `
		UPDATE accounts
		SET email = $2, username = $3, password_hash = NULLIF($4, '')
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.Email,
		account.Username,
		account.PasswordHash,
	)
	return mapUniqueViolation(err)
}

func (r *PgAccountRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM accounts WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *PgAccountRepository) scanOne(ctx context.Context, query string, args ...any) (domain.Account, error) {
	var a domain.Account
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&a.ID,
		&a.Email,
		&a.Username,
		&a.PasswordHash,
		&a.FederatedSubject,
		&a.FederatedProvider,
		&a.CreatedAt,
	)
	if err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

// mapUniqueViolation traduce violaciones 23505 al error de unicidad correspondiente.
// La verificación existe-luego-inserta queda atómica: los índices únicos deciden.
func mapUniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch {
		case strings.Contains(pgErr.ConstraintName, "accounts_username_key"):
			return ErrUsernameTaken
		case strings.Contains(pgErr.ConstraintName, "accounts_email_key"):
			return ErrEmailTaken
		}
	}
	return err
}
