package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"user-analytics/internal/domain"
)

// UserRepository define el contrato de persistencia para el dataset sintético.
type UserRepository interface {
	ListAll(ctx context.Context) ([]domain.User, error)
	Count(ctx context.Context) (int64, error)
	BulkInsert(ctx context.Context, users []domain.User) error
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) ListAll(ctx context.Context) ([]domain.User, error) {
	const query = `
		SELECT id, name, age, city, salary, join_date
		FROM users
		ORDER BY id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Age, &u.City, &u.Salary, &u.JoinDate); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *PgUserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *PgUserRepository) BulkInsert(ctx context.Context, users []domain.User) error {
	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"users"},
		[]string{"name", "age", "city", "salary", "join_date"},
		pgx.CopyFromSlice(len(users), func(i int) ([]any, error) {
			u := users[i]
			return []any{u.Name, u.Age, u.City, u.Salary, u.JoinDate}, nil
		}),
	)
	return err
}
