package db

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"user-analytics/internal/domain"
	"user-analytics/internal/repository"
)

const syntheticUserCount = 1000

var cities = []string{
	"Amsterdam", "Berlin", "Chicago", "Dublin", "Edinburgh",
	"Florence", "Geneva", "Helsinki", "Istanbul", "Jakarta",
	"Kiev", "London", "Madrid", "New York", "Oslo",
	"Paris", "Quebec", "Rome", "Sydney", "Tokyo",
	"Uppsala", "Venice", "Warsaw", "Xi'an", "Yokohama",
	"Zurich",
}

// Seed crea la cuenta admin y el dataset sintético si aún no existen.
func Seed(ctx context.Context, logger *zap.Logger, accounts repository.AccountRepository, users repository.UserRepository) error {
	if _, err := accounts.GetByUsername(ctx, "admin"); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		admin := domain.Account{
			ID:           uuid.NewString(),
			Email:        "admin@example.com",
			Username:     "admin",
			PasswordHash: string(hash),
			CreatedAt:    time.Now().UTC(),
		}
		if err := accounts.Create(ctx, admin); err != nil {
			return err
		}
		logger.Info("seeded admin account")
	}

	n, err := users.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	now := time.Now().UTC()
	rows := make([]domain.User, 0, syntheticUserCount)
	for i := 0; i < syntheticUserCount; i++ {
		rows = append(rows, domain.User{
			Name:     gofakeit.Name(),
			Age:      rand.Intn(53) + 18,
			City:     cities[rand.Intn(len(cities))],
			Salary:   30000 + rand.Float64()*90000,
			JoinDate: now.AddDate(0, 0, -rand.Intn(1096)),
		})
	}
	if err := users.BulkInsert(ctx, rows); err != nil {
		return err
	}
	logger.Info("seeded synthetic users", zap.Int("count", len(rows)))
	return nil
}
