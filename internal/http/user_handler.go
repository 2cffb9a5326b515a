package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-analytics/internal/repository"
)

// UserHandler expone el dataset sintético de usuarios.
type UserHandler struct {
	logger *zap.Logger
	users  repository.UserRepository
}

func NewUserHandler(logger *zap.Logger, users repository.UserRepository) *UserHandler {
	return &UserHandler{
		logger: logger,
		users:  users,
	}
}

// ListUsers maneja POST /users/all.
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Error("list users failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list users"})
		return
	}

	type userResponse struct {
		ID       int64   `json:"id"`
		Name     string  `json:"name"`
		Age      int     `json:"age"`
		City     string  `json:"city"`
		Salary   float64 `json:"salary"`
		JoinDate string  `json:"join_date"`
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{
			ID:       u.ID,
			Name:     u.Name,
			Age:      u.Age,
			City:     u.City,
			Salary:   u.Salary,
			JoinDate: u.JoinDate.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, out)
}
