package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"user-analytics/internal/domain"
	"user-analytics/internal/repository"
	"user-analytics/internal/service"
)

const currentAccountKey = "current_account"

// AuthRequired valida el bearer token y resuelve la cuenta del claim sub.
// Un token con firma válida de una cuenta ya eliminada también se rechaza.
func AuthRequired(jwtSvc *service.JWTService, accounts repository.AccountRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtSvc == nil || accounts == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
			c.Abort()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			challenge(c, "missing token")
			return
		}

		token := strings.TrimSpace(header[len("Bearer "):])
		username, err := jwtSvc.ParseSubject(token)
		if err != nil {
			challenge(c, "invalid token")
			return
		}

		account, err := accounts.GetByUsername(c.Request.Context(), username)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				challenge(c, "invalid token")
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not resolve account"})
			c.Abort()
			return
		}

		c.Set(currentAccountKey, account)
		c.Next()
	}
}

func challenge(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
	c.Abort()
}

// CurrentAccount obtiene la cuenta autenticada desde el contexto.
func CurrentAccount(c *gin.Context) (domain.Account, bool) {
	val, ok := c.Get(currentAccountKey)
	if !ok {
		return domain.Account{}, false
	}
	account, ok := val.(domain.Account)
	return account, ok
}
