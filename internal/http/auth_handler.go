package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-analytics/internal/domain"
	"user-analytics/internal/repository"
	"user-analytics/internal/service"
)

// AuthHandler mantiene dependencias para endpoints de autenticación y cuenta.
type AuthHandler struct {
	logger      *zap.Logger
	accountServ *service.AccountService
	oauthServ   *service.OAuthService
	jwtServ     *service.JWTService
}

func NewAuthHandler(logger *zap.Logger, accountServ *service.AccountService, oauthServ *service.OAuthService, jwtServ *service.JWTService) *AuthHandler {
	return &AuthHandler{
		logger:      logger,
		accountServ: accountServ,
		oauthServ:   oauthServ,
		jwtServ:     jwtServ,
	}
}

// Login maneja POST /login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	account, err := h.accountServ.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect username or password"})
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not login"})
		return
	}

	h.respondWithToken(c, account)
}

// Register maneja POST /register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid register request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	account, err := h.accountServ.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if conflict(c, err) {
			return
		}
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		h.logger.Error("register failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not register"})
		return
	}

	h.respondWithToken(c, account)
}

// GoogleLogin maneja GET /login/google.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	url, err := h.oauthServ.AuthURL()
	if err != nil {
		h.logger.Error("google login init failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not initiate google login"})
		return
	}
	c.Redirect(http.StatusFound, url)
}

// GoogleCallback maneja GET /callback/google (flujo redirect).
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")

	account, err := h.oauthServ.Complete(c.Request.Context(), state, code)
	if err != nil {
		if conflict(c, err) {
			return
		}
		if errors.Is(err, service.ErrOAuthState) || errors.Is(err, service.ErrOAuthInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth callback"})
			return
		}
		h.logger.Error("google callback failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not complete google login"})
		return
	}

	h.respondWithToken(c, account)
}

// GoogleTokenLogin maneja POST /callback/google (flujo direct-token).
func (h *AuthHandler) GoogleTokenLogin(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid token login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	account, err := h.oauthServ.DirectLogin(c.Request.Context(), req.Token, req.Email, req.Name)
	if err != nil {
		if errors.Is(err, service.ErrOAuthInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token and email are required"})
			return
		}
		if conflict(c, err) {
			return
		}
		h.logger.Error("token login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not complete google login"})
		return
	}

	h.respondWithToken(c, account)
}

// AccountDetails maneja POST /account/details.
func (h *AuthHandler) AccountDetails(c *gin.Context) {
	account, ok := CurrentAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"username":           account.Username,
		"email":              account.Email,
		"federated_provider": account.FederatedProvider,
	})
}

// AccountUpdate maneja POST /account/update.
func (h *AuthHandler) AccountUpdate(c *gin.Context) {
	account, ok := CurrentAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewUsername     string `json:"new_username"`
		NewEmail        string `json:"new_email"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid account update request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	updated, err := h.accountServ.Update(c.Request.Context(), account, service.UpdateAccountInput{
		CurrentPassword: req.CurrentPassword,
		NewUsername:     req.NewUsername,
		NewEmail:        req.NewEmail,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		if conflict(c, err) {
			return
		}
		switch {
		case errors.Is(err, service.ErrFederatedAccount):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "federated accounts cannot be updated here"})
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect password"})
		default:
			h.logger.Error("account update failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update account"})
		}
		return
	}

	h.respondWithToken(c, updated)
}

// AccountDelete maneja POST /account/delete.
func (h *AuthHandler) AccountDelete(c *gin.Context) {
	account, ok := CurrentAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	// Las cuentas federadas pueden borrar sin body.
	_ = c.ShouldBindJSON(&req)

	if err := h.accountServ.Delete(c.Request.Context(), account, req.Password); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect password"})
			return
		}
		h.logger.Error("account delete failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete account"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "account successfully deleted"})
}

// TestAuth maneja GET /test-auth.
func (h *AuthHandler) TestAuth(c *gin.Context) {
	account, ok := CurrentAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":            "authentication successful",
		"username":           account.Username,
		"federated_provider": account.FederatedProvider,
	})
}

func (h *AuthHandler) respondWithToken(c *gin.Context, account domain.Account) {
	token, err := h.jwtServ.Issue(account.Username)
	if err != nil {
		h.logger.Error("jwt issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(http.StatusOK, token)
}

// conflict responde 409 cuando el error es una violación de unicidad.
func conflict(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, repository.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
	case errors.Is(err, repository.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
	default:
		return false
	}
	return true
}
