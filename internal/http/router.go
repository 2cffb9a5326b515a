package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-analytics/internal/repository"
	"user-analytics/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	allowedOrigins []string,
	jwtSvc *service.JWTService,
	accounts repository.AccountRepository,
	authH *AuthHandler,
	userH *UserHandler,
	analyticsH *AnalyticsHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y CORS.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Accept", "Authorization", "Origin", "X-Requested-With", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           time.Hour,
	}))

	// Rutas públicas.
	r.POST("/login", authH.Login)
	r.POST("/register", authH.Register)
	r.GET("/login/google", authH.GoogleLogin)
	r.GET("/callback/google", authH.GoogleCallback)
	r.POST("/callback/google", authH.GoogleTokenLogin)

	// Rutas protegidas por bearer token.
	protected := r.Group("/", AuthRequired(jwtSvc, accounts))
	protected.POST("/account/details", authH.AccountDetails)
	protected.POST("/account/update", authH.AccountUpdate)
	protected.POST("/account/delete", authH.AccountDelete)
	protected.GET("/test-auth", authH.TestAuth)
	protected.POST("/users/all", userH.ListUsers)
	protected.POST("/analytics/by_city", analyticsH.ByCity)
	protected.POST("/analytics/by_age_range", analyticsH.ByAgeRange)
	protected.POST("/analytics/salary_histogram", analyticsH.SalaryHistogram)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
