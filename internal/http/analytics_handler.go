package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-analytics/internal/service"
)

// AnalyticsHandler expone los agregados sobre el dataset sintético.
type AnalyticsHandler struct {
	logger        *zap.Logger
	analyticsServ *service.AnalyticsService
}

func NewAnalyticsHandler(logger *zap.Logger, analyticsServ *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		logger:        logger,
		analyticsServ: analyticsServ,
	}
}

// ByCity maneja POST /analytics/by_city.
func (h *AnalyticsHandler) ByCity(c *gin.Context) {
	result, err := h.analyticsServ.ByCity(c.Request.Context())
	if err != nil {
		h.logger.Error("analytics by city failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not compute statistics"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// ByAgeRange maneja POST /analytics/by_age_range.
func (h *AnalyticsHandler) ByAgeRange(c *gin.Context) {
	result, err := h.analyticsServ.ByAgeRange(c.Request.Context())
	if err != nil {
		h.logger.Error("analytics by age range failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not compute statistics"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// SalaryHistogram maneja POST /analytics/salary_histogram.
func (h *AnalyticsHandler) SalaryHistogram(c *gin.Context) {
	result, err := h.analyticsServ.SalaryHistogram(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoData) {
			c.JSON(http.StatusOK, service.SalaryHistogram{})
			return
		}
		h.logger.Error("salary histogram failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not compute statistics"})
		return
	}
	c.JSON(http.StatusOK, result)
}
