package handlers

import (
	"net/http"

	"github.com/Ayash-Bera/device-advisor/internal/health"
	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	checker *health.HealthChecker
}

func NewHealthHandler(checker *health.HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// HandleHealth answers 503 only when a critical dependency is down.
func (h *HealthHandler) HandleHealth(c *gin.Context) {
	report := h.checker.CheckAll(c.Request.Context())

	code := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, report)
}
