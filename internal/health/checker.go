package health

import (
	"context"
	"sync"
	"time"

	"github.com/Ayash-Bera/device-advisor/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Check probes one dependency.
type Check struct {
	Name string
	// Critical checks make the service unhealthy when they fail; others
	// only degrade it.
	Critical bool
	Probe    func(ctx context.Context) error
}

// ServiceHealth represents the health status of a service
type ServiceHealth struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	ResponseTime int    `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
	LastChecked  string `json:"last_checked"`
}

// OverallHealth represents the overall system health
type OverallHealth struct {
	Status       string          `json:"status"`
	Services     []ServiceHealth `json:"services"`
	Uptime       string          `json:"uptime"`
	FallbackRate *float64        `json:"fallback_rate_1h,omitempty"`
}

// HealthChecker manages health checks for all services
type HealthChecker struct {
	checks    []Check
	queries   models.RecommendationQueryRepository
	logger    *logrus.Logger
	timeout   time.Duration
	startTime time.Time
}

// NewHealthChecker takes an optional query repository; when set the
// report includes the last hour's fallback rate.
func NewHealthChecker(checks []Check, queries models.RecommendationQueryRepository, logger *logrus.Logger) *HealthChecker {
	return &HealthChecker{
		checks:    checks,
		queries:   queries,
		logger:    logger,
		timeout:   5 * time.Second,
		startTime: time.Now(),
	}
}

func (h *HealthChecker) runCheck(ctx context.Context, check Check) ServiceHealth {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := check.Probe(ctx)
	responseTime := int(time.Since(start).Milliseconds())

	status := StatusHealthy
	errorMsg := ""
	if err != nil {
		status = StatusDegraded
		if check.Critical {
			status = StatusUnhealthy
		}
		errorMsg = err.Error()
		h.logger.WithError(err).WithField("service", check.Name).Error("Health check failed")
	}

	return ServiceHealth{
		Name:         check.Name,
		Status:       status,
		ResponseTime: responseTime,
		Error:        errorMsg,
		LastChecked:  time.Now().Format(time.RFC3339),
	}
}

// CheckAll performs health checks on all services concurrently
func (h *HealthChecker) CheckAll(ctx context.Context) OverallHealth {
	services := make([]ServiceHealth, len(h.checks))

	var wg sync.WaitGroup
	for i, check := range h.checks {
		wg.Add(1)
		go func(i int, check Check) {
			defer wg.Done()
			services[i] = h.runCheck(ctx, check)
		}(i, check)
	}
	wg.Wait()

	overallStatus := StatusHealthy
	for _, service := range services {
		if service.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
			break
		}
		if service.Status == StatusDegraded {
			overallStatus = StatusDegraded
		}
	}

	report := OverallHealth{
		Status:   overallStatus,
		Services: services,
		Uptime:   time.Since(h.startTime).Round(time.Second).String(),
	}

	if h.queries != nil {
		rate, err := h.queries.FallbackRate(time.Now().Add(-time.Hour))
		if err != nil {
			h.logger.WithError(err).Warn("Failed to compute fallback rate")
		} else {
			report.FallbackRate = &rate
		}
	}

	return report
}
