package api

import (
	"github.com/Ayash-Bera/device-advisor/internal/api/handlers"
	"github.com/Ayash-Bera/device-advisor/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type Handlers struct {
	Recommend *handlers.RecommendHandler
	Analytics *handlers.AnalyticsHandler
	Health    *handlers.HealthHandler
}

// NewRouter wires routes and middleware. A nil limiter disables rate
// limiting.
func NewRouter(h Handlers, limiter middleware.Limiter, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		middleware.Metrics(),
		middleware.SecurityHeaders(),
	)

	r.GET("/health", h.Health.HandleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var limited []gin.HandlerFunc
	if limiter != nil {
		limited = append(limited, middleware.RateLimit(limiter, logger))
	}

	r.POST("/recommend", append(limited, h.Recommend.HandleRecommend)...)

	v1 := r.Group("/api/v1", limited...)
	{
		v1.POST("/recommend", h.Recommend.HandleRecommend)
		v1.POST("/feedback", h.Analytics.HandleFeedback)
		v1.GET("/suggestions", h.Analytics.HandleSuggestions)
	}

	return r
}
