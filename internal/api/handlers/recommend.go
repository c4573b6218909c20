package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Ayash-Bera/device-advisor/internal/metrics"
	"github.com/Ayash-Bera/device-advisor/internal/models"
	"github.com/Ayash-Bera/device-advisor/internal/repository"
	"github.com/Ayash-Bera/device-advisor/internal/services"
	"github.com/Ayash-Bera/device-advisor/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
)

const maxStoredQueryLength = 2000

// Advisor is satisfied by *services.AdvisorService.
type Advisor interface {
	Recommend(ctx context.Context, in services.RecommendInput) (*models.RecommendResponse, error)
}

type RecommendHandler struct {
	advisor Advisor
	// repos is nil when analytics are disabled.
	repos   *repository.RepositoryManager
	timeout time.Duration
	logger  *logrus.Logger
}

func NewRecommendHandler(
	advisor Advisor,
	repos *repository.RepositoryManager,
	timeout time.Duration,
	logger *logrus.Logger,
) *RecommendHandler {
	return &RecommendHandler{
		advisor: advisor,
		repos:   repos,
		timeout: timeout,
		logger:  logger,
	}
}

// HandleRecommend answers POST /api/v1/recommend. With
// ?response_format=text only the conversational reply is returned.
func (h *RecommendHandler) HandleRecommend(c *gin.Context) {
	startTime := time.Now()

	var req models.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.RecommendRequests.WithLabelValues("invalid").Inc()
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	input := services.RecommendInput{
		Query:     req.Query,
		Messages:  req.Messages,
		BudgetMin: optionFromPointer(req.BudgetMin),
		BudgetMax: optionFromPointer(req.BudgetMax),
		TopN:      req.TopN,
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	resp, err := h.advisor.Recommend(ctx, input)
	if err != nil {
		h.writeError(c, err)
		return
	}

	responseTime := time.Since(startTime)
	outcome := "ok"
	if resp.UsedFallbackGenerator {
		outcome = "fallback"
	}
	metrics.RecommendRequests.WithLabelValues(outcome).Inc()

	h.logger.WithFields(logrus.Fields{
		"query_id":        resp.QueryID,
		"recommendations": len(resp.Recommendations),
		"nb_hits":         resp.Debug.NbHits,
		"fallback":        resp.UsedFallbackGenerator,
		"response_time":   responseTime.Milliseconds(),
	}).Info("Recommendation completed")

	if h.repos != nil {
		text, _, _ := services.ActiveText(input)
		record := &models.RecommendationQuery{
			QueryRef:            resp.QueryID,
			QueryText:           utils.Truncate(text, maxStoredQueryLength),
			UserSession:         userSession(c),
			DeviceType:          string(resp.Debug.Slots.DeviceType),
			UseCase:             string(resp.Debug.Slots.UseCase),
			OSPreference:        string(resp.Debug.Slots.OS),
			CatalogSource:       resp.Debug.CatalogSource,
			TotalHits:           resp.Debug.NbHits,
			RecommendationCount: len(resp.Recommendations),
			UsedFallback:        resp.UsedFallbackGenerator,
			ResponseTimeMs:      int(responseTime.Milliseconds()),
			RequestedAt:         startTime,
		}
		go h.trackRecommendation(record, responseTime)
	}

	if c.Query("response_format") == "text" {
		c.String(http.StatusOK, resp.Reply)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecommendHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		metrics.RecommendRequests.WithLabelValues("invalid").Inc()
		utils.ErrorResponse(c, http.StatusBadRequest, "Provide a query or a conversation", err)
	case errors.Is(err, models.ErrConfiguration):
		metrics.RecommendRequests.WithLabelValues("error").Inc()
		h.logger.WithError(err).Error("Recommendation failed: service misconfigured")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Service is not configured correctly", err)
	default:
		metrics.RecommendRequests.WithLabelValues("error").Inc()
		h.logger.WithError(err).Error("Recommendation failed")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Recommendation failed", err)
	}
}

func (h *RecommendHandler) trackRecommendation(record *models.RecommendationQuery, responseTime time.Duration) {
	if err := h.repos.Query.Create(record); err != nil {
		h.logger.WithError(err).Error("Failed to track recommendation query")
	}

	if record.QueryText == "" {
		return
	}
	if err := h.repos.PopularQuery.Record(utils.NormalizeQuery(record.QueryText), record.TotalHits, responseTime); err != nil {
		h.logger.WithError(err).Error("Failed to update popular queries")
	}
}

func optionFromPointer(v *float64) mo.Option[float64] {
	if v == nil {
		return mo.None[float64]()
	}
	return mo.Some(*v)
}

// userSession prefers an explicit X-Session-ID and otherwise derives an
// anonymous key from client traits.
func userSession(c *gin.Context) string {
	if session := c.GetHeader("X-Session-ID"); session != "" {
		return utils.Truncate(session, 64)
	}
	return utils.SessionKey(c.ClientIP(), c.GetHeader("User-Agent"), time.Now())
}
