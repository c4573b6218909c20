package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Ayash-Bera/device-advisor/internal/database"
	"github.com/Ayash-Bera/device-advisor/internal/models"
	"github.com/Ayash-Bera/device-advisor/internal/repository"
	"github.com/Ayash-Bera/device-advisor/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultSuggestionLimit = 5
	maxSuggestionLimit     = 10
	suggestionsTTL         = time.Minute
)

// AnalyticsHandler serves feedback and suggestions. Both answer 503
// when no analytics database is configured.
type AnalyticsHandler struct {
	repos  *repository.RepositoryManager
	cache  *database.Cache
	logger *logrus.Logger
}

func NewAnalyticsHandler(repos *repository.RepositoryManager, cache *database.Cache, logger *logrus.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		repos:  repos,
		cache:  cache,
		logger: logger,
	}
}

// HandleFeedback processes user feedback on a served recommendation
func (h *AnalyticsHandler) HandleFeedback(c *gin.Context) {
	if h.repos == nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Analytics are disabled", nil)
		return
	}

	var req models.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid feedback format", err)
		return
	}

	if _, err := h.repos.Query.GetByRef(req.QueryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, http.StatusNotFound, "Unknown query_id", nil)
			return
		}
		h.logger.WithError(err).Error("Failed to look up recommendation query")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to save feedback", err)
		return
	}

	feedback := &models.RecommendationFeedback{
		QueryRef:     req.QueryID,
		FeedbackType: req.FeedbackType,
		FeedbackText: req.FeedbackText,
		UserSession:  userSession(c),
	}

	if err := h.repos.Feedback.Create(feedback); err != nil {
		h.logger.WithError(err).Error("Failed to save feedback")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to save feedback", err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"query_id":      req.QueryID,
		"feedback_type": req.FeedbackType,
	}).Info("Feedback recorded")

	utils.SuccessResponse(c, http.StatusCreated, "Feedback recorded", nil)
}

// HandleSuggestions returns popular queries containing q
func (h *AnalyticsHandler) HandleSuggestions(c *gin.Context) {
	if h.repos == nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "Analytics are disabled", nil)
		return
	}

	fragment := utils.NormalizeQuery(c.Query("q"))
	if fragment == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Query parameter 'q' is required", nil)
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultSuggestionLimit)))
	if err != nil || limit <= 0 {
		limit = defaultSuggestionLimit
	}
	if limit > maxSuggestionLimit {
		limit = maxSuggestionLimit
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if cached, err := h.cache.GetCachedSuggestions(ctx, fragment, limit); err == nil {
		h.logger.Debug("Suggestions served from cache")
		utils.SuccessResponse(c, http.StatusOK, "Suggestions retrieved", cached)
		return
	} else if !errors.Is(err, database.ErrCacheMiss) {
		h.logger.WithError(err).Warn("Suggestion cache unavailable")
	}

	suggestions, err := h.repos.PopularQuery.Search(fragment, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get suggestions")
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to get suggestions", err)
		return
	}
	if suggestions == nil {
		suggestions = []models.PopularQuery{}
	}

	if err := h.cache.CacheSuggestions(ctx, fragment, limit, suggestions, suggestionsTTL); err != nil {
		h.logger.WithError(err).Warn("Failed to cache suggestions")
	}

	utils.SuccessResponse(c, http.StatusOK, "Suggestions retrieved", suggestions)
}
