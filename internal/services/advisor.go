package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Ayash-Bera/device-advisor/internal/config"
	"github.com/Ayash-Bera/device-advisor/internal/intent"
	"github.com/Ayash-Bera/device-advisor/internal/models"
	"github.com/Ayash-Bera/device-advisor/internal/ranker"
	"github.com/Ayash-Bera/device-advisor/internal/retriever"
	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
)

const (
	maxClarifyingQuestions = 3
	minGenerationHits      = 3
)

// Generator is satisfied by *generator.Generator.
type Generator interface {
	Generate(ctx context.Context, userText string, slots models.SlotSet, topHits []models.Candidate, history []models.ConversationTurn) (models.GenerationOutcome, error)
}

type RecommendInput struct {
	Query     string
	Messages  []models.ConversationTurn
	BudgetMin mo.Option[float64]
	BudgetMax mo.Option[float64]
	TopN      int
}

// AdvisorService runs one recommendation request end to end.
type AdvisorService struct {
	retriever retriever.Retriever
	generator Generator
	pipeline  config.PipelineConfig
	logger    *logrus.Logger
}

func NewAdvisorService(
	r retriever.Retriever,
	g Generator,
	pipeline config.PipelineConfig,
	logger *logrus.Logger,
) *AdvisorService {
	return &AdvisorService{
		retriever: r,
		generator: g,
		pipeline:  pipeline,
		logger:    logger,
	}
}

// Recommend fails only with models.ErrValidation or
// models.ErrConfiguration. Retrieval and generation problems degrade
// the response instead.
func (s *AdvisorService) Recommend(ctx context.Context, in RecommendInput) (*models.RecommendResponse, error) {
	userText, history, err := ActiveText(in)
	if err != nil {
		return nil, err
	}

	topN := in.TopN
	if topN <= 0 {
		topN = s.pipeline.ReturnTopN
	}

	slots := intent.ExtractSlots(userText).WithBudget(in.BudgetMin, in.BudgetMax)
	filters := models.FiltersFromSlots(slots)

	s.logger.WithFields(logrus.Fields{
		"device_type": slots.DeviceType,
		"use_case":    slots.UseCase,
		"os":          slots.OS,
		"history":     len(history),
	}).Debug("Extracted slots")

	debug := models.DebugInfo{
		Slots:         slots,
		Filters:       filters,
		CatalogSource: s.retriever.Name(),
		UsedLocalJSON: s.retriever.Name() == retriever.ProviderLocal,
		Index:         s.retriever.Index(),
	}

	var hits []models.Candidate
	start := time.Now()
	result, err := s.retriever.Search(ctx, userText, filters, s.pipeline.MaxHits)
	switch {
	case err == nil:
		hits = result.Hits
		debug.NbHits = result.NbHits
	case errors.Is(err, models.ErrConfiguration):
		return nil, err
	default:
		s.logger.WithError(err).WithField("backend", s.retriever.Name()).Error("Retrieval failed, continuing without candidates")
		debug.RetrievalError = err.Error()
	}

	s.logger.WithFields(logrus.Fields{
		"backend":  s.retriever.Name(),
		"hits":     len(hits),
		"nb_hits":  debug.NbHits,
		"duration": time.Since(start).Milliseconds(),
	}).Info("Retrieval completed")

	ranked := ranker.Rerank(hits, slots, userText, s.pipeline.RerankTopK)
	topHits := ranked[:generationWindow(len(ranked), s.pipeline.RerankTopK, topN)]

	outcome, err := s.generator.Generate(ctx, userText, slots, topHits, history)
	if err != nil {
		return nil, err
	}

	questions := outcome.Output.ClarifyingQuestions
	if len(questions) == 0 {
		questions = intent.ProposeQuestions(slots)
	}
	if len(questions) > maxClarifyingQuestions {
		questions = questions[:maxClarifyingQuestions]
	}
	if questions == nil {
		questions = []string{}
	}

	return &models.RecommendResponse{
		QueryID:               uuid.NewString(),
		Recommendations:       attachScores(outcome.Output.Recommendations, topHits, topN),
		ClarifyingQuestions:   questions,
		UsedFallbackGenerator: outcome.UsedFallback,
		Reply:                 outcome.ConversationalReply,
		Debug:                 debug,
	}, nil
}

// ActiveText picks the text to act on. An explicit query ignores the
// conversation; otherwise the last user turn is used and the whole
// conversation becomes history.
func ActiveText(in RecommendInput) (string, []models.ConversationTurn, error) {
	if q := strings.TrimSpace(in.Query); q != "" {
		return q, nil, nil
	}
	for i := len(in.Messages) - 1; i >= 0; i-- {
		turn := in.Messages[i]
		if turn.Role == models.RoleUser && strings.TrimSpace(turn.Content) != "" {
			return strings.TrimSpace(turn.Content), in.Messages, nil
		}
	}
	return "", nil, fmt.Errorf("%w: provide a query or a conversation with a user message", models.ErrValidation)
}

// generationWindow is how many ranked hits the generator sees:
// max(3, min(topK, topN*3)), never more than are available.
func generationWindow(available, topK, topN int) int {
	if topK <= 0 {
		topK = available
	}
	n := topN * 3
	if topK < n {
		n = topK
	}
	if n < minGenerationHits {
		n = minGenerationHits
	}
	if n > available {
		n = available
	}
	return n
}

func attachScores(recs []models.Recommendation, hits []models.Candidate, topN int) []models.RecommendationView {
	if topN > 0 && len(recs) > topN {
		recs = recs[:topN]
	}

	views := make([]models.RecommendationView, 0, len(recs))
	for _, rec := range recs {
		reasons := rec.Reasons
		if reasons == nil {
			reasons = []string{}
		}
		citations := rec.Citations
		if citations == nil {
			citations = []string{}
		}
		views = append(views, models.RecommendationView{
			Title:     rec.Title,
			Price:     rec.Price,
			URL:       rec.URL,
			Score:     matchScore(rec, hits),
			Reasons:   reasons,
			Citations: citations,
		})
	}
	return views
}

func matchScore(rec models.Recommendation, hits []models.Candidate) float64 {
	if rec.URL != "" {
		for _, h := range hits {
			if h.URL == rec.URL {
				return h.AdvisorScore
			}
		}
	}
	if rec.Title != "" {
		for _, h := range hits {
			if h.DisplayTitle() == rec.Title {
				return h.AdvisorScore
			}
		}
	}
	return 0
}
