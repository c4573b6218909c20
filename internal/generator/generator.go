// Package generator asks a language model for structured
// recommendations and degrades to deterministic replies when the model
// is unreachable or its output is unusable.
package generator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Ayash-Bera/device-advisor/internal/config"
	"github.com/Ayash-Bera/device-advisor/internal/metrics"
	"github.com/Ayash-Bera/device-advisor/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	maxRecommendations = 5
	maxReplyQuestions  = 3

	ProviderFallbackQuestion = "Could you clarify your requirements or try again later?"
	ParseFallbackQuestion    = "Could you provide more details to help me find the right device?"
)

type Generator struct {
	client      ChatClient
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	logger      *logrus.Logger
}

// New fails with models.ErrConfiguration when no API key is configured.
func New(cfg config.LLMConfig, client ChatClient, logger *logrus.Logger) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: language model API key is not set", models.ErrConfiguration)
	}
	if client == nil {
		client = NewOpenAIClient(cfg, logger)
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}

	return &Generator{
		client:      client,
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		logger:      logger,
	}, nil
}

// Generate never returns an error for provider or parse failures; those
// produce a fallback outcome. Only a missing credential is an error.
func (g *Generator) Generate(ctx context.Context, userText string, slots models.SlotSet, topHits []models.Candidate, history []models.ConversationTurn) (models.GenerationOutcome, error) {
	if g == nil || g.apiKey == "" {
		return models.GenerationOutcome{}, fmt.Errorf("%w: language model API key is not set", models.ErrConfiguration)
	}

	prompt, shown := BuildPrompt(userText, slots, topHits, history)
	if shown < len(topHits) && shown < promptCandidates {
		g.logger.WithField("candidates", shown).Warn("Prompt too long, reduced candidate list")
	}

	start := time.Now()
	text, err := g.client.ChatCompletion(ctx, ChatRequest{
		Model: g.model,
		Messages: []ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	metrics.GenerationDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			g.logger.WithError(err).Debug("Generation cancelled by caller")
		} else {
			g.logger.WithError(err).Error("Language model call failed")
		}
		metrics.GenerationFallbacks.WithLabelValues("provider").Inc()
		return ProviderFallback(), nil
	}

	out, reply, err := ParseOutput(text)
	if err != nil {
		g.logger.WithError(err).WithField("output_length", len(text)).Error("Failed to parse language model output")
		metrics.GenerationFallbacks.WithLabelValues("parse").Inc()
		return ParseFallback(userText), nil
	}

	limit := maxRecommendations
	if len(topHits) < limit {
		limit = len(topHits)
	}
	if len(out.Recommendations) > limit {
		out.Recommendations = out.Recommendations[:limit]
	}
	if out.Recommendations == nil {
		out.Recommendations = []models.Recommendation{}
	}
	if out.ClarifyingQuestions == nil {
		out.ClarifyingQuestions = []string{}
	}

	if reply == "" {
		reply = SynthesizeReply(userText, out)
	}

	g.logger.WithFields(logrus.Fields{
		"recommendations": len(out.Recommendations),
		"questions":       len(out.ClarifyingQuestions),
	}).Info("Generation completed")

	return models.GenerationOutcome{
		Output:              out,
		UsedFallback:        false,
		ConversationalReply: reply,
	}, nil
}

func ProviderFallback() models.GenerationOutcome {
	return models.GenerationOutcome{
		Output: models.GenerationOutput{
			Recommendations:     []models.Recommendation{},
			ClarifyingQuestions: []string{ProviderFallbackQuestion},
		},
		UsedFallback: true,
		ConversationalReply: "Sorry, I ran into an issue connecting to the recommendation engine. " +
			"Could you clarify your requirements, like " + ProviderFallbackQuestion,
	}
}

func ParseFallback(userText string) models.GenerationOutcome {
	return models.GenerationOutcome{
		Output: models.GenerationOutput{
			Recommendations:     []models.Recommendation{},
			ClarifyingQuestions: []string{ParseFallbackQuestion},
		},
		UsedFallback: true,
		ConversationalReply: fmt.Sprintf("Sorry, I couldn't process the recommendations properly for '%s'. "+
			"Could you provide more details, like %s", userText, ParseFallbackQuestion),
	}
}

// SynthesizeReply builds a reply when the model sent JSON only.
func SynthesizeReply(userText string, out models.GenerationOutput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Got it! Based on your request for '%s', here are my recommendations:\n", userText)

	recs := out.Recommendations
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	for _, rec := range recs {
		fmt.Fprintf(&b, "- %s ($%s): %s\n", rec.Title, formatPrice(rec.Price), strings.Join(rec.Reasons, "; "))
	}

	if len(out.ClarifyingQuestions) > 0 {
		questions := out.ClarifyingQuestions
		if len(questions) > maxReplyQuestions {
			questions = questions[:maxReplyQuestions]
		}
		b.WriteString("To make these suggestions even better: ")
		b.WriteString(strings.Join(questions, " "))
	}

	return b.String()
}

func formatPrice(price *float64) string {
	if price == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*price, 'f', -1, 64)
}
