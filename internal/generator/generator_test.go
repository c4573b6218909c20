package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Ayash-Bera/device-advisor/internal/config"
	"github.com/Ayash-Bera/device-advisor/internal/metrics"
	"github.com/Ayash-Bera/device-advisor/internal/models"
	"github.com/Ayash-Bera/device-advisor/pkg/utils"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	reply string
	err   error
	last  ChatRequest
	calls int
}

func (f *fakeChat) ChatCompletion(ctx context.Context, req ChatRequest) (string, error) {
	f.calls++
	f.last = req
	return f.reply, f.err
}

func testConfig() config.LLMConfig {
	return config.LLMConfig{APIKey: "sk-test", Model: "gpt-4o-mini", Temperature: 0.7, MaxTokens: 1000}
}

func newGenerator(t *testing.T, chat ChatClient) *Generator {
	t.Helper()
	g, err := New(testConfig(), chat, utils.NewTestLogger())
	require.NoError(t, err)
	return g
}

func candidates(n int) []models.Candidate {
	out := make([]models.Candidate, n)
	for i := range out {
		p := float64(500 + i*100)
		out[i] = models.Candidate{Title: fmt.Sprintf("Device %d", i), Price: &p, URL: fmt.Sprintf("https://shop.test/%d", i)}
	}
	return out
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(config.LLMConfig{}, &fakeChat{}, utils.NewTestLogger())
	assert.True(t, errors.Is(err, models.ErrConfiguration))

	var g *Generator
	_, err = g.Generate(context.Background(), "laptop", models.SlotSet{}, nil, nil)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestGenerate_Success(t *testing.T) {
	chat := &fakeChat{reply: fencedOutput}
	g := newGenerator(t, chat)

	outcome, err := g.Generate(context.Background(), "laptop for coding", models.SlotSet{}, candidates(3), nil)
	require.NoError(t, err)

	assert.False(t, outcome.UsedFallback)
	assert.Equal(t, "The XPS 13 is a great pick for coding.", outcome.ConversationalReply)
	require.Len(t, outcome.Output.Recommendations, 1)

	require.Len(t, chat.last.Messages, 2)
	assert.Equal(t, "system", chat.last.Messages[0].Role)
	assert.Equal(t, systemPrompt, chat.last.Messages[0].Content)
	assert.Equal(t, "gpt-4o-mini", chat.last.Model)
	assert.Equal(t, 1000, chat.last.MaxTokens)
	assert.Contains(t, chat.last.Messages[1].Content, "User query: laptop for coding")
	assert.Contains(t, chat.last.Messages[1].Content, "Device 2")
}

func TestGenerate_SynthesizesReplyAndCapsRecommendations(t *testing.T) {
	recs := make([]map[string]interface{}, 0, 7)
	for i := 0; i < 7; i++ {
		recs = append(recs, map[string]interface{}{
			"title":   fmt.Sprintf("Pick %d", i),
			"price":   100 + i,
			"url":     "https://shop.test",
			"reasons": []string{"fast", "light"},
		})
	}
	payload, err := json.Marshal(map[string]interface{}{
		"recommendations":      recs,
		"clarifying_questions": []string{"Q1?", "Q2?", "Q3?", "Q4?"},
	})
	require.NoError(t, err)

	g := newGenerator(t, &fakeChat{reply: string(payload)})

	outcome, err := g.Generate(context.Background(), "something portable", models.SlotSet{}, candidates(6), nil)
	require.NoError(t, err)

	assert.False(t, outcome.UsedFallback)
	assert.Len(t, outcome.Output.Recommendations, 5)
	assert.True(t, strings.HasPrefix(outcome.ConversationalReply, "Got it! Based on your request for 'something portable', here are my recommendations:\n"))
	assert.Contains(t, outcome.ConversationalReply, "- Pick 0 ($100): fast; light\n")
	assert.Contains(t, outcome.ConversationalReply, "To make these suggestions even better: Q1? Q2? Q3?")
	assert.NotContains(t, outcome.ConversationalReply, "Q4?")
}

func TestGenerate_CapsToCandidatesSupplied(t *testing.T) {
	payload := `{"recommendations": [{"title": "A"}, {"title": "B"}, {"title": "C"}], "clarifying_questions": []}`
	g := newGenerator(t, &fakeChat{reply: payload})

	outcome, err := g.Generate(context.Background(), "tablet", models.SlotSet{}, candidates(2), nil)
	require.NoError(t, err)
	assert.Len(t, outcome.Output.Recommendations, 2)
}

func TestGenerate_ProviderFallback(t *testing.T) {
	g := newGenerator(t, &fakeChat{err: fmt.Errorf("%w: status 500", models.ErrGenerationProvider)})
	before := testutil.ToFloat64(metrics.GenerationFallbacks.WithLabelValues("provider"))

	outcome, err := g.Generate(context.Background(), "phone", models.SlotSet{}, candidates(3), nil)
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.GenerationFallbacks.WithLabelValues("provider")))

	assert.True(t, outcome.UsedFallback)
	assert.Empty(t, outcome.Output.Recommendations)
	assert.Equal(t, []string{ProviderFallbackQuestion}, outcome.Output.ClarifyingQuestions)
	assert.Equal(t, "Sorry, I ran into an issue connecting to the recommendation engine. Could you clarify your requirements, like Could you clarify your requirements or try again later?", outcome.ConversationalReply)
}

func TestGenerate_ParseFallback(t *testing.T) {
	g := newGenerator(t, &fakeChat{reply: "I recommend the Pixel 8!"})

	outcome, err := g.Generate(context.Background(), "camera phone", models.SlotSet{}, candidates(3), nil)
	require.NoError(t, err)

	assert.True(t, outcome.UsedFallback)
	assert.Empty(t, outcome.Output.Recommendations)
	assert.Equal(t, []string{ParseFallbackQuestion}, outcome.Output.ClarifyingQuestions)
	assert.Equal(t, "Sorry, I couldn't process the recommendations properly for 'camera phone'. Could you provide more details, like Could you provide more details to help me find the right device?", outcome.ConversationalReply)
}

func TestGenerate_EmptyCandidates(t *testing.T) {
	chat := &fakeChat{reply: `{"recommendations": [{"title": "Invented"}], "clarifying_questions": ["Which OS?"]}`}
	g := newGenerator(t, chat)

	outcome, err := g.Generate(context.Background(), "something", models.SlotSet{}, nil, nil)
	require.NoError(t, err)

	assert.False(t, outcome.UsedFallback)
	assert.Empty(t, outcome.Output.Recommendations)
	assert.Equal(t, []string{"Which OS?"}, outcome.Output.ClarifyingQuestions)
	assert.Contains(t, chat.last.Messages[1].Content, "[]")
}

func TestBuildPrompt_HistoryAndReduction(t *testing.T) {
	history := make([]models.ConversationTurn, 0, 7)
	for i := 0; i < 7; i++ {
		history = append(history, models.ConversationTurn{Role: models.RoleUser, Content: fmt.Sprintf("turn-%d", i)})
	}

	prompt, shown := BuildPrompt("laptop", models.SlotSet{EducationTerm: "oled"}, candidates(12), history)
	assert.Equal(t, 10, shown)
	assert.NotContains(t, prompt, "turn-1\n")
	assert.Contains(t, prompt, "user: turn-2\nuser: turn-3")
	assert.Contains(t, prompt, "user: turn-6")
	assert.Contains(t, prompt, "The user asked about: oled")

	big := candidates(12)
	for i := range big {
		big[i].Description = strings.Repeat("x", 1500)
	}
	prompt, shown = BuildPrompt("laptop", models.SlotSet{}, big, nil)
	assert.Equal(t, 5, shown)
	assert.NotContains(t, prompt, "Device 5")
}

func TestOpenAIClient_ChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.InDelta(t, 0.7, req.Temperature, 1e-9)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "  hello  "}}]}`))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.BaseURL = server.URL
	client := NewOpenAIClient(cfg, utils.NewTestLogger())

	text, err := client.ChatCompletion(context.Background(), ChatRequest{Model: "gpt-4o-mini", Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestOpenAIClient_Failures(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"no choices": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices": []}`))
		},
		"garbage": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		},
	}

	for name, handler := range tests {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(handler)
			defer server.Close()

			cfg := testConfig()
			cfg.BaseURL = server.URL
			_, err := NewOpenAIClient(cfg, utils.NewTestLogger()).ChatCompletion(context.Background(), ChatRequest{})
			assert.True(t, errors.Is(err, models.ErrGenerationProvider))
		})
	}
}
