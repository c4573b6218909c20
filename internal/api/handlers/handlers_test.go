package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Ayash-Bera/device-advisor/internal/database"
	"github.com/Ayash-Bera/device-advisor/internal/health"
	"github.com/Ayash-Bera/device-advisor/internal/models"
	"github.com/Ayash-Bera/device-advisor/internal/repository"
	"github.com/Ayash-Bera/device-advisor/internal/services"
	"github.com/Ayash-Bera/device-advisor/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const knownRef = "3f1c1f3e-8a53-4a55-9d55-1f6a1d3c2b10"

type fakeAdvisor struct {
	resp *models.RecommendResponse
	err  error
	got  services.RecommendInput
}

func (f *fakeAdvisor) Recommend(ctx context.Context, in services.RecommendInput) (*models.RecommendResponse, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeStore struct {
	mu       sync.Mutex
	queries  []models.RecommendationQuery
	feedback []models.RecommendationFeedback
	recorded []string
	popular  []models.PopularQuery
	searches int
}

func (s *fakeStore) Create(q *models.RecommendationQuery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, *q)
	return nil
}

func (s *fakeStore) GetByRef(ref string) (*models.RecommendationQuery, error) {
	if ref == knownRef {
		return &models.RecommendationQuery{QueryRef: ref}, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeStore) FallbackRate(time.Time) (float64, error) { return 0, nil }

func (s *fakeStore) Record(queryText string, hits int, responseTime time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorded = append(s.recorded, queryText)
	return nil
}

func (s *fakeStore) Search(fragment string, limit int) ([]models.PopularQuery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches++
	return s.popular, nil
}

func (s *fakeStore) snapshot() ([]models.RecommendationQuery, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.RecommendationQuery(nil), s.queries...), append([]string(nil), s.recorded...)
}

type feedbackStore struct {
	saved []models.RecommendationFeedback
}

func (f *feedbackStore) Create(fb *models.RecommendationFeedback) error {
	f.saved = append(f.saved, *fb)
	return nil
}

func repos(store *fakeStore, fb *feedbackStore) *repository.RepositoryManager {
	return &repository.RepositoryManager{Query: store, Feedback: fb, PopularQuery: store}
}

func sampleResponse() *models.RecommendResponse {
	price := 999.0
	return &models.RecommendResponse{
		QueryID: knownRef,
		Recommendations: []models.RecommendationView{
			{Title: "XPS 13", Price: &price, URL: "https://shop.test/xps", Score: 0.6, Reasons: []string{"light"}, Citations: []string{}},
		},
		ClarifyingQuestions: []string{"Windows or macOS?"},
		Reply:               "The XPS 13 fits.",
		Debug: models.DebugInfo{
			Slots:         models.SlotSet{DeviceType: models.DeviceLaptop},
			NbHits:        12,
			CatalogSource: "algolia",
			Index:         "electronics",
		},
	}
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func recommendRouter(h *RecommendHandler) *gin.Engine {
	r := gin.New()
	r.POST("/recommend", h.HandleRecommend)
	return r
}

func TestHandleRecommend_JSON(t *testing.T) {
	advisor := &fakeAdvisor{resp: sampleResponse()}
	r := recommendRouter(NewRecommendHandler(advisor, nil, time.Second, utils.NewTestLogger()))

	w := post(r, "/recommend", `{"query": "Lightweight laptop", "top_n": 3, "budget_max": 1200}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["used_fallback_generator"])
	assert.Len(t, body["recommendations"], 1)
	debug := body["debug"].(map[string]interface{})
	assert.Equal(t, float64(12), debug["nbHits"])
	assert.Equal(t, "algolia", debug["catalog_source"])
	assert.Nil(t, debug["slots"].(map[string]interface{})["budget_max"])

	assert.Equal(t, "Lightweight laptop", advisor.got.Query)
	assert.Equal(t, 3, advisor.got.TopN)
	assert.Equal(t, mo.Some(1200.0), advisor.got.BudgetMax)
	assert.True(t, advisor.got.BudgetMin.IsAbsent())
}

func TestHandleRecommend_TextMode(t *testing.T) {
	r := recommendRouter(NewRecommendHandler(&fakeAdvisor{resp: sampleResponse()}, nil, time.Second, utils.NewTestLogger()))

	w := post(r, "/recommend?response_format=text", `{"query": "laptop"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "The XPS 13 fits.", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestHandleRecommend_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		code int
	}{
		{name: "malformed json", body: `{"query":`, code: http.StatusBadRequest},
		{name: "bad role", body: `{"messages": [{"role": "robot", "content": "hi"}]}`, code: http.StatusBadRequest},
		{name: "top_n out of range", body: `{"query": "x", "top_n": 50}`, code: http.StatusBadRequest},
		{name: "negative budget", body: `{"query": "x", "budget_min": -1}`, code: http.StatusBadRequest},
		{name: "no text", body: `{}`, err: fmt.Errorf("%w: empty", models.ErrValidation), code: http.StatusBadRequest},
		{name: "configuration", body: `{"query": "x"}`, err: fmt.Errorf("%w: no key", models.ErrConfiguration), code: http.StatusInternalServerError},
		{name: "unexpected", body: `{"query": "x"}`, err: errors.New("boom"), code: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			advisor := &fakeAdvisor{resp: sampleResponse(), err: tt.err}
			r := recommendRouter(NewRecommendHandler(advisor, nil, time.Second, utils.NewTestLogger()))

			w := post(r, "/recommend", tt.body)
			assert.Equal(t, tt.code, w.Code)

			var body utils.APIResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
		})
	}
}

func TestHandleRecommend_TracksAnalytics(t *testing.T) {
	store := &fakeStore{}
	advisor := &fakeAdvisor{resp: sampleResponse()}
	r := recommendRouter(NewRecommendHandler(advisor, repos(store, &feedbackStore{}), time.Second, utils.NewTestLogger()))

	body := `{"messages": [{"role": "user", "content": "Gaming   Laptop"}, {"role": "assistant", "content": "Budget?"}]}`
	require.Equal(t, http.StatusOK, post(r, "/recommend", body).Code)

	assert.Eventually(t, func() bool {
		queries, recorded := store.snapshot()
		return len(queries) == 1 && len(recorded) == 1
	}, time.Second, 10*time.Millisecond)

	queries, recorded := store.snapshot()
	assert.Equal(t, knownRef, queries[0].QueryRef)
	assert.Equal(t, "Gaming   Laptop", queries[0].QueryText)
	assert.Equal(t, "laptop", queries[0].DeviceType)
	assert.Equal(t, 12, queries[0].TotalHits)
	assert.Equal(t, 1, queries[0].RecommendationCount)
	assert.NotEmpty(t, queries[0].UserSession)
	assert.Equal(t, []string{"gaming laptop"}, recorded)
}

func analyticsRouter(h *AnalyticsHandler) *gin.Engine {
	r := gin.New()
	r.POST("/feedback", h.HandleFeedback)
	r.GET("/suggestions", h.HandleSuggestions)
	return r
}

func TestHandleFeedback(t *testing.T) {
	fb := &feedbackStore{}
	r := analyticsRouter(NewAnalyticsHandler(repos(&fakeStore{}, fb), database.NewCache(nil, utils.NewTestLogger()), utils.NewTestLogger()))

	w := post(r, "/feedback", fmt.Sprintf(`{"query_id": %q, "feedback_type": "helpful", "feedback_text": "spot on"}`, knownRef))
	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, fb.saved, 1)
	assert.Equal(t, "helpful", fb.saved[0].FeedbackType)
	assert.Equal(t, knownRef, fb.saved[0].QueryRef)

	w = post(r, "/feedback", `{"query_id": "8d0c2c4e-4b1f-4e2a-9b7c-7f5e0d6a1c22", "feedback_type": "helpful"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = post(r, "/feedback", fmt.Sprintf(`{"query_id": %q, "feedback_type": "meh"}`, knownRef))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(r, "/feedback", `{"query_id": "not-a-uuid", "feedback_type": "helpful"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyticsDisabled(t *testing.T) {
	r := analyticsRouter(NewAnalyticsHandler(nil, nil, utils.NewTestLogger()))

	w := post(r, "/feedback", fmt.Sprintf(`{"query_id": %q, "feedback_type": "helpful"}`, knownRef))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/suggestions?q=laptop", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleSuggestions(t *testing.T) {
	store := &fakeStore{popular: []models.PopularQuery{{QueryText: "gaming laptop", RequestCount: 9}}}
	r := analyticsRouter(NewAnalyticsHandler(repos(store, &feedbackStore{}), database.NewCache(nil, utils.NewTestLogger()), utils.NewTestLogger()))

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/suggestions?q=Laptop&limit=50")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool                  `json:"success"`
		Data    []models.PopularQuery `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "gaming laptop", body.Data[0].QueryText)

	assert.Equal(t, http.StatusBadRequest, get("/suggestions?q=%20").Code)
}

func TestHandleHealth(t *testing.T) {
	checker := health.NewHealthChecker([]health.Check{{
		Name:     "retriever",
		Critical: true,
		Probe:    func(context.Context) error { return errors.New("index missing") },
	}}, nil, utils.NewTestLogger())

	r := gin.New()
	r.GET("/health", NewHealthHandler(checker).HandleHealth)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"unhealthy"`)
}
