package retriever

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Ayash-Bera/device-advisor/internal/config"
	"github.com/Ayash-Bera/device-advisor/internal/metrics"
	"github.com/Ayash-Bera/device-advisor/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var attributesToRetrieve = []string{
	"name", "title", "price", "brand", "categories", "image", "url", "objectID",
	"description", "shortDescription", "rating", "weight", "os", "ram",
	"storage", "camera", "cpu", "gpu",
}

const maxBudgetSentinel = 1e9

// AlgoliaClient queries a hosted Algolia index over its REST API.
type AlgoliaClient struct {
	baseURL     string
	appID       string
	apiKey      string
	index       string
	hitsPerPage int
	timeout     time.Duration
	httpClient  *http.Client
	limiter     *rate.Limiter
	retry       RetryPolicy
	logger      *logrus.Logger
}

func NewAlgoliaClient(cfg config.SearchConfig, logger *logrus.Logger, opts ...Option) *AlgoliaClient {
	o := buildOptions(opts)

	baseURL := cfg.Algolia.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s-dsn.algolia.net", cfg.Algolia.AppID)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 6 * time.Second
	}

	return &AlgoliaClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		appID:       cfg.Algolia.AppID,
		apiKey:      cfg.Algolia.APIKey,
		index:       cfg.Algolia.IndexName,
		hitsPerPage: cfg.HitsPerPage,
		timeout:     timeout,
		httpClient:  o.httpClient,
		limiter:     newLimiter(cfg.RatePerSecond),
		retry:       o.retry,
		logger:      logger,
	}
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func (c *AlgoliaClient) Name() string  { return ProviderAlgolia }
func (c *AlgoliaClient) Index() string { return c.index }

type algoliaResponse struct {
	Hits   []models.Candidate `json:"hits"`
	NbHits int                `json:"nbHits"`
}

func (c *AlgoliaClient) Search(ctx context.Context, query string, filters models.Filters, hitsPerPage int) (*models.SearchResult, error) {
	start := time.Now()
	defer func() {
		metrics.RetrievalDuration.WithLabelValues(ProviderAlgolia).Observe(time.Since(start).Seconds())
	}()

	params := EncodeParams(query, filters, pageSize(hitsPerPage, c.hitsPerPage))
	payload, err := json.Marshal(map[string]string{"params": params})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal algolia payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/1/indexes/%s/query", c.baseURL, url.PathEscape(c.index))

	var resp algoliaResponse
	err = c.retry.Do(ctx, c.logger, ProviderAlgolia, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp = algoliaResponse{}
		return c.do(attemptCtx, http.MethodPost, endpoint, payload, &resp)
	})
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"index":   c.index,
		"hits":    len(resp.Hits),
		"nb_hits": resp.NbHits,
	}).Debug("Algolia search completed")

	return &models.SearchResult{Hits: resp.Hits, NbHits: resp.NbHits}, nil
}

// Ping calls the cluster liveness endpoint.
func (c *AlgoliaClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.do(ctx, http.MethodGet, c.baseURL+"/1/isalive", nil, nil)
}

func (c *AlgoliaClient) do(ctx context.Context, method, endpoint string, payload []byte, result interface{}) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return permanent(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("X-Algolia-Application-Id", c.appID)
	req.Header.Set("X-Algolia-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.WithFields(logrus.Fields{
			"status_code":   resp.StatusCode,
			"url":           endpoint,
			"response_body": string(responseBody),
		}).Debug("Algolia request failed")
		return &statusError{Code: resp.StatusCode, Body: string(responseBody)}
	}

	if result != nil && len(responseBody) > 0 {
		if err := json.Unmarshal(responseBody, result); err != nil {
			return permanent(fmt.Errorf("failed to unmarshal response: %w", err))
		}
	}

	return nil
}

// BuildFilterExpression renders equality constraints as
// `os:"Apple" AND categories:"laptop"`.
func BuildFilterExpression(filters models.Filters) string {
	var parts []string
	if filters.OS != models.OSNone {
		parts = append(parts, fmt.Sprintf("os:%q", string(filters.OS)))
	}
	if filters.DeviceType != models.DeviceNone {
		parts = append(parts, fmt.Sprintf("categories:%q", string(filters.DeviceType)))
	}
	return strings.Join(parts, " AND ")
}

// BuildNumericFilters bounds price only when a budget is known; a missing
// side is open. Records without a price would not match a numeric filter.
func BuildNumericFilters(filters models.Filters) []string {
	if filters.BudgetMin.IsAbsent() && filters.BudgetMax.IsAbsent() {
		return nil
	}
	min := filters.BudgetMin.OrElse(0)
	max := filters.BudgetMax.OrElse(maxBudgetSentinel)
	return []string{
		"price>=" + strconv.FormatFloat(min, 'f', -1, 64),
		"price<=" + strconv.FormatFloat(max, 'f', -1, 64),
	}
}

// EncodeParams builds the url-encoded params string of a query body.
// Lists are JSON encoded before escaping.
func EncodeParams(query string, filters models.Filters, hitsPerPage int) string {
	type param struct {
		key   string
		value interface{}
	}

	params := []param{
		{"query", query},
		{"hitsPerPage", hitsPerPage},
		{"attributesToRetrieve", attributesToRetrieve},
		{"getRankingInfo", true},
	}
	if expr := BuildFilterExpression(filters); expr != "" {
		params = append(params, param{"filters", expr})
	}
	if numeric := BuildNumericFilters(filters); len(numeric) > 0 {
		params = append(params, param{"numericFilters", numeric})
	}

	parts := make([]string, 0, len(params))
	for _, p := range params {
		var raw string
		switch v := p.value.(type) {
		case []string:
			raw = encodeList(v)
		default:
			raw = fmt.Sprint(v)
		}
		parts = append(parts, p.key+"="+url.QueryEscape(raw))
	}
	return strings.Join(parts, "&")
}

// encodeList JSON encodes without HTML escaping so comparison operators
// reach the index as written.
func encodeList(values []string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(values); err != nil {
		return "[]"
	}
	return strings.TrimRight(buf.String(), "\n")
}
