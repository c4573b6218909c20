package retriever

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Ayash-Bera/device-advisor/internal/config"
	"github.com/Ayash-Bera/device-advisor/internal/metrics"
	"github.com/Ayash-Bera/device-advisor/internal/models"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var textFields = []string{"title^3", "name^3", "brand^2", "categories", "description", "shortDescription"}

// ElasticsearchRetriever searches a self-hosted product index. Hit
// scores are passed through as the native relevance signal.
type ElasticsearchRetriever struct {
	client      *elasticsearch.Client
	index       string
	hitsPerPage int
	timeout     time.Duration
	limiter     *rate.Limiter
	retry       RetryPolicy
	logger      *logrus.Logger
}

func NewElasticsearchRetriever(cfg config.SearchConfig, logger *logrus.Logger, opts ...Option) (*ElasticsearchRetriever, error) {
	o := buildOptions(opts)

	esCfg := elasticsearch.Config{
		Addresses:    cfg.Elasticsearch.Addresses,
		Username:     cfg.Elasticsearch.Username,
		Password:     cfg.Elasticsearch.Password,
		DisableRetry: true,
	}
	if o.httpClient != nil && o.httpClient.Transport != nil {
		esCfg.Transport = o.httpClient.Transport
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create elasticsearch client: %v", models.ErrConfiguration, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 6 * time.Second
	}

	return &ElasticsearchRetriever{
		client:      client,
		index:       cfg.Elasticsearch.Index,
		hitsPerPage: cfg.HitsPerPage,
		timeout:     timeout,
		limiter:     newLimiter(cfg.RatePerSecond),
		retry:       o.retry,
		logger:      logger,
	}, nil
}

func (r *ElasticsearchRetriever) Name() string  { return ProviderElasticsearch }
func (r *ElasticsearchRetriever) Index() string { return r.index }

type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string           `json:"_id"`
			Score  *float64         `json:"_score"`
			Source models.Candidate `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (r *ElasticsearchRetriever) Search(ctx context.Context, query string, filters models.Filters, hitsPerPage int) (*models.SearchResult, error) {
	start := time.Now()
	defer func() {
		metrics.RetrievalDuration.WithLabelValues(ProviderElasticsearch).Observe(time.Since(start).Seconds())
	}()

	size := pageSize(hitsPerPage, r.hitsPerPage)
	body, err := json.Marshal(BuildESQuery(query, filters, size))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal elasticsearch query: %w", err)
	}

	var parsed esSearchResponse
	err = r.retry.Do(ctx, r.logger, ProviderElasticsearch, func(ctx context.Context) error {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		res, err := r.client.Search(
			r.client.Search.WithContext(attemptCtx),
			r.client.Search.WithIndex(r.index),
			r.client.Search.WithBody(bytes.NewReader(body)),
			r.client.Search.WithTrackTotalHits(true),
		)
		if err != nil {
			return fmt.Errorf("elasticsearch request failed: %w", err)
		}
		defer res.Body.Close()

		raw, err := io.ReadAll(res.Body)
		if err != nil {
			return fmt.Errorf("failed to read elasticsearch response: %w", err)
		}
		if res.IsError() {
			return &statusError{Code: res.StatusCode, Body: string(raw)}
		}

		parsed = esSearchResponse{}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return permanent(fmt.Errorf("failed to decode elasticsearch response: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	hits := make([]models.Candidate, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		c := h.Source
		if c.ObjectID == "" {
			c.ObjectID = h.ID
		}
		c.Score = h.Score
		c.RankingInfo = nil
		hits = append(hits, c)
	}

	r.logger.WithFields(logrus.Fields{
		"index":   r.index,
		"hits":    len(hits),
		"nb_hits": parsed.Hits.Total.Value,
	}).Debug("Elasticsearch search completed")

	return &models.SearchResult{Hits: hits, NbHits: parsed.Hits.Total.Value}, nil
}

func (r *ElasticsearchRetriever) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.client.Ping(r.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping returned %s", res.Status())
	}
	return nil
}

// BuildESQuery mirrors the Algolia constraints: equality clauses as
// phrase filters, budget as a price range.
func BuildESQuery(query string, filters models.Filters, size int) map[string]interface{} {
	var must interface{}
	if query == "" {
		must = map[string]interface{}{"match_all": map[string]interface{}{}}
	} else {
		must = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": textFields,
				"type":   "best_fields",
			},
		}
	}

	filterClauses := []interface{}{}
	if filters.OS != models.OSNone {
		filterClauses = append(filterClauses, map[string]interface{}{
			"match_phrase": map[string]interface{}{"os": string(filters.OS)},
		})
	}
	if filters.DeviceType != models.DeviceNone {
		filterClauses = append(filterClauses, map[string]interface{}{
			"match_phrase": map[string]interface{}{"categories": string(filters.DeviceType)},
		})
	}

	priceRange := map[string]interface{}{}
	if min, ok := filters.BudgetMin.Get(); ok {
		priceRange["gte"] = min
	}
	if max, ok := filters.BudgetMax.Get(); ok {
		priceRange["lte"] = max
	}
	if len(priceRange) > 0 {
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{"price": priceRange},
		})
	}

	return map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filterClauses,
			},
		},
	}
}
