// Package retriever fetches candidate products from the configured
// search backend.
package retriever

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Ayash-Bera/device-advisor/internal/config"
	"github.com/Ayash-Bera/device-advisor/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	ProviderAlgolia       = "algolia"
	ProviderElasticsearch = "elasticsearch"
	ProviderLocal         = "local"
)

// Retriever is implemented by every search backend.
type Retriever interface {
	Search(ctx context.Context, query string, filters models.Filters, hitsPerPage int) (*models.SearchResult, error)
	// Name identifies the backend ("algolia", "elasticsearch", "local").
	Name() string
	// Index names the index or catalog file being searched.
	Index() string
	Ping(ctx context.Context) error
}

type options struct {
	retry      RetryPolicy
	httpClient *http.Client
}

type Option func(*options)

func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *options) { o.retry = p }
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func buildOptions(opts []Option) options {
	o := options{
		retry:      DefaultRetryPolicy(),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New picks the backend. The local catalog is used when explicitly
// requested or when the configured remote has no credentials.
func New(cfg config.SearchConfig, logger *logrus.Logger, opts ...Option) (Retriever, error) {
	if cfg.UseLocal {
		return NewLocalCatalog(cfg, logger), nil
	}

	switch cfg.Provider {
	case "", ProviderAlgolia:
		if cfg.Algolia.AppID == "" || cfg.Algolia.APIKey == "" {
			logger.Warn("Algolia credentials missing, using local catalog")
			return NewLocalCatalog(cfg, logger), nil
		}
		return NewAlgoliaClient(cfg, logger, opts...), nil
	case ProviderElasticsearch:
		if len(cfg.Elasticsearch.Addresses) == 0 {
			logger.Warn("Elasticsearch addresses missing, using local catalog")
			return NewLocalCatalog(cfg, logger), nil
		}
		return NewElasticsearchRetriever(cfg, logger, opts...)
	case ProviderLocal:
		return NewLocalCatalog(cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown search provider %q", models.ErrConfiguration, cfg.Provider)
	}
}

func pageSize(requested, fallback int) int {
	if requested > 0 {
		return requested
	}
	if fallback > 0 {
		return fallback
	}
	return 24
}
