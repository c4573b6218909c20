package seeder

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/Ayash-Bera/device-advisor/internal/models"
	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/debug"
	"github.com/sirupsen/logrus"
)

type CrawlerConfig struct {
	UserAgent   string
	Parallelism int
	Delay       time.Duration
	Timeout     time.Duration
	Verbose     bool
}

func DefaultCrawlerConfig() CrawlerConfig {
	return CrawlerConfig{
		UserAgent:   "DeviceAdvisor-Seeder/1.0",
		Parallelism: 2,
		Delay:       2 * time.Second,
		Timeout:     30 * time.Second,
	}
}

// CrawlResult holds the products found and the pages that failed.
type CrawlResult struct {
	Products []models.Candidate
	Errors   []error
}

type Crawler struct {
	config    CrawlerConfig
	processor *ProductProcessor
	logger    *logrus.Logger
}

func NewCrawler(config CrawlerConfig, logger *logrus.Logger) *Crawler {
	return &Crawler{
		config:    config,
		processor: NewProductProcessor(),
		logger:    logger,
	}
}

func (cr *Crawler) newCollector() (*colly.Collector, error) {
	c := colly.NewCollector(
		colly.UserAgent(cr.config.UserAgent),
		colly.Async(true),
	)

	if cr.config.Verbose {
		c.SetDebugger(&debug.LogDebugger{})
	}

	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cr.config.Parallelism,
		Delay:       cr.config.Delay,
	}); err != nil {
		return nil, fmt.Errorf("invalid crawl limits: %w", err)
	}

	c.SetRequestTimeout(cr.config.Timeout)
	return c, nil
}

// Crawl visits every URL once and extracts at most one product per page.
// Cancelling ctx stops new requests; pages already in flight finish.
func (cr *Crawler) Crawl(ctx context.Context, urls []string) (*CrawlResult, error) {
	c, err := cr.newCollector()
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	result := &CrawlResult{}
	addError := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		result.Errors = append(result.Errors, err)
	}

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	c.OnHTML("html", func(e *colly.HTMLElement) {
		pageURL := e.Request.URL.String()
		product, ok := cr.processor.ExtractProduct(e.DOM, pageURL)

		mu.Lock()
		defer mu.Unlock()
		if !ok {
			result.Errors = append(result.Errors, fmt.Errorf("%s: no product found", pageURL))
			return
		}
		result.Products = append(result.Products, product)

		cr.logger.WithFields(logrus.Fields{
			"url":   pageURL,
			"title": product.Title,
			"os":    product.OS,
		}).Debug("Product extracted")
	})

	c.OnError(func(r *colly.Response, err error) {
		addError(fmt.Errorf("%s: %w", r.Request.URL, err))
	})

	for _, raw := range urls {
		if _, err := url.ParseRequestURI(raw); err != nil {
			addError(fmt.Errorf("%s: invalid URL: %w", raw, err))
			continue
		}
		if err := c.Visit(raw); err != nil {
			addError(fmt.Errorf("%s: %w", raw, err))
		}
	}
	c.Wait()

	cr.logger.WithFields(logrus.Fields{
		"pages":    len(urls),
		"products": len(result.Products),
		"errors":   len(result.Errors),
	}).Info("Crawl completed")

	return result, ctx.Err()
}
