package retriever

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/Ayash-Bera/device-advisor/internal/config"
	"github.com/Ayash-Bera/device-advisor/internal/metrics"
	"github.com/Ayash-Bera/device-advisor/internal/models"
	"github.com/sirupsen/logrus"
)

// LocalCatalog scores records from a JSON file by query token overlap.
// The file is read on every call so a reseeded catalog is picked up
// without a restart.
type LocalCatalog struct {
	path        string
	hitsPerPage int
	logger      *logrus.Logger
}

func NewLocalCatalog(cfg config.SearchConfig, logger *logrus.Logger) *LocalCatalog {
	return &LocalCatalog{
		path:        cfg.LocalPath,
		hitsPerPage: cfg.HitsPerPage,
		logger:      logger,
	}
}

func (l *LocalCatalog) Name() string  { return ProviderLocal }
func (l *LocalCatalog) Index() string { return l.path }

func (l *LocalCatalog) Ping(ctx context.Context) error {
	info, err := os.Stat(l.path)
	if err != nil {
		return fmt.Errorf("%w: local catalog unavailable: %v", models.ErrConfiguration, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: local catalog %s is a directory", models.ErrConfiguration, l.path)
	}
	return nil
}

// Load reads and decodes the catalog file.
func (l *LocalCatalog) Load() ([]models.Candidate, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read local catalog %s: %v", models.ErrConfiguration, l.path, err)
	}

	var records []models.Candidate
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: failed to parse local catalog %s: %v", models.ErrConfiguration, l.path, err)
	}
	return records, nil
}

func (l *LocalCatalog) Search(ctx context.Context, query string, filters models.Filters, hitsPerPage int) (*models.SearchResult, error) {
	start := time.Now()
	defer func() {
		metrics.RetrievalDuration.WithLabelValues(ProviderLocal).Observe(time.Since(start).Seconds())
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := l.Load()
	if err != nil {
		return nil, err
	}

	tokens := strings.Fields(strings.ToLower(query))
	matches := make([]models.Candidate, 0)

	for _, record := range records {
		score := tokenScore(tokens, searchableText(record))
		if score == 0 {
			continue
		}
		if record.Price != nil && !filters.PriceAllowed(*record.Price) {
			continue
		}
		native := float64(score)
		record.Score = &native
		matches = append(matches, record)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return *matches[i].Score > *matches[j].Score
	})

	total := len(matches)
	if limit := pageSize(hitsPerPage, l.hitsPerPage); len(matches) > limit {
		matches = matches[:limit]
	}

	l.logger.WithFields(logrus.Fields{
		"catalog": l.path,
		"records": len(records),
		"matches": total,
	}).Debug("Local catalog search completed")

	return &models.SearchResult{Hits: matches, NbHits: total}, nil
}

func searchableText(c models.Candidate) string {
	return strings.ToLower(strings.Join([]string{
		c.Name,
		c.Title,
		c.Brand,
		c.CategoryText(),
		c.Description,
		c.ShortDescription,
	}, " "))
}

// tokenScore counts query tokens (duplicates included) that appear as
// substrings of text.
func tokenScore(tokens []string, text string) int {
	score := 0
	for _, tok := range tokens {
		if strings.Contains(text, tok) {
			score++
		}
	}
	return score
}
