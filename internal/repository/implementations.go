package repository

import (
	"strings"
	"time"

	"github.com/Ayash-Bera/device-advisor/internal/models"
	"gorm.io/gorm"
)

// RecommendationQueryRepositoryImpl implements RecommendationQueryRepository
type RecommendationQueryRepositoryImpl struct {
	db *gorm.DB
}

func NewRecommendationQueryRepository(db *gorm.DB) models.RecommendationQueryRepository {
	return &RecommendationQueryRepositoryImpl{db: db}
}

func (r *RecommendationQueryRepositoryImpl) Create(query *models.RecommendationQuery) error {
	return r.db.Create(query).Error
}

func (r *RecommendationQueryRepositoryImpl) GetByRef(ref string) (*models.RecommendationQuery, error) {
	var query models.RecommendationQuery
	err := r.db.Where("query_ref = ?", ref).First(&query).Error
	if err != nil {
		return nil, err
	}
	return &query, nil
}

func (r *RecommendationQueryRepositoryImpl) FallbackRate(since time.Time) (float64, error) {
	var rate float64
	err := r.db.Raw(`
		SELECT COALESCE(AVG(CASE WHEN used_fallback THEN 1.0 ELSE 0.0 END), 0)
		FROM recommendation_queries
		WHERE requested_at >= ?
	`, since).Scan(&rate).Error
	return rate, err
}

// FeedbackRepositoryImpl implements FeedbackRepository
type FeedbackRepositoryImpl struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) models.FeedbackRepository {
	return &FeedbackRepositoryImpl{db: db}
}

func (r *FeedbackRepositoryImpl) Create(feedback *models.RecommendationFeedback) error {
	return r.db.Create(feedback).Error
}

// PopularQueryRepositoryImpl implements PopularQueryRepository
type PopularQueryRepositoryImpl struct {
	db *gorm.DB
}

func NewPopularQueryRepository(db *gorm.DB) models.PopularQueryRepository {
	return &PopularQueryRepositoryImpl{db: db}
}

// Record upserts the query row and folds hits and latency into the
// running averages in one statement.
func (r *PopularQueryRepositoryImpl) Record(queryText string, hits int, responseTime time.Duration) error {
	return r.db.Exec(`
		INSERT INTO popular_queries (query_text, request_count, avg_hits, avg_response_time_ms, last_requested, created_at, updated_at)
		VALUES (?, 1, ?, ?, NOW(), NOW(), NOW())
		ON CONFLICT (query_text)
		DO UPDATE SET
			request_count = popular_queries.request_count + 1,
			avg_hits = (popular_queries.avg_hits * popular_queries.request_count + EXCLUDED.avg_hits) / (popular_queries.request_count + 1),
			avg_response_time_ms = (popular_queries.avg_response_time_ms * popular_queries.request_count + EXCLUDED.avg_response_time_ms) / (popular_queries.request_count + 1),
			last_requested = NOW(),
			updated_at = NOW()
	`, queryText, float64(hits), int(responseTime.Milliseconds())).Error
}

func (r *PopularQueryRepositoryImpl) Search(fragment string, limit int) ([]models.PopularQuery, error) {
	var queries []models.PopularQuery
	err := r.db.Where("query_text LIKE ?", "%"+escapeLike(strings.ToLower(fragment))+"%").
		Order("request_count DESC").
		Limit(limit).
		Find(&queries).Error
	return queries, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// RepositoryManager bundles all repositories
type RepositoryManager struct {
	Query        models.RecommendationQueryRepository
	Feedback     models.FeedbackRepository
	PopularQuery models.PopularQueryRepository
}

func NewRepositoryManager(db *gorm.DB) *RepositoryManager {
	return &RepositoryManager{
		Query:        NewRecommendationQueryRepository(db),
		Feedback:     NewFeedbackRepository(db),
		PopularQuery: NewPopularQueryRepository(db),
	}
}
