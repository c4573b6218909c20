package models

// GORM models for optional request analytics.

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecommendationQuery is one served recommendation request. The
// conversation itself is never stored.
type RecommendationQuery struct {
	BaseModel
	QueryRef            string    `json:"query_ref" gorm:"uniqueIndex;size:36;not null"`
	QueryText           string    `json:"query_text" gorm:"not null"`
	UserSession         string    `json:"user_session" gorm:"index"`
	DeviceType          string    `json:"device_type"`
	UseCase             string    `json:"use_case"`
	OSPreference        string    `json:"os_preference"`
	CatalogSource       string    `json:"catalog_source"`
	TotalHits           int       `json:"total_hits" gorm:"default:0"`
	RecommendationCount int       `json:"recommendation_count" gorm:"default:0"`
	UsedFallback        bool      `json:"used_fallback" gorm:"default:false"`
	ResponseTimeMs      int       `json:"response_time_ms"`
	RequestedAt         time.Time `json:"requested_at"`
}

// RecommendationFeedback is a caller's verdict on a served request.
type RecommendationFeedback struct {
	BaseModel
	QueryRef     string `json:"query_ref" gorm:"index;size:36;not null"`
	FeedbackType string `json:"feedback_type" gorm:"not null;check:feedback_type IN ('helpful','not_helpful','partially_helpful')"`
	FeedbackText string `json:"feedback_text"`
	UserSession  string `json:"user_session"`
}

// PopularQuery aggregates normalized query text.
type PopularQuery struct {
	BaseModel
	QueryText         string    `json:"query_text" gorm:"unique;not null"`
	RequestCount      int       `json:"request_count" gorm:"default:1"`
	AvgHits           float64   `json:"avg_hits" gorm:"type:decimal(8,2);default:0"`
	AvgResponseTimeMs int       `json:"avg_response_time_ms" gorm:"default:0"`
	LastRequested     time.Time `json:"last_requested"`
}

type RecommendationQueryRepository interface {
	Create(query *RecommendationQuery) error
	GetByRef(ref string) (*RecommendationQuery, error)
	// FallbackRate is the share of requests since the given time that
	// were answered by the fallback generator.
	FallbackRate(since time.Time) (float64, error)
}

type FeedbackRepository interface {
	Create(feedback *RecommendationFeedback) error
}

type PopularQueryRepository interface {
	Record(queryText string, hits int, responseTime time.Duration) error
	Search(fragment string, limit int) ([]PopularQuery, error)
}

func (RecommendationQuery) TableName() string    { return "recommendation_queries" }
func (RecommendationFeedback) TableName() string { return "recommendation_feedback" }
func (PopularQuery) TableName() string           { return "popular_queries" }

var validFeedbackTypes = map[string]bool{
	"helpful":           true,
	"not_helpful":       true,
	"partially_helpful": true,
}

func (q *RecommendationQuery) Validate() error {
	if q.QueryRef == "" {
		return fmt.Errorf("query ref is required")
	}
	if q.ResponseTimeMs < 0 {
		return fmt.Errorf("response time cannot be negative")
	}
	return nil
}

func (f *RecommendationFeedback) Validate() error {
	if f.QueryRef == "" {
		return fmt.Errorf("query ref is required")
	}
	if !validFeedbackTypes[f.FeedbackType] {
		return fmt.Errorf("invalid feedback type: %s", f.FeedbackType)
	}
	return nil
}

func (q *RecommendationQuery) BeforeCreate(tx *gorm.DB) error {
	return q.Validate()
}

func (f *RecommendationFeedback) BeforeCreate(tx *gorm.DB) error {
	return f.Validate()
}
