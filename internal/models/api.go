package models

// RecommendRequest is the body of POST /api/v1/recommend.
type RecommendRequest struct {
	Query     string             `json:"query"`
	Messages  []ConversationTurn `json:"messages" binding:"omitempty,dive"`
	TopN      int                `json:"top_n" binding:"omitempty,min=1,max=20"`
	BudgetMin *float64           `json:"budget_min" binding:"omitempty,min=0"`
	BudgetMax *float64           `json:"budget_max" binding:"omitempty,min=0"`
}

type RecommendationView struct {
	Title     string   `json:"title"`
	Price     *float64 `json:"price"`
	URL       string   `json:"url"`
	Score     float64  `json:"score"`
	Reasons   []string `json:"reasons"`
	Citations []string `json:"citations"`
}

type DebugInfo struct {
	Slots          SlotSet `json:"slots"`
	Filters        Filters `json:"filters"`
	NbHits         int     `json:"nbHits"`
	CatalogSource  string  `json:"catalog_source"`
	UsedLocalJSON  bool    `json:"used_local_json"`
	Index          string  `json:"index"`
	RetrievalError string  `json:"retrieval_error,omitempty"`
}

type RecommendResponse struct {
	QueryID               string               `json:"query_id"`
	Recommendations       []RecommendationView `json:"recommendations"`
	ClarifyingQuestions   []string             `json:"clarifying_questions"`
	UsedFallbackGenerator bool                 `json:"used_fallback_generator"`
	Reply                 string               `json:"reply"`
	Debug                 DebugInfo            `json:"debug"`
}

type FeedbackRequest struct {
	QueryID      string `json:"query_id" binding:"required,uuid"`
	FeedbackType string `json:"feedback_type" binding:"required,oneof=helpful not_helpful partially_helpful"`
	FeedbackText string `json:"feedback_text" binding:"max=2000"`
}
