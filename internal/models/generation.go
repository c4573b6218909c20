package models

type Recommendation struct {
	Title     string   `json:"title"`
	Price     *float64 `json:"price"`
	URL       string   `json:"url"`
	Reasons   []string `json:"reasons"`
	Citations []string `json:"citations"`
}

type GenerationOutput struct {
	Recommendations     []Recommendation `json:"recommendations"`
	ClarifyingQuestions []string         `json:"clarifying_questions"`
}

// GenerationOutcome carries the structured output plus the reply text.
// UsedFallback is set only when the provider failed or its output
// could not be parsed.
type GenerationOutcome struct {
	Output              GenerationOutput
	UsedFallback        bool
	ConversationalReply string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type ConversationTurn struct {
	Role    Role   `json:"role" binding:"required,oneof=user assistant system"`
	Content string `json:"content"`
}
