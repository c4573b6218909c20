package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Ayash-Bera/device-advisor/internal/models"
)

const (
	historyTurns     = 5
	promptCandidates = 10
	reducedCandidate = 5
	maxPromptChars   = 12000

	systemPrompt = "You are a device recommendation expert."
)

// promptHit is the reduced view of a candidate shown to the model.
type promptHit struct {
	Title       string   `json:"title"`
	Price       *float64 `json:"price"`
	URL         string   `json:"url"`
	Brand       string   `json:"brand"`
	OS          string   `json:"os"`
	RAM         any      `json:"ram"`
	Camera      any      `json:"camera"`
	Description string   `json:"description"`
	Score       float64  `json:"score"`
}

func projectHits(hits []models.Candidate, limit int) []promptHit {
	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]promptHit, 0, len(hits))
	for _, h := range hits {
		title := h.DisplayTitle()
		if title == "" {
			title = "Unknown Product"
		}
		out = append(out, promptHit{
			Title:       title,
			Price:       h.Price,
			URL:         h.URL,
			Brand:       h.Brand,
			OS:          h.OS,
			RAM:         h.RAM,
			Camera:      h.Camera,
			Description: h.Summary(),
			Score:       h.AdvisorScore,
		})
	}
	return out
}

// formatHistory keeps the most recent turns as "role: content" lines.
func formatHistory(history []models.ConversationTurn) string {
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", turn.Role, turn.Content))
	}
	return strings.Join(lines, "\n")
}

const instructions = `Instructions:
- If the user asks for an explanation (e.g., 'what is RAM?'), explain the term simply in 1-2 sentences, then relate it to device recommendations (e.g., suggest minimum specs like 8GB RAM for daily use).
- Recommend 3-5 top products that best match the slots and query. For each:
  - Provide title, price, url.
  - List 2-3 reasons why it matches, citing specific attributes (e.g., 'High RAM: 16GB' or 'Great camera: 48MP with OIS').
- Be conversational, engaging, and adapt to the conversation history (e.g., refine based on prior user inputs).
- If information is missing (e.g., no OS preference), ask 1-3 relevant clarifying questions (e.g., 'Do you prefer Windows or macOS?').
- If no good matches, suggest alternatives or ask for more details.
- Output in JSON: {"recommendations": [{"title": str, "price": float, "url": str, "reasons": [str], "citations": [str]}], "clarifying_questions": [str]}
- Follow with a conversational response (after a separator '---') incorporating the recommendations and questions in natural language.
- Do not use hardcoded responses; base everything on the provided data.`

// BuildPrompt renders the user prompt. It returns the prompt and the
// number of candidates it carries; oversized prompts are rebuilt with
// fewer candidates.
func BuildPrompt(userText string, slots models.SlotSet, hits []models.Candidate, history []models.ConversationTurn) (string, int) {
	prompt, n := renderPrompt(userText, slots, projectHits(hits, promptCandidates), history)
	if len(prompt) > maxPromptChars {
		prompt, n = renderPrompt(userText, slots, projectHits(hits, reducedCandidate), history)
	}
	return prompt, n
}

func renderPrompt(userText string, slots models.SlotSet, hits []promptHit, history []models.ConversationTurn) (string, int) {
	slotsJSON, _ := json.MarshalIndent(slots, "", "  ")
	hitsJSON, _ := json.MarshalIndent(hits, "", "  ")

	var b strings.Builder
	b.WriteString("You are a helpful AI advisor recommending electronic devices based on user needs.\n")
	fmt.Fprintf(&b, "User query: %s\n", userText)
	fmt.Fprintf(&b, "Extracted slots: %s\n", slotsJSON)
	if slots.EducationTerm != "" {
		fmt.Fprintf(&b, "The user asked about: %s\n", slots.EducationTerm)
	}
	fmt.Fprintf(&b, "Conversation history (if any): %s\n\n", formatHistory(history))
	b.WriteString("Available products from search (top relevant hits):\n")
	b.Write(hitsJSON)
	b.WriteString("\n\n")
	b.WriteString(instructions)
	b.WriteString("\n")

	return b.String(), len(hits)
}
