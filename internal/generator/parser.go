package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Ayash-Bera/device-advisor/internal/models"
	"github.com/xeipuuv/gojsonschema"
)

const (
	jsonFence = "```json"
	fence     = "```"
	separator = "---"
)

// outputSchema is the contract the model's JSON must satisfy.
var outputSchema = gojsonschema.NewStringLoader(`{
	"type": "object",
	"required": ["recommendations", "clarifying_questions"],
	"properties": {
		"recommendations": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["title"],
				"properties": {
					"title": {"type": "string"},
					"price": {"type": ["number", "null"]},
					"url": {"type": ["string", "null"]},
					"reasons": {"type": ["array", "null"], "items": {"type": "string"}},
					"citations": {"type": ["array", "null"], "items": {"type": "string"}}
				}
			}
		},
		"clarifying_questions": {
			"type": "array",
			"items": {"type": "string"}
		}
	}
}`)

// RawOutput is the model text split into its two parts.
type RawOutput struct {
	JSON  string
	Reply string
}

// SplitOutput separates the JSON payload from the conversational reply.
// Without a ```json fence the whole text is treated as JSON. An
// unterminated fence runs to the end of the text. The reply is the
// segment between the first and second separator.
func SplitOutput(text string) (RawOutput, error) {
	idx := strings.Index(text, jsonFence)
	if idx < 0 {
		return RawOutput{JSON: strings.TrimSpace(text)}, nil
	}

	body := text[idx+len(jsonFence):]
	if end := strings.Index(body, fence); end >= 0 {
		body = body[:end]
	}

	out := RawOutput{JSON: strings.TrimSpace(body)}
	if parts := strings.SplitN(text, separator, 3); len(parts) > 1 {
		out.Reply = strings.TrimSpace(parts[1])
	}
	return out, nil
}

// DecodeOutput validates the JSON payload against the output schema and
// decodes it.
func DecodeOutput(raw RawOutput) (models.GenerationOutput, error) {
	var out models.GenerationOutput

	result, err := gojsonschema.Validate(outputSchema, gojsonschema.NewStringLoader(raw.JSON))
	if err != nil {
		return out, fmt.Errorf("%w: invalid json: %v", models.ErrGenerationParse, err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return out, fmt.Errorf("%w: %s", models.ErrGenerationParse, strings.Join(problems, "; "))
	}

	if err := json.Unmarshal([]byte(raw.JSON), &out); err != nil {
		return out, fmt.Errorf("%w: %v", models.ErrGenerationParse, err)
	}
	return out, nil
}

// ParseOutput runs both stages.
func ParseOutput(text string) (models.GenerationOutput, string, error) {
	raw, err := SplitOutput(text)
	if err != nil {
		return models.GenerationOutput{}, "", err
	}
	out, err := DecodeOutput(raw)
	if err != nil {
		return models.GenerationOutput{}, "", err
	}
	return out, raw.Reply, nil
}
