package incident

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const interpretSystemPrompt = `You analyze citizen reports about broken street lighting and extract the location information needed to find the exact lamp.

Instructions:
- Parse the report carefully; extract only location facts, never invent addresses.
- address_components: concrete addressable fragments (house numbers, corners, crossings), most specific first.
- landmarks: named places mentioned (shops, schools, bus stops).
- interpreted_location: one line, the most precise geocodable description you can assemble from the report.
- confidence: 0 to 1, how certain the location is from the text alone.

Return a valid JSON object with exactly these fields:
- interpreted_location (string)
- address_components (array of strings)
- landmarks (array of strings)
- confidence (number)`

// Interpreter extracts structured location data from free-text incident
// descriptions. Without an API key it stays disabled and the scorer degrades
// to its heuristic fallback.
type Interpreter struct {
	client *openai.Client
	model  string
}

// NewInterpreter creates an incident interpreter; an empty API key disables it
func NewInterpreter(apiKey, model string) *Interpreter {
	if apiKey == "" {
		return &Interpreter{client: nil, model: model}
	}
	return &Interpreter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Enabled reports whether the AI path is usable
func (i *Interpreter) Enabled() bool {
	return i != nil && i.client != nil
}

// Interpret parses the location description in the context of the reported
// street.
func (i *Interpreter) Interpret(ctx context.Context, street, description string) (*Interpretation, error) {
	if !i.Enabled() {
		return nil, errors.New("incident interpreter not configured")
	}

	userPrompt := fmt.Sprintf("Street: %s\nReport: %s", street, description)

	resp, err := i.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: i.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: interpretSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
		MaxTokens:   400,
	})
	if err != nil {
		return nil, fmt.Errorf("incident interpretation request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("incident interpretation returned no choices")
	}

	var parsed Interpretation
	content := stripCodeFences(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse incident interpretation: %w", err)
	}

	return &parsed, nil
}

// stripCodeFences removes incidental markdown formatting some models wrap
// around JSON payloads.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
