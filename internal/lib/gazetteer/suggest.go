package gazetteer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const suggestSystemPrompt = `You match misspelled or partially remembered street names against a fixed reference list.

Rules:
- You are given a user input and a list of known street names.
- Pick the closest matches ONLY from the provided list, copied character for character.
- Never invent a street name that is not in the list.
- Consider missing diacritics, typos, swapped word order and partial names.

Return a JSON object: {"suggestions": ["...", "..."]} with at most the requested number of names, best match first. Return {"suggestions": []} when nothing in the list is plausible.`

// Suggester asks a language model to pick matching street names from a
// reference sample. Without an API key the suggester stays disabled and all
// calls return empty results.
type Suggester struct {
	client *openai.Client
	model  string
}

// NewSuggester creates a street-name suggester; an empty API key disables it
func NewSuggester(apiKey, model string) *Suggester {
	if apiKey == "" {
		return &Suggester{client: nil, model: model}
	}
	return &Suggester{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Enabled reports whether the AI path is usable
func (s *Suggester) Enabled() bool {
	return s != nil && s.client != nil
}

// SuggestFromList asks the model for up to max names closest to input, chosen
// from names only. The caller re-verifies membership; this method just parses.
func (s *Suggester) SuggestFromList(ctx context.Context, input string, names []string, max int) ([]string, error) {
	if !s.Enabled() {
		return nil, nil
	}

	userPrompt := fmt.Sprintf("User input: %q\nRequested matches: %d\n\nKnown street names:\n%s",
		input, max, strings.Join(names, "\n"))

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: suggestSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
		MaxTokens:   200,
	})
	if err != nil {
		return nil, fmt.Errorf("street suggestion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("street suggestion returned no choices")
	}

	var parsed struct {
		Suggestions []string `json:"suggestions"`
	}
	content := stripCodeFences(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse street suggestions: %w", err)
	}

	if len(parsed.Suggestions) > max {
		parsed.Suggestions = parsed.Suggestions[:max]
	}
	return parsed.Suggestions, nil
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
