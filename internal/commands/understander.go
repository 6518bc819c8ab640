package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Understander turns free text into a structured command
type Understander interface {
	Understand(ctx context.Context, text string) (*Command, error)
}

// OpenAIUnderstander implements Understander with the chat completions API
type OpenAIUnderstander struct {
	client openAIClient
	model  string
}

// NewOpenAIUnderstander creates a new OpenAI-backed understander
func NewOpenAIUnderstander(apiKey, model string) *OpenAIUnderstander {
	if model == "" {
		model = defaultChatModel
	}
	return &OpenAIUnderstander{
		client: newOpenAIClient(apiKey, "", defaultTimeout),
		model:  model,
	}
}

// Understand asks the model for a JSON command
func (u *OpenAIUnderstander) Understand(ctx context.Context, text string) (*Command, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, NewInvalidCommandError("", "command text cannot be empty", nil)
	}

	content, err := u.client.chat(ctx, chatCompletionRequest{
		Model: u.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt()},
			{Role: "user", Content: userPrompt(text)},
		},
		ResponseFormat: &chatResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, NewUnderstandingError(err)
	}

	cmd, err := parseCommand(content)
	if err != nil {
		return nil, NewUnderstandingError(err)
	}
	return cmd, nil
}

// JSONUnderstander treats the text itself as a JSON command.
// It needs no network access and is meant for development and tests.
type JSONUnderstander struct{}

// NewJSONUnderstander creates a new JSON understander
func NewJSONUnderstander() *JSONUnderstander {
	return &JSONUnderstander{}
}

func (JSONUnderstander) Understand(ctx context.Context, text string) (*Command, error) {
	cmd, err := parseCommand(text)
	if err != nil {
		return nil, NewInvalidCommandError("", "command is not a JSON object", err)
	}
	return cmd, nil
}

// parseCommand decodes a model reply, tolerating a fenced code block around the JSON
func parseCommand(content string) (*Command, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	var cmd Command
	if err := json.Unmarshal([]byte(content), &cmd); err != nil {
		return nil, fmt.Errorf("failed to decode command %q: %w", content, err)
	}
	if cmd.Data == nil {
		cmd.Data = map[string]interface{}{}
	}
	return &cmd, nil
}

// NewUnderstander creates an understander based on configuration
func NewUnderstander(cfg Config) (Understander, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		u := NewOpenAIUnderstander(cfg.APIKey, cfg.ChatModel)
		u.client = newOpenAIClient(cfg.APIKey, cfg.BaseURL, time.Duration(cfg.TimeoutSeconds)*time.Second)
		return u, nil
	case "json":
		return NewJSONUnderstander(), nil
	default:
		return nil, fmt.Errorf("unsupported command provider: %s", cfg.Provider)
	}
}
