package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/trolleywise/backend/internal/domain"
)

// Categorisation is one validated model response for a product name
type Categorisation struct {
	Category1       string   `json:"category_1"`
	Category2       string   `json:"category_2"`
	Category3       string   `json:"category_3"`
	Characteristics []string `json:"characteristics"`
	Flavours        []string `json:"flavours"`
}

// CategoriserConfig holds the model boundary contract: which model to call,
// the fixed system instruction, and the allow-lists every response field is
// validated against. Empty allow-lists accept any value for that field.
type CategoriserConfig struct {
	Model           string
	SystemPrompt    string
	Categories1     []string
	Categories2     []string
	Categories3     []string
	Characteristics []string
	Flavours        []string
}

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Categoriser assigns taxonomy labels to product names through a one-shot
// chat completion. The model is a black box; this component owns only the
// boundary: one request per name, strict JSON parsing, allow-list
// validation. Anything the model returns outside the contract is an
// ErrInvalidCategorisation, never a partial result.
type Categoriser struct {
	client chatCompleter
	config CategoriserConfig
	logger zerolog.Logger

	allowed1        map[string]bool
	allowed2        map[string]bool
	allowed3        map[string]bool
	characteristics map[string]bool
	flavours        map[string]bool
}

// NewCategoriser creates a categoriser backed by an OpenAI-compatible chat
// client.
func NewCategoriser(client *openai.Client, config CategoriserConfig, logger zerolog.Logger) *Categoriser {
	return newCategoriser(client, config, logger)
}

func newCategoriser(client chatCompleter, config CategoriserConfig, logger zerolog.Logger) *Categoriser {
	return &Categoriser{
		client:          client,
		config:          config,
		logger:          logger.With().Str("component", "categoriser").Logger(),
		allowed1:        toSet(config.Categories1),
		allowed2:        toSet(config.Categories2),
		allowed3:        toSet(config.Categories3),
		characteristics: toSet(config.Characteristics),
		flavours:        toSet(config.Flavours),
	}
}

// Categorise labels one product name. Transport errors are returned as-is;
// responses that fail parsing or allow-list validation return
// ErrInvalidCategorisation so callers can route the row to the invalid
// output.
func (c *Categoriser) Categorise(ctx context.Context, name string) (*Categorisation, error) {
	if name == "" {
		return nil, domain.ErrInvalidRequest
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.config.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: name},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("categorise %q: %w", name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", domain.ErrInvalidCategorisation)
	}

	var result Categorisation
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCategorisation, err)
	}

	if err := c.validate(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Categoriser) validate(result *Categorisation) error {
	if result.Category1 == "" || result.Category2 == "" || result.Category3 == "" {
		return fmt.Errorf("%w: missing category", domain.ErrInvalidCategorisation)
	}

	checks := []struct {
		field   string
		values  []string
		allowed map[string]bool
	}{
		{"category_1", []string{result.Category1}, c.allowed1},
		{"category_2", []string{result.Category2}, c.allowed2},
		{"category_3", []string{result.Category3}, c.allowed3},
		{"characteristics", result.Characteristics, c.characteristics},
		{"flavours", result.Flavours, c.flavours},
	}

	for _, check := range checks {
		if len(check.allowed) == 0 {
			continue
		}
		for _, value := range check.values {
			if !check.allowed[value] {
				return fmt.Errorf("%w: %s value %q not in allow-list",
					domain.ErrInvalidCategorisation, check.field, value)
			}
		}
	}

	return nil
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
