// Package llm wraps the chat-completion providers used to resolve plugin requests
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Provider constants for LLM provider selection
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Role constants for chat messages
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultModel is used when no model is configured for the openai provider
const DefaultModel = "gpt-3.5-turbo-0301"

// ErrNoChoices is returned when a provider answers without any content
var ErrNoChoices = errors.New("no choices in response")

// Config holds LLM client configuration
type Config struct {
	Provider string // "openai" or "anthropic"
	APIKey   string // Required: API key for the provider
	BaseURL  string // Optional: custom API endpoint
	Model    string
}

// Client issues one chat completion per call
type Client interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
	Model() string
}

// Message is a role-tagged conversation turn
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request contains the ordered messages and sampling settings for one call
type Request struct {
	Model       string // Optional: overrides the client's model
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Completion is the first choice of a provider response
type Completion struct {
	Content string
	// Usage is nil when the provider did not report all token counts
	Usage *TokenUsage
}

// NewClient selects the provider implementation named by cfg.Provider.
// Defaults to OpenAI if no provider is specified.
func NewClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}

	switch provider {
	case ProviderOpenAI:
		return newOpenAIClient(cfg)
	case ProviderAnthropic:
		return newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// UserMessage builds a user turn
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// SystemMessage builds a system turn
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// AssistantMessage builds an assistant turn
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
