package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// defaultAnthropicMaxTokens applies when the request carries no budget; the
// messages API requires one.
const defaultAnthropicMaxTokens = 2000

// DefaultAnthropicModel is used when no model is configured for the anthropic provider
const DefaultAnthropicModel = "claude-sonnet-4-5-20250929"

type anthropicClient struct {
	client anthropic.Client
	model  string
}

// newAnthropicClient creates a Client using the Anthropic messages API
func newAnthropicClient(cfg Config, extra ...option.RequestOption) (Client, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, extra...)

	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}

	return &anthropicClient{
		client: anthropic.NewClient(opts...),
		model:  model,
	}, nil
}

// Complete sends one messages request and concatenates the text blocks of the reply
func (c *anthropicClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	// Anthropic requires system messages to be passed separately
	systemContent, messages := c.convertMessages(req.Messages)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Messages:    messages,
		Temperature: anthropic.Float(req.Temperature),
	}
	if len(systemContent) > 0 {
		params.System = systemContent
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}

	var content strings.Builder
	texts := 0
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
			texts++
		}
	}
	if texts == 0 {
		return nil, ErrNoChoices
	}

	return &Completion{
		Content: content.String(),
		Usage:   parseAnthropicUsage([]byte(resp.RawJSON())),
	}, nil
}

// Model returns the model used when a request names none
func (c *anthropicClient) Model() string {
	return c.model
}

func (c *anthropicClient) convertMessages(msgs []Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var systemContent []anthropic.TextBlockParam
	messages := make([]anthropic.MessageParam, 0, len(msgs))

	for _, msg := range msgs {
		switch msg.Role {
		case RoleSystem:
			systemContent = append(systemContent, anthropic.TextBlockParam{
				Type: "text",
				Text: msg.Content,
			})
		case RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	return systemContent, messages
}

// parseAnthropicUsage maps input/output token counts onto TokenUsage. The API
// reports no total, so it is derived.
func parseAnthropicUsage(raw []byte) *TokenUsage {
	var resp struct {
		Usage *struct {
			InputTokens  *int `json:"input_tokens"`
			OutputTokens *int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Usage == nil {
		return nil
	}
	if resp.Usage.InputTokens == nil || resp.Usage.OutputTokens == nil {
		return nil
	}

	total := *resp.Usage.InputTokens + *resp.Usage.OutputTokens
	return (&rawUsage{
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      &total,
	}).validate()
}
