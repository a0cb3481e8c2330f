package resolver

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/zijiren233/openapi-plugin-resolver/llm"
)

// DeclineSentinel is the literal reply a model gives when nothing matches
const DeclineSentinel = "nyl"

// Outcome is how a model reply is interpreted
type Outcome int

const (
	OutcomeAnswered Outcome = iota
	// OutcomeDeclined means the model explicitly found no match
	OutcomeDeclined
)

// ClassifyReply maps a reply onto an Outcome. Only the exact sentinel and an
// empty reply count as a decline.
func ClassifyReply(content string) Outcome {
	if content == "" || content == DeclineSentinel {
		return OutcomeDeclined
	}
	return OutcomeAnswered
}

// Settings are the sampling parameters of every LLM call
type Settings struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Conversation sends prompts to the LLM and records them on a MessageChain
type Conversation struct {
	client   llm.Client
	settings Settings
	counter  llm.TokenCounter
	logger   *zap.Logger
}

// NewConversation creates a Conversation. counter and logger may be nil
func NewConversation(client llm.Client, settings Settings, counter llm.TokenCounter, logger *zap.Logger) *Conversation {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Conversation{
		client:   client,
		settings: settings,
		counter:  counter,
		logger:   logger,
	}
}

// Converse appends each payload to the chain as a human_eval message and to the
// history as a user turn, makes exactly one LLM call with the whole history and
// records the reply as an ai_eval message. The extended history is returned;
// the caller's backing array is never written to.
func (c *Conversation) Converse(ctx context.Context, chain *MessageChain, history []llm.Message, payloads ...string) (*llm.Completion, []llm.Message, error) {
	history = slices.Clip(history)
	for _, payload := range payloads {
		chain.Append(NewMessage(KindHumanEval, payload))
		history = append(history, llm.UserMessage(payload))
	}

	c.logEstimate(history)

	start := time.Now()
	completion, err := c.client.Complete(ctx, llm.Request{
		Model:       c.settings.Model,
		Messages:    history,
		Temperature: c.settings.Temperature,
		MaxTokens:   c.settings.MaxTokens,
	})
	if err != nil {
		return nil, history, err
	}

	chain.usage = Accumulate(chain.usage, completion)
	chain.Append(NewMessage(KindAIEval, completion.Content))

	fields := []zap.Field{
		zap.String("model", c.client.Model()),
		zap.Duration("duration", time.Since(start)),
	}
	if completion.Usage != nil {
		fields = append(fields,
			zap.Int("prompt_tokens", completion.Usage.PromptTokens),
			zap.Int("completion_tokens", completion.Usage.CompletionTokens))
	}
	c.logger.Debug("chat completed", fields...)

	return completion, history, nil
}

func (c *Conversation) logEstimate(history []llm.Message) {
	if c.counter == nil || !c.logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	n, err := llm.CountMessages(c.counter, history)
	if err != nil {
		c.logger.Debug("token estimate unavailable", zap.Error(err))
		return
	}
	c.logger.Debug("sending chat", zap.Int("messages", len(history)), zap.Int("estimated_prompt_tokens", n))
}
