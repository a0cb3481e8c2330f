package resolver

import (
	"encoding/json"
	"slices"
)

// Kind tags who produced a message
type Kind string

const (
	KindHuman     Kind = "human"
	KindAI        Kind = "ai"
	KindHumanEval Kind = "human_eval"
	KindAIEval    Kind = "ai_eval"
)

// Message is one immutable unit of a conversation
type Message struct {
	kind    Kind
	content string
}

// NewMessage creates a message of the given kind
func NewMessage(kind Kind, content string) Message {
	return Message{kind: kind, content: content}
}

// Kind returns who produced the message
func (m Message) Kind() Kind {
	return m.kind
}

// Content returns the message text
func (m Message) Content() string {
	return m.content
}

type messageJSON struct {
	Type    Kind   `json:"type" jsonschema:"enum=human,enum=ai,enum=human_eval,enum=ai_eval"`
	Content string `json:"content"`
}

// MarshalJSON encodes the message as {type, content}
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(messageJSON{Type: m.kind, Content: m.content})
}

// MessageChain is the append-only record of one resolution's LLM exchanges
// together with the tokens they consumed.
type MessageChain struct {
	messages []Message
	usage    Usage
}

// NewMessageChain creates an empty chain
func NewMessageChain() *MessageChain {
	return &MessageChain{}
}

// Append adds a message to the end of the chain
func (c *MessageChain) Append(m Message) {
	c.messages = append(c.messages, m)
}

// Messages returns a copy of the messages in chronological order
func (c *MessageChain) Messages() []Message {
	return slices.Clone(c.messages)
}

// Len returns the number of messages
func (c *MessageChain) Len() int {
	return len(c.messages)
}

// Usage returns the tokens accumulated so far
func (c *MessageChain) Usage() Usage {
	return c.usage
}

type messageChainJSON struct {
	Messages []Message `json:"messages"`
	Usage    Usage     `json:"usage"`
}

// MarshalJSON encodes the messages and the accumulated usage
func (c *MessageChain) MarshalJSON() ([]byte, error) {
	messages := c.messages
	if messages == nil {
		messages = []Message{}
	}
	return json.Marshal(messageChainJSON{Messages: messages, Usage: c.usage})
}
