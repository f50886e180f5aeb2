// Package llm provides the language-model provider abstraction consumed
// by the agent runner. Providers handle API communication and return
// completed messages with token accounting; they carry no agent or
// browser concerns.
package llm

import (
	"context"

	"github.com/entrhq/capture/pkg/usage"
)

// Message is one turn of a model conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// NewSystemMessage creates a system-role message.
func NewSystemMessage(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user-role message.
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant-role message.
func NewAssistantMessage(content string) *Message {
	return &Message{Role: RoleAssistant, Content: content}
}

// Completion is the result of one model call.
type Completion struct {
	Content string
	Usage   usage.TokenUsage
}

// Provider defines the interface for LLM integrations.
type Provider interface {
	// Complete sends the conversation to the model and returns the
	// assistant's full response with token usage when the API reports it.
	Complete(ctx context.Context, messages []*Message) (*Completion, error)

	// Model returns the model name in use.
	Model() string
}
