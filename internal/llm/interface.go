// Package llm wraps chat completion providers behind one interface. The only
// caller is the report commentary, which sends a single user turn.
package llm

import "context"

// Roles accepted in Message.Role
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultMaxTokens applies when a request leaves MaxTokens unset
const DefaultMaxTokens = 1024

// Provider is a chat completion backend
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatRequest is one completion call
type ChatRequest struct {
	SystemPrompt string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
}

// MaxTokensOrDefault returns MaxTokens, or DefaultMaxTokens when unset
func (r ChatRequest) MaxTokensOrDefault() int {
	if r.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return r.MaxTokens
}

type Message struct {
	Role    string
	Content string
}

// ChatResponse carries the reply text and token usage
type ChatResponse struct {
	Content      string
	Usage        Usage
	FinishReason string
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}
