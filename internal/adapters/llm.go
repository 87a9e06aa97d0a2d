package adapters

import (
	"context"

	"github.com/iamwavecut/gmbot/internal/adapters/llm"
)

// LLM defines the interface for language model operations
type LLM interface {
	// ChatCompletion performs a chat completion request
	ChatCompletion(ctx context.Context, messages []llm.ChatCompletionMessage) (llm.ChatCompletionResponse, error)
	// Detect asks for a boolean content-policy verdict on a message
	Detect(ctx context.Context, message string) (*bool, error)
}
