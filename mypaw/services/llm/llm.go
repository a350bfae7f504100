package llm

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float32   `json:"temperature,omitempty"`
}

// Runner is the minimal surface the persona service needs from a text
// generation backend.
type Runner interface {
	Run(ctx context.Context, req ChatRequest) (string, error)
}
