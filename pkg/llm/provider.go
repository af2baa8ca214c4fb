package llm

import (
	"context"
	"fmt"
	"io"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// StreamingProvider defines the contract for any LLM backend that can
// stream a completion. The returned body is the provider's raw SSE byte
// stream; decoding it is the caller's concern (see pkg/llm/sse). The
// body must be closed by the caller.
type StreamingProvider interface {
	StreamChat(ctx context.Context, history []Message, options ...Option) (io.ReadCloser, error)
}

// StatusError is returned when the upstream answers with a non-2xx
// status. The chat endpoint passes the code through to its own caller.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream error: status %d, body: %s", e.Code, e.Body)
}
