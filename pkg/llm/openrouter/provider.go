package openrouter

import (
	"atmo-chat-be/pkg/llm"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "stepfun/step-3.5-flash:free"
)

type OpenRouterProvider struct {
	BaseURL   string
	APIKey    string
	ModelName string
	Referer   string // HTTP-Referer attribution header
	Title     string // X-Title attribution header
	Client    *http.Client
}

// Ensure OpenRouterProvider implements StreamingProvider
var _ llm.StreamingProvider = &OpenRouterProvider{}

func NewOpenRouterProvider(baseURL, apiKey, modelName string, requestTimeout time.Duration) *OpenRouterProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	if requestTimeout <= 0 {
		requestTimeout = 120 * time.Second
	}
	return &OpenRouterProvider{
		BaseURL:   baseURL,
		APIKey:    apiKey,
		ModelName: modelName,
		Referer:   "https://atmo-v2.vercel.app",
		Title:     "Atmo Climate Assistant",
		Client: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// --- Request structs (Internal to this package) ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// --- Interface Implementation ---

// StreamChat opens a streaming completion against OpenRouter and returns
// the raw SSE body. A non-2xx status is drained into a *llm.StatusError so
// the caller can pass the provider's code through.
func (o *OpenRouterProvider) StreamChat(ctx context.Context, history []llm.Message, opts ...llm.Option) (io.ReadCloser, error) {
	options := &llm.Options{}
	for _, opt := range opts {
		opt(options)
	}

	messages := make([]chatMessage, len(history))
	for i, msg := range history {
		role := msg.Role
		if role == "model" {
			role = "assistant"
		}
		messages[i] = chatMessage{
			Role:    role,
			Content: msg.Content,
		}
	}

	model := o.ModelName
	if options.Model != "" {
		model = options.Model
	}

	payloadBytes, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := o.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)
	req.Header.Set("HTTP-Referer", o.Referer)
	req.Header.Set("X-Title", o.Title)

	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openrouter request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &llm.StatusError{
			Code: resp.StatusCode,
			Body: string(bodyBytes),
		}
	}

	return resp.Body, nil
}
