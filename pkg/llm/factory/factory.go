package factory

import (
	"atmo-chat-be/pkg/llm"
	"atmo-chat-be/pkg/llm/openrouter"
	"fmt"
	"time"
)

func NewStreamingProvider(providerType, modelName, baseURL, apiKey string, requestTimeout time.Duration) (llm.StreamingProvider, error) {
	switch providerType {
	case "openrouter":
		return openrouter.NewOpenRouterProvider(baseURL, apiKey, modelName, requestTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
