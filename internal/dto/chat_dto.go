package dto

import "atmo-chat-be/internal/constant"

type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages  []ChatMessage `json:"messages" validate:"required,min=1,dive"`
	Model     string        `json:"model,omitempty"`
	DeepThink bool          `json:"deepThink,omitempty"`
}

// ErrorResponse is the JSON body of every non-2xx answer from the chat
// endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

type ModelCatalogResponse struct {
	DefaultModel string                          `json:"default_model"`
	Models       []constant.ChatModel            `json:"models"`
	ByProvider   map[string][]constant.ChatModel `json:"by_provider"`
}

// CacheStatsResponse mirrors the debug cache counters.
type CacheStatsResponse struct {
	Size    int `json:"size"`
	MaxSize int `json:"max_size"`
}
