package bootstrap

import (
	"log"

	"atmo-chat-be/internal/config"
	"atmo-chat-be/internal/controller"
	"atmo-chat-be/internal/pkg/logger"
	"atmo-chat-be/internal/service"
	"atmo-chat-be/pkg/cache"
	"atmo-chat-be/pkg/llm/factory"
	"atmo-chat-be/pkg/search"
)

type Container struct {
	// Controllers
	ChatController controller.IChatController

	// Shared facades
	Logger logger.ILogger
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Process-wide response cache, constructed once and shared by
	// every request handler.
	responseCache := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)

	// 3. External collaborators
	searchClient := search.NewClient(cfg.Ai.TavilyAPIURL, cfg.Keys.Tavily)
	if cfg.Keys.Tavily == "" {
		log.Println("[INFO] Tavily key unset, web-search augmentation disabled")
	}

	provider, err := factory.NewStreamingProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.LLMBaseURL,
		cfg.Keys.OpenRouter,
		cfg.Ai.RequestTimeout,
	)
	if err != nil {
		log.Panicf("Unable to initialize LLM provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Services
	chatService := service.NewChatService(provider, searchClient, responseCache, sysLogger, cfg.Ai.LLMModel)

	return &Container{
		ChatController: controller.NewChatController(chatService, sysLogger),
		Logger:         sysLogger,
	}
}
