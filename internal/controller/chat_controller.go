package controller

import (
	"bufio"
	"errors"
	"fmt"

	"atmo-chat-be/internal/constant"
	"atmo-chat-be/internal/dto"
	"atmo-chat-be/internal/pkg/logger"
	"atmo-chat-be/internal/pkg/serverutils"
	"atmo-chat-be/internal/service"
	"atmo-chat-be/pkg/llm"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Chat(ctx *fiber.Ctx) error
	Models(ctx *fiber.Ctx) error
	CacheStats(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
	logger      logger.ILogger
}

func NewChatController(chatService service.IChatService, sysLogger logger.ILogger) IChatController {
	return &chatController{
		chatService: chatService,
		logger:      sysLogger,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	r.Post("/chat", c.Chat)
	r.Get("/chat/models", c.Models)
	r.Get("/chat/cache/stats", c.CacheStats)
}

// Chat handles POST /api/chat and streams the answer back as
// line-oriented data-stream frames.
func (c *chatController) Chat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).
			JSON(dto.ErrorResponse{Error: "Invalid request: messages array required"})
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).
			JSON(dto.ErrorResponse{Error: "Invalid request: messages array required"})
	}

	plan, err := c.chatService.Prepare(ctx.Context(), &req)
	if err != nil {
		// Upstream provider status codes pass through unchanged.
		var statusErr *llm.StatusError
		if errors.As(err, &statusErr) {
			c.logger.Error("CHAT", "upstream error", map[string]interface{}{
				"status": statusErr.Code,
				"body":   statusErr.Body,
			})
			return ctx.Status(statusErr.Code).
				JSON(dto.ErrorResponse{Error: fmt.Sprintf("OpenRouter error: %d", statusErr.Code)})
		}
		c.logger.Error("CHAT", "prepare failed", map[string]interface{}{"error": err.Error()})
		return ctx.Status(fiber.StatusInternalServerError).
			JSON(dto.ErrorResponse{Error: "An unexpected error occurred."})
	}

	ctx.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	ctx.Set("x-vercel-ai-data-stream", "v1")
	if plan.CacheHit() {
		ctx.Set("x-cache-hit", "true")
	}

	// The body writer runs after this handler returns; the fasthttp
	// request context doubles as the cancellation signal for the
	// upstream read when the client disconnects.
	reqCtx := ctx.Context()
	reqCtx.SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		c.chatService.Pump(reqCtx, plan, w)
	}))
	return nil
}

// Models returns the curated model catalog for the picker UI.
func (c *chatController) Models(ctx *fiber.Ctx) error {
	return ctx.JSON(dto.ModelCatalogResponse{
		DefaultModel: constant.DefaultChatModel,
		Models:       constant.ChatModels,
		ByProvider:   constant.ModelsByProvider(),
	})
}

// CacheStats exposes response-cache counters for debugging.
func (c *chatController) CacheStats(ctx *fiber.Ctx) error {
	return ctx.JSON(c.chatService.CacheStats())
}
