package service

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"atmo-chat-be/internal/constant"
	"atmo-chat-be/internal/dto"
	"atmo-chat-be/internal/pkg/logger"
	"atmo-chat-be/pkg/cache"
	"atmo-chat-be/pkg/llm"
	"atmo-chat-be/pkg/llm/sse"
	"atmo-chat-be/pkg/search"
	"atmo-chat-be/pkg/wire"
)

type IChatService interface {
	// Prepare validates the request, resolves cacheability, runs the
	// search gate and opens the upstream stream. It does everything that
	// can still fail with a meaningful status code; once it returns a
	// plan the response is committed to 200.
	Prepare(ctx context.Context, req *dto.ChatRequest) (*StreamPlan, error)

	// Pump re-frames the planned stream onto the outbound body.
	Pump(ctx context.Context, plan *StreamPlan, w *bufio.Writer)

	CacheStats() dto.CacheStatsResponse
}

// StreamPlan is the outcome of Prepare: either a cached response to
// synthesize, or an open upstream stream to decode and re-frame.
type StreamPlan struct {
	Cached   string        // non-empty means cache hit
	Upstream io.ReadCloser // nil on cache hit
	Sources  []wire.Source

	model     string
	query     string
	cacheable bool
}

func (p *StreamPlan) CacheHit() bool {
	return p.Cached != ""
}

type chatService struct {
	provider      llm.StreamingProvider
	searchClient  *search.Client
	responseCache *cache.ResponseCache
	logger        logger.ILogger
	defaultModel  string
}

func NewChatService(
	provider llm.StreamingProvider,
	searchClient *search.Client,
	responseCache *cache.ResponseCache,
	sysLogger logger.ILogger,
	defaultModel string,
) IChatService {
	if defaultModel == "" {
		defaultModel = constant.DefaultChatModel
	}
	return &chatService{
		provider:      provider,
		searchClient:  searchClient,
		responseCache: responseCache,
		logger:        sysLogger,
		defaultModel:  defaultModel,
	}
}

func (s *chatService) Prepare(ctx context.Context, req *dto.ChatRequest) (*StreamPlan, error) {
	model := req.Model
	if model == "" {
		model = s.defaultModel
	}

	userQuery := lastUserQuery(req.Messages)

	plan := &StreamPlan{
		model: model,
		query: userQuery,
		// Multi-turn and deep-think requests are never cached: the
		// answer may depend on prior turns or on a different compute
		// budget.
		cacheable: len(req.Messages) == 1 && !req.DeepThink && userQuery != "",
	}

	if plan.cacheable {
		if cached, hit := s.responseCache.Get(cache.Key(model, userQuery)); hit {
			s.logger.Info("CHAT", "cache hit", map[string]interface{}{"model": model})
			plan.Cached = cached
			return plan, nil
		}
	}

	systemPrompt := constant.RegularPrompt
	if req.DeepThink {
		systemPrompt = constant.DeepThinkPrompt
	}

	if search.ShouldSearch(userQuery) {
		// Search is best-effort; a nil response silently skips
		// augmentation.
		if resp := s.searchClient.Search(ctx, userQuery); resp != nil {
			systemPrompt += search.FormatContext(resp)
			plan.Sources = search.FilterSources(resp)
		}
	}

	history := make([]llm.Message, 0, len(req.Messages)+1)
	history = append(history, llm.Message{
		Role:    constant.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	for _, m := range req.Messages {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}

	upstream, err := s.provider.StreamChat(ctx, history, llm.WithModel(model))
	if err != nil {
		return nil, err
	}
	plan.Upstream = upstream
	return plan, nil
}

func (s *chatService) Pump(ctx context.Context, plan *StreamPlan, w *bufio.Writer) {
	wr := wire.NewWriter(w)

	if plan.CacheHit() {
		// The whole answer goes out as a single delta, not re-chunked.
		if err := wr.WriteDelta(plan.Cached); err != nil {
			return
		}
		wr.WriteFinish("stop", wire.Usage{})
		return
	}

	defer plan.Upstream.Close()

	decoder := &sse.Decoder{}
	var fullResponse strings.Builder
	buf := make([]byte, 4096)

	for {
		n, readErr := plan.Upstream.Read(buf)
		if n > 0 {
			deltas, _ := decoder.Consume(buf[:n])
			for _, delta := range deltas {
				fullResponse.WriteString(delta)
				if err := wr.WriteDelta(delta); err != nil {
					return // client went away
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if ctx.Err() != nil || errors.Is(readErr, context.Canceled) {
				// Cancelled by the client; partial text it already has
				// stays valid, nothing else to send.
				return
			}
			s.logger.Error("CHAT", "upstream read failed", map[string]interface{}{"error": readErr.Error()})
			wr.WriteError("The response stream was interrupted.")
			return
		}
	}

	deltas, leftover := decoder.Flush()
	for _, delta := range deltas {
		fullResponse.WriteString(delta)
		if err := wr.WriteDelta(delta); err != nil {
			return
		}
	}
	if leftover != "" {
		// Never surfaced: the visible text is already correct.
		s.logger.Warn("CHAT", "discarding unparseable trailing fragment", map[string]interface{}{
			"bytes": len(leftover),
		})
	}

	if len(plan.Sources) > 0 {
		if err := wr.WriteSources(plan.Sources); err != nil {
			return
		}
	}
	if err := wr.WriteFinish("stop", wire.Usage{}); err != nil {
		return
	}

	if plan.cacheable && decoder.Done() && fullResponse.Len() > 0 {
		s.responseCache.Put(cache.Key(plan.model, plan.query), fullResponse.String())
	}
}

func (s *chatService) CacheStats() dto.CacheStatsResponse {
	return dto.CacheStatsResponse{
		Size:    s.responseCache.Len(),
		MaxSize: s.responseCache.Cap(),
	}
}

// lastUserQuery returns the content of the most recent user turn.
func lastUserQuery(messages []dto.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == constant.ChatMessageRoleUser {
			return messages[i].Content
		}
	}
	return ""
}
