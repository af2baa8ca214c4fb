package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"atmo-chat-be/internal/dto"
	"atmo-chat-be/pkg/cache"
	"atmo-chat-be/pkg/llm"
	"atmo-chat-be/pkg/search"
	"atmo-chat-be/pkg/wire"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test doubles ---

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type fakeProvider struct {
	body        io.ReadCloser
	err         error
	lastHistory []llm.Message
}

func (f *fakeProvider) StreamChat(ctx context.Context, history []llm.Message, opts ...llm.Option) (io.ReadCloser, error) {
	f.lastHistory = history
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

// sseBody renders provider frames the way OpenRouter chunks them.
func sseBody(deltas ...string) io.ReadCloser {
	var b strings.Builder
	for _, d := range deltas {
		frame := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"delta": map[string]string{"content": d}},
			},
		}
		data, _ := json.Marshal(frame)
		fmt.Fprintf(&b, "data: %s\n\n", data)
	}
	b.WriteString("data: [DONE]\n\n")
	return io.NopCloser(strings.NewReader(b.String()))
}

// failingReader yields its prefix bytes, then a transport error.
type failingReader struct {
	prefix *strings.Reader
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.prefix.Len() > 0 {
		return r.prefix.Read(p)
	}
	return 0, errors.New("connection reset")
}

func (r *failingReader) Close() error { return nil }

func newService(provider llm.StreamingProvider, searchClient *search.Client) (IChatService, *cache.ResponseCache) {
	if searchClient == nil {
		searchClient = search.NewClient("http://example.invalid", "")
	}
	responseCache := cache.New(10, time.Hour)
	svc := NewChatService(provider, searchClient, responseCache, nopLogger{}, "test-model")
	return svc, responseCache
}

func pump(t *testing.T, svc IChatService, plan *StreamPlan) []wire.Event {
	t.Helper()
	var buf bytes.Buffer
	svc.Pump(context.Background(), plan, bufio.NewWriter(&buf))

	scanner := &wire.Scanner{}
	events, err := scanner.Consume(buf.Bytes())
	require.NoError(t, err)
	require.Empty(t, scanner.Rest())
	return events
}

func collect(events []wire.Event) (content string, tags []rune) {
	for _, ev := range events {
		switch ev := ev.(type) {
		case wire.TextDelta:
			content += string(ev)
			tags = append(tags, '0')
		case wire.Sources:
			tags = append(tags, '9')
		case wire.ErrorEvent:
			tags = append(tags, '3')
		case wire.PreTerminal:
			tags = append(tags, 'e')
		case wire.Terminal:
			tags = append(tags, 'd')
		}
	}
	return content, tags
}

func singleTurn(query string) *dto.ChatRequest {
	return &dto.ChatRequest{
		Messages: []dto.ChatMessage{{Role: "user", Content: query}},
	}
}

// --- Tests ---

func TestPumpReframesUpstreamAndPopulatesCache(t *testing.T) {
	provider := &fakeProvider{body: sseBody("a", "b", "c")}
	svc, _ := newService(provider, nil)

	plan, err := svc.Prepare(context.Background(), singleTurn("What is photosynthesis?"))
	require.NoError(t, err)
	assert.False(t, plan.CacheHit())

	content, tags := collect(pump(t, svc, plan))
	assert.Equal(t, "abc", content)
	assert.Equal(t, "000ed", string(tags))

	// System prompt went in ahead of the user turn.
	require.NotEmpty(t, provider.lastHistory)
	assert.Equal(t, "system", provider.lastHistory[0].Role)
	assert.Contains(t, provider.lastHistory[0].Content, "Atmo")

	// The completed answer is now served from cache.
	plan2, err := svc.Prepare(context.Background(), singleTurn("what is photosynthesis?"))
	require.NoError(t, err)
	assert.True(t, plan2.CacheHit())
	assert.Equal(t, "abc", plan2.Cached)

	assert.Equal(t, 1, svc.CacheStats().Size)
}

func TestCacheHitSynthesizedAsSingleDelta(t *testing.T) {
	provider := &fakeProvider{body: sseBody("hel", "lo")}
	svc, _ := newService(provider, nil)

	plan, err := svc.Prepare(context.Background(), singleTurn("greeting"))
	require.NoError(t, err)
	pump(t, svc, plan)

	plan2, err := svc.Prepare(context.Background(), singleTurn("greeting"))
	require.NoError(t, err)
	require.True(t, plan2.CacheHit())

	content, tags := collect(pump(t, svc, plan2))
	assert.Equal(t, "hello", content)
	// Whole response in one delta, not re-chunked.
	assert.Equal(t, "0ed", string(tags))
}

func TestMultiTurnNeverHitsCache(t *testing.T) {
	provider := &fakeProvider{body: sseBody("answer")}
	svc, responseCache := newService(provider, nil)

	plan, err := svc.Prepare(context.Background(), singleTurn("same question"))
	require.NoError(t, err)
	pump(t, svc, plan)
	require.Equal(t, 1, responseCache.Len())

	multiTurn := &dto.ChatRequest{
		Messages: []dto.ChatMessage{
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "hi"},
			{Role: "user", Content: "same question"},
		},
	}
	provider.body = sseBody("fresh")
	plan2, err := svc.Prepare(context.Background(), multiTurn)
	require.NoError(t, err)
	assert.False(t, plan2.CacheHit(), "identical query must not hit cache in a multi-turn conversation")

	// And the multi-turn completion must not be stored either.
	pump(t, svc, plan2)
	assert.Equal(t, 1, responseCache.Len())
}

func TestDeepThinkNeverHitsCacheAndSwapsPrompt(t *testing.T) {
	provider := &fakeProvider{body: sseBody("cached answer")}
	svc, responseCache := newService(provider, nil)

	plan, err := svc.Prepare(context.Background(), singleTurn("hard question"))
	require.NoError(t, err)
	pump(t, svc, plan)
	require.Equal(t, 1, responseCache.Len())

	provider.body = sseBody("deep answer")
	deepReq := singleTurn("hard question")
	deepReq.DeepThink = true

	plan2, err := svc.Prepare(context.Background(), deepReq)
	require.NoError(t, err)
	assert.False(t, plan2.CacheHit())
	assert.Contains(t, provider.lastHistory[0].Content, "Deep Thinking Mode")

	pump(t, svc, plan2)
	assert.Equal(t, 1, responseCache.Len(), "deep-think completions are never cached")
}

func TestEmptyQueryNotCacheable(t *testing.T) {
	provider := &fakeProvider{body: sseBody("hm")}
	svc, responseCache := newService(provider, nil)

	plan, err := svc.Prepare(context.Background(), singleTurn(""))
	require.NoError(t, err)
	pump(t, svc, plan)
	assert.Equal(t, 0, responseCache.Len())
}

func TestSearchAugmentationAndSourcesEvent(t *testing.T) {
	tavily := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(search.Response{
			Query:  "q",
			Answer: "424 ppm",
			Results: []search.Result{
				{Title: "NOAA", URL: "https://noaa.gov", Content: "co2", Score: 0.9},
				{Title: "low", URL: "https://low.example", Content: "c", Score: 0.2},
			},
		})
	}))
	defer tavily.Close()

	provider := &fakeProvider{body: sseBody("The level is 424 ppm.")}
	svc, _ := newService(provider, search.NewClient(tavily.URL, "test-key"))

	plan, err := svc.Prepare(context.Background(), singleTurn("What is the current CO2 level?"))
	require.NoError(t, err)
	require.Len(t, plan.Sources, 1)
	assert.Equal(t, "NOAA", plan.Sources[0].Title)
	assert.Contains(t, provider.lastHistory[0].Content, "Web Search Results")

	_, tags := collect(pump(t, svc, plan))
	// Sources go out exactly once, immediately before the terminal pair.
	assert.Equal(t, "09ed", string(tags))
}

func TestSearchFailureDegradesSilently(t *testing.T) {
	provider := &fakeProvider{body: sseBody("best effort")}
	// Client with a key but an unreachable endpoint: the call fails, the
	// chat request must not.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	svc, _ := newService(provider, search.NewClient(srv.URL, "test-key"))

	plan, err := svc.Prepare(context.Background(), singleTurn("What is the current CO2 level?"))
	require.NoError(t, err)
	assert.Empty(t, plan.Sources)

	content, tags := collect(pump(t, svc, plan))
	assert.Equal(t, "best effort", content)
	assert.Equal(t, "0ed", string(tags))
}

func TestUpstreamStatusErrorPassesThrough(t *testing.T) {
	provider := &fakeProvider{err: &llm.StatusError{Code: 429, Body: "rate limited"}}
	svc, _ := newService(provider, nil)

	_, err := svc.Prepare(context.Background(), singleTurn("anything"))
	var statusErr *llm.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 429, statusErr.Code)
}

func TestMidStreamFailureEmitsErrorLineAndSkipsCache(t *testing.T) {
	frame := "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n"
	provider := &fakeProvider{body: &failingReader{prefix: strings.NewReader(frame)}}
	svc, responseCache := newService(provider, nil)

	plan, err := svc.Prepare(context.Background(), singleTurn("doomed"))
	require.NoError(t, err)

	content, tags := collect(pump(t, svc, plan))
	assert.Equal(t, "partial", content)
	assert.Equal(t, "03", string(tags), "delta then error line, no terminal pair")
	assert.Equal(t, 0, responseCache.Len())
}

func TestTrailingFragmentDiscarded(t *testing.T) {
	raw := "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n" +
		"data: [DONE]\n" +
		"data: {\"choi" // garbage after the sentinel, cut mid-frame
	provider := &fakeProvider{body: io.NopCloser(strings.NewReader(raw))}
	svc, _ := newService(provider, nil)

	plan, err := svc.Prepare(context.Background(), singleTurn("tail"))
	require.NoError(t, err)

	content, tags := collect(pump(t, svc, plan))
	assert.Equal(t, "ok", content)
	assert.Equal(t, "0ed", string(tags))
}
