package chatclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// streamHandler writes data-stream protocol lines with per-line flushes,
// the way the backend's body writer does.
func streamHandler(lines ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("x-vercel-ai-data-stream", "v1")
		flusher := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n", line)
			flusher.Flush()
		}
	}
}

func TestSendMessageReconstructsContentAndSources(t *testing.T) {
	srv := httptest.NewServer(streamHandler(
		`0:"The current level "`,
		`0:"is 424 ppm."`,
		`9:[{"title":"NOAA","url":"https://noaa.gov","content":"co2"}]`,
		`e:{"finishReason":"stop","usage":{"promptTokens":0,"completionTokens":0},"isContinued":false}`,
		`d:{"finishReason":"stop","usage":{"promptTokens":0,"completionTokens":0}}`,
	))
	defer srv.Close()

	session := NewSession(srv.URL)
	require.NoError(t, session.SendMessage(context.Background(), "What is the current CO2 level?"))

	assert.Equal(t, StatusReady, session.Status())
	assert.Nil(t, session.Err())

	messages := session.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, RoleUser, messages[0].Role)
	assert.Equal(t, "What is the current CO2 level?", messages[0].Content)
	assert.Equal(t, RoleAssistant, messages[1].Role)
	assert.Equal(t, "The current level is 424 ppm.", messages[1].Content)
	assert.NotEmpty(t, messages[0].ID)
	assert.NotEqual(t, messages[0].ID, messages[1].ID)

	sources := session.Sources()
	require.Len(t, sources, 1)
	assert.Equal(t, "NOAA", sources[0].Title)
}

func TestDeltaHandlerSeesEveryChunkInOrder(t *testing.T) {
	srv := httptest.NewServer(streamHandler(`0:"a"`, `0:"b"`, `0:"c"`))
	defer srv.Close()

	var got []string
	session := NewSession(srv.URL, WithDeltaHandler(func(delta string) {
		got = append(got, delta)
	}))
	require.NoError(t, session.SendMessage(context.Background(), "hi"))
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestEmptyInputIsNoOp(t *testing.T) {
	session := NewSession("http://example.invalid")
	require.NoError(t, session.SendMessage(context.Background(), "   "))
	assert.Empty(t, session.Messages())
	assert.Equal(t, StatusReady, session.Status())
}

func TestStopMidStreamKeepsPartialContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "0:\"partial \"\n")
		w.(http.Flusher).Flush()
		// Hold the stream open until the client gives up.
		<-r.Context().Done()
	}))
	defer srv.Close()

	var session *Session
	session = NewSession(srv.URL, WithDeltaHandler(func(string) {
		session.Stop()
	}))

	require.NoError(t, session.SendMessage(context.Background(), "long question"))

	// Abort is not an error: partial text stays, ready to continue.
	assert.Equal(t, StatusReady, session.Status())
	assert.Nil(t, session.Err())
	messages := session.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "partial ", messages[1].Content)
}

func TestRateLimitErrorAndRetryWithoutDuplication(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			// Non-JSON body forces the status fallback message.
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		streamHandler(`0:"second try worked"`).ServeHTTP(w, r)
	}))
	defer srv.Close()

	session := NewSession(srv.URL)
	err := session.SendMessage(context.Background(), "hello")
	require.Error(t, err)

	chatErr := session.Err()
	require.NotNil(t, chatErr)
	assert.Equal(t, "Too many requests. Please wait a moment.", chatErr.Message)
	assert.Equal(t, "429", chatErr.Code)
	assert.True(t, chatErr.Retryable)
	assert.Equal(t, StatusError, session.Status())

	// The failed turn leaves only the user message behind.
	require.Len(t, session.Messages(), 1)
	assert.Equal(t, RoleUser, session.Messages()[0].Role)

	require.NoError(t, session.Retry(context.Background()))
	assert.Equal(t, StatusReady, session.Status())

	// Exactly one user turn for "hello", not two.
	messages := session.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, "second try worked", messages[1].Content)
	assert.Equal(t, 2, calls)
}

func TestServiceUnavailableIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	session := NewSession(srv.URL)
	err := session.SendMessage(context.Background(), "hello")
	require.Error(t, err)

	chatErr := session.Err()
	require.NotNil(t, chatErr)
	assert.Equal(t, "Service temporarily unavailable.", chatErr.Message)
	assert.Equal(t, "503", chatErr.Code)
	assert.False(t, chatErr.Retryable)
}

func TestJSONErrorBodyWinsOverStatusFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":"OpenRouter error: 429"}`)
	}))
	defer srv.Close()

	session := NewSession(srv.URL)
	require.Error(t, session.SendMessage(context.Background(), "hello"))
	require.NotNil(t, session.Err())
	assert.Equal(t, "OpenRouter error: 429", session.Err().Message)
}

func TestInlineErrorEventRemovesPlaceholder(t *testing.T) {
	srv := httptest.NewServer(streamHandler(
		`0:"partial"`,
		`3:"The response stream was interrupted."`,
	))
	defer srv.Close()

	session := NewSession(srv.URL)
	err := session.SendMessage(context.Background(), "hello")
	require.Error(t, err)

	chatErr := session.Err()
	require.NotNil(t, chatErr)
	assert.Equal(t, "The response stream was interrupted.", chatErr.Message)
	assert.True(t, chatErr.Retryable)

	// The assistant bubble, partial text included, is removed on error.
	messages := session.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, RoleUser, messages[0].Role)
}

func TestRetryIsNoOpWhenReady(t *testing.T) {
	srv := httptest.NewServer(streamHandler(`0:"fine"`))
	defer srv.Close()

	session := NewSession(srv.URL)
	require.NoError(t, session.SendMessage(context.Background(), "hello"))
	require.NoError(t, session.Retry(context.Background()))

	// A successful exchange must never be dropped by a stray retry.
	assert.Len(t, session.Messages(), 2)
}

func TestRequestCarriesModelAndDeepThink(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 4096)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		streamHandler(`0:"ok"`).ServeHTTP(w, r)
	}))
	defer srv.Close()

	session := NewSession(srv.URL,
		WithModel("google/gemini-3-flash-preview"),
		WithDeepThink(true),
	)
	require.NoError(t, session.SendMessage(context.Background(), "think hard"))

	assert.Contains(t, gotBody, `"model":"google/gemini-3-flash-preview"`)
	assert.Contains(t, gotBody, `"deepThink":true`)
	assert.Contains(t, gotBody, `"role":"user"`)
}
