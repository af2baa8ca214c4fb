// Package chatclient is the consuming half of the wire protocol: a chat
// session that posts the conversation to the backend, reads the streamed
// body incrementally and reconstructs assistant text, sources and status
// from protocol lines. It is what the browser hook does, packaged for Go
// callers (the CLI, tests, other services).
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"atmo-chat-be/pkg/wire"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Status string

const (
	StatusReady     Status = "ready"
	StatusStreaming Status = "streaming"
	StatusError     Status = "error"
)

// Message is one turn of the conversation as the UI sees it.
type Message struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatError is the single error shape surfaced to the UI. Retryable
// decides whether a retry affordance is shown.
type ChatError struct {
	Message   string
	Code      string
	Retryable bool
}

func (e *ChatError) Error() string {
	return e.Message
}

// Session owns one conversation. One request is in flight at a time;
// Stop may be called from another goroutine while SendMessage streams.
type Session struct {
	endpoint   string
	httpClient *http.Client
	model      string
	deepThink  bool
	onDelta    func(string) // optional, called per text delta, set once at construction

	mu        sync.Mutex
	messages  []Message
	sources   []wire.Source
	status    Status
	lastErr   *ChatError
	lastInput string
	cancel    context.CancelFunc
}

type Option func(*Session)

func WithModel(model string) Option {
	return func(s *Session) {
		s.model = model
	}
}

func WithDeepThink(enabled bool) Option {
	return func(s *Session) {
		s.deepThink = enabled
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *Session) {
		s.httpClient = client
	}
}

// WithDeltaHandler registers a callback invoked for every text delta as
// it arrives, for progressive rendering.
func WithDeltaHandler(handler func(delta string)) Option {
	return func(s *Session) {
		s.onDelta = handler
	}
}

// NewSession creates a session against baseURL (e.g. "http://localhost:3000").
func NewSession(baseURL string, opts ...Option) *Session {
	s := &Session{
		endpoint:   strings.TrimSuffix(baseURL, "/") + "/api/chat",
		httpClient: http.DefaultClient,
		status:     StatusReady,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- Snapshot accessors ---

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Err() *ChatError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) Sources() []wire.Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wire.Source, len(s.sources))
	copy(out, s.sources)
	return out
}

// ClearError dismisses the current error and returns to ready.
func (s *Session) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = nil
	s.status = StatusReady
}

// Stop aborts the in-flight request. Partial assistant content already
// received stays in the conversation; the session returns to ready, not
// error.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.status = StatusReady
}

// SendMessage submits one user turn and blocks until the streamed answer
// completes, is cancelled, or fails. Empty input and sends while already
// streaming are no-ops.
func (s *Session) SendMessage(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	s.mu.Lock()
	if s.status == StatusStreaming {
		s.mu.Unlock()
		return nil
	}

	s.lastInput = content
	s.lastErr = nil
	s.sources = nil

	// User turn and empty assistant placeholder go in together, before
	// the first byte arrives.
	s.messages = append(s.messages,
		Message{ID: uuid.NewString(), Role: RoleUser, Content: content},
		Message{ID: uuid.NewString(), Role: RoleAssistant, Content: ""},
	)
	history := make([]Message, len(s.messages)-1)
	copy(history, s.messages[:len(s.messages)-1])

	s.status = StatusStreaming
	reqCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	err := s.stream(reqCtx, history)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = nil

	if err == nil {
		s.status = StatusReady
		return nil
	}
	if errors.Is(err, context.Canceled) {
		// Aborted by Stop (or the caller's context): silent return to
		// ready, partial content stays as-is.
		s.status = StatusReady
		return nil
	}

	chatErr := asChatError(err)
	s.lastErr = chatErr
	s.status = StatusError
	// Never leave a blank assistant bubble behind a failure.
	if len(s.messages) > 0 {
		s.messages = s.messages[:len(s.messages)-1]
	}
	return chatErr
}

// Retry reissues the last input after discarding the failed user turn,
// so history is never duplicated. The failed assistant placeholder was
// already dropped when the error was recorded.
func (s *Session) Retry(ctx context.Context) error {
	s.mu.Lock()
	input := s.lastInput
	if s.status != StatusError || input == "" {
		s.mu.Unlock()
		return nil
	}
	if len(s.messages) > 0 {
		s.messages = s.messages[:len(s.messages)-1]
	}
	s.lastErr = nil
	s.status = StatusReady
	s.mu.Unlock()

	return s.SendMessage(ctx, input)
}

// --- Streaming internals ---

type chatRequest struct {
	Messages  []requestMessage `json:"messages"`
	Model     string           `json:"model,omitempty"`
	DeepThink bool             `json:"deepThink,omitempty"`
}

type requestMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *Session) stream(ctx context.Context, history []Message) error {
	msgs := make([]requestMessage, len(history))
	for i, m := range history {
		msgs[i] = requestMessage{Role: m.Role, Content: m.Content}
	}
	payload, err := json.Marshal(chatRequest{
		Messages:  msgs,
		Model:     s.model,
		DeepThink: s.deepThink,
	})
	if err != nil {
		return &ChatError{Message: "An unexpected error occurred.", Retryable: true}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return &ChatError{Message: "An unexpected error occurred.", Retryable: true}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return context.Canceled
		}
		return &ChatError{
			Message:   "Unable to connect. Check your internet connection.",
			Retryable: true,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp)
	}

	scanner := &wire.Scanner{}
	buf := make([]byte, 4096)

	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			events, _ := scanner.Consume(buf[:n])
			for _, ev := range events {
				switch ev := ev.(type) {
				case wire.TextDelta:
					s.appendToAssistant(string(ev))
					if s.onDelta != nil {
						s.onDelta(string(ev))
					}
				case wire.Sources:
					s.replaceSources(ev)
				case wire.ErrorEvent:
					return &ChatError{Message: string(ev), Retryable: true}
				case wire.PreTerminal, wire.Terminal:
					// Markers only; completion is implied by stream end.
				}
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return context.Canceled
			}
			return &ChatError{
				Message:   "Connection lost while receiving the response.",
				Retryable: true,
			}
		}
	}
}

// errorFromResponse maps a non-2xx response to a ChatError: the JSON
// error body wins, otherwise status-specific fallbacks.
func errorFromResponse(resp *http.Response) *ChatError {
	message := "Something went wrong. Please try again."
	retryable := true

	raw, _ := io.ReadAll(resp.Body)
	var errBody struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &errBody) == nil && errBody.Error != "" {
		message = errBody.Error
	} else if resp.StatusCode == http.StatusTooManyRequests {
		message = "Too many requests. Please wait a moment."
	} else if resp.StatusCode == http.StatusServiceUnavailable {
		message = "Service temporarily unavailable."
		retryable = false
	}

	return &ChatError{
		Message:   message,
		Code:      strconv.Itoa(resp.StatusCode),
		Retryable: retryable,
	}
}

// appendToAssistant applies a text delta to the last message as a
// functional update: the slice is replaced with a copy carrying the
// appended text, so snapshots handed out earlier never mutate.
func (s *Session) appendToAssistant(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 || s.messages[len(s.messages)-1].Role != RoleAssistant {
		return
	}
	updated := make([]Message, len(s.messages))
	copy(updated, s.messages)
	updated[len(updated)-1].Content += text
	s.messages = updated
}

func (s *Session) replaceSources(sources []wire.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append([]wire.Source(nil), sources...)
}

func asChatError(err error) *ChatError {
	var chatErr *ChatError
	if errors.As(err, &chatErr) {
		return chatErr
	}
	return &ChatError{Message: "An unexpected error occurred.", Retryable: true}
}
