// Package wire implements the line-oriented data-stream protocol spoken
// between the chat backend and the browser/CLI client. Every line is a
// single-character tag, a colon, a JSON payload and a trailing newline
// (the Vercel AI data-stream v1 framing).
package wire

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Protocol tags.
const (
	TagText        = '0' // JSON string, text delta to append
	TagError       = '3' // JSON string, fatal error message
	TagSources     = '9' // JSON array of Source, at most once per stream
	TagPreTerminal = 'e' // JSON object, pre-terminal finish metadata
	TagTerminal    = 'd' // JSON object, terminal finish metadata
)

// Source is a web page surfaced to the user as attribution for an
// augmented answer.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Usage mirrors the token accounting object carried by the terminal pair.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

// Event is the closed union of protocol lines. Exactly one PreTerminal
// followed by one Terminal closes a well-formed stream.
type Event interface {
	isEvent()
}

// TextDelta is an incremental fragment of assistant text.
type TextDelta string

// Sources replaces the attribution list wholesale.
type Sources []Source

// ErrorEvent carries a fatal error message and ends the stream early.
type ErrorEvent string

// PreTerminal is the `e:` half of the terminal pair.
type PreTerminal struct {
	FinishReason string `json:"finishReason"`
	Usage        Usage  `json:"usage"`
	IsContinued  bool   `json:"isContinued"`
}

// Terminal is the `d:` half of the terminal pair.
type Terminal struct {
	FinishReason string `json:"finishReason"`
	Usage        Usage  `json:"usage"`
}

func (TextDelta) isEvent()   {}
func (Sources) isEvent()     {}
func (ErrorEvent) isEvent()  {}
func (PreTerminal) isEvent() {}
func (Terminal) isEvent()    {}

// ParseLine decodes one protocol line (without its trailing newline).
// Unknown tags yield (nil, nil) so the consumer can skip lines added by
// future protocol revisions.
func ParseLine(line string) (Event, error) {
	if len(line) < 2 || line[1] != ':' {
		return nil, fmt.Errorf("wire: malformed line %q", truncateForError(line))
	}
	payload := line[2:]

	switch line[0] {
	case TagText:
		var text string
		if err := json.Unmarshal([]byte(payload), &text); err != nil {
			return nil, fmt.Errorf("wire: bad text delta: %w", err)
		}
		return TextDelta(text), nil
	case TagSources:
		var sources []Source
		if err := json.Unmarshal([]byte(payload), &sources); err != nil {
			return nil, fmt.Errorf("wire: bad source list: %w", err)
		}
		return Sources(sources), nil
	case TagError:
		var msg string
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			return nil, fmt.Errorf("wire: bad error payload: %w", err)
		}
		return ErrorEvent(msg), nil
	case TagPreTerminal:
		var ev PreTerminal
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("wire: bad pre-terminal payload: %w", err)
		}
		return ev, nil
	case TagTerminal:
		var ev Terminal
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("wire: bad terminal payload: %w", err)
		}
		return ev, nil
	default:
		return nil, nil
	}
}

func truncateForError(s string) string {
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return strings.TrimSpace(s)
}
