// Package sse decodes the OpenAI-style Server-Sent-Events stream emitted
// by completion providers into content deltas. The decoder is pure (no
// I/O) so the tricky chunk-boundary cases are unit-testable: HTTP chunking
// may split a frame mid-prefix, mid-JSON or mid-UTF-8-codepoint, and the
// decoder must reassemble them without dropping or duplicating text.
package sse

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"
)

// Decoder accumulates provider bytes across reads and yields deltas as
// soon as their frame is complete. One Decoder serves one request.
type Decoder struct {
	pending []byte
	done    bool
}

// Consume appends one received chunk and returns the content deltas whose
// frames completed with it, in arrival order. done turns true once the
// [DONE] sentinel has been seen and stays true.
//
// A frame line that ends in a newline but fails to parse as JSON is not
// treated as bad data: it is evidence the line was split by the transport.
// The fragment is put back at the front of the buffer and processing stops
// until more bytes arrive. Whatever never heals is dropped by Flush.
func (d *Decoder) Consume(chunk []byte) (deltas []string, done bool) {
	d.pending = append(d.pending, chunk...)

	for {
		idx := bytes.IndexByte(d.pending, '\n')
		if idx < 0 {
			return deltas, d.done
		}
		line := strings.TrimSuffix(string(d.pending[:idx]), "\r")
		rest := d.pending[idx+1:]

		if strings.TrimSpace(line) == "" || !strings.HasPrefix(line, dataPrefix) {
			d.pending = rest
			continue
		}

		payload := line[len(dataPrefix):]
		if payload == doneSentinel {
			d.done = true
			d.pending = rest
			continue
		}

		delta, ok := extractDelta(payload)
		if !ok {
			// Incomplete frame: re-queue in front of the buffer, without
			// the newline so the continuation concatenates onto it.
			d.pending = append([]byte(line), rest...)
			return deltas, d.done
		}
		d.pending = rest
		if delta != "" {
			deltas = append(deltas, delta)
		}
	}
}

// Flush is called at end-of-stream. It gives any buffered fragment one
// last chance to parse as a complete frame; a fragment that still fails is
// returned as leftover for the caller to log, never surfaced as text.
func (d *Decoder) Flush() (deltas []string, leftover string) {
	line := strings.TrimSuffix(string(d.pending), "\r")
	d.pending = nil

	if strings.TrimSpace(line) == "" {
		return nil, ""
	}
	if strings.HasPrefix(line, dataPrefix) {
		payload := line[len(dataPrefix):]
		if payload == doneSentinel {
			d.done = true
			return nil, ""
		}
		if delta, ok := extractDelta(payload); ok {
			if delta != "" {
				deltas = append(deltas, delta)
			}
			return deltas, ""
		}
	}
	return nil, line
}

// Done reports whether the [DONE] sentinel has been seen.
func (d *Decoder) Done() bool {
	return d.done
}

// completionFrame matches choices[0].delta.content in the provider frame.
type completionFrame struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func extractDelta(payload string) (string, bool) {
	var frame completionFrame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		return "", false
	}
	if len(frame.Choices) == 0 {
		return "", true
	}
	return frame.Choices[0].Delta.Content, true
}
