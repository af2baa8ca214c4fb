package wire

import (
	"bufio"
	"encoding/json"
	"fmt"
)

// Writer serializes protocol events onto an outbound response body.
// Every line is flushed immediately so the client sees deltas as they
// are produced, not when the response ends.
type Writer struct {
	w *bufio.Writer
}

func NewWriter(w *bufio.Writer) *Writer {
	return &Writer{w: w}
}

func (wr *Writer) writeLine(tag byte, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %c-line: %w", tag, err)
	}
	if _, err := fmt.Fprintf(wr.w, "%c:%s\n", tag, data); err != nil {
		return err
	}
	return wr.w.Flush()
}

// WriteDelta emits a `0:` text-delta line.
func (wr *Writer) WriteDelta(text string) error {
	return wr.writeLine(TagText, text)
}

// WriteSources emits the `9:` attribution line. The caller is responsible
// for sending it at most once, immediately before the terminal pair.
func (wr *Writer) WriteSources(sources []Source) error {
	return wr.writeLine(TagSources, sources)
}

// WriteError emits a `3:` line. After it the stream is over.
func (wr *Writer) WriteError(message string) error {
	return wr.writeLine(TagError, message)
}

// WriteFinish emits the terminal pair (`e:` then `d:`) that closes every
// well-formed stream.
func (wr *Writer) WriteFinish(finishReason string, usage Usage) error {
	if err := wr.writeLine(TagPreTerminal, PreTerminal{
		FinishReason: finishReason,
		Usage:        usage,
		IsContinued:  false,
	}); err != nil {
		return err
	}
	return wr.writeLine(TagTerminal, Terminal{
		FinishReason: finishReason,
		Usage:        usage,
	})
}
