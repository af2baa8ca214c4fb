package wire

import "bytes"

// Scanner reassembles protocol lines from network chunks that may split a
// line anywhere, including inside a multi-byte UTF-8 sequence. The pending
// buffer holds raw bytes, so a rune split across two chunks is whole again
// by the time a complete line is parsed.
type Scanner struct {
	pending []byte
}

// Consume appends a chunk and returns every event whose line is now
// complete. A trailing fragment without a newline stays buffered for the
// next chunk. Lines with unknown tags are skipped; a malformed line for a
// known tag is returned as an error together with the events parsed
// before it.
func (s *Scanner) Consume(chunk []byte) ([]Event, error) {
	s.pending = append(s.pending, chunk...)

	var events []Event
	for {
		idx := bytes.IndexByte(s.pending, '\n')
		if idx < 0 {
			return events, nil
		}
		line := string(s.pending[:idx])
		s.pending = s.pending[idx+1:]

		if line == "" {
			continue
		}
		ev, err := ParseLine(line)
		if err != nil {
			return events, err
		}
		if ev != nil {
			events = append(events, ev)
		}
	}
}

// Rest returns whatever incomplete fragment is still buffered. After a
// well-formed stream it is empty.
func (s *Scanner) Rest() string {
	return string(s.pending)
}
