package search

import (
	"fmt"
	"strings"

	"atmo-chat-be/pkg/wire"
)

const (
	// Excerpt lengths differ on purpose: model context gets more text
	// than the attribution list shown to the user.
	contextExcerptLen = 200
	sourceExcerptLen  = 150

	maxContextResults = 3
	maxSources        = 5
	minSourceScore    = 0.5
)

// FormatContext renders search results as additional system-instruction
// text, or an empty string when there is nothing to add.
func FormatContext(resp *Response) string {
	if resp == nil || len(resp.Results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\n---\n## Web Search Results (Real-time Data)\n\n")

	if resp.Answer != "" {
		fmt.Fprintf(&b, "**Summary:** %s\n\n", resp.Answer)
	}

	b.WriteString("**Sources:**\n")
	results := resp.Results
	if len(results) > maxContextResults {
		results = results[:maxContextResults]
	}
	for i, result := range results {
		fmt.Fprintf(&b, "%d. [%s](%s)\n", i+1, result.Title, result.URL)
		fmt.Fprintf(&b, "   %s...\n\n", truncate(result.Content, contextExcerptLen))
	}

	b.WriteString("---\n\nUse the above search results to ground your response in current data. Cite sources when using specific facts.\n")
	return b.String()
}

// FilterSources derives the user-facing attribution list: results scoring
// above the relevance floor, in the provider's original ranking, capped
// at five, with shortened excerpts.
func FilterSources(resp *Response) []wire.Source {
	if resp == nil {
		return nil
	}
	var sources []wire.Source
	for _, result := range resp.Results {
		if result.Score <= minSourceScore {
			continue
		}
		sources = append(sources, wire.Source{
			Title:   result.Title,
			URL:     result.URL,
			Content: truncate(result.Content, sourceExcerptLen),
		})
		if len(sources) == maxSources {
			break
		}
	}
	return sources
}

// truncate cuts on a rune boundary so a multi-byte character is never
// split mid-sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
