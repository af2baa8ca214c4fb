// Package search integrates the Tavily web-search API to ground answers
// about fast-moving climate data. Search is strictly best-effort: a
// missing credential or a failed call degrades to "no augmentation" and
// must never fail the chat request itself.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const DefaultAPIURL = "https://api.tavily.com/search"

// Result is one ranked hit as returned by Tavily.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Response is the Tavily search payload.
type Response struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
	Answer  string   `json:"answer,omitempty"`
}

type Client struct {
	APIURL     string
	APIKey     string
	HTTPClient *http.Client

	// Identical augmented queries within a short window reuse the same
	// search response instead of re-hitting Tavily.
	responses *gocache.Cache
}

func NewClient(apiURL, apiKey string) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		APIURL: apiURL,
		APIKey: apiKey,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		responses: gocache.New(5*time.Minute, 10*time.Minute),
	}
}

type searchRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	SearchDepth   string `json:"search_depth"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
	Topic         string `json:"topic"`
}

// Search performs one web search. It returns nil, not an error, when
// the credential is unset or the call fails in any way.
func (c *Client) Search(ctx context.Context, query string) *Response {
	if c.APIKey == "" {
		log.Println("[Tavily] API key not configured")
		return nil
	}

	if cached, found := c.responses.Get(query); found {
		return cached.(*Response)
	}

	payload, err := json.Marshal(searchRequest{
		APIKey:        c.APIKey,
		Query:         query, // raw query for better relevance
		SearchDepth:   "advanced",
		MaxResults:    5,
		IncludeAnswer: true,
		Topic:         "general",
	})
	if err != nil {
		log.Printf("[Tavily] marshal request failed: %v", err)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.APIURL, bytes.NewBuffer(payload))
	if err != nil {
		log.Printf("[Tavily] create request failed: %v", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		log.Printf("[Tavily] search failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorText, _ := io.ReadAll(resp.Body)
		log.Printf("[Tavily] API error: %d %s", resp.StatusCode, errorText)
		return nil
	}

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Printf("[Tavily] decode response failed: %v", err)
		return nil
	}

	log.Printf("[Tavily] search completed in %s, found %d results",
		time.Since(startTime).Round(time.Millisecond), len(result.Results))

	c.responses.Set(query, &result, gocache.DefaultExpiration)
	return &result
}
