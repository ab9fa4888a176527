// Package mem0 provides a client for the mem0 platform memory API.
package mem0

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
)

const (
	addPath    = "/v1/memories/"
	searchPath = "/v1/memories/search/"
	userAgent  = "mem0-mcp/0.0.1"

	// RoleUser is the only message role this server sends.
	RoleUser = "user"
)

// Message is a single conversation entry sent to the add endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AddOptions scopes an add call.
type AddOptions struct {
	UserID   string
	Metadata map[string]any
}

// SearchOptions scopes a search call.
type SearchOptions struct {
	UserID string
}

// SearchResult is one entry of a search response. Ordering and scoring belong to the service.
type SearchResult struct {
	ID     string  `json:"id,omitempty"`
	Memory string  `json:"memory"`
	Score  float64 `json:"score"`
}

type addRequest struct {
	Messages []Message      `json:"messages"`
	UserID   string         `json:"user_id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type searchRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id"`
}

// APIError is returned when the service answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mem0 API error %d: %s", e.StatusCode, e.Body)
}

// Client talks to the mem0 REST API. It holds no per-call state.
type Client struct {
	http *resty.Client
}

// NewClient creates a client for baseURL authenticated with apiKey.
// The key is not checked here; the service rejects bad keys per call.
func NewClient(baseURL, apiKey string) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("Authorization", "Token "+apiKey).
		SetHeader("User-Agent", userAgent).
		SetRetryCount(0)

	return &Client{http: httpClient}
}

// Add stores messages for the user in opts.
func (c *Client) Add(ctx context.Context, messages []Message, opts AddOptions) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(addRequest{
			Messages: messages,
			UserID:   opts.UserID,
			Metadata: opts.Metadata,
		}).
		Post(addPath)
	if err != nil {
		return fmt.Errorf("add memory request: %w", err)
	}
	if resp.IsError() {
		return &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

// Search returns the memories matching query for the user in opts.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(searchRequest{
			Query:  query,
			UserID: opts.UserID,
		}).
		Post(searchPath)
	if err != nil {
		return nil, fmt.Errorf("search memories request: %w", err)
	}
	if resp.IsError() {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return decodeSearchResults(resp.Body())
}

// decodeSearchResults accepts either a bare array or an object with a "results" array.
func decodeSearchResults(body []byte) ([]SearchResult, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}

	if body[0] == '[' {
		var results []SearchResult
		if err := json.Unmarshal(body, &results); err != nil {
			return nil, fmt.Errorf("decode search response: %w", err)
		}
		return results, nil
	}

	var envelope struct {
		Results []SearchResult `json:"results"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return envelope.Results, nil
}
