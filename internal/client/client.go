// Package client is the HTTP client for relayd's API, used by the operator
// CLI commands.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/realflats/relay/internal/model"
)

// Request is the wire form of a request as the API returns it.
type Request struct {
	ID           string                   `json:"id"`
	AuthorID     string                   `json:"author_id"`
	Attrs        model.Attributes         `json:"attrs,omitempty"`
	Status       string                   `json:"status"`
	CreatedAt    string                   `json:"created_at"`
	Publication  *model.PublicationHandle `json:"publication,omitempty"`
	ClosedAt     string                   `json:"closed_at,omitempty"`
	ClosedReason string                   `json:"closed_reason,omitempty"`
}

// APIError is a non-2xx response from the daemon.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// Client talks to a relayd instance over HTTP/JSON.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client targeting the given base URL
// (e.g. "http://localhost:8080").
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// ListOptions filter the request listing.
type ListOptions struct {
	AuthorID string
	Status   string
	Limit    int
}

// List returns requests matching the options.
func (c *Client) List(ctx context.Context, opts ListOptions) ([]Request, error) {
	q := url.Values{}
	if opts.AuthorID != "" {
		q.Set("author", opts.AuthorID)
	}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}

	path := "/v1/requests"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Requests []Request `json:"requests"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Requests, nil
}

// Get returns one request by id.
func (c *Client) Get(ctx context.Context, id string) (*Request, error) {
	var req Request
	if err := c.doJSON(ctx, http.MethodGet, "/v1/requests/"+url.PathEscape(id), nil, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Close closes a request as the given actor.
func (c *Client) Close(ctx context.Context, id, actorID, reason string) (*Request, error) {
	body := map[string]string{"actor_id": actorID}
	if reason != "" {
		body["reason"] = reason
	}
	var req Request
	if err := c.doJSON(ctx, http.MethodPost, "/v1/requests/"+url.PathEscape(id)+"/close", body, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Health checks the daemon's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/healthz", nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
