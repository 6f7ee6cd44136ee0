// Package client is an HTTP client for the godecide API, used by the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"
)

// Client is an HTTP client for the godecide API
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// RuleSet is one rule set as served by the snapshot endpoint.
type RuleSet struct {
	Key         string          `json:"key"`
	Description string          `json:"description"`
	Env         string          `json:"env"`
	Document    json.RawMessage `json:"document"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Snapshot mirrors the /v1/rulesets/snapshot response.
type Snapshot struct {
	ETag      string             `json:"etag"`
	RuleSets  map[string]RuleSet `json:"ruleSets"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// EvaluateResult mirrors the /v1/rulesets/{key}/evaluate response.
type EvaluateResult struct {
	Matched     bool            `json:"matched"`
	Result      json.RawMessage `json:"result,omitempty"`
	ETag        string          `json:"etag"`
	EvaluatedAt string          `json:"evaluatedAt"`
}

// APIError is a structured error response from the API.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
	Path       string `json:"path,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("API error (status %d, code %s): %s at %s", e.StatusCode, e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("API error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
}

// Snapshot retrieves the full rule set snapshot.
func (c *Client) Snapshot(ctx context.Context) (*Snapshot, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/rulesets/snapshot", nil)
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := c.do(req, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// List retrieves all rule sets, sorted by key.
func (c *Client) List(ctx context.Context) ([]RuleSet, error) {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	ruleSets := make([]RuleSet, 0, len(snap.RuleSets))
	for _, rs := range snap.RuleSets {
		ruleSets = append(ruleSets, rs)
	}
	sort.Slice(ruleSets, func(i, j int) bool { return ruleSets[i].Key < ruleSets[j].Key })
	return ruleSets, nil
}

// Get retrieves a single rule set by key.
func (c *Client) Get(ctx context.Context, key string) (*RuleSet, error) {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	rs, ok := snap.RuleSets[key]
	if !ok {
		return nil, fmt.Errorf("rule set not found: %s", key)
	}
	return &rs, nil
}

// PushParams are the fields for creating or replacing a rule set.
type PushParams struct {
	Key         string          `json:"key"`
	Description string          `json:"description,omitempty"`
	Env         string          `json:"env,omitempty"`
	Document    json.RawMessage `json:"document"`
}

// Push creates or replaces a rule set and returns the new snapshot ETag.
func (c *Client) Push(ctx context.Context, params PushParams) (string, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/rulesets", bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	var resp struct {
		OK   bool   `json:"ok"`
		ETag string `json:"etag"`
	}
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.ETag, nil
}

// Delete removes a rule set and returns the new snapshot ETag.
func (c *Client) Delete(ctx context.Context, key string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodDelete, "/v1/rulesets/"+url.PathEscape(key), nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		OK   bool   `json:"ok"`
		ETag string `json:"etag"`
	}
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.ETag, nil
}

// Validate checks a document against the server without storing it.
// Schema and validation failures come back as *APIError with a path.
func (c *Client) Validate(ctx context.Context, document json.RawMessage) error {
	body, err := json.Marshal(struct {
		Document json.RawMessage `json:"document"`
	}{Document: document})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/rulesets/validate", bytes.NewReader(body))
	if err != nil {
		return err
	}

	var resp struct {
		Valid bool `json:"valid"`
	}
	return c.do(req, &resp)
}

// Evaluate runs a rule set on the server against the given parameters.
func (c *Client) Evaluate(ctx context.Context, key string, params map[string]string) (*EvaluateResult, error) {
	body, err := json.Marshal(struct {
		Params map[string]string `json:"params"`
	}{Params: params})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/rulesets/"+url.PathEscape(key)+"/evaluate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var result EvaluateResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	return req, nil
}

// do executes the request and decodes a successful JSON response into out.
// Non-2xx responses are returned as *APIError when the body is a structured
// error, or as a plain error otherwise.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(bodyBytes, apiErr) == nil && apiErr.Code != "" {
			return apiErr
		}
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
