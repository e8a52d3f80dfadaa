// Package trace records agent runs against a LangSmith-compatible
// observability API. Recording is strictly best-effort: the wrapped
// operation's outcome never depends on whether the trace landed.
package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultEndpoint is the hosted LangSmith API.
const DefaultEndpoint = "https://api.smith.langchain.com"

// Client is a thin REST client for the runs and feedback endpoints.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewClient creates a tracing client. An API key is required; use a nil
// *Client (via Tracker) to disable tracing instead.
func NewClient(endpoint, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key required for tracing client")
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Run is the payload for creating or patching a run record.
type Run struct {
	ID          string         `json:"id"`
	Name        string         `json:"name,omitempty"`
	RunType     string         `json:"run_type,omitempty"`
	StartTime   *time.Time     `json:"start_time,omitempty"`
	EndTime     *time.Time     `json:"end_time,omitempty"`
	Inputs      map[string]any `json:"inputs,omitempty"`
	Outputs     map[string]any `json:"outputs,omitempty"`
	Error       string         `json:"error,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
	SessionName string         `json:"session_name,omitempty"`
}

// Feedback is a scored annotation on a previously recorded run.
type Feedback struct {
	RunID   string  `json:"run_id"`
	Key     string  `json:"key"`
	Score   float64 `json:"score"`
	Comment string  `json:"comment,omitempty"`
}

// CreateRun posts a new run record.
func (c *Client) CreateRun(ctx context.Context, run Run) error {
	return c.post(ctx, http.MethodPost, "/runs", run)
}

// UpdateRun patches an existing run, typically with end time and outcome.
func (c *Client) UpdateRun(ctx context.Context, runID string, patch Run) error {
	return c.post(ctx, http.MethodPatch, "/runs/"+runID, patch)
}

// CreateFeedback posts a feedback record for a run.
func (c *Client) CreateFeedback(ctx context.Context, fb Feedback) error {
	return c.post(ctx, http.MethodPost, "/feedback", fb)
}

func (c *Client) post(ctx context.Context, method, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}
	return nil
}
