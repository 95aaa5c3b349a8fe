package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"newsreel/internal/queue"
)

// Client provides HTTP access to a running daemon's API.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// NewClient constructs a Client for the given bind address. Bare host:port
// values are promoted to http URLs. A non-empty token is sent as a bearer
// credential on every request.
func NewClient(bind, token string) *Client {
	base := strings.TrimSpace(bind)
	if base == "" {
		base = "127.0.0.1:7787"
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		token:   strings.TrimSpace(token),
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Ping reports whether the daemon answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.get(ctx, "/healthz")
	if err != nil {
		return err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}
	return nil
}

// Status retrieves the daemon status.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	resp, err := c.get(ctx, "/api/status")
	if err != nil {
		return nil, err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}
	var status DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &status, nil
}

// ListJobs returns queue entries, optionally filtered by stage values.
func (c *Client) ListJobs(ctx context.Context, scriptStage, imageStage string) ([]Job, error) {
	query := url.Values{}
	if v := strings.TrimSpace(scriptStage); v != "" {
		query.Set("stage", v)
	}
	if v := strings.TrimSpace(imageStage); v != "" {
		query.Set("image", v)
	}
	path := "/api/queue"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}
	var payload JobListResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode queue list: %w", err)
	}
	return payload.Jobs, nil
}

// GetJob fetches a single queue entry, nil when the daemon does not know it.
func (c *Client) GetJob(ctx context.Context, id string) (*Job, error) {
	resp, err := c.get(ctx, "/api/queue/"+url.PathEscape(strings.TrimSpace(id)))
	if err != nil {
		return nil, err
	}
	defer drain(resp)
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}
	var payload JobResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode queue job: %w", err)
	}
	return &payload.Job, nil
}

// Ingest submits a story for processing. Duplicate URLs surface
// queue.ErrDuplicateURL so callers can branch on it.
func (c *Client) Ingest(ctx context.Context, req IngestRequest) (*IngestResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode ingest request: %w", err)
	}
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/api/jobs", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer drain(resp)
	switch resp.StatusCode {
	case http.StatusCreated:
	case http.StatusConflict:
		return nil, fmt.Errorf("%w: %s", queue.ErrDuplicateURL, strings.TrimSpace(req.URL))
	default:
		return nil, responseError(resp)
	}
	var payload IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode ingest response: %w", err)
	}
	return &payload, nil
}

// RetryJob asks the daemon to reset a failed image branch.
func (c *Client) RetryJob(ctx context.Context, id string) (*RetryResponse, error) {
	path := "/api/queue/" + url.PathEscape(strings.TrimSpace(id)) + "/retry"
	httpReq, err := c.newRequest(ctx, http.MethodPost, path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}
	var payload RetryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode retry response: %w", err)
	}
	return &payload, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return c.httpc.Do(req)
}

func responseError(resp *http.Response) error {
	var payload ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && strings.TrimSpace(payload.Error) != "" {
		return fmt.Errorf("daemon: %s", payload.Error)
	}
	return fmt.Errorf("daemon returned %s", resp.Status)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
