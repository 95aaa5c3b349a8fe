package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout    = 120 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
)

// Config captures the runtime settings required to talk to the synthesizer.
type Config struct {
	BaseURL        string
	APIKey         string
	Voice          string
	Format         string
	TimeoutSeconds int
}

// Client wraps a Polly-style speech synthesis endpoint that returns audio
// alongside per-word timing marks.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a speech client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			Voice:          strings.TrimSpace(cfg.Voice),
			Format:         strings.TrimSpace(cfg.Format),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: timeout}
	}
	return client
}

// Configured reports whether the client has an endpoint to talk to.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.BaseURL != ""
}

// WordMark is a single word with the offset at which it is spoken.
type WordMark struct {
	TimeMS int64  `json:"time_ms"`
	Value  string `json:"value"`
}

// Result holds the synthesized audio and the word timing marks.
type Result struct {
	Audio []byte
	Marks []WordMark
}

type synthesizeRequest struct {
	Text   string `json:"text"`
	Voice  string `json:"voice"`
	Format string `json:"format"`
}

type synthesizeResponse struct {
	AudioBase64 string `json:"audio_base64"`
	Marks       []struct {
		TimeMS int64  `json:"time_ms"`
		Type   string `json:"type"`
		Value  string `json:"value"`
	} `json:"marks"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("speech request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Synthesize converts text into audio and word marks. Marks whose type is not
// "word" are dropped, matching what the caption builder can consume.
func (c *Client) Synthesize(ctx context.Context, text string) (Result, error) {
	var empty Result
	text = strings.TrimSpace(text)
	if text == "" {
		return empty, errors.New("speech synthesize: text required")
	}
	if !c.Configured() {
		return empty, errors.New("speech synthesize: base url required")
	}

	attempts := c.retryAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := c.synthesizeOnce(ctx, text)
		if err == nil {
			return result, nil
		}
		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return empty, err
		}
		if err := c.sleep(ctx, delay); err != nil {
			return empty, err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return empty, fmt.Errorf("speech synthesize: failed after %d attempts: %w", attempts, lastErr)
}

func (c *Client) synthesizeOnce(ctx context.Context, text string) (Result, error) {
	var empty Result
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "synthesize")
	if err != nil {
		return empty, fmt.Errorf("speech request: build url: %w", err)
	}
	encoded, err := json.Marshal(synthesizeRequest{
		Text:   text,
		Voice:  c.cfg.Voice,
		Format: c.cfg.Format,
	})
	if err != nil {
		return empty, fmt.Errorf("speech request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return empty, fmt.Errorf("speech request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, fmt.Errorf("speech request: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, fmt.Errorf("speech request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return empty, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}

	var decoded synthesizeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return empty, fmt.Errorf("speech request: decode response: %w", err)
	}
	audio, err := base64.StdEncoding.DecodeString(strings.TrimSpace(decoded.AudioBase64))
	if err != nil {
		return empty, fmt.Errorf("speech request: decode audio payload: %w", err)
	}
	if len(audio) == 0 {
		return empty, errors.New("speech request: empty audio payload")
	}

	marks := make([]WordMark, 0, len(decoded.Marks))
	for _, mark := range decoded.Marks {
		if !strings.EqualFold(strings.TrimSpace(mark.Type), "word") {
			continue
		}
		value := strings.TrimSpace(mark.Value)
		if value == "" {
			continue
		}
		marks = append(marks, WordMark{TimeMS: mark.TimeMS, Value: value})
	}
	return Result{Audio: audio, Marks: marks}, nil
}

// Transient reports whether err describes a condition where a later attempt
// could succeed: throttling, server errors, or timeouts.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			return true
		default:
			return false
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return false
}

func (c *Client) retryAttempts() int {
	if c == nil || c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil {
		return 0, false
	}
	if ctx == nil || ctx.Err() != nil {
		return 0, false
	}
	if !Transient(err) {
		return 0, false
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > 0 {
		return c.capDelay(statusErr.RetryAfter), true
	}
	return c.backoffDelay(attempt), true
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := defaultRetryBaseDelay
	maxDelay := defaultRetryMaxDelay
	if c != nil {
		if c.retryBaseDelay >= 0 {
			base = c.retryBaseDelay
		}
		if c.retryMaxDelay > 0 {
			maxDelay = c.retryMaxDelay
		}
	}
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := defaultRetryMaxDelay
	if c != nil && c.retryMaxDelay > 0 {
		maxDelay = c.retryMaxDelay
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx == nil {
		return errors.New("speech retry: nil context")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c != nil && c.sleeper != nil {
		c.sleeper(delay)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
