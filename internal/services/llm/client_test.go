package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestCompleteJSONSendsAuthAndDecodesContent(t *testing.T) {
	var gotAuth, gotTitle, gotReferer string
	var gotBody chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotTitle = r.Header.Get("X-Title")
		gotReferer = r.Header.Get("HTTP-Referer")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"{\"narration_script\":\"hello\"}"}}]}`)
	}))
	defer server.Close()

	client := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "google/gemini-2.5-flash",
		Referer: "https://example.test/newsreel",
		Title:   "Newsreel",
	})

	content, err := client.CompleteJSON(context.Background(), "You write JSON.", "Summarize the story.")
	if err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if !strings.Contains(content, "narration_script") {
		t.Fatalf("unexpected content: %q", content)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected Authorization header: %q", gotAuth)
	}
	if gotTitle != "Newsreel" || gotReferer != "https://example.test/newsreel" {
		t.Fatalf("unexpected attribution headers: title=%q referer=%q", gotTitle, gotReferer)
	}
	if gotBody.Model != "google/gemini-2.5-flash" {
		t.Fatalf("unexpected model: %q", gotBody.Model)
	}
	if gotBody.ResponseFormat["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", gotBody.ResponseFormat)
	}
	if len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != "system" || gotBody.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages: %+v", gotBody.Messages)
	}
}

func TestCompleteJSONFallsBackToToolCallArguments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"","tool_calls":[{"type":"function","function":{"name":"emit","arguments":"{\"ok\":1}"}}]}}]}`)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
	content, err := client.CompleteJSON(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if content != `{"ok":1}` {
		t.Fatalf("expected tool call arguments, got %q", content)
	}
}

func TestCompleteJSONFallsBackToDeltaAndLegacyText(t *testing.T) {
	responses := []string{
		`{"choices":[{"delta":{"content":"{\"from\":\"delta\"}"}}]}`,
		`{"choices":[{"text":"{\"from\":\"text\"}"}]}`,
	}
	var call int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&call, 1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, responses[n-1])
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
	for _, want := range []string{`{"from":"delta"}`, `{"from":"text"}`} {
		content, err := client.CompleteJSON(context.Background(), "sys", "user")
		if err != nil {
			t.Fatalf("CompleteJSON returned error: %v", err)
		}
		if content != want {
			t.Fatalf("expected %q, got %q", want, content)
		}
	}
}

func TestCompleteJSONEmptyContentReportsSnippet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"","refusal":"cannot comply"},"finish_reason":"content_filter"}]}`)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "m"},
		WithRetryMaxAttempts(1))
	_, err := client.CompleteJSON(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("expected error for empty content")
	}
	msg := err.Error()
	if !strings.Contains(msg, "content_filter") {
		t.Fatalf("expected finish reason in error, got %q", msg)
	}
	if !strings.Contains(msg, "cannot comply") {
		t.Fatalf("expected refusal in error, got %q", msg)
	}
	if !strings.Contains(msg, "response_snippet") {
		t.Fatalf("expected response snippet in error, got %q", msg)
	}
}

func TestCompleteJSONRetriesOnHTTP429(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"message":"slow down"}}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`)
	}))
	defer server.Close()

	var sleeps []time.Duration
	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "m"},
		WithRetryMaxAttempts(3),
		WithSleeper(func(d time.Duration) { sleeps = append(sleeps, d) }))

	content, err := client.CompleteJSON(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if content != `{"ok":true}` {
		t.Fatalf("unexpected content: %q", content)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 requests, got %d", got)
	}
	if len(sleeps) != 1 || sleeps[0] != time.Second {
		t.Fatalf("expected a single 1s sleep from Retry-After, got %v", sleeps)
	}
}

func TestCompleteJSONRetriesOnEmptyContentThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		if n < 3 {
			fmt.Fprint(w, `{"choices":[{"message":{"content":""},"finish_reason":"stop"}]}`)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "m"},
		WithRetryMaxAttempts(3),
		WithSleeper(func(time.Duration) {}))

	content, err := client.CompleteJSON(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("CompleteJSON returned error: %v", err)
	}
	if content != `{"ok":true}` {
		t.Fatalf("unexpected content: %q", content)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 requests, got %d", got)
	}
}

func TestCompleteJSONDoesNotRetryOnHTTP400(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"bad request"}}`)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "m"},
		WithRetryMaxAttempts(3),
		WithSleeper(func(time.Duration) {}))

	_, err := client.CompleteJSON(context.Background(), "sys", "user")
	if err == nil {
		t.Fatal("expected error for HTTP 400")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single request, got %d", got)
	}
	if Transient(err) {
		t.Fatalf("HTTP 400 should not be transient: %v", err)
	}
}

func TestHealthCheckSucceeds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestHealthCheckFailsOnUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"invalid api key"}}`)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "m"},
		WithRetryMaxAttempts(1))
	err := client.HealthCheck(context.Background())
	if err == nil {
		t.Fatal("expected error for HTTP 401")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected status code in error, got %v", err)
	}
	if Transient(err) {
		t.Fatalf("HTTP 401 should not be transient: %v", err)
	}
}

func TestHealthCheckFailsOnUnexpectedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"{\"ok\":false}"}}]}`)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected error for ok=false payload")
	}
}

func TestDecodeLLMJSONStripsCodeFences(t *testing.T) {
	payload := "```json\n{\"narration_script\": \"hello\", \"visual_prompts\": [\"a\", \"b\"]}\n```"
	var decoded struct {
		NarrationScript string   `json:"narration_script"`
		VisualPrompts   []string `json:"visual_prompts"`
	}
	if err := DecodeLLMJSON(payload, &decoded); err != nil {
		t.Fatalf("DecodeLLMJSON returned error: %v", err)
	}
	if decoded.NarrationScript != "hello" || len(decoded.VisualPrompts) != 2 {
		t.Fatalf("unexpected decode result: %+v", decoded)
	}
}

func TestDecodeLLMJSONExtractsEmbeddedObject(t *testing.T) {
	payload := `Here is the JSON you asked for: {"ok": true} hope that helps!`
	var decoded struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON(payload, &decoded); err != nil {
		t.Fatalf("DecodeLLMJSON returned error: %v", err)
	}
	if !decoded.OK {
		t.Fatalf("unexpected decode result: %+v", decoded)
	}
}

func TestTransientClassifiesErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"throttled", &httpStatusError{StatusCode: http.StatusTooManyRequests}, true},
		{"server error", &httpStatusError{StatusCode: http.StatusServiceUnavailable}, true},
		{"request timeout", &httpStatusError{StatusCode: http.StatusRequestTimeout}, true},
		{"bad request", &httpStatusError{StatusCode: http.StatusBadRequest}, false},
		{"unauthorized", &httpStatusError{StatusCode: http.StatusUnauthorized}, false},
		{"empty content", &emptyContentError{Op: "llm complete"}, true},
		{"wrapped throttle", fmt.Errorf("llm complete: failed after 5 attempts: %w", &httpStatusError{StatusCode: 429}), true},
		{"context canceled", context.Canceled, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := Transient(tc.err); got != tc.want {
			t.Errorf("%s: Transient(%v) = %v, want %v", tc.name, tc.err, got, tc.want)
		}
	}
}
