package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newsreel/internal/config"
)

const userAgent = "Newsreel-Go/0.1.0"

// Event identifies a notification-worthy pipeline moment.
type Event string

const (
	// EventJobQueued fires when discovery or manual submission adds a story.
	EventJobQueued Event = "job_queued"
	// EventRenderCompleted fires when a job's final video lands in the library.
	EventRenderCompleted Event = "render_completed"
	// EventStageFailed fires when a stage attempt fails.
	EventStageFailed Event = "stage_failed"
	// EventTest exercises the delivery path end to end.
	EventTest Event = "test"
)

// Payload carries event-specific fields used to format the message.
type Payload map[string]any

// Service defines the notification surface exposed to workflow components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		sendQueued:    cfg.Notifications.Queued,
		sendCompleted: cfg.Notifications.Completed,
		sendErrors:    cfg.Notifications.Errors,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	sendQueued    bool
	sendCompleted bool
	sendErrors    bool
}

// Publish formats and delivers the event. Events the operator disabled in
// config (and events with no formatter) are silently dropped.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	data, ok := n.format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, data)
}

func (n *ntfyService) format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventJobQueued:
		if !n.sendQueued {
			return message{}, false
		}
		title := payloadString(payload, "title")
		body := fmt.Sprintf("Story queued: %s", title)
		if source := payloadString(payload, "source"); source != "" {
			body = fmt.Sprintf("%s (%s)", body, source)
		}
		return message{
			title: "Newsreel - Story Queued",
			body:  body,
			tags:  []string{"newsreel", "queue", "queued"},
		}, true
	case EventRenderCompleted:
		if !n.sendCompleted {
			return message{}, false
		}
		body := fmt.Sprintf("Video ready: %s", payloadString(payload, "title"))
		if video := payloadString(payload, "video"); video != "" {
			body = fmt.Sprintf("%s\nFile: %s", body, video)
		}
		return message{
			title:    "Newsreel - Video Ready",
			body:     body,
			tags:     []string{"newsreel", "render", "completed"},
			priority: "high",
		}, true
	case EventStageFailed:
		if !n.sendErrors {
			return message{}, false
		}
		var builder strings.Builder
		builder.WriteString("Error")
		if stage := payloadString(payload, "stage"); stage != "" {
			builder.WriteString(" in ")
			builder.WriteString(stage)
		}
		if title := payloadString(payload, "title"); title != "" {
			builder.WriteString(" for ")
			builder.WriteString(title)
		}
		builder.WriteString(": ")
		if errText := payloadString(payload, "error"); errText != "" {
			builder.WriteString(errText)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "Newsreel - Error",
			body:     builder.String(),
			tags:     []string{"newsreel", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Newsreel - Test",
			body:     "Notification system test",
			tags:     []string{"newsreel", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.Publish(ctx, EventTest, nil)
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func payloadString(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
func (noopService) TestNotification(context.Context) error        { return nil }
