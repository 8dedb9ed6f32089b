package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"radiomon/internal/config"
)

const userAgent = "radiomon/0.1.0"

// Event identifies a notification type.
type Event string

const (
	EventModemAdded    Event = "modem_added"
	EventModemRemoved  Event = "modem_removed"
	EventModemsPresent Event = "modems_present"
	EventOpenFailed    Event = "open_failed"
	EventTest          Event = "test"
)

// Payload carries event fields used to build the message.
type Payload map[string]any

// Service publishes notification events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// Enabled reports whether svc delivers anywhere.
func Enabled(svc Service) bool {
	if svc == nil {
		return false
	}
	_, noop := svc.(noopService)
	return !noop
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

	timeout := cfg.NotifyTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := buildMessage(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func buildMessage(event Event, payload Payload) (message, bool) {
	switch event {
	case EventModemAdded:
		return message{
			title: "radiomon - Modem Added",
			body:  fmt.Sprintf("📶 %s ready: %s", payload.text("device"), describe(payload)),
			tags:  []string{"radiomon", "modem", "added"},
		}, true
	case EventModemRemoved:
		return message{
			title: "radiomon - Modem Removed",
			body:  fmt.Sprintf("🔌 %s removed", payload.text("device")),
			tags:  []string{"radiomon", "modem", "removed"},
		}, true
	case EventModemsPresent:
		devices := payload.text("devices")
		return message{
			title:    "radiomon - Modems Present",
			body:     fmt.Sprintf("Startup found %d modem(s): %s", payload.number("count"), devices),
			tags:     []string{"radiomon", "startup"},
			priority: "low",
		}, true
	case EventOpenFailed:
		var builder strings.Builder
		fmt.Fprintf(&builder, "❌ Could not open %s", payload.text("device"))
		if cause := payload.text("error"); cause != "" {
			fmt.Fprintf(&builder, ": %s", cause)
		}
		return message{
			title:    "radiomon - Open Failed",
			body:     builder.String(),
			tags:     []string{"radiomon", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "radiomon - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"radiomon", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func describe(payload Payload) string {
	parts := make([]string, 0, 3)
	for _, key := range []string{"manufacturer", "model", "revision"} {
		if value := payload.text(key); value != "" {
			parts = append(parts, value)
		}
	}
	if len(parts) == 0 {
		return "unknown modem"
	}
	return strings.Join(parts, " ")
}

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (p Payload) number(key string) int {
	if p == nil {
		return 0
	}
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
