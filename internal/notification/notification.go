// Package notification handles sending notifications to external services.
package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/containrrr/shoutrrr"
	"github.com/zorak1103/conman/internal/config"
)

// Action is a lifecycle transition worth notifying about.
type Action string

// Lifecycle actions
const (
	ActionStarted Action = "started"
	ActionStopped Action = "stopped"
)

// Event describes one lifecycle transition of a managed container.
type Event struct {
	Action    Action
	Container string
	Image     string // Empty for stop events
	Template  string
	Time      time.Time
}

// Notifier handles sending notifications via Shoutrrr
type Notifier struct {
	enabled     bool
	shoutrrrURL string
	send        func(url, message string) error
}

// NewNotifier initializes a Shoutrrr-based notification client from config.
func NewNotifier(cfg *config.Config) (*Notifier, error) {
	if !cfg.Notification.Enabled {
		return &Notifier{enabled: false}, nil
	}

	url := strings.TrimSpace(cfg.Notification.ShoutrrURL)
	if url == "" {
		return &Notifier{enabled: false}, fmt.Errorf("notification enabled but shoutrrr_url not configured: provide URL in format 'service://credentials' (e.g., slack://token@channel, discord://token@webhookid)")
	}

	return &Notifier{
		enabled:     true,
		shoutrrrURL: url,
		send:        shoutrrr.Send,
	}, nil
}

// SendLifecycleEvent delivers a lifecycle event via the configured notification channel.
func (n *Notifier) SendLifecycleEvent(ev Event) error {
	if !n.enabled {
		return nil // Notifications disabled
	}

	send := n.send
	if send == nil {
		send = shoutrrr.Send
	}

	if err := send(n.shoutrrrURL, FormatEvent(ev)); err != nil {
		// Extract service type from URL (e.g., "slack://..." -> "slack")
		serviceType := "unknown"
		if idx := strings.Index(n.shoutrrrURL, "://"); idx > 0 {
			serviceType = n.shoutrrrURL[:idx]
		}
		return fmt.Errorf("notification failed to send via %s (container: %s, action: %s): %w", serviceType, ev.Container, ev.Action, err)
	}

	return nil
}

// FormatEvent renders the message body for ev.
func FormatEvent(ev Event) string {
	when := ev.Time
	if when.IsZero() {
		when = time.Now()
	}

	var sb strings.Builder
	switch ev.Action {
	case ActionStarted:
		sb.WriteString("🟢 Container started\n")
	case ActionStopped:
		sb.WriteString("🔴 Container stopped\n")
	default:
		sb.WriteString(fmt.Sprintf("ℹ️  Container %s\n", ev.Action))
	}
	sb.WriteString(fmt.Sprintf("📦 Name: %s\n", ev.Container))
	if ev.Template != "" {
		sb.WriteString(fmt.Sprintf("🧩 Template: %s\n", ev.Template))
	}
	if ev.Image != "" {
		sb.WriteString(fmt.Sprintf("🐳 Image: %s\n", ev.Image))
	}
	sb.WriteString(fmt.Sprintf("📅 Time: %s", when.Format("2006-01-02 15:04:05")))
	return sb.String()
}

// IsEnabled reports whether notifications are configured and active.
func (n *Notifier) IsEnabled() bool {
	return n.enabled
}
