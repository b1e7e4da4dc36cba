package regulator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

// Notification is what a notify regulation hands to its notifiers.
type Notification struct {
	RegulationID   string         `json:"regulation_id"`
	RegulationName string         `json:"regulation_name"`
	Action         ActionType     `json:"action"`
	Params         map[string]any `json:"params,omitempty"`
	Error          OutfitError    `json:"error"`
	Message        string         `json:"message"`
	TriggeredAt    time.Time      `json:"triggered_at"`
}

type Notifier interface {
	Notify(ctx context.Context, note Notification) error
}

type NotifierFunc func(ctx context.Context, note Notification) error

func (f NotifierFunc) Notify(ctx context.Context, note Notification) error {
	return f(ctx, note)
}

// Notifiers fans a notification out to every notifier and joins their errors.
type Notifiers []Notifier

func (ns Notifiers) Notify(ctx context.Context, note Notification) error {
	var errs []error
	for _, n := range ns {
		if err := n.Notify(ctx, note); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WebhookNotifier POSTs the notification as JSON to URL.
type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (n *WebhookNotifier) Notify(ctx context.Context, note Notification) error {
	body, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, respBody)
	}
	return nil
}

// SentryNotifier reports the notification as a Sentry message. A nil Hub
// means the current hub.
type SentryNotifier struct {
	Hub *sentry.Hub
}

func (n SentryNotifier) Notify(_ context.Context, note Notification) error {
	hub := n.Hub
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("regulation_id", note.RegulationID)
		scope.SetTag("error_code", note.Error.Code)
		scope.SetTag("error_source", string(note.Error.Source))
		scope.SetLevel(sentryLevel(note.Error.Severity))
		scope.SetContext("outfit_error", map[string]interface{}{
			"id":      note.Error.ID,
			"message": note.Error.Message,
			"context": note.Error.Context,
		})
		hub.CaptureMessage(note.Message)
	})
	return nil
}

func sentryLevel(s Severity) sentry.Level {
	switch s {
	case SeverityHigh:
		return sentry.LevelError
	case SeverityLow:
		return sentry.LevelInfo
	}
	return sentry.LevelWarning
}
