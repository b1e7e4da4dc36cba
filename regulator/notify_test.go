package regulator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type webhookRequest struct {
	method      string
	contentType string
	body        []byte
}

func newWebhookServer(t *testing.T, status int) (*httptest.Server, func() []webhookRequest) {
	var mu sync.Mutex
	var requests []webhookRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, webhookRequest{
			method:      r.Method,
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []webhookRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]webhookRequest(nil), requests...)
	}
}

func notifyOnGenerationFailed() Regulation {
	return Regulation{
		ID:        "notify-failed",
		Name:      "Generation failures",
		Condition: Condition{ErrorCode: "GENERATION_FAILED", ErrorCount: 1},
		Action:    Action{Type: ActionNotify},
	}
}

func TestWebhookNotifierPostsNotification(t *testing.T) {
	srv, requests := newWebhookServer(t, http.StatusOK)
	r := New(WithNotifiers(NewWebhookNotifier(srv.URL)), WithRegulations(notifyOnGenerationFailed()))

	id := r.LogError(ErrorRecord{Code: "GENERATION_FAILED", Severity: SeverityHigh, Message: "panic in pipeline"})
	require.True(t, r.Flush(5*time.Second))

	got := requests()
	require.Len(t, got, 1)
	assert.Equal(t, http.MethodPost, got[0].method)
	assert.Equal(t, "application/json", got[0].contentType)

	var note Notification
	require.NoError(t, json.Unmarshal(got[0].body, &note))
	assert.Equal(t, "notify-failed", note.RegulationID)
	assert.Equal(t, "Generation failures", note.RegulationName)
	assert.Equal(t, ActionNotify, note.Action)
	assert.Equal(t, id, note.Error.ID)
	assert.Equal(t, "GENERATION_FAILED", note.Error.Code)
	assert.Equal(t, SeverityHigh, note.Error.Severity)
	assert.Contains(t, note.Message, "GENERATION_FAILED")

	assert.Equal(t, 0, r.GetMetrics().NotificationsFailed)
}

func TestWebhookNotifierServerErrorIsCounted(t *testing.T) {
	srv, requests := newWebhookServer(t, http.StatusInternalServerError)
	r := New(WithNotifiers(NewWebhookNotifier(srv.URL)), WithRegulations(notifyOnGenerationFailed()))

	require.NotPanics(t, func() {
		r.LogError(ErrorRecord{Code: "GENERATION_FAILED", Severity: SeverityHigh})
	})
	require.True(t, r.Flush(5*time.Second))

	assert.Len(t, requests(), 1)
	metrics := r.GetMetrics()
	assert.Equal(t, 1, metrics.NotificationsFailed)
	assert.Equal(t, 1, metrics.RegulationTriggers["notify-failed"])
}

func TestWebhookNotifierReturnsStatusError(t *testing.T) {
	srv, _ := newWebhookServer(t, http.StatusBadGateway)

	err := NewWebhookNotifier(srv.URL).Notify(context.Background(), Notification{RegulationID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNotifiersJoinErrors(t *testing.T) {
	var calls int
	ok := NotifierFunc(func(context.Context, Notification) error {
		calls++
		return nil
	})
	down := errors.New("down")
	failing := NotifierFunc(func(context.Context, Notification) error {
		calls++
		return down
	})

	err := Notifiers{failing, ok, failing}.Notify(context.Background(), Notification{})
	assert.ErrorIs(t, err, down)
	assert.Equal(t, 3, calls)
	assert.NoError(t, Notifiers{ok}.Notify(context.Background(), Notification{}))
}
