package browser

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bissquit/alerty/internal/domain"
	"github.com/bissquit/alerty/internal/notifications"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestNewHub_Defaults(t *testing.T) {
	h := NewHub(Config{})

	assert.Equal(t, defaultPermissionTimeout, h.config.PermissionTimeout)
	assert.Equal(t, defaultBufferSize, h.config.BufferSize)
	assert.Equal(t, defaultKeepAlive, h.config.KeepAlive)
	assert.Equal(t, domain.Capability{Supported: false, Permission: domain.PermissionDefault}, h.Probe(context.Background()))
}

func TestHub_PublishSubscribe(t *testing.T) {
	h := NewHub(Config{Supported: true})
	events, unsubscribe := h.Subscribe()

	n := h.Publish("toast_shown", map[string]string{"message": "Fall"})

	assert.Equal(t, 1, n)
	e := receive(t, events)
	assert.Equal(t, "toast_shown", e.Type)
	assert.Len(t, e.ID, 26)

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, h.Subscribers())
	assert.Equal(t, 0, h.Publish("toast_hidden", nil))
}

func TestHub_PublishDropsForFullBuffer(t *testing.T) {
	h := NewHub(Config{BufferSize: 1})
	_, unsubscribe := h.Subscribe()
	defer unsubscribe()

	assert.Equal(t, 1, h.Publish("a", nil))
	assert.Equal(t, 0, h.Publish("b", nil))
}

func TestHub_EventIDsIncrease(t *testing.T) {
	h := NewHub(Config{})
	events, unsubscribe := h.Subscribe()
	defer unsubscribe()

	h.Publish("a", nil)
	time.Sleep(2 * time.Millisecond)
	h.Publish("b", nil)

	first := receive(t, events)
	second := receive(t, events)
	assert.Less(t, first.ID, second.ID)
}

func TestHub_Display(t *testing.T) {
	h := NewHub(Config{Supported: true})

	err := h.Display(context.Background(), notifications.Payload{Tag: "a-1"})
	assert.ErrorIs(t, err, ErrNoClients)

	events, unsubscribe := h.Subscribe()
	defer unsubscribe()

	require.NoError(t, h.Display(context.Background(), notifications.Payload{Tag: "a-1"}))
	e := receive(t, events)
	assert.Equal(t, EventNotification, e.Type)
	payload, ok := e.Data.(notifications.Payload)
	require.True(t, ok)
	assert.Equal(t, "a-1", payload.Tag)
}

func TestHub_RequestPermission(t *testing.T) {
	h := NewHub(Config{Supported: true})
	events, unsubscribe := h.Subscribe()
	defer unsubscribe()

	go func() {
		e := <-events
		if e.Type == EventPermissionRequest {
			h.ReportPermission(domain.PermissionGranted)
		}
	}()

	p, err := h.RequestPermission(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.PermissionGranted, p)
	assert.Equal(t, domain.PermissionGranted, h.Probe(context.Background()).Permission)
}

func TestHub_RequestPermission_NoClients(t *testing.T) {
	h := NewHub(Config{Supported: true})

	_, err := h.RequestPermission(context.Background())

	assert.ErrorIs(t, err, ErrNoClients)
}

func TestHub_RequestPermission_Timeout(t *testing.T) {
	h := NewHub(Config{Supported: true, PermissionTimeout: 20 * time.Millisecond})
	_, unsubscribe := h.Subscribe()
	defer unsubscribe()

	_, err := h.RequestPermission(context.Background())

	assert.ErrorIs(t, err, ErrPermissionTimeout)
	assert.Equal(t, domain.PermissionDefault, h.Probe(context.Background()).Permission)
}

func TestHub_RequestPermission_ContextCancelled(t *testing.T) {
	h := NewHub(Config{Supported: true})
	_, unsubscribe := h.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := h.RequestPermission(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHub_OnConnectRunsWhenFirstSubscriberJoins(t *testing.T) {
	h := NewHub(Config{Supported: true})
	connected := make(chan struct{}, 4)
	h.OnConnect(func() { connected <- struct{}{} })

	waitConnect := func() {
		t.Helper()
		select {
		case <-connected:
		case <-time.After(time.Second):
			t.Fatal("connect hook not called")
		}
	}

	_, first := h.Subscribe()
	_, second := h.Subscribe()
	waitConnect()

	second()
	first()

	_, again := h.Subscribe()
	defer again()
	waitConnect()

	assert.Empty(t, connected)
}

func TestHub_PromptsUndecidedPermissionOnConnect(t *testing.T) {
	ctx := context.Background()
	h := NewHub(Config{Supported: true})
	d := notifications.NewDispatcher(ctx, h, nil, notifications.DefaultAssets())
	h.OnConnect(func() { d.PromptIfUndecided(ctx) })

	events, unsubscribe := h.Subscribe()
	defer unsubscribe()

	e := receive(t, events)
	require.Equal(t, EventPermissionRequest, e.Type)

	h.ReportPermission(domain.PermissionGranted)

	assert.Eventually(t, func() bool {
		return d.QueryCapability().Permission == domain.PermissionGranted
	}, time.Second, 5*time.Millisecond)
}

func TestHub_ReportPermission_IgnoresUnknown(t *testing.T) {
	h := NewHub(Config{Supported: true})

	h.ReportPermission(domain.PermissionDenied)
	h.ReportPermission("prompt")

	assert.Equal(t, domain.PermissionDenied, h.Probe(context.Background()).Permission)
}

func TestHub_Stream(t *testing.T) {
	h := NewHub(Config{Supported: true})
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	server := httptest.NewServer(r)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "retry: 3000\n", line)

	require.Eventually(t, func() bool { return h.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, h.Display(context.Background(), notifications.Payload{Title: "🚨 Fall", Tag: "a-1"}))

	var frame []string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if line == "" && len(frame) > 0 {
			break
		}
		if line != "" {
			frame = append(frame, line)
		}
	}

	require.Len(t, frame, 3)
	assert.True(t, strings.HasPrefix(frame[0], "id: "))
	assert.Equal(t, "event: notification", frame[1])
	assert.Contains(t, frame[2], `"tag":"a-1"`)

	cancel()
	require.Eventually(t, func() bool { return h.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}
