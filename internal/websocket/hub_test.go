package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/store177/shop-backend/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub()
	go hub.Run(ctx)
	return hub
}

func newTestClient(hub *Hub, adminID int64) *Client {
	return &Client{Hub: hub, AdminID: adminID, Send: make(chan []byte, 8), LastResetTime: time.Now()}
}

func receive(t *testing.T, c *Client) FeedEvent {
	t.Helper()
	select {
	case raw := <-c.Send:
		var ev FeedEvent
		require.NoError(t, json.Unmarshal(raw, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
	return FeedEvent{}
}

func TestHub_NotifyReachesEverySessionOfAdmin(t *testing.T) {
	hub := startHub(t)
	tab1 := newTestClient(hub, 1)
	tab2 := newTestClient(hub, 1)
	other := newTestClient(hub, 2)
	hub.Register(tab1)
	hub.Register(tab2)
	hub.Register(other)

	require.Eventually(t, func() bool { return hub.IsOnline(1) && hub.IsOnline(2) }, time.Second, 5*time.Millisecond)

	err := hub.Notify(context.Background(), 1, notify.Message{Text: "<b>hi</b>", Event: notify.EventOrderCreated, Payload: map[string]string{"id": "o-1"}})
	require.NoError(t, err)

	for _, c := range []*Client{tab1, tab2} {
		ev := receive(t, c)
		assert.Equal(t, notify.EventOrderCreated, ev.Type)
		assert.Equal(t, "<b>hi</b>", ev.Text)
	}
	assert.Empty(t, other.Send)
}

func TestHub_NotifyOfflineAdminIsNoop(t *testing.T) {
	hub := startHub(t)
	assert.NoError(t, hub.Notify(context.Background(), 99, notify.Message{Event: notify.EventOrderCreated}))
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := startHub(t)
	client := newTestClient(hub, 1)
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.IsOnline(1) }, time.Second, 5*time.Millisecond)

	hub.Unregister(client)
	require.Eventually(t, func() bool { return !hub.IsOnline(1) }, time.Second, 5*time.Millisecond)

	_, ok := <-client.Send
	assert.False(t, ok)
}

func TestHub_Ping(t *testing.T) {
	hub := startHub(t)
	client := newTestClient(hub, 1)
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.IsOnline(1) }, time.Second, 5*time.Millisecond)

	hub.HandleClientMessage(client, []byte(`{"type":"ping"}`))
	assert.Equal(t, "pong", receive(t, client).Type)
}

func (h *Hub) sessions(adminID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[adminID])
}

func TestHub_PingAnswersOnlyTheSendingSession(t *testing.T) {
	hub := startHub(t)
	tab1 := newTestClient(hub, 1)
	tab2 := newTestClient(hub, 1)
	hub.Register(tab1)
	hub.Register(tab2)
	require.Eventually(t, func() bool { return hub.sessions(1) == 2 }, time.Second, 5*time.Millisecond)

	hub.HandleClientMessage(tab1, []byte(`{"type":"ping"}`))
	assert.Equal(t, "pong", receive(t, tab1).Type)
	assert.Empty(t, tab2.Send)
}

func TestHub_PingFromUnregisteredSessionIsDropped(t *testing.T) {
	hub := startHub(t)
	client := newTestClient(hub, 1)
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.IsOnline(1) }, time.Second, 5*time.Millisecond)

	hub.Unregister(client)
	require.Eventually(t, func() bool { return !hub.IsOnline(1) }, time.Second, 5*time.Millisecond)

	assert.NotPanics(t, func() {
		hub.HandleClientMessage(client, []byte(`{"type":"ping"}`))
	})
	_, ok := <-client.Send
	assert.False(t, ok)
}

func TestHub_RateLimit(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub, 1)

	for i := 0; i < maxMessagesPerSecond+5; i++ {
		hub.HandleClientMessage(client, []byte(`{"type":"noop"}`))
	}
	assert.Equal(t, maxMessagesPerSecond+5, client.MessageCount)
}
