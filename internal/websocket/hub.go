package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/store177/shop-backend/internal/notify"
	"github.com/store177/shop-backend/pkg/logger"
)

const (
	// max client messages per second before they are ignored
	maxMessagesPerSecond = 10
)

// ClientMessage is what an admin client may send over the feed.
type ClientMessage struct {
	Type string `json:"type"` // ping
}

// FeedEvent is pushed to admins for every order event.
type FeedEvent struct {
	Type    string      `json:"type"`
	Text    string      `json:"text,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
	SentAt  time.Time   `json:"sent_at"`
}

// Client is one admin browser tab connected to the feed.
type Client struct {
	Hub           *Hub
	Conn          *Conn
	AdminID       int64
	Send          chan []byte
	MessageCount  int       // messages received in the current second
	LastResetTime time.Time // start of the current rate window
	RateMu        sync.Mutex
}

// delivery targets every session of one admin.
type delivery struct {
	adminID int64
	message []byte
}

// Hub tracks admin sessions and fans order events out to them.
type Hub struct {
	// admin id -> sessions (several tabs or devices)
	clients map[int64][]*Client

	register   chan *Client
	unregister chan *Client
	deliver    chan *delivery

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[int64][]*Client),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		deliver:    make(chan *delivery, 256),
	}
}

// Run processes registrations and deliveries until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.AdminID] = append(h.clients[client.AdminID], client)
			sessions := len(h.clients[client.AdminID])
			h.mu.Unlock()
			logger.Info("Feed client registered", map[string]interface{}{
				"admin_id":       client.AdminID,
				"total_sessions": sessions,
			})

		case client := <-h.unregister:
			h.remove(client)

		case d := <-h.deliver:
			h.mu.RLock()
			sessions := append([]*Client(nil), h.clients[d.adminID]...)
			h.mu.RUnlock()

			for _, client := range sessions {
				select {
				case client.Send <- d.message:
				default:
					// slow consumer, drop the session
					logger.Warn("Feed client send buffer full, disconnecting", map[string]interface{}{
						"admin_id": d.adminID,
					})
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list, ok := h.clients[client.AdminID]
	if !ok {
		return
	}
	kept := make([]*Client, 0, len(list))
	found := false
	for _, c := range list {
		if c == client {
			found = true
			continue
		}
		kept = append(kept, c)
	}
	if !found {
		return
	}
	if len(kept) == 0 {
		delete(h.clients, client.AdminID)
	} else {
		h.clients[client.AdminID] = kept
	}
	close(client.Send)

	logger.Info("Feed client unregistered", map[string]interface{}{
		"admin_id":           client.AdminID,
		"remaining_sessions": len(kept),
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, list := range h.clients {
		for _, c := range list {
			close(c.Send)
		}
		delete(h.clients, id)
	}
}

// Notify queues msg for every open session of adminID.
// Offline admins are skipped silently.
func (h *Hub) Notify(ctx context.Context, adminID int64, msg notify.Message) error {
	if !h.IsOnline(adminID) {
		return nil
	}

	data, err := json.Marshal(FeedEvent{
		Type:    msg.Event,
		Text:    msg.Text,
		Payload: msg.Payload,
		SentAt:  time.Now(),
	})
	if err != nil {
		logger.Error("Failed to marshal feed event", err, nil)
		return err
	}

	select {
	case h.deliver <- &delivery{adminID: adminID, message: data}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		logger.Warn("Feed delivery channel full, event dropped", map[string]interface{}{
			"admin_id": adminID,
			"event":    msg.Event,
		})
		return nil
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) IsOnline(adminID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[adminID]
	return ok
}

// HandleClientMessage answers pings and ignores everything else.
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.RateMu.Lock()
	now := time.Now()
	if now.Sub(client.LastResetTime) >= time.Second {
		client.MessageCount = 0
		client.LastResetTime = now
	}
	client.MessageCount++
	count := client.MessageCount
	client.RateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Feed rate limit exceeded", map[string]interface{}{
			"admin_id": client.AdminID,
			"count":    count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse feed client message", map[string]interface{}{
			"admin_id": client.AdminID,
			"error":    err.Error(),
		})
		return
	}

	if msg.Type == "ping" {
		pong, _ := json.Marshal(FeedEvent{Type: "pong", SentAt: now})
		h.reply(client, pong)
	}
}

// reply queues message for this session only. Send is closed under h.mu, so
// the session must still be registered while the lock is held.
func (h *Hub) reply(client *Client, message []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients[client.AdminID] {
		if c != client {
			continue
		}
		select {
		case client.Send <- message:
			return true
		default:
			return false
		}
	}
	return false
}
