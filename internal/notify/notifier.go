// Package notify delivers order events to admins and customers.
package notify

import (
	"context"

	"github.com/store177/shop-backend/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Message is one outbound notification. Text is Telegram HTML; Event and
// Payload are used by structured channels such as the admin live feed.
type Message struct {
	Text    string
	Event   string
	Payload interface{}
}

const (
	EventOrderCreated  = "order_created"
	EventOrderUpdated  = "order_updated"
	EventLowStock      = "low_stock"
	EventStatusMessage = "status_message"
)

// Notifier sends a message to a single recipient, identified by Telegram id.
type Notifier interface {
	Notify(ctx context.Context, recipientID int64, msg Message) error
}

// MultiNotifier fans a message out to every channel concurrently.
// The first failure is returned after all channels finish.
type MultiNotifier struct {
	notifiers []Notifier
}

func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	active := make([]Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	return &MultiNotifier{notifiers: active}
}

func (m *MultiNotifier) Notify(ctx context.Context, recipientID int64, msg Message) error {
	var g errgroup.Group
	for _, n := range m.notifiers {
		n := n
		g.Go(func() error {
			return n.Notify(ctx, recipientID, msg)
		})
	}
	return g.Wait()
}

// Broadcast sends msg to every recipient and logs failures instead of returning them.
func Broadcast(ctx context.Context, n Notifier, recipients []int64, msg Message) {
	if n == nil {
		return
	}
	for _, id := range recipients {
		if err := n.Notify(ctx, id, msg); err != nil {
			logger.From(ctx).Warn("Notification delivery failed", map[string]interface{}{
				"recipient": id,
				"event":     msg.Event,
				"error":     err.Error(),
			})
		}
	}
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, recipientID int64, msg Message) error

func (f Func) Notify(ctx context.Context, recipientID int64, msg Message) error {
	return f(ctx, recipientID, msg)
}
