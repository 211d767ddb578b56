package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/zulandar/switchboard/internal/dispatch"
)

// Notifier subscribes adapters to a change dispatcher. Each delivered event
// is formatted and sent to every connected adapter; a failing adapter never
// blocks the others.
type Notifier struct {
	adapters []Adapter
	cancel   func()
}

// NewNotifier creates a notifier over the given adapters.
func NewNotifier(adapters ...Adapter) *Notifier {
	return &Notifier{adapters: adapters}
}

// Start connects all adapters and subscribes to the dispatcher for the given
// event types. Empty types means all types.
func (n *Notifier) Start(ctx context.Context, d *dispatch.Dispatcher, types []string) error {
	for _, a := range n.adapters {
		if err := a.Connect(ctx); err != nil {
			return fmt.Errorf("notify: connect adapter: %w", err)
		}
	}
	n.cancel = d.Subscribe(types, nil, func(event dispatch.Event) error {
		n.deliver(ctx, event)
		return nil
	})
	return nil
}

func (n *Notifier) deliver(ctx context.Context, event dispatch.Event) {
	msg := OutboundMessage{Events: []FormattedEvent{FormatChange(event)}}
	for _, a := range n.adapters {
		if err := a.Send(ctx, msg); err != nil {
			log.Printf("notify: send: %v", err)
		}
	}
}

// Stop cancels the subscription and closes all adapters.
func (n *Notifier) Stop() {
	if n.cancel != nil {
		n.cancel()
	}
	for _, a := range n.adapters {
		if err := a.Close(); err != nil {
			log.Printf("notify: close adapter: %v", err)
		}
	}
}
