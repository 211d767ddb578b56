package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zulandar/switchboard/internal/dispatch"
)

// mockAdapter records sent messages for assertions.
type mockAdapter struct {
	mu        sync.Mutex
	connected bool
	closed    bool
	sent      []OutboundMessage
	sendErr   error
}

func (m *mockAdapter) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return nil
}

func (m *mockAdapter) Send(ctx context.Context, msg OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockAdapter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockAdapter) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func TestNotifier_DeliversMatchingEvents(t *testing.T) {
	d := dispatch.New(dispatch.NewRateLimiter(time.Second))
	adapter := &mockAdapter{}
	n := NewNotifier(adapter)

	err := n.Start(context.Background(), d, []string{dispatch.TypeCard})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer n.Stop()

	d.Publish(dispatch.Event{Type: dispatch.TypeCard, Action: dispatch.ActionCreated, ID: "crd-1"})
	d.Publish(dispatch.Event{Type: dispatch.TypeTask, Action: dispatch.ActionCreated, ID: "tsk-1"})

	if got := adapter.sentCount(); got != 1 {
		t.Errorf("sent = %d, want 1 (task event filtered out)", got)
	}
	if len(adapter.sent[0].Events) != 1 || adapter.sent[0].Events[0].Title == "" {
		t.Errorf("message events = %+v, want one formatted event", adapter.sent[0].Events)
	}
}

func TestNotifier_FailingAdapterDoesNotBlockOthers(t *testing.T) {
	d := dispatch.New(dispatch.NewRateLimiter(time.Second))
	broken := &mockAdapter{sendErr: errors.New("boom")}
	healthy := &mockAdapter{}
	n := NewNotifier(broken, healthy)

	if err := n.Start(context.Background(), d, nil); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer n.Stop()

	d.Publish(dispatch.Event{Type: dispatch.TypeBoard, Action: dispatch.ActionUpdated, ID: "brd-1"})

	if got := healthy.sentCount(); got != 1 {
		t.Errorf("healthy adapter sent = %d, want 1", got)
	}
}

func TestNotifier_StopClosesAdapters(t *testing.T) {
	d := dispatch.New(dispatch.NewRateLimiter(time.Second))
	adapter := &mockAdapter{}
	n := NewNotifier(adapter)

	if err := n.Start(context.Background(), d, nil); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	n.Stop()

	if !adapter.closed {
		t.Error("adapter not closed by Stop")
	}

	d.Publish(dispatch.Event{Type: dispatch.TypeBoard, Action: dispatch.ActionUpdated, ID: "brd-1"})
	if got := adapter.sentCount(); got != 0 {
		t.Errorf("sent after Stop = %d, want 0", got)
	}
}
