// Package dispatch fans out domain change events to subscribers and decides
// which cached read-models are stale, debouncing refreshes per logical key.
package dispatch

import "time"

// Event types.
const (
	TypeCustomer     = "customer"
	TypeConversation = "conversation"
	TypeActionPlan   = "actionPlan"
	TypeActionItem   = "actionItem"
	TypeTask         = "task"
	TypeCSVJob       = "csvJob"
	TypeBoard        = "board"
	TypeCard         = "card"
)

// Event actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Event is a coarse-grained domain change notification.
type Event struct {
	Type   string            `json:"type"`
	Action string            `json:"action"`
	ID     string            `json:"id"`
	Data   map[string]string `json:"data,omitempty"`
	At     time.Time         `json:"at"`
}

// Handler consumes a published event. A non-nil error is logged by the
// dispatcher and never affects delivery to other handlers.
type Handler func(Event) error
