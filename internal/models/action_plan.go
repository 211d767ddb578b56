package models

import "time"

// Action plan status values.
const (
	PlanStatusActive    = "active"
	PlanStatusCompleted = "completed"
	PlanStatusCanceled  = "canceled"
)

// ActionPlan is a recommended course of action for a customer, produced by
// an upstream signal processor. Switchboard never deletes plans; promotion
// links a plan to at most one card (via Card.ActionPlanID).
type ActionPlan struct {
	ID             string  `gorm:"primaryKey;size:32" json:"id"`
	CustomerID     string  `gorm:"size:64;index;not null" json:"customer_id"`
	Badge          string  `gorm:"size:32;index" json:"badge"`
	Intent         string  `gorm:"size:64" json:"intent"`
	Urgency        string  `gorm:"size:16" json:"urgency"`
	Segment        string  `gorm:"size:64" json:"segment"`
	Channel        string  `gorm:"size:32" json:"channel"`
	Status         string  `gorm:"size:16;default:active;index" json:"status"`
	AssigneeTeamID *string `gorm:"size:64" json:"assignee_team_id,omitempty"`

	// Routing audit trail: which rule (if any) drove the last placement.
	RoutedRuleID   *string    `gorm:"size:32" json:"routed_rule_id,omitempty"`
	RoutedRuleName string     `gorm:"size:128" json:"routed_rule_name,omitempty"`
	RoutedAt       *time.Time `json:"routed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
