package models

import "time"

// Routing rule condition types.
const (
	ConditionBadge           = "badge"
	ConditionIntent          = "intent"
	ConditionUrgency         = "urgency"
	ConditionCustomerSegment = "customer_segment"
	ConditionChannel         = "channel"
	ConditionCustom          = "custom"
)

// RoutingRule assigns incoming work items to a team (and optionally a
// board/column) when its condition matches. Rules are evaluated in
// ascending (Priority, Seq) order; Seq is assigned at insert and breaks
// priority ties by insertion order.
type RoutingRule struct {
	ID             string  `gorm:"primaryKey;size:32" json:"id"`
	Name           string  `gorm:"not null" json:"name"`
	Channel        *string `gorm:"size:32" json:"channel,omitempty"`
	ConditionType  string  `gorm:"size:24;not null" json:"condition_type"`
	ConditionValue *string `gorm:"size:128" json:"condition_value,omitempty"`
	TargetTeamID   string  `gorm:"size:64;not null" json:"target_team_id"`
	TargetBoardID  *string `gorm:"size:32" json:"target_board_id,omitempty"`
	TargetColumnID *string `gorm:"size:32" json:"target_column_id,omitempty"`
	Priority       int     `gorm:"index" json:"priority"`
	Seq            int64   `gorm:"index;not null" json:"seq"`
	Enabled        bool    `gorm:"default:true" json:"enabled"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
