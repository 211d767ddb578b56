package models

import "time"

// Board visibility values.
const (
	VisibilityOrg  = "org"
	VisibilityTeam = "team"
)

// Card status values.
const (
	CardStatusActive   = "active"
	CardStatusDone     = "done"
	CardStatusArchived = "archived"
)

// Permission modes.
const (
	ModeEdit = "edit"
	ModeView = "view"
)

// Board is a workspace of ordered columns holding cards.
type Board struct {
	ID            string  `gorm:"primaryKey;size:32" json:"id"`
	Name          string  `gorm:"not null" json:"name"`
	Description   string  `gorm:"type:text" json:"description"`
	Visibility    string  `gorm:"size:8;default:org" json:"visibility"`
	CardType      string  `gorm:"size:16;default:task" json:"card_type"`
	DefaultTeamID *string `gorm:"size:64" json:"default_team_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Columns     []Column     `gorm:"foreignKey:BoardID" json:"columns,omitempty"`
	Permissions []Permission `gorm:"foreignKey:BoardID" json:"permissions,omitempty"`
}

// Column is a workflow stage within a board. Position is unique and
// contiguous (0..n-1) among the board's columns.
type Column struct {
	ID        string `gorm:"primaryKey;size:32" json:"id"`
	BoardID   string `gorm:"size:32;index;not null" json:"board_id"`
	Name      string `gorm:"not null" json:"name"`
	Position  int    `gorm:"not null" json:"position"`
	WIPLimit  *int   `json:"wip_limit,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Cards []Card `gorm:"foreignKey:ColumnID" json:"cards,omitempty"`
}

// Card is the unit of work on a board. Position is unique and contiguous
// within its owning column. ActionPlanID carries a unique index: at most
// one card may ever reference a given action plan.
type Card struct {
	ID             string  `gorm:"primaryKey;size:32" json:"id"`
	BoardID        string  `gorm:"size:32;index;not null" json:"board_id"`
	ColumnID       string  `gorm:"size:32;index;not null" json:"column_id"`
	ActionPlanID   *string `gorm:"size:32;uniqueIndex" json:"action_plan_id,omitempty"`
	Title          string  `gorm:"not null" json:"title"`
	Description    string  `gorm:"type:text" json:"description"`
	Status         string  `gorm:"size:16;default:active;index" json:"status"`
	Position       int     `gorm:"not null" json:"position"`
	AssigneeTeamID *string `gorm:"size:64" json:"assignee_team_id,omitempty"`
	AssigneeUserID *string `gorm:"size:64" json:"assignee_user_id,omitempty"`
	Metadata       string  `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ArchivedAt     *time.Time `json:"archived_at,omitempty"`
}

// Permission grants a team edit or view access to a board. A (board, team)
// pair appears at most once.
type Permission struct {
	ID      string `gorm:"primaryKey;size:32" json:"id"`
	BoardID string `gorm:"size:32;not null;uniqueIndex:idx_board_team" json:"board_id"`
	TeamID  string `gorm:"size:64;not null;uniqueIndex:idx_board_team" json:"team_id"`
	Mode    string `gorm:"size:8;not null" json:"mode"`
	CreatedAt time.Time `json:"created_at"`
}
