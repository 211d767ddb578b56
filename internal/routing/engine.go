// Package routing evaluates ordered routing rules against incoming work
// items and manages the rule set itself.
package routing

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zulandar/switchboard/internal/apperr"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
)

// Engine owns routing rule CRUD and evaluation.
type Engine struct {
	db *gorm.DB

	mu sync.Mutex // serializes seq assignment on create
}

// NewEngine creates a rule engine backed by db.
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// CreateOpts holds parameters for creating a routing rule.
type CreateOpts struct {
	Name           string
	Channel        string // optional filter on originating channel
	ConditionType  string
	ConditionValue string
	TargetTeamID   string
	TargetBoardID  string // optional; empty means org default routing
	TargetColumnID string // optional; empty means the board's first column
	Priority       int
	Enabled        *bool // nil defaults to enabled
}

// UpdateOpts holds a partial rule update. Priority is deliberately absent:
// relative order only changes through Reorder, so priorities can never
// collide by hand-editing.
type UpdateOpts struct {
	Name           *string
	Channel        *string
	ConditionType  *string
	ConditionValue *string
	TargetTeamID   *string
	TargetBoardID  *string
	TargetColumnID *string
	Enabled        *bool
}

// ListFilters holds optional filters for listing rules.
type ListFilters struct {
	Enabled *bool
	Channel string
	TeamID  string
}

var validConditionTypes = map[string]bool{
	models.ConditionBadge:           true,
	models.ConditionIntent:          true,
	models.ConditionUrgency:         true,
	models.ConditionCustomerSegment: true,
	models.ConditionChannel:         true,
	models.ConditionCustom:          true,
}

// Create adds a new rule. Seq is assigned monotonically so that priority
// ties always resolve by insertion order.
func (e *Engine) Create(opts CreateOpts) (*models.RoutingRule, error) {
	if opts.Name == "" {
		return nil, apperr.Validation("routing: name is required")
	}
	if opts.TargetTeamID == "" {
		return nil, apperr.Validation("routing: target team is required")
	}
	if !validConditionTypes[opts.ConditionType] {
		return nil, apperr.Validation("routing: unknown condition type %q", opts.ConditionType)
	}

	rule := models.RoutingRule{
		Name:          opts.Name,
		ConditionType: opts.ConditionType,
		TargetTeamID:  opts.TargetTeamID,
		Priority:      opts.Priority,
		Enabled:       true,
	}
	if opts.Enabled != nil {
		rule.Enabled = *opts.Enabled
	}
	if opts.Channel != "" {
		ch := opts.Channel
		rule.Channel = &ch
	}
	if opts.ConditionValue != "" {
		cv := opts.ConditionValue
		rule.ConditionValue = &cv
	}

	if opts.TargetBoardID != "" {
		if err := e.resolveTarget(opts.TargetBoardID, opts.TargetColumnID); err != nil {
			return nil, err
		}
		bid := opts.TargetBoardID
		rule.TargetBoardID = &bid
		if opts.TargetColumnID != "" {
			cid := opts.TargetColumnID
			rule.TargetColumnID = &cid
		}
	} else if opts.TargetColumnID != "" {
		return nil, apperr.Validation("routing: target column requires a target board")
	}

	id, err := models.NewID("rul")
	if err != nil {
		return nil, err
	}
	rule.ID = id

	// Seq assignment and insert happen under the engine lock in one
	// transaction, so concurrent creates cannot mint the same seq.
	e.mu.Lock()
	defer e.mu.Unlock()
	err = e.db.Transaction(func(tx *gorm.DB) error {
		var maxSeq int64
		if err := tx.Model(&models.RoutingRule{}).Select("COALESCE(MAX(seq), 0)").Scan(&maxSeq).Error; err != nil {
			return fmt.Errorf("routing: next seq: %w", err)
		}
		rule.Seq = maxSeq + 1
		if err := tx.Create(&rule).Error; err != nil {
			return fmt.Errorf("routing: create rule: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// Get retrieves a rule by ID.
func (e *Engine) Get(id string) (*models.RoutingRule, error) {
	var rule models.RoutingRule
	if err := e.db.Where("id = ?", id).First(&rule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("routing: rule %s", id)
		}
		return nil, fmt.Errorf("routing: get rule %s: %w", id, err)
	}
	return &rule, nil
}

// List returns rules matching the given filters in evaluation order.
func (e *Engine) List(filters ListFilters) ([]models.RoutingRule, error) {
	q := e.db.Model(&models.RoutingRule{})
	if filters.Enabled != nil {
		q = q.Where("enabled = ?", *filters.Enabled)
	}
	if filters.Channel != "" {
		q = q.Where("channel = ?", filters.Channel)
	}
	if filters.TeamID != "" {
		q = q.Where("target_team_id = ?", filters.TeamID)
	}

	var rules []models.RoutingRule
	if err := q.Order("priority ASC, seq ASC").Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("routing: list rules: %w", err)
	}
	return rules, nil
}

// Update applies a partial update and returns the resulting rule.
func (e *Engine) Update(id string, opts UpdateOpts) (*models.RoutingRule, error) {
	rule, err := e.Get(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if opts.Name != nil {
		if *opts.Name == "" {
			return nil, apperr.Validation("routing: name cannot be empty")
		}
		updates["name"] = *opts.Name
	}
	if opts.ConditionType != nil {
		if !validConditionTypes[*opts.ConditionType] {
			return nil, apperr.Validation("routing: unknown condition type %q", *opts.ConditionType)
		}
		updates["condition_type"] = *opts.ConditionType
	}
	if opts.ConditionValue != nil {
		updates["condition_value"] = nullable(*opts.ConditionValue)
	}
	if opts.Channel != nil {
		updates["channel"] = nullable(*opts.Channel)
	}
	if opts.TargetTeamID != nil {
		if *opts.TargetTeamID == "" {
			return nil, apperr.Validation("routing: target team is required")
		}
		updates["target_team_id"] = *opts.TargetTeamID
	}
	if opts.TargetBoardID != nil {
		if *opts.TargetBoardID == "" {
			updates["target_board_id"] = nil
			updates["target_column_id"] = nil
		} else {
			colID := ""
			if opts.TargetColumnID != nil {
				colID = *opts.TargetColumnID
			}
			if err := e.resolveTarget(*opts.TargetBoardID, colID); err != nil {
				return nil, err
			}
			updates["target_board_id"] = *opts.TargetBoardID
			if opts.TargetColumnID != nil {
				updates["target_column_id"] = nullable(*opts.TargetColumnID)
			}
		}
	} else if opts.TargetColumnID != nil {
		boardID := ""
		if rule.TargetBoardID != nil {
			boardID = *rule.TargetBoardID
		}
		if *opts.TargetColumnID != "" {
			if boardID == "" {
				return nil, apperr.Validation("routing: target column requires a target board")
			}
			if err := e.resolveTarget(boardID, *opts.TargetColumnID); err != nil {
				return nil, err
			}
		}
		updates["target_column_id"] = nullable(*opts.TargetColumnID)
	}
	if opts.Enabled != nil {
		updates["enabled"] = *opts.Enabled
	}

	if len(updates) > 0 {
		if err := e.db.Model(&models.RoutingRule{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("routing: update rule %s: %w", id, err)
		}
	}
	return e.Get(id)
}

// Delete removes a rule.
func (e *Engine) Delete(id string) error {
	result := e.db.Delete(&models.RoutingRule{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("routing: delete rule %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("routing: rule %s", id)
	}
	return nil
}

// Reorder assigns priorities 0..n-1 in the order given. The id list must be
// exactly the current rule set; this is the only supported way to change
// relative rule order.
func (e *Engine) Reorder(orderedIDs []string) error {
	var rules []models.RoutingRule
	if err := e.db.Find(&rules).Error; err != nil {
		return fmt.Errorf("routing: load rules for reorder: %w", err)
	}
	if len(orderedIDs) != len(rules) {
		return apperr.Validation("routing: reorder got %d ids, have %d rules", len(orderedIDs), len(rules))
	}
	existing := make(map[string]bool, len(rules))
	for _, r := range rules {
		existing[r.ID] = true
	}
	seen := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if !existing[id] {
			return apperr.Validation("routing: reorder includes unknown rule %s", id)
		}
		if seen[id] {
			return apperr.Validation("routing: reorder repeats rule %s", id)
		}
		seen[id] = true
	}

	return e.db.Transaction(func(tx *gorm.DB) error {
		for pos, id := range orderedIDs {
			if err := tx.Model(&models.RoutingRule{}).Where("id = ?", id).Update("priority", pos).Error; err != nil {
				return fmt.Errorf("routing: reorder rule %s: %w", id, err)
			}
		}
		return nil
	})
}

// resolveTarget verifies a board exists and, when given, that the column
// belongs to it.
func (e *Engine) resolveTarget(boardID, columnID string) error {
	var count int64
	if err := e.db.Model(&models.Board{}).Where("id = ?", boardID).Count(&count).Error; err != nil {
		return fmt.Errorf("routing: check board %s: %w", boardID, err)
	}
	if count == 0 {
		return apperr.NotFound("routing: board %s", boardID)
	}
	if columnID != "" {
		if err := e.db.Model(&models.Column{}).Where("id = ? AND board_id = ?", columnID, boardID).Count(&count).Error; err != nil {
			return fmt.Errorf("routing: check column %s: %w", columnID, err)
		}
		if count == 0 {
			return apperr.Validation("routing: column %s does not belong to board %s", columnID, boardID)
		}
	}
	return nil
}

// nullable maps an empty string to SQL NULL for pointer columns.
func nullable(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
