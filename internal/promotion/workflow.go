// Package promotion links action plans to board cards. A plan has at most
// one card; promoting an already-promoted plan relocates its card instead
// of creating a duplicate.
package promotion

import (
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/switchboard/internal/apperr"
	"github.com/zulandar/switchboard/internal/board"
	"github.com/zulandar/switchboard/internal/dispatch"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/routing"
	"gorm.io/gorm"
)

// Workflow drives promotion of action plans onto boards.
type Workflow struct {
	db         *gorm.DB
	boards     *board.Store
	rules      *routing.Engine
	dispatcher *dispatch.Dispatcher
}

// NewWorkflow creates a workflow. The dispatcher may be nil in tests.
func NewWorkflow(db *gorm.DB, boards *board.Store, rules *routing.Engine, dispatcher *dispatch.Dispatcher) *Workflow {
	return &Workflow{db: db, boards: boards, rules: rules, dispatcher: dispatcher}
}

// PromoteOpts holds parameters for promoting an action plan. When BoardID
// and ColumnID are empty the routing rule engine picks the target.
type PromoteOpts struct {
	BoardID        string
	ColumnID       string
	AssigneeTeamID string
	Metadata       string
}

// Promote places an action plan's card on a board. First promotion creates
// the card; re-promotion moves the existing card to the new target. A rule
// evaluation with no match returns apperr.ErrNoMatch and leaves the plan
// unpromoted; callers treat that as a no-op, not a failure.
func (w *Workflow) Promote(actor board.Actor, planID string, opts PromoteOpts) (*models.Card, error) {
	plan, err := w.getPlan(planID)
	if err != nil {
		return nil, err
	}

	target, err := w.resolveTarget(plan, opts)
	if err != nil {
		return nil, err
	}

	existing, err := w.boards.CardForPlan(planID)
	if err != nil {
		return nil, err
	}

	var card *models.Card
	if existing == nil {
		card, err = w.createCard(actor, plan, target, opts)
	} else {
		card, err = w.relocateCard(actor, existing, target, opts)
	}
	if err != nil {
		return nil, err
	}

	if err := w.recordRouting(plan, target); err != nil {
		return nil, err
	}
	w.publishPlan(plan.ID)
	return card, nil
}

// target is a fully resolved promotion destination.
type target struct {
	boardID  string
	columnID string
	teamID   string
	rule     *models.RoutingRule
}

// resolveTarget turns explicit opts or a rule decision into a concrete
// board and column. Explicit targets skip rule evaluation entirely.
func (w *Workflow) resolveTarget(plan *models.ActionPlan, opts PromoteOpts) (*target, error) {
	if opts.BoardID != "" {
		t := &target{boardID: opts.BoardID, columnID: opts.ColumnID, teamID: opts.AssigneeTeamID}
		return w.fillColumn(t)
	}
	if opts.ColumnID != "" {
		return nil, apperr.Validation("promotion: column target requires a board target")
	}

	decision, err := w.rules.Evaluate(routing.WorkItem{
		Badge:           plan.Badge,
		Intent:          plan.Intent,
		Urgency:         plan.Urgency,
		CustomerSegment: plan.Segment,
		Channel:         plan.Channel,
	})
	if err != nil {
		return nil, err
	}
	if decision == nil {
		return nil, apperr.NoMatch("promotion: no routing rule matches plan %s", plan.ID)
	}

	t := &target{teamID: decision.TeamID, rule: &decision.Rule}
	if decision.BoardID != nil {
		t.boardID = *decision.BoardID
	}
	if decision.ColumnID != nil {
		t.columnID = *decision.ColumnID
	}
	if t.boardID == "" {
		boardID, err := w.boardForTeam(decision.TeamID)
		if err != nil {
			return nil, err
		}
		t.boardID = boardID
	}
	return w.fillColumn(t)
}

// fillColumn defaults the column to the board's first column.
func (w *Workflow) fillColumn(t *target) (*target, error) {
	if t.columnID != "" {
		return t, nil
	}
	var col models.Column
	err := w.db.Where("board_id = ?", t.boardID).Order("position ASC").First(&col).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Validation("promotion: board %s has no columns", t.boardID)
	}
	if err != nil {
		return nil, fmt.Errorf("promotion: first column of %s: %w", t.boardID, err)
	}
	t.columnID = col.ID
	return t, nil
}

// boardForTeam finds the board whose default team matches a rule's target
// team, for rules that name a team but no board.
func (w *Workflow) boardForTeam(teamID string) (string, error) {
	var b models.Board
	err := w.db.Where("default_team_id = ?", teamID).Order("created_at ASC").First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperr.Validation("promotion: no board defaults to team %s", teamID)
	}
	if err != nil {
		return "", fmt.Errorf("promotion: board for team %s: %w", teamID, err)
	}
	return b.ID, nil
}

func (w *Workflow) createCard(actor board.Actor, plan *models.ActionPlan, t *target, opts PromoteOpts) (*models.Card, error) {
	return w.boards.CreateCard(actor, board.CreateCardOpts{
		BoardID:        t.boardID,
		ColumnID:       t.columnID,
		Title:          cardTitle(plan),
		ActionPlanID:   plan.ID,
		AssigneeTeamID: t.teamID,
		Metadata:       opts.Metadata,
	})
}

func (w *Workflow) relocateCard(actor board.Actor, card *models.Card, t *target, opts PromoteOpts) (*models.Card, error) {
	if card.BoardID != t.boardID {
		// Cross-board relocation: the store swaps the card atomically, so
		// a rejected target never strands the plan without a card.
		return w.boards.RelocateCard(actor, card.ID, board.RelocateCardOpts{
			BoardID:        t.boardID,
			ColumnID:       t.columnID,
			AssigneeTeamID: t.teamID,
		})
	}

	moved := card
	if card.ColumnID != t.columnID {
		var err error
		moved, err = w.boards.MoveCard(actor, card.ID, t.columnID, nil)
		if err != nil {
			return nil, err
		}
	}
	if t.teamID != "" {
		team := t.teamID
		return w.boards.UpdateCard(actor, card.ID, board.UpdateCardOpts{AssigneeTeamID: &team})
	}
	return moved, nil
}

// recordRouting writes the audit trail onto the plan: which rule (if any)
// drove the placement and when.
func (w *Workflow) recordRouting(plan *models.ActionPlan, t *target) error {
	updates := map[string]interface{}{
		"routed_at": time.Now(),
	}
	if t.rule != nil {
		updates["routed_rule_id"] = t.rule.ID
		updates["routed_rule_name"] = t.rule.Name
	} else {
		updates["routed_rule_id"] = nil
		updates["routed_rule_name"] = ""
	}
	if t.teamID != "" {
		updates["assignee_team_id"] = t.teamID
	}
	err := w.db.Model(&models.ActionPlan{}).Where("id = ?", plan.ID).Updates(updates).Error
	if err != nil {
		return fmt.Errorf("promotion: record routing on %s: %w", plan.ID, err)
	}
	return nil
}

func (w *Workflow) getPlan(id string) (*models.ActionPlan, error) {
	var plan models.ActionPlan
	if err := w.db.Where("id = ?", id).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("promotion: action plan %s", id)
		}
		return nil, fmt.Errorf("promotion: get plan %s: %w", id, err)
	}
	return &plan, nil
}

func (w *Workflow) publishPlan(planID string) {
	if w.dispatcher == nil {
		return
	}
	w.dispatcher.Publish(dispatch.Event{
		Type:   dispatch.TypeActionPlan,
		Action: dispatch.ActionUpdated,
		ID:     planID,
	})
}

func cardTitle(plan *models.ActionPlan) string {
	if plan.Intent != "" {
		return plan.Intent
	}
	return "Action plan " + plan.ID
}
