package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchboard/internal/apperr"
	"github.com/zulandar/switchboard/internal/promotion"
	"github.com/zulandar/switchboard/internal/routing"
)

func (s *Server) handleListRules(c *gin.Context) {
	filters := routing.ListFilters{
		Channel: c.Query("channel"),
		TeamID:  c.Query("team_id"),
	}
	if v := c.Query("enabled"); v != "" {
		enabled := v == "true"
		filters.Enabled = &enabled
	}
	rules, err := s.rules.List(filters)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

type createRuleRequest struct {
	Name           string `json:"name"`
	Channel        string `json:"channel"`
	ConditionType  string `json:"condition_type"`
	ConditionValue string `json:"condition_value"`
	TargetTeamID   string `json:"target_team_id"`
	TargetBoardID  string `json:"target_board_id"`
	TargetColumnID string `json:"target_column_id"`
	Priority       int    `json:"priority"`
	Enabled        *bool  `json:"enabled"`
}

func (s *Server) handleCreateRule(c *gin.Context) {
	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validation("server: %v", err))
		return
	}
	rule, err := s.rules.Create(routing.CreateOpts{
		Name:           req.Name,
		Channel:        req.Channel,
		ConditionType:  req.ConditionType,
		ConditionValue: req.ConditionValue,
		TargetTeamID:   req.TargetTeamID,
		TargetBoardID:  req.TargetBoardID,
		TargetColumnID: req.TargetColumnID,
		Priority:       req.Priority,
		Enabled:        req.Enabled,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

type updateRuleRequest struct {
	Name           *string `json:"name"`
	Channel        *string `json:"channel"`
	ConditionType  *string `json:"condition_type"`
	ConditionValue *string `json:"condition_value"`
	TargetTeamID   *string `json:"target_team_id"`
	TargetBoardID  *string `json:"target_board_id"`
	TargetColumnID *string `json:"target_column_id"`
	Enabled        *bool   `json:"enabled"`
}

func (s *Server) handleUpdateRule(c *gin.Context) {
	var req updateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validation("server: %v", err))
		return
	}
	rule, err := s.rules.Update(c.Param("id"), routing.UpdateOpts{
		Name:           req.Name,
		Channel:        req.Channel,
		ConditionType:  req.ConditionType,
		ConditionValue: req.ConditionValue,
		TargetTeamID:   req.TargetTeamID,
		TargetBoardID:  req.TargetBoardID,
		TargetColumnID: req.TargetColumnID,
		Enabled:        req.Enabled,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (s *Server) handleReorderRules(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validation("server: %v", err))
		return
	}
	if err := s.rules.Reorder(req.IDs); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeleteRule(c *gin.Context) {
	if err := s.rules.Delete(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type promoteRequest struct {
	BoardID        string `json:"board_id"`
	ColumnID       string `json:"column_id"`
	AssigneeTeamID string `json:"assignee_team_id"`
	Metadata       string `json:"metadata"`
}

// handlePromote promotes an action plan. A routing no-match is a defined
// no-op outcome, reported with 200 rather than an error status.
func (s *Server) handlePromote(c *gin.Context) {
	var req promoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validation("server: %v", err))
		return
	}
	card, err := s.workflow.Promote(actor(c), c.Param("id"), promotion.PromoteOpts{
		BoardID:        req.BoardID,
		ColumnID:       req.ColumnID,
		AssigneeTeamID: req.AssigneeTeamID,
		Metadata:       req.Metadata,
	})
	if errors.Is(err, apperr.ErrNoMatch) {
		c.JSON(http.StatusOK, gin.H{"promoted": false, "reason": err.Error()})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"promoted": true, "card": card})
}
