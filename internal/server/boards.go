package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchboard/internal/apperr"
	"github.com/zulandar/switchboard/internal/board"
)

type createBoardRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Visibility    string   `json:"visibility"`
	CardType      string   `json:"card_type"`
	DefaultTeamID string   `json:"default_team_id"`
	Columns       []string `json:"columns"`
}

func (s *Server) handleListBoards(c *gin.Context) {
	boards, err := s.boards.ListBoards()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, boards)
}

func (s *Server) handleCreateBoard(c *gin.Context) {
	var req createBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validation("server: %v", err))
		return
	}
	b, err := s.boards.CreateBoard(board.CreateBoardOpts{
		Name:          req.Name,
		Description:   req.Description,
		Visibility:    req.Visibility,
		CardType:      req.CardType,
		DefaultTeamID: req.DefaultTeamID,
		Columns:       req.Columns,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (s *Server) handleGetBoard(c *gin.Context) {
	includeArchived := c.Query("archived") == "true"
	b, err := s.boards.GetBoard(c.Param("id"), includeArchived)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type updateBoardRequest struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	Visibility    *string `json:"visibility"`
	DefaultTeamID *string `json:"default_team_id"`
}

func (s *Server) handleUpdateBoard(c *gin.Context) {
	var req updateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validation("server: %v", err))
		return
	}
	b, err := s.boards.UpdateBoard(actor(c), c.Param("id"), board.UpdateBoardOpts{
		Name:          req.Name,
		Description:   req.Description,
		Visibility:    req.Visibility,
		DefaultTeamID: req.DefaultTeamID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) handleDeleteBoard(c *gin.Context) {
	if err := s.boards.DeleteBoard(actor(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type createColumnRequest struct {
	Name     string `json:"name"`
	WIPLimit *int   `json:"wip_limit"`
}

func (s *Server) handleCreateColumn(c *gin.Context) {
	var req createColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validation("server: %v", err))
		return
	}
	col, err := s.boards.CreateColumn(actor(c), c.Param("id"), req.Name, req.WIPLimit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, col)
}

type updateColumnRequest struct {
	Name          *string `json:"name"`
	WIPLimit      *int    `json:"wip_limit"`
	ClearWIPLimit bool    `json:"clear_wip_limit"`
}

func (s *Server) handleUpdateColumn(c *gin.Context) {
	var req updateColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validation("server: %v", err))
		return
	}
	col, err := s.boards.UpdateColumn(actor(c), c.Param("id"), board.UpdateColumnOpts{
		Name:          req.Name,
		WIPLimit:      req.WIPLimit,
		ClearWIPLimit: req.ClearWIPLimit,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, col)
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleReorderColumns(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validation("server: %v", err))
		return
	}
	if err := s.boards.ReorderColumns(actor(c), c.Param("id"), req.IDs); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeleteColumn(c *gin.Context) {
	if err := s.boards.DeleteColumn(actor(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type createCardRequest struct {
	BoardID        string `json:"board_id"`
	ColumnID       string `json:"column_id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	ActionPlanID   string `json:"action_plan_id"`
	AssigneeTeamID string `json:"assignee_team_id"`
	AssigneeUserID string `json:"assignee_user_id"`
	Metadata       string `json:"metadata"`
	Position       *int   `json:"position"`
}

func (s *Server) handleCreateCard(c *gin.Context) {
	var req createCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validation("server: %v", err))
		return
	}
	card, err := s.boards.CreateCard(actor(c), board.CreateCardOpts{
		BoardID:        req.BoardID,
		ColumnID:       req.ColumnID,
		Title:          req.Title,
		Description:    req.Description,
		ActionPlanID:   req.ActionPlanID,
		AssigneeTeamID: req.AssigneeTeamID,
		AssigneeUserID: req.AssigneeUserID,
		Metadata:       req.Metadata,
		Position:       req.Position,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

func (s *Server) handleGetCard(c *gin.Context) {
	card, err := s.boards.GetCard(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

type updateCardRequest struct {
	Title          *string `json:"title"`
	Description    *string `json:"description"`
	Status         *string `json:"status"`
	AssigneeTeamID *string `json:"assignee_team_id"`
	AssigneeUserID *string `json:"assignee_user_id"`
	Metadata       *string `json:"metadata"`
}

func (s *Server) handleUpdateCard(c *gin.Context) {
	var req updateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validation("server: %v", err))
		return
	}
	card, err := s.boards.UpdateCard(actor(c), c.Param("id"), board.UpdateCardOpts{
		Title:          req.Title,
		Description:    req.Description,
		Status:         req.Status,
		AssigneeTeamID: req.AssigneeTeamID,
		AssigneeUserID: req.AssigneeUserID,
		Metadata:       req.Metadata,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

type moveCardRequest struct {
	ColumnID string `json:"column_id"`
	Position *int   `json:"position"`
}

func (s *Server) handleMoveCard(c *gin.Context) {
	var req moveCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validation("server: %v", err))
		return
	}
	card, err := s.boards.MoveCard(actor(c), c.Param("id"), req.ColumnID, req.Position)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (s *Server) handleDeleteCard(c *gin.Context) {
	if err := s.boards.DeleteCard(actor(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type addPermissionRequest struct {
	TeamID string `json:"team_id"`
	Mode   string `json:"mode"`
}

func (s *Server) handleAddPermission(c *gin.Context) {
	var req addPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, apperr.Validation("server: %v", err))
		return
	}
	perm, err := s.boards.AddPermission(actor(c), c.Param("id"), req.TeamID, req.Mode)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, perm)
}

func (s *Server) handleRemovePermission(c *gin.Context) {
	if err := s.boards.RemovePermission(actor(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
