package board

import (
	"errors"
	"fmt"

	"github.com/zulandar/switchboard/internal/apperr"
	"github.com/zulandar/switchboard/internal/dispatch"
	"github.com/zulandar/switchboard/internal/ledger"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
)

// CreateBoardOpts holds parameters for creating a board.
type CreateBoardOpts struct {
	Name          string
	Description   string
	Visibility    string // org (default) or team
	CardType      string
	DefaultTeamID string
	Columns       []string // initial column names, in order
}

// UpdateBoardOpts holds a partial board update.
type UpdateBoardOpts struct {
	Name          *string
	Description   *string
	Visibility    *string
	DefaultTeamID *string // pointer to empty string clears the default team
}

// UpdateColumnOpts holds a partial column update.
type UpdateColumnOpts struct {
	Name          *string
	WIPLimit      *int
	ClearWIPLimit bool
}

// CreateBoard creates a board with its initial columns.
func (s *Store) CreateBoard(opts CreateBoardOpts) (*models.Board, error) {
	if opts.Name == "" {
		return nil, apperr.Validation("board: name is required")
	}
	if opts.Visibility == "" {
		opts.Visibility = models.VisibilityOrg
	}
	if opts.Visibility != models.VisibilityOrg && opts.Visibility != models.VisibilityTeam {
		return nil, apperr.Validation("board: visibility must be org or team")
	}
	if opts.CardType == "" {
		opts.CardType = "task"
	}

	id, err := models.NewID("brd")
	if err != nil {
		return nil, err
	}
	board := models.Board{
		ID:          id,
		Name:        opts.Name,
		Description: opts.Description,
		Visibility:  opts.Visibility,
		CardType:    opts.CardType,
	}
	if opts.DefaultTeamID != "" {
		board.DefaultTeamID = &opts.DefaultTeamID
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&board).Error; err != nil {
			return fmt.Errorf("board: create: %w", err)
		}
		for pos, name := range opts.Columns {
			colID, err := models.NewID("col")
			if err != nil {
				return err
			}
			col := models.Column{ID: colID, BoardID: board.ID, Name: name, Position: pos}
			if err := tx.Create(&col).Error; err != nil {
				return fmt.Errorf("board: create column %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(dispatch.TypeBoard, dispatch.ActionCreated, board.ID, nil)
	return s.GetBoard(board.ID, false)
}

// GetBoard returns a board with its columns and cards ordered by position.
// Archived cards are excluded unless includeArchived is set.
func (s *Store) GetBoard(id string, includeArchived bool) (*models.Board, error) {
	board, err := s.getBoard(id)
	if err != nil {
		return nil, err
	}

	var cols []models.Column
	if err := s.db.Where("board_id = ?", id).Order("position ASC").Find(&cols).Error; err != nil {
		return nil, fmt.Errorf("board: load columns of %s: %w", id, err)
	}
	for i := range cols {
		q := s.db.Where("column_id = ?", cols[i].ID)
		if !includeArchived {
			q = q.Where("status <> ?", models.CardStatusArchived)
		}
		if err := q.Order("position ASC").Find(&cols[i].Cards).Error; err != nil {
			return nil, fmt.Errorf("board: load cards of %s: %w", cols[i].ID, err)
		}
	}
	board.Columns = cols
	return board, nil
}

// ListBoards returns all boards without their columns.
func (s *Store) ListBoards() ([]models.Board, error) {
	var boards []models.Board
	if err := s.db.Order("created_at ASC").Find(&boards).Error; err != nil {
		return nil, fmt.Errorf("board: list: %w", err)
	}
	return boards, nil
}

// UpdateBoard applies a partial update and returns the resulting board.
func (s *Store) UpdateBoard(actor Actor, id string, opts UpdateBoardOpts) (*models.Board, error) {
	board, err := s.getBoard(id)
	if err != nil {
		return nil, err
	}
	if err := s.requireEdit(board, actor); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if opts.Name != nil {
		if *opts.Name == "" {
			return nil, apperr.Validation("board: name cannot be empty")
		}
		updates["name"] = *opts.Name
	}
	if opts.Description != nil {
		updates["description"] = *opts.Description
	}
	if opts.Visibility != nil {
		if *opts.Visibility != models.VisibilityOrg && *opts.Visibility != models.VisibilityTeam {
			return nil, apperr.Validation("board: visibility must be org or team")
		}
		updates["visibility"] = *opts.Visibility
	}
	if opts.DefaultTeamID != nil {
		if *opts.DefaultTeamID == "" {
			updates["default_team_id"] = nil
		} else {
			updates["default_team_id"] = *opts.DefaultTeamID
		}
	}

	if len(updates) > 0 {
		if err := s.db.Model(&models.Board{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("board: update %s: %w", id, err)
		}
		s.publish(dispatch.TypeBoard, dispatch.ActionUpdated, id, nil)
	}
	return s.GetBoard(id, false)
}

// DeleteBoard removes a board and cascades to its columns, cards and
// permissions. The cascade is explicit so no dangling references survive.
func (s *Store) DeleteBoard(actor Actor, id string) error {
	board, err := s.getBoard(id)
	if err != nil {
		return err
	}
	if err := s.requireEdit(board, actor); err != nil {
		return err
	}

	unlock := s.lockBoard(id)
	defer unlock()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Card{}, "board_id = ?", id).Error; err != nil {
			return fmt.Errorf("board: delete cards of %s: %w", id, err)
		}
		if err := tx.Delete(&models.Column{}, "board_id = ?", id).Error; err != nil {
			return fmt.Errorf("board: delete columns of %s: %w", id, err)
		}
		if err := tx.Delete(&models.Permission{}, "board_id = ?", id).Error; err != nil {
			return fmt.Errorf("board: delete permissions of %s: %w", id, err)
		}
		if err := tx.Delete(&models.Board{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("board: delete %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(dispatch.TypeBoard, dispatch.ActionDeleted, id, nil)
	return nil
}

// CreateColumn appends a column to a board.
func (s *Store) CreateColumn(actor Actor, boardID, name string, wipLimit *int) (*models.Column, error) {
	if name == "" {
		return nil, apperr.Validation("board: column name is required")
	}
	board, err := s.getBoard(boardID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEdit(board, actor); err != nil {
		return nil, err
	}

	unlock := s.lockBoard(boardID)
	defer unlock()

	id, err := models.NewID("col")
	if err != nil {
		return nil, err
	}
	col := models.Column{ID: id, BoardID: boardID, Name: name, WIPLimit: wipLimit}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		pos, err := ledger.Insert(tx, ledger.Columns(boardID), nil)
		if err != nil {
			return err
		}
		col.Position = pos
		if err := tx.Create(&col).Error; err != nil {
			return fmt.Errorf("board: create column: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(dispatch.TypeBoard, dispatch.ActionUpdated, boardID, nil)
	return &col, nil
}

// UpdateColumn renames a column or adjusts its advisory WIP limit. The
// limit is never enforced on card placement.
func (s *Store) UpdateColumn(actor Actor, columnID string, opts UpdateColumnOpts) (*models.Column, error) {
	col, err := s.getColumn(columnID)
	if err != nil {
		return nil, err
	}
	board, err := s.getBoard(col.BoardID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEdit(board, actor); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if opts.Name != nil {
		if *opts.Name == "" {
			return nil, apperr.Validation("board: column name cannot be empty")
		}
		updates["name"] = *opts.Name
	}
	if opts.ClearWIPLimit {
		updates["wip_limit"] = nil
	} else if opts.WIPLimit != nil {
		if *opts.WIPLimit < 0 {
			return nil, apperr.Validation("board: wip limit cannot be negative")
		}
		updates["wip_limit"] = *opts.WIPLimit
	}

	if len(updates) > 0 {
		if err := s.db.Model(&models.Column{}).Where("id = ?", columnID).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("board: update column %s: %w", columnID, err)
		}
		s.publish(dispatch.TypeBoard, dispatch.ActionUpdated, col.BoardID, nil)
	}
	return s.getColumn(columnID)
}

// ReorderColumns renumbers a board's columns to the order given. The id
// list must be exactly the board's current column set.
func (s *Store) ReorderColumns(actor Actor, boardID string, orderedIDs []string) error {
	board, err := s.getBoard(boardID)
	if err != nil {
		return err
	}
	if err := s.requireEdit(board, actor); err != nil {
		return err
	}

	unlock := s.lockBoard(boardID)
	defer unlock()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return ledger.Reorder(tx, ledger.Columns(boardID), orderedIDs)
	})
	if err != nil {
		return err
	}

	s.publish(dispatch.TypeBoard, dispatch.ActionUpdated, boardID, nil)
	return nil
}

// DeleteColumn removes a column, cascades to its cards, and renumbers the
// remaining sibling columns to stay contiguous.
func (s *Store) DeleteColumn(actor Actor, columnID string) error {
	col, err := s.getColumn(columnID)
	if err != nil {
		return err
	}
	board, err := s.getBoard(col.BoardID)
	if err != nil {
		return err
	}
	if err := s.requireEdit(board, actor); err != nil {
		return err
	}

	unlock := s.lockBoard(col.BoardID)
	defer unlock()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Card{}, "column_id = ?", columnID).Error; err != nil {
			return fmt.Errorf("board: delete cards of column %s: %w", columnID, err)
		}
		if err := ledger.Remove(tx, ledger.Columns(col.BoardID), columnID); err != nil {
			return err
		}
		if err := tx.Delete(&models.Column{}, "id = ?", columnID).Error; err != nil {
			return fmt.Errorf("board: delete column %s: %w", columnID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(dispatch.TypeBoard, dispatch.ActionUpdated, col.BoardID, nil)
	return nil
}

// AddPermission grants a team edit or view access to a board.
func (s *Store) AddPermission(actor Actor, boardID, teamID, mode string) (*models.Permission, error) {
	if teamID == "" {
		return nil, apperr.Validation("board: team is required")
	}
	if mode != models.ModeEdit && mode != models.ModeView {
		return nil, apperr.Validation("board: mode must be edit or view")
	}
	board, err := s.getBoard(boardID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEdit(board, actor); err != nil {
		return nil, err
	}

	for _, p := range board.Permissions {
		if p.TeamID == teamID {
			return nil, apperr.Validation("board: team %s already has a permission on board %s", teamID, boardID)
		}
	}

	id, err := models.NewID("prm")
	if err != nil {
		return nil, err
	}
	perm := models.Permission{ID: id, BoardID: boardID, TeamID: teamID, Mode: mode}
	if err := s.db.Create(&perm).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("board: team %s already has a permission on board %s", teamID, boardID)
		}
		return nil, fmt.Errorf("board: add permission: %w", err)
	}

	s.publish(dispatch.TypeBoard, dispatch.ActionUpdated, boardID, nil)
	return &perm, nil
}

// RemovePermission revokes a permission row.
func (s *Store) RemovePermission(actor Actor, permissionID string) error {
	var perm models.Permission
	if err := s.db.Where("id = ?", permissionID).First(&perm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("board: permission %s", permissionID)
		}
		return fmt.Errorf("board: get permission %s: %w", permissionID, err)
	}
	board, err := s.getBoard(perm.BoardID)
	if err != nil {
		return err
	}
	if err := s.requireEdit(board, actor); err != nil {
		return err
	}

	if err := s.db.Delete(&models.Permission{}, "id = ?", permissionID).Error; err != nil {
		return fmt.Errorf("board: remove permission %s: %w", permissionID, err)
	}

	s.publish(dispatch.TypeBoard, dispatch.ActionUpdated, perm.BoardID, nil)
	return nil
}

func (s *Store) getColumn(id string) (*models.Column, error) {
	var col models.Column
	if err := s.db.Where("id = ?", id).First(&col).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("board: column %s", id)
		}
		return nil, fmt.Errorf("board: get column %s: %w", id, err)
	}
	return &col, nil
}
