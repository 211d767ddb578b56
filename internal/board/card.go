package board

import (
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/switchboard/internal/apperr"
	"github.com/zulandar/switchboard/internal/dispatch"
	"github.com/zulandar/switchboard/internal/ledger"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
)

// CreateCardOpts holds parameters for creating a card.
type CreateCardOpts struct {
	BoardID        string
	ColumnID       string
	Title          string
	Description    string
	ActionPlanID   string // optional link; at most one card may hold it
	AssigneeTeamID string
	AssigneeUserID string
	Metadata       string // opaque JSON bag
	Position       *int   // nil appends
}

// UpdateCardOpts holds a partial card update. ColumnID is deliberately
// absent: moves must go through MoveCard so positions stay consistent.
type UpdateCardOpts struct {
	Title          *string
	Description    *string
	Status         *string
	AssigneeTeamID *string
	AssigneeUserID *string
	Metadata       *string
}

// CreateCard creates a card in the given column, appended unless a
// position is requested. The column must belong to the given board.
func (s *Store) CreateCard(actor Actor, opts CreateCardOpts) (*models.Card, error) {
	if opts.Title == "" {
		return nil, apperr.Validation("board: card title is required")
	}
	board, err := s.getBoard(opts.BoardID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEdit(board, actor); err != nil {
		return nil, err
	}
	col, err := s.getColumn(opts.ColumnID)
	if err != nil {
		return nil, err
	}
	if col.BoardID != opts.BoardID {
		return nil, apperr.Validation("board: column %s does not belong to board %s", opts.ColumnID, opts.BoardID)
	}

	id, err := models.NewID("crd")
	if err != nil {
		return nil, err
	}
	card := models.Card{
		ID:          id,
		BoardID:     opts.BoardID,
		ColumnID:    opts.ColumnID,
		Title:       opts.Title,
		Description: opts.Description,
		Status:      models.CardStatusActive,
		Metadata:    opts.Metadata,
	}
	if opts.ActionPlanID != "" {
		pid := opts.ActionPlanID
		card.ActionPlanID = &pid
	}
	if opts.AssigneeTeamID != "" {
		tid := opts.AssigneeTeamID
		card.AssigneeTeamID = &tid
	}
	if opts.AssigneeUserID != "" {
		uid := opts.AssigneeUserID
		card.AssigneeUserID = &uid
	}

	unlock := s.lockBoard(opts.BoardID)
	defer unlock()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		pos, err := ledger.Insert(tx, ledger.Cards(opts.ColumnID), opts.Position)
		if err != nil {
			return err
		}
		card.Position = pos
		if err := tx.Create(&card).Error; err != nil {
			if card.ActionPlanID != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("board: plan %s already has a card", *card.ActionPlanID)
			}
			return fmt.Errorf("board: create card: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(dispatch.TypeCard, dispatch.ActionCreated, card.ID, cardEventData(&card))
	return &card, nil
}

// GetCard retrieves a card by ID.
func (s *Store) GetCard(id string) (*models.Card, error) {
	var card models.Card
	if err := s.db.Where("id = ?", id).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("board: card %s", id)
		}
		return nil, fmt.Errorf("board: get card %s: %w", id, err)
	}
	return &card, nil
}

// UpdateCard applies a partial update. Status moving to done stamps
// CompletedAt; moving back to active clears it. Archiving releases the
// card's position so siblings stay contiguous.
func (s *Store) UpdateCard(actor Actor, id string, opts UpdateCardOpts) (*models.Card, error) {
	card, err := s.GetCard(id)
	if err != nil {
		return nil, err
	}
	board, err := s.getBoard(card.BoardID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEdit(board, actor); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if opts.Title != nil {
		if *opts.Title == "" {
			return nil, apperr.Validation("board: card title cannot be empty")
		}
		updates["title"] = *opts.Title
	}
	if opts.Description != nil {
		updates["description"] = *opts.Description
	}
	if opts.AssigneeTeamID != nil {
		updates["assignee_team_id"] = nullable(*opts.AssigneeTeamID)
	}
	if opts.AssigneeUserID != nil {
		updates["assignee_user_id"] = nullable(*opts.AssigneeUserID)
	}
	if opts.Metadata != nil {
		updates["metadata"] = *opts.Metadata
	}

	archiving, restoring := false, false
	if opts.Status != nil {
		switch *opts.Status {
		case models.CardStatusActive:
			restoring = card.Status == models.CardStatusArchived
			updates["status"] = models.CardStatusActive
			updates["completed_at"] = nil
			updates["archived_at"] = nil
		case models.CardStatusDone:
			restoring = card.Status == models.CardStatusArchived
			updates["status"] = models.CardStatusDone
			if card.CompletedAt == nil {
				updates["completed_at"] = time.Now()
			}
			updates["archived_at"] = nil
		case models.CardStatusArchived:
			archiving = card.Status != models.CardStatusArchived
			updates["status"] = models.CardStatusArchived
			updates["archived_at"] = time.Now()
		default:
			return nil, apperr.Validation("board: unknown card status %q", *opts.Status)
		}
	}

	if len(updates) == 0 {
		return card, nil
	}

	unlock := s.lockBoard(card.BoardID)
	defer unlock()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if archiving {
			// Close the position gap before the card leaves the scope.
			if err := ledger.Remove(tx, ledger.Cards(card.ColumnID), id); err != nil {
				return err
			}
		}
		if restoring {
			// Coming back from archive: append at the column's tail.
			pos, err := ledger.Insert(tx, ledger.Cards(card.ColumnID), nil)
			if err != nil {
				return err
			}
			updates["position"] = pos
		}
		if err := tx.Model(&models.Card{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("board: update card %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.GetCard(id)
	if err != nil {
		return nil, err
	}
	s.publish(dispatch.TypeCard, dispatch.ActionUpdated, id, cardEventData(updated))
	return updated, nil
}

// MoveCard moves a card to a column at the given position. The target
// column must belong to the card's current board; cross-board moves are
// rejected. Source and target scopes are renumbered in one transaction
// under the board lock.
func (s *Store) MoveCard(actor Actor, cardID, toColumnID string, position *int) (*models.Card, error) {
	card, err := s.GetCard(cardID)
	if err != nil {
		return nil, err
	}
	if card.Status == models.CardStatusArchived {
		return nil, apperr.Validation("board: card %s is archived", cardID)
	}
	board, err := s.getBoard(card.BoardID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEdit(board, actor); err != nil {
		return nil, err
	}
	target, err := s.getColumn(toColumnID)
	if err != nil {
		return nil, err
	}
	if target.BoardID != card.BoardID {
		return nil, apperr.Validation("board: column %s belongs to board %s, card %s belongs to board %s",
			toColumnID, target.BoardID, cardID, card.BoardID)
	}

	unlock := s.lockBoard(card.BoardID)
	defer unlock()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := ledger.Remove(tx, ledger.Cards(card.ColumnID), cardID); err != nil {
			return err
		}
		pos, err := ledger.Insert(tx, ledger.Cards(toColumnID), position)
		if err != nil {
			return err
		}
		err = tx.Model(&models.Card{}).Where("id = ?", cardID).
			Updates(map[string]interface{}{"column_id": toColumnID, "position": pos}).Error
		if err != nil {
			return fmt.Errorf("board: move card %s: %w", cardID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	moved, err := s.GetCard(cardID)
	if err != nil {
		return nil, err
	}
	data := cardEventData(moved)
	data["moved"] = "true"
	s.publish(dispatch.TypeCard, dispatch.ActionUpdated, cardID, data)
	return moved, nil
}

// RelocateCardOpts names a destination on another board.
type RelocateCardOpts struct {
	BoardID        string
	ColumnID       string
	AssigneeTeamID string
}

// RelocateCard recreates a card on another board, keeping its content and
// plan link. The old card is removed and the replacement created in one
// transaction, so a failed relocation leaves the original untouched.
func (s *Store) RelocateCard(actor Actor, cardID string, opts RelocateCardOpts) (*models.Card, error) {
	card, err := s.GetCard(cardID)
	if err != nil {
		return nil, err
	}
	if card.BoardID == opts.BoardID {
		return nil, apperr.Validation("board: card %s is already on board %s", cardID, opts.BoardID)
	}
	source, err := s.getBoard(card.BoardID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEdit(source, actor); err != nil {
		return nil, err
	}
	dest, err := s.getBoard(opts.BoardID)
	if err != nil {
		return nil, err
	}
	if err := s.requireEdit(dest, actor); err != nil {
		return nil, err
	}
	col, err := s.getColumn(opts.ColumnID)
	if err != nil {
		return nil, err
	}
	if col.BoardID != opts.BoardID {
		return nil, apperr.Validation("board: column %s does not belong to board %s", opts.ColumnID, opts.BoardID)
	}

	id, err := models.NewID("crd")
	if err != nil {
		return nil, err
	}
	replacement := models.Card{
		ID:             id,
		BoardID:        opts.BoardID,
		ColumnID:       opts.ColumnID,
		ActionPlanID:   card.ActionPlanID,
		Title:          card.Title,
		Description:    card.Description,
		Status:         models.CardStatusActive,
		AssigneeUserID: card.AssigneeUserID,
		Metadata:       card.Metadata,
	}
	if opts.AssigneeTeamID != "" {
		tid := opts.AssigneeTeamID
		replacement.AssigneeTeamID = &tid
	}

	// Both boards get locked in ID order so two opposing relocations
	// cannot deadlock.
	first, second := card.BoardID, opts.BoardID
	if second < first {
		first, second = second, first
	}
	unlockFirst := s.lockBoard(first)
	defer unlockFirst()
	unlockSecond := s.lockBoard(second)
	defer unlockSecond()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if card.Status != models.CardStatusArchived {
			if err := ledger.Remove(tx, ledger.Cards(card.ColumnID), cardID); err != nil {
				return err
			}
		}
		if err := tx.Delete(&models.Card{}, "id = ?", cardID).Error; err != nil {
			return fmt.Errorf("board: delete card %s: %w", cardID, err)
		}
		pos, err := ledger.Insert(tx, ledger.Cards(opts.ColumnID), nil)
		if err != nil {
			return err
		}
		replacement.Position = pos
		if err := tx.Create(&replacement).Error; err != nil {
			if replacement.ActionPlanID != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Conflict("board: plan %s already has a card", *replacement.ActionPlanID)
			}
			return fmt.Errorf("board: create card: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(dispatch.TypeCard, dispatch.ActionDeleted, cardID, cardEventData(card))
	s.publish(dispatch.TypeCard, dispatch.ActionCreated, replacement.ID, cardEventData(&replacement))
	return &replacement, nil
}

// DeleteCard removes a card and closes its position gap.
func (s *Store) DeleteCard(actor Actor, id string) error {
	card, err := s.GetCard(id)
	if err != nil {
		return err
	}
	board, err := s.getBoard(card.BoardID)
	if err != nil {
		return err
	}
	if err := s.requireEdit(board, actor); err != nil {
		return err
	}

	unlock := s.lockBoard(card.BoardID)
	defer unlock()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if card.Status != models.CardStatusArchived {
			if err := ledger.Remove(tx, ledger.Cards(card.ColumnID), id); err != nil {
				return err
			}
		}
		if err := tx.Delete(&models.Card{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("board: delete card %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(dispatch.TypeCard, dispatch.ActionDeleted, id, cardEventData(card))
	return nil
}

// CardForPlan returns the card linked to an action plan, or nil when the
// plan is unpromoted.
func (s *Store) CardForPlan(actionPlanID string) (*models.Card, error) {
	var card models.Card
	err := s.db.Where("action_plan_id = ?", actionPlanID).First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("board: card for plan %s: %w", actionPlanID, err)
	}
	return &card, nil
}

func cardEventData(card *models.Card) map[string]string {
	data := map[string]string{
		"board_id":  card.BoardID,
		"column_id": card.ColumnID,
	}
	if card.ActionPlanID != nil {
		data["action_plan_id"] = *card.ActionPlanID
	}
	return data
}

func nullable(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
