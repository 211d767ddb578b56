package board

import (
	"fmt"
	"log"
	"time"

	"github.com/zulandar/switchboard/internal/dispatch"
	"github.com/zulandar/switchboard/internal/ledger"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
)

// ArchiveDoneCards archives cards that have been done for longer than
// olderThan. Each board is processed under its lock; survivors in each
// touched column are renumbered. Returns the number of cards archived.
func (s *Store) ArchiveDoneCards(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	var stale []models.Card
	err := s.db.
		Where("status = ? AND completed_at IS NOT NULL AND completed_at < ?", models.CardStatusDone, cutoff).
		Order("board_id ASC, column_id ASC").
		Find(&stale).Error
	if err != nil {
		return 0, fmt.Errorf("board: find stale done cards: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	byBoard := map[string][]models.Card{}
	for _, c := range stale {
		byBoard[c.BoardID] = append(byBoard[c.BoardID], c)
	}

	archived := 0
	for boardID, cards := range byBoard {
		n, err := s.archiveBoardCards(boardID, cards)
		archived += n
		if err != nil {
			// Keep sweeping the other boards.
			log.Printf("board: archive sweep on %s: %v", boardID, err)
		}
	}
	return archived, nil
}

func (s *Store) archiveBoardCards(boardID string, cards []models.Card) (int, error) {
	unlock := s.lockBoard(boardID)
	defer unlock()

	now := time.Now()
	archived := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, card := range cards {
			if err := ledger.Remove(tx, ledger.Cards(card.ColumnID), card.ID); err != nil {
				return err
			}
			err := tx.Model(&models.Card{}).Where("id = ?", card.ID).
				Updates(map[string]interface{}{
					"status":      models.CardStatusArchived,
					"archived_at": now,
				}).Error
			if err != nil {
				return fmt.Errorf("board: archive card %s: %w", card.ID, err)
			}
			archived++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, card := range cards {
		c := card
		s.publish(dispatch.TypeCard, dispatch.ActionUpdated, c.ID, cardEventData(&c))
	}
	return archived, nil
}
