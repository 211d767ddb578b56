// Package ledger maintains dense, contiguous position ordering for entities
// that live in an ordered scope: cards within a column, columns within a
// board. Positions are 0-based and form exactly {0..n-1} after every
// operation. All functions expect to run inside the caller's transaction;
// the caller is responsible for serializing access to a scope.
package ledger

import (
	"fmt"
	"sort"

	"github.com/zulandar/switchboard/internal/apperr"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
)

// Entry is an (id, position) pair within a scope.
type Entry struct {
	ID       string
	Position int
}

// Scope abstracts the table and owning key a position set lives under.
type Scope interface {
	// Name identifies the scope in error messages, e.g. "column col-ab123".
	Name() string
	// List returns all entries in the scope ordered by position ascending.
	List(tx *gorm.DB) ([]Entry, error)
	// SetPosition writes the position of one entry.
	SetPosition(tx *gorm.DB, id string, pos int) error
}

// Cards returns the scope of cards owned by a column. Archived cards are
// excluded: they hold no position.
func Cards(columnID string) Scope { return cardScope{columnID: columnID} }

// Columns returns the scope of columns owned by a board.
func Columns(boardID string) Scope { return columnScope{boardID: boardID} }

type cardScope struct{ columnID string }

func (s cardScope) Name() string { return "column " + s.columnID }

func (s cardScope) List(tx *gorm.DB) ([]Entry, error) {
	var cards []models.Card
	err := tx.Where("column_id = ? AND status <> ?", s.columnID, models.CardStatusArchived).
		Order("position ASC").Find(&cards).Error
	if err != nil {
		return nil, fmt.Errorf("ledger: list cards in %s: %w", s.columnID, err)
	}
	entries := make([]Entry, len(cards))
	for i, c := range cards {
		entries[i] = Entry{ID: c.ID, Position: c.Position}
	}
	return entries, nil
}

func (s cardScope) SetPosition(tx *gorm.DB, id string, pos int) error {
	err := tx.Model(&models.Card{}).Where("id = ?", id).Update("position", pos).Error
	if err != nil {
		return fmt.Errorf("ledger: set card %s position: %w", id, err)
	}
	return nil
}

type columnScope struct{ boardID string }

func (s columnScope) Name() string { return "board " + s.boardID }

func (s columnScope) List(tx *gorm.DB) ([]Entry, error) {
	var cols []models.Column
	err := tx.Where("board_id = ?", s.boardID).Order("position ASC").Find(&cols).Error
	if err != nil {
		return nil, fmt.Errorf("ledger: list columns in %s: %w", s.boardID, err)
	}
	entries := make([]Entry, len(cols))
	for i, c := range cols {
		entries[i] = Entry{ID: c.ID, Position: c.Position}
	}
	return entries, nil
}

func (s columnScope) SetPosition(tx *gorm.DB, id string, pos int) error {
	err := tx.Model(&models.Column{}).Where("id = ?", id).Update("position", pos).Error
	if err != nil {
		return fmt.Errorf("ledger: set column %s position: %w", id, err)
	}
	return nil
}

// Insert makes room for a new entry at desired and returns the final index.
// A nil desired appends; out-of-range values clamp to [0, len]. Existing
// siblings at or after the final index shift down by one. The caller writes
// the new row with the returned position in the same transaction.
func Insert(tx *gorm.DB, scope Scope, desired *int) (int, error) {
	entries, err := scope.List(tx)
	if err != nil {
		return 0, err
	}

	idx := len(entries)
	if desired != nil {
		idx = clamp(*desired, 0, len(entries))
	}

	// Shift from the tail so no two rows transiently share a position.
	for i := len(entries) - 1; i >= idx; i-- {
		if err := scope.SetPosition(tx, entries[i].ID, entries[i].Position+1); err != nil {
			return 0, err
		}
	}
	return idx, nil
}

// Remove closes the gap left by id: remaining siblings are renumbered to
// 0..n-2 in their current order. The caller deletes or reparents the row
// itself in the same transaction.
func Remove(tx *gorm.DB, scope Scope, id string) error {
	entries, err := scope.List(tx)
	if err != nil {
		return err
	}

	found := false
	next := 0
	for _, e := range entries {
		if e.ID == id {
			found = true
			continue
		}
		if e.Position != next {
			if err := scope.SetPosition(tx, e.ID, next); err != nil {
				return err
			}
		}
		next++
	}
	if !found {
		return apperr.NotFound("ledger: %s has no entry %s", scope.Name(), id)
	}
	return nil
}

// Reorder reassigns positions 0..n-1 in the order given. The supplied ids
// must be exactly the scope's current membership.
func Reorder(tx *gorm.DB, scope Scope, orderedIDs []string) error {
	entries, err := scope.List(tx)
	if err != nil {
		return err
	}
	if err := checkSameSet(scope, entries, orderedIDs); err != nil {
		return err
	}

	current := make(map[string]int, len(entries))
	for _, e := range entries {
		current[e.ID] = e.Position
	}
	for pos, id := range orderedIDs {
		if current[id] == pos {
			continue
		}
		if err := scope.SetPosition(tx, id, pos); err != nil {
			return err
		}
	}
	return nil
}

// Verify checks the contiguity invariant for a scope: positions must be
// exactly {0..n-1}. Used by tests and the doctor command.
func Verify(tx *gorm.DB, scope Scope) error {
	entries, err := scope.List(tx)
	if err != nil {
		return err
	}
	positions := make([]int, len(entries))
	for i, e := range entries {
		positions[i] = e.Position
	}
	sort.Ints(positions)
	for i, p := range positions {
		if p != i {
			return fmt.Errorf("ledger: %s positions not contiguous: %v", scope.Name(), positions)
		}
	}
	return nil
}

func checkSameSet(scope Scope, entries []Entry, ids []string) error {
	if len(ids) != len(entries) {
		return apperr.Validation("ledger: %s reorder got %d ids, scope has %d", scope.Name(), len(ids), len(entries))
	}
	existing := make(map[string]bool, len(entries))
	for _, e := range entries {
		existing[e.ID] = true
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !existing[id] {
			return apperr.Validation("ledger: %s reorder includes unknown id %s", scope.Name(), id)
		}
		if seen[id] {
			return apperr.Validation("ledger: %s reorder repeats id %s", scope.Name(), id)
		}
		seen[id] = true
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
