package db

import (
	"fmt"

	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Board{},
		&models.Column{},
		&models.Card{},
		&models.Permission{},
		&models.RoutingRule{},
		&models.ActionPlan{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedBoards creates boards (with their columns) from configuration.
// Boards are matched by name; existing boards are left untouched so that
// re-running init never disturbs live column ordering.
func SeedBoards(db *gorm.DB, boards []config.BoardConfig) error {
	for _, bc := range boards {
		var count int64
		if err := db.Model(&models.Board{}).Where("name = ?", bc.Name).Count(&count).Error; err != nil {
			return fmt.Errorf("db: check board %q: %w", bc.Name, err)
		}
		if count > 0 {
			continue
		}

		id, err := models.NewID("brd")
		if err != nil {
			return err
		}
		board := models.Board{
			ID:          id,
			Name:        bc.Name,
			Description: bc.Description,
			Visibility:  bc.Visibility,
			CardType:    bc.CardType,
		}
		if bc.DefaultTeamID != "" {
			board.DefaultTeamID = &bc.DefaultTeamID
		}
		if err := db.Create(&board).Error; err != nil {
			return fmt.Errorf("db: seed board %q: %w", bc.Name, err)
		}

		for pos, name := range bc.Columns {
			colID, err := models.NewID("col")
			if err != nil {
				return err
			}
			col := models.Column{
				ID:       colID,
				BoardID:  board.ID,
				Name:     name,
				Position: pos,
			}
			if err := db.Create(&col).Error; err != nil {
				return fmt.Errorf("db: seed column %q on board %q: %w", name, bc.Name, err)
			}
		}
	}
	return nil
}

// SeedRules creates routing rules from configuration. Rules are matched by
// name; board and column targets are resolved by name against seeded boards.
func SeedRules(db *gorm.DB, rules []config.RuleConfig) error {
	for _, rc := range rules {
		var count int64
		if err := db.Model(&models.RoutingRule{}).Where("name = ?", rc.Name).Count(&count).Error; err != nil {
			return fmt.Errorf("db: check rule %q: %w", rc.Name, err)
		}
		if count > 0 {
			continue
		}

		id, err := models.NewID("rul")
		if err != nil {
			return err
		}

		rule := models.RoutingRule{
			ID:            id,
			Name:          rc.Name,
			ConditionType: rc.ConditionType,
			TargetTeamID:  rc.TargetTeamID,
			Priority:      rc.Priority,
			Enabled:       true,
		}
		if rc.Enabled != nil {
			rule.Enabled = *rc.Enabled
		}
		if rc.Channel != "" {
			ch := rc.Channel
			rule.Channel = &ch
		}
		if rc.ConditionValue != "" {
			cv := rc.ConditionValue
			rule.ConditionValue = &cv
		}

		if rc.TargetBoard != "" {
			var board models.Board
			if err := db.Where("name = ?", rc.TargetBoard).First(&board).Error; err != nil {
				return fmt.Errorf("db: rule %q references unknown board %q: %w", rc.Name, rc.TargetBoard, err)
			}
			rule.TargetBoardID = &board.ID

			if rc.TargetColumn != "" {
				var col models.Column
				if err := db.Where("board_id = ? AND name = ?", board.ID, rc.TargetColumn).First(&col).Error; err != nil {
					return fmt.Errorf("db: rule %q references unknown column %q: %w", rc.Name, rc.TargetColumn, err)
				}
				rule.TargetColumnID = &col.ID
			}
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			var maxSeq int64
			if err := tx.Model(&models.RoutingRule{}).Select("COALESCE(MAX(seq), 0)").Scan(&maxSeq).Error; err != nil {
				return fmt.Errorf("db: next rule seq: %w", err)
			}
			rule.Seq = maxSeq + 1
			if err := tx.Create(&rule).Error; err != nil {
				return fmt.Errorf("db: seed rule %q: %w", rc.Name, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
