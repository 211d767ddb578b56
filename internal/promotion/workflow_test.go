package promotion

import (
	"errors"
	"testing"

	"github.com/zulandar/switchboard/internal/apperr"
	"github.com/zulandar/switchboard/internal/board"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/routing"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	db     *gorm.DB
	boards *board.Store
	rules  *routing.Engine
	wf     *Workflow
}

func testFixture(t *testing.T) *fixture {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = gdb.AutoMigrate(
		&models.Board{}, &models.Column{}, &models.Card{},
		&models.Permission{}, &models.RoutingRule{}, &models.ActionPlan{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	boards := board.NewStore(gdb, nil)
	rules := routing.NewEngine(gdb)
	return &fixture{
		db:     gdb,
		boards: boards,
		rules:  rules,
		wf:     NewWorkflow(gdb, boards, rules, nil),
	}
}

func (f *fixture) makeBoard(t *testing.T, name string, defaultTeam string) *models.Board {
	t.Helper()
	b, err := f.boards.CreateBoard(board.CreateBoardOpts{
		Name:          name,
		DefaultTeamID: defaultTeam,
		Columns:       []string{"Intake", "Working", "Done"},
	})
	if err != nil {
		t.Fatalf("CreateBoard(%q) error: %v", name, err)
	}
	return b
}

func (f *fixture) makePlan(t *testing.T, id, badge string) *models.ActionPlan {
	t.Helper()
	plan := models.ActionPlan{ID: id, CustomerID: "cust-1", Badge: badge, Intent: "Win back customer", Status: models.PlanStatusActive}
	if err := f.db.Create(&plan).Error; err != nil {
		t.Fatalf("create plan: %v", err)
	}
	return &plan
}

func (f *fixture) planCards(t *testing.T, planID string) []models.Card {
	t.Helper()
	var cards []models.Card
	if err := f.db.Where("action_plan_id = ?", planID).Find(&cards).Error; err != nil {
		t.Fatalf("load cards: %v", err)
	}
	return cards
}

func TestPromote_ExplicitTarget(t *testing.T) {
	f := testFixture(t)
	b := f.makeBoard(t, "Retention", "")
	plan := f.makePlan(t, "pln-1", "at-risk")

	card, err := f.wf.Promote(board.System, plan.ID, PromoteOpts{
		BoardID: b.ID, ColumnID: b.Columns[1].ID, AssigneeTeamID: "team-r",
	})
	if err != nil {
		t.Fatalf("Promote() error: %v", err)
	}
	if card.BoardID != b.ID || card.ColumnID != b.Columns[1].ID {
		t.Errorf("card placed at %s/%s, want %s/%s", card.BoardID, card.ColumnID, b.ID, b.Columns[1].ID)
	}
	if card.ActionPlanID == nil || *card.ActionPlanID != plan.ID {
		t.Errorf("card plan link = %v, want %s", card.ActionPlanID, plan.ID)
	}
	if card.Title != "Win back customer" {
		t.Errorf("card title = %q, want plan intent", card.Title)
	}

	var got models.ActionPlan
	f.db.First(&got, "id = ?", plan.ID)
	if got.RoutedAt == nil {
		t.Error("plan RoutedAt not stamped")
	}
	if got.RoutedRuleID != nil {
		t.Errorf("explicit promote recorded rule %v, want none", got.RoutedRuleID)
	}
	if got.AssigneeTeamID == nil || *got.AssigneeTeamID != "team-r" {
		t.Errorf("plan assignee = %v, want team-r", got.AssigneeTeamID)
	}
}

func TestPromote_DefaultsToFirstColumn(t *testing.T) {
	f := testFixture(t)
	b := f.makeBoard(t, "Retention", "")
	plan := f.makePlan(t, "pln-1", "at-risk")

	card, err := f.wf.Promote(board.System, plan.ID, PromoteOpts{BoardID: b.ID})
	if err != nil {
		t.Fatalf("Promote() error: %v", err)
	}
	if card.ColumnID != b.Columns[0].ID {
		t.Errorf("card column = %s, want first column %s", card.ColumnID, b.Columns[0].ID)
	}
}

func TestPromote_Idempotent(t *testing.T) {
	f := testFixture(t)
	b1 := f.makeBoard(t, "Retention", "")
	b2 := f.makeBoard(t, "Expansion", "")
	plan := f.makePlan(t, "pln-1", "at-risk")

	first, err := f.wf.Promote(board.System, plan.ID, PromoteOpts{BoardID: b1.ID, ColumnID: b1.Columns[0].ID})
	if err != nil {
		t.Fatalf("first Promote() error: %v", err)
	}

	second, err := f.wf.Promote(board.System, plan.ID, PromoteOpts{BoardID: b2.ID, ColumnID: b2.Columns[1].ID})
	if err != nil {
		t.Fatalf("second Promote() error: %v", err)
	}
	if second.BoardID != b2.ID || second.ColumnID != b2.Columns[1].ID {
		t.Errorf("card at %s/%s, want relocated to %s/%s", second.BoardID, second.ColumnID, b2.ID, b2.Columns[1].ID)
	}

	cards := f.planCards(t, plan.ID)
	if len(cards) != 1 {
		t.Fatalf("cards for plan = %d, want exactly 1", len(cards))
	}
	if cards[0].Title != first.Title {
		t.Errorf("relocated card lost title: %q vs %q", cards[0].Title, first.Title)
	}
}

func TestPromote_FailedRelocationKeepsCard(t *testing.T) {
	f := testFixture(t)
	b1 := f.makeBoard(t, "Retention", "")
	b2 := f.makeBoard(t, "Expansion", "")
	plan := f.makePlan(t, "pln-1", "at-risk")

	first, err := f.wf.Promote(board.System, plan.ID, PromoteOpts{BoardID: b1.ID})
	if err != nil {
		t.Fatalf("first Promote() error: %v", err)
	}

	// Re-promote to another board but name a column of the old one.
	_, err = f.wf.Promote(board.System, plan.ID, PromoteOpts{BoardID: b2.ID, ColumnID: b1.Columns[1].ID})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("foreign column error = %v, want ErrValidation", err)
	}

	cards := f.planCards(t, plan.ID)
	if len(cards) != 1 {
		t.Fatalf("plan has %d cards after failed re-promote, want 1", len(cards))
	}
	if cards[0].ID != first.ID || cards[0].BoardID != b1.ID {
		t.Errorf("card = %s on %s, want original %s on %s", cards[0].ID, cards[0].BoardID, first.ID, b1.ID)
	}
}

func TestPromote_SameBoardRelocationMoves(t *testing.T) {
	f := testFixture(t)
	b := f.makeBoard(t, "Retention", "")
	plan := f.makePlan(t, "pln-1", "at-risk")

	first, err := f.wf.Promote(board.System, plan.ID, PromoteOpts{BoardID: b.ID, ColumnID: b.Columns[0].ID})
	if err != nil {
		t.Fatalf("first Promote() error: %v", err)
	}
	second, err := f.wf.Promote(board.System, plan.ID, PromoteOpts{BoardID: b.ID, ColumnID: b.Columns[2].ID})
	if err != nil {
		t.Fatalf("second Promote() error: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("same-board relocation recreated the card: %s vs %s", second.ID, first.ID)
	}
	if second.ColumnID != b.Columns[2].ID {
		t.Errorf("card column = %s, want %s", second.ColumnID, b.Columns[2].ID)
	}
}

func TestPromote_AutoRouting(t *testing.T) {
	f := testFixture(t)
	b := f.makeBoard(t, "Retention", "")
	plan := f.makePlan(t, "pln-1", "at-risk")

	rule, err := f.rules.Create(routing.CreateOpts{
		Name: "at-risk to retention", ConditionType: "badge", ConditionValue: "at-risk",
		TargetTeamID: "team-r", TargetBoardID: b.ID, TargetColumnID: b.Columns[0].ID,
	})
	if err != nil {
		t.Fatalf("rule Create() error: %v", err)
	}

	card, err := f.wf.Promote(board.System, plan.ID, PromoteOpts{})
	if err != nil {
		t.Fatalf("Promote() error: %v", err)
	}
	if card.BoardID != b.ID {
		t.Errorf("card board = %s, want rule target %s", card.BoardID, b.ID)
	}
	if card.AssigneeTeamID == nil || *card.AssigneeTeamID != "team-r" {
		t.Errorf("card assignee = %v, want team-r", card.AssigneeTeamID)
	}

	var got models.ActionPlan
	f.db.First(&got, "id = ?", plan.ID)
	if got.RoutedRuleID == nil || *got.RoutedRuleID != rule.ID {
		t.Errorf("plan routed rule = %v, want %s", got.RoutedRuleID, rule.ID)
	}
	if got.RoutedRuleName != rule.Name {
		t.Errorf("plan routed rule name = %q, want %q", got.RoutedRuleName, rule.Name)
	}
}

func TestPromote_AutoRoutingFallsBackToTeamBoard(t *testing.T) {
	f := testFixture(t)
	b := f.makeBoard(t, "Retention", "team-r")
	f.makeBoard(t, "Other", "")
	plan := f.makePlan(t, "pln-1", "at-risk")

	_, err := f.rules.Create(routing.CreateOpts{
		Name: "team only", ConditionType: "badge", ConditionValue: "at-risk", TargetTeamID: "team-r",
	})
	if err != nil {
		t.Fatalf("rule Create() error: %v", err)
	}

	card, err := f.wf.Promote(board.System, plan.ID, PromoteOpts{})
	if err != nil {
		t.Fatalf("Promote() error: %v", err)
	}
	if card.BoardID != b.ID {
		t.Errorf("card board = %s, want team default board %s", card.BoardID, b.ID)
	}
}

func TestPromote_NoMatchIsDistinctNoOp(t *testing.T) {
	f := testFixture(t)
	f.makeBoard(t, "Retention", "")
	plan := f.makePlan(t, "pln-1", "opportunity")

	_, err := f.rules.Create(routing.CreateOpts{
		Name: "narrow", ConditionType: "badge", ConditionValue: "at-risk", TargetTeamID: "team-r",
	})
	if err != nil {
		t.Fatalf("rule Create() error: %v", err)
	}

	_, err = f.wf.Promote(board.System, plan.ID, PromoteOpts{})
	if !errors.Is(err, apperr.ErrNoMatch) {
		t.Fatalf("Promote() error = %v, want ErrNoMatch", err)
	}
	if errors.Is(err, apperr.ErrValidation) {
		t.Error("no-match must be distinct from validation failure")
	}
	if cards := f.planCards(t, plan.ID); len(cards) != 0 {
		t.Errorf("no-match created %d cards, want 0", len(cards))
	}

	var got models.ActionPlan
	f.db.First(&got, "id = ?", plan.ID)
	if got.RoutedAt != nil {
		t.Error("no-match must not stamp RoutedAt")
	}
}

func TestPromote_PlanNotFound(t *testing.T) {
	f := testFixture(t)
	b := f.makeBoard(t, "Retention", "")

	_, err := f.wf.Promote(board.System, "pln-missing", PromoteOpts{BoardID: b.ID})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Promote() error = %v, want ErrNotFound", err)
	}
}

func TestPromote_ColumnWithoutBoardRejected(t *testing.T) {
	f := testFixture(t)
	b := f.makeBoard(t, "Retention", "")
	plan := f.makePlan(t, "pln-1", "at-risk")

	_, err := f.wf.Promote(board.System, plan.ID, PromoteOpts{ColumnID: b.Columns[0].ID})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("Promote() error = %v, want ErrValidation", err)
	}
}

func TestPromote_CardDeletionUnpromotes(t *testing.T) {
	f := testFixture(t)
	b := f.makeBoard(t, "Retention", "")
	plan := f.makePlan(t, "pln-1", "at-risk")

	card, err := f.wf.Promote(board.System, plan.ID, PromoteOpts{BoardID: b.ID})
	if err != nil {
		t.Fatalf("Promote() error: %v", err)
	}
	if err := f.boards.DeleteCard(board.System, card.ID); err != nil {
		t.Fatalf("DeleteCard() error: %v", err)
	}

	// The plan itself survives and can be promoted again.
	var got models.ActionPlan
	if err := f.db.First(&got, "id = ?", plan.ID).Error; err != nil {
		t.Fatalf("plan gone after card delete: %v", err)
	}
	again, err := f.wf.Promote(board.System, plan.ID, PromoteOpts{BoardID: b.ID})
	if err != nil {
		t.Fatalf("re-promote error: %v", err)
	}
	if again.ID == card.ID {
		t.Error("re-promote should create a fresh card")
	}
	if cards := f.planCards(t, plan.ID); len(cards) != 1 {
		t.Errorf("cards for plan = %d, want 1", len(cards))
	}
}
