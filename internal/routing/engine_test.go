package routing

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/zulandar/switchboard/internal/apperr"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&models.Board{}, &models.Column{}, &models.RoutingRule{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewEngine(gdb)
}

func mustCreate(t *testing.T, e *Engine, opts CreateOpts) *models.RoutingRule {
	t.Helper()
	rule, err := e.Create(opts)
	if err != nil {
		t.Fatalf("Create(%q) error: %v", opts.Name, err)
	}
	return rule
}

func TestCreate_Validation(t *testing.T) {
	e := testEngine(t)

	tests := []struct {
		name string
		opts CreateOpts
	}{
		{"missing name", CreateOpts{ConditionType: "badge", TargetTeamID: "t"}},
		{"missing team", CreateOpts{Name: "r", ConditionType: "badge"}},
		{"bad condition type", CreateOpts{Name: "r", ConditionType: "vibes", TargetTeamID: "t"}},
		{"column without board", CreateOpts{Name: "r", ConditionType: "badge", TargetTeamID: "t", TargetColumnID: "col-x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Create(tt.opts)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("Create() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestCreate_AssignsIncreasingSeq(t *testing.T) {
	e := testEngine(t)

	r1 := mustCreate(t, e, CreateOpts{Name: "a", ConditionType: "badge", ConditionValue: "x", TargetTeamID: "t"})
	r2 := mustCreate(t, e, CreateOpts{Name: "b", ConditionType: "badge", ConditionValue: "y", TargetTeamID: "t"})
	if r1.Seq >= r2.Seq {
		t.Errorf("seq not increasing: %d then %d", r1.Seq, r2.Seq)
	}
}

func TestCreate_ConcurrentSeqsDistinct(t *testing.T) {
	e := testEngine(t)
	// In-memory sqlite hands each new connection its own database; pin the
	// pool to one so every goroutine sees the same tables.
	sqlDB, err := e.db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := e.Create(CreateOpts{
				Name: fmt.Sprintf("rule-%d", i), ConditionType: "badge", ConditionValue: "x", TargetTeamID: "t",
			})
			if err != nil {
				t.Errorf("Create(rule-%d) error: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	rules, err := e.List(ListFilters{})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(rules) != 8 {
		t.Fatalf("rules = %d, want 8", len(rules))
	}
	seen := make(map[int64]string, len(rules))
	for _, r := range rules {
		if other, dup := seen[r.Seq]; dup {
			t.Errorf("rules %s and %s share seq %d", other, r.Name, r.Seq)
		}
		seen[r.Seq] = r.Name
	}
}

func TestEvaluate_FirstMatchByPriority(t *testing.T) {
	e := testEngine(t)

	mustCreate(t, e, CreateOpts{Name: "at-risk", ConditionType: "badge", ConditionValue: "at-risk", TargetTeamID: "teamX", Priority: 10})
	mustCreate(t, e, CreateOpts{Name: "catch-all", ConditionType: "badge", ConditionValue: "*", TargetTeamID: "teamY", Priority: 20})

	d, err := e.Evaluate(WorkItem{Badge: "at-risk"})
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if d == nil || d.TeamID != "teamX" {
		t.Errorf("decision = %+v, want teamX", d)
	}

	d, err = e.Evaluate(WorkItem{Badge: "opportunity"})
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if d == nil || d.TeamID != "teamY" {
		t.Errorf("decision = %+v, want teamY via wildcard", d)
	}
}

func TestEvaluate_NoMatchIsNil(t *testing.T) {
	e := testEngine(t)
	mustCreate(t, e, CreateOpts{Name: "narrow", ConditionType: "badge", ConditionValue: "at-risk", TargetTeamID: "t"})

	d, err := e.Evaluate(WorkItem{Badge: "opportunity"})
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if d != nil {
		t.Errorf("decision = %+v, want nil for no match", d)
	}
}

func TestEvaluate_SkipsDisabledRules(t *testing.T) {
	e := testEngine(t)

	off := false
	mustCreate(t, e, CreateOpts{Name: "disabled", ConditionType: "badge", ConditionValue: "at-risk", TargetTeamID: "teamX", Priority: 1, Enabled: &off})
	mustCreate(t, e, CreateOpts{Name: "enabled", ConditionType: "badge", ConditionValue: "at-risk", TargetTeamID: "teamY", Priority: 2})

	d, err := e.Evaluate(WorkItem{Badge: "at-risk"})
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if d == nil || d.TeamID != "teamY" {
		t.Errorf("decision = %+v, want teamY (disabled rule skipped)", d)
	}
}

func TestEvaluate_ChannelFilter(t *testing.T) {
	e := testEngine(t)
	mustCreate(t, e, CreateOpts{Name: "email only", Channel: "email", ConditionType: "badge", ConditionValue: "at-risk", TargetTeamID: "teamX"})

	d, _ := e.Evaluate(WorkItem{Badge: "at-risk", Channel: "email"})
	if d == nil {
		t.Error("matching channel should produce a decision")
	}
	d, _ = e.Evaluate(WorkItem{Badge: "at-risk", Channel: "phone"})
	if d != nil {
		t.Errorf("mismatched channel produced %+v, want nil", d)
	}
}

func TestEvaluate_PriorityTieBreaksByInsertion(t *testing.T) {
	e := testEngine(t)

	mustCreate(t, e, CreateOpts{Name: "first", ConditionType: "badge", ConditionValue: "x", TargetTeamID: "teamA", Priority: 5})
	mustCreate(t, e, CreateOpts{Name: "second", ConditionType: "badge", ConditionValue: "x", TargetTeamID: "teamB", Priority: 5})

	for i := 0; i < 5; i++ {
		d, err := e.Evaluate(WorkItem{Badge: "x"})
		if err != nil {
			t.Fatalf("Evaluate() error: %v", err)
		}
		if d == nil || d.TeamID != "teamA" {
			t.Fatalf("decision = %+v, want teamA (earlier insertion wins tie)", d)
		}
	}
}

func TestEvaluate_CustomCondition(t *testing.T) {
	e := testEngine(t)
	mustCreate(t, e, CreateOpts{Name: "vip", ConditionType: "custom", ConditionValue: "vip-check", TargetTeamID: "teamV"})

	d, _ := e.Evaluate(WorkItem{Custom: func(v string) bool { return v == "vip-check" }})
	if d == nil || d.TeamID != "teamV" {
		t.Errorf("decision = %+v, want teamV from custom predicate", d)
	}

	// Without a predicate hook, custom rules never match.
	d, _ = e.Evaluate(WorkItem{})
	if d != nil {
		t.Errorf("decision = %+v, want nil without predicate", d)
	}
}

func TestReorder_FlipsFirstMatch(t *testing.T) {
	e := testEngine(t)

	r1 := mustCreate(t, e, CreateOpts{Name: "first", ConditionType: "badge", ConditionValue: "x", TargetTeamID: "teamA", Priority: 10})
	r2 := mustCreate(t, e, CreateOpts{Name: "second", ConditionType: "badge", ConditionValue: "x", TargetTeamID: "teamB", Priority: 20})

	if err := e.Reorder([]string{r2.ID, r1.ID}); err != nil {
		t.Fatalf("Reorder() error: %v", err)
	}

	d, err := e.Evaluate(WorkItem{Badge: "x"})
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if d == nil || d.TeamID != "teamB" {
		t.Errorf("decision = %+v, want teamB after reorder", d)
	}

	// Priorities are now dense 0..n-1.
	rules, _ := e.List(ListFilters{})
	if rules[0].Priority != 0 || rules[1].Priority != 1 {
		t.Errorf("priorities = %d, %d, want 0, 1", rules[0].Priority, rules[1].Priority)
	}
}

func TestReorder_RejectsMismatchedSet(t *testing.T) {
	e := testEngine(t)
	r1 := mustCreate(t, e, CreateOpts{Name: "only", ConditionType: "badge", ConditionValue: "x", TargetTeamID: "t"})

	tests := [][]string{
		{},
		{r1.ID, "rul-bogus"},
		{"rul-bogus"},
		{r1.ID, r1.ID},
	}
	for _, ids := range tests {
		if err := e.Reorder(ids); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Reorder(%v) error = %v, want ErrValidation", ids, err)
		}
	}
}

func TestUpdate_Partial(t *testing.T) {
	e := testEngine(t)
	rule := mustCreate(t, e, CreateOpts{Name: "r", ConditionType: "badge", ConditionValue: "x", TargetTeamID: "teamA"})

	newTeam := "teamB"
	off := false
	got, err := e.Update(rule.ID, UpdateOpts{TargetTeamID: &newTeam, Enabled: &off})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if got.TargetTeamID != "teamB" || got.Enabled {
		t.Errorf("updated rule = %+v, want teamB disabled", got)
	}
	if got.ConditionValue == nil || *got.ConditionValue != "x" {
		t.Error("untouched condition value changed")
	}
}

func TestUpdate_NotFound(t *testing.T) {
	e := testEngine(t)
	name := "x"
	_, err := e.Update("rul-nope0", UpdateOpts{Name: &name})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	e := testEngine(t)
	rule := mustCreate(t, e, CreateOpts{Name: "r", ConditionType: "badge", ConditionValue: "x", TargetTeamID: "t"})

	if err := e.Delete(rule.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := e.Delete(rule.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestEvaluateRules_Deterministic(t *testing.T) {
	v := "at-risk"
	rules := []models.RoutingRule{
		{ID: "b", Priority: 20, Seq: 2, Enabled: true, ConditionType: "badge", ConditionValue: &v, TargetTeamID: "teamY"},
		{ID: "a", Priority: 10, Seq: 1, Enabled: true, ConditionType: "badge", ConditionValue: &v, TargetTeamID: "teamX"},
	}
	item := WorkItem{Badge: "at-risk"}
	for i := 0; i < 10; i++ {
		d := EvaluateRules(rules, item)
		if d == nil || d.TeamID != "teamX" {
			t.Fatalf("iteration %d: decision = %+v, want teamX", i, d)
		}
	}
}
