package models

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestBoard_Fields(t *testing.T) {
	typ := reflect.TypeOf(Board{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "size:32")
	assertGormTag(t, typ, "Name", "not null")
	assertGormTag(t, typ, "Description", "type:text")
	assertGormTag(t, typ, "Visibility", "size:8")
	assertGormTag(t, typ, "Visibility", "default:org")
	assertGormTag(t, typ, "CardType", "size:16")
	assertGormTag(t, typ, "CardType", "default:task")
	assertGormTag(t, typ, "DefaultTeamID", "size:64")

	assertFieldType(t, typ, "ID", "string")
	assertFieldType(t, typ, "DefaultTeamID", "*string")
	assertFieldType(t, typ, "CreatedAt", "time.Time")
	assertFieldType(t, typ, "UpdatedAt", "time.Time")
}

func TestBoard_Relations(t *testing.T) {
	typ := reflect.TypeOf(Board{})

	assertGormTag(t, typ, "Columns", "foreignKey:BoardID")
	assertGormTag(t, typ, "Permissions", "foreignKey:BoardID")

	assertFieldType(t, typ, "Columns", "[]models.Column")
	assertFieldType(t, typ, "Permissions", "[]models.Permission")
}

func TestColumn_Fields(t *testing.T) {
	typ := reflect.TypeOf(Column{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "BoardID", "size:32")
	assertGormTag(t, typ, "BoardID", "index")
	assertGormTag(t, typ, "BoardID", "not null")
	assertGormTag(t, typ, "Name", "not null")
	assertGormTag(t, typ, "Position", "not null")
	assertGormTag(t, typ, "Cards", "foreignKey:ColumnID")

	assertFieldType(t, typ, "Position", "int")
	assertFieldType(t, typ, "WIPLimit", "*int")
	assertFieldType(t, typ, "Cards", "[]models.Card")
}

func TestCard_Fields(t *testing.T) {
	typ := reflect.TypeOf(Card{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "size:32")
	assertGormTag(t, typ, "BoardID", "index")
	assertGormTag(t, typ, "ColumnID", "index")
	// One card per action plan, ever.
	assertGormTag(t, typ, "ActionPlanID", "uniqueIndex")
	assertGormTag(t, typ, "Title", "not null")
	assertGormTag(t, typ, "Description", "type:text")
	assertGormTag(t, typ, "Status", "size:16")
	assertGormTag(t, typ, "Status", "default:active")
	assertGormTag(t, typ, "Status", "index")
	assertGormTag(t, typ, "Position", "not null")
	assertGormTag(t, typ, "Metadata", "type:json")

	assertFieldType(t, typ, "ActionPlanID", "*string")
	assertFieldType(t, typ, "AssigneeTeamID", "*string")
	assertFieldType(t, typ, "AssigneeUserID", "*string")
	assertFieldType(t, typ, "CompletedAt", "*time.Time")
	assertFieldType(t, typ, "ArchivedAt", "*time.Time")
}

func TestPermission_Fields(t *testing.T) {
	typ := reflect.TypeOf(Permission{})

	// Composite unique index: one grant per (board, team).
	assertGormTag(t, typ, "BoardID", "uniqueIndex:idx_board_team")
	assertGormTag(t, typ, "TeamID", "uniqueIndex:idx_board_team")
	assertGormTag(t, typ, "Mode", "size:8")
	assertGormTag(t, typ, "Mode", "not null")

	assertFieldType(t, typ, "ID", "string")
	assertFieldType(t, typ, "CreatedAt", "time.Time")
}

func TestActionPlan_Fields(t *testing.T) {
	typ := reflect.TypeOf(ActionPlan{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "CustomerID", "size:64")
	assertGormTag(t, typ, "CustomerID", "index")
	assertGormTag(t, typ, "CustomerID", "not null")
	assertGormTag(t, typ, "Badge", "size:32")
	assertGormTag(t, typ, "Badge", "index")
	assertGormTag(t, typ, "Status", "default:active")
	assertGormTag(t, typ, "RoutedRuleID", "size:32")
	assertGormTag(t, typ, "RoutedRuleName", "size:128")

	assertFieldType(t, typ, "AssigneeTeamID", "*string")
	assertFieldType(t, typ, "RoutedRuleID", "*string")
	assertFieldType(t, typ, "RoutedAt", "*time.Time")
}

func TestRoutingRule_Fields(t *testing.T) {
	typ := reflect.TypeOf(RoutingRule{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "Name", "not null")
	assertGormTag(t, typ, "ConditionType", "size:24")
	assertGormTag(t, typ, "ConditionType", "not null")
	assertGormTag(t, typ, "ConditionValue", "size:128")
	assertGormTag(t, typ, "TargetTeamID", "not null")
	assertGormTag(t, typ, "Priority", "index")
	assertGormTag(t, typ, "Seq", "index")
	assertGormTag(t, typ, "Seq", "not null")
	assertGormTag(t, typ, "Enabled", "default:true")

	assertFieldType(t, typ, "Channel", "*string")
	assertFieldType(t, typ, "ConditionValue", "*string")
	assertFieldType(t, typ, "TargetBoardID", "*string")
	assertFieldType(t, typ, "TargetColumnID", "*string")
	assertFieldType(t, typ, "Seq", "int64")
	assertFieldType(t, typ, "Enabled", "bool")
}

func TestNewID(t *testing.T) {
	id, err := NewID("brd")
	if err != nil {
		t.Fatalf("NewID failed: %v", err)
	}
	if !strings.HasPrefix(id, "brd-") {
		t.Errorf("ID = %q, want prefix %q", id, "brd-")
	}
	if len(id) != len("brd-")+5 {
		t.Errorf("ID = %q, want 5 hex chars after prefix", id)
	}
	for _, c := range id[len("brd-"):] {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Errorf("ID %q contains non-hex char %q", id, c)
		}
	}
}

func TestNewID_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := NewID("crd")
		if err != nil {
			t.Fatalf("NewID failed: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate ID %q after %d generations", id, i)
		}
		seen[id] = true
	}
}

func TestCard_Instantiation(t *testing.T) {
	planID := "pln-00001"
	teamID := "team-support"
	now := time.Now()
	c := Card{
		ID:             "crd-abc12",
		BoardID:        "brd-00001",
		ColumnID:       "col-00001",
		ActionPlanID:   &planID,
		Title:          "Win back customer",
		Status:         CardStatusDone,
		Position:       2,
		AssigneeTeamID: &teamID,
		Metadata:       `{"source": "churn-model"}`,
		CompletedAt:    &now,
	}
	if *c.ActionPlanID != "pln-00001" {
		t.Errorf("ActionPlanID = %q, want %q", *c.ActionPlanID, "pln-00001")
	}
	if c.Status != "done" {
		t.Errorf("Status = %q, want %q", c.Status, "done")
	}
}

func TestRoutingRule_Instantiation(t *testing.T) {
	value := "churn_risk"
	boardID := "brd-00001"
	r := RoutingRule{
		ID:             "rul-abc12",
		Name:           "Churn risk to retention",
		ConditionType:  ConditionBadge,
		ConditionValue: &value,
		TargetTeamID:   "team-retention",
		TargetBoardID:  &boardID,
		Priority:       0,
		Seq:            1,
		Enabled:        true,
	}
	if r.ConditionType != "badge" {
		t.Errorf("ConditionType = %q, want %q", r.ConditionType, "badge")
	}
	if *r.TargetBoardID != "brd-00001" {
		t.Errorf("TargetBoardID = %q, want %q", *r.TargetBoardID, "brd-00001")
	}
}
