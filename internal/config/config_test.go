package config

import (
	"strings"
	"testing"
)

const minimalYAML = `
db:
  database: switchboard_test
boards:
  - name: Customer Success
    card_type: case
    columns: [Intake, Working, Done]
rules:
  - name: at-risk to retention
    condition_type: badge
    condition_value: at-risk
    target_team_id: team-retention
    target_board: Customer Success
    priority: 10
`

func TestParse_Minimal(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.DB.Database != "switchboard_test" {
		t.Errorf("DB.Database = %q, want switchboard_test", cfg.DB.Database)
	}
	if len(cfg.Boards) != 1 || cfg.Boards[0].Name != "Customer Success" {
		t.Errorf("Boards = %+v, want one board named Customer Success", cfg.Boards)
	}
	if len(cfg.Rules) != 1 || cfg.Rules[0].TargetTeamID != "team-retention" {
		t.Errorf("Rules = %+v, want one rule targeting team-retention", cfg.Rules)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.DB.Host != "127.0.0.1" {
		t.Errorf("DB.Host = %q, want 127.0.0.1", cfg.DB.Host)
	}
	if cfg.DB.Port != 3306 {
		t.Errorf("DB.Port = %d, want 3306", cfg.DB.Port)
	}
	if cfg.Dispatcher.DebounceMS != 1000 {
		t.Errorf("Dispatcher.DebounceMS = %d, want 1000", cfg.Dispatcher.DebounceMS)
	}
	if cfg.Archive.AfterDays != 30 {
		t.Errorf("Archive.AfterDays = %d, want 30", cfg.Archive.AfterDays)
	}
	if cfg.Archive.Schedule != "0 3 * * *" {
		t.Errorf("Archive.Schedule = %q, want 0 3 * * *", cfg.Archive.Schedule)
	}
	if cfg.Boards[0].Visibility != "org" {
		t.Errorf("Boards[0].Visibility = %q, want org", cfg.Boards[0].Visibility)
	}
}

func TestParse_ColumnDefaults(t *testing.T) {
	cfg, err := Parse([]byte("boards:\n  - name: Bare\n"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	want := []string{"Intake", "In Progress", "Done"}
	got := cfg.Boards[0].Columns
	if len(got) != len(want) {
		t.Fatalf("Columns = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Columns[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "board missing name",
			yaml: "boards:\n  - description: no name\n",
			want: "boards[0].name is required",
		},
		{
			name: "bad visibility",
			yaml: "boards:\n  - name: X\n    visibility: public\n",
			want: "visibility must be org or team",
		},
		{
			name: "rule missing condition type",
			yaml: "rules:\n  - name: r\n    target_team_id: t\n",
			want: "rules[0].condition_type is required",
		},
		{
			name: "rule missing target team",
			yaml: "rules:\n  - name: r\n    condition_type: badge\n",
			want: "rules[0].target_team_id is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() succeeded, want validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("boards: [unclosed"))
	if err == nil {
		t.Fatal("Parse() succeeded on invalid YAML")
	}
	if !strings.Contains(err.Error(), "config: parse") {
		t.Errorf("error = %q, want config: parse prefix", err.Error())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/switchboard.yaml")
	if err == nil {
		t.Fatal("Load() succeeded on missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("error = %q, want config: read prefix", err.Error())
	}
}
