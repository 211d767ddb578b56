package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/board"
	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/db"
	"github.com/zulandar/switchboard/internal/dispatch"
	"gorm.io/gorm"
)

func newBoardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Board management commands",
	}

	cmd.AddCommand(newBoardCreateCmd())
	cmd.AddCommand(newBoardListCmd())
	cmd.AddCommand(newBoardShowCmd())
	return cmd
}

func newBoardCreateCmd() *cobra.Command {
	var (
		configPath  string
		name        string
		description string
		visibility  string
		cardType    string
		defaultTeam string
		columns     []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new board",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoardCreate(cmd, configPath, board.CreateBoardOpts{
				Name:          name,
				Description:   description,
				Visibility:    visibility,
				CardType:      cardType,
				DefaultTeamID: defaultTeam,
				Columns:       columns,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	cmd.Flags().StringVar(&name, "name", "", "board name (required)")
	cmd.Flags().StringVar(&description, "description", "", "board description")
	cmd.Flags().StringVar(&visibility, "visibility", "org", "visibility (org or team)")
	cmd.Flags().StringVar(&cardType, "card-type", "task", "card type tag (lead, case, deal, task, custom)")
	cmd.Flags().StringVar(&defaultTeam, "team", "", "default team id")
	cmd.Flags().StringSliceVar(&columns, "columns", []string{"Intake", "In Progress", "Done"}, "initial column names, in order")
	cmd.MarkFlagRequired("name")
	return cmd
}

func runBoardCreate(cmd *cobra.Command, configPath string, opts board.CreateBoardOpts) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	store := newStore(gormDB)
	b, err := store.CreateBoard(opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created board %s (%s)\n", b.ID, b.Name)
	fmt.Fprintf(out, "Columns:")
	for _, col := range b.Columns {
		fmt.Fprintf(out, " %s", col.Name)
	}
	fmt.Fprintln(out)
	return nil
}

func newBoardListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List boards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoardList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	return cmd
}

func runBoardList(cmd *cobra.Command, configPath string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	boards, err := newStore(gormDB).ListBoards()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(boards) == 0 {
		fmt.Fprintln(out, "No boards found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tVISIBILITY\tTYPE\tDEFAULT TEAM")
	for _, b := range boards {
		team := "-"
		if b.DefaultTeamID != nil {
			team = *b.DefaultTeamID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", b.ID, truncate(b.Name, 40), b.Visibility, b.CardType, team)
	}
	w.Flush()
	return nil
}

func newBoardShowCmd() *cobra.Command {
	var (
		configPath      string
		includeArchived bool
	)

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a board with its columns and cards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoardShow(cmd, configPath, args[0], includeArchived)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	cmd.Flags().BoolVar(&includeArchived, "archived", false, "include archived cards")
	return cmd
}

func runBoardShow(cmd *cobra.Command, configPath, id string, includeArchived bool) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	b, err := newStore(gormDB).GetBoard(id, includeArchived)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s  %s (%s, %s)\n", b.ID, b.Name, b.Visibility, b.CardType)
	if b.Description != "" {
		fmt.Fprintln(out, b.Description)
	}
	for _, col := range b.Columns {
		limit := ""
		if col.WIPLimit != nil {
			limit = fmt.Sprintf(" (WIP %d/%d)", len(col.Cards), *col.WIPLimit)
		}
		fmt.Fprintf(out, "\n[%d] %s%s\n", col.Position, col.Name, limit)
		if len(col.Cards) == 0 {
			fmt.Fprintln(out, "    (empty)")
			continue
		}
		for _, card := range col.Cards {
			marker := " "
			if card.Status != "active" {
				marker = strings.ToUpper(card.Status[:1])
			}
			fmt.Fprintf(out, "  %s %d. %s  %s\n", marker, card.Position, card.ID, truncate(card.Title, 60))
		}
	}
	return nil
}

// newStore builds a board store without a dispatcher: CLI one-shots have no
// subscribers to notify.
func newStore(gormDB *gorm.DB) *board.Store {
	return board.NewStore(gormDB, dispatch.New(nil))
}

func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.DB.Host, cfg.DB.Port, cfg.DB.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", cfg.DB.Database, err)
	}

	return cfg, gormDB, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
