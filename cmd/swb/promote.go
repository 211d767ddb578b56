package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/apperr"
	"github.com/zulandar/switchboard/internal/board"
	"github.com/zulandar/switchboard/internal/promotion"
	"github.com/zulandar/switchboard/internal/routing"
)

func newPromoteCmd() *cobra.Command {
	var (
		configPath string
		boardID    string
		columnID   string
		teamID     string
		metadata   string
	)

	cmd := &cobra.Command{
		Use:   "promote <action-plan-id>",
		Short: "Promote an action plan onto a board",
		Long: `Promotes an action plan to a board card. With --board the target is
explicit; otherwise the routing rules pick the destination. A plan that
matches no rule is left unpromoted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPromote(cmd, configPath, args[0], promotion.PromoteOpts{
				BoardID:        boardID,
				ColumnID:       columnID,
				AssigneeTeamID: teamID,
				Metadata:       metadata,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	cmd.Flags().StringVar(&boardID, "board", "", "explicit target board id")
	cmd.Flags().StringVar(&columnID, "column", "", "explicit target column id (requires --board)")
	cmd.Flags().StringVar(&teamID, "team", "", "assignee team id")
	cmd.Flags().StringVar(&metadata, "metadata", "", "card metadata JSON")
	return cmd
}

func runPromote(cmd *cobra.Command, configPath, planID string, opts promotion.PromoteOpts) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	boards := newStore(gormDB)
	rules := routing.NewEngine(gormDB)
	wf := promotion.NewWorkflow(gormDB, boards, rules, nil)

	out := cmd.OutOrStdout()
	card, err := wf.Promote(board.System, planID, opts)
	if errors.Is(err, apperr.ErrNoMatch) {
		fmt.Fprintf(out, "No routing rule matches plan %s; left unpromoted.\n", planID)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Promoted plan %s to card %s (board %s, column %s)\n",
		planID, card.ID, card.BoardID, card.ColumnID)
	return nil
}
