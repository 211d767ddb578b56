package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/routing"
)

func newRuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Routing rule management commands",
	}

	cmd.AddCommand(newRuleCreateCmd())
	cmd.AddCommand(newRuleListCmd())
	cmd.AddCommand(newRuleReorderCmd())
	cmd.AddCommand(newRuleEnableCmd(true))
	cmd.AddCommand(newRuleEnableCmd(false))
	cmd.AddCommand(newRuleDeleteCmd())
	return cmd
}

func newRuleCreateCmd() *cobra.Command {
	var (
		configPath     string
		name           string
		channel        string
		conditionType  string
		conditionValue string
		targetTeam     string
		targetBoard    string
		targetColumn   string
		priority       int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a routing rule",
		Long:  "Creates a routing rule. Rules are evaluated in (priority, creation) order; the first match wins.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuleCreate(cmd, configPath, routing.CreateOpts{
				Name:           name,
				Channel:        channel,
				ConditionType:  conditionType,
				ConditionValue: conditionValue,
				TargetTeamID:   targetTeam,
				TargetBoardID:  targetBoard,
				TargetColumnID: targetColumn,
				Priority:       priority,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	cmd.Flags().StringVar(&name, "name", "", "rule name (required)")
	cmd.Flags().StringVar(&channel, "channel", "", "optional channel filter")
	cmd.Flags().StringVar(&conditionType, "condition", "badge", "condition type (badge, intent, urgency, customer_segment, channel, custom)")
	cmd.Flags().StringVar(&conditionValue, "value", "", "condition value; * matches any")
	cmd.Flags().StringVar(&targetTeam, "team", "", "target team id (required)")
	cmd.Flags().StringVar(&targetBoard, "board", "", "target board id")
	cmd.Flags().StringVar(&targetColumn, "column", "", "target column id")
	cmd.Flags().IntVar(&priority, "priority", 0, "priority (lower evaluates first)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("team")
	return cmd
}

func runRuleCreate(cmd *cobra.Command, configPath string, opts routing.CreateOpts) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	rule, err := routing.NewEngine(gormDB).Create(opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created rule %s (%s) at priority %d\n", rule.ID, rule.Name, rule.Priority)
	return nil
}

func newRuleListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List routing rules in evaluation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuleList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	return cmd
}

func runRuleList(cmd *cobra.Command, configPath string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	rules, err := routing.NewEngine(gormDB).List(routing.ListFilters{})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(rules) == 0 {
		fmt.Fprintln(out, "No rules found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRI\tNAME\tCONDITION\tTEAM\tENABLED")
	for _, r := range rules {
		value := "*"
		if r.ConditionValue != nil {
			value = *r.ConditionValue
		}
		enabled := "yes"
		if !r.Enabled {
			enabled = "no"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s=%s\t%s\t%s\n",
			r.ID, r.Priority, truncate(r.Name, 30), r.ConditionType, value, r.TargetTeamID, enabled)
	}
	w.Flush()
	return nil
}

func newRuleReorderCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "reorder <id> [<id> ...]",
		Short: "Reorder rules to the given sequence",
		Long:  "Assigns priorities 0..n-1 in the order given. The id list must name every rule exactly once.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuleReorder(cmd, configPath, args)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	return cmd
}

func runRuleReorder(cmd *cobra.Command, configPath string, ids []string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	if err := routing.NewEngine(gormDB).Reorder(ids); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reordered %d rules\n", len(ids))
	return nil
}

func newRuleEnableCmd(enable bool) *cobra.Command {
	var configPath string

	use, short := "enable <id>", "Enable a routing rule"
	if !enable {
		use, short = "disable <id>", "Disable a routing rule"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			e := enable
			rule, err := routing.NewEngine(gormDB).Update(args[0], routing.UpdateOpts{Enabled: &e})
			if err != nil {
				return err
			}
			state := "enabled"
			if !rule.Enabled {
				state = "disabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rule %s %s\n", rule.ID, state)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	return cmd
}

func newRuleDeleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a routing rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := routing.NewEngine(gormDB).Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted rule %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	return cmd
}
