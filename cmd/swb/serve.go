package main

import (
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/board"
	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/db"
	"github.com/zulandar/switchboard/internal/dispatch"
	"github.com/zulandar/switchboard/internal/notify"
	"github.com/zulandar/switchboard/internal/notify/discord"
	"github.com/zulandar/switchboard/internal/notify/slack"
	"github.com/zulandar/switchboard/internal/promotion"
	"github.com/zulandar/switchboard/internal/routing"
	"github.com/zulandar/switchboard/internal/server"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Switchboard API server",
		Long:  "Serves the REST API and SSE event stream, runs the archival sweep, and forwards change events to configured chat notifiers.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.DB.Host, cfg.DB.Port, cfg.DB.Database)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.DB.Database, err)
	}
	fmt.Fprintf(out, "Connected to %s at %s:%d\n", cfg.DB.Database, cfg.DB.Host, cfg.DB.Port)

	debounce := time.Duration(cfg.Dispatcher.DebounceMS) * time.Millisecond
	dispatcher := dispatch.New(dispatch.NewRateLimiter(debounce))
	boards := board.NewStore(gormDB, dispatcher)
	rules := routing.NewEngine(gormDB)
	workflow := promotion.NewWorkflow(gormDB, boards, rules, dispatcher)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Archival sweep on the configured cron schedule.
	sweeper := cron.New()
	_, err = sweeper.AddFunc(cfg.Archive.Schedule, func() {
		olderThan := time.Duration(cfg.Archive.AfterDays) * 24 * time.Hour
		n, err := boards.ArchiveDoneCards(olderThan)
		if err != nil {
			log.Printf("serve: archival sweep: %v", err)
			return
		}
		if n > 0 {
			log.Printf("serve: archived %d done cards", n)
		}
	})
	if err != nil {
		return fmt.Errorf("archive schedule %q: %w", cfg.Archive.Schedule, err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	// Chat notifiers for configured platforms.
	notifier, err := buildNotifier(cfg)
	if err != nil {
		return err
	}
	if notifier != nil {
		if err := notifier.Start(ctx, dispatcher, nil); err != nil {
			return err
		}
		defer notifier.Stop()
		fmt.Fprintln(out, "Chat notifiers connected")
	}

	return server.Start(ctx, server.StartOpts{
		Port:       cfg.Server.Port,
		Out:        out,
		Boards:     boards,
		Rules:      rules,
		Workflow:   workflow,
		Dispatcher: dispatcher,
	})
}

// buildNotifier assembles adapters for every platform with credentials in
// config. Returns nil when none are configured.
func buildNotifier(cfg *config.Config) (*notify.Notifier, error) {
	var adapters []notify.Adapter

	if cfg.Notify.Slack.BotToken != "" {
		a, err := slack.New(slack.AdapterOpts{
			BotToken:  cfg.Notify.Slack.BotToken,
			ChannelID: cfg.Notify.Slack.Channel,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	if cfg.Notify.Discord.BotToken != "" {
		a, err := discord.New(discord.AdapterOpts{
			BotToken:  cfg.Notify.Discord.BotToken,
			ChannelID: cfg.Notify.Discord.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	if len(adapters) == 0 {
		return nil, nil
	}
	return notify.NewNotifier(adapters...), nil
}
