package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"esabot/internal/bus"
	"esabot/internal/channel"
	"esabot/internal/classify"
	"esabot/internal/config"
	"esabot/internal/dispatch"
	"esabot/internal/domain"
	"esabot/internal/esa"
	"esabot/internal/metrics"
	"esabot/internal/summarize"

	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "esabot",
		Short: "esabot: esa.io post summaries for Slack",
		Long:  "esabot watches a Slack channel for esa.io post notifications, summarizes the posts with Gemini, and delivers Block Kit summaries.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ~/.esabot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(summarizeCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(deleteCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("%s already exists, not overwriting", cfgPath)
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig reads the config file (defaults when missing) and applies
// environment overrides on top.
func loadConfig() *config.Config {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
	}
	config.ApplyEnv(cfg)
	return cfg
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the watch-and-summarize pipeline",
		RunE:  runBot,
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if err := config.Validate(cfg); err != nil {
		return err
	}
	level, _ := config.ParseLogLevel(cfg.General.LogLevel)
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if cfg.Slack.WatchChannel == "" {
		logger.Warn("no watch channel configured, only @-mentions will be handled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messageBus := bus.New(100, logger)
	defer messageBus.Close()

	slackCh := channel.New(channel.Config{
		BotToken: cfg.Slack.BotToken,
		AppToken: cfg.Slack.AppToken,
		Logger:   logger,
	})

	esaClient := esa.New(esa.Config{
		AccessToken: cfg.Esa.AccessToken,
		Team:        cfg.Esa.Team,
		APIBase:     cfg.Esa.APIBase,
		Logger:      logger,
	})

	gem, err := summarize.New(ctx, summarize.Config{
		APIKey:  cfg.Gemini.APIKey,
		Models:  cfg.Gemini.Models,
		Lengths: cfg.Summary.Lengths,
		Styles:  cfg.Summary.Styles,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	pipeline := metrics.NewPipeline()
	dispatcher := dispatch.New(dispatch.Config{
		Classifier: classify.New(classify.Config{
			WatchChannel: cfg.Slack.WatchChannel,
			Logger:       logger,
		}),
		Fetcher:      esaClient,
		Summarizer:   gem,
		Poster:       slackCh,
		Destinations: cfg.Slack.SummaryChannels,
		ChunkSize:    cfg.Summary.ChunkSize,
		Logger:       logger,
		Metrics:      pipeline,
	})

	go func() {
		for ev := range messageBus.Subscribe() {
			// bound each event so one stuck fetch or model call cannot
			// stall the consumer forever
			evCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			switch ev.Kind {
			case domain.EventAppMention:
				dispatcher.HandleMention(evCtx, ev)
			default:
				dispatcher.HandleEvent(evCtx, ev)
			}
			cancel()
		}
	}()

	err = slackCh.Start(ctx, messageBus)
	logger.Info("pipeline stopped",
		"uptime", pipeline.Uptime().Round(time.Second),
		"counters", pipeline.Snapshot(),
	)
	return err
}

func summarizeCmd() *cobra.Command {
	var length, style string
	cmd := &cobra.Command{
		Use:   "summarize [url]",
		Short: "Fetch and summarize one esa post, printing to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			esaClient := esa.New(esa.Config{
				AccessToken: cfg.Esa.AccessToken,
				Team:        cfg.Esa.Team,
				APIBase:     cfg.Esa.APIBase,
				Logger:      logger,
			})
			gem, err := summarize.New(ctx, summarize.Config{
				APIKey:  cfg.Gemini.APIKey,
				Models:  cfg.Gemini.Models,
				Lengths: cfg.Summary.Lengths,
				Styles:  cfg.Summary.Styles,
				Logger:  logger,
			})
			if err != nil {
				return err
			}

			post, err := esaClient.FetchPost(ctx, args[0])
			if err != nil {
				return fmt.Errorf("fetch post: %w", err)
			}
			opts := domain.SummaryOptions{
				Length: domain.ParseLength(length),
				Style:  domain.ParseStyle(style),
			}
			summary, err := gem.Summarize(ctx, post, opts)
			if err != nil {
				return fmt.Errorf("summarize post %d: %w", post.Number, err)
			}
			fmt.Println(summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&length, "length", "medium", "summary length (short, medium, long)")
	cmd.Flags().StringVar(&style, "style", "bullet", "summary style (bullet, paragraph)")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check Slack and esa.io connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			api := slack.New(cfg.Slack.BotToken)
			if auth, err := api.AuthTestContext(ctx); err != nil {
				logger.Info("slack", "healthy", false, "err", err)
			} else {
				logger.Info("slack", "healthy", true, "user", auth.User, "team", auth.Team)
			}

			esaClient := esa.New(esa.Config{
				AccessToken: cfg.Esa.AccessToken,
				Team:        cfg.Esa.Team,
				APIBase:     cfg.Esa.APIBase,
				Logger:      logger,
			})
			if err := esaClient.Ping(ctx); err != nil {
				logger.Info("esa", "healthy", false, "err", err)
			} else {
				logger.Info("esa", "healthy", true, "team", cfg.Esa.Team)
			}
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	var channelID, ts string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a message the bot posted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if channelID == "" || ts == "" {
				return fmt.Errorf("--channel and --ts are required")
			}
			cfg := loadConfig()
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			api := slack.New(cfg.Slack.BotToken)
			if _, _, err := api.DeleteMessageContext(ctx, channelID, ts); err != nil {
				return fmt.Errorf("delete %s@%s: %w", channelID, ts, err)
			}
			logger.Info("message deleted", "channel", channelID, "ts", ts)
			return nil
		},
	}
	cmd.Flags().StringVar(&channelID, "channel", "", "channel ID of the message")
	cmd.Flags().StringVar(&ts, "ts", "", "timestamp of the message")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("esabot", version)
		},
	}
}
