// Command pilot is the contentpilot CLI: a chat-driven assistant that turns
// natural-language requests into validated content-store mutations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"contentpilot/cmd/pilot/chat"
	"contentpilot/internal/apiserver"
	"contentpilot/internal/config"
	"contentpilot/internal/content"
	"contentpilot/internal/executor"
	"contentpilot/internal/history"
	"contentpilot/internal/live"
	"contentpilot/internal/llm"
	"contentpilot/internal/logging"
	"contentpilot/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version = "0.3.0"

	configPath string
	verbose    bool
	jsonLogs   bool

	cfg config.Config
)

func main() {
	root := &cobra.Command{
		Use:   "pilot",
		Short: "Chat-driven content assistant",
		Long: `pilot turns natural-language requests into typed, validated
mutations against your content store, streaming the model's answer while
it works.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			level := cfg.Logging.Level
			if verbose {
				level = "debug"
			}
			return logging.Init(level, jsonLogs || cfg.Logging.JSON)
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "pilot.yaml", "config file path")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "JSON log output")

	root.AddCommand(chatCmd(), serveCmd(), queryCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer logging.Sync()

			client, err := llm.NewClient(cfg)
			if err != nil {
				return err
			}
			store, err := buildStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			feed, err := buildFeed(cmd.Context())
			if err != nil {
				return err
			}
			defer feed.Close()

			hist, err := history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer hist.Close()

			sess := session.New(client, hist)
			exec := executor.New(store, feed)

			model := chat.New(sess, exec, hist)
			_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
			return err
		},
	}
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer logging.Sync()

			client, err := llm.NewClient(cfg)
			if err != nil {
				return err
			}
			store, err := buildStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			feed, err := buildFeed(cmd.Context())
			if err != nil {
				return err
			}
			defer feed.Close()

			hist, err := history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer hist.Close()

			if addr == "" {
				addr = cfg.Server.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Config changes picked up live: only the log level is safe to
			// swap under a running server.
			go func() {
				err := config.Watch(ctx, configPath, func(next config.Config) {
					if err := logging.Init(next.Logging.Level, next.Logging.JSON); err != nil {
						logging.L(logging.CategoryConfig).Warn("bad log level in config", zap.Error(err))
					}
				})
				if err != nil && ctx.Err() == nil {
					logging.L(logging.CategoryConfig).Warn("config watch stopped", zap.Error(err))
				}
			}()

			sess := session.New(client, hist)
			exec := executor.New(store, feed)
			return apiserver.New(addr, sess, exec, store, feed).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <content-query>",
		Short: "Run a content query and print the matching documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer logging.Sync()

			store, err := buildStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			docs, err := store.Query(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, d := range docs {
				fmt.Printf("%s\t%s\n", d.ID, d.Type)
			}
			fmt.Printf("%d documents\n", len(docs))
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("pilot", version)
		},
	}
}

func buildStore(ctx context.Context) (content.Store, error) {
	switch cfg.Store.Backend {
	case "http", "":
		return content.NewHTTPStore(content.HTTPStoreConfig{
			BaseURL: cfg.Store.BaseURL,
			Dataset: cfg.Store.Dataset,
			Token:   cfg.Store.Token,
		})
	case "postgres":
		return content.NewPGStore(ctx, cfg.Store.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func buildFeed(ctx context.Context) (live.Feed, error) {
	switch cfg.Live.Backend {
	case "memory", "":
		return live.NewMemoryFeed(), nil
	case "redis":
		return live.NewRedisFeed(ctx, cfg.Live.RedisAddr, cfg.Live.RedisPass, cfg.Live.Channel)
	default:
		return nil, fmt.Errorf("unknown live backend %q", cfg.Live.Backend)
	}
}
