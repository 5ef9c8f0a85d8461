package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"portfolio-rag/internal/bootstrap"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "Manage the portfolio knowledge base",
	Long: `ragctl ingests documents and CV data into the portfolio knowledge base,
lists and deletes them, and asks grounded questions from the terminal.
Configuration is read the same way as the server (CONFIG_FILE, .env, env vars).`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.AddCommand(ingestCmd, ingestCVCmd, listCmd, deleteCmd, askCmd, hashPasswordCmd)
}

// withApp boots the services without background workers and closes them
// when fn returns.
func withApp(ctx context.Context, fn func(*bootstrap.App) error) error {
	app, err := bootstrap.New(ctx, bootstrap.Options{Logger: slog.Default()})
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Warn("close resources failed", "error", err)
		}
	}()
	return fn(app)
}
