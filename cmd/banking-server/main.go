package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"banking-chatbot-backend/internal/config"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	load := func() config.Config {
		cfg := config.Load()
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		return cfg
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, load())
		},
	}

	cmd := &cobra.Command{
		Use:           "banking-server",
		Short:         "Banking chatbot backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveCmd.RunE,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")

	cmd.AddCommand(serveCmd)
	cmd.AddCommand(&cobra.Command{
		Use:   "setup",
		Short: "Find or create the assistant workspace and document collection, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd.Context(), load(), cmd.OutOrStdout())
		},
	})
	return cmd
}
