package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/app"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/config"
	"github.com/b2aeddine/backend-collabmarket-sub000/pkg/logger"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "worker",
		Short:         "Background processing for the escrow marketplace",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(runJobsCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(processWithdrawalsCmd())
	rootCmd.AddCommand(autoCompleteCmd())
	rootCmd.AddCommand(releaseRevenuesCmd())
	rootCmd.AddCommand(cleanupCmd())
	rootCmd.AddCommand(watchAlertsCmd())
	rootCmd.AddCommand(serveCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// withApp loads configuration, builds the application and runs fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = zapLogger.Sync() }()
	zapLogger = zapLogger.With(
		zap.String("service", cfg.Service.Name),
		zap.String("command", cmd.Name()),
	)

	a, err := app.New(cfg, zapLogger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(cmd.Context(), a)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
