package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethpandaops/runcenter/pkg/dashboard"
	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Start the operator dashboard",
	Long: `Start the operator dashboard. It renders the paginated runs page from the
runs API configured under dashboard.api and proxies report downloads.`,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateDashboard(); err != nil {
		return fmt.Errorf("validating dashboard config: %w", err)
	}

	c, err := newAPIClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	srv, err := dashboard.NewServer(log, &cfg.Dashboard, c)
	if err != nil {
		return fmt.Errorf("creating dashboard: %w", err)
	}

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting dashboard: %w", err)
	}

	sig := <-sigCh
	log.WithField("signal", sig).Info("Shutting down dashboard")
	cancel()

	if err := srv.Stop(); err != nil {
		return fmt.Errorf("stopping dashboard: %w", err)
	}

	return nil
}
