package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ethpandaops/runcenter/pkg/api/store"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample runs when the runs table is empty",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	if err := cfg.API.Database.Validate(); err != nil {
		return fmt.Errorf("validating database config: %w", err)
	}

	return withStore(cmd.Context(), func(s store.Store) error {
		seeded, err := s.SeedRuns(cmd.Context(), sampleRuns(time.Now().UTC()))
		if err != nil {
			return fmt.Errorf("seeding runs: %w", err)
		}

		if !seeded {
			log.Info("Runs table already populated, nothing seeded")

			return nil
		}

		log.Info("Seeded sample runs")

		return nil
	})
}

func sampleRuns(now time.Time) []store.Run {
	completed := "Daily job completed"
	ok := "OK"

	return []store.Run{
		{
			RunID:      "run-001",
			DT:         "2025-02-28",
			Status:     store.StatusSuccess,
			StartedAt:  &now,
			FinishedAt: &now,
			Message:    &completed,
		},
		{
			RunID:      "run-002",
			DT:         "2025-02-27",
			Status:     store.StatusSuccess,
			StartedAt:  &now,
			FinishedAt: &now,
			Message:    &ok,
		},
	}
}

// withStore opens the runs store for the duration of fn.
func withStore(ctx context.Context, fn func(store.Store) error) error {
	s := store.NewStore(log, &cfg.API.Database)
	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("starting store: %w", err)
	}

	defer func() {
		if err := s.Stop(); err != nil {
			log.WithError(err).Warn("Failed to close store")
		}
	}()

	return fn(s)
}
