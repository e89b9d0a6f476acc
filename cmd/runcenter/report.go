package main

import (
	"fmt"

	"github.com/ethpandaops/runcenter/pkg/api/storage"
	"github.com/ethpandaops/runcenter/pkg/api/store"
	"github.com/ethpandaops/runcenter/pkg/report"
	"github.com/spf13/cobra"
)

var (
	reportDTs         []string
	reportConcurrency int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Manage daily reports",
}

var reportGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate daily report spreadsheets into report storage",
	Long: `Generate daily report spreadsheets from the runs table and write them to
the configured report storage. Without --dt every date present in the runs
table is generated.`,
	RunE: runReportGenerate,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportGenerateCmd)

	reportGenerateCmd.Flags().StringSliceVar(&reportDTs, "dt", nil,
		"date to generate (YYYY-MM-DD, repeatable)")
	reportGenerateCmd.Flags().IntVar(&reportConcurrency, "concurrency", 4,
		"number of reports generated in parallel")
}

func runReportGenerate(cmd *cobra.Command, args []string) error {
	for _, dt := range reportDTs {
		if err := storage.ValidateDT(dt); err != nil {
			return err
		}
	}

	if err := cfg.API.Database.Validate(); err != nil {
		return fmt.Errorf("validating database config: %w", err)
	}

	if err := cfg.API.Storage.Validate(); err != nil {
		return fmt.Errorf("validating storage config: %w", err)
	}

	backend, err := storage.New(&cfg.API.Storage)
	if err != nil {
		return fmt.Errorf("creating report storage: %w", err)
	}

	ctx := cmd.Context()

	return withStore(ctx, func(s store.Store) error {
		dts := reportDTs
		if len(dts) == 0 {
			dts, err = s.ListDTs(ctx)
			if err != nil {
				return fmt.Errorf("listing run dates: %w", err)
			}
		}

		if len(dts) == 0 {
			log.Info("No runs recorded, nothing to generate")

			return nil
		}

		gen := report.NewGenerator(log, s, backend, reportConcurrency)
		if err := gen.GenerateAll(ctx, dts); err != nil {
			return fmt.Errorf("generating reports: %w", err)
		}

		log.WithField("reports", len(dts)).Info("Reports generated")

		return nil
	})
}
