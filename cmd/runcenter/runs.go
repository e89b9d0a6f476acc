package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ethpandaops/runcenter/pkg/client"
	"github.com/spf13/cobra"
)

var (
	runsPage     int
	runsPageSize int
	runsJSON     bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Query runs through the runs API",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List one page of runs",
	RunE:  runRunsList,
}

var runsGetCmd = &cobra.Command{
	Use:   "get <run_id>",
	Short: "Show a single run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsGet,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd, runsGetCmd)

	runsCmd.PersistentFlags().BoolVar(&runsJSON, "json", false, "print raw JSON")
	runsListCmd.Flags().IntVar(&runsPage, "page", 1, "page number (1-based)")
	runsListCmd.Flags().IntVar(&runsPageSize, "page-size", 0,
		"runs per page, defaults to dashboard.page_size")
}

// newAPIClient builds a runs API client from the dashboard.api settings.
func newAPIClient() (client.Client, error) {
	if err := cfg.ValidateClient(); err != nil {
		return nil, fmt.Errorf("validating client config: %w", err)
	}

	timeout, err := cfg.Dashboard.API.TimeoutDuration()
	if err != nil {
		return nil, fmt.Errorf("parsing api timeout: %w", err)
	}

	c, err := client.NewClient(log, client.Config{
		BaseURL: cfg.Dashboard.API.BaseURL,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating api client: %w", err)
	}

	return c, nil
}

func runRunsList(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	pageSize := runsPageSize
	if pageSize <= 0 {
		pageSize = cfg.Dashboard.PageSize
	}

	list, err := c.ListRuns(cmd.Context(), runsPage, pageSize)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	if runsJSON {
		return printJSON(list)
	}

	loc, err := cfg.Dashboard.Location()
	if err != nil {
		return fmt.Errorf("loading timezone: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN_ID\tDT\tSTATUS\tSTARTED_AT\tMESSAGE")

	for _, run := range list.Items {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			run.RunID, run.DT, run.Status,
			formatTime(run.StartedAt, loc), orDash(run.Message))
	}

	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\ntotal %d | page %d\n", list.Total, list.Page)

	return nil
}

func runRunsGet(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	run, err := c.GetRun(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("getting run: %w", err)
	}

	if runsJSON {
		return printJSON(run)
	}

	loc, err := cfg.Dashboard.Location()
	if err != nil {
		return fmt.Errorf("loading timezone: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "run_id:\t%s\n", run.RunID)
	_, _ = fmt.Fprintf(w, "dt:\t%s\n", run.DT)
	_, _ = fmt.Fprintf(w, "status:\t%s\n", run.Status)
	_, _ = fmt.Fprintf(w, "started_at:\t%s\n", formatTime(run.StartedAt, loc))
	_, _ = fmt.Fprintf(w, "finished_at:\t%s\n", formatTime(run.FinishedAt, loc))
	_, _ = fmt.Fprintf(w, "message:\t%s\n", orDash(run.Message))

	return w.Flush()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func formatTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}

	return t.In(loc).Format(time.DateTime)
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}

	return *s
}
