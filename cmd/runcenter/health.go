package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the runs API health endpoint",
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	res, err := c.Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("probing api: %w", err)
	}

	if err := printJSON(res); err != nil {
		return err
	}

	if !res.OK {
		return fmt.Errorf("api unhealthy (HTTP %d)", res.StatusCode)
	}

	return nil
}
