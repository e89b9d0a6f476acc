package main

import (
	"fmt"
	"os"

	"github.com/ethpandaops/runcenter/pkg/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const redacted = "<redacted>"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	out := redactConfig(*cfg)

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)

	if err := enc.Encode(&out); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	return enc.Close()
}

// redactConfig returns a copy of c with credentials masked.
func redactConfig(c config.Config) config.Config {
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}

	for _, db := range []*config.DatabaseConfig{&c.API.Database, &c.API.Indexing.Database} {
		mask(&db.Postgres.Password)
		mask(&db.MySQL.Password)
	}

	mask(&c.API.Storage.S3.AccessKeyID)
	mask(&c.API.Storage.S3.SecretAccessKey)

	return c
}
