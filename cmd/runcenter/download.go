package main

import (
	"fmt"

	"github.com/docker/go-units"
	"github.com/ethpandaops/runcenter/pkg/client"
	"github.com/ethpandaops/runcenter/pkg/fsutil"
	"github.com/spf13/cobra"
)

var (
	downloadDir    string
	downloadOutput string
	downloadOwner  string
)

var downloadCmd = &cobra.Command{
	Use:   "download <dt>",
	Short: "Download the daily report for a date (YYYY-MM-DD)",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.Flags().StringVar(&downloadDir, "dir", ".",
		"directory to save the report into")
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "",
		"exact output path, overrides --dir and the server file name")
	downloadCmd.Flags().StringVar(&downloadOwner, "owner", "",
		"chown the saved file (UID:GID)")
}

func runDownload(cmd *cobra.Command, args []string) error {
	owner, err := fsutil.ParseOwner(downloadOwner)
	if err != nil {
		return fmt.Errorf("parsing owner: %w", err)
	}

	c, err := newAPIClient()
	if err != nil {
		return err
	}

	saver := &client.FileSaver{
		Dir:   downloadDir,
		Path:  downloadOutput,
		Owner: owner,
	}

	name, err := c.DownloadReport(cmd.Context(), args[0], saver)
	if err != nil {
		return fmt.Errorf("downloading report: %w", err)
	}

	log.WithField("file", saver.Written).
		WithField("name", name).
		Debug("Report downloaded")

	fmt.Println(savedLine(saver.Written, saver.Size))

	return nil
}

func savedLine(path string, size int64) string {
	return fmt.Sprintf("saved %s (%s)", path, units.HumanSize(float64(size)))
}
