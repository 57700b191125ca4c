package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quarrylabs/quarry-cli/internal/core/ports/driving"
)

var ingestURL string

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Index files, directories or web pages",
	Long: `Extracts text from the given source and indexes it.

A file argument indexes that file, a directory argument walks it
recursively and indexes every supported file. With --url the page at
the given address is fetched and indexed instead.

Supported file types: plain text, Markdown, HTML and CSV.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestURL, "url", "", "fetch and index a web page instead of a local path")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	ctx := commandContext(cmd)

	var (
		report driving.IngestReport
		err    error
	)
	switch {
	case ingestURL != "":
		if len(args) > 0 {
			return errors.New("provide either a path or --url, not both")
		}
		report, err = ingestService.IngestURL(ctx, ownerID, ingestURL)
	case len(args) == 1:
		info, statErr := os.Stat(args[0])
		if statErr != nil {
			return fmt.Errorf("reading %s: %w", args[0], statErr)
		}
		if info.IsDir() {
			report, err = ingestService.IngestDir(ctx, ownerID, args[0])
		} else {
			report, err = ingestService.IngestFile(ctx, ownerID, args[0])
		}
	default:
		return errors.New("provide a path or --url")
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	printReport(cmd, report)
	return nil
}

func printReport(cmd *cobra.Command, report driving.IngestReport) {
	cmd.Printf("Fetched %d, indexed %d, skipped %d (batch %s)\n",
		report.Fetched, report.Added, report.Skipped, report.BatchID)
}
