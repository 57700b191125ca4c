package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var notionCmd = &cobra.Command{
	Use:   "notion [page-id]",
	Short: "Index a Notion page",
	Long: `Fetches a Notion page, flattens its blocks to text and indexes
the result. Requires a Notion integration token in the config file:

  [notion]
  token = "secret_..."

Re-ingesting a page updates the previously indexed version.`,
	Args: cobra.ExactArgs(1),
	RunE: runNotion,
}

func init() {
	rootCmd.AddCommand(notionCmd)
}

func runNotion(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	report, err := ingestService.IngestNotionPage(commandContext(cmd), ownerID, args[0])
	if err != nil {
		return fmt.Errorf("notion ingest failed: %w", err)
	}

	printReport(cmd, report)
	return nil
}
