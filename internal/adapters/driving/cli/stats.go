package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	stats := retrievalService.Stats(commandContext(cmd))

	if statsJSON {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal stats: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Documents:  %d\n", stats.Documents)
	cmd.Printf("Index size: %d\n", stats.IndexSize)
	cmd.Printf("Dimension:  %d\n", stats.Dimension)
	cmd.Printf("Metric:     %s\n", stats.Metric)
	if stats.DataDir != "" {
		cmd.Printf("Data dir:   %s\n", stats.DataDir)
	}
	return nil
}
