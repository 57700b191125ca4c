package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all indexed documents",
	Long: `Deletes every document and wipes the vector index for all
owners. This cannot be undone.`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	if !clearYes {
		cmd.Print("Delete all documents? This cannot be undone. [y/N]: ")
		var answer string
		if _, err := fmt.Fscanln(cmd.InOrStdin(), &answer); err != nil || (answer != "y" && answer != "Y") {
			cmd.Println("Aborted.")
			return nil
		}
	}

	if err := retrievalService.Clear(commandContext(cmd)); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}

	cmd.Println("All documents deleted.")
	return nil
}
