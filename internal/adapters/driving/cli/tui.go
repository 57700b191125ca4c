package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarrylabs/quarry-cli/internal/adapters/driving/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface.

Type a query and press enter to search. Tab switches between search
and ask mode, arrow keys move through results, esc quits.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	app := tui.New(retrievalService, ownerID).WithContext(commandContext(cmd))
	if err := app.Run(); err != nil {
		return fmt.Errorf("tui failed: %w", err)
	}
	return nil
}
