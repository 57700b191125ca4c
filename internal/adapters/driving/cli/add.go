package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/quarrylabs/quarry-cli/internal/core/domain"
)

var (
	addTitle    string
	addSourceID string
	addStdin    bool
)

var addCmd = &cobra.Command{
	Use:   "add [content]",
	Short: "Add a document directly",
	Long: `Adds a document without going through a connector. Content is
taken from the argument, or from stdin with --stdin.

Re-adding with the same --source-id replaces the previous version.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addTitle, "title", "t", "", "document title")
	addCmd.Flags().StringVar(&addSourceID, "source-id", "", "stable identifier for updates (default: generated)")
	addCmd.Flags().BoolVar(&addStdin, "stdin", false, "read content from stdin")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	var content string
	switch {
	case addStdin:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		content = string(data)
	case len(args) == 1:
		content = args[0]
	default:
		return errors.New("provide content as an argument or use --stdin")
	}

	if strings.TrimSpace(content) == "" {
		return errors.New("content is empty")
	}

	sourceID := addSourceID
	if sourceID == "" {
		sourceID = "manual-" + uuid.NewString()
	}

	ok := retrievalService.AddDocument(commandContext(cmd), domain.DocumentInput{
		OwnerID:    ownerID,
		SourceType: domain.SourceManual,
		SourceID:   sourceID,
		Title:      addTitle,
		Content:    content,
	})
	if !ok {
		return errors.New("document was not added (see verbose log for details)")
	}

	cmd.Printf("Added document (source %s)\n", sourceID)
	return nil
}
