package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var rebuildOwnerOnly bool

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the vector index from stored documents",
	Long: `Recomputes the vector index and its manifest from the document
store, dropping tombstoned entries left behind by updates. Stored
embeddings are reused where possible so a rebuild rarely needs the
embedding service.

By default the whole index is rebuilt. With --owner-only the rebuilt
index contains only the current owner's documents.`,
	Args: cobra.NoArgs,
	RunE: runRebuild,
}

func init() {
	rebuildCmd.Flags().BoolVar(&rebuildOwnerOnly, "owner-only", false, "rebuild only the current owner's documents")
	rootCmd.AddCommand(rebuildCmd)
}

func runRebuild(cmd *cobra.Command, _ []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	var scope *int64
	if rebuildOwnerOnly {
		scope = &ownerID
	}

	if err := retrievalService.Rebuild(commandContext(cmd), scope); err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	stats := retrievalService.Stats(commandContext(cmd))
	cmd.Printf("Rebuilt index: %d vectors\n", stats.IndexSize)
	return nil
}
