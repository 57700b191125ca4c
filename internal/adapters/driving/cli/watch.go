package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quarrylabs/quarry-cli/internal/connectors/filesystem"
	"github.com/quarrylabs/quarry-cli/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and index changed files",
	Long: `Watches the given directory recursively and indexes every
supported file as it is created or modified. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn := filesystem.New(args[0])
	defer conn.Close()

	docs, errs, err := conn.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watching %s: %w", args[0], err)
	}

	cmd.Printf("Watching %s (press Ctrl+C to stop)\n", args[0])

	for {
		select {
		case raw, ok := <-docs:
			if !ok {
				return nil
			}
			if ingestService.IngestRaw(ctx, ownerID, raw) {
				cmd.Printf("Indexed %s\n", raw.SourceID)
			} else {
				cmd.Printf("Skipped %s\n", raw.SourceID)
			}
		case watchErr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("watch: %v", watchErr)
		case <-ctx.Done():
			cmd.Println("Stopped.")
			return nil
		}
	}
}
