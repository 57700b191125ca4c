package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quarrylabs/quarry-cli/internal/core/services"
)

var (
	askLimit int
	askJSON  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from indexed documents",
	Long: `Retrieves the documents most relevant to the question and asks
the configured generator for an answer grounded in them. Without a
configured generator the sources are still reported.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askLimit, "limit", "n", services.DefaultAnswerK, "number of documents to ground the answer on")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	answer := retrievalService.GenerateAnswer(commandContext(cmd), args[0], ownerID, askLimit)

	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(answer.Answer)
	if len(answer.Sources) > 0 {
		cmd.Println()
		cmd.Printf("Confidence: %.2f\n", answer.Confidence)
		cmd.Println("Sources:")
		for i, src := range answer.Sources {
			cmd.Printf("[%d] (%.3f) %s\n", i+1, src.Score, src.Excerpt)
		}
	}
	return nil
}
