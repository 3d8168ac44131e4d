package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tessella-labs/policyq/internal/core/domain"
)

var (
	askTopK   int
	askRedact bool
	askJSON   bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question over the indexed documents",
	Long: `Retrieves the most similar chunks and answers the question grounded
strictly in them. Questions about structured fields (policy number,
premium amounts) are answered directly from extracted fields.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve")
	askCmd.Flags().BoolVar(&askRedact, "redact", false, "mask PII in snippets and context")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("ask is not configured (set OPENAI_API_KEY)")
	}

	opts := domain.QueryOptions{TopK: askTopK}
	if cmd.Flags().Changed("redact") {
		opts.Redact = &askRedact
	}

	answer, err := queryService.Ask(context.Background(), args[0], opts)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return outputAnswerJSON(cmd, answer)
	}
	outputAnswerText(cmd, answer)
	return nil
}

func outputAnswerJSON(cmd *cobra.Command, answer *domain.Answer) error {
	payload := map[string]any{
		"answer":   answer.Text,
		"snippets": answer.Snippets,
		"sources":  answer.Sources,
		"shortcut": answer.Shortcut,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswerText(cmd *cobra.Command, answer *domain.Answer) {
	cmd.Println(answer.Text)

	if len(answer.Sources) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, source := range answer.Sources {
		line := fmt.Sprintf("  [%d] %s (%.4f)", i+1, source.Source, source.Score)
		if source.PageStart > 0 {
			line += ", " + domain.FormatPageLabel(source.PageStart, source.PageEnd)
		}
		cmd.Println(line)
	}
}
