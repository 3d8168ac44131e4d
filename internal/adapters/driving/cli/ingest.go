package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tessella-labs/policyq/internal/core/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Index one or more PDF documents",
	Long: `Extracts text from each PDF, chunks it, embeds the chunks and
appends them to the local vector index.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest is not configured (set OPENAI_API_KEY)")
	}

	ctx := context.Background()
	var failed int
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			cmd.PrintErrf("  %s: %v\n", path, err)
			failed++
			continue
		}

		result, err := ingestService.Ingest(ctx, content, filepath.Base(path))
		if err != nil {
			if errors.Is(err, domain.ErrNoExtractableText) {
				cmd.PrintErrf("  %s: no extractable text\n", path)
			} else {
				cmd.PrintErrf("  %s: %v\n", path, err)
			}
			failed++
			continue
		}

		cmd.Printf("  %s: %d chunks, %d vectors in %.2fs\n",
			result.DocumentID, result.Chunks, result.Vectors, result.Elapsed.Seconds())
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}
