package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tessella-labs/policyq/internal/core/domain"
)

var documentsJSON bool

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List ingested documents",
	RunE:  runDocumentsList,
}

var documentsShowCmd = &cobra.Command{
	Use:   "show [doc-id]",
	Short: "Show a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsShow,
}

func init() {
	documentsCmd.Flags().BoolVar(&documentsJSON, "json", false, "output as JSON")
	documentsCmd.AddCommand(documentsShowCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	if documentStore == nil {
		return errors.New("document store not configured")
	}

	docs, err := documentStore.ListDocuments(context.Background())
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	if documentsJSON {
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal documents: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(docs) == 0 {
		cmd.Println("No documents ingested.")
		return nil
	}

	cmd.Println("Documents:")
	for _, doc := range docs {
		cmd.Printf("  %s (%d chunks, %d pages)\n", doc.ID, doc.ChunkCount, max(1, len(doc.PageOffsets)))
	}
	return nil
}

func runDocumentsShow(cmd *cobra.Command, args []string) error {
	if documentStore == nil {
		return errors.New("document store not configured")
	}

	ctx := context.Background()
	doc, err := documentStore.GetDocument(ctx, args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("document %q not found", args[0])
		}
		return fmt.Errorf("get document: %w", err)
	}

	chunks, err := documentStore.GetChunks(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("get chunks: %w", err)
	}

	cmd.Printf("Document: %s\n", doc.ID)
	cmd.Printf("  Pages:  %d\n", max(1, len(doc.PageOffsets)))
	cmd.Printf("  Chunks: %d\n", len(chunks))
	if len(doc.Fields) > 0 {
		cmd.Println("  Fields:")
		for key, value := range doc.Fields {
			cmd.Printf("    %s: %s\n", key, value)
		}
	}

	for _, chunk := range chunks {
		cmd.Println()
		cmd.Printf("  [%s] %s, chars %d-%d\n",
			chunk.ID, domain.FormatPageLabel(chunk.PageStart, chunk.PageEnd), chunk.Start, chunk.End)
		cmd.Printf("    %s\n", previewLine(chunk.Text))
	}
	return nil
}

// previewLine shortens chunk text to a single display line.
func previewLine(text string) string {
	const limit = 120
	runes := []rune(text)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return text
}
