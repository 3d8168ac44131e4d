package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var historyJSON bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Summarise the audit ledger",
	RunE:  runHistory,
}

var historyEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print raw ledger events",
	RunE:  runHistoryEvents,
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output the summary as JSON")
	historyCmd.AddCommand(historyEventsCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if historyService == nil {
		return errors.New("history service not configured")
	}

	summary, err := historyService.Summarize(context.Background())
	if err != nil {
		return fmt.Errorf("summarize ledger: %w", err)
	}

	if historyJSON {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal summary: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Ingest events: %d\n", summary.IngestEvents)
	cmd.Printf("Query events:  %d\n", summary.QueryEvents)
	if len(summary.Files) > 0 {
		cmd.Println("Files:")
		for _, file := range summary.Files {
			cmd.Printf("  %s\n", file)
		}
	}
	if len(summary.SampleQueries) > 0 {
		cmd.Println("Recent queries:")
		for _, sample := range summary.SampleQueries {
			cmd.Printf("  %q (top_k=%d, hits=%d)\n", sample.Query, sample.TopK, sample.Hits)
		}
	}
	return nil
}

func runHistoryEvents(cmd *cobra.Command, _ []string) error {
	if historyService == nil {
		return errors.New("history service not configured")
	}

	lines, err := historyService.Events(context.Background())
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	for _, line := range lines {
		cmd.Println(line)
	}
	return nil
}
