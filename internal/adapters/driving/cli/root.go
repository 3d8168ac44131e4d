package cli

import (
	"github.com/spf13/cobra"

	"github.com/tessella-labs/policyq/internal/core/ports/driven"
	"github.com/tessella-labs/policyq/internal/core/ports/driving"
	"github.com/tessella-labs/policyq/internal/logger"
)

// version is overridden at build time via ldflags.
var version = "0.1.0"

// Services used by the commands. Set by initServices during Execute;
// tests inject mocks directly.
var (
	ingestService  driving.IngestService
	queryService   driving.QueryService
	historyService driving.HistoryService
	documentStore  driven.DocumentStore
	configStore    driven.ConfigStore
	indexSize      func() int
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "policyq",
	Short: "Question answering over PDF policy documents",
	Long: `policyq ingests PDF policy documents into a local vector index and
answers questions grounded strictly in the retrieved passages.

Set OPENAI_API_KEY to enable embedding and answer generation.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging to stderr")
}

// Execute wires the concrete adapters and runs the root command.
func Execute() error {
	if err := initServices(); err != nil {
		return err
	}
	defer closeServices()
	return rootCmd.Execute()
}
