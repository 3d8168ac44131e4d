package driven

import "github.com/tessella-labs/policyq/internal/core/domain"

// Ledger is the append-only audit log. One JSON object is written per
// line; the file is rotated once it exceeds a configured size
// threshold, immediately before the next append.
type Ledger interface {
	// AppendIngest records a completed ingestion.
	AppendIngest(event domain.IngestEvent) error

	// AppendQuery records a completed query.
	AppendQuery(event domain.QueryEvent) error

	// Close releases resources.
	Close() error
}

// LedgerReader provides read access to recorded ledger entries.
type LedgerReader interface {
	// Entries returns every parsed entry from the active ledger file
	// in append order. Blank lines are skipped; a missing file yields
	// no entries.
	Entries() ([]map[string]any, error)

	// Lines returns the raw ledger lines in append order, blank lines
	// skipped. A missing file yields no lines.
	Lines() ([]string, error)
}
