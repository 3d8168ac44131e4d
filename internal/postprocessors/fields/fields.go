// Package fields provides regex-based structured field extraction for
// policy documents.
package fields

import (
	"context"
	"regexp"
	"strings"

	"github.com/tessella-labs/policyq/internal/core/domain"
)

// Canonical field keys produced by Extract.
const (
	KeyPolicyNumber          = "policy_number"
	KeyEstimatedTotalPremium = "estimated_total_premium"
	KeyPremiumAtInception    = "premium_at_inception"
)

const amountPattern = `([$€£]?\s*[0-9]{1,3}(?:,[0-9]{3})*(?:\.[0-9]{2})?)`

var (
	policyNumberRe = regexp.MustCompile(`(?i)\bPOLICY\s*NUMBER\s*[:#]?\s*([A-Z0-9\-]+)`)
	totalPremiumRe = regexp.MustCompile(`(?is)(?:ESTIMATED\s+TOTAL\s+PREMIUM|TOTAL\s+PREMIUM)[^0-9$€£]*` + amountPattern)
	inceptionRe    = regexp.MustCompile(`(?is)PREMIUM\s+SHOWN\s+IS\s+PAYABLE\s+AT\s+INCEPTION[^0-9$€£]*` + amountPattern)
)

// Extract pulls structured field values from normalised policy text.
// Returns an empty map when no fields are found.
func Extract(text string) map[string]string {
	if text == "" {
		return map[string]string{}
	}

	out := map[string]string{}

	if m := policyNumberRe.FindStringSubmatch(text); m != nil {
		out[KeyPolicyNumber] = strings.TrimSpace(m[1])
	}
	if m := totalPremiumRe.FindStringSubmatch(text); m != nil {
		out[KeyEstimatedTotalPremium] = strings.TrimSpace(m[1])
	}
	if m := inceptionRe.FindStringSubmatch(text); m != nil {
		out[KeyPremiumAtInception] = strings.TrimSpace(m[1])
	}

	return out
}

// Processor annotates chunks with structured fields extracted from their
// text, and records document-level fields extracted from the full content.
// It implements the PostProcessor interface.
type Processor struct{}

// New creates a new field extraction processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "fields"
}

// Process extracts fields from each chunk and from the document content.
// Chunks with no matching fields keep a nil Fields map.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	for i := range chunks {
		extracted := Extract(chunks[i].Text)
		if len(extracted) > 0 {
			chunks[i].Fields = extracted
		}
	}

	docFields := Extract(doc.Content)
	if len(docFields) > 0 {
		doc.Fields = docFields
	}

	return chunks, nil
}
