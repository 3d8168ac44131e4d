package domain

import (
	"fmt"
	"sort"
)

// Chunk represents a bounded contiguous span of document text.
// It is the unit of embedding and retrieval.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document. Empty until the chunk
	// is attached to a document during ingestion.
	DocumentID string

	// Text is the chunk content.
	Text string

	// Start is the character offset of the chunk within the
	// normalised source text.
	Start int

	// End is the exclusive character end offset. End >= Start always;
	// End-Start equals len(Text) for directly produced chunks and may
	// diverge slightly after overlap trimming.
	End int

	// PageStart and PageEnd are the 1-indexed inclusive page range the
	// chunk spans. Zero means the range has not been resolved.
	PageStart int
	PageEnd   int

	// Fields contains structured values extracted from the source
	// document (policy number, premium amounts).
	Fields map[string]string
}

// MapPageRange maps a [start, end) character span onto a 1-indexed
// inclusive page range, given the ascending list of per-page starting
// offsets. An empty offset list yields (1, 1).
//
// The start page is the last page whose offset is <= start; the end page
// is the last page whose offset is <= max(start, end-1). Both are clamped
// to the valid page index range.
func MapPageRange(start, end int, pageOffsets []int) (int, int) {
	if len(pageOffsets) == 0 {
		return 1, 1
	}

	last := len(pageOffsets) - 1

	startIdx := sort.SearchInts(pageOffsets, start+1) - 1
	if startIdx < 0 {
		startIdx = 0
	}
	if startIdx > last {
		startIdx = last
	}

	effectiveEnd := end - 1
	if effectiveEnd < start {
		effectiveEnd = start
	}
	endIdx := sort.SearchInts(pageOffsets, effectiveEnd+1) - 1
	if endIdx < 0 {
		endIdx = 0
	}
	if endIdx > last {
		endIdx = last
	}

	return startIdx + 1, endIdx + 1
}

// FormatPageLabel returns a human-readable label for a page range.
// Zero pageStart means the range is unknown and yields an empty label.
func FormatPageLabel(pageStart, pageEnd int) string {
	if pageStart == 0 {
		return ""
	}
	if pageEnd == 0 || pageEnd == pageStart {
		return fmt.Sprintf("Page %d", pageStart)
	}
	return fmt.Sprintf("Pages %d–%d", pageStart, pageEnd)
}
