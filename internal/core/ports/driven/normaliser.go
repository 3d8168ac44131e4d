package driven

import "context"

// Normaliser extracts normalised text from raw document bytes.
// Each normaliser handles specific MIME types (currently only PDF).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Normalise extracts text from raw bytes. The returned page offsets
	// are the ascending per-page starting character offsets into the
	// text; an empty result signals no usable text after all
	// extraction strategies.
	Normalise(ctx context.Context, content []byte, filename string) (*NormaliseResult, error)
}

// NormaliseResult contains the output of text extraction.
// Chunking is handled by the PostProcessor pipeline.
type NormaliseResult struct {
	// Text is the normalised document text.
	Text string

	// PageOffsets is the ascending list of per-page starting character
	// offsets into Text. Empty when page boundaries are unknown.
	PageOffsets []int
}
