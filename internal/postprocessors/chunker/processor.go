// Package chunker provides a sentence-aware text chunking processor.
package chunker

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tessella-labs/policyq/internal/core/domain"
)

// DefaultMaxChars is the default number of characters per chunk.
const DefaultMaxChars = 550

// DefaultOverlap is the default number of overlapping characters.
const DefaultOverlap = 90

// sentenceBoundary matches a sentence-ending punctuation mark followed by
// whitespace. The punctuation stays with the preceding sentence and the
// whitespace is consumed.
var sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)

// Processor splits document content into overlapping chunks along sentence
// boundaries. Sentences longer than the chunk size are split hard at the
// character limit. It implements the PostProcessor interface.
type Processor struct {
	maxChars int
	overlap  int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxChars sets the chunk size in characters.
func WithMaxChars(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.maxChars = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		maxChars: DefaultMaxChars,
		overlap:  DefaultOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.maxChars {
		p.overlap = p.maxChars / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document
// content. Each chunk carries its character offsets into the cleaned content
// and the 1-indexed page range derived from the document's page offsets.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	cleaned := strings.TrimSpace(doc.Content)
	if cleaned == "" {
		// Empty content produces no chunks
		return nil, nil
	}

	var chunks []domain.Chunk
	var buffer []string
	startIndex := 0

	emit := func(text string, start, end int) {
		pageStart, pageEnd := domain.MapPageRange(start, end, doc.PageOffsets)
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Text:       text,
			Start:      start,
			End:        end,
			PageStart:  pageStart,
			PageEnd:    pageEnd,
		})
	}

	flush := func() {
		if len(buffer) == 0 {
			return
		}
		text := strings.TrimSpace(strings.Join(buffer, " "))
		if text == "" {
			buffer = nil
			return
		}
		endIndex := startIndex + len(text)
		emit(text, startIndex, endIndex)
		// Seed the next buffer with the overlap tail of this chunk so
		// adjacent chunks share context.
		buffer = nil
		if p.overlap > 0 {
			tail := text
			if len(tail) > p.overlap {
				tail = tail[runeBoundary(tail, len(tail)-p.overlap):]
			}
			tail = strings.TrimLeftFunc(tail, unicode.IsSpace)
			if tail != "" {
				buffer = []string{tail}
			}
		}
		startIndex = max(0, endIndex-p.overlap)
	}

	hardSplit := func(sentence string) {
		for offset := 0; offset < len(sentence); {
			end := runeBoundary(sentence, min(offset+p.maxChars, len(sentence)))
			if end <= offset {
				_, size := utf8.DecodeRuneInString(sentence[offset:])
				end = offset + size
			}
			piece := sentence[offset:end]
			endIndex := startIndex + len(piece)
			emit(piece, startIndex, endIndex)
			startIndex = max(0, endIndex-p.overlap)
			offset = end
		}
	}

	for _, sentence := range splitSentences(cleaned) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if len(sentence) > p.maxChars {
			flush()
			hardSplit(sentence)
			continue
		}

		if prospectiveLen(buffer, sentence) > p.maxChars {
			flush()
			// The flush may have seeded an overlap tail; if the
			// sentence still doesn't fit, split it hard.
			if prospectiveLen(buffer, sentence) > p.maxChars {
				hardSplit(sentence)
				continue
			}
		}
		buffer = append(buffer, sentence)
	}

	flush()
	return chunks, nil
}

// runeBoundary backs the byte offset i off to the start of the rune it
// falls inside, so slicing at the result never cuts a rune in half.
func runeBoundary(s string, i int) int {
	if i >= len(s) {
		return len(s)
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// prospectiveLen returns the length the chunk text would have if the
// sentence were appended to the buffer.
func prospectiveLen(buffer []string, sentence string) int {
	if len(buffer) == 0 {
		return len(sentence)
	}
	joined := strings.Join(buffer, " ") + " " + sentence
	return len(strings.TrimSpace(joined))
}

// splitSentences splits text at sentence-ending punctuation followed by
// whitespace. The trailing punctuation is kept with each sentence.
func splitSentences(text string) []string {
	matches := sentenceBoundary.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return []string{text}
	}

	sentences := make([]string, 0, len(matches)+1)
	last := 0
	for _, loc := range matches {
		sentences = append(sentences, text[last:loc[0]+1])
		last = loc[1]
	}
	if last < len(text) {
		sentences = append(sentences, text[last:])
	}
	return sentences
}
