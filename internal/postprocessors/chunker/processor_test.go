package chunker

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/tessella-labs/policyq/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.maxChars != DefaultMaxChars {
			t.Errorf("expected maxChars %d, got %d", DefaultMaxChars, p.maxChars)
		}
		if p.overlap != DefaultOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultOverlap, p.overlap)
		}
	})

	t.Run("custom max chars", func(t *testing.T) {
		p := New(WithMaxChars(200))
		if p.maxChars != 200 {
			t.Errorf("expected maxChars 200, got %d", p.maxChars)
		}
	})

	t.Run("custom overlap", func(t *testing.T) {
		p := New(WithOverlap(30))
		if p.overlap != 30 {
			t.Errorf("expected overlap 30, got %d", p.overlap)
		}
	})

	t.Run("overlap exceeds max chars", func(t *testing.T) {
		p := New(WithMaxChars(100), WithOverlap(150))
		if p.overlap >= p.maxChars {
			t.Error("overlap should be reduced when it exceeds max chars")
		}
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithMaxChars(0), WithOverlap(-1))
		if p.maxChars != DefaultMaxChars {
			t.Errorf("expected default maxChars, got %d", p.maxChars)
		}
		if p.overlap != DefaultOverlap {
			t.Errorf("expected default overlap, got %d", p.overlap)
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	p := New()
	if p.Name() != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", p.Name())
	}
}

func TestProcessor_Process_EmptyContent(t *testing.T) {
	p := New()
	doc := &domain.Document{
		ID:      "test-doc",
		Content: "   \n  ",
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected 0 chunks for empty content, got %d", len(chunks))
	}
}

func TestProcessor_Process_SmallContent(t *testing.T) {
	p := New(WithMaxChars(100), WithOverlap(20))
	doc := &domain.Document{
		ID:      "test-doc",
		Content: "The policy covers water damage. Claims must be filed quickly.",
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != strings.TrimSpace(doc.Content) {
		t.Errorf("unexpected chunk text: %q", chunks[0].Text)
	}
	if chunks[0].Start != 0 {
		t.Errorf("expected start 0, got %d", chunks[0].Start)
	}
	if chunks[0].End != len(chunks[0].Text) {
		t.Errorf("expected end %d, got %d", len(chunks[0].Text), chunks[0].End)
	}
	if chunks[0].DocumentID != "test-doc" {
		t.Errorf("expected document ID 'test-doc', got %q", chunks[0].DocumentID)
	}
}

func TestProcessor_Process_SentenceAware(t *testing.T) {
	p := New(WithMaxChars(60), WithOverlap(10))
	sentences := []string{
		"The first clause covers fire damage.",
		"The second clause covers flooding.",
		"The third clause excludes wear and tear.",
	}
	doc := &domain.Document{
		ID:      "doc-1",
		Content: strings.Join(sentences, " "),
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if len(c.Text) > 60 {
			t.Errorf("chunk %d exceeds max chars: %d", i, len(c.Text))
		}
		if c.ID == "" {
			t.Errorf("chunk %d missing ID", i)
		}
	}

	// First chunk starts with the first sentence intact.
	if !strings.HasPrefix(chunks[0].Text, "The first clause") {
		t.Errorf("unexpected first chunk: %q", chunks[0].Text)
	}
}

func TestProcessor_Process_OffsetsMonotonic(t *testing.T) {
	p := New(WithMaxChars(80), WithOverlap(15))
	var sb strings.Builder
	for i := 0; i < 20; i++ {
		sb.WriteString("Coverage applies to all listed perils under section nine. ")
	}
	doc := &domain.Document{ID: "doc-1", Content: sb.String()}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if c.End <= c.Start {
			t.Errorf("chunk %d has non-positive span: [%d, %d)", i, c.Start, c.End)
		}
		if i > 0 && c.Start < chunks[i-1].Start {
			t.Errorf("chunk %d start %d precedes previous start %d", i, c.Start, chunks[i-1].Start)
		}
	}
}

func TestProcessor_Process_HardSplitLongSentence(t *testing.T) {
	p := New(WithMaxChars(550), WithOverlap(90))
	doc := &domain.Document{
		ID:      "doc-1",
		Content: strings.Repeat("A", 2500),
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected the long run to be split, got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if len(c.Text) > 550 {
			t.Errorf("chunk %d exceeds max chars: %d", i, len(c.Text))
		}
	}

	total := 0
	for _, c := range chunks {
		total += len(c.Text)
	}
	if total != 2500 {
		t.Errorf("expected hard split to preserve all characters, got %d", total)
	}
}

func TestProcessor_Process_HardSplitMultibyte(t *testing.T) {
	p := New(WithMaxChars(550), WithOverlap(90))
	doc := &domain.Document{
		ID:      "doc-1",
		Content: strings.Repeat("€", 400),
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected the long run to be split, got %d chunks", len(chunks))
	}

	var rebuilt strings.Builder
	for i, c := range chunks {
		if !utf8.ValidString(c.Text) {
			t.Errorf("chunk %d contains invalid UTF-8: %q", i, c.Text)
		}
		if len(c.Text) > 550 {
			t.Errorf("chunk %d exceeds max chars: %d", i, len(c.Text))
		}
		rebuilt.WriteString(c.Text)
	}
	if rebuilt.String() != doc.Content {
		t.Error("expected the hard split to preserve the content byte for byte")
	}
}

func TestProcessor_Process_OverlapTailMultibyte(t *testing.T) {
	p := New(WithMaxChars(60), WithOverlap(10))
	sentence := strings.Repeat("ü", 25) + "."
	doc := &domain.Document{
		ID:      "doc-1",
		Content: sentence + " " + sentence + " " + sentence,
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c.Text) {
			t.Errorf("chunk %d contains invalid UTF-8: %q", i, c.Text)
		}
	}
}

func TestProcessor_Process_PageRanges(t *testing.T) {
	p := New(WithMaxChars(40), WithOverlap(0))
	doc := &domain.Document{
		ID:          "doc-1",
		Content:     "First page sentence here. Second page sentence lives here.",
		PageOffsets: []int{0, 25},
	}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].PageStart != 1 || chunks[0].PageEnd != 1 {
		t.Errorf("expected first chunk on page 1, got %d-%d", chunks[0].PageStart, chunks[0].PageEnd)
	}
	if chunks[1].PageStart != 2 || chunks[1].PageEnd != 2 {
		t.Errorf("expected second chunk on page 2, got %d-%d", chunks[1].PageStart, chunks[1].PageEnd)
	}
}

func TestProcessor_Process_NoPageOffsets(t *testing.T) {
	p := New()
	doc := &domain.Document{ID: "doc-1", Content: "A single sentence."}

	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].PageStart != 1 || chunks[0].PageEnd != 1 {
		t.Errorf("expected default page 1, got %d-%d", chunks[0].PageStart, chunks[0].PageEnd)
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "no boundary",
			text: "no punctuation here",
			want: []string{"no punctuation here"},
		},
		{
			name: "periods",
			text: "First. Second. Third.",
			want: []string{"First.", "Second.", "Third."},
		},
		{
			name: "mixed punctuation",
			text: "Really? Yes! Fine.",
			want: []string{"Really?", "Yes!", "Fine."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSentences(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d sentences, got %d: %v", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("sentence %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}
