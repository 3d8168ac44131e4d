package pdf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessella-labs/policyq/internal/core/domain"
	"github.com/tessella-labs/policyq/internal/core/ports/driven"
)

// mockRunner is a test double for CommandRunner.
type mockRunner struct {
	output []byte
	err    error
}

func (m *mockRunner) Run(_ context.Context, _ string, _ ...string) ([]byte, error) {
	return m.output, m.err
}

func TestNew(t *testing.T) {
	normaliser := New()
	require.NotNil(t, normaliser)
	assert.IsType(t, &Normaliser{}, normaliser)
}

func TestSupportedMIMETypes(t *testing.T) {
	normaliser := New()
	mimeTypes := normaliser.SupportedMIMETypes()

	require.NotEmpty(t, mimeTypes)
	assert.Contains(t, mimeTypes, "application/pdf")
	assert.Len(t, mimeTypes, 1)
}

func TestNormalise_EmptyContent(t *testing.T) {
	normaliser := New()

	result, err := normaliser.Normalise(context.Background(), nil, "empty.pdf")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_Garbage(t *testing.T) {
	normaliser := NewWithRunner(&mockRunner{output: nil, err: ErrPDFToolNotFound})

	result, err := normaliser.Normalise(context.Background(), []byte("not a pdf"), "junk.pdf")
	assert.ErrorIs(t, err, domain.ErrNoExtractableText)
	assert.Nil(t, result)
}

func TestInstallInstructions(t *testing.T) {
	instructions := InstallInstructions()
	assert.Contains(t, instructions, "pdftotext")
	assert.Contains(t, instructions, "brew install poppler")
	assert.Contains(t, instructions, "apt install poppler-utils")
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}

func TestErrPDFToolNotFound(t *testing.T) {
	assert.Error(t, ErrPDFToolNotFound)
	assert.Contains(t, ErrPDFToolNotFound.Error(), "pdftotext")
}

func TestNormaliseForChunking(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "carriage returns become newlines",
			input:    "line one\rline two",
			expected: "line one\nline two",
		},
		{
			name:     "tabs become spaces",
			input:    "a\tb",
			expected: "a b",
		},
		{
			name:     "long space runs collapse to two",
			input:    "col1      col2",
			expected: "col1  col2",
		},
		{
			name:     "double spaces survive",
			input:    "col1  col2",
			expected: "col1  col2",
		},
		{
			name:     "newline runs collapse to two",
			input:    "para one\n\n\n\npara two",
			expected: "para one\n\npara two",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  text  \n",
			expected: "text",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, NormaliseForChunking(tc.input))
		})
	}
}

func TestNormaliseWithPageBreaks(t *testing.T) {
	t.Run("no pages", func(t *testing.T) {
		text, offsets := normaliseWithPageBreaks(nil)
		assert.Empty(t, text)
		assert.Nil(t, offsets)
	})

	t.Run("single page", func(t *testing.T) {
		text, offsets := normaliseWithPageBreaks([]string{"hello world"})
		assert.Equal(t, "hello world", text)
		assert.Equal(t, []int{0}, offsets)
	})

	t.Run("two pages", func(t *testing.T) {
		text, offsets := normaliseWithPageBreaks([]string{"page one", "page two"})
		assert.Equal(t, "page one\n\npage two", text)
		require.Len(t, offsets, 2)
		assert.Equal(t, 0, offsets[0])
		assert.Equal(t, len("page one")+2, offsets[1])
	})

	t.Run("offsets point at page starts", func(t *testing.T) {
		text, offsets := normaliseWithPageBreaks([]string{"alpha", "beta", "gamma"})
		require.Len(t, offsets, 3)
		for i, page := range []string{"alpha", "beta", "gamma"} {
			start := offsets[i]
			assert.Equal(t, page, text[start:start+len(page)], "page %d", i+1)
		}
	})

	t.Run("leading whitespace trimmed", func(t *testing.T) {
		text, offsets := normaliseWithPageBreaks([]string{"\n\n  first", "second"})
		assert.Equal(t, "first\n\nsecond", text)
		require.Len(t, offsets, 2)
		assert.Equal(t, 0, offsets[0])
	})

	t.Run("all pages empty", func(t *testing.T) {
		text, offsets := normaliseWithPageBreaks([]string{"", "  ", ""})
		assert.Empty(t, text)
		assert.Nil(t, offsets)
	})
}
