package jsonl

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessella-labs/policyq/internal/core/domain"
)

func newTestLedger(t *testing.T, rotateMB int) *Ledger {
	t.Helper()
	l, err := New(Config{
		Path:     filepath.Join(t.TempDir(), "ledger.jsonl"),
		RotateMB: rotateMB,
	})
	require.NoError(t, err)
	return l
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestAppendIngest_WritesOneLine(t *testing.T) {
	l := newTestLedger(t, 0)

	event := domain.NewIngestEvent("policy.pdf", 12, 1, 1500*time.Millisecond,
		domain.Marker{Type: "Note", Text: "initial ingest"})
	require.NoError(t, l.AppendIngest(event))

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"kind":"ingest"`)
	assert.Contains(t, lines[0], `"filename":"policy.pdf"`)
	assert.Contains(t, lines[0], `"chunks":12`)
	assert.Contains(t, lines[0], `"duration_ms":1500`)
}

func TestAppendQuery_RoundTrips(t *testing.T) {
	l := newTestLedger(t, 0)

	event := domain.NewQueryEvent(domain.QueryEvent{
		Query:       "what is covered?",
		TopK:        3,
		Hits:        []domain.RetrievalHit{{Source: "policy.pdf", ChunkID: "abc", Score: 0.91, Preview: "coverage"}},
		Model:       "gpt-4o-mini",
		MaxTokens:   300,
		Temperature: 0.2,
		LatencyMS:   120,
		AnswerChars: 42,
	})
	require.NoError(t, l.AppendQuery(event))

	entries, err := l.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "query", entries[0]["kind"])
	assert.Equal(t, "what is covered?", entries[0]["query"])
	assert.EqualValues(t, 3, entries[0]["top_k"])
	assert.NotEmpty(t, entries[0]["run"])
	assert.NotEmpty(t, entries[0]["ts"])
}

func TestEntries_MissingFile(t *testing.T) {
	l := newTestLedger(t, 0)

	entries, err := l.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEntries_SkipsBlankLines(t *testing.T) {
	l := newTestLedger(t, 0)
	require.NoError(t, l.AppendIngest(domain.NewIngestEvent("a.pdf", 1, 1, time.Second)))
	require.NoError(t, appendRaw(l.Path(), "\n\n"))
	require.NoError(t, l.AppendIngest(domain.NewIngestEvent("b.pdf", 2, 1, time.Second)))

	entries, err := l.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.jsonl")
	l, err := New(Config{Path: path, RotateMB: 1})
	require.NoError(t, err)

	// Grow the ledger past the threshold by hand.
	require.NoError(t, os.WriteFile(path, make([]byte, 1*bytesInMB), 0o644))

	require.NoError(t, l.AppendIngest(domain.NewIngestEvent("c.pdf", 3, 1, time.Second)))

	rotated := filepath.Join(dir, "ledger.r1.jsonl")
	info, err := os.Stat(rotated)
	require.NoError(t, err, "expected rotated file %s", rotated)
	assert.EqualValues(t, 1*bytesInMB, info.Size())

	// The fresh file holds only the new event.
	entries, err := l.Entries()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRotation_UsesNextFreeIndex(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.jsonl")
	l, err := New(Config{Path: path, RotateMB: 1})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ledger.r1.jsonl"), []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(path, make([]byte, 1*bytesInMB), 0o644))

	require.NoError(t, l.AppendIngest(domain.NewIngestEvent("d.pdf", 1, 1, time.Second)))

	_, err = os.Stat(filepath.Join(dir, "ledger.r2.jsonl"))
	assert.NoError(t, err)
}

func TestRotation_Disabled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.jsonl")
	l, err := New(Config{Path: path, RotateMB: -1})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, make([]byte, 2*bytesInMB), 0o644))
	require.NoError(t, l.AppendIngest(domain.NewIngestEvent("e.pdf", 1, 1, time.Second)))

	_, err = os.Stat(filepath.Join(dir, "ledger.r1.jsonl"))
	assert.True(t, os.IsNotExist(err), "rotation should be disabled")
}

func TestLines_RawInAppendOrder(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Config{Path: filepath.Join(dir, "ledger.jsonl")})
	require.NoError(t, err)

	require.NoError(t, l.AppendIngest(domain.NewIngestEvent("a.pdf", 1, 1, time.Second)))
	require.NoError(t, l.AppendIngest(domain.NewIngestEvent("b.pdf", 2, 1, time.Second)))

	lines, err := l.Lines()
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"filename":"a.pdf"`)
	assert.Contains(t, lines[1], `"filename":"b.pdf"`)
}

func appendRaw(path, content string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = file.WriteString(content)
	return err
}
