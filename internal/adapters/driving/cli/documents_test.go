package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentsCmd_HasShowSubcommand(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range documentsCmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Contains(t, names, "show")
}

func TestDocumentsCmd_ListsDocuments(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("documents")
	require.NoError(t, err)
	assert.Contains(t, out, "policy.pdf (3 chunks, 2 pages)")
}

func TestDocumentsCmd_EmptyStore(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	documentStore = &stubDocumentStore{}

	out, err := executeCommand("documents")
	require.NoError(t, err)
	assert.Contains(t, out, "No documents ingested.")
}

func TestDocumentsShowCmd_PrintsChunks(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("documents", "show", "policy.pdf")
	require.NoError(t, err)
	assert.Contains(t, out, "Document: policy.pdf")
	assert.Contains(t, out, "Chunks: 1")
	assert.Contains(t, out, "All perils are covered.")
}

func TestDocumentsShowCmd_NotFound(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("documents", "show", "missing.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
