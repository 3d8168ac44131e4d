package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskCmd_Use(t *testing.T) {
	assert.Equal(t, "ask [question]", askCmd.Use)
}

func TestAskCmd_NotConfigured(t *testing.T) {
	cleanup := clearServices()
	defer cleanup()

	_, err := executeCommand("ask", "what is excluded?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestAskCmd_PrintsAnswerAndSources(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("ask", "what is excluded?")
	require.NoError(t, err)

	assert.Contains(t, out, "Flood is excluded.")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "policy.pdf (0.9800)")
	assert.Contains(t, out, "Page 2")

	stub := queryService.(*stubQueryService)
	assert.Equal(t, "what is excluded?", stub.lastQ)
	assert.Nil(t, stub.lastOpts.Redact)
}

func TestAskCmd_JSONOutput(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer func() { askJSON = false }()

	out, err := executeCommand("ask", "--json", "what is excluded?")
	require.NoError(t, err)
	assert.Contains(t, out, `"answer": "Flood is excluded."`)
	assert.Contains(t, out, `"chunk_id": "chunk-1"`)
}

func TestAskCmd_FlagsForwarded(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	defer func() {
		askTopK = 0
		askRedact = false
		askCmd.Flags().Lookup("redact").Changed = false
	}()

	_, err := executeCommand("ask", "--top-k", "5", "--redact=false", "what is excluded?")
	require.NoError(t, err)

	stub := queryService.(*stubQueryService)
	assert.Equal(t, 5, stub.lastOpts.TopK)
	require.NotNil(t, stub.lastOpts.Redact)
	assert.False(t, *stub.lastOpts.Redact)
}
