package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessella-labs/policyq/internal/core/domain"
	"github.com/tessella-labs/policyq/internal/costguard"
)

func TestNewLLMService_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(LLMConfig{}, nil)
	assert.Error(t, err)
}

func TestAnswer_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"The policy number is NCBA330004911965."},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	s, err := NewLLMService(LLMConfig{APIKey: "test-key", BaseURL: server.URL}, nil)
	require.NoError(t, err)

	answer, err := s.Answer(context.Background(), "What is the policy number?", []string{"some context"})
	require.NoError(t, err)
	assert.Contains(t, answer, "NCBA330004911965")
}

func TestAnswer_RetriesExhaustedReportProviderFailure(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"upstream busy","type":"server_error"}}`))
	}))
	defer server.Close()

	s, err := NewLLMService(LLMConfig{
		APIKey:         "test-key",
		BaseURL:        server.URL,
		BackoffInitial: time.Millisecond,
		BackoffMax:     2 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	_, err = s.Answer(context.Background(), "question", []string{"context"})
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
	assert.Equal(t, costguard.MaxAttempts, requests)
}

func TestAnswer_RejectsOverBudgetPrompt(t *testing.T) {
	guard := costguard.New(costguard.Config{MaxTokens: 10})

	s, err := NewLLMService(LLMConfig{APIKey: "test-key", BaseURL: "http://127.0.0.1:0"}, guard)
	require.NoError(t, err)

	long := make([]byte, 200)
	_, err = s.Answer(context.Background(), "question", []string{string(long)})
	assert.ErrorIs(t, err, domain.ErrBudgetExceeded)
}
