// Package openai provides an LLM service adapter using OpenAI API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tessella-labs/policyq/internal/core/domain"
	"github.com/tessella-labs/policyq/internal/core/ports/driven"
	"github.com/tessella-labs/policyq/internal/costguard"
	"github.com/tessella-labs/policyq/internal/logger"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 30 * time.Second
)

// systemPrompt constrains answers to the retrieved context.
const systemPrompt = "Answer strictly from provided context; if unknown, say you don't know; " +
	"cite sources by filename and chunk id; be concise."

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for Azure OpenAI or compatible APIs.
	BaseURL string

	// Model is the LLM model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// BackoffInitial and BackoffMax tune the retry schedule
	// (defaults: 500ms initial, 8s cap).
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// LLMService answers questions over retrieved context using OpenAI API.
// All calls run under the cost guard: budget check, rate limit, circuit
// breaker, and retries with exponential backoff.
type LLMService struct {
	client         *http.Client
	baseURL        string
	apiKey         string
	model          string
	guard          *costguard.Guard
	backoffInitial time.Duration
	backoffMax     time.Duration
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature,omitempty"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg LLMConfig, guard *costguard.Guard) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	return &LLMService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		guard:          guard,
		backoffInitial: cfg.BackoffInitial,
		backoffMax:     cfg.BackoffMax,
	}, nil
}

// Answer generates a grounded answer for the query from the context
// blocks. The prompt is budget-checked before any request; transient
// failures are retried with exponential backoff.
func (s *LLMService) Answer(ctx context.Context, query string, contextBlocks []string) (string, error) {
	prompt := strings.Join(contextBlocks, "\n\n")

	if s.guard != nil {
		if err := s.guard.EnforceBudget(prompt, query); err != nil {
			return "", err
		}
	}

	messages := []chatCompletionMsg{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf("Query: %s\n\nContext:\n%s", query, prompt)},
	}

	backoff := costguard.NewBackoffWith(s.backoffInitial, s.backoffMax)
	var lastErr error
	for attempt := 1; attempt <= costguard.MaxAttempts; attempt++ {
		if s.guard != nil {
			if err := s.guard.BeforeRequest(ctx); err != nil {
				return "", err
			}
		}

		answer, err := s.chatCompletion(ctx, messages)
		if err == nil {
			if s.guard != nil {
				s.guard.AfterSuccess(len(answer))
			}
			return answer, nil
		}

		lastErr = err
		if s.guard != nil {
			s.guard.AfterFailure(err)
		}
		if attempt == costguard.MaxAttempts {
			break
		}
		logger.Warn("Chat request failed (attempt %d): %v", attempt, err)
		if err := backoff.Sleep(ctx); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("chat completion: %w: %w", domain.ErrProviderFailure, lastErr)
}

// chatCompletion performs a single /chat/completions request.
func (s *LLMService) chatCompletion(ctx context.Context, messages []chatCompletionMsg) (string, error) {
	reqBody := chatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		MaxTokens:   s.MaxTokens(),
		Temperature: s.Temperature(),
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("User-Agent", "policyq")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("openai error: %s", chatResp.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body))
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("openai: no response choices returned")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// MaxTokens returns the completion token limit enforced on requests.
func (s *LLMService) MaxTokens() int {
	if s.guard != nil {
		return s.guard.MaxTokens()
	}
	return costguard.DefaultMaxTokens
}

// Temperature returns the sampling temperature used on requests.
func (s *LLMService) Temperature() float64 {
	if s.guard != nil {
		return s.guard.Temperature()
	}
	return costguard.DefaultTemperature
}

// Close releases resources.
func (s *LLMService) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
