package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tessella-labs/policyq/internal/adapters/driven/config/file"
	"github.com/tessella-labs/policyq/internal/adapters/driven/embedding/cache"
	embeddingopenai "github.com/tessella-labs/policyq/internal/adapters/driven/embedding/openai"
	"github.com/tessella-labs/policyq/internal/adapters/driven/ledger/jsonl"
	llmopenai "github.com/tessella-labs/policyq/internal/adapters/driven/llm/openai"
	"github.com/tessella-labs/policyq/internal/adapters/driven/storage/sqlite"
	"github.com/tessella-labs/policyq/internal/adapters/driven/vectorstore/flat"
	"github.com/tessella-labs/policyq/internal/core/services"
	"github.com/tessella-labs/policyq/internal/costguard"
	"github.com/tessella-labs/policyq/internal/logger"
	"github.com/tessella-labs/policyq/internal/normalisers/pdf"
	"github.com/tessella-labs/policyq/internal/postprocessors"
)

// closables collects everything initServices opened, for closeServices.
var closables []io.Closer

// homeDir returns the application directory, POLICYQ_HOME or ~/.policyq.
func homeDir() (string, error) {
	if dir := os.Getenv("POLICYQ_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".policyq"), nil
}

// initServices builds the adapter stack and the services the commands
// call. Embedding and generation are only wired when an API key is
// configured; the remaining commands work without one.
func initServices() error {
	home, err := homeDir()
	if err != nil {
		return err
	}
	dataDir := filepath.Join(home, "data")

	cfg, err := file.NewConfigStore(home)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	configStore = cfg

	vectorStore, err := flat.New(filepath.Join(dataDir, "index"))
	if err != nil {
		return fmt.Errorf("open vector index: %w", err)
	}
	closables = append(closables, vectorStore)
	indexSize = vectorStore.Size

	docStore, err := sqlite.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	closables = append(closables, docStore)
	documentStore = docStore

	ledger, err := jsonl.New(jsonl.Config{
		Path:     filepath.Join(dataDir, "ledger.jsonl"),
		RotateMB: cfg.GetInt("ledger.rotate_mb"),
	})
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	historyService = services.NewHistoryService(ledger)

	// Each provider gets its own guard so embedding traffic never
	// consumes the generation budget or trips its breaker.
	guardCfg := costguard.Config{
		RatePerSec:  cfg.GetFloat("guard.rps"),
		MaxTokens:   cfg.GetInt("llm.max_tokens"),
		Temperature: cfg.GetFloat("llm.temperature"),
	}
	embedGuard := costguard.New(guardCfg)
	llmGuard := costguard.New(guardCfg)

	apiKey := cfg.GetString("openai.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		logger.Debug("No OpenAI API key configured; ingest and ask are disabled")
		return nil
	}

	embedder, err := embeddingopenai.NewEmbeddingService(embeddingopenai.Config{
		APIKey: apiKey,
		Model:  cfg.GetString("embedding.model"),
	})
	if err != nil {
		return fmt.Errorf("configure embeddings: %w", err)
	}

	cached, err := cache.New(embedder, embedGuard, cache.Config{
		Path: filepath.Join(dataDir, "embeddings.json"),
	})
	if err != nil {
		return fmt.Errorf("configure embedding cache: %w", err)
	}
	closables = append(closables, cached)

	llm, err := llmopenai.NewLLMService(llmopenai.LLMConfig{
		APIKey: apiKey,
		Model:  cfg.GetString("llm.model"),
	}, llmGuard)
	if err != nil {
		return fmt.Errorf("configure generation: %w", err)
	}

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)

	chunkerCfg := map[string]any{}
	if value, ok := cfg.Get("chunking.max_chars"); ok {
		chunkerCfg["max_chars"] = value
	}
	if value, ok := cfg.Get("chunking.overlap"); ok {
		chunkerCfg["overlap"] = value
	}
	chunkProc, err := registry.Build("chunker", chunkerCfg)
	if err != nil {
		return fmt.Errorf("configure chunker: %w", err)
	}
	fieldProc, err := registry.Build("fields", nil)
	if err != nil {
		return fmt.Errorf("configure field extraction: %w", err)
	}
	pipeline := postprocessors.NewPipeline(chunkProc, fieldProc)

	ingestService = services.NewIngestService(pdf.New(), pipeline, cached, vectorStore, docStore, ledger)

	query := services.NewQueryService(cached, vectorStore, llm, ledger)
	if topK := cfg.GetInt("query.top_k"); topK > 0 {
		query.SetTopK(topK)
	}
	query.SetRedactDefault(redactDefault(cfg))
	queryService = query

	return nil
}

// redactDefault reads query.redact from config; unset means enabled.
func redactDefault(cfg *file.ConfigStore) bool {
	value, ok := cfg.Get("query.redact")
	if !ok {
		return true
	}
	enabled, ok := value.(bool)
	if !ok {
		return true
	}
	return enabled
}

func closeServices() {
	for _, c := range closables {
		if err := c.Close(); err != nil {
			logger.Warn("Close: %v", err)
		}
	}
	closables = nil
}
