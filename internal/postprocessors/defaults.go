package postprocessors

import (
	"github.com/tessella-labs/policyq/internal/core/ports/driven"
	"github.com/tessella-labs/policyq/internal/postprocessors/chunker"
	"github.com/tessella-labs/policyq/internal/postprocessors/fields"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("fields", buildFields)
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - max_chars (int): Characters per chunk (default: 550)
//   - overlap (int): Overlapping characters between chunks (default: 90)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if size := getIntFromConfig(cfg, "max_chars"); size > 0 {
			opts = append(opts, chunker.WithMaxChars(size))
		}
		if overlap := getIntFromConfig(cfg, "overlap"); overlap >= 0 {
			opts = append(opts, chunker.WithOverlap(overlap))
		}
	}

	return chunker.New(opts...), nil
}

// buildFields creates a structured field extraction processor.
// It takes no configuration.
func buildFields(_ map[string]any) (driven.PostProcessor, error) {
	return fields.New(), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
