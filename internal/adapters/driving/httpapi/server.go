package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/tessella-labs/policyq/internal/core/domain"
	"github.com/tessella-labs/policyq/internal/core/ports/driving"
	"github.com/tessella-labs/policyq/internal/logger"
)

// maxUploadBytes bounds an uploaded document.
const maxUploadBytes = 32 << 20

// Server routes HTTP requests to the driving services.
type Server struct {
	ingestService  driving.IngestService
	queryService   driving.QueryService
	historyService driving.HistoryService
	indexSize      func() int
}

// NewServer creates an HTTP server over the given services. The
// historyService parameter is optional (can be nil); indexSize reports
// the vector index size for the health endpoint.
func NewServer(
	ingestService driving.IngestService,
	queryService driving.QueryService,
	historyService driving.HistoryService,
	indexSize func() int,
) *Server {
	return &Server{
		ingestService:  ingestService,
		queryService:   queryService,
		historyService: historyService,
		indexSize:      indexSize,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /ingest", s.handleIngest)
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("GET /history", s.handleHistory)
	return mux
}

// ListenAndServe serves until the context is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	size := 0
	if s.indexSize != nil {
		size = s.indexSize()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"index_size": size,
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "A file upload is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "A file upload is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not read uploaded file")
		return
	}

	result, err := s.ingestService.Ingest(r.Context(), content, header.Filename)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"chunks":      result.Chunks,
		"vectors":     result.Vectors,
		"elapsed_sec": roundSeconds(result.Elapsed),
	})
}

// queryRequest mirrors the accepted request body. TopK tolerates both
// a JSON number and a numeric string.
type queryRequest struct {
	Query  string          `json:"query"`
	TopK   json.RawMessage `json:"top_k"`
	Redact *bool           `json:"redact"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "Query text is required")
		return
	}

	topK, err := parseTopK(req.TopK)
	if err != nil {
		writeError(w, http.StatusBadRequest, "top_k must be an integer")
		return
	}

	answer, err := s.queryService.Ask(r.Context(), req.Query, domain.QueryOptions{
		TopK:   topK,
		Redact: req.Redact,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	snippets := answer.Snippets
	if snippets == nil {
		snippets = []string{}
	}
	sources := answer.Sources
	if sources == nil {
		sources = []domain.RetrievalHit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"answer":   answer.Text,
		"snippets": snippets,
		"sources":  sources,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.historyService == nil {
		writeError(w, http.StatusNotFound, "History is not configured")
		return
	}

	summary, err := s.historyService.Summarize(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// parseTopK accepts a JSON number or a numeric string; absent or null
// means the configured default.
func parseTopK(raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}

	var number int
	if err := json.Unmarshal(raw, &number); err == nil {
		return number, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return 0, fmt.Errorf("top_k: %w", err)
	}
	number, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("top_k: %w", err)
	}
	return number, nil
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNoExtractableText), errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrCircuitOpen), errors.Is(err, domain.ErrBudgetExceeded):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]any{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("Encode response: %v", err)
	}
}

// roundSeconds reports elapsed time in seconds at two decimal places.
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
