// Package pdf provides a normaliser for PDF documents. It extracts text
// per page with pdfcpu and falls back to the pdftotext tool when the
// in-process extraction yields nothing.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/tessella-labs/policyq/internal/core/domain"
	"github.com/tessella-labs/policyq/internal/core/ports/driven"
	"github.com/tessella-labs/policyq/internal/logger"
)

// ErrPDFToolNotFound is returned when the pdftotext fallback tool is not
// installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// CommandRunner executes external commands. It exists so tests can inject
// a mock instead of shelling out.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Normaliser handles PDF documents.
type Normaliser struct {
	runner CommandRunner
}

// New creates a new PDF normaliser.
func New() *Normaliser {
	return &Normaliser{runner: execRunner{}}
}

// NewWithRunner creates a PDF normaliser with a custom command runner.
func NewWithRunner(runner CommandRunner) *Normaliser {
	return &Normaliser{runner: runner}
}

// CheckAvailable returns an error if the pdftotext fallback tool is not
// installed. The primary pdfcpu extraction needs no external tools.
func CheckAvailable() error {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns help text for installing the fallback tool.
func InstallInstructions() string {
	return `pdftotext is used as a fallback PDF extractor. Install it with:
  macOS:  brew install poppler
  Debian: apt install poppler-utils`
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Normalise extracts text and per-page offsets from PDF bytes.
// Returns ErrNoExtractableText when no extractor can produce text.
func (n *Normaliser) Normalise(ctx context.Context, content []byte, filename string) (*driven.NormaliseResult, error) {
	if len(content) == 0 {
		return nil, domain.ErrInvalidInput
	}

	pages, err := n.extractWithPdfcpu(content)
	if err != nil {
		logger.Warn("pdfcpu extraction failed for %s: %v", filename, err)
	}
	if text, offsets := normaliseWithPageBreaks(pages); text != "" {
		return &driven.NormaliseResult{Text: text, PageOffsets: offsets}, nil
	}

	logger.Warn("Primary PDF extraction produced no text; attempting pdftotext fallback for %s", filename)
	fallback, err := n.extractWithPdftotext(ctx, content)
	if err != nil {
		logger.Warn("pdftotext fallback failed for %s: %v", filename, err)
	}
	if text, offsets := normaliseWithPageBreaks([]string{fallback}); text != "" {
		return &driven.NormaliseResult{Text: text, PageOffsets: offsets}, nil
	}

	return nil, fmt.Errorf("%s: %w", filename, domain.ErrNoExtractableText)
}

// extractWithPdfcpu extracts per-page content using pdfcpu. The library
// works on files, so the bytes are staged in a temp directory.
func (n *Normaliser) extractWithPdfcpu(content []byte) ([]string, error) {
	tempDir, err := os.MkdirTemp("", "policyq-pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	tempFile := filepath.Join(tempDir, "input.pdf")
	if err := os.WriteFile(tempFile, content, 0o644); err != nil {
		return nil, fmt.Errorf("write temp PDF: %w", err)
	}

	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return nil, fmt.Errorf("read PDF context: %w", err)
	}
	pageCount := pdfCtx.PageCount
	if pageCount == 0 {
		return nil, nil
	}

	outDir := filepath.Join(tempDir, "pages")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(tempFile, outDir, nil, conf); err != nil {
		return nil, fmt.Errorf("extract PDF content: %w", err)
	}

	pageTexts := make(map[int]string)
	entries, _ := os.ReadDir(outDir)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(entry.Name(), "Content_page_%d", &pageNum); err != nil {
			if _, err := fmt.Sscanf(entry.Name(), "page_%d", &pageNum); err != nil {
				continue
			}
		}
		pageTexts[pageNum] = string(data)
	}

	pages := make([]string, 0, pageCount)
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		pages = append(pages, pageTexts[pageNum])
	}
	return pages, nil
}

// extractWithPdftotext extracts the whole document as a single page using
// the pdftotext tool. Page boundaries are lost on this path.
func (n *Normaliser) extractWithPdftotext(ctx context.Context, content []byte) (string, error) {
	if err := CheckAvailable(); err != nil {
		return "", err
	}

	tempFile, err := os.CreateTemp("", "policyq-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.Write(content); err != nil {
		tempFile.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	// -layout keeps table spacing, "-" writes to stdout.
	out, err := n.runner.Run(ctx, "pdftotext", "-layout", tempFile.Name(), "-")
	if err != nil {
		return "", fmt.Errorf("run pdftotext: %w", err)
	}
	return string(out), nil
}
