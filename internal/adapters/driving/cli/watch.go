package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/tessella-labs/policyq/internal/core/domain"
	"github.com/tessella-labs/policyq/internal/logger"
)

// watchSettleDelay is how long a file must stay quiet before it is
// ingested. PDF drops arrive as a burst of create and write events.
const watchSettleDelay = 500 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Auto-ingest PDFs dropped into a directory",
	Long: `Watches a directory and ingests every PDF created or modified in it.
Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("watch is not configured (set OPENAI_API_KEY)")
	}

	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch %s: not a directory", dir)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Watching %s for PDF documents\n", dir)
	return watchDirectory(ctx, dir, func(path string) {
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("Read %s: %v", path, err)
			return
		}
		result, err := ingestService.Ingest(ctx, content, filepath.Base(path))
		if err != nil {
			if errors.Is(err, domain.ErrNoExtractableText) {
				logger.Warn("%s: no extractable text", path)
			} else {
				logger.Warn("Ingest %s: %v", path, err)
			}
			return
		}
		cmd.Printf("  %s: %d chunks, %d vectors in %.2fs\n",
			result.DocumentID, result.Chunks, result.Vectors, result.Elapsed.Seconds())
	})
}

// watchDirectory runs the fsnotify loop until the context is cancelled,
// calling ingest for each PDF once its event burst settles.
func watchDirectory(ctx context.Context, dir string, ingest func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	var mu sync.Mutex
	pending := make(map[string]*time.Timer)

	defer func() {
		mu.Lock()
		defer mu.Unlock()
		for _, timer := range pending {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isPDFChange(event) {
				continue
			}
			path := event.Name
			mu.Lock()
			if timer, exists := pending[path]; exists {
				timer.Reset(watchSettleDelay)
			} else {
				pending[path] = time.AfterFunc(watchSettleDelay, func() {
					mu.Lock()
					delete(pending, path)
					mu.Unlock()
					ingest(path)
				})
			}
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher: %v", err)
		}
	}
}

// isPDFChange reports whether the event is a create or write of a PDF.
func isPDFChange(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return false
	}
	return strings.EqualFold(filepath.Ext(event.Name), ".pdf")
}
