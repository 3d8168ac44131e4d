package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

// capture redirects log output to a buffer and restores the defaults
// when the test finishes.
func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t)

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be off")
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be on after SetVerbose(true)")
	}

	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be off after SetVerbose(false)")
	}
}

func TestDebug_WhenVerbose(t *testing.T) {
	buf := capture(t)
	SetVerbose(true)

	Debug("Ingested %d chunks from %s", 12, "policy.pdf")

	if got := buf.String(); got != "[DEBUG] Ingested 12 chunks from policy.pdf\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	buf := capture(t)
	SetVerbose(false)

	Debug("Retrieval returned no hits")

	if buf.Len() > 0 {
		t.Errorf("expected silence when verbose is off, got %q", buf.String())
	}
}

func TestSection(t *testing.T) {
	buf := capture(t)
	SetVerbose(true)

	Section("Ingestion")

	if got := buf.String(); got != "\n=== Ingestion ===\n" {
		t.Errorf("unexpected section output: %q", got)
	}
}

func TestInfo(t *testing.T) {
	buf := capture(t)
	SetVerbose(true)

	Info("Index holds %d vectors", 128)

	if got := buf.String(); got != "[INFO] Index holds 128 vectors\n" {
		t.Errorf("unexpected info output: %q", got)
	}
}

func TestWarn(t *testing.T) {
	buf := capture(t)
	SetVerbose(true)

	Warn("Failed to persist embedding cache")

	if got := buf.String(); !strings.HasPrefix(got, "[WARN] ") {
		t.Errorf("expected [WARN] prefix, got %q", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	capture(t)

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func(i int) {
			SetVerbose(true)
			Debug("worker %d", i)
			IsVerbose()
			SetVerbose(false)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}
