package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewReleaseWritesJSONWithFields(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("release", Options{Dir: tmpDir, Filename: "pixjoin-test.log"})
	log.Sugar().Infow("payment_webhook_settled", "reference_code", "EVT5-ABC")
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "pixjoin-test.log"))
	if err != nil {
		t.Fatalf("read log failed: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, `"message":"payment_webhook_settled"`) || !strings.Contains(text, `"reference_code":"EVT5-ABC"`) {
		t.Fatalf("expected structured json entry, got=%s", text)
	}
}

func TestFileWriteSyncerDefaultsToLogsDir(t *testing.T) {
	tmpDir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("get wd failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldWD) })
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	if _, err := fileWriteSyncer(Options{}); err != nil {
		t.Fatalf("file write syncer failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(defaultLogDirName, defaultLogFilename)); err != nil {
		t.Fatalf("expected default log file created: %v", err)
	}
}

func TestDebugModeSkipsFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New(" DEBUG ", Options{Dir: tmpDir, Filename: "debug.log"})
	log.Debug("debug-entry")
	_ = log.Sync()

	if _, err := os.Stat(filepath.Join(tmpDir, "debug.log")); !os.IsNotExist(err) {
		t.Fatalf("debug mode should not create log file")
	}
}

func TestZFallsBackWithoutInit(t *testing.T) {
	prev := L
	L = nil
	t.Cleanup(func() { L = prev })

	if Z() == nil || S() == nil || SW("request_id", "r-1") == nil {
		t.Fatalf("fallback logger should always be available")
	}
	if positiveOr(0, 7) != 7 || positiveOr(3, 7) != 3 {
		t.Fatalf("positiveOr mismatch")
	}
}
