package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

func TestTestLoggerCapturesLevelsAndFields(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", OperationKey, OperationFit)
	testLogger.Warn("fold failed", FoldKey, 3)
	testLogger.Error("stage failed", StageKey, "Refit", "cause", errors.New("boom"))

	if buffer.Len() == 0 {
		t.Fatal("Expected log output, got empty string")
	}
	for _, msg := range []string{"debug message", "info message", "fold failed", "stage failed"} {
		if !testLogger.ContainsMessage(msg) {
			t.Errorf("%q not found in output", msg)
		}
	}
	if !testLogger.ContainsField("number", 42.0) {
		t.Error("Expected field number=42 not found")
	}
	if !testLogger.ContainsField("cause", "boom") {
		t.Error("errors should be captured by their message")
	}
}

func TestTestLoggerLevelFiltering(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelWarn)
	testLogger.Info("hidden")
	testLogger.Warn("shown")

	entries, err := testLogger.GetLogEntries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0]["message"] != "shown" {
		t.Errorf("Expected only the warn entry, got %v", entries)
	}
	if testLogger.Enabled(context.Background(), LevelInfo) {
		t.Error("Info should be disabled at warn level")
	}
}

func TestTestLoggerErrorFirstField(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)
	testLogger.Error("stage failed", errors.New("boom"), StageKey, "Refit")
	testLogger.Error("stage failed", errors.New("bang"), StageKey, "Persist")

	if !testLogger.ContainsField("error", "boom") {
		t.Error("leading error should be recorded under \"error\"")
	}
	if !testLogger.ContainsField(StageKey, "Persist") {
		t.Error("fields after the error should stay paired")
	}
	if n := testLogger.CountMessages("stage failed"); n != 2 {
		t.Errorf("CountMessages = %d, want 2", n)
	}
}

func TestTestLoggerWithSharesBuffer(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)
	child := testLogger.With(FamilyKey, "gbt", RunIDKey, "run-1")
	child.Info("search started", CandidatesKey, 4)

	if !testLogger.ContainsField(FamilyKey, "gbt") {
		t.Error("Family context not found")
	}
	if !testLogger.ContainsField(CandidatesKey, 4.0) {
		t.Error("Candidates field not found")
	}
	testLogger.Clear()
	if testLogger.ContainsMessage("search started") {
		t.Error("Clear should reset captured output")
	}
}

func TestTestLoggerConcurrentWrites(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			testLogger.With(FoldKey, i).Debug("fold done")
		}(i)
	}
	wg.Wait()

	entries, err := testLogger.GetLogEntries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 16 {
		t.Errorf("Expected 16 entries, got %d", len(entries))
	}
}

func TestZerologLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	installErrorStackMarshaler()
	logger := NewZerologLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	logger.Debug("dropped")
	logger.With(FamilyKey, "poisson_glm").Info("search finished", ScoreKey, 0.25)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected one line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry[FamilyKey] != "poisson_glm" || entry[ScoreKey] != 0.25 || entry["message"] != "search finished" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestZerologLoggerErrorHasStack(t *testing.T) {
	var buf bytes.Buffer
	installErrorStackMarshaler()
	logger := NewZerologLogger(zerolog.New(&buf))

	logger.Error("fit failed", errors.New("no convergence"), StageKey, "SearchPoisson")

	out := buf.String()
	if !strings.Contains(out, `"error":"no convergence"`) {
		t.Errorf("missing error field: %s", out)
	}
	if !strings.Contains(out, StacktraceAttrKey) {
		t.Errorf("missing stacktrace field: %s", out)
	}
	if !strings.Contains(out, `"run.stage":"SearchPoisson"`) {
		t.Errorf("missing stage field: %s", out)
	}
}

func TestZerologLoggerDropsDanglingKey(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf))
	logger.Info("odd fields", FoldKey, 1, "dangling")
	if strings.Contains(buf.String(), "dangling") {
		t.Errorf("dangling key should be dropped: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGlobalProvider(t *testing.T) {
	provider, buffer := NewTestLoggerProvider(LevelDebug)
	SetProvider(provider)
	defer SetProvider(NewZerologProvider(&bytes.Buffer{}, LevelInfo))

	GetLoggerWithName("model_selection").Info("hello")
	if !strings.Contains(buffer.String(), `"ml.component":"model_selection"`) {
		t.Errorf("expected component field, got %s", buffer.String())
	}
}

func TestSetupLoggerRejectsUnknownLevel(t *testing.T) {
	if err := SetupLogger("loud", &bytes.Buffer{}); err == nil {
		t.Error("expected an error for an unknown level")
	}
}
