package logging

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func resetState() {
	mutex.Lock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	globalConfig = Config{}
	mutex.Unlock()
	history = NewRingBuffer(DefaultHistorySize)
}

func TestModuleLevelOverride(t *testing.T) {
	resetState()

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Output: io.Discard,
		Modules: map[string]string{
			"supervisor": "debug",
			"api":        "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"supervisor", true, true, true},
		{"api", false, false, true},
		{"other", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()
			ctx := context.Background()

			if got := handler.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("Debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := handler.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("Info enabled = %v, want %v", got, tt.wantInfo)
			}
			if got := handler.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("Warn enabled = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestOutputWriterAndFormat(t *testing.T) {
	resetState()

	var buf bytes.Buffer
	Initialize(Config{Level: "debug", Format: "json", Output: &buf})

	GetLogger("process").Debug("Process started", "pid", 42)

	out := buf.String()
	for _, want := range []string{`"msg":"Process started"`, `"module":"process"`, `"pid":42`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %s", out, want)
		}
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetState()

	before := GetLogger("output")
	if before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("logger created before Initialize should default to info")
	}

	Initialize(Config{
		Level:   "info",
		Output:  io.Discard,
		Modules: map[string]string{"output": "debug"},
	})

	// The LevelVar is shared, so the old handler follows the new level.
	if !before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("logger created before Initialize should pick up the module level")
	}
	if !GetLogger("output").Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("rebuilt logger should have debug enabled")
	}
}

func TestSetModuleLevel(t *testing.T) {
	resetState()
	Initialize(Config{Level: "info", Output: io.Discard})

	logger := GetLogger("readiness")
	if logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug should be off initially")
	}
	if !SetModuleLevel("readiness", "DEBUG") {
		t.Fatal("SetModuleLevel rejected a valid level")
	}
	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be on after SetModuleLevel")
	}
	if SetModuleLevel("readiness", "verbose") {
		t.Error("SetModuleLevel accepted an invalid level")
	}
}

func TestHistoryCapturesEntries(t *testing.T) {
	resetState()
	Initialize(Config{Level: "info", Output: io.Discard})

	logger := GetLogger("supervisor").With("service", "Backend Server")
	logger.Info("Process ready", "address", "http://localhost:3000", "error", errors.New("none"))
	logger.Debug("filtered out")

	entries := History().Last(0)
	if len(entries) != 1 {
		t.Fatalf("history has %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Module != "supervisor" || e.Level != "info" || e.Message != "Process ready" {
		t.Errorf("unexpected entry %+v", e)
	}
	if e.Attributes["service"] != "Backend Server" || e.Attributes["address"] != "http://localhost:3000" {
		t.Errorf("unexpected attributes %v", e.Attributes)
	}
	if e.Attributes["error"] != "none" {
		t.Errorf("error attribute = %v", e.Attributes["error"])
	}
}

func TestRingBuffer(t *testing.T) {
	rb := NewRingBuffer(3)
	if got := rb.Last(0); len(got) != 0 {
		t.Fatalf("empty buffer returned %v", got)
	}

	for i := range 5 {
		rb.Write(LogEntry{Message: string(rune('a' + i))})
	}

	if rb.Len() != 3 {
		t.Errorf("Len = %d, want 3", rb.Len())
	}

	var got []string
	for _, e := range rb.Last(0) {
		got = append(got, e.Message)
	}
	if strings.Join(got, "") != "cde" {
		t.Errorf("Last(0) = %v, want c d e", got)
	}
	if last := rb.Last(2); len(last) != 2 || last[0].Message != "d" {
		t.Errorf("Last(2) = %v", last)
	}
}

func TestBufferHandlerGroups(t *testing.T) {
	rb := NewRingBuffer(4)
	logger := slog.New(NewBufferHandler(rb, slog.LevelDebug)).WithGroup("req")
	logger.Debug("handled", "took", 2*time.Second, slog.Group("peer", "addr", "127.0.0.1"))

	e := rb.Last(1)[0]
	if e.Attributes["req.took"] != "2s" {
		t.Errorf("req.took = %v", e.Attributes["req.took"])
	}
	if e.Attributes["req.peer.addr"] != "127.0.0.1" {
		t.Errorf("req.peer.addr = %v", e.Attributes["req.peer.addr"])
	}
}

func TestMultiHandlerDebugOutput(t *testing.T) {
	var buf bytes.Buffer

	debugHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiHandler(debugHandler, infoHandler)).With("module", "test")
	logger.Debug("debug only message")

	if count := strings.Count(buf.String(), "debug only message"); count != 1 {
		t.Errorf("Expected 1 debug message, got %d. Output: %s", count, buf.String())
	}
}

func TestJournalFieldName(t *testing.T) {
	tests := map[string][]string{
		"SERVICE":        {"service"},
		"REQ_PEER_ADDR":  {"req", "peer", "addr"},
		"EXIT_CODE":      {"exit-code"},
		"HTTP_STATUS_OK": {"http.status", "ok"},
	}
	for want, parts := range tests {
		if got := journalFieldName(parts); got != want {
			t.Errorf("journalFieldName(%v) = %q, want %q", parts, got, want)
		}
	}
}

func TestOpenLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "devup.log")
	f, err := OpenLogFile(path)
	if err != nil {
		t.Fatalf("OpenLogFile failed: %v", err)
	}
	defer f.Close()

	if _, err := f.WriteString("hello\n"); err != nil {
		t.Errorf("write failed: %v", err)
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		isNil bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got := parseLevel(tt.input)
		switch {
		case tt.isNil && got != nil:
			t.Errorf("parseLevel(%q) = %v, want nil", tt.input, *got)
		case !tt.isNil && (got == nil || *got != tt.want):
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if ValidLevel(tt.input) == tt.isNil {
			t.Errorf("ValidLevel(%q) = %v", tt.input, !tt.isNil)
		}
	}
}
