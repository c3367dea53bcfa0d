package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"georefgo/pkg/config"
)

func TestInit(t *testing.T) {
	tempDir := t.TempDir()
	serverLog := filepath.Join(tempDir, "server.log")
	requestLog := filepath.Join(tempDir, "requests.log")
	eventLog := filepath.Join(tempDir, "events.log")

	// A previous run's log is rotated away
	if err := os.WriteFile(serverLog, []byte("previous run\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.LogConfig{
		Server:   config.LogSettings{Path: serverLog, Level: "DEBUG"},
		Requests: config.LogSettings{Path: requestLog, Level: "INFO"},
		Events:   config.LogSettings{Path: eventLog, Level: "INFO"},
	}

	prev := slog.Default()
	cleanup, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer func() {
		cleanup()
		slog.SetDefault(prev)
		SetEventLogPath("")
	}()

	if _, err := os.Stat(serverLog); os.IsNotExist(err) {
		t.Error("Server log file not created")
	}
	if _, err := os.Stat(requestLog); os.IsNotExist(err) {
		t.Error("Request log file not created")
	}
	if old, err := os.ReadFile(serverLog + ".old"); err != nil || !strings.Contains(string(old), "previous run") {
		t.Errorf("expected rotated server log, err=%v", err)
	}
	if RequestLogger == nil {
		t.Error("RequestLogger was not initialized")
	}

	slog.Info("origin committed", "revision", 2)
	if !strings.Contains(GlobalLogCapture.Last(), "origin committed") {
		t.Errorf("capture missed last line: %q", GlobalLogCapture.Last())
	}
}

func TestLogEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	SetEventLogPath(path)
	defer SetEventLogPath("")

	tests := []struct {
		name  string
		event Event
		want  string
	}{
		{
			name:  "with summary",
			event: Event{Timestamp: time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC), Type: "rebase", Title: "Origin moved", Summary: "120m"},
			want:  "[2024-04-15 12:00:00] [rebase] Origin moved - 120m",
		},
		{
			name:  "without summary",
			event: Event{Timestamp: time.Date(2024, 4, 15, 12, 0, 1, 0, time.UTC), Type: "sublevel", Title: "Entered airport"},
			want:  "[2024-04-15 12:00:01] [sublevel] Entered airport",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			LogEvent(&tt.event)
			if got := GlobalEventCapture.Last(); got != tt.want {
				t.Errorf("capture = %q, want %q", got, tt.want)
			}
		})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := bytes.Count(data, []byte("\n")); n != 2 {
		t.Errorf("expected 2 lines, got %d", n)
	}
}

func TestOpen_Levels(t *testing.T) {
	tests := []struct {
		level   string
		debugOn bool
		warnOn  bool
	}{
		{"DEBUG", true, true},
		{"info", false, true},
		{"WARN", false, true},
		{"bogus", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			h, f, err := open(config.LogSettings{Path: filepath.Join(t.TempDir(), "x.log"), Level: tt.level}, false)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()
			if got := h.Enabled(t.Context(), slog.LevelDebug); got != tt.debugOn {
				t.Errorf("debug enabled = %v, want %v", got, tt.debugOn)
			}
			if got := h.Enabled(t.Context(), slog.LevelWarn); got != tt.warnOn {
				t.Errorf("warn enabled = %v, want %v", got, tt.warnOn)
			}
		})
	}
}

func TestTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	defer SetTrace(false)

	Trace(logger, "hidden")
	SetTrace(true)
	Trace(logger, "shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("trace logged while off")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("trace not logged while on")
	}
}

func TestLineCapture(t *testing.T) {
	c := &LineCapture{}
	if c.Last() != "" {
		t.Errorf("expected empty capture, got %q", c.Last())
	}
	_, _ = c.Write([]byte("first\n"))
	_, _ = c.Write([]byte("second\r\n"))
	if c.Last() != "second" {
		t.Errorf("Last() = %q, want %q", c.Last(), "second")
	}
}
