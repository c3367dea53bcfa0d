package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"georefgo/pkg/config"
)

// RequestLogger writes one line per HTTP request. Nil until Init.
var RequestLogger *slog.Logger

// Event is a single line in the event log: an origin change, a rebase or a
// sub-level transition.
type Event struct {
	Timestamp time.Time
	Type      string
	Title     string
	Summary   string
}

var events struct {
	mu   sync.Mutex
	path string
}

// Init rotates the previous run's files to .old, installs the server logger
// as the slog default and opens the request log. The returned func closes
// the files.
func Init(cfg *config.LogConfig) (func(), error) {
	rotate(cfg.Server.Path, cfg.Requests.Path, cfg.Events.Path)
	SetEventLogPath(cfg.Events.Path)
	SetTrace(cfg.Trace)

	server, serverFile, err := open(cfg.Server, true)
	if err != nil {
		return nil, fmt.Errorf("failed to setup server logger: %w", err)
	}
	requests, requestFile, err := open(cfg.Requests, false)
	if err != nil {
		serverFile.Close()
		return nil, fmt.Errorf("failed to setup requests logger: %w", err)
	}

	slog.SetDefault(slog.New(server))
	RequestLogger = slog.New(requests)

	return func() {
		_ = errors.Join(serverFile.Close(), requestFile.Close())
	}, nil
}

// parseLevel accepts DEBUG, INFO, WARN and ERROR in any case. Anything else
// is INFO.
func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// open creates the file handler for s. The server logger also writes INFO
// and up to stdout and feeds GlobalLogCapture.
func open(s config.LogSettings, console bool) (slog.Handler, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(s.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}

	level := parseLevel(s.Level)
	file := slog.NewTextHandler(f, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})
	if !console {
		return file, f, nil
	}

	info := &slog.HandlerOptions{Level: max(level, slog.LevelInfo)}
	return fanout{
		file,
		slog.NewTextHandler(os.Stdout, info),
		slog.NewTextHandler(GlobalLogCapture, &slog.HandlerOptions{Level: slog.LevelInfo}),
	}, f, nil
}

// fanout hands every record to each handler that accepts its level.
type fanout []slog.Handler

func (h fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, x := range h {
		if x.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

//nolint:gocritic // slog.Handler takes the record by value
func (h fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, x := range h {
		if x.Enabled(ctx, r.Level) {
			errs = append(errs, x.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (h fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(h))
	for i, x := range h {
		out[i] = x.WithAttrs(attrs)
	}
	return out
}

func (h fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(h))
	for i, x := range h {
		out[i] = x.WithGroup(name)
	}
	return out
}

// rotate renames each existing file to path+".old", replacing an older one.
func rotate(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = os.Remove(p + ".old")
		_ = os.Rename(p, p+".old")
	}
}

// SetEventLogPath sets the event log file. An empty path disables it.
func SetEventLogPath(path string) {
	events.mu.Lock()
	defer events.mu.Unlock()
	events.path = path
}

// LogEvent appends "[2006-01-02 15:04:05] [type] Title - Summary" to the
// event log and to GlobalEventCapture.
func LogEvent(event *Event) {
	events.mu.Lock()
	defer events.mu.Unlock()
	if events.path == "" {
		return
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s", ts.Format(time.DateTime), event.Type, event.Title)
	if event.Summary != "" {
		b.WriteString(" - " + event.Summary)
	}
	line := b.String()

	if err := appendLine(events.path, line); err != nil {
		slog.Error("failed to write event log", "error", err)
	}
	_, _ = io.WriteString(GlobalEventCapture, line)
}

func appendLine(path, line string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_, err = f.WriteString(line + "\n")
	return errors.Join(err, f.Close())
}
