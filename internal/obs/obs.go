// Package obs configures the suite's structured logger and carries
// run/test/step correlation through context.
package obs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunLogPattern matches per-run log files written by InitRunLog.
const RunLogPattern = "test_run_*.log"

type correlationContextKey struct{}

// Correlation carries per-test correlation identifiers.
type Correlation struct {
	RunID string
	Test  string
	Step  string
}

var (
	loggerMu sync.RWMutex
	logger   *slog.Logger
	runLog   *os.File
	runID    = newRunID()
)

// Init configures the global structured logger on stderr.
func Init() {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger != nil {
		return
	}
	logger = newLogger(os.Stderr)
	slog.SetDefault(logger)
}

// InitRunLog configures the global logger to write to stderr and to a fresh
// dir/test_run_<timestamp>.log file. It returns the log file path.
func InitRunLog(dir string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, "test_run_"+now.Format("20060102_150405")+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("open run log: %w", err)
	}

	loggerMu.Lock()
	defer loggerMu.Unlock()
	if runLog != nil {
		_ = runLog.Close()
	}
	runLog = f
	logger = newLogger(io.MultiWriter(os.Stderr, f))
	slog.SetDefault(logger)
	return path, nil
}

// Close flushes and closes the run log, if any.
func Close() error {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if runLog == nil {
		return nil
	}
	err := runLog.Close()
	runLog = nil
	logger = newLogger(os.Stderr)
	slog.SetDefault(logger)
	return err
}

// SetOutputForTests overrides the global logger output for tests.
func SetOutputForTests(w io.Writer) func() {
	loggerMu.Lock()
	prev := logger
	logger = newLogger(w)
	slog.SetDefault(logger)
	loggerMu.Unlock()

	return func() {
		loggerMu.Lock()
		defer loggerMu.Unlock()
		if prev != nil {
			logger = prev
		} else {
			logger = newLogger(os.Stderr)
		}
		slog.SetDefault(logger)
	}
}

func newLogger(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.TimeKey {
				t, ok := attr.Value.Any().(time.Time)
				if ok {
					return slog.String(slog.TimeKey, t.UTC().Format(time.RFC3339Nano))
				}
			}
			return attr
		},
	})
	return slog.New(handler)
}

func globalLogger() *slog.Logger {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}
	Init()
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// Pkg returns a logger tagged with package name.
func Pkg(pkg string) *slog.Logger {
	return globalLogger().With("pkg", pkg)
}

// From returns a logger with correlation fields from context.
func From(ctx context.Context) *slog.Logger {
	l := globalLogger()
	attrs := correlationAttrs(CorrelationFromContext(ctx))
	if len(attrs) == 0 {
		return l
	}
	return l.With(attrs...)
}

// RunID identifies this process's test run.
func RunID() string {
	return runID
}

// WithTest stores the run id and test name in context.
func WithTest(ctx context.Context, test string) context.Context {
	corr := CorrelationFromContext(ctx)
	corr.RunID = runID
	corr.Test = strings.TrimSpace(test)
	corr.Step = ""
	return context.WithValue(ctx, correlationContextKey{}, corr)
}

// WithStep stores the current step name in context.
func WithStep(ctx context.Context, step string) context.Context {
	corr := CorrelationFromContext(ctx)
	corr.Step = strings.TrimSpace(step)
	return context.WithValue(ctx, correlationContextKey{}, corr)
}

// CorrelationFromContext returns correlation fields from context.
func CorrelationFromContext(ctx context.Context) Correlation {
	if ctx == nil {
		return Correlation{}
	}
	corr, ok := ctx.Value(correlationContextKey{}).(Correlation)
	if !ok {
		return Correlation{}
	}
	return corr
}

func correlationAttrs(corr Correlation) []any {
	attrs := make([]any, 0, 6)
	if corr.RunID != "" {
		attrs = append(attrs, "run_id", corr.RunID)
	}
	if corr.Test != "" {
		attrs = append(attrs, "test", corr.Test)
	}
	if corr.Step != "" {
		attrs = append(attrs, "step", corr.Step)
	}
	return attrs
}

// LatestRunLog returns the most recently modified run log in dir, or "" when
// there is none.
func LatestRunLog(dir string) string {
	matches, err := filepath.Glob(filepath.Join(dir, RunLogPattern))
	if err != nil || len(matches) == 0 {
		return ""
	}
	type candidate struct {
		path string
		mod  time.Time
	}
	candidates := make([]candidate, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{path: m, mod: info.ModTime()})
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].mod.Equal(candidates[j].mod) {
			return candidates[i].path > candidates[j].path
		}
		return candidates[i].mod.After(candidates[j].mod)
	})
	return candidates[0].path
}

func newRunID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return "run-fallback"
	}
	return "run-" + id.String()[:8]
}
