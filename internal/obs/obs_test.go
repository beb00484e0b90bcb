package obs

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), "line: %s", line)
		out = append(out, m)
	}
	return out
}

func TestFrom_AddsCorrelation(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutputForTests(&buf)
	defer restore()

	ctx := WithStep(WithTest(context.Background(), "TestLogin/valid"), "Enter valid credentials")
	From(ctx).Info("clicked login button")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	require.Equal(t, RunID(), lines[0]["run_id"])
	require.Equal(t, "TestLogin/valid", lines[0]["test"])
	require.Equal(t, "Enter valid credentials", lines[0]["step"])
	require.Equal(t, "clicked login button", lines[0]["msg"])
}

func TestWithTest_ResetsStep(t *testing.T) {
	ctx := WithStep(WithTest(context.Background(), "a"), "s1")
	ctx = WithTest(ctx, "b")
	corr := CorrelationFromContext(ctx)
	require.Equal(t, "b", corr.Test)
	require.Empty(t, corr.Step)
	require.Equal(t, Correlation{}, CorrelationFromContext(nil))
}

func TestPkg_TagsPackage(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutputForTests(&buf)
	defer restore()

	Pkg("pages").Warn("slow element")
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	require.Equal(t, "pages", lines[0]["pkg"])
	require.Equal(t, "WARN", lines[0]["level"])
	_, err := time.Parse(time.RFC3339Nano, lines[0]["time"].(string))
	require.NoError(t, err)
}

func TestInitRunLog_WritesFileAndLatestFindsIt(t *testing.T) {
	dir := t.TempDir()

	older := filepath.Join(dir, "test_run_20200101_000000.log")
	require.NoError(t, os.WriteFile(older, []byte("old\n"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	path, err := InitRunLog(dir, time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close() })
	require.Equal(t, filepath.Join(dir, "test_run_20261016_093000.log"), path)

	Pkg("suite").Info("session started")
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "session started")
	require.Equal(t, path, LatestRunLog(dir))
}

func TestLatestRunLog_EmptyDir(t *testing.T) {
	require.Empty(t, LatestRunLog(t.TempDir()))
}

func TestAccessLogMiddleware_RecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutputForTests(&buf)
	defer restore()

	h := AccessLogMiddleware("hrmfake", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
		_, _ = w.Write([]byte("moved"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/web/index.php/auth/login", nil))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	require.Equal(t, "http_access", lines[0]["msg"])
	require.EqualValues(t, http.StatusFound, lines[0]["status"])
	require.EqualValues(t, 5, lines[0]["resp_bytes"])
}
