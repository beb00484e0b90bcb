package logutil

import (
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"pgregory.net/rapid"
)

func TestIsSensitiveLogField(t *testing.T) {
	t.Parallel()
	for key, want := range map[string]bool{
		"password":      true,
		"Set-Cookie":    true,
		"Authorization": true,
		"x_api_key":     true,
		"username":      false,
		"content-type":  false,
	} {
		if got := IsSensitiveLogField(key); got != want {
			t.Fatalf("IsSensitiveLogField(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestRedactSelectorValue(t *testing.T) {
	t.Parallel()
	if got := RedactSelectorValue("input[name='password']", "admin123"); got != Redacted {
		t.Fatalf("password field not redacted: %q", got)
	}
	if got := RedactSelectorValue("input[type='password']", "admin123"); got != Redacted {
		t.Fatalf("password-typed field not redacted: %q", got)
	}
	if got := RedactSelectorValue("input[name='username']", "Admin"); got != "Admin" {
		t.Fatalf("username field should be logged as-is, got %q", got)
	}
}

func TestFormatHeadersForLog_RedactsAndSorts(t *testing.T) {
	t.Parallel()
	h := HeaderFromMap(map[string]string{
		"Set-Cookie":   "orangehrm=abc123",
		"Content-Type": "text/html",
	})
	got := FormatHeadersForLog(h)
	want := `content-type="text/html"; set-cookie="[REDACTED]"`
	if got != want {
		t.Fatalf("FormatHeadersForLog = %q, want %q", got, want)
	}
	if FormatHeadersForLog(http.Header{}) != "{}" {
		t.Fatal("empty headers should format as {}")
	}
}

func TestTruncateForLog_KeepsRunesWhole(t *testing.T) {
	for _, tc := range []struct {
		value string
		max   int
		want  string
	}{
		{"abé", 3, "ab... [truncated]"},
		{"日本語", 2, "... [truncated]"},
		{"日本語", 4, "日... [truncated]"},
	} {
		if got := TruncateForLog(tc.value, tc.max); got != tc.want {
			t.Fatalf("TruncateForLog(%q, %d) = %q, want %q", tc.value, tc.max, got, tc.want)
		}
	}

	rapid.Check(t, func(t *rapid.T) {
		value := rapid.String().Draw(t, "value")
		max := rapid.IntRange(1, 64).Draw(t, "max")
		got := TruncateForLog(value, max)
		if utf8.ValidString(value) && !utf8.ValidString(got) {
			t.Fatalf("TruncateForLog(%q, %d) = %q is not valid UTF-8", value, max, got)
		}
	})
}

func TestTruncateForLog_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		value := rapid.StringMatching(`[a-z\n ]{0,200}`).Draw(t, "value")
		max := rapid.IntRange(1, 100).Draw(t, "max")

		got := TruncateForLog(value, max)
		if strings.Contains(got, "\n") {
			t.Fatalf("output must be single-line: %q", got)
		}
		if len(got) > max+len("... [truncated]") {
			t.Fatalf("output too long: %d > %d", len(got), max)
		}
	})
}
