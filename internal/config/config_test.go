package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func validTestConfig() Config {
	return Config{
		Env:              "demo",
		BaseURL:          "https://opensource-demo.orangehrmlive.com",
		Browser:          "chrome",
		Headless:         true,
		WindowWidth:      1920,
		WindowHeight:     1080,
		ImplicitWait:     10 * time.Second,
		PageLoadTimeout:  30 * time.Second,
		ScreenshotDir:    "screenshots",
		AllureResultsDir: "allure-results",
	}
}

// clearSuiteEnv blanks every variable LoadConfig reads so the host
// environment cannot leak into assertions.
func clearSuiteEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HRM_ENV", "HRM_ENVIRONMENTS_FILE", "BASE_URL", "BROWSER", "HEADLESS",
		"WINDOW_WIDTH", "WINDOW_HEIGHT", "SLOW_MO", "IMPLICIT_WAIT", "PAGE_LOAD_TIMEOUT",
		"SCREENSHOT_DIR", "ALLURE_RESULTS_DIR", "ALLURE_REPORT_DIR", "LOG_DIR",
		"TEST_DATA_PATH", "HRM_USERNAME", "HRM_PASSWORD", "REPORT_BUCKET",
		"REPORT_PREFIX", "REPORT_PUBLIC_URL", "AWS_ENDPOINT_URL_S3", "AWS_REGION",
		"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestValidate_DefaultsPass(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got error: %v", err)
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	cfg.BaseURL = "opensource-demo.orangehrmlive.com"
	cfg.Browser = "netscape"
	cfg.ImplicitWait = 0
	cfg.PageLoadTimeout = -time.Second
	cfg.WindowWidth = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, expected := range []string{
		"BASE_URL",
		"BROWSER",
		"IMPLICIT_WAIT",
		"PAGE_LOAD_TIMEOUT",
		"WINDOW_WIDTH",
	} {
		if !strings.Contains(msg, expected) {
			t.Fatalf("expected validation error to mention %q, got: %v", expected, err)
		}
	}
}

func testValidate_RejectsUnknownBrowsers(t *rapid.T) {
	cfg := validTestConfig()
	cfg.Browser = rapid.StringMatching(`[a-z]{3,12}`).
		Filter(func(s string) bool { return !IsSupportedBrowser(s) }).
		Draw(t, "browser")
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "BROWSER") {
		t.Fatalf("expected BROWSER validation error for %q, got %v", cfg.Browser, err)
	}
}

func TestValidate_RejectsUnknownBrowsers(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testValidate_RejectsUnknownBrowsers)
}

func TestLoadConfig_DefaultsToDemoProfile(t *testing.T) {
	clearSuiteEnv(t)

	cfg, err := LoadConfig(Overrides{})
	require.NoError(t, err)
	require.Equal(t, "demo", cfg.Env)
	require.Equal(t, "https://opensource-demo.orangehrmlive.com", cfg.BaseURL)
	require.Equal(t, "chrome", cfg.Browser)
	require.True(t, cfg.Headless)
	require.Equal(t, 10*time.Second, cfg.ImplicitWait)
	require.Equal(t, 30*time.Second, cfg.PageLoadTimeout)
	require.Equal(t, "Admin", cfg.Username)
	require.Equal(t, "admin123", cfg.Password)
	require.Equal(t, "https://opensource-demo.orangehrmlive.com/web/index.php/auth/login", cfg.LoginURL())
}

func TestLoadConfig_EnvAndOverrides(t *testing.T) {
	clearSuiteEnv(t)
	t.Setenv("HRM_ENV", "local")
	t.Setenv("BROWSER", "Firefox")
	t.Setenv("IMPLICIT_WAIT", "15")
	t.Setenv("PAGE_LOAD_TIMEOUT", "45s")

	cfg, err := LoadConfig(Overrides{Headed: true, ResultsDir: "out/results"})
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Env)
	require.Equal(t, "http://localhost:8080", cfg.BaseURL)
	require.Equal(t, "firefox", cfg.Browser)
	require.False(t, cfg.Headless)
	require.Equal(t, 15*time.Second, cfg.ImplicitWait)
	require.Equal(t, 45*time.Second, cfg.PageLoadTimeout)
	require.Equal(t, "out/results", cfg.AllureResultsDir)

	cfg, err = LoadConfig(Overrides{BaseURL: "http://127.0.0.1:9000/", Browser: "webkit"})
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:9000", cfg.BaseURL)
	require.Equal(t, "webkit", cfg.Browser)
}

func TestLoadConfig_UnknownEnvironment(t *testing.T) {
	clearSuiteEnv(t)
	t.Setenv("HRM_ENV", "nowhere")

	_, err := LoadConfig(Overrides{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "nowhere")
}

func TestLoadConfig_EnvironmentsFile(t *testing.T) {
	clearSuiteEnv(t)
	path := filepath.Join(t.TempDir(), "envs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default: qa
environments:
  qa:
    base_url: https://qa.example.test/
`), 0o644))

	cfg, err := LoadConfig(Overrides{EnvironmentsFile: path})
	require.NoError(t, err)
	require.Equal(t, "qa", cfg.Env)
	require.Equal(t, "https://qa.example.test", cfg.BaseURL)
}

func TestLoadConfig_PublicURLDerivedFromEndpoint(t *testing.T) {
	clearSuiteEnv(t)
	t.Setenv("AWS_ENDPOINT_URL_S3", "https://fly.storage.tigris.dev/")
	t.Setenv("REPORT_BUCKET", "hrm-reports")

	cfg, err := LoadConfig(Overrides{})
	require.NoError(t, err)
	require.Equal(t, "https://fly.storage.tigris.dev/hrm-reports", cfg.ReportPublicURL)
	require.Error(t, cfg.ValidatePublish(), "credentials are still missing")

	cfg.AWSAccessKeyID = "key"
	cfg.AWSSecretAccessKey = "secret"
	require.NoError(t, cfg.ValidatePublish())
}

func TestParseEnvironments_RejectsUndefinedDefault(t *testing.T) {
	t.Parallel()
	_, err := ParseEnvironments([]byte("default: prod\nenvironments:\n  demo:\n    base_url: http://x\n"))
	require.Error(t, err)
	_, err = ParseEnvironments([]byte("default: demo\n"))
	require.Error(t, err)
}

func TestAllureEnvironment_ContainsRunParameters(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	props := cfg.AllureEnvironment()
	require.Equal(t, "chrome", props["Browser"])
	require.Equal(t, "demo", props["Environment"])
	require.Equal(t, cfg.BaseURL, props["Base URL"])
	require.Equal(t, "1920x1080", props["Window Size"])
}

func TestHelperParsers_DefaultOnBadInput(t *testing.T) {
	t.Setenv("CFG_TEST_INT", "not-an-int")
	t.Setenv("CFG_TEST_BOOL", "maybe")
	t.Setenv("CFG_TEST_DUR", "not-a-duration")
	if got := parseIntOrDefault("CFG_TEST_INT", 7); got != 7 {
		t.Fatalf("parseIntOrDefault fallback mismatch: got=%d want=7", got)
	}
	if got := parseBoolOrDefault("CFG_TEST_BOOL", true); got != true {
		t.Fatalf("parseBoolOrDefault fallback mismatch: got=%v want=true", got)
	}
	if got := parseDurationOrDefault("CFG_TEST_DUR", 2*time.Minute); got != 2*time.Minute {
		t.Fatalf("parseDurationOrDefault fallback mismatch: got=%v want=%v", got, 2*time.Minute)
	}
}

func TestParseDurationOrDefault_BareSeconds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		secs := rapid.IntRange(1, 3600).Draw(rt, "secs")
		if err := os.Setenv("CFG_TEST_SECS", strings.Repeat(" ", secs%3)+strconv.Itoa(secs)); err != nil {
			rt.Fatalf("Setenv failed: %v", err)
		}
		defer os.Unsetenv("CFG_TEST_SECS")
		if got := parseDurationOrDefault("CFG_TEST_SECS", time.Minute); got != time.Duration(secs)*time.Second {
			rt.Fatalf("got=%v want=%ds", got, secs)
		}
	})
}
