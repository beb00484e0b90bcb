// Package config provides centralized configuration for the OrangeHRM UI suite.
// It loads settings from environment variables, applies CLI overrides,
// validates them, and provides sensible defaults.
//
// The target deployment is picked from environment profiles (HRM_ENV) and
// BASE_URL overrides the profile URL. Browser and wait settings mirror what
// the page objects and driver manager need.
package config

import (
	"fmt"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/kuitang/hrm-ui-suite/internal/constants"
	"github.com/kuitang/hrm-ui-suite/internal/urlutil"
)

const (
	defaultBrowser  = "chrome"
	defaultUsername = "Admin"
	defaultPassword = "admin123"
	defaultRegion   = "auto"
)

// SupportedBrowsers lists the browser names accepted by BROWSER.
var SupportedBrowsers = []string{"chrome", "chromium", "edge", "firefox", "webkit"}

// Config holds all suite configuration.
type Config struct {
	// Target
	Env     string // HRM_ENV profile name
	BaseURL string

	// Browser
	Browser      string
	Headless     bool
	WindowWidth  int
	WindowHeight int
	SlowMo       time.Duration

	// Waits
	ImplicitWait    time.Duration
	PageLoadTimeout time.Duration

	// Artifacts
	ScreenshotDir    string
	AllureResultsDir string
	AllureReportDir  string
	LogDir           string
	TestDataPath     string // empty = embedded login data

	// Credentials for the valid-login path
	Username string
	Password string

	// Report publishing (S3-compatible, e.g. Tigris or MinIO)
	ReportBucket       string // REPORT_BUCKET
	ReportPrefix       string // REPORT_PREFIX
	ReportPublicURL    string // REPORT_PUBLIC_URL
	AWSEndpointS3      string // AWS_ENDPOINT_URL_S3
	AWSRegion          string // AWS_REGION
	AWSAccessKeyID     string // AWS_ACCESS_KEY_ID
	AWSSecretAccessKey string // AWS_SECRET_ACCESS_KEY
}

// Overrides carries CLI flag values. Zero values leave the env-derived value.
type Overrides struct {
	Env              string
	BaseURL          string
	Browser          string
	Headed           bool
	EnvironmentsFile string
	ResultsDir       string
	ReportDir        string
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// LoadConfig loads configuration from environment variables and CLI overrides.
func LoadConfig(o Overrides) (*Config, error) {
	cfg := &Config{}

	envFile := o.EnvironmentsFile
	if envFile == "" {
		envFile = os.Getenv("HRM_ENVIRONMENTS_FILE")
	}
	envs, err := LoadEnvironments(envFile)
	if err != nil {
		return nil, err
	}

	cfg.Env = getEnvOrDefault("HRM_ENV", envs.Default)
	if o.Env != "" {
		cfg.Env = o.Env
	}
	cfg.BaseURL = getEnvOrDefault("BASE_URL", "")
	if o.BaseURL != "" {
		cfg.BaseURL = o.BaseURL
	}
	if cfg.BaseURL == "" {
		name, env, err := envs.Lookup(cfg.Env)
		if err != nil {
			return nil, err
		}
		cfg.Env = name
		cfg.BaseURL = env.BaseURL
	}
	cfg.BaseURL = urlutil.NormalizeBaseURL(cfg.BaseURL)

	// Browser
	cfg.Browser = strings.ToLower(getEnvOrDefault("BROWSER", defaultBrowser))
	if o.Browser != "" {
		cfg.Browser = strings.ToLower(o.Browser)
	}
	cfg.Headless = parseBoolOrDefault("HEADLESS", true)
	if o.Headed {
		cfg.Headless = false
	}
	cfg.WindowWidth = parseIntOrDefault("WINDOW_WIDTH", 1920)
	cfg.WindowHeight = parseIntOrDefault("WINDOW_HEIGHT", 1080)
	cfg.SlowMo = parseDurationOrDefault("SLOW_MO", 0)

	// Waits
	cfg.ImplicitWait = parseDurationOrDefault("IMPLICIT_WAIT", constants.ImplicitWait)
	cfg.PageLoadTimeout = parseDurationOrDefault("PAGE_LOAD_TIMEOUT", constants.PageLoadTimeout)

	// Artifacts
	cfg.ScreenshotDir = getEnvOrDefault("SCREENSHOT_DIR", "screenshots")
	cfg.AllureResultsDir = getEnvOrDefault("ALLURE_RESULTS_DIR", "allure-results")
	if o.ResultsDir != "" {
		cfg.AllureResultsDir = o.ResultsDir
	}
	cfg.AllureReportDir = getEnvOrDefault("ALLURE_REPORT_DIR", "allure-report")
	if o.ReportDir != "" {
		cfg.AllureReportDir = o.ReportDir
	}
	cfg.LogDir = getEnvOrDefault("LOG_DIR", "logs")
	cfg.TestDataPath = getEnvOrDefault("TEST_DATA_PATH", "")

	// Credentials
	cfg.Username = getEnvOrDefault("HRM_USERNAME", defaultUsername)
	cfg.Password = getEnvOrDefault("HRM_PASSWORD", defaultPassword)

	// Report publishing
	cfg.ReportBucket = getEnvOrDefault("REPORT_BUCKET", "")
	cfg.ReportPrefix = strings.Trim(getEnvOrDefault("REPORT_PREFIX", "allure"), "/")
	cfg.AWSEndpointS3 = getEnvOrDefault("AWS_ENDPOINT_URL_S3", "")
	cfg.AWSRegion = getEnvOrDefault("AWS_REGION", defaultRegion)
	cfg.AWSAccessKeyID = getEnvOrDefault("AWS_ACCESS_KEY_ID", "")
	cfg.AWSSecretAccessKey = getEnvOrDefault("AWS_SECRET_ACCESS_KEY", "")
	cfg.ReportPublicURL = getEnvOrDefault("REPORT_PUBLIC_URL", "")
	if cfg.ReportPublicURL == "" && cfg.AWSEndpointS3 != "" && cfg.ReportBucket != "" {
		cfg.ReportPublicURL = urlutil.BuildAbsolute(cfg.AWSEndpointS3, cfg.ReportBucket)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all settings are present and usable.
func (c *Config) Validate() error {
	var errs []string

	if c.BaseURL == "" {
		errs = append(errs, "BASE_URL is required (set env var or pick an HRM_ENV profile)")
	} else if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Sprintf("BASE_URL must be an absolute http(s) URL, got %q", c.BaseURL))
	}

	if !IsSupportedBrowser(c.Browser) {
		errs = append(errs, fmt.Sprintf("BROWSER %q is not supported (use one of: %s)", c.Browser, strings.Join(SupportedBrowsers, ", ")))
	}

	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		errs = append(errs, "WINDOW_WIDTH and WINDOW_HEIGHT must be positive")
	}
	if c.ImplicitWait <= 0 {
		errs = append(errs, "IMPLICIT_WAIT must be positive")
	}
	if c.PageLoadTimeout <= 0 {
		errs = append(errs, "PAGE_LOAD_TIMEOUT must be positive")
	}
	if c.SlowMo < 0 {
		errs = append(errs, "SLOW_MO must not be negative")
	}

	if c.AllureResultsDir == "" {
		errs = append(errs, "ALLURE_RESULTS_DIR must not be empty")
	}
	if c.ScreenshotDir == "" {
		errs = append(errs, "SCREENSHOT_DIR must not be empty")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// ValidatePublish checks the settings needed to upload a report.
func (c *Config) ValidatePublish() error {
	var errs []string
	if c.ReportBucket == "" {
		errs = append(errs, "REPORT_BUCKET is required to publish reports")
	}
	if c.AWSAccessKeyID == "" {
		errs = append(errs, "AWS_ACCESS_KEY_ID is required to publish reports")
	}
	if c.AWSSecretAccessKey == "" {
		errs = append(errs, "AWS_SECRET_ACCESS_KEY is required to publish reports")
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// IsSupportedBrowser reports whether name is an accepted BROWSER value.
func IsSupportedBrowser(name string) bool {
	for _, b := range SupportedBrowsers {
		if b == name {
			return true
		}
	}
	return false
}

// LoginURL returns the absolute URL of the login page.
func (c *Config) LoginURL() string {
	return urlutil.BuildAbsolute(c.BaseURL, constants.LoginPath)
}

// AllureEnvironment returns the properties shown on the Allure report's
// Environment widget.
func (c *Config) AllureEnvironment() map[string]string {
	return map[string]string{
		"Browser":     c.Browser,
		"Environment": c.Env,
		"Base URL":    c.BaseURL,
		"Headless":    strconv.FormatBool(c.Headless),
		"Window Size": fmt.Sprintf("%dx%d", c.WindowWidth, c.WindowHeight),
		"Go Version":  runtime.Version(),
		"OS":          runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// PrintSummary prints a human-readable summary of the configuration to stderr.
func (c *Config) PrintSummary() {
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "OrangeHRM UI suite")
	fmt.Fprintf(os.Stderr, "  Target:   %s (%s)\n", c.BaseURL, c.Env)
	mode := "headless"
	if !c.Headless {
		mode = "headed"
	}
	fmt.Fprintf(os.Stderr, "  Browser:  %s, %s, %dx%d\n", c.Browser, mode, c.WindowWidth, c.WindowHeight)
	fmt.Fprintf(os.Stderr, "  Waits:    implicit %s, page load %s\n", c.ImplicitWait, c.PageLoadTimeout)
	fmt.Fprintf(os.Stderr, "  Results:  %s\n", c.AllureResultsDir)
	if c.ReportBucket != "" {
		fmt.Fprintf(os.Stderr, "  Publish:  s3://%s/%s\n", c.ReportBucket, c.ReportPrefix)
	}
	fmt.Fprintln(os.Stderr, "")
}

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return parsed
}

// parseDurationOrDefault accepts Go durations ("15s") and bare integers,
// which are read as seconds.
func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
