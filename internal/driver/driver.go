// Package driver owns the browser lifecycle: it starts Playwright, launches
// the configured browser and hands out isolated sessions (one browser
// context plus one page) to tests.
package driver

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/hrm-ui-suite/internal/config"
	"github.com/kuitang/hrm-ui-suite/internal/constants"
	"github.com/kuitang/hrm-ui-suite/internal/errs"
	"github.com/kuitang/hrm-ui-suite/internal/logutil"
	"github.com/kuitang/hrm-ui-suite/internal/obs"
)

func logger() *slog.Logger { return obs.Pkg("driver") }

// Engine is a Playwright browser engine.
type Engine string

const (
	Chromium Engine = "chromium"
	Firefox  Engine = "firefox"
	WebKit   Engine = "webkit"
)

// LaunchPlan is the resolved engine and launch options for a browser name.
type LaunchPlan struct {
	Engine  Engine
	Options playwright.BrowserTypeLaunchOptions
}

// PlanLaunch resolves a configured browser name into a launch plan.
// chrome and edge run on Chromium through their branded channels.
func PlanLaunch(cfg *config.Config) (LaunchPlan, error) {
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	}
	if cfg.SlowMo > 0 {
		opts.SlowMo = playwright.Float(constants.Milliseconds(cfg.SlowMo))
	}

	chromiumArgs := []string{
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--disable-gpu",
		"--disable-notifications",
		fmt.Sprintf("--window-size=%d,%d", cfg.WindowWidth, cfg.WindowHeight),
	}

	switch strings.ToLower(cfg.Browser) {
	case "chrome":
		opts.Channel = playwright.String("chrome")
		opts.Args = chromiumArgs
		return LaunchPlan{Engine: Chromium, Options: opts}, nil
	case "edge":
		opts.Channel = playwright.String("msedge")
		opts.Args = chromiumArgs
		return LaunchPlan{Engine: Chromium, Options: opts}, nil
	case "chromium":
		opts.Args = chromiumArgs
		return LaunchPlan{Engine: Chromium, Options: opts}, nil
	case "firefox":
		return LaunchPlan{Engine: Firefox, Options: opts}, nil
	case "webkit":
		return LaunchPlan{Engine: WebKit, Options: opts}, nil
	default:
		return LaunchPlan{}, errs.New(errs.InvalidArgument, fmt.Sprintf("unsupported browser: %s", cfg.Browser))
	}
}

// Manager starts one Playwright driver and one browser, shared by sessions.
type Manager struct {
	cfg *config.Config

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
}

// NewManager returns a manager for cfg. The browser starts on first use.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{cfg: cfg}
}

// Start runs Playwright and launches the configured browser. It is safe to
// call repeatedly; later calls are no-ops. Errors carry errs.Unavailable when
// the driver or browser cannot start.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		return nil
	}

	plan, err := PlanLaunch(m.cfg)
	if err != nil {
		return err
	}

	pw, err := playwright.Run()
	if err != nil {
		return errs.Wrap(errs.Unavailable, "start playwright", err)
	}

	var bt playwright.BrowserType
	switch plan.Engine {
	case Firefox:
		bt = pw.Firefox
	case WebKit:
		bt = pw.WebKit
	default:
		bt = pw.Chromium
	}

	browser, err := bt.Launch(plan.Options)
	if err != nil {
		_ = pw.Stop()
		return errs.Wrap(errs.Unavailable, fmt.Sprintf("launch %s", m.cfg.Browser), err)
	}

	m.pw = pw
	m.browser = browser
	logger().Info("browser started", "browser", m.cfg.Browser, "engine", plan.Engine, "headless", m.cfg.Headless, "version", browser.Version())
	return nil
}

// Stop closes the browser and the Playwright driver.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			firstErr = err
		}
		m.browser = nil
	}
	if m.pw != nil {
		if err := m.pw.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
		m.pw = nil
		logger().Info("browser closed")
	}
	return firstErr
}

// NewSession opens an isolated browser context with one page. Cookies start
// empty, the viewport matches the configured window size, and the page uses
// the configured implicit and page-load timeouts.
func (m *Manager) NewSession() (*Session, error) {
	if err := m.Start(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	browser := m.browser
	m.mu.Unlock()
	if browser == nil {
		return nil, errs.New(errs.Unavailable, "browser stopped")
	}

	ctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  m.cfg.WindowWidth,
			Height: m.cfg.WindowHeight,
		},
	})
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "create browser context", err)
	}
	if err := ctx.ClearCookies(); err != nil {
		_ = ctx.Close()
		return nil, errs.Wrap(errs.Internal, "clear cookies", err)
	}
	ctx.SetDefaultTimeout(constants.Milliseconds(m.cfg.ImplicitWait))
	ctx.SetDefaultNavigationTimeout(constants.Milliseconds(m.cfg.PageLoadTimeout))

	page, err := ctx.NewPage()
	if err != nil {
		_ = ctx.Close()
		return nil, errs.Wrap(errs.Unavailable, "create page", err)
	}
	page.SetDefaultTimeout(constants.Milliseconds(m.cfg.ImplicitWait))
	page.SetDefaultNavigationTimeout(constants.Milliseconds(m.cfg.PageLoadTimeout))
	page.OnResponse(logFailedResponse)

	return &Session{Context: ctx, Page: page}, nil
}

func logFailedResponse(resp playwright.Response) {
	if resp.Status() < http.StatusBadRequest {
		return
	}
	logger().Warn("http error response",
		"status", resp.Status(),
		"url", resp.URL(),
		"headers", logutil.FormatHeadersForLog(logutil.HeaderFromMap(resp.Headers())),
	)
}

// Session is one isolated browser context with a single page.
type Session struct {
	Context playwright.BrowserContext
	Page    playwright.Page
}

// ScreenshotName returns the file name for a screenshot of name taken at ts.
func ScreenshotName(name string, ts time.Time) string {
	return SanitizeFileName(name) + "_" + ts.Format("20060102_150405") + ".png"
}

// SanitizeFileName maps a test or step name to a safe file-name stem.
func SanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "screenshot"
	}
	return b.String()
}

// Screenshot captures the viewport as PNG.
func (s *Session) Screenshot() ([]byte, error) {
	png, err := s.Page.Screenshot(playwright.PageScreenshotOptions{
		Timeout: playwright.Float(constants.Milliseconds(constants.ScreenshotTimeout)),
	})
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "take screenshot", err)
	}
	return png, nil
}

// SaveScreenshot captures the viewport into dir/<name>_<timestamp>.png and
// returns the path and PNG bytes.
func (s *Session) SaveScreenshot(dir, name string) (string, []byte, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, errs.Wrap(errs.Internal, "create screenshot dir", err)
	}
	png, err := s.Screenshot()
	if err != nil {
		return "", nil, err
	}
	path := filepath.Join(dir, ScreenshotName(name, time.Now()))
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", nil, errs.Wrap(errs.Internal, "write screenshot", err)
	}
	logger().Info("screenshot saved", "path", path)
	return path, png, nil
}

// Close closes the page and its browser context.
func (s *Session) Close() error {
	if s == nil || s.Context == nil {
		return nil
	}
	return s.Context.Close()
}

// Install downloads the Playwright driver and the given browsers. An empty
// list installs Chromium only.
func Install(browsers []string) error {
	if len(browsers) == 0 {
		browsers = []string{string(Chromium)}
	}
	for _, b := range browsers {
		switch Engine(b) {
		case Chromium, Firefox, WebKit:
		case "chrome", "msedge":
		default:
			return errs.New(errs.InvalidArgument, fmt.Sprintf("cannot install unknown browser %q", b))
		}
	}
	logger().Info("installing playwright browsers", "browsers", strings.Join(browsers, ","))
	if err := playwright.Install(&playwright.RunOptions{Browsers: browsers}); err != nil {
		return errs.Wrap(errs.Unavailable, "install playwright", err)
	}
	return nil
}
