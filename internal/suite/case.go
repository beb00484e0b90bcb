package suite

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/kuitang/hrm-ui-suite/internal/allure"
	"github.com/kuitang/hrm-ui-suite/internal/config"
	"github.com/kuitang/hrm-ui-suite/internal/driver"
	"github.com/kuitang/hrm-ui-suite/internal/errs"
	"github.com/kuitang/hrm-ui-suite/internal/fixtures"
	"github.com/kuitang/hrm-ui-suite/internal/obs"
	"github.com/kuitang/hrm-ui-suite/internal/pages"
)

// Case is one running test with its browser session and report entry.
type Case struct {
	T       testing.TB
	Ctx     context.Context
	Config  *config.Config
	Data    *fixtures.LoginData
	Session *driver.Session
	Login   *pages.LoginPage
	Result  *allure.Result

	mu      sync.Mutex
	failure string
}

// Setup opens a fresh browser session for t and registers teardown. It
// skips t in -short mode and when no browser can be started.
func Setup(t testing.TB, meta Meta) *Case {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping live UI test in short mode")
	}
	rt := Current()
	if rt == nil {
		t.Fatal("suite runtime not started; call suite.Main from TestMain")
	}

	if err := rt.Manager.Start(); err != nil {
		if errs.Is(err, errs.Unavailable) {
			t.Skip("browser not available:", err)
		}
		t.Fatalf("start browser: %v", err)
	}

	ctx := obs.WithTest(context.Background(), t.Name())
	session, err := rt.Manager.NewSession()
	if err != nil {
		t.Fatalf("open browser session: %v", err)
	}

	cfg := rt.Config
	c := &Case{
		T:       t,
		Ctx:     ctx,
		Config:  cfg,
		Data:    rt.Data,
		Session: session,
		Login:   pages.NewLoginPage(ctx, session.Page, cfg.BaseURL, cfg.ImplicitWait),
		Result:  newResult(rt, t.Name(), meta),
	}
	c.Result.
		Parameter("Browser", cfg.Browser).
		Parameter("Environment", cfg.Env).
		Parameter("Base URL", cfg.BaseURL).
		Link("Login page", cfg.LoginURL(), "link")
	c.attachLog("test_log")

	t.Cleanup(c.teardown)
	obs.From(ctx).Info("test started", "browser", cfg.Browser, "base_url", cfg.BaseURL)
	return c
}

func newResult(rt *Runtime, testName string, meta Meta) *allure.Result {
	title := meta.Title
	if title == "" {
		title = testName
	}
	feature := meta.Feature
	if feature == "" {
		feature = defaultFeature
	}
	severity := meta.Severity
	if severity == "" {
		severity = allure.SeverityNormal
	}
	res := rt.Reporter.Start(title, testName).
		Epic(defaultEpic).
		Feature(feature).
		Suite(suiteName(testName)).
		Severity(severity)
	if meta.Story != "" {
		res.Story(meta.Story)
	}
	if meta.Description != "" {
		res.Description(meta.Description)
	}
	return res
}

// Step runs fn as a report step and attaches a screenshot afterwards. A
// returned error fails the test immediately; use allure.Failf for
// assertion failures so the step is reported as failed rather than broken.
func (c *Case) Step(name string, fn func() error) {
	c.T.Helper()
	log := obs.From(obs.WithStep(c.Ctx, name))
	log.Info("step started")

	err := c.Result.Step(name, func() error {
		err := fn()
		c.attachScreenshot(stepKey(name))
		return err
	})
	if err != nil {
		log.Error("step failed", "error", err)
		c.mu.Lock()
		c.failure = fmt.Sprintf("%s: %v", name, err)
		c.mu.Unlock()
		c.T.Fatalf("step %q: %v", name, err)
	}
	log.Info("step passed")
}

// Check returns an assertion failure when cond is false.
func Check(cond bool, format string, args ...any) error {
	if cond {
		return nil
	}
	return allure.Failf(format, args...)
}

// CheckEqual returns an assertion failure when got differs from want.
func CheckEqual[T comparable](what string, want, got T) error {
	if want == got {
		return nil
	}
	return allure.Failf("%s: expected %v, got %v", what, want, got)
}

func (c *Case) attachScreenshot(name string) {
	png, err := c.Session.Screenshot()
	if err != nil {
		obs.From(c.Ctx).Warn("step screenshot failed", "step", name, "error", err)
		return
	}
	if err := c.Result.Attach(name, allure.MimePNG, png); err != nil {
		obs.From(c.Ctx).Warn("attach screenshot failed", "step", name, "error", err)
	}
}

func (c *Case) attachLog(name string) {
	path := obs.LatestRunLog(c.Config.LogDir)
	if path == "" {
		return
	}
	if err := c.Result.AttachFile(name, allure.MimeText, path); err != nil {
		obs.From(c.Ctx).Warn("attach run log failed", "error", err)
	}
}

func (c *Case) teardown() {
	t := c.T
	log := obs.From(c.Ctx)
	status := StatusFor(t.Failed(), t.Skipped())

	if status == allure.StatusFailed {
		path, png, err := c.Session.SaveScreenshot(c.Config.ScreenshotDir, "failure_"+t.Name())
		if err != nil {
			log.Warn("failure screenshot failed", "error", err)
		} else {
			log.Info("failure screenshot saved", "path", path)
			if err := c.Result.Attach("failure_screenshot", allure.MimePNG, png); err != nil {
				log.Warn("attach failure screenshot failed", "error", err)
			}
		}
	}

	log.Info("test finished", "status", status)
	c.attachLog("test_log_final")

	var details *allure.StatusDetails
	c.mu.Lock()
	if status == allure.StatusFailed {
		msg := c.failure
		if msg == "" {
			msg = "test failed"
		}
		details = &allure.StatusDetails{Message: msg}
	}
	c.mu.Unlock()
	if err := c.Result.Finish(status, details); err != nil {
		log.Error("write allure result failed", "error", err)
	}

	if err := c.Session.Close(); err != nil {
		log.Warn("close browser session failed", "error", err)
	}
}
