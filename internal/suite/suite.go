// Package suite is the shared harness for live UI tests: one browser per
// test binary, a fresh session and Allure result per test, and failure
// artifacts (screenshot, run log) collected on teardown.
//
// Test packages wire it from TestMain:
//
//	func TestMain(m *testing.M) { suite.Main(m) }
//
// and open each test with suite.Setup.
package suite

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kuitang/hrm-ui-suite/internal/allure"
	"github.com/kuitang/hrm-ui-suite/internal/config"
	"github.com/kuitang/hrm-ui-suite/internal/driver"
	"github.com/kuitang/hrm-ui-suite/internal/errs"
	"github.com/kuitang/hrm-ui-suite/internal/fixtures"
	"github.com/kuitang/hrm-ui-suite/internal/obs"
)

const (
	defaultEpic    = "OrangeHRM"
	defaultFeature = "Authentication"
)

// Runtime is the per-binary state shared by every test.
type Runtime struct {
	Config   *config.Config
	Manager  *driver.Manager
	Reporter *allure.Reporter
	Data     *fixtures.LoginData
	RunLog   string
}

var (
	runtimeMu sync.Mutex
	current   *Runtime
)

func logger() *slog.Logger { return obs.Pkg("suite") }

// Runner is satisfied by *testing.M.
type Runner interface {
	Run() int
}

// Main runs the tests and exits with their status.
func Main(m *testing.M) {
	os.Exit(Run(m, config.Overrides{}))
}

// Run starts the shared runtime, runs m, and tears the runtime down. It
// returns the process exit code.
func Run(m Runner, o config.Overrides) int {
	rt, err := Start(o, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "suite setup failed: %v\n", err)
		return errs.ExitCode(errs.CodeOf(err))
	}
	code := m.Run()
	if err := rt.Stop(); err != nil {
		logger().Warn("suite teardown failed", "error", err)
	}
	return code
}

// Start loads configuration and test data, opens the per-run log, and
// writes the session-level Allure files. The browser itself starts on the
// first Setup call.
func Start(o config.Overrides, now time.Time) (*Runtime, error) {
	cfg, err := config.LoadConfig(o)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "load config", err)
	}

	runLog, err := obs.InitRunLog(cfg.LogDir, now)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "open run log", err)
	}

	data, err := fixtures.LoadLoginData(cfg.TestDataPath)
	if err != nil {
		return nil, err
	}
	data = data.WithValidCredentials(cfg.Username, cfg.Password)

	reporter, err := allure.NewReporter(cfg.AllureResultsDir, allure.Label{Name: "parentSuite", Value: defaultEpic})
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "open allure results", err)
	}
	if err := WriteSessionFiles(cfg, os.Getenv); err != nil {
		return nil, err
	}

	rt := &Runtime{
		Config:   cfg,
		Manager:  driver.NewManager(cfg),
		Reporter: reporter,
		Data:     data,
		RunLog:   runLog,
	}

	runtimeMu.Lock()
	current = rt
	runtimeMu.Unlock()

	cfg.PrintSummary()
	logger().Info("test run started",
		"run_id", obs.RunID(),
		"base_url", cfg.BaseURL,
		"browser", cfg.Browser,
		"run_log", runLog,
	)
	return rt, nil
}

// WriteSessionFiles writes environment.properties, categories.json and, on
// CI, executor.json into the results dir.
func WriteSessionFiles(cfg *config.Config, getenv func(string) string) error {
	dir := cfg.AllureResultsDir
	if err := allure.WriteEnvironment(dir, cfg.AllureEnvironment()); err != nil {
		return errs.Wrap(errs.Internal, "write allure environment", err)
	}
	if err := allure.WriteCategories(dir, allure.DefaultCategories()); err != nil {
		return errs.Wrap(errs.Internal, "write allure categories", err)
	}
	if e := allure.ExecutorFromEnv(getenv, cfg.ReportPublicURL); e != nil {
		if err := allure.WriteExecutor(dir, e); err != nil {
			return errs.Wrap(errs.Internal, "write allure executor", err)
		}
	}
	return nil
}

// Stop closes the browser and the run log.
func (rt *Runtime) Stop() error {
	runtimeMu.Lock()
	if current == rt {
		current = nil
	}
	runtimeMu.Unlock()

	err := rt.Manager.Stop()
	logger().Info("test run finished", "run_id", obs.RunID())
	return errors.Join(err, obs.Close())
}

// Current returns the active runtime, or nil outside Run.
func Current() *Runtime {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	return current
}

// Meta describes a test for the report.
type Meta struct {
	Title       string // display name; defaults to the test name
	Feature     string // defaults to "Authentication"
	Story       string
	Severity    allure.Severity // defaults to normal
	Description string          // markdown
}

// StatusFor maps the testing outcome to an Allure status.
func StatusFor(failed, skipped bool) allure.Status {
	switch {
	case skipped:
		return allure.StatusSkipped
	case failed:
		return allure.StatusFailed
	default:
		return allure.StatusPassed
	}
}

// suiteName is the top-level test of a possibly nested test name.
func suiteName(testName string) string {
	if i := strings.IndexByte(testName, '/'); i >= 0 {
		return testName[:i]
	}
	return testName
}

// stepKey turns a step title into the screenshot/attachment name.
func stepKey(name string) string {
	return strings.ToLower(driver.SanitizeFileName(name))
}
