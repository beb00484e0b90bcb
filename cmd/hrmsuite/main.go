// Command hrmsuite is the OrangeHRM UI suite's helper CLI: it installs
// browsers, prepares Allure session files, converts `go test -json` output to
// JUnit XML, and generates and publishes the Allure report.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kuitang/hrm-ui-suite/internal/config"
	"github.com/kuitang/hrm-ui-suite/internal/errs"
	"github.com/kuitang/hrm-ui-suite/internal/obs"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	obs.Init()
	if err := newRootCmd().Execute(); err != nil {
		code := errs.CodeOf(err)
		obs.Pkg("hrmsuite").Error("command failed", "code", code, "message", errs.MessageOf(err), "error", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(errs.ExitCode(code))
	}
}

// rootOptions are the persistent flags shared by subcommands that need config.
type rootOptions struct {
	overrides config.Overrides
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(o.overrides)
	if err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "invalid configuration", err)
	}
	return cfg, nil
}

func (o *rootOptions) loadEnvironments() (*config.Environments, error) {
	path := o.overrides.EnvironmentsFile
	if path == "" {
		path = os.Getenv("HRM_ENVIRONMENTS_FILE")
	}
	return config.LoadEnvironments(path)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "hrmsuite",
		Short: "OrangeHRM UI suite tooling",
		Long: `hrmsuite supports the OrangeHRM UI test suite.

Run the tests with "go test ./tests/...". This tool installs the browsers
they need, converts their output for CI, and builds the Allure report.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.overrides.Env, "env", "", "Environment profile (overrides HRM_ENV)")
	flags.StringVar(&opts.overrides.BaseURL, "base-url", "", "Application base URL (overrides BASE_URL)")
	flags.StringVar(&opts.overrides.Browser, "browser", "", "Browser: "+strings.Join(config.SupportedBrowsers, ", "))
	flags.BoolVar(&opts.overrides.Headed, "headed", false, "Run the browser with a visible window")
	flags.StringVar(&opts.overrides.EnvironmentsFile, "environments", "", "Environment profiles YAML (overrides HRM_ENVIRONMENTS_FILE)")
	flags.StringVar(&opts.overrides.ResultsDir, "results", "", "Allure results directory (overrides ALLURE_RESULTS_DIR)")
	flags.StringVar(&opts.overrides.ReportDir, "report", "", "Allure report directory (overrides ALLURE_REPORT_DIR)")

	root.AddCommand(
		newInstallCmd(opts),
		newEnvCmd(opts),
		newEnvironmentsCmd(opts),
		newJUnitCmd(),
		newReportCmd(opts),
		newPublishCmd(opts),
		newVersionCmd(root),
	)
	return root
}

func newVersionCmd(root *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hrmsuite %s\n", root.Version)
		},
	}
}
