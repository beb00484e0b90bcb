package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kuitang/hrm-ui-suite/internal/driver"
	"github.com/kuitang/hrm-ui-suite/internal/errs"
	"github.com/kuitang/hrm-ui-suite/internal/junit"
	"github.com/kuitang/hrm-ui-suite/internal/obs"
	"github.com/kuitang/hrm-ui-suite/internal/publish"
	"github.com/kuitang/hrm-ui-suite/internal/s3client"
	"github.com/kuitang/hrm-ui-suite/internal/suite"
)

// installTargets maps a BROWSER value to the Playwright install name.
func installTargets(browser string) []string {
	switch browser {
	case "chrome":
		return []string{"chrome"}
	case "edge":
		return []string{"msedge"}
	default:
		return []string{browser}
	}
}

func newInstallCmd(opts *rootOptions) *cobra.Command {
	var browsers []string
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the Playwright driver and browsers",
		Long: `Install downloads the Playwright driver and browser builds.

Without --browsers it installs what the configured BROWSER needs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(browsers) == 0 {
				cfg, err := opts.loadConfig()
				if err != nil {
					return err
				}
				browsers = installTargets(cfg.Browser)
			}
			if err := driver.Install(browsers); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "installed: %s\n", strings.Join(browsers, ", "))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&browsers, "browsers", nil, "Browsers to install (chromium, firefox, webkit, chrome, msedge)")
	return cmd
}

func newEnvCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Write Allure environment, categories and executor files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := suite.WriteSessionFiles(cfg, os.Getenv); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", filepath.Join(cfg.AllureResultsDir, "environment.properties"))
			return nil
		},
	}
}

func newEnvironmentsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "environments",
		Short: "List environment profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			envs, err := opts.loadEnvironments()
			if err != nil {
				return err
			}
			current := envs.Default
			if cfg, err := opts.loadConfig(); err == nil {
				current = cfg.Env
			}
			out := cmd.OutOrStdout()
			for _, name := range envs.Names() {
				env := envs.Environments[name]
				marker := " "
				if name == current {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-10s %-45s %s\n", marker, name, env.BaseURL, env.Description)
			}
			return nil
		},
	}
}

func newJUnitCmd() *cobra.Command {
	var in, out string
	var failOnFailure bool
	cmd := &cobra.Command{
		Use:   "junit",
		Short: "Convert `go test -json` output to JUnit XML",
		Example: `  go test -json ./... | tee test-output.json
  hrmsuite junit --in test-output.json --out test-results.xml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if in != "-" {
				f, err := os.Open(in)
				if err != nil {
					return errs.Wrap(errs.NotFound, fmt.Sprintf("open %s", in), err)
				}
				defer f.Close()
				r = f
			}

			var buf strings.Builder
			sum, err := junit.Convert(r, &buf)
			if err != nil {
				return errs.Wrap(errs.InvalidArgument, "convert test output", err)
			}
			if out == "-" {
				_, err = io.WriteString(cmd.OutOrStdout(), buf.String())
			} else {
				err = os.WriteFile(out, []byte(buf.String()), 0o644)
			}
			if err != nil {
				return errs.Wrap(errs.Internal, "write junit report", err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "junit: %s\n", sum)
			if failOnFailure && sum.Failed() {
				return errs.New(errs.Internal, "tests failed: "+sum.String())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "-", "test2json input file, - for stdin")
	cmd.Flags().StringVar(&out, "out", "test-results.xml", "JUnit XML output file, - for stdout")
	cmd.Flags().BoolVar(&failOnFailure, "fail-on-failure", false, "Exit non-zero when any test failed")
	return cmd
}

func newReportCmd(opts *rootOptions) *cobra.Command {
	var keepHistory bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the HTML report with the Allure CLI",
		Long: `Report runs "allure generate --clean RESULTS -o REPORT".

With --history (default) the previous report's history directory is copied
into the results first so trend widgets span runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if keepHistory {
				if err := carryHistory(cfg.AllureReportDir, cfg.AllureResultsDir); err != nil {
					return err
				}
			}
			return generateReport(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.AllureResultsDir, cfg.AllureReportDir)
		},
	}
	cmd.Flags().BoolVar(&keepHistory, "history", true, "Carry the previous report's history into the new one")
	return cmd
}

func newPublishCmd(opts *rootOptions) *cobra.Command {
	var runID string
	var keep int
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the generated report to S3-compatible storage",
		Long: `Publish uploads the report directory to REPORT_BUCKET under
REPORT_PREFIX/<run-id>/ and prints the report URL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidatePublish(); err != nil {
				return errs.Wrap(errs.InvalidArgument, "invalid publish configuration", err)
			}

			ctx := cmd.Context()
			client, err := s3client.New(ctx, s3client.Config{
				Endpoint:        cfg.AWSEndpointS3,
				Region:          cfg.AWSRegion,
				AccessKeyID:     cfg.AWSAccessKeyID,
				SecretAccessKey: cfg.AWSSecretAccessKey,
				BucketName:      cfg.ReportBucket,
				PublicURL:       cfg.ReportPublicURL,
				UsePathStyle:    cfg.AWSEndpointS3 != "",
			})
			if err != nil {
				return err
			}

			pub := publish.New(client, cfg.ReportPrefix)
			res, err := pub.UploadDir(ctx, cfg.AllureReportDir, publish.RunIDFor(runID, os.Getenv, time.Now()))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.IndexURL)

			if keep > 0 {
				pruned, err := pub.Prune(ctx, keep)
				if err != nil {
					return err
				}
				if len(pruned) > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "pruned %d old report(s)\n", len(pruned))
				}
			}
			return appendStepSummary(os.Getenv("GITHUB_STEP_SUMMARY"), res)
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "Run id used in the object path (default: CI run id or timestamp)")
	cmd.Flags().IntVar(&keep, "keep", 0, "Keep only the newest N published reports (0 keeps all)")
	return cmd
}

// generateReport runs the external Allure CLI.
func generateReport(ctx context.Context, stdout, stderr io.Writer, resultsDir, reportDir string) error {
	if _, err := os.Stat(resultsDir); err != nil {
		return errs.Wrap(errs.NotFound, fmt.Sprintf("no allure results in %s", resultsDir), err)
	}
	bin, err := exec.LookPath("allure")
	if err != nil {
		return errs.Wrap(errs.Unavailable, "allure CLI not found on PATH", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	c := exec.CommandContext(ctx, bin, "generate", "--clean", resultsDir, "-o", reportDir)
	c.Stdout = stdout
	c.Stderr = stderr
	obs.Pkg("hrmsuite").Info("generating allure report", "results", resultsDir, "report", reportDir)
	if err := c.Run(); err != nil {
		return errs.Wrap(errs.Internal, "allure generate", err)
	}
	return nil
}

// carryHistory copies reportDir/history into resultsDir/history when present.
func carryHistory(reportDir, resultsDir string) error {
	src := filepath.Join(reportDir, "history")
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return nil
	}
	dst := filepath.Join(resultsDir, "history")
	err = filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		return errs.Wrap(errs.Internal, "copy report history", err)
	}
	return nil
}

func appendStepSummary(path string, res *publish.Result) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errs.Wrap(errs.Internal, "open step summary", err)
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "### Allure report\n\n[%s](%s) (%d files)\n", res.RunID, res.IndexURL, res.Files)
	if err != nil {
		return errs.Wrap(errs.Internal, "write step summary", err)
	}
	return nil
}
