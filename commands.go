package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/prepwise/website-e2e/browser"
	"github.com/prepwise/website-e2e/config"
	"github.com/prepwise/website-e2e/fixtures"
	"github.com/prepwise/website-e2e/framework"
	"github.com/prepwise/website-e2e/lifecycle"
	"github.com/prepwise/website-e2e/report"
	"github.com/prepwise/website-e2e/sitetests"
	"github.com/prepwise/website-e2e/webserver"
)

// teardownTimeout bounds cleanup. Cleanup still runs after an interrupt, so it does not
// inherit the command's cancellation.
const teardownTimeout = 2 * time.Minute

func newRunCmd(params *commandParams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the web servers, prepare test data, run the suite and clean up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return exitStatus(runSuite(cmd.Context(), params, cmd.OutOrStdout()))
		},
	}
	params.addRunFlags(cmd.Flags())
	params.addTeardownFlags(cmd.Flags())
	return cmd
}

func newSetupCmd(params *commandParams) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Prepare test data in the backend and print the fixture ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return exitStatus(runSetup(cmd.Context(), params, cmd.OutOrStdout()))
		},
	}
}

func newTeardownCmd(params *commandParams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teardown",
		Short: "Remove the test data of the last run, as far as possible",
		Long: `teardown removes the fixtures recorded by the last setup, or the ones named by
TEST_MOCK_TEST_ID and TEST_USER_ID. Failures are reported but never change the exit
status, so a CI job does not fail because of cleanup.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			runTeardown(cmd.Context(), params, cmd.OutOrStdout())
		},
	}
	params.addTeardownFlags(cmd.Flags())
	return cmd
}

func newMatrixCmd(params *commandParams) *cobra.Command {
	return &cobra.Command{
		Use:   "matrix",
		Short: "Print the resolved configuration and test matrix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := params.loadConfig(config.EnvFromOS())
			if err != nil {
				return err
			}
			data, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func exitStatus(code int) error {
	if code == 0 {
		return nil
	}
	return exitCode(code)
}

func runSuite(ctx context.Context, params *commandParams, out io.Writer) int {
	env := config.EnvFromOS()
	cfg, err := params.loadConfig(env)
	if err != nil {
		fmt.Fprintf(out, "❌ Invalid configuration: %s\n", err)
		return 1
	}
	mainDebugLogger := params.debugLogger()

	printBanner(out, cfg, params.filters)

	manager := webserver.NewManager(out, mainDebugLogger)
	testLogger := &ConsoleTestLogger{
		Out:                  out,
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	}
	var driver browser.Driver
	started := time.Now()

	pipeline := lifecycle.Pipeline{
		Output: out,
		Bootstrap: func(ctx context.Context) error {
			if !params.noWebServer {
				if err := manager.Start(ctx, cfg.WebServers); err != nil {
					return err
				}
			}
			d, err := browser.NewDriver(cfg, mainDebugLogger)
			if err != nil {
				return err
			}
			driver = d
			return nil
		},
		Setup: func(ctx context.Context) (lifecycle.RunContext, error) {
			client := fixtures.NewClient(cfg.BackendURL, fixtures.NewHTTPRequester(), mainDebugLogger)
			rc, err := lifecycle.Setup(ctx, client, env, lifecycle.SetupOptions{BaseURL: cfg.BaseURL, Output: out})
			saveRunContext(rc, cfg.OutputDir, out)
			if err == nil {
				exportRunContext(rc)
			}
			return rc, err
		},
		Tests: func(ctx context.Context, rc lifecycle.RunContext) (framework.Results, error) {
			fmt.Fprintln(out, "Running test suite")
			h := &sitetests.Harness{Config: cfg, Driver: driver, RunContext: rc}
			opts := framework.Options{
				Retries:    cfg.Retries,
				Workers:    cfg.EffectiveWorkers(),
				Timeout:    time.Duration(cfg.Timeout),
				ForbidOnly: cfg.ForbidOnly,
			}
			return sitetests.RunSuite(ctx, h, sitetests.AllFiles(), opts, params.filters.AsFilter, testLogger)
		},
		Teardown: func(ctx context.Context, rc lifecycle.RunContext) lifecycle.CleanupSummary {
			return teardown(ctx, params, cfg, rc, out, mainDebugLogger)
		},
		Shutdown: func() error {
			var errs []error
			if driver != nil {
				errs = append(errs, driver.Close())
			}
			errs = append(errs, manager.Stop())
			return errors.Join(errs...)
		},
	}

	outcome := pipeline.Execute(ctx)

	if outcome.TestsRan {
		fmt.Fprintln(out)
		reporters, err := report.New(cfg.Reporters, cfg.OutputDir, out)
		if err == nil {
			err = report.WriteAll(reporters, outcome.Results, report.Meta{
				RunID:     outcome.RunContext.RunID,
				StartedAt: started,
				Duration:  time.Since(started),
				BaseURL:   cfg.BaseURL,
				Projects:  cfg.ProjectNames(),
				Cleanup:   outcome.Cleanup.String(),
			})
		}
		if err != nil {
			fmt.Fprintf(out, "⚠️  Reports: %s\n", err)
		}
	}
	if outcome.Err != nil {
		fmt.Fprintf(out, "❌ %s\n", outcome.Err)
	}
	return outcome.ExitCode()
}

func printBanner(out io.Writer, cfg config.Config, filters framework.RegexFilters) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Test directory: %s\n", cfg.TestDir)
	fmt.Fprintf(out, "Base URL: %s\n", cfg.BaseURL)
	framework.PrintFilterDescription(out, filters, cfg.ProjectNames())
}

func runSetup(ctx context.Context, params *commandParams, out io.Writer) int {
	env := config.EnvFromOS()
	cfg, err := params.loadConfig(env)
	if err != nil {
		fmt.Fprintf(out, "❌ Invalid configuration: %s\n", err)
		return 1
	}
	client := fixtures.NewClient(cfg.BackendURL, fixtures.NewHTTPRequester(), params.debugLogger())
	rc, err := lifecycle.Setup(ctx, client, env, lifecycle.SetupOptions{BaseURL: cfg.BaseURL, Output: out})
	saveRunContext(rc, cfg.OutputDir, out)
	if err != nil {
		fmt.Fprintf(out, "❌ Setup failed: %s\n", err)
		return 1
	}
	for _, kv := range rc.Environ() {
		fmt.Fprintln(out, kv)
	}
	return 0
}

// runTeardown cleans up after a run that was set up by a separate invocation. It never
// fails; problems are printed in the summary.
func runTeardown(ctx context.Context, params *commandParams, out io.Writer) {
	env := config.EnvFromOS()
	cfg, err := params.loadConfig(env)
	if err != nil {
		fmt.Fprintf(out, "⚠️  Invalid configuration, using defaults: %s\n", err)
		cfg = config.Default(env)
	}
	rc := resolveRunContext(cfg, env, out)
	teardown(ctx, params, cfg, rc, out, params.debugLogger())
}

// resolveRunContext starts from the context saved by setup. Fixture ids set in the
// environment take precedence over the saved ones, since the file may be left over from
// an earlier run; everything else the file lacks is filled in from the environment.
func resolveRunContext(cfg config.Config, env config.Env, out io.Writer) lifecycle.RunContext {
	fromEnv := lifecycle.RunContextFromEnv(env, cfg)
	rc, err := lifecycle.LoadRunContext(cfg.OutputDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(out, "⚠️  Ignoring saved run context: %s\n", err)
		}
		return fromEnv
	}
	if env.MockTestID != "" || rc.MockTestID == "" {
		rc.MockTestID = fromEnv.MockTestID
	}
	if env.TestUserID != "" || rc.TestUserID == "" {
		rc.TestUserID = fromEnv.TestUserID
	}
	if rc.BackendURL == "" {
		rc.BackendURL = fromEnv.BackendURL
	}
	if rc.BaseURL == "" {
		rc.BaseURL = fromEnv.BaseURL
	}
	return rc
}

func teardown(
	ctx context.Context,
	params *commandParams,
	cfg config.Config,
	rc lifecycle.RunContext,
	out io.Writer,
	logger framework.Logger,
) lifecycle.CleanupSummary {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()

	if rc.BackendURL == "" {
		rc.BackendURL = cfg.BackendURL
	}
	summary := lifecycle.Teardown(ctx, cleanupOpener(params, cfg, rc, logger), rc, lifecycle.TeardownOptions{
		DeleteTestUser: params.deleteTestUserEnabled(cfg),
		Output:         out,
		Logger:         logger,
	})
	if summary.OK() {
		if err := lifecycle.RemoveRunContext(cfg.OutputDir); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(out, "⚠️  Could not remove run context: %s\n", err)
		}
	}
	return summary
}

// cleanupOpener sends cleanup requests through a browser session of its own, so that
// they carry the same cookies and origin as the tests' requests, unless that is disabled.
func cleanupOpener(
	params *commandParams,
	cfg config.Config,
	rc lifecycle.RunContext,
	logger framework.Logger,
) lifecycle.SessionOpener {
	if params.noBrowser || len(cfg.Projects) == 0 {
		return lifecycle.HTTPSessionOpener{Requester: fixtures.NewHTTPRequester()}
	}
	baseURL := rc.BaseURL
	if baseURL == "" {
		baseURL = cfg.BaseURL
	}
	return lifecycle.BrowserSessionOpener{
		NewDriver: func() (browser.Driver, error) { return browser.NewDriver(cfg, logger) },
		Project:   cleanupProject(cfg.Projects),
		BaseURL:   baseURL,
	}
}

func cleanupProject(projects []config.Project) config.Project {
	for _, p := range projects {
		if p.Browser == config.Chromium {
			return p
		}
	}
	return projects[0]
}

func saveRunContext(rc lifecycle.RunContext, dir string, out io.Writer) {
	if rc.RunID == "" {
		return
	}
	path, err := rc.Save(dir)
	if err != nil {
		fmt.Fprintf(out, "⚠️  Could not save run context: %s\n", err)
		return
	}
	fmt.Fprintf(out, "📝 Run context saved to %s\n", path)
}

// exportRunContext makes the fixture ids visible to anything the process starts later.
func exportRunContext(rc lifecycle.RunContext) {
	for _, kv := range rc.Environ() {
		if name, value, ok := strings.Cut(kv, "="); ok {
			_ = os.Setenv(name, value)
		}
	}
}
