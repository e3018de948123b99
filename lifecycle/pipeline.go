package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prepwise/website-e2e/framework"
)

// Pipeline is the order of a full run: bootstrap, setup, tests, teardown, shutdown.
// Any stage may be nil.
type Pipeline struct {
	Bootstrap func(ctx context.Context) error
	Setup     func(ctx context.Context) (RunContext, error)
	Tests     func(ctx context.Context, rc RunContext) (framework.Results, error)
	Teardown  func(ctx context.Context, rc RunContext) CleanupSummary
	Shutdown  func() error
	Output    io.Writer
}

type RunOutcome struct {
	RunContext RunContext
	Results    framework.Results
	Cleanup    CleanupSummary
	TestsRan   bool
	// Err is a failure of bootstrap, setup or the test run itself. Teardown problems are
	// never reported here.
	Err error
}

// ExitCode is 1 if the run could not be completed or any test failed.
func (o RunOutcome) ExitCode() int {
	if o.Err != nil || !o.Results.OK() {
		return 1
	}
	return 0
}

var ErrTestsPanicked = errors.New("test run panicked")

// Execute runs the stages in order. Teardown runs whenever setup was attempted, even if
// setup or the tests failed, and shutdown runs whenever bootstrap was attempted.
func (p Pipeline) Execute(ctx context.Context) (outcome RunOutcome) {
	out := p.Output
	if out == nil {
		out = io.Discard
	}

	if p.Shutdown != nil {
		defer func() {
			if err := p.Shutdown(); err != nil {
				fmt.Fprintf(out, "⚠️  Shutdown: %s\n", err)
			}
		}()
	}
	if p.Bootstrap != nil {
		if err := p.Bootstrap(ctx); err != nil {
			outcome.Err = fmt.Errorf("bootstrap failed: %w", err)
			return outcome
		}
	}

	if p.Setup != nil {
		rc, err := p.Setup(ctx)
		outcome.RunContext = rc
		if err != nil {
			outcome.Err = fmt.Errorf("global setup failed: %w", err)
			outcome.Cleanup = p.teardown(ctx, rc)
			return outcome
		}
	}

	outcome.Results, outcome.Err = p.runTests(ctx, outcome.RunContext)
	outcome.TestsRan = outcome.Err == nil
	if outcome.Err != nil && !errors.Is(outcome.Err, ErrTestsPanicked) {
		outcome.Err = fmt.Errorf("test run failed: %w", outcome.Err)
	}
	outcome.Cleanup = p.teardown(ctx, outcome.RunContext)
	return outcome
}

func (p Pipeline) runTests(ctx context.Context, rc RunContext) (results framework.Results, err error) {
	if p.Tests == nil {
		return results, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTestsPanicked, r)
		}
	}()
	return p.Tests(ctx, rc)
}

func (p Pipeline) teardown(ctx context.Context, rc RunContext) CleanupSummary {
	if p.Teardown == nil {
		return CleanupSummary{}
	}
	return p.Teardown(ctx, rc)
}
