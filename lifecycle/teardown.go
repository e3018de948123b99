package lifecycle

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/prepwise/website-e2e/fixtures"
	"github.com/prepwise/website-e2e/framework"
)

type Outcome string

const (
	Succeeded Outcome = "succeeded"
	Failed    Outcome = "failed"
	Skipped   Outcome = "skipped"
)

// StepResult is the outcome of one cleanup step. Reason explains a failure or a skip.
type StepResult struct {
	Name    string
	Outcome Outcome
	Reason  string
}

type CleanupSummary struct {
	Steps []StepResult
}

// OK is true if no step failed.
func (s CleanupSummary) OK() bool {
	return len(s.Failed()) == 0
}

func (s CleanupSummary) Failed() []StepResult {
	var ret []StepResult
	for _, step := range s.Steps {
		if step.Outcome == Failed {
			ret = append(ret, step)
		}
	}
	return ret
}

func (s CleanupSummary) count(o Outcome) int {
	n := 0
	for _, step := range s.Steps {
		if step.Outcome == o {
			n++
		}
	}
	return n
}

func (s CleanupSummary) String() string {
	return fmt.Sprintf("cleanup: %d succeeded, %d failed, %d skipped",
		s.count(Succeeded), s.count(Failed), s.count(Skipped))
}

type TeardownOptions struct {
	// DeleteTestUser enables removal of the test user. Test users are kept by default so
	// that a failed run can be investigated with the same account.
	DeleteTestUser bool
	Output         io.Writer
	Logger         framework.Logger
}

type cleanupStep struct {
	name       string
	skipReason string
	run        func(context.Context, *fixtures.Client) error
	done       string
}

func plan(rc RunContext, opts TeardownOptions) []cleanupStep {
	deleteMockTest := cleanupStep{name: "delete mock test"}
	if rc.MockTestID == "" {
		deleteMockTest.skipReason = "no mock test id"
	} else {
		deleteMockTest.name += " " + rc.MockTestID
		deleteMockTest.run = func(ctx context.Context, c *fixtures.Client) error {
			return c.DeleteMockTest(ctx, rc.MockTestID)
		}
		deleteMockTest.done = "Deleted mock test " + rc.MockTestID
	}

	deleteTestUser := cleanupStep{name: "delete test user"}
	switch {
	case !opts.DeleteTestUser:
		deleteTestUser.skipReason = "test user cleanup is disabled"
	case rc.TestUserID == "":
		deleteTestUser.skipReason = "no test user id"
	default:
		deleteTestUser.name += " " + rc.TestUserID
		deleteTestUser.run = func(ctx context.Context, c *fixtures.Client) error {
			return c.DeleteTestUser(ctx, rc.TestUserID)
		}
		deleteTestUser.done = "Deleted test user " + rc.TestUserID
	}

	cleanup := cleanupStep{
		name: "cleanup test data",
		run: func(ctx context.Context, c *fixtures.Client) error {
			return c.Cleanup(ctx)
		},
		done: "Cleaned up test run data",
	}
	return []cleanupStep{deleteMockTest, deleteTestUser, cleanup}
}

// Teardown removes the fixtures of a run through one session obtained from opener. It
// never returns an error and never panics: every failure is logged as a warning and
// recorded in the summary. The session is closed on every path.
func Teardown(ctx context.Context, opener SessionOpener, rc RunContext, opts TeardownOptions) (summary CleanupSummary) {
	out := opts.Output
	if out == nil {
		out = io.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = framework.NullLogger()
	}
	steps := plan(rc, opts)

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(out, "⚠️  Cleanup aborted: %v\n", r)
			summary = completeAsFailed(summary, steps, fmt.Sprintf("cleanup aborted: %v", r))
		}
		fmt.Fprintf(out, "🧹 %s\n", summary)
	}()

	fmt.Fprintln(out, "🧹 Cleaning up test data...")
	session, err := opener.Open(ctx)
	if err != nil {
		fmt.Fprintf(out, "⚠️  Could not open a session for cleanup: %s\n", err)
		return completeAsFailed(summary, steps, "no session: "+err.Error())
	}
	defer func() {
		if err := session.Close(); err != nil {
			fmt.Fprintf(out, "⚠️  Failed to close cleanup session: %s\n", err)
		}
	}()

	client := fixtures.NewClient(rc.BackendURL, session, logger)
	for _, step := range steps {
		result := runStep(ctx, client, step)
		switch result.Outcome {
		case Succeeded:
			fmt.Fprintf(out, "✅ %s\n", step.done)
		case Failed:
			fmt.Fprintf(out, "⚠️  Failed to %s: %s\n", step.name, result.Reason)
		case Skipped:
			logger.Printf("Skipped %s: %s", step.name, result.Reason)
		}
		summary.Steps = append(summary.Steps, result)
	}
	return summary
}

func runStep(ctx context.Context, client *fixtures.Client, step cleanupStep) (result StepResult) {
	result.Name = step.name
	if step.run == nil {
		result.Outcome, result.Reason = Skipped, step.skipReason
		return result
	}
	defer func() {
		if r := recover(); r != nil {
			result.Outcome, result.Reason = Failed, fmt.Sprintf("panic: %v", r)
		}
	}()
	if err := step.run(ctx, client); err != nil {
		result.Outcome, result.Reason = Failed, strings.TrimSpace(err.Error())
		return result
	}
	result.Outcome = Succeeded
	return result
}

// completeAsFailed records every step that has no result yet, as failed unless it was
// going to be skipped anyway.
func completeAsFailed(summary CleanupSummary, steps []cleanupStep, reason string) CleanupSummary {
	for _, step := range steps[len(summary.Steps):] {
		if step.run == nil {
			summary.Steps = append(summary.Steps, StepResult{Name: step.name, Outcome: Skipped, Reason: step.skipReason})
		} else {
			summary.Steps = append(summary.Steps, StepResult{Name: step.name, Outcome: Failed, Reason: reason})
		}
	}
	return summary
}
