package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prepwise/website-e2e/framework"
)

type stageRecorder struct {
	stages []string
}

func (r *stageRecorder) pipeline() Pipeline {
	return Pipeline{
		Bootstrap: func(context.Context) error {
			r.stages = append(r.stages, "bootstrap")
			return nil
		},
		Setup: func(context.Context) (RunContext, error) {
			r.stages = append(r.stages, "setup")
			return RunContext{MockTestID: "abc123"}, nil
		},
		Tests: func(_ context.Context, rc RunContext) (framework.Results, error) {
			r.stages = append(r.stages, "tests:"+rc.MockTestID)
			return framework.Results{}, nil
		},
		Teardown: func(_ context.Context, rc RunContext) CleanupSummary {
			r.stages = append(r.stages, "teardown:"+rc.MockTestID)
			return CleanupSummary{Steps: []StepResult{{Outcome: Failed}}}
		},
		Shutdown: func() error {
			r.stages = append(r.stages, "shutdown")
			return nil
		},
	}
}

func TestPipelineRunsStagesInOrder(t *testing.T) {
	r := &stageRecorder{}
	outcome := r.pipeline().Execute(context.Background())

	assert.Equal(t, []string{"bootstrap", "setup", "tests:abc123", "teardown:abc123", "shutdown"}, r.stages)
	assert.True(t, outcome.TestsRan)
	assert.NoError(t, outcome.Err)
	assert.False(t, outcome.Cleanup.OK())
	assert.Equal(t, 0, outcome.ExitCode(), "cleanup failures must not fail the run")
}

func TestPipelineBootstrapFailureRunsNoTests(t *testing.T) {
	r := &stageRecorder{}
	p := r.pipeline()
	p.Bootstrap = func(context.Context) error { return errors.New("port 3000 never bound") }

	outcome := p.Execute(context.Background())

	assert.Equal(t, []string{"shutdown"}, r.stages)
	assert.False(t, outcome.TestsRan)
	assert.Error(t, outcome.Err)
	assert.Equal(t, 1, outcome.ExitCode())
}

func TestPipelineSetupFailureStillTearsDown(t *testing.T) {
	r := &stageRecorder{}
	p := r.pipeline()
	p.Setup = func(context.Context) (RunContext, error) {
		r.stages = append(r.stages, "setup")
		return RunContext{MockTestID: "partial"}, errors.New("test user: HTTP 503")
	}

	outcome := p.Execute(context.Background())

	assert.Equal(t, []string{"bootstrap", "setup", "teardown:partial", "shutdown"}, r.stages)
	assert.Contains(t, outcome.Err.Error(), "global setup failed")
	assert.Equal(t, 1, outcome.ExitCode())
}

func TestPipelineTestPanicStillTearsDown(t *testing.T) {
	r := &stageRecorder{}
	p := r.pipeline()
	p.Tests = func(context.Context, RunContext) (framework.Results, error) { panic("worker crashed") }

	outcome := p.Execute(context.Background())

	assert.Equal(t, []string{"bootstrap", "setup", "teardown:abc123", "shutdown"}, r.stages)
	assert.ErrorIs(t, outcome.Err, ErrTestsPanicked)
	assert.Equal(t, 1, outcome.ExitCode())
}

func TestPipelineFailedTestsSetExitCode(t *testing.T) {
	r := &stageRecorder{}
	p := r.pipeline()
	p.Tests = func(context.Context, RunContext) (framework.Results, error) {
		failed := framework.TestResult{TestID: framework.NewTestID("chromium", "home"), Failed: true}
		return framework.Results{Tests: []framework.TestResult{failed}, Failures: []framework.TestResult{failed}}, nil
	}

	outcome := p.Execute(context.Background())
	assert.NoError(t, outcome.Err)
	assert.Equal(t, 1, outcome.ExitCode())
}

func TestPipelineWithOnlyTests(t *testing.T) {
	ran := false
	outcome := Pipeline{Tests: func(context.Context, RunContext) (framework.Results, error) {
		ran = true
		return framework.Results{}, nil
	}}.Execute(context.Background())
	assert.True(t, ran)
	assert.Equal(t, 0, outcome.ExitCode())
}

func TestPipelineTestRunErrorStillTearsDown(t *testing.T) {
	r := &stageRecorder{}
	p := r.pipeline()
	p.Tests = func(context.Context, RunContext) (framework.Results, error) {
		return framework.Results{}, framework.ErrFocusedTests
	}

	outcome := p.Execute(context.Background())

	assert.Equal(t, []string{"bootstrap", "setup", "teardown:abc123", "shutdown"}, r.stages)
	assert.ErrorIs(t, outcome.Err, framework.ErrFocusedTests)
	assert.False(t, outcome.TestsRan)
	assert.Equal(t, 1, outcome.ExitCode())
}
