package lifecycle

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/prepwise/website-e2e/config"
	"github.com/prepwise/website-e2e/fixtures"
	"github.com/prepwise/website-e2e/servicedef"
)

type SetupOptions struct {
	BaseURL string
	Output  io.Writer
	// Now is used for CreatedAt; it defaults to time.Now.
	Now func() time.Time
}

// Setup creates the fixtures the suite depends on, or reuses the ones identified in env
// if they still exist. Any failure is returned; the run context returned alongside it
// holds whatever was created before the failure, so that teardown can remove it.
func Setup(ctx context.Context, client *fixtures.Client, env config.Env, opts SetupOptions) (RunContext, error) {
	out := opts.Output
	if out == nil {
		out = io.Discard
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	rc := RunContext{
		RunID:      uuid.NewString(),
		BaseURL:    opts.BaseURL,
		BackendURL: client.BaseURL(),
		CreatedAt:  now().UTC(),
	}
	fmt.Fprintf(out, "🧪 Preparing test data for run %s\n", rc.RunID)

	mockTestID, created, err := ensureMockTest(ctx, client, env.MockTestID, rc.RunID)
	if err != nil {
		return rc, fmt.Errorf("mock test: %w", err)
	}
	rc.MockTestID, rc.Created.MockTest = mockTestID, created
	fmt.Fprintf(out, "✅ Mock test %s (%s)\n", mockTestID, createdOrReused(created))

	testUserID, created, err := ensureTestUser(ctx, client, env.TestUserID, rc.RunID)
	if err != nil {
		return rc, fmt.Errorf("test user: %w", err)
	}
	rc.TestUserID, rc.Created.TestUser = testUserID, created
	fmt.Fprintf(out, "✅ Test user %s (%s)\n", testUserID, createdOrReused(created))

	return rc, nil
}

func ensureMockTest(ctx context.Context, client *fixtures.Client, existingID, runID string) (string, bool, error) {
	if existingID != "" {
		_, found, err := client.GetMockTest(ctx, existingID)
		if err != nil {
			return "", false, err
		}
		if found {
			return existingID, false, nil
		}
	}
	m, err := client.CreateMockTest(ctx, servicedef.CreateMockTestParams{
		RunID:   runID,
		Title:   "E2E mock test " + runID,
		TestRun: true,
	})
	if err != nil {
		return "", false, err
	}
	return m.ID.String(), true, nil
}

func ensureTestUser(ctx context.Context, client *fixtures.Client, existingID, runID string) (string, bool, error) {
	if existingID != "" {
		_, found, err := client.GetTestUser(ctx, existingID)
		if err != nil {
			return "", false, err
		}
		if found {
			return existingID, false, nil
		}
	}
	u, err := client.CreateTestUser(ctx, servicedef.CreateTestUserParams{
		RunID:   runID,
		Email:   fmt.Sprintf("e2e+%s@example.com", runID),
		Name:    "E2E Test User",
		TestRun: true,
	})
	if err != nil {
		return "", false, err
	}
	return u.ID.String(), true, nil
}

func createdOrReused(created bool) string {
	if created {
		return "created"
	}
	return "reused"
}
