package lifecycle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prepwise/website-e2e/config"
)

// RunContextFileName is the file, relative to the output directory, where Save puts
// the run context.
const RunContextFileName = ".run-context.json"

type RunContext struct {
	RunID      string          `json:"runId"`
	MockTestID string          `json:"mockTestId,omitempty"`
	TestUserID string          `json:"testUserId,omitempty"`
	BaseURL    string          `json:"baseURL"`
	BackendURL string          `json:"backendURL"`
	CreatedAt  time.Time       `json:"createdAt"`
	Created    CreatedFixtures `json:"created"`
}

// CreatedFixtures records which fixtures setup created, as opposed to reused.
type CreatedFixtures struct {
	MockTest bool `json:"mockTest"`
	TestUser bool `json:"testUser"`
}

// RunContextFromEnv builds a run context from fixture ids given through the
// environment, for a teardown that runs without a saved context.
func RunContextFromEnv(env config.Env, cfg config.Config) RunContext {
	return RunContext{
		MockTestID: env.MockTestID,
		TestUserID: env.TestUserID,
		BaseURL:    cfg.BaseURL,
		BackendURL: cfg.BackendURL,
	}
}

// Environ returns the fixture ids as environment variable assignments, for child
// processes that read them the traditional way.
func (rc RunContext) Environ() []string {
	var ret []string
	if rc.MockTestID != "" {
		ret = append(ret, config.EnvMockTestID+"="+rc.MockTestID)
	}
	if rc.TestUserID != "" {
		ret = append(ret, config.EnvTestUserID+"="+rc.TestUserID)
	}
	return ret
}

func (rc RunContext) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(rc, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, RunContextFileName)
	return path, os.WriteFile(path, data, 0o644)
}

// LoadRunContext reads the run context saved in dir. If there is none, the error
// satisfies errors.Is(err, fs.ErrNotExist).
func LoadRunContext(dir string) (RunContext, error) {
	var rc RunContext
	data, err := os.ReadFile(filepath.Join(dir, RunContextFileName))
	if err != nil {
		return rc, err
	}
	if err := json.Unmarshal(data, &rc); err != nil {
		return rc, fmt.Errorf("malformed run context: %w", err)
	}
	return rc, nil
}

// RemoveRunContext deletes the saved run context, if any.
func RemoveRunContext(dir string) error {
	err := os.Remove(filepath.Join(dir, RunContextFileName))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
