package config

import (
	"os"
	"strings"
)

// Names of the environment variables the harness reads.
const (
	EnvCI         = "CI"
	EnvBaseURL    = "PLAYWRIGHT_BASE_URL"
	EnvBackendURL = "TEST_BACKEND_URL"
	EnvMockTestID = "TEST_MOCK_TEST_ID"
	EnvTestUserID = "TEST_USER_ID"
	EnvHeadless   = "HEADLESS"
)

// Env is the environment of one test run, as set by whoever invoked the harness. It is
// read once and then passed around explicitly.
type Env struct {
	CI         bool
	BaseURL    string
	BackendURL string
	MockTestID string
	TestUserID string
	Headless   *bool
}

// EnvFromOS reads Env from the process environment.
func EnvFromOS() Env {
	return EnvFromLookup(os.LookupEnv)
}

// EnvFromLookup reads Env through lookup, which has the signature of os.LookupEnv.
func EnvFromLookup(lookup func(string) (string, bool)) Env {
	get := func(name string) string {
		v, _ := lookup(name)
		return strings.TrimSpace(v)
	}
	env := Env{
		CI:         truthy(get(EnvCI)),
		BaseURL:    get(EnvBaseURL),
		BackendURL: get(EnvBackendURL),
		MockTestID: get(EnvMockTestID),
		TestUserID: get(EnvTestUserID),
	}
	if v, ok := lookup(EnvHeadless); ok && strings.TrimSpace(v) != "" {
		headless := truthy(v)
		env.Headless = &headless
	}
	return env
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "no", "off":
		return false
	default:
		return true
	}
}
