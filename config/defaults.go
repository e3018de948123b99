package config

import (
	"runtime"
	"time"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const (
	DefaultBaseURL    = "http://localhost:3000"
	DefaultBackendURL = "http://localhost:8000"
	DefaultOutputDir  = "test-results"

	defaultTimeout          = 30 * time.Second
	defaultExpectTimeout    = 5 * time.Second
	defaultWebServerTimeout = 120 * time.Second

	ciRetries = 2
	ciWorkers = 1
)

// Default returns the configuration used when no file is given, with the CI policy
// applied: on CI failed tests are retried twice and run one at a time; locally there
// are no retries and parallelism is left to the runner.
func Default(env Env) Config {
	cfg := Config{
		CI:            env.CI,
		TestDir:       "./e2e",
		FullyParallel: true,
		ForbidOnly:    env.CI,
		Timeout:       Duration(defaultTimeout),
		ExpectTimeout: Duration(defaultExpectTimeout),
		BaseURL:       DefaultBaseURL,
		BackendURL:    DefaultBackendURL,
		Trace:         TraceOnFirstRetry,
		Video:         VideoRetainOnFailure,
		Screenshot:    ScreenshotOnlyOnFailure,
		OutputDir:     DefaultOutputDir,
		Reporters:     []string{ReporterHTML, ReporterJSON, ReporterJUnit, ReporterList},
		Driver:        DriverPlaywright,
		Headless:      true,
		Projects: []Project{
			{Name: "chromium", Browser: Chromium, Device: "Desktop Chrome"},
			{Name: "firefox", Browser: Firefox, Device: "Desktop Firefox"},
			{Name: "webkit", Browser: WebKit, Device: "Desktop Safari"},
			{Name: "Mobile Chrome", Browser: Chromium, Device: "Pixel 5"},
			{Name: "Mobile Safari", Browser: WebKit, Device: "iPhone 12"},
		},
		WebServers: []WebServer{
			{
				Name:                "frontend",
				Command:             "npm start",
				Port:                3000,
				Timeout:             Duration(defaultWebServerTimeout),
				ReuseExistingServer: !env.CI,
			},
			{
				Name:                "backend",
				Command:             "npm run start:backend",
				Port:                8000,
				Timeout:             Duration(defaultWebServerTimeout),
				ReuseExistingServer: !env.CI,
			},
		},
	}
	applyCIPolicy(&cfg, env.CI, false, false)
	applyEnv(&cfg, env)
	return cfg
}

func applyCIPolicy(cfg *Config, ci, retriesSet, workersSet bool) {
	if !retriesSet {
		if ci {
			cfg.Retries = ciRetries
		} else {
			cfg.Retries = 0
		}
	}
	if !workersSet {
		if ci {
			cfg.Workers = ldvalue.NewOptionalInt(ciWorkers)
		} else {
			cfg.Workers = ldvalue.OptionalInt{}
		}
	}
}

func applyEnv(cfg *Config, env Env) {
	if env.BaseURL != "" {
		cfg.BaseURL = env.BaseURL
	}
	if env.BackendURL != "" {
		cfg.BackendURL = env.BackendURL
	}
	if env.Headless != nil {
		cfg.Headless = *env.Headless
	}
}

// EffectiveWorkers is the number of units the runner may execute at once: the configured
// value, or half of the available CPUs when unconstrained.
func (c Config) EffectiveWorkers() int {
	if c.Workers.IsDefined() {
		return c.Workers.IntValue()
	}
	n := runtime.NumCPU() / 2
	if n < 1 {
		n = 1
	}
	return n
}
