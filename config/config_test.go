package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func TestEnvFromLookup(t *testing.T) {
	env := EnvFromLookup(lookupFrom(map[string]string{
		EnvCI:         "true",
		EnvBaseURL:    "http://site.test",
		EnvMockTestID: " abc123 ",
		EnvHeadless:   "false",
	}))
	assert.True(t, env.CI)
	assert.Equal(t, "http://site.test", env.BaseURL)
	assert.Equal(t, "abc123", env.MockTestID)
	assert.Empty(t, env.TestUserID)
	require.NotNil(t, env.Headless)
	assert.False(t, *env.Headless)
}

func TestCIFlagValues(t *testing.T) {
	for value, expected := range map[string]bool{
		"": false, "0": false, "false": false, "FALSE": false,
		"1": true, "true": true, "yes": true,
	} {
		env := EnvFromLookup(lookupFrom(map[string]string{EnvCI: value}))
		assert.Equal(t, expected, env.CI, "CI=%q", value)
	}
}

func TestDefaultOnCI(t *testing.T) {
	cfg := Default(Env{CI: true})
	assert.Equal(t, 2, cfg.Retries)
	require.True(t, cfg.Workers.IsDefined())
	assert.Equal(t, 1, cfg.Workers.IntValue())
	assert.Equal(t, 1, cfg.EffectiveWorkers())
	assert.True(t, cfg.ForbidOnly)
	for _, ws := range cfg.WebServers {
		assert.False(t, ws.ReuseExistingServer, ws.Name)
	}
	assert.NoError(t, cfg.Validate())
}

func TestDefaultLocally(t *testing.T) {
	cfg := Default(Env{})
	assert.Equal(t, 0, cfg.Retries)
	assert.False(t, cfg.Workers.IsDefined())
	assert.GreaterOrEqual(t, cfg.EffectiveWorkers(), 1)
	assert.False(t, cfg.ForbidOnly)
	for _, ws := range cfg.WebServers {
		assert.True(t, ws.ReuseExistingServer, ws.Name)
	}
	assert.Equal(t, []string{"chromium", "firefox", "webkit", "Mobile Chrome", "Mobile Safari"}, cfg.ProjectNames())
	assert.Equal(t, TraceOnFirstRetry, cfg.Trace)
	assert.Equal(t, VideoRetainOnFailure, cfg.Video)
	assert.Equal(t, ScreenshotOnlyOnFailure, cfg.Screenshot)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultHonorsBaseURLFromEnvironment(t *testing.T) {
	cfg := Default(Env{BaseURL: "https://staging.example.com"})
	assert.Equal(t, "https://staging.example.com", cfg.BaseURL)
	assert.Equal(t, DefaultBackendURL, cfg.BackendURL)
}

func TestParseOverridesDefaults(t *testing.T) {
	doc := `
retries: 1
workers: 4
timeout: 45s
trace: retain-on-failure
reporters: [json]
projects:
  - name: chromium
    browser: chromium
webServer:
  - name: app
    command: npm run dev
    port: 3001
    reuseExistingServer: true
cleanup:
  deleteTestUser: true
`
	cfg, err := Parse(strings.NewReader(doc), Env{})
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Retries)
	assert.Equal(t, 4, cfg.EffectiveWorkers())
	assert.Equal(t, 45*time.Second, time.Duration(cfg.Timeout))
	assert.Equal(t, TraceRetainOnFailure, cfg.Trace)
	assert.Equal(t, []string{"json"}, cfg.Reporters)
	require.Len(t, cfg.WebServers, 1)
	assert.Equal(t, 3001, cfg.WebServers[0].Port)
	assert.Empty(t, cfg.WebServers[0].URL, "without a URL readiness is a TCP connect")
	assert.Equal(t, defaultWebServerTimeout, time.Duration(cfg.WebServers[0].Timeout))
	assert.True(t, cfg.WebServers[0].ReuseExistingServer)
	assert.True(t, cfg.Cleanup.DeleteTestUser)
}

func TestParseOnCIKeepsExplicitRetriesButNeverReusesServers(t *testing.T) {
	doc := `
retries: 5
webServer:
  - name: app
    command: npm start
    port: 3000
    reuseExistingServer: true
`
	cfg, err := Parse(strings.NewReader(doc), Env{CI: true})
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Retries)
	assert.Equal(t, 1, cfg.Workers.IntValue())
	assert.False(t, cfg.WebServers[0].ReuseExistingServer)
}

func TestParseEmptyDocumentGivesDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""), Env{CI: true})
	require.NoError(t, err)
	assert.Equal(t, Default(Env{CI: true}), cfg)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("retires: 2\n"), Env{})
	assert.Error(t, err)
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	cases := map[string]string{
		"unknown trace":     "trace: sometimes\n",
		"unknown reporter":  "reporters: [tap]\n",
		"negative retries":  "retries: -1\n",
		"zero workers":      "workers: 0\n",
		"duplicate project": "projects: [{name: a, browser: chromium}, {name: a, browser: firefox}]\n",
		"unknown browser":   "projects: [{name: a, browser: lynx}]\n",
		"no command":        "webServer: [{name: app, port: 3000}]\n",
		"bad port":          "webServer: [{name: app, command: x, port: 70000}]\n",
		"rod with firefox":  "driver: rod\nprojects: [{name: f, browser: firefox}]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(doc), Env{})
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingDefaultFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	cfg, err := Load("", Env{})
	require.NoError(t, err)
	assert.Equal(t, Default(Env{}), cfg)
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), Env{})
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "e2e.yaml")
	require.NoError(t, os.WriteFile(path, []byte("outputDir: out\n"), 0o600))
	cfg, err := Load(path, Env{})
	require.NoError(t, err)
	assert.Equal(t, "out", cfg.OutputDir)
}

func TestSelectProjects(t *testing.T) {
	cfg := Default(Env{})
	selected, err := cfg.SelectProjects([]string{"webkit", "chromium"})
	require.NoError(t, err)
	assert.Equal(t, []string{"chromium", "webkit"}, selected.ProjectNames())

	_, err = cfg.SelectProjects([]string{"netscape"})
	assert.Error(t, err)
}

func TestYAMLIncludesEffectiveWorkers(t *testing.T) {
	data, err := Default(Env{CI: true}).YAML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "workers: 1")
	assert.Contains(t, string(data), "timeout: 30s")
	assert.Contains(t, string(data), "ci: true")
}
