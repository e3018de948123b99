package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the working directory when no file is given.
const DefaultFileName = "e2e.yaml"

// fileConfig mirrors Config with pointer fields so that a file can leave any setting at
// its default.
type fileConfig struct {
	TestDir       *string         `yaml:"testDir"`
	FullyParallel *bool           `yaml:"fullyParallel"`
	ForbidOnly    *bool           `yaml:"forbidOnly"`
	Retries       *int            `yaml:"retries"`
	Workers       *int            `yaml:"workers"`
	Timeout       *Duration       `yaml:"timeout"`
	ExpectTimeout *Duration       `yaml:"expectTimeout"`
	BaseURL       *string         `yaml:"baseURL"`
	BackendURL    *string         `yaml:"backendURL"`
	Trace         *TraceMode      `yaml:"trace"`
	Video         *VideoMode      `yaml:"video"`
	Screenshot    *ScreenshotMode `yaml:"screenshot"`
	OutputDir     *string         `yaml:"outputDir"`
	Reporters     []string        `yaml:"reporters"`
	Driver        *string         `yaml:"driver"`
	Headless      *bool           `yaml:"headless"`
	Projects      []Project       `yaml:"projects"`
	WebServers    []WebServer     `yaml:"webServer"`
	Cleanup       *CleanupConfig  `yaml:"cleanup"`
}

// Load resolves the configuration of a run by layering the defaults, the YAML file at
// path and the environment. An empty path means DefaultFileName if it exists. The result
// is validated.
func Load(path string, env Env) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			cfg := Default(env)
			return cfg, cfg.Validate()
		}
		return Config{}, fmt.Errorf("error reading config from %s: %w", path, err)
	}
	cfg, err := Parse(bytes.NewReader(data), env)
	if err != nil {
		return Config{}, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Parse is Load for an already opened file.
func Parse(r io.Reader, env Env) (Config, error) {
	var file fileConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}

	cfg := Default(env)
	mergeFile(&cfg, file, env.CI)
	applyCIPolicy(&cfg, env.CI, file.Retries != nil, file.Workers != nil)
	applyEnv(&cfg, env)
	return cfg, cfg.Validate()
}

func mergeFile(cfg *Config, file fileConfig, ci bool) {
	setString(&cfg.TestDir, file.TestDir)
	setBool(&cfg.FullyParallel, file.FullyParallel)
	setBool(&cfg.ForbidOnly, file.ForbidOnly)
	if file.Retries != nil {
		cfg.Retries = *file.Retries
	}
	if file.Workers != nil {
		cfg.Workers = ldvalue.NewOptionalInt(*file.Workers)
	}
	if file.Timeout != nil {
		cfg.Timeout = *file.Timeout
	}
	if file.ExpectTimeout != nil {
		cfg.ExpectTimeout = *file.ExpectTimeout
	}
	setString(&cfg.BaseURL, file.BaseURL)
	setString(&cfg.BackendURL, file.BackendURL)
	if file.Trace != nil {
		cfg.Trace = *file.Trace
	}
	if file.Video != nil {
		cfg.Video = *file.Video
	}
	if file.Screenshot != nil {
		cfg.Screenshot = *file.Screenshot
	}
	setString(&cfg.OutputDir, file.OutputDir)
	if file.Reporters != nil {
		cfg.Reporters = file.Reporters
	}
	setString(&cfg.Driver, file.Driver)
	setBool(&cfg.Headless, file.Headless)
	if file.Projects != nil {
		cfg.Projects = file.Projects
	}
	if file.WebServers != nil {
		cfg.WebServers = make([]WebServer, 0, len(file.WebServers))
		for _, ws := range file.WebServers {
			if ws.Timeout == 0 {
				ws.Timeout = Duration(defaultWebServerTimeout)
			}
			// reuse is never allowed on CI, whatever the file says
			if ci {
				ws.ReuseExistingServer = false
			}
			cfg.WebServers = append(cfg.WebServers, ws)
		}
	}
	if file.Cleanup != nil {
		cfg.Cleanup = *file.Cleanup
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

// Validate reports the first problem found in the configuration.
func (c Config) Validate() error {
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Retries)
	}
	if c.Workers.IsDefined() && c.Workers.IntValue() < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers.IntValue())
	}
	if c.Timeout < 0 || c.ExpectTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.BaseURL == "" {
		return errors.New("baseURL is required")
	}
	if c.BackendURL == "" {
		return errors.New("backendURL is required")
	}
	switch c.Trace {
	case TraceOff, TraceOn, TraceOnFirstRetry, TraceRetainOnFailure:
	default:
		return fmt.Errorf("unknown trace mode %q", c.Trace)
	}
	switch c.Video {
	case VideoOff, VideoOn, VideoOnFirstRetry, VideoRetainOnFailure:
	default:
		return fmt.Errorf("unknown video mode %q", c.Video)
	}
	switch c.Screenshot {
	case ScreenshotOff, ScreenshotOn, ScreenshotOnlyOnFailure:
	default:
		return fmt.Errorf("unknown screenshot mode %q", c.Screenshot)
	}
	for _, r := range c.Reporters {
		switch r {
		case ReporterHTML, ReporterJSON, ReporterJUnit, ReporterList:
		default:
			return fmt.Errorf("unknown reporter %q", r)
		}
	}
	switch c.Driver {
	case DriverPlaywright, DriverRod:
	default:
		return fmt.Errorf("unknown browser driver %q", c.Driver)
	}
	if len(c.Projects) == 0 {
		return errors.New("at least one project is required")
	}
	seen := make(map[string]bool)
	for _, p := range c.Projects {
		if p.Name == "" {
			return errors.New("project name is required")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate project name %q", p.Name)
		}
		seen[p.Name] = true
		switch p.Browser {
		case Chromium, Firefox, WebKit:
		default:
			return fmt.Errorf("project %q: unknown browser %q", p.Name, p.Browser)
		}
		if c.Driver == DriverRod && p.Browser != Chromium {
			return fmt.Errorf("project %q: the rod driver only supports %s", p.Name, Chromium)
		}
	}
	for i, ws := range c.WebServers {
		name := ws.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}
		if ws.Command == "" {
			return fmt.Errorf("web server %s: command is required", name)
		}
		if ws.Port < 1 || ws.Port > 65535 {
			return fmt.Errorf("web server %s: port %d is out of range", name, ws.Port)
		}
		if ws.Timeout <= 0 {
			return fmt.Errorf("web server %s: timeout must be positive", name)
		}
	}
	return nil
}

// SelectProjects narrows the matrix to the named projects, keeping configuration order.
func (c Config) SelectProjects(names []string) (Config, error) {
	if len(names) == 0 {
		return c, nil
	}
	byName := make(map[string]Project)
	for _, p := range c.Projects {
		byName[p.Name] = p
	}
	wanted := make(map[string]bool)
	for _, n := range names {
		if _, ok := byName[n]; !ok {
			return c, fmt.Errorf("unknown project %q", n)
		}
		wanted[n] = true
	}
	var selected []Project
	for _, p := range c.Projects {
		if wanted[p.Name] {
			selected = append(selected, p)
		}
	}
	c.Projects = selected
	return c, nil
}

// YAML renders the resolved configuration, including the effective worker count.
func (c Config) YAML() ([]byte, error) {
	type resolved struct {
		Config  `yaml:",inline"`
		CI      bool `yaml:"ci"`
		Workers int  `yaml:"workers"`
	}
	return yaml.Marshal(resolved{Config: c, CI: c.CI, Workers: c.EffectiveWorkers()})
}
