package config

import (
	"fmt"
	"time"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
	"gopkg.in/yaml.v3"
)

// TraceMode controls when a browser trace is recorded and kept.
type TraceMode string

const (
	TraceOff             TraceMode = "off"
	TraceOn              TraceMode = "on"
	TraceOnFirstRetry    TraceMode = "on-first-retry"
	TraceRetainOnFailure TraceMode = "retain-on-failure"
)

// VideoMode controls when a video of the page is recorded and kept.
type VideoMode string

const (
	VideoOff             VideoMode = "off"
	VideoOn              VideoMode = "on"
	VideoOnFirstRetry    VideoMode = "on-first-retry"
	VideoRetainOnFailure VideoMode = "retain-on-failure"
)

// ScreenshotMode controls when a screenshot is taken at the end of a test.
type ScreenshotMode string

const (
	ScreenshotOff           ScreenshotMode = "off"
	ScreenshotOn            ScreenshotMode = "on"
	ScreenshotOnlyOnFailure ScreenshotMode = "only-on-failure"
)

// Browser engines.
const (
	Chromium = "chromium"
	Firefox  = "firefox"
	WebKit   = "webkit"
)

// Browser drivers.
const (
	DriverPlaywright = "playwright"
	DriverRod        = "rod"
)

// Reporter names.
const (
	ReporterHTML  = "html"
	ReporterJSON  = "json"
	ReporterJUnit = "junit"
	ReporterList  = "list"
)

// Duration is a time.Duration written as "30s" in YAML.
type Duration time.Duration

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Viewport is a browser window size in CSS pixels.
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Project is one entry of the test matrix: a browser engine, optionally emulating a device.
type Project struct {
	Name     string    `yaml:"name"`
	Browser  string    `yaml:"browser"`
	Device   string    `yaml:"device,omitempty"`
	Viewport *Viewport `yaml:"viewport,omitempty"`
}

// WebServer is an external process that must be listening before any test starts.
type WebServer struct {
	Name                string            `yaml:"name"`
	Command             string            `yaml:"command"`
	Dir                 string            `yaml:"dir,omitempty"`
	Port                int               `yaml:"port"`
	URL                 string            `yaml:"url,omitempty"`
	Env                 map[string]string `yaml:"env,omitempty"`
	Timeout             Duration          `yaml:"timeout"`
	ReuseExistingServer bool              `yaml:"reuseExistingServer"`
}

// CleanupConfig selects optional teardown steps.
type CleanupConfig struct {
	DeleteTestUser bool `yaml:"deleteTestUser"`
}

// Config is the resolved configuration of a test run.
type Config struct {
	CI            bool                `yaml:"-"`
	TestDir       string              `yaml:"testDir"`
	FullyParallel bool                `yaml:"fullyParallel"`
	ForbidOnly    bool                `yaml:"forbidOnly"`
	Retries       int                 `yaml:"retries"`
	Workers       ldvalue.OptionalInt `yaml:"-"`
	Timeout       Duration            `yaml:"timeout"`
	ExpectTimeout Duration            `yaml:"expectTimeout"`
	BaseURL       string              `yaml:"baseURL"`
	BackendURL    string              `yaml:"backendURL"`
	Trace         TraceMode           `yaml:"trace"`
	Video         VideoMode           `yaml:"video"`
	Screenshot    ScreenshotMode      `yaml:"screenshot"`
	OutputDir     string              `yaml:"outputDir"`
	Reporters     []string            `yaml:"reporters"`
	Driver        string              `yaml:"driver"`
	Headless      bool                `yaml:"headless"`
	Projects      []Project           `yaml:"projects"`
	WebServers    []WebServer         `yaml:"webServer"`
	Cleanup       CleanupConfig       `yaml:"cleanup"`
}

// ProjectNames returns the names of the configured projects in order.
func (c Config) ProjectNames() []string {
	names := make([]string, 0, len(c.Projects))
	for _, p := range c.Projects {
		names = append(names, p.Name)
	}
	return names
}
