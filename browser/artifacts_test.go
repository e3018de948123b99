package browser

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prepwise/website-e2e/config"
)

func TestTracePolicy(t *testing.T) {
	for _, tc := range []struct {
		mode                         config.TraceMode
		enabled0, enabled1, enabled2 bool
		keepPass0, keepFail0         bool
		keepPass1                    bool
	}{
		{config.TraceOff, false, false, false, false, false, false},
		{config.TraceOn, true, true, true, true, true, true},
		{config.TraceOnFirstRetry, false, true, false, false, false, true},
		{config.TraceRetainOnFailure, true, true, true, false, true, false},
	} {
		t.Run(string(tc.mode), func(t *testing.T) {
			p := ArtifactPolicy{Trace: tc.mode}
			assert.Equal(t, tc.enabled0, p.TraceEnabled(0))
			assert.Equal(t, tc.enabled1, p.TraceEnabled(1))
			assert.Equal(t, tc.enabled2, p.TraceEnabled(2))
			assert.Equal(t, tc.keepPass0, p.KeepTrace(false, 0))
			assert.Equal(t, tc.keepFail0, p.KeepTrace(true, 0))
			assert.Equal(t, tc.keepPass1, p.KeepTrace(false, 1))
		})
	}
}

func TestVideoPolicy(t *testing.T) {
	for _, tc := range []struct {
		mode                 config.VideoMode
		record0, record1     bool
		keepPass0, keepFail0 bool
	}{
		{config.VideoOff, false, false, false, false},
		{config.VideoOn, true, true, true, true},
		{config.VideoOnFirstRetry, false, true, false, false},
		{config.VideoRetainOnFailure, true, true, false, true},
	} {
		t.Run(string(tc.mode), func(t *testing.T) {
			p := ArtifactPolicy{Video: tc.mode}
			assert.Equal(t, tc.record0, p.RecordVideo(0))
			assert.Equal(t, tc.record1, p.RecordVideo(1))
			assert.Equal(t, tc.keepPass0, p.KeepVideo(false, 0))
			assert.Equal(t, tc.keepFail0, p.KeepVideo(true, 0))
		})
	}
}

func TestScreenshotPolicy(t *testing.T) {
	assert.False(t, ArtifactPolicy{Screenshot: config.ScreenshotOff}.TakeScreenshot(true))
	assert.True(t, ArtifactPolicy{Screenshot: config.ScreenshotOn}.TakeScreenshot(false))
	assert.False(t, ArtifactPolicy{Screenshot: config.ScreenshotOnlyOnFailure}.TakeScreenshot(false))
	assert.True(t, ArtifactPolicy{Screenshot: config.ScreenshotOnlyOnFailure}.TakeScreenshot(true))
}

func TestArtifactPaths(t *testing.T) {
	p := ArtifactPolicy{Dir: "test-results"}
	assert.Equal(t, filepath.Join("test-results", "screenshots", "mobile-chrome-home-page-renders.png"),
		p.ScreenshotPath("Mobile Chrome/home page/renders", 0))
	assert.Equal(t, filepath.Join("test-results", "traces", "chromium-home-retry1.zip"),
		p.TracePath("chromium/home", 1))
	assert.Equal(t, filepath.Join("test-results", "videos", "chromium-home.webm"),
		p.VideoPath("chromium/home", 0))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "unknown-route-yields-404", Slug("Unknown route yields 404!"))
	assert.Equal(t, "test", Slug("///"))
}

func TestPolicyFromConfig(t *testing.T) {
	cfg := config.Default(config.Env{})
	p := PolicyFromConfig(cfg)
	assert.Equal(t, config.TraceOnFirstRetry, p.Trace)
	assert.Equal(t, config.VideoRetainOnFailure, p.Video)
	assert.Equal(t, config.ScreenshotOnlyOnFailure, p.Screenshot)
	assert.Equal(t, cfg.OutputDir, p.Dir)
}
