package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/prepwise/website-e2e/config"
)

// ArtifactPolicy decides which recordings to make for an attempt of a test and which
// to keep once the outcome is known.
type ArtifactPolicy struct {
	Trace      config.TraceMode
	Video      config.VideoMode
	Screenshot config.ScreenshotMode
	Dir        string
}

func PolicyFromConfig(cfg config.Config) ArtifactPolicy {
	return ArtifactPolicy{
		Trace:      cfg.Trace,
		Video:      cfg.Video,
		Screenshot: cfg.Screenshot,
		Dir:        cfg.OutputDir,
	}
}

func (p ArtifactPolicy) TraceEnabled(attempt int) bool {
	switch p.Trace {
	case config.TraceOn, config.TraceRetainOnFailure:
		return true
	case config.TraceOnFirstRetry:
		return attempt == 1
	default:
		return false
	}
}

func (p ArtifactPolicy) KeepTrace(failed bool, attempt int) bool {
	switch p.Trace {
	case config.TraceOn:
		return true
	case config.TraceRetainOnFailure:
		return failed
	case config.TraceOnFirstRetry:
		return attempt == 1
	default:
		return false
	}
}

func (p ArtifactPolicy) RecordVideo(attempt int) bool {
	switch p.Video {
	case config.VideoOn, config.VideoRetainOnFailure:
		return true
	case config.VideoOnFirstRetry:
		return attempt == 1
	default:
		return false
	}
}

func (p ArtifactPolicy) KeepVideo(failed bool, attempt int) bool {
	switch p.Video {
	case config.VideoOn:
		return true
	case config.VideoRetainOnFailure:
		return failed
	case config.VideoOnFirstRetry:
		return attempt == 1
	default:
		return false
	}
}

func (p ArtifactPolicy) TakeScreenshot(failed bool) bool {
	switch p.Screenshot {
	case config.ScreenshotOn:
		return true
	case config.ScreenshotOnlyOnFailure:
		return failed
	default:
		return false
	}
}

func (p ArtifactPolicy) ScreenshotPath(name string, attempt int) string {
	return p.path("screenshots", name, attempt, ".png")
}

func (p ArtifactPolicy) VideoPath(name string, attempt int) string {
	return p.path("videos", name, attempt, ".webm")
}

func (p ArtifactPolicy) TracePath(name string, attempt int) string {
	return p.path("traces", name, attempt, ".zip")
}

// VideoTempDir is where videos are recorded before it is known whether to keep them.
func (p ArtifactPolicy) VideoTempDir() string {
	return filepath.Join(p.Dir, "videos", ".recording")
}

func (p ArtifactPolicy) path(kind, name string, attempt int, ext string) string {
	base := Slug(name)
	if attempt > 0 {
		base = fmt.Sprintf("%s-retry%d", base, attempt)
	}
	return filepath.Join(p.Dir, kind, base+ext)
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a test name into something safe to use as a file name.
func Slug(name string) string {
	s := nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "test"
	}
	return s
}

func ensureParent(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
