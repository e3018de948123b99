// Package report writes the results of a run in the formats CI systems and people read:
// JSON, JUnit XML, a static HTML page, and a plain console summary.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prepwise/website-e2e/config"
	"github.com/prepwise/website-e2e/framework"
)

// Meta describes the run the results belong to.
type Meta struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	BaseURL   string
	Projects  []string
	Cleanup   string
}

type Reporter interface {
	Name() string
	Write(results framework.Results, meta Meta) error
}

// New creates the reporters with the given names. File reporters write under outputDir;
// the list reporter writes to out.
func New(names []string, outputDir string, out io.Writer) ([]Reporter, error) {
	var ret []Reporter
	for _, name := range names {
		switch name {
		case config.ReporterJSON:
			ret = append(ret, jsonReporter{path: filepath.Join(outputDir, "results.json")})
		case config.ReporterJUnit:
			ret = append(ret, junitReporter{path: filepath.Join(outputDir, "junit.xml")})
		case config.ReporterHTML:
			ret = append(ret, htmlReporter{path: filepath.Join(outputDir, "html", "index.html"), outputDir: outputDir})
		case config.ReporterList:
			ret = append(ret, listReporter{out: out})
		default:
			return nil, fmt.Errorf("unknown reporter %q", name)
		}
	}
	return ret, nil
}

// WriteAll runs every reporter, even if some of them fail.
func WriteAll(reporters []Reporter, results framework.Results, meta Meta) error {
	var errs []error
	for _, r := range reporters {
		if err := r.Write(results, meta); err != nil {
			errs = append(errs, fmt.Errorf("%s reporter: %w", r.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// project and title split a test ID into the matrix project it ran in and the rest of
// its path.
func project(id framework.TestID) string {
	if len(id.Path) == 0 {
		return ""
	}
	return id.Path[0]
}

func title(id framework.TestID) string {
	if len(id.Path) < 2 {
		return id.String()
	}
	return strings.Join(id.Path[1:], " › ")
}

func errorStrings(errs []error) []string {
	ret := make([]string, 0, len(errs))
	for _, e := range errs {
		ret = append(ret, e.Error())
	}
	return ret
}

type stats struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Flaky   int `json:"flaky"`
	Skipped int `json:"skipped"`
}

func statsOf(results framework.Results) stats {
	return stats{
		Total:   len(results.Tests),
		Passed:  results.Count("passed"),
		Failed:  results.Count("failed"),
		Flaky:   results.Count("flaky"),
		Skipped: results.Count("skipped"),
	}
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
