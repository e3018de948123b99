package report

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/prepwise/website-e2e/framework"
)

var (
	passedColor  = color.New(color.FgGreen)
	failedColor  = color.New(color.FgRed, color.Bold)
	flakyColor   = color.New(color.FgYellow)
	skippedColor = color.New(color.FgHiBlack)
)

// listReporter prints the end-of-run summary. Per-test progress is printed while the
// tests run by the console test logger.
type listReporter struct {
	out io.Writer
}

func (r listReporter) Name() string { return "list" }

func (r listReporter) Write(results framework.Results, meta Meta) error {
	PrintResults(r.out, results, meta)
	return nil
}

// PrintResults prints the failed and flaky tests of a run followed by the totals.
func PrintResults(out io.Writer, results framework.Results, meta Meta) {
	s := statsOf(results)
	fmt.Fprintln(out)
	if len(results.Failures) > 0 {
		failedColor.Fprintln(out, "Failed tests:")
		for _, t := range results.Failures {
			fmt.Fprintf(out, "  ❌ %s\n", t.TestID)
			for _, a := range t.Attachments {
				fmt.Fprintf(out, "       %s: %s\n", a.Name, a.Path)
			}
		}
	}
	if s.Flaky > 0 {
		flakyColor.Fprintln(out, "Flaky tests:")
		for _, t := range results.Tests {
			if t.Status() == "flaky" {
				fmt.Fprintf(out, "  ⚠️  %s (passed on attempt %d)\n", t.TestID, t.Attempts)
			}
		}
	}
	passedColor.Fprintf(out, "  %d passed", s.Passed)
	if s.Failed > 0 {
		fmt.Fprint(out, ", ")
		failedColor.Fprintf(out, "%d failed", s.Failed)
	}
	if s.Flaky > 0 {
		fmt.Fprint(out, ", ")
		flakyColor.Fprintf(out, "%d flaky", s.Flaky)
	}
	if s.Skipped > 0 {
		fmt.Fprint(out, ", ")
		skippedColor.Fprintf(out, "%d skipped", s.Skipped)
	}
	if meta.Duration > 0 {
		fmt.Fprintf(out, " (%s)", meta.Duration.Round(time.Millisecond))
	}
	fmt.Fprintln(out)
}
