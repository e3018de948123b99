package framework

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type Results struct {
	Tests    []TestResult
	Failures []TestResult
}

type TestResult struct {
	TestID      TestID
	Errors      []error
	Skipped     bool
	SkipReason  string
	Failed      bool
	Attempts    int
	Duration    time.Duration
	Attachments []Attachment
}

type Attachment struct {
	Name string
	Path string
}

// Status is one of "passed", "failed", "skipped" or "flaky". A flaky test failed at
// least once but passed on a retry.
func (r TestResult) Status() string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Failed:
		return "failed"
	case r.Attempts > 1:
		return "flaky"
	default:
		return "passed"
	}
}

func (r Results) OK() bool {
	return len(r.Failures) == 0
}

// Count returns the number of tests with the given status.
func (r Results) Count(status string) int {
	n := 0
	for _, t := range r.Tests {
		if t.Status() == status {
			n++
		}
	}
	return n
}

func (r *Results) add(result TestResult) {
	r.Tests = append(r.Tests, result)
	if result.Failed {
		r.Failures = append(r.Failures, result)
	}
}

func (r *Results) sort() {
	less := func(list []TestResult) func(i, j int) bool {
		return func(i, j int) bool { return list[i].TestID.String() < list[j].TestID.String() }
	}
	sort.SliceStable(r.Tests, less(r.Tests))
	sort.SliceStable(r.Failures, less(r.Failures))
}

type TestID struct {
	Path []string
}

func NewTestID(path ...string) TestID {
	return TestID{Path: append([]string(nil), path...)}
}

func (t TestID) String() string {
	return strings.Join(t.Path, "/")
}

// Plus returns a new TestID with name appended. The receiver is not modified.
func (t TestID) Plus(name string) TestID {
	p := make([]string, 0, len(t.Path)+1)
	return TestID{Path: append(append(p, t.Path...), name)}
}

type TestFailure struct {
	ID  TestID
	Err error
}

func (f TestFailure) Error() string {
	return fmt.Sprintf("[%s]: %s", f.ID, f.Err)
}

// testify puts a leading newline and tab-aligned blocks in its messages; keep them readable
// when printed on one indented line.
func reformatError(err error) error {
	s := strings.TrimLeft(err.Error(), "\n")
	s = strings.ReplaceAll(s, "\t", "  ")
	return fmt.Errorf("%s", s)
}
