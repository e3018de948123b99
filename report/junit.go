package report

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prepwise/website-e2e/framework"
)

type junitTestSuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Name     string           `xml:"name,attr,omitempty"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Skipped  int              `xml:"skipped,attr"`
	Time     string           `xml:"time,attr"`
	Suites   []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      string          `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr,omitempty"`
	Cases     []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	Skipped   *junitSkipped `xml:"skipped,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Text    string `xml:",chardata"`
}

type junitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

type junitReporter struct {
	path string
}

func (r junitReporter) Name() string { return "junit" }

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// buildJUnit groups the results into one test suite per project, in the order projects
// first appear.
func buildJUnit(results framework.Results, meta Meta) junitTestSuites {
	doc := junitTestSuites{Name: "website-e2e", Time: seconds(meta.Duration)}
	index := map[string]int{}
	timestamp := ""
	if !meta.StartedAt.IsZero() {
		timestamp = meta.StartedAt.UTC().Format(time.RFC3339)
	}
	for _, t := range results.Tests {
		p := project(t.TestID)
		i, ok := index[p]
		if !ok {
			i = len(doc.Suites)
			index[p] = i
			doc.Suites = append(doc.Suites, junitTestSuite{Name: p, Timestamp: timestamp})
		}
		suite := &doc.Suites[i]

		tc := junitTestCase{Name: title(t.TestID), ClassName: p, Time: seconds(t.Duration)}
		switch t.Status() {
		case "failed":
			msgs := errorStrings(t.Errors)
			message := "test failed"
			if len(msgs) > 0 {
				message = strings.SplitN(msgs[0], "\n", 2)[0]
			}
			tc.Failure = &junitFailure{Message: message, Text: strings.Join(msgs, "\n\n")}
			suite.Failures++
			doc.Failures++
		case "skipped":
			tc.Skipped = &junitSkipped{Message: t.SkipReason}
			suite.Skipped++
			doc.Skipped++
		}
		var out []string
		if t.Attempts > 1 {
			out = append(out, fmt.Sprintf("attempts: %d", t.Attempts))
		}
		for _, a := range t.Attachments {
			out = append(out, fmt.Sprintf("[[ATTACHMENT|%s]]", a.Path))
		}
		tc.SystemOut = strings.Join(out, "\n")

		suite.Cases = append(suite.Cases, tc)
		suite.Tests++
		doc.Tests++
	}
	for i := range doc.Suites {
		var total time.Duration
		for _, t := range results.Tests {
			if project(t.TestID) == doc.Suites[i].Name {
				total += t.Duration
			}
		}
		doc.Suites[i].Time = seconds(total)
	}
	return doc
}

func (r junitReporter) Write(results framework.Results, meta Meta) error {
	doc := buildJUnit(results, meta)
	return writeFile(r.path, func(w io.Writer) error {
		if _, err := io.WriteString(w, xml.Header); err != nil {
			return err
		}
		enc := xml.NewEncoder(w)
		enc.Indent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	})
}
