package report

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepwise/website-e2e/framework"
)

func init() {
	color.NoColor = true
}

func sampleResults() framework.Results {
	passed := framework.TestResult{
		TestID: framework.NewTestID("chromium", "home", "renders"), Attempts: 1, Duration: 1500 * time.Millisecond,
	}
	flaky := framework.TestResult{
		TestID: framework.NewTestID("chromium", "home", "has title"), Attempts: 2, Duration: time.Second,
	}
	failed := framework.TestResult{
		TestID:      framework.NewTestID("Mobile Safari", "routing", "unknown route yields 404"),
		Failed:      true,
		Attempts:    3,
		Errors:      []error{errors.New("expected 404\nactual 200")},
		Attachments: []framework.Attachment{{Name: "screenshot", Path: "out/screenshots/x.png"}},
	}
	skipped := framework.TestResult{
		TestID: framework.NewTestID("Mobile Safari", "home", "renders"), Skipped: true, SkipReason: "excluded",
	}
	return framework.Results{
		Tests:    []framework.TestResult{passed, flaky, failed, skipped},
		Failures: []framework.TestResult{failed},
	}
}

func sampleMeta() Meta {
	return Meta{
		RunID:     "run-1",
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:  5 * time.Second,
		BaseURL:   "http://localhost:3000",
		Projects:  []string{"chromium", "Mobile Safari"},
		Cleanup:   "cleanup: 2 succeeded, 0 failed, 1 skipped",
	}
}

func TestNewRejectsUnknownReporter(t *testing.T) {
	_, err := New([]string{"json", "allure"}, "out", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "allure")
}

func TestJSONReport(t *testing.T) {
	dir := t.TempDir()
	reporters, err := New([]string{"json"}, dir, nil)
	require.NoError(t, err)
	require.NoError(t, WriteAll(reporters, sampleResults(), sampleMeta()))

	data, err := os.ReadFile(filepath.Join(dir, "results.json"))
	require.NoError(t, err)
	var doc jsonReport
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "run-1", doc.RunID)
	assert.Equal(t, int64(5000), doc.DurationMS)
	assert.Equal(t, stats{Total: 4, Passed: 1, Failed: 1, Flaky: 1, Skipped: 1}, doc.Stats)
	require.Len(t, doc.Tests, 4)

	failed := doc.Tests[2]
	assert.Equal(t, "Mobile Safari", failed.Project)
	assert.Equal(t, "routing › unknown route yields 404", failed.Title)
	assert.Equal(t, "failed", failed.Status)
	assert.Equal(t, 3, failed.Attempts)
	assert.Equal(t, []string{"expected 404\nactual 200"}, failed.Errors)
	assert.Equal(t, []jsonAttachment{{Name: "screenshot", Path: "out/screenshots/x.png"}}, failed.Attachments)
	assert.Equal(t, "flaky", doc.Tests[1].Status)
}

func TestJUnitGroupsByProject(t *testing.T) {
	doc := buildJUnit(sampleResults(), sampleMeta())
	assert.Equal(t, 4, doc.Tests)
	assert.Equal(t, 1, doc.Failures)
	assert.Equal(t, 1, doc.Skipped)
	assert.Equal(t, "5.000", doc.Time)
	require.Len(t, doc.Suites, 2)

	chromium := doc.Suites[0]
	assert.Equal(t, "chromium", chromium.Name)
	assert.Equal(t, 2, chromium.Tests)
	assert.Equal(t, "2.500", chromium.Time)
	assert.Equal(t, "home › has title", chromium.Cases[1].Name)
	assert.Equal(t, "attempts: 2", chromium.Cases[1].SystemOut)

	safari := doc.Suites[1]
	assert.Equal(t, 1, safari.Failures)
	require.NotNil(t, safari.Cases[0].Failure)
	assert.Equal(t, "expected 404", safari.Cases[0].Failure.Message)
	assert.Contains(t, safari.Cases[0].SystemOut, "[[ATTACHMENT|out/screenshots/x.png]]")
	require.NotNil(t, safari.Cases[1].Skipped)
	assert.Equal(t, "excluded", safari.Cases[1].Skipped.Message)
}

func TestJUnitFileIsValidXML(t *testing.T) {
	dir := t.TempDir()
	reporters, err := New([]string{"junit"}, dir, nil)
	require.NoError(t, err)
	require.NoError(t, WriteAll(reporters, sampleResults(), sampleMeta()))

	data, err := os.ReadFile(filepath.Join(dir, "junit.xml"))
	require.NoError(t, err)
	var doc junitTestSuites
	require.NoError(t, xml.Unmarshal(data, &doc))
	assert.Len(t, doc.Suites, 2)
}

func TestHTMLReport(t *testing.T) {
	dir := t.TempDir()
	reporters, err := New([]string{"html"}, dir, nil)
	require.NoError(t, err)
	require.NoError(t, WriteAll(reporters, sampleResults(), sampleMeta()))

	data, err := os.ReadFile(filepath.Join(dir, "html", "index.html"))
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "<title>E2E report run-1</title>")
	assert.Contains(t, html, `<td class="failed">failed</td>`)
	assert.Contains(t, html, "routing › unknown route yields 404")
	assert.Contains(t, html, "cleanup: 2 succeeded")
}

func TestHTMLReportRows(t *testing.T) {
	dir := t.TempDir()
	reporters, err := New([]string{"html"}, dir, nil)
	require.NoError(t, err)
	require.NoError(t, WriteAll(reporters, sampleResults(), sampleMeta()))

	f, err := os.Open(filepath.Join(dir, "html", "index.html"))
	require.NoError(t, err)
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err)

	rows := doc.Find("table tr").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("td").Length() > 0
	})
	assert.Equal(t, 4, rows.Length())

	failed := rows.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("td.failed").Length() > 0
	})
	require.Equal(t, 1, failed.Length())
	assert.Equal(t, "Mobile Safari", strings.TrimSpace(failed.Find("td").First().Text()))
	assert.Equal(t, "3", strings.TrimSpace(failed.Find("td").Eq(3).Text()))
	assert.Equal(t, "expected 404\nactual 200", failed.Find("pre").Text())
	link := failed.Find("a")
	assert.Equal(t, "screenshot", link.Text())
	href, ok := link.Attr("href")
	assert.True(t, ok)
	assert.True(t, strings.HasSuffix(href, "screenshots/x.png"), href)
}

func TestHTMLAttachmentLinksAreRelative(t *testing.T) {
	r := htmlReporter{path: filepath.Join("test-results", "html", "index.html")}
	assert.Equal(t, "../screenshots/x.png", r.href(filepath.Join("test-results", "screenshots", "x.png")))
}

func TestListReporter(t *testing.T) {
	var out bytes.Buffer
	reporters, err := New([]string{"list"}, "", &out)
	require.NoError(t, err)
	require.NoError(t, WriteAll(reporters, sampleResults(), sampleMeta()))

	s := out.String()
	assert.Contains(t, s, "❌ Mobile Safari/routing/unknown route yields 404")
	assert.Contains(t, s, "screenshot: out/screenshots/x.png")
	assert.Contains(t, s, "chromium/home/has title (passed on attempt 2)")
	assert.Contains(t, s, "1 passed, 1 failed, 1 flaky, 1 skipped (5s)")
}

func TestWriteAllContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "html")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0o644))

	reporters, err := New([]string{"html", "json"}, dir, nil)
	require.NoError(t, err)
	err = WriteAll(reporters, sampleResults(), sampleMeta())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "html reporter")
	assert.FileExists(t, filepath.Join(dir, "results.json"))
}
