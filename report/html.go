package report

import (
	"html/template"
	"io"
	"path/filepath"

	"github.com/prepwise/website-e2e/framework"
)

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>E2E report{{if .RunID}} {{.RunID}}{{end}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; }
table { border-collapse: collapse; width: 100%; }
td, th { border-bottom: 1px solid #ddd; padding: .4rem; text-align: left; vertical-align: top; }
.passed { color: #1a7f37; } .failed { color: #cf222e; } .flaky { color: #9a6700; } .skipped { color: #6e7781; }
pre { white-space: pre-wrap; margin: 0; }
</style>
</head>
<body>
<h1>E2E report</h1>
<p>
{{if .BaseURL}}Base URL {{.BaseURL}} · {{end}}{{.Stats.Total}} tests:
<span class="passed">{{.Stats.Passed}} passed</span>,
<span class="failed">{{.Stats.Failed}} failed</span>,
<span class="flaky">{{.Stats.Flaky}} flaky</span>,
<span class="skipped">{{.Stats.Skipped}} skipped</span>
{{if .Duration}} in {{.Duration}}{{end}}
</p>
{{if .Cleanup}}<p>{{.Cleanup}}</p>{{end}}
<table>
<tr><th>Project</th><th>Test</th><th>Status</th><th>Attempts</th><th>Duration</th><th>Details</th></tr>
{{range .Tests}}<tr>
<td>{{.Project}}</td>
<td>{{.Title}}</td>
<td class="{{.Status}}">{{.Status}}</td>
<td>{{.Attempts}}</td>
<td>{{.Duration}}</td>
<td>{{range .Errors}}<pre>{{.}}</pre>{{end}}{{if .SkipReason}}{{.SkipReason}}{{end}}{{range .Attachments}}<a href="{{.Href}}">{{.Name}}</a> {{end}}</td>
</tr>
{{end}}</table>
</body>
</html>
`))

type htmlReport struct {
	RunID    string
	BaseURL  string
	Duration string
	Cleanup  string
	Stats    stats
	Tests    []htmlTest
}

type htmlTest struct {
	Project     string
	Title       string
	Status      string
	Attempts    int
	Duration    string
	Errors      []string
	SkipReason  string
	Attachments []htmlAttachment
}

type htmlAttachment struct {
	Name string
	Href string
}

type htmlReporter struct {
	path      string
	outputDir string
}

func (r htmlReporter) Name() string { return "html" }

// href makes an attachment path relative to the report, so that the output directory
// can be archived and opened anywhere.
func (r htmlReporter) href(path string) string {
	rel, err := filepath.Rel(filepath.Dir(r.path), path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (r htmlReporter) Write(results framework.Results, meta Meta) error {
	report := htmlReport{
		RunID:   meta.RunID,
		BaseURL: meta.BaseURL,
		Cleanup: meta.Cleanup,
		Stats:   statsOf(results),
	}
	if meta.Duration > 0 {
		report.Duration = meta.Duration.String()
	}
	for _, t := range results.Tests {
		ht := htmlTest{
			Project:    project(t.TestID),
			Title:      title(t.TestID),
			Status:     t.Status(),
			Attempts:   t.Attempts,
			Duration:   t.Duration.String(),
			Errors:     errorStrings(t.Errors),
			SkipReason: t.SkipReason,
		}
		for _, a := range t.Attachments {
			ht.Attachments = append(ht.Attachments, htmlAttachment{Name: a.Name, Href: r.href(a.Path)})
		}
		report.Tests = append(report.Tests, ht)
	}
	return writeFile(r.path, func(w io.Writer) error {
		return htmlTemplate.Execute(w, report)
	})
}
