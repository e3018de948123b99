package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/prepwise/website-e2e/framework"
)

type jsonReport struct {
	RunID      string     `json:"runId,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	DurationMS int64      `json:"durationMs"`
	BaseURL    string     `json:"baseURL,omitempty"`
	Projects   []string   `json:"projects"`
	Stats      stats      `json:"stats"`
	Tests      []jsonTest `json:"tests"`
	Cleanup    string     `json:"cleanup,omitempty"`
}

type jsonTest struct {
	ID          string           `json:"id"`
	Project     string           `json:"project"`
	Title       string           `json:"title"`
	Status      string           `json:"status"`
	Attempts    int              `json:"attempts"`
	DurationMS  int64            `json:"durationMs"`
	Errors      []string         `json:"errors,omitempty"`
	SkipReason  string           `json:"skipReason,omitempty"`
	Attachments []jsonAttachment `json:"attachments,omitempty"`
}

type jsonAttachment struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type jsonReporter struct {
	path string
}

func (r jsonReporter) Name() string { return "json" }

func (r jsonReporter) Write(results framework.Results, meta Meta) error {
	report := jsonReport{
		RunID:      meta.RunID,
		StartedAt:  meta.StartedAt,
		DurationMS: meta.Duration.Milliseconds(),
		BaseURL:    meta.BaseURL,
		Projects:   meta.Projects,
		Stats:      statsOf(results),
		Tests:      make([]jsonTest, 0, len(results.Tests)),
		Cleanup:    meta.Cleanup,
	}
	for _, t := range results.Tests {
		jt := jsonTest{
			ID:         t.TestID.String(),
			Project:    project(t.TestID),
			Title:      title(t.TestID),
			Status:     t.Status(),
			Attempts:   t.Attempts,
			DurationMS: t.Duration.Milliseconds(),
			SkipReason: t.SkipReason,
		}
		if len(t.Errors) > 0 {
			jt.Errors = errorStrings(t.Errors)
		}
		for _, a := range t.Attachments {
			jt.Attachments = append(jt.Attachments, jsonAttachment(a))
		}
		report.Tests = append(report.Tests, jt)
	}
	return writeFile(r.path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	})
}
