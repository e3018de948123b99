package sitetests

import (
	"context"

	"github.com/prepwise/website-e2e/config"
	"github.com/prepwise/website-e2e/framework"
)

// Case is one test of a File.
type Case struct {
	Name string
	// Only focuses the run on this case; see framework.SelectUnits.
	Only bool
	Run  func(*T)
}

// File groups cases the way a test file does. Cases of a file share nothing, but when
// the run is not fully parallel they are executed one after another as a single unit.
type File struct {
	Name  string
	Cases []Case
}

func (f File) focused() bool {
	for _, c := range f.Cases {
		if c.Only {
			return true
		}
	}
	return false
}

// AllFiles returns the whole suite.
func AllFiles() []File {
	return []File{
		homeFile,
		navigationFile,
		routingFile,
		testDataFile,
	}
}

// BuildUnits expands files across the projects of the matrix. With fullyParallel every
// case is its own unit, with ID project/file/case; otherwise every file is a unit with
// ID project/file, and its cases run as subtests.
func BuildUnits(h *Harness, files []File, projects []config.Project, fullyParallel bool) []framework.Unit {
	var units []framework.Unit
	for _, p := range projects {
		project := p
		for _, f := range files {
			file := f
			if !fullyParallel {
				units = append(units, framework.Unit{
					ID:   framework.NewTestID(project.Name, file.Name),
					Only: file.focused(),
					Action: func(c *framework.Context) {
						t := newTestScope(c, h, project)
						for _, tc := range file.Cases {
							t.Run(tc.Name, tc.Run)
						}
					},
				})
				continue
			}
			for _, tc := range file.Cases {
				run := tc.Run
				units = append(units, framework.Unit{
					ID:   framework.NewTestID(project.Name, file.Name, tc.Name),
					Only: tc.Only,
					Action: func(c *framework.Context) {
						run(newTestScope(c, h, project))
					},
				})
			}
		}
	}
	return units
}

// RunSuite builds the units of the suite and runs them with the given options until they
// finish or ctx is cancelled.
func RunSuite(
	ctx context.Context,
	h *Harness,
	files []File,
	opts framework.Options,
	filter framework.Filter,
	testLogger framework.TestLogger,
) (framework.Results, error) {
	units, err := framework.SelectUnits(opts, BuildUnits(h, files, h.Config.Projects, h.Config.FullyParallel))
	if err != nil {
		return framework.Results{}, err
	}
	return framework.RunUnits(ctx, opts, filter, testLogger, units), nil
}
