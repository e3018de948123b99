package sitetests

import (
	"github.com/stretchr/testify/assert"
)

var routingFile = File{
	Name: "routing",
	Cases: []Case{
		{Name: "unknown route yields 404", Run: func(t *T) {
			path := "/this-page-does-not-exist"
			if id := t.RunContext().RunID; id != "" {
				path += "-" + id
			}
			assert.Equal(t, 404, t.Goto(path))
		}},
	},
}
