package sitetests

import (
	"strings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var homeFile = File{
	Name: "home",
	Cases: []Case{
		{Name: "responds without error", Run: func(t *T) {
			status := t.Goto("/")
			assert.Less(t, status, 400, "home page returned HTTP %d", status)
		}},
		{Name: "has a title", Run: func(t *T) {
			require.Less(t, t.Goto("/"), 400)
			assert.NotEmpty(t, strings.TrimSpace(t.Title()), "home page has no title")
		}},
	},
}
