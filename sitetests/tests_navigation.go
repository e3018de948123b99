package sitetests

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	navigationSelector = "nav, [role=navigation]"
	homeLinkSelector   = `a[href="/"]`
)

var navigationFile = File{
	Name: "navigation",
	Cases: []Case{
		{Name: "primary navigation is present", Run: func(t *T) {
			require.Less(t, t.Goto("/"), 400)
			assert.Positive(t, t.Count(navigationSelector), "no navigation landmark on the home page")
		}},
		{Name: "links back to home", Run: func(t *T) {
			require.Less(t, t.Goto("/"), 400)
			assert.Positive(t, t.Count(homeLinkSelector), "no link to / on the home page")
		}},
	},
}
