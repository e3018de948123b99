package framework

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegexFilters(t *testing.T) {
	var f RegexFilters
	require.NoError(t, f.MustMatch.Set("home"))
	require.NoError(t, f.MustNotMatch.Set("^webkit/"))

	assert.True(t, f.AsFilter(NewTestID("chromium", "home", "renders")))
	assert.False(t, f.AsFilter(NewTestID("webkit", "home", "renders")))
	assert.False(t, f.AsFilter(NewTestID("chromium", "routing")))
}

func TestRegexListRejectsInvalidPattern(t *testing.T) {
	var r RegexList
	assert.Error(t, r.Set("("))
	assert.False(t, r.IsDefined())
}

func TestPrintFilterDescription(t *testing.T) {
	var f RegexFilters
	require.NoError(t, f.MustMatch.Set("home"))
	var buf bytes.Buffer
	PrintFilterDescription(&buf, f, []string{"chromium", "firefox"})
	assert.Contains(t, buf.String(), `skip any not matching "home"`)
	assert.Contains(t, buf.String(), "chromium, firefox")
}
