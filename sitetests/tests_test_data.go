package sitetests

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDataFile = File{
	Name: "test data",
	Cases: []Case{
		{Name: "mock test fixture is available", Run: func(t *T) {
			id := t.RunContext().MockTestID
			t.RequireFixture("mock test", id)
			m, found, err := t.Fixtures().GetMockTest(t.Ctx(), id)
			require.NoError(t, err)
			assert.True(t, found, "mock test %s does not exist", id)
			assert.Equal(t, id, m.ID.String())
		}},
		{Name: "test user fixture is available", Run: func(t *T) {
			id := t.RunContext().TestUserID
			t.RequireFixture("test user", id)
			_, found, err := t.Fixtures().GetTestUser(t.Ctx(), id)
			require.NoError(t, err)
			assert.True(t, found, "test user %s does not exist", id)
		}},
	},
}
