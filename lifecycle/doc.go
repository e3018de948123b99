// Package lifecycle contains the hooks that run once around the whole test suite: global
// setup, which creates the fixtures the tests depend on, and global teardown, which
// removes them again on a best-effort basis.
//
// The identifiers of created fixtures travel from setup to teardown in a RunContext,
// which is passed explicitly within one process and persisted to the output directory
// when setup and teardown run as separate commands.
package lifecycle
