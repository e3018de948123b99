// Package webserver boots the processes a test run depends on, typically the website and
// its backend, and holds them until the run ends.
//
// A server counts as ready once its readiness check succeeds. Startup is all or nothing:
// if any declared server fails to become ready within its timeout, every server already
// started is stopped and Start returns an error, so that no test executes against a
// partial environment.
package webserver
