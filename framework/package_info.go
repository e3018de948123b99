// Package framework contains the low-level test execution engine used by the website
// end-to-end harness. It knows nothing about browsers or the backend.
//
// The general model is:
//
// 1. A test run is a list of Units. Each unit is one test file, or one test case when
// the run is fully parallel, bound to one project of the test matrix.
//
// 2. Units are scheduled on a bounded pool of workers. A unit that fails is executed
// again, from scratch, up to the configured number of retries.
//
// 3. There is a general notion of a test context which is similar to Go's *testing.T,
// allowing pieces of test logic to be associated with a test identifier and to accumulate
// success/failure results.
//
// The domain-specific code that knows what is being tested is responsible for building
// the units and for providing a domain-specific test API on top of the test context.
package framework
