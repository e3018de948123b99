// Package sitetests contains the browser smoke tests of the website and their
// supporting API.
//
// Infrastructure that is not specific to the website, such as running tests with
// retries on a pool of workers, is in the lower-level framework package; talking to a
// browser is in the browser package.
package sitetests
