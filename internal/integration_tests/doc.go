// Package integration_tests holds end-to-end tests that load sweep files
// and run them through the App.
package integration_tests
