// Package shared holds helpers used across the demand planner packages.
//
// The testutil subpackage provides a buffered slog handler for asserting on
// log output and small CSV fixtures for sales, item master and promotion
// uploads:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    svc := NewThing(logger)
//	    ...
//	    testutil.AssertLogContains(t, logs, slog.LevelInfo, "upload parsed")
//	}
package shared
