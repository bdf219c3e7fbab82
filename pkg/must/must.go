// Package must contains helpers that panic on error instead of returning the
// error. They are meant for tests and program setup.
package must

import (
	"gudp.dev/gudp/pkg"
)

// Do takes any value and error pair, and panics if the error is non-nil. Use it
// wrapping another function call that returns two values, to get a single
// statement that only returns one value.
//
// Example:
//
//	conn := must.Do(network.Listen(nil))
//	defer conn.Close()
func Do[T any](v T, err error) T {
	if err != nil {
		pkg.Panicf("expected nil-error, got %s", err)
	}
	return v
}
