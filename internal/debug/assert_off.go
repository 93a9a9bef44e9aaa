//go:build !entigodebug

package debug

// Enabled reports whether assertions are compiled in.
const Enabled = false

// Assert is a no-op without the entigodebug build tag.
func Assert(bool, string, ...any) {}
