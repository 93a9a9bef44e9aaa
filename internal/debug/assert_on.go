//go:build entigodebug

package debug

import "fmt"

// Enabled reports whether assertions are compiled in.
const Enabled = true

// Assert panics with a formatted message if cond is false.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic("entigo: invariant violated: " + fmt.Sprintf(format, args...))
	}
}
