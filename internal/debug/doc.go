// Package debug provides internal invariant assertions.
//
// Assertions are compiled in only with the entigodebug build tag:
//
//	go test -tags entigodebug ./...
//
// Without the tag Assert is an empty function the compiler inlines away, so
// hot paths pay nothing for it.
package debug
