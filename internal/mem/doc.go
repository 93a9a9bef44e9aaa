// Package mem provides aligned byte allocation for chunk storage.
//
// Chunk buffers hold inline component columns that are reinterpreted as typed
// slices, so the buffer start must satisfy the strictest component alignment.
// Every buffer from this package is aligned to a cache line.
package mem
