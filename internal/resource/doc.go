// Package resource accounts for pooled storage memory and bounds the number
// of concurrent query workers.
//
//	┌──────────────────────────────────────────────┐
//	│                 Controller                   │
//	├───────────────────────┬──────────────────────┤
//	│  Memory (soft limit)  │  Worker slots (sem)  │
//	├───────────────────────┼──────────────────────┤
//	│  AcquireMemory        │  AcquireWorker       │
//	│  ReleaseMemory        │  TryAcquireWorker    │
//	│  MemoryUsage / Peak   │  ReleaseWorker       │
//	└───────────────────────┴──────────────────────┘
//
// # Memory
//
// Storage is never refused: chunks and staged columns must be allocated for a
// flush to complete. AcquireMemory therefore always records the reservation
// and reports ErrMemoryLimitExceeded when usage is above the soft limit, so the
// caller can log or shed load.
//
// # Nil Safety
//
// All methods handle a nil Controller; memory is not tracked and worker slots
// are unbounded.
package resource
