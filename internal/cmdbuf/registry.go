package cmdbuf

import (
	"sync"

	"github.com/hupe1980/entigo/internal/pool"
	"github.com/hupe1980/entigo/model"
)

// Registry hands out one CommandBuffer per producer key. It is safe for concurrent use.
type Registry struct {
	buffers *pool.BufferPool
	arrays  *pool.ArrayPool

	mu      sync.RWMutex
	byKey   map[model.ProducerKey]*CommandBuffer
	ordered []*CommandBuffer
}

// NewRegistry creates an empty registry whose buffers stage into the given pools.
func NewRegistry(buffers *pool.BufferPool, arrays *pool.ArrayPool) *Registry {
	return &Registry{
		buffers: buffers,
		arrays:  arrays,
		byKey:   make(map[model.ProducerKey]*CommandBuffer),
	}
}

// Get returns the buffer for key, creating it on first use.
func (r *Registry) Get(key model.ProducerKey) *CommandBuffer {
	r.mu.RLock()
	cb, ok := r.byKey[key]
	r.mu.RUnlock()

	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.byKey[key]; ok {
		return cb
	}

	cb = New(key, r.buffers, r.arrays)
	r.byKey[key] = cb
	r.ordered = append(r.ordered, cb)

	return cb
}

// All returns a snapshot of every buffer in creation order.
func (r *Registry) All() []*CommandBuffer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*CommandBuffer, len(r.ordered))
	copy(out, r.ordered)

	return out
}

// Len returns the number of buffers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.ordered)
}
