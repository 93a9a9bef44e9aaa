// Package cmdbuf stages structural changes per producer.
//
// A CommandBuffer records entity creations, destructions and component
// add/remove requests without touching archetype storage. Staged component
// values are appended to per-type columns: inline values to a growable pooled
// byte buffer, indirect values to a growable pooled element array. A single
// coordinator later replays every buffer and then calls Reset.
//
// One CommandBuffer must only be used by one goroutine at a time. Distinct
// buffers may be filled concurrently; the pools they share are safe for that.
package cmdbuf
