// Package directory issues entity handles and tracks where every live entity
// is stored.
//
// Entity ids index a dense info table. Destroyed ids are recycled LIFO through
// a free chain threaded through the table's ID field, and each destroy bumps
// the id's version so stale handles stop validating.
package directory
