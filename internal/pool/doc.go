// Package pool recycles chunk byte buffers and typed element arrays.
//
// Both pools bucket by power-of-two size classes and keep one sync.Pool per
// class, so a Rent never returns storage smaller than requested and a Return
// always lands in the bucket it was rented from. Storage is zeroed on Return.
//
// Every rented byte is reported to a resource.Controller. When a Rent pushes
// usage above the controller's soft limit the pool still hands out the storage
// and invokes the configured PressureFunc.
package pool
