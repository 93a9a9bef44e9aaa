package entigo

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/hupe1980/entigo/internal/cmdbuf"
	"github.com/hupe1980/entigo/internal/directory"
	"github.com/hupe1980/entigo/internal/typereg"
)

var (
	// ErrStaleHandle is returned when an entity handle no longer refers to a live entity.
	ErrStaleHandle = directory.ErrStaleHandle

	// ErrUnregisteredType is returned when a component type was never registered.
	ErrUnregisteredType = errors.New("unregistered component type")

	// ErrDuplicateKey is returned by Insert when the component type is already registered.
	ErrDuplicateKey = typereg.ErrDuplicateKey

	// ErrRegistryFull is returned when no more component types can be registered.
	ErrRegistryFull = typereg.ErrRegistryFull

	// ErrInvalidLayout is returned when an explicit layout cannot describe the type.
	ErrInvalidLayout = typereg.ErrInvalidLayout

	// ErrFlushInProgress is returned when Flush, Clear or Close overlaps a running flush.
	ErrFlushInProgress = errors.New("flush already in progress")

	// ErrInvalidFuture is returned for a future entity from another command buffer or an earlier flush.
	ErrInvalidFuture = cmdbuf.ErrInvalidFuture

	// ErrInvalidTarget is returned for a nil command target.
	ErrInvalidTarget = cmdbuf.ErrInvalidTarget

	// ErrComponentNotFound is returned when an entity does not have the requested component.
	ErrComponentNotFound = errors.New("component not found")
)

// StaleHandleError reports a stale entity handle.
//
// errors.Is(err, ErrStaleHandle) holds for every StaleHandleError.
type StaleHandleError struct {
	Entity Entity
	cause  error
}

func (e *StaleHandleError) Error() string {
	return fmt.Sprintf("stale entity handle: %s", e.Entity)
}

func (e *StaleHandleError) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}

	return ErrStaleHandle
}

// UnregisteredTypeError reports a component type that was never registered.
// Type is set when the caller named a Go type, ID when it passed a type id.
//
// errors.Is(err, ErrUnregisteredType) holds for every UnregisteredTypeError.
type UnregisteredTypeError struct {
	Type reflect.Type
	ID   TypeID
}

func (e *UnregisteredTypeError) Error() string {
	if e.Type != nil {
		return fmt.Sprintf("unregistered component type: %s", e.Type)
	}

	return fmt.Sprintf("unregistered component type id: %d", e.ID)
}

func (e *UnregisteredTypeError) Unwrap() error { return ErrUnregisteredType }

// translateError maps internal errors onto the public error types.
func translateError(e Entity, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, directory.ErrStaleHandle) {
		return &StaleHandleError{Entity: e, cause: err}
	}

	return err
}
