package typereg

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/hupe1980/entigo/internal/column"
	"github.com/hupe1980/entigo/model"
)

// DefaultCapacity is the number of component types a registry accepts unless configured otherwise.
const DefaultCapacity = 256

var (
	// ErrDuplicateKey is returned by Insert when the type is already registered.
	ErrDuplicateKey = errors.New("component type already registered")

	// ErrRegistryFull is returned when the registry has no free type ids left.
	ErrRegistryFull = errors.New("component registry is full")

	// ErrInvalidLayout is returned when an explicit layout cannot describe the type.
	ErrInvalidLayout = errors.New("invalid component layout")
)

// Layout describes how a component type is stored.
type Layout struct {
	Size      int
	Align     int
	HasFields bool
	// Inline marks the type as storable in raw chunk bytes. Only pointer-free types qualify.
	Inline bool
}

// LayoutOf derives the layout of t by reflection.
func LayoutOf(t reflect.Type) Layout {
	return Layout{
		Size:      int(t.Size()),
		Align:     t.Align(),
		HasFields: hasFields(t),
		Inline:    PointerFree(t),
	}
}

// Info is the immutable description of a registered component type.
type Info struct {
	ID     model.TypeID
	Type   reflect.Type
	Layout Layout

	newArray func(n int) column.Array
}

// Size returns the byte size of one value.
func (i Info) Size() int { return i.Layout.Size }

// Align returns the required byte alignment.
func (i Info) Align() int { return i.Layout.Align }

// Inline reports whether values live in raw chunk bytes.
func (i Info) Inline() bool { return i.Layout.Inline }

// ZeroSized reports whether the type is a tag: inline without fields. Tags occupy no storage.
func (i Info) ZeroSized() bool { return i.Layout.Inline && (!i.Layout.HasFields || i.Layout.Size == 0) }

// Indirect reports whether values are stored in a typed element array.
func (i Info) Indirect() bool { return !i.Layout.Inline }

// NewArray allocates a zeroed element array of n slots.
func (i Info) NewArray(n int) column.Array {
	return i.newArray(n)
}

func (i Info) String() string {
	return fmt.Sprintf("%s#%d", i.Type, i.ID)
}

// Registry maps Go types to dense type ids. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	byType   map[reflect.Type]model.TypeID
	infos    []Info
	capacity int
}

// New creates a registry that accepts up to capacity types.
// A non-positive capacity selects DefaultCapacity.
func New(capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Registry{
		byType:   make(map[reflect.Type]model.TypeID),
		infos:    make([]Info, 0, min(capacity, 64)),
		capacity: capacity,
	}
}

// Register registers T with a derived layout. Registering an already known type
// returns the existing Info.
func Register[T any](r *Registry) (Info, error) {
	t := reflect.TypeFor[T]()
	return r.register(t, LayoutOf(t), column.New[T], false)
}

// RegisterLayout registers T with an explicit layout. Registering an already
// known type returns the existing Info and ignores layout.
func RegisterLayout[T any](r *Registry, layout Layout) (Info, error) {
	t := reflect.TypeFor[T]()
	if err := validate(t, layout); err != nil {
		return Info{}, err
	}

	return r.register(t, layout, column.New[T], false)
}

// Insert registers T with a derived layout and fails with ErrDuplicateKey if T is known.
func Insert[T any](r *Registry) (Info, error) {
	t := reflect.TypeFor[T]()
	return r.register(t, LayoutOf(t), column.New[T], true)
}

// InsertLayout is Insert with an explicit layout.
func InsertLayout[T any](r *Registry, layout Layout) (Info, error) {
	t := reflect.TypeFor[T]()
	if err := validate(t, layout); err != nil {
		return Info{}, err
	}

	return r.register(t, layout, column.New[T], true)
}

// LookupOf returns the Info of T if it is registered.
func LookupOf[T any](r *Registry) (Info, bool) {
	return r.Lookup(reflect.TypeFor[T]())
}

func (r *Registry) register(t reflect.Type, layout Layout, newArray func(int) column.Array, mustBeNew bool) (Info, error) {
	r.mu.RLock()
	id, ok := r.byType[t]
	if ok {
		info := r.infos[id]
		r.mu.RUnlock()

		if mustBeNew {
			return Info{}, fmt.Errorf("%w: %s", ErrDuplicateKey, t)
		}

		return info, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have won the race between the two locks.
	if id, ok := r.byType[t]; ok {
		if mustBeNew {
			return Info{}, fmt.Errorf("%w: %s", ErrDuplicateKey, t)
		}

		return r.infos[id], nil
	}

	if len(r.infos) >= r.capacity {
		return Info{}, fmt.Errorf("%w: capacity %d, registering %s", ErrRegistryFull, r.capacity, t)
	}

	info := Info{
		ID:       model.TypeID(len(r.infos)), //nolint:gosec // bounded by capacity
		Type:     t,
		Layout:   layout,
		newArray: newArray,
	}
	r.infos = append(r.infos, info)
	r.byType[t] = info.ID

	return info, nil
}

// Lookup returns the Info registered for t.
func (r *Registry) Lookup(t reflect.Type) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byType[t]
	if !ok {
		return Info{}, false
	}

	return r.infos[id], true
}

// Info returns the Info for id.
func (r *Registry) Info(id model.TypeID) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if int(id) >= len(r.infos) {
		return Info{}, false
	}

	return r.infos[id], true
}

// MustInfo is Info for ids that are known to be registered.
func (r *Registry) MustInfo(id model.TypeID) Info {
	info, ok := r.Info(id)
	if !ok {
		panic(fmt.Sprintf("typereg: unknown type id %d", id))
	}

	return info
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.infos)
}

// Cap returns the maximum number of types.
func (r *Registry) Cap() int {
	return r.capacity
}

// Infos returns a snapshot of all registered types in id order.
func (r *Registry) Infos() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Info, len(r.infos))
	copy(out, r.infos)

	return out
}

func validate(t reflect.Type, l Layout) error {
	if l.Align <= 0 || l.Align&(l.Align-1) != 0 {
		return fmt.Errorf("%w: %s: alignment %d is not a power of two", ErrInvalidLayout, t, l.Align)
	}

	if l.Size < 0 {
		return fmt.Errorf("%w: %s: negative size", ErrInvalidLayout, t)
	}

	if !l.Inline {
		return nil
	}

	if !PointerFree(t) {
		return fmt.Errorf("%w: %s contains pointers and cannot be stored inline", ErrInvalidLayout, t)
	}

	if !l.HasFields {
		return nil
	}

	if l.Size != int(t.Size()) {
		return fmt.Errorf("%w: %s: size %d, type size is %d", ErrInvalidLayout, t, l.Size, t.Size())
	}

	if l.Align < t.Align() {
		return fmt.Errorf("%w: %s: alignment %d below natural alignment %d", ErrInvalidLayout, t, l.Align, t.Align())
	}

	return nil
}

func hasFields(t reflect.Type) bool {
	if t.Kind() == reflect.Struct {
		return t.NumField() > 0 && t.Size() > 0
	}

	return t.Size() > 0
}

// PointerFree reports whether values of t contain no Go pointers and may be
// reinterpreted from raw bytes.
func PointerFree(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return t.Len() == 0 || PointerFree(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if !PointerFree(t.Field(i).Type) {
				return false
			}
		}

		return true
	default:
		return false
	}
}
