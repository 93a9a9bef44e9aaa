package mem

import (
	"unsafe"
)

// Alignment is the byte alignment of every buffer returned by AllocAligned.
const Alignment = 64

// AllocAligned allocates a zeroed byte slice of the given size whose first
// element sits on an Alignment boundary. len and cap of the result are both size.
//
// The allocation is over-sized by Alignment bytes; the underlying array is kept
// alive by the returned slice.
func AllocAligned(size int) []byte {
	if size <= 0 {
		return nil
	}

	buf := make([]byte, size+Alignment)

	addr := uintptr(unsafe.Pointer(&buf[0])) //nolint:gosec // unsafe is required for memory alignment
	offset := int((Alignment - (addr & (Alignment - 1))) & (Alignment - 1))

	return buf[offset : offset+size : offset+size]
}

// IsAligned reports whether the first byte of b sits on an align boundary.
func IsAligned(b []byte, align int) bool {
	if len(b) == 0 {
		return true
	}

	addr := uintptr(unsafe.Pointer(&b[0])) //nolint:gosec // unsafe is required for memory alignment

	return addr&uintptr(align-1) == 0
}

// AlignUp rounds n up to the next multiple of align. align must be a power of two.
func AlignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
