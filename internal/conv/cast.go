package conv

import (
	"errors"
	"fmt"
	"math"
)

// ErrOverflow is returned when a value does not fit the target type.
var ErrOverflow = errors.New("integer overflow")

// IntToUint32 converts v to uint32, failing for negative values and values above math.MaxUint32.
func IntToUint32(v int) (uint32, error) {
	if v < 0 {
		return 0, fmt.Errorf("%w: %d is negative", ErrOverflow, v)
	}

	if uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d exceeds uint32", ErrOverflow, v)
	}

	return uint32(v), nil
}

// MustUint32 is IntToUint32 for values that are bounded by an invariant. It panics on overflow.
func MustUint32(v int) uint32 {
	u, err := IntToUint32(v)
	if err != nil {
		panic(err)
	}

	return u
}

// IDBelow reports whether an id can still be allocated when limit ids are in use.
// The last uint32 value is reserved as the "no id" sentinel.
func IDBelow(limit int) bool {
	return limit >= 0 && uint64(limit) < math.MaxUint32
}
