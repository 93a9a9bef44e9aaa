//go:build entigodebug

package debug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssert(t *testing.T) {
	assert.True(t, Enabled)
	assert.NotPanics(t, func() { Assert(true, "never") })
	assert.PanicsWithValue(t, "entigo: invariant violated: row 3 out of range", func() {
		Assert(false, "row %d out of range", 3)
	})
}
