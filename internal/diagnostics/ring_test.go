package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingKeepsMostRecent(t *testing.T) {
	t.Parallel()

	r := NewRing[int](3)
	_, ok := r.Latest()
	assert.False(t, ok)

	r.Push(1)
	r.Push(2)
	assert.Equal(t, []int{1, 2}, r.Items())

	r.Push(3)
	r.Push(4)
	r.Push(5)
	assert.Equal(t, []int{3, 4, 5}, r.Items())
	assert.Equal(t, 3, r.Len())

	latest, ok := r.Latest()
	assert.True(t, ok)
	assert.Equal(t, 5, latest)
}

func TestRingLatestAfterWrap(t *testing.T) {
	t.Parallel()

	r := NewRing[string](2)
	r.Push("a")
	r.Push("b")

	latest, ok := r.Latest()
	assert.True(t, ok)
	assert.Equal(t, "b", latest)
}
