package vec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinite(t *testing.T) {
	assert.True(t, New(1, -2, 3.5).Finite())
	assert.True(t, Origin.Finite())
	assert.False(t, New(math.NaN(), 0, 0).Finite())
	assert.False(t, New(0, math.Inf(1), 0).Finite())
	assert.False(t, New(0, 0, math.Inf(-1)).Finite())
}

func TestLerp(t *testing.T) {
	a := New(0, 0, 0)
	b := New(10, -10, 4)

	assert.Equal(t, a, Lerp(a, b, 0))
	assert.Equal(t, b, Lerp(a, b, 1))
	assert.Equal(t, New(5, -5, 2), Lerp(a, b, 0.5))
}

func TestLerpExtremeOperands(t *testing.T) {
	a := New(-math.MaxFloat64, 0, 0)
	b := New(math.MaxFloat64, 0, 0)

	out := Lerp(a, b, 0.5)
	assert.True(t, out.Finite())
	assert.InDelta(t, 0, out.X, 1)
}

func TestDistance(t *testing.T) {
	assert.InDelta(t, 5.0, New(0, 0, 0).Distance(New(3, 4, 0)), 1e-12)
}
