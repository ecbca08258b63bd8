package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSet_Validation(t *testing.T) {
	_, err := Triangular("  ", 0, 1, 2)
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = Triangular("bad", 2, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewSet("nil", nil)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewSet("c", Custom{Name: "c"})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewSet("c", &Custom{Name: "c"})
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = NewShape(ShapeTrapezoidal, 1, 2, 3)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = S("s", 3, 1)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestSet_DOFMatchesMF(t *testing.T) {
	s, err := Pi("pi", -3, -1, 1, 3)
	require.NoError(t, err)

	xs := []float64{-4, -2, -1, 0, 2, 2.5, 3}
	mu := s.MF(xs)
	for i, x := range xs {
		assert.Equal(t, mu[i], s.DOF(x), "x=%v", x)
	}
}

func TestSingleton(t *testing.T) {
	s, err := Singleton("two", 2)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.DOF(2))
	assert.Equal(t, 1.0, s.DOF(2+Epsilon/2))
	assert.Equal(t, 0.0, s.DOF(2.001))
}

func TestCustomSetIsClipped(t *testing.T) {
	s, err := NewSet("wild", Custom{Name: "wild", Fn: func(x float64) float64 { return x }})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1}, s.MF([]float64{-3, 0.5, 4}))
}

// =============================================================================
// SAMPLED QUERIES
// =============================================================================

func TestSet_SampledQueries(t *testing.T) {
	s, err := Triangular("tri", 2, 5, 8)
	require.NoError(t, err)
	d := Domain{Lo: 0, Hi: 10}

	support, err := s.Support(d, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, 5, 6, 7}, support)

	kernel, err := s.Kernel(d, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{5}, kernel)

	cut, err := s.AlphaCut(d, 1, 2.0/3)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5, 6}, cut)

	h, err := s.Height(d, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, h)

	normal, err := s.IsNormal(d, 1)
	require.NoError(t, err)
	assert.True(t, normal)

	empty, err := s.IsEmpty(Domain{Lo: 20, Hi: 30}, 1)
	require.NoError(t, err)
	assert.True(t, empty)

	_, err = s.AlphaCut(d, 1, 1.5)
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = s.Support(d, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestSet_KernelToleratesRounding(t *testing.T) {
	// 0.1 steps never land exactly on the peak in floating point.
	s, err := Triangular("tri", 0, 0.3, 1)
	require.NoError(t, err)

	kernel, err := s.Kernel(Domain{Lo: 0, Hi: 1}, 0.1)
	require.NoError(t, err)
	require.Len(t, kernel, 1)
	assert.InDelta(t, 0.3, kernel[0], 1e-9)
}

func TestDomain_SampleExcludesUpperBound(t *testing.T) {
	xs, err := Domain{Lo: 0, Hi: 1}.Sample(0.25)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75}, xs)

	xs, err = Domain{Lo: 3, Hi: 3}.Sample(0.1)
	require.NoError(t, err)
	assert.Empty(t, xs)

	_, err = NewDomain(1, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
