package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func cubic(t *testing.T, l float64) *Box {
	t.Helper()
	box, err := NewOrthorhombicBox(l, l, l)
	require.NoError(t, err)
	return box
}

func TestMinimumImageWrapsIntoHalfOpenInterval(t *testing.T) {
	box := cubic(t, 1)

	tests := []struct {
		in, want float64
	}{
		{0.2, 0.2},
		{0.7, -0.3},
		{-0.7, 0.3},
		{0.5, -0.5},
		{-0.5, -0.5},
		{1.25, 0.25},
	}
	for _, tt := range tests {
		got := box.MinimumImage(r3.Vec{X: tt.in})
		assert.InDelta(t, tt.want, got.X, 1e-12, "wrap(%v)", tt.in)
	}
}

func TestMinimumImageLeavesNonPeriodicAxes(t *testing.T) {
	box := cubic(t, 1)
	box.Periodic = [3]bool{true, false, true}

	got := box.MinimumImage(r3.Vec{X: 0.9, Y: 0.9, Z: 0.9})
	assert.InDelta(t, -0.1, got.X, 1e-12)
	assert.InDelta(t, 0.9, got.Y, 1e-12)
	assert.InDelta(t, -0.1, got.Z, 1e-12)
}

func TestMinimumImageDistance(t *testing.T) {
	box := cubic(t, 3)
	frac := []r3.Vec{{X: 0.05}, {X: 0.95}}

	assert.InDelta(t, 0.3, MinimumImageDistance(frac, box, 0, 1, true), 1e-9)
	assert.InDelta(t, 2.7, MinimumImageDistance(frac, box, 0, 1, false), 1e-9)
}

func TestMinimumImageDistanceIsSymmetric(t *testing.T) {
	box, err := NewBox(r3.Vec{X: 4}, r3.Vec{X: 1.5, Y: 3.8}, r3.Vec{X: 0.3, Y: 0.2, Z: 5})
	require.NoError(t, err)
	frac := []r3.Vec{
		{X: 0.1, Y: 0.2, Z: 0.3},
		{X: 0.6, Y: 0.7, Z: 0.8},
		{X: 0.95, Y: 0.05, Z: 0.5},
		{X: 0.5, Y: 0.5, Z: 0.0},
	}

	for _, periodic := range []bool{true, false} {
		for i := range frac {
			for j := range frac {
				dij := MinimumImageDistance(frac, box, i, j, periodic)
				dji := MinimumImageDistance(frac, box, j, i, periodic)
				assert.Equal(t, dij, dji, "d(%d,%d) periodic=%v", i, j, periodic)
				assert.GreaterOrEqual(t, dij, 0.0)
			}
		}
	}
}

func TestDistanceMatrix(t *testing.T) {
	box := cubic(t, 10)
	frac := []r3.Vec{{}, {X: 0.1}, {Y: 0.2}}

	dm := DistanceMatrix(frac, box, true)
	require.NotNil(t, dm)
	assert.Equal(t, 3, dm.SymmetricDim())
	for i := 0; i < 3; i++ {
		assert.Zero(t, dm.At(i, i))
	}
	assert.InDelta(t, 1.0, dm.At(0, 1), 1e-12)
	assert.InDelta(t, 2.0, dm.At(2, 0), 1e-12)
	assert.InDelta(t, math.Sqrt(5), dm.At(1, 2), 1e-12)

	assert.Nil(t, DistanceMatrix(nil, box, true))
}

func TestNewBoxRejectsSingular(t *testing.T) {
	_, err := NewBox(r3.Vec{X: 1}, r3.Vec{X: 2}, r3.Vec{Z: 1})
	assert.ErrorIs(t, err, ErrSingularBox)
}

func TestToCartesianSkewed(t *testing.T) {
	box, err := NewBox(r3.Vec{X: 2}, r3.Vec{X: 1, Y: 2}, r3.Vec{Z: 3})
	require.NoError(t, err)

	got := box.ToCartesian(r3.Vec{X: 0.5, Y: 0.5, Z: 1})
	assert.InDelta(t, 1.5, got.X, 1e-12)
	assert.InDelta(t, 1.0, got.Y, 1e-12)
	assert.InDelta(t, 3.0, got.Z, 1e-12)
}
