package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrSingularBox is returned when a box transform has no volume.
var ErrSingularBox = errors.New("box transform is singular")

// Box is the periodic unit cell of a crystal.
// FToC maps fractional coordinates to Cartesian ones (columns are the
// lattice vectors a, b, c in Å). Periodic marks which axes wrap.
type Box struct {
	FToC     *mat.Dense
	Periodic [3]bool
}

// NewBox creates a box from its three lattice vectors, periodic on all axes.
func NewBox(a, b, c r3.Vec) (*Box, error) {
	m := mat.NewDense(3, 3, []float64{
		a.X, b.X, c.X,
		a.Y, b.Y, c.Y,
		a.Z, b.Z, c.Z,
	})
	if math.Abs(mat.Det(m)) < 1e-12 {
		return nil, fmt.Errorf("lattice vectors %v %v %v: %w", a, b, c, ErrSingularBox)
	}
	return &Box{FToC: m, Periodic: [3]bool{true, true, true}}, nil
}

// NewOrthorhombicBox creates a periodic box with edges along x, y and z.
func NewOrthorhombicBox(lx, ly, lz float64) (*Box, error) {
	return NewBox(r3.Vec{X: lx}, r3.Vec{Y: ly}, r3.Vec{Z: lz})
}

// ToCartesian transforms a fractional vector to Cartesian space.
func (b *Box) ToCartesian(f r3.Vec) r3.Vec {
	var out mat.VecDense
	out.MulVec(b.FToC, mat.NewVecDense(3, []float64{f.X, f.Y, f.Z}))
	return r3.Vec{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// MinimumImage wraps every periodic component of a fractional displacement
// into [-0.5, 0.5). Non-periodic components are returned unchanged.
func (b *Box) MinimumImage(d r3.Vec) r3.Vec {
	if b.Periodic[0] {
		d.X = wrap(d.X)
	}
	if b.Periodic[1] {
		d.Y = wrap(d.Y)
	}
	if b.Periodic[2] {
		d.Z = wrap(d.Z)
	}
	return d
}

func wrap(x float64) float64 {
	return x - math.Floor(x+0.5)
}
