package geometry

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Displacement returns the Cartesian vector from atom i to atom j.
// With periodic set the fractional difference is reduced to its minimum
// image first.
func Displacement(frac []r3.Vec, box *Box, i, j int, periodic bool) r3.Vec {
	d := r3.Sub(frac[j], frac[i])
	if periodic {
		d = box.MinimumImage(d)
	}
	return box.ToCartesian(d)
}

// MinimumImageDistance returns the Cartesian distance between atoms i and j.
func MinimumImageDistance(frac []r3.Vec, box *Box, i, j int, periodic bool) float64 {
	if i == j {
		return 0
	}
	// Always measure from the lower index so that d(i,j) and d(j,i) are
	// computed from the same wrapped vector.
	if j < i {
		i, j = j, i
	}
	return r3.Norm(Displacement(frac, box, i, j, periodic))
}

// DistanceMatrix returns all pairwise distances. The diagonal is zero.
// It returns nil for an empty coordinate list.
func DistanceMatrix(frac []r3.Vec, box *Box, periodic bool) *mat.SymDense {
	n := len(frac)
	if n == 0 {
		return nil
	}
	dm := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dm.SetSym(i, j, MinimumImageDistance(frac, box, i, j, periodic))
		}
	}
	return dm
}
