// Package voronoi finds which points of a 3D point cloud share a Voronoi
// facet.
//
// Each cell is built by clipping a bounding cube with the perpendicular
// bisector planes between its site and every other point. A bisector that
// leaves a facet of non-zero area on the final cell marks a ridge. A cell
// that still touches the cube is unbounded (or reaches far out), so the
// remaining bisectors are rechecked on their own, far beyond the cube.
package voronoi

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Ridge is a facet shared by the cells of points P and Q (P < Q).
type Ridge struct {
	P, Q int
}

// Tessellator computes Voronoi ridges of a non-periodic point cloud.
type Tessellator interface {
	// Ridges returns every pair of point indices whose cells share a facet.
	Ridges(points []r3.Vec) []Ridge
	// CellNeighbors returns the indices sharing a facet with point k.
	CellNeighbors(points []r3.Vec, k int) []int
}

// Clipper is the default Tessellator.
type Clipper struct {
	// RelTol scales the geometric tolerances with the size of the cloud.
	// Zero means 1e-9.
	RelTol float64
}

var _ Tessellator = Clipper{}

// Ridges implements Tessellator.
func (c Clipper) Ridges(points []r3.Vec) []Ridge {
	seen := make(map[Ridge]bool)
	var out []Ridge
	for k := range points {
		for _, j := range c.CellNeighbors(points, k) {
			r := Ridge{P: k, Q: j}
			if j < k {
				r = Ridge{P: j, Q: k}
			}
			if !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].P != out[b].P {
			return out[a].P < out[b].P
		}
		return out[a].Q < out[b].Q
	})
	return out
}

// CellNeighbors implements Tessellator.
func (c Clipper) CellNeighbors(points []r3.Vec, k int) []int {
	if k < 0 || k >= len(points) || len(points) < 2 {
		return nil
	}
	site := points[k]

	extent := 0.0
	for _, p := range points {
		extent = math.Max(extent, r3.Norm(r3.Sub(p, site)))
	}
	if extent == 0 {
		return nil
	}
	rel := c.RelTol
	if rel == 0 {
		rel = 1e-9
	}
	eps := rel * extent

	// The cube must contain every bisector facet that can bound the cell
	// within the cloud; twice the cloud radius is enough.
	cell := newCube(site, 2*extent)
	for j, p := range points {
		if j == k {
			continue
		}
		n := r3.Sub(p, site)
		if r3.Norm(n) <= eps {
			continue // coincident points have no bisector
		}
		mid := r3.Scale(0.5, r3.Add(p, site))
		cell.clip(n, r3.Dot(n, mid), j, eps)
	}

	minArea := eps * extent
	var out []int
	seen := make(map[int]bool)
	open := false
	for _, f := range cell.faces {
		if f.tag < 0 {
			open = true
			continue
		}
		if seen[f.tag] {
			continue
		}
		if polygonArea(f.verts) > minArea {
			seen[f.tag] = true
			out = append(out, f.tag)
		}
	}

	if open {
		for j, p := range points {
			if j == k || seen[j] || r3.Norm(r3.Sub(p, site)) <= eps {
				continue
			}
			if sharesFacet(points, k, j, farScale*extent, eps, minWidth*eps) {
				seen[j] = true
				out = append(out, j)
			}
		}
	}
	sort.Ints(out)
	return out
}

const (
	// farScale is the half-size of the square searched for the facet of an
	// open cell, in units of the cloud radius.
	farScale = 1e6
	// minWidth, in units of the distance tolerance, is how wide a far facet
	// must be. Cells that only share an edge leave slivers narrower than
	// the rounding error of the far square.
	minWidth = 1e3
)

// sharesFacet reports whether the bisector facet between points k and j
// survives all other bisectors inside a square of half-size h centered on
// the midpoint of k and j.
func sharesFacet(points []r3.Vec, k, j int, h, eps, width float64) bool {
	site := points[k]
	n := r3.Sub(points[j], site)
	mid := r3.Scale(0.5, r3.Add(points[j], site))
	u, v := planeBasis(n)
	corner := func(a, b float64) r3.Vec {
		return r3.Add(mid, r3.Add(r3.Scale(a*h, u), r3.Scale(b*h, v)))
	}
	poly := []r3.Vec{corner(-1, -1), corner(1, -1), corner(1, 1), corner(-1, 1)}

	var onPlane []r3.Vec
	for q, p := range points {
		if q == k || q == j {
			continue
		}
		m := r3.Sub(p, site)
		mm := r3.Norm(m)
		if mm <= eps {
			continue
		}
		d := r3.Dot(m, r3.Scale(0.5, r3.Add(p, site)))
		side := func(x r3.Vec) float64 { return (r3.Dot(m, x) - d) / mm }
		poly = clipPolygon(poly, side, eps, &onPlane)
		onPlane = onPlane[:0]
		if len(poly) < 3 {
			return false
		}
	}
	return 2*polygonArea(poly)/perimeter(poly) > width
}
