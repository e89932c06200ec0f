package voronoi

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// face is a convex planar polygon. tag is the index of the point whose
// bisector produced it, or -1 for a face of the bounding cube.
type face struct {
	verts []r3.Vec
	tag   int
}

// polyhedron is a convex cell stored as its faces.
type polyhedron struct {
	faces []face
}

func newCube(c r3.Vec, h float64) *polyhedron {
	v := func(sx, sy, sz float64) r3.Vec {
		return r3.Vec{X: c.X + sx*h, Y: c.Y + sy*h, Z: c.Z + sz*h}
	}
	quad := func(a, b, d, e r3.Vec) face {
		return face{verts: []r3.Vec{a, b, d, e}, tag: -1}
	}
	return &polyhedron{faces: []face{
		quad(v(-1, -1, -1), v(-1, 1, -1), v(-1, 1, 1), v(-1, -1, 1)),
		quad(v(1, -1, -1), v(1, -1, 1), v(1, 1, 1), v(1, 1, -1)),
		quad(v(-1, -1, -1), v(-1, -1, 1), v(1, -1, 1), v(1, -1, -1)),
		quad(v(-1, 1, -1), v(1, 1, -1), v(1, 1, 1), v(-1, 1, 1)),
		quad(v(-1, -1, -1), v(1, -1, -1), v(1, 1, -1), v(-1, 1, -1)),
		quad(v(-1, -1, 1), v(-1, 1, 1), v(1, 1, 1), v(1, -1, 1)),
	}}
}

// clip keeps the part of the cell with n·x <= d. The new facet lying on
// the plane is tagged with tag. eps is a distance tolerance.
func (p *polyhedron) clip(n r3.Vec, d float64, tag int, eps float64) {
	nn := r3.Norm(n)
	side := func(x r3.Vec) float64 { return (r3.Dot(n, x) - d) / nn }

	cut := false
	for _, f := range p.faces {
		for _, v := range f.verts {
			if side(v) > eps {
				cut = true
				break
			}
		}
		if cut {
			break
		}
	}
	if !cut {
		return
	}

	var onPlane []r3.Vec
	kept := make([]face, 0, len(p.faces)+1)
	for _, f := range p.faces {
		poly := clipPolygon(f.verts, side, eps, &onPlane)
		if len(poly) >= 3 {
			kept = append(kept, face{verts: poly, tag: f.tag})
		}
	}

	capVerts := dedupe(onPlane, eps)
	if len(capVerts) >= 3 {
		kept = append(kept, face{verts: orderAround(capVerts, n), tag: tag})
	}
	p.faces = kept
}

// clipPolygon is one Sutherland-Hodgman pass. Vertices on or created at the
// plane are also appended to onPlane.
func clipPolygon(verts []r3.Vec, side func(r3.Vec) float64, eps float64, onPlane *[]r3.Vec) []r3.Vec {
	out := make([]r3.Vec, 0, len(verts)+1)
	for i := range verts {
		a := verts[i]
		b := verts[(i+1)%len(verts)]
		sa, sb := side(a), side(b)
		if sa <= eps {
			out = append(out, a)
			if sa >= -eps {
				*onPlane = append(*onPlane, a)
			}
		}
		if (sa < -eps && sb > eps) || (sa > eps && sb < -eps) {
			t := sa / (sa - sb)
			x := r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
			out = append(out, x)
			*onPlane = append(*onPlane, x)
		}
	}
	return dedupe(out, eps)
}

// dedupe drops points within eps of an earlier point, keeping order.
func dedupe(pts []r3.Vec, eps float64) []r3.Vec {
	out := pts[:0:0]
	for _, p := range pts {
		dup := false
		for _, q := range out {
			if r3.Norm(r3.Sub(p, q)) <= eps {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}

// orderAround sorts coplanar points by angle around their centroid in the
// plane with normal n.
func orderAround(pts []r3.Vec, n r3.Vec) []r3.Vec {
	var c r3.Vec
	for _, p := range pts {
		c = r3.Add(c, p)
	}
	c = r3.Scale(1/float64(len(pts)), c)

	u, v := planeBasis(n)

	angle := make(map[int]float64, len(pts))
	idx := make([]int, len(pts))
	for i, p := range pts {
		d := r3.Sub(p, c)
		angle[i] = math.Atan2(r3.Dot(d, v), r3.Dot(d, u))
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return angle[idx[a]] < angle[idx[b]] })

	out := make([]r3.Vec, len(pts))
	for i, k := range idx {
		out[i] = pts[k]
	}
	return out
}

// planeBasis returns two orthonormal vectors spanning the plane with
// normal n.
func planeBasis(n r3.Vec) (u, v r3.Vec) {
	axis := r3.Vec{X: 1}
	if math.Abs(n.X) > 0.9*r3.Norm(n) {
		axis = r3.Vec{Y: 1}
	}
	u = r3.Unit(r3.Cross(n, axis))
	v = r3.Unit(r3.Cross(n, u))
	return u, v
}

func perimeter(verts []r3.Vec) float64 {
	var sum float64
	for i := range verts {
		sum += r3.Norm(r3.Sub(verts[(i+1)%len(verts)], verts[i]))
	}
	return sum
}

func polygonArea(verts []r3.Vec) float64 {
	if len(verts) < 3 {
		return 0
	}
	var sum r3.Vec
	for i := 1; i+1 < len(verts); i++ {
		sum = r3.Add(sum, r3.Cross(r3.Sub(verts[i], verts[0]), r3.Sub(verts[i+1], verts[0])))
	}
	return r3.Norm(sum) / 2
}
