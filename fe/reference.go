// Package fe provides the per geometry finite element families used to build
// interpolation stencils between Lagrange families and between mesh levels.
package fe

import (
	"github.com/notargets/femesh/elem"
)

// Point is a reference or physical coordinate. Unused trailing components are
// zero.
type Point [3]float64

var referenceVertices = [elem.NumGeometryTypes][]Point{
	{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1}},
	{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 0, 1}, {0, 1, 1}},
	{{0, 0}, {1, 0}, {1, 1}, {0, 1}},
	{{0, 0}, {1, 0}, {0, 1}},
	{{0}, {1}},
}

var referenceNodes [elem.NumGeometryTypes][]Point

func init() {
	for g := elem.GeometryType(0); g < elem.NumGeometryTypes; g++ {
		verts := referenceVertices[g]
		nodes := append([]Point{}, verts...)
		for _, ends := range elem.Edges[g] {
			nodes = append(nodes, average(verts, ends[:]))
		}
		for f := 0; f < elem.NFC[g][0]; f++ {
			nodes = append(nodes, average(verts, elem.IG[g][f][:4]))
		}
		if elem.InteriorNode(g) >= 0 {
			all := make([]int, len(verts))
			for i := range all {
				all[i] = i
			}
			nodes = append(nodes, average(verts, all))
		}
		referenceNodes[g] = nodes
	}
}

func average(pts []Point, idx []int) (p Point) {
	for _, i := range idx {
		for d := 0; d < 3; d++ {
			p[d] += pts[i][d]
		}
	}
	for d := 0; d < 3; d++ {
		p[d] /= float64(len(idx))
	}
	return
}

// ReferenceNode returns the reference coordinate of local biquadratic node i.
func ReferenceNode(g elem.GeometryType, i int) Point { return referenceNodes[g][i] }

// ChildMap is the affine map X = A xi + B from a child's reference
// coordinates to its parent's.
type ChildMap struct {
	A [3][3]float64
	B [3]float64
}

func (cm ChildMap) Apply(xi Point) (x Point) {
	for k := 0; k < 3; k++ {
		x[k] = cm.B[k]
		for m := 0; m < 3; m++ {
			x[k] += cm.A[k][m] * xi[m]
		}
	}
	return
}

var childMaps [elem.NumGeometryTypes][]ChildMap

func init() {
	for g := elem.GeometryType(0); g < elem.NumGeometryTypes; g++ {
		dim := g.Dimension()
		childMaps[g] = make([]ChildMap, elem.NRE[g])
		for c, verts := range elem.FineToCoarseVertex[g] {
			var (
				axes   = elem.AffineAxes[g]
				origin = referenceNodes[g][verts[axes[0]]]
				cm     ChildMap
			)
			cm.B = origin
			for m := 0; m < dim; m++ {
				tip := referenceNodes[g][verts[axes[m+1]]]
				for k := 0; k < dim; k++ {
					cm.A[k][m] = tip[k] - origin[k]
				}
			}
			childMaps[g][c] = cm
		}
	}
}

// ChildMapOf returns the affine map of child c of a geometry g element.
func ChildMapOf(g elem.GeometryType, c int) ChildMap { return childMaps[g][c] }
