// Package elem holds the static per-geometry tables and the per-level element
// topology store.
package elem

import "fmt"

type GeometryType uint8

const (
	Hex GeometryType = iota
	Tet
	Wedge
	Quad
	Tri
	Line
)

const NumGeometryTypes = 6

var geometryNames = [NumGeometryTypes]string{"hex", "tet", "wedge", "quad", "tri", "line"}

func (g GeometryType) String() string {
	if int(g) < NumGeometryTypes {
		return geometryNames[g]
	}
	return fmt.Sprintf("GeometryType(%d)", uint8(g))
}

func (g GeometryType) Dimension() int {
	switch g {
	case Hex, Tet, Wedge:
		return 3
	case Quad, Tri:
		return 2
	}
	return 1
}

// ParseGeometryType accepts the lower case names used by String.
func ParseGeometryType(name string) (g GeometryType, err error) {
	for i, n := range geometryNames {
		if n == name {
			return GeometryType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown geometry type %q", name)
}

// Family is a dof numbering scheme. The three Lagrange families are nested,
// each one a subset of the next.
type Family uint8

const (
	LinearLagrange Family = iota
	QuadraticLagrange
	BiquadraticLagrange
	PiecewiseConstant
	PiecewiseLinearDiscontinuous
)

const NumFamilies = 5

var familyNames = [NumFamilies]string{"linear", "quadratic", "biquadratic", "constant", "disc_linear"}

func (f Family) String() string {
	if f.Valid() {
		return familyNames[f]
	}
	return fmt.Sprintf("Family(%d)", uint8(f))
}

func (f Family) Valid() bool    { return int(f) < NumFamilies }
func (f Family) Lagrange() bool { return f <= BiquadraticLagrange }

// NVE is the number of dofs per element for each family.
var NVE = [NumGeometryTypes][NumFamilies]int{
	{8, 20, 27, 1, 4}, // hex
	{4, 10, 10, 1, 4}, // tet
	{6, 15, 18, 1, 4}, // wedge
	{4, 8, 9, 1, 3},   // quad
	{3, 6, 6, 1, 3},   // tri
	{2, 3, 3, 1, 2},   // line
}

// NRE is the number of children produced by one refinement.
var NRE = [NumGeometryTypes]int{8, 8, 8, 4, 4, 2}

// NFC holds the number of quadrilateral faces and the total number of faces
// (edges in 2D, end points in 1D).
var NFC = [NumGeometryTypes][2]int{
	{6, 6},
	{0, 4},
	{3, 5},
	{0, 4},
	{0, 3},
	{0, 2},
}

// IG lists the element local nodes of every face: vertices first, then edge
// midpoints, then the face center when there is one.
var IG = [NumGeometryTypes][][]int{
	{
		{0, 1, 5, 4, 8, 17, 12, 16, 20},
		{1, 2, 6, 5, 9, 18, 13, 17, 21},
		{2, 3, 7, 6, 10, 19, 14, 18, 22},
		{3, 0, 4, 7, 11, 16, 15, 19, 23},
		{0, 3, 2, 1, 11, 10, 9, 8, 24},
		{4, 5, 6, 7, 12, 13, 14, 15, 25},
	},
	{
		{0, 2, 1, 6, 5, 4},
		{0, 1, 3, 4, 8, 7},
		{1, 2, 3, 5, 9, 8},
		{2, 0, 3, 6, 7, 9},
	},
	{
		{0, 1, 4, 3, 6, 13, 9, 12, 15},
		{1, 2, 5, 4, 7, 14, 10, 13, 16},
		{2, 0, 3, 5, 8, 12, 11, 14, 17},
		{0, 2, 1, 8, 7, 6},
		{3, 4, 5, 9, 10, 11},
	},
	{{0, 1, 4}, {1, 2, 5}, {2, 3, 6}, {3, 0, 7}},
	{{0, 1, 3}, {1, 2, 4}, {2, 0, 5}},
	{{0}, {1}},
}

// NFACENODES is the number of face nodes per Lagrange family.
var NFACENODES = [NumGeometryTypes][][3]int{
	{{4, 8, 9}, {4, 8, 9}, {4, 8, 9}, {4, 8, 9}, {4, 8, 9}, {4, 8, 9}},
	{{3, 6, 6}, {3, 6, 6}, {3, 6, 6}, {3, 6, 6}},
	{{4, 8, 9}, {4, 8, 9}, {4, 8, 9}, {3, 6, 6}, {3, 6, 6}},
	{{2, 3, 3}, {2, 3, 3}, {2, 3, 3}, {2, 3, 3}},
	{{2, 3, 3}, {2, 3, 3}, {2, 3, 3}},
	{{1, 1, 1}, {1, 1, 1}},
}

// Edges holds the vertex pair of every edge. Edge e carries the midpoint node
// NVE[g][0]+e.
var Edges = [NumGeometryTypes][][2]int{
	{{0, 1}, {1, 2}, {2, 3}, {3, 0}, {4, 5}, {5, 6}, {6, 7}, {7, 4}, {0, 4}, {1, 5}, {2, 6}, {3, 7}},
	{{0, 1}, {1, 2}, {2, 0}, {0, 3}, {1, 3}, {2, 3}},
	{{0, 1}, {1, 2}, {2, 0}, {3, 4}, {4, 5}, {5, 3}, {0, 3}, {1, 4}, {2, 5}},
	{{0, 1}, {1, 2}, {2, 3}, {3, 0}},
	{{0, 1}, {1, 2}, {2, 0}},
	{{0, 1}},
}

// FaceCenterNode returns the local node at the center of quadrilateral face
// f, or -1.
func FaceCenterNode(g GeometryType, f int) int {
	if f < NFC[g][0] {
		return NVE[g][1] + f
	}
	return -1
}

// InteriorNode returns the local node at the element center, or -1 for
// geometries without one.
func InteriorNode(g GeometryType) int {
	switch g {
	case Hex:
		return 26
	case Quad:
		return 8
	}
	return -1
}

// FineToCoarseVertex maps child vertices to the parent's biquadratic nodes.
var FineToCoarseVertex = [NumGeometryTypes][][]int{
	{
		{0, 8, 24, 11, 16, 20, 26, 23}, {8, 1, 9, 24, 20, 17, 21, 26},
		{24, 9, 2, 10, 26, 21, 18, 22}, {11, 24, 10, 3, 23, 26, 22, 19},
		{16, 20, 26, 23, 4, 12, 25, 15}, {20, 17, 21, 26, 12, 5, 13, 25},
		{26, 21, 18, 22, 25, 13, 6, 14}, {23, 26, 22, 19, 15, 25, 14, 7},
	},
	{
		{0, 4, 6, 7}, {4, 1, 5, 8}, {6, 5, 2, 9}, {7, 8, 9, 3},
		{4, 9, 8, 5}, {4, 9, 7, 8}, {4, 9, 6, 7}, {4, 9, 5, 6},
	},
	{
		{0, 6, 8, 12, 15, 17}, {6, 1, 7, 15, 13, 16}, {8, 7, 2, 17, 16, 14}, {7, 8, 6, 16, 17, 15},
		{12, 15, 17, 3, 9, 11}, {15, 13, 16, 9, 4, 10}, {17, 16, 14, 11, 10, 5}, {16, 17, 15, 10, 11, 9},
	},
	{{0, 4, 8, 7}, {4, 1, 5, 8}, {8, 5, 2, 6}, {7, 8, 6, 3}},
	{{0, 3, 5}, {3, 1, 4}, {5, 4, 2}, {4, 5, 3}},
	{{0, 2}, {2, 1}},
}

// ChildFace names a face of a child element.
type ChildFace struct {
	Child, Face int
}

// CoarseToFineFace lists, for each parent face, the child faces covering it.
var CoarseToFineFace = [NumGeometryTypes][][]ChildFace{
	{
		{{0, 0}, {1, 0}, {4, 0}, {5, 0}}, {{1, 1}, {2, 1}, {5, 1}, {6, 1}},
		{{2, 2}, {3, 2}, {6, 2}, {7, 2}}, {{0, 3}, {3, 3}, {4, 3}, {7, 3}},
		{{0, 4}, {1, 4}, {2, 4}, {3, 4}}, {{4, 5}, {5, 5}, {6, 5}, {7, 5}},
	},
	{
		{{0, 0}, {1, 0}, {2, 0}, {7, 3}}, {{0, 1}, {1, 1}, {3, 1}, {5, 3}},
		{{1, 2}, {2, 2}, {3, 2}, {4, 2}}, {{0, 3}, {2, 3}, {3, 3}, {6, 2}},
	},
	{
		{{0, 0}, {1, 0}, {4, 0}, {5, 0}}, {{1, 1}, {2, 1}, {5, 1}, {6, 1}},
		{{0, 2}, {2, 2}, {4, 2}, {6, 2}}, {{0, 3}, {1, 3}, {2, 3}, {3, 3}},
		{{4, 4}, {5, 4}, {6, 4}, {7, 4}},
	},
	{{{0, 0}, {1, 0}}, {{1, 1}, {2, 1}}, {{2, 2}, {3, 2}}, {{0, 3}, {3, 3}}},
	{{{0, 0}, {1, 0}}, {{1, 1}, {2, 1}}, {{0, 2}, {2, 2}}},
	{{{0, 0}}, {{1, 1}}},
}

// AffineAxes names the child vertices spanning a child's affine frame: the
// origin followed by one vertex per reference axis.
var AffineAxes = [NumGeometryTypes][]int{
	{0, 1, 3, 4},
	{0, 1, 2, 3},
	{0, 1, 2, 3},
	{0, 1, 3},
	{0, 1, 2},
	{0, 1},
}

// Vertices2Edge maps an ordered pair of local vertices to the local edge
// index, or -1 when the pair is not an edge.
var Vertices2Edge [NumGeometryTypes][8][8]int

func init() {
	for g := range Vertices2Edge {
		for i := range Vertices2Edge[g] {
			for j := range Vertices2Edge[g][i] {
				Vertices2Edge[g][i][j] = -1
			}
		}
		for e, ends := range Edges[g] {
			Vertices2Edge[g][ends[0]][ends[1]] = e
			Vertices2Edge[g][ends[1]][ends[0]] = e
		}
	}
}
