package elem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTables(t *testing.T) {
	for g := GeometryType(0); g < NumGeometryTypes; g++ {
		nv := NVE[g][LinearLagrange]
		{ // Face tables
			require.Len(t, IG[g], NFC[g][1], g.String())
			require.Len(t, NFACENODES[g], NFC[g][1], g.String())
			for f, nodes := range IG[g] {
				assert.Equal(t, NFACENODES[g][f][BiquadraticLagrange], len(nodes), "%s face %d", g, f)
				for i, n := range nodes {
					if i < NFACENODES[g][f][LinearLagrange] {
						assert.Less(t, n, nv)
					} else {
						assert.GreaterOrEqual(t, n, nv)
					}
				}
				if c := FaceCenterNode(g, f); c >= 0 {
					assert.Equal(t, c, nodes[len(nodes)-1])
				}
			}
		}
		{ // Edges fill the quadratic slots exactly
			assert.Equal(t, NVE[g][QuadraticLagrange]-nv, len(Edges[g]), g.String())
			for e, ends := range Edges[g] {
				assert.Equal(t, e, Vertices2Edge[g][ends[0]][ends[1]])
				assert.Equal(t, e, Vertices2Edge[g][ends[1]][ends[0]])
			}
			assert.Equal(t, -1, Vertices2Edge[g][0][0])
		}
		{ // Quadratic face nodes are the midpoints of consecutive face vertices
			for f, nodes := range IG[g] {
				nfv := NFACENODES[g][f][LinearLagrange]
				if nfv < 2 {
					continue
				}
				for k := 0; k < NFACENODES[g][f][QuadraticLagrange]-nfv; k++ {
					a, b := nodes[k], nodes[(k+1)%nfv]
					e := Vertices2Edge[g][a][b]
					require.GreaterOrEqual(t, e, 0, "%s face %d", g, f)
					assert.Equal(t, nv+e, nodes[nfv+k])
				}
			}
		}
		{ // Children
			require.Len(t, FineToCoarseVertex[g], NRE[g])
			for _, c := range FineToCoarseVertex[g] {
				assert.Len(t, c, nv)
				for _, n := range c {
					assert.Less(t, n, NVE[g][BiquadraticLagrange])
				}
			}
			assert.Len(t, AffineAxes[g], g.Dimension()+1)
		}
		{ // Every child face listed under a parent face lies inside it
			expected := map[int]int{3: 4, 2: 2, 1: 1}[g.Dimension()]
			for f, list := range CoarseToFineFace[g] {
				assert.Len(t, list, expected, "%s face %d", g, f)
				parent := make(map[int]bool)
				for _, n := range IG[g][f] {
					parent[n] = true
				}
				for _, cf := range list {
					for i := 0; i < NFACENODES[g][cf.Face][LinearLagrange]; i++ {
						n := FineToCoarseVertex[g][cf.Child][IG[g][cf.Face][i]]
						assert.True(t, parent[n], "%s face %d child %v", g, f, cf)
					}
				}
			}
		}
	}
	assert.Equal(t, 26, InteriorNode(Hex))
	assert.Equal(t, 8, InteriorNode(Quad))
	assert.Equal(t, -1, InteriorNode(Tet))
	g, err := ParseGeometryType("wedge")
	require.NoError(t, err)
	assert.Equal(t, Wedge, g)
	_, err = ParseGeometryType("pyramid")
	assert.Error(t, err)
	assert.False(t, Family(5).Valid())
	assert.True(t, BiquadraticLagrange.Lagrange())
	assert.False(t, PiecewiseConstant.Lagrange())
}

func TestBoundaryMarkers(t *testing.T) {
	for bc := 0; bc < 6; bc++ {
		m := BoundaryMarker(bc)
		assert.True(t, IsBoundary(m))
		assert.Equal(t, bc, BoundaryIndex(m))
	}
	assert.False(t, IsBoundary(FaceUnset))
	assert.False(t, IsBoundary(0))
}

func newQuadStrip() *Topology {
	// Three quads in a row, vertex-only numbering
	//  4---5---6---7
	//  |   |   |   |
	//  0---1---2---3
	tp := NewTopology(2, []GeometryType{Quad, Quad, Quad})
	for iel := 0; iel < 3; iel++ {
		tp.SetVertexIndex(iel, 0, iel)
		tp.SetVertexIndex(iel, 1, iel+1)
		tp.SetVertexIndex(iel, 2, iel+5)
		tp.SetVertexIndex(iel, 3, iel+4)
		tp.SetMaterial(iel, 10+iel)
		tp.SetGroup(iel, 20+iel)
	}
	tp.SetNumNodes(8)
	tp.SetFaceNeighbor(0, 3, BoundaryMarker(0))
	tp.SetFaceNeighbor(0, 1, 1)
	tp.SetFaceNeighbor(1, 3, 0)
	return tp
}

func TestTopology(t *testing.T) {
	tp := newQuadStrip()
	assert.Equal(t, 3, tp.NumElements())
	assert.Equal(t, 3, tp.TypeCount(Quad))
	assert.Equal(t, 4, tp.NumDofs(0, LinearLagrange))
	assert.Equal(t, 9, len(tp.ElementNodes(2)))
	assert.Equal(t, Unassigned, tp.VertexIndex(0, 8))
	assert.Equal(t, []int{1, 5}, tp.FaceVertices(1, 3))
	assert.Equal(t, 3, tp.NumFaceDofs(0, 0, BiquadraticLagrange))

	{ // Vertex to element map
		counts := make([]int, tp.NumNodes())
		for iel := 0; iel < tp.NumElements(); iel++ {
			for i := 0; i < 4; i++ {
				counts[tp.VertexIndex(iel, i)]++
			}
		}
		tp.AllocateVertexElements(counts)
		for iel := 0; iel < tp.NumElements(); iel++ {
			for i := 0; i < 4; i++ {
				tp.AddVertexElement(tp.VertexIndex(iel, i), iel)
			}
		}
		assert.Equal(t, []int{0, 1}, tp.VertexElements(1))
		assert.Equal(t, []int{2}, tp.VertexElements(7))
		assert.Panics(t, func() { tp.AddVertexElement(7, 0) })
	}
	{ // Element reordering keeps boundary markers and resets interior faces
		tp.SetRefined(2, true)
		tp.ReorderMeshElements([]int{2, 0, 1}, nil)
		assert.False(t, tp.HasVertexElements())
		assert.Equal(t, 12, tp.Material(0))
		assert.Equal(t, 20, tp.Group(1))
		assert.True(t, tp.IsRefined(0))
		assert.Equal(t, 2, tp.VertexIndex(0, 0))
		assert.Equal(t, BoundaryMarker(0), tp.FaceNeighbor(1, 3))
		assert.Equal(t, FaceUnset, tp.FaceNeighbor(1, 1))
		assert.Panics(t, func() { tp.ReorderMeshElements([]int{0, 0, 1}, nil) })
	}
	{ // Node relabelling
		tp.AllocateNodeRegion()
		tp.SetNodeRegion(0, true)
		newIndex := []int{7, 6, 5, 4, 3, 2, 1, 0}
		tp.ReorderMeshNodes(newIndex)
		assert.Equal(t, 5, tp.VertexIndex(0, 0))
		assert.Equal(t, Unassigned, tp.VertexIndex(0, 4))
		assert.True(t, tp.NodeRegion(7))
		assert.False(t, tp.NodeRegion(0))
		tp.FreeNodeRegion()
		assert.False(t, tp.NodeRegion(7))
	}
}

func TestChildren(t *testing.T) {
	coarse := newQuadStrip()
	coarse.SetRefined(1, true)
	coarse.AllocateChildren()
	assert.Equal(t, 1, coarse.NumChildren(0))
	assert.Equal(t, 4, coarse.NumChildren(1))
	assert.Equal(t, 1, coarse.RefinedCount(Quad))
	geom := make([]GeometryType, 6)
	for i := range geom {
		geom[i] = Quad
	}
	fine := NewTopology(2, geom)
	next := 0
	for iel := 0; iel < coarse.NumElements(); iel++ {
		for c := 0; c < coarse.NumChildren(iel); c++ {
			coarse.SetChildElement(iel, c, next)
			fine.SetFather(next, iel)
			fine.SetFatherRefined(next, coarse.IsRefined(iel))
			next++
		}
	}
	// Move the pass-through of element 2 to the front
	fine.ReorderMeshElements([]int{5, 0, 1, 2, 3, 4}, coarse)
	assert.Equal(t, 0, coarse.ChildElement(2, 0))
	assert.Equal(t, 1, coarse.ChildElement(0, 0))
	assert.Equal(t, 5, coarse.ChildElement(1, 3))
	assert.Equal(t, 2, fine.Father(0))
	assert.True(t, fine.IsFatherRefined(3))
	assert.False(t, fine.IsFatherRefined(0))
}
