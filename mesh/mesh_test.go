package mesh

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/femesh/elem"
	"github.com/notargets/femesh/la"
	"github.com/notargets/femesh/mesh/readers"
	"github.com/notargets/femesh/partition"
)

func unitBox(g elem.GeometryType, n ...int) (box Box) {
	box = Box{Geometry: g, Material: 2, Group: 1}
	for d := 0; d < 3; d++ {
		box.N[d] = 1
		box.Max[d] = 1
	}
	copy(box.N[:], n)
	return
}

func buildBox(c *la.Comm, cfg *Config, box Box) (*Mesh, error) {
	raw, err := GenerateCoarseBoxMesh(box)
	if err != nil {
		return nil, err
	}
	return BuildCoarseMesh(c, cfg, raw)
}

func panicErr(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if err, _ = r.(error); err == nil {
				err = fmt.Errorf("%v", r)
			}
		}
	}()
	f()
	return
}

// checkNumbering verifies the ownership tables, ghost lists and dof maps of
// one process.
func checkNumbering(t *testing.T, m *Mesh) {
	var (
		topo        = m.Topology()
		rank        = m.Comm().Rank()
		np          = m.Comm().Size()
		dim         = m.Dimension()
		first, last = m.OwnedElements()
	)
	for f := elem.Family(0); f < elem.NumFamilies; f++ {
		off := m.DofOffset(f)
		if !assert.Len(t, off, np+1) {
			return
		}
		assert.Equal(t, 0, off[0])
		for p := 0; p < np; p++ {
			assert.LessOrEqual(t, off[p], off[p+1], "%s offsets %v", f, off)
		}
	}
	assert.Equal(t, topo.NumElements(), m.NumDofs(elem.PiecewiseConstant))
	assert.Equal(t, topo.NumElements()*(dim+1), m.NumDofs(elem.PiecewiseLinearDiscontinuous))
	assert.Equal(t, topo.NumNodes(), m.NumDofs(elem.BiquadraticLagrange))

	for k := elem.LinearLagrange; k <= elem.BiquadraticLagrange; k++ {
		// One dof per node referenced within the family's slots
		nodes := make(map[int]bool)
		for iel := 0; iel < topo.NumElements(); iel++ {
			for i := 0; i < topo.NumDofs(iel, k); i++ {
				nodes[topo.VertexIndex(iel, i)] = true
			}
		}
		assert.Equal(t, len(nodes), m.NumDofs(k), "%s dofs", k)

		ghosts := m.Ghosts(k, rank)
		assert.True(t, sort.IntsAreSorted(ghosts))
		foreign := make(map[int]bool)
		for iel := first; iel < last; iel++ {
			for i := 0; i < topo.NumDofs(iel, k); i++ {
				dof := m.GetSolutionDof(i, iel, k)
				if m.IsdomBisectionSearch(dof, k) != rank {
					foreign[dof] = true
				}
			}
		}
		var expected []int
		for dof := range foreign {
			expected = append(expected, dof)
		}
		sort.Ints(expected)
		if len(expected) == 0 {
			assert.Empty(t, ghosts, "%s ghosts of rank %d", k, rank)
		} else {
			assert.Equal(t, expected, ghosts, "%s ghosts of rank %d", k, rank)
		}
	}

	disc := make(map[int]bool)
	for iel := first; iel < last; iel++ {
		assert.Equal(t, rank, m.ElementOwner(iel))
		assert.Equal(t, iel, m.GetSolutionDof(0, iel, elem.PiecewiseConstant))
		for i := 0; i <= dim; i++ {
			dof := m.GetSolutionDof(i, iel, elem.PiecewiseLinearDiscontinuous)
			assert.Equal(t, rank, m.IsdomBisectionSearch(dof, elem.PiecewiseLinearDiscontinuous))
			disc[dof] = true
		}
	}
	assert.Len(t, disc, m.OwnSize(elem.PiecewiseLinearDiscontinuous, rank))
}

// checkFaces verifies that every interior face neighbour points back.
func checkFaces(t *testing.T, m *Mesh) {
	topo := m.Topology()
	for iel := 0; iel < topo.NumElements(); iel++ {
		for f := 0; f < topo.NumFaces(iel); f++ {
			nb := topo.FaceNeighbor(iel, f)
			if !assert.NotEqual(t, elem.FaceUnset, nb, "element %d face %d", iel, f) || nb < 0 {
				continue
			}
			back := false
			for jf := 0; jf < topo.NumFaces(nb); jf++ {
				back = back || topo.FaceNeighbor(nb, jf) == iel
			}
			assert.True(t, back, "element %d face %d neighbour %d", iel, f, nb)
		}
	}
}

// checkMidpoints verifies that edge nodes sit halfway between their
// endpoints, which holds for every affine box mesh.
func checkMidpoints(t *testing.T, m *Mesh) {
	var (
		topo        = m.Topology()
		first, last = m.OwnedElements()
	)
	for iel := first; iel < last; iel++ {
		g := topo.Type(iel)
		for e, ends := range elem.Edges[g] {
			for d, name := range coordinateFields[:m.Dimension()] {
				x := m.Field(name)
				mid := x.At(topo.VertexIndex(iel, elem.NVE[g][0]+e))
				a, b := x.At(topo.VertexIndex(iel, ends[0])), x.At(topo.VertexIndex(iel, ends[1]))
				assert.InDelta(t, 0.5*(a+b), mid, 1.e-12, "%s element %d edge %d axis %d", g, iel, e, d)
			}
		}
	}
}

func TestTwoHexesOnTwoProcesses(t *testing.T) {
	err := la.Run(2, func(c *la.Comm) error {
		m, err := buildBox(c, nil, unitBox(elem.Hex, 2))
		if err != nil {
			return err
		}
		rank := c.Rank()
		assert.Equal(t, []int{0, 1, 2}, m.DofOffset(elem.PiecewiseConstant))
		assert.Equal(t, []int{0, 8, 12}, m.DofOffset(elem.LinearLagrange))
		assert.Equal(t, []int{0, 20, 32}, m.DofOffset(elem.QuadraticLagrange))
		assert.Equal(t, []int{0, 27, 45}, m.DofOffset(elem.BiquadraticLagrange))
		assert.Equal(t, []int{0, 4, 8}, m.DofOffset(elem.PiecewiseLinearDiscontinuous))
		assert.Equal(t, 1, m.OwnSize(elem.PiecewiseConstant, rank))
		if rank == 0 {
			assert.Empty(t, m.Ghosts(elem.LinearLagrange, 0))
		} else {
			assert.Len(t, m.Ghosts(elem.LinearLagrange, 1), 4)
			assert.Len(t, m.Ghosts(elem.QuadraticLagrange, 1), 8)
			assert.Len(t, m.Ghosts(elem.BiquadraticLagrange, 1), 9)
			assert.Equal(t, 6, m.GetSolutionDof(2, 1, elem.PiecewiseLinearDiscontinuous))
		}
		assert.Nil(t, m.Ghosts(elem.PiecewiseConstant, rank))
		checkNumbering(t, m)
		checkFaces(t, m)
		checkMidpoints(t, m)
		return nil
	})
	require.NoError(t, err)
}

func TestNumberingAcrossGeometries(t *testing.T) {
	boxes := []Box{
		unitBox(elem.Hex, 2, 2, 1),
		unitBox(elem.Tet, 1, 1, 1),
		unitBox(elem.Wedge, 2, 1, 1),
		unitBox(elem.Quad, 3, 2),
		unitBox(elem.Tri, 2, 2),
		unitBox(elem.Line, 5),
	}
	for _, box := range boxes {
		for _, np := range []int{1, 2, 3} {
			t.Run(fmt.Sprintf("%s/%d", box.Geometry, np), func(t *testing.T) {
				err := la.Run(np, func(c *la.Comm) error {
					m, err := buildBox(c, nil, box)
					if err != nil {
						return err
					}
					checkNumbering(t, m)
					checkFaces(t, m)
					checkMidpoints(t, m)
					return nil
				})
				require.NoError(t, err)
			})
		}
	}
}

func TestCoarseMeshCounts(t *testing.T) {
	err := la.Run(1, func(c *la.Comm) error {
		for _, tc := range []struct {
			box              Box
			nel, nvt, nv, n1 int
		}{
			{unitBox(elem.Hex, 1, 1, 1), 1, 27, 8, 20},
			{unitBox(elem.Tet, 1, 1, 1), 6, 27, 8, 27},
			{unitBox(elem.Quad, 2, 1), 2, 15, 6, 13},
			{unitBox(elem.Tri, 1, 1), 2, 9, 4, 9},
			{unitBox(elem.Line, 3), 3, 7, 4, 7},
		} {
			m, err := buildBox(c, nil, tc.box)
			if err != nil {
				return err
			}
			g := tc.box.Geometry
			assert.Equal(t, tc.nel, m.NumElements(), g.String())
			assert.Equal(t, tc.nvt, m.NumNodes(), g.String())
			assert.Equal(t, tc.nv, m.NumDofs(elem.LinearLagrange), g.String())
			assert.Equal(t, tc.n1, m.NumDofs(elem.QuadraticLagrange), g.String())
			assert.Equal(t, float64(g), m.Field(FieldType).At(0))
			assert.Equal(t, 2., m.Field(FieldMaterial).At(0))
			assert.Equal(t, 1., m.Field(FieldGroup).At(0))
		}
		return nil
	})
	require.NoError(t, err)
}

func TestBoundaryMarkers(t *testing.T) {
	err := la.Run(1, func(c *la.Comm) error {
		m, err := buildBox(c, nil, unitBox(elem.Quad, 2, 2))
		if err != nil {
			return err
		}
		topo := m.Topology()
		counts := make(map[int]int)
		for iel := 0; iel < topo.NumElements(); iel++ {
			for f := 0; f < topo.NumFaces(iel); f++ {
				if nb := topo.FaceNeighbor(iel, f); elem.IsBoundary(nb) {
					counts[elem.BoundaryIndex(nb)]++
				}
			}
		}
		assert.Equal(t, map[int]int{BoxXMin: 2, BoxXMax: 2, BoxYMin: 2, BoxYMax: 2}, counts)
		return nil
	})
	require.NoError(t, err)
}

func TestCoordinates(t *testing.T) {
	err := la.Run(2, func(c *la.Comm) error {
		box := unitBox(elem.Quad, 2, 2)
		box.Min = [3]float64{-1, 2, 0}
		box.Max = [3]float64{1, 3, 0}
		m, err := buildBox(c, nil, box)
		if err != nil {
			return err
		}
		coords := m.Coordinates()
		require.Len(t, coords, 25)
		var xs, ys []float64
		for _, x := range coords {
			xs = append(xs, x[0])
			ys = append(ys, x[1])
		}
		sort.Float64s(xs)
		sort.Float64s(ys)
		assert.Equal(t, -1., xs[0])
		assert.Equal(t, 1., xs[24])
		assert.Equal(t, 2., ys[0])
		assert.Equal(t, 3., ys[24])
		first, last := m.OwnedElements()
		for iel := first; iel < last; iel++ {
			ctr := m.ElementCentroid(iel)
			assert.Equal(t, 0., ctr[2])
			assert.InDelta(t, coords[m.Topology().VertexIndex(iel, elem.InteriorNode(elem.Quad))][0], ctr[0], 1.e-12)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestQitoQjProjection(t *testing.T) {
	for _, g := range []elem.GeometryType{elem.Hex, elem.Tri, elem.Wedge} {
		err := la.Run(2, func(c *la.Comm) error {
			m, err := buildBox(c, nil, unitBox(g, 2, 1, 1))
			if err != nil {
				return err
			}
			P := m.GetQitoQjProjection(elem.BiquadraticLagrange, elem.LinearLagrange)
			assert.Same(t, P, m.GetQitoQjProjection(elem.BiquadraticLagrange, elem.LinearLagrange))
			rows, cols := P.Dims()
			assert.Equal(t, m.NumDofs(elem.BiquadraticLagrange), rows)
			assert.Equal(t, m.NumDofs(elem.LinearLagrange), cols)
			assert.Zero(t, P.ExtraAllocations())
			assert.Equal(t, "Q2toQ0 level 0", P.Name())

			// Linear fields are reproduced
			var (
				topo        = m.Topology()
				X           = m.Field(FieldX)
				x           = m.NewFamilyVector(elem.LinearLagrange, false)
				y           = m.NewFamilyVector(elem.BiquadraticLagrange, false)
				first, last = m.OwnedElements()
			)
			for iel := first; iel < last; iel++ {
				for i := 0; i < topo.NumDofs(iel, elem.LinearLagrange); i++ {
					x.Set(m.GetSolutionDof(i, iel, elem.LinearLagrange), X.At(topo.VertexIndex(iel, i)))
				}
			}
			x.Close()
			y.MatMult(P, x)
			lo, hi := y.OwnershipRange()
			for n := lo; n < hi; n++ {
				assert.InDelta(t, X.At(n), y.At(n), 1.e-12, "%s node %d", g, n)
			}
			return nil
		})
		require.NoError(t, err)
	}
}

func TestProjectionErrors(t *testing.T) {
	err := la.Run(1, func(c *la.Comm) error {
		m, err := buildBox(c, nil, unitBox(elem.Quad, 1, 1))
		if err != nil {
			return err
		}
		assert.ErrorIs(t, panicErr(func() { m.GetCoarseToFineProjection(elem.LinearLagrange) }), ErrConfiguration)
		assert.ErrorIs(t, panicErr(func() { m.GetQitoQjProjection(elem.Family(5), 0) }), ErrConfiguration)
		assert.ErrorIs(t, panicErr(func() { m.GetQitoQjProjection(elem.PiecewiseConstant, 0) }), ErrConfiguration)
		assert.ErrorIs(t, panicErr(func() { m.NumDofs(elem.Family(7)) }), ErrConfiguration)
		assert.ErrorIs(t, panicErr(func() { m.IsdomBisectionSearch(-1, elem.LinearLagrange) }), ErrInvariant)
		assert.ErrorIs(t, panicErr(func() { RefineMesh(1, nil) }), ErrConfiguration)
		return nil
	})
	require.NoError(t, err)
}

func TestBuildCoarseMeshErrors(t *testing.T) {
	err := la.Run(1, func(c *la.Comm) error {
		_, err := ReadCoarseMesh(c, nil, "mesh.med", 1)
		assert.ErrorIs(t, err, ErrConfiguration)
		assert.ErrorIs(t, err, readers.ErrUnsupportedFormat)

		raw, err := GenerateCoarseBoxMesh(unitBox(elem.Quad, 1, 1))
		require.NoError(t, err)
		raw.Coords = append(raw.Coords, [3]float64{5, 5, 0})
		_, err = BuildCoarseMesh(c, nil, raw)
		assert.ErrorIs(t, err, ErrConfiguration)

		raw.Vertices[0] = raw.Vertices[0][:3]
		_, err = BuildCoarseMesh(c, nil, raw)
		assert.ErrorIs(t, err, ErrConfiguration)

		_, err = GenerateCoarseBoxMesh(unitBox(elem.Hex, 0, 1, 1))
		assert.Error(t, err)
		return nil
	})
	require.NoError(t, err)
}

func TestPartitionerFailureAbortsRun(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Partitioner = failingPartitioner{}
	err := la.Run(2, func(c *la.Comm) error {
		_, err := buildBox(c, cfg, unitBox(elem.Quad, 2, 2))
		return err
	})
	assert.Error(t, err)
}

type failingPartitioner struct{}

func (failingPartitioner) Partition(g *partition.Graph, nparts int) ([]int, error) {
	return nil, fmt.Errorf("no partition for %d vertices", g.NumVertices())
}

func TestStructureNodes(t *testing.T) {
	err := la.Run(1, func(c *la.Comm) error {
		raw, err := GenerateCoarseBoxMesh(unitBox(elem.Quad, 2, 1))
		require.NoError(t, err)
		raw.Material[1] = SolidMaterial
		m, err := BuildCoarseMesh(c, nil, raw)
		if err != nil {
			return err
		}
		m.AllocateAndMarkStructureNode()
		topo := m.Topology()
		solid := 0
		for n := 0; n < topo.NumNodes(); n++ {
			if topo.NodeRegion(n) {
				solid++
			}
		}
		assert.Equal(t, 9, solid)
		for iel := 0; iel < topo.NumElements(); iel++ {
			for _, n := range topo.ElementNodes(iel) {
				if topo.Material(iel) == SolidMaterial {
					assert.True(t, topo.NodeRegion(n))
				}
			}
		}
		m.FreeStructureNode()
		for n := 0; n < topo.NumNodes(); n++ {
			assert.False(t, topo.NodeRegion(n))
		}

		// Refined levels start without flags
		m.FlagElementsToRefine(FlagAll)
		m.AllocateAndMarkStructureNode()
		fine := RefineMesh(1, m)
		for n := 0; n < fine.NumNodes(); n++ {
			assert.False(t, fine.Topology().NodeRegion(n))
		}
		return nil
	})
	require.NoError(t, err)
}
