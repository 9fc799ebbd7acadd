// Package mesh holds one level of a distributed hierarchical finite element
// mesh: its topology, the parallel dof numbering of the five element
// families, face adjacency, refinement into the next level and the
// interpolation operators between families and levels.
//
// The element topology is replicated on every process, distributed data
// (coordinates, element fields, operators) lives in la vectors and matrices.
package mesh

import (
	"fmt"
	"sort"

	"github.com/notargets/femesh/elem"
	"github.com/notargets/femesh/la"
	"github.com/notargets/femesh/partition"
)

// Mesh is one level of the hierarchy as seen by one process.
type Mesh struct {
	cfg    *Config
	comm   *la.Comm
	level  int
	topo   *elem.Topology
	coarse *Mesh

	nprocs int
	// dofOffset[f] is the monotone ownership table of family f
	dofOffset [elem.NumFamilies][]int
	// ownNodes[k][p] counts the family 2 nodes of process p that are family
	// k owned nodes, k < 2
	ownNodes [2][]int
	// ghosts[f][p] is the sorted ghost list of process p
	ghosts [3][][]int
	// nodeDof[k][n] is the family k dof of node n, -1 when n is not a family
	// k node, k < 2
	nodeDof [2][]int
	// amr is set when some element of the coarse level was not refined
	amr bool
	// hanging maps a face {element, face} lying on a larger pass-through
	// face to the face index of the pass-through element
	hanging map[[2]int]int
	// rowWriter[n] is the element writing the interpolation rows of node n
	rowWriter []int

	coords [][3]float64

	fields map[string]*la.Vector

	qiqj         [3][3]*la.Matrix
	coarseToFine [elem.NumFamilies]*la.Matrix
}

// Field names
const (
	FieldX        = "X"
	FieldY        = "Y"
	FieldZ        = "Z"
	FieldAMR      = "AMR"
	FieldMaterial = "Material"
	FieldGroup    = "Group"
	FieldType     = "Type"
)

var coordinateFields = [3]string{FieldX, FieldY, FieldZ}

func newMesh(c *la.Comm, cfg *Config, level int, topo *elem.Topology, coarse *Mesh) *Mesh {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Mesh{
		cfg:    cfg.withDefaults(),
		comm:   c,
		level:  level,
		topo:   topo,
		coarse: coarse,
		nprocs: c.Size(),
		fields: make(map[string]*la.Vector),
	}
}

func (m *Mesh) Topology() *elem.Topology { return m.topo }
func (m *Mesh) Comm() *la.Comm           { return m.comm }
func (m *Mesh) Level() int               { return m.level }
func (m *Mesh) Coarse() *Mesh            { return m.coarse }
func (m *Mesh) Dimension() int           { return m.topo.Dimension() }
func (m *Mesh) NumElements() int         { return m.topo.NumElements() }
func (m *Mesh) NumNodes() int            { return m.topo.NumNodes() }
func (m *Mesh) Config() *Config          { return m.cfg }

// DofOffset returns the ownership table of family f, one entry per process
// plus one.
func (m *Mesh) DofOffset(f elem.Family) []int {
	m.checkFamily(f)
	return m.dofOffset[f]
}

// NumDofs is the global number of dofs of family f.
func (m *Mesh) NumDofs(f elem.Family) int { return m.DofOffset(f)[m.nprocs] }

// OwnSize is the number of dofs of family f owned by process p.
func (m *Mesh) OwnSize(f elem.Family, p int) int {
	off := m.DofOffset(f)
	return off[p+1] - off[p]
}

// ElementOffset is the element ownership table.
func (m *Mesh) ElementOffset() []int { return m.dofOffset[elem.PiecewiseConstant] }

// OwnedElements returns the element range of this process.
func (m *Mesh) OwnedElements() (first, last int) {
	off := m.ElementOffset()
	return off[m.comm.Rank()], off[m.comm.Rank()+1]
}

// ElementOwner is the process holding element iel.
func (m *Mesh) ElementOwner(iel int) int {
	return m.IsdomBisectionSearch(iel, elem.PiecewiseConstant)
}

// Ghosts returns the sorted ghost list of family f on process p. Families 3
// and 4 have none.
func (m *Mesh) Ghosts(f elem.Family, p int) []int {
	m.checkFamily(f)
	if f > elem.BiquadraticLagrange {
		return nil
	}
	return m.ghosts[f][p]
}

func (m *Mesh) checkFamily(f elem.Family) {
	if !f.Valid() {
		configPanic("dof family %d out of range", f)
	}
}

// IsdomBisectionSearch returns the process owning dof of family f.
func (m *Mesh) IsdomBisectionSearch(dof int, f elem.Family) int {
	off := m.DofOffset(f)
	if dof < 0 || dof >= off[m.nprocs] {
		invariantPanic("%s dof %d outside [0,%d)", f, dof, off[m.nprocs])
	}
	return sort.Search(m.nprocs, func(p int) bool { return off[p+1] > dof })
}

// GetSolutionDof returns the global family f dof of local node inode of
// element iel.
func (m *Mesh) GetSolutionDof(inode, iel int, f elem.Family) (dof int) {
	switch f {
	case elem.LinearLagrange, elem.QuadraticLagrange:
		dof = m.nodeDof[f][m.topo.VertexIndex(iel, inode)]
		if dof < 0 {
			invariantPanic("node %d of element %d has no %s dof", inode, iel, f)
		}
	case elem.BiquadraticLagrange:
		dof = m.topo.VertexIndex(iel, inode)
	case elem.PiecewiseConstant:
		dof = iel
	case elem.PiecewiseLinearDiscontinuous:
		var (
			off = m.ElementOffset()
			p   = m.ElementOwner(iel)
		)
		dof = m.dofOffset[f][p] + inode*(off[p+1]-off[p]) + iel - off[p]
	default:
		m.checkFamily(f)
	}
	return
}

// WritesRow reports whether element iel writes the interpolation rows of its
// local node inode. The writer of a node is the lowest element holding it in
// the lowest family, so a hanging vertex is written by a child holding it as
// a vertex, not by the pass-through element holding it as an edge or face
// node.
func (m *Mesh) WritesRow(inode, iel int) bool {
	if m.rowWriter == nil {
		var (
			t      = m.topo
			writer = make([]int, t.NumNodes())
			class  = make([]elem.Family, t.NumNodes())
		)
		for n := range writer {
			writer[n] = -1
		}
		for jel := 0; jel < t.NumElements(); jel++ {
			g := t.Type(jel)
			for i := 0; i < elem.NVE[g][elem.BiquadraticLagrange]; i++ {
				n, k := t.VertexIndex(jel, i), slotFamily(g, i)
				if writer[n] < 0 || k < class[n] {
					writer[n], class[n] = jel, k
				}
			}
		}
		m.rowWriter = writer
	}
	return m.rowWriter[m.topo.VertexIndex(iel, inode)] == iel
}

// slotFamily is the lowest Lagrange family holding element node slot i.
func slotFamily(g elem.GeometryType, i int) (k elem.Family) {
	for k = elem.LinearLagrange; k < elem.BiquadraticLagrange; k++ {
		if i < elem.NVE[g][k] {
			return
		}
	}
	return
}

// Field returns a named topology field: X, Y, Z are ghosted biquadratic
// vectors, AMR, Material, Group and Type piecewise constant.
func (m *Mesh) Field(name string) *la.Vector {
	v, ok := m.fields[name]
	if !ok {
		panic(fmt.Errorf("mesh level %d has no field %q", m.level, name))
	}
	return v
}

// NewFamilyVector allocates a vector laid out like family f. Lagrange
// families are ghosted when ghosted is set. Collective.
func (m *Mesh) NewFamilyVector(f elem.Family, ghosted bool) *la.Vector {
	var (
		rank = m.comm.Rank()
		mode = la.Parallel
	)
	if ghosted && f.Lagrange() {
		mode = la.Ghosted
	}
	return la.NewVector(m.comm, m.NumDofs(f), m.OwnSize(f, rank), m.Ghosts(f, rank), mode)
}

// Coordinates returns the biquadratic node coordinates on every process.
// Collective.
func (m *Mesh) Coordinates() (coords [][3]float64) {
	coords = make([][3]float64, m.NumNodes())
	for d, name := range coordinateFields {
		for n, x := range m.Field(name).LocalizeToAll() {
			coords[n][d] = x
		}
	}
	return
}

// ElementCentroid averages the vertex coordinates of an element owned by
// this process.
func (m *Mesh) ElementCentroid(iel int) (c [3]float64) {
	nv := m.topo.NumDofs(iel, elem.LinearLagrange)
	for i := 0; i < nv; i++ {
		n := m.topo.VertexIndex(iel, i)
		for d, name := range coordinateFields {
			c[d] += m.Field(name).At(n)
		}
	}
	for d := range c {
		c[d] /= float64(nv)
	}
	return
}

// DualGraph builds the element graph across interior faces, weighted by the
// partition cost models.
func (m *Mesh) DualGraph() (g *partition.Graph) {
	var (
		t   = m.topo
		ne  = t.NumElements()
		adj = make([]map[int]int32, ne)
	)
	// Hanging faces point one way from the pass-through element, the
	// graph links both ends
	link := func(a, b int, w int32) {
		if adj[a] == nil {
			adj[a] = make(map[int]int32)
		}
		if _, ok := adj[a][b]; !ok {
			adj[a][b] = w
		}
	}
	for iel := 0; iel < ne; iel++ {
		for f := 0; f < t.NumFaces(iel); f++ {
			if nb := t.FaceNeighbor(iel, f); nb >= 0 && nb != iel {
				w := partition.CommCost(t.NumFaceDofs(iel, f, elem.BiquadraticLagrange), false)
				link(iel, nb, w)
				link(nb, iel, w)
			}
		}
	}
	g = &partition.Graph{
		Xadj: make([]int32, ne+1),
		Vwgt: make([]int32, ne),
	}
	for iel := 0; iel < ne; iel++ {
		g.Vwgt[iel] = partition.ComputeCost(t.Type(iel))
		nbs := make([]int, 0, len(adj[iel]))
		for nb := range adj[iel] {
			nbs = append(nbs, nb)
		}
		sort.Ints(nbs)
		for _, nb := range nbs {
			g.Adjncy = append(g.Adjncy, int32(nb))
			g.Adjwgt = append(g.Adjwgt, adj[iel][nb])
		}
		g.Xadj[iel+1] = int32(len(g.Adjncy))
	}
	return
}

// PrintInfo writes a summary of the level, on rank 0 only.
func (m *Mesh) PrintInfo() {
	if m.comm.Rank() != 0 {
		return
	}
	fmt.Printf(" Mesh Level        : %d\n", m.level)
	fmt.Printf("   Number of elements: %d\n", m.topo.NumElements())
	fmt.Printf("   Number of nodes   : %d\n", m.topo.NumNodes())
	for g := elem.GeometryType(0); g < elem.NumGeometryTypes; g++ {
		if n := m.topo.TypeCount(g); n > 0 {
			fmt.Printf("   %-6s elements  : %d\n", g, n)
		}
	}
	for f := elem.Family(0); f < elem.NumFamilies; f++ {
		fmt.Printf("   %-12s dofs: %d %v\n", f, m.NumDofs(f), m.dofOffset[f])
	}
}
