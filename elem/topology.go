package elem

import (
	"fmt"
	"sort"
)

const (
	// FaceUnset marks a face whose neighbour has not been resolved yet.
	FaceUnset = -1
	// Unassigned marks an element node slot without a global node.
	Unassigned = -1
)

// BoundaryMarker encodes boundary condition index bc as a face neighbour.
func BoundaryMarker(bc int) int { return -2 - bc }

// IsBoundary reports whether a face neighbour value is a boundary marker.
func IsBoundary(neighbor int) bool { return neighbor <= -2 }

// BoundaryIndex decodes a boundary marker.
func BoundaryIndex(neighbor int) int { return -2 - neighbor }

// Topology stores one mesh level's elements in flat arrays with per element
// offsets. Element node lists always hold the full biquadratic node set.
type Topology struct {
	dim      int
	nel, nvt int

	geom     []GeometryType
	material []int
	group    []int

	kvertOff []int
	kvert    []int
	kelOff   []int
	kel      []int

	refined       []bool
	fatherRefined []bool
	father        []int
	childOff      []int
	child         []int

	vtxElemOff []int
	vtxElemFil []int
	vtxElem    []int

	nodeRegion []bool

	typeCount [NumGeometryTypes]int
}

// NewTopology allocates nel elements of the given geometry. Node slots start
// Unassigned, faces start FaceUnset, materials and groups start at zero.
func NewTopology(dim int, geom []GeometryType) (t *Topology) {
	t = &Topology{
		dim:           dim,
		nel:           len(geom),
		geom:          append([]GeometryType{}, geom...),
		material:      make([]int, len(geom)),
		group:         make([]int, len(geom)),
		kvertOff:      make([]int, len(geom)+1),
		kelOff:        make([]int, len(geom)+1),
		refined:       make([]bool, len(geom)),
		fatherRefined: make([]bool, len(geom)),
		father:        make([]int, len(geom)),
	}
	for iel, g := range geom {
		if g.Dimension() != dim {
			panic(fmt.Errorf("element %d is a %s in a %dD mesh", iel, g, dim))
		}
		t.kvertOff[iel+1] = t.kvertOff[iel] + NVE[g][BiquadraticLagrange]
		t.kelOff[iel+1] = t.kelOff[iel] + NFC[g][1]
		t.typeCount[g]++
		t.father[iel] = -1
	}
	t.kvert = make([]int, t.kvertOff[t.nel])
	for i := range t.kvert {
		t.kvert[i] = Unassigned
	}
	t.kel = make([]int, t.kelOff[t.nel])
	for i := range t.kel {
		t.kel[i] = FaceUnset
	}
	return
}

func (t *Topology) Dimension() int    { return t.dim }
func (t *Topology) NumElements() int  { return t.nel }
func (t *Topology) NumNodes() int     { return t.nvt }
func (t *Topology) SetNumNodes(n int) { t.nvt = n }

func (t *Topology) Type(iel int) GeometryType { return t.geom[iel] }
func (t *Topology) Material(iel int) int      { return t.material[iel] }
func (t *Topology) Group(iel int) int         { return t.group[iel] }
func (t *Topology) SetMaterial(iel, m int)    { t.material[iel] = m }
func (t *Topology) SetGroup(iel, g int)       { t.group[iel] = g }

// TypeCount is the number of elements of geometry g.
func (t *Topology) TypeCount(g GeometryType) int { return t.typeCount[g] }

// NumDofs is the element dof count of family f.
func (t *Topology) NumDofs(iel int, f Family) int { return NVE[t.geom[iel]][f] }

// NumFaces is the number of faces, NumQuadFaces the number carrying a center
// node.
func (t *Topology) NumFaces(iel int) int     { return NFC[t.geom[iel]][1] }
func (t *Topology) NumQuadFaces(iel int) int { return NFC[t.geom[iel]][0] }

// NumFaceDofs is the number of nodes of face f for Lagrange family fam.
func (t *Topology) NumFaceDofs(iel, face int, fam Family) int {
	return NFACENODES[t.geom[iel]][face][fam]
}

func (t *Topology) VertexIndex(iel, inode int) int { return t.kvert[t.kvertOff[iel]+inode] }
func (t *Topology) SetVertexIndex(iel, inode, node int) {
	t.kvert[t.kvertOff[iel]+inode] = node
}

// ElementNodes returns a view on the element's biquadratic node list.
func (t *Topology) ElementNodes(iel int) []int {
	return t.kvert[t.kvertOff[iel]:t.kvertOff[iel+1]]
}

// FaceVertexIndex is the global node at position i of face f.
func (t *Topology) FaceVertexIndex(iel, face, i int) int {
	return t.VertexIndex(iel, IG[t.geom[iel]][face][i])
}

// FaceVertices returns the sorted global vertices of face f.
func (t *Topology) FaceVertices(iel, face int) (v []int) {
	n := NFACENODES[t.geom[iel]][face][LinearLagrange]
	v = make([]int, n)
	for i := 0; i < n; i++ {
		v[i] = t.FaceVertexIndex(iel, face, i)
	}
	sort.Ints(v)
	return
}

func (t *Topology) FaceNeighbor(iel, face int) int { return t.kel[t.kelOff[iel]+face] }
func (t *Topology) SetFaceNeighbor(iel, face, neighbor int) {
	t.kel[t.kelOff[iel]+face] = neighbor
}

func (t *Topology) IsRefined(iel int) bool           { return t.refined[iel] }
func (t *Topology) SetRefined(iel int, r bool)       { t.refined[iel] = r }
func (t *Topology) IsFatherRefined(iel int) bool     { return t.fatherRefined[iel] }
func (t *Topology) SetFatherRefined(iel int, r bool) { t.fatherRefined[iel] = r }

// Father is the parent element on the coarser level, -1 on level zero.
func (t *Topology) Father(iel int) int        { return t.father[iel] }
func (t *Topology) SetFather(iel, parent int) { t.father[iel] = parent }

// RefinedCount is the number of elements of geometry g flagged for
// refinement.
func (t *Topology) RefinedCount(g GeometryType) (n int) {
	for iel, r := range t.refined {
		if r && t.geom[iel] == g {
			n++
		}
	}
	return
}

// AllocateChildren sizes the child map from the refine flags: NRE children for
// a refined element and one pass-through child otherwise.
func (t *Topology) AllocateChildren() {
	t.childOff = make([]int, t.nel+1)
	for iel := 0; iel < t.nel; iel++ {
		t.childOff[iel+1] = t.childOff[iel] + t.NumChildren(iel)
	}
	t.child = make([]int, t.childOff[t.nel])
	for i := range t.child {
		t.child[i] = -1
	}
}

func (t *Topology) NumChildren(iel int) int {
	if t.refined[iel] {
		return NRE[t.geom[iel]]
	}
	return 1
}

func (t *Topology) HasChildren() bool { return t.childOff != nil }

func (t *Topology) ChildElement(iel, ichild int) int {
	return t.child[t.childOff[iel]+ichild]
}

func (t *Topology) SetChildElement(iel, ichild, fine int) {
	t.child[t.childOff[iel]+ichild] = fine
}

// AllocateVertexElements prepares the vertex to element multimap given the
// number of incident elements of every node.
func (t *Topology) AllocateVertexElements(counts []int) {
	t.vtxElemOff = make([]int, len(counts)+1)
	for v, n := range counts {
		t.vtxElemOff[v+1] = t.vtxElemOff[v] + n
	}
	t.vtxElemFil = make([]int, len(counts))
	t.vtxElem = make([]int, t.vtxElemOff[len(counts)])
}

// AddVertexElement stores iel in the first free slot of node v.
func (t *Topology) AddVertexElement(v, iel int) {
	slot := t.vtxElemOff[v] + t.vtxElemFil[v]
	if slot >= t.vtxElemOff[v+1] {
		panic(fmt.Errorf("vertex %d has no free incident element slot for element %d", v, iel))
	}
	t.vtxElem[slot] = iel
	t.vtxElemFil[v]++
}

// VertexElements returns the elements incident to node v in increasing
// element order.
func (t *Topology) VertexElements(v int) []int {
	if t.vtxElemOff == nil {
		panic(fmt.Errorf("vertex to element map is not built"))
	}
	return t.vtxElem[t.vtxElemOff[v] : t.vtxElemOff[v]+t.vtxElemFil[v]]
}

func (t *Topology) HasVertexElements() bool { return t.vtxElemOff != nil }

func (t *Topology) FreeVertexElements() {
	t.vtxElemOff, t.vtxElemFil, t.vtxElem = nil, nil, nil
}

func (t *Topology) AllocateNodeRegion() { t.nodeRegion = make([]bool, t.nvt) }
func (t *Topology) SetNodeRegion(v int, solid bool) {
	t.nodeRegion[v] = solid
}
func (t *Topology) NodeRegion(v int) bool {
	if t.nodeRegion == nil {
		return false
	}
	return t.nodeRegion[v]
}
func (t *Topology) FreeNodeRegion() { t.nodeRegion = nil }

// ReorderMeshElements places old element order[k] at position k. Interior
// face neighbours are reset to FaceUnset and the vertex to element map is
// freed, boundary markers are kept. When parent is non nil its child map is
// rewritten to the new element indices.
func (t *Topology) ReorderMeshElements(order []int, parent *Topology) {
	if len(order) != t.nel {
		panic(fmt.Errorf("element order has %d entries for %d elements", len(order), t.nel))
	}
	var (
		newIndex = make([]int, t.nel)
		geom     = make([]GeometryType, t.nel)
		material = make([]int, t.nel)
		group    = make([]int, t.nel)
		refined  = make([]bool, t.nel)
		fRefined = make([]bool, t.nel)
		father   = make([]int, t.nel)
		kvertOff = make([]int, t.nel+1)
		kelOff   = make([]int, t.nel+1)
	)
	for i := range newIndex {
		newIndex[i] = -1
	}
	for k, old := range order {
		if newIndex[old] != -1 {
			panic(fmt.Errorf("element %d appears twice in the element order", old))
		}
		newIndex[old] = k
		geom[k] = t.geom[old]
		material[k], group[k] = t.material[old], t.group[old]
		refined[k], fRefined[k], father[k] = t.refined[old], t.fatherRefined[old], t.father[old]
		kvertOff[k+1] = kvertOff[k] + (t.kvertOff[old+1] - t.kvertOff[old])
		kelOff[k+1] = kelOff[k] + (t.kelOff[old+1] - t.kelOff[old])
	}
	kvert := make([]int, len(t.kvert))
	kel := make([]int, len(t.kel))
	for k, old := range order {
		copy(kvert[kvertOff[k]:kvertOff[k+1]], t.kvert[t.kvertOff[old]:t.kvertOff[old+1]])
		for f := 0; f < kelOff[k+1]-kelOff[k]; f++ {
			nb := t.kel[t.kelOff[old]+f]
			if !IsBoundary(nb) {
				nb = FaceUnset
			}
			kel[kelOff[k]+f] = nb
		}
	}
	if t.childOff != nil {
		childOff := make([]int, t.nel+1)
		child := make([]int, len(t.child))
		for k, old := range order {
			n := t.childOff[old+1] - t.childOff[old]
			childOff[k+1] = childOff[k] + n
			copy(child[childOff[k]:childOff[k+1]], t.child[t.childOff[old]:t.childOff[old+1]])
		}
		t.childOff, t.child = childOff, child
	}
	if parent != nil && parent.childOff != nil {
		for i, c := range parent.child {
			if c >= 0 {
				parent.child[i] = newIndex[c]
			}
		}
	}
	t.geom, t.material, t.group = geom, material, group
	t.refined, t.fatherRefined, t.father = refined, fRefined, father
	t.kvertOff, t.kvert, t.kelOff, t.kel = kvertOff, kvert, kelOff, kel
	t.FreeVertexElements()
}

// ReorderMeshNodes relabels every node reference, node v becomes
// newIndex[v]. The vertex to element map is freed.
func (t *Topology) ReorderMeshNodes(newIndex []int) {
	if len(newIndex) != t.nvt {
		panic(fmt.Errorf("node map has %d entries for %d nodes", len(newIndex), t.nvt))
	}
	for i, v := range t.kvert {
		if v != Unassigned {
			t.kvert[i] = newIndex[v]
		}
	}
	if t.nodeRegion != nil {
		region := make([]bool, t.nvt)
		for v, r := range t.nodeRegion {
			region[newIndex[v]] = r
		}
		t.nodeRegion = region
	}
	t.FreeVertexElements()
}
