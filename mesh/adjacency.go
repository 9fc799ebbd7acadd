package mesh

import (
	"slices"

	"github.com/notargets/femesh/elem"
)

// BuildAdjVtx builds the vertex to element map over the vertex nodes of every
// element. Incident elements are stored in increasing element order.
func (m *Mesh) BuildAdjVtx() {
	t := m.topo
	counts := make([]int, t.NumNodes())
	for iel := 0; iel < t.NumElements(); iel++ {
		for i := 0; i < t.NumDofs(iel, elem.LinearLagrange); i++ {
			counts[t.VertexIndex(iel, i)]++
		}
	}
	t.AllocateVertexElements(counts)
	for iel := 0; iel < t.NumElements(); iel++ {
		for i := 0; i < t.NumDofs(iel, elem.LinearLagrange); i++ {
			t.AddVertexElement(t.VertexIndex(iel, i), iel)
		}
	}
}

// Buildkel matches every unresolved face against the faces of the elements
// sharing its first vertex. Faces left without a match keep their boundary
// marker, or stay FaceUnset.
func (m *Mesh) Buildkel() {
	t := m.topo
	if !t.HasVertexElements() {
		m.BuildAdjVtx()
	}
	for iel := 0; iel < t.NumElements(); iel++ {
		for f := 0; f < t.NumFaces(iel); f++ {
			if t.FaceNeighbor(iel, f) != elem.FaceUnset {
				continue
			}
			sig := t.FaceVertices(iel, f)
		candidates:
			for _, jel := range t.VertexElements(t.FaceVertexIndex(iel, f, 0)) {
				if jel <= iel {
					continue
				}
				for jf := 0; jf < t.NumFaces(jel); jf++ {
					if slices.Equal(sig, t.FaceVertices(jel, jf)) {
						t.SetFaceNeighbor(iel, f, jel)
						t.SetFaceNeighbor(jel, jf, iel)
						break candidates
					}
				}
			}
		}
	}
}

// resolveHangingFaces links a pass-through element to the finer elements
// covering one of its faces. The cover is found through the coarse level:
// the faces there lying on the father's face are either the conforming
// neighbour face or faces already hanging on it, and their own children or
// pass-through copies cover the face on this level. Each covering face
// records the pass-through element, which records the lowest covering
// element.
func (m *Mesh) resolveHangingFaces() {
	m.hanging = make(map[[2]int]int)
	if m.coarse == nil {
		return
	}
	var (
		t        = m.topo
		c        = m.coarse
		ct       = c.topo
		touching map[int][][2]int
	)
	for iel := 0; iel < t.NumElements(); iel++ {
		if t.IsFatherRefined(iel) {
			continue
		}
		for f := 0; f < t.NumFaces(iel); f++ {
			if t.FaceNeighbor(iel, f) != elem.FaceUnset {
				continue
			}
			if touching == nil {
				touching = c.facesTouching()
			}
			father := t.Father(iel)
			if _, ok := c.hanging[[2]int{father, f}]; ok {
				// finer side, resolved from the larger face
				continue
			}
			lowest := -1
			for _, cf := range touching[father] {
				e, ef := cf[0], cf[1]
				if hf, ok := c.hanging[cf]; ok {
					if hf != f {
						continue
					}
				} else if ct.FaceNeighbor(father, f) != e {
					continue
				}
				for _, ff := range coveringFaces(ct, e, ef) {
					jel, jf := ff[0], ff[1]
					if t.FaceNeighbor(jel, jf) != elem.FaceUnset {
						continue
					}
					t.SetFaceNeighbor(jel, jf, iel)
					m.hanging[ff] = f
					if lowest < 0 || jel < lowest {
						lowest = jel
					}
				}
			}
			if lowest >= 0 {
				t.SetFaceNeighbor(iel, f, lowest)
			}
		}
	}
}

// facesTouching maps every element to the {element, face} pairs whose face
// neighbour it is.
func (m *Mesh) facesTouching() (touching map[int][][2]int) {
	t := m.topo
	touching = make(map[int][][2]int)
	for iel := 0; iel < t.NumElements(); iel++ {
		for f := 0; f < t.NumFaces(iel); f++ {
			if nb := t.FaceNeighbor(iel, f); nb >= 0 {
				touching[nb] = append(touching[nb], [2]int{iel, f})
			}
		}
	}
	return
}

// coveringFaces lists the faces of the next level covering face f of coarse
// element iel.
func coveringFaces(ct *elem.Topology, iel, f int) (faces [][2]int) {
	if !ct.IsRefined(iel) {
		return [][2]int{{ct.ChildElement(iel, 0), f}}
	}
	for _, cf := range elem.CoarseToFineFace[ct.Type(iel)][f] {
		faces = append(faces, [2]int{ct.ChildElement(iel, cf.Child), cf.Face})
	}
	return
}
