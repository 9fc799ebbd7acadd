package mesh

import (
	"slices"

	"github.com/notargets/femesh/elem"
)

// localVertex returns the vertex slot of node n in element iel, or -1.
func localVertex(t *elem.Topology, iel, n int) int {
	for i := 0; i < t.NumDofs(iel, elem.LinearLagrange); i++ {
		if t.VertexIndex(iel, i) == n {
			return i
		}
	}
	return -1
}

// edgeSlot returns the edge midpoint slot of element jel joining nodes a and
// b, or -1 when a-b is not an edge of jel.
func edgeSlot(t *elem.Topology, jel, a, b int) int {
	ja, jb := localVertex(t, jel, a), localVertex(t, jel, b)
	if ja < 0 || jb < 0 {
		return -1
	}
	g := t.Type(jel)
	if e := elem.Vertices2Edge[g][ja][jb]; e >= 0 {
		return elem.NVE[g][elem.LinearLagrange] + e
	}
	return -1
}

// faceSlot returns the face center slot of the quadrilateral face of jel with
// the sorted vertex set sig, or -1.
func faceSlot(t *elem.Topology, jel int, sig []int) int {
	g := t.Type(jel)
	for jf := 0; jf < t.NumQuadFaces(jel); jf++ {
		if slices.Equal(sig, t.FaceVertices(jel, jf)) {
			return elem.FaceCenterNode(g, jf)
		}
	}
	return -1
}

// generateNodes fills every Unassigned edge, face and interior slot of the
// elements selected by active. A node already present on a neighbour sharing
// the same edge or face is reused, otherwise a new node is appended and
// handed to the higher numbered active neighbours sharing it. The vertex to
// element map must be built.
func generateNodes(t *elem.Topology, active func(iel int) bool) {
	nvt := t.NumNodes()
	// shared assigns the node of slot, looking it up on the elements around
	// vertex a first.
	shared := func(iel, slot, a int, match func(jel int) int) {
		node := elem.Unassigned
		for _, jel := range t.VertexElements(a) {
			if jel == iel {
				continue
			}
			if js := match(jel); js >= 0 && t.VertexIndex(jel, js) != elem.Unassigned {
				node = t.VertexIndex(jel, js)
				break
			}
		}
		if node == elem.Unassigned {
			node = nvt
			nvt++
		}
		t.SetVertexIndex(iel, slot, node)
		for _, jel := range t.VertexElements(a) {
			if jel <= iel || !active(jel) {
				continue
			}
			if js := match(jel); js >= 0 && t.VertexIndex(jel, js) == elem.Unassigned {
				t.SetVertexIndex(jel, js, node)
			}
		}
	}

	// Edge midpoints
	for iel := 0; iel < t.NumElements(); iel++ {
		if !active(iel) {
			continue
		}
		g := t.Type(iel)
		for e, ends := range elem.Edges[g] {
			slot := elem.NVE[g][elem.LinearLagrange] + e
			if t.VertexIndex(iel, slot) != elem.Unassigned {
				continue
			}
			a, b := t.VertexIndex(iel, ends[0]), t.VertexIndex(iel, ends[1])
			shared(iel, slot, a, func(jel int) int { return edgeSlot(t, jel, a, b) })
		}
	}
	// Quadrilateral face centers
	for iel := 0; iel < t.NumElements(); iel++ {
		if !active(iel) {
			continue
		}
		g := t.Type(iel)
		for f := 0; f < t.NumQuadFaces(iel); f++ {
			slot := elem.FaceCenterNode(g, f)
			if t.VertexIndex(iel, slot) != elem.Unassigned {
				continue
			}
			sig := t.FaceVertices(iel, f)
			shared(iel, slot, t.FaceVertexIndex(iel, f, 0), func(jel int) int { return faceSlot(t, jel, sig) })
		}
	}
	// Element interiors
	for iel := 0; iel < t.NumElements(); iel++ {
		if !active(iel) {
			continue
		}
		if slot := elem.InteriorNode(t.Type(iel)); slot >= 0 && t.VertexIndex(iel, slot) == elem.Unassigned {
			t.SetVertexIndex(iel, slot, nvt)
			nvt++
		}
	}
	t.SetNumNodes(nvt)
}

// completeCoordinates extends vertex coordinates to the generated nodes: edge
// nodes at the midpoint, face and interior nodes at the vertex average.
func completeCoordinates(t *elem.Topology, coords [][3]float64) (out [][3]float64) {
	out = make([][3]float64, t.NumNodes())
	copy(out, coords)
	average := func(iel int, slots []int) (p [3]float64) {
		for _, s := range slots {
			x := out[t.VertexIndex(iel, s)]
			for d := range p {
				p[d] += x[d]
			}
		}
		for d := range p {
			p[d] /= float64(len(slots))
		}
		return
	}
	for iel := 0; iel < t.NumElements(); iel++ {
		g := t.Type(iel)
		nv := elem.NVE[g][elem.LinearLagrange]
		for e, ends := range elem.Edges[g] {
			out[t.VertexIndex(iel, nv+e)] = average(iel, ends[:])
		}
		for f := 0; f < t.NumQuadFaces(iel); f++ {
			out[t.VertexIndex(iel, elem.FaceCenterNode(g, f))] = average(iel, elem.IG[g][f][:4])
		}
		if slot := elem.InteriorNode(g); slot >= 0 {
			all := make([]int, nv)
			for i := range all {
				all[i] = i
			}
			out[t.VertexIndex(iel, slot)] = average(iel, all)
		}
	}
	return
}
