package mesh

import (
	"sort"

	"github.com/notargets/femesh/elem"
)

// FillISvector orders elements and nodes by process and builds the ownership
// tables, node dof maps and ghost lists of every family. part holds the
// process of every element and must be identical on all processes.
func (m *Mesh) FillISvector(part []int) {
	var (
		t      = m.topo
		nel    = t.NumElements()
		np     = m.nprocs
		dim    = t.Dimension()
		counts = make([]int, np)
	)
	if len(part) != nel {
		invariantPanic("partition has %d entries for %d elements", len(part), nel)
	}
	for iel, p := range part {
		if p < 0 || p >= np {
			invariantPanic("element %d assigned to process %d of %d", iel, p, np)
		}
		counts[p]++
	}

	// Elements, stable within each process
	elemOff := make([]int, np+1)
	for p := 0; p < np; p++ {
		elemOff[p+1] = elemOff[p] + counts[p]
	}
	var (
		order = make([]int, nel)
		fill  = append([]int{}, elemOff[:np]...)
	)
	for iel, p := range part {
		order[fill[p]] = iel
		fill[p]++
	}
	var parent *elem.Topology
	if m.coarse != nil {
		parent = m.coarse.topo
	}
	t.ReorderMeshElements(order, parent)
	m.dofOffset[elem.PiecewiseConstant] = elemOff

	off4 := make([]int, np+1)
	for p := 0; p < np; p++ {
		off4[p+1] = off4[p] + counts[p]*(dim+1)
	}
	m.dofOffset[elem.PiecewiseLinearDiscontinuous] = off4

	// Biquadratic nodes go to the first process touching them, vertices
	// before edge nodes before face and interior nodes
	var (
		nvt      = t.NumNodes()
		newIndex = make([]int, nvt)
		off2     = make([]int, np+1)
		own      [2][]int
		counter  int
	)
	for i := range newIndex {
		newIndex[i] = -1
	}
	own[0], own[1] = make([]int, np), make([]int, np)
	for p := 0; p < np; p++ {
		off2[p] = counter
		for lev := elem.LinearLagrange; lev <= elem.BiquadraticLagrange; lev++ {
			for iel := elemOff[p]; iel < elemOff[p+1]; iel++ {
				lo, hi := levelSlots(t.Type(iel), lev)
				for i := lo; i < hi; i++ {
					n := t.VertexIndex(iel, i)
					if n == elem.Unassigned {
						invariantPanic("element %d node slot %d is unassigned", iel, i)
					}
					if newIndex[n] < 0 {
						newIndex[n] = counter
						counter++
					}
				}
			}
			if lev < elem.BiquadraticLagrange {
				own[lev][p] = counter - off2[p]
			}
		}
	}
	off2[np] = counter
	if counter != nvt {
		invariantPanic("%d of %d nodes are referenced by elements", counter, nvt)
	}
	t.ReorderMeshNodes(newIndex)
	if m.coords != nil {
		coords := make([][3]float64, nvt)
		for n, x := range m.coords {
			coords[newIndex[n]] = x
		}
		m.coords = coords
	}
	m.dofOffset[elem.BiquadraticLagrange] = off2
	m.ownNodes = own

	owner := func(n int) int {
		return sort.Search(np, func(p int) bool { return off2[p+1] > n })
	}
	for k := elem.LinearLagrange; k <= elem.QuadraticLagrange; k++ {
		var (
			dof    = make([]int, nvt)
			off    = make([]int, np+1)
			ghosts = make([][]int, np)
		)
		for i := range dof {
			dof[i] = -1
		}
		for p := 0; p < np; p++ {
			for n := off2[p]; n < off2[p]+own[k][p]; n++ {
				dof[n] = off[p] + n - off2[p]
			}
			claimed := 0
			for _, n := range m.foreignNodes(p, k) {
				q := owner(n)
				switch {
				case n-off2[q] < own[k][q]:
					if dof[n] < 0 {
						invariantPanic("%s node %d of process %d has no dof", k, n, q)
					}
					ghosts[p] = append(ghosts[p], dof[n])
				case dof[n] >= 0:
					// claimed by a lower process
					ghosts[p] = append(ghosts[p], dof[n])
				default:
					dof[n] = off[p] + own[k][p] + claimed
					claimed++
				}
			}
			off[p+1] = off[p] + own[k][p] + claimed
			sort.Ints(ghosts[p])
		}
		m.nodeDof[k], m.dofOffset[k], m.ghosts[k] = dof, off, ghosts
	}
	m.ghosts[elem.BiquadraticLagrange] = make([][]int, np)
	for p := 0; p < np; p++ {
		m.ghosts[elem.BiquadraticLagrange][p] = m.foreignNodes(p, elem.BiquadraticLagrange)
	}
}

// levelSlots is the range of element node slots added by nesting level lev.
func levelSlots(g elem.GeometryType, lev elem.Family) (lo, hi int) {
	if lev > elem.LinearLagrange {
		lo = elem.NVE[g][lev-1]
	}
	return lo, elem.NVE[g][lev]
}

// foreignNodes returns the sorted nodes below process p's biquadratic range
// referenced by its elements within the first NVE[k] slots.
func (m *Mesh) foreignNodes(p int, k elem.Family) (nodes []int) {
	var (
		t      = m.topo
		off2   = m.dofOffset[elem.BiquadraticLagrange]
		elemOf = m.dofOffset[elem.PiecewiseConstant]
		seen   = make(map[int]bool)
	)
	for iel := elemOf[p]; iel < elemOf[p+1]; iel++ {
		for i := 0; i < t.NumDofs(iel, k); i++ {
			if n := t.VertexIndex(iel, i); n < off2[p] && !seen[n] {
				seen[n] = true
				nodes = append(nodes, n)
			}
		}
	}
	sort.Ints(nodes)
	return
}
