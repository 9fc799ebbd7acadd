package mesh

import (
	"fmt"
	"log"

	"github.com/notargets/femesh/elem"
	"github.com/notargets/femesh/fe"
	"github.com/notargets/femesh/la"
)

// GetQitoQjProjection returns the matrix interpolating Lagrange family j to
// Lagrange family i on this level, rows in family i and columns in family
// j. Built once per level and cached. Collective.
func (m *Mesh) GetQitoQjProjection(i, j elem.Family) *la.Matrix {
	m.checkFamily(i)
	m.checkFamily(j)
	if !i.Lagrange() || !j.Lagrange() {
		configPanic("Qi to Qj projection needs Lagrange families, have %s and %s", i, j)
	}
	if m.qiqj[i][j] == nil {
		first, last := m.OwnedElements()
		m.qiqj[i][j] = m.buildProjection(m, i, j, first, last,
			func(iel int) elem.GeometryType { return m.topo.Type(iel) },
			func(s fe.Stencil, iel int, d, o *la.Vector) { s.SizeStencil(m, nil, iel, i, d, o) },
			func(s fe.Stencil, iel int, P *la.Matrix) { s.BuildStencil(m, nil, iel, i, P) },
			fmt.Sprintf("Q%dtoQ%d level %d", i, j, m.level))
	}
	return m.qiqj[i][j]
}

// GetCoarseToFineProjection returns the prolongation of family f from the
// coarse level to this one. Built once per level and cached. Collective.
func (m *Mesh) GetCoarseToFineProjection(f elem.Family) *la.Matrix {
	m.checkFamily(f)
	if m.coarse == nil {
		configPanic("level %d has no coarse level to project from", m.level)
	}
	if m.coarseToFine[f] == nil {
		var (
			c           = m.coarse
			first, last = c.OwnedElements()
		)
		m.coarseToFine[f] = c.buildProjection(m, f, f, first, last,
			func(iel int) elem.GeometryType { return c.topo.Type(iel) },
			func(s fe.Stencil, iel int, d, o *la.Vector) { s.SizeStencil(m, c, iel, f, d, o) },
			func(s fe.Stencil, iel int, P *la.Matrix) { s.BuildStencil(m, c, iel, f, P) },
			fmt.Sprintf("%s coarse to fine level %d", f, m.level))
	}
	return m.coarseToFine[f]
}

// buildProjection assembles a projection with rows laid out like family rows
// of target and columns like family cols of m, visiting m's elements
// [first,last). The first pass records the row block counts in distributed
// vectors, the second allocates exactly and fills.
func (m *Mesh) buildProjection(target *Mesh, rows, cols elem.Family, first, last int,
	geom func(iel int) elem.GeometryType,
	size func(s fe.Stencil, iel int, d, o *la.Vector),
	build func(s fe.Stencil, iel int, P *la.Matrix),
	name string) (P *la.Matrix) {
	var (
		c      = m.comm
		rank   = c.Rank()
		nRows  = target.NumDofs(rows)
		nCols  = m.NumDofs(cols)
		mLocal = target.OwnSize(rows, rank)
		nLocal = m.OwnSize(cols, rank)
		nnzD   = la.NewVector(c, nRows, mLocal, nil, la.Parallel)
		nnzO   = la.NewVector(c, nRows, mLocal, nil, la.Parallel)
	)
	for iel := first; iel < last; iel++ {
		size(m.cfg.FE.Get(geom(iel), cols), iel, nnzD, nnzO)
	}
	nnzD.Close()
	nnzO.Close()
	var (
		lo, hi = nnzD.OwnershipRange()
		d      = make([]int, mLocal)
		o      = make([]int, mLocal)
	)
	for r := lo; r < hi; r++ {
		d[r-lo] = int(nnzD.At(r) + 0.5)
		o[r-lo] = int(nnzO.At(r) + 0.5)
	}
	P = la.NewMatrix(c, nRows, nCols, mLocal, nLocal, d, o)
	for iel := first; iel < last; iel++ {
		build(m.cfg.FE.Get(geom(iel), cols), iel, P)
	}
	P.SetName(name)
	P.Close()
	if m.cfg.Verbose && rank == 0 {
		log.Printf("built %s: %dx%d", name, nRows, nCols)
	}
	return
}
