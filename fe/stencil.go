package fe

import (
	"fmt"

	"github.com/notargets/femesh/elem"
	"github.com/notargets/femesh/la"
)

// StencilTolerance is the magnitude below which interpolation weights are
// dropped from a stencil.
const StencilTolerance = 1.e-10

// Mesh is the view of a mesh level needed to place stencil entries.
type Mesh interface {
	Topology() *elem.Topology
	// GetSolutionDof is the global dof of local node inode of element iel.
	GetSolutionDof(inode, iel int, f elem.Family) int
	// IsdomBisectionSearch is the rank owning dof of family f.
	IsdomBisectionSearch(dof int, f elem.Family) int
	// WritesRow reports whether element iel writes the interpolation rows of
	// its local node inode. Exactly one element writes each node.
	WritesRow(inode, iel int) bool
}

// Stencil is the local interpolation contract used by the projection
// builders. With coarse == nil the stencil maps family rows to the element's
// own family on the same level of m. Otherwise m is the fine level, iel is a
// coarse element and the stencil prolongates the element's family from
// coarse to m, rows is ignored.
type Stencil interface {
	SizeStencil(m, coarse Mesh, iel int, rows elem.Family, nnzDiag, nnzOff *la.Vector)
	BuildStencil(m, coarse Mesh, iel int, rows elem.Family, P *la.Matrix)
}

// FiniteElement is the stencil provider of one (geometry, family) pair.
type FiniteElement struct {
	Geom   elem.GeometryType
	Family elem.Family
	basis  *lagrangeBasis
}

func NewFiniteElement(g elem.GeometryType, fam elem.Family) (fe *FiniteElement) {
	if !fam.Valid() {
		panic(fmt.Errorf("family index %d out of range", fam))
	}
	fe = &FiniteElement{Geom: g, Family: fam}
	if fam.Lagrange() {
		fe.basis = newLagrangeBasis(g, fam)
	}
	return
}

// Table holds one FiniteElement per geometry and family.
type Table [elem.NumGeometryTypes][elem.NumFamilies]*FiniteElement

func NewTable() (t *Table) {
	t = &Table{}
	for g := elem.GeometryType(0); g < elem.NumGeometryTypes; g++ {
		for f := elem.Family(0); f < elem.NumFamilies; f++ {
			t[g][f] = NewFiniteElement(g, f)
		}
	}
	return
}

func (t *Table) Get(g elem.GeometryType, f elem.Family) Stencil { return t[g][f] }

// ShapeFunctions evaluates the Lagrange basis at reference point x.
func (fe *FiniteElement) ShapeFunctions(x Point) []float64 {
	if fe.basis == nil {
		panic(fmt.Errorf("%s %s has no nodal basis", fe.Geom, fe.Family))
	}
	return fe.basis.Eval(x)
}

type stencilEntry struct {
	col int
	val float64
}

type stencilRow struct {
	row  int
	cols []stencilEntry
}

// rows computes the stencil of element iel. Column dofs come from the source
// mesh, row dofs from the target mesh.
func (fe *FiniteElement) rows(m, coarse Mesh, iel int, rows elem.Family) (out []stencilRow, rowFam elem.Family, src Mesh) {
	if coarse == nil {
		if !rows.Lagrange() || !fe.Family.Lagrange() {
			panic(fmt.Errorf("same level projection needs Lagrange families, have %s to %s", fe.Family, rows))
		}
		return fe.sameLevelRows(m, iel, rows), rows, m
	}
	return fe.prolongationRows(m, coarse, iel), fe.Family, coarse
}

func (fe *FiniteElement) sameLevelRows(m Mesh, iel int, rows elem.Family) (out []stencilRow) {
	nRows := elem.NVE[fe.Geom][rows]
	nCols := elem.NVE[fe.Geom][fe.Family]
	out = make([]stencilRow, 0, nRows)
	for i := 0; i < nRows; i++ {
		if !m.WritesRow(i, iel) {
			continue
		}
		phi := fe.basis.Eval(ReferenceNode(fe.Geom, i))
		r := stencilRow{row: m.GetSolutionDof(i, iel, rows)}
		for j := 0; j < nCols; j++ {
			if !nearlyZero(phi[j]) {
				r.cols = append(r.cols, stencilEntry{m.GetSolutionDof(j, iel, fe.Family), phi[j]})
			}
		}
		out = append(out, r)
	}
	return
}

func (fe *FiniteElement) prolongationRows(fine, coarse Mesh, iel int) (out []stencilRow) {
	var (
		ct  = coarse.Topology()
		fam = fe.Family
		nd  = elem.NVE[fe.Geom][fam]
	)
	if !ct.HasChildren() {
		panic(fmt.Errorf("coarse level has no child map"))
	}
	if !ct.IsRefined(iel) {
		jel := ct.ChildElement(iel, 0)
		for i := 0; i < nd; i++ {
			if fam.Lagrange() && !fine.WritesRow(i, jel) {
				continue
			}
			out = append(out, stencilRow{
				row:  fine.GetSolutionDof(i, jel, fam),
				cols: []stencilEntry{{coarse.GetSolutionDof(i, iel, fam), 1.}},
			})
		}
		return
	}
	for c := 0; c < elem.NRE[fe.Geom]; c++ {
		jel := ct.ChildElement(iel, c)
		cm := ChildMapOf(fe.Geom, c)
		switch {
		case fam.Lagrange():
			for i := 0; i < nd; i++ {
				if !fine.WritesRow(i, jel) {
					continue
				}
				phi := fe.basis.Eval(cm.Apply(ReferenceNode(fe.Geom, i)))
				r := stencilRow{row: fine.GetSolutionDof(i, jel, fam)}
				for j := 0; j < nd; j++ {
					if !nearlyZero(phi[j]) {
						r.cols = append(r.cols, stencilEntry{coarse.GetSolutionDof(j, iel, fam), phi[j]})
					}
				}
				out = append(out, r)
			}
		case fam == elem.PiecewiseConstant:
			out = append(out, stencilRow{
				row:  fine.GetSolutionDof(0, jel, fam),
				cols: []stencilEntry{{coarse.GetSolutionDof(0, iel, fam), 1.}},
			})
		default:
			// Coefficients of 1, xi, eta, zeta in reference coordinates
			dim := fe.Geom.Dimension()
			cols := make([]int, dim+1)
			for k := range cols {
				cols[k] = coarse.GetSolutionDof(k, iel, fam)
			}
			r := stencilRow{row: fine.GetSolutionDof(0, jel, fam)}
			r.cols = append(r.cols, stencilEntry{cols[0], 1.})
			for k := 0; k < dim; k++ {
				if !nearlyZero(cm.B[k]) {
					r.cols = append(r.cols, stencilEntry{cols[k+1], cm.B[k]})
				}
			}
			out = append(out, r)
			for m := 0; m < dim; m++ {
				r = stencilRow{row: fine.GetSolutionDof(m+1, jel, fam)}
				for k := 0; k < dim; k++ {
					if !nearlyZero(cm.A[k][m]) {
						r.cols = append(r.cols, stencilEntry{cols[k+1], cm.A[k][m]})
					}
				}
				out = append(out, r)
			}
		}
	}
	return
}

// SizeStencil records the diagonal and off diagonal block counts of every row
// the element writes.
func (fe *FiniteElement) SizeStencil(m, coarse Mesh, iel int, rows elem.Family, nnzDiag, nnzOff *la.Vector) {
	out, rowFam, src := fe.rows(m, coarse, iel, rows)
	for _, r := range out {
		var (
			owner   = m.IsdomBisectionSearch(r.row, rowFam)
			nd, nof int
		)
		for _, e := range r.cols {
			if src.IsdomBisectionSearch(e.col, fe.Family) == owner {
				nd++
			} else {
				nof++
			}
		}
		nnzDiag.Set(r.row, float64(nd))
		nnzOff.Set(r.row, float64(nof))
	}
}

// BuildStencil writes the element's interpolation weights into P.
func (fe *FiniteElement) BuildStencil(m, coarse Mesh, iel int, rows elem.Family, P *la.Matrix) {
	out, _, _ := fe.rows(m, coarse, iel, rows)
	for _, r := range out {
		for _, e := range r.cols {
			P.Set(r.row, e.col, e.val)
		}
	}
}
