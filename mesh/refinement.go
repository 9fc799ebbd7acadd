package mesh

import (
	"fmt"
	"log"

	"github.com/notargets/femesh/elem"
	"github.com/notargets/femesh/la"
	"github.com/notargets/femesh/partition"
	"github.com/notargets/femesh/utils"
)

// FlagMode selects how FlagElementsToRefine marks elements.
type FlagMode uint8

const (
	// FlagAll marks every eligible element
	FlagAll FlagMode = iota
	// FlagAMR keeps flags already set in the AMR field and asks the
	// configured RefinementStrategy about the others
	FlagAMR
	// FlagEvenOnly adds eligible elements with an even index to the flags
	// already set in the AMR field
	FlagEvenOnly
)

func (fm FlagMode) String() string {
	switch fm {
	case FlagAll:
		return "all"
	case FlagAMR:
		return "amr"
	case FlagEvenOnly:
		return "even"
	}
	return fmt.Sprintf("FlagMode(%d)", uint8(fm))
}

// ParseFlagMode accepts the names returned by String.
func ParseFlagMode(name string) (fm FlagMode, err error) {
	for _, fm = range []FlagMode{FlagAll, FlagAMR, FlagEvenOnly} {
		if fm.String() == name {
			return
		}
	}
	return 0, fmt.Errorf("unknown refinement mode %q", name)
}

// refinable elements are the level zero ones and the children of refined
// elements.
func (m *Mesh) refinable(iel int) bool {
	return m.level == 0 || m.topo.IsFatherRefined(iel)
}

// MarkForRefinement sets the AMR flag of element iel. Flags take effect on
// the next FlagElementsToRefine in FlagAMR mode.
func (m *Mesh) MarkForRefinement(iel int) { m.Field(FieldAMR).Set(iel, 1) }

// FlagElementsToRefine sets the refine flag of the topology on every process
// and returns the number of flagged elements. Collective.
func (m *Mesh) FlagElementsToRefine(mode FlagMode) (total int) {
	var (
		t           = m.topo
		amr         = m.Field(FieldAMR)
		first, last = m.OwnedElements()
		count       [elem.NumGeometryTypes]int
	)
	for iel := first; iel < last; iel++ {
		var (
			preset = amr.At(iel) > 0.5
			flag   bool
		)
		switch mode {
		case FlagAll:
			flag = true
		case FlagAMR:
			flag = preset || m.cfg.Strategy != nil &&
				m.cfg.Strategy.ShouldRefine(m.ElementCentroid(iel), t.Group(iel), m.level)
		case FlagEvenOnly:
			flag = preset || iel%2 == 0
		default:
			configPanic("unknown refinement mode %s", mode)
		}
		if flag && m.refinable(iel) {
			amr.Set(iel, 1)
			count[t.Type(iel)]++
		} else {
			amr.Set(iel, 0)
		}
	}
	amr.Close()
	for iel, v := range amr.LocalizeToAll() {
		t.SetRefined(iel, v > 0.5 && m.refinable(iel))
	}

	rank := m.comm.Rank()
	for g := elem.GeometryType(0); g < elem.NumGeometryTypes; g++ {
		counter := la.NewVector(m.comm, m.nprocs, 1, nil, la.Parallel)
		counter.Set(rank, float64(count[g]))
		counter.Close()
		n := int(counter.L1Norm() + 0.25)
		if n != t.RefinedCount(g) {
			invariantPanic("%d %s elements flagged, topology holds %d", n, g, t.RefinedCount(g))
		}
		total += n
	}
	if m.cfg.Verbose && rank == 0 {
		log.Printf("level %d: %d of %d elements flagged (%s)", m.level, total, t.NumElements(), mode)
	}
	return
}

// RefineMesh builds level from the flagged elements of coarse: flagged
// elements are split into their children, the others pass through unchanged.
// Collective.
func RefineMesh(level int, coarse *Mesh) (m *Mesh) {
	if coarse == nil {
		configPanic("refining level %d without a coarse level", level)
	}
	ct := coarse.topo
	ct.AllocateChildren()
	var geom []elem.GeometryType
	for iel := 0; iel < ct.NumElements(); iel++ {
		for c := 0; c < ct.NumChildren(iel); c++ {
			geom = append(geom, ct.Type(iel))
		}
	}
	var (
		ft  = elem.NewTopology(ct.Dimension(), geom)
		amr bool
		k   int
	)
	ft.SetNumNodes(ct.NumNodes())
	for iel := 0; iel < ct.NumElements(); iel++ {
		g := ct.Type(iel)
		first := k
		if ct.IsRefined(iel) {
			for c := 0; c < elem.NRE[g]; c++ {
				for v, cv := range elem.FineToCoarseVertex[g][c] {
					ft.SetVertexIndex(k, v, ct.VertexIndex(iel, cv))
				}
				ft.SetFatherRefined(k, true)
				adoptChild(ct, ft, iel, c, k)
				k++
			}
			for f := 0; f < ct.NumFaces(iel); f++ {
				if nb := ct.FaceNeighbor(iel, f); elem.IsBoundary(nb) {
					for _, cf := range elem.CoarseToFineFace[g][f] {
						ft.SetFaceNeighbor(first+cf.Child, cf.Face, nb)
					}
				}
			}
			continue
		}
		amr = true
		for i, n := range ct.ElementNodes(iel) {
			ft.SetVertexIndex(k, i, n)
		}
		for f := 0; f < ct.NumFaces(iel); f++ {
			if nb := ct.FaceNeighbor(iel, f); elem.IsBoundary(nb) {
				ft.SetFaceNeighbor(k, f, nb)
			}
		}
		adoptChild(ct, ft, iel, 0, k)
		k++
	}

	m = newMesh(coarse.comm, coarse.cfg, level, ft, coarse)
	m.amr = amr
	m.BuildAdjVtx()
	generateNodes(ft, ft.IsFatherRefined)
	m.FillISvector(m.partition())
	m.BuildAdjVtx()
	m.Buildkel()
	m.resolveHangingFaces()
	ft.FreeVertexElements()
	m.buildRefinedFields()
	if m.cfg.Verbose && m.comm.Rank() == 0 {
		log.Printf("level %d: %d elements, %d nodes, %s", level, ft.NumElements(), ft.NumNodes(), utils.GetMemUsage())
	}
	return
}

func adoptChild(ct, ft *elem.Topology, iel, c, k int) {
	ft.SetFather(k, iel)
	ft.SetMaterial(k, ct.Material(iel))
	ft.SetGroup(k, ct.Group(iel))
	ct.SetChildElement(iel, c, k)
}

// partition returns the process of every element, identical on all
// processes. Refined levels inherit their fathers' processes unless some
// coarse element was left unrefined and the configuration asks for a fresh
// partition of non conforming levels.
func (m *Mesh) partition() []int {
	if m.coarse != nil && (!m.amr || m.cfg.InheritPartitionOnAMR) {
		var (
			ct      = m.coarse.topo
			coarseP = make([]int, ct.NumElements())
			father  = make([]int, m.topo.NumElements())
			off     = m.coarse.ElementOffset()
		)
		for p := 0; p < m.nprocs; p++ {
			for iel := off[p]; iel < off[p+1]; iel++ {
				coarseP[iel] = p
			}
		}
		for iel := range father {
			father[iel] = m.topo.Father(iel)
		}
		return partition.FromParent(father, coarseP)
	}
	m.Buildkel()
	m.resolveHangingFaces()
	var part []int
	if m.comm.Rank() == 0 {
		var (
			g   = m.DualGraph()
			err error
		)
		if part, err = m.cfg.Partitioner.Partition(g, m.nprocs); err != nil {
			panic(fmt.Errorf("partitioning level %d: %w", m.level, err))
		}
		if m.cfg.Verbose {
			partition.Analyze(g, part, m.nprocs, true)
		}
	}
	return m.comm.BcastInts(0, part)
}

// buildRefinedFields interpolates the coarse level fields: coordinates with
// the biquadratic prolongation, element tags with the piecewise constant one.
func (m *Mesh) buildRefinedFields() {
	P2 := m.GetCoarseToFineProjection(elem.BiquadraticLagrange)
	for _, name := range coordinateFields {
		v := m.NewFamilyVector(elem.BiquadraticLagrange, true)
		v.MatMult(P2, m.coarse.Field(name))
		m.fields[name] = v
	}
	P3 := m.GetCoarseToFineProjection(elem.PiecewiseConstant)
	for _, name := range []string{FieldMaterial, FieldGroup, FieldType} {
		v := m.NewFamilyVector(elem.PiecewiseConstant, false)
		v.MatMult(P3, m.coarse.Field(name))
		m.fields[name] = v
	}
	m.fields[FieldAMR] = m.NewFamilyVector(elem.PiecewiseConstant, false)
}
