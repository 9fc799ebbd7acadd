package mesh

import (
	"errors"
	"fmt"
	"log"

	"github.com/notargets/femesh/elem"
	"github.com/notargets/femesh/la"
	"github.com/notargets/femesh/mesh/readers"
	"github.com/notargets/femesh/utils"
)

// SolidMaterial is the material index of structure elements.
const SolidMaterial = 4

// ReadCoarseMesh reads a coarse mesh file on every process and builds level
// zero from it. Coordinates are divided by lref. Collective.
func ReadCoarseMesh(c *la.Comm, cfg *Config, filename string, lref float64) (*Mesh, error) {
	raw, err := readers.ReadMeshFile(filename, lref)
	switch {
	case errors.Is(err, readers.ErrUnsupportedFormat):
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	case err != nil:
		return nil, err
	}
	return BuildCoarseMesh(c, cfg, raw)
}

// BuildCoarseMesh builds level zero from a vertex only mesh: generates the
// edge, face and interior nodes, partitions and numbers the level, resolves
// face adjacency and distributes coordinates and element tags. Collective.
func BuildCoarseMesh(c *la.Comm, cfg *Config, raw *readers.RawMesh) (m *Mesh, err error) {
	if err = raw.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	t := elem.NewTopology(raw.Dimension, raw.Geometry)
	t.SetNumNodes(raw.NumNodes())
	used := make([]bool, raw.NumNodes())
	for iel, verts := range raw.Vertices {
		for i, v := range verts {
			t.SetVertexIndex(iel, i, v)
			used[v] = true
		}
		t.SetMaterial(iel, raw.Material[iel])
		t.SetGroup(iel, raw.Group[iel])
	}
	for n, u := range used {
		if !u {
			return nil, fmt.Errorf("%w: node %d is not referenced by any element", ErrConfiguration, n)
		}
	}
	for _, bf := range raw.Boundary {
		t.SetFaceNeighbor(bf.Element, bf.Face, elem.BoundaryMarker(bf.BC))
	}

	m = newMesh(c, cfg, 0, t, nil)
	m.BuildAdjVtx()
	generateNodes(t, func(int) bool { return true })
	m.coords = completeCoordinates(t, raw.Coords)
	m.FillISvector(m.partition())
	m.BuildAdjVtx()
	m.Buildkel()
	t.FreeVertexElements()
	m.buildCoarseFields()
	m.coords = nil
	if m.cfg.Verbose && c.Rank() == 0 {
		log.Printf("level 0: %d elements, %d nodes, %s", t.NumElements(), t.NumNodes(), utils.GetMemUsage())
	}
	return
}

func (m *Mesh) buildCoarseFields() {
	for d, name := range coordinateFields {
		v := m.NewFamilyVector(elem.BiquadraticLagrange, true)
		lo, hi := v.OwnershipRange()
		for n := lo; n < hi; n++ {
			v.Set(n, m.coords[n][d])
		}
		v.Close()
		m.fields[name] = v
	}
	first, last := m.OwnedElements()
	tags := map[string]func(iel int) int{
		FieldMaterial: m.topo.Material,
		FieldGroup:    m.topo.Group,
		FieldType:     func(iel int) int { return int(m.topo.Type(iel)) },
	}
	for _, name := range []string{FieldMaterial, FieldGroup, FieldType} {
		v := m.NewFamilyVector(elem.PiecewiseConstant, false)
		for iel := first; iel < last; iel++ {
			v.Set(iel, float64(tags[name](iel)))
		}
		v.Close()
		m.fields[name] = v
	}
	m.fields[FieldAMR] = m.NewFamilyVector(elem.PiecewiseConstant, false)
}

// AllocateAndMarkStructureNode flags every node of a SolidMaterial element as
// a structure node. The flags are not used by construction or refinement, the
// caller owns them until FreeStructureNode.
func (m *Mesh) AllocateAndMarkStructureNode() {
	t := m.topo
	t.AllocateNodeRegion()
	for iel := 0; iel < t.NumElements(); iel++ {
		if t.Material(iel) != SolidMaterial {
			continue
		}
		for _, n := range t.ElementNodes(iel) {
			t.SetNodeRegion(n, true)
		}
	}
}

// FreeStructureNode releases the flags set by AllocateAndMarkStructureNode.
func (m *Mesh) FreeStructureNode() { m.topo.FreeNodeRegion() }
