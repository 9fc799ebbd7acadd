// Package readers loads coarse meshes from files into a RawMesh.
package readers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/notargets/femesh/elem"
)

// BoundaryFace tags face Face of element Element with boundary condition
// index BC.
type BoundaryFace struct {
	Element, Face, BC int
}

// RawMesh is a vertex only coarse mesh: nodes are numbered from zero and every
// element lists its vertices in local vertex order.
type RawMesh struct {
	Dimension int
	Coords    [][3]float64
	Geometry  []elem.GeometryType
	Vertices  [][]int
	Material  []int
	Group     []int
	Boundary  []BoundaryFace
	BCNames   []string
}

func (rm *RawMesh) NumElements() int { return len(rm.Vertices) }

func (rm *RawMesh) NumNodes() int { return len(rm.Coords) }

// Validate checks the element and node tables for consistency.
func (rm *RawMesh) Validate() error {
	ne := len(rm.Vertices)
	if len(rm.Geometry) != ne || len(rm.Material) != ne || len(rm.Group) != ne {
		return fmt.Errorf("element tables disagree on the element count %d", ne)
	}
	for iel, verts := range rm.Vertices {
		g := rm.Geometry[iel]
		if g.Dimension() != rm.Dimension {
			return fmt.Errorf("element %d is a %s in a %dD mesh", iel, g, rm.Dimension)
		}
		if len(verts) != elem.NVE[g][elem.LinearLagrange] {
			return fmt.Errorf("element %d: %s with %d vertices", iel, g, len(verts))
		}
		for _, v := range verts {
			if v < 0 || v >= len(rm.Coords) {
				return fmt.Errorf("element %d: node %d out of range", iel, v)
			}
		}
	}
	for _, bf := range rm.Boundary {
		if bf.Element < 0 || bf.Element >= ne || bf.Face < 0 || bf.Face >= elem.NFC[rm.Geometry[bf.Element]][1] {
			return fmt.Errorf("boundary face (%d,%d) out of range", bf.Element, bf.Face)
		}
	}
	return nil
}

// ErrUnsupportedFormat is returned for mesh files this package cannot read.
var ErrUnsupportedFormat = fmt.Errorf("unsupported mesh format")

// ReadMeshFile reads a mesh file based on extension. Coordinates are divided
// by lref.
func ReadMeshFile(filename string, lref float64) (*RawMesh, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".neu":
		return ReadGambitNeutral(filename, lref)
	case ".med":
		return nil, fmt.Errorf("%w: %s (Salome MED files are not supported)", ErrUnsupportedFormat, filename)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}
