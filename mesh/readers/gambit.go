package readers

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/notargets/femesh/elem"
)

// gambitNodeOrder maps our local vertex i to the Gambit vertex position.
var gambitNodeOrder = [elem.NumGeometryTypes][]int{
	elem.Hex:   {0, 1, 3, 2, 4, 5, 7, 6},
	elem.Tet:   {0, 1, 2, 3},
	elem.Wedge: {0, 1, 2, 3, 4, 5},
	elem.Quad:  {0, 1, 2, 3},
	elem.Tri:   {0, 1, 2},
	elem.Line:  {0, 1},
}

func gambitGeometry(ntype int) (g elem.GeometryType, err error) {
	switch ntype {
	case 1: // Edge
		g = elem.Line
	case 2: // Quadrilateral
		g = elem.Quad
	case 3: // Triangle
		g = elem.Tri
	case 4: // Brick
		g = elem.Hex
	case 5: // Wedge
		g = elem.Wedge
	case 6: // Tetrahedron
		g = elem.Tet
	default:
		err = fmt.Errorf("unsupported Gambit element type %d", ntype)
	}
	return
}

// ReadGambitNeutral reads a Gambit neutral file (.neu). Only vertex elements
// are accepted, higher order nodes are generated when the mesh is built.
func ReadGambitNeutral(filename string, lref float64) (*RawMesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	rm, err := readGambit(file, lref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return rm, nil
}

type gambitScanner struct {
	*bufio.Scanner
	line int
}

func (gs *gambitScanner) next(what string) (fields []string, err error) {
	if !gs.Scan() {
		if err = gs.Err(); err != nil {
			return nil, fmt.Errorf("error reading file: %w", err)
		}
		return nil, fmt.Errorf("unexpected EOF reading %s", what)
	}
	gs.line++
	return strings.Fields(gs.Text()), nil
}

func atoi(s string, line int) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("line %d: %w", line, err)
	}
	return v, nil
}

func readGambit(r io.Reader, lref float64) (rm *RawMesh, err error) {
	if lref <= 0 {
		return nil, fmt.Errorf("invalid reference length %g", lref)
	}
	gs := &gambitScanner{Scanner: bufio.NewScanner(r)}

	// Control variables from header
	var numnp, nelem, nbsets int
	rm = &RawMesh{}
	for found := false; !found; {
		var fields []string
		if fields, err = gs.next("control info"); err != nil {
			return nil, err
		}
		line := strings.Join(fields, " ")
		if strings.Contains(line, "NUMNP") && strings.Contains(line, "NELEM") {
			if fields, err = gs.next("control info"); err != nil {
				return nil, err
			}
			if len(fields) < 5 {
				return nil, fmt.Errorf("line %d: short control record", gs.line)
			}
			vals := make([]int, 5)
			for i := range vals {
				if vals[i], err = atoi(fields[i], gs.line); err != nil {
					return nil, err
				}
			}
			numnp, nelem, nbsets, rm.Dimension = vals[0], vals[1], vals[3], vals[4]
			found = true
		}
	}
	if rm.Dimension < 1 || rm.Dimension > 3 {
		return nil, fmt.Errorf("invalid coordinate dimension %d", rm.Dimension)
	}
	rm.Coords = make([][3]float64, numnp)
	rm.Geometry = make([]elem.GeometryType, nelem)
	rm.Vertices = make([][]int, nelem)
	rm.Material = make([]int, nelem)
	rm.Group = make([]int, nelem)

	for gs.Scan() {
		gs.line++
		line := strings.TrimSpace(gs.Text())
		switch {
		case strings.Contains(line, "NODAL COORDINATES"):
			err = gs.readNodes(rm, numnp, lref)
		case strings.Contains(line, "ELEMENTS/CELLS"):
			err = gs.readElements(rm, nelem)
		case strings.Contains(line, "ELEMENT GROUP"):
			err = gs.readGroup(rm)
		case strings.Contains(line, "BOUNDARY CONDITIONS"):
			err = gs.readBoundarySet(rm)
		}
		if err != nil {
			return nil, err
		}
	}
	if err = gs.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	if len(rm.BCNames) != nbsets {
		return nil, fmt.Errorf("found %d boundary condition sets, header announces %d", len(rm.BCNames), nbsets)
	}
	if err = rm.Validate(); err != nil {
		return nil, err
	}
	return
}

func (gs *gambitScanner) readNodes(rm *RawMesh, numnp int, lref float64) (err error) {
	for i := 0; i < numnp; i++ {
		var fields []string
		if fields, err = gs.next("nodes"); err != nil {
			return
		}
		if len(fields) < 1+rm.Dimension {
			return fmt.Errorf("line %d: short node record", gs.line)
		}
		var id int
		if id, err = atoi(fields[0], gs.line); err != nil {
			return
		}
		// Gambit uses 1-based node IDs
		if id < 1 || id > numnp {
			return fmt.Errorf("line %d: node id %d out of range", gs.line, id)
		}
		for d := 0; d < rm.Dimension; d++ {
			var x float64
			if x, err = strconv.ParseFloat(fields[1+d], 64); err != nil {
				return fmt.Errorf("line %d: %w", gs.line, err)
			}
			rm.Coords[id-1][d] = x / lref
		}
	}
	return
}

func (gs *gambitScanner) readElements(rm *RawMesh, nelem int) (err error) {
	for i := 0; i < nelem; i++ {
		var fields []string
		if fields, err = gs.next("elements"); err != nil {
			return
		}
		// Format: NE NTYPE NDP NODE1 NODE2 ...
		if len(fields) < 3 {
			return fmt.Errorf("line %d: short element record", gs.line)
		}
		vals := make([]int, 3)
		for k := range vals {
			if vals[k], err = atoi(fields[k], gs.line); err != nil {
				return
			}
		}
		id, ntype, ndp := vals[0], vals[1], vals[2]
		if id < 1 || id > nelem {
			return fmt.Errorf("line %d: element id %d out of range", gs.line, id)
		}
		var g elem.GeometryType
		if g, err = gambitGeometry(ntype); err != nil {
			return fmt.Errorf("line %d: %w", gs.line, err)
		}
		if ndp != elem.NVE[g][elem.LinearLagrange] {
			return fmt.Errorf("line %d: %s element with %d nodes, only vertex elements are supported",
				gs.line, g, ndp)
		}
		// Long records continue on the following lines
		for len(fields) < 3+ndp {
			var more []string
			if more, err = gs.next("elements"); err != nil {
				return
			}
			fields = append(fields, more...)
		}
		verts := make([]int, ndp)
		for k, pos := range gambitNodeOrder[g] {
			var n int
			if n, err = atoi(fields[3+pos], gs.line); err != nil {
				return
			}
			verts[k] = n - 1
		}
		rm.Geometry[id-1], rm.Vertices[id-1] = g, verts
	}
	return
}

func (gs *gambitScanner) readGroup(rm *RawMesh) (err error) {
	var fields []string
	if fields, err = gs.next("element group"); err != nil {
		return
	}
	// Format: GROUP: NGP ELEMENTS: NELGP MATERIAL: MTYP NFLAGS: NFLAGS
	var groupID, numElems, materialID, nflags int
	for i := 0; i < len(fields)-1; i++ {
		var target *int
		switch fields[i] {
		case "GROUP:":
			target = &groupID
		case "ELEMENTS:":
			target = &numElems
		case "MATERIAL:":
			target = &materialID
		case "NFLAGS:":
			target = &nflags
		default:
			continue
		}
		if *target, err = atoi(fields[i+1], gs.line); err != nil {
			return
		}
	}
	// Entity name
	if _, err = gs.next("element group"); err != nil {
		return
	}
	if nflags > 0 {
		if _, err = gs.next("element group flags"); err != nil {
			return
		}
	}
	for read := 0; read < numElems; {
		if fields, err = gs.next("element group"); err != nil {
			return
		}
		for _, f := range fields {
			var id int
			if id, err = atoi(f, gs.line); err != nil {
				return
			}
			if id < 1 || id > len(rm.Vertices) {
				return fmt.Errorf("line %d: group element %d out of range", gs.line, id)
			}
			rm.Group[id-1], rm.Material[id-1] = groupID, materialID
			read++
		}
	}
	return
}

func (gs *gambitScanner) readBoundarySet(rm *RawMesh) (err error) {
	var fields []string
	if fields, err = gs.next("boundary conditions"); err != nil {
		return
	}
	// Format: NAME ITYPE NENTRY NVALUES IBCODE1 ...
	if len(fields) < 3 {
		return fmt.Errorf("line %d: short boundary condition record", gs.line)
	}
	var itype, nentry int
	if itype, err = atoi(fields[1], gs.line); err != nil {
		return
	}
	if nentry, err = atoi(fields[2], gs.line); err != nil {
		return
	}
	bc := len(rm.BCNames)
	rm.BCNames = append(rm.BCNames, fields[0])
	for i := 0; i < nentry; i++ {
		if fields, err = gs.next("boundary conditions"); err != nil {
			return
		}
		// Node sets carry no face information
		if itype != 1 {
			continue
		}
		if len(fields) < 3 {
			return fmt.Errorf("line %d: short boundary face record", gs.line)
		}
		var id, face int
		if id, err = atoi(fields[0], gs.line); err != nil {
			return
		}
		if face, err = atoi(fields[2], gs.line); err != nil {
			return
		}
		rm.Boundary = append(rm.Boundary, BoundaryFace{Element: id - 1, Face: face - 1, BC: bc})
	}
	return
}
