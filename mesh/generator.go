package mesh

import (
	"fmt"

	"github.com/notargets/femesh/elem"
	"github.com/notargets/femesh/mesh/readers"
)

// Boundary condition indices of the generated box faces.
const (
	BoxXMin = iota
	BoxXMax
	BoxYMin
	BoxYMax
	BoxZMin
	BoxZMax
)

var boxBCNames = []string{"xmin", "xmax", "ymin", "ymax", "zmin", "zmax"}

// Box describes a structured coarse mesh: n cells per axis between Min and
// Max. Axes above the geometry's dimension are ignored.
type Box struct {
	Geometry elem.GeometryType
	N        [3]int
	Min, Max [3]float64
	Material int
	Group    int
}

// hex corner offsets in local vertex order
var cubeCorners = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

// GenerateCoarseBoxMesh builds a box of the requested geometry. Quad cells
// are split into two triangles, hex cells into two wedges or six tetrahedra
// around their main diagonal.
func GenerateCoarseBoxMesh(box Box) (rm *readers.RawMesh, err error) {
	dim := box.Geometry.Dimension()
	n := [3]int{1, 1, 1}
	for d := 0; d < dim; d++ {
		if box.N[d] < 1 {
			return nil, fmt.Errorf("box needs at least one cell along axis %d, have %d", d, box.N[d])
		}
		if box.Max[d] <= box.Min[d] {
			return nil, fmt.Errorf("box axis %d is empty: [%g,%g]", d, box.Min[d], box.Max[d])
		}
		n[d] = box.N[d]
	}
	var (
		nx, ny = n[0], n[1]
		planes = 1
	)
	if dim == 3 {
		planes = n[2] + 1
	}
	rows := 1
	if dim >= 2 {
		rows = ny + 1
	}
	rm = &readers.RawMesh{
		Dimension: dim,
		Coords:    make([][3]float64, (nx+1)*rows*planes),
		BCNames:   boxBCNames[:2*dim],
	}
	node := func(i, j, k int) int { return i + (nx+1)*(j+rows*k) }
	for k := 0; k < planes; k++ {
		for j := 0; j < rows; j++ {
			for i := 0; i <= nx; i++ {
				ijk := [3]int{i, j, k}
				x := &rm.Coords[node(i, j, k)]
				for d := 0; d < dim; d++ {
					x[d] = box.Min[d] + (box.Max[d]-box.Min[d])*float64(ijk[d])/float64(n[d])
				}
			}
		}
	}

	// lattice position of every node, used to tag boundary faces
	lattice := func(v int) (ijk [3]int) {
		ijk[0] = v % (nx + 1)
		ijk[1] = (v / (nx + 1)) % rows
		ijk[2] = v / ((nx + 1) * rows)
		return
	}
	add := func(g elem.GeometryType, verts []int) {
		iel := len(rm.Vertices)
		rm.Geometry = append(rm.Geometry, g)
		rm.Vertices = append(rm.Vertices, verts)
		rm.Material = append(rm.Material, box.Material)
		rm.Group = append(rm.Group, box.Group)
		for f := 0; f < elem.NFC[g][1]; f++ {
			nv := elem.NFACENODES[g][f][elem.LinearLagrange]
			for d := 0; d < dim; d++ {
				onMin, onMax := true, true
				for _, i := range elem.IG[g][f][:nv] {
					p := lattice(verts[i])
					onMin = onMin && p[d] == 0
					onMax = onMax && p[d] == n[d]
				}
				switch {
				case onMin:
					rm.Boundary = append(rm.Boundary, readers.BoundaryFace{Element: iel, Face: f, BC: 2 * d})
				case onMax:
					rm.Boundary = append(rm.Boundary, readers.BoundaryFace{Element: iel, Face: f, BC: 2*d + 1})
				}
			}
		}
	}

	for k := 0; k < n[2]; k++ {
		for j := 0; j < n[1]; j++ {
			for i := 0; i < nx; i++ {
				var c [8]int
				for v, off := range cubeCorners {
					c[v] = node(i+off[0], j+off[1], k+off[2])
				}
				switch box.Geometry {
				case elem.Line:
					add(elem.Line, []int{c[0], c[1]})
				case elem.Quad:
					add(elem.Quad, []int{c[0], c[1], c[2], c[3]})
				case elem.Tri:
					add(elem.Tri, []int{c[0], c[1], c[2]})
					add(elem.Tri, []int{c[0], c[2], c[3]})
				case elem.Hex:
					add(elem.Hex, c[:])
				case elem.Wedge:
					add(elem.Wedge, []int{c[0], c[1], c[2], c[4], c[5], c[6]})
					add(elem.Wedge, []int{c[0], c[2], c[3], c[4], c[6], c[7]})
				case elem.Tet:
					for _, t := range kuhnTets {
						add(elem.Tet, []int{c[t[0]], c[t[1]], c[t[2]], c[t[3]]})
					}
				default:
					return nil, fmt.Errorf("no box generator for %s", box.Geometry)
				}
			}
		}
	}
	return rm, rm.Validate()
}

// kuhnTets splits the unit cube into six positively oriented tetrahedra
// sharing the diagonal from corner 0 to corner 6.
var kuhnTets = func() (tets [6][4]int) {
	corner := func(p [3]int) int {
		for v, c := range cubeCorners {
			if c == p {
				return v
			}
		}
		panic(fmt.Errorf("no cube corner at %v", p))
	}
	perms := [6][3]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for it, perm := range perms {
		var p1, p2 [3]int
		p1[perm[0]] = 1
		p2 = p1
		p2[perm[1]] = 1
		tets[it] = [4]int{0, corner(p1), corner(p2), 6}
		a, b, c := cubeCorners[tets[it][1]], cubeCorners[tets[it][2]], cubeCorners[tets[it][3]]
		det := a[0]*(b[1]*c[2]-b[2]*c[1]) - a[1]*(b[0]*c[2]-b[2]*c[0]) + a[2]*(b[0]*c[1]-b[1]*c[0])
		if det < 0 {
			tets[it][1], tets[it][2] = tets[it][2], tets[it][1]
		}
	}
	return
}()
