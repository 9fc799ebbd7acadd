package partition

import (
	"github.com/notargets/femesh/elem"
)

// ComputeCost is the relative assembly cost of one element, used as the
// dual graph vertex weight.
func ComputeCost(g elem.GeometryType) int32 {
	baseCost := [elem.NumGeometryTypes]int32{
		elem.Hex:   8, // Hex has 8 vertices vs 4 for tet
		elem.Tet:   1,
		elem.Wedge: 6,
		elem.Quad:  4,
		elem.Tri:   3,
		elem.Line:  2,
	}
	return baseCost[g]
}

// CommCost is the communication cost of a face shared by two processes,
// proportional to its number of biquadratic dofs.
func CommCost(faceNodes int, isBoundary bool) int32 {
	if isBoundary {
		return 0 // No communication across boundaries
	}
	return int32(faceNodes)
}
