package fe

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/femesh/elem"
)

type exponent [3]int

// monomialSpace returns the polynomial space spanned by a Lagrange family on
// a geometry. Serendipity spaces are used for the quadratic family on tensor
// product geometries.
func monomialSpace(g elem.GeometryType, fam elem.Family) (space []exponent) {
	tensor := func(n, dim int) {
		for c := 0; c < nOr1(n, dim, 2); c++ {
			for b := 0; b < nOr1(n, dim, 1); b++ {
				for a := 0; a < n; a++ {
					space = append(space, exponent{a, b, c})
				}
			}
		}
	}
	simplex := func(deg, dim int) {
		for c := 0; c <= deg; c++ {
			for b := 0; b <= deg; b++ {
				for a := 0; a <= deg; a++ {
					if a+b+c > deg || (dim < 3 && c > 0) || (dim < 2 && b > 0) {
						continue
					}
					space = append(space, exponent{a, b, c})
				}
			}
		}
	}
	switch g {
	case elem.Line:
		tensor(map[elem.Family]int{0: 2, 1: 3, 2: 3}[fam], 1)
	case elem.Quad:
		switch fam {
		case elem.LinearLagrange:
			tensor(2, 2)
		case elem.QuadraticLagrange:
			simplex(2, 2)
			space = append(space, exponent{2, 1, 0}, exponent{1, 2, 0})
		default:
			tensor(3, 2)
		}
	case elem.Tri, elem.Tet:
		deg := 2
		if fam == elem.LinearLagrange {
			deg = 1
		}
		simplex(deg, g.Dimension())
	case elem.Hex:
		switch fam {
		case elem.LinearLagrange:
			tensor(2, 3)
		case elem.QuadraticLagrange:
			simplex(2, 3)
			space = append(space,
				exponent{2, 1, 0}, exponent{2, 0, 1}, exponent{1, 2, 0}, exponent{0, 2, 1},
				exponent{1, 0, 2}, exponent{0, 1, 2}, exponent{1, 1, 1},
				exponent{2, 1, 1}, exponent{1, 2, 1}, exponent{1, 1, 2})
		default:
			tensor(3, 3)
		}
	case elem.Wedge:
		// Triangle space times a polynomial in z
		deg, nz := 1, 2
		if fam != elem.LinearLagrange {
			deg = 2
		}
		if fam == elem.BiquadraticLagrange {
			nz = 3
		}
		for c := 0; c < nz; c++ {
			for b := 0; b <= deg; b++ {
				for a := 0; a+b <= deg; a++ {
					space = append(space, exponent{a, b, c})
				}
			}
		}
		if fam == elem.QuadraticLagrange {
			space = append(space, exponent{0, 0, 2}, exponent{1, 0, 2}, exponent{0, 1, 2})
		}
	}
	return
}

func nOr1(n, dim, axis int) int {
	if axis < dim {
		return n
	}
	return 1
}

func monomial(x Point, e exponent) float64 {
	v := 1.
	for d := 0; d < 3; d++ {
		for k := 0; k < e[d]; k++ {
			v *= x[d]
		}
	}
	return v
}

// lagrangeBasis holds the nodal basis of one Lagrange family as monomial
// coefficients, coef[k][i] being the weight of monomial k in shape function i.
type lagrangeBasis struct {
	space []exponent
	coef  *mat.Dense
}

func newLagrangeBasis(g elem.GeometryType, fam elem.Family) (lb *lagrangeBasis) {
	var (
		space = monomialSpace(g, fam)
		n     = elem.NVE[g][fam]
	)
	if len(space) != n {
		panic(fmt.Errorf("%s %s space has %d monomials for %d nodes", g, fam, len(space), n))
	}
	V := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		xi := ReferenceNode(g, i)
		for k, e := range space {
			V.Set(i, k, monomial(xi, e))
		}
	}
	var inv mat.Dense
	if err := inv.Inverse(V); err != nil {
		panic(fmt.Errorf("%s %s vandermonde matrix: %w", g, fam, err))
	}
	return &lagrangeBasis{space: space, coef: &inv}
}

// Eval returns every shape function at x.
func (lb *lagrangeBasis) Eval(x Point) (phi []float64) {
	var (
		n = len(lb.space)
		m = make([]float64, n)
	)
	for k, e := range lb.space {
		m[k] = monomial(x, e)
	}
	phi = make([]float64, n)
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			phi[i] += m[k] * lb.coef.At(k, i)
		}
	}
	return
}

// Centroid is the reference coordinate of the element center.
func Centroid(g elem.GeometryType) (c Point) {
	nv := elem.NVE[g][elem.LinearLagrange]
	idx := make([]int, nv)
	for i := range idx {
		idx[i] = i
	}
	return average(referenceVertices[g], idx)
}

func nearlyZero(v float64) bool { return math.Abs(v) <= StencilTolerance }
