package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDOKToCSR(t *testing.T) {
	dok := NewDOK(3, 4)
	dok.Set(0, 1, 2.)
	dok.Set(2, 3, -1.)
	dok.Add(2, 3, 0.5)
	dok.Add(1, 0, 4.)
	assert.Equal(t, 3, dok.NNZ())
	dok.SetReadOnly("P")
	assert.Panics(t, func() { dok.Set(0, 0, 1.) })

	csr := dok.ToCSR()
	nr, nc := csr.Dims()
	assert.Equal(t, 3, nr)
	assert.Equal(t, 4, nc)
	assert.Equal(t, "P", csr.Name())
	assert.Equal(t, 1, csr.RowNNZ(0))
	assert.Equal(t, 1, csr.RowNNZ(1))
	assert.Equal(t, -0.5, csr.At(2, 3))

	x := []float64{1, 2, 3, 4}
	assert.InDelta(t, 4., csr.MulRow(0, x), 1.e-14)
	assert.InDelta(t, 4., csr.MulRow(1, x), 1.e-14)
	assert.InDelta(t, -2., csr.MulRow(2, x), 1.e-14)

	var visited int
	csr.DoRowNonZero(2, func(i, j int, v float64) {
		require.Equal(t, 2, i)
		assert.Equal(t, 3, j)
		visited++
	})
	assert.Equal(t, 1, visited)
}
