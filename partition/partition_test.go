package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chain returns the dual graph of n elements in a row.
func chain(n int) *Graph {
	g := &Graph{Xadj: make([]int32, n+1)}
	for i := 0; i < n; i++ {
		if i > 0 {
			g.Adjncy = append(g.Adjncy, int32(i-1))
		}
		if i < n-1 {
			g.Adjncy = append(g.Adjncy, int32(i+1))
		}
		g.Xadj[i+1] = int32(len(g.Adjncy))
	}
	return g
}

func TestContiguous(t *testing.T) {
	g := chain(10)
	part, err := Contiguous{}.Partition(g, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0, 0, 1, 1, 1, 2, 2, 2}, part)
	stats, cut, imbalance := Analyze(g, part, 3, false)
	assert.Equal(t, 2, cut)
	assert.Equal(t, 4, stats[0].NumElements)
	assert.Equal(t, 2, len(stats[1].Neighbors))
	assert.InDelta(t, 4./(10./3.)-1, imbalance, 1.e-12)

	// More processes than elements leaves the trailing ones empty
	part, err = Contiguous{}.Partition(chain(2), 4)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, part)

	_, err = Contiguous{}.Partition(g, 0)
	assert.Error(t, err)
}

func TestFromParent(t *testing.T) {
	var pf Partitioner = Func(func(g *Graph, nparts int) ([]int, error) {
		return []int{1, 0}, nil
	})
	parent, err := pf.Partition(chain(2), 2)
	require.NoError(t, err)
	father := []int{0, 0, 0, 0, 1}
	assert.Equal(t, []int{1, 1, 1, 1, 0}, FromParent(father, parent))
}
