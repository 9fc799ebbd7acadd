// Package partition assigns mesh elements to processes.
package partition

import (
	"fmt"
	"log"
	"math"

	"github.com/notargets/femesh/utils"
)

// Graph is the element dual graph in CSR form: the neighbours of element i
// are Adjncy[Xadj[i]:Xadj[i+1]]. Vwgt holds optional per element compute
// costs, Adjwgt optional per face communication costs.
type Graph struct {
	Xadj   []int32
	Adjncy []int32
	Vwgt   []int32
	Adjwgt []int32
}

func (g *Graph) NumVertices() int { return len(g.Xadj) - 1 }

func (g *Graph) Neighbors(i int) []int32 { return g.Adjncy[g.Xadj[i]:g.Xadj[i+1]] }

func (g *Graph) Weight(i int) int64 {
	if g.Vwgt == nil {
		return 1
	}
	return int64(g.Vwgt[i])
}

// Partitioner returns one process id in [0,nparts) per graph vertex.
type Partitioner interface {
	Partition(g *Graph, nparts int) (part []int, err error)
}

// Func adapts a plain function to the Partitioner interface.
type Func func(g *Graph, nparts int) ([]int, error)

func (f Func) Partition(g *Graph, nparts int) ([]int, error) { return f(g, nparts) }

// Contiguous splits the elements into nparts consecutive index ranges whose
// sizes differ by at most one.
type Contiguous struct{}

func (Contiguous) Partition(g *Graph, nparts int) (part []int, err error) {
	if nparts < 1 {
		return nil, fmt.Errorf("invalid number of partitions %d", nparts)
	}
	ne := g.NumVertices()
	pm := utils.NewPartitionMap(nparts, ne)
	part = make([]int, ne)
	for p := 0; p < nparts; p++ {
		kMin, kMax := pm.GetBucketRange(p)
		for k := kMin; k < kMax; k++ {
			part[k] = p
		}
	}
	return
}

// FromParent gives every fine element the process of its father.
func FromParent(father []int, parentPart []int) (part []int) {
	part = make([]int, len(father))
	for iel, f := range father {
		part[iel] = parentPart[f]
	}
	return
}

// Stats summarises one partition.
type Stats struct {
	ID          int
	NumElements int
	ComputeLoad int64
	Neighbors   map[int]int // neighbor partition -> shared faces
}

// Analyze computes partition quality metrics and logs them when verbose.
func Analyze(g *Graph, part []int, nparts int, verbose bool) (stats []Stats, cutEdges int, imbalance float64) {
	stats = make([]Stats, nparts)
	for i := range stats {
		stats[i].ID = i
		stats[i].Neighbors = make(map[int]int)
	}
	for iel := 0; iel < g.NumVertices(); iel++ {
		p := part[iel]
		stats[p].NumElements++
		stats[p].ComputeLoad += g.Weight(iel)
		for _, nb := range g.Neighbors(iel) {
			q := part[nb]
			if int(nb) > iel && p != q {
				cutEdges++
				stats[p].Neighbors[q]++
				stats[q].Neighbors[p]++
			}
		}
	}
	var (
		avgLoad float64
		maxLoad int64
		minLoad = int64(math.MaxInt64)
	)
	for _, s := range stats {
		avgLoad += float64(s.ComputeLoad)
		maxLoad = max(maxLoad, s.ComputeLoad)
		minLoad = min(minLoad, s.ComputeLoad)
	}
	avgLoad /= float64(nparts)
	if avgLoad > 0 {
		imbalance = float64(maxLoad)/avgLoad - 1.0
	}
	if verbose {
		log.Printf("Partition Analysis:")
		log.Printf("  Cut edges: %d", cutEdges)
		log.Printf("  Load imbalance: %.2f%%", imbalance*100)
		log.Printf("  Load range: [%d, %d], avg: %.1f", minLoad, maxLoad, avgLoad)
		for _, s := range stats {
			log.Printf("  Partition %d: %d elements, load %d, %d neighbors",
				s.ID, s.NumElements, s.ComputeLoad, len(s.Neighbors))
		}
	}
	return
}
