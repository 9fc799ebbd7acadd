package mesh

import (
	"github.com/notargets/femesh/fe"
	"github.com/notargets/femesh/partition"
)

// RefinementStrategy decides whether an element is refined in AMR mode.
type RefinementStrategy interface {
	ShouldRefine(centroid [3]float64, group, level int) bool
}

// RefinementFunc adapts a plain function to RefinementStrategy.
type RefinementFunc func(centroid [3]float64, group, level int) bool

func (f RefinementFunc) ShouldRefine(centroid [3]float64, group, level int) bool {
	return f(centroid, group, level)
}

// Config is shared by every level of a mesh hierarchy.
type Config struct {
	// Partitioner splits a level's dual graph, it runs on rank 0 only
	Partitioner partition.Partitioner
	// FE supplies the interpolation stencils of every geometry and family
	FE *fe.Table
	// Strategy is consulted in FlagAMR mode, may be nil
	Strategy RefinementStrategy
	// InheritPartitionOnAMR keeps the parent's process assignment on non
	// conforming levels instead of repartitioning them
	InheritPartitionOnAMR bool
	Verbose               bool
}

// DefaultConfig uses the contiguous partitioner and the standard element
// table.
func DefaultConfig() *Config {
	return &Config{
		Partitioner: partition.Contiguous{},
		FE:          fe.NewTable(),
	}
}

func (cfg *Config) withDefaults() *Config {
	c := *cfg
	if c.Partitioner == nil {
		c.Partitioner = partition.Contiguous{}
	}
	if c.FE == nil {
		c.FE = fe.NewTable()
	}
	return &c
}
