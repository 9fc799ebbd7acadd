package cmd

import (
	"testing"

	"github.com/magiconair/properties/assert"

	"github.com/notargets/femesh/InputParameters"
	"github.com/notargets/femesh/elem"
	"github.com/notargets/femesh/partition/metis"
)

func TestRunRefine(t *testing.T) {
	var (
		err error
	)
	fileInput := []byte(`
Title: Test Case
Box:
  Geometry: quad
  N: [4, 2]
  Max: [2, 1]
Processes: 2
UniformLevels: 1
AMRLevels: 1
Regions:
  1:
    - Min: [0, 0]
      Max: [0.5, 0.5]
`)
	var input InputParameters.MeshParameters
	if err = input.Parse(fileInput); err != nil {
		panic(err)
	}
	assert.Equal(t, input.Processes, 2)
	assert.Equal(t, input.Partitioner, "contiguous")
	assert.Equal(t, input.AMRMode, "amr")
	assert.Equal(t, input.Refine([3]float64{0.25, 0.25, 0}, 1), true)
	assert.Equal(t, input.Refine([3]float64{0.25, 0.25, 0}, 2), false)
	input.Print()

	box, err := NewBox(input.Box)
	assert.Equal(t, err, nil)
	assert.Equal(t, box.Geometry, elem.Quad)
	assert.Equal(t, box.N, [3]int{4, 2, 1})
	assert.Equal(t, box.Max, [3]float64{2, 1, 1})

	assert.Equal(t, RunRefine(&input), nil)

	input.Partitioner = "metis"
	input.Metis.Objective = "cut"
	cfg, err := NewMeshConfig(&input)
	assert.Equal(t, err, nil)
	_, isMetis := cfg.Partitioner.(*metis.Partitioner)
	assert.Equal(t, isMetis, true)
}

func TestRefineInputErrors(t *testing.T) {
	var input InputParameters.MeshParameters
	assert.Equal(t, input.Parse([]byte(`Title: nothing to mesh`)) != nil, true)
	assert.Equal(t, input.Parse([]byte(`{Box: {Geometry: hex, N: [1]}, Partitioner: scotch}`)) != nil, true)
	_, err := processRefineInput("")
	assert.Equal(t, err != nil, true)
	_, err = NewBox(&InputParameters.BoxParameters{Geometry: "pyramid", N: []int{1}})
	assert.Equal(t, err != nil, true)
}
