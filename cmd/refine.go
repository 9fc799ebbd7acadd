/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/femesh/InputParameters"
	"github.com/notargets/femesh/elem"
	"github.com/notargets/femesh/la"
	"github.com/notargets/femesh/mesh"
	"github.com/notargets/femesh/partition/metis"
)

// RefineCmd represents the refine command
var RefineCmd = &cobra.Command{
	Use:   "refine",
	Short: "Build, partition and refine a mesh hierarchy",
	Long:  `Build, partition and refine a mesh hierarchy described by a YAML input file`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("refine called")
		ip, err := processRefineInput(viper.GetString("inputFile"))
		if err != nil {
			fmt.Printf("error: %s\n", err.Error())
			fmt.Printf("Example File:%s\n", exampleRefineFile)
			os.Exit(1)
		}
		if mf := viper.GetString("meshFile"); mf != "" {
			ip.MeshFile = mf
		}
		if np := viper.GetInt("processes"); np > 0 {
			ip.Processes = np
		}
		ip.Verbose = ip.Verbose || viper.GetBool("verbose")
		ip.Print()
		if err = RunRefine(ip); err != nil {
			fmt.Printf("error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

const exampleRefineFile = `
########################################
Title: "Test Case"
Box:
  Geometry: hex # hex, tet, wedge, quad, tri or line
  N: [4, 4, 2]
  Min: [0, 0, 0]
  Max: [1, 1, 0.5]
Processes: 4
Partitioner: metis # Can be "contiguous"
UniformLevels: 1
AMRLevels: 1
Regions:
  -1:
    - Min: [0, 0, 0]
      Max: [0.5, 0.5, 0.5]
########################################
`

func processRefineInput(inputFile string) (ip *InputParameters.MeshParameters, err error) {
	if len(inputFile) == 0 {
		return nil, fmt.Errorf("must supply an input parameters file (-I, --inputFile)")
	}
	var data []byte
	if data, err = os.ReadFile(inputFile); err != nil {
		return
	}
	ip = &InputParameters.MeshParameters{}
	if err = ip.Parse(data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", inputFile, err)
	}
	return
}

// NewMeshConfig builds the mesh configuration selected by the input.
func NewMeshConfig(ip *InputParameters.MeshParameters) (cfg *mesh.Config, err error) {
	cfg = mesh.DefaultConfig()
	cfg.Verbose = ip.Verbose
	cfg.InheritPartitionOnAMR = ip.InheritPartitionOnAMR
	if len(ip.Regions) != 0 {
		cfg.Strategy = mesh.RefinementFunc(func(centroid [3]float64, group, level int) bool {
			return ip.Refine(centroid, group)
		})
	}
	if ip.Partitioner == "metis" {
		mc := metis.DefaultConfig()
		if ip.Metis.ImbalanceFactor > 0 {
			mc.ImbalanceFactor = ip.Metis.ImbalanceFactor
		}
		if ip.Metis.Objective != "" {
			mc.Objective = ip.Metis.Objective
		}
		mc.Verbose = ip.Verbose
		cfg.Partitioner = metis.New(mc)
	}
	return
}

// NewBox converts the box parameters, missing axes default to one cell on
// [0,1].
func NewBox(bp *InputParameters.BoxParameters) (box mesh.Box, err error) {
	if box.Geometry, err = elem.ParseGeometryType(bp.Geometry); err != nil {
		return
	}
	box.Material, box.Group = 2, 1
	for d := 0; d < 3; d++ {
		box.N[d], box.Max[d] = 1, 1
		if d < len(bp.N) {
			box.N[d] = bp.N[d]
		}
		if d < len(bp.Min) {
			box.Min[d] = bp.Min[d]
		}
		if d < len(bp.Max) {
			box.Max[d] = bp.Max[d]
		}
	}
	return
}

// RunRefine builds the hierarchy on ip.Processes in-process ranks and prints
// every level.
func RunRefine(ip *InputParameters.MeshParameters) (err error) {
	var (
		cfg  *mesh.Config
		mode mesh.FlagMode
		box  mesh.Box
	)
	if cfg, err = NewMeshConfig(ip); err != nil {
		return
	}
	if mode, err = mesh.ParseFlagMode(ip.AMRMode); err != nil {
		return
	}
	if ip.MeshFile == "" {
		if box, err = NewBox(ip.Box); err != nil {
			return
		}
	}
	return la.Run(ip.Processes, func(c *la.Comm) (err error) {
		var coarse *mesh.Mesh
		if ip.MeshFile != "" {
			coarse, err = mesh.ReadCoarseMesh(c, cfg, ip.MeshFile, ip.LRef)
		} else {
			coarse, err = buildBox(c, cfg, box)
		}
		if err != nil {
			return
		}
		ml := mesh.NewMultiLevelMesh(coarse)
		ml.RefineUniform(ip.UniformLevels)
		for i := 0; i < ip.AMRLevels; i++ {
			ml.Refine(mode)
		}
		ml.PrintInfo()
		return
	})
}

func buildBox(c *la.Comm, cfg *mesh.Config, box mesh.Box) (*mesh.Mesh, error) {
	raw, err := mesh.GenerateCoarseBoxMesh(box)
	if err != nil {
		return nil, err
	}
	return mesh.BuildCoarseMesh(c, cfg, raw)
}

func init() {
	rootCmd.AddCommand(RefineCmd)
	RefineCmd.Flags().StringP("inputFile", "I", "", "YAML file for input parameters like:\n\t- Box or MeshFile\n\t- UniformLevels, AMRLevels")
	RefineCmd.Flags().StringP("meshFile", "F", "", "Grid file to read in Gambit (.neu) format, overrides the input file")
	RefineCmd.Flags().IntP("processes", "n", 0, "number of processes, overrides the input file")
	RefineCmd.Flags().BoolP("verbose", "v", false, "log partition and level statistics")
	for _, name := range []string{"inputFile", "meshFile", "processes", "verbose"} {
		if err := viper.BindPFlag(name, RefineCmd.Flags().Lookup(name)); err != nil {
			panic(err)
		}
	}
}
