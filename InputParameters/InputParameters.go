package InputParameters

import (
	"fmt"
	"sort"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file of a refinement run
type MeshParameters struct {
	Title         string          `yaml:"Title"`
	MeshFile      string          `yaml:"MeshFile"` // Gambit .neu file, the Box is used when empty
	LRef          float64         `yaml:"LRef"`     // Reference length dividing the file coordinates
	Box           *BoxParameters  `yaml:"Box"`
	Processes     int             `yaml:"Processes"`
	Partitioner   string          `yaml:"Partitioner"` // contiguous or metis
	Metis         MetisParameters `yaml:"Metis"`
	UniformLevels int             `yaml:"UniformLevels"`
	AMRLevels     int             `yaml:"AMRLevels"`
	AMRMode       string          `yaml:"AMRMode"` // amr or even
	// Elements whose centroid lies inside a region of their group are refined
	// on AMR levels, key is the group, -1 matches any group
	Regions               map[int][]Region `yaml:"Regions"`
	InheritPartitionOnAMR bool             `yaml:"InheritPartitionOnAMR"`
	Verbose               bool             `yaml:"Verbose"`
}

type BoxParameters struct {
	Geometry string    `yaml:"Geometry"`
	N        []int     `yaml:"N"`
	Min      []float64 `yaml:"Min"`
	Max      []float64 `yaml:"Max"`
}

type MetisParameters struct {
	ImbalanceFactor float32 `yaml:"ImbalanceFactor"`
	Objective       string  `yaml:"Objective"` // vol or cut
}

// Region is an axis aligned box
type Region struct {
	Min []float64 `yaml:"Min"`
	Max []float64 `yaml:"Max"`
}

func (r Region) Contains(x [3]float64) bool {
	for d := 0; d < len(r.Min) && d < len(r.Max) && d < 3; d++ {
		if x[d] < r.Min[d] || x[d] > r.Max[d] {
			return false
		}
	}
	return true
}

func (ip *MeshParameters) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, ip); err != nil {
		return
	}
	ip.setDefaults()
	return ip.Validate()
}

func (ip *MeshParameters) setDefaults() {
	if ip.LRef == 0 {
		ip.LRef = 1
	}
	if ip.Processes == 0 {
		ip.Processes = 1
	}
	if ip.Partitioner == "" {
		ip.Partitioner = "contiguous"
	}
	if ip.AMRMode == "" {
		ip.AMRMode = "amr"
	}
}

func (ip *MeshParameters) Validate() error {
	switch {
	case ip.MeshFile == "" && ip.Box == nil:
		return fmt.Errorf("input needs a MeshFile or a Box")
	case ip.Processes < 1:
		return fmt.Errorf("invalid number of processes %d", ip.Processes)
	case ip.UniformLevels < 0 || ip.AMRLevels < 0:
		return fmt.Errorf("negative refinement level count")
	case ip.Partitioner != "contiguous" && ip.Partitioner != "metis":
		return fmt.Errorf("unknown partitioner %q", ip.Partitioner)
	}
	if ip.Box != nil && len(ip.Box.N) == 0 {
		return fmt.Errorf("box needs a cell count per axis")
	}
	return nil
}

// Refine reports whether an element of group with the given centroid lies in
// one of the refinement regions.
func (ip *MeshParameters) Refine(centroid [3]float64, group int) bool {
	for _, g := range []int{group, -1} {
		for _, r := range ip.Regions[g] {
			if r.Contains(centroid) {
				return true
			}
		}
	}
	return false
}

func (ip *MeshParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	if ip.MeshFile != "" {
		fmt.Printf("[%s]\t= MeshFile\n", ip.MeshFile)
		fmt.Printf("%8.5f\t\t= LRef\n", ip.LRef)
	} else {
		fmt.Printf("[%s %v]\t\t= Box\n", ip.Box.Geometry, ip.Box.N)
	}
	fmt.Printf("[%d]\t\t\t\t= Processes\n", ip.Processes)
	fmt.Printf("[%s]\t\t= Partitioner\n", ip.Partitioner)
	fmt.Printf("[%d]\t\t\t\t= Uniform Levels\n", ip.UniformLevels)
	fmt.Printf("[%d]\t\t\t\t= AMR Levels (%s)\n", ip.AMRLevels, ip.AMRMode)
	keys := make([]int, len(ip.Regions))
	i := 0
	for k := range ip.Regions {
		keys[i] = k
		i++
	}
	sort.Ints(keys)
	for _, key := range keys {
		fmt.Printf("Regions[%d] = %v\n", key, ip.Regions[key])
	}
}
