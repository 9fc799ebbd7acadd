package mesh

// MultiLevelMesh owns a level hierarchy built from one coarse mesh.
type MultiLevelMesh struct {
	levels []*Mesh
}

func NewMultiLevelMesh(coarse *Mesh) *MultiLevelMesh {
	if coarse == nil {
		configPanic("multilevel mesh without a coarse level")
	}
	return &MultiLevelMesh{levels: []*Mesh{coarse}}
}

func (ml *MultiLevelMesh) NumLevels() int    { return len(ml.levels) }
func (ml *MultiLevelMesh) Level(i int) *Mesh { return ml.levels[i] }
func (ml *MultiLevelMesh) Finest() *Mesh     { return ml.levels[len(ml.levels)-1] }
func (ml *MultiLevelMesh) Levels() []*Mesh   { return ml.levels }
func (ml *MultiLevelMesh) Coarsest() *Mesh   { return ml.levels[0] }

// Refine flags the finest level with mode and appends the refined level.
// Collective.
func (ml *MultiLevelMesh) Refine(mode FlagMode) *Mesh {
	top := ml.Finest()
	top.FlagElementsToRefine(mode)
	fine := RefineMesh(len(ml.levels), top)
	ml.levels = append(ml.levels, fine)
	return fine
}

// RefineUniform adds n levels refining every element.
func (ml *MultiLevelMesh) RefineUniform(n int) {
	for i := 0; i < n; i++ {
		ml.Refine(FlagAll)
	}
}

// RefineAMR adds n levels refining the elements selected by the configured
// strategy and any pre-set AMR flags.
func (ml *MultiLevelMesh) RefineAMR(n int) {
	for i := 0; i < n; i++ {
		ml.Refine(FlagAMR)
	}
}

// PrintInfo prints every level, on rank 0 only.
func (ml *MultiLevelMesh) PrintInfo() {
	for _, m := range ml.levels {
		m.PrintInfo()
	}
}
