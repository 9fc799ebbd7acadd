package readers

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/femesh/elem"
)

// Helper function to create temporary test files
func createTempNeuFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "test.neu")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	return tmpFile
}

const twoBricks = `        CONTROL INFO 2.0.0
** GAMBIT NEUTRAL FILE
two bricks
PROGRAM:                Gambit     VERSION:  2.4.6
     NUMNP     NELEM     NGRPS    NBSETS     NDFCD     NDFVL
        12         2         2         1         3         3
ENDOFSECTION
   NODAL COORDINATES 2.0.0
         1   0.00000000000e+00   0.00000000000e+00   0.00000000000e+00
         2   2.00000000000e+00   0.00000000000e+00   0.00000000000e+00
         3   4.00000000000e+00   0.00000000000e+00   0.00000000000e+00
         4   0.00000000000e+00   2.00000000000e+00   0.00000000000e+00
         5   2.00000000000e+00   2.00000000000e+00   0.00000000000e+00
         6   4.00000000000e+00   2.00000000000e+00   0.00000000000e+00
         7   0.00000000000e+00   0.00000000000e+00   2.00000000000e+00
         8   2.00000000000e+00   0.00000000000e+00   2.00000000000e+00
         9   4.00000000000e+00   0.00000000000e+00   2.00000000000e+00
        10   0.00000000000e+00   2.00000000000e+00   2.00000000000e+00
        11   2.00000000000e+00   2.00000000000e+00   2.00000000000e+00
        12   4.00000000000e+00   2.00000000000e+00   2.00000000000e+00
ENDOFSECTION
      ELEMENTS/CELLS 2.0.0
      1      4      8        1        2        4        5        7        8       10
                          11
      2      4      8        2        3        5        6        8        9       11
                          12
ENDOFSECTION
       ELEMENT GROUP 2.0.0
GROUP:          1 ELEMENTS:          1 MATERIAL:          2 NFLAGS:          1
fluid
       0
       1
ENDOFSECTION
       ELEMENT GROUP 2.0.0
GROUP:          2 ELEMENTS:          1 MATERIAL:          4 NFLAGS:          1
solid
       0
       2
ENDOFSECTION
 BOUNDARY CONDITIONS 2.0.0
xmin                           1       1       0       6
         1        4       4
ENDOFSECTION
`

func TestReadGambitNeutral(t *testing.T) {
	rm, err := ReadMeshFile(createTempNeuFile(t, twoBricks), 2.)
	require.NoError(t, err)
	assert.Equal(t, 3, rm.Dimension)
	assert.Equal(t, 12, rm.NumNodes())
	assert.Equal(t, 2, rm.NumElements())
	assert.Equal(t, []elem.GeometryType{elem.Hex, elem.Hex}, rm.Geometry)
	// Gambit brick order is converted to counter clockwise faces
	assert.Equal(t, []int{0, 1, 4, 3, 6, 7, 10, 9}, rm.Vertices[0])
	assert.Equal(t, [3]float64{1, 1, 0}, rm.Coords[rm.Vertices[0][2]])
	assert.Equal(t, [3]float64{2, 1, 1}, rm.Coords[11])
	assert.Equal(t, []int{2, 4}, rm.Material)
	assert.Equal(t, []int{1, 2}, rm.Group)
	assert.Equal(t, []string{"xmin"}, rm.BCNames)
	require.Len(t, rm.Boundary, 1)
	assert.Equal(t, BoundaryFace{Element: 0, Face: 3, BC: 0}, rm.Boundary[0])
	for _, i := range elem.IG[elem.Hex][3][:4] {
		assert.Equal(t, 0., rm.Coords[rm.Vertices[0][i]][0])
	}
}

func TestReadGambitQuads(t *testing.T) {
	content := `        CONTROL INFO 2.0.0
** GAMBIT NEUTRAL FILE
     NUMNP     NELEM     NGRPS    NBSETS     NDFCD     NDFVL
         5         2         1         0         2         2
ENDOFSECTION
   NODAL COORDINATES 2.0.0
         1   0.0   0.0
         2   1.0   0.0
         3   1.0   1.0
         4   0.0   1.0
         5   2.0   0.0
ENDOFSECTION
      ELEMENTS/CELLS 2.0.0
      1      2      4        1        2        3        4
      2      3      3        2        5        3
ENDOFSECTION
       ELEMENT GROUP 2.0.0
GROUP:          7 ELEMENTS:          2 MATERIAL:          2 NFLAGS:          0
fluid
       1       2
ENDOFSECTION
`
	rm, err := ReadGambitNeutral(createTempNeuFile(t, content), 1.)
	require.NoError(t, err)
	assert.Equal(t, 2, rm.Dimension)
	assert.Equal(t, []elem.GeometryType{elem.Quad, elem.Tri}, rm.Geometry)
	assert.Equal(t, []int{1, 4, 2}, rm.Vertices[1])
	assert.Equal(t, []int{7, 7}, rm.Group)
}

func TestReadGambitErrors(t *testing.T) {
	_, err := ReadMeshFile("mesh.med", 1.)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
	_, err = ReadMeshFile("mesh.su2", 1.)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
	_, err = ReadMeshFile("missing.neu", 1.)
	assert.Error(t, err)

	// Higher order elements are rejected
	quadratic := strings.Replace(twoBricks, "      2      4      8 ", "      2      4     20 ", 1)
	_, err = ReadMeshFile(createTempNeuFile(t, quadratic), 1.)
	assert.Error(t, err)

	truncated := twoBricks[:strings.Index(twoBricks, "   ELEMENTS/CELLS")+40]
	_, err = ReadMeshFile(createTempNeuFile(t, truncated), 1.)
	assert.Error(t, err)

	_, err = ReadMeshFile(createTempNeuFile(t, twoBricks), 0.)
	assert.Error(t, err)
}
