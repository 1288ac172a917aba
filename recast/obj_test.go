package recast

import (
	"strings"
	"testing"

	"github.com/Robmaister/SharpNav-sub000/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quadObj = `# unit quad
v 0 0 0
v 1 0 0
v 1 0 1
v 0 0 1
vn 0 1 0
f 1 2 3 4
f 1/1/1 -1 -2
f 1 2 9
`

func TestLoadObj(t *testing.T) {
	m, err := LoadObj(strings.NewReader(quadObj), 2)
	require.NoError(t, err)

	require.Len(t, m.Verts, 4)
	assert.Equal(t, common.Vec3{2, 0, 2}, m.Verts[2])
	assert.Equal(t, []int{0, 1, 2, 0, 2, 3, 0, 3, 2}, m.Indices)
	assert.Equal(t, 3, m.TriangleCount())
	assert.Equal(t, common.Vec3{0, 0, 2}, m.Triangle(1).C)
}

func TestLoadObjErrors(t *testing.T) {
	_, err := LoadObj(strings.NewReader("v 0 zero 0\n"), 1)
	assert.Error(t, err)

	_, err = LoadObj(strings.NewReader("v 0 0\n"), 1)
	assert.Error(t, err)

	_, err = LoadObj(strings.NewReader("v 0 0 0\nf a b c\n"), 1)
	assert.Error(t, err)

	_, err = LoadObjFile("does/not/exist.obj", 1)
	assert.Error(t, err)
}
