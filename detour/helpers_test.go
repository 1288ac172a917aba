package detour

import (
	"testing"

	"github.com/Robmaister/SharpNav-sub000/common"
	"github.com/Robmaister/SharpNav-sub000/recast"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	testCellSize = 0.5
	// testQuadCells is the side of a strip quad in cells.
	testQuadCells = 8
	testQuadSize  = testQuadCells * testCellSize
)

// stripMesh returns a row of n square polygons along +x starting at x0.
// Portal flags turn the outer x edges into tile border portals.
func stripMesh(n int, x0 float32, portalMinusX, portalPlusX bool) *recast.PolyMesh {
	pm := &recast.PolyMesh{
		NumVertsPerPoly: 6,
		CellSize:        testCellSize,
		CellHeight:      testCellSize,
		Bounds: recast.BBox3{
			Min: common.Vec3{x0, 0, 0},
			Max: common.Vec3{x0 + float32(n)*testQuadSize, 1, testQuadSize},
		},
	}
	for c := 0; c <= n; c++ {
		pm.Verts = append(pm.Verts,
			recast.PolyVertex{X: c * testQuadCells},
			recast.PolyVertex{X: c * testQuadCells, Z: testQuadCells})
	}
	for i := 0; i < n; i++ {
		verts := []int{2 * i, 2*i + 1, 2*i + 3, 2*i + 2, recast.NullId, recast.NullId}
		neis := []int{i - 1, recast.NullId, i + 1, recast.NullId, recast.NullId, recast.NullId}
		if i == 0 {
			neis[0] = recast.NullId
			if portalMinusX {
				neis[0] = recast.NeighborEdgeFlag | 0
			}
		}
		if i == n-1 {
			neis[2] = recast.NullId
			if portalPlusX {
				neis[2] = recast.NeighborEdgeFlag | 2
			}
		}
		pm.Polys = append(pm.Polys, recast.Polygon{Vertices: verts, NeighborEdges: neis, Area: recast.AreaWalkable})
	}
	return pm
}

// cut removes the shared edge between polygon i and i+1.
func cut(pm *recast.PolyMesh, i int) {
	pm.Polys[i].NeighborEdges[2] = recast.NullId
	pm.Polys[i+1].NeighborEdges[0] = recast.NullId
}

func createParams(pm *recast.PolyMesh, tx int32) *NavMeshCreateParams {
	return &NavMeshCreateParams{
		PolyMesh:       pm,
		TileX:          tx,
		WalkableHeight: 2,
		WalkableRadius: 0.5,
		WalkableClimb:  0.5,
		BuildBvTree:    true,
	}
}

func buildData(t *testing.T, p *NavMeshCreateParams) *NavMeshData {
	t.Helper()
	data, err := CreateNavMeshData(p)
	require.NoError(t, err)
	return data
}

func singleTileQuery(t *testing.T, pm *recast.PolyMesh) (*TiledNavMesh, *NavMeshQuery) {
	t.Helper()
	nav, err := NewSingleTileNavMesh(buildData(t, createParams(pm, 0)), 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	q, err := NewNavMeshQuery(nav, 256)
	require.NoError(t, err)
	return nav, q
}

// polyAt returns the reference of the polygon under pos.
func polyAt(t *testing.T, q *NavMeshQuery, pos common.Vec3) PolyRef {
	t.Helper()
	np, status := q.FindNearestPoly(pos, common.Vec3{0.1, 1, 0.1}, NewStandardQueryFilter())
	require.True(t, status.Succeeded(), status.String())
	require.NotZero(t, np.Ref)
	return np.Ref
}

// linked reports whether a has a link to b.
func linked(nav *TiledNavMesh, a, b PolyRef) bool {
	tile, poly, status := nav.TileAndPolyByRef(a)
	if status.Failed() {
		return false
	}
	for i := poly.FirstLink; i != NullLink; i = tile.Links[i].Next {
		if tile.Links[i].Ref == b {
			return true
		}
	}
	return false
}
