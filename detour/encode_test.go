package detour

import (
	"bytes"
	"testing"

	"github.com/Robmaister/SharpNav-sub000/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// richData has every section populated.
func richData(t *testing.T) *NavMeshData {
	t.Helper()
	pm := stripMesh(3, 0, false, true)
	cut(pm, 1)
	p := createParams(pm, 0)
	p.UserId = 9
	p.OffMeshConnections = []OffMeshConnectionSpec{{
		Start: common.Vec3{6, 0, 2}, End: common.Vec3{10, 0, 2},
		Radius: 0.5, Bidirectional: true, Area: 1, Flags: PolyFlagWalk, UserId: 7,
	}}
	return buildData(t, p)
}

func equalSections[T any](t *testing.T, name string, want, got []T) {
	t.Helper()
	if len(want) == 0 && len(got) == 0 {
		return
	}
	assert.Equal(t, want, got, name)
}

func assertSameData(t *testing.T, want, got *NavMeshData) {
	t.Helper()
	assert.Equal(t, want.Header, got.Header)
	equalSections(t, "verts", want.Verts, got.Verts)
	equalSections(t, "polys", want.Polys, got.Polys)
	equalSections(t, "detail meshes", want.DetailMeshes, got.DetailMeshes)
	equalSections(t, "detail verts", want.DetailVerts, got.DetailVerts)
	equalSections(t, "detail tris", want.DetailTris, got.DetailTris)
	equalSections(t, "bvtree", want.BVTree, got.BVTree)
	equalSections(t, "off-mesh connections", want.OffMeshCons, got.OffMeshCons)
}

func TestNavMeshDataBinRoundTrip(t *testing.T) {
	data := richData(t)
	bin := data.ToBin()
	assert.Len(t, bin, data.BinSize())
	assert.Zero(t, len(bin)%4)

	var got NavMeshData
	require.NoError(t, got.FromBin(bin))
	assertSameData(t, data, &got)

	// The decoded tile behaves like the original.
	nav, err := NewSingleTileNavMesh(&got, 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	base := nav.PolyRefBase(nav.Tile(0))
	assert.True(t, linked(nav, base|3, base|2))
}

func TestNavMeshDataBinErrors(t *testing.T) {
	bin := richData(t).ToBin()

	var got NavMeshData
	require.Error(t, got.FromBin(bin[:40]))
	require.Error(t, got.FromBin(bin[:len(bin)-8]))

	bad := append([]byte(nil), bin...)
	bad[0] ^= 0xff
	require.ErrorIs(t, got.FromBin(bad), ErrWrongMagic)
}

func TestNavMeshDataProtoRoundTrip(t *testing.T) {
	data := richData(t)
	buf := data.ToProto()

	var got NavMeshData
	require.NoError(t, got.FromProto(buf))
	assertSameData(t, data, &got)

	// Truncated wire data is rejected.
	require.Error(t, got.FromProto(buf[:len(buf)/2]))
	require.Error(t, got.FromProto(nil))
}

func TestNavMeshDataProtoWrongVersion(t *testing.T) {
	data := richData(t)
	data.Header.Version = NavMeshVersion + 1
	var got NavMeshData
	require.ErrorIs(t, got.FromProto(data.ToProto()), ErrWrongVersion)
}

func TestNavMeshSetRoundTrip(t *testing.T) {
	nav, a, b := twoTileMesh(t)
	buildID := uuid.New()

	var buf bytes.Buffer
	require.NoError(t, SaveNavMeshSet(&buf, nav, buildID))

	loaded, id, err := LoadNavMeshSet(bytes.NewReader(buf.Bytes()), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, buildID, id)
	assert.Equal(t, nav.Params(), loaded.Params())

	// Tiles keep their references and their cross tile links.
	assert.Equal(t, a, loaded.TileRefAt(0, 0, 0))
	assert.Equal(t, b, loaded.TileRefAt(1, 0, 0))
	assert.True(t, linked(loaded, PolyRef(a), PolyRef(b)))
	assert.True(t, linked(loaded, PolyRef(b), PolyRef(a)))

	q, err := NewNavMeshQuery(loaded, 64)
	require.NoError(t, err)
	path, status := q.FindPath(PolyRef(a), PolyRef(b), common.Vec3{1, 0, 2}, common.Vec3{7, 0, 2}, NewStandardQueryFilter(), 8)
	require.True(t, status.Succeeded())
	assert.Equal(t, []PolyRef{PolyRef(a), PolyRef(b)}, path)
}

func TestLoadNavMeshSetErrors(t *testing.T) {
	nav, _, _ := twoTileMesh(t)
	var buf bytes.Buffer
	require.NoError(t, SaveNavMeshSet(&buf, nav, uuid.Nil))
	raw := buf.Bytes()

	_, _, err := LoadNavMeshSet(bytes.NewReader(raw[:10]), nil)
	require.ErrorIs(t, err, ErrNavMeshSet)

	bad := append([]byte(nil), raw...)
	bad[0] ^= 0xff
	_, _, err = LoadNavMeshSet(bytes.NewReader(bad), nil)
	require.ErrorIs(t, err, ErrWrongMagic)

	_, _, err = LoadNavMeshSet(bytes.NewReader(raw[:len(raw)-16]), nil)
	require.ErrorIs(t, err, ErrNavMeshSet)
}
