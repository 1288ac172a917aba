package navmesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/Robmaister/SharpNav-sub000/common"
	cmnlog "github.com/Robmaister/SharpNav-sub000/common/logger"
	"github.com/Robmaister/SharpNav-sub000/detour"
	"github.com/Robmaister/SharpNav-sub000/recast"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrEmptyMesh = errors.New("navmesh: no walkable polygons")

const (
	trisPerChunk = 256
	// PolyRefs have 31 bits, at least 10 of them salt.
	maxTileAndPolyBits = 21
	maxTileBits        = 14
)

// BuildTile keeps the intermediate meshes of one tile for debugging.
type BuildTile struct {
	X, Y       int
	PolyMesh   *recast.PolyMesh
	DetailMesh *recast.PolyMeshDetail
}

// NavMesh is a generated navigation mesh ready for NavMeshQuery.
type NavMesh struct {
	*detour.TiledNavMesh
	BuildID  uuid.UUID
	Settings NavMeshGenerationSettings
	Tiles    []BuildTile
	// BuildContext holds the phase timers of the build.
	BuildContext *recast.Context
}

// NewQuery creates a query over the mesh with a node pool of maxNodes.
func (m *NavMesh) NewQuery(maxNodes int) (*detour.NavMeshQuery, error) {
	return detour.NewNavMeshQuery(m.TiledNavMesh, maxNodes)
}

// Generate runs the whole build pipeline over tris. A positive
// settings.TileSize builds a tiled mesh through GenerateTiled.
func Generate(tris recast.TriangleSource, settings NavMeshGenerationSettings, logger *zap.Logger) (*NavMesh, error) {
	if settings.TileSize > 0 {
		return GenerateTiled(tris, settings, logger)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	logger = cmnlog.OrNop(logger)
	ctx := recast.NewContext(logger)
	ctx.EnableTimers(true)
	ctx.ResetTimers()
	ctx.StartTimer(recast.TimerTotal)

	bounds := recast.BoundsOf(tris)
	hf, err := recast.NewHeightfield(bounds, settings.CellSize, settings.CellHeight)
	if err != nil {
		return nil, fmt.Errorf("navmesh: heightfield: %w", err)
	}
	pm, dm, err := buildPolyMeshes(ctx, hf, tris, settings, 0)
	ctx.StopTimer(recast.TimerTotal)
	if err != nil {
		return nil, err
	}
	if len(pm.Polys) == 0 {
		return nil, ErrEmptyMesh
	}

	data, err := detour.CreateNavMeshData(createParams(settings, pm, dm, 0, 0))
	if err != nil {
		return nil, fmt.Errorf("navmesh: create tile: %w", err)
	}
	nav, err := detour.NewSingleTileNavMesh(data, detour.TileFreeData, logger)
	if err != nil {
		return nil, err
	}

	m := &NavMesh{
		TiledNavMesh: nav,
		BuildID:      uuid.New(),
		Settings:     settings,
		Tiles:        []BuildTile{{PolyMesh: pm, DetailMesh: dm}},
		BuildContext: ctx,
	}
	logger.Info("navmesh built",
		zap.Stringer("buildId", m.BuildID),
		zap.Int("polys", len(pm.Polys)),
		zap.Int("verts", len(pm.Verts)),
		zap.Duration("time", ctx.AccumulatedTime(recast.TimerTotal)))
	return m, nil
}

// GenerateTiled splits the input bounds into tiles of settings.TileSize
// cells and builds each tile with a border of settings.TileBorderSize
// cells. Tiles without walkable polygons are left empty.
func GenerateTiled(tris recast.TriangleSource, settings NavMeshGenerationSettings, logger *zap.Logger) (*NavMesh, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if settings.TileSize <= 0 {
		return nil, fmt.Errorf("%w: tileSize %d must be positive for a tiled build", ErrInvalidSettings, settings.TileSize)
	}
	logger = cmnlog.OrNop(logger)
	bounds := recast.BoundsOf(tris)
	if !bounds.IsValid() {
		return nil, ErrEmptyMesh
	}

	cs := settings.CellSize
	gw := int(math.Ceil(float64((bounds.Max[0] - bounds.Min[0]) / cs)))
	gh := int(math.Ceil(float64((bounds.Max[2] - bounds.Min[2]) / cs)))
	ts := settings.TileSize
	tw := max(1, (gw+ts-1)/ts)
	th := max(1, (gh+ts-1)/ts)

	tileBits := common.Ilog2(common.NextPow2(uint32(tw * th)))
	if tileBits > maxTileBits {
		return nil, fmt.Errorf("%w: %dx%d tiles, raise tileSize", ErrInvalidSettings, tw, th)
	}
	polyBits := maxTileAndPolyBits - tileBits
	nav, err := detour.NewTiledNavMesh(detour.NavMeshParams{
		Orig:       bounds.Min,
		TileWidth:  float32(ts) * cs,
		TileHeight: float32(ts) * cs,
		MaxTiles:   1 << tileBits,
		MaxPolys:   1 << polyBits,
	}, logger)
	if err != nil {
		return nil, err
	}

	chunky := recast.NewChunkyTriMesh(tris, trisPerChunk)
	ctx := recast.NewContext(logger)
	m := &NavMesh{TiledNavMesh: nav, BuildID: uuid.New(), Settings: settings, BuildContext: ctx}
	ctx.EnableTimers(true)
	ctx.ResetTimers()
	ctx.StartTimer(recast.TimerTotal)
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			data, tile, err := buildTile(ctx, tris, chunky, bounds, settings, x, y)
			if err != nil {
				ctx.StopTimer(recast.TimerTotal)
				return nil, fmt.Errorf("navmesh: tile (%d, %d): %w", x, y, err)
			}
			if data == nil {
				continue
			}
			if _, status := nav.AddTile(data, detour.TileFreeData, 0); status.Failed() {
				ctx.StopTimer(recast.TimerTotal)
				return nil, fmt.Errorf("navmesh: add tile (%d, %d): %s", x, y, status)
			}
			m.Tiles = append(m.Tiles, tile)
		}
	}
	ctx.StopTimer(recast.TimerTotal)
	if len(m.Tiles) == 0 {
		return nil, ErrEmptyMesh
	}
	logger.Info("tiled navmesh built",
		zap.Stringer("buildId", m.BuildID),
		zap.Int("tilesX", tw),
		zap.Int("tilesZ", th),
		zap.Int("tiles", len(m.Tiles)),
		zap.Duration("time", ctx.AccumulatedTime(recast.TimerTotal)))
	return m, nil
}

func buildTile(ctx *recast.Context, tris recast.TriangleSource, chunky *recast.ChunkyTriMesh,
	bounds recast.BBox3, settings NavMeshGenerationSettings, tx, ty int) (*detour.NavMeshData, BuildTile, error) {
	cs := settings.CellSize
	borderSize := settings.TileBorderSize()
	tcs := float32(settings.TileSize) * cs

	var tb recast.BBox3
	tb.Min = common.Vec3{bounds.Min[0] + float32(tx)*tcs, bounds.Min[1], bounds.Min[2] + float32(ty)*tcs}
	tb.Max = common.Vec3{bounds.Min[0] + float32(tx+1)*tcs, bounds.Max[1], bounds.Min[2] + float32(ty+1)*tcs}
	// Expand the heightfield bounding box by border size to find the extents
	// of geometry we need to build this tile.
	pad := float32(borderSize) * cs
	tb.Min[0] -= pad
	tb.Min[2] -= pad
	tb.Max[0] += pad
	tb.Max[2] += pad

	ids := chunky.TrianglesOverlappingRect(mgl32.Vec2{tb.Min[0], tb.Min[2]}, mgl32.Vec2{tb.Max[0], tb.Max[2]})
	if len(ids) == 0 {
		return nil, BuildTile{}, nil
	}

	size := settings.TileSize + borderSize*2
	hf, err := recast.NewHeightfieldGrid(size, size, tb, cs, settings.CellHeight)
	if err != nil {
		return nil, BuildTile{}, err
	}
	pm, dm, err := buildPolyMeshes(ctx, hf, triangleSubset{src: tris, ids: ids}, settings, borderSize)
	if err != nil {
		return nil, BuildTile{}, err
	}
	if len(pm.Polys) == 0 {
		return nil, BuildTile{}, nil
	}
	data, err := detour.CreateNavMeshData(createParams(settings, pm, dm, tx, ty))
	if err != nil {
		return nil, BuildTile{}, err
	}
	return data, BuildTile{X: tx, Y: ty, PolyMesh: pm, DetailMesh: dm}, nil
}

// buildPolyMeshes rasterizes src into hf and runs every phase up to the
// detail mesh.
func buildPolyMeshes(ctx *recast.Context, hf *recast.Heightfield, src recast.TriangleSource,
	settings NavMeshGenerationSettings, borderSize int) (*recast.PolyMesh, *recast.PolyMeshDetail, error) {
	walkableHeight := settings.VoxelAgentHeight()
	walkableClimb := settings.VoxelMaxClimb()

	areas := recast.MarkWalkableTriangles(src, settings.MaxSlope)
	if err := hf.RasterizeTriangles(ctx, src, areas, walkableClimb); err != nil {
		return nil, nil, fmt.Errorf("navmesh: rasterize: %w", err)
	}

	// Once all geometry is rasterized, we do initial pass of filtering to
	// remove unwanted overhangs caused by the conservative rasterization
	// as well as filter spans where the character cannot possibly stand.
	hf.FilterLowHangingWalkableObstacles(ctx, walkableClimb)
	hf.FilterLedgeSpans(ctx, walkableHeight, walkableClimb)
	hf.FilterWalkableLowHeightSpans(ctx, walkableHeight)

	chf := recast.NewCompactHeightfield(ctx, hf, walkableHeight, walkableClimb)
	chf.Erode(ctx, settings.VoxelAgentWidth())
	chf.BuildDistanceField(ctx)
	if err := chf.BuildRegions(ctx, borderSize, settings.MinRegionSize, settings.MergedRegionSize); err != nil {
		return nil, nil, fmt.Errorf("navmesh: regions: %w", err)
	}

	cset, err := recast.NewContourSet(ctx, chf, settings.MaxEdgeError, settings.MaxEdgeLength, settings.ContourFlags)
	if err != nil {
		return nil, nil, fmt.Errorf("navmesh: contours: %w", err)
	}
	pm, err := recast.NewPolyMesh(ctx, cset, settings.VertsPerPoly)
	if err != nil {
		return nil, nil, fmt.Errorf("navmesh: polymesh: %w", err)
	}
	if len(pm.Polys) == 0 {
		return pm, nil, nil
	}
	dm, err := recast.NewPolyMeshDetail(ctx, pm, chf, settings.detailSampleDist(), settings.detailSampleMaxError())
	if err != nil {
		return nil, nil, fmt.Errorf("navmesh: detail mesh: %w", err)
	}
	return pm, dm, nil
}

func createParams(settings NavMeshGenerationSettings, pm *recast.PolyMesh, dm *recast.PolyMeshDetail, tx, ty int) *detour.NavMeshCreateParams {
	return &detour.NavMeshCreateParams{
		PolyMesh:       pm,
		DetailMesh:     dm,
		TileX:          int32(tx),
		TileY:          int32(ty),
		WalkableHeight: settings.AgentHeight,
		WalkableRadius: settings.AgentWidth,
		WalkableClimb:  settings.MaxClimb,
		BuildBvTree:    settings.BuildBoundingVolumeTree,
	}
}

// triangleSubset exposes the triangles ids of src.
type triangleSubset struct {
	src recast.TriangleSource
	ids []int
}

func (s triangleSubset) TriangleCount() int { return len(s.ids) }

func (s triangleSubset) Triangle(i int) recast.Triangle { return s.src.Triangle(s.ids[i]) }
