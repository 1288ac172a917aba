package debug_utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/Robmaister/SharpNav-sub000/common/rw"
	"github.com/Robmaister/SharpNav-sub000/recast"
	"go.uber.org/zap"
)

var ErrBadContourSet = errors.New("debug_utils: bad contour set")

// DumpPolyMeshToObj writes the polygons of pmesh as a Wavefront OBJ, each
// polygon fanned into triangles.
func DumpPolyMeshToObj(pmesh *recast.PolyMesh, out io.Writer) error {
	w := bufio.NewWriter(out)
	cs := pmesh.CellSize
	ch := pmesh.CellHeight
	orig := pmesh.Bounds.Min

	fmt.Fprint(w, "# Recast Navmesh\n")
	fmt.Fprint(w, "o NavMesh\n\n")
	for _, v := range pmesh.Verts {
		x := orig[0] + float32(v.X)*cs
		y := orig[1] + float32(v.Y+1)*ch + 0.1
		z := orig[2] + float32(v.Z)*cs
		fmt.Fprintf(w, "v %f %f %f\n", x, y, z)
	}
	fmt.Fprint(w, "\n")
	for i := range pmesh.Polys {
		p := pmesh.Polys[i].Vertices
		for j := 2; j < len(p); j++ {
			if p[j] == recast.NullId {
				break
			}
			fmt.Fprintf(w, "f %d %d %d\n", p[0]+1, p[j-1]+1, p[j]+1)
		}
	}
	return w.Flush()
}

// DumpPolyMeshDetailToObj writes the detail triangles of dmesh as a
// Wavefront OBJ.
func DumpPolyMeshDetailToObj(dmesh *recast.PolyMeshDetail, out io.Writer) error {
	w := bufio.NewWriter(out)
	fmt.Fprint(w, "# Recast Navmesh\n")
	fmt.Fprint(w, "o NavMesh\n\n")
	for _, v := range dmesh.Verts {
		fmt.Fprintf(w, "v %f %f %f\n", v[0], v[1], v[2])
	}
	fmt.Fprint(w, "\n")
	for _, m := range dmesh.Meshes {
		for _, t := range dmesh.Tris[m.TriangleIndex : m.TriangleIndex+m.TriangleCount] {
			fmt.Fprintf(w, "f %d %d %d\n",
				m.VertexIndex+t.Indices[0]+1,
				m.VertexIndex+t.Indices[1]+1,
				m.VertexIndex+t.Indices[2]+1)
		}
	}
	return w.Flush()
}

const (
	csetMagic   = 'c'<<24 | 's'<<16 | 'e'<<8 | 't'
	csetVersion = 2
)

func writeContourVerts(w *rw.ReaderWriter, verts []recast.ContourVertex) {
	for _, v := range verts {
		w.WriteInt32(int32(v.X))
		w.WriteInt32(int32(v.Y))
		w.WriteInt32(int32(v.Z))
		w.WriteUInt32(uint32(v.RegionId))
	}
}

func readContourVerts(r *rw.ReaderWriter, n int) []recast.ContourVertex {
	verts := make([]recast.ContourVertex, n)
	for i := range verts {
		verts[i].X = int(r.ReadInt32())
		verts[i].Y = int(r.ReadInt32())
		verts[i].Z = int(r.ReadInt32())
		verts[i].RegionId = recast.RegionId(r.ReadUInt32())
	}
	return verts
}

// DumpContourSet encodes cset in a little-endian binary layout.
func DumpContourSet(cset *recast.ContourSet) []byte {
	w := rw.NewNavMeshDataBinWriter()
	w.WriteInt32(csetMagic)
	w.WriteInt32(csetVersion)
	w.WriteInt32(int32(len(cset.Contours)))
	w.WriteFloat32s(cset.Bounds.Min[:])
	w.WriteFloat32s(cset.Bounds.Max[:])
	w.WriteFloat32(cset.CellSize)
	w.WriteFloat32(cset.CellHeight)
	w.WriteInt32(int32(cset.Width))
	w.WriteInt32(int32(cset.Length))
	w.WriteInt32(int32(cset.BorderSize))
	w.WriteFloat32(cset.MaxError)
	for _, cont := range cset.Contours {
		w.WriteInt32(int32(len(cont.Vertices)))
		w.WriteInt32(int32(len(cont.RawVertices)))
		w.WriteUInt32(uint32(cont.RegionId))
		w.WriteUInt8(uint8(cont.Area))
		writeContourVerts(w, cont.Vertices)
		writeContourVerts(w, cont.RawVertices)
	}
	return w.GetWriteBytes()
}

// ReadContourSet decodes data written by DumpContourSet.
func ReadContourSet(data []byte) (*recast.ContourSet, error) {
	r := rw.NewNavMeshDataBinReader(data)
	if magic := r.ReadInt32(); magic != csetMagic {
		return nil, fmt.Errorf("%w: magic %#x", ErrBadContourSet, magic)
	}
	if version := r.ReadInt32(); version != csetVersion {
		return nil, fmt.Errorf("%w: version %d", ErrBadContourSet, version)
	}
	n := int(r.ReadInt32())
	if n < 0 || n > len(data) {
		return nil, fmt.Errorf("%w: %d contours", ErrBadContourSet, n)
	}
	cset := &recast.ContourSet{}
	r.ReadFloat32s(cset.Bounds.Min[:])
	r.ReadFloat32s(cset.Bounds.Max[:])
	cset.CellSize = r.ReadFloat32()
	cset.CellHeight = r.ReadFloat32()
	cset.Width = int(r.ReadInt32())
	cset.Length = int(r.ReadInt32())
	cset.BorderSize = int(r.ReadInt32())
	cset.MaxError = r.ReadFloat32()
	for i := 0; i < n && r.Err() == nil; i++ {
		nverts := int(r.ReadInt32())
		nrverts := int(r.ReadInt32())
		if nverts < 0 || nrverts < 0 || nverts+nrverts > len(data) {
			return nil, fmt.Errorf("%w: contour %d has %d/%d vertices", ErrBadContourSet, i, nverts, nrverts)
		}
		cont := &recast.Contour{
			RegionId: recast.RegionId(r.ReadUInt32()),
			Area:     recast.Area(r.ReadUInt8()),
		}
		cont.Vertices = readContourVerts(r, nverts)
		cont.RawVertices = readContourVerts(r, nrverts)
		cset.Contours = append(cset.Contours, cont)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadContourSet, err)
	}
	return cset, nil
}

// buildTimeLines is the report order, nested phases indented below
// their parent.
var buildTimeLines = []struct {
	label  recast.TimerLabel
	indent string
}{
	{recast.TimerRasterizeTriangles, "- "},
	{recast.TimerBuildCompactHeightfield, "- "},
	{recast.TimerFilterBorder, "- "},
	{recast.TimerFilterWalkable, "- "},
	{recast.TimerFilterLowObstacles, "- "},
	{recast.TimerErodeArea, "- "},
	{recast.TimerMedianArea, "- "},
	{recast.TimerMarkBoxArea, "- "},
	{recast.TimerMarkConvexPolyArea, "- "},
	{recast.TimerMarkCylinderArea, "- "},
	{recast.TimerBuildDistanceField, "- "},
	{recast.TimerBuildDistanceFieldDist, "    - "},
	{recast.TimerBuildDistanceFieldBlur, "    - "},
	{recast.TimerBuildRegions, "- "},
	{recast.TimerBuildRegionsWatershed, "    - "},
	{recast.TimerBuildRegionsExpand, "      - "},
	{recast.TimerBuildRegionsFlood, "      - "},
	{recast.TimerBuildRegionsFilter, "    - "},
	{recast.TimerBuildContours, "- "},
	{recast.TimerBuildContoursTrace, "    - "},
	{recast.TimerBuildContoursSimplify, "    - "},
	{recast.TimerBuildPolyMesh, "- "},
	{recast.TimerBuildPolyMeshDetail, "- "},
}

// LogBuildTimes reports the accumulated phase timers of ctx, each with its
// share of the total.
func LogBuildTimes(ctx *recast.Context, logger *zap.Logger) {
	if logger == nil {
		logger = ctx.Logger()
	}
	total := ctx.AccumulatedTime(recast.TimerTotal)
	pc := float64(0)
	if total > 0 {
		pc = 100 / float64(total)
	}
	logger.Info("Build Times")
	for _, line := range buildTimeLines {
		d := ctx.AccumulatedTime(line.label)
		logger.Info(line.indent+line.label.String(),
			zap.Duration("time", d),
			zap.Float64("percent", float64(d)*pc))
	}
	logger.Info("=== TOTAL", zap.Duration("time", total))
}
