package debug_utils

import (
	"bufio"
	"fmt"
	"io"

	"github.com/Robmaister/SharpNav-sub000/detour"
)

// DumpNavMeshToObj writes the detail surface of every tile of mesh as one
// Wavefront OBJ object per tile. Off-mesh connections are skipped.
func DumpNavMeshToObj(mesh *detour.TiledNavMesh, out io.Writer) error {
	w := bufio.NewWriter(out)
	fmt.Fprint(w, "# Detour Navmesh\n")
	base := 1
	for i := 0; i < mesh.MaxTiles(); i++ {
		tile := mesh.Tile(i)
		if tile.Header == nil {
			continue
		}
		fmt.Fprintf(w, "\no Tile_%d_%d_%d\n", tile.Header.X, tile.Header.Y, tile.Header.Layer)
		nverts := len(tile.Verts) / 3
		for v := 0; v < len(tile.Verts); v += 3 {
			fmt.Fprintf(w, "v %f %f %f\n", tile.Verts[v], tile.Verts[v+1], tile.Verts[v+2])
		}
		for v := 0; v < len(tile.DetailVerts); v += 3 {
			fmt.Fprintf(w, "v %f %f %f\n", tile.DetailVerts[v], tile.DetailVerts[v+1], tile.DetailVerts[v+2])
		}
		for ip := range tile.Polys {
			p := &tile.Polys[ip]
			if p.Type() == detour.PolyTypeOffMeshConnection {
				continue
			}
			pd := &tile.DetailMeshes[ip]
			index := func(k uint8) int {
				if k < p.VertCount {
					return base + int(p.Verts[k])
				}
				return base + nverts + int(pd.VertBase) + int(k-p.VertCount)
			}
			for j := 0; j < int(pd.TriCount); j++ {
				t := tile.DetailTris[(int(pd.TriBase)+j)*4:]
				fmt.Fprintf(w, "f %d %d %d\n", index(t[0]), index(t[1]), index(t[2]))
			}
		}
		base += nverts + len(tile.DetailVerts)/3
	}
	return w.Flush()
}
