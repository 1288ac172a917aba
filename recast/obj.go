package recast

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Robmaister/SharpNav-sub000/common"
)

// maxFaceVerts caps the vertices read from one OBJ face.
const maxFaceVerts = 32

// LoadObjFile reads the vertices and faces of a Wavefront OBJ file.
func LoadObjFile(path string, scale float32) (*IndexedTriangleMesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := LoadObj(f, scale)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// LoadObj parses "v" and "f" records. Faces are fanned into triangles and
// faces referencing missing vertices are skipped.
func LoadObj(r io.Reader, scale float32) (*IndexedTriangleMesh, error) {
	m := &IndexedTriangleMesh{}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		row := strings.TrimSpace(sc.Text())
		if row == "" || strings.HasPrefix(row, "#") {
			continue
		}
		fields := strings.Fields(row)
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: vertex needs 3 coordinates", line)
			}
			var v common.Vec3
			for i := 0; i < 3; i++ {
				f, err := strconv.ParseFloat(fields[i+1], 32)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				v[i] = float32(f) * scale
			}
			m.Verts = append(m.Verts, v)
		case "f":
			face := make([]int, 0, maxFaceVerts)
			for _, tok := range fields[1:] {
				if len(face) >= maxFaceVerts {
					break
				}
				// Only the position index of v/vt/vn is used.
				vs, _, _ := strings.Cut(tok, "/")
				vi, err := strconv.Atoi(vs)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				if vi < 0 {
					vi += len(m.Verts)
				} else {
					vi--
				}
				face = append(face, vi)
			}
			for i := 2; i < len(face); i++ {
				a, b, c := face[0], face[i-1], face[i]
				if !m.validIndex(a) || !m.validIndex(b) || !m.validIndex(c) {
					continue
				}
				m.Indices = append(m.Indices, a, b, c)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *IndexedTriangleMesh) validIndex(i int) bool {
	return i >= 0 && i < len(m.Verts)
}
