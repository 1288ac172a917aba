package navmesh

import (
	"fmt"
	"io"
	"os"

	"github.com/Robmaister/SharpNav-sub000/detour"
	cmnlog "github.com/Robmaister/SharpNav-sub000/common/logger"
	"go.uber.org/zap"
)

// Save writes every tile of the mesh as a tile set stamped with BuildID.
func (m *NavMesh) Save(w io.Writer) error {
	return detour.SaveNavMeshSet(w, m.TiledNavMesh, m.BuildID)
}

func (m *NavMesh) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("navmesh: %w", err)
	}
	if err := m.Save(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads a tile set written by Save. Settings and intermediate
// meshes are not part of the file and stay zero.
func Load(r io.Reader, logger *zap.Logger) (*NavMesh, error) {
	logger = cmnlog.OrNop(logger)
	nav, id, err := detour.LoadNavMeshSet(r, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("navmesh loaded", zap.Stringer("buildId", id))
	return &NavMesh{TiledNavMesh: nav, BuildID: id}, nil
}

func LoadFile(path string, logger *zap.Logger) (*NavMesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("navmesh: %w", err)
	}
	defer f.Close()
	return Load(f, logger)
}
