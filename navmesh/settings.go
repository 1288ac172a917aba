package navmesh

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/Robmaister/SharpNav-sub000/detour"
	"github.com/Robmaister/SharpNav-sub000/recast"
	"gopkg.in/yaml.v3"
)

var ErrInvalidSettings = errors.New("navmesh: invalid settings")

// NavMeshGenerationSettings controls every phase of Generate. Lengths are
// in world units unless the name says otherwise.
type NavMeshGenerationSettings struct {
	// Size of a voxel in the xz plane.
	CellSize float32 `yaml:"cellSize"`
	// Height of a voxel.
	CellHeight float32 `yaml:"cellHeight"`
	// Highest ledge an agent can step up.
	MaxClimb float32 `yaml:"maxClimb"`
	// Minimum head room an agent needs.
	AgentHeight float32 `yaml:"agentHeight"`
	// Agent radius, the walkable area is eroded by it.
	AgentWidth float32 `yaml:"agentWidth"`
	// Regions with fewer spans are removed.
	MinRegionSize int `yaml:"minRegionSize"`
	// Regions with fewer spans are merged into a neighbour.
	MergedRegionSize int `yaml:"mergedRegionSize"`
	// Longest contour edge in voxels, 0 disables splitting.
	MaxEdgeLength int `yaml:"maxEdgeLength"`
	// Largest distance in voxels a simplified contour may stray from the raw outline.
	MaxEdgeError float32 `yaml:"maxEdgeError"`
	// Vertex limit of a navigation polygon.
	VertsPerPoly int `yaml:"vertsPerPoly"`
	// Detail sampling distance in cells, values below 0.9 disable sampling.
	SampleDistance float32 `yaml:"sampleDistance"`
	// Largest height error of the detail mesh in cell heights.
	MaxSampleError float32 `yaml:"maxSampleError"`
	BuildBoundingVolumeTree bool `yaml:"buildBoundingVolumeTree"`

	// Steepest walkable slope in degrees.
	MaxSlope float32 `yaml:"maxSlope"`
	// Contour edges to tessellate when MaxEdgeLength is set.
	ContourFlags recast.ContourBuildFlags `yaml:"contourFlags"`
	// Tile side in cells. 0 builds a single tile.
	TileSize int `yaml:"tileSize"`
	// Padding around each tile in cells. 0 derives it from AgentWidth.
	BorderSize int `yaml:"borderSize"`
}

// Default returns the meters scale preset.
func Default() NavMeshGenerationSettings {
	return NavMeshGenerationSettings{
		CellSize:                0.3,
		CellHeight:              0.2,
		MaxClimb:                0.9,
		AgentHeight:             2.0,
		AgentWidth:              0.6,
		MinRegionSize:           8,
		MergedRegionSize:        20,
		MaxEdgeLength:           12,
		MaxEdgeError:            1.8,
		VertsPerPoly:            6,
		SampleDistance:          6,
		MaxSampleError:          1,
		BuildBoundingVolumeTree: true,
		MaxSlope:                45,
		ContourFlags:            recast.ContourTessWallEdges,
	}
}

// LoadSettings reads a YAML settings file over Default, so absent keys
// keep their default value.
func LoadSettings(path string) (NavMeshGenerationSettings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("navmesh: read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("navmesh: parse settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Save writes the settings as YAML.
func (s NavMeshGenerationSettings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("navmesh: encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("navmesh: write settings: %w", err)
	}
	return nil
}

func (s NavMeshGenerationSettings) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(s.CellSize > 0, "cellSize %v must be positive", s.CellSize)
	check(s.CellHeight > 0, "cellHeight %v must be positive", s.CellHeight)
	check(s.MaxClimb >= 0, "maxClimb %v must not be negative", s.MaxClimb)
	check(s.AgentHeight > 0, "agentHeight %v must be positive", s.AgentHeight)
	check(s.AgentWidth >= 0, "agentWidth %v must not be negative", s.AgentWidth)
	check(s.MinRegionSize >= 0, "minRegionSize %d must not be negative", s.MinRegionSize)
	check(s.MergedRegionSize >= 0, "mergedRegionSize %d must not be negative", s.MergedRegionSize)
	check(s.MaxEdgeLength >= 0, "maxEdgeLength %d must not be negative", s.MaxEdgeLength)
	check(s.MaxEdgeError >= 0, "maxEdgeError %v must not be negative", s.MaxEdgeError)
	check(s.VertsPerPoly >= 3 && s.VertsPerPoly <= detour.MaxVertsPerPolygon,
		"vertsPerPoly %d must be in [3, %d]", s.VertsPerPoly, detour.MaxVertsPerPolygon)
	check(s.SampleDistance >= 0, "sampleDistance %v must not be negative", s.SampleDistance)
	check(s.MaxSampleError >= 0, "maxSampleError %v must not be negative", s.MaxSampleError)
	check(s.MaxSlope >= 0 && s.MaxSlope < 90, "maxSlope %v must be in [0, 90)", s.MaxSlope)
	check(s.TileSize >= 0, "tileSize %d must not be negative", s.TileSize)
	check(s.BorderSize >= 0, "borderSize %d must not be negative", s.BorderSize)
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
	}
	return nil
}

// VoxelAgentHeight is AgentHeight in cell heights, rounded up.
func (s NavMeshGenerationSettings) VoxelAgentHeight() int {
	return int(math.Ceil(float64(s.AgentHeight / s.CellHeight)))
}

// VoxelMaxClimb is MaxClimb in cell heights, rounded down.
func (s NavMeshGenerationSettings) VoxelMaxClimb() int {
	return int(math.Floor(float64(s.MaxClimb / s.CellHeight)))
}

// VoxelAgentWidth is AgentWidth in cells, rounded up.
func (s NavMeshGenerationSettings) VoxelAgentWidth() int {
	return int(math.Ceil(float64(s.AgentWidth / s.CellSize)))
}

// TileBorderSize is the padding of a tiled build.
func (s NavMeshGenerationSettings) TileBorderSize() int {
	if s.BorderSize > 0 {
		return s.BorderSize
	}
	return s.VoxelAgentWidth() + 3
}

func (s NavMeshGenerationSettings) detailSampleDist() float32 {
	if s.SampleDistance < 0.9 {
		return 0
	}
	return s.SampleDistance * s.CellSize
}

func (s NavMeshGenerationSettings) detailSampleMaxError() float32 {
	return s.MaxSampleError * s.CellHeight
}
