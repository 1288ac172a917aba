package detour

import "errors"

var (
	// ErrInvalidBuildParams is returned by CreateNavMeshData for input it
	// cannot turn into a tile.
	ErrInvalidBuildParams = errors.New("detour: invalid build parameters")
	// ErrWrongMagic is returned when decoding data that is not a tile or tile set.
	ErrWrongMagic = errors.New("detour: wrong magic")
	// ErrWrongVersion is returned when decoding data of another format version.
	ErrWrongVersion = errors.New("detour: wrong version")
)
