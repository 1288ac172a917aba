package common

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

type Vec3 = mgl32.Vec3
type Vec2 = mgl32.Vec2

type IT interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

type IIndex interface {
	~int | ~int8 | ~int16 | ~int32 | ~uint | ~uint8 | ~uint16 | ~uint32
}

func GetVert3[T IT, T1 IIndex](verts []T, index T1) []T {
	return verts[index*3 : index*3+3]
}

// Vec3At reads the index-th vertex of a packed xyz array.
func Vec3At[T IIndex](verts []float32, index T) Vec3 {
	i := int(index) * 3
	return Vec3{verts[i], verts[i+1], verts[i+2]}
}

// AssertTrue panics when an internal invariant does not hold.
func AssertTrue(ok bool, msg ...any) {
	if !ok {
		if len(msg) > 0 {
			panic(fmt.Sprint(msg...))
		}
		panic("assertion failed")
	}
}
