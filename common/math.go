package common

import (
	"cmp"
	"math"
)

// / Returns the square of the value.
// / @param[in]		a	The value.
// / @return The square of the value.
func Sqr[T IT](a T) T {
	return a * a
}

// / Returns the absolute value.
// / @param[in]		a	The value.
// / @return The absolute value of the specified value.
func Abs[T IT](a T) T {
	if a < 0 {
		return -a
	}
	return a
}

func Sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

// / Clamps the value to the specified range.
// / @param[in]		value			The value to clamp.
// / @param[in]		minInclusive	The minimum permitted return value.
// / @param[in]		maxInclusive	The maximum permitted return value.
// / @return The value, clamped to the specified range.
func Clamp[T cmp.Ordered](value, minInclusive, maxInclusive T) T {
	if value < minInclusive {
		return minInclusive
	}
	if value > maxInclusive {
		return maxInclusive
	}
	return value
}

// / Performs a vector addition. (@p v1 + @p v2)
// / @param[out]		dest	The result vector. [(x, y, z)]
// / @param[in]		v1		The base vector. [(x, y, z)]
// / @param[in]		v2		The vector to add to @p v1. [(x, y, z)]
func Vadd(dest, v1, v2 []float32) {
	dest[0] = v1[0] + v2[0]
	dest[1] = v1[1] + v2[1]
	dest[2] = v1[2] + v2[2]
}

// / Performs a vector subtraction. (@p v1 - @p v2)
// / @param[out]		dest	The result vector. [(x, y, z)]
// / @param[in]		v1		The base vector. [(x, y, z)]
// / @param[in]		v2		The vector to subtract from @p v1. [(x, y, z)]
func Vsub(dest, v1, v2 []float32) {
	dest[0] = v1[0] - v2[0]
	dest[1] = v1[1] - v2[1]
	dest[2] = v1[2] - v2[2]
}

// / Selects the minimum value of each element from the specified vectors.
// / @param[in,out]	mn	A vector.  (Will be updated with the result.) [(x, y, z)]
// / @param[in]		v	A vector. [(x, y, z)]
func Vmin(mn, v []float32) {
	mn[0] = min(mn[0], v[0])
	mn[1] = min(mn[1], v[1])
	mn[2] = min(mn[2], v[2])
}

// / Selects the maximum value of each element from the specified vectors.
// / @param[in,out]	mx	A vector.  (Will be updated with the result.) [(x, y, z)]
// / @param[in]		v	A vector. [(x, y, z)]
func Vmax(mx, v []float32) {
	mx[0] = max(mx[0], v[0])
	mx[1] = max(mx[1], v[1])
	mx[2] = max(mx[2], v[2])
}

// / Returns the square of the distance between two points.
func VdistSqr(v1, v2 []float32) float32 {
	dx := v2[0] - v1[0]
	dy := v2[1] - v1[1]
	dz := v2[2] - v1[2]
	return dx*dx + dy*dy + dz*dz
}

// / Performs a 'sloppy' colocation check of the specified points.
// / @return True if the points are considered to be at the same location.
func Vequal(p0, p1 []float32) bool {
	thr := Sqr(float32(1.0 / 16384.0))
	return VdistSqr(p0, p1) < thr
}

func Vcopy(dest, v []float32) {
	dest[0] = v[0]
	dest[1] = v[1]
	dest[2] = v[2]
}

// / Performs a linear interpolation between two vectors. (@p v1 toward @p v2)
// /	 @param[in]		t		The interpolation factor. [Limits: 0 <= value <= 1.0]
func Vlerp(dest, v1, v2 []float32, t float32) {
	dest[0] = v1[0] + (v2[0]-v1[0])*t
	dest[1] = v1[1] + (v2[1]-v1[1])*t
	dest[2] = v1[2] + (v2[2]-v1[2])*t
}

// / Checks that the specified vector's components are all finite.
// / @return True if all of the point's components are finite, i.e. not NaN
// / or any of the infinities.
func Visfinite(v []float32) bool {
	return IsFinite(v[0]) && IsFinite(v[1]) && IsFinite(v[2])
}

// / Checks that the specified vector's 2D components are finite.
func Visfinite2D(v []float32) bool {
	return IsFinite(v[0]) && IsFinite(v[2])
}

func IsFinite(v float32) bool {
	f := float64(v)
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

// / Derives the xz-plane 2D perp product of the two vectors. (uz*vx - ux*vz)
// /
// / The vectors are projected onto the xz-plane, so the y-values are ignored.
func Vperp2D(u, v []float32) float32 {
	return u[2]*v[0] - u[0]*v[2]
}

// / Derives the square of the distance between the specified points on the xz-plane.
func Vdist2DSqr(v1, v2 []float32) float32 {
	dx := v2[0] - v1[0]
	dz := v2[2] - v1[2]
	return dx*dx + dz*dz
}

// / Derives the signed xz-plane area of the triangle ABC, or the relationship of line AB to point C.
// /  @param[in]		a		Vertex A. [(x, y, z)]
// /  @param[in]		b		Vertex B. [(x, y, z)]
// /  @param[in]		c		Vertex C. [(x, y, z)]
// / @return The signed xz-plane area of the triangle.
func TriArea2D(a, b, c []float32) float32 {
	abx := b[0] - a[0]
	abz := b[2] - a[2]
	acx := c[0] - a[0]
	acz := c[2] - a[2]
	return acx*abz - abx*acz
}

// / Gets the direction for the specified offset. One of x and y should be 0.
// / @param[in]		offsetX		The x offset. [Limits: -1 <= value <= 1]
// / @param[in]		offsetZ		The z offset. [Limits: -1 <= value <= 1]
// / @return The direction that represents the offset.
func GetDirForOffset(offsetX, offsetZ int) int {
	dirs := [5]int{3, 0, -1, 2, 1}
	return dirs[((offsetZ+1)<<1)+offsetX]
}

// / Gets the standard width (x-axis) offset for the specified direction.
// / @param[in]		direction		The direction. [Limits: 0 <= value < 4]
// / @return The width offset to apply to the current cell position to move in the direction.
func GetDirOffsetX(direction int) int {
	offset := [4]int{-1, 0, 1, 0}
	return offset[direction&0x03]
}

// / Gets the standard height (z-axis) offset for the specified direction.
func GetDirOffsetY(direction int) int {
	offset := [4]int{0, 1, 0, -1}
	return offset[direction&0x03]
}

func NextPow2(v uint32) uint32 {
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}

func Ilog2(v uint32) uint32 {
	b2u := func(b bool) uint32 {
		if b {
			return 1
		}
		return 0
	}
	r := b2u(v > 0xffff) << 4
	v >>= r
	shift := b2u(v > 0xff) << 3
	v >>= shift
	r |= shift
	shift = b2u(v > 0xf) << 2
	v >>= shift
	r |= shift
	shift = b2u(v > 0x3) << 1
	v >>= shift
	r |= shift
	r |= v >> 1
	return r
}

func Align4(x int) int { return (x + 3) &^ 3 }
