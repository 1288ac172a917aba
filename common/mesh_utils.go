package common

import "math"

// Vertex indices that are still candidates for ear clipping carry this bit.
const earFlag = 0x80000000

// IndexMask strips the ear flag from a triangulation index.
const IndexMask = 0x0fffffff

func Prev(i, n int) int {
	if i-1 >= 0 {
		return i - 1
	}
	return n - 1
}

func Next(i, n int) int {
	if i+1 < n {
		return i + 1
	}
	return 0
}

func Area2(a, b, c []int) int {
	return (b[0]-a[0])*(c[2]-a[2]) - (c[0]-a[0])*(b[2]-a[2])
}

// Left returns true iff c is strictly to the left of the directed
// line through a to b.
func Left(a, b, c []int) bool {
	return Area2(a, b, c) < 0
}

func LeftOn(a, b, c []int) bool {
	return Area2(a, b, c) <= 0
}

func Collinear(a, b, c []int) bool {
	return Area2(a, b, c) == 0
}

// Uleft is Left over unscaled vertex coordinates.
func Uleft(a, b, c []int) bool {
	return (b[0]-a[0])*(c[2]-a[2])-(c[0]-a[0])*(b[2]-a[2]) < 0
}

// Exclusive or: true iff exactly one argument is true.
func Xorb(x, y bool) bool {
	return x != y
}

// IntersectProp returns true iff ab properly intersects cd: they share
// a point interior to both segments. The properness of the
// intersection is ensured by using strict leftness.
func IntersectProp(a, b, c, d []int) bool {
	// Eliminate improper cases.
	if Collinear(a, b, c) || Collinear(a, b, d) ||
		Collinear(c, d, a) || Collinear(c, d, b) {
		return false
	}
	return Xorb(Left(a, b, c), Left(a, b, d)) && Xorb(Left(c, d, a), Left(c, d, b))
}

// Between returns true iff (a,b,c) are collinear and point c lies
// on the closed segement ab.
func Between(a, b, c []int) bool {
	if !Collinear(a, b, c) {
		return false
	}
	// If ab not vertical, check betweenness on x; else on y.
	if a[0] != b[0] {
		return ((a[0] <= c[0]) && (c[0] <= b[0])) || ((a[0] >= c[0]) && (c[0] >= b[0]))
	}
	return ((a[2] <= c[2]) && (c[2] <= b[2])) || ((a[2] >= c[2]) && (c[2] >= b[2]))
}

// Intersect returns true iff segments ab and cd intersect, properly or improperly.
func Intersect(a, b, c, d []int) bool {
	if IntersectProp(a, b, c, d) {
		return true
	}
	return Between(a, b, c) || Between(a, b, d) ||
		Between(c, d, a) || Between(c, d, b)
}

// Vequal2 compares the xz components of two integer vertices.
func Vequal2(a, b []int) bool {
	return a[0] == b[0] && a[2] == b[2]
}

func vert4(verts []int, index int) []int {
	i := (index & IndexMask) * 4
	return verts[i : i+4]
}

// Diagonalie returns true iff (v_i, v_j) is a proper internal *or* external
// diagonal of P, *ignoring edges incident to v_i and v_j*.
func Diagonalie(i, j, n int, verts, indices []int) bool {
	return diagonalie(i, j, n, verts, indices, Intersect)
}

func diagonalie(i, j, n int, verts, indices []int, intersect func(a, b, c, d []int) bool) bool {
	d0 := vert4(verts, indices[i])
	d1 := vert4(verts, indices[j])

	// For each edge (k,k+1) of P
	for k := 0; k < n; k++ {
		k1 := Next(k, n)
		// Skip edges incident to i or j
		if k == i || k1 == i || k == j || k1 == j {
			continue
		}
		p0 := vert4(verts, indices[k])
		p1 := vert4(verts, indices[k1])
		if Vequal2(d0, p0) || Vequal2(d1, p0) || Vequal2(d0, p1) || Vequal2(d1, p1) {
			continue
		}
		if intersect(d0, d1, p0, p1) {
			return false
		}
	}
	return true
}

// InCone returns true iff the diagonal (i,j) is strictly internal to the
// polygon P in the neighborhood of the i endpoint.
func InCone(i, j, n int, verts, indices []int) bool {
	pi := vert4(verts, indices[i])
	pj := vert4(verts, indices[j])
	pi1 := vert4(verts, indices[Next(i, n)])
	pin1 := vert4(verts, indices[Prev(i, n)])

	// If P[i] is a convex vertex [ i+1 left or on (i-1,i) ].
	if LeftOn(pin1, pi, pi1) {
		return Left(pi, pj, pin1) && Left(pj, pi, pi1)
	}
	// Assume (i-1,i,i+1) not collinear.
	// else P[i] is reflex.
	return !(LeftOn(pi, pj, pi1) && LeftOn(pj, pi, pin1))
}

// Diagonal returns true iff (v_i, v_j) is a proper internal
// diagonal of P.
func Diagonal(i, j, n int, verts, indices []int) bool {
	return InCone(i, j, n, verts, indices) && Diagonalie(i, j, n, verts, indices)
}

func InConeLoose(i, j, n int, verts, indices []int) bool {
	pi := vert4(verts, indices[i])
	pj := vert4(verts, indices[j])
	pi1 := vert4(verts, indices[Next(i, n)])
	pin1 := vert4(verts, indices[Prev(i, n)])

	if LeftOn(pin1, pi, pi1) {
		return LeftOn(pi, pj, pin1) && LeftOn(pj, pi, pi1)
	}
	return !(LeftOn(pi, pj, pi1) && LeftOn(pj, pi, pin1))
}

// DiagonalLoose accepts diagonals touching overlapping contour segments.
func DiagonalLoose(i, j, n int, verts, indices []int) bool {
	return InConeLoose(i, j, n, verts, indices) && diagonalie(i, j, n, verts, indices, IntersectProp)
}

// Triangulate clips ears off the polygon described by indices into verts
// (stride 4) and writes vertex index triples into tris. It returns the
// number of triangles, negated when the polygon could not be fully
// triangulated.
func Triangulate(n int, verts []int, indices []int, tris []int) int {
	ntris := 0
	dst := 0

	// The last bit of the index is used to indicate if the vertex can be removed.
	for i := 0; i < n; i++ {
		i1 := Next(i, n)
		i2 := Next(i1, n)
		if Diagonal(i, i2, n, verts, indices) {
			indices[i1] |= earFlag
		}
	}

	for n > 3 {
		minLen := -1
		mini := -1
		for i := 0; i < n; i++ {
			i1 := Next(i, n)
			if indices[i1]&earFlag != 0 {
				p0 := vert4(verts, indices[i])
				p2 := vert4(verts, indices[Next(i1, n)])
				dx := p2[0] - p0[0]
				dy := p2[2] - p0[2]
				l := dx*dx + dy*dy
				if minLen < 0 || l < minLen {
					minLen = l
					mini = i
				}
			}
		}

		if mini == -1 {
			// The contour has overlapping segments. Loosen the cone test so a
			// diagonal between the touching points can still be found.
			for i := 0; i < n; i++ {
				i1 := Next(i, n)
				i2 := Next(i1, n)
				if DiagonalLoose(i, i2, n, verts, indices) {
					p0 := vert4(verts, indices[i])
					p2 := vert4(verts, indices[Next(i2, n)])
					dx := p2[0] - p0[0]
					dy := p2[2] - p0[2]
					l := dx*dx + dy*dy
					if minLen < 0 || l < minLen {
						minLen = l
						mini = i
					}
				}
			}
			if mini == -1 {
				return -ntris
			}
		}

		i := mini
		i1 := Next(i, n)
		i2 := Next(i1, n)

		tris[dst] = indices[i] & IndexMask
		tris[dst+1] = indices[i1] & IndexMask
		tris[dst+2] = indices[i2] & IndexMask
		dst += 3
		ntris++

		// Removes P[i1] by copying P[i+1]...P[n-1] left one index.
		n--
		copy(indices[i1:n], indices[i1+1:n+1])

		if i1 >= n {
			i1 = 0
		}
		i = Prev(i1, n)
		// Update diagonal flags.
		if Diagonal(Prev(i, n), i1, n, verts, indices) {
			indices[i] |= earFlag
		} else {
			indices[i] &= IndexMask
		}
		if Diagonal(i, Next(i1, n), n, verts, indices) {
			indices[i1] |= earFlag
		} else {
			indices[i1] &= IndexMask
		}
	}

	// Append the remaining triangle.
	tris[dst] = indices[0] & IndexMask
	tris[dst+1] = indices[1] & IndexMask
	tris[dst+2] = indices[2] & IndexMask
	ntris++
	return ntris
}

// CalcAreaOfPolygon2D returns twice the signed xz area of a stride-4 vertex loop.
func CalcAreaOfPolygon2D(verts []int, nverts int) int {
	area := 0
	for i, j := 0, nverts-1; i < nverts; j, i = i, i+1 {
		vi := verts[i*4:]
		vj := verts[j*4:]
		area += vi[0]*vj[2] - vj[0]*vi[2]
	}
	return (area + 1) / 2
}

// DistancePtSegInt returns the squared xz distance of (x,z) to segment p-q.
func DistancePtSegInt(x, z, px, pz, qx, qz int) float32 {
	pqx := float32(qx - px)
	pqz := float32(qz - pz)
	dx := float32(x - px)
	dz := float32(z - pz)
	d := pqx*pqx + pqz*pqz
	t := pqx*dx + pqz*dz
	if d > 0 {
		t /= d
	}
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	dx = float32(px) + t*pqx - float32(x)
	dz = float32(pz) + t*pqz - float32(z)
	return dx*dx + dz*dz
}

func Vcross2(p1, p2, p3 []float32) float32 {
	u1 := p2[0] - p1[0]
	v1 := p2[2] - p1[2]
	u2 := p3[0] - p1[0]
	v2 := p3[2] - p1[2]
	return u1*v2 - v1*u2
}

func Vdot2(a, b []float32) float32 {
	return a[0]*b[0] + a[2]*b[2]
}

func VdistSq2(p, q []float32) float32 {
	dx := q[0] - p[0]
	dy := q[2] - p[2]
	return dx*dx + dy*dy
}

func Vdist2(p, q []float32) float32 {
	return Sqrt(VdistSq2(p, q))
}

// CircumCircle computes the xz circumcircle of p1 p2 p3. The circle is
// calculated relative to p1 to avoid some precision issues.
func CircumCircle(p1, p2, p3, c []float32) (r float32, ok bool) {
	const eps = 1e-6
	v1 := [3]float32{}
	v2 := [3]float32{}
	v3 := [3]float32{}
	Vsub(v2[:], p2, p1)
	Vsub(v3[:], p3, p1)

	cp := Vcross2(v1[:], v2[:], v3[:])
	if Abs(cp) > eps {
		v1Sq := Vdot2(v1[:], v1[:])
		v2Sq := Vdot2(v2[:], v2[:])
		v3Sq := Vdot2(v3[:], v3[:])
		c[0] = (v1Sq*(v2[2]-v3[2]) + v2Sq*(v3[2]-v1[2]) + v3Sq*(v1[2]-v2[2])) / (2 * cp)
		c[1] = 0
		c[2] = (v1Sq*(v3[0]-v2[0]) + v2Sq*(v1[0]-v3[0]) + v3Sq*(v2[0]-v1[0])) / (2 * cp)
		r = Vdist2(c, v1[:])
		Vadd(c, c, p1)
		return r, true
	}
	Vcopy(c, p1)
	return 0, false
}

// DistPtTri returns the vertical distance of p to triangle abc, or MaxFloat32
// when p does not project inside it.
func DistPtTri(p, a, b, c []float32) float32 {
	v0 := [3]float32{}
	v1 := [3]float32{}
	v2 := [3]float32{}
	Vsub(v0[:], c, a)
	Vsub(v1[:], b, a)
	Vsub(v2[:], p, a)

	dot00 := Vdot2(v0[:], v0[:])
	dot01 := Vdot2(v0[:], v1[:])
	dot02 := Vdot2(v0[:], v2[:])
	dot11 := Vdot2(v1[:], v1[:])
	dot12 := Vdot2(v1[:], v2[:])

	// Compute barycentric coordinates
	invDenom := 1.0 / (dot00*dot11 - dot01*dot01)
	u := (dot11*dot02 - dot01*dot12) * invDenom
	v := (dot00*dot12 - dot01*dot02) * invDenom

	// If point lies inside the triangle, return interpolated y-coord.
	const eps = 1e-4
	if u >= -eps && v >= -eps && (u+v) <= 1+eps {
		y := a[1] + v0[1]*u + v1[1]*v
		return Abs(y - p[1])
	}
	return math.MaxFloat32
}

// DistancePtSeg returns the squared 3D distance of pt to segment p-q.
func DistancePtSeg(pt, p, q []float32) float32 {
	pqx := q[0] - p[0]
	pqy := q[1] - p[1]
	pqz := q[2] - p[2]
	dx := pt[0] - p[0]
	dy := pt[1] - p[1]
	dz := pt[2] - p[2]
	d := pqx*pqx + pqy*pqy + pqz*pqz
	t := pqx*dx + pqy*dy + pqz*dz
	if d > 0 {
		t /= d
	}
	t = Clamp(t, 0, 1)
	dx = p[0] + t*pqx - pt[0]
	dy = p[1] + t*pqy - pt[1]
	dz = p[2] + t*pqz - pt[2]
	return dx*dx + dy*dy + dz*dz
}

// DistancePtSeg2d returns the squared xz distance of pt to segment p-q.
func DistancePtSeg2d(pt, p, q []float32) float32 {
	pqx := q[0] - p[0]
	pqz := q[2] - p[2]
	dx := pt[0] - p[0]
	dz := pt[2] - p[2]
	d := pqx*pqx + pqz*pqz
	t := pqx*dx + pqz*dz
	if d > 0 {
		t /= d
	}
	t = Clamp(t, 0, 1)
	dx = p[0] + t*pqx - pt[0]
	dz = p[2] + t*pqz - pt[2]
	return dx*dx + dz*dz
}

// DistToTriMesh returns the smallest vertical distance from p to the
// triangles (stride 4), or -1 when p is over none of them.
func DistToTriMesh(p, verts []float32, tris []int, ntris int) float32 {
	dmin := float32(math.MaxFloat32)
	for i := 0; i < ntris; i++ {
		va := GetVert3(verts, tris[i*4+0])
		vb := GetVert3(verts, tris[i*4+1])
		vc := GetVert3(verts, tris[i*4+2])
		d := DistPtTri(p, va, vb, vc)
		if d < dmin {
			dmin = d
		}
	}
	if dmin == math.MaxFloat32 {
		return -1
	}
	return dmin
}

// DistToPoly returns the xz distance of p to the polygon outline, negative
// when p is inside.
func DistToPoly(nvert int, verts []float32, p []float32) float32 {
	dmin := float32(math.MaxFloat32)
	c := false
	for i, j := 0, nvert-1; i < nvert; j, i = i, i+1 {
		vi := GetVert3(verts, i)
		vj := GetVert3(verts, j)
		if ((vi[2] > p[2]) != (vj[2] > p[2])) &&
			(p[0] < (vj[0]-vi[0])*(p[2]-vi[2])/(vj[2]-vi[2])+vi[0]) {
			c = !c
		}
		dmin = min(dmin, DistancePtSeg2d(p, vj, vi))
	}
	if c {
		return -Sqrt(dmin)
	}
	return Sqrt(dmin)
}

// PointInPoly reports whether the xz projection of point lies inside the polygon.
func PointInPoly(numVerts int, verts []float32, point []float32) bool {
	c := false
	for i, j := 0, numVerts-1; i < numVerts; j, i = i, i+1 {
		vi := GetVert3(verts, i)
		vj := GetVert3(verts, j)
		if ((vi[2] > point[2]) != (vj[2] > point[2])) &&
			(point[0] < (vj[0]-vi[0])*(point[2]-vi[2])/(vj[2]-vi[2])+vi[0]) {
			c = !c
		}
	}
	return c
}

// OverlapBounds determines if two axis-aligned bounding boxes overlap.
func OverlapBounds(amin, amax, bmin, bmax []float32) bool {
	return !(amin[0] > bmax[0] || amax[0] < bmin[0] ||
		amin[1] > bmax[1] || amax[1] < bmin[1] ||
		amin[2] > bmax[2] || amax[2] < bmin[2])
}

func ComputeTileHash(x, y, mask int) int {
	const h1 = 0x8da6b343 // Large multiplicative constants;
	const h2 = 0xd8163841 // here arbitrarily chosen primes
	n := uint32(h1)*uint32(x) + uint32(h2)*uint32(y)
	return int(n & uint32(mask))
}
