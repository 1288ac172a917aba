package detour

import (
	"math"

	"github.com/Robmaister/SharpNav-sub000/common"
)

// distancePtSegSqr2D returns the squared xz distance from pt to segment pq
// and the parameter of the closest point.
func distancePtSegSqr2D(pt, p, q []float32) (distSqr, t float32) {
	pqx := q[0] - p[0]
	pqz := q[2] - p[2]
	dx := pt[0] - p[0]
	dz := pt[2] - p[2]
	d := pqx*pqx + pqz*pqz
	t = pqx*dx + pqz*dz
	if d > 0 {
		t /= d
	}
	t = common.Clamp(t, 0, 1)
	dx = p[0] + t*pqx - pt[0]
	dz = p[2] + t*pqz - pt[2]
	return dx*dx + dz*dz, t
}

// closestHeightPointTriangle returns the height of triangle abc at the xz
// position of p, or false when p is outside the triangle.
func closestHeightPointTriangle(p, a, b, c []float32) (float32, bool) {
	const eps = 1e-6
	var v0, v1, v2 [3]float32
	common.Vsub(v0[:], c, a)
	common.Vsub(v1[:], b, a)
	common.Vsub(v2[:], p, a)

	// Compute scaled barycentric coordinates
	denom := v0[0]*v1[2] - v0[2]*v1[0]
	if common.Abs(denom) < eps {
		return 0, false
	}
	u := v1[2]*v2[0] - v1[0]*v2[2]
	v := v0[0]*v2[2] - v0[2]*v2[0]
	if denom < 0 {
		denom = -denom
		u = -u
		v = -v
	}

	// If point lies inside the triangle, return interpolated ycoord.
	if u >= 0 && v >= 0 && u+v <= denom {
		return a[1] + (v0[1]*u+v1[1]*v)/denom, true
	}
	return 0, false
}

func overlapQuantBounds(amin, amax, bmin, bmax [3]uint16) bool {
	return !(amin[0] > bmax[0] || amax[0] < bmin[0] ||
		amin[1] > bmax[1] || amax[1] < bmin[1] ||
		amin[2] > bmax[2] || amax[2] < bmin[2])
}

// randomPointInConvexPoly picks a point of the convex polygon pts weighted
// by area. s and t are uniform random numbers in [0, 1).
// Adapted from Graphics Gems article.
func randomPointInConvexPoly(pts []float32, npts int, areas []float32, s, t float32) common.Vec3 {
	// Calc triangle araes
	areasum := float32(0)
	for i := 2; i < npts; i++ {
		areas[i] = common.TriArea2D(pts[0:3], common.GetVert3(pts, i-1), common.GetVert3(pts, i))
		areasum += max(0.001, areas[i])
	}
	// Find sub triangle weighted by area.
	thr := s * areasum
	acc := float32(0)
	u := float32(1)
	tri := npts - 1
	for i := 2; i < npts; i++ {
		dacc := areas[i]
		if thr >= acc && thr < acc+dacc {
			u = (thr - acc) / dacc
			tri = i
			break
		}
		acc += dacc
	}

	v := common.Sqrt(t)
	a := 1 - v
	b := (1 - u) * v
	c := u * v
	pa := pts[0:3]
	pb := common.GetVert3(pts, tri-1)
	pc := common.GetVert3(pts, tri)
	return common.Vec3{
		a*pa[0] + b*pb[0] + c*pc[0],
		a*pa[1] + b*pb[1] + c*pc[1],
		a*pa[2] + b*pb[2] + c*pc[2],
	}
}

// distancePtPolyEdgesSqr fills ed and et with the squared distance to and
// the closest parameter on every edge (j, i) of verts, stored at j, and
// reports whether pt is inside the polygon.
func distancePtPolyEdgesSqr(pt, verts []float32, nverts int, ed, et []float32) bool {
	c := false
	for i, j := 0, nverts-1; i < nverts; j, i = i, i+1 {
		vi := common.GetVert3(verts, i)
		vj := common.GetVert3(verts, j)
		if ((vi[2] > pt[2]) != (vj[2] > pt[2])) && (pt[0] < (vj[0]-vi[0])*(pt[2]-vi[2])/(vj[2]-vi[2])+vi[0]) {
			c = !c
		}
		ed[j], et[j] = distancePtSegSqr2D(pt, vj, vi)
	}
	return c
}

// intersectSegSeg2D returns the parameters of the xz intersection of the
// lines through ap-aq and bp-bq.
func intersectSegSeg2D(ap, aq, bp, bq []float32) (s, t float32, ok bool) {
	var u, v, w [3]float32
	common.Vsub(u[:], aq, ap)
	common.Vsub(v[:], bq, bp)
	common.Vsub(w[:], ap, bp)
	d := common.Vperp2D(u[:], v[:])
	if common.Abs(d) < 1e-6 {
		return 0, 0, false
	}
	return common.Vperp2D(v[:], w[:]) / d, common.Vperp2D(u[:], w[:]) / d, true
}

func vec(v []float32) common.Vec3 { return common.Vec3{v[0], v[1], v[2]} }

// quantize maps a world position inside [bmin, bmin+range/factor] onto the
// bounding volume grid.
func quantize(v, bmin float32, factor float32, round func(float64) float64) uint16 {
	q := round(float64((v - bmin) * factor))
	return uint16(common.Clamp(q, 0, math.MaxUint16))
}
