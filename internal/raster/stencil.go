package raster

import (
	"math"

	"diffraster/internal/mathutil"
)

// TriStencil is the triangle stencil solver's output: the
// barycentric/image affine map plus the y-scanline bounds and which edge
// bounds each scanline on the left and right.
type TriStencil struct {
	XY1ToBary mathutil.Mat3
	Det       float64 // determinant of bary_to_xy1; twice the signed area

	YUpperLo, YUpperHi int
	YLowerLo, YLowerHi int

	aLeftU, bLeftU, aRightU, bRightU float64
	aLeftL, bLeftL, aRightL, bRightL float64
}

const degenerateAreaEps = 1e-12

// edgeLineEq fits x = a*y + b through p0, p1. Horizontal edges (dy == 0)
// never bound a scanline and are given a, b = 0, p0.x as a harmless default.
func edgeLineEq(p0, p1 [2]float64) (a, b float64) {
	dy := p1[1] - p0[1]
	if dy == 0 {
		return 0, p0[0]
	}
	a = (p1[0] - p0[0]) / dy
	b = p0[0] - a*p0[1]
	return
}

func floorInt(v float64) int { return int(math.Floor(v)) }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// BuildTriStencil constructs the stencil for the triangle with vertices v,
// clipped to an H×W image. ok is false for degenerate (collinear or
// zero-area) triangles, which the caller must silently skip.
func BuildTriStencil(v [3][2]float64, h, w int) (TriStencil, bool) {
	baryToXY1 := mathutil.Mat3{
		v[0][0], v[1][0], v[2][0],
		v[0][1], v[1][1], v[2][1],
		1, 1, 1,
	}
	det := baryToXY1.Det()
	if det > -degenerateAreaEps && det < degenerateAreaEps {
		return TriStencil{}, false
	}

	// Sort the three vertex slots by ascending y (insertion sort on 3 elements).
	oi := [3]int{0, 1, 2}
	if v[oi[1]][1] < v[oi[0]][1] {
		oi[0], oi[1] = oi[1], oi[0]
	}
	if v[oi[2]][1] < v[oi[1]][1] {
		oi[1], oi[2] = oi[2], oi[1]
	}
	if v[oi[1]][1] < v[oi[0]][1] {
		oi[0], oi[1] = oi[1], oi[0]
	}

	longA, longB := edgeLineEq(v[oi[0]], v[oi[2]])
	shortA1, shortB1 := edgeLineEq(v[oi[0]], v[oi[1]])
	shortA2, shortB2 := edgeLineEq(v[oi[1]], v[oi[2]])

	ts := TriStencil{
		XY1ToBary: baryToXY1.Inverse(),
		Det:       det,
		YUpperLo:  max(floorInt(v[oi[0]][1])+1, 0),
		YUpperHi:  min(floorInt(v[oi[1]][1]), h-1),
		YLowerLo:  max(floorInt(v[oi[1]][1])+1, 0),
		YLowerHi:  min(floorInt(v[oi[2]][1]), h-1),
	}

	// Upper half: both edges leave the shared top vertex downward, so the
	// smaller slope dx/dy bounds the left. Lower half: both edges arrive at
	// the shared bottom vertex, so the comparison flips.
	if longA < shortA1 {
		ts.aLeftU, ts.bLeftU, ts.aRightU, ts.bRightU = longA, longB, shortA1, shortB1
	} else {
		ts.aLeftU, ts.bLeftU, ts.aRightU, ts.bRightU = shortA1, shortB1, longA, longB
	}
	if longA > shortA2 {
		ts.aLeftL, ts.bLeftL, ts.aRightL, ts.bRightL = longA, longB, shortA2, shortB2
	} else {
		ts.aLeftL, ts.bLeftL, ts.aRightL, ts.bRightL = shortA2, shortB2, longA, longB
	}

	_ = w // width clipping happens in the x_begin/x_end computation, not here
	return ts, true
}

// ScanBounds returns x_begin, x_end for scanline y (inclusive), clipped to
// [0, w-1], given the half-specific left/right edges. ok is false if the
// scanline has no pixels to draw.
func (ts *TriStencil) ScanBounds(y, w int) (xBegin, xEnd int, ok bool) {
	var aL, bL, aR, bR float64
	switch {
	case y >= ts.YUpperLo && y <= ts.YUpperHi:
		aL, bL, aR, bR = ts.aLeftU, ts.bLeftU, ts.aRightU, ts.bRightU
	case y >= ts.YLowerLo && y <= ts.YLowerHi:
		aL, bL, aR, bR = ts.aLeftL, ts.bLeftL, ts.aRightL, ts.bRightL
	default:
		return 0, 0, false
	}
	fy := float64(y)
	xBegin = floorInt(aL*fy+bL) + 1
	xEnd = floorInt(aR*fy + bR)
	if xBegin < 0 {
		xBegin = 0
	}
	if xEnd > w-1 {
		xEnd = w - 1
	}
	return xBegin, xEnd, xBegin <= xEnd
}

// EachScanline calls fn(y, xBegin, xEnd) for every non-empty scanline of the
// stencil's upper half followed by its lower half, clipped to [0, w-1] and
// [0, h-1] in y (already applied by BuildTriStencil).
func (ts *TriStencil) EachScanline(w int, fn func(y, xBegin, xEnd int)) {
	for y := ts.YUpperLo; y <= ts.YUpperHi; y++ {
		if xBegin, xEnd, ok := ts.ScanBounds(y, w); ok {
			fn(y, xBegin, xEnd)
		}
	}
	for y := ts.YLowerLo; y <= ts.YLowerHi; y++ {
		if xBegin, xEnd, ok := ts.ScanBounds(y, w); ok {
			fn(y, xBegin, xEnd)
		}
	}
}
