package raster

import (
	"math"

	"diffraster/internal/mathutil"
)

// EdgeStencil is the edge stencil solver's output: the affine
// maps from a pixel to its position along the edge (s) and across its
// silhouette band (T), plus the y-scanline bounds and the four half-plane
// inequalities that bound each scanline in x.
type EdgeStencil struct {
	SCoef [3]float64 // s(x,y) = cx*x + cy*y + c0
	TCoef [3]float64 // T(x,y) = cx*x + cy*y + c0

	YLo, YHi int
	planes   [4][3]float64 // cx*x + cy*y + c0 >= 0, per half-plane

	// Retained for BackpropGeometry.
	edgeToXY1 mathutil.Mat3
	xy1ToEdge mathutil.Mat3
	nx, ny    float64
	length    float64
	sigma     float64
	clockwise bool
}

const degenerateEdgeEps = 1e-12

// BuildEdgeStencil constructs the stencil for the directed edge v0->v1 with
// silhouette half-width sigma, clipped to an H×W image. ok is false for a
// degenerate (zero-length, or sigma <= 0) edge, which the caller must
// silently skip.
func BuildEdgeStencil(v0, v1 [2]float64, sigma float64, clockwise bool, h, w int) (EdgeStencil, bool) {
	if sigma <= 0 {
		return EdgeStencil{}, false
	}
	dx, dy := v1[0]-v0[0], v1[1]-v0[1]

	var raw mathutil.Vec2
	if clockwise {
		raw = mathutil.Vec2{dy, -dx}
	} else {
		raw = mathutil.Vec2{-dy, dx}
	}
	length := raw.Len()
	if length < degenerateEdgeEps {
		return EdgeStencil{}, false
	}
	n := raw.Normalize()
	nx, ny := n[0], n[1]

	edgeToXY1 := mathutil.Mat3{
		dx, sigma * nx, v0[0],
		dy, sigma * ny, v0[1],
		0, 0, 1,
	}
	det := edgeToXY1.Det()
	if det > -degenerateEdgeEps && det < degenerateEdgeEps {
		return EdgeStencil{}, false
	}
	xy1ToEdge := edgeToXY1.Inverse()

	es := EdgeStencil{
		SCoef:     [3]float64{xy1ToEdge[0], xy1ToEdge[1], xy1ToEdge[2]},
		TCoef:     [3]float64{xy1ToEdge[3], xy1ToEdge[4], xy1ToEdge[5]},
		edgeToXY1: edgeToXY1,
		xy1ToEdge: xy1ToEdge,
		nx:        nx,
		ny:        ny,
		length:    length,
		sigma:     sigma,
		clockwise: clockwise,
	}

	ymin, ymax := v0[1], v1[1]
	if ymin > ymax {
		ymin, ymax = ymax, ymin
	}
	es.YLo = clampInt(floorInt(ymin-sigma)+1, 0, h-1)
	es.YHi = clampInt(floorInt(ymax+sigma), 0, h-1)

	es.planes[0] = es.SCoef
	es.planes[1] = [3]float64{-es.SCoef[0], -es.SCoef[1], 1 - es.SCoef[2]}
	es.planes[2] = es.TCoef
	es.planes[3] = [3]float64{-es.TCoef[0], -es.TCoef[1], 1 - es.TCoef[2]}

	return es, true
}

// ScanBounds returns x_begin, x_end for scanline y (inclusive), clipped to
// [0, w-1], by solving the four half-plane inequalities for x. ok is false
// if the scanline has no pixels in the band.
func (es *EdgeStencil) ScanBounds(y, w int) (xBegin, xEnd int, ok bool) {
	lo, hi := 0, w-1
	fy := float64(y)
	for _, p := range es.planes {
		cx, cy, c0 := p[0], p[1], p[2]
		rest := cy*fy + c0
		switch {
		case cx > 0:
			b := int(math.Ceil(-rest / cx))
			if b > lo {
				lo = b
			}
		case cx < 0:
			b := int(math.Floor(-rest / cx))
			if b < hi {
				hi = b
			}
		default:
			if rest < 0 {
				return 0, 0, false
			}
		}
	}
	return lo, hi, lo <= hi
}

// EachScanline calls fn(y, xBegin, xEnd) for every non-empty scanline in the
// stencil's y range.
func (es *EdgeStencil) EachScanline(w int, fn func(y, xBegin, xEnd int)) {
	for y := es.YLo; y <= es.YHi; y++ {
		if xBegin, xEnd, ok := es.ScanBounds(y, w); ok {
			fn(y, xBegin, xEnd)
		}
	}
}

// BackpropGeometry pushes the adjoint of (SCoef, TCoef), accumulated by
// the caller from every attribute interpolated through them, back through
// the matrix inverse, the normal-orientation branch, and the
// normalization, returning the contribution to each endpoint's image
// coordinates.
func (es *EdgeStencil) BackpropGeometry(sCoefBar, tCoefBar [3]float64) (v0Bar, v1Bar [2]float64) {
	xy1ToEdgeBar := mathutil.Mat3{
		sCoefBar[0], sCoefBar[1], sCoefBar[2],
		tCoefBar[0], tCoefBar[1], tCoefBar[2],
		0, 0, 0,
	}
	var edgeToXY1Bar mathutil.Mat3
	mathutil.Mat3InverseAdjoint(es.xy1ToEdge, xy1ToEdgeBar, &edgeToXY1Bar)

	dxBar := edgeToXY1Bar[0]
	dyBar := edgeToXY1Bar[3]
	nxBar := edgeToXY1Bar[1] * es.sigma
	nyBar := edgeToXY1Bar[4] * es.sigma
	v0xBar := edgeToXY1Bar[2]
	v0yBar := edgeToXY1Bar[5]

	dot := nxBar*es.nx + nyBar*es.ny
	rawXBar := (nxBar - es.nx*dot) / es.length
	rawYBar := (nyBar - es.ny*dot) / es.length

	if es.clockwise {
		dyBar += rawXBar
		dxBar += -rawYBar
	} else {
		dyBar += -rawXBar
		dxBar += rawYBar
	}

	v1Bar[0] += dxBar
	v0Bar[0] += -dxBar + v0xBar
	v1Bar[1] += dyBar
	v0Bar[1] += -dyBar + v0yBar
	return v0Bar, v1Bar
}
