package raster

import "diffraster/internal/mathutil"

// mat3Rows exposes a Mat3 as 3 rows of 3, the shape mathutil.DenseMatMul
// expects, for interop with Mat3's own inverse/adjoint.
func mat3Rows(m mathutil.Mat3) [][]float64 {
	return [][]float64{{m[0], m[1], m[2]}, {m[3], m[4], m[5]}, {m[6], m[7], m[8]}}
}

// buildAffineCoef computes, for each row of per-vertex values (vals[i] has
// length 3, one value per triangle vertex), the coefficients (cx, cy, c0)
// of the affine map attr(x,y) = cx*x + cy*y + c0 induced by m (typically
// xy1_to_bary or xy1_to_transp): coef = vals · m.
func buildAffineCoef(m mathutil.Mat3, vals [][]float64) [][3]float64 {
	rows := mathutil.DenseMatMul(vals, mat3Rows(m))
	coef := make([][3]float64, len(rows))
	for i, r := range rows {
		coef[i] = [3]float64{r[0], r[1], r[2]}
	}
	return coef
}

// affineCoefAdjoint accumulates mBar and valsBar given coefBar, the adjoint
// of a buildAffineCoef(m, vals) result.
func affineCoefAdjoint(m mathutil.Mat3, vals [][]float64, coefBar [][3]float64, mBar *mathutil.Mat3, valsBar [][]float64) {
	cBarRows := make([][]float64, len(coefBar))
	for i, c := range coefBar {
		cBarRows[i] = []float64{c[0], c[1], c[2]}
	}
	mRows := mat3Rows(m)
	aBar := make([][]float64, len(vals))
	for i := range aBar {
		aBar[i] = make([]float64, 3)
	}
	bBar := make([][]float64, 3)
	for i := range bBar {
		bBar[i] = make([]float64, 3)
	}
	mathutil.DenseMatMulAdjoint(vals, mRows, cBarRows, aBar, bBar)
	for i := range valsBar {
		for k := 0; k < 3; k++ {
			valsBar[i][k] += aBar[i][k]
		}
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			mBar[r*3+c] += bBar[r][c]
		}
	}
}

// affineEval hoists the per-scanline (cy*y+c0) term and the per-pixel
// (cx*x) increment into caller-owned scratch, so neither rowAtY nor
// valueAt allocates.
type affineEval struct {
	coef   [][3]float64
	rowBuf []float64
	valBuf []float64
}

func newAffineEval(coef [][3]float64) *affineEval {
	return &affineEval{coef: coef, rowBuf: make([]float64, len(coef)), valBuf: make([]float64, len(coef))}
}

// rowAtY computes, for every row, the value at x=0 on scanline y.
func (a *affineEval) rowAtY(y float64) []float64 {
	for i, c := range a.coef {
		a.rowBuf[i] = c[1]*y + c[2]
	}
	return a.rowBuf
}

// valueAt adds the x-dependent term to a row computed by rowAtY.
func (a *affineEval) valueAt(row []float64, x float64) []float64 {
	for i := range row {
		a.valBuf[i] = row[i] + a.coef[i][0]*x
	}
	return a.valBuf
}

// accumulateCoefBar is the reverse companion of valueAt: given the adjoint
// of the evaluated value at pixel (x,y), it accumulates into coefBar.
func accumulateCoefBar(coefBar [][3]float64, x, y float64, outBar []float64) {
	for i, ob := range outBar {
		coefBar[i][0] += ob * x
		coefBar[i][1] += ob * y
		coefBar[i][2] += ob
	}
}

// edgeAttrCoef returns the affine coefficients of the 1D interpolation
// attr(x,y) = v0 + s(x,y)*(v1-v0), where s is given by sCoef (cx, cy, c0).
func edgeAttrCoef(sCoef [3]float64, v0, v1 float64) [3]float64 {
	d := v1 - v0
	return [3]float64{sCoef[0] * d, sCoef[1] * d, v0 + sCoef[2]*d}
}

// edgeAttrCoefAdjoint accumulates v0Bar, v1Bar, and sCoefBar given the
// adjoint of an edgeAttrCoef(sCoef, v0, v1) result.
func edgeAttrCoefAdjoint(sCoef [3]float64, v0, v1 float64, coefBar [3]float64, v0Bar, v1Bar *float64, sCoefBar *[3]float64) {
	d := v1 - v0
	*v0Bar += -coefBar[0]*sCoef[0] - coefBar[1]*sCoef[1] + coefBar[2]*(1-sCoef[2])
	*v1Bar += coefBar[0]*sCoef[0] + coefBar[1]*sCoef[1] + coefBar[2]*sCoef[2]
	sCoefBar[0] += coefBar[0] * d
	sCoefBar[1] += coefBar[1] * d
	sCoefBar[2] += coefBar[2] * d
}
