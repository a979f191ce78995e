package mathutil

// Reverse-mode companions for the Mat3/Vec3 kernel above. Each function
// accumulates into a caller-owned adjoint buffer; it never overwrites it.
// This mirrors the accumulate-only contract the rasterizer's own adjoint
// arrays use (see internal/raster).

// Mat3MulAdjoint accumulates the adjoints of a, b given c = Mat3Mul(a, b)
// and the adjoint of c: a_b += c_b·bᵀ, b_b += aᵀ·c_b.
func Mat3MulAdjoint(a, b, cBar Mat3, aBar, bBar *Mat3) {
	bT := b.Transpose()
	aT := a.Transpose()
	*aBar = Mat3Add(*aBar, Mat3Mul(cBar, bT))
	*bBar = Mat3Add(*bBar, Mat3Mul(aT, cBar))
}

// Mat3InverseAdjoint accumulates the adjoint of m given inv = m.Inverse()
// and the adjoint of inv: m_b += -invᵀ · inv_b · invᵀ.
func Mat3InverseAdjoint(inv, invBar Mat3, mBar *Mat3) {
	invT := inv.Transpose()
	delta := Mat3Mul(Mat3Mul(invT, invBar), invT)
	*mBar = Mat3Sub(*mBar, delta)
}

// MulVec3Adjoint accumulates adjoints of m, v given out = m.MulVec3(v)
// and the adjoint of out: m_b += outer(out_b, v), v_b += mᵀ·out_b.
func MulVec3Adjoint(m Mat3, v Vec3, outBar Vec3, mBar *Mat3, vBar *Vec3) {
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			mBar[r*3+c] += outBar[r] * v[c]
		}
	}
	mt := m.Transpose()
	add := mt.MulVec3(outBar)
	vBar[0] += add[0]
	vBar[1] += add[1]
	vBar[2] += add[2]
}

// RowVecMulAdjoint accumulates adjoints of row, m given out = RowVecMul(row, m)
// and the adjoint of out.
func RowVecMulAdjoint(row [3]float64, m Mat3, outBar [3]float64, rowBar *[3]float64, mBar *Mat3) {
	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			mBar[r*3+c] += row[r] * outBar[c]
		}
	}
	for r := 0; r < 3; r++ {
		var s float64
		for c := 0; c < 3; c++ {
			s += m[r*3+c] * outBar[c]
		}
		rowBar[r] += s
	}
}

func Mat3Add(a, b Mat3) Mat3 {
	var m Mat3
	for i := range m {
		m[i] = a[i] + b[i]
	}
	return m
}

func Mat3Sub(a, b Mat3) Mat3 {
	var m Mat3
	for i := range m {
		m[i] = a[i] - b[i]
	}
	return m
}

// DenseMatMul returns a·b for a (I×J) and b (J×K), both row-major
// flattened matrices stored as a slice of rows.
func DenseMatMul(a, b [][]float64) [][]float64 {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	I, J, K := len(a), len(b), len(b[0])
	out := make([][]float64, I)
	for i := 0; i < I; i++ {
		out[i] = make([]float64, K)
		for k := 0; k < K; k++ {
			var s float64
			for j := 0; j < J; j++ {
				s += a[i][j] * b[j][k]
			}
			out[i][k] = s
		}
	}
	return out
}

// DenseMatMulAdjoint accumulates aBar, bBar given c = DenseMatMul(a, b)
// and cBar, using the same C=A·B rule as Mat3MulAdjoint: aBar += cBar·bᵀ,
// bBar += aᵀ·cBar.
func DenseMatMulAdjoint(a, b, cBar [][]float64, aBar, bBar [][]float64) {
	if len(a) == 0 || len(b) == 0 {
		return
	}
	I, J, K := len(a), len(b), len(b[0])
	for i := 0; i < I; i++ {
		for j := 0; j < J; j++ {
			var s float64
			for k := 0; k < K; k++ {
				s += cBar[i][k] * b[j][k]
			}
			aBar[i][j] += s
		}
	}
	for j := 0; j < J; j++ {
		for k := 0; k < K; k++ {
			var s float64
			for i := 0; i < I; i++ {
				s += a[i][j] * cBar[i][k]
			}
			bBar[j][k] += s
		}
	}
}

// MulMatVec3 returns a·v for a an N×3 matrix (rows) and v a 3-vector.
func MulMatVec3(a [][3]float64, v [3]float64) []float64 {
	out := make([]float64, len(a))
	for i, row := range a {
		out[i] = row[0]*v[0] + row[1]*v[1] + row[2]*v[2]
	}
	return out
}

// MulMatVec3Adjoint accumulates aBar, vBar given out = MulMatVec3(a, v)
// and outBar.
func MulMatVec3Adjoint(a [][3]float64, v [3]float64, outBar []float64, aBar [][3]float64, vBar *[3]float64) {
	for i, row := range a {
		ob := outBar[i]
		aBar[i][0] += ob * v[0]
		aBar[i][1] += ob * v[1]
		aBar[i][2] += ob * v[2]
		vBar[0] += ob * row[0]
		vBar[1] += ob * row[1]
		vBar[2] += ob * row[2]
	}
}
