package mathutil

import (
	"math"
	"testing"
)

func almostEqual(a, b, eps float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

func TestMat3Inverse(t *testing.T) {
	tests := []struct {
		name string
		m    Mat3
	}{
		{"identity", Mat3Identity()},
		{"diagonal", Mat3Diag(2, 3, 4)},
		{"general", Mat3{1, 2, 3, 0, 1, 4, 5, 6, 0}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inv := tc.m.Inverse()
			prod := Mat3Mul(tc.m, inv)
			id := Mat3Identity()
			for i := 0; i < 9; i++ {
				if !almostEqual(prod[i], id[i], 1e-9) {
					t.Fatalf("m * inv(m) != I: got %v", prod)
				}
			}
		})
	}
}

func TestMat3MulVec3(t *testing.T) {
	m := Mat3{1, 0, 0, 0, 2, 0, 0, 0, 3}
	v := Vec3{1, 1, 1}
	got := m.MulVec3(v)
	want := Vec3{1, 2, 3}
	if got != want {
		t.Fatalf("MulVec3 = %v, want %v", got, want)
	}
}

func TestRowVecMul(t *testing.T) {
	m := Mat3Identity()
	row := [3]float64{1, 2, 3}
	got := RowVecMul(row, m)
	if got != row {
		t.Fatalf("RowVecMul with identity = %v, want %v", got, row)
	}
}

func TestDenseMatMul(t *testing.T) {
	a := [][]float64{{1, 2}, {3, 4}}
	b := [][]float64{{5, 6}, {7, 8}}
	got := DenseMatMul(a, b)
	want := [][]float64{{19, 22}, {43, 50}}
	for i := range want {
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Fatalf("DenseMatMul = %v, want %v", got, want)
			}
		}
	}
}

// TestMat3InverseAdjoint checks the inverse adjoint against central finite
// differences: for a scalar loss L = sum(inv(M)), dL/dM_ij from the closed
// form must match a numerical perturbation of M_ij.
func TestMat3InverseAdjoint(t *testing.T) {
	m := Mat3{2, 0, 1, 1, 3, 0, 0, 1, 4}
	inv := m.Inverse()

	var invBar Mat3
	for i := range invBar {
		invBar[i] = 1 // seed: L = sum(inv)
	}

	var mBar Mat3
	Mat3InverseAdjoint(inv, invBar, &mBar)

	const h = 1e-6
	for i := 0; i < 9; i++ {
		plus, minus := m, m
		plus[i] += h
		minus[i] -= h
		sumPlus, sumMinus := 0.0, 0.0
		for _, v := range plus.Inverse() {
			sumPlus += v
		}
		for _, v := range minus.Inverse() {
			sumMinus += v
		}
		fd := (sumPlus - sumMinus) / (2 * h)
		if !almostEqual(fd, mBar[i], 1e-3) {
			t.Errorf("entry %d: adjoint %v, finite diff %v", i, mBar[i], fd)
		}
	}
}

func TestMat3MulAdjoint(t *testing.T) {
	a := Mat3{1, 2, 0, 0, 1, 3, 4, 0, 1}
	b := Mat3{2, 0, 1, 1, 2, 0, 0, 1, 2}

	var cBar Mat3
	for i := range cBar {
		cBar[i] = 1
	}

	var aBar, bBar Mat3
	Mat3MulAdjoint(a, b, cBar, &aBar, &bBar)

	const h = 1e-6
	for i := 0; i < 9; i++ {
		plus, minus := a, a
		plus[i] += h
		minus[i] -= h
		sp, sm := Mat3Mul(plus, b), Mat3Mul(minus, b)
		var fd float64
		for k := range sp {
			fd += sp[k] - sm[k]
		}
		fd /= 2 * h
		if !almostEqual(fd, aBar[i], 1e-3) {
			t.Errorf("aBar entry %d: got %v, finite diff %v", i, aBar[i], fd)
		}
	}

	if math.IsNaN(bBar[0]) {
		t.Fatal("bBar contains NaN")
	}
}
