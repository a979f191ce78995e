package raster

import "testing"

func newTestTexture() *Texture {
	// 2x2, 1 channel: top-left 0, top-right 1, bottom-left 2, bottom-right 3.
	tex := NewTexture(2, 2, 1)
	tex.Set(0, 0, 0, 0)
	tex.Set(0, 1, 0, 1)
	tex.Set(1, 0, 0, 2)
	tex.Set(1, 1, 0, 3)
	return tex
}

func TestSampleBilinear(t *testing.T) {
	tex := newTestTexture()

	tests := []struct {
		name string
		u, v float64
		want float64
	}{
		{"top-left corner", 0, 0, 0},
		{"top-right corner", 1, 0, 1},
		{"bottom-left corner", 0, 1, 2},
		{"bottom-right corner", 1, 1, 3},
		{"center", 0.5, 0.5, 1.5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SampleBilinear(tex, tc.u, tc.v)
			if got[0] != tc.want {
				t.Errorf("SampleBilinear(%v,%v) = %v, want %v", tc.u, tc.v, got[0], tc.want)
			}
		})
	}
}

// TestSampleBilinearClamp: out-of-range coordinates clamp to the border
// texel, never reading out of bounds.
func TestSampleBilinearClamp(t *testing.T) {
	tex := newTestTexture()

	tests := []struct {
		name string
		u, v float64
		want float64
	}{
		{"negative clamps to top-left", -1, -1, 0},
		{"beyond size clamps to bottom-right", 5, 5, 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SampleBilinear(tex, tc.u, tc.v)
			if got[0] != tc.want {
				t.Errorf("SampleBilinear(%v,%v) = %v, want %v", tc.u, tc.v, got[0], tc.want)
			}
		})
	}
}

func TestSampleBilinearAdjointSumsToOne(t *testing.T) {
	tex := newTestTexture()
	texBar := make([]float64, len(tex.Data))
	var uBar, vBar float64
	SampleBilinearAdjoint(tex, 0.5, 0.5, []float64{1}, texBar, &uBar, &vBar)

	var sum float64
	for _, v := range texBar {
		sum += v
	}
	if !almostEqual(sum, 1, 1e-9) {
		t.Fatalf("texel weights should sum to the seed gradient: got %v", sum)
	}
}

// TestSampleBilinearAdjointFiniteDiff checks SampleBilinearAdjoint against
// centered finite differences on both texel and coordinate gradients.
func TestSampleBilinearAdjointFiniteDiff(t *testing.T) {
	tex := newTestTexture()
	u, v := 0.3, 0.7
	outBar := []float64{1}

	texBar := make([]float64, len(tex.Data))
	var uBar, vBar float64
	SampleBilinearAdjoint(tex, u, v, outBar, texBar, &uBar, &vBar)

	const h = 1e-5
	f := func(uu, vv float64) float64 { return SampleBilinear(tex, uu, vv)[0] }
	fdU := (f(u+h, v) - f(u-h, v)) / (2 * h)
	fdV := (f(u, v+h) - f(u, v-h)) / (2 * h)

	if !almostEqual(fdU, uBar, 1e-4) {
		t.Errorf("uBar = %v, finite diff %v", uBar, fdU)
	}
	if !almostEqual(fdV, vBar, 1e-4) {
		t.Errorf("vBar = %v, finite diff %v", vBar, fdV)
	}
}

func almostEqual(a, b, eps float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}
