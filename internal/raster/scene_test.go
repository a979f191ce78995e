package raster

import (
	"errors"
	"math"
	"testing"
)

// newFlatTriScene builds a single-triangle scene with a flat per-vertex
// color, no texture, used by several scenarios below.
func newFlatTriScene(t *testing.T, verts [3][2]float64, depths [3]float64, color [3]float64, clockwise, backfaceCull bool, edgeFlag [3]bool) *Scene {
	t.Helper()
	s, err := NewScene(
		[][2]float64{verts[0], verts[1], verts[2]},
		[]float64{depths[0], depths[1], depths[2]},
		[]float64{0, 0, 0},
		[][]float64{{color[0], color[1], color[2]}, {color[0], color[1], color[2]}, {color[0], color[1], color[2]}},
		[][2]float64{{1, 1}},
		[][3]int{{0, 1, 2}},
		[][3]int{{0, 0, 0}},
		[][3]bool{edgeFlag},
		[]bool{false},
		[]bool{false},
		3, clockwise, backfaceCull,
		nil, nil,
	)
	if err != nil {
		t.Fatalf("NewScene: %v", err)
	}
	return s
}

// TestSingleTriangleFlatColor renders one red triangle with sigma=0 onto
// an 8x8 black background and checks exact pixel coverage.
func TestSingleTriangleFlatColor(t *testing.T) {
	s := newFlatTriScene(t,
		[3][2]float64{{1, 1}, {6, 1}, {1, 6}},
		[3]float64{1, 1, 1},
		[3]float64{1, 0, 0},
		false, true,
		[3]bool{false, false, false},
	)
	img := NewImage(8, 8, 3)
	depth := NewDepthBuffer(8, 8)

	if err := RenderForward(s, img, depth, 0, false, nil, nil); err != nil {
		t.Fatalf("RenderForward: %v", err)
	}

	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			wantRed := y >= 2 && x >= 2 && x+y <= 7
			r := img.Get(y, x, 0)
			if wantRed && !almostEqual(r, 1, 1e-12) {
				t.Errorf("pixel (%d,%d): want red, got %v", y, x, r)
			}
			if !wantRed && !almostEqual(r, 0, 1e-12) {
				t.Errorf("pixel (%d,%d): want black, got %v", y, x, r)
			}
		}
	}
}

// TestOcclusion renders two overlapping triangles; the nearer one wins
// everywhere they overlap, and the depth buffer records its depth.
func TestOcclusion(t *testing.T) {
	far := [3][2]float64{{0, 0}, {8, 0}, {0, 8}}
	near := [3][2]float64{{0, 0}, {8, 0}, {0, 8}}

	s, err := NewScene(
		[][2]float64{far[0], far[1], far[2], near[0], near[1], near[2]},
		[]float64{5, 5, 5, 1, 1, 1},
		make([]float64, 6),
		[][]float64{{1, 0, 0}, {1, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 1, 0}, {0, 1, 0}},
		[][2]float64{{1, 1}},
		[][3]int{{0, 1, 2}, {3, 4, 5}},
		[][3]int{{0, 0, 0}, {0, 0, 0}},
		[][3]bool{{false, false, false}, {false, false, false}},
		[]bool{false, false},
		[]bool{false, false},
		3, false, true,
		nil, nil,
	)
	if err != nil {
		t.Fatalf("NewScene: %v", err)
	}

	img := NewImage(8, 8, 3)
	depth := NewDepthBuffer(8, 8)
	if err := RenderForward(s, img, depth, 0, false, nil, nil); err != nil {
		t.Fatalf("RenderForward: %v", err)
	}

	if img.Get(4, 2, 1) != 1 || img.Get(4, 2, 0) != 0 {
		t.Fatalf("nearer triangle should win: got rgb (%v,%v,%v)",
			img.Get(4, 2, 0), img.Get(4, 2, 1), img.Get(4, 2, 2))
	}
	if depth.Get(4, 2) != 1 {
		t.Fatalf("z_buffer should record the nearer depth: got %v", depth.Get(4, 2))
	}
}

// TestBackfaceCull checks that a triangle with reversed winding is skipped
// entirely when culling is on, and drawn interior-only (edges always
// culled) when culling is off.
func TestBackfaceCull(t *testing.T) {
	// clockwise=false but vertices wound clockwise -> negative signed area.
	verts := [3][2]float64{{1, 1}, {1, 6}, {6, 1}}

	t.Run("culling on: nothing drawn", func(t *testing.T) {
		s := newFlatTriScene(t, verts, [3]float64{1, 1, 1}, [3]float64{1, 0, 0}, false, true, [3]bool{true, true, true})
		img := NewImage(8, 8, 3)
		depth := NewDepthBuffer(8, 8)
		if err := RenderForward(s, img, depth, 1, false, nil, nil); err != nil {
			t.Fatalf("RenderForward: %v", err)
		}
		for i, v := range img.Data {
			if v != 0 {
				t.Fatalf("expected all-black image, pixel data[%d] = %v", i, v)
			}
		}
	})

	t.Run("culling off: interior drawn, edges still culled", func(t *testing.T) {
		s := newFlatTriScene(t, verts, [3]float64{1, 1, 1}, [3]float64{1, 0, 0}, false, false, [3]bool{true, true, true})
		img := NewImage(8, 8, 3)
		depth := NewDepthBuffer(8, 8)
		if err := RenderForward(s, img, depth, 1, false, nil, nil); err != nil {
			t.Fatalf("RenderForward: %v", err)
		}
		var anyRed bool
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				r := img.Get(y, x, 0)
				if almostEqual(r, 1, 1e-9) {
					anyRed = true
				}
				if r > 1e-9 && r < 1-1e-9 {
					t.Fatalf("pixel (%d,%d) = %v: edge overdraw on a culled triangle", y, x, r)
				}
			}
		}
		if !anyRed {
			t.Fatal("expected interior to be drawn when backface_culling is false")
		}
	})
}

// TestEdgeAntialiasing renders a red triangle on a white background with
// sigma=2 silhouette antialiasing; pixels near a silhouette edge take
// strictly-between values.
func TestEdgeAntialiasing(t *testing.T) {
	s := newFlatTriScene(t,
		[3][2]float64{{1, 1}, {6, 1}, {1, 6}},
		[3]float64{1, 1, 1},
		[3]float64{1, 0, 0},
		false, true,
		[3]bool{true, true, true},
	)
	white := NewImage(12, 12, 3)
	for i := range white.Data {
		white.Data[i] = 1
	}
	s.Background = white

	img := NewImage(12, 12, 3)
	depth := NewDepthBuffer(12, 12)
	if err := RenderForward(s, img, depth, 2, false, nil, nil); err != nil {
		t.Fatalf("RenderForward: %v", err)
	}

	// Red on white: the red channel is 1 everywhere, so antialiased pixels
	// show up as strictly-between green/blue values.
	var sawBetween bool
	for y := 0; y < 12; y++ {
		for x := 0; x < 12; x++ {
			g, b := img.Get(y, x, 1), img.Get(y, x, 2)
			if g > 0 && g < 1 && b > 0 && b < 1 {
				sawBetween = true
			}
		}
	}
	if !sawBetween {
		t.Fatal("expected at least one pixel with a strictly-between antialiased value")
	}
}

// TestTextureClamp checks that UV coordinates outside the texture bounds
// clamp to the border texel instead of reading out of range.
func TestTextureClamp(t *testing.T) {
	tex := NewTexture(4, 4, 1)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			tex.Set(y, x, 0, float64(y*4+x))
		}
	}

	s, err := NewScene(
		[][2]float64{{1, 1}, {6, 1}, {1, 6}},
		[]float64{1, 1, 1},
		[]float64{1, 1, 1},
		[][]float64{{0}, {0}, {0}},
		[][2]float64{{0, 0}, {10, 0}, {0, 10}}, // one-based: (-1,-1),(9,-1),(-1,9) after shift
		[][3]int{{0, 1, 2}},
		[][3]int{{0, 1, 2}},
		[][3]bool{{false, false, false}},
		[]bool{true},
		[]bool{true},
		1, false, true,
		tex, nil,
	)
	if err != nil {
		t.Fatalf("NewScene: %v", err)
	}

	img := NewImage(8, 8, 1)
	depth := NewDepthBuffer(8, 8)
	if err := RenderForward(s, img, depth, 0, false, nil, nil); err != nil {
		t.Fatalf("RenderForward: %v", err)
	}
	// Every rasterized pixel samples UV in [-1,9] range, clamped into [0,3];
	// no value should exceed the texture's own range [0,15] beyond the
	// rounding of the affine shade and bilinear weights.
	const eps = 1e-9
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			v := img.Get(y, x, 0)
			if v < -eps || v > 15+eps {
				t.Fatalf("pixel (%d,%d) = %v outside clamped texture range", y, x, v)
			}
		}
	}
}

// TestZeroSeedZeroAdjoint: reverse with an all-zero seed leaves every
// adjoint array unchanged.
func TestZeroSeedZeroAdjoint(t *testing.T) {
	s := newFlatTriScene(t,
		[3][2]float64{{1, 1}, {6, 1}, {1, 6}},
		[3]float64{1, 1, 1},
		[3]float64{1, 0, 0},
		false, true,
		[3]bool{true, true, true},
	)
	img := NewImage(8, 8, 3)
	depth := NewDepthBuffer(8, 8)
	if err := RenderForward(s, img, depth, 1, false, nil, nil); err != nil {
		t.Fatalf("RenderForward: %v", err)
	}

	adj := NewAdjoints(s)
	imgBar := NewImage(8, 8, 3) // all zero
	if err := RenderReverse(s, adj, img, depth, imgBar, 1, false, nil, nil, nil); err != nil {
		t.Fatalf("RenderReverse: %v", err)
	}

	for _, ij := range adj.IJ {
		if ij[0] != 0 || ij[1] != 0 {
			t.Fatalf("expected zero ij_b, got %v", ij)
		}
	}
	for _, row := range adj.Color {
		for _, c := range row {
			if c != 0 {
				t.Fatalf("expected zero color_b, got %v", c)
			}
		}
	}
	for _, sh := range adj.Shade {
		if sh != 0 {
			t.Fatalf("expected zero shade_b, got %v", sh)
		}
	}
	for _, uv := range adj.UV {
		if uv[0] != 0 || uv[1] != 0 {
			t.Fatalf("expected zero uv_b, got %v", uv)
		}
	}
}

// TestGradientRoundTrip: forward render of the antialiased scene,
// loss = sum(image^2), reverse seeded by 2*image; the vertex-coordinate
// adjoints must match centered finite differences.
func TestGradientRoundTrip(t *testing.T) {
	buildScene := func(ij [3][2]float64) *Scene {
		s := newFlatTriScene(t,
			ij,
			[3]float64{1, 1, 1},
			[3]float64{1, 0, 0},
			false, true,
			[3]bool{true, true, true},
		)
		white := NewImage(12, 12, 3)
		for i := range white.Data {
			white.Data[i] = 1
		}
		s.Background = white
		return s
	}

	loss := func(ij [3][2]float64) float64 {
		s := buildScene(ij)
		img := NewImage(12, 12, 3)
		depth := NewDepthBuffer(12, 12)
		if err := RenderForward(s, img, depth, 2, false, nil, nil); err != nil {
			t.Fatalf("RenderForward: %v", err)
		}
		var sum float64
		for _, v := range img.Data {
			sum += v * v
		}
		return sum
	}

	// Off the integer grid: exactly on a pixel boundary the scan bounds are
	// discontinuous and finite differences are meaningless.
	ij := [3][2]float64{{1.3, 1.2}, {6.4, 1.2}, {1.3, 6.1}}

	s := buildScene(ij)
	img := NewImage(12, 12, 3)
	depth := NewDepthBuffer(12, 12)
	if err := RenderForward(s, img, depth, 2, false, nil, nil); err != nil {
		t.Fatalf("RenderForward: %v", err)
	}
	imgBar := NewImage(12, 12, 3)
	for i, v := range img.Data {
		imgBar.Data[i] = 2 * v
	}

	adj := NewAdjoints(s)
	if err := RenderReverse(s, adj, img, depth, imgBar, 2, false, nil, nil, nil); err != nil {
		t.Fatalf("RenderReverse: %v", err)
	}

	const h = 1e-5
	for v := 0; v < 3; v++ {
		for comp := 0; comp < 2; comp++ {
			plus, minus := ij, ij
			plus[v][comp] += h
			minus[v][comp] -= h
			fd := (loss(plus) - loss(minus)) / (2 * h)
			got := adj.IJ[v][comp]
			if math.Abs(fd-got) > 1e-1*math.Max(1, math.Abs(fd)) {
				t.Errorf("vertex %d comp %d: ij_b = %v, finite diff = %v", v, comp, got, fd)
			}
		}
	}
}

// TestValidateErrors: out-of-range indices and missing buffers fail fast
// with the structured error kinds.
func TestValidateErrors(t *testing.T) {
	t.Run("face index out of range", func(t *testing.T) {
		_, err := NewScene(
			[][2]float64{{0, 0}, {1, 0}, {0, 1}},
			[]float64{1, 1, 1},
			[]float64{0, 0, 0},
			[][]float64{{0}, {0}, {0}},
			[][2]float64{{1, 1}},
			[][3]int{{0, 1, 3}},
			[][3]int{{0, 0, 0}},
			[][3]bool{{false, false, false}},
			[]bool{false},
			[]bool{false},
			1, false, true,
			nil, nil,
		)
		var oor *IndexOutOfRangeError
		if !errors.As(err, &oor) {
			t.Fatalf("want IndexOutOfRangeError, got %v", err)
		}
		if oor.Name != "face" || oor.Value != 3 || oor.Bound != 3 {
			t.Fatalf("unexpected error detail: %+v", oor)
		}
	})

	t.Run("textured triangle without texture", func(t *testing.T) {
		_, err := NewScene(
			[][2]float64{{0, 0}, {1, 0}, {0, 1}},
			[]float64{1, 1, 1},
			[]float64{0, 0, 0},
			[][]float64{{0}, {0}, {0}},
			[][2]float64{{1, 1}},
			[][3]int{{0, 1, 2}},
			[][3]int{{0, 0, 0}},
			[][3]bool{{false, false, false}},
			[]bool{true},
			[]bool{true},
			1, false, true,
			nil, nil,
		)
		var mb *MissingBufferError
		if !errors.As(err, &mb) {
			t.Fatalf("want MissingBufferError, got %v", err)
		}
	})

	t.Run("texture channel mismatch", func(t *testing.T) {
		_, err := NewScene(
			[][2]float64{{0, 0}, {1, 0}, {0, 1}},
			[]float64{1, 1, 1},
			[]float64{0, 0, 0},
			[][]float64{{0}, {0}, {0}},
			[][2]float64{{1, 1}},
			[][3]int{{0, 1, 2}},
			[][3]int{{0, 0, 0}},
			[][3]bool{{false, false, false}},
			[]bool{true},
			[]bool{true},
			1, false, true,
			NewTexture(2, 2, 4), nil,
		)
		var cm *ChannelMismatchError
		if !errors.As(err, &cm) {
			t.Fatalf("want ChannelMismatchError, got %v", err)
		}
		if cm.Name != "texture" || cm.Got != 4 || cm.Want != 1 {
			t.Fatalf("unexpected error detail: %+v", cm)
		}
	})

	t.Run("reverse without adjoints", func(t *testing.T) {
		s := newFlatTriScene(t,
			[3][2]float64{{1, 1}, {6, 1}, {1, 6}},
			[3]float64{1, 1, 1},
			[3]float64{1, 0, 0},
			false, true,
			[3]bool{false, false, false},
		)
		img := NewImage(8, 8, 3)
		depth := NewDepthBuffer(8, 8)
		err := RenderReverse(s, &Adjoints{}, img, depth, NewImage(8, 8, 3), 0, false, nil, nil, nil)
		var ma *MissingAdjointError
		if !errors.As(err, &ma) {
			t.Fatalf("want MissingAdjointError, got %v", err)
		}
	})
}

// TestPainterCommutativity: with sigma=0 and distinct depths, the rendered
// image is invariant under permutation of triangle indices.
func TestPainterCommutativity(t *testing.T) {
	render := func(faces [][3]int) *Image {
		s, err := NewScene(
			[][2]float64{{0, 0}, {7, 0}, {0, 7}, {2, 2}, {7, 2}, {2, 7}},
			[]float64{5, 5, 5, 1, 1, 1},
			make([]float64, 6),
			[][]float64{{1, 0, 0}, {1, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 1, 0}, {0, 1, 0}},
			[][2]float64{{1, 1}},
			faces,
			[][3]int{{0, 0, 0}, {0, 0, 0}},
			[][3]bool{{false, false, false}, {false, false, false}},
			[]bool{false, false},
			[]bool{false, false},
			3, false, true,
			nil, nil,
		)
		if err != nil {
			t.Fatalf("NewScene: %v", err)
		}
		img := NewImage(8, 8, 3)
		depth := NewDepthBuffer(8, 8)
		if err := RenderForward(s, img, depth, 0, false, nil, nil); err != nil {
			t.Fatalf("RenderForward: %v", err)
		}
		return img
	}

	a := render([][3]int{{0, 1, 2}, {3, 4, 5}})
	b := render([][3]int{{3, 4, 5}, {0, 1, 2}})
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("image differs under triangle permutation at data[%d]: %v vs %v", i, a.Data[i], b.Data[i])
		}
	}
}

func cloneImage(img *Image) *Image {
	out := NewImage(img.H, img.W, img.C)
	copy(out.Data, img.Data)
	return out
}

// TestInvertibleCompositing: the reverse edge pass recovers, pixel for
// pixel, the image state that existed before the edge overdraws.
func TestInvertibleCompositing(t *testing.T) {
	build := func() *Scene {
		s := newFlatTriScene(t,
			[3][2]float64{{1.3, 1.2}, {6.4, 1.2}, {1.3, 6.1}},
			[3]float64{1, 1, 1},
			[3]float64{1, 0, 0},
			false, true,
			[3]bool{true, true, true},
		)
		white := NewImage(12, 12, 3)
		for i := range white.Data {
			white.Data[i] = 1
		}
		s.Background = white
		return s
	}

	s := build()
	interiorOnly := NewImage(12, 12, 3)
	depth0 := NewDepthBuffer(12, 12)
	if err := RenderForward(s, interiorOnly, depth0, 0, false, nil, nil); err != nil {
		t.Fatalf("RenderForward sigma=0: %v", err)
	}

	img := NewImage(12, 12, 3)
	depth := NewDepthBuffer(12, 12)
	if err := RenderForward(s, img, depth, 2, false, nil, nil); err != nil {
		t.Fatalf("RenderForward sigma=2: %v", err)
	}

	adj := NewAdjoints(s)
	imgBar := NewImage(12, 12, 3)
	if err := RenderReverse(s, adj, img, depth, imgBar, 2, false, nil, nil, nil); err != nil {
		t.Fatalf("RenderReverse: %v", err)
	}

	for i := range img.Data {
		if math.Abs(img.Data[i]-interiorOnly.Data[i]) > 1e-9 {
			t.Fatalf("reverse pass did not restore pre-overdraw image at data[%d]: %v vs %v",
				i, img.Data[i], interiorOnly.Data[i])
		}
	}
}

// TestReverseAdditivity: running reverse twice with seed s accumulates the
// same adjoints as running it once with seed 2s.
func TestReverseAdditivity(t *testing.T) {
	s := newFlatTriScene(t,
		[3][2]float64{{1.3, 1.2}, {6.4, 1.2}, {1.3, 6.1}},
		[3]float64{1, 1, 1},
		[3]float64{0.8, 0.1, 0.3},
		false, true,
		[3]bool{true, true, true},
	)
	img := NewImage(8, 8, 3)
	depth := NewDepthBuffer(8, 8)
	if err := RenderForward(s, img, depth, 1.5, false, nil, nil); err != nil {
		t.Fatalf("RenderForward: %v", err)
	}

	seed := NewImage(8, 8, 3)
	for i := range seed.Data {
		seed.Data[i] = 0.01 * float64(i%7)
	}

	twice := NewAdjoints(s)
	for k := 0; k < 2; k++ {
		if err := RenderReverse(s, twice, cloneImage(img), depth, cloneImage(seed), 1.5, false, nil, nil, nil); err != nil {
			t.Fatalf("RenderReverse: %v", err)
		}
	}

	double := NewAdjoints(s)
	seed2 := cloneImage(seed)
	for i := range seed2.Data {
		seed2.Data[i] *= 2
	}
	if err := RenderReverse(s, double, cloneImage(img), depth, seed2, 1.5, false, nil, nil, nil); err != nil {
		t.Fatalf("RenderReverse: %v", err)
	}

	for v := 0; v < 3; v++ {
		for comp := 0; comp < 2; comp++ {
			if math.Abs(twice.IJ[v][comp]-double.IJ[v][comp]) > 1e-9 {
				t.Errorf("ij_b vertex %d comp %d: twice %v, doubled seed %v",
					v, comp, twice.IJ[v][comp], double.IJ[v][comp])
			}
		}
		for c := 0; c < 3; c++ {
			if math.Abs(twice.Color[v][c]-double.Color[v][c]) > 1e-9 {
				t.Errorf("color_b vertex %d chan %d: twice %v, doubled seed %v",
					v, c, twice.Color[v][c], double.Color[v][c])
			}
		}
	}
}

// TestErrorBufferGradient exercises error-buffer mode end to end: forward
// against an observation, reverse seeded through the error adjoint, with
// vertex gradients checked against finite differences of the total error.
func TestErrorBufferGradient(t *testing.T) {
	// Not equidistant from the triangle color and the background, so the
	// error field actually varies across silhouettes.
	obs := NewImage(12, 12, 3)
	for i := range obs.Data {
		obs.Data[i] = 0.2
	}

	buildScene := func(ij [3][2]float64) *Scene {
		s := newFlatTriScene(t,
			ij,
			[3]float64{1, 1, 1},
			[3]float64{1, 0, 0},
			false, true,
			[3]bool{true, true, true},
		)
		white := NewImage(12, 12, 3)
		for i := range white.Data {
			white.Data[i] = 1
		}
		s.Background = white
		return s
	}

	loss := func(ij [3][2]float64) float64 {
		s := buildScene(ij)
		img := NewImage(12, 12, 3)
		depth := NewDepthBuffer(12, 12)
		errBuf := NewErrBuffer(12, 12)
		if err := RenderForward(s, img, depth, 2, true, obs, errBuf); err != nil {
			t.Fatalf("RenderForward: %v", err)
		}
		var sum float64
		for _, v := range errBuf.Data {
			sum += v
		}
		return sum
	}

	ij := [3][2]float64{{1.3, 1.2}, {6.4, 1.2}, {1.3, 6.1}}

	s := buildScene(ij)
	img := NewImage(12, 12, 3)
	depth := NewDepthBuffer(12, 12)
	errBuf := NewErrBuffer(12, 12)
	if err := RenderForward(s, img, depth, 2, true, obs, errBuf); err != nil {
		t.Fatalf("RenderForward: %v", err)
	}

	errBar := NewErrBuffer(12, 12)
	for i := range errBar.Data {
		errBar.Data[i] = 1
	}
	adj := NewAdjoints(s)
	if err := RenderReverse(s, adj, img, depth, nil, 2, true, obs, errBuf, errBar); err != nil {
		t.Fatalf("RenderReverse: %v", err)
	}

	const h = 1e-5
	for v := 0; v < 3; v++ {
		for comp := 0; comp < 2; comp++ {
			plus, minus := ij, ij
			plus[v][comp] += h
			minus[v][comp] -= h
			fd := (loss(plus) - loss(minus)) / (2 * h)
			got := adj.IJ[v][comp]
			if math.Abs(fd-got) > 1e-1*math.Max(1, math.Abs(fd)) {
				t.Errorf("vertex %d comp %d: ij_b = %v, finite diff = %v", v, comp, got, fd)
			}
		}
	}
}

// TestEdgeStencilPartitionOfUnity: for a single isolated edge, the summed
// coverage 1-T over the silhouette band approximates the band's coverage
// integral, length*sigma/2, up to unit-grid discretization. Normalized by
// sigma/2, the sum recovers the edge length.
func TestEdgeStencilPartitionOfUnity(t *testing.T) {
	v0 := [2]float64{2.2, 8.4}
	v1 := [2]float64{12.2, 8.4}
	const sigma = 2.0
	const length = 10.0

	es, ok := BuildEdgeStencil(v0, v1, sigma, false, 20, 20)
	if !ok {
		t.Fatal("BuildEdgeStencil returned not-ok for a regular edge")
	}

	var sum float64
	es.EachScanline(20, func(y, xBegin, xEnd int) {
		fy := float64(y)
		for x := xBegin; x <= xEnd; x++ {
			tr := evalCoef(es.TCoef, float64(x), fy)
			if tr <= 0 {
				continue
			}
			if tr > 1 {
				t.Fatalf("pixel (%d,%d): transparency %v outside [0,1]", y, x, tr)
			}
			sum += 1 - tr
		}
	})

	got := sum / (sigma / 2)
	if math.Abs(got-length) > 1.5 {
		t.Fatalf("normalized band coverage = %v, want %v within discretization", got, length)
	}
}
