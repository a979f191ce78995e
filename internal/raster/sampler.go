package raster

// sampleCoord clamps u into [0, size-1] and returns the clamped lower texel
// index (itself clamped to [0, size-2] so the "+1" texel always lies inside
// the array), the upper texel index, and the fractional weight between them.
func sampleCoord(u float64, size int) (lo, hi int, frac float64, inRange bool) {
	if size <= 1 {
		return 0, 0, 0, true
	}
	inRange = u >= 0 && u <= float64(size-1)
	uc := u
	if uc < 0 {
		uc = 0
	}
	if uc > float64(size-1) {
		uc = float64(size - 1)
	}
	lo = int(uc)
	if lo > size-2 {
		lo = size - 2
	}
	frac = uc - float64(lo)
	hi = lo + 1
	return
}

// SampleBilinear samples a multi-channel texture at real-valued pixel
// coordinates (u, v), clamping out-of-range coordinates to the border
// texel.
func SampleBilinear(tex *Texture, u, v float64) []float64 {
	out := make([]float64, tex.C)
	SampleBilinearInto(tex, u, v, out)
	return out
}

// SampleBilinearInto is SampleBilinear without the per-call allocation: out
// must have length tex.C and is the caller's reused per-triangle scratch.
func SampleBilinearInto(tex *Texture, u, v float64, out []float64) {
	x0, x1, fx, _ := sampleCoord(u, tex.W)
	y0, y1, fy, _ := sampleCoord(v, tex.H)

	w00 := (1 - fx) * (1 - fy)
	w10 := fx * (1 - fy)
	w01 := (1 - fx) * fy
	w11 := fx * fy

	for c := 0; c < tex.C; c++ {
		out[c] = tex.Get(y0, x0, c)*w00 + tex.Get(y0, x1, c)*w10 +
			tex.Get(y1, x0, c)*w01 + tex.Get(y1, x1, c)*w11
	}
}

// SampleBilinearAdjoint accumulates the adjoint of a SampleBilinear call:
// texBar (same shape as tex.Data) receives the per-texel contribution and
// uBar/vBar receive the contribution through the bilinear weights. Texture
// coordinates clamped against the border contribute zero gradient to u or v
// past the clamp boundary, matching the forward clamp.
func SampleBilinearAdjoint(tex *Texture, u, v float64, outBar []float64, texBar []float64, uBar, vBar *float64) {
	x0, x1, fx, uInRange := sampleCoord(u, tex.W)
	y0, y1, fy, vInRange := sampleCoord(v, tex.H)

	var dfx, dfy float64
	for c := 0; c < tex.C; c++ {
		ob := outBar[c]
		t00, t10 := tex.Get(y0, x0, c), tex.Get(y0, x1, c)
		t01, t11 := tex.Get(y1, x0, c), tex.Get(y1, x1, c)

		w00 := (1 - fx) * (1 - fy)
		w10 := fx * (1 - fy)
		w01 := (1 - fx) * fy
		w11 := fx * fy
		texBar[tex.at(y0, x0, c)] += ob * w00
		texBar[tex.at(y0, x1, c)] += ob * w10
		texBar[tex.at(y1, x0, c)] += ob * w01
		texBar[tex.at(y1, x1, c)] += ob * w11

		dfx += ob * ((1-fy)*(t10-t00) + fy*(t11-t01))
		dfy += ob * ((1-fx)*(t01-t00) + fx*(t11-t10))
	}
	if uInRange {
		*uBar += dfx
	}
	if vInRange {
		*vBar += dfy
	}
}
