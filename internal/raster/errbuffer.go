package raster

// RasterizeErrorInterior fills errBuf with the per-pixel squared error
// between the rendered image and an observation, summed over channels.
// Run once after the interior pass completes.
func RasterizeErrorInterior(errBuf *ErrBuffer, img, obs *Image) {
	for y := 0; y < img.H; y++ {
		for x := 0; x < img.W; x++ {
			var d float64
			for c := 0; c < img.C; c++ {
				e := obs.Get(y, x, c) - img.Get(y, x, c)
				d += e * e
			}
			errBuf.Set(y, x, d)
		}
	}
}

func edgeSquaredError(obs *Image, y, x int, edgeColor []float64) float64 {
	var d float64
	for c, ec := range edgeColor {
		e := obs.Get(y, x, c) - ec
		d += e * e
	}
	return d
}

// RasterizeErrorEdgeForward composites the silhouette band of edge edgeIdx
// of triangle t into errBuf: err := T*err + (1-T)*edge_err, where edge_err
// is the squared error of this edge's interpolated color against obs.
func RasterizeErrorEdgeForward(errBuf *ErrBuffer, depth *DepthBuffer, obs *Image, s *Scene, t, edgeIdx int, es *EdgeStencil) {
	ea := buildEdgeAttr(s, t, edgeIdx, es)
	texel := make([]float64, s.NumColors)
	out := make([]float64, s.NumColors)

	es.EachScanline(errBuf.W, func(y, xBegin, xEnd int) {
		fy := float64(y)
		for x := xBegin; x <= xEnd; x++ {
			fx := float64(x)
			if evalCoef(ea.zCoef, fx, fy) >= depth.Get(y, x) {
				continue
			}
			tr := evalCoef(es.TCoef, fx, fy)
			if tr <= 0 {
				continue
			}
			edgeColorAt(s, &ea, fx, fy, texel, out)
			edgeErr := edgeSquaredError(obs, y, x, out)
			errBuf.Set(y, x, tr*errBuf.Get(y, x)+(1-tr)*edgeErr)
		}
	})
}

// SeedImageAdjointFromError accumulates into imgBar the gradient of the
// squared-error field against errBar, the caller-supplied adjoint of
// errBuf: imgBar += -2*(obs-image)*errBar.
func SeedImageAdjointFromError(imgBar *Image, errBar *ErrBuffer, img, obs *Image) {
	for y := 0; y < img.H; y++ {
		for x := 0; x < img.W; x++ {
			eb := errBar.Get(y, x)
			for c := 0; c < img.C; c++ {
				d := obs.Get(y, x, c) - img.Get(y, x, c)
				imgBar.Set(y, x, c, imgBar.Get(y, x, c)-2*d*eb)
			}
		}
	}
}

// RasterizeErrorEdgeReverse replays edge edgeIdx of triangle t's error
// compositing in reverse: it recovers the pre-composite err value in
// place and propagates gradients into adj and into errBar, the seed for
// the next (earlier, in reverse order) step.
func RasterizeErrorEdgeReverse(errBuf, errBar *ErrBuffer, depth *DepthBuffer, obs *Image, s *Scene, adj *Adjoints, t, edgeIdx int, es *EdgeStencil) {
	ea := buildEdgeAttr(s, t, edgeIdx, es)
	texel := make([]float64, s.NumColors)
	edgeColor := make([]float64, s.NumColors)
	texelBar := make([]float64, s.NumColors)

	var sCoefBar, tCoefBar [3]float64
	colorCoefBar := make([][3]float64, s.NumColors)
	var uvCoefBar [2][3]float64
	var lCoefBar [3]float64

	es.EachScanline(errBuf.W, func(y, xBegin, xEnd int) {
		fy := float64(y)
		for x := xBegin; x <= xEnd; x++ {
			fx := float64(x)
			if evalCoef(ea.zCoef, fx, fy) >= depth.Get(y, x) {
				continue
			}
			tr := evalCoef(es.TCoef, fx, fy)
			if tr <= 0 {
				continue
			}
			edgeColorAt(s, &ea, fx, fy, texel, edgeColor)
			edgeErr := edgeSquaredError(obs, y, x, edgeColor)
			l := evalCoef(ea.lCoef, fx, fy)

			postBar := errBar.Get(y, x)
			pre := (errBuf.Get(y, x) - (1-tr)*edgeErr) / tr
			errBuf.Set(y, x, pre)
			errBar.Set(y, x, postBar*tr)

			tBar := postBar * (pre - edgeErr)
			errBar2 := postBar * (1 - tr) // adjoint of edge_err

			var lBar float64
			for c := 0; c < s.NumColors; c++ {
				ecBar := errBar2 * -2 * (obs.Get(y, x, c) - edgeColor[c])
				if ea.textured {
					texelBar[c] = ecBar * l
					lBar += ecBar * texel[c]
				} else {
					colorCoefBar[c][0] += ecBar * fx
					colorCoefBar[c][1] += ecBar * fy
					colorCoefBar[c][2] += ecBar
				}
			}
			tCoefBar[0] += tBar * fx
			tCoefBar[1] += tBar * fy
			tCoefBar[2] += tBar

			if ea.textured {
				u := evalCoef(ea.uvCoef[0], fx, fy)
				v := evalCoef(ea.uvCoef[1], fx, fy)
				var uBar, vBar float64
				SampleBilinearAdjoint(s.Texture, u, v, texelBar, adj.Texture, &uBar, &vBar)
				uvCoefBar[0][0] += uBar * fx
				uvCoefBar[0][1] += uBar * fy
				uvCoefBar[0][2] += uBar
				uvCoefBar[1][0] += vBar * fx
				uvCoefBar[1][1] += vBar * fy
				uvCoefBar[1][2] += vBar
				lCoefBar[0] += lBar * fx
				lCoefBar[1] += lBar * fy
				lCoefBar[2] += lBar
			}
		}
	})

	if ea.textured {
		var u0Bar, u1Bar, v0Bar, v1Bar, l0Bar, l1Bar float64
		edgeAttrCoefAdjoint(es.SCoef, s.UV[ea.u0][0], s.UV[ea.u1][0], uvCoefBar[0], &u0Bar, &u1Bar, &sCoefBar)
		edgeAttrCoefAdjoint(es.SCoef, s.UV[ea.u0][1], s.UV[ea.u1][1], uvCoefBar[1], &v0Bar, &v1Bar, &sCoefBar)
		edgeAttrCoefAdjoint(es.SCoef, s.Shade[ea.i0], s.Shade[ea.i1], lCoefBar, &l0Bar, &l1Bar, &sCoefBar)
		adj.UV[ea.u0][0] += u0Bar
		adj.UV[ea.u1][0] += u1Bar
		adj.UV[ea.u0][1] += v0Bar
		adj.UV[ea.u1][1] += v1Bar
		adj.Shade[ea.i0] += l0Bar
		adj.Shade[ea.i1] += l1Bar
	} else {
		for c := 0; c < s.NumColors; c++ {
			var c0Bar, c1Bar float64
			edgeAttrCoefAdjoint(es.SCoef, s.Color[ea.i0][c], s.Color[ea.i1][c], colorCoefBar[c], &c0Bar, &c1Bar, &sCoefBar)
			adj.Color[ea.i0][c] += c0Bar
			adj.Color[ea.i1][c] += c1Bar
		}
	}

	v0Bar, v1Bar := es.BackpropGeometry(sCoefBar, tCoefBar)
	adj.IJ[ea.i0][0] += v0Bar[0]
	adj.IJ[ea.i0][1] += v0Bar[1]
	adj.IJ[ea.i1][0] += v1Bar[0]
	adj.IJ[ea.i1][1] += v1Bar[1]
}
