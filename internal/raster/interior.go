package raster

import "diffraster/internal/mathutil"

// gatherVals gathers the three per-vertex scalar values of attr for the
// triangle's face indices into the [3]float64 buildAffineCoef wants.
func gatherVals(face [3]int, attr []float64) [3]float64 {
	return [3]float64{attr[face[0]], attr[face[1]], attr[face[2]]}
}

func rows(vs ...[3]float64) [][]float64 {
	out := make([][]float64, len(vs))
	for i, v := range vs {
		out[i] = []float64{v[0], v[1], v[2]}
	}
	return out
}

// RasterizeInteriorForward fills the interior of triangle t, depth-testing
// per pixel and writing img/depth in place. ts must come from
// BuildTriStencil for this triangle's vertices.
func RasterizeInteriorForward(img *Image, depth *DepthBuffer, s *Scene, t int, ts *TriStencil) {
	face := s.Face[t]
	zCoef := buildAffineCoef(ts.XY1ToBary, rows(gatherVals(face, s.Depth)))
	zEval := newAffineEval(zCoef)

	if s.Textured[t] && s.Shaded[t] {
		faceUV := s.FaceUV[t]
		u := [3]float64{s.UV[faceUV[0]][0], s.UV[faceUV[1]][0], s.UV[faceUV[2]][0]}
		v := [3]float64{s.UV[faceUV[0]][1], s.UV[faceUV[1]][1], s.UV[faceUV[2]][1]}
		uvCoef := buildAffineCoef(ts.XY1ToBary, rows(u, v))
		uvEval := newAffineEval(uvCoef)
		lCoef := buildAffineCoef(ts.XY1ToBary, rows(gatherVals(face, s.Shade)))
		lEval := newAffineEval(lCoef)
		texel := make([]float64, s.NumColors)

		ts.EachScanline(img.W, func(y, xBegin, xEnd int) {
			fy := float64(y)
			zRow := zEval.rowAtY(fy)
			uvRow := uvEval.rowAtY(fy)
			lRow := lEval.rowAtY(fy)
			for x := xBegin; x <= xEnd; x++ {
				fx := float64(x)
				z := zEval.valueAt(zRow, fx)[0]
				if z >= depth.Get(y, x) {
					continue
				}
				depth.Set(y, x, z)
				uv := uvEval.valueAt(uvRow, fx)
				l := lEval.valueAt(lRow, fx)[0]
				SampleBilinearInto(s.Texture, uv[0], uv[1], texel)
				for c := 0; c < s.NumColors; c++ {
					img.Set(y, x, c, texel[c]*l)
				}
			}
		})
		return
	}

	colorVals := make([][3]float64, s.NumColors)
	for c := 0; c < s.NumColors; c++ {
		colorVals[c] = [3]float64{
			s.Color[face[0]][c], s.Color[face[1]][c], s.Color[face[2]][c],
		}
	}
	colorCoef := buildAffineCoef(ts.XY1ToBary, rows(colorVals...))
	colorEval := newAffineEval(colorCoef)

	ts.EachScanline(img.W, func(y, xBegin, xEnd int) {
		fy := float64(y)
		zRow := zEval.rowAtY(fy)
		colorRow := colorEval.rowAtY(fy)
		for x := xBegin; x <= xEnd; x++ {
			fx := float64(x)
			z := zEval.valueAt(zRow, fx)[0]
			if z >= depth.Get(y, x) {
				continue
			}
			depth.Set(y, x, z)
			color := colorEval.valueAt(colorRow, fx)
			for c := 0; c < s.NumColors; c++ {
				img.Set(y, x, c, color[c])
			}
		}
	})
}

// RasterizeInteriorReverse replays triangle t's interior scan, treating the
// depth test as an equality check (Z == DepthBuffer[y,x]): only pixels this
// triangle still owns in the final depth buffer back-propagate. imgBar is
// the seed gradient of the (post edge-reverse-pass) image.
func RasterizeInteriorReverse(imgBar *Image, depth *DepthBuffer, s *Scene, adj *Adjoints, t int, ts *TriStencil) {
	face := s.Face[t]
	zCoef := buildAffineCoef(ts.XY1ToBary, rows(gatherVals(face, s.Depth)))
	zEval := newAffineEval(zCoef)

	if s.Textured[t] && s.Shaded[t] {
		faceUV := s.FaceUV[t]
		u := [3]float64{s.UV[faceUV[0]][0], s.UV[faceUV[1]][0], s.UV[faceUV[2]][0]}
		v := [3]float64{s.UV[faceUV[0]][1], s.UV[faceUV[1]][1], s.UV[faceUV[2]][1]}
		uvCoef := buildAffineCoef(ts.XY1ToBary, rows(u, v))
		uvEval := newAffineEval(uvCoef)
		lCoef := buildAffineCoef(ts.XY1ToBary, rows(gatherVals(face, s.Shade)))
		lEval := newAffineEval(lCoef)

		uvCoefBar := make([][3]float64, 2)
		lCoefBar := make([][3]float64, 1)
		// Per-pixel scratch, hoisted once per triangle (no inner-loop allocation).
		texelBar := make([]float64, s.NumColors)
		texel := make([]float64, s.NumColors)
		uvOutBar := make([]float64, 2)
		lOutBar := make([]float64, 1)

		ts.EachScanline(imgBar.W, func(y, xBegin, xEnd int) {
			fy := float64(y)
			zRow := zEval.rowAtY(fy)
			uvRow := uvEval.rowAtY(fy)
			lRow := lEval.rowAtY(fy)
			for x := xBegin; x <= xEnd; x++ {
				fx := float64(x)
				z := zEval.valueAt(zRow, fx)[0]
				if z != depth.Get(y, x) {
					continue
				}
				uv := uvEval.valueAt(uvRow, fx)
				l := lEval.valueAt(lRow, fx)[0]
				SampleBilinearInto(s.Texture, uv[0], uv[1], texel)

				var lBar float64
				for c := 0; c < s.NumColors; c++ {
					ob := imgBar.Get(y, x, c)
					texelBar[c] = ob * l
					lBar += ob * texel[c]
				}
				var uBar, vBar float64
				SampleBilinearAdjoint(s.Texture, uv[0], uv[1], texelBar, adj.Texture, &uBar, &vBar)
				uvOutBar[0], uvOutBar[1] = uBar, vBar
				lOutBar[0] = lBar
				accumulateCoefBar(uvCoefBar, fx, fy, uvOutBar)
				accumulateCoefBar(lCoefBar, fx, fy, lOutBar)
			}
		})

		var xy1ToBaryBar mathutil.Mat3
		uvVals := rows(u, v)
		uvValsBar := [][]float64{{0, 0, 0}, {0, 0, 0}}
		affineCoefAdjoint(ts.XY1ToBary, uvVals, uvCoefBar, &xy1ToBaryBar, uvValsBar)
		lVals := rows(gatherVals(face, s.Shade))
		lValsBar := [][]float64{{0, 0, 0}}
		affineCoefAdjoint(ts.XY1ToBary, lVals, lCoefBar, &xy1ToBaryBar, lValsBar)

		for i := 0; i < 3; i++ {
			adj.UV[faceUV[i]][0] += uvValsBar[0][i]
			adj.UV[faceUV[i]][1] += uvValsBar[1][i]
			adj.Shade[face[i]] += lValsBar[0][i]
		}
		backpropIJ(ts, xy1ToBaryBar, face, adj)
		return
	}

	colorVals := make([][3]float64, s.NumColors)
	for c := 0; c < s.NumColors; c++ {
		colorVals[c] = [3]float64{
			s.Color[face[0]][c], s.Color[face[1]][c], s.Color[face[2]][c],
		}
	}
	colorCoefBar := make([][3]float64, s.NumColors)
	outBar := make([]float64, s.NumColors)

	ts.EachScanline(imgBar.W, func(y, xBegin, xEnd int) {
		fy := float64(y)
		zRow := zEval.rowAtY(fy)
		for x := xBegin; x <= xEnd; x++ {
			fx := float64(x)
			z := zEval.valueAt(zRow, fx)[0]
			if z != depth.Get(y, x) {
				continue
			}
			for c := 0; c < s.NumColors; c++ {
				outBar[c] = imgBar.Get(y, x, c)
			}
			accumulateCoefBar(colorCoefBar, fx, fy, outBar)
		}
	})

	var xy1ToBaryBar mathutil.Mat3
	colorValsBar := make([][]float64, s.NumColors)
	for c := range colorValsBar {
		colorValsBar[c] = make([]float64, 3)
	}
	affineCoefAdjoint(ts.XY1ToBary, rows(colorVals...), colorCoefBar, &xy1ToBaryBar, colorValsBar)
	for c := 0; c < s.NumColors; c++ {
		for i := 0; i < 3; i++ {
			adj.Color[face[i]][c] += colorValsBar[c][i]
		}
	}
	backpropIJ(ts, xy1ToBaryBar, face, adj)
}

// backpropIJ pushes the adjoint of the pixel-to-barycentric map back
// through the matrix inverse, then into the vertex image coordinates
// whose rows built it.
func backpropIJ(ts *TriStencil, xy1ToBaryBar mathutil.Mat3, face [3]int, adj *Adjoints) {
	var baryToXY1Bar mathutil.Mat3
	mathutil.Mat3InverseAdjoint(ts.XY1ToBary, xy1ToBaryBar, &baryToXY1Bar)
	for i := 0; i < 3; i++ {
		adj.IJ[face[i]][0] += baryToXY1Bar[0*3+i]
		adj.IJ[face[i]][1] += baryToXY1Bar[1*3+i]
	}
}
