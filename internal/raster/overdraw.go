package raster

// edgePairs gives the (v0, v1) vertex-slot pair for each of a triangle's
// three edges, in the dispatch order the scene driver uses.
var edgePairs = [3][2]int{{1, 0}, {2, 1}, {0, 2}}

// edgeAttr bundles the affine-in-(x,y) coefficients (built from the
// position-along-edge parameter s) for every attribute interpolated across
// edge edgeIdx of triangle t. Shared by the forward, reverse, and
// error-buffer passes so the three stay bit-for-bit consistent.
type edgeAttr struct {
	i0, i1   int // vertex indices at s=0, s=1
	u0, u1   int // UV-vertex indices at s=0, s=1 (textured only)
	textured bool

	zCoef     [3]float64
	colorCoef [][3]float64 // len NumColors, used when !textured
	uvCoef    [2][3]float64
	lCoef     [3]float64
}

func buildEdgeAttr(s *Scene, t, edgeIdx int, es *EdgeStencil) edgeAttr {
	face := s.Face[t]
	pair := edgePairs[edgeIdx]
	i0, i1 := face[pair[0]], face[pair[1]]

	ea := edgeAttr{i0: i0, i1: i1, textured: s.Textured[t] && s.Shaded[t]}
	ea.zCoef = edgeAttrCoef(es.SCoef, s.Depth[i0], s.Depth[i1])

	if ea.textured {
		faceUV := s.FaceUV[t]
		u0, u1 := faceUV[pair[0]], faceUV[pair[1]]
		ea.u0, ea.u1 = u0, u1
		ea.uvCoef[0] = edgeAttrCoef(es.SCoef, s.UV[u0][0], s.UV[u1][0])
		ea.uvCoef[1] = edgeAttrCoef(es.SCoef, s.UV[u0][1], s.UV[u1][1])
		ea.lCoef = edgeAttrCoef(es.SCoef, s.Shade[i0], s.Shade[i1])
		return ea
	}

	ea.colorCoef = make([][3]float64, s.NumColors)
	for c := 0; c < s.NumColors; c++ {
		ea.colorCoef[c] = edgeAttrCoef(es.SCoef, s.Color[i0][c], s.Color[i1][c])
	}
	return ea
}

func evalCoef(c [3]float64, x, y float64) float64 { return c[0]*x + c[1]*y + c[2] }

// edgeColorAt evaluates edge_color(x,y) into out (length NumColors), using
// texel as scratch when the triangle is textured.
func edgeColorAt(s *Scene, ea *edgeAttr, x, y float64, texel, out []float64) {
	if ea.textured {
		u := evalCoef(ea.uvCoef[0], x, y)
		v := evalCoef(ea.uvCoef[1], x, y)
		l := evalCoef(ea.lCoef, x, y)
		SampleBilinearInto(s.Texture, u, v, texel)
		for c := 0; c < s.NumColors; c++ {
			out[c] = texel[c] * l
		}
		return
	}
	for c := 0; c < s.NumColors; c++ {
		out[c] = evalCoef(ea.colorCoef[c], x, y)
	}
}

// RasterizeEdgeForward composites the silhouette band of edge edgeIdx of
// triangle t onto img: image := T*image + (1-T)*edge_color wherever the
// edge passes the depth test and lies within the band.
func RasterizeEdgeForward(img *Image, depth *DepthBuffer, s *Scene, t, edgeIdx int, es *EdgeStencil) {
	ea := buildEdgeAttr(s, t, edgeIdx, es)
	texel := make([]float64, s.NumColors)
	out := make([]float64, s.NumColors)

	es.EachScanline(img.W, func(y, xBegin, xEnd int) {
		fy := float64(y)
		for x := xBegin; x <= xEnd; x++ {
			fx := float64(x)
			if evalCoef(ea.zCoef, fx, fy) >= depth.Get(y, x) {
				continue
			}
			tr := evalCoef(es.TCoef, fx, fy)
			if tr <= 0 {
				// A fully opaque pixel sits exactly on the edge line; leaving
				// it untouched keeps the compositing law invertible.
				continue
			}
			edgeColorAt(s, &ea, fx, fy, texel, out)
			for c := 0; c < s.NumColors; c++ {
				img.Set(y, x, c, tr*img.Get(y, x, c)+(1-tr)*out[c])
			}
		}
	})
}

// RasterizeEdgeReverse replays edge edgeIdx of triangle t in exact reverse
// order against imgBar, the adjoint of the image as it stood immediately
// after this edge was composited forward. It recovers the pre-composite
// image in place (invertible compositing) and propagates gradients into
// adj; the mutated imgBar becomes the seed for the next (earlier, in
// reverse order) step.
func RasterizeEdgeReverse(img, imgBar *Image, depth *DepthBuffer, s *Scene, adj *Adjoints, t, edgeIdx int, es *EdgeStencil) {
	ea := buildEdgeAttr(s, t, edgeIdx, es)
	texel := make([]float64, s.NumColors)
	edgeColor := make([]float64, s.NumColors)
	texelBar := make([]float64, s.NumColors)

	var sCoefBar, tCoefBar [3]float64
	colorCoefBar := make([][3]float64, s.NumColors)
	var uvCoefBar [2][3]float64
	var lCoefBar [3]float64

	es.EachScanline(img.W, func(y, xBegin, xEnd int) {
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
			l := evalCoef(ea.lCoef, fx, fy)

			var tBar, lBar float64
			for c := 0; c < s.NumColors; c++ {
				postBar := imgBar.Get(y, x, c)
				pre := (img.Get(y, x, c) - (1-tr)*edgeColor[c]) / tr
				img.Set(y, x, c, pre)
				imgBar.Set(y, x, c, postBar*tr)

				tBar += postBar * (pre - edgeColor[c])
				ecBar := postBar * (1 - tr)
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
