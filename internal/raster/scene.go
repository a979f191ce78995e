package raster

import (
	"math"
	"sort"
)

// NewScene builds a Scene from caller-supplied attribute arrays,
// converting uv from the one-based convention callers provide to the
// zero-based convention the renderer uses internally. It validates face
// and UV indices and the presence of a texture buffer before returning,
// the same fail-fast shape as RenderForward/RenderReverse themselves.
func NewScene(
	ij [][2]float64, depth, shade []float64, color [][]float64,
	uvOneBased [][2]float64,
	face, faceUV [][3]int, edgeFlag [][3]bool, textured, shaded []bool,
	numColors int, clockwise, backfaceCulling bool,
	tex *Texture, background *Image,
) (*Scene, error) {
	uv := make([][2]float64, len(uvOneBased))
	for i, p := range uvOneBased {
		uv[i] = [2]float64{p[0] - 1, p[1] - 1}
	}
	s := &Scene{
		IJ: ij, Depth: depth, Shade: shade, Color: color,
		UV:              uv,
		Face:            face,
		FaceUV:          faceUV,
		EdgeFlag:        edgeFlag,
		Textured:        textured,
		Shaded:          shaded,
		NumColors:       numColors,
		Clockwise:       clockwise,
		BackfaceCulling: backfaceCulling,
		Texture:         tex,
		Background:      background,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the scene's fatal-error conditions: every attribute
// array must cover its entity count, every face and UV index must be in
// range, and a texture buffer must be present whenever any triangle is
// textured and shaded.
func (s *Scene) Validate() error {
	v, u := s.NumVertices(), s.NumUVVertices()
	switch {
	case len(s.Depth) < v:
		return &MissingBufferError{Name: "depth"}
	case len(s.Shade) < v:
		return &MissingBufferError{Name: "shade"}
	case len(s.Color) < v:
		return &MissingBufferError{Name: "color"}
	case len(s.FaceUV) < len(s.Face):
		return &MissingBufferError{Name: "face_uv"}
	case len(s.EdgeFlag) < len(s.Face):
		return &MissingBufferError{Name: "edgeflag"}
	case len(s.Textured) < len(s.Face):
		return &MissingBufferError{Name: "textured"}
	case len(s.Shaded) < len(s.Face):
		return &MissingBufferError{Name: "shaded"}
	}
	needsTexture := false
	for t := range s.Face {
		for _, idx := range s.Face[t] {
			if idx < 0 || idx >= v {
				return &IndexOutOfRangeError{Name: "face", Triangle: t, Value: idx, Bound: v}
			}
		}
		for _, idx := range s.FaceUV[t] {
			if idx < 0 || idx >= u {
				return &IndexOutOfRangeError{Name: "face_uv", Triangle: t, Value: idx, Bound: u}
			}
		}
		if s.Textured[t] && s.Shaded[t] {
			needsTexture = true
		}
	}
	if needsTexture && s.Texture == nil {
		return &MissingBufferError{Name: "texture"}
	}
	if s.Texture != nil && s.Texture.C != s.NumColors {
		return &ChannelMismatchError{Name: "texture", Got: s.Texture.C, Want: s.NumColors}
	}
	if s.Background != nil && s.Background.C != s.NumColors {
		return &ChannelMismatchError{Name: "background", Got: s.Background.C, Want: s.NumColors}
	}
	return nil
}

// triVerts gathers triangle t's three image-coordinate vertices.
func (s *Scene) triVerts(t int) [3][2]float64 {
	face := s.Face[t]
	return [3][2]float64{s.IJ[face[0]], s.IJ[face[1]], s.IJ[face[2]]}
}

// allFront reports whether every vertex of triangle t has non-negative
// depth. Triangles behind the camera are never rasterized.
func (s *Scene) allFront(t int) bool {
	face := s.Face[t]
	return s.Depth[face[0]] >= 0 && s.Depth[face[1]] >= 0 && s.Depth[face[2]] >= 0
}

// sumDepth is the sum of triangle t's three vertex depths, the sort key
// for back-to-front painter order.
func (s *Scene) sumDepth(t int) float64 {
	face := s.Face[t]
	return s.Depth[face[0]] + s.Depth[face[1]] + s.Depth[face[2]]
}

// signedArea returns triangle t's signed area, oriented so that a
// front-facing triangle (given s.Clockwise) is positive; 0 for a triangle
// that is not all-front.
func (s *Scene) signedArea(t int) float64 {
	if !s.allFront(t) {
		return 0
	}
	v := s.triVerts(t)
	area := (v[1][0]-v[0][0])*(v[2][1]-v[0][1]) - (v[2][0]-v[0][0])*(v[1][1]-v[0][1])
	if s.Clockwise {
		return -area
	}
	return area
}

// sortedTriangleOrder returns triangle indices sorted by descending
// depth sum, stable by index on ties so the painter order is
// deterministic.
func (s *Scene) sortedTriangleOrder() []int {
	n := s.NumTriangles()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sum := make([]float64, n)
	for t := 0; t < n; t++ {
		sum[t] = s.sumDepth(t)
	}
	sort.SliceStable(order, func(i, j int) bool { return sum[order[i]] > sum[order[j]] })
	return order
}

// RenderForward is the forward rasterizer: it fills img from s.Background
// (or zero, if nil), depth-buffers triangle interiors, and, if sigma > 0,
// overdraws flagged silhouette edges with a soft falloff of width sigma.
// When antialiaseError is true it additionally fills errBuf with the
// antialiased squared error of img against obs.
func RenderForward(
	s *Scene, img *Image, depth *DepthBuffer, sigma float64,
	antialiaseError bool, obs *Image, errBuf *ErrBuffer,
) error {
	if img == nil {
		return &MissingBufferError{Name: "image"}
	}
	if depth == nil {
		return &MissingBufferError{Name: "z_buffer"}
	}
	if antialiaseError {
		if obs == nil {
			return &MissingBufferError{Name: "obs"}
		}
		if errBuf == nil {
			return &MissingBufferError{Name: "err_buffer"}
		}
		if obs.C != s.NumColors {
			return &ChannelMismatchError{Name: "obs", Got: obs.C, Want: s.NumColors}
		}
	}
	if img.C != s.NumColors {
		return &ChannelMismatchError{Name: "image", Got: img.C, Want: s.NumColors}
	}
	if err := s.Validate(); err != nil {
		return err
	}

	if s.Background != nil {
		img.CopyFrom(s.Background)
	} else {
		for i := range img.Data {
			img.Data[i] = 0
		}
	}
	depth.Fill(math.Inf(1))

	// Interior pass: output is depth-buffered so iteration order does not
	// affect the result; natural index order is the simplest choice.
	for t := 0; t < s.NumTriangles(); t++ {
		if !s.allFront(t) {
			continue
		}
		if s.BackfaceCulling && s.signedArea(t) <= 0 {
			continue
		}
		ts, ok := BuildTriStencil(s.triVerts(t), img.H, img.W)
		if !ok {
			continue
		}
		RasterizeInteriorForward(img, depth, s, t, &ts)
	}

	if antialiaseError {
		RasterizeErrorInterior(errBuf, img, obs)
	}

	if sigma <= 0 {
		return nil
	}

	order := s.sortedTriangleOrder()
	for _, t := range order {
		// Edges are always culled by area, independent of BackfaceCulling.
		if s.signedArea(t) <= 0 {
			continue
		}
		rasterizeTriangleEdges(s, img, depth, errBuf, obs, antialiaseError, t, sigma)
	}
	return nil
}

// rasterizeTriangleEdges dispatches the flagged silhouette edges of
// triangle t, in sub-edge vertex order (1,0),(2,1),(0,2).
func rasterizeTriangleEdges(
	s *Scene, img *Image, depth *DepthBuffer, errBuf *ErrBuffer, obs *Image,
	antialiaseError bool, t int, sigma float64,
) {
	face := s.Face[t]
	h, w := depth.H, depth.W
	for n := 0; n < 3; n++ {
		if !s.EdgeFlag[t][n] {
			continue
		}
		pair := edgePairs[n]
		v0, v1 := s.IJ[face[pair[0]]], s.IJ[face[pair[1]]]
		es, ok := BuildEdgeStencil(v0, v1, sigma, s.Clockwise, h, w)
		if !ok {
			continue
		}
		if antialiaseError {
			RasterizeErrorEdgeForward(errBuf, depth, obs, s, t, n, &es)
		} else {
			RasterizeEdgeForward(img, depth, s, t, n, &es)
		}
	}
}

// RenderReverse is the reverse-mode adjoint of RenderForward. It replays
// the edge pass in exact reverse order (reverse triangle order, reverse
// edge index within each triangle), recovering the pre-overdraw image (or
// error buffer) and accumulating gradients into adj; then it replays the
// interior pass in reverse triangle order, depth-tested by equality
// instead of inequality so that only each pixel's final owner
// contributes. img and depth must be the buffers RenderForward produced
// for this scene; imgBar (or errBar, in error mode) is the seed gradient.
func RenderReverse(
	s *Scene, adj *Adjoints, img *Image, depth *DepthBuffer, imgBar *Image, sigma float64,
	antialiaseError bool, obs *Image, errBuf *ErrBuffer, errBar *ErrBuffer,
) error {
	if img == nil {
		return &MissingBufferError{Name: "image"}
	}
	if depth == nil {
		return &MissingBufferError{Name: "z_buffer"}
	}
	if antialiaseError {
		if obs == nil {
			return &MissingBufferError{Name: "obs"}
		}
		if errBuf == nil {
			return &MissingBufferError{Name: "err"}
		}
		if errBar == nil {
			return &MissingBufferError{Name: "err_b"}
		}
	} else if imgBar == nil {
		return &MissingBufferError{Name: "image_b"}
	}
	if img.C != s.NumColors {
		return &ChannelMismatchError{Name: "image", Got: img.C, Want: s.NumColors}
	}
	if imgBar != nil && imgBar.C != s.NumColors {
		return &ChannelMismatchError{Name: "image_b", Got: imgBar.C, Want: s.NumColors}
	}
	if antialiaseError && obs.C != s.NumColors {
		return &ChannelMismatchError{Name: "obs", Got: obs.C, Want: s.NumColors}
	}
	if adj == nil {
		return &MissingAdjointError{Name: "ij_b"}
	}
	if adj.IJ == nil {
		return &MissingAdjointError{Name: "ij_b"}
	}
	if adj.UV == nil {
		return &MissingAdjointError{Name: "uv_b"}
	}
	if adj.Shade == nil {
		return &MissingAdjointError{Name: "shade_b"}
	}
	if adj.Color == nil {
		return &MissingAdjointError{Name: "color_b"}
	}
	if s.Texture != nil && adj.Texture == nil {
		return &MissingAdjointError{Name: "texture_b"}
	}
	if err := s.Validate(); err != nil {
		return err
	}

	if sigma > 0 {
		order := s.sortedTriangleOrder()
		for i := len(order) - 1; i >= 0; i-- {
			t := order[i]
			if s.signedArea(t) <= 0 {
				continue
			}
			reverseTriangleEdges(s, img, imgBar, depth, errBuf, errBar, obs, antialiaseError, t, sigma, adj)
		}
	}

	if antialiaseError {
		if imgBar == nil {
			imgBar = NewImage(img.H, img.W, img.C)
		}
		SeedImageAdjointFromError(imgBar, errBar, img, obs)
	}

	for t := s.NumTriangles() - 1; t >= 0; t-- {
		if !s.allFront(t) {
			continue
		}
		if s.BackfaceCulling && s.signedArea(t) <= 0 {
			continue
		}
		ts, ok := BuildTriStencil(s.triVerts(t), img.H, img.W)
		if !ok {
			continue
		}
		RasterizeInteriorReverse(imgBar, depth, s, adj, t, &ts)
	}
	return nil
}

// reverseTriangleEdges replays triangle t's flagged edges in reverse
// sub-edge order (2,1,0), mirroring rasterizeTriangleEdges: each edge
// must be undone in the exact reverse of the order it was drawn.
func reverseTriangleEdges(
	s *Scene, img, imgBar *Image, depth *DepthBuffer, errBuf, errBar *ErrBuffer, obs *Image,
	antialiaseError bool, t int, sigma float64, adj *Adjoints,
) {
	face := s.Face[t]
	h, w := depth.H, depth.W
	for _, n := range [3]int{2, 1, 0} {
		if !s.EdgeFlag[t][n] {
			continue
		}
		pair := edgePairs[n]
		v0, v1 := s.IJ[face[pair[0]]], s.IJ[face[pair[1]]]
		es, ok := BuildEdgeStencil(v0, v1, sigma, s.Clockwise, h, w)
		if !ok {
			continue
		}
		if antialiaseError {
			RasterizeErrorEdgeReverse(errBuf, errBar, depth, obs, s, adj, t, n, &es)
		} else {
			RasterizeEdgeReverse(img, imgBar, depth, s, adj, t, n, &es)
		}
	}
}
