// Package raster implements a differentiable soft rasterizer: a painter-
// style forward renderer with a depth buffer and silhouette antialiasing,
// paired with the reverse-mode adjoint of every forward operation.
package raster

import "fmt"

// Image is an (H×W×C) color buffer stored flat, row-major, channel-minor:
// Data[(y*W+x)*C+c].
type Image struct {
	H, W, C int
	Data    []float64
}

// NewImage allocates a zeroed H×W×C image.
func NewImage(h, w, c int) *Image {
	return &Image{H: h, W: w, C: c, Data: make([]float64, h*w*c)}
}

func (img *Image) at(y, x, c int) int { return (y*img.W+x)*img.C + c }

func (img *Image) Get(y, x, c int) float64 { return img.Data[img.at(y, x, c)] }

func (img *Image) Set(y, x, c int, v float64) { img.Data[img.at(y, x, c)] = v }

// CopyFrom overwrites img's contents with src's (used to seed image := background).
func (img *Image) CopyFrom(src *Image) {
	copy(img.Data, src.Data)
}

// DepthBuffer is an (H×W) scratch array of nearest-depth values.
type DepthBuffer struct {
	H, W int
	Data []float64
}

func NewDepthBuffer(h, w int) *DepthBuffer {
	return &DepthBuffer{H: h, W: w, Data: make([]float64, h*w)}
}

func (d *DepthBuffer) Get(y, x int) float64 { return d.Data[y*d.W+x] }

func (d *DepthBuffer) Set(y, x int, v float64) { d.Data[y*d.W+x] = v }

// Fill sets every entry to v (used to reset DepthBuffer to +Inf before a forward pass).
func (d *DepthBuffer) Fill(v float64) {
	for i := range d.Data {
		d.Data[i] = v
	}
}

// ErrBuffer is an (H×W) scalar squared-error buffer for error-mode
// rendering.
type ErrBuffer struct {
	H, W int
	Data []float64
}

func NewErrBuffer(h, w int) *ErrBuffer {
	return &ErrBuffer{H: h, W: w, Data: make([]float64, h*w)}
}

func (e *ErrBuffer) Get(y, x int) float64 { return e.Data[y*e.W+x] }

func (e *ErrBuffer) Set(y, x int, v float64) { e.Data[y*e.W+x] = v }

// Texture is an (Ht×Wt×C) array of doubles, sampled bilinearly.
type Texture struct {
	H, W, C int
	Data    []float64
}

func NewTexture(h, w, c int) *Texture {
	return &Texture{H: h, W: w, C: c, Data: make([]float64, h*w*c)}
}

func (t *Texture) at(y, x, c int) int { return (y*t.W+x)*t.C + c }

func (t *Texture) Get(y, x, c int) float64 { return t.Data[t.at(y, x, c)] }

func (t *Texture) Set(y, x, c int, v float64) { t.Data[t.at(y, x, c)] = v }

// Scene is the flat attribute-array input to RenderForward/RenderReverse.
// All indices are zero-based internally; UV coordinates are accepted
// one-based from the caller and converted once at construction (see
// NewScene).
type Scene struct {
	// Vertex arrays, length V.
	IJ    [][2]float64 // image coordinates
	Depth []float64
	Shade []float64
	Color [][]float64 // length V, each of length NumColors

	// UVVertex arrays, length U.
	UV [][2]float64

	// Triangle arrays, length T.
	Face     [][3]int
	FaceUV   [][3]int
	EdgeFlag [][3]bool
	Textured []bool
	Shaded   []bool

	NumColors int

	Clockwise       bool
	BackfaceCulling bool

	Texture    *Texture // nil if no triangle is textured
	Background *Image   // initializes the color buffer; nil means all-zero
}

// NumVertices, NumUVVertices and NumTriangles report entity counts.
func (s *Scene) NumVertices() int   { return len(s.IJ) }
func (s *Scene) NumUVVertices() int { return len(s.UV) }
func (s *Scene) NumTriangles() int  { return len(s.Face) }

// Adjoints mirrors every differentiable Scene input. The renderer
// accumulates into these (+=); it never overwrites them. The caller zeroes
// them before a reverse call if a fresh gradient is desired.
type Adjoints struct {
	IJ      [][2]float64 // length V
	UV      [][2]float64 // length U
	Shade   []float64    // length V
	Color   [][]float64  // length V, each length NumColors
	Texture []float64    // same length as Scene.Texture.Data, nil if no texture
}

// NewAdjoints allocates a zeroed Adjoints set matching the shapes of s.
func NewAdjoints(s *Scene) *Adjoints {
	a := &Adjoints{
		IJ:    make([][2]float64, s.NumVertices()),
		UV:    make([][2]float64, s.NumUVVertices()),
		Shade: make([]float64, s.NumVertices()),
		Color: make([][]float64, s.NumVertices()),
	}
	for v := range a.Color {
		a.Color[v] = make([]float64, s.NumColors)
	}
	if s.Texture != nil {
		a.Texture = make([]float64, len(s.Texture.Data))
	}
	return a
}

// Zero clears every adjoint array back to zero in place.
func (a *Adjoints) Zero() {
	for i := range a.IJ {
		a.IJ[i] = [2]float64{}
	}
	for i := range a.UV {
		a.UV[i] = [2]float64{}
	}
	for i := range a.Shade {
		a.Shade[i] = 0
	}
	for i := range a.Color {
		for c := range a.Color[i] {
			a.Color[i][c] = 0
		}
	}
	for i := range a.Texture {
		a.Texture[i] = 0
	}
}

// MissingBufferError reports a required array that was absent.
type MissingBufferError struct{ Name string }

func (e *MissingBufferError) Error() string {
	return fmt.Sprintf("raster: missing required buffer %q", e.Name)
}

// MissingAdjointError reports a reverse-pass call missing one of the
// required _b arrays.
type MissingAdjointError struct{ Name string }

func (e *MissingAdjointError) Error() string {
	return fmt.Sprintf("raster: missing adjoint buffer %q", e.Name)
}

// ChannelMismatchError reports a buffer whose channel count disagrees with
// the scene's NumColors, which every color-carrying buffer must share.
type ChannelMismatchError struct {
	Name      string
	Got, Want int
}

func (e *ChannelMismatchError) Error() string {
	return fmt.Sprintf("raster: %s has %d channels, scene declares %d", e.Name, e.Got, e.Want)
}

// IndexOutOfRangeError reports a face/face_uv index at or beyond its bound.
type IndexOutOfRangeError struct {
	Name     string
	Triangle int
	Value    int
	Bound    int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("raster: triangle %d: %s index %d out of range [0,%d)",
		e.Triangle, e.Name, e.Value, e.Bound)
}
