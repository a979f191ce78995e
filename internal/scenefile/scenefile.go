// Package scenefile decodes the flat JSON scene description cmd/render
// reads from disk into a raster.Scene. The on-disk format is a plain
// struct decoded with encoding/json, same as internal/config.
package scenefile

import (
	"encoding/json"
	"fmt"
	"os"

	"diffraster/internal/imageio"
	"diffraster/internal/raster"
)

// Doc is the on-disk shape: the same flat attribute arrays raster.Scene
// holds, so a caller authoring a scene by hand (or dumping one from an
// optimization loop) can see the correspondence directly.
type Doc struct {
	IJ        [][2]float64 `json:"ij"`
	Depth     []float64    `json:"depth"`
	Shade     []float64    `json:"shade"`
	Color     [][]float64  `json:"color"`
	UV        [][2]float64 `json:"uv"` // one-based

	Face     [][3]int    `json:"face"`
	FaceUV   [][3]int    `json:"face_uv"`
	EdgeFlag [][3]bool   `json:"edge_flag"`
	Textured []bool      `json:"textured"`
	Shaded   []bool      `json:"shaded"`

	NumColors       int  `json:"num_colors"`
	Clockwise       bool `json:"clockwise"`
	BackfaceCulling bool `json:"backface_culling"`

	TexturePath string `json:"texture_path,omitempty"`
}

// Load reads a Doc from path and builds a raster.Scene from it. When
// backgroundPath is non-empty it is loaded as the scene's Background; the
// caller is responsible for sizing the image/depth buffers to match.
func Load(path, backgroundPath string) (*raster.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenefile: read %s: %w", path, err)
	}
	var doc Doc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("scenefile: parse %s: %w", path, err)
	}

	var tex *raster.Texture
	if doc.TexturePath != "" {
		tex, err = imageio.LoadTexture(doc.TexturePath)
		if err != nil {
			return nil, fmt.Errorf("scenefile: %w", err)
		}
		if tex.C != doc.NumColors {
			if doc.NumColors > tex.C {
				return nil, fmt.Errorf("scenefile: texture %s has %d channels, scene declares %d",
					doc.TexturePath, tex.C, doc.NumColors)
			}
			tex = &raster.Texture{H: tex.H, W: tex.W, C: doc.NumColors,
				Data: narrowChannels(tex.Data, tex.C, doc.NumColors)}
		}
	}

	var background *raster.Image
	if backgroundPath != "" {
		background, err = imageio.LoadBackground(backgroundPath)
		if err != nil {
			return nil, fmt.Errorf("scenefile: %w", err)
		}
		if background.C != doc.NumColors {
			if doc.NumColors > background.C {
				return nil, fmt.Errorf("scenefile: background %s has %d channels, scene declares %d",
					backgroundPath, background.C, doc.NumColors)
			}
			background = &raster.Image{H: background.H, W: background.W, C: doc.NumColors,
				Data: narrowChannels(background.Data, background.C, doc.NumColors)}
		}
	}

	s, err := raster.NewScene(
		doc.IJ, doc.Depth, doc.Shade, doc.Color,
		doc.UV,
		doc.Face, doc.FaceUV, doc.EdgeFlag, doc.Textured, doc.Shaded,
		doc.NumColors, doc.Clockwise, doc.BackfaceCulling,
		tex, background,
	)
	if err != nil {
		return nil, fmt.Errorf("scenefile: %w", err)
	}
	return s, nil
}

// narrowChannels keeps the leading "to" channels of every pixel in a flat
// channel-minor buffer. Decoded files are RGBA, so narrowing drops alpha
// (and, for single-channel scenes, green and blue).
func narrowChannels(data []float64, from, to int) []float64 {
	n := len(data) / from
	out := make([]float64, n*to)
	for i := 0; i < n; i++ {
		copy(out[i*to:(i+1)*to], data[i*from:i*from+to])
	}
	return out
}
