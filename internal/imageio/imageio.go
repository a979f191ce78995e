// Package imageio is the one place the renderer's float64 buffers meet
// ordinary image files. The core raster package stays free of I/O and
// never imports it; callers use this package to load textures and
// backgrounds and to save a rendered Image as PNG or WebP.
package imageio

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"

	"github.com/HugoSmits86/nativewebp"
	_ "github.com/ftrvxmtrx/tga"
	"golang.org/x/image/draw"

	"diffraster/internal/raster"
)

// LoadTexture reads an image file (PNG, JPEG, or TGA via the blank
// import above) and returns a raster.Texture with RGBA channels scaled
// to [0,1].
func LoadTexture(path string) (*raster.Texture, error) {
	img, err := decodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("imageio: load texture %s: %w", path, err)
	}
	return fromImage(img), nil
}

// LoadBackground reads an image file the same way LoadTexture does, for use
// as a scene's Background buffer.
func LoadBackground(path string) (*raster.Image, error) {
	img, err := decodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("imageio: load background %s: %w", path, err)
	}
	tex := fromImage(img)
	return &raster.Image{H: tex.H, W: tex.W, C: tex.C, Data: tex.Data}, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// fromImage converts any decoded image to a 4-channel (R,G,B,A) float64
// raster.Texture/Image with values in [0,1].
func fromImage(src image.Image) *raster.Texture {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	tex := raster.NewTexture(h, w, 4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, a := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			tex.Set(y, x, 0, float64(r)/65535)
			tex.Set(y, x, 1, float64(g)/65535)
			tex.Set(y, x, 2, float64(bl)/65535)
			tex.Set(y, x, 3, float64(a)/65535)
		}
	}
	return tex
}

// SavePNG writes img (values clamped to [0,1] and scaled to 8 bits) as a
// PNG file. Channel count must be 3 (RGB) or 4 (RGBA); fewer channels are
// not representable in a standard image.Image and are rejected.
func SavePNG(path string, img *raster.Image) error {
	nrgba, err := toNRGBA(img)
	if err != nil {
		return fmt.Errorf("imageio: save png %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("imageio: save png %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, nrgba); err != nil {
		return fmt.Errorf("imageio: encode png %s: %w", path, err)
	}
	return nil
}

// SaveWebP writes img as a lossless WebP file.
func SaveWebP(path string, img *raster.Image) error {
	nrgba, err := toNRGBA(img)
	if err != nil {
		return fmt.Errorf("imageio: save webp %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("imageio: save webp %s: %w", path, err)
	}
	defer f.Close()
	if err := nativewebp.Encode(f, nrgba, nil); err != nil {
		return fmt.Errorf("imageio: encode webp %s: %w", path, err)
	}
	return nil
}

// EncodeJPEG returns img encoded as a baseline JPEG at the given quality
// (1-100). Exposed for fixtures/tests that want a lossy round-trip without
// touching disk.
func EncodeJPEG(img *raster.Image, quality int) ([]byte, error) {
	nrgba, err := toNRGBA(img)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, nrgba, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toNRGBA(img *raster.Image) (*image.NRGBA, error) {
	if img.C != 3 && img.C != 4 {
		return nil, fmt.Errorf("image has %d channels, want 3 or 4", img.C)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, img.W, img.H))
	for y := 0; y < img.H; y++ {
		for x := 0; x < img.W; x++ {
			i := dst.PixOffset(x, y)
			dst.Pix[i] = clamp8(img.Get(y, x, 0))
			dst.Pix[i+1] = clamp8(img.Get(y, x, 1))
			dst.Pix[i+2] = clamp8(img.Get(y, x, 2))
			if img.C == 4 {
				dst.Pix[i+3] = clamp8(img.Get(y, x, 3))
			} else {
				dst.Pix[i+3] = 255
			}
		}
	}
	return dst, nil
}

func clamp8(v float64) uint8 {
	v *= 255
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// Downsample reduces a rendered raster.Image to targetW×targetH with
// premultiplied-alpha-aware Catmull-Rom filtering. Rendering at N× and
// downsampling softens hard interior edges, which the silhouette pass
// does not cover.
func Downsample(img *raster.Image, targetW, targetH int) (*raster.Image, error) {
	nrgba, err := toNRGBA(img)
	if err != nil {
		return nil, fmt.Errorf("imageio: downsample: %w", err)
	}
	b := nrgba.Bounds()

	premul := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			si := nrgba.PixOffset(x, y)
			di := premul.PixOffset(x, y)
			a := float64(nrgba.Pix[si+3]) / 255.0
			premul.Pix[di] = uint8(float64(nrgba.Pix[si])*a + 0.5)
			premul.Pix[di+1] = uint8(float64(nrgba.Pix[si+1])*a + 0.5)
			premul.Pix[di+2] = uint8(float64(nrgba.Pix[si+2])*a + 0.5)
			premul.Pix[di+3] = nrgba.Pix[si+3]
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), premul, premul.Bounds(), draw.Src, nil)

	out := raster.NewImage(targetH, targetW, img.C)
	for y := 0; y < targetH; y++ {
		for x := 0; x < targetW; x++ {
			si := dst.PixOffset(x, y)
			a := float64(dst.Pix[si+3])
			var r, g, bl float64
			if a > 1 {
				inv := 255.0 / a
				r = float64(dst.Pix[si]) * inv
				g = float64(dst.Pix[si+1]) * inv
				bl = float64(dst.Pix[si+2]) * inv
			}
			out.Set(y, x, 0, r/255)
			out.Set(y, x, 1, g/255)
			out.Set(y, x, 2, bl/255)
			if img.C == 4 {
				out.Set(y, x, 3, a/255)
			}
		}
	}
	return out, nil
}
