// Package img contains routines for loading, preprocessing and augmenting
// sets of chest X-ray images.
package img

import (
	"image"
	"image/color"

	"github.com/nfnt/resize"

	"github.com/jackfr8st/Pneumonia-Detection-using-CNN-XAI/num"
)

var (
	GrayModel = color.ModelFunc(grayModel)
	RGBModel  = color.ModelFunc(rgbModel)
)

// Gray color stores a float in range 0-1
type Gray struct {
	Y float32
}

func (c Gray) RGBA() (r, g, b, a uint32) {
	y := clampu(c.Y, 0, 1)
	return y, y, y, 0xffff
}

func grayModel(c color.Color) color.Color {
	if _, ok := c.(Gray); ok {
		return c
	}
	r, g, b, _ := c.RGBA()
	return Gray{Y: 0.299*float32(r)/0xffff + 0.587*float32(g)/0xffff + 0.114*float32(b)/0xffff}
}

// RGB color is stored as a float for each channel with values in range 0-1
type RGB struct {
	R, G, B float32
}

func (c RGB) RGBA() (r, g, b, a uint32) {
	return clampu(c.R, 0, 1), clampu(c.G, 0, 1), clampu(c.B, 0, 1), 0xffff
}

func rgbModel(c color.Color) color.Color {
	if _, ok := c.(RGB); ok {
		return c
	}
	r, g, b, _ := c.RGBA()
	return RGB{R: float32(r) / 0xffff, G: float32(g) / 0xffff, B: float32(b) / 0xffff}
}

// RGBImage type stores the image data as float32 values in range 0-1
// interleaved in height, width, channel order so that the pixel slice can be
// fed directly to the network as a (H,W,3) tensor.
type RGBImage struct {
	Pix    []float32
	Height int
	Width  int
}

func NewRGB(width, height int) *RGBImage {
	return &RGBImage{Pix: make([]float32, height*width*3), Height: height, Width: width}
}

func (m *RGBImage) ColorModel() color.Model {
	return RGBModel
}

func (m *RGBImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

func (m *RGBImage) RGBAt(x, y int) RGB {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return RGB{}
	}
	pos := (y*m.Width + x) * 3
	return RGB{R: m.Pix[pos], G: m.Pix[pos+1], B: m.Pix[pos+2]}
}

func (m *RGBImage) At(x, y int) color.Color {
	return m.RGBAt(x, y)
}

func (m *RGBImage) Set(x, y int, c color.Color) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return
	}
	rgb := rgbModel(c).(RGB)
	pos := (y*m.Width + x) * 3
	m.Pix[pos] = rgb.R
	m.Pix[pos+1] = rgb.G
	m.Pix[pos+2] = rgb.B
}

// Tensor returns a (H,W,3) array viewing the pixel data.
func (m *RGBImage) Tensor() *num.Array {
	return num.NewArrayFrom(m.Pix, m.Height, m.Width, 3)
}

func (m *RGBImage) Clone() *RGBImage {
	dst := NewRGB(m.Width, m.Height)
	copy(dst.Pix, m.Pix)
	return dst
}

// GrayImage type stores a single channel of float32 values in range 0-1.
// It is used for explanation heatmaps.
type GrayImage struct {
	Pix    []float32
	Height int
	Width  int
}

func NewGrayImage(width, height int) *GrayImage {
	return &GrayImage{Pix: make([]float32, height*width), Height: height, Width: width}
}

func (m *GrayImage) ColorModel() color.Model {
	return GrayModel
}

func (m *GrayImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

func (m *GrayImage) GrayAt(x, y int) Gray {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return Gray{}
	}
	return Gray{Y: m.Pix[y*m.Width+x]}
}

func (m *GrayImage) At(x, y int) color.Color {
	return m.GrayAt(x, y)
}

func (m *GrayImage) Set(x, y int, c color.Color) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = grayModel(c).(Gray).Y
}

// GrayFromImage converts any image to a single channel float image with
// intensities scaled to the range 0-1.
func GrayFromImage(src image.Image) *GrayImage {
	b := src.Bounds()
	dst := NewGrayImage(b.Dx(), b.Dy())
	pos := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Pix[pos] = grayModel(src.At(x, y)).(Gray).Y
			pos++
		}
	}
	return dst
}

// FromImage converts any decoded image to float32 RGB with intensities
// scaled to the range 0-1.
func FromImage(src image.Image) *RGBImage {
	b := src.Bounds()
	dst := NewRGB(b.Dx(), b.Dy())
	pos := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, b, _ := src.At(x, y).RGBA()
			dst.Pix[pos] = float32(r) / 0xffff
			dst.Pix[pos+1] = float32(g) / 0xffff
			dst.Pix[pos+2] = float32(b) / 0xffff
			pos += 3
		}
	}
	return dst
}

// Preprocess resizes the source image to size x size pixels and converts it
// to a 3 channel float image with values in range 0-1. It is deterministic:
// the same input always yields the same pixel data.
func Preprocess(src image.Image, size int) *RGBImage {
	resized := resize.Resize(uint(size), uint(size), src, resize.Lanczos3)
	return FromImage(resized)
}

func clampu(x, x0, x1 float32) uint32 {
	return uint32(clamp(x, x0, x1) * 0xffff)
}

func clamp(x, x0, x1 float32) float32 {
	if x < x0 {
		return x0
	}
	if x > x1 {
		return x1
	}
	return x
}
