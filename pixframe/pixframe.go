package pixframe

import (
	"image"
	"image/color"
)

// Size is the width and height of a frame.
const Size = 26

// Gray7 represents a 7-bit intensity (0-127).
// Only the lower 7 bits of Y are used.
type Gray7 struct {
	Y uint8
}

// RGBA converts the Gray7 color to standard RGBA.
func (c Gray7) RGBA() (r, g, b, a uint32) {
	// 0x7F * 0xFFFF / 0x7F = 0xFFFF
	y := uint32(c.Y&0x7F) * 0xFFFF / 0x7F
	return y, y, y, 0xFFFF
}

func toGray7(c color.Color) color.Color {
	if g, ok := c.(Gray7); ok {
		return g
	}
	r, g, b, _ := c.RGBA()
	// Same luma weights as color.GrayModel, on 16-bit channels.
	y := (299*r + 587*g + 114*b + 500) / 1000
	return Gray7{Y: uint8(y >> 9)}
}

// Gray7Model converts colors to Gray7.
var Gray7Model = color.ModelFunc(toGray7)

// Frame is one sensor frame. Pix holds one byte per pixel, row by row.
type Frame struct {
	Pix    []byte
	Stride int
	Rect   image.Rectangle
}

// New returns an empty Size x Size frame.
func New() *Frame {
	return &Frame{
		Pix:    make([]byte, Size*Size),
		Stride: Size,
		Rect:   image.Rect(0, 0, Size, Size),
	}
}

// ColorModel returns the color model of the image.
func (f *Frame) ColorModel() color.Model {
	return Gray7Model
}

// Bounds returns the image bounds.
func (f *Frame) Bounds() image.Rectangle {
	return f.Rect
}

// At implements image.Image.
func (f *Frame) At(x, y int) color.Color {
	return f.Gray7At(x, y)
}

// Gray7At returns the intensity of the pixel at (x, y).
func (f *Frame) Gray7At(x, y int) Gray7 {
	if !(image.Point{X: x, Y: y}.In(f.Rect)) {
		return Gray7{}
	}
	return Gray7{Y: f.Pix[f.PixOffset(x, y)] & 0x7F}
}

// Set sets the color of the pixel at (x, y).
func (f *Frame) Set(x, y int, c color.Color) {
	f.SetGray7(x, y, Gray7Model.Convert(c).(Gray7))
}

// SetGray7 sets the intensity of the pixel at (x, y).
func (f *Frame) SetGray7(x, y int, c Gray7) {
	if !(image.Point{X: x, Y: y}.In(f.Rect)) {
		return
	}
	f.Pix[f.PixOffset(x, y)] = c.Y & 0x7F
}

// PixOffset returns the index in Pix of the pixel at (x, y).
func (f *Frame) PixOffset(x, y int) int {
	return (y-f.Rect.Min.Y)*f.Stride + (x - f.Rect.Min.X)
}

// Gray returns a copy of the frame scaled to 8-bit grayscale.
func (f *Frame) Gray() *image.Gray {
	g := image.NewGray(f.Rect)
	for y := f.Rect.Min.Y; y < f.Rect.Max.Y; y++ {
		for x := f.Rect.Min.X; x < f.Rect.Max.X; x++ {
			v := f.Gray7At(x, y).Y
			g.SetGray(x, y, color.Gray{Y: v<<1 | v>>6})
		}
	}
	return g
}

// Stats returns the minimum, maximum and mean intensity.
func (f *Frame) Stats() (lo, hi uint8, mean float64) {
	if f.Rect.Empty() {
		return 0, 0, 0
	}
	lo = 0x7F
	sum := 0
	n := 0
	for y := f.Rect.Min.Y; y < f.Rect.Max.Y; y++ {
		for x := f.Rect.Min.X; x < f.Rect.Max.X; x++ {
			v := f.Gray7At(x, y).Y
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
			sum += int(v)
			n++
		}
	}
	return lo, hi, float64(sum) / float64(n)
}
