package convert

import (
	"fmt"
	"image"
	"image/color"
)

// NRGBColor is an opaque 24 bit color, the pixel type of images without
// alpha that are handed to an Rgb8 transform
type NRGBColor struct {
	R, G, B uint8
}

func (c NRGBColor) String() string {
	return fmt.Sprintf("NRGBColor{%02X %02X %02X}", c.R, c.G, c.B)
}

func (c NRGBColor) RGBA() (r, g, b, a uint32) {
	r = uint32(c.R)
	r |= r << 8
	g = uint32(c.G)
	g |= g << 8
	b = uint32(c.B)
	b |= b << 8
	a = 0xffff
	return
}

func nrgbModel(c color.Color) color.Color {
	if _, ok := c.(NRGBColor); ok {
		return c
	}
	r, g, b, a := c.RGBA()
	switch a {
	case 0xffff:
	case 0:
		return NRGBColor{}
	default:
		r = (r * 0xffff) / a
		g = (g * 0xffff) / a
		b = (b * 0xffff) / a
	}
	return NRGBColor{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}
}

var NRGBModel color.Model = color.ModelFunc(nrgbModel)

// NRGB is an in-memory image with three bytes per pixel in R, G, B order.
// Its rows have the Rgb8 layout.
type NRGB struct {
	// The pixel at (x, y) starts at Pix[(y-Rect.Min.Y)*Stride + (x-Rect.Min.X)*3]
	Pix    []uint8
	Stride int
	Rect   image.Rectangle
}

var _ image.Image = (*NRGB)(nil)

func NewNRGB(r image.Rectangle) *NRGB {
	return &NRGB{
		Pix:    make([]uint8, 3*r.Dx()*r.Dy()),
		Stride: 3 * r.Dx(),
		Rect:   r,
	}
}

func (p *NRGB) ColorModel() color.Model { return NRGBModel }
func (p *NRGB) Bounds() image.Rectangle { return p.Rect }
func (p *NRGB) Opaque() bool            { return true }

func (p *NRGB) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*3
}

func (p *NRGB) At(x, y int) color.Color { return p.NRGBAt(x, y) }

func (p *NRGB) NRGBAt(x, y int) NRGBColor {
	if !(image.Point{x, y}.In(p.Rect)) {
		return NRGBColor{}
	}
	i := p.PixOffset(x, y)
	s := p.Pix[i : i+3 : i+3]
	return NRGBColor{s[0], s[1], s[2]}
}

func (p *NRGB) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	i := p.PixOffset(x, y)
	c1 := NRGBModel.Convert(c).(NRGBColor)
	s := p.Pix[i : i+3 : i+3]
	s[0], s[1], s[2] = c1.R, c1.G, c1.B
}

// SubImage shares pixels with p
func (p *NRGB) SubImage(r image.Rectangle) image.Image {
	r = r.Intersect(p.Rect)
	if r.Empty() {
		return &NRGB{}
	}
	i := p.PixOffset(r.Min.X, r.Min.Y)
	return &NRGB{Pix: p.Pix[i:], Stride: p.Stride, Rect: r}
}
