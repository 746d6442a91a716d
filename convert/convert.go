package convert

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/kovidgoyal/go-parallel"

	"github.com/f-spot/cms"
)

// Gray16BE is the layout of image.Gray16 pixels
const Gray16BE = cms.Gray16 | cms.FormatEndian16

// the pixel memory of an image as seen by a transform
type layout struct {
	pix           []byte
	stride        int
	width, height int
	format        cms.Format
	premultiplied bool
}

func layout_of(img image.Image) (l layout, ok bool) {
	b := img.Bounds()
	l.width, l.height = b.Dx(), b.Dy()
	switch img := img.(type) {
	case *NRGB:
		l.pix, l.stride, l.format = img.Pix, img.Stride, cms.Rgb8
	case *image.NRGBA:
		l.pix, l.stride, l.format = img.Pix, img.Stride, cms.Rgba8
	case *image.RGBA:
		l.pix, l.stride, l.format, l.premultiplied = img.Pix, img.Stride, cms.Rgba8, true
	case *image.NRGBA64:
		l.pix, l.stride, l.format = img.Pix, img.Stride, cms.Rgba16se
	case *image.RGBA64:
		l.pix, l.stride, l.format, l.premultiplied = img.Pix, img.Stride, cms.Rgba16se, true
	case *image.Gray:
		l.pix, l.stride, l.format = img.Pix, img.Stride, cms.Gray8
	case *image.Gray16:
		l.pix, l.stride, l.format = img.Pix, img.Stride, Gray16BE
	case *image.CMYK:
		l.pix, l.stride, l.format = img.Pix, img.Stride, cms.Cmyk8
	default:
		return l, false
	}
	return l, true
}

func (l layout) row(y int) []byte {
	start := y * l.stride
	return l.pix[start : start+l.width*l.format.BytesPerPixel()]
}

// FormatOf returns the transform format that matches the pixel memory of
// img. Premultiplied images report the format of their unpremultiplied
// pixels. Paletted images report the format of their palette.
func FormatOf(img image.Image) (cms.Format, bool) {
	if _, ok := img.(*image.Paletted); ok {
		return cms.Rgba8, true
	}
	l, ok := layout_of(img)
	return l.format, ok
}

func unpremultiply8(r, a uint8) uint8 {
	return uint8((uint16(min(r, a))*0xff + uint16(a)/2) / uint16(a))
}

func premultiply8(r, a uint8) uint8 {
	return uint8((uint16(r)*uint16(a) + 0x7f) / 0xff)
}

func unpremultiply(r, a uint32) uint16 {
	return uint16((min(r, a)*0xffff + a/2) / a)
}

func premultiply(r, a uint32) uint16 {
	return uint16((r*a + 0x7fff) / 0xffff)
}

func unpremultiply_row(row []byte, bytes int) {
	if bytes == 1 {
		for ; len(row) >= 4; row = row[4:] {
			if a := row[3]; a != 0 && a != 0xff {
				row[0], row[1], row[2] = unpremultiply8(row[0], a), unpremultiply8(row[1], a), unpremultiply8(row[2], a)
			}
		}
		return
	}
	for ; len(row) >= 8; row = row[8:] {
		s := row[0:8:8]
		a := uint32(s[6])<<8 | uint32(s[7])
		if a == 0 || a == 0xffff {
			continue
		}
		for i := 0; i < 6; i += 2 {
			v := unpremultiply(uint32(s[i])<<8|uint32(s[i+1]), a)
			s[i], s[i+1] = uint8(v>>8), uint8(v)
		}
	}
}

func premultiply_row(row []byte, bytes int) {
	if bytes == 1 {
		for ; len(row) >= 4; row = row[4:] {
			if a := row[3]; a != 0xff {
				row[0], row[1], row[2] = premultiply8(row[0], a), premultiply8(row[1], a), premultiply8(row[2], a)
			}
		}
		return
	}
	for ; len(row) >= 8; row = row[8:] {
		s := row[0:8:8]
		a := uint32(s[6])<<8 | uint32(s[7])
		if a == 0xffff {
			continue
		}
		for i := 0; i < 6; i += 2 {
			v := premultiply(uint32(s[i])<<8|uint32(s[i+1]), a)
			s[i], s[i+1] = uint8(v>>8), uint8(v)
		}
	}
}

// run applies t to every row of src writing into dst, spreading rows over
// goroutines. src and dst may share pixels.
func run(t *cms.Transform, src, dst layout) error {
	if src.width != dst.width || src.height != dst.height {
		return fmt.Errorf("source image is %dx%d but destination is %dx%d", src.width, src.height, dst.width, dst.height)
	}
	if src.width == 0 || src.height == 0 {
		return nil
	}
	var mu sync.Mutex
	var first_err error
	f := func(start, limit int) {
		var scratch []byte
		if src.premultiplied {
			scratch = make([]byte, src.width*src.format.BytesPerPixel())
		}
		for y := start; y < limit; y++ {
			in, out := src.row(y), dst.row(y)
			if scratch != nil {
				copy(scratch, in)
				unpremultiply_row(scratch, src.format.Bytes())
				in = scratch
			}
			if err := t.Apply(in, out, src.width); err != nil {
				mu.Lock()
				if first_err == nil {
					first_err = err
				}
				mu.Unlock()
				return
			}
			if dst.premultiplied {
				premultiply_row(out, dst.format.Bytes())
			}
		}
	}
	if err := parallel.Run_in_parallel_over_range(0, f, 0, src.height); err != nil {
		return err
	}
	return first_err
}

func apply_palette(t *cms.Transform, p *image.Paletted) error {
	buf := make([]byte, 4*len(p.Palette))
	for i, c := range p.Palette {
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		buf[4*i], buf[4*i+1], buf[4*i+2], buf[4*i+3] = n.R, n.G, n.B, n.A
	}
	if err := t.Apply(buf, buf, len(p.Palette)); err != nil {
		return err
	}
	for i := range p.Palette {
		s := buf[4*i : 4*i+4 : 4*i+4]
		p.Palette[i] = color.NRGBA{s[0], s[1], s[2], s[3]}
	}
	return nil
}

// Apply runs t over the pixels of img in place. t must have been created
// with FormatOf(img) as both its input and output format. Premultiplied
// images are unpremultiplied around the transform, so t should copy alpha.
func Apply(t *cms.Transform, img image.Image) error {
	if p, ok := img.(*image.Paletted); ok {
		return apply_palette(t, p)
	}
	l, ok := layout_of(img)
	if !ok {
		return fmt.Errorf("cannot apply a color transform to an image of type %T", img)
	}
	return run(t, l, l)
}

// ApplyTo runs t over the pixels of src writing the result into dst. t must
// convert from FormatOf(src) to FormatOf(dst).
func ApplyTo(t *cms.Transform, src, dst image.Image) error {
	sl, ok := layout_of(src)
	if !ok {
		return fmt.Errorf("cannot apply a color transform to an image of type %T", src)
	}
	dl, ok := layout_of(dst)
	if !ok {
		return fmt.Errorf("cannot write color transformed pixels into an image of type %T", dst)
	}
	return run(t, sl, dl)
}
