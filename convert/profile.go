package convert

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/f-spot/cms"
)

// IsOpaque reports whether img declares itself fully opaque
func IsOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

func is_sixteen_bit(img image.Image) bool {
	switch img.ColorModel() {
	case color.RGBA64Model, color.NRGBA64Model, color.Gray16Model, color.Alpha16Model:
		return true
	}
	return false
}

func redraw(img image.Image, d draw.Image) image.Image {
	draw.Draw(d, d.Bounds(), img, img.Bounds().Min, draw.Src)
	return d
}

// Normalize returns img itself when its pixels can be handed directly to a
// transform for profiles with the data color space cs, otherwise a copy of
// img in such a layout.
func Normalize(img image.Image, cs cms.IccColorSpace) (image.Image, error) {
	b := img.Bounds()
	switch cs {
	case cms.ColorSpaceRgb:
		switch img.(type) {
		case *NRGB, *image.NRGBA, *image.RGBA, *image.NRGBA64, *image.RGBA64, *image.Paletted:
			return img, nil
		}
		switch {
		case is_sixteen_bit(img):
			return redraw(img, image.NewNRGBA64(b)), nil
		case IsOpaque(img):
			return redraw(img, NewNRGB(b)), nil
		}
		return redraw(img, image.NewNRGBA(b)), nil
	case cms.ColorSpaceGray:
		switch img.(type) {
		case *image.Gray, *image.Gray16:
			return img, nil
		}
		if is_sixteen_bit(img) {
			return redraw(img, image.NewGray16(b)), nil
		}
		return redraw(img, image.NewGray(b)), nil
	case cms.ColorSpaceCmyk:
		if _, ok := img.(*image.CMYK); ok {
			return img, nil
		}
		return redraw(img, image.NewCMYK(b)), nil
	}
	return nil, fmt.Errorf("images cannot hold pixels in the %s color space", cs)
}

// new_like allocates an image in the color space cs keeping the bit depth
// and alpha of the layout l
func new_like(b image.Rectangle, l layout, cs cms.IccColorSpace) (image.Image, error) {
	sixteen, alpha := l.format.Bytes() == 2, l.format.Extra() > 0
	switch cs {
	case cms.ColorSpaceRgb:
		switch {
		case sixteen:
			return image.NewNRGBA64(b), nil
		case alpha:
			return image.NewNRGBA(b), nil
		}
		return NewNRGB(b), nil
	case cms.ColorSpaceGray:
		if sixteen {
			return image.NewGray16(b), nil
		}
		return image.NewGray(b), nil
	case cms.ColorSpaceCmyk:
		return image.NewCMYK(b), nil
	}
	return nil, fmt.Errorf("images cannot hold pixels in the %s color space", cs)
}

// ToProfile converts img from the src profile to the dest profile. When both
// profiles have the same data color space and img already has a suitable
// layout the pixels of img are modified in place and img is returned.
// Otherwise a new image is returned.
func ToProfile(img image.Image, src, dest *cms.Profile, intent cms.Intent, flags cms.Flags) (image.Image, error) {
	in_space, out_space := src.ColorSpace(), dest.ColorSpace()
	img, err := Normalize(img, in_space)
	if err != nil {
		return nil, err
	}
	if p, ok := img.(*image.Paletted); ok {
		if out_space == cms.ColorSpaceRgb {
			t, err := cms.NewTransform(src, cms.Rgba8, dest, cms.Rgba8, intent, flags|cms.CopyAlpha)
			if err != nil {
				return nil, err
			}
			defer t.Close()
			if err = apply_palette(t, p); err != nil {
				return nil, err
			}
			return img, nil
		}
		img = redraw(img, image.NewNRGBA(p.Bounds()))
	}
	sl, _ := layout_of(img)
	dst := img
	if in_space != out_space {
		if dst, err = new_like(img.Bounds(), sl, out_space); err != nil {
			return nil, err
		}
	}
	dl, _ := layout_of(dst)
	if sl.format.Extra() > 0 && dl.format.Extra() > 0 {
		flags |= cms.CopyAlpha
	}
	t, err := cms.NewTransform(src, sl.format, dest, dl.format, intent, flags)
	if err != nil {
		return nil, err
	}
	defer t.Close()
	if err = run(t, sl, dl); err != nil {
		return nil, err
	}
	return dst, nil
}

// to_rgb8 returns img as an 8 bit unpremultiplied RGB image, copying it
// only when needed
func to_rgb8(img image.Image) image.Image {
	switch img.(type) {
	case *NRGB, *image.NRGBA:
		return img
	}
	if IsOpaque(img) {
		return redraw(img, NewNRGB(img.Bounds()))
	}
	return redraw(img, image.NewNRGBA(img.Bounds()))
}

// ColorAdjust returns a copy of img with brightness, contrast, hue and
// saturation adjusted and its white point moved from the color temperature
// srcTemp to destTemp. The adjustment is performed in Lab by an abstract
// profile placed between two sRGB profiles. The result is 8 bit, with
// alpha only if img has alpha.
func ColorAdjust(img image.Image, brightness, contrast, hue, saturation float64, srcTemp, destTemp int) (image.Image, error) {
	src := to_rgb8(img)
	sl, _ := layout_of(src)
	dst, err := new_like(src.Bounds(), sl, cms.ColorSpaceRgb)
	if err != nil {
		return nil, err
	}
	bchsw, err := cms.CreateAbstract(cms.MaxAbstractGridPoints, cms.AbstractParams{
		Bright: brightness, Contrast: contrast, Hue: hue, Saturation: saturation,
	}, srcTemp, destTemp)
	if err != nil {
		return nil, err
	}
	defer bchsw.Close()
	srgb := cms.CreateStandardRgb()
	flags := cms.NoPrecalc
	if sl.format.Extra() > 0 {
		flags |= cms.CopyAlpha
	}
	t, err := cms.NewMultiProfileTransform([]*cms.Profile{srgb, bchsw, srgb}, sl.format, sl.format, cms.Perceptual, flags)
	if err != nil {
		return nil, err
	}
	defer t.Close()
	if err = ApplyTo(t, src, dst); err != nil {
		return nil, err
	}
	return dst, nil
}
