package cms

import (
	"fmt"
	"strings"
)

// Format describes the memory layout of a pixel buffer using the bit layout
// of lcms TYPE_* constants:
//
//	bits 0-2   bytes per sample
//	bits 3-6   color channels
//	bits 7-9   extra (alpha) channels
//	bit  10    channels in reverse order
//	bit  11    16 bit samples are big endian
//	bit  12    planar rather than interleaved
//	bit  13    values are inverted, 0 is white
//	bit  14    first sample moved to the end
//	bits 16-20 pixel type
type Format uint32

type PixelType uint32

const (
	PixelTypeAny   PixelType = 0
	PixelTypeGray  PixelType = 3
	PixelTypeRgb   PixelType = 4
	PixelTypeCmy   PixelType = 5
	PixelTypeCmyk  PixelType = 6
	PixelTypeYCbCr PixelType = 7
	PixelTypeXYZ   PixelType = 9
	PixelTypeLab   PixelType = 10
	PixelTypeHsv   PixelType = 12
	PixelTypeHls   PixelType = 13
	PixelTypeYxy   PixelType = 14
)

const (
	FormatDoSwap    Format = 1 << 10
	FormatEndian16  Format = 1 << 11
	FormatPlanar    Format = 1 << 12
	FormatFlavor    Format = 1 << 13
	FormatSwapFirst Format = 1 << 14
)

const (
	Rgb8        Format = 262169
	Rgba8       Format = 262297
	Rgba8Planar Format = 266393
	Gbr8        Format = 263193
	Rgb16       Format = 262170
	Rgb16Planar Format = 266266
	Rgba16      Format = 262298
	Rgba16se    Format = 264346
	Rgb16se     Format = 264218
	Lab8        Format = 655385
	Lab16       Format = 655386
	Xyz16       Format = 589850
	Yxy16       Format = 917530
	Gray8       Format = 196617
	Gray16      Format = 196618
	Cmyk8       Format = 393249
	Bgra8       Format = 279705
	Argb8       Format = 278681
)

func NewFormat(pt PixelType, channels, extra, bytes int) Format {
	return Format(uint32(pt)<<16 | uint32(extra&7)<<7 | uint32(channels&15)<<3 | uint32(bytes&7))
}

func (f Format) Bytes() int           { return int(f & 7) }
func (f Format) Channels() int        { return int(f>>3) & 15 }
func (f Format) Extra() int           { return int(f>>7) & 7 }
func (f Format) DoSwap() bool         { return f&FormatDoSwap != 0 }
func (f Format) Endian16() bool       { return f&FormatEndian16 != 0 }
func (f Format) Planar() bool         { return f&FormatPlanar != 0 }
func (f Format) Flavor() bool         { return f&FormatFlavor != 0 }
func (f Format) SwapFirst() bool      { return f&FormatSwapFirst != 0 }
func (f Format) PixelType() PixelType { return PixelType(f>>16) & 31 }

// BytesPerPixel is the size of one pixel including extra channels
func (f Format) BytesPerPixel() int { return (f.Channels() + f.Extra()) * f.Bytes() }

// ColorSpace is the profile color space that matches the pixel type. Yxy
// data is exchanged with XYZ profiles.
func (p PixelType) ColorSpace() (IccColorSpace, bool) {
	switch p {
	case PixelTypeGray:
		return ColorSpaceGray, true
	case PixelTypeRgb:
		return ColorSpaceRgb, true
	case PixelTypeCmy:
		return ColorSpaceCmy, true
	case PixelTypeCmyk:
		return ColorSpaceCmyk, true
	case PixelTypeYCbCr:
		return ColorSpaceYCbCr, true
	case PixelTypeXYZ, PixelTypeYxy:
		return ColorSpaceXYZ, true
	case PixelTypeLab:
		return ColorSpaceLab, true
	case PixelTypeHsv:
		return ColorSpaceHsv, true
	case PixelTypeHls:
		return ColorSpaceHls, true
	}
	return 0, false
}

func (p PixelType) String() string {
	switch p {
	case PixelTypeAny:
		return "Any"
	case PixelTypeYxy:
		return "Yxy"
	}
	if cs, ok := p.ColorSpace(); ok {
		return cs.String()
	}
	return fmt.Sprintf("PixelType(%d)", uint32(p))
}

var format_names = map[Format]string{
	Rgb8: "Rgb8", Rgba8: "Rgba8", Rgba8Planar: "Rgba8Planar", Gbr8: "Gbr8", Rgb16: "Rgb16",
	Rgb16Planar: "Rgb16Planar", Rgba16: "Rgba16", Rgba16se: "Rgba16se", Rgb16se: "Rgb16se",
	Lab8: "Lab8", Lab16: "Lab16", Xyz16: "Xyz16", Yxy16: "Yxy16", Gray8: "Gray8", Gray16: "Gray16",
	Cmyk8: "Cmyk8", Bgra8: "Bgra8", Argb8: "Argb8",
}

func (f Format) String() string {
	if n, ok := format_names[f]; ok {
		return n
	}
	parts := []string{fmt.Sprintf("%s %d+%d channels %d bytes", f.PixelType(), f.Channels(), f.Extra(), f.Bytes())}
	for _, x := range []struct {
		set  bool
		name string
	}{{f.DoSwap(), "swap"}, {f.SwapFirst(), "swapfirst"}, {f.Planar(), "planar"}, {f.Endian16(), "bigendian"}, {f.Flavor(), "inverted"}} {
		if x.set {
			parts = append(parts, x.name)
		}
	}
	return "Format{" + strings.Join(parts, " ") + "}"
}

// Validate checks that the format describes a layout that can be packed
func (f Format) Validate() error {
	if b := f.Bytes(); b != 1 && b != 2 {
		return errorf(ErrOutOfRange, "%s: only 8 and 16 bit samples are supported", f)
	}
	if f.Channels() == 0 {
		return errorf(ErrOutOfRange, "%s: has no color channels", f)
	}
	pt := f.PixelType()
	if pt == PixelTypeAny {
		return nil
	}
	cs, ok := pt.ColorSpace()
	if !ok {
		return errorf(ErrOutOfRange, "%s: unsupported pixel type", f)
	}
	if cs.NumChannels() != f.Channels() {
		return errorf(ErrOutOfRange, "%s: %s pixels have %d channels", f, pt, cs.NumChannels())
	}
	return nil
}
