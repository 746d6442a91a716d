package icc

import (
	"fmt"
)

type ColorSpace Signature

const (
	ColorSpaceXYZ     ColorSpace = 0x58595A20 // 'XYZ '
	ColorSpaceLab     ColorSpace = 0x4C616220 // 'Lab '
	ColorSpaceLuv     ColorSpace = 0x4C757620 // 'Luv '
	ColorSpaceYCbCr   ColorSpace = 0x59436272 // 'YCbr'
	ColorSpaceYxy     ColorSpace = 0x59787920 // 'Yxy '
	ColorSpaceRGB     ColorSpace = 0x52474220 // 'RGB '
	ColorSpaceGray    ColorSpace = 0x47524159 // 'GRAY'
	ColorSpaceHSV     ColorSpace = 0x48535620 // 'HSV '
	ColorSpaceHLS     ColorSpace = 0x484C5320 // 'HLS '
	ColorSpaceCMYK    ColorSpace = 0x434D594B // 'CMYK'
	ColorSpaceCMY     ColorSpace = 0x434D5920 // 'CMY '
	ColorSpace2Color  ColorSpace = 0x32434C52 // '2CLR'
	ColorSpace3Color  ColorSpace = 0x33434C52 // '3CLR'
	ColorSpace4Color  ColorSpace = 0x34434C52 // '4CLR'
	ColorSpace5Color  ColorSpace = 0x35434C52 // '5CLR'
	ColorSpace6Color  ColorSpace = 0x36434C52 // '6CLR'
	ColorSpace7Color  ColorSpace = 0x37434C52 // '7CLR'
	ColorSpace8Color  ColorSpace = 0x38434C52 // '8CLR'
	ColorSpace9Color  ColorSpace = 0x39434C52 // '9CLR'
	ColorSpace10Color ColorSpace = 0x41434C52 // 'ACLR'
	ColorSpace11Color ColorSpace = 0x42434C52 // 'BCLR'
	ColorSpace12Color ColorSpace = 0x43434C52 // 'CCLR'
	ColorSpace13Color ColorSpace = 0x44434C52 // 'DCLR'
	ColorSpace14Color ColorSpace = 0x45434C52 // 'ECLR'
	ColorSpace15Color ColorSpace = 0x46434C52 // 'FCLR'
)

func (c ColorSpace) String() string { return Signature(c).String() }

// NumComponents returns the number of channels for a color space or zero if
// the color space is not known.
func (c ColorSpace) NumComponents() int {
	switch c {
	case ColorSpaceGray:
		return 1
	case ColorSpace2Color:
		return 2
	case ColorSpaceXYZ, ColorSpaceLab, ColorSpaceLuv, ColorSpaceYCbCr, ColorSpaceYxy, ColorSpaceRGB,
		ColorSpaceHSV, ColorSpaceHLS, ColorSpaceCMY, ColorSpace3Color:
		return 3
	case ColorSpaceCMYK, ColorSpace4Color:
		return 4
	}
	if c >= ColorSpace5Color && c <= ColorSpace9Color {
		return int(5 + (c-ColorSpace5Color)>>24)
	}
	if c >= ColorSpace10Color && c <= ColorSpace15Color {
		return int(10 + (c-ColorSpace10Color)>>24)
	}
	return 0
}

// IsPCS returns true for the two color spaces that can act as a profile
// connection space
func (c ColorSpace) IsPCS() bool {
	return c == ColorSpaceXYZ || c == ColorSpaceLab
}

// BlackPoint returns the normalized device values of the darkest colorant
// for the color space, or nil if there is no meaningful black.
func (c ColorSpace) BlackPoint() []unit_float {
	switch c {
	case ColorSpaceGray:
		return []unit_float{0}
	case ColorSpaceRGB:
		return []unit_float{0, 0, 0}
	case ColorSpaceCMY:
		return []unit_float{1, 1, 1}
	case ColorSpaceCMYK:
		return []unit_float{1, 1, 1, 1}
	}
	return nil
}

type DeviceClass Signature

const (
	DeviceClassInput      DeviceClass = 0x73636E72 // 'scnr'
	DeviceClassDisplay    DeviceClass = 0x6D6E7472 // 'mntr'
	DeviceClassOutput     DeviceClass = 0x70727472 // 'prtr'
	DeviceClassLink       DeviceClass = 0x6C696E6B // 'link'
	DeviceClassAbstract   DeviceClass = 0x61627374 // 'abst'
	DeviceClassColorSpace DeviceClass = 0x73706163 // 'spac'
	DeviceClassNamedColor DeviceClass = 0x6E6D636C // 'nmcl'
)

func (c DeviceClass) String() string { return Signature(c).String() }

type RenderingIntent uint32

const (
	PerceptualRenderingIntent           RenderingIntent = 0
	RelativeColorimetricRenderingIntent RenderingIntent = 1
	SaturationRenderingIntent           RenderingIntent = 2
	AbsoluteColorimetricRenderingIntent RenderingIntent = 3
)

func (i RenderingIntent) String() string {
	switch i {
	case PerceptualRenderingIntent:
		return "Perceptual"
	case RelativeColorimetricRenderingIntent:
		return "RelativeColorimetric"
	case SaturationRenderingIntent:
		return "Saturation"
	case AbsoluteColorimetricRenderingIntent:
		return "AbsoluteColorimetric"
	default:
		return fmt.Sprintf("RenderingIntent(%d)", uint32(i))
	}
}
