package cms

import (
	"fmt"

	"github.com/f-spot/cms/icc"
)

// IccColorSpace is the ICC signature of a profile data or connection space
type IccColorSpace uint32

const (
	ColorSpaceXYZ     = IccColorSpace(icc.ColorSpaceXYZ)
	ColorSpaceLab     = IccColorSpace(icc.ColorSpaceLab)
	ColorSpaceLuv     = IccColorSpace(icc.ColorSpaceLuv)
	ColorSpaceYCbCr   = IccColorSpace(icc.ColorSpaceYCbCr)
	ColorSpaceYxy     = IccColorSpace(icc.ColorSpaceYxy)
	ColorSpaceRgb     = IccColorSpace(icc.ColorSpaceRGB)
	ColorSpaceGray    = IccColorSpace(icc.ColorSpaceGray)
	ColorSpaceHsv     = IccColorSpace(icc.ColorSpaceHSV)
	ColorSpaceHls     = IccColorSpace(icc.ColorSpaceHLS)
	ColorSpaceCmyk    = IccColorSpace(icc.ColorSpaceCMYK)
	ColorSpaceCmy     = IccColorSpace(icc.ColorSpaceCMY)
	ColorSpaceColor2  = IccColorSpace(icc.ColorSpace2Color)
	ColorSpaceColor3  = IccColorSpace(icc.ColorSpace3Color)
	ColorSpaceColor4  = IccColorSpace(icc.ColorSpace4Color)
	ColorSpaceColor5  = IccColorSpace(icc.ColorSpace5Color)
	ColorSpaceColor6  = IccColorSpace(icc.ColorSpace6Color)
	ColorSpaceColor7  = IccColorSpace(icc.ColorSpace7Color)
	ColorSpaceColor8  = IccColorSpace(icc.ColorSpace8Color)
	ColorSpaceColor9  = IccColorSpace(icc.ColorSpace9Color)
	ColorSpaceColor10 = IccColorSpace(icc.ColorSpace10Color)
	ColorSpaceColor11 = IccColorSpace(icc.ColorSpace11Color)
	ColorSpaceColor12 = IccColorSpace(icc.ColorSpace12Color)
	ColorSpaceColor13 = IccColorSpace(icc.ColorSpace13Color)
	ColorSpaceColor14 = IccColorSpace(icc.ColorSpace14Color)
	ColorSpaceColor15 = IccColorSpace(icc.ColorSpace15Color)
)

var color_space_names = map[IccColorSpace]string{
	ColorSpaceXYZ: "XYZ", ColorSpaceLab: "Lab", ColorSpaceLuv: "Luv", ColorSpaceYCbCr: "YCbCr",
	ColorSpaceYxy: "Yxy", ColorSpaceRgb: "Rgb", ColorSpaceGray: "Gray", ColorSpaceHsv: "Hsv",
	ColorSpaceHls: "Hls", ColorSpaceCmyk: "Cmyk", ColorSpaceCmy: "Cmy",
}

func (c IccColorSpace) String() string {
	if n, ok := color_space_names[c]; ok {
		return n
	}
	if c.NumChannels() > 0 {
		return fmt.Sprintf("Color%d", c.NumChannels())
	}
	return fmt.Sprintf("IccColorSpace(%s)", icc.Signature(c))
}

func (c IccColorSpace) NumChannels() int { return icc.ColorSpace(c).NumComponents() }

// IccProfileClass is the ICC device class of a profile
type IccProfileClass uint32

const (
	ProfileClassInput      = IccProfileClass(icc.DeviceClassInput)
	ProfileClassDisplay    = IccProfileClass(icc.DeviceClassDisplay)
	ProfileClassOutput     = IccProfileClass(icc.DeviceClassOutput)
	ProfileClassLink       = IccProfileClass(icc.DeviceClassLink)
	ProfileClassAbstract   = IccProfileClass(icc.DeviceClassAbstract)
	ProfileClassColorSpace = IccProfileClass(icc.DeviceClassColorSpace)
	ProfileClassNamedColor = IccProfileClass(icc.DeviceClassNamedColor)
)

func (c IccProfileClass) String() string {
	switch c {
	case ProfileClassInput:
		return "Input"
	case ProfileClassDisplay:
		return "Display"
	case ProfileClassOutput:
		return "Output"
	case ProfileClassLink:
		return "Link"
	case ProfileClassAbstract:
		return "Abstract"
	case ProfileClassColorSpace:
		return "ColorSpace"
	case ProfileClassNamedColor:
		return "NamedColor"
	}
	return fmt.Sprintf("IccProfileClass(%s)", icc.Signature(c))
}

type Intent uint32

const (
	Perceptual           = Intent(icc.PerceptualRenderingIntent)
	RelativeColorimetric = Intent(icc.RelativeColorimetricRenderingIntent)
	Saturation           = Intent(icc.SaturationRenderingIntent)
	AbsoluteColorimetric = Intent(icc.AbsoluteColorimetricRenderingIntent)
)

func (i Intent) String() string { return icc.RenderingIntent(i).String() }

func (i Intent) valid() bool { return i <= AbsoluteColorimetric }
