package cms

import (
	"fmt"
	"sync"

	"github.com/f-spot/cms/colorconv"
	"github.com/f-spot/cms/icc"
)

type profile_text struct {
	description, manufacturer, model string
}

func (t profile_text) apply(p *icc.Profile) error {
	for _, x := range []struct {
		sig  icc.Signature
		text string
	}{
		{icc.ProfileDescriptionTagSignature, t.description},
		{icc.DeviceManufacturerDescriptionSignature, t.manufacturer},
		{icc.DeviceModelDescriptionSignature, t.model},
		{icc.CopyrightTagSignature, "No copyright, use freely"},
	} {
		if x.text == "" {
			continue
		}
		if err := p.SetText(x.sig, x.text); err != nil {
			return err
		}
	}
	return nil
}

func white_xyz(wp ColorCIExyY) ColorCIEXYZ {
	return ColorCIExyY{X: wp.X, Y: wp.Y, YY: 1}.ToXYZ()
}

func check_white(wp ColorCIExyY) error {
	if !(wp.Y > 0) || wp.X < 0 || wp.X+wp.Y > 1 {
		return errorf(ErrOutOfRange, "invalid white point: %s", wp)
	}
	return nil
}

func build_rgb(wp ColorCIExyY, primaries ColorCIExyYTriple, trc [3]icc.Curve1D, text profile_text) (*icc.Profile, error) {
	if err := check_white(wp); err != nil {
		return nil, err
	}
	m, err := colorconv.RGBToXYZMatrix([2]float64{wp.X, wp.Y},
		[2]float64{primaries.Red.X, primaries.Red.Y},
		[2]float64{primaries.Green.X, primaries.Green.Y},
		[2]float64{primaries.Blue.X, primaries.Blue.Y})
	if err != nil {
		return nil, errorf(err, "cannot build RGB profile")
	}
	p := icc.NewProfile(icc.DeviceClassDisplay, icc.ColorSpaceRGB, icc.ColorSpaceXYZ)
	for col, sig := range []icc.Signature{icc.RedColorantTagSignature, icc.GreenColorantTagSignature, icc.BlueColorantTagSignature} {
		p.SetXYZ(sig, icc.XYZType{X: m[0][col], Y: m[1][col], Z: m[2][col]})
	}
	for i, sig := range []icc.Signature{icc.RedTRCTagSignature, icc.GreenTRCTagSignature, icc.BlueTRCTagSignature} {
		p.SetCurve(sig, trc[i])
	}
	p.SetXYZ(icc.MediaWhitePointTagSignature, icc.D50)
	src := white_xyz(wp)
	p.SetChromaticAdaptation(icc.Matrix3(colorconv.ChromaticAdaptationMatrix(src.vec(), colorconv.WhiteD50)))
	if err = text.apply(p); err != nil {
		return nil, errorf(err, "cannot build RGB profile")
	}
	return p, nil
}

var srgb_primaries = ColorCIExyYTriple{
	Red:   ColorCIExyY{0.64, 0.33, 1},
	Green: ColorCIExyY{0.30, 0.60, 1},
	Blue:  ColorCIExyY{0.15, 0.06, 1},
}

var d65 = ColorCIExyY{0.3127, 0.3290, 1}

var srgb = sync.OnceValue(func() *Profile {
	c := icc.SRGBCurve()
	p, err := build_rgb(d65, srgb_primaries, [3]icc.Curve1D{c, c, c}, profile_text{
		description: "sRGB built-in", manufacturer: "sRGB", model: "IEC 61966-2.1"})
	if err != nil {
		panic(err)
	}
	ans := new_profile(p)
	ans.shared = true
	return ans
})

// CreateStandardRgb returns the process wide sRGB profile. The same
// instance is returned on every call and closing it does nothing.
func CreateStandardRgb() *Profile { return srgb() }

// CreateSRgb is the same as CreateStandardRgb
func CreateSRgb() *Profile { return srgb() }

// CreateAlternateRgb creates a profile with the primaries and gamma of Adobe
// RGB (1998)
func CreateAlternateRgb() (*Profile, error) {
	g, err := icc.NewGammaCurve(2.2)
	if err != nil {
		return nil, NewError("cannot create gamma curve", err)
	}
	p, err := build_rgb(d65, ColorCIExyYTriple{
		Red:   ColorCIExyY{0.64, 0.33, 1},
		Green: ColorCIExyY{0.21, 0.71, 1},
		Blue:  ColorCIExyY{0.15, 0.06, 1},
	}, [3]icc.Curve1D{g, g, g}, profile_text{description: "Adobe RGB (compatible)", manufacturer: "Adobe RGB (compatible)"})
	if err != nil {
		return nil, err
	}
	return new_profile(p), nil
}

func tone_curves(what string, tcs []*ToneCurve) ([]icc.Curve1D, error) {
	ans := make([]icc.Curve1D, len(tcs))
	for i, t := range tcs {
		c, err := t.curve()
		if err != nil {
			return nil, errorf(err, "%s: curve %d is not usable", what, i)
		}
		ans[i] = c
	}
	return ans, nil
}

// NewRgbProfile creates a matrix/TRC profile from a white point, the
// chromaticities of the primaries and one transfer curve per channel
func NewRgbProfile(wp ColorCIExyY, primaries ColorCIExyYTriple, transfer []*ToneCurve) (*Profile, error) {
	if len(transfer) != 3 {
		return nil, errorf(ErrOutOfRange, "RGB profiles need 3 transfer curves, got %d", len(transfer))
	}
	c, err := tone_curves("cannot create RGB profile", transfer)
	if err != nil {
		return nil, err
	}
	p, err := build_rgb(wp, primaries, [3]icc.Curve1D{c[0], c[1], c[2]}, profile_text{description: "RGB built-in"})
	if err != nil {
		return nil, err
	}
	return new_profile(p), nil
}

// CreateLab creates an identity Lab profile with the specified media white
func CreateLab(wp ColorCIExyY) (*Profile, error) {
	if err := check_white(wp); err != nil {
		return nil, err
	}
	p := icc.NewProfile(icc.DeviceClassColorSpace, icc.ColorSpaceLab, icc.ColorSpaceLab)
	p.SetXYZ(icc.MediaWhitePointTagSignature, white_xyz(wp).icc())
	if err := (profile_text{description: "Lab identity built-in"}).apply(p); err != nil {
		return nil, NewError("cannot create Lab profile", err)
	}
	return new_profile(p), nil
}

func CreateLabD50() (*Profile, error) { return CreateLab(D50xyY) }

// CreateXYZ creates an identity XYZ profile
func CreateXYZ() (*Profile, error) {
	p := icc.NewProfile(icc.DeviceClassColorSpace, icc.ColorSpaceXYZ, icc.ColorSpaceXYZ)
	p.SetXYZ(icc.MediaWhitePointTagSignature, icc.D50)
	if err := (profile_text{description: "XYZ identity built-in"}).apply(p); err != nil {
		return nil, NewError("cannot create XYZ profile", err)
	}
	return new_profile(p), nil
}

// CreateGray creates a monochrome profile. A nil transfer curve means gamma
// 2.2.
func CreateGray(wp ColorCIExyY, transfer *ToneCurve) (*Profile, error) {
	if err := check_white(wp); err != nil {
		return nil, err
	}
	var c icc.Curve1D
	var err error
	if transfer == nil {
		c, err = icc.NewGammaCurve(2.2)
	} else {
		c, err = transfer.curve()
	}
	if err != nil {
		return nil, errorf(err, "cannot create gray profile")
	}
	p := icc.NewProfile(icc.DeviceClassDisplay, icc.ColorSpaceGray, icc.ColorSpaceXYZ)
	p.SetXYZ(icc.MediaWhitePointTagSignature, white_xyz(wp).icc())
	p.SetCurve(icc.GrayTRCTagSignature, c)
	if err := (profile_text{description: "Gray built-in"}).apply(p); err != nil {
		return nil, NewError("cannot create gray profile", err)
	}
	return new_profile(p), nil
}

// Samples per curve in the lut16 tables written for curve based profiles
const lut_table_entries = 4096

func sample_curve(c icc.Curve1D, n int) []float64 {
	ans := make([]float64, n)
	for i := range ans {
		ans[i] = c.Transform(float64(i) / float64(n-1))
	}
	return ans
}

// NewLinearizationProfile creates a device link that applies one curve per
// channel of space
func NewLinearizationProfile(space IccColorSpace, transfer []*ToneCurve) (*Profile, error) {
	n := space.NumChannels()
	if n == 0 {
		return nil, errorf(ErrOutOfRange, "unknown color space: %s", space)
	}
	if len(transfer) != n {
		return nil, errorf(ErrOutOfRange, "color space %s needs %d curves, got %d", space, n, len(transfer))
	}
	c, err := tone_curves("cannot create linearization profile", transfer)
	if err != nil {
		return nil, err
	}
	tables := make([][]float64, n)
	identity := make([][]float64, n)
	for i, x := range c {
		tables[i] = sample_curve(x, lut_table_entries)
		identity[i] = icc.IdentityTable(2)
	}
	clut, err := icc.SampleCLUT(n, n, icc.UniformGrid(n, 2), func(out, in []float64) { copy(out, in) })
	if err != nil {
		return nil, errorf(err, "cannot create linearization profile")
	}
	lut, err := icc.EncodeMFT16(tables, clut, identity)
	if err != nil {
		return nil, errorf(err, "cannot create linearization profile")
	}
	p := icc.NewProfile(icc.DeviceClassLink, icc.ColorSpace(space), icc.ColorSpace(space))
	p.TagTable.Set(icc.AToB0TagSignature, lut)
	if err = (profile_text{description: fmt.Sprintf("%s linearization built-in", space)}).apply(p); err != nil {
		return nil, NewError("cannot create linearization profile", err)
	}
	return new_profile(p), nil
}
