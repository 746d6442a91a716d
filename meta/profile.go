package meta

import (
	"fmt"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	exif_tiff "github.com/rwcarlsen/goexif/tiff"

	"github.com/f-spot/cms"
)

// Values of the EXIF ColorSpace tag
const (
	exif_color_space_srgb         = 1
	exif_color_space_uncalibrated = 0xffff
)

// gamma assumed for images that only describe their primaries
const exif_gamma = 2.2

func rationals(tag *exif_tiff.Tag, n int) ([]float64, bool) {
	if tag == nil || tag.Format() != exif_tiff.RatVal || int(tag.Count) < n {
		return nil, false
	}
	ans := make([]float64, n)
	for i := range n {
		num, den, err := tag.Rat2(i)
		if err != nil || den == 0 {
			return nil, false
		}
		ans[i] = float64(num) / float64(den)
	}
	return ans, true
}

// chromaticities reads the TIFF WhitePoint and PrimaryChromaticities tags
// from IFD0
func chromaticities(x *exif.Exif) (wp cms.ColorCIExyY, primaries cms.ColorCIExyYTriple, ok bool) {
	if x.Tiff == nil || len(x.Tiff.Dirs) == 0 {
		return
	}
	d := x.Tiff.Dirs[0]
	w, ok := rationals(find_tag(d, tag_white_point), 2)
	if !ok {
		return
	}
	p, ok := rationals(find_tag(d, tag_primary_chromaticities), 6)
	if !ok {
		return
	}
	wp = cms.ColorCIExyY{X: w[0], Y: w[1], YY: 1}
	primaries = cms.ColorCIExyYTriple{
		Red:   cms.ColorCIExyY{X: p[0], Y: p[1], YY: 1},
		Green: cms.ColorCIExyY{X: p[2], Y: p[3], YY: 1},
		Blue:  cms.ColorCIExyY{X: p[4], Y: p[5], YY: 1},
	}
	return wp, primaries, true
}

func exif_int(x *exif.Exif, name exif.FieldName) (int, bool) {
	tag, err := x.Get(name)
	if err != nil || tag.Count < 1 {
		return 0, false
	}
	v, err := tag.Int(0)
	return v, err == nil
}

func exif_string(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimRight(s, "\x00 ")
}

// ExifProfile chooses a profile from EXIF tags. The ColorSpace tag selects
// sRGB, an uncalibrated color space with the "R03" interoperability index
// is Adobe RGB, and explicit white point and primaries give a custom RGB
// profile. nil is returned when the tags describe no color space.
func ExifProfile(x *exif.Exif) (*cms.Profile, error) {
	if x == nil {
		return nil, nil
	}
	if cs, ok := exif_int(x, exif.ColorSpace); ok {
		switch {
		case cs == exif_color_space_srgb:
			return cms.CreateSRgb(), nil
		case cs == exif_color_space_uncalibrated && exif_string(x, exif.InteroperabilityIndex) == "R03":
			return cms.CreateAlternateRgb()
		}
	}
	wp, primaries, ok := chromaticities(x)
	if !ok {
		return nil, nil
	}
	curves := make([]*cms.ToneCurve, 3)
	for i := range curves {
		c, err := cms.NewToneCurve(exif_gamma)
		if err != nil {
			return nil, err
		}
		defer c.Close()
		curves[i] = c
	}
	p, err := cms.NewRgbProfile(wp, primaries, curves)
	if err != nil {
		return nil, fmt.Errorf("EXIF chromaticities do not describe a valid RGB space: %w", err)
	}
	return p, nil
}

// Profile chooses the color profile of the image: the embedded ICC profile
// when present and valid, otherwise the one described by the EXIF data. A
// nil profile with a nil error means the image does not specify its color
// space. The caller must Close the returned profile.
func (md *Data) Profile() (*cms.Profile, error) {
	p, icc_err := md.ICCProfile()
	if p != nil {
		return p, nil
	}
	x, err := md.Exif()
	if err == nil {
		if p, err = ExifProfile(x); p != nil {
			return p, nil
		}
	}
	if icc_err != nil {
		return nil, fmt.Errorf("the embedded color profile is not usable: %w", icc_err)
	}
	return nil, err
}
