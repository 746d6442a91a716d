package cms

import (
	"math"

	"github.com/f-spot/cms/icc"
)

// Grids larger than this give no visible gain for the smooth adjustments
// of an abstract profile and cost a cubic amount of work to sample
const MaxAbstractGridPoints = 33

// AbstractParams are the adjustments applied by an abstract BCHSW profile.
// All zero values mean no change.
type AbstractParams struct {
	// Multiplier for L, values <= 0 mean 1
	Exposure float64
	// Exponent of the gamma curve on L is 10^(-Bright/100). Only used when
	// Tables is nil.
	Bright float64
	// In [-100, 100]
	Contrast float64
	// Rotation of the hue in degrees
	Hue float64
	// Added to the chroma
	Saturation float64
	// Curves applied to the L, a and b axes before the adjustments. When nil
	// a gamma curve of 10^(-Bright/100) is used on L.
	Tables []*ToneCurve
}

type bchsw struct {
	AbstractParams
	src, dest ColorCIEXYZ
	adapt     bool
}

func contrast_power(c float64) float64 {
	switch {
	case c < 0:
		return 1 + c/100
	case c >= 100:
		return 200
	}
	return 1 / (1 - c/100)
}

func (b *bchsw) apply(lab ColorCIELab) ColorCIELab {
	if b.adapt {
		lab = lab.ToXYZ(b.src).ToLab(b.dest)
	}
	if b.Contrast != 0 {
		l := lab.L / 100
		shift := l > 0.5
		if shift {
			l = 1 - l
		}
		l = 0.5 * math.Pow(2*max(l, 0), contrast_power(b.Contrast))
		if shift {
			l = 1 - l
		}
		lab.L = 100 * l
	}
	lch := lab.ToLCh()
	lch.L = lch.L * if_else(b.Exposure > 0, b.Exposure, 1)
	lch.C = max(0, lch.C+b.Saturation)
	lch.H += b.Hue
	return lch.ToLab()
}

// CreateAbstract creates an abstract Lab profile applying the adjustments in
// params and moving the white from the black body color of tempSrc to that
// of tempDest. The brightness is always applied through a gamma curve on L.
func CreateAbstract(grid_points int, params AbstractParams, tempSrc, tempDest int) (*Profile, error) {
	src, err := WhitePointFromTemperature(tempSrc)
	if err != nil {
		return nil, err
	}
	dest, err := WhitePointFromTemperature(tempDest)
	if err != nil {
		return nil, err
	}
	gamma, line, err := brightness_tables(params.Bright)
	if err != nil {
		return nil, err
	}
	defer gamma.Close()
	defer line.Close()
	params.Tables = []*ToneCurve{gamma, line, line}
	params.Bright = 0
	return CreateAbstractWhitePoints(grid_points, params, src, dest)
}

func brightness_tables(bright float64) (gamma, line *ToneCurve, err error) {
	if gamma, err = NewToneCurve(math.Pow(10, -bright/100)); err != nil {
		return
	}
	if line, err = NewToneCurve(1); err != nil {
		gamma.Close()
	}
	return
}

// CreateAbstractWhitePoints is the same as CreateAbstract except that the
// source and destination whites are given explicitly
func CreateAbstractWhitePoints(grid_points int, params AbstractParams, srcWp, destWp ColorCIExyY) (*Profile, error) {
	if grid_points < 2 {
		return nil, errorf(ErrOutOfRange, "an abstract profile needs at least 2 grid points, got %d", grid_points)
	}
	grid_points = min(grid_points, MaxAbstractGridPoints)
	if err := check_white(srcWp); err != nil {
		return nil, err
	}
	if err := check_white(destWp); err != nil {
		return nil, err
	}
	tables := params.Tables
	if tables == nil {
		gamma, line, err := brightness_tables(params.Bright)
		if err != nil {
			return nil, err
		}
		defer gamma.Close()
		defer line.Close()
		tables = []*ToneCurve{gamma, line, line}
	}
	params.Bright = 0
	if len(tables) != 3 {
		return nil, errorf(ErrOutOfRange, "an abstract profile needs 3 curves, got %d", len(tables))
	}
	curves, err := tone_curves("cannot create abstract profile", tables)
	if err != nil {
		return nil, err
	}
	b := bchsw{AbstractParams: params, src: white_xyz(srcWp), dest: white_xyz(destWp)}
	b.adapt = b.src != b.dest
	to_lab, from_lab := icc.NewNormalizedToLab(true), icc.NewLabToNormalized(true)
	clut, err := icc.SampleCLUT(3, 3, icc.UniformGrid(3, grid_points), func(out, in []float64) {
		var v [3]float64
		to_lab.Transform(v[:], in)
		lab := b.apply(ColorCIELab{v[0], v[1], v[2]})
		from_lab.Transform(out, []float64{lab.L, lab.A, lab.B})
		for i := range 3 {
			out[i] = min(max(out[i], 0), 1)
		}
	})
	if err != nil {
		return nil, errorf(err, "cannot create abstract profile")
	}
	input := make([][]float64, 3)
	output := make([][]float64, 3)
	for i, c := range curves {
		input[i] = sample_curve(c, lut_table_entries)
		output[i] = icc.IdentityTable(2)
	}
	lut, err := icc.EncodeMFT16(input, clut, output)
	if err != nil {
		return nil, errorf(err, "cannot create abstract profile")
	}
	p := icc.NewProfile(icc.DeviceClassAbstract, icc.ColorSpaceLab, icc.ColorSpaceLab)
	p.TagTable.Set(icc.AToB0TagSignature, lut)
	p.SetXYZ(icc.MediaWhitePointTagSignature, icc.D50)
	if err = (profile_text{description: "BCHSW abstract profile"}).apply(p); err != nil {
		return nil, NewError("cannot create abstract profile", err)
	}
	return new_profile(p), nil
}
