package cms

import (
	"math"
	"sync"
)

const (
	MinCCT = 1000
	MaxCCT = 25000
)

type cct_entry struct{ x, y float64 }

const (
	cmf_first_wavelength = 360
	cmf_step             = 5
	// second radiation constant in m·K
	planck_c2 = 1.4388e-2
)

// CIE 1931 2° standard observer, x̄ ȳ z̄ every 5nm from 360nm to 830nm
var cie1931_cmf = [...][3]float64{
	{0.0001299, 3.917e-6, 0.0006061},
	{0.0002321, 6.965e-6, 0.001086},
	{0.0004149, 1.239e-5, 0.001946},
	{0.0007416, 2.202e-5, 0.003486},
	{0.001368, 3.9e-5, 0.00645},
	{0.002236, 6.4e-5, 0.01055},
	{0.004243, 0.00012, 0.02005},
	{0.00765, 0.000217, 0.03621},
	{0.01431, 0.000396, 0.06785},
	{0.02319, 0.00064, 0.1102},
	{0.04351, 0.00121, 0.2074},
	{0.07763, 0.00218, 0.3713},
	{0.13438, 0.004, 0.6456},
	{0.21477, 0.0073, 1.03905},
	{0.2839, 0.0116, 1.3856},
	{0.3285, 0.01684, 1.62296},
	{0.34828, 0.023, 1.74706},
	{0.34806, 0.0298, 1.7826},
	{0.3362, 0.038, 1.77211},
	{0.3187, 0.048, 1.7441},
	{0.2908, 0.06, 1.6692},
	{0.2511, 0.0739, 1.5281},
	{0.19536, 0.09098, 1.28764},
	{0.1421, 0.1126, 1.0419},
	{0.09564, 0.13902, 0.81295},
	{0.05795, 0.1693, 0.6162},
	{0.03201, 0.20802, 0.46518},
	{0.0147, 0.2586, 0.3533},
	{0.0049, 0.323, 0.272},
	{0.0024, 0.4073, 0.2123},
	{0.0093, 0.503, 0.1582},
	{0.0291, 0.6082, 0.1117},
	{0.06327, 0.71, 0.07825},
	{0.1096, 0.7932, 0.05725},
	{0.1655, 0.862, 0.04216},
	{0.22575, 0.91485, 0.02984},
	{0.2904, 0.954, 0.0203},
	{0.3597, 0.9803, 0.0134},
	{0.43345, 0.99495, 0.00875},
	{0.51205, 1, 0.00575},
	{0.5945, 0.995, 0.0039},
	{0.6784, 0.9786, 0.00275},
	{0.7621, 0.952, 0.0021},
	{0.8425, 0.9154, 0.0018},
	{0.9163, 0.87, 0.00165},
	{0.9786, 0.8163, 0.0014},
	{1.0263, 0.757, 0.0011},
	{1.0567, 0.6949, 0.001},
	{1.0622, 0.631, 0.0008},
	{1.0456, 0.5668, 0.0006},
	{1.0026, 0.503, 0.00034},
	{0.9384, 0.4412, 0.00024},
	{0.85445, 0.381, 0.00019},
	{0.7514, 0.321, 0.0001},
	{0.6424, 0.265, 5e-5},
	{0.5419, 0.217, 3e-5},
	{0.4479, 0.175, 2e-5},
	{0.3608, 0.1382, 1e-5},
	{0.2835, 0.107, 0},
	{0.2187, 0.0816, 0},
	{0.1649, 0.061, 0},
	{0.1212, 0.04458, 0},
	{0.0874, 0.032, 0},
	{0.0636, 0.0232, 0},
	{0.04677, 0.017, 0},
	{0.0329, 0.01192, 0},
	{0.0227, 0.00821, 0},
	{0.01584, 0.005723, 0},
	{0.011359, 0.004102, 0},
	{0.008111, 0.002929, 0},
	{0.00579, 0.002091, 0},
	{0.004109, 0.001484, 0},
	{0.002899, 0.001047, 0},
	{0.002049, 0.00074, 0},
	{0.00144, 0.00052, 0},
	{0.001, 0.000361, 0},
	{0.00069, 0.000249, 0},
	{0.000476, 0.000172, 0},
	{0.000332, 0.00012, 0},
	{0.000235, 8.5e-5, 0},
	{0.000166, 6e-5, 0},
	{0.000117, 4.2e-5, 0},
	{8.3e-5, 3e-5, 0},
	{5.9e-5, 2.1e-5, 0},
	{4.2e-5, 1.5e-5, 0},
	{2.935252e-5, 1.06e-5, 0},
	{2.067383e-5, 7.4657e-6, 0},
	{1.455977e-5, 5.2578e-6, 0},
	{1.025398e-5, 3.7029e-6, 0},
	{7.221456e-6, 2.6078e-6, 0},
	{5.085868e-6, 1.8366e-6, 0},
	{3.581652e-6, 1.2934e-6, 0},
	{2.522525e-6, 9.1093e-7, 0},
	{1.776509e-6, 6.4153e-7, 0},
	{1.251141e-6, 4.5181e-7, 0},
}

// Planckian locus chromaticities, one entry per Kelvin from MinCCT to MaxCCT
var cct_table = sync.OnceValue(func() []cct_entry {
	ans := make([]cct_entry, MaxCCT-MinCCT+1)
	for i := range ans {
		ans[i].x, ans[i].y = planckian_xy(float64(MinCCT + i))
	}
	return ans
})

// planckian_xy integrates the spectral radiance of a black body at t Kelvin
// against the color matching functions. Constant factors of Planck's law
// cancel in the chromaticity.
func planckian_xy(t float64) (x, y float64) {
	var X, Y, Z float64
	for i, cmf := range cie1931_cmf {
		l := float64(cmf_first_wavelength+i*cmf_step) * 1e-9
		m := 1 / (math.Pow(l, 5) * math.Expm1(planck_c2/(l*t)))
		X += m * cmf[0]
		Y += m * cmf[1]
		Z += m * cmf[2]
	}
	s := X + Y + Z
	return X / s, Y / s
}

// WhitePointFromTemperature returns the chromaticity of a black body
// radiator at the specified temperature, read from a table covering MinCCT
// to MaxCCT. This is the Planckian locus, so for a given temperature it lies
// slightly off the daylight locus used by WhitePointFromTemperatureCIE. At
// 6500K the two differ by about 0.01 in y.
func WhitePointFromTemperature(kelvin int) (ColorCIExyY, error) {
	if kelvin < MinCCT || kelvin > MaxCCT {
		return ColorCIExyY{}, errorf(ErrOutOfRange, "the temperature %dK is outside the supported range [%d, %d]", kelvin, MinCCT, MaxCCT)
	}
	e := cct_table()[kelvin-MinCCT]
	return ColorCIExyY{X: e.x, Y: e.y, YY: 1}, nil
}

// WhitePointFromTemperatureCIE returns the chromaticity of CIE daylight
// at the specified temperature, valid from 4000K to 25000K.
func WhitePointFromTemperatureCIE(kelvin int) (ColorCIExyY, error) {
	if kelvin < 4000 || kelvin > 25000 {
		return ColorCIExyY{}, errorf(ErrOutOfRange, "the temperature %dK is outside the CIE daylight range [4000, 25000]", kelvin)
	}
	t := float64(kelvin)
	t2, t3 := t*t, t*t*t
	var x float64
	if kelvin <= 7000 {
		x = -4.6070e9/t3 + 2.9678e6/t2 + 0.09911e3/t + 0.244063
	} else {
		x = -2.0064e9/t3 + 1.9018e6/t2 + 0.24748e3/t + 0.237040
	}
	y := -3.000*x*x + 2.870*x - 0.275
	return ColorCIExyY{X: x, Y: y, YY: 1}, nil
}

type isotemperature struct {
	mirek, u, v, slope float64
}

// Robertson's isotemperature lines
var isotemp_data = [...]isotemperature{
	{0, 0.18006, 0.26352, -0.24341},
	{10, 0.18066, 0.26589, -0.25479},
	{20, 0.18133, 0.26846, -0.26876},
	{30, 0.18208, 0.27119, -0.28539},
	{40, 0.18293, 0.27407, -0.30470},
	{50, 0.18388, 0.27709, -0.32675},
	{60, 0.18494, 0.28021, -0.35156},
	{70, 0.18611, 0.28342, -0.37915},
	{80, 0.18740, 0.28668, -0.40955},
	{90, 0.18880, 0.28997, -0.44278},
	{100, 0.19032, 0.29326, -0.47888},
	{125, 0.19462, 0.30141, -0.58204},
	{150, 0.19962, 0.30921, -0.70471},
	{175, 0.20525, 0.31647, -0.84901},
	{200, 0.21142, 0.32312, -1.0182},
	{225, 0.21807, 0.32909, -1.2168},
	{250, 0.22511, 0.33439, -1.4512},
	{275, 0.23247, 0.33904, -1.7298},
	{300, 0.24010, 0.34308, -2.0637},
	{325, 0.24702, 0.34655, -2.4681},
	{350, 0.25591, 0.34951, -2.9641},
	{375, 0.26400, 0.35200, -3.5814},
	{400, 0.27218, 0.35407, -4.3633},
	{425, 0.28039, 0.35577, -5.3762},
	{450, 0.28863, 0.35714, -6.7262},
	{475, 0.29685, 0.35823, -8.5955},
	{500, 0.30505, 0.35907, -11.324},
	{525, 0.31320, 0.35968, -15.628},
	{550, 0.32129, 0.36011, -23.325},
	{575, 0.32931, 0.36038, -40.770},
	{600, 0.33724, 0.36051, -116.45},
}

// TempFromWhitePoint estimates the correlated color temperature of a white
// point using Robertson's method.
func TempFromWhitePoint(wp ColorCIExyY) (float64, error) {
	xs, ys := wp.X, wp.Y
	d := -xs + 6*ys + 1.5
	if d == 0 {
		return 0, errorf(ErrOutOfRange, "cannot compute the temperature of %s", wp)
	}
	if temp, ok := robertson(2*xs/d, 3*ys/d); ok {
		return temp, nil
	}
	return 0, errorf(ErrOutOfRange, "the white point %s is too far from the Planckian locus", wp)
}

// robertson interpolates between the two isotemperature lines on either side
// of the CIE 1960 UCS point (us, vs)
func robertson(us, vs float64) (float64, bool) {
	var di, mi float64
	for j, it := range isotemp_data {
		dj := ((vs - it.v) - it.slope*(us-it.u)) / math.Sqrt(1+it.slope*it.slope)
		if dj == 0 {
			// on the line itself
			return 1e6 / it.mirek, it.mirek > 0
		}
		if j > 0 && di/dj < 0 {
			return 1e6 / (mi + (di/(di-dj))*(it.mirek-mi)), true
		}
		di, mi = dj, it.mirek
	}
	return 0, false
}
