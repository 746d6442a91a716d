package colorconv

import (
	"fmt"
	"math"
)

// This package holds the low level colorimetry used when building and
// evaluating ICC profiles: CIE XYZ, xyY, L*a*b* and LCh conversions relative
// to an arbitrary reference white, Bradford chromatic adaptation and
// construction of RGB to XYZ matrices from primaries.
//
// Notes:
// - XYZ values are normalized so that the reference white has Y = 1.0
// - L is in [0,100], a and b are unbounded (typically -128..127)
// - Hue angles are in degrees in the range [0,360)

type Vec3 [3]float64
type Mat3 [3][3]float64

// Standard reference whites (CIE XYZ) normalized so Y = 1.0
// WhiteD50 uses the values the ICC specification mandates for the PCS
// illuminant, rounded to four digits as stored in s15Fixed16 form.
var (
	WhiteD50 = Vec3{0.9642, 1.0, 0.8249}
	WhiteD65 = Vec3{0.95047, 1.00000, 1.08883}
)

// Bradford transform matrices (forward and inverse)
var (
	Bradford = Mat3{
		{0.8951, 0.2664, -0.1614},
		{-0.7502, 1.7135, 0.0367},
		{0.0389, -0.0685, 1.0296},
	}
	InvBradford Mat3
)

func init() {
	var err error
	if InvBradford, err = Bradford.Inverted(); err != nil {
		panic(err)
	}
}

// Identity returns the 3x3 identity matrix
func Identity() Mat3 {
	return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

func (m Mat3) String() string {
	return fmt.Sprintf("Mat3{%v %v %v}", m[0], m[1], m[2])
}

// Mul returns m * b
func (m Mat3) Mul(b Mat3) Mat3 {
	var out Mat3
	for i := range 3 {
		for j := range 3 {
			sum := 0.0
			for k := range 3 {
				sum += m[i][k] * b[k][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

func (m Mat3) MulVec(v Vec3) Vec3 {
	return Vec3{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

func (m Mat3) Transposed() (ans Mat3) {
	for i := range 3 {
		for j := range 3 {
			ans[i][j] = m[j][i]
		}
	}
	return
}

func (m Mat3) Equals(o Mat3, threshold float64) bool {
	for i := range 3 {
		for j := range 3 {
			if math.Abs(m[i][j]-o[i][j]) > threshold {
				return false
			}
		}
	}
	return true
}

func (mat Mat3) Inverted() (ans Mat3, err error) {
	det := mat[0][0]*(mat[1][1]*mat[2][2]-mat[1][2]*mat[2][1]) -
		mat[0][1]*(mat[1][0]*mat[2][2]-mat[1][2]*mat[2][0]) +
		mat[0][2]*(mat[1][0]*mat[2][1]-mat[1][1]*mat[2][0])
	if math.Abs(det) < 1e-12 {
		return ans, fmt.Errorf("matrix is singular and cannot be inverted")
	}
	invDet := 1 / det
	adj := Mat3{
		{
			(mat[1][1]*mat[2][2] - mat[1][2]*mat[2][1]),
			(mat[0][2]*mat[2][1] - mat[0][1]*mat[2][2]),
			(mat[0][1]*mat[1][2] - mat[0][2]*mat[1][1]),
		},
		{
			(mat[1][2]*mat[2][0] - mat[1][0]*mat[2][2]),
			(mat[0][0]*mat[2][2] - mat[0][2]*mat[2][0]),
			(mat[0][2]*mat[1][0] - mat[0][0]*mat[1][2]),
		},
		{
			(mat[1][0]*mat[2][1] - mat[1][1]*mat[2][0]),
			(mat[0][1]*mat[2][0] - mat[0][0]*mat[2][1]),
			(mat[0][0]*mat[1][1] - mat[0][1]*mat[1][0]),
		},
	}
	for i := range 3 {
		for j := range 3 {
			ans[i][j] = invDet * adj[i][j]
		}
	}
	return
}

// ChromaticAdaptationMatrix constructs a 3x3 matrix that adapts XYZ values
// from sourceWhite to targetWhite using the Bradford method.
func ChromaticAdaptationMatrix(sourceWhite, targetWhite Vec3) Mat3 {
	src := Bradford.MulVec(sourceWhite)
	tgt := Bradford.MulVec(targetWhite)
	diag := Mat3{
		{tgt[0] / src[0], 0, 0},
		{0, tgt[1] / src[1], 0},
		{0, 0, tgt[2] / src[2]},
	}
	// adapt = invBradford * diag * bradford
	return InvBradford.Mul(diag.Mul(Bradford))
}

// LabF is the CIELAB companding function f(t)
func LabF(t float64) float64 {
	const delta = 6.0 / 29.0
	if t > delta*delta*delta {
		return math.Cbrt(t)
	}
	return t/(3*delta*delta) + 4.0/29.0
}

// LabFInv is the inverse of LabF
func LabFInv(t float64) float64 {
	const delta = 6.0 / 29.0
	if t > delta {
		return t * t * t
	}
	return 3 * delta * delta * (t - 4.0/29.0)
}

// XYZToLab converts XYZ into CIELAB relative to the specified white.
func XYZToLab(X, Y, Z float64, white Vec3) (L, a, b float64) {
	fx := LabF(X / white[0])
	fy := LabF(Y / white[1])
	fz := LabF(Z / white[2])
	L = 116.0*fy - 16.0
	a = 500.0 * (fx - fy)
	b = 200.0 * (fy - fz)
	return
}

// LabToXYZ converts CIELAB relative to the specified white into XYZ.
func LabToXYZ(L, a, b float64, white Vec3) (X, Y, Z float64) {
	fy := (L + 16.0) / 116.0
	fx := fy + (a / 500.0)
	fz := fy - (b / 200.0)
	return LabFInv(fx) * white[0], LabFInv(fy) * white[1], LabFInv(fz) * white[2]
}

// XYZToxyY projects XYZ to chromaticity plus luminance. For black the
// chromaticity of the D50 white is returned, so that the result is still a
// valid neutral.
func XYZToxyY(X, Y, Z float64) (x, y, YY float64) {
	sum := X + Y + Z
	if sum == 0 {
		sum = WhiteD50[0] + WhiteD50[1] + WhiteD50[2]
		return WhiteD50[0] / sum, WhiteD50[1] / sum, 0
	}
	return X / sum, Y / sum, Y
}

// XYYToXYZ is the inverse of XYZToxyY, y must be non-zero.
func XYYToXYZ(x, y, YY float64) (X, Y, Z float64) {
	if y == 0 {
		return 0, 0, 0
	}
	return x / y * YY, YY, (1 - x - y) / y * YY
}

// LabToLCh converts to cylindrical coordinates, h in degrees [0,360)
func LabToLCh(L, a, b float64) (l, c, h float64) {
	c = math.Hypot(a, b)
	h = math.Atan2(b, a) * 180 / math.Pi
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h -= 360
	}
	return L, c, h
}

func LChToLab(L, C, h float64) (l, a, b float64) {
	rad := h * math.Pi / 180
	return L, C * math.Cos(rad), C * math.Sin(rad)
}

// RGBToXYZMatrix builds the matrix taking linear RGB to XYZ for the given
// white point and primaries (all as xy chromaticities), adapted to D50 with
// Bradford as required for ICC matrix/TRC profiles. The columns of the
// result are the D50 relative colorants.
func RGBToXYZMatrix(white [2]float64, red, green, blue [2]float64) (Mat3, error) {
	primaries := Mat3{
		{red[0], green[0], blue[0]},
		{red[1], green[1], blue[1]},
		{1 - red[0] - red[1], 1 - green[0] - green[1], 1 - blue[0] - blue[1]},
	}
	inv, err := primaries.Inverted()
	if err != nil {
		return Mat3{}, fmt.Errorf("invalid primaries: %w", err)
	}
	if white[1] == 0 {
		return Mat3{}, fmt.Errorf("invalid white point: y is zero")
	}
	wXYZ := Vec3{white[0] / white[1], 1, (1 - white[0] - white[1]) / white[1]}
	coef := inv.MulVec(wXYZ)
	var m Mat3
	for i := range 3 {
		for j := range 3 {
			m[i][j] = primaries[i][j] * coef[j]
		}
	}
	return ChromaticAdaptationMatrix(wXYZ, WhiteD50).Mul(m), nil
}

// LinearToSRGB applies the sRGB (gamma) companding function to a linear component.
func LinearToSRGB(c float64) float64 {
	if c <= 0 {
		return 0.0
	}
	if c <= 0.0031308 {
		return 12.92 * c
	}
	return 1.055*math.Pow(c, 1.0/2.4) - 0.055
}

// SRGBToLinear is the inverse of LinearToSRGB
func SRGBToLinear(c float64) float64 {
	if c <= 0 {
		return 0
	}
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

// Clamp01 clamps value to [0,1]
func Clamp01(x float64) float64 {
	return max(0, min(x, 1))
}
