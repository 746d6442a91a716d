package icc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Determinant lower than that are assumed zero (used on matrix invert)
const MATRIX_DET_TOLERANCE = 0.0001

type IdentityCurve int
type GammaCurve struct {
	gamma, inv_gamma unit_float
	is_one           bool
}
type PointsCurve struct {
	points, reverse_lookup []unit_float
	max_idx                unit_float
}
type ConditionalZeroCurve struct{ g, a, b, threshold, inv_gamma, inv_a unit_float }
type ConditionalCCurve struct{ g, a, b, c, threshold, inv_gamma, inv_a unit_float }
type SplitCurve struct{ g, a, b, c, d, inv_g, inv_a, inv_c, threshold unit_float }
type ComplexCurve struct{ g, a, b, c, d, e, f, inv_g, inv_a, inv_c, threshold unit_float }

// Curve1D is a one dimensional mapping of [0, 1] to [0, 1]
type Curve1D interface {
	Transform(x unit_float) unit_float
	InverseTransform(x unit_float) unit_float
	Prepare() error
	String() string
}

var _ Curve1D = (*IdentityCurve)(nil)
var _ Curve1D = (*GammaCurve)(nil)
var _ Curve1D = (*PointsCurve)(nil)
var _ Curve1D = (*ConditionalZeroCurve)(nil)
var _ Curve1D = (*ConditionalCCurve)(nil)
var _ Curve1D = (*SplitCurve)(nil)
var _ Curve1D = (*ComplexCurve)(nil)

type Curves interface {
	Curves() []Curve1D
}

type CurveTransformer struct{ curves []Curve1D }
type InverseCurveTransformer struct{ curves []Curve1D }

var _ ChannelTransformer = (*CurveTransformer)(nil)
var _ ChannelTransformer = (*InverseCurveTransformer)(nil)

func (c *CurveTransformer) IOSig() (int, int)                           { return len(c.curves), len(c.curves) }
func (c *CurveTransformer) Iter(f func(ChannelTransformer) bool)        { f(c) }
func (c *CurveTransformer) Curves() []Curve1D                           { return c.curves }
func (c *InverseCurveTransformer) IOSig() (int, int)                    { return len(c.curves), len(c.curves) }
func (c *InverseCurveTransformer) Iter(f func(ChannelTransformer) bool) { f(c) }
func (c *InverseCurveTransformer) Curves() []Curve1D                    { return c.curves }

func (c *CurveTransformer) Transform(out, in []unit_float) {
	for i, curve := range c.curves {
		out[i] = curve.Transform(in[i])
	}
}

func (c *InverseCurveTransformer) Transform(out, in []unit_float) {
	for i, curve := range c.curves {
		out[i] = curve.InverseTransform(in[i])
	}
}

func curves_as_string(c []Curve1D) string {
	if len(c) == 0 {
		return ""
	}
	ans := c[0].String()
	for _, x := range c[1:] {
		if x.String() != ans {
			return fmt.Sprintf("%s...(%d)", ans, len(c))
		}
	}
	return ans
}

func (c *CurveTransformer) String() string {
	return "Curves{" + curves_as_string(c.curves) + "}"
}
func (c *InverseCurveTransformer) String() string {
	return "InverseCurves{" + curves_as_string(c.curves) + "}"
}

func all_identity(curves []Curve1D) bool {
	for _, c := range curves {
		if _, ok := c.(*IdentityCurve); !ok {
			return false
		}
	}
	return true
}

// NewCurveTransformer returns nil when all curves are the identity
func NewCurveTransformer(curves ...Curve1D) ChannelTransformer {
	if all_identity(curves) {
		return nil
	}
	return &CurveTransformer{curves}
}

func NewInverseCurveTransformer(curves ...Curve1D) ChannelTransformer {
	if all_identity(curves) {
		return nil
	}
	return &InverseCurveTransformer{curves}
}

type ParametricCurveFunction uint16

const (
	SimpleGammaFunction     ParametricCurveFunction = 0 // Y = X^g
	ConditionalZeroFunction ParametricCurveFunction = 1 // Y = (aX+b)^g for X >= d, else 0
	ConditionalCFunction    ParametricCurveFunction = 2 // Y = (aX+b)^g for X >= d, else c
	SplitFunction           ParametricCurveFunction = 3 // Two different functions split at d
	ComplexFunction         ParametricCurveFunction = 4 // More complex piecewise function
)

// NumParameters is the number of parameters each ICC parametric function takes
func (f ParametricCurveFunction) NumParameters() int {
	switch f {
	case SimpleGammaFunction:
		return 1
	case ConditionalZeroFunction:
		return 3
	case ConditionalCFunction:
		return 4
	case SplitFunction:
		return 5
	case ComplexFunction:
		return 7
	}
	return 0
}

// NewParametricCurve creates one of the ICC parametric curves, params are in
// the order g, a, b, c, d, e, f
func NewParametricCurve(f ParametricCurveFunction, params ...unit_float) (ans Curve1D, err error) {
	if n := f.NumParameters(); n == 0 {
		return nil, fmt.Errorf("unknown parametric function type: %d", f)
	} else if len(params) < n {
		return nil, fmt.Errorf("parametric function type %d needs %d parameters, got %d", f, n, len(params))
	}
	p := params
	switch f {
	case SimpleGammaFunction:
		ans = &GammaCurve{gamma: p[0]}
	case ConditionalZeroFunction:
		ans = &ConditionalZeroCurve{g: p[0], a: p[1], b: p[2]}
	case ConditionalCFunction:
		ans = &ConditionalCCurve{g: p[0], a: p[1], b: p[2], c: p[3]}
	case SplitFunction:
		ans = &SplitCurve{g: p[0], a: p[1], b: p[2], c: p[3], d: p[4]}
	case ComplexFunction:
		ans = &ComplexCurve{g: p[0], a: p[1], b: p[2], c: p[3], d: p[4], e: p[5], f: p[6]}
	}
	if err = ans.Prepare(); err != nil {
		return nil, err
	}
	return ans, nil
}

func NewGammaCurve(gamma unit_float) (Curve1D, error) {
	if gamma == 1 {
		c := IdentityCurve(0)
		return &c, nil
	}
	c := &GammaCurve{gamma: gamma}
	return c, c.Prepare()
}

// NewPointsCurve creates a tabulated curve from samples in [0, 1]
func NewPointsCurve(points []unit_float) (*PointsCurve, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("a tabulated curve needs at least two points, got %d", len(points))
	}
	c := &PointsCurve{points: points}
	return c, c.Prepare()
}

func embeddedCurveDecoder(raw []byte) (Curve1D, int, error) {
	if len(raw) < 12 {
		return nil, 0, errors.New("curv tag too short")
	}
	count := int(binary.BigEndian.Uint32(raw[8:12]))
	consumed := align_to_4(12 + count*2)
	switch count {
	case 0:
		c := IdentityCurve(0)
		return &c, consumed, nil
	case 1:
		if len(raw) < 14 {
			return nil, 0, errors.New("curv tag missing gamma value")
		}
		c, err := NewGammaCurve(readU8Fixed8(raw[12:]))
		if err != nil {
			return nil, 0, err
		}
		return c, consumed, nil
	default:
		if len(raw) < 12+count*2 {
			return nil, 0, errors.New("curv tag truncated")
		}
		points := make([]uint16, count)
		if _, err := binary.Decode(raw[12:], binary.BigEndian, points); err != nil {
			return nil, 0, errors.New("curv tag truncated")
		}
		fp := make([]unit_float, len(points))
		for i, p := range points {
			fp[i] = unit_float(p) / 65535
		}
		c := &PointsCurve{points: fp}
		if err := c.Prepare(); err != nil {
			return nil, 0, err
		}
		return c, consumed, nil
	}
}

func curveDecoder(raw []byte) (any, error) {
	ans, _, err := embeddedCurveDecoder(raw)
	return ans, err
}

func embeddedParametricCurveDecoder(raw []byte) (ans Curve1D, consumed int, err error) {
	if len(raw) < 16 {
		return nil, 0, errors.New("para tag too short")
	}
	funcType := ParametricCurveFunction(binary.BigEndian.Uint16(raw[8:10]))
	const header_len = 12
	n := funcType.NumParameters()
	if n == 0 {
		return nil, 0, fmt.Errorf("unknown parametric function type: %d", funcType)
	}
	if consumed = header_len + n*4; len(raw) < consumed {
		return nil, 0, errors.New("para tag too short")
	}
	params := make([]unit_float, n)
	for i := range params {
		params[i] = readS15Fixed16BE(raw[header_len+i*4:])
	}
	if ans, err = NewParametricCurve(funcType, params...); err != nil {
		return nil, 0, err
	}
	return ans, align_to_4(consumed), nil
}

func parametricCurveDecoder(raw []byte) (any, error) {
	ans, _, err := embeddedParametricCurveDecoder(raw)
	return ans, err
}

// Number of samples used when a curve has no exact ICC representation
const CurveEncodingSamples = 4096

// EncodeCurve serializes a curve as a para tag when it is one of the ICC
// parametric functions and as a sampled curv tag otherwise.
func EncodeCurve(c Curve1D) []byte {
	para := func(f ParametricCurveFunction, params ...unit_float) []byte {
		b := new_tag(ParametricCurveTypeSignature)
		b = binary.BigEndian.AppendUint16(b, uint16(f))
		b = append(b, 0, 0)
		for _, p := range params {
			b = appendS15Fixed16BE(b, p)
		}
		return b
	}
	switch x := c.(type) {
	case *IdentityCurve:
		b := new_tag(CurveTypeSignature)
		return binary.BigEndian.AppendUint32(b, 0)
	case *GammaCurve:
		return para(SimpleGammaFunction, x.gamma)
	case *ConditionalZeroCurve:
		return para(ConditionalZeroFunction, x.g, x.a, x.b)
	case *ConditionalCCurve:
		return para(ConditionalCFunction, x.g, x.a, x.b, x.c)
	case *SplitCurve:
		return para(SplitFunction, x.g, x.a, x.b, x.c, x.d)
	case *ComplexCurve:
		return para(ComplexFunction, x.g, x.a, x.b, x.c, x.d, x.e, x.f)
	case *PointsCurve:
		return encode_points(x.points)
	}
	pts := make([]unit_float, CurveEncodingSamples)
	for i := range pts {
		pts[i] = c.Transform(unit_float(i) / (CurveEncodingSamples - 1))
	}
	return encode_points(pts)
}

func to_u16(x unit_float) uint16 {
	return uint16(math.Round(clamp01(x) * math.MaxUint16))
}

func encode_points(pts []unit_float) []byte {
	b := new_tag(CurveTypeSignature)
	b = binary.BigEndian.AppendUint32(b, uint32(len(pts)))
	for _, p := range pts {
		b = binary.BigEndian.AppendUint16(b, to_u16(p))
	}
	return b
}

func (c IdentityCurve) Transform(x unit_float) unit_float        { return x }
func (c IdentityCurve) InverseTransform(x unit_float) unit_float { return x }
func (c IdentityCurve) Prepare() error                           { return nil }
func (c IdentityCurve) String() string                           { return "IdentityCurve" }

func (c GammaCurve) Gamma() unit_float { return c.gamma }

func (c GammaCurve) Transform(x unit_float) unit_float {
	if x < 0 {
		if c.is_one {
			return x
		}
		return 0
	}
	return math.Pow(x, c.gamma)
}

func (c GammaCurve) InverseTransform(x unit_float) unit_float {
	if x < 0 {
		if c.is_one {
			return x
		}
		return 0
	}
	return math.Pow(x, c.inv_gamma)
}

func (c *GammaCurve) Prepare() error {
	if c.gamma == 0 {
		return fmt.Errorf("gamma curve has zero gamma value")
	}
	c.inv_gamma = 1 / c.gamma
	c.is_one = math.Abs(c.gamma-1) < MATRIX_DET_TOLERANCE
	return nil
}
func (c GammaCurve) String() string { return fmt.Sprintf("GammaCurve{%.4g}", c.gamma) }

func (c *PointsCurve) Prepare() error {
	if len(c.points) < 2 {
		return fmt.Errorf("points curve must have at least two points")
	}
	c.max_idx = unit_float(len(c.points) - 1)
	reverse_lookup := make([]unit_float, len(c.points))
	ascending := true
	for i := 1; i < len(c.points) && ascending; i++ {
		ascending = c.points[i] >= c.points[i-1]
	}
	idx := 0
	for i := range len(reverse_lookup) {
		y := unit_float(i) / c.max_idx
		if ascending {
			for idx < len(c.points)-2 && c.points[idx+1] < y {
				idx++
			}
		} else if idx = get_interval(c.points, y); idx < 0 {
			reverse_lookup[i] = IfElse(y < c.points[0], 0, unit_float(1))
			continue
		}
		y1, y2 := c.points[idx], c.points[idx+1]
		x1, x2 := unit_float(idx)/c.max_idx, unit_float(idx+1)/c.max_idx
		switch {
		case y2 == y1:
			reverse_lookup[i] = x1
		default:
			frac := (y - y1) / (y2 - y1)
			reverse_lookup[i] = clamp01(x1 + frac*(x2-x1))
		}
	}
	c.reverse_lookup = reverse_lookup
	return nil
}

func (c *PointsCurve) Points() []unit_float { return c.points }

func (c PointsCurve) Transform(v unit_float) unit_float {
	return sampled_value(c.points, c.max_idx, v)
}

func (c PointsCurve) InverseTransform(v unit_float) unit_float {
	return sampled_value(c.reverse_lookup, c.max_idx, v)
}
func (c PointsCurve) String() string { return fmt.Sprintf("PointsCurve{%d}", len(c.points)) }

func get_interval(lookup []unit_float, y unit_float) int {
	for i := range len(lookup) - 1 {
		y0, y1 := lookup[i], lookup[i+1]
		if y1 < y0 {
			y0, y1 = y1, y0
		}
		if y0 <= y && y <= y1 {
			return i
		}
	}
	return -1
}

func (c *ConditionalZeroCurve) Prepare() error {
	if c.a == 0 || c.g == 0 {
		return fmt.Errorf("conditional zero curve has zero parameter value: a=%f or g=%f", c.a, c.g)
	}
	c.threshold, c.inv_gamma, c.inv_a = -c.b/c.a, 1/c.g, 1/c.a
	return nil
}

func (c *ConditionalZeroCurve) String() string {
	return fmt.Sprintf("ConditionalZeroCurve{a: %v b: %v g: %v}", c.a, c.b, c.g)
}

func (c *ConditionalZeroCurve) Transform(x unit_float) unit_float {
	// Y = (aX+b)^g if X ≥ -b/a else 0
	if x >= c.threshold {
		if e := c.a*x + c.b; e > 0 {
			return math.Pow(e, c.g)
		}
	}
	return 0
}

func (c *ConditionalZeroCurve) InverseTransform(y unit_float) unit_float {
	// matches lcms2 rather than the letter of ICC.1
	return max(0, (math.Pow(max(0, y), c.inv_gamma)-c.b)*c.inv_a)
}

func (c *ConditionalCCurve) Prepare() error {
	if c.a == 0 || c.g == 0 {
		return fmt.Errorf("conditional C curve has zero parameter value: a=%f or g=%f", c.a, c.g)
	}
	c.threshold, c.inv_gamma, c.inv_a = -c.b/c.a, 1/c.g, 1/c.a
	return nil
}

func (c *ConditionalCCurve) String() string {
	return fmt.Sprintf("ConditionalCCurve{a: %v b: %v c: %v g: %v}", c.a, c.b, c.c, c.g)
}

func (c *ConditionalCCurve) Transform(x unit_float) unit_float {
	// Y = (aX+b)^g + c if X ≥ -b/a else c
	if x >= c.threshold {
		if e := c.a*x + c.b; e > 0 {
			return math.Pow(e, c.g) + c.c
		}
	}
	return c.c
}

func (c *ConditionalCCurve) InverseTransform(y unit_float) unit_float {
	// X = ((Y-c)^(1/g) - b) / a if Y >= c else X = -b/a
	if e := y - c.c; e > 0 {
		return (math.Pow(e, c.inv_gamma) - c.b) * c.inv_a
	}
	return c.threshold
}

func (c *SplitCurve) Prepare() error {
	if c.a == 0 || c.g == 0 || c.c == 0 {
		return fmt.Errorf("split curve has zero parameter value: a=%f or g=%f or c=%f", c.a, c.g, c.c)
	}
	c.threshold, c.inv_g, c.inv_a, c.inv_c = math.Pow(max(0, c.a*c.d+c.b), c.g), 1/c.g, 1/c.a, 1/c.c
	return nil
}

func (c *SplitCurve) String() string {
	return fmt.Sprintf("SplitCurve{a: %v b: %v c: %v d: %v g: %v}", c.a, c.b, c.c, c.d, c.g)
}

func (c *SplitCurve) Transform(x unit_float) unit_float {
	// Y = (aX+b)^g if X ≥ d else cX
	if x >= c.d {
		if e := c.a*x + c.b; e > 0 {
			return math.Pow(e, c.g)
		}
		return 0
	}
	return c.c * x
}

func (c *SplitCurve) InverseTransform(y unit_float) unit_float {
	// X=((Y^1/g-b)/a)    | Y >= (ad+b)^g
	// X=Y/c              | Y< (ad+b)^g
	if y < c.threshold {
		return y * c.inv_c
	}
	return (math.Pow(y, c.inv_g) - c.b) * c.inv_a
}

func (c *ComplexCurve) Prepare() error {
	if c.a == 0 || c.g == 0 || c.c == 0 {
		return fmt.Errorf("complex curve has zero parameter value: a=%f or g=%f or c=%f", c.a, c.g, c.c)
	}
	c.threshold, c.inv_g, c.inv_a, c.inv_c = math.Pow(max(0, c.a*c.d+c.b), c.g)+c.e, 1/c.g, 1/c.a, 1/c.c
	return nil
}

func (c *ComplexCurve) String() string {
	return fmt.Sprintf("ComplexCurve{a: %v b: %v c: %v d: %v e: %v f: %v g: %v}", c.a, c.b, c.c, c.d, c.e, c.f, c.g)
}

func (c *ComplexCurve) Transform(x unit_float) unit_float {
	// Y = (aX+b)^g + e if X ≥ d else cX+f
	if x >= c.d {
		if e := c.a*x + c.b; e > 0 {
			return math.Pow(e, c.g) + c.e
		}
		return c.e
	}
	return c.c*x + c.f
}

func (c *ComplexCurve) InverseTransform(y unit_float) unit_float {
	// X=((Y-e)1/g-b)/a   | Y >=(ad+b)^g+e), cd+f
	// X=(Y-f)/c          | else
	if y < c.threshold {
		return (y - c.f) * c.inv_c
	}
	if e := y - c.e; e > 0 {
		return (math.Pow(e, c.inv_g) - c.b) * c.inv_a
	}
	return 0
}

// SRGBCurve is the sRGB transfer function as an ICC parametric curve
func SRGBCurve() Curve1D {
	c, _ := NewParametricCurve(SplitFunction, 2.4, 1/1.055, 0.055/1.055, 1/12.92, 0.04045)
	return c
}
