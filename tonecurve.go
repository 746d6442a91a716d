package cms

import (
	"fmt"
	"math"
	"runtime"

	"github.com/f-spot/cms/icc"
	"github.com/f-spot/cms/internal/handle"
)

// Number of entries in the estimated table of curves that are not tabulated
const EstimatedTableEntries = icc.CurveEncodingSamples

type curve_state struct {
	curve icc.Curve1D
	// the estimated table, created on first access
	table []uint16
	// the table was modified so curve must be rebuilt from it
	dirty bool
}

var curves = handle.NewTable[*curve_state](nil)

// ToneCurve is a one dimensional transfer function. Values are read and
// written through an estimated table of 16 bit samples. A ToneCurve must
// not be modified concurrently.
type ToneCurve struct {
	h handle.Handle
}

func new_tone_curve(c icc.Curve1D, table []uint16) *ToneCurve {
	ans := &ToneCurve{h: curves.Add(&curve_state{curve: c, table: table})}
	runtime.SetFinalizer(ans, func(t *ToneCurve) { t.Close() })
	return ans
}

// NewToneCurve creates a pure power law curve
func NewToneCurve(gamma float64) (*ToneCurve, error) {
	if !(gamma > 0) || math.IsInf(gamma, 0) {
		return nil, errorf(ErrOutOfRange, "invalid gamma value: %v", gamma)
	}
	c, err := icc.NewGammaCurve(gamma)
	if err != nil {
		return nil, NewError("cannot create gamma curve", err)
	}
	return new_tone_curve(c, nil), nil
}

// ParametricCurveType selects one of the parametric curve families,
// negative values select the inverse of the curve
type ParametricCurveType int

const (
	// Y = X^g
	CurveGamma ParametricCurveType = 1
	// CIE 122-1966: Y = (aX + b)^g for X >= -b/a, else 0
	CurveCIE122 ParametricCurveType = 2
	// IEC 61966-3: Y = (aX + b)^g + c for X >= -b/a, else c
	CurveIEC61966_3 ParametricCurveType = 3
	// IEC 61966-2.1 (sRGB): Y = (aX + b)^g for X >= d, else cX
	CurveIEC61966_2_1 ParametricCurveType = 4
	// Y = (aX + b)^g + e for X >= d, else cX + f
	CurveGeneral ParametricCurveType = 5
	// Y = (aX + b)^g + c
	CurveOffsetGamma ParametricCurveType = 6
	// Y = a log10(bX^g + c) + d
	CurveLogarithmic ParametricCurveType = 7
	// Y = a b^(cX + d) + e, params are a, b, c, d, e
	CurveExponential ParametricCurveType = 8
	// Y = (1 - (1 - X)^(1/g))^(1/g)
	CurveSigmoidal ParametricCurveType = 108
)

// NumParameters returns the number of parameters the curve type takes or
// zero for unknown types
func (t ParametricCurveType) NumParameters() int {
	switch max(t, -t) {
	case CurveGamma, CurveSigmoidal:
		return 1
	case CurveCIE122:
		return 3
	case CurveIEC61966_3, CurveOffsetGamma:
		return 4
	case CurveIEC61966_2_1, CurveLogarithmic, CurveExponential:
		return 5
	case CurveGeneral:
		return 7
	}
	return 0
}

// NewParametricToneCurve creates a curve of the specified type, params are
// in the order g, a, b, c, d, e, f
func NewParametricToneCurve(typ ParametricCurveType, params []float64) (*ToneCurve, error) {
	n := typ.NumParameters()
	if n == 0 {
		return nil, errorf(ErrOutOfRange, "unknown parametric curve type: %d", typ)
	}
	if len(params) != n {
		return nil, errorf(ErrOutOfRange, "parametric curve type %d needs %d parameters, got %d", typ, n, len(params))
	}
	p := append([]float64(nil), params...)
	var c icc.Curve1D
	var err error
	switch max(typ, -typ) {
	case CurveGamma, CurveCIE122, CurveIEC61966_3, CurveIEC61966_2_1, CurveGeneral:
		c, err = icc.NewParametricCurve(icc.ParametricCurveFunction(max(typ, -typ)-1), p...)
	default:
		fc := &formula_curve{typ: max(typ, -typ), p: p}
		c, err = fc, fc.Prepare()
	}
	if err != nil {
		return nil, NewError(fmt.Sprintf("invalid parameters for curve type %d", typ), err)
	}
	if typ < 0 {
		c = &reversed_curve{c}
	}
	return new_tone_curve(c, nil), nil
}

// NewTabulatedToneCurve creates a curve from evenly spaced samples
func NewTabulatedToneCurve(values []uint16) (*ToneCurve, error) {
	return NewTabulatedToneCurveRange(values, 0, len(values))
}

// NewTabulatedToneCurveRange creates a curve from length samples of values
// starting at start
func NewTabulatedToneCurveRange(values []uint16, start, length int) (*ToneCurve, error) {
	if length <= 0 {
		return nil, errorf(ErrOutOfRange, "tabulated curve length must be positive, got %d", length)
	}
	if start < 0 || start > len(values) || length > len(values)-start {
		return nil, errorf(ErrOutOfRange, "range [%d, %d) is outside the %d available values", start, start+length, len(values))
	}
	table := append([]uint16(nil), values[start:start+length]...)
	c, err := curve_from_table(table)
	if err != nil {
		return nil, NewError("cannot create tabulated curve", err)
	}
	return new_tone_curve(c, table), nil
}

func curve_from_table(table []uint16) (icc.Curve1D, error) {
	pts := make([]float64, max(2, len(table)))
	for i := range pts {
		pts[i] = float64(table[min(i, len(table)-1)]) / math.MaxUint16
	}
	return icc.NewPointsCurve(pts)
}

func (t *ToneCurve) state() (*curve_state, error) {
	if t == nil {
		return nil, errorf(ErrClosed, "nil tone curve")
	}
	s, ok := curves.Get(t.h)
	if !ok {
		return nil, errorf(ErrClosed, "tone curve %s has been closed", t.h)
	}
	return s, nil
}

func (s *curve_state) estimated_table() []uint16 {
	if s.table == nil {
		s.table = make([]uint16, EstimatedTableEntries)
		for i := range s.table {
			s.table[i] = to_u16(s.curve.Transform(float64(i) / (EstimatedTableEntries - 1)))
		}
	}
	return s.table
}

func (s *curve_state) current() (icc.Curve1D, error) {
	if s.dirty {
		c, err := curve_from_table(s.table)
		if err != nil {
			return nil, err
		}
		s.curve, s.dirty = c, false
	}
	return s.curve, nil
}

func to_u16(x float64) uint16 {
	if math.IsNaN(x) {
		return 0
	}
	return uint16(math.Round(max(0, min(x, 1)) * math.MaxUint16))
}

// Count is the number of entries in the estimated table, zero for a
// closed curve
func (t *ToneCurve) Count() int {
	s, err := t.state()
	if err != nil {
		return 0
	}
	if s.table != nil {
		return len(s.table)
	}
	return EstimatedTableEntries
}

func (t *ToneCurve) range_error(index int) error {
	h := handle.Zero
	if t != nil {
		h = t.h
	}
	return errorf(ErrOutOfRange, "index %d outside of count %d for %s", index, t.Count(), h)
}

// At returns entry index of the estimated table
func (t *ToneCurve) At(index int) (uint16, error) {
	s, err := t.state()
	if err != nil || index < 0 || index >= t.Count() {
		return 0, t.range_error(index)
	}
	return s.estimated_table()[index], nil
}

// Set changes entry index of the estimated table, after which the curve
// is evaluated by interpolating the table
func (t *ToneCurve) Set(index int, val uint16) error {
	s, err := t.state()
	if err != nil || index < 0 || index >= t.Count() {
		return t.range_error(index)
	}
	s.estimated_table()[index] = val
	s.dirty = true
	return nil
}

// Eval evaluates the curve at x in [0, 1]
func (t *ToneCurve) Eval(x float64) (float64, error) {
	c, err := t.curve()
	if err != nil {
		return 0, err
	}
	return c.Transform(x), nil
}

// Reverse returns a new curve that is the inverse of this one
func (t *ToneCurve) Reverse() (*ToneCurve, error) {
	c, err := t.curve()
	if err != nil {
		return nil, err
	}
	if r, ok := c.(*reversed_curve); ok {
		return new_tone_curve(r.c, nil), nil
	}
	return new_tone_curve(&reversed_curve{c}, nil), nil
}

func (t *ToneCurve) curve() (icc.Curve1D, error) {
	s, err := t.state()
	if err != nil {
		return nil, err
	}
	c, err := s.current()
	if err != nil {
		return nil, NewError("cannot rebuild tone curve from its table", err)
	}
	return c, nil
}

// Close releases the curve. It is safe to call more than once.
func (t *ToneCurve) Close() {
	if t != nil && curves.Release(t.h) {
		runtime.SetFinalizer(t, nil)
	}
}

func (t *ToneCurve) String() string {
	c, err := t.curve()
	if err != nil {
		return "ToneCurve{closed}"
	}
	return fmt.Sprintf("ToneCurve{%s %s}", t.h, c)
}

// reversed_curve swaps the directions of a curve
type reversed_curve struct{ c icc.Curve1D }

func (r *reversed_curve) Transform(x float64) float64        { return r.c.InverseTransform(x) }
func (r *reversed_curve) InverseTransform(x float64) float64 { return r.c.Transform(x) }
func (r *reversed_curve) Prepare() error                     { return r.c.Prepare() }
func (r *reversed_curve) String() string                     { return fmt.Sprintf("Reversed{%s}", r.c) }

// formula_curve implements the curve families that have no ICC
// parametric representation
type formula_curve struct {
	typ ParametricCurveType
	p   []float64
}

func (f *formula_curve) Prepare() error {
	p := f.p
	switch f.typ {
	case CurveOffsetGamma:
		if p[0] == 0 || p[1] == 0 {
			return fmt.Errorf("g and a must be non-zero: %v", p)
		}
	case CurveLogarithmic:
		if p[0] == 0 || p[1] == 0 || p[2] == 0 {
			return fmt.Errorf("g, a and b must be non-zero: %v", p)
		}
	case CurveExponential:
		if p[0] == 0 || p[1] <= 0 || p[1] == 1 || p[2] == 0 {
			return fmt.Errorf("a and c must be non-zero and b positive and not one: %v", p)
		}
	case CurveSigmoidal:
		if p[0] <= 0 {
			return fmt.Errorf("g must be positive: %v", p)
		}
	}
	return nil
}

func (f *formula_curve) String() string {
	return fmt.Sprintf("FormulaCurve{type: %d params: %v}", f.typ, f.p)
}

func (f *formula_curve) Transform(x float64) float64 {
	p := f.p
	switch f.typ {
	case CurveOffsetGamma:
		if v := p[1]*x + p[2]; v > 0 {
			return math.Pow(v, p[0]) + p[3]
		}
		return p[3]
	case CurveLogarithmic:
		if v := p[2]*math.Pow(x, p[0]) + p[3]; v > 0 {
			return p[1]*math.Log10(v) + p[4]
		}
		return p[4]
	case CurveExponential:
		return p[0]*math.Pow(p[1], p[2]*x+p[3]) + p[4]
	case CurveSigmoidal:
		x = max(0, min(x, 1))
		return math.Pow(1-math.Pow(1-x, 1/p[0]), 1/p[0])
	}
	return x
}

func (f *formula_curve) InverseTransform(y float64) float64 {
	p := f.p
	switch f.typ {
	case CurveOffsetGamma:
		if v := y - p[3]; v > 0 {
			return (math.Pow(v, 1/p[0]) - p[2]) / p[1]
		}
		return 0
	case CurveLogarithmic:
		v := (math.Pow(10, (y-p[4])/p[1]) - p[3]) / p[2]
		if v <= 0 {
			return 0
		}
		return math.Pow(v, 1/p[0])
	case CurveExponential:
		v := (y - p[4]) / p[0]
		if v <= 0 {
			return 0
		}
		return (math.Log(v)/math.Log(p[1]) - p[3]) / p[2]
	case CurveSigmoidal:
		y = max(0, min(y, 1))
		return 1 - math.Pow(1-math.Pow(y, p[0]), p[0])
	}
	return y
}
