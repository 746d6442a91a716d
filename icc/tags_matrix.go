package icc

import (
	"errors"
	"fmt"

	"github.com/f-spot/cms/colorconv"
)

type Matrix3 [3][3]unit_float
type IdentityMatrix int

type MatrixWithOffset struct {
	m                         Matrix3
	offset1, offset2, offset3 unit_float
}

var _ ChannelTransformer = (*Matrix3)(nil)
var _ ChannelTransformer = (*IdentityMatrix)(nil)
var _ ChannelTransformer = (*MatrixWithOffset)(nil)

func NewIdentityMatrix() *IdentityMatrix {
	x := IdentityMatrix(0)
	return &x
}

func is_identity_matrix(m *Matrix3) bool {
	if m == nil {
		return true
	}
	return *m == Matrix3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

func embeddedMatrixDecoder(body []byte) (ChannelTransformer, error) {
	if len(body) < 36 {
		return nil, errors.New("matrix too short")
	}
	result := Matrix3{}
	for i := range 9 {
		result[i/3][i%3] = readS15Fixed16BE(body[i*4 : (i+1)*4])
	}
	body = body[36:]
	if len(body) < 3*4 {
		if is_identity_matrix(&result) {
			return NewIdentityMatrix(), nil
		}
		return &result, nil
	}
	r2 := &MatrixWithOffset{m: result}
	r2.offset1 = readS15Fixed16BE(body[:4])
	r2.offset2 = readS15Fixed16BE(body[4:8])
	r2.offset3 = readS15Fixed16BE(body[8:12])
	if r2.offset1 == 0 && r2.offset2 == 0 && r2.offset3 == 0 {
		if is_identity_matrix(&result) {
			return NewIdentityMatrix(), nil
		}
		return &result, nil
	}
	return r2, nil
}

func (m *Matrix3) AsMatrix3() *Matrix3                   { return m }
func (m *Matrix3) IOSig() (int, int)                     { return 3, 3 }
func (m *Matrix3) Iter(f func(ChannelTransformer) bool)  { f(m) }
func (m *Matrix3) String() string                        { return fmt.Sprintf("Matrix3{%v}", *m) }
func (m *Matrix3) Transform(out, in []unit_float) {
	r, g, b := in[0], in[1], in[2]
	out[0] = m[0][0]*r + m[0][1]*g + m[0][2]*b
	out[1] = m[1][0]*r + m[1][1]*g + m[1][2]*b
	out[2] = m[2][0]*r + m[2][1]*g + m[2][2]*b
}

// Multiply returns m × o, that is o is applied first
func (m *Matrix3) Multiply(o Matrix3) Matrix3 {
	return Matrix3(colorconv.Mat3(*m).Mul(colorconv.Mat3(o)))
}

func (m *Matrix3) Inverted() (Matrix3, error) {
	ans, err := colorconv.Mat3(*m).Inverted()
	return Matrix3(ans), err
}

func (m *Matrix3) Equals(o *Matrix3, threshold unit_float) bool {
	return colorconv.Mat3(*m).Equals(colorconv.Mat3(*o), threshold)
}

func (m *Matrix3) Scale(s unit_float) {
	for i := range 3 {
		for j := range 3 {
			m[i][j] *= s
		}
	}
}

func (m *IdentityMatrix) IOSig() (int, int)                    { return 3, 3 }
func (m *IdentityMatrix) Iter(f func(ChannelTransformer) bool) { f(m) }
func (m *IdentityMatrix) String() string                       { return "IdentityMatrix" }
func (m *IdentityMatrix) Transform(out, in []unit_float)       { copy(out[:3], in[:3]) }
func (m *IdentityMatrix) AsMatrix3() *Matrix3 {
	return &Matrix3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

func (m *MatrixWithOffset) IOSig() (int, int)                    { return 3, 3 }
func (m *MatrixWithOffset) Iter(f func(ChannelTransformer) bool) { f(m) }
func (m *MatrixWithOffset) String() string {
	return fmt.Sprintf("MatrixWithOffset{%v %v %v %v}", m.m, m.offset1, m.offset2, m.offset3)
}
func (m *MatrixWithOffset) Transform(out, in []unit_float) {
	m.m.Transform(out, in)
	out[0] += m.offset1
	out[1] += m.offset2
	out[2] += m.offset3
}

// NewScaleTransformer multiplies each of three channels by a constant
func NewScaleTransformer(x, y, z unit_float) *Matrix3 {
	return &Matrix3{{x, 0, 0}, {0, y, 0}, {0, 0, z}}
}
