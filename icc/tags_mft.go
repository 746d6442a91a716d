package icc

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MFT is the legacy lut8 / lut16 pipeline: input curves, CLUT and output
// curves. The matrix only applies to XYZ input and is exposed separately.
type MFT struct {
	in_channels, out_channels   int
	grid_points                 int
	input_curves, output_curves []Curve1D
	clut                        *CLUT
	matrix                      ChannelTransformer
	is8bit                      bool
}

var _ ChannelTransformer = (*MFT)(nil)

func (m *MFT) IOSig() (int, int) { return m.in_channels, m.out_channels }
func (m *MFT) Is8Bit() bool      { return m.is8bit }
func (m *MFT) Matrix() ChannelTransformer {
	if _, ok := m.matrix.(*IdentityMatrix); ok {
		return nil
	}
	return m.matrix
}
func (m *MFT) String() string {
	return fmt.Sprintf("%s{ %s }", IfElse(m.is8bit, "mft1", "mft2"), transformers_as_string(m.parts()...))
}

func (m *MFT) parts() (ans []ChannelTransformer) {
	if c := NewCurveTransformer(m.input_curves...); c != nil {
		ans = append(ans, c)
	}
	ans = append(ans, m.clut)
	if c := NewCurveTransformer(m.output_curves...); c != nil {
		ans = append(ans, c)
	}
	return
}

func (m *MFT) Iter(f func(ChannelTransformer) bool) {
	for _, c := range m.parts() {
		if !f(c) {
			return
		}
	}
}

func (m *MFT) Transform(out, in []unit_float) {
	var a, b [MaxChannels]unit_float
	for i, c := range m.input_curves {
		a[i] = c.Transform(in[i])
	}
	m.clut.Transform(b[:m.out_channels], a[:m.in_channels])
	for i, c := range m.output_curves {
		out[i] = c.Transform(b[i])
	}
}

func load_curves(raw []byte, bytes_per_value, num_curves, entries int) (ans []Curve1D, leftover []byte, err error) {
	ans = make([]Curve1D, num_curves)
	for i := range num_curves {
		var pts []unit_float
		if pts, err = decode_table(raw, bytes_per_value, entries); err != nil {
			return nil, raw, err
		}
		raw = raw[entries*bytes_per_value:]
		if ans[i], err = NewPointsCurve(pts); err != nil {
			return nil, raw, err
		}
	}
	return ans, raw, nil
}

func load_mft_header(raw []byte) (ans *MFT, leftover []byte, err error) {
	if len(raw) < 48 {
		return nil, raw, errors.New("mft tag too short")
	}
	a := MFT{}
	a.in_channels, a.out_channels, a.grid_points = int(raw[8]), int(raw[9]), int(raw[10])
	if a.grid_points < 2 {
		return nil, raw, fmt.Errorf("mft tag has invalid number of CLUT grid points: %d", a.grid_points)
	}
	if a.in_channels < 1 || a.in_channels > MaxChannels || a.out_channels < 1 || a.out_channels > MaxChannels {
		return nil, raw, fmt.Errorf("mft tag has invalid number of channels: %d → %d", a.in_channels, a.out_channels)
	}
	if a.matrix, err = embeddedMatrixDecoder(raw[12:48]); err != nil {
		return nil, nil, err
	}
	return &a, raw[48:], nil
}

func load_mft_body(a *MFT, raw []byte, bytes_per_value, input_table_entries, output_table_entries int) (err error) {
	if a.input_curves, raw, err = load_curves(raw, bytes_per_value, a.in_channels, input_table_entries); err != nil {
		return err
	}
	grid := UniformGrid(a.in_channels, a.grid_points)
	samples, err := decode_table(raw, bytes_per_value, expectedValues(grid, a.out_channels))
	if err != nil {
		return err
	}
	raw = raw[len(samples)*bytes_per_value:]
	if a.clut, err = NewCLUT(a.in_channels, a.out_channels, grid, samples); err != nil {
		return err
	}
	a.output_curves, _, err = load_curves(raw, bytes_per_value, a.out_channels, output_table_entries)
	return err
}

func decode_mft8(raw []byte) (ans any, err error) {
	var a *MFT
	if a, raw, err = load_mft_header(raw); err != nil {
		return nil, err
	}
	a.is8bit = true
	if err = load_mft_body(a, raw, 1, 256, 256); err != nil {
		return nil, err
	}
	return a, nil
}

func decode_mft16(raw []byte) (ans any, err error) {
	var a *MFT
	if a, raw, err = load_mft_header(raw); err != nil {
		return nil, err
	}
	if len(raw) < 4 {
		return nil, errors.New("mft2 tag too short")
	}
	input_table_entries, output_table_entries := int(binary.BigEndian.Uint16(raw[:2])), int(binary.BigEndian.Uint16(raw[2:4]))
	if input_table_entries < 2 || output_table_entries < 2 {
		return nil, fmt.Errorf("mft2 tag has invalid table sizes: %d and %d", input_table_entries, output_table_entries)
	}
	if err = load_mft_body(a, raw[4:], 2, input_table_entries, output_table_entries); err != nil {
		return nil, err
	}
	return a, nil
}

// EncodeMFT16 writes a lut16 tag with an identity matrix. Curves are given
// as sampled tables of equal length and the CLUT must have a uniform grid.
func EncodeMFT16(input_curves [][]unit_float, clut *CLUT, output_curves [][]unit_float) ([]byte, error) {
	in, out := clut.IOSig()
	if len(input_curves) != in || len(output_curves) != out {
		return nil, fmt.Errorf("lut16 needs %d input and %d output curves", in, out)
	}
	grid := clut.GridPoints()
	for _, g := range grid {
		if g != grid[0] || g > 255 {
			return nil, fmt.Errorf("lut16 needs a uniform CLUT grid of at most 255 points, got: %v", grid)
		}
	}
	table_size := func(tables [][]unit_float) (int, error) {
		n := len(tables[0])
		for _, t := range tables {
			if len(t) != n || n < 2 || n > 4096 {
				return 0, fmt.Errorf("lut16 tables must have equal sizes between 2 and 4096")
			}
		}
		return n, nil
	}
	ni, err := table_size(input_curves)
	if err != nil {
		return nil, err
	}
	no, err := table_size(output_curves)
	if err != nil {
		return nil, err
	}
	b := new_tag(Lut16TypeSignature)
	b = append(b, byte(in), byte(out), byte(grid[0]), 0)
	for i := range 9 {
		b = appendS15Fixed16BE(b, IfElse(i%4 == 0, unit_float(1), 0))
	}
	b = binary.BigEndian.AppendUint16(b, uint16(ni))
	b = binary.BigEndian.AppendUint16(b, uint16(no))
	put := func(vals []unit_float) {
		for _, v := range vals {
			b = binary.BigEndian.AppendUint16(b, to_u16(v))
		}
	}
	for _, t := range input_curves {
		put(t)
	}
	put(clut.Samples())
	for _, t := range output_curves {
		put(t)
	}
	return b, nil
}

// IdentityTable returns a linear ramp suitable for lut16 curves
func IdentityTable(n int) []unit_float {
	ans := make([]unit_float, n)
	for i := range ans {
		ans[i] = unit_float(i) / unit_float(n-1)
	}
	return ans
}
