package icc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/kovidgoyal/go-parallel"
)

// CLUT is a multi-dimensional color lookup table, with all samples
// normalized to [0, 1]
type CLUT struct {
	d         *interpolation_data
	trilinear bool
}

var _ ChannelTransformer = (*CLUT)(nil)

func NewCLUT(num_inputs, num_outputs int, grid_points []int, samples []unit_float) (*CLUT, error) {
	d, err := make_interpolation_data(num_inputs, num_outputs, grid_points, samples)
	if err != nil {
		return nil, err
	}
	return &CLUT{d: d}, nil
}

func UniformGrid(num_inputs, grid_points int) []int {
	ans := make([]int, num_inputs)
	for i := range ans {
		ans[i] = grid_points
	}
	return ans
}

func (c *CLUT) Samples() []unit_float                { return c.d.samples }
func (c *CLUT) GridPoints() []int                    { return c.d.grid_points }
func (c *CLUT) IOSig() (int, int)                    { return c.d.num_inputs, c.d.num_outputs }
func (c *CLUT) Iter(f func(ChannelTransformer) bool) { f(c) }

func (c *CLUT) String() string {
	return fmt.Sprintf("CLUT{ inp:%v outp:%v grid:%v values[:9]:%v }", c.d.num_inputs, c.d.num_outputs, c.d.grid_points, c.d.samples[:min(9, len(c.d.samples))])
}

// UseTrilinear switches three channel lookups from tetrahedral to trilinear
// interpolation
func (c *CLUT) UseTrilinear() { c.trilinear = true }

func (c *CLUT) Transform(out, in []unit_float) {
	if c.d.num_inputs == 3 && !c.trilinear {
		c.d.tetrahedral_interpolate(in[0], in[1], in[2], out)
	} else {
		c.d.nlinear_interpolate(in, out)
	}
}

// SampleCLUT builds a CLUT by evaluating f at every grid node. f is called
// concurrently and must be safe for that.
func SampleCLUT(num_inputs, num_outputs int, grid_points []int, f func(out, in []unit_float)) (*CLUT, error) {
	if num_inputs < 1 || num_inputs > MaxChannels || len(grid_points) != num_inputs {
		return nil, fmt.Errorf("cannot sample a CLUT with %d inputs and %d grid sizes", num_inputs, len(grid_points))
	}
	samples := make([]unit_float, expectedValues(grid_points, num_outputs))
	num_nodes := len(samples) / num_outputs
	err := parallel.Run_in_parallel_over_range(0, func(start, limit int) {
		var in [MaxChannels]unit_float
		var out [MaxChannels]unit_float
		for node := start; node < limit; node++ {
			rem := node
			for i := num_inputs - 1; i >= 0; i-- {
				g := grid_points[i]
				in[i] = unit_float(rem%g) / unit_float(g-1)
				rem /= g
			}
			f(out[:num_outputs], in[:num_inputs])
			copy(samples[node*num_outputs:], out[:num_outputs])
		}
	}, 0, num_nodes)
	if err != nil {
		return nil, err
	}
	return NewCLUT(num_inputs, num_outputs, grid_points, samples)
}

func decode_table(raw []byte, bytes_per_value, count int) ([]unit_float, error) {
	if len(raw) < count*bytes_per_value {
		return nil, fmt.Errorf("table too short %d < %d", len(raw), count*bytes_per_value)
	}
	ans := make([]unit_float, count)
	switch bytes_per_value {
	case 1:
		for i := range ans {
			ans[i] = unit_float(raw[i]) / math.MaxUint8
		}
	case 2:
		for i := range ans {
			ans[i] = unit_float(binary.BigEndian.Uint16(raw[i*2:])) / math.MaxUint16
		}
	default:
		return nil, fmt.Errorf("invalid table precision: %d", bytes_per_value)
	}
	return ans, nil
}

// section 10.12.3 (CLUT) in ICC.1-2202-05.pdf
func embeddedClutDecoder(raw []byte, InputChannels, OutputChannels int) (*CLUT, error) {
	if len(raw) < 20 {
		return nil, errors.New("clut tag too short")
	}
	if InputChannels > MaxChannels || InputChannels < 1 {
		return nil, fmt.Errorf("clut has invalid number of input channels: %d", InputChannels)
	}
	gridPoints := make([]int, InputChannels)
	for i, b := range raw[:InputChannels] {
		gridPoints[i] = int(b)
		if b < 2 {
			return nil, fmt.Errorf("CLUT input channel %d has invalid grid points: %d", i, b)
		}
	}
	values, err := decode_table(raw[20:], int(raw[16]), expectedValues(gridPoints, OutputChannels))
	if err != nil {
		return nil, fmt.Errorf("CLUT: %w", err)
	}
	return NewCLUT(InputChannels, OutputChannels, gridPoints, values)
}
