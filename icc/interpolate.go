package icc

import (
	"fmt"
	"math"
)

func clamp01(v unit_float) unit_float {
	return max(0, min(v, 1))
}

func sampled_value(samples []unit_float, max_idx unit_float, x unit_float) unit_float {
	idx := clamp01(x) * max_idx
	lof := math.Trunc(idx)
	lo := int(lof)
	if lof == idx {
		return samples[lo]
	}
	p := idx - lof
	vhi := samples[lo+1]
	vlo := samples[lo]
	return vlo + p*(vhi-vlo)
}

type interpolation_data struct {
	num_inputs, num_outputs int
	grid_points             []int
	// offset in samples between adjacent grid nodes along each input axis
	strides []int
	samples []unit_float
}

func expectedValues(gridPoints []int, outputChannels int) int {
	expectedPoints := 1
	for _, g := range gridPoints {
		expectedPoints *= g
	}
	return expectedPoints * outputChannels
}

// The first input channel varies slowest, as in ICC CLUTs
func make_interpolation_data(num_inputs, num_outputs int, grid_points []int, samples []unit_float) (*interpolation_data, error) {
	if num_inputs < 1 || num_inputs > MaxChannels || num_outputs < 1 || num_outputs > MaxChannels {
		return nil, fmt.Errorf("invalid number of CLUT channels: %d → %d", num_inputs, num_outputs)
	}
	if len(grid_points) != num_inputs {
		return nil, fmt.Errorf("CLUT needs %d grid sizes, got %d", num_inputs, len(grid_points))
	}
	for i, g := range grid_points {
		if g < 2 {
			return nil, fmt.Errorf("CLUT input channel %d has invalid grid points: %d", i, g)
		}
	}
	if n := expectedValues(grid_points, num_outputs); n != len(samples) {
		return nil, fmt.Errorf("CLUT needs %d samples, got %d", n, len(samples))
	}
	strides := make([]int, num_inputs)
	s := num_outputs
	for i := num_inputs - 1; i >= 0; i-- {
		strides[i] = s
		s *= grid_points[i]
	}
	return &interpolation_data{num_inputs: num_inputs, num_outputs: num_outputs, grid_points: grid_points, strides: strides, samples: samples}, nil
}

func (d *interpolation_data) locate(axis int, val unit_float) (base int, frac unit_float) {
	gp := d.grid_points[axis]
	pos := clamp01(val) * unit_float(gp-1)
	idx := int(pos)
	frac = pos - unit_float(idx)
	if idx >= gp-1 {
		idx, frac = gp-2, 1
	}
	return idx * d.strides[axis], frac
}

// Performs an n-linear interpolation on the CLUT values for the given input
// color. Input values should be normalized between 0.0 and 1.0.
func (d *interpolation_data) nlinear_interpolate(input, output []unit_float) {
	var bases [MaxChannels]int
	var weights [MaxChannels]unit_float
	output = output[:d.num_outputs]
	for i := range output {
		output[i] = 0
	}
	for i := range d.num_inputs {
		bases[i], weights[i] = d.locate(i, input[i])
	}
	// Iterate through all 2^num_inputs corners of the hypercube
	for corner := range 1 << d.num_inputs {
		w := unit_float(1)
		offset := 0
		for j := range d.num_inputs {
			if (corner>>j)&1 == 1 {
				w *= weights[j]
				offset += bases[j] + d.strides[j]
			} else {
				w *= 1 - weights[j]
				offset += bases[j]
			}
		}
		if w == 0 {
			continue
		}
		for k, v := range d.samples[offset : offset+d.num_outputs] {
			output[k] += v * w
		}
	}
}

// Tetrahedral interpolation for three input channels, following the
// classic Sakamoto decomposition of the unit cube into six tetrahedra.
func (d *interpolation_data) tetrahedral_interpolate(r, g, b unit_float, output []unit_float) {
	X0, rx := d.locate(0, r)
	Y0, ry := d.locate(1, g)
	Z0, rz := d.locate(2, b)
	X1, Y1, Z1 := X0+d.strides[0], Y0+d.strides[1], Z0+d.strides[2]
	v := d.samples
	for o := range d.num_outputs {
		c0 := v[X0+Y0+Z0+o]
		var c1, c2, c3 unit_float
		switch {
		case rx >= ry && ry >= rz:
			c1 = v[X1+Y0+Z0+o] - c0
			c2 = v[X1+Y1+Z0+o] - v[X1+Y0+Z0+o]
			c3 = v[X1+Y1+Z1+o] - v[X1+Y1+Z0+o]
		case rx >= rz && rz >= ry:
			c1 = v[X1+Y0+Z0+o] - c0
			c2 = v[X1+Y1+Z1+o] - v[X1+Y0+Z1+o]
			c3 = v[X1+Y0+Z1+o] - v[X1+Y0+Z0+o]
		case rz >= rx && rx >= ry:
			c1 = v[X1+Y0+Z1+o] - v[X0+Y0+Z1+o]
			c2 = v[X1+Y1+Z1+o] - v[X1+Y0+Z1+o]
			c3 = v[X0+Y0+Z1+o] - c0
		case ry >= rx && rx >= rz:
			c1 = v[X1+Y1+Z0+o] - v[X0+Y1+Z0+o]
			c2 = v[X0+Y1+Z0+o] - c0
			c3 = v[X1+Y1+Z1+o] - v[X1+Y1+Z0+o]
		case ry >= rz && rz >= rx:
			c1 = v[X1+Y1+Z1+o] - v[X0+Y1+Z1+o]
			c2 = v[X0+Y1+Z0+o] - c0
			c3 = v[X0+Y1+Z1+o] - v[X0+Y1+Z0+o]
		default: // rz >= ry && ry >= rx
			c1 = v[X1+Y1+Z1+o] - v[X0+Y1+Z1+o]
			c2 = v[X0+Y1+Z1+o] - v[X0+Y0+Z1+o]
			c3 = v[X0+Y0+Z1+o] - c0
		}
		output[o] = c0 + c1*rx + c2*ry + c3*rz
	}
}
