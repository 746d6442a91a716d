package cms

import (
	"encoding/binary"

	"github.com/f-spot/cms/colorconv"
)

type sample_encoding int

const (
	device_encoding sample_encoding = iota
	lab_encoding
	xyz_encoding
	yxy_encoding
)

// codec moves pixels between a byte buffer and float channel values. Device
// channels are normalized to [0, 1], Lab is L in [0, 100] and a, b in
// [-128, 127], XYZ is relative to Y = 1.
type codec struct {
	format                       Format
	channels, extra, bytes, size int
	encoding                     sample_encoding
	// memory position of each logical channel within a pixel, color
	// channels followed by extra channels
	slots []int
	order binary.ByteOrder
}

func new_codec(f Format, space IccColorSpace) (*codec, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	c := &codec{format: f, channels: f.Channels(), extra: f.Extra(), bytes: f.Bytes()}
	c.size = c.channels + c.extra
	c.order = binary.ByteOrder(binary.LittleEndian)
	if f.Endian16() {
		c.order = binary.BigEndian
	}
	switch f.PixelType() {
	case PixelTypeYxy:
		c.encoding = yxy_encoding
	case PixelTypeAny:
		c.encoding = encoding_for_space(space)
	default:
		cs, _ := f.PixelType().ColorSpace()
		c.encoding = encoding_for_space(cs)
	}
	c.slots = make([]int, c.size)
	n := c.channels
	swap, first := f.DoSwap(), f.SwapFirst()
	if c.extra == 0 {
		for i := range n {
			k := i
			if first {
				k = (i + 1) % n
			}
			c.slots[i] = if_else(swap, n-1-k, k)
		}
	} else {
		extra_first := swap != first
		cstart, estart := if_else(extra_first, c.extra, 0), if_else(extra_first, 0, n)
		for i := range n {
			c.slots[i] = cstart + if_else(swap, n-1-i, i)
		}
		for e := range c.extra {
			c.slots[n+e] = estart + e
		}
	}
	return c, nil
}

func encoding_for_space(cs IccColorSpace) sample_encoding {
	switch cs {
	case ColorSpaceLab:
		return lab_encoding
	case ColorSpaceXYZ:
		return xyz_encoding
	}
	return device_encoding
}

func if_else[T any](condition bool, if_val T, else_val T) T {
	if condition {
		return if_val
	}
	return else_val
}

func (c *codec) offset(pixel, slot, num_pixels int) int {
	if c.format.Planar() {
		return (slot*num_pixels + pixel) * c.bytes
	}
	return (pixel*c.size + slot) * c.bytes
}

func (c *codec) read(buf []byte, pixel, slot, num_pixels int) (v float64) {
	off := c.offset(pixel, slot, num_pixels)
	if c.bytes == 1 {
		v = float64(buf[off]) / 255
	} else {
		v = float64(c.order.Uint16(buf[off:])) / 65535
	}
	if c.format.Flavor() {
		v = 1 - v
	}
	return
}

func (c *codec) write(buf []byte, pixel, slot, num_pixels int, v float64) {
	v = colorconv.Clamp01(v)
	if c.format.Flavor() {
		v = 1 - v
	}
	off := c.offset(pixel, slot, num_pixels)
	if c.bytes == 1 {
		buf[off] = uint8(v*255 + 0.5)
	} else {
		c.order.PutUint16(buf[off:], uint16(v*65535+0.5))
	}
}

// XYZ samples are fixed point with 1.0 at half the range
func (c *codec) xyz_scale() float64 {
	return if_else(c.bytes == 1, 255.0/128.0, 65535.0/32768.0)
}

func (c *codec) unpack(buf []byte, pixel, num_pixels int, out []float64) {
	for i := range c.channels {
		out[i] = c.read(buf, pixel, c.slots[i], num_pixels)
	}
	switch c.encoding {
	case lab_encoding:
		out[0] *= 100
		out[1] = out[1]*255 - 128
		out[2] = out[2]*255 - 128
	case xyz_encoding:
		s := c.xyz_scale()
		out[0], out[1], out[2] = out[0]*s, out[1]*s, out[2]*s
	case yxy_encoding:
		out[0], out[1], out[2] = colorconv.XYYToXYZ(out[1], out[2], out[0])
	}
}

func (c *codec) pack(buf []byte, pixel, num_pixels int, in []float64) {
	var v [3]float64
	vals := in[:c.channels]
	switch c.encoding {
	case lab_encoding:
		v = [3]float64{in[0] / 100, (in[1] + 128) / 255, (in[2] + 128) / 255}
		vals = v[:]
	case xyz_encoding:
		s := c.xyz_scale()
		v = [3]float64{in[0] / s, in[1] / s, in[2] / s}
		vals = v[:]
	case yxy_encoding:
		x, y, yy := colorconv.XYZToxyY(in[0], in[1], in[2])
		v = [3]float64{yy, x, y}
		vals = v[:]
	}
	for i, x := range vals {
		c.write(buf, pixel, c.slots[i], num_pixels, x)
	}
}

func (c *codec) read_extra(buf []byte, pixel, num_pixels int, out []float64) {
	for e := range c.extra {
		out[e] = c.read(buf, pixel, c.slots[c.channels+e], num_pixels)
	}
}

func (c *codec) write_extra(buf []byte, pixel, num_pixels int, in []float64) {
	for e := range c.extra {
		c.write(buf, pixel, c.slots[c.channels+e], num_pixels, in[e])
	}
}

// buffer_size is the number of bytes needed for num_pixels pixels
func (c *codec) buffer_size(num_pixels int) int { return num_pixels * c.size * c.bytes }
