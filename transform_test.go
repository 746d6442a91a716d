package cms

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rgb_ramp(n int) []byte {
	ans := make([]byte, 3*n)
	for i := range ans {
		ans[i] = byte((i * 37) % 256)
	}
	return ans
}

func assert_bytes_near(t *testing.T, expected, actual []byte, delta int) {
	t.Helper()
	require.Equal(t, len(expected), len(actual))
	for i := range expected {
		if d := int(expected[i]) - int(actual[i]); d > delta || d < -delta {
			assert.Failf(t, "bytes differ", "byte %d: %d != %d", i, expected[i], actual[i])
			return
		}
	}
}

func TestTransformSRGBIdentity(t *testing.T) {
	srgb := CreateStandardRgb()
	for _, flags := range []Flags{0, NoPrecalc, HighResPrecalc, LowResPrecalc, BlackPointCompensation} {
		for _, intent := range []Intent{Perceptual, RelativeColorimetric, Saturation, AbsoluteColorimetric} {
			t.Run(fmt.Sprintf("%x/%s", uint32(flags), intent), func(t *testing.T) {
				tr, err := NewTransform(srgb, Rgb8, srgb, Rgb8, intent, flags)
				require.NoError(t, err)
				defer tr.Close()
				in := rgb_ramp(64)
				out := make([]byte, len(in))
				require.NoError(t, tr.Apply(in, out, 64))
				assert_bytes_near(t, in, out, 1)
			})
		}
	}
}

func TestTransform16Bit(t *testing.T) {
	srgb := CreateStandardRgb()
	tr, err := NewTransform(srgb, Rgb16, srgb, Rgb16se, Perceptual, 0)
	require.NoError(t, err)
	defer tr.Close()
	in := []byte{0x00, 0x10, 0x34, 0x12, 0xff, 0xff}
	out := make([]byte, 6)
	require.NoError(t, tr.Apply(in, out, 1))
	for i, v := range []int{0x1000, 0x1234, 0xffff} {
		got := int(out[2*i])<<8 | int(out[2*i+1])
		assert.InDelta(t, v, got, 8, "channel %d", i)
	}
}

func TestTransformToLab(t *testing.T) {
	srgb := CreateStandardRgb()
	lab, err := CreateLabD50()
	require.NoError(t, err)
	defer lab.Close()

	tr, err := NewTransform(srgb, Rgb8, lab, Lab8, Perceptual, 0)
	require.NoError(t, err)
	defer tr.Close()
	out := make([]byte, 6)
	require.NoError(t, tr.Apply([]byte{255, 255, 255, 0, 0, 0}, out, 2))
	assert_bytes_near(t, []byte{255, 128, 128, 0, 128, 128}, out, 1)

	back, err := NewTransform(lab, Lab16, srgb, Rgb8, RelativeColorimetric, 0)
	require.NoError(t, err)
	defer back.Close()
	// L = 53.39, a = b = 0 is sRGB gray 128
	in := []byte{0, 0, 0, 0, 0, 0}
	c := codec_for_test(t, Lab16, ColorSpaceLab)
	c.pack(in, 0, 1, []float64{53.39, 0, 0})
	require.NoError(t, back.Apply(in, out[:3], 1))
	assert_bytes_near(t, []byte{128, 128, 128}, out[:3], 1)
}

func codec_for_test(t *testing.T, f Format, space IccColorSpace) *codec {
	t.Helper()
	c, err := new_codec(f, space)
	require.NoError(t, err)
	return c
}

func TestTransformXYZ(t *testing.T) {
	srgb := CreateStandardRgb()
	xyz, err := CreateXYZ()
	require.NoError(t, err)
	defer xyz.Close()
	for _, f := range []Format{Xyz16, Yxy16} {
		t.Run(f.String(), func(t *testing.T) {
			tr, err := NewTransform(srgb, Rgb8, xyz, f, Perceptual, 0)
			require.NoError(t, err)
			defer tr.Close()
			out := make([]byte, 6)
			require.NoError(t, tr.Apply([]byte{255, 255, 255}, out, 1))
			vals := make([]float64, 3)
			codec_for_test(t, f, ColorSpaceXYZ).unpack(out, 0, 1, vals)
			in_delta_slice(t, []float64{D50.X, D50.Y, D50.Z}, vals, 1e-3)
		})
	}
}

func TestTransformAlpha(t *testing.T) {
	srgb := CreateStandardRgb()
	in := []byte{10, 20, 30, 40, 200, 100, 50, 250}

	tr, err := NewTransform(srgb, Rgba8, srgb, Bgra8, Perceptual, CopyAlpha)
	require.NoError(t, err)
	defer tr.Close()
	out := make([]byte, 8)
	require.NoError(t, tr.Apply(in, out, 2))
	assert_bytes_near(t, []byte{30, 20, 10, 40, 50, 100, 200, 250}, out, 1)

	// without CopyAlpha extra channels are left alone
	noalpha, err := NewTransform(srgb, Rgba8, srgb, Rgba8, Perceptual, 0)
	require.NoError(t, err)
	defer noalpha.Close()
	out = []byte{0, 0, 0, 7, 0, 0, 0, 7}
	require.NoError(t, noalpha.Apply(in, out, 2))
	assert.Equal(t, byte(7), out[3])
	assert.Equal(t, byte(7), out[7])

	_, err = NewTransform(srgb, Rgba8, srgb, Rgb8, Perceptual, CopyAlpha)
	assert.ErrorIs(t, err, ErrOutOfRange)
	drop, err := NewTransform(srgb, Rgba8, srgb, Rgb8, Perceptual, 0)
	require.NoError(t, err)
	defer drop.Close()
	require.NoError(t, drop.Apply(in, out[:6], 2))
	assert_bytes_near(t, []byte{10, 20, 30, 200, 100, 50}, out[:6], 1)
}

func TestNullTransform(t *testing.T) {
	tr, err := NewTransform(nil, Rgb8, nil, Gbr8, Perceptual, NullTransform)
	require.NoError(t, err)
	defer tr.Close()
	out := make([]byte, 6)
	require.NoError(t, tr.Apply([]byte{1, 2, 3, 4, 5, 6}, out, 2))
	assert.Equal(t, []byte{3, 2, 1, 6, 5, 4}, out)

	_, err = NewTransform(nil, Rgb8, nil, Gray8, Perceptual, NullTransform)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestTransformParallel(t *testing.T) {
	srgb := CreateStandardRgb()
	alt, err := CreateAlternateRgb()
	require.NoError(t, err)
	defer alt.Close()
	tr, err := NewTransform(srgb, Rgb8, alt, Rgb8, Perceptual, 0)
	require.NoError(t, err)
	defer tr.Close()
	n := 3 * parallel_threshold
	in := rgb_ramp(n)
	out := make([]byte, len(in))
	require.NoError(t, tr.Apply(in, out, n))
	single := make([]byte, 3)
	for _, i := range []int{0, 1, parallel_threshold, n - 1} {
		require.NoError(t, tr.Apply(in[3*i:3*i+3], single, 1))
		assert.Equal(t, single, out[3*i:3*i+3], "pixel %d", i)
	}
	// in place
	buf := append([]byte(nil), in...)
	require.NoError(t, tr.Apply(buf, buf, n))
	assert.Equal(t, out, buf)
}

func TestTransformErrors(t *testing.T) {
	srgb := CreateStandardRgb()
	lab, err := CreateLabD50()
	require.NoError(t, err)
	defer lab.Close()
	link, err := CreateAbstract(5, AbstractParams{}, 6500, 6500)
	require.NoError(t, err)
	defer link.Close()
	closed, err := CreateXYZ()
	require.NoError(t, err)
	closed.Close()

	for _, tc := range []struct {
		name     string
		profiles []*Profile
		in, out  Format
		intent   Intent
	}{
		{"no profiles", nil, Rgb8, Rgb8, Perceptual},
		{"bad intent", []*Profile{srgb, srgb}, Rgb8, Rgb8, Intent(7)},
		{"input format", []*Profile{srgb, srgb}, Cmyk8, Rgb8, Perceptual},
		{"output format", []*Profile{srgb, lab}, Rgb8, Rgb8, Perceptual},
		{"channel count", []*Profile{srgb, srgb}, NewFormat(PixelTypeAny, 4, 0, 1), Rgb8, Perceptual},
		{"closed profile", []*Profile{srgb, closed}, Rgb8, Xyz16, Perceptual},
		{"nil profile", []*Profile{srgb, nil}, Rgb8, Rgb8, Perceptual},
		{"link after device", []*Profile{lab, srgb, link}, Lab8, Lab8, Perceptual},
		{"16 bit", []*Profile{srgb, srgb}, NewFormat(PixelTypeRgb, 3, 0, 4), Rgb8, Perceptual},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tr, err := NewMultiProfileTransform(tc.profiles, tc.in, tc.out, tc.intent, 0)
			assert.Nil(t, tr)
			require.Error(t, err)
			var ce *Error
			assert.ErrorAs(t, err, &ce)
		})
	}
}

func TestTransformApplyAndClose(t *testing.T) {
	srgb := CreateStandardRgb()
	tr, err := NewTransform(srgb, Rgb8, srgb, Rgba8, Perceptual, 0)
	require.NoError(t, err)
	assert.Contains(t, tr.String(), "Rgb8 → Rgba8")

	assert.ErrorIs(t, tr.Apply(make([]byte, 5), make([]byte, 8), 2), ErrOutOfRange)
	assert.ErrorIs(t, tr.Apply(make([]byte, 6), make([]byte, 7), 2), ErrOutOfRange)
	assert.ErrorIs(t, tr.Apply(nil, nil, -1), ErrOutOfRange)
	assert.NoError(t, tr.Apply(nil, nil, 0))

	tr.Close()
	assert.NotPanics(t, tr.Close)
	assert.False(t, transforms.Release(tr.h))
	assert.ErrorIs(t, tr.Apply(make([]byte, 6), make([]byte, 8), 2), ErrClosed)
	assert.Equal(t, "Transform{closed}", tr.String())
	var nt *Transform
	assert.NotPanics(t, nt.Close)
}
