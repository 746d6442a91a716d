package icc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMFT16RoundTrip(t *testing.T) {
	clut := identity_clut(t, 3, 9)
	square := []unit_float{0, 0.25, 1}
	b, err := EncodeMFT16(
		[][]unit_float{square, square, square}, clut,
		[][]unit_float{IdentityTable(256), IdentityTable(256), IdentityTable(256)})
	require.NoError(t, err)
	assert.Equal(t, Lut16TypeSignature, read_signature(b))

	x, err := decode_mft16(b)
	require.NoError(t, err)
	require.IsType(t, &MFT{}, x)
	m := x.(*MFT)
	assert.False(t, m.Is8Bit())
	assert.Nil(t, m.Matrix())
	i, o := m.IOSig()
	assert.Equal(t, 3, i)
	assert.Equal(t, 3, o)

	out := make([]unit_float, 3)
	m.Transform(out, []unit_float{0.5, 0, 1})
	in_delta_slice(t, []unit_float{0.25, 0, 1}, out, 1e-4)
}

func TestEncodeMFT16Validation(t *testing.T) {
	clut := identity_clut(t, 3, 3)
	id := IdentityTable(2)
	_, err := EncodeMFT16([][]unit_float{id, id}, clut, [][]unit_float{id, id, id})
	assert.Error(t, err)
	_, err = EncodeMFT16([][]unit_float{id, id, IdentityTable(3)}, clut, [][]unit_float{id, id, id})
	assert.Error(t, err)
	uneven, err := SampleCLUT(3, 3, []int{2, 3, 2}, func(out, in []unit_float) { copy(out, in) })
	require.NoError(t, err)
	_, err = EncodeMFT16([][]unit_float{id, id, id}, uneven, [][]unit_float{id, id, id})
	assert.Error(t, err)
}

func TestMFTDecodeErrors(t *testing.T) {
	t.Run("TooShort", func(t *testing.T) {
		_, err := decode_mft16(make([]byte, 40))
		assert.Error(t, err)
	})
	t.Run("InvalidGrid", func(t *testing.T) {
		b := append([]byte("mft2\x00\x00\x00\x00"), 3, 3, 1, 0)
		b = append(b, make([]byte, 40)...)
		_, err := decode_mft16(b)
		assert.ErrorContains(t, err, "grid points")
	})
	t.Run("InvalidChannels", func(t *testing.T) {
		b := append([]byte("mft2\x00\x00\x00\x00"), 0, 3, 2, 0)
		b = append(b, make([]byte, 40)...)
		_, err := decode_mft16(b)
		assert.ErrorContains(t, err, "channels")
	})
	t.Run("TruncatedTables", func(t *testing.T) {
		clut := identity_clut(t, 3, 5)
		id := IdentityTable(16)
		b, err := EncodeMFT16([][]unit_float{id, id, id}, clut, [][]unit_float{id, id, id})
		require.NoError(t, err)
		_, err = decode_mft16(b[:len(b)-10])
		assert.Error(t, err)
	})
}

func TestMFT8Decode(t *testing.T) {
	b := append([]byte("mft1\x00\x00\x00\x00"), 1, 1, 2, 0)
	for i := range 9 {
		b = appendS15Fixed16BE(b, IfElse(i%4 == 0, unit_float(1), 0))
	}
	ramp := make([]byte, 256)
	for i := range ramp {
		ramp[i] = byte(i)
	}
	b = append(b, ramp...)
	b = append(b, 255, 0) // inverted CLUT
	b = append(b, ramp...)
	x, err := decode_mft8(b)
	require.NoError(t, err)
	m := x.(*MFT)
	assert.True(t, m.Is8Bit())
	out := make([]unit_float, 1)
	m.Transform(out, []unit_float{0.25})
	in_delta(t, 0.75, out[0], 1e-3)
}
