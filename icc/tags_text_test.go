package icc

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescDecoder(t *testing.T) {
	ascii := []byte("Test description\x00")
	var buf bytes.Buffer
	buf.WriteString("desc")
	buf.Write([]byte{0, 0, 0, 0})
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ascii)))
	buf.Write(ascii)
	_ = binary.Write(&buf, binary.BigEndian, uint32(0))
	buf.Write(make([]byte, 70))

	s, err := parseTextDescription(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Test description", s)

	t.Run("CountTooLarge", func(t *testing.T) {
		b := buf.Bytes()
		binary.BigEndian.PutUint32(b[8:], 5000)
		_, err := parseTextDescription(b)
		assert.Error(t, err)
	})
	t.Run("WrongSignature", func(t *testing.T) {
		_, err := parseTextDescription([]byte("text\x00\x00\x00\x00abcd"))
		assert.Error(t, err)
	})
}

func TestEncodeTextDescription(t *testing.T) {
	s, err := parseTextDescription(EncodeTextDescription("sRGB built-in"))
	require.NoError(t, err)
	assert.Equal(t, "sRGB built-in", s)
}

func TestTextType(t *testing.T) {
	s, err := parseText(EncodeText("No copyright, use freely"))
	require.NoError(t, err)
	assert.Equal(t, "No copyright, use freely", s)
	_, err = parseText([]byte("text"))
	assert.Error(t, err)
}

func TestMultiLocalisedUnicode(t *testing.T) {
	m := NewMultiLocalisedUnicode()
	m.Set("en", "US", "Colour space")
	m.Set("de", "DE", "Farbraum 𝄞")
	m.Set("en", "GB", "Colour space (GB)")
	m.Set("en", "US", "Color space")
	assert.Equal(t, 3, m.Len())

	b, err := m.Encode()
	require.NoError(t, err)
	q, err := parseMultiLocalisedUnicode(b)
	require.NoError(t, err)
	assert.Equal(t, 3, q.Len())

	for _, tc := range []struct{ lang, country, expected string }{
		{"en", "US", "Color space"},
		{"en", "GB", "Colour space (GB)"},
		{"de", "DE", "Farbraum 𝄞"},
		{"de", "AT", "Farbraum 𝄞"},
		{"fr", "FR", "Color space"},
	} {
		t.Run(tc.lang+"_"+tc.country, func(t *testing.T) {
			assert.Equal(t, tc.expected, q.Get(tc.lang, tc.country))
		})
	}
	assert.Equal(t, "", NewMultiLocalisedUnicode().Get("en", "US"))
}

func TestMLUCDecodeErrors(t *testing.T) {
	b, err := EncodeMLUC("en", "US", "hello")
	require.NoError(t, err)
	t.Run("RecordOutOfRange", func(t *testing.T) {
		bad := bytes.Clone(b)
		binary.BigEndian.PutUint32(bad[16+8:], 1000)
		_, err := parseMultiLocalisedUnicode(bad)
		assert.Error(t, err)
	})
	t.Run("TooManyRecords", func(t *testing.T) {
		bad := bytes.Clone(b)
		binary.BigEndian.PutUint32(bad[8:], 100)
		_, err := parseMultiLocalisedUnicode(bad)
		assert.Error(t, err)
	})
	t.Run("InvalidRecordSize", func(t *testing.T) {
		bad := bytes.Clone(b)
		binary.BigEndian.PutUint32(bad[12:], 4)
		_, err := parseMultiLocalisedUnicode(bad)
		assert.Error(t, err)
	})
}

func TestDecodeAnyText(t *testing.T) {
	mluc, err := EncodeMLUC("en", "US", "mluc text")
	require.NoError(t, err)
	for _, tc := range []struct {
		name     string
		data     []byte
		expected string
	}{
		{"mluc", mluc, "mluc text"},
		{"desc", EncodeTextDescription("desc text"), "desc text"},
		{"text", EncodeText("plain text"), "plain text"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s, err := decodeAnyText(tc.data, "en", "US")
			require.NoError(t, err)
			assert.Equal(t, tc.expected, s)
		})
	}
	_, err = decodeAnyText(EncodeXYZ(D50), "en", "US")
	assert.Error(t, err)
}
