package icc

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sicc "seehuhn.de/go/icc"
)

func matrix_shaper_profile(t *testing.T) *Profile {
	t.Helper()
	p := NewProfile(DeviceClassDisplay, ColorSpaceRGB, ColorSpaceXYZ)
	require.NoError(t, p.SetText(ProfileDescriptionTagSignature, "test sRGB"))
	require.NoError(t, p.SetText(CopyrightTagSignature, "No copyright"))
	p.SetXYZ(MediaWhitePointTagSignature, D50)
	p.SetXYZ(RedColorantTagSignature, XYZType{0.4361, 0.2225, 0.0139})
	p.SetXYZ(GreenColorantTagSignature, XYZType{0.3851, 0.7169, 0.0971})
	p.SetXYZ(BlueColorantTagSignature, XYZType{0.1431, 0.0606, 0.7141})
	for _, sig := range []Signature{RedTRCTagSignature, GreenTRCTagSignature, BlueTRCTagSignature} {
		p.SetCurve(sig, SRGBCurve())
	}
	return p
}

func identity_lut_profile(t *testing.T, class DeviceClass, data, pcs ColorSpace) *Profile {
	t.Helper()
	p := NewProfile(class, data, pcs)
	n := data.NumComponents()
	tables := func(count int) (ans [][]unit_float) {
		for range count {
			ans = append(ans, IdentityTable(2))
		}
		return
	}
	b, err := EncodeMFT16(tables(n), identity_clut(t, n, 2), tables(n))
	require.NoError(t, err)
	p.TagTable.Set(AToB0TagSignature, b)
	p.TagTable.Set(BToA0TagSignature, b)
	return p
}

func TestProfileEncodeDecode(t *testing.T) {
	p := matrix_shaper_profile(t)
	data := p.Encode()
	assert.Equal(t, 0, len(data)%4)
	assert.Equal(t, uint32(len(data)), binary.BigEndian.Uint32(data))
	assert.Equal(t, "acsp", string(data[36:40]))

	q, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, Version{Major: 4, Minor: 3}, q.Header.Version)
	assert.Equal(t, DeviceClassDisplay, q.Header.DeviceClass)
	assert.Equal(t, ColorSpaceRGB, q.Header.DataColorSpace)
	assert.Equal(t, ColorSpaceXYZ, q.Header.ProfileConnectionSpace)
	assert.Equal(t, FSpotSignature, q.Header.ProfileCreator)
	assert.True(t, p.Header.CreatedAt.Equal(q.Header.CreatedAt))
	in_delta(t, D50.X, q.Header.PCSIlluminant.X, 1e-4)
	assert.Equal(t, p.TagTable.Signatures(), q.TagTable.Signatures())

	d, err := q.Description()
	require.NoError(t, err)
	assert.Equal(t, "test sRGB", d)
	c, err := q.Copyright()
	require.NoError(t, err)
	assert.Equal(t, "No copyright", c)
	wp, err := q.MediaWhitePoint()
	require.NoError(t, err)
	in_delta(t, D50.Z, wp.Z, 1e-4)
	assert.True(t, q.IsMatrixShaper())

	_, err = q.DeviceModelDescription()
	var mte *MissingTagError
	require.ErrorAs(t, err, &mte)
	assert.Equal(t, DeviceModelDescriptionSignature, mte.Sig)
}

func TestProfileV2Text(t *testing.T) {
	p := NewProfile(DeviceClassDisplay, ColorSpaceRGB, ColorSpaceXYZ)
	p.Header.Version = Version{Major: 2, Minor: 1}
	require.NoError(t, p.SetText(ProfileDescriptionTagSignature, "v2 description"))
	require.NoError(t, p.SetText(CopyrightTagSignature, "v2 copyright"))
	assert.Equal(t, TextDescriptionTypeSignature, read_signature(p.TagTable.Raw(ProfileDescriptionTagSignature)))
	assert.Equal(t, TextTagSignature, read_signature(p.TagTable.Raw(CopyrightTagSignature)))
	q, err := Decode(p.Encode())
	require.NoError(t, err)
	d, err := q.Description()
	require.NoError(t, err)
	assert.Equal(t, "v2 description", d)
}

func TestDecodeErrors(t *testing.T) {
	valid := matrix_shaper_profile(t).Encode()
	for _, tc := range []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"Garbage", func([]byte) []byte { return []byte("not an ICC profile") }},
		{"Truncated", func(b []byte) []byte { return b[:len(b)-20] }},
		{"BadFileSignature", func(b []byte) []byte { copy(b[36:], "xxxx"); return b }},
		{"UnknownDataSpace", func(b []byte) []byte { copy(b[16:], "QQQQ"); return b }},
		{"InvalidPCS", func(b []byte) []byte { copy(b[20:], "RGB "); return b }},
		{"TagOutOfRange", func(b []byte) []byte { binary.BigEndian.PutUint32(b[HeaderSize+4+4:], 1<<20); return b }},
		{"TagOverlapsHeader", func(b []byte) []byte { binary.BigEndian.PutUint32(b[HeaderSize+4+4:], 16); return b }},
		{"TooManyTags", func(b []byte) []byte { binary.BigEndian.PutUint32(b[HeaderSize:], 1<<24); return b }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			data := tc.mutate(append([]byte(nil), valid...))
			_, err := Decode(data)
			assert.Error(t, err)
		})
	}
}

func TestMatrixShaperTransforms(t *testing.T) {
	p := matrix_shaper_profile(t)
	to_pcs, err := p.CreateTransformerToPCS(PerceptualRenderingIntent)
	require.NoError(t, err)
	to_dev, err := p.CreateTransformerToDevice(PerceptualRenderingIntent)
	require.NoError(t, err)
	assert.True(t, to_pcs.IsSuitableFor(3, 3))

	xyz := make([]unit_float, 3)
	to_pcs.Transform(xyz, []unit_float{1, 1, 1})
	in_delta_slice(t, []unit_float{D50.X, D50.Y, D50.Z}, xyz, 2e-3)

	for _, rgb := range [][]unit_float{{0, 0, 0}, {1, 0, 0}, {0.2, 0.5, 0.8}, {0.9, 0.9, 0.1}} {
		to_pcs.Transform(xyz, rgb)
		back := make([]unit_float, 3)
		to_dev.Transform(back, xyz)
		in_delta_slice(t, rgb, back, 1e-6)
	}

	t.Run("LabPCS", func(t *testing.T) {
		p.Header.ProfileConnectionSpace = ColorSpaceLab
		defer func() { p.Header.ProfileConnectionSpace = ColorSpaceXYZ }()
		tr, err := p.CreateTransformerToPCS(RelativeColorimetricRenderingIntent)
		require.NoError(t, err)
		lab := make([]unit_float, 3)
		tr.Transform(lab, []unit_float{1, 1, 1})
		in_delta(t, 100, lab[0], 0.1)
		in_delta(t, 0, lab[1], 0.5)
		in_delta(t, 0, lab[2], 0.5)
	})
}

func TestGrayProfile(t *testing.T) {
	p := NewProfile(DeviceClassDisplay, ColorSpaceGray, ColorSpaceXYZ)
	g, err := NewGammaCurve(2.2)
	require.NoError(t, err)
	p.SetCurve(GrayTRCTagSignature, g)
	q, err := Decode(p.Encode())
	require.NoError(t, err)
	to_pcs, err := q.CreateTransformerToPCS(PerceptualRenderingIntent)
	require.NoError(t, err)
	to_dev, err := q.CreateTransformerToDevice(PerceptualRenderingIntent)
	require.NoError(t, err)
	xyz := make([]unit_float, 3)
	to_pcs.Transform(xyz, []unit_float{0.5})
	in_delta(t, 0.2176, xyz[1], 1e-3)
	back := make([]unit_float, 1)
	to_dev.Transform(back, xyz)
	in_delta(t, 0.5, back[0], 1e-3)
}

func TestLUTProfile(t *testing.T) {
	p := identity_lut_profile(t, DeviceClassAbstract, ColorSpaceLab, ColorSpaceLab)
	q, err := Decode(p.Encode())
	require.NoError(t, err)
	// only A2B0 is present so every intent falls back to it
	for _, intent := range []RenderingIntent{PerceptualRenderingIntent, SaturationRenderingIntent, RelativeColorimetricRenderingIntent} {
		tr, err := q.CreateTransformerToPCS(intent)
		require.NoError(t, err)
		out := make([]unit_float, 3)
		tr.Transform(out, []unit_float{50, 20, -30})
		in_delta_slice(t, []unit_float{50, 20, -30}, out, 1e-3)
	}
	// abstract profiles can also be used as links
	tr, err := q.CreateDeviceLinkTransformer(SaturationRenderingIntent)
	require.NoError(t, err)
	out := make([]unit_float, 3)
	tr.Transform(out, []unit_float{50, 20, -30})
	in_delta_slice(t, []unit_float{50, 20, -30}, out, 1e-3)

	m := matrix_shaper_profile(t)
	_, err = m.CreateDeviceLinkTransformer(PerceptualRenderingIntent)
	assert.ErrorContains(t, err, "not a device link")
	q.TagTable.Remove(AToB0TagSignature)
	_, err = q.CreateDeviceLinkTransformer(PerceptualRenderingIntent)
	var mt *MissingTagError
	assert.ErrorAs(t, err, &mt)
}

func TestDeviceLinkProfile(t *testing.T) {
	p := identity_lut_profile(t, DeviceClassLink, ColorSpaceRGB, ColorSpaceRGB)
	q, err := Decode(p.Encode())
	require.NoError(t, err)
	tr, err := q.CreateDeviceLinkTransformer(PerceptualRenderingIntent)
	require.NoError(t, err)
	out := make([]unit_float, 3)
	tr.Transform(out, []unit_float{0.1, 0.5, 0.9})
	in_delta_slice(t, []unit_float{0.1, 0.5, 0.9}, out, 1e-4)
	_, err = q.CreateTransformerToPCS(PerceptualRenderingIntent)
	assert.Error(t, err)
}

func TestLUTChannelMismatch(t *testing.T) {
	p := identity_lut_profile(t, DeviceClassOutput, ColorSpaceRGB, ColorSpaceLab)
	p.Header.DataColorSpace = ColorSpaceCMYK
	_, err := p.CreateTransformerToPCS(PerceptualRenderingIntent)
	assert.ErrorContains(t, err, "channels")
}

func TestBlackPoint(t *testing.T) {
	p := matrix_shaper_profile(t)
	for _, intent := range []RenderingIntent{PerceptualRenderingIntent, RelativeColorimetricRenderingIntent, SaturationRenderingIntent} {
		bp := p.BlackPoint(intent)
		in_delta(t, 0, bp.Y, 1e-6, intent.String())
	}
	assert.Equal(t, XYZType{}, p.BlackPoint(AbsoluteColorimetricRenderingIntent))

	lut := identity_lut_profile(t, DeviceClassOutput, ColorSpaceRGB, ColorSpaceLab)
	assert.Equal(t, PerceptualBlack, lut.BlackPoint(PerceptualRenderingIntent))
	lut.Header.DeviceClass = DeviceClassLink
	assert.Equal(t, XYZType{}, lut.BlackPoint(PerceptualRenderingIntent))
}

func TestSRGBFixtures(t *testing.T) {
	for _, tc := range []struct {
		name string
		data []byte
	}{
		{"v2", sicc.SRGBv2Profile},
		{"v4", sicc.SRGBv4Profile},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Decode(tc.data)
			require.NoError(t, err)
			assert.Equal(t, DeviceClassDisplay, p.Header.DeviceClass)
			assert.Equal(t, ColorSpaceRGB, p.Header.DataColorSpace)
			assert.Equal(t, ColorSpaceXYZ, p.Header.ProfileConnectionSpace)
			d, err := p.Description()
			require.NoError(t, err)
			assert.NotEmpty(t, d)

			to_pcs, err := p.CreateTransformerToPCS(PerceptualRenderingIntent)
			require.NoError(t, err)
			xyz := make([]unit_float, 3)
			to_pcs.Transform(xyz, []unit_float{1, 1, 1})
			in_delta_slice(t, []unit_float{D50.X, D50.Y, D50.Z}, xyz, 0.02)

			to_dev, err := p.CreateTransformerToDevice(PerceptualRenderingIntent)
			require.NoError(t, err)
			rgb := make([]unit_float, 3)
			to_pcs.Transform(xyz, []unit_float{0.25, 0.5, 0.75})
			to_dev.Transform(rgb, xyz)
			in_delta_slice(t, []unit_float{0.25, 0.5, 0.75}, rgb, 0.01)

			q, err := Decode(p.Encode())
			require.NoError(t, err)
			assert.Equal(t, p.TagTable.Signatures(), q.TagTable.Signatures())
			for _, sig := range p.TagTable.Signatures() {
				assert.Equal(t, p.TagTable.Raw(sig), q.TagTable.Raw(sig), sig.String())
			}
		})
	}
}
