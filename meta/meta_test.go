package meta

import (
	"bytes"
	"cmp"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/f-spot/cms"
)

const (
	dt_ascii     = 2
	dt_short     = 3
	dt_long      = 4
	dt_rational  = 5
	dt_undefined = 7
)

type ifd_entry struct {
	id, typ uint16
	count   uint32
	val     []byte
}

var le = binary.LittleEndian

func short_entry(id uint16, v uint16) ifd_entry {
	return ifd_entry{id, dt_short, 1, le.AppendUint16(nil, v)}
}

func long_entry(id uint16, v uint32) ifd_entry {
	return ifd_entry{id, dt_long, 1, le.AppendUint32(nil, v)}
}

func ascii_entry(id uint16, s string) ifd_entry {
	return ifd_entry{id, dt_ascii, uint32(len(s) + 1), append([]byte(s), 0)}
}

func rational_entry(id uint16, vals ...uint32) ifd_entry {
	var b []byte
	for _, v := range vals {
		b = le.AppendUint32(b, v)
		b = le.AppendUint32(b, 10000)
	}
	return ifd_entry{id, dt_rational, uint32(len(vals)), b}
}

// append_ifd appends an IFD made of the raw 12 byte entries and entries,
// sorted by tag as TIFF readers require, and returns the IFD offset
func append_ifd(buf []byte, raw [][]byte, entries []ifd_entry) ([]byte, uint32) {
	if len(buf)%2 == 1 {
		buf = append(buf, 0)
	}
	off := uint32(len(buf))
	n := len(raw) + len(entries)
	data_off := off + 2 + 12*uint32(n) + 4
	var data []byte
	all := append(make([][]byte, 0, n), raw...)
	for _, e := range entries {
		var b []byte
		b = le.AppendUint16(b, e.id)
		b = le.AppendUint16(b, e.typ)
		b = le.AppendUint32(b, e.count)
		if len(e.val) <= 4 {
			v := make([]byte, 4)
			copy(v, e.val)
			b = append(b, v...)
		} else {
			b = le.AppendUint32(b, data_off+uint32(len(data)))
			data = append(data, e.val...)
			if len(data)%2 == 1 {
				data = append(data, 0)
			}
		}
		all = append(all, b)
	}
	slices.SortStableFunc(all, func(a, b []byte) int { return cmp.Compare(le.Uint16(a), le.Uint16(b)) })
	buf = le.AppendUint16(buf, uint16(n))
	for _, e := range all {
		buf = append(buf, e...)
	}
	buf = le.AppendUint32(buf, 0)
	return append(buf, data...), off
}

// exif_tiff_data builds a little endian TIFF structure with optional EXIF
// and interoperability sub-IFDs
func exif_tiff_data(ifd0, exif_ifd, interop []ifd_entry) []byte {
	buf := []byte("II*\x00\x00\x00\x00\x00")
	var off uint32
	if interop != nil {
		buf, off = append_ifd(buf, nil, interop)
		exif_ifd = append(exif_ifd, long_entry(0xa005, off))
	}
	if exif_ifd != nil {
		buf, off = append_ifd(buf, nil, exif_ifd)
		ifd0 = append(ifd0, long_entry(0x8769, off))
	}
	buf, off = append_ifd(buf, nil, ifd0)
	le.PutUint32(buf[4:8], off)
	return buf
}

func srgb_exif() []byte {
	return exif_tiff_data([]ifd_entry{ascii_entry(0x010f, "F-Spot")}, []ifd_entry{short_entry(0xa001, 1)}, nil)
}

func profile_bytes(t *testing.T, p *cms.Profile) []byte {
	t.Helper()
	b, err := p.Save()
	require.NoError(t, err)
	return b
}

func test_image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	for i := range img.Pix {
		img.Pix[i] = 0xff
		if i%4 != 3 {
			img.Pix[i] = byte(i * 7)
		}
	}
	return img
}

func jpeg_segment(marker byte, payload []byte) []byte {
	ans := []byte{0xff, marker, 0, 0}
	binary.BigEndian.PutUint16(ans[2:], uint16(len(payload)+2))
	return append(ans, payload...)
}

func icc_segment(seq, count int, data []byte) []byte {
	p := append([]byte(icc_chunk_magic), byte(seq), byte(count))
	return jpeg_segment(marker_app2, append(p, data...))
}

func jpeg_with_segments(t *testing.T, segments ...[]byte) []byte {
	t.Helper()
	var b bytes.Buffer
	require.NoError(t, jpeg.Encode(&b, test_image(), nil))
	data := b.Bytes()
	ans := append([]byte(nil), data[:2]...)
	for _, s := range segments {
		ans = append(ans, s...)
	}
	return append(ans, data[2:]...)
}

func png_chunk(typ string, payload []byte) []byte {
	ans := binary.BigEndian.AppendUint32(nil, uint32(len(payload)))
	ans = append(ans, typ...)
	ans = append(ans, payload...)
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(payload)
	return binary.BigEndian.AppendUint32(ans, crc.Sum32())
}

func iccp_payload(t *testing.T, profile []byte) []byte {
	t.Helper()
	var z bytes.Buffer
	w := zlib.NewWriter(&z)
	_, err := w.Write(profile)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return append([]byte("test profile\x00\x00"), z.Bytes()...)
}

func png_with_chunks(t *testing.T, chunks ...[]byte) []byte {
	t.Helper()
	var b bytes.Buffer
	require.NoError(t, png.Encode(&b, test_image()))
	data := b.Bytes()
	// signature and IHDR
	const ihdr_end = 8 + 25
	ans := append([]byte(nil), data[:ihdr_end]...)
	for _, c := range chunks {
		ans = append(ans, c...)
	}
	return append(ans, data[ihdr_end:]...)
}

func tiff_with_tags(t *testing.T, extra ...ifd_entry) []byte {
	t.Helper()
	var b bytes.Buffer
	require.NoError(t, tiff.Encode(&b, test_image(), nil))
	data := b.Bytes()
	off := le.Uint32(data[4:8])
	n := int(le.Uint16(data[off:]))
	raw := make([][]byte, n)
	for i := range raw {
		start := int(off) + 2 + 12*i
		raw[i] = append([]byte(nil), data[start:start+12]...)
	}
	data, off = append_ifd(data, raw, extra)
	le.PutUint32(data[4:8], off)
	return data
}

// hides the Seek method of a reader
type stream_only struct{ io.Reader }

func TestLoadJPEG(t *testing.T) {
	icc := profile_bytes(t, must(cms.CreateAlternateRgb()))
	half := len(icc) / 2
	data := jpeg_with_segments(t,
		jpeg_segment(marker_app1, append([]byte(exif_magic), srgb_exif()...)),
		icc_segment(2, 2, icc[half:]),
		icc_segment(1, 2, icc[:half]),
	)
	for _, tc := range []struct {
		name string
		r    io.Reader
	}{
		{"seekable", bytes.NewReader(data)},
		{"stream", stream_only{bytes.NewReader(data)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			md, stream, err := Load(tc.r)
			require.NoError(t, err)
			assert.Equal(t, JPEG, md.Format)
			assert.Equal(t, []uint32{8, 4, 8}, []uint32{md.PixelWidth, md.PixelHeight, md.BitsPerComponent})
			assert.Equal(t, 3, md.Components)
			got, err := md.ICCProfileData()
			require.NoError(t, err)
			assert.Equal(t, icc, got)

			p, err := md.Profile()
			require.NoError(t, err)
			defer p.Close()
			assert.Equal(t, "Adobe RGB (compatible)", p.ProductName())

			x, err := md.Exif()
			require.NoError(t, err)
			p, err = ExifProfile(x)
			require.NoError(t, err)
			assert.Same(t, cms.CreateSRgb(), p)

			img, err := jpeg.Decode(stream)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 8, 4), img.Bounds())
		})
	}
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func TestLoadPNG(t *testing.T) {
	icc := profile_bytes(t, cms.CreateSRgb())
	data := png_with_chunks(t, png_chunk("iCCP", iccp_payload(t, icc)))
	md, stream, err := Load(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, PNG, md.Format)
	assert.Equal(t, []uint32{8, 4, 8}, []uint32{md.PixelWidth, md.PixelHeight, md.BitsPerComponent})
	got, err := md.ICCProfileData()
	require.NoError(t, err)
	assert.Equal(t, icc, got)
	p, err := md.ICCProfile()
	require.NoError(t, err)
	assert.Equal(t, "sRGB", p.ProductName())
	p.Close()
	img, err := png.Decode(stream)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 4), img.Bounds())

	t.Run("eXIf", func(t *testing.T) {
		data := png_with_chunks(t, png_chunk("eXIf", srgb_exif()))
		md, err := ExtractPNG(bytes.NewReader(data))
		require.NoError(t, err)
		p, err := md.Profile()
		require.NoError(t, err)
		assert.Same(t, cms.CreateSRgb(), p)
	})

	t.Run("broken iCCP", func(t *testing.T) {
		bad := append([]byte("x\x00\x00"), "not zlib"...)
		md, err := ExtractPNG(bytes.NewReader(png_with_chunks(t, png_chunk("iCCP", bad))))
		require.NoError(t, err)
		_, err = md.ICCProfileData()
		require.Error(t, err)
		p, err := md.Profile()
		require.Error(t, err)
		assert.Nil(t, p)
	})
}

func TestLoadTIFF(t *testing.T) {
	icc := profile_bytes(t, cms.CreateSRgb())
	data := tiff_with_tags(t, ifd_entry{tag_inter_color_profile, dt_undefined, uint32(len(icc)), icc})
	md, stream, err := Load(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, TIFF, md.Format)
	assert.Equal(t, []uint32{8, 4}, []uint32{md.PixelWidth, md.PixelHeight})
	got, err := md.ICCProfileData()
	require.NoError(t, err)
	assert.Equal(t, icc, got)
	img, err := tiff.Decode(stream)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 4), img.Bounds())

	t.Run("chromaticities", func(t *testing.T) {
		data := tiff_with_tags(t,
			rational_entry(tag_white_point, 3127, 3290),
			rational_entry(tag_primary_chromaticities, 6400, 3300, 3000, 6000, 1500, 600),
		)
		md, err := ExtractTIFF(bytes.NewReader(data))
		require.NoError(t, err)
		p, err := md.Profile()
		require.NoError(t, err)
		require.NotNil(t, p)
		defer p.Close()
		c, err := p.Colorants()
		require.NoError(t, err)
		want, err := cms.CreateSRgb().Colorants()
		require.NoError(t, err)
		for _, pair := range [][2]cms.ColorCIEXYZ{{want.Red, c.Red}, {want.Green, c.Green}, {want.Blue, c.Blue}} {
			assert.InDelta(t, pair[0].X, pair[1].X, 2e-3)
			assert.InDelta(t, pair[0].Y, pair[1].Y, 2e-3)
			assert.InDelta(t, pair[0].Z, pair[1].Z, 2e-3)
		}
	})
}

func TestExifProfile(t *testing.T) {
	decode := func(t *testing.T, data []byte) *Data {
		md := &Data{}
		md.SetExifData(data)
		return md
	}
	t.Run("adobe rgb", func(t *testing.T) {
		md := decode(t, exif_tiff_data(nil, []ifd_entry{short_entry(0xa001, 0xffff)}, []ifd_entry{ascii_entry(0x0001, "R03")}))
		p, err := md.Profile()
		require.NoError(t, err)
		require.NotNil(t, p)
		defer p.Close()
		assert.Equal(t, "Adobe RGB (compatible)", p.ProductName())
	})
	t.Run("uncalibrated", func(t *testing.T) {
		md := decode(t, exif_tiff_data(nil, []ifd_entry{short_entry(0xa001, 0xffff)}, []ifd_entry{ascii_entry(0x0001, "R98")}))
		p, err := md.Profile()
		require.NoError(t, err)
		assert.Nil(t, p)
	})
	t.Run("nothing", func(t *testing.T) {
		p, err := (&Data{}).Profile()
		require.NoError(t, err)
		assert.Nil(t, p)
		p, err = ExifProfile(nil)
		require.NoError(t, err)
		assert.Nil(t, p)
	})
	t.Run("invalid primaries", func(t *testing.T) {
		md := decode(t, exif_tiff_data([]ifd_entry{
			rational_entry(tag_white_point, 3127, 0),
			rational_entry(tag_primary_chromaticities, 6400, 3300, 3000, 6000, 1500, 600),
		}, nil, nil))
		_, err := md.Profile()
		require.Error(t, err)
	})
}

func gif_with_profile(t *testing.T, profile []byte) []byte {
	t.Helper()
	var b bytes.Buffer
	require.NoError(t, gif.Encode(&b, image.NewPaletted(image.Rect(0, 0, 5, 3), palette.Plan9), nil))
	data := b.Bytes()
	end := 13
	if flags := data[10]; flags&0x80 != 0 {
		end += 3 << (1 + flags&7)
	}
	ext := append([]byte{0x21, 0xff, 11}, gif_icc_application...)
	for len(profile) > 0 {
		n := min(255, len(profile))
		ext = append(ext, byte(n))
		ext = append(ext, profile[:n]...)
		profile = profile[n:]
	}
	ext = append(ext, 0)
	ans := append([]byte(nil), data[:end]...)
	ans = append(ans, ext...)
	return append(ans, data[end:]...)
}

func TestLoadGIF(t *testing.T) {
	icc := profile_bytes(t, cms.CreateSRgb())
	md, stream, err := Load(bytes.NewReader(gif_with_profile(t, icc)))
	require.NoError(t, err)
	assert.Equal(t, GIF, md.Format)
	assert.Equal(t, []uint32{5, 3}, []uint32{md.PixelWidth, md.PixelHeight})
	got, err := md.ICCProfileData()
	require.NoError(t, err)
	assert.Equal(t, icc, got)
	img, err := gif.Decode(stream)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 5, 3), img.Bounds())

	_, err = ExtractGIF(bytes.NewReader([]byte("GIF90a1234567")))
	require.ErrorIs(t, err, ErrNotGIF)
}

func TestAssembleICC(t *testing.T) {
	for _, tc := range []struct {
		name   string
		chunks []icc_chunk
		want   []byte
		err    bool
	}{
		{"none", nil, nil, false},
		{"ordered", []icc_chunk{{1, 2, []byte("ab")}, {2, 2, []byte("cd")}}, []byte("abcd"), false},
		{"unordered", []icc_chunk{{2, 2, []byte("cd")}, {1, 2, []byte("ab")}}, []byte("abcd"), false},
		{"missing", []icc_chunk{{1, 2, []byte("ab")}}, nil, true},
		{"zero sequence", []icc_chunk{{0, 1, []byte("ab")}}, nil, true},
		{"count mismatch", []icc_chunk{{1, 2, []byte("ab")}, {2, 3, []byte("cd")}}, nil, true},
		{"duplicate", []icc_chunk{{1, 2, []byte("ab")}, {1, 2, []byte("cd")}}, nil, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := assemble_icc(tc.chunks)
			if tc.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("returns original image data when format is unrecognised", func(t *testing.T) {
		data := []byte("not an image format simply some plain text")
		md, stream, err := Load(stream_only{bytes.NewReader(data)})
		require.ErrorIs(t, err, ErrUnknownFormat)
		assert.Nil(t, md)
		returned, err := io.ReadAll(stream)
		require.NoError(t, err)
		require.Equal(t, data, returned)
	})
	t.Run("truncated JPEG", func(t *testing.T) {
		_, err := ExtractJPEG(bytes.NewReader([]byte{0xff, 0xd8, 0xff, 0xe1, 0x00}))
		require.Error(t, err)
	})
	t.Run("not a JPEG", func(t *testing.T) {
		_, err := ExtractJPEG(bytes.NewReader([]byte("GIF89a")))
		require.ErrorIs(t, err, ErrNotJPEG)
	})
	t.Run("not a PNG", func(t *testing.T) {
		_, err := ExtractPNG(bytes.NewReader([]byte("GIF89a..")))
		require.ErrorIs(t, err, ErrNotPNG)
	})
	t.Run("gray JPEG", func(t *testing.T) {
		var b bytes.Buffer
		g := image.NewGray(image.Rect(0, 0, 3, 5))
		g.SetGray(1, 1, color.Gray{200})
		require.NoError(t, jpeg.Encode(&b, g, nil))
		md, err := ExtractJPEG(&b)
		require.NoError(t, err)
		assert.Equal(t, 1, md.Components)
		p, err := md.Profile()
		require.NoError(t, err)
		assert.Nil(t, p)
	})
}
