package meta

import (
	"bytes"
	"image/color"
	"io"

	exif_tiff "github.com/rwcarlsen/goexif/tiff"
	"golang.org/x/image/tiff"
)

// TIFF tags that goexif does not map to field names
const (
	tag_white_point            = 0x013e
	tag_primary_chromaticities = 0x013f
	tag_inter_color_profile    = 0x8773
)

func find_tag(d *exif_tiff.Dir, id uint16) *exif_tiff.Tag {
	for _, t := range d.Tags {
		if t.Id == id {
			return t
		}
	}
	return nil
}

func tiff_bits_and_components(m color.Model) (bits uint32, components int) {
	switch m {
	case color.RGBAModel, color.NRGBAModel, color.YCbCrModel:
		return 8, 3
	case color.RGBA64Model, color.NRGBA64Model:
		return 16, 3
	case color.CMYKModel:
		return 8, 4
	case color.GrayModel:
		return 8, 1
	case color.Gray16Model:
		return 16, 1
	}
	// paletted images and other custom color models
	r, g, b, a := m.Convert(color.RGBA{R: 255, A: 255}).RGBA()
	if r|g|b|a <= 0xff {
		return 8, 3
	}
	return 16, 3
}

// ExtractTIFF reads the metadata of a TIFF stream. TIFF directories may be
// stored anywhere in the file so the whole stream is read.
func ExtractTIFF(r io.Reader) (md *Data, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	c, err := tiff.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	md = &Data{Format: TIFF, PixelWidth: uint32(c.Width), PixelHeight: uint32(c.Height)}
	md.BitsPerComponent, md.Components = tiff_bits_and_components(c.ColorModel)
	t, err := exif_tiff.Decode(bytes.NewReader(data))
	if err != nil {
		md.SetICCProfileError(err)
		md.SetExifError(err)
		return md, nil
	}
	if len(t.Dirs) > 0 {
		if tag := find_tag(t.Dirs[0], tag_inter_color_profile); tag != nil {
			md.SetICCProfileData(tag.Val)
		}
	}
	// IFD0 carries both the EXIF pointer and the TIFF chromaticity tags
	md.SetExifData(data)
	return md, nil
}
