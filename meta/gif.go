package meta

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	gif_extension        = 0x21
	gif_image_descriptor = 0x2c
	gif_trailer          = 0x3b
	gif_application      = 0xff
)

// application identifier and authentication code of embedded ICC profiles
const gif_icc_application = "ICCRGBG1012"

var ErrNotGIF = errors.New("not a GIF file")

// read_sub_blocks concatenates data sub-blocks up to the block terminator.
// With w nil the data is skipped.
func read_sub_blocks(r *bufio.Reader, w io.Writer) error {
	if w == nil {
		w = io.Discard
	}
	for {
		sz, err := r.ReadByte()
		if err != nil {
			return err
		}
		if sz == 0 {
			return nil
		}
		if _, err = io.CopyN(w, r, int64(sz)); err != nil {
			return err
		}
	}
}

// ExtractGIF reads the metadata of a GIF stream, consuming it up to the
// first image. Profiles placed after the first image are not found.
func ExtractGIF(r_ io.Reader) (md *Data, err error) {
	r, ok := r_.(*bufio.Reader)
	if !ok {
		r = bufio.NewReader(r_)
	}
	var header [13]byte
	if _, err = io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	if string(header[:3]) != "GIF" || (string(header[3:6]) != "87a" && string(header[3:6]) != "89a") {
		return nil, ErrNotGIF
	}
	md = &Data{
		Format: GIF, PixelWidth: uint32(binary.LittleEndian.Uint16(header[6:8])),
		PixelHeight: uint32(binary.LittleEndian.Uint16(header[8:10])), BitsPerComponent: 8, Components: 3,
	}
	if flags := header[10]; flags&0x80 != 0 {
		if _, err = r.Discard(3 << (1 + flags&7)); err != nil {
			return nil, fmt.Errorf("GIF color table truncated: %w", err)
		}
	}
	for {
		c, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return md, nil
			}
			return nil, err
		}
		switch c {
		case gif_image_descriptor, gif_trailer:
			return md, nil
		case gif_extension:
		default:
			return nil, fmt.Errorf("unknown GIF block type: 0x%x", c)
		}
		label, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("GIF extension truncated: %w", err)
		}
		if label == gif_application {
			var id bytes.Buffer
			sz, err := r.ReadByte()
			if err == nil {
				_, err = io.CopyN(&id, r, int64(sz))
			}
			if err != nil {
				return nil, fmt.Errorf("GIF application extension truncated: %w", err)
			}
			if id.String() == gif_icc_application {
				var profile bytes.Buffer
				if err = read_sub_blocks(r, &profile); err != nil {
					md.SetICCProfileError(fmt.Errorf("GIF ICC profile truncated: %w", err))
					return md, nil
				}
				md.SetICCProfileData(profile.Bytes())
				continue
			}
		}
		if err = read_sub_blocks(r, nil); err != nil {
			return nil, fmt.Errorf("GIF extension truncated: %w", err)
		}
	}
}
