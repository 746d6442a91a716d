package meta

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const png_magic = "\x89PNG\r\n\x1a\n"

// chunks larger than this are not buffered when looking for metadata
const max_metadata_chunk = 64 << 20

var ErrNotPNG = errors.New("not a PNG file")

func png_components(color_type byte) int {
	switch color_type {
	case 0, 4:
		return 1
	case 2, 3, 6:
		return 3
	}
	return 0
}

// decode_iccp returns the profile stored in an iCCP chunk: a Latin-1 name,
// a NUL, the compression method (always 0) then zlib compressed data
func decode_iccp(payload []byte) ([]byte, error) {
	name_end := bytes.IndexByte(payload, 0)
	if name_end < 1 || name_end > 79 {
		return nil, errors.New("iCCP chunk has an invalid profile name")
	}
	rest := payload[name_end+1:]
	if len(rest) < 1 || rest[0] != 0 {
		return nil, errors.New("iCCP chunk has an unknown compression method")
	}
	zr, err := zlib.NewReader(bytes.NewReader(rest[1:]))
	if err != nil {
		return nil, fmt.Errorf("iCCP chunk is not valid zlib data: %w", err)
	}
	defer zr.Close()
	ans, err := io.ReadAll(io.LimitReader(zr, max_metadata_chunk))
	if err != nil {
		return nil, fmt.Errorf("iCCP chunk is not valid zlib data: %w", err)
	}
	return ans, nil
}

// ExtractPNG reads the metadata of a PNG stream, consuming it up to the
// first IDAT chunk. Chunk checksums are not verified.
func ExtractPNG(r io.Reader) (md *Data, err error) {
	var header [8]byte
	if _, err = io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	if string(header[:]) != png_magic {
		return nil, ErrNotPNG
	}
	md = &Data{Format: PNG}
	for {
		if _, err = io.ReadFull(r, header[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return md, nil
			}
			return nil, fmt.Errorf("PNG chunk header truncated: %w", err)
		}
		length := binary.BigEndian.Uint32(header[:4])
		chunk_type := string(header[4:8])
		switch chunk_type {
		case "IDAT", "IEND":
			return md, nil
		case "IHDR", "iCCP", "eXIf":
			if length > max_metadata_chunk {
				return nil, fmt.Errorf("PNG %s chunk is too large: %d", chunk_type, length)
			}
			payload := make([]byte, length+4)
			if _, err = io.ReadFull(r, payload); err != nil {
				return nil, fmt.Errorf("PNG %s chunk truncated: %w", chunk_type, err)
			}
			payload = payload[:length]
			switch chunk_type {
			case "IHDR":
				if length < 13 {
					return nil, fmt.Errorf("PNG IHDR chunk too short: %d", length)
				}
				md.PixelWidth = binary.BigEndian.Uint32(payload[0:4])
				md.PixelHeight = binary.BigEndian.Uint32(payload[4:8])
				md.BitsPerComponent = uint32(payload[8])
				md.Components = png_components(payload[9])
			case "iCCP":
				if data, err := decode_iccp(payload); err != nil {
					md.SetICCProfileError(err)
				} else {
					md.SetICCProfileData(data)
				}
			case "eXIf":
				md.SetExifData(payload)
			}
		default:
			if _, err = io.CopyN(io.Discard, r, int64(length)+4); err != nil {
				return nil, fmt.Errorf("PNG %s chunk truncated: %w", chunk_type, err)
			}
		}
	}
}
