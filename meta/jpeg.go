package meta

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
)

const (
	marker_tem   = 0x01
	marker_sof0  = 0xc0
	marker_dht   = 0xc4
	marker_jpg   = 0xc8
	marker_dac   = 0xcc
	marker_sof15 = 0xcf
	marker_rst0  = 0xd0
	marker_rst7  = 0xd7
	marker_soi   = 0xd8
	marker_eoi   = 0xd9
	marker_sos   = 0xda
	marker_app1  = 0xe1
	marker_app2  = 0xe2
)

const (
	icc_chunk_magic = "ICC_PROFILE\x00"
	exif_magic      = "Exif\x00\x00"
)

var ErrNotJPEG = errors.New("not a JPEG file")

func is_sof(marker byte) bool {
	return marker >= marker_sof0 && marker <= marker_sof15 && marker != marker_dht && marker != marker_jpg && marker != marker_dac
}

type icc_chunk struct {
	seq, count int
	data       []byte
}

// assemble_icc joins the ICC_PROFILE chunks of APP2 segments in sequence
// order
func assemble_icc(chunks []icc_chunk) ([]byte, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	count := chunks[0].count
	for _, c := range chunks {
		if c.seq == 0 || c.seq > c.count {
			return nil, fmt.Errorf("invalid ICC chunk sequence %d/%d", c.seq, c.count)
		}
		if c.count != count {
			return nil, fmt.Errorf("inconsistent ICC chunk count: %d vs %d", c.count, count)
		}
	}
	if len(chunks) != count {
		return nil, fmt.Errorf("expected %d ICC chunks, found %d", count, len(chunks))
	}
	slices.SortFunc(chunks, func(a, b icc_chunk) int { return a.seq - b.seq })
	var buf bytes.Buffer
	for i, c := range chunks {
		if c.seq != i+1 {
			return nil, fmt.Errorf("duplicate ICC chunk %d", c.seq)
		}
		buf.Write(c.data)
	}
	return buf.Bytes(), nil
}

func next_marker(r *bufio.Reader) (byte, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	// skip entropy coded data and fill bytes
	for b != 0xff {
		if b, err = r.ReadByte(); err != nil {
			return 0, err
		}
	}
	for b == 0xff {
		if b, err = r.ReadByte(); err != nil {
			return 0, err
		}
	}
	return b, nil
}

// ExtractJPEG reads the metadata of a JPEG stream, consuming it up to the
// first scan.
func ExtractJPEG(r_ io.Reader) (md *Data, err error) {
	r, ok := r_.(*bufio.Reader)
	if !ok {
		r = bufio.NewReader(r_)
	}
	var b [2]byte
	if _, err = io.ReadFull(r, b[:]); err != nil {
		return nil, err
	}
	if b[0] != 0xff || b[1] != marker_soi {
		return nil, ErrNotJPEG
	}
	md = &Data{Format: JPEG}
	var chunks []icc_chunk
	finish := func() (*Data, error) {
		if data, err := assemble_icc(chunks); err != nil {
			md.SetICCProfileError(err)
		} else if data != nil {
			md.SetICCProfileData(data)
		}
		return md, nil
	}
	for {
		marker, err := next_marker(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return finish()
			}
			return nil, err
		}
		switch {
		case marker == marker_eoi || marker == marker_sos:
			return finish()
		case marker == marker_tem || (marker >= marker_rst0 && marker <= marker_rst7):
			continue
		}
		if _, err = io.ReadFull(r, b[:]); err != nil {
			return nil, fmt.Errorf("JPEG segment length truncated: %w", err)
		}
		n := (int(b[0])<<8 | int(b[1])) - 2
		if n < 0 {
			return nil, fmt.Errorf("JPEG segment 0x%x has invalid length: %d", marker, n+2)
		}
		switch {
		case marker == marker_app1 || marker == marker_app2 || is_sof(marker):
			payload := make([]byte, n)
			if _, err = io.ReadFull(r, payload); err != nil {
				return nil, fmt.Errorf("JPEG segment 0x%x truncated: %w", marker, err)
			}
			switch {
			case marker == marker_app1:
				if bytes.HasPrefix(payload, []byte(exif_magic)) && md.exifData == nil {
					md.SetExifData(payload)
				}
			case marker == marker_app2:
				if len(payload) >= len(icc_chunk_magic)+2 && bytes.HasPrefix(payload, []byte(icc_chunk_magic)) {
					p := payload[len(icc_chunk_magic):]
					chunks = append(chunks, icc_chunk{seq: int(p[0]), count: int(p[1]), data: p[2:]})
				}
			default:
				if len(payload) < 6 {
					return nil, fmt.Errorf("JPEG SOF segment too short: %d", len(payload))
				}
				md.BitsPerComponent = uint32(payload[0])
				md.PixelHeight = uint32(payload[1])<<8 | uint32(payload[2])
				md.PixelWidth = uint32(payload[3])<<8 | uint32(payload[4])
				md.Components = int(payload[5])
			}
		default:
			if _, err = r.Discard(n); err != nil {
				return nil, fmt.Errorf("JPEG segment 0x%x truncated: %w", marker, err)
			}
		}
	}
}
