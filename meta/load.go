package meta

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/h2non/filetype"
)

var ErrUnknownFormat = errors.New("unrecognised image format")

// number of leading bytes filetype needs to recognise a format
const sniff_size = 262

func load_with_seekable(r io.Reader, callback func(*bufio.Reader) error) (stream io.Reader, err error) {
	if s, ok := r.(io.ReadSeeker); ok {
		if pos, serr := s.Seek(0, io.SeekCurrent); serr == nil {
			defer func() {
				if _, serr := s.Seek(pos, io.SeekStart); err == nil {
					err = serr
				}
			}()
			return s, callback(bufio.NewReader(s))
		}
	}
	rewindBuffer := &bytes.Buffer{}
	tee := io.TeeReader(r, rewindBuffer)
	err = callback(bufio.NewReader(tee))
	return io.MultiReader(rewindBuffer, r), err
}

func extractor_for(head []byte) func(io.Reader) (*Data, error) {
	kind, err := filetype.Match(head)
	if err != nil {
		return nil
	}
	switch kind.Extension {
	case "jpg":
		return func(r io.Reader) (*Data, error) { return ExtractJPEG(r) }
	case "png":
		return ExtractPNG
	case "tif", "cr2":
		return ExtractTIFF
	case "gif":
		return ExtractGIF
	}
	return nil
}

// Load loads the color metadata of an image stream in one of the supported
// formats (JPEG, PNG, TIFF and GIF).
//
// Only as much of the stream is consumed as necessary to extract the metadata;
// the returned stream contains a buffered copy of the consumed data such that
// reading from it will produce the same results as fully reading the input
// stream. This provides a convenient way to load the full image after loading
// the metadata.
//
// An error is returned if basic metadata could not be extracted. The returned
// stream still provides the full image data.
func Load(r io.Reader) (md *Data, imgStream io.Reader, err error) {
	imgStream, err = load_with_seekable(r, func(br *bufio.Reader) (err error) {
		head, _ := br.Peek(sniff_size)
		extract := extractor_for(head)
		if extract == nil {
			return ErrUnknownFormat
		}
		md, err = extract(br)
		return
	})
	if err != nil {
		return nil, imgStream, fmt.Errorf("cannot load image metadata: %w", err)
	}
	return md, imgStream, nil
}
