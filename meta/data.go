package meta

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/f-spot/cms"
)

var _ = fmt.Println

type ImageFormat string

const (
	JPEG ImageFormat = "JPEG"
	PNG  ImageFormat = "PNG"
	TIFF ImageFormat = "TIFF"
	GIF  ImageFormat = "GIF"
)

// Data represents the color related metadata of an image.
type Data struct {
	Format           ImageFormat
	PixelWidth       uint32
	PixelHeight      uint32
	BitsPerComponent uint32
	// Number of color components in the image data, 0 when not known
	Components     int
	exifData       []byte
	exif           *exif.Exif
	exifErr        error
	iccProfileData []byte
	iccProfileErr  error
	mutex          sync.Mutex
}

// Returns an extracted EXIF metadata object from this metadata.
//
// An error is returned if the EXIF data could not be correctly parsed.
//
// If no EXIF data was found, nil is returned without an error.
func (md *Data) Exif() (*exif.Exif, error) {
	md.mutex.Lock()
	defer md.mutex.Unlock()

	if md.exifErr != nil {
		return nil, md.exifErr
	}
	if md.exif != nil {
		return md.exif, nil
	}
	if len(md.exifData) == 0 {
		return nil, nil
	}
	md.exif, md.exifErr = exif.Decode(bytes.NewReader(md.exifData))
	if md.exifErr != nil && md.exif != nil && !exif.IsCriticalError(md.exifErr) {
		// a broken sub-IFD still leaves the main tags usable
		md.exifErr = nil
	}
	return md.exif, md.exifErr
}

func (md *Data) SetExifData(data []byte) {
	md.mutex.Lock()
	defer md.mutex.Unlock()
	md.exifData = data
	md.exifErr = nil
	md.exif = nil
}

func (md *Data) SetExif(e *exif.Exif) {
	md.mutex.Lock()
	defer md.mutex.Unlock()
	md.exifData = nil
	md.exifErr = nil
	md.exif = e
}

func (md *Data) SetExifError(e error) {
	md.mutex.Lock()
	defer md.mutex.Unlock()
	md.exifData = nil
	md.exifErr = e
	md.exif = nil
}

// ICCProfile returns a new Profile for the embedded ICC profile which the
// caller must Close.
//
// An error is returned if the ICC profile could not be correctly parsed.
//
// If no profile data was found, nil is returned without an error.
func (md *Data) ICCProfile() (*cms.Profile, error) {
	data, err := md.ICCProfileData()
	if err != nil || len(data) == 0 {
		return nil, err
	}
	return cms.NewProfile(data)
}

// ICCProfileData returns the raw ICC profile data from this metadata.
//
// An error is returned if the ICC profile could not be correctly extracted from
// the image.
//
// If no profile data was found, nil is returned without an error.
func (md *Data) ICCProfileData() ([]byte, error) {
	md.mutex.Lock()
	defer md.mutex.Unlock()
	return md.iccProfileData, md.iccProfileErr
}

func (md *Data) SetICCProfileData(data []byte) {
	md.mutex.Lock()
	defer md.mutex.Unlock()
	md.iccProfileData = data
	md.iccProfileErr = nil
}

func (md *Data) SetICCProfileError(err error) {
	md.mutex.Lock()
	defer md.mutex.Unlock()
	md.iccProfileData = nil
	md.iccProfileErr = err
}
