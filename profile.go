package cms

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/f-spot/cms/icc"
	"github.com/f-spot/cms/internal/handle"
)

var profiles = handle.NewTable[*icc.Profile](nil)

// Serializes the text queries of all profiles
var info_lock sync.Mutex

// Profile is an ICC color profile. Profiles must be closed when no longer
// needed, except for the shared sRGB profile for which Close does nothing.
type Profile struct {
	h      handle.Handle
	shared bool
}

func new_profile(p *icc.Profile) *Profile {
	ans := &Profile{h: profiles.Add(p)}
	runtime.SetFinalizer(ans, func(p *Profile) { p.Close() })
	return ans
}

func invalid_profile(cause error, format string, args ...any) *Error {
	return errorf(fmt.Errorf("%w: %w", ErrInvalidProfile, cause), format, args...)
}

// NewProfile parses ICC profile data. The data is copied.
func NewProfile(data []byte) (*Profile, error) {
	return NewProfileRange(data, 0, len(data))
}

// NewProfileRange parses length bytes of ICC profile data starting at start
func NewProfileRange(data []byte, start, length int) (*Profile, error) {
	if start < 0 || start > len(data) {
		return nil, errorf(ErrOutOfRange, "start offset %d is outside the %d bytes of data", start, len(data))
	}
	if length < 0 || length > len(data)-start {
		return nil, errorf(ErrOutOfRange, "start offset %d + length %d is beyond the %d bytes of data", start, length, len(data))
	}
	p, err := icc.Decode(append([]byte(nil), data[start:start+length]...))
	if err != nil {
		return nil, invalid_profile(err, "cannot open ICC profile from memory")
	}
	return new_profile(p), nil
}

func NewProfileFromFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errorf(err, "error opening ICC profile in file %s", path)
	}
	p, err := icc.Decode(data)
	if err != nil {
		return nil, invalid_profile(err, "error opening ICC profile in file %s", path)
	}
	return new_profile(p), nil
}

func (p *Profile) icc() (*icc.Profile, error) {
	if p == nil {
		return nil, errorf(ErrClosed, "nil profile")
	}
	ans, ok := profiles.Get(p.h)
	if !ok {
		return nil, errorf(ErrClosed, "profile %s has been closed", p.h)
	}
	return ans, nil
}

func (p *Profile) read_xyz(sig icc.Signature, what string) (ColorCIEXYZ, error) {
	ip, err := p.icc()
	if err != nil {
		return ColorCIEXYZ{}, err
	}
	x, err := ip.XYZ(sig)
	if err != nil {
		var mt *icc.MissingTagError
		if errors.As(err, &mt) {
			return ColorCIEXYZ{}, errorf(ErrMissingTag, "unable to retrieve %s from profile", what)
		}
		return ColorCIEXYZ{}, invalid_profile(err, "unable to retrieve %s from profile", what)
	}
	return xyz_from_icc(x), nil
}

func (p *Profile) MediaWhitePoint() (ColorCIEXYZ, error) {
	return p.read_xyz(icc.MediaWhitePointTagSignature, "white point")
}

func (p *Profile) MediaBlackPoint() (ColorCIEXYZ, error) {
	return p.read_xyz(icc.MediaBlackPointTagSignature, "black point")
}

// Colorants returns the red, green and blue colorants of a matrix/TRC
// profile
func (p *Profile) Colorants() (ans ColorCIEXYZTriple, err error) {
	if ans.Red, err = p.read_xyz(icc.RedColorantTagSignature, "red profile colorant"); err != nil {
		return
	}
	if ans.Green, err = p.read_xyz(icc.GreenColorantTagSignature, "green profile colorant"); err != nil {
		return
	}
	ans.Blue, err = p.read_xyz(icc.BlueColorantTagSignature, "blue profile colorant")
	return
}

// ColorSpace returns the data color space, zero for a closed profile
func (p *Profile) ColorSpace() IccColorSpace {
	if ip, err := p.icc(); err == nil {
		return IccColorSpace(ip.Header.DataColorSpace)
	}
	return 0
}

// PCS returns the profile connection space, which for device links is the
// output color space
func (p *Profile) PCS() IccColorSpace {
	if ip, err := p.icc(); err == nil {
		return IccColorSpace(ip.Header.ProfileConnectionSpace)
	}
	return 0
}

func (p *Profile) DeviceClass() IccProfileClass {
	if ip, err := p.icc(); err == nil {
		return IccProfileClass(ip.Header.DeviceClass)
	}
	return 0
}

// Version returns the ICC version as major.minor, for example 4.3
func (p *Profile) Version() float64 {
	if ip, err := p.icc(); err == nil {
		return float64(ip.Header.Version.Major) + float64(ip.Header.Version.Minor)/10
	}
	return 0
}

// RenderingIntent returns the intent recorded in the profile header
func (p *Profile) RenderingIntent() Intent {
	if ip, err := p.icc(); err == nil {
		return Intent(ip.Header.RenderingIntent)
	}
	return Perceptual
}

// info returns the en_US text of a tag, empty if the tag is absent or
// unreadable
func (p *Profile) info(sig icc.Signature) string {
	ip, err := p.icc()
	if err != nil {
		return ""
	}
	info_lock.Lock()
	defer info_lock.Unlock()
	ans, err := ip.Text(sig, "en", "US")
	if err != nil {
		return ""
	}
	return ans
}

func (p *Profile) Model() string { return p.info(icc.DeviceModelDescriptionSignature) }

func (p *Profile) ProductName() string { return p.info(icc.DeviceManufacturerDescriptionSignature) }

func (p *Profile) ProductDescription() string { return p.info(icc.ProfileDescriptionTagSignature) }

// Save serializes the profile
func (p *Profile) Save() ([]byte, error) {
	ip, err := p.icc()
	if err != nil {
		return nil, &SaveError{Err: errorf(err, "error saving profile")}
	}
	data := ip.Encode()
	if len(data) < icc.HeaderSize {
		return nil, NewSaveError("error saving profile", ErrInvalidProfile)
	}
	return data, nil
}

// Close releases the profile. It is safe to call more than once.
func (p *Profile) Close() {
	if p == nil || p.shared {
		return
	}
	if profiles.Release(p.h) {
		runtime.SetFinalizer(p, nil)
	}
}

func (p *Profile) String() string {
	if ans := p.ProductName(); ans != "" {
		return ans
	}
	return p.ProductDescription()
}
