package icc

import (
	"errors"
	"fmt"
	"time"
)

// MissingTagError is returned when a required tag is absent from a profile
type MissingTagError struct {
	Sig Signature
}

func (e *MissingTagError) Error() string {
	return fmt.Sprintf("the tag %s is not present in the profile", e.Sig)
}

type Profile struct {
	Header   Header
	TagTable TagTable
}

// NewProfile creates an empty ICC v4.3 profile
func NewProfile(class DeviceClass, data_space, pcs ColorSpace) *Profile {
	return &Profile{
		Header: Header{
			PreferredCMM:           LittleCMSSignature,
			Version:                Version{Major: 4, Minor: 3},
			DeviceClass:            class,
			DataColorSpace:         data_space,
			ProfileConnectionSpace: pcs,
			CreatedAt:              time.Now().UTC().Truncate(time.Second),
			ProfileCreator:         FSpotSignature,
			PCSIlluminant:          D50,
		},
		TagTable: emptyTagTable(),
	}
}

// Decode parses an ICC profile, validating the header and that all tags lie
// within the data. Tag contents are decoded lazily.
func Decode(data []byte) (*Profile, error) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	if h.ProfileSize < HeaderSize+4 || uint64(h.ProfileSize) > uint64(len(data)) {
		return nil, fmt.Errorf("ICC profile has invalid size: %d with %d bytes of data", h.ProfileSize, len(data))
	}
	data = data[:h.ProfileSize]
	if h.DataColorSpace.NumComponents() == 0 {
		return nil, fmt.Errorf("ICC profile has unknown data color space: %s", h.DataColorSpace)
	}
	if h.DeviceClass != DeviceClassLink && !h.ProfileConnectionSpace.IsPCS() {
		return nil, fmt.Errorf("ICC profile has invalid profile connection space: %s", h.ProfileConnectionSpace)
	}
	tt, err := parseTagTable(data)
	if err != nil {
		return nil, err
	}
	return &Profile{Header: h, TagTable: tt}, nil
}

// Encode serializes the profile. The profile ID is always written as zero.
func (p *Profile) Encode() []byte {
	body := p.TagTable.encode()
	h := p.Header
	h.ProfileSize = uint32(HeaderSize + len(body))
	h.ProfileID = [16]byte{}
	b := make([]byte, 0, int(h.ProfileSize))
	b = h.encode(b)
	return append(b, body...)
}

func (p *Profile) String() string {
	d, _ := p.Description()
	return fmt.Sprintf("Profile{%q %s}", d, &p.Header)
}

// Text returns the text of a desc, mluc or text tag in the requested
// language and country, falling back to other localizations.
func (p *Profile) Text(sig Signature, language, country string) (string, error) {
	data := p.TagTable.Raw(sig)
	if data == nil {
		return "", &MissingTagError{sig}
	}
	return decodeAnyText(data, language, country)
}

func (p *Profile) Description() (string, error) {
	return p.Text(ProfileDescriptionTagSignature, "en", "US")
}

func (p *Profile) DeviceManufacturerDescription() (string, error) {
	return p.Text(DeviceManufacturerDescriptionSignature, "en", "US")
}

func (p *Profile) DeviceModelDescription() (string, error) {
	return p.Text(DeviceModelDescriptionSignature, "en", "US")
}

func (p *Profile) Copyright() (string, error) {
	return p.Text(CopyrightTagSignature, "en", "US")
}

// SetText stores text as a mluc tag for v4 profiles and as the appropriate
// v2 type otherwise.
func (p *Profile) SetText(sig Signature, text string) error {
	if p.Header.Version.Major >= 4 {
		b, err := EncodeMLUC("en", "US", text)
		if err != nil {
			return err
		}
		p.TagTable.Set(sig, b)
		return nil
	}
	if sig == CopyrightTagSignature {
		p.TagTable.Set(sig, EncodeText(text))
	} else {
		p.TagTable.Set(sig, EncodeTextDescription(text))
	}
	return nil
}

func (p *Profile) XYZ(sig Signature) (XYZType, error) {
	x, err := p.TagTable.get_parsed(sig)
	if err != nil {
		return XYZType{}, err
	}
	ans, ok := x.(*XYZType)
	if !ok {
		return XYZType{}, fmt.Errorf("the tag %s is not of XYZType", sig)
	}
	return *ans, nil
}

func (p *Profile) SetXYZ(sig Signature, v XYZType) {
	p.TagTable.Set(sig, EncodeXYZ(v))
}

func (p *Profile) MediaWhitePoint() (XYZType, error) {
	return p.XYZ(MediaWhitePointTagSignature)
}

func (p *Profile) Curve(sig Signature) (Curve1D, error) {
	x, err := p.TagTable.get_parsed(sig)
	if err != nil {
		return nil, err
	}
	ans, ok := x.(Curve1D)
	if !ok {
		return nil, fmt.Errorf("the tag %s is not a curve", sig)
	}
	return ans, nil
}

func (p *Profile) SetCurve(sig Signature, c Curve1D) {
	p.TagTable.Set(sig, EncodeCurve(c))
}

// ChromaticAdaptation returns the chad matrix or nil if the profile has none
func (p *Profile) ChromaticAdaptation() (*Matrix3, error) {
	if !p.TagTable.Has(ChromaticAdaptationTagSignature) {
		return nil, nil
	}
	x, err := p.TagTable.get_parsed(ChromaticAdaptationTagSignature)
	if err != nil {
		return nil, err
	}
	vals, ok := x.([]unit_float)
	if !ok || len(vals) != 9 {
		return nil, errors.New("chad tag is not a 3x3 s15Fixed16 matrix")
	}
	var m Matrix3
	for i, v := range vals {
		m[i/3][i%3] = v
	}
	return &m, nil
}

func (p *Profile) SetChromaticAdaptation(m Matrix3) {
	p.TagTable.Set(ChromaticAdaptationTagSignature, EncodeS15Fixed16Array(
		m[0][0], m[0][1], m[0][2], m[1][0], m[1][1], m[1][2], m[2][0], m[2][1], m[2][2]))
}

// LUT returns the decoded lut8, lut16, lutAtoB or lutBtoA tag
func (p *Profile) LUT(sig Signature) (ChannelTransformer, error) {
	x, err := p.TagTable.get_parsed(sig)
	if err != nil {
		return nil, err
	}
	ans, ok := x.(ChannelTransformer)
	if !ok {
		return nil, fmt.Errorf("the tag %s is not a LUT", sig)
	}
	return ans, nil
}

// RGBMatrix returns the matrix whose columns are the red, green and blue
// colorants, mapping linear RGB to PCS XYZ.
func (p *Profile) RGBMatrix() (*Matrix3, error) {
	var m Matrix3
	for col, sig := range []Signature{RedColorantTagSignature, GreenColorantTagSignature, BlueColorantTagSignature} {
		c, err := p.XYZ(sig)
		if err != nil {
			return nil, err
		}
		m[0][col], m[1][col], m[2][col] = c.X, c.Y, c.Z
	}
	return &m, nil
}

func (p *Profile) IsMatrixShaper() bool {
	h := p.TagTable.Has
	switch p.Header.DataColorSpace {
	case ColorSpaceGray:
		return h(GrayTRCTagSignature)
	case ColorSpaceRGB:
		return h(RedColorantTagSignature) && h(RedTRCTagSignature) && h(GreenColorantTagSignature) && h(GreenTRCTagSignature) && h(BlueColorantTagSignature) && h(BlueTRCTagSignature)
	default:
		return false
	}
}

func EncodeTextDescription(text string) []byte {
	b := new_tag(TextDescriptionTypeSignature)
	ascii := append([]byte(text), 0)
	b = append(b, byte(len(ascii)>>24), byte(len(ascii)>>16), byte(len(ascii)>>8), byte(len(ascii)))
	b = append(b, ascii...)
	// empty unicode and scriptcode parts
	b = append(b, make([]byte, 4+4+2+1+67)...)
	return b
}
