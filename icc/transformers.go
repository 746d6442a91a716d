package icc

import (
	"fmt"
)

func a2b_tag(intent RenderingIntent) Signature {
	switch intent {
	case PerceptualRenderingIntent:
		return AToB0TagSignature
	case SaturationRenderingIntent:
		return AToB2TagSignature
	default:
		// absolute colorimetric uses the relative table and is scaled by the caller
		return AToB1TagSignature
	}
}

func b2a_tag(intent RenderingIntent) Signature {
	switch intent {
	case PerceptualRenderingIntent:
		return BToA0TagSignature
	case SaturationRenderingIntent:
		return BToA2TagSignature
	default:
		return BToA1TagSignature
	}
}

// whether a LUT stores Lab with the ICC v2 lut16 encoding
func is_legacy_lut(lut ChannelTransformer) bool {
	if m, ok := lut.(*MFT); ok {
		return !m.is8bit
	}
	return false
}

func (p *Profile) find_lut(preferred Signature, fallback Signature) (ChannelTransformer, error) {
	if !p.TagTable.Has(preferred) {
		if !p.TagTable.Has(fallback) {
			return nil, nil
		}
		preferred = fallback
	}
	return p.LUT(preferred)
}

// lut_input_normalization converts PCS style input values to the normalized
// form stored in LUTs
func lut_input_normalization(space ColorSpace, lut ChannelTransformer) []ChannelTransformer {
	switch space {
	case ColorSpaceLab:
		return []ChannelTransformer{NewLabToNormalized(is_legacy_lut(lut))}
	case ColorSpaceXYZ:
		ans := []ChannelTransformer{NewXYZToNormalized()}
		if m, ok := lut.(*MFT); ok {
			if mat := m.Matrix(); mat != nil {
				ans = append(ans, mat)
			}
		}
		return ans
	}
	return nil
}

func lut_output_normalization(space ColorSpace, lut ChannelTransformer) ChannelTransformer {
	switch space {
	case ColorSpaceLab:
		return NewNormalizedToLab(is_legacy_lut(lut))
	case ColorSpaceXYZ:
		return NewNormalizedToXYZ()
	}
	return nil
}

func check_lut(lut ChannelTransformer, in, out ColorSpace) error {
	i, o := lut.IOSig()
	if i != in.NumComponents() || o != out.NumComponents() {
		return fmt.Errorf("LUT %s has %d → %d channels which does not match %s → %s", lut, i, o, in, out)
	}
	return nil
}

func wrap_lut(lut ChannelTransformer, in, out ColorSpace) (*Pipeline, error) {
	if err := check_lut(lut, in, out); err != nil {
		return nil, err
	}
	ans := NewPipeline(lut_input_normalization(in, lut)...)
	ans.Append(lut, lut_output_normalization(out, lut))
	return ans, nil
}

func pcs_conversion(from, to ColorSpace) ChannelTransformer {
	switch {
	case from == to:
		return nil
	case from == ColorSpaceLab && to == ColorSpaceXYZ:
		return NewLABtoXYZ(D50)
	case from == ColorSpaceXYZ && to == ColorSpaceLab:
		return NewXYZtoLAB(D50)
	}
	return nil
}

// CreateTransformerToPCS returns a transformer that maps normalized device
// values (or real Lab/XYZ values for PCS data spaces) to the profile
// connection space, with Lab in [0, 100] and XYZ relative to D50 white.
func (p *Profile) CreateTransformerToPCS(intent RenderingIntent) (*Pipeline, error) {
	data, pcs := p.Header.DataColorSpace, p.Header.ProfileConnectionSpace
	if p.Header.DeviceClass == DeviceClassLink {
		return nil, fmt.Errorf("device link profiles have no PCS side")
	}
	lut, err := p.find_lut(a2b_tag(intent), AToB0TagSignature)
	if err != nil {
		return nil, err
	}
	if lut != nil {
		return wrap_lut(lut, data, pcs)
	}
	switch data {
	case ColorSpaceLab, ColorSpaceXYZ:
		return NewPipeline(pcs_conversion(data, pcs)), nil
	case ColorSpaceGray:
		c, err := p.Curve(GrayTRCTagSignature)
		if err != nil {
			return nil, err
		}
		return NewPipeline(NewCurveTransformer(c), &GrayToPCS{lab: pcs == ColorSpaceLab}), nil
	case ColorSpaceRGB:
		// See section F.3 of ICC.1-2202-5.pdf for how these transforms are composed
		var rc, gc, bc Curve1D
		if rc, err = p.Curve(RedTRCTagSignature); err != nil {
			return nil, err
		}
		if gc, err = p.Curve(GreenTRCTagSignature); err != nil {
			return nil, err
		}
		if bc, err = p.Curve(BlueTRCTagSignature); err != nil {
			return nil, err
		}
		m, err := p.RGBMatrix()
		if err != nil {
			return nil, err
		}
		return NewPipeline(NewCurveTransformer(rc, gc, bc), m, pcs_conversion(ColorSpaceXYZ, pcs)), nil
	}
	return nil, fmt.Errorf("profile with data color space %s has no A2B table", data)
}

// CreateTransformerToDevice is the inverse of CreateTransformerToPCS
func (p *Profile) CreateTransformerToDevice(intent RenderingIntent) (*Pipeline, error) {
	data, pcs := p.Header.DataColorSpace, p.Header.ProfileConnectionSpace
	if p.Header.DeviceClass == DeviceClassLink {
		return nil, fmt.Errorf("device link profiles have no PCS side")
	}
	lut, err := p.find_lut(b2a_tag(intent), BToA0TagSignature)
	if err != nil {
		return nil, err
	}
	if lut != nil {
		return wrap_lut(lut, pcs, data)
	}
	switch data {
	case ColorSpaceLab, ColorSpaceXYZ:
		return NewPipeline(pcs_conversion(pcs, data)), nil
	case ColorSpaceGray:
		c, err := p.Curve(GrayTRCTagSignature)
		if err != nil {
			return nil, err
		}
		return NewPipeline(&PCSToGray{lab: pcs == ColorSpaceLab}, NewInverseCurveTransformer(c)), nil
	case ColorSpaceRGB:
		var rc, gc, bc Curve1D
		if rc, err = p.Curve(RedTRCTagSignature); err != nil {
			return nil, err
		}
		if gc, err = p.Curve(GreenTRCTagSignature); err != nil {
			return nil, err
		}
		if bc, err = p.Curve(BlueTRCTagSignature); err != nil {
			return nil, err
		}
		m, err := p.RGBMatrix()
		if err != nil {
			return nil, err
		}
		inv, err := m.Inverted()
		if err != nil {
			return nil, fmt.Errorf("the RGB colorant matrix of the profile cannot be inverted: %w", err)
		}
		return NewPipeline(pcs_conversion(pcs, ColorSpaceXYZ), &inv, NewInverseCurveTransformer(rc, gc, bc)), nil
	}
	return nil, fmt.Errorf("profile with data color space %s has no B2A table", data)
}

// CreateDeviceLinkTransformer returns the A2B table of a device link or
// abstract profile, falling back to A2B0. The output color space of a link
// is stored in the PCS field.
func (p *Profile) CreateDeviceLinkTransformer(intent RenderingIntent) (*Pipeline, error) {
	if c := p.Header.DeviceClass; c != DeviceClassLink && c != DeviceClassAbstract {
		return nil, fmt.Errorf("profile of class %s is not a device link", c)
	}
	lut, err := p.find_lut(a2b_tag(intent), AToB0TagSignature)
	if err != nil {
		return nil, err
	}
	if lut == nil {
		return nil, &MissingTagError{AToB0TagSignature}
	}
	return wrap_lut(lut, p.Header.DataColorSpace, p.Header.ProfileConnectionSpace)
}
