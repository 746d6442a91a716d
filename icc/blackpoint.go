package icc

// Perceptual black of ICC v4 profiles, ICC.1-2202-05 section 6.3.4.4
var PerceptualBlack = XYZType{0.00336, 0.0034731, 0.00287}

// BlackPoint estimates the black point of the profile in D50 relative XYZ
// for the given intent. Profiles without a meaningful black return zero.
func (p *Profile) BlackPoint(intent RenderingIntent) (ans XYZType) {
	if p.Header.DeviceClass == DeviceClassLink || p.Header.DeviceClass == DeviceClassAbstract || p.Header.DeviceClass == DeviceClassNamedColor {
		return
	}
	if !(intent == PerceptualRenderingIntent || intent == SaturationRenderingIntent || intent == RelativeColorimetricRenderingIntent) {
		return
	}
	if p.Header.Version.Major >= 4 && (intent == PerceptualRenderingIntent || intent == SaturationRenderingIntent) {
		if p.IsMatrixShaper() {
			return p.black_point_as_darker_colorant(RelativeColorimetricRenderingIntent)
		}
		return PerceptualBlack
	}
	if intent == RelativeColorimetricRenderingIntent && p.Header.DeviceClass == DeviceClassOutput && p.Header.DataColorSpace == ColorSpaceCMYK {
		return p.black_point_using_perceptual_black()
	}
	return p.black_point_as_darker_colorant(intent)
}

func lab_black_to_xyz(lab []unit_float) XYZType {
	l := lab[0]
	if l < 0 || l > 50 {
		l = 0
	}
	var xyz [3]unit_float
	NewLABtoXYZ(D50).Transform(xyz[:], []unit_float{l, 0, 0})
	return XYZType{xyz[0], xyz[1], xyz[2]}
}

func (p *Profile) to_lab(intent RenderingIntent) (*Pipeline, error) {
	tr, err := p.CreateTransformerToPCS(intent)
	if err != nil {
		return nil, err
	}
	if p.Header.ProfileConnectionSpace == ColorSpaceXYZ {
		tr.Append(NewXYZtoLAB(D50))
	}
	return tr, nil
}

func (p *Profile) black_point_as_darker_colorant(intent RenderingIntent) XYZType {
	bp := p.Header.DataColorSpace.BlackPoint()
	if bp == nil {
		return XYZType{}
	}
	tr, err := p.to_lab(intent)
	if err != nil {
		return XYZType{}
	}
	var lab [MaxChannels]unit_float
	tr.Transform(lab[:], bp)
	return lab_black_to_xyz(lab[:3])
}

func (p *Profile) black_point_using_perceptual_black() XYZType {
	dev, err := p.CreateTransformerToDevice(PerceptualRenderingIntent)
	if err != nil {
		return XYZType{}
	}
	// zero is black in both Lab and XYZ
	var cmyk [MaxChannels]unit_float
	dev.Transform(cmyk[:], []unit_float{0, 0, 0})
	tr, err := p.to_lab(PerceptualRenderingIntent)
	if err != nil {
		return XYZType{}
	}
	var lab [MaxChannels]unit_float
	tr.Transform(lab[:], cmyk[:4])
	lab[0] = min(lab[0], 50)
	return lab_black_to_xyz(lab[:3])
}
