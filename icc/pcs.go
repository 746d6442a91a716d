package icc

import (
	"fmt"

	"github.com/f-spot/cms/colorconv"
)

// LUT based tags store PCS values normalized to [0, 1]. The legacy (ICC v2
// lut16) Lab encoding maps 0xff00 to L=100 rather than 0xffff.
const legacy_lab_scale = 65535.0 / 65280.0

// XYZ in lut16 tags is u1Fixed15, 0x8000 is 1.0
const xyz_scale = 65535.0 / 32768.0

// NormalizedToLab converts normalized LUT values to L in [0, 100] and a, b in
// [-128, 127]
type NormalizedToLab struct{ legacy bool }

// LabToNormalized is the inverse of NormalizedToLab
type LabToNormalized struct{ legacy bool }

var _ ChannelTransformer = (*NormalizedToLab)(nil)
var _ ChannelTransformer = (*LabToNormalized)(nil)

func NewNormalizedToLab(legacy bool) *NormalizedToLab { return &NormalizedToLab{legacy} }
func NewLabToNormalized(legacy bool) *LabToNormalized { return &LabToNormalized{legacy} }

func (n *NormalizedToLab) IOSig() (int, int)                    { return 3, 3 }
func (n *NormalizedToLab) Iter(f func(ChannelTransformer) bool) { f(n) }
func (n *NormalizedToLab) String() string {
	return IfElse(n.legacy, "NormalizedToLab{legacy}", "NormalizedToLab")
}
func (n *NormalizedToLab) Transform(out, in []unit_float) {
	s := IfElse(n.legacy, legacy_lab_scale, 1)
	out[0] = in[0] * s * 100
	out[1] = in[1]*s*255 - 128
	out[2] = in[2]*s*255 - 128
}

func (n *LabToNormalized) IOSig() (int, int)                    { return 3, 3 }
func (n *LabToNormalized) Iter(f func(ChannelTransformer) bool) { f(n) }
func (n *LabToNormalized) String() string {
	return IfElse(n.legacy, "LabToNormalized{legacy}", "LabToNormalized")
}
func (n *LabToNormalized) Transform(out, in []unit_float) {
	s := IfElse(n.legacy, 1/legacy_lab_scale, 1)
	out[0] = in[0] / 100 * s
	out[1] = (in[1] + 128) / 255 * s
	out[2] = (in[2] + 128) / 255 * s
}

func NewNormalizedToXYZ() *Matrix3 { return NewScaleTransformer(xyz_scale, xyz_scale, xyz_scale) }
func NewXYZToNormalized() *Matrix3 {
	return NewScaleTransformer(1/xyz_scale, 1/xyz_scale, 1/xyz_scale)
}

type LABtoXYZ struct{ wp colorconv.Vec3 }
type XYZtoLAB struct{ wp colorconv.Vec3 }

var _ ChannelTransformer = (*LABtoXYZ)(nil)
var _ ChannelTransformer = (*XYZtoLAB)(nil)

func as_vec(wp XYZType) colorconv.Vec3 {
	if wp.Y == 0 {
		return colorconv.WhiteD50
	}
	return colorconv.Vec3{wp.X, wp.Y, wp.Z}
}

func NewLABtoXYZ(wp XYZType) *LABtoXYZ { return &LABtoXYZ{as_vec(wp)} }
func NewXYZtoLAB(wp XYZType) *XYZtoLAB { return &XYZtoLAB{as_vec(wp)} }

func (c *LABtoXYZ) IOSig() (int, int)                    { return 3, 3 }
func (c *LABtoXYZ) Iter(f func(ChannelTransformer) bool) { f(c) }
func (c *LABtoXYZ) String() string                       { return fmt.Sprintf("LABtoXYZ{%v}", c.wp) }
func (c *LABtoXYZ) Transform(out, in []unit_float) {
	out[0], out[1], out[2] = colorconv.LabToXYZ(in[0], in[1], in[2], c.wp)
}

func (c *XYZtoLAB) IOSig() (int, int)                    { return 3, 3 }
func (c *XYZtoLAB) Iter(f func(ChannelTransformer) bool) { f(c) }
func (c *XYZtoLAB) String() string                       { return fmt.Sprintf("XYZtoLAB{%v}", c.wp) }
func (c *XYZtoLAB) Transform(out, in []unit_float) {
	out[0], out[1], out[2] = colorconv.XYZToLab(in[0], in[1], in[2], c.wp)
}

// BlackPointCorrection scales XYZ so that in_blackpoint maps to
// out_blackpoint while keeping the D50 white fixed
type BlackPointCorrection struct {
	scale, offset XYZType
}

var _ ChannelTransformer = (*BlackPointCorrection)(nil)

func (n *BlackPointCorrection) IOSig() (int, int)                    { return 3, 3 }
func (n *BlackPointCorrection) Iter(f func(ChannelTransformer) bool) { f(n) }

func NewBlackPointCorrection(in_blackpoint, out_blackpoint XYZType) *BlackPointCorrection {
	tx := in_blackpoint.X - D50.X
	ty := in_blackpoint.Y - D50.Y
	tz := in_blackpoint.Z - D50.Z
	ans := BlackPointCorrection{}

	ans.scale.X = (out_blackpoint.X - D50.X) / tx
	ans.scale.Y = (out_blackpoint.Y - D50.Y) / ty
	ans.scale.Z = (out_blackpoint.Z - D50.Z) / tz

	ans.offset.X = -D50.X * (out_blackpoint.X - in_blackpoint.X) / tx
	ans.offset.Y = -D50.Y * (out_blackpoint.Y - in_blackpoint.Y) / ty
	ans.offset.Z = -D50.Z * (out_blackpoint.Z - in_blackpoint.Z) / tz

	return &ans
}

func (c *BlackPointCorrection) String() string {
	return fmt.Sprintf("BlackPointCorrection{scale: %v offset: %v}", c.scale, c.offset)
}

func (c *BlackPointCorrection) Transform(out, in []unit_float) {
	out[0] = c.scale.X*in[0] + c.offset.X
	out[1] = c.scale.Y*in[1] + c.offset.Y
	out[2] = c.scale.Z*in[2] + c.offset.Z
}

// GrayToPCS expands a single luminance channel to the PCS. In XYZ the gray
// is scaled along the D50 white, in Lab it becomes L with a = b = 0.
type GrayToPCS struct{ lab bool }

// PCSToGray is the inverse of GrayToPCS, taking Y or L as the gray value
type PCSToGray struct{ lab bool }

var _ ChannelTransformer = (*GrayToPCS)(nil)
var _ ChannelTransformer = (*PCSToGray)(nil)

func (c *GrayToPCS) IOSig() (int, int)                    { return 1, 3 }
func (c *GrayToPCS) Iter(f func(ChannelTransformer) bool) { f(c) }
func (c *GrayToPCS) String() string                       { return IfElse(c.lab, "GrayToLab", "GrayToXYZ") }
func (c *GrayToPCS) Transform(out, in []unit_float) {
	if c.lab {
		out[0], out[1], out[2] = in[0]*100, 0, 0
	} else {
		out[0], out[1], out[2] = D50.X*in[0], D50.Y*in[0], D50.Z*in[0]
	}
}

func (c *PCSToGray) IOSig() (int, int)                    { return 3, 1 }
func (c *PCSToGray) Iter(f func(ChannelTransformer) bool) { f(c) }
func (c *PCSToGray) String() string                       { return IfElse(c.lab, "LabToGray", "XYZToGray") }
func (c *PCSToGray) Transform(out, in []unit_float) {
	out[0] = IfElse(c.lab, in[0]/100, in[1])
}
