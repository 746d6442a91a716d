package cms

import (
	"fmt"

	"github.com/f-spot/cms/colorconv"
	"github.com/f-spot/cms/icc"
)

// ColorCIEXYZ holds tristimulus values with Y = 1 for the reference white
type ColorCIEXYZ struct {
	X, Y, Z float64
}

// ColorCIExyY holds chromaticity coordinates and luminance
type ColorCIExyY struct {
	X, Y, YY float64
}

// ColorCIELab holds L in [0, 100] and the a, b opponent axes
type ColorCIELab struct {
	L, A, B float64
}

// ColorCIELCh is the cylindrical form of ColorCIELab with H in degrees
type ColorCIELCh struct {
	L, C, H float64
}

type ColorCIEXYZTriple struct {
	Red, Green, Blue ColorCIEXYZ
}

type ColorCIExyYTriple struct {
	Red, Green, Blue ColorCIExyY
}

var (
	D50    = ColorCIEXYZ{colorconv.WhiteD50[0], colorconv.WhiteD50[1], colorconv.WhiteD50[2]}
	D50xyY = D50.ToxyY()
)

func (c ColorCIEXYZ) vec() colorconv.Vec3 { return colorconv.Vec3{c.X, c.Y, c.Z} }

func (c ColorCIEXYZ) icc() icc.XYZType { return icc.XYZType{X: c.X, Y: c.Y, Z: c.Z} }

func xyz_from_icc(x icc.XYZType) ColorCIEXYZ { return ColorCIEXYZ{x.X, x.Y, x.Z} }

// white points with Y = 0 are meaningless, use D50 for them
func white_vec(wp ColorCIEXYZ) colorconv.Vec3 {
	if wp.Y == 0 {
		return colorconv.WhiteD50
	}
	return wp.vec()
}

func (c ColorCIEXYZ) ToxyY() ColorCIExyY {
	x, y, yy := colorconv.XYZToxyY(c.X, c.Y, c.Z)
	return ColorCIExyY{x, y, yy}
}

func (c ColorCIEXYZ) ToLab(wp ColorCIEXYZ) ColorCIELab {
	l, a, b := colorconv.XYZToLab(c.X, c.Y, c.Z, white_vec(wp))
	return ColorCIELab{l, a, b}
}

func (c ColorCIEXYZ) String() string {
	return fmt.Sprintf("ColorCIEXYZ{X: %.6g Y: %.6g Z: %.6g}", c.X, c.Y, c.Z)
}

func (c ColorCIExyY) ToXYZ() ColorCIEXYZ {
	x, y, z := colorconv.XYYToXYZ(c.X, c.Y, c.YY)
	return ColorCIEXYZ{x, y, z}
}

func (c ColorCIExyY) ToLab(wp ColorCIEXYZ) ColorCIELab { return c.ToXYZ().ToLab(wp) }

func (c ColorCIExyY) String() string {
	return fmt.Sprintf("ColorCIExyY{x: %.6g y: %.6g Y: %.6g}", c.X, c.Y, c.YY)
}

func (c ColorCIELab) ToLCh() ColorCIELCh {
	l, ch, h := colorconv.LabToLCh(c.L, c.A, c.B)
	return ColorCIELCh{l, ch, h}
}

func (c ColorCIELab) ToXYZ(wp ColorCIEXYZ) ColorCIEXYZ {
	x, y, z := colorconv.LabToXYZ(c.L, c.A, c.B, white_vec(wp))
	return ColorCIEXYZ{x, y, z}
}

func (c ColorCIELab) String() string {
	return fmt.Sprintf("ColorCIELab{L: %.6g a: %.6g b: %.6g}", c.L, c.A, c.B)
}

func (c ColorCIELCh) ToLab() ColorCIELab {
	l, a, b := colorconv.LChToLab(c.L, c.C, c.H)
	return ColorCIELab{l, a, b}
}

func (c ColorCIELCh) String() string {
	return fmt.Sprintf("ColorCIELCh{L: %.6g C: %.6g h: %.6g}", c.L, c.C, c.H)
}
