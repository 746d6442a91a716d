package icc

import (
	"encoding/binary"
)

type Signature uint32

const (
	UnknownSignature     Signature = 0
	ProfileFileSignature Signature = 0x61637370 // 'acsp'

	// Tag type signatures
	XYZTypeSignature               Signature = 0x58595A20 // 'XYZ '
	CurveTypeSignature             Signature = 0x63757276 // 'curv'
	ParametricCurveTypeSignature   Signature = 0x70617261 // 'para'
	MultiLocalisedUnicodeSignature Signature = 0x6D6C7563 // 'mluc'
	TextDescriptionTypeSignature   Signature = 0x64657363 // 'desc'
	TextTagSignature               Signature = 0x74657874 // 'text'
	S15Fixed16ArrayTypeSignature   Signature = 0x73663332 // 'sf32'
	Lut8TypeSignature              Signature = 0x6D667431 // 'mft1'
	Lut16TypeSignature             Signature = 0x6D667432 // 'mft2'
	LutAtoBTypeSignature           Signature = 0x6D414220 // 'mAB '
	LutBtoATypeSignature           Signature = 0x6D424120 // 'mBA '
	CLUTSignature                  Signature = 0x636C7574 // 'clut'

	// Tag signatures
	AToB0TagSignature                      Signature = 0x41324230 // 'A2B0'
	AToB1TagSignature                      Signature = 0x41324231 // 'A2B1'
	AToB2TagSignature                      Signature = 0x41324232 // 'A2B2'
	BToA0TagSignature                      Signature = 0x42324130 // 'B2A0'
	BToA1TagSignature                      Signature = 0x42324131 // 'B2A1'
	BToA2TagSignature                      Signature = 0x42324132 // 'B2A2'
	RedColorantTagSignature                Signature = 0x7258595A // 'rXYZ'
	GreenColorantTagSignature              Signature = 0x6758595A // 'gXYZ'
	BlueColorantTagSignature               Signature = 0x6258595A // 'bXYZ'
	RedTRCTagSignature                     Signature = 0x72545243 // 'rTRC'
	GreenTRCTagSignature                   Signature = 0x67545243 // 'gTRC'
	BlueTRCTagSignature                    Signature = 0x62545243 // 'bTRC'
	GrayTRCTagSignature                    Signature = 0x6B545243 // 'kTRC'
	MediaWhitePointTagSignature            Signature = 0x77747074 // 'wtpt'
	MediaBlackPointTagSignature            Signature = 0x626B7074 // 'bkpt'
	ChromaticAdaptationTagSignature        Signature = 0x63686164 // 'chad'
	ProfileDescriptionTagSignature         Signature = 0x64657363 // 'desc'
	CopyrightTagSignature                  Signature = 0x63707274 // 'cprt'
	DeviceManufacturerDescriptionSignature Signature = 0x646D6E64 // 'dmnd'
	DeviceModelDescriptionSignature        Signature = 0x646D6464 // 'dmdd'

	// Manufacturer and model signatures used by the built-in profiles
	LittleCMSSignature       Signature = 0x6C636D73 // 'lcms'
	FSpotSignature           Signature = 0x66737074 // 'fspt'
	IECManufacturerSignature Signature = 0x49454320 // 'IEC '
	SRGBModelSignature       Signature = 0x73524742 // 'sRGB'
)

func maskNull(b byte) byte {
	switch b {
	case 0:
		return ' '
	default:
		return b
	}
}

func (s Signature) String() string {
	v := []byte{
		(maskNull(byte((s >> 24) & 0xff))),
		(maskNull(byte((s >> 16) & 0xff))),
		(maskNull(byte((s >> 8) & 0xff))),
		(maskNull(byte(s & 0xff))),
	}
	return "'" + string(v) + "'"
}

// SignatureFromString packs up to four ASCII characters, padding with spaces
func SignatureFromString(x string) Signature {
	b := []byte("    ")
	copy(b, x)
	return Signature(binary.BigEndian.Uint32(b))
}

func read_signature(raw []byte) Signature {
	return Signature(binary.BigEndian.Uint32(raw[:4]))
}
