package icc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

const HeaderSize = 128

type Version struct {
	Major, Minor, Bugfix uint8
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Bugfix)
}

type Header struct {
	ProfileSize            uint32
	PreferredCMM           Signature
	Version                Version
	DeviceClass            DeviceClass
	DataColorSpace         ColorSpace
	ProfileConnectionSpace ColorSpace
	CreatedAt              time.Time
	FileSignature          Signature
	PrimaryPlatform        Signature
	Flags                  uint32
	DeviceManufacturer     Signature
	DeviceModel            Signature
	DeviceAttributes       uint64
	RenderingIntent        RenderingIntent
	PCSIlluminant          XYZType
	ProfileCreator         Signature
	ProfileID              [16]byte
}

func (h *Header) String() string {
	return fmt.Sprintf("Header{version: %s class: %s data: %s pcs: %s intent: %s}", h.Version, h.DeviceClass, h.DataColorSpace, h.ProfileConnectionSpace, h.RenderingIntent)
}

func decode_date(raw []byte) time.Time {
	var v [6]uint16
	_, _ = binary.Decode(raw, binary.BigEndian, v[:])
	if v[0] == 0 {
		return time.Time{}
	}
	return time.Date(int(v[0]), time.Month(v[1]), int(v[2]), int(v[3]), int(v[4]), int(v[5]), 0, time.UTC)
}

func append_date(b []byte, t time.Time) []byte {
	if t.IsZero() {
		return append(b, make([]byte, 12)...)
	}
	t = t.UTC()
	for _, x := range []int{t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second()} {
		b = binary.BigEndian.AppendUint16(b, uint16(x))
	}
	return b
}

func parseHeader(raw []byte) (h Header, err error) {
	if len(raw) < HeaderSize {
		return h, errors.New("ICC profile header too short")
	}
	u32 := func(off int) uint32 { return binary.BigEndian.Uint32(raw[off : off+4]) }
	h.ProfileSize = u32(0)
	h.PreferredCMM = Signature(u32(4))
	h.Version = Version{Major: raw[8], Minor: raw[9] >> 4, Bugfix: raw[9] & 0xf}
	h.DeviceClass = DeviceClass(u32(12))
	h.DataColorSpace = ColorSpace(u32(16))
	h.ProfileConnectionSpace = ColorSpace(u32(20))
	h.CreatedAt = decode_date(raw[24:36])
	h.FileSignature = Signature(u32(36))
	if h.FileSignature != ProfileFileSignature {
		return h, fmt.Errorf("invalid ICC profile file signature: %s", h.FileSignature)
	}
	h.PrimaryPlatform = Signature(u32(40))
	h.Flags = u32(44)
	h.DeviceManufacturer = Signature(u32(48))
	h.DeviceModel = Signature(u32(52))
	h.DeviceAttributes = binary.BigEndian.Uint64(raw[56:64])
	h.RenderingIntent = RenderingIntent(u32(64) & 0xffff)
	h.PCSIlluminant = XYZType{readS15Fixed16BE(raw[68:]), readS15Fixed16BE(raw[72:]), readS15Fixed16BE(raw[76:])}
	h.ProfileCreator = Signature(u32(80))
	copy(h.ProfileID[:], raw[84:100])
	return h, nil
}

func (h *Header) encode(b []byte) []byte {
	u32 := func(x uint32) { b = binary.BigEndian.AppendUint32(b, x) }
	u32(h.ProfileSize)
	u32(uint32(h.PreferredCMM))
	b = append(b, h.Version.Major, h.Version.Minor<<4|h.Version.Bugfix&0xf, 0, 0)
	u32(uint32(h.DeviceClass))
	u32(uint32(h.DataColorSpace))
	u32(uint32(h.ProfileConnectionSpace))
	b = append_date(b, h.CreatedAt)
	u32(uint32(ProfileFileSignature))
	u32(uint32(h.PrimaryPlatform))
	u32(h.Flags)
	u32(uint32(h.DeviceManufacturer))
	u32(uint32(h.DeviceModel))
	b = binary.BigEndian.AppendUint64(b, h.DeviceAttributes)
	u32(uint32(h.RenderingIntent))
	b = appendS15Fixed16BE(b, h.PCSIlluminant.X)
	b = appendS15Fixed16BE(b, h.PCSIlluminant.Y)
	b = appendS15Fixed16BE(b, h.PCSIlluminant.Z)
	u32(uint32(h.ProfileCreator))
	b = append(b, h.ProfileID[:]...)
	return append(b, make([]byte, 28)...)
}
