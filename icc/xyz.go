package icc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

type unit_float = float64

// Values closer than this are considered equal when comparing transforms
const FLOAT_EQUALITY_THRESHOLD = 1e-6

type XYZType struct {
	X, Y, Z unit_float
}

func (x XYZType) String() string {
	return fmt.Sprintf("XYZ{%.6g %.6g %.6g}", x.X, x.Y, x.Z)
}

var D50 = XYZType{0.9642, 1.0, 0.8249}

func readS15Fixed16BE(raw []byte) unit_float {
	return unit_float(int32(binary.BigEndian.Uint32(raw[:4]))) / 65536
}

func encodeS15Fixed16BE(x unit_float) []byte {
	return binary.BigEndian.AppendUint32(nil, uint32(int32(math.Round(x*65536))))
}

func appendS15Fixed16BE(b []byte, x unit_float) []byte {
	return binary.BigEndian.AppendUint32(b, uint32(int32(math.Round(x*65536))))
}

func readU8Fixed8(raw []byte) unit_float {
	return unit_float(binary.BigEndian.Uint16(raw[:2])) / 256
}

// new_tag returns the 8 byte header common to all tag types
func new_tag(sig Signature) []byte {
	b := make([]byte, 8, 64)
	binary.BigEndian.PutUint32(b, uint32(sig))
	return b
}

func xyzDecoder(raw []byte) (any, error) {
	if len(raw) < 20 {
		return nil, errors.New("XYZ tag too short")
	}
	if s := read_signature(raw); s != XYZTypeSignature {
		return nil, fmt.Errorf("expected %v but got %v", XYZTypeSignature, s)
	}
	raw = raw[8:]
	return &XYZType{readS15Fixed16BE(raw), readS15Fixed16BE(raw[4:]), readS15Fixed16BE(raw[8:])}, nil
}

func EncodeXYZ(x XYZType) []byte {
	b := new_tag(XYZTypeSignature)
	b = appendS15Fixed16BE(b, x.X)
	b = appendS15Fixed16BE(b, x.Y)
	return appendS15Fixed16BE(b, x.Z)
}

func sf32Decoder(raw []byte) (any, error) {
	if len(raw) < 8 {
		return nil, errors.New("sf32 tag too short")
	}
	if s := read_signature(raw); s != S15Fixed16ArrayTypeSignature {
		return nil, fmt.Errorf("expected %v but got %v", S15Fixed16ArrayTypeSignature, s)
	}
	raw = raw[8:]
	ans := make([]unit_float, len(raw)/4)
	for i := range ans {
		ans[i] = readS15Fixed16BE(raw[i*4:])
	}
	return ans, nil
}

func EncodeS15Fixed16Array(vals ...unit_float) []byte {
	b := new_tag(S15Fixed16ArrayTypeSignature)
	for _, v := range vals {
		b = appendS15Fixed16BE(b, v)
	}
	return b
}
