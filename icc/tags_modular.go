package icc

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ModularTag represents a modular tag section 10.12 and 10.13 of ICC.1-2202-05.pdf
type ModularTag struct {
	num_input_channels, num_output_channels int
	a_curves, m_curves, b_curves            []Curve1D
	clut                                    *CLUT
	matrix                                  ChannelTransformer
	transform_objects                       []ChannelTransformer
	pipeline                                *Pipeline
	is_a_to_b                               bool
}

var _ ChannelTransformer = (*ModularTag)(nil)

func (m *ModularTag) String() string {
	return fmt.Sprintf("%s{ %s }", IfElse(m.is_a_to_b, "mAB", "mBA"), transformers_as_string(m.transform_objects...))
}

func (m *ModularTag) IOSig() (int, int) { return m.num_input_channels, m.num_output_channels }

func (m *ModularTag) Iter(f func(ChannelTransformer) bool) {
	for _, t := range m.transform_objects {
		if !f(t) {
			return
		}
	}
}

func (m *ModularTag) Transform(out, in []unit_float) {
	m.pipeline.Transform(out, in)
}

func modularDecoder(raw []byte) (ans any, err error) {
	if len(raw) < 32 {
		return nil, errors.New("modular (mAB/mBA) tag too short")
	}
	s := read_signature(raw)
	is_a_to_b := false
	switch s {
	case LutAtoBTypeSignature:
		is_a_to_b = true
	case LutBtoATypeSignature:
		is_a_to_b = false
	default:
		return nil, fmt.Errorf("modular tag has unknown signature: %s", s)
	}
	inputCh, outputCh := int(raw[8]), int(raw[9])
	if inputCh < 1 || inputCh > MaxChannels || outputCh < 1 || outputCh > MaxChannels {
		return nil, fmt.Errorf("modular tag has invalid number of channels: %d → %d", inputCh, outputCh)
	}
	var offsets [5]uint32
	if _, err := binary.Decode(raw[12:32], binary.BigEndian, offsets[:]); err != nil {
		return nil, err
	}
	for _, o := range offsets {
		if uint64(o) >= uint64(len(raw)) {
			return nil, errors.New("modular (mAB/mBA) tag element offset exceeds the tag size")
		}
	}
	b, matrix, m, clut, a := offsets[0], offsets[1], offsets[2], offsets[3], offsets[4]
	mt := &ModularTag{num_input_channels: inputCh, num_output_channels: outputCh, is_a_to_b: is_a_to_b}
	read_curves := func(offset uint32, num_curves_reqd int) (ans []Curve1D, err error) {
		if offset == 0 {
			return nil, nil
		}
		block := raw[offset:]
		var c Curve1D
		var consumed int
		for range num_curves_reqd {
			if len(block) < 12 {
				return nil, errors.New("modular (mAB/mBA) tag too short")
			}
			switch sig := read_signature(block); sig {
			case CurveTypeSignature:
				c, consumed, err = embeddedCurveDecoder(block)
			case ParametricCurveTypeSignature:
				c, consumed, err = embeddedParametricCurveDecoder(block)
			default:
				return nil, fmt.Errorf("unknown curve type: %s in modularDecoder", sig)
			}
			if err != nil {
				return nil, err
			}
			block = block[min(consumed, len(block)):]
			ans = append(ans, c)
		}
		return
	}
	if mt.b_curves, err = read_curves(b, IfElse(is_a_to_b, outputCh, inputCh)); err != nil {
		return nil, err
	}
	if mt.a_curves, err = read_curves(a, IfElse(is_a_to_b, inputCh, outputCh)); err != nil {
		return nil, err
	}
	if mt.m_curves, err = read_curves(m, IfElse(is_a_to_b, outputCh, inputCh)); err != nil {
		return nil, err
	}
	if clut > 0 {
		if mt.clut, err = embeddedClutDecoder(raw[clut:], inputCh, outputCh); err != nil {
			return nil, err
		}
	}
	if matrix > 0 {
		if IfElse(is_a_to_b, outputCh, inputCh) != 3 {
			return nil, errors.New("modular tag has a matrix but the PCS side does not have three channels")
		}
		if mt.matrix, err = embeddedMatrixDecoder(raw[matrix:]); err != nil {
			return nil, err
		}
	}
	add := func(c ChannelTransformer) {
		if !is_nil(c) {
			mt.transform_objects = append(mt.transform_objects, c)
		}
	}
	if is_a_to_b {
		add(NewCurveTransformer(mt.a_curves...))
		add(mt.clut)
		add(NewCurveTransformer(mt.m_curves...))
		add(mt.matrix)
		add(NewCurveTransformer(mt.b_curves...))
	} else {
		add(NewCurveTransformer(mt.b_curves...))
		add(mt.matrix)
		add(NewCurveTransformer(mt.m_curves...))
		add(mt.clut)
		add(NewCurveTransformer(mt.a_curves...))
	}
	mt.pipeline = NewPipeline(mt.transform_objects...)
	return mt, nil
}
