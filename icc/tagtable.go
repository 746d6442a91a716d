package icc

import (
	"encoding/binary"
	"fmt"
	"slices"
	"sync"
)

type parsed_tag struct {
	val any
	err error
}

type TagTable struct {
	entries map[Signature][]byte
	order   []Signature
	parsed  map[Signature]parsed_tag
	mutex   sync.Mutex
}

func emptyTagTable() TagTable {
	return TagTable{
		entries: make(map[Signature][]byte),
		parsed:  make(map[Signature]parsed_tag),
	}
}

func (t *TagTable) add(sig Signature, data []byte) {
	if _, exists := t.entries[sig]; !exists {
		t.order = append(t.order, sig)
	}
	t.entries[sig] = data
	delete(t.parsed, sig)
}

// Set replaces the raw data of the specified tag, the data must include the
// tag type header.
func (t *TagTable) Set(sig Signature, data []byte) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.add(sig, data)
}

func (t *TagTable) Remove(sig Signature) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if _, exists := t.entries[sig]; exists {
		delete(t.entries, sig)
		delete(t.parsed, sig)
		t.order = slices.DeleteFunc(t.order, func(x Signature) bool { return x == sig })
	}
}

func (t *TagTable) Has(sig Signature) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	_, found := t.entries[sig]
	return found
}

// Raw returns the raw bytes of the specified tag or nil
func (t *TagTable) Raw(sig Signature) []byte {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.entries[sig]
}

func (t *TagTable) Signatures() []Signature {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return slices.Clone(t.order)
}

func (t *TagTable) Len() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return len(t.entries)
}

var tag_decoders = map[Signature]func([]byte) (any, error){
	XYZTypeSignature:             xyzDecoder,
	CurveTypeSignature:           curveDecoder,
	ParametricCurveTypeSignature: parametricCurveDecoder,
	S15Fixed16ArrayTypeSignature: sf32Decoder,
	Lut8TypeSignature:            decode_mft8,
	Lut16TypeSignature:           decode_mft16,
	LutAtoBTypeSignature:         modularDecoder,
	LutBtoATypeSignature:         modularDecoder,
}

// get_parsed returns the decoded form of a tag, decoding at most once
func (t *TagTable) get_parsed(sig Signature) (any, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if p, ok := t.parsed[sig]; ok {
		return p.val, p.err
	}
	data, found := t.entries[sig]
	if !found {
		return nil, &MissingTagError{sig}
	}
	var p parsed_tag
	if len(data) < 8 {
		p.err = fmt.Errorf("tag %s is too short", sig)
	} else {
		typ := read_signature(data)
		if decoder := tag_decoders[typ]; decoder == nil {
			p.err = fmt.Errorf("tag %s has unsupported type: %s", sig, typ)
		} else {
			p.val, p.err = decoder(data)
		}
	}
	t.parsed[sig] = p
	return p.val, p.err
}

func parseTagTable(data []byte) (t TagTable, err error) {
	t = emptyTagTable()
	if len(data) < HeaderSize+4 {
		return t, fmt.Errorf("ICC profile too short to contain a tag table")
	}
	count := binary.BigEndian.Uint32(data[HeaderSize:])
	table := data[HeaderSize+4:]
	if uint64(count)*12 > uint64(len(table)) {
		return t, fmt.Errorf("ICC profile tag table with %d entries exceeds the profile size", count)
	}
	for i := range int(count) {
		e := table[i*12 : (i+1)*12]
		sig := Signature(binary.BigEndian.Uint32(e))
		offset, size := binary.BigEndian.Uint32(e[4:]), binary.BigEndian.Uint32(e[8:])
		if uint64(offset)+uint64(size) > uint64(len(data)) {
			return t, fmt.Errorf("ICC profile tag %s with offset: %d and size: %d exceeds the profile size: %d", sig, offset, size, len(data))
		}
		if offset < HeaderSize+4 {
			return t, fmt.Errorf("ICC profile tag %s overlaps the profile header", sig)
		}
		t.add(sig, data[offset:offset+size])
	}
	return t, nil
}

func align_to_4(x int) int {
	if extra := x % 4; extra > 0 {
		x += 4 - extra
	}
	return x
}

// encode serializes the tag table and tag data, returning the bytes that
// follow the profile header.
func (t *TagTable) encode() []byte {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	table_size := 4 + 12*len(t.order)
	b := make([]byte, 0, table_size+1024)
	b = binary.BigEndian.AppendUint32(b, uint32(len(t.order)))
	offset := HeaderSize + table_size
	for _, sig := range t.order {
		size := len(t.entries[sig])
		b = binary.BigEndian.AppendUint32(b, uint32(sig))
		b = binary.BigEndian.AppendUint32(b, uint32(offset))
		b = binary.BigEndian.AppendUint32(b, uint32(size))
		offset += align_to_4(size)
	}
	for _, sig := range t.order {
		data := t.entries[sig]
		b = append(b, data...)
		if pad := align_to_4(len(data)) - len(data); pad > 0 {
			b = append(b, make([]byte, pad)...)
		}
	}
	return b
}
