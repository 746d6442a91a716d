package icc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

var utf16be = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

type languageCountry struct {
	language [2]byte
	country  [2]byte
}

func (lc languageCountry) String() string {
	return fmt.Sprintf("%c%c_%c%c", lc.language[0], lc.language[1], lc.country[0], lc.country[1])
}

func LanguageCountry(language, country string) (ans languageCountry) {
	copy(ans.language[:], language)
	copy(ans.country[:], country)
	return
}

// MultiLocalisedUnicode is the decoded form of the mluc tag type
type MultiLocalisedUnicode struct {
	order   []languageCountry
	entries map[languageCountry]string
}

func NewMultiLocalisedUnicode() *MultiLocalisedUnicode {
	return &MultiLocalisedUnicode{entries: make(map[languageCountry]string)}
}

func (m *MultiLocalisedUnicode) Set(language, country, text string) {
	lc := LanguageCountry(language, country)
	if _, found := m.entries[lc]; !found {
		m.order = append(m.order, lc)
	}
	m.entries[lc] = text
}

// Get returns the text for the exact language and country, falling back to
// any entry in the same language and finally to the first entry.
func (m *MultiLocalisedUnicode) Get(language, country string) string {
	want := LanguageCountry(language, country)
	if s, found := m.entries[want]; found {
		return s
	}
	for _, lc := range m.order {
		if lc.language == want.language {
			return m.entries[lc]
		}
	}
	if len(m.order) > 0 {
		return m.entries[m.order[0]]
	}
	return ""
}

func (m *MultiLocalisedUnicode) Len() int { return len(m.order) }

func parseMultiLocalisedUnicode(data []byte) (*MultiLocalisedUnicode, error) {
	if len(data) < 16 {
		return nil, errors.New("mluc tag too short")
	}
	if s := read_signature(data); s != MultiLocalisedUnicodeSignature {
		return nil, fmt.Errorf("expected %v but got %v", MultiLocalisedUnicodeSignature, s)
	}
	count, record_size := binary.BigEndian.Uint32(data[8:]), binary.BigEndian.Uint32(data[12:])
	if record_size < 12 {
		return nil, fmt.Errorf("mluc tag has invalid record size: %d", record_size)
	}
	if 16+uint64(count)*uint64(record_size) > uint64(len(data)) {
		return nil, errors.New("mluc tag records exceed the tag size")
	}
	ans := NewMultiLocalisedUnicode()
	dec := utf16be.NewDecoder()
	for i := range uint64(count) {
		r := data[16+i*uint64(record_size):]
		var lc languageCountry
		copy(lc.language[:], r[0:2])
		copy(lc.country[:], r[2:4])
		length, offset := binary.BigEndian.Uint32(r[4:]), binary.BigEndian.Uint32(r[8:])
		if uint64(offset)+uint64(length) > uint64(len(data)) {
			return nil, errors.New("mluc record exceeds tag data length")
		}
		text, err := dec.Bytes(data[offset : offset+length])
		if err != nil {
			return nil, fmt.Errorf("mluc record %s has invalid UTF-16 text: %w", lc, err)
		}
		if _, found := ans.entries[lc]; !found {
			ans.order = append(ans.order, lc)
		}
		ans.entries[lc] = strings.TrimRight(string(text), "\x00")
	}
	return ans, nil
}

func (m *MultiLocalisedUnicode) Encode() ([]byte, error) {
	enc := utf16be.NewEncoder()
	encoded := make([][]byte, len(m.order))
	for i, lc := range m.order {
		var err error
		if encoded[i], err = enc.Bytes([]byte(m.entries[lc])); err != nil {
			return nil, err
		}
	}
	b := new_tag(MultiLocalisedUnicodeSignature)
	b = binary.BigEndian.AppendUint32(b, uint32(len(m.order)))
	b = binary.BigEndian.AppendUint32(b, 12)
	offset := 16 + 12*len(m.order)
	for i, lc := range m.order {
		b = append(b, lc.language[:]...)
		b = append(b, lc.country[:]...)
		b = binary.BigEndian.AppendUint32(b, uint32(len(encoded[i])))
		b = binary.BigEndian.AppendUint32(b, uint32(offset))
		offset += len(encoded[i])
	}
	for _, e := range encoded {
		b = append(b, e...)
	}
	return b, nil
}

// EncodeMLUC is a convenience wrapper to create a single entry mluc tag
func EncodeMLUC(language, country, text string) ([]byte, error) {
	m := NewMultiLocalisedUnicode()
	m.Set(language, country, text)
	return m.Encode()
}

// v2 textDescriptionType, only the ASCII part is used
func parseTextDescription(data []byte) (string, error) {
	if len(data) < 12 {
		return "", errors.New("desc tag too short")
	}
	if s := read_signature(data); s != TextDescriptionTypeSignature {
		return "", fmt.Errorf("expected %v but got %v", TextDescriptionTypeSignature, s)
	}
	count := binary.BigEndian.Uint32(data[8:])
	data = data[12:]
	if uint64(count) > uint64(len(data)) {
		return "", errors.New("desc tag ASCII text exceeds tag size")
	}
	return strings.TrimRight(string(data[:count]), "\x00"), nil
}

func parseText(data []byte) (string, error) {
	if len(data) < 8 {
		return "", errors.New("text tag too short")
	}
	if s := read_signature(data); s != TextTagSignature {
		return "", fmt.Errorf("expected %v but got %v", TextTagSignature, s)
	}
	return strings.TrimRight(string(data[8:]), "\x00"), nil
}

func EncodeText(text string) []byte {
	b := new_tag(TextTagSignature)
	b = append(b, text...)
	return append(b, 0)
}

// decodeAnyText handles all three textual tag types
func decodeAnyText(data []byte, language, country string) (string, error) {
	if len(data) < 8 {
		return "", errors.New("text tag too short")
	}
	switch s := read_signature(data); s {
	case TextDescriptionTypeSignature:
		return parseTextDescription(data)
	case MultiLocalisedUnicodeSignature:
		m, err := parseMultiLocalisedUnicode(data)
		if err != nil {
			return "", err
		}
		return m.Get(language, country), nil
	case TextTagSignature:
		return parseText(data)
	default:
		return "", fmt.Errorf("unknown text tag type: %s", s)
	}
}
