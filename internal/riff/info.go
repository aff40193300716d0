package riff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"strings"
)

// Chunk identifiers used for tags.
const (
	ChunkList    = "LIST"
	ListTypeInfo = "INFO"

	ChunkID3Lower = "id3 "
	ChunkID3Upper = "ID3 "

	ChunkName = "NAME"
	ChunkAuth = "AUTH"
	ChunkAnno = "ANNO"
	ChunkComm = "COMM"
	ChunkFmt  = "fmt "
)

// IsInfoList matches LIST chunks of type INFO.
func IsInfoList(c Chunk) bool {
	return c.ID == ChunkList && len(c.Data) >= 4 && string(c.Data[:4]) == ListTypeInfo
}

// IsID3 matches embedded ID3v2 chunks in either spelling.
func IsID3(c Chunk) bool {
	return c.ID == ChunkID3Lower || c.ID == ChunkID3Upper
}

// Info is the content of a LIST/INFO chunk: an ordered set of text
// sub-chunks (INAM, IART, ...).
type Info struct {
	fields []Chunk
}

// NewInfo returns an empty INFO list.
func NewInfo() *Info {
	return &Info{}
}

// ParseInfo decodes the payload of a LIST/INFO chunk.
func ParseInfo(data []byte) (*Info, error) {
	if len(data) < 4 || string(data[:4]) != ListTypeInfo {
		return nil, errors.New("riff: not an INFO list")
	}
	fields, err := parseChunks(data[4:], binary.LittleEndian)
	if err != nil {
		return nil, err
	}
	return &Info{fields: fields}, nil
}

// Len returns the number of fields.
func (i *Info) Len() int {
	return len(i.fields)
}

// Get returns the text of field id without trailing NULs.
func (i *Info) Get(id string) string {
	for _, f := range i.fields {
		if f.ID == id {
			return DecodeText(f.Data)
		}
	}
	return ""
}

// Set replaces field id. An empty value removes it.
func (i *Info) Set(id, value string) {
	idx := -1
	for n, f := range i.fields {
		if f.ID == id {
			idx = n
			break
		}
	}
	switch {
	case value == "" && idx >= 0:
		i.fields = append(i.fields[:idx], i.fields[idx+1:]...)
	case value == "":
	case idx >= 0:
		i.fields[idx].Data = append([]byte(value), 0)
	default:
		i.fields = append(i.fields, Chunk{ID: id, Data: append([]byte(value), 0)})
	}
}

// Marshal encodes the list payload, including the INFO type marker.
func (i *Info) Marshal() []byte {
	return append([]byte(ListTypeInfo), marshalChunks(i.fields, binary.LittleEndian)...)
}

// DecodeText trims NUL padding from a text chunk.
func DecodeText(data []byte) string {
	return strings.TrimRight(string(data), "\x00")
}

// DecodeLatin1 decodes an AIFF text chunk, which is specified as plain
// 8-bit text.
func DecodeLatin1(data []byte) string {
	data = bytes.TrimRight(data, "\x00")
	runes := make([]rune, len(data))
	for n, b := range data {
		runes[n] = rune(b)
	}
	return string(runes)
}

// Comm holds the fields of an AIFF COMM chunk.
type Comm struct {
	Channels     int
	SampleFrames uint32
	SampleSize   int
	SampleRate   float64
}

// ParseComm decodes an AIFF COMM chunk payload.
func ParseComm(data []byte) (Comm, error) {
	if len(data) < 18 {
		return Comm{}, errors.New("riff: COMM chunk too short")
	}
	return Comm{
		Channels:     int(int16(binary.BigEndian.Uint16(data[0:2]))),
		SampleFrames: binary.BigEndian.Uint32(data[2:6]),
		SampleSize:   int(int16(binary.BigEndian.Uint16(data[6:8]))),
		SampleRate:   extendedToFloat(data[8:18]),
	}, nil
}

// extendedToFloat converts an 80-bit IEEE 754 extended value.
func extendedToFloat(b []byte) float64 {
	exp := int(binary.BigEndian.Uint16(b[0:2]) & 0x7fff)
	mant := binary.BigEndian.Uint64(b[2:10])
	if exp == 0 && mant == 0 {
		return 0
	}
	v := math.Ldexp(float64(mant), exp-16383-63)
	if b[0]&0x80 != 0 {
		v = -v
	}
	return v
}

// FloatToExtended converts a sample rate to the 80-bit extended encoding
// used by COMM chunks.
func FloatToExtended(v float64) []byte {
	out := make([]byte, 10)
	if v == 0 {
		return out
	}
	frac, exp := math.Frexp(v) // v = frac * 2^exp, frac in [0.5, 1)
	binary.BigEndian.PutUint16(out[0:2], uint16(exp-1+16383))
	binary.BigEndian.PutUint64(out[2:10], uint64(frac*(1<<64)))
	return out
}
