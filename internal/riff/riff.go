// Package riff parses and rebuilds chunked RIFF (WAV) and IFF (AIFF)
// containers in memory. Chunk payloads other than the ones explicitly
// replaced are written back unchanged.
package riff

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Container kinds.
const (
	KindRIFF = "RIFF"
	KindFORM = "FORM"
)

// Well-known form types.
const (
	TypeWAVE = "WAVE"
	TypeAIFF = "AIFF"
	TypeAIFC = "AIFC"
)

// ErrNotChunked is returned when data does not start with a RIFF or FORM
// header.
var ErrNotChunked = errors.New("riff: not a RIFF or FORM container")

// ErrCorrupt is returned when the container header is inconsistent.
var ErrCorrupt = errors.New("riff: corrupt container")

// Chunk is a single top-level chunk.
type Chunk struct {
	ID   string
	Data []byte
}

// Form is a parsed container.
type Form struct {
	Kind   string
	Type   string
	Chunks []Chunk
	// Trailer holds bytes found after the declared container size.
	Trailer []byte
}

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

func (f *Form) order() byteOrder {
	if f.Kind == KindFORM {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Parse decodes the container in data.
func Parse(data []byte) (*Form, error) {
	if len(data) < 12 {
		return nil, ErrNotChunked
	}
	f := &Form{Kind: string(data[:4]), Type: string(data[8:12])}
	if f.Kind != KindRIFF && f.Kind != KindFORM {
		return nil, ErrNotChunked
	}
	order := f.order()
	size := int(order.Uint32(data[4:8]))
	if size < 4 {
		// the form type alone takes 4 bytes
		return nil, fmt.Errorf("%w: size %d", ErrCorrupt, size)
	}
	end := 8 + size
	if end > len(data) {
		// Some writers get the outer size wrong; trust the chunk walk.
		end = len(data)
	}

	chunks, err := parseChunks(data[12:end], order)
	if err != nil {
		return nil, err
	}
	f.Chunks = chunks
	if end < len(data) {
		f.Trailer = append([]byte(nil), data[end:]...)
	}
	return f, nil
}

func parseChunks(data []byte, order byteOrder) ([]Chunk, error) {
	var chunks []Chunk
	pos := 0
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(order.Uint32(data[pos+4 : pos+8]))
		pos += 8
		if size < 0 || pos+size > len(data) {
			return nil, fmt.Errorf("riff: chunk %q size %d exceeds container", id, size)
		}
		payload := make([]byte, size)
		copy(payload, data[pos:pos+size])
		chunks = append(chunks, Chunk{ID: id, Data: payload})
		pos += size
		if size%2 == 1 {
			pos++
		}
	}
	return chunks, nil
}

func marshalChunks(chunks []Chunk, order byteOrder) []byte {
	n := 0
	for _, c := range chunks {
		n += 8 + len(c.Data) + len(c.Data)%2
	}
	out := make([]byte, 0, n)
	for _, c := range chunks {
		out = append(out, c.ID...)
		out = order.AppendUint32(out, uint32(len(c.Data)))
		out = append(out, c.Data...)
		if len(c.Data)%2 == 1 {
			out = append(out, 0)
		}
	}
	return out
}

// Marshal encodes the container including any trailer.
func (f *Form) Marshal() []byte {
	order := f.order()
	body := marshalChunks(f.Chunks, order)
	out := make([]byte, 0, 12+len(body)+len(f.Trailer))
	out = append(out, f.Kind...)
	out = order.AppendUint32(out, uint32(4+len(body)))
	out = append(out, f.Type...)
	out = append(out, body...)
	out = append(out, f.Trailer...)
	return out
}

// Index returns the position of the first chunk matching match, or -1.
func (f *Form) Index(match func(Chunk) bool) int {
	for i, c := range f.Chunks {
		if match(c) {
			return i
		}
	}
	return -1
}

// ID matches chunks by identifier. Several identifiers may be given.
func ID(ids ...string) func(Chunk) bool {
	return func(c Chunk) bool {
		for _, id := range ids {
			if c.ID == id {
				return true
			}
		}
		return false
	}
}

// Put replaces the chunk at index i, or appends a new chunk when i < 0.
// A nil payload removes the chunk at i.
func (f *Form) Put(i int, c Chunk) {
	switch {
	case i < 0 && c.Data != nil:
		f.Chunks = append(f.Chunks, c)
	case i >= 0 && c.Data == nil:
		f.Chunks = append(f.Chunks[:i], f.Chunks[i+1:]...)
	case i >= 0:
		f.Chunks[i] = c
	}
}
