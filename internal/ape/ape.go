// Package ape reads and writes APEv2 tags as found at the end of MP3 and
// WavPack files.
package ape

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	preamble   = "APETAGEX"
	headerSize = 32
	version    = 2000

	id3v1Size  = 128
	id3v1Magic = "TAG"

	flagHasHeader = 1 << 31
	flagIsHeader  = 1 << 29

	itemTypeMask   = 0x06
	itemTypeText   = 0x00
	itemTypeBinary = 0x02
)

// ErrCorrupt is returned when an APE footer is found but the tag it describes
// does not fit in the data.
var ErrCorrupt = errors.New("ape: corrupt tag")

// Item is a single APE tag item.
type Item struct {
	Key    string
	Value  []byte
	Binary bool
}

// Text returns the item value as a string. Multiple values (NUL separated)
// are joined with "; ".
func (i Item) Text() string {
	if i.Binary {
		return ""
	}
	return strings.ReplaceAll(string(i.Value), "\x00", "; ")
}

// Tag is an ordered list of APE items. Keys are case-insensitive.
type Tag struct {
	items []Item
}

// New returns an empty tag.
func New() *Tag {
	return &Tag{}
}

// Len returns the number of items.
func (t *Tag) Len() int {
	return len(t.items)
}

// Items returns a copy of the items in tag order.
func (t *Tag) Items() []Item {
	out := make([]Item, len(t.items))
	copy(out, t.items)
	return out
}

// Get returns the item with the given key.
func (t *Tag) Get(key string) (Item, bool) {
	for _, it := range t.items {
		if strings.EqualFold(it.Key, key) {
			return it, true
		}
	}
	return Item{}, false
}

// Text returns the text value for key, or "" if absent or binary.
func (t *Tag) Text(key string) string {
	it, ok := t.Get(key)
	if !ok {
		return ""
	}
	return it.Text()
}

// SetText replaces the value for key. An empty value removes the item.
func (t *Tag) SetText(key, value string) {
	if value == "" {
		t.Remove(key)
		return
	}
	t.set(Item{Key: key, Value: []byte(value)})
}

// SetBinary replaces the binary value for key.
func (t *Tag) SetBinary(key string, value []byte) {
	if len(value) == 0 {
		t.Remove(key)
		return
	}
	t.set(Item{Key: key, Value: value, Binary: true})
}

func (t *Tag) set(item Item) {
	for i, it := range t.items {
		if strings.EqualFold(it.Key, item.Key) {
			t.items[i] = item
			return
		}
	}
	t.items = append(t.items, item)
}

// Remove deletes the item with the given key.
func (t *Tag) Remove(key string) {
	out := t.items[:0]
	for _, it := range t.items {
		if !strings.EqualFold(it.Key, key) {
			out = append(out, it)
		}
	}
	t.items = out
}

// Location describes where an APE tag sits inside file data.
type Location struct {
	Offset int // start of the tag (header if present, else first item)
	Size   int // bytes occupied including header and footer
}

// End returns the offset just past the tag.
func (l Location) End() int {
	return l.Offset + l.Size
}

// HasID3v1 reports whether data ends with an ID3v1 tag.
func HasID3v1(data []byte) bool {
	return len(data) >= id3v1Size && string(data[len(data)-id3v1Size:len(data)-id3v1Size+3]) == id3v1Magic
}

// Find locates an APEv2 tag in data. The tag is expected at the very end of
// the data or right before a trailing ID3v1 tag.
func Find(data []byte) (Location, bool, error) {
	end := len(data)
	if HasID3v1(data) {
		end -= id3v1Size
	}
	if end < headerSize {
		return Location{}, false, nil
	}
	footer := data[end-headerSize : end]
	if string(footer[:8]) != preamble {
		return Location{}, false, nil
	}
	size := int(binary.LittleEndian.Uint32(footer[12:16]))
	flags := binary.LittleEndian.Uint32(footer[20:24])
	total := size
	if flags&flagHasHeader != 0 {
		total += headerSize
	}
	if size < headerSize || total > end {
		return Location{}, false, ErrCorrupt
	}
	return Location{Offset: end - total, Size: total}, true, nil
}

// Parse decodes the tag found at loc.
func Parse(data []byte, loc Location) (*Tag, error) {
	raw := data[loc.Offset:loc.End()]
	footer := raw[len(raw)-headerSize:]
	count := int(binary.LittleEndian.Uint32(footer[16:20]))
	flags := binary.LittleEndian.Uint32(footer[20:24])

	body := raw[:len(raw)-headerSize]
	if flags&flagHasHeader != 0 {
		if len(body) < headerSize {
			return nil, ErrCorrupt
		}
		body = body[headerSize:]
	}

	t := New()
	pos := 0
	for i := 0; i < count; i++ {
		if pos+8 > len(body) {
			return nil, fmt.Errorf("%w: item %d header out of range", ErrCorrupt, i)
		}
		valueLen := int(binary.LittleEndian.Uint32(body[pos : pos+4]))
		itemFlags := binary.LittleEndian.Uint32(body[pos+4 : pos+8])
		pos += 8
		keyEnd := bytes.IndexByte(body[pos:], 0)
		if keyEnd < 0 {
			return nil, fmt.Errorf("%w: item %d key not terminated", ErrCorrupt, i)
		}
		key := string(body[pos : pos+keyEnd])
		pos += keyEnd + 1
		if valueLen < 0 || pos+valueLen > len(body) {
			return nil, fmt.Errorf("%w: item %d value out of range", ErrCorrupt, i)
		}
		value := make([]byte, valueLen)
		copy(value, body[pos:pos+valueLen])
		pos += valueLen
		t.items = append(t.items, Item{
			Key:    key,
			Value:  value,
			Binary: itemFlags&itemTypeMask == itemTypeBinary,
		})
	}
	return t, nil
}

// Marshal encodes the tag with both header and footer. Items are written
// smallest first as recommended by the format.
func (t *Tag) Marshal() []byte {
	items := t.Items()
	sort.SliceStable(items, func(i, j int) bool {
		return len(items[i].Value) < len(items[j].Value)
	})

	var body bytes.Buffer
	for _, it := range items {
		var flags uint32 = itemTypeText
		if it.Binary {
			flags = itemTypeBinary
		}
		_ = binary.Write(&body, binary.LittleEndian, uint32(len(it.Value)))
		_ = binary.Write(&body, binary.LittleEndian, flags)
		body.WriteString(it.Key)
		body.WriteByte(0)
		body.Write(it.Value)
	}

	size := uint32(body.Len() + headerSize)
	out := make([]byte, 0, body.Len()+2*headerSize)
	out = append(out, header(size, uint32(len(items)), flagHasHeader|flagIsHeader)...)
	out = append(out, body.Bytes()...)
	out = append(out, header(size, uint32(len(items)), flagHasHeader)...)
	return out
}

func header(size, count, flags uint32) []byte {
	h := make([]byte, headerSize)
	copy(h, preamble)
	binary.LittleEndian.PutUint32(h[8:12], version)
	binary.LittleEndian.PutUint32(h[12:16], size)
	binary.LittleEndian.PutUint32(h[16:20], count)
	binary.LittleEndian.PutUint32(h[20:24], flags)
	return h
}

// Replace returns data with the tag at loc (if found) replaced by t. A nil or
// empty tag removes the existing one. A trailing ID3v1 tag is preserved.
func Replace(data []byte, loc Location, found bool, t *Tag) []byte {
	var head, tail []byte
	switch {
	case found:
		head = data[:loc.Offset]
		tail = data[loc.End():]
	case HasID3v1(data):
		head = data[:len(data)-id3v1Size]
		tail = data[len(data)-id3v1Size:]
	default:
		head = data
	}
	var tag []byte
	if t != nil && t.Len() > 0 {
		tag = t.Marshal()
	}
	out := make([]byte, 0, len(head)+len(tag)+len(tail))
	out = append(out, head...)
	out = append(out, tag...)
	out = append(out, tail...)
	return out
}
