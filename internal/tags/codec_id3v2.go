package tags

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/bogem/id3v2/v2"
)

const (
	id3HeaderSize = 10
	id3FlagFooter = 0x10
)

// id3v2Span returns the size of the ID3v2 tag at the start of data,
// including header and optional footer, and its major version.
func id3v2Span(data []byte) (size int, major byte, ok bool) {
	if len(data) < id3HeaderSize || string(data[:3]) != id3Magic {
		return 0, 0, false
	}
	// Size is a syncsafe integer (7 bits per byte) in bytes 6-9
	size = int(data[6]&0x7f)<<21 | int(data[7]&0x7f)<<14 | int(data[8]&0x7f)<<7 | int(data[9]&0x7f)
	size += id3HeaderSize
	if data[5]&id3FlagFooter != 0 {
		size += id3HeaderSize
	}
	if size > len(data) {
		return 0, 0, false
	}
	return size, data[3], true
}

// id3v2Store holds an ID3v2.3 or ID3v2.4 tag. Older versions are not
// supported by the frame codec; they are treated as absent and replaced
// when a tag is written.
type id3v2Store struct {
	dirty
	tag     *id3v2.Tag
	existed bool
}

// newID3v2Store parses raw, the complete tag bytes, or returns an absent
// store when raw is empty or holds an unsupported version.
func newID3v2Store(raw []byte) (*id3v2Store, error) {
	s := &id3v2Store{}
	_, major, ok := id3v2Span(raw)
	if !ok || (major != 3 && major != 4) {
		return s, nil
	}
	tag, err := id3v2.ParseReader(bytes.NewReader(raw), id3v2.Options{Parse: true})
	if err != nil {
		return nil, fmt.Errorf("parse ID3v2 tag: %w", err)
	}
	s.tag = tag
	s.existed = true
	return s, nil
}

func (s *id3v2Store) format() SubFormat { return ID3v2 }
func (s *id3v2Store) present() bool     { return s.existed }
func (s *id3v2Store) writable() bool    { return true }

func (s *id3v2Store) keys() keyMap {
	year := []string{"TDRC", "TYER"}
	if s.tag != nil && s.tag.Version() == 3 {
		year = []string{"TYER", "TDRC"}
	}
	return keyMap{
		keys: map[field][]string{
			fieldTitle:       {"TIT2"},
			fieldArtist:      {"TPE1"},
			fieldAlbum:       {"TALB"},
			fieldAlbumArtist: {"TPE2"},
			fieldComposer:    {"TCOM"},
			fieldGrouping:    {"TIT1"},
			fieldGenre:       {"TCON"},
			fieldComment:     {"COMM"},
			fieldYear:        year,
			fieldBPM:         {"TBPM"},
		},
		trackPair: "TRCK",
		discPair:  "TPOS",
	}
}

func (s *id3v2Store) decode() fieldSet {
	if s.tag == nil {
		return fieldSet{}
	}
	return s.keys().decode(s.get)
}

func (s *id3v2Store) encode(fs fieldSet) {
	if s.tag == nil {
		s.tag = id3v2.NewEmptyTag()
	}
	s.keys().encode(fs, s.set)
	s.markModified()
}

func (s *id3v2Store) get(id string) string {
	if id == "COMM" {
		for _, f := range s.tag.GetFrames(id) {
			if cf, ok := f.(id3v2.CommentFrame); ok && cf.Description == "" {
				return strings.TrimRight(cf.Text, "\x00")
			}
		}
		return ""
	}
	frames := s.tag.GetFrames(id)
	if len(frames) == 0 {
		return ""
	}
	if tf, ok := frames[0].(id3v2.TextFrame); ok {
		// ID3v2.4 separates multiple values with NUL
		return joinValues(strings.Split(tf.Text, "\x00"))
	}
	return ""
}

func (s *id3v2Store) set(id, value string) {
	enc := s.encoding(value)
	if id == "COMM" {
		// Only the description-less comment is owned; iTunNORM and
		// friends are kept.
		var keep []id3v2.CommentFrame
		for _, f := range s.tag.GetFrames(id) {
			if cf, ok := f.(id3v2.CommentFrame); ok && cf.Description != "" {
				keep = append(keep, cf)
			}
		}
		s.tag.DeleteFrames(id)
		for _, cf := range keep {
			s.tag.AddCommentFrame(cf)
		}
		if value != "" {
			s.tag.AddCommentFrame(id3v2.CommentFrame{
				Encoding: enc,
				Language: "eng",
				Text:     value,
			})
		}
		return
	}
	s.tag.DeleteFrames(id)
	if value != "" {
		s.tag.AddTextFrame(id, enc, value)
	}
}

// encoding picks UTF-8 for ID3v2.4. ID3v2.3 has no UTF-8, so Latin-1 is
// used when it can represent the text and UTF-16 otherwise.
func (s *id3v2Store) encoding(text string) id3v2.Encoding {
	if s.tag.Version() == 4 {
		return id3v2.EncodingUTF8
	}
	for _, r := range text {
		if r > 0xff {
			return id3v2.EncodingUTF16
		}
	}
	return id3v2.EncodingISO
}

func (s *id3v2Store) picture() *CoverImage {
	if s.tag == nil {
		return nil
	}
	var best *id3v2.PictureFrame
	for _, f := range s.tag.GetFrames("APIC") {
		pf, ok := f.(id3v2.PictureFrame)
		if !ok || len(pf.Picture) == 0 {
			continue
		}
		if best == nil || picturePriority(int(pf.PictureType)) < picturePriority(int(best.PictureType)) {
			best = &pf
		}
	}
	if best == nil {
		return nil
	}
	mime := best.MimeType
	if mime == "" || !strings.Contains(mime, "/") {
		mime = detectMimeType(best.Picture)
	}
	return &CoverImage{Data: best.Picture, MIMEType: mime}
}

// marshal encodes the tag. An absent or frameless tag encodes to nothing.
func (s *id3v2Store) marshal() ([]byte, error) {
	if s.tag == nil || s.tag.Count() == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if _, err := s.tag.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode ID3v2 tag: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *id3v2Store) owns(field) bool { return true }
