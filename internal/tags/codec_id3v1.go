package tags

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/dhowden/tag"
)

const id3v1Size = 128

// id3v1Store is the 128-byte legacy tag at the end of MP3 files. It is
// read when nothing better exists and never written.
type id3v1Store struct {
	fields fieldSet
}

// newID3v1Store reads the ID3v1 tag at the end of data, if any.
func newID3v1Store(data []byte) (*id3v1Store, error) {
	if len(data) < id3v1Size || string(data[len(data)-id3v1Size:len(data)-id3v1Size+3]) != "TAG" {
		return &id3v1Store{}, nil
	}
	m, err := tag.ReadID3v1Tags(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read ID3v1 tag: %w", err)
	}
	fs := make(fieldSet, numFields)
	fs.setText(fieldTitle, m.Title())
	fs.setText(fieldArtist, m.Artist())
	fs.setText(fieldAlbum, m.Album())
	fs.setText(fieldGenre, m.Genre())
	fs.setText(fieldComment, m.Comment())
	if y := m.Year(); y > 0 {
		fs.setText(fieldYear, strconv.Itoa(y))
	}
	track, _ := m.Track()
	fs.setNumber(fieldTrackNumber, track)
	return &id3v1Store{fields: fs}, nil
}

func (s *id3v1Store) format() SubFormat    { return ID3v1 }
func (s *id3v1Store) present() bool        { return s.fields != nil }
func (s *id3v1Store) writable() bool       { return false }
func (s *id3v1Store) picture() *CoverImage { return nil }
func (s *id3v1Store) modified() bool       { return false }
func (s *id3v1Store) encode(fieldSet)      {}
func (s *id3v1Store) owns(field) bool      { return false }

func (s *id3v1Store) decode() fieldSet {
	if s.fields == nil {
		return fieldSet{}
	}
	return s.fields
}
