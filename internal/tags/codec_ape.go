package tags

import (
	"bytes"
	"fmt"

	"github.com/llehouerou/tagsync/internal/ape"
)

// apeCoverKey holds the front cover as "<filename>\x00<image data>".
const apeCoverKey = "Cover Art (Front)"

var apeKeys = keyMap{
	keys: map[field][]string{
		fieldTitle:       {"Title"},
		fieldArtist:      {"Artist"},
		fieldAlbum:       {"Album"},
		fieldAlbumArtist: {"Album Artist", "AlbumArtist"},
		fieldComposer:    {"Composer"},
		fieldGrouping:    {"Grouping"},
		fieldGenre:       {"Genre"},
		fieldComment:     {"Comment"},
		fieldYear:        {"Year"},
		fieldBPM:         {"BPM"},
	},
	trackPair: "Track",
	discPair:  "Disc",
}

// apeStore holds an APEv2 tag found at the end of data (before any ID3v1
// tag).
type apeStore struct {
	dirty
	tag   *ape.Tag
	loc   ape.Location
	found bool
}

func newAPEStore(data []byte) (*apeStore, error) {
	loc, found, err := ape.Find(data)
	if err != nil {
		return nil, err
	}
	s := &apeStore{loc: loc, found: found}
	if !found {
		return s, nil
	}
	if s.tag, err = ape.Parse(data, loc); err != nil {
		return nil, fmt.Errorf("parse APE tag: %w", err)
	}
	return s, nil
}

func (s *apeStore) format() SubFormat { return APE }
func (s *apeStore) present() bool     { return s.found }
func (s *apeStore) writable() bool    { return true }

func (s *apeStore) decode() fieldSet {
	if s.tag == nil {
		return fieldSet{}
	}
	return apeKeys.decode(s.tag.Text)
}

func (s *apeStore) encode(fs fieldSet) {
	if s.tag == nil {
		s.tag = ape.New()
	}
	apeKeys.encode(fs, s.tag.SetText)
	s.markModified()
}

func (s *apeStore) picture() *CoverImage {
	if s.tag == nil {
		return nil
	}
	it, ok := s.tag.Get(apeCoverKey)
	if !ok || !it.Binary {
		return nil
	}
	data := it.Value
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[i+1:]
	}
	if len(data) == 0 {
		return nil
	}
	return &CoverImage{Data: data, MIMEType: detectMimeType(data)}
}

// apply rewrites data with the current tag in place of the one found when
// the store was created.
func (s *apeStore) apply(data []byte) []byte {
	return ape.Replace(data, s.loc, s.found, s.tag)
}

func (s *apeStore) owns(f field) bool { return apeKeys.owns(f) }
