package tags

import (
	"fmt"

	"github.com/llehouerou/tagsync/internal/riff"
)

var infoKeys = keyMap{
	keys: map[field][]string{
		fieldTitle:       {"INAM"},
		fieldArtist:      {"IART"},
		fieldAlbum:       {"IPRD", "IALB"},
		fieldComposer:    {"IMUS"},
		fieldGenre:       {"IGNR"},
		fieldComment:     {"ICMT"},
		fieldYear:        {"ICRD"},
		fieldTrackNumber: {"IPRT", "ITRK"},
		fieldBPM:         {"IBPM"},
	},
}

// riffInfoStore holds the LIST/INFO chunk of a WAV file.
type riffInfoStore struct {
	dirty
	info    *riff.Info
	existed bool
}

func newRIFFInfoStore(form *riff.Form) (*riffInfoStore, error) {
	s := &riffInfoStore{}
	i := form.Index(riff.IsInfoList)
	if i < 0 {
		return s, nil
	}
	info, err := riff.ParseInfo(form.Chunks[i].Data)
	if err != nil {
		return nil, fmt.Errorf("parse INFO list: %w", err)
	}
	s.info = info
	s.existed = true
	return s, nil
}

func (s *riffInfoStore) format() SubFormat    { return RIFFInfo }
func (s *riffInfoStore) present() bool        { return s.existed }
func (s *riffInfoStore) writable() bool       { return true }
func (s *riffInfoStore) owns(f field) bool    { return infoKeys.owns(f) }
func (s *riffInfoStore) picture() *CoverImage { return nil }

func (s *riffInfoStore) decode() fieldSet {
	if s.info == nil {
		return fieldSet{}
	}
	return infoKeys.decode(s.info.Get)
}

func (s *riffInfoStore) encode(fs fieldSet) {
	if s.info == nil {
		s.info = riff.NewInfo()
	}
	infoKeys.encode(fs, s.info.Set)
	s.markModified()
}

// apply stores the INFO list into form. An emptied list is removed.
func (s *riffInfoStore) apply(form *riff.Form) {
	var data []byte
	if s.info != nil && s.info.Len() > 0 {
		data = s.info.Marshal()
	}
	form.Put(form.Index(riff.IsInfoList), riff.Chunk{ID: riff.ChunkList, Data: data})
}

// aiffTextStore exposes the NAME, AUTH and ANNO chunks of an AIFF file.
// They are read when no ID3v2 chunk exists and never written.
type aiffTextStore struct {
	fields fieldSet
}

func newAIFFTextStore(form *riff.Form) *aiffTextStore {
	s := &aiffTextStore{}
	text := func(id string) (string, bool) {
		i := form.Index(riff.ID(id))
		if i < 0 {
			return "", false
		}
		return riff.DecodeLatin1(form.Chunks[i].Data), true
	}
	fs := make(fieldSet, numFields)
	found := false
	for id, f := range map[string]field{
		riff.ChunkName: fieldTitle,
		riff.ChunkAuth: fieldArtist,
		riff.ChunkAnno: fieldComment,
	} {
		if v, ok := text(id); ok {
			found = true
			fs.setText(f, v)
		}
	}
	if found {
		s.fields = fs
	}
	return s
}

func (s *aiffTextStore) format() SubFormat    { return AIFFText }
func (s *aiffTextStore) present() bool        { return s.fields != nil }
func (s *aiffTextStore) writable() bool       { return false }
func (s *aiffTextStore) owns(field) bool      { return false }
func (s *aiffTextStore) picture() *CoverImage { return nil }
func (s *aiffTextStore) modified() bool       { return false }
func (s *aiffTextStore) encode(fieldSet)      {}

func (s *aiffTextStore) decode() fieldSet {
	if s.fields == nil {
		return fieldSet{}
	}
	return s.fields
}
