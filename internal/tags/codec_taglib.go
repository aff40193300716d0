package tags

import (
	"fmt"
	"maps"

	"github.com/Sorrow446/go-mp4tag"
	"go.senan.xyz/taglib"
)

// mp4Keys are TagLib property names for iTunes atoms. Track and disc are
// stored as "N/M" in trkn and disk.
var mp4Keys = keyMap{
	keys: map[field][]string{
		fieldTitle:       {taglib.Title},
		fieldArtist:      {taglib.Artist},
		fieldAlbum:       {taglib.Album},
		fieldAlbumArtist: {taglib.AlbumArtist},
		fieldComposer:    {taglib.Composer},
		fieldGrouping:    {"GROUPING"},
		fieldGenre:       {taglib.Genre},
		fieldComment:     {taglib.Comment},
		fieldYear:        {taglib.Date},
		fieldBPM:         {taglib.BPM},
	},
	trackPair: taglib.TrackNumber,
	discPair:  taglib.DiscNumber,
}

// taglibTags wraps a taglib result map with helper methods.
type taglibTags map[string][]string

// get returns the values of key joined, or "" if not found.
func (t taglibTags) get(key string) string {
	return joinValues(t[key])
}

func (t taglibTags) set(key, value string) {
	if value == "" {
		delete(t, key)
		return
	}
	t[key] = []string{value}
}

// taglibStore holds the property map of a container TagLib reads and
// writes for us: Xiph comments in Ogg and Opus, atoms in MP4. All
// properties are kept so that writing with taglib.Clear only drops the
// owned fields that were cleared.
type taglibStore struct {
	dirty
	sub  SubFormat
	keys keyMap
	tags taglibTags
	// alwaysPresent is set for Ogg streams, where the comment header is
	// mandatory.
	alwaysPresent bool

	cover      *CoverImage
	loadCover  func() *CoverImage
	coverReady bool
}

func newTaglibStore(path string, sub SubFormat, keys keyMap, loadCover func() *CoverImage) (*taglibStore, error) {
	raw, err := taglib.ReadTags(path)
	if err != nil {
		return nil, fmt.Errorf("read tags: %w", err)
	}
	tags := make(taglibTags, len(raw))
	maps.Copy(tags, raw)
	return &taglibStore{
		sub:           sub,
		keys:          keys,
		tags:          tags,
		alwaysPresent: sub == XiphComment,
		loadCover:     loadCover,
	}, nil
}

func (s *taglibStore) format() SubFormat { return s.sub }
func (s *taglibStore) writable() bool    { return true }

func (s *taglibStore) present() bool {
	return s.alwaysPresent || len(s.tags) > 0 || s.picture() != nil
}

func (s *taglibStore) decode() fieldSet {
	return s.keys.decode(s.tags.get)
}

func (s *taglibStore) encode(fs fieldSet) {
	s.keys.encode(fs, s.tags.set)
	s.markModified()
}

func (s *taglibStore) picture() *CoverImage {
	if !s.coverReady {
		s.coverReady = true
		if s.loadCover != nil {
			s.cover = s.loadCover()
		}
	}
	return s.cover
}

// save writes the full property map to path. Pictures are not part of the
// property map and stay untouched.
func (s *taglibStore) save(path string) error {
	if err := taglib.WriteTags(path, s.tags, taglib.Clear); err != nil {
		return fmt.Errorf("write tags: %w", err)
	}
	return nil
}

// taglibCover reads the first embedded picture through TagLib.
func taglibCover(path string) func() *CoverImage {
	return func() *CoverImage {
		data, err := taglib.ReadImage(path)
		if err != nil || len(data) == 0 {
			return nil
		}
		return &CoverImage{Data: data, MIMEType: detectMimeType(data)}
	}
}

// mp4Cover reads the first covr atom.
func mp4Cover(path string) func() *CoverImage {
	return func() *CoverImage {
		mp4, err := mp4tag.Open(path)
		if err != nil {
			return nil
		}
		defer mp4.Close()
		t, err := mp4.Read()
		if err != nil {
			return nil
		}
		for _, pic := range t.Pictures {
			if pic != nil && len(pic.Data) > 0 {
				return &CoverImage{Data: pic.Data, MIMEType: detectMimeType(pic.Data)}
			}
		}
		return nil
	}
}

func (s *taglibStore) owns(f field) bool { return s.keys.owns(f) }
