package tags

import (
	"encoding/base64"
	"strings"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
)

// xiphPictureKey carries a base64 FLAC picture block inside a comment.
const xiphPictureKey = "METADATA_BLOCK_PICTURE"

var xiphKeys = keyMap{
	keys: map[field][]string{
		fieldTitle:       {"TITLE"},
		fieldArtist:      {"ARTIST"},
		fieldAlbum:       {"ALBUM"},
		fieldAlbumArtist: {"ALBUMARTIST", "ALBUM ARTIST"},
		fieldComposer:    {"COMPOSER"},
		fieldGrouping:    {"GROUPING"},
		fieldGenre:       {"GENRE"},
		fieldComment:     {"COMMENT"},
		fieldYear:        {"DATE", "YEAR"},
		fieldTrackNumber: {"TRACKNUMBER"},
		fieldTrackTotal:  {"TRACKTOTAL", "TOTALTRACKS"},
		fieldDiscNumber:  {"DISCNUMBER"},
		fieldDiscTotal:   {"DISCTOTAL", "TOTALDISCS"},
		fieldBPM:         {"BPM"},
	},
}

// xiphStore holds the VORBIS_COMMENT metadata block of a FLAC stream.
type xiphStore struct {
	dirty
	block   *flacvorbis.MetaDataBlockVorbisComment
	existed bool
}

func newXiphStore(meta *flac.MetaDataBlock) (*xiphStore, error) {
	s := &xiphStore{}
	if meta == nil {
		return s, nil
	}
	block, err := flacvorbis.ParseFromMetaDataBlock(*meta)
	if err != nil {
		return nil, err
	}
	s.block = block
	s.existed = true
	return s, nil
}

func (s *xiphStore) format() SubFormat { return XiphComment }
func (s *xiphStore) present() bool     { return s.existed }
func (s *xiphStore) writable() bool    { return true }

func (s *xiphStore) decode() fieldSet {
	if s.block == nil {
		return fieldSet{}
	}
	return xiphKeys.decode(func(key string) string {
		return joinValues(s.values(key))
	})
}

func (s *xiphStore) encode(fs fieldSet) {
	if s.block == nil {
		s.block = flacvorbis.New()
	}
	xiphKeys.encode(fs, s.set)
	s.markModified()
}

// values returns every value stored under key. Field names are
// case-insensitive; malformed comments are skipped.
func (s *xiphStore) values(key string) []string {
	var out []string
	for _, cmt := range s.block.Comments {
		k, v, ok := strings.Cut(cmt, "=")
		if ok && strings.EqualFold(k, key) {
			out = append(out, v)
		}
	}
	return out
}

func (s *xiphStore) set(key, value string) {
	kept := s.block.Comments[:0]
	for _, cmt := range s.block.Comments {
		k, _, ok := strings.Cut(cmt, "=")
		if !ok || !strings.EqualFold(k, key) {
			kept = append(kept, cmt)
		}
	}
	s.block.Comments = kept
	if value != "" {
		// keys come from xiphKeys and are always valid field names
		_ = s.block.Add(key, value)
	}
}

func (s *xiphStore) picture() *CoverImage {
	if s.block == nil {
		return nil
	}
	var pics []*flacpicture.MetadataBlockPicture
	for _, enc := range s.values(xiphPictureKey) {
		data, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			continue
		}
		pic, err := flacpicture.ParseFromMetaDataBlock(flac.MetaDataBlock{Type: flac.Picture, Data: data})
		if err != nil {
			continue
		}
		pics = append(pics, pic)
	}
	return bestFLACPicture(pics)
}

// marshal returns the metadata block for the current comment.
func (s *xiphStore) marshal() *flac.MetaDataBlock {
	block := s.block.Marshal()
	return &block
}

// flacPictures decodes the PICTURE metadata blocks of a FLAC stream.
func flacPictures(meta []*flac.MetaDataBlock) []*flacpicture.MetadataBlockPicture {
	var pics []*flacpicture.MetadataBlockPicture
	for _, m := range meta {
		if m.Type != flac.Picture {
			continue
		}
		pic, err := flacpicture.ParseFromMetaDataBlock(*m)
		if err != nil {
			continue
		}
		pics = append(pics, pic)
	}
	return pics
}

func bestFLACPicture(pics []*flacpicture.MetadataBlockPicture) *CoverImage {
	var best *flacpicture.MetadataBlockPicture
	for _, pic := range pics {
		if len(pic.ImageData) == 0 {
			continue
		}
		if best == nil || picturePriority(int(pic.PictureType)) < picturePriority(int(best.PictureType)) {
			best = pic
		}
	}
	if best == nil {
		return nil
	}
	mime := best.MIME
	if !strings.HasPrefix(mime, "image/") {
		mime = detectMimeType(best.ImageData)
	}
	return &CoverImage{Data: best.ImageData, MIMEType: mime}
}

func (s *xiphStore) owns(f field) bool { return xiphKeys.owns(f) }
