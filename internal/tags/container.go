package tags

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/go-flac/go-flac"

	"github.com/llehouerou/tagsync/internal/riff"
)

// ErrUnsupported is returned for the Unknown container type.
var ErrUnsupported = errors.New("unsupported container type")

// container is an opened audio file. Containers that the package rewrites
// itself are loaded fully into memory, so no file handle stays open between
// reading and saving.
type container interface {
	// stores returns the tag sub-formats in reading precedence.
	stores() []tagStore
	audioInfo() (AudioInfo, error)
	// save persists every modified store to path.
	save(path string) error
}

// pictureFallback is implemented by containers that carry pictures outside
// their tags (FLAC PICTURE blocks).
type pictureFallback interface {
	fallbackPicture() *CoverImage
}

// openContainer opens path as a container of type t.
func openContainer(t ContainerType, path string) (container, error) {
	switch t {
	case MP3:
		return openMP3(path)
	case FLAC:
		return openFLAC(path)
	case WAV, AIFF:
		return openRIFF(t, path)
	case WavPack:
		return openWavPack(path)
	case OGG, OPUS, MP4:
		return openTaglib(t, path)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, t)
}

// storeOf returns the store of c with format f.
func storeOf(c container, f SubFormat) tagStore {
	for _, s := range c.stores() {
		if s.format() == f {
			return s
		}
	}
	return nil
}

// writeFile replaces the content of an existing file. Its mode is kept.
// It is replaced in tests.
var writeFile = writeFileOS

func writeFileOS(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// mp3File is an MPEG stream with an optional leading ID3v2 tag and optional
// trailing APE and ID3v1 tags.
type mp3File struct {
	data   []byte
	id3End int // length of the leading ID3v2 region, any version
	id3    *id3v2Store
	ape    *apeStore // relative to data[id3End:]
	v1     *id3v1Store
}

func openMP3(path string) (*mp3File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f := &mp3File{data: data}
	if size, _, ok := id3v2Span(data); ok {
		f.id3End = size
	}
	if f.id3, err = newID3v2Store(data[:f.id3End]); err != nil {
		return nil, err
	}
	body := data[f.id3End:]
	if f.ape, err = newAPEStore(body); err != nil {
		return nil, err
	}
	if f.v1, err = newID3v1Store(body); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *mp3File) stores() []tagStore {
	return []tagStore{f.id3, f.ape, f.v1}
}

// audio returns the MPEG frames without any tag.
func (f *mp3File) audio() []byte {
	body := f.data[f.id3End:]
	end := len(body)
	if f.ape.found {
		end = f.ape.loc.Offset
	} else if len(body) >= id3v1Size && f.v1.present() {
		end -= id3v1Size
	}
	return body[:end]
}

func (f *mp3File) audioInfo() (AudioInfo, error) {
	return readMP3AudioInfo(f.audio())
}

func (f *mp3File) save(path string) error {
	head := f.data[:f.id3End]
	if f.id3.modified() {
		var err error
		if head, err = f.id3.marshal(); err != nil {
			return err
		}
	}
	body := f.data[f.id3End:]
	if f.ape.modified() {
		body = f.ape.apply(body)
	}
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head...)
	out = append(out, body...)
	return writeFile(path, out)
}

// flacFile is a FLAC stream, possibly preceded by an ID3v2 tag.
type flacFile struct {
	prefix []byte
	id3    *id3v2Store
	stream *flac.File
	xiph   *xiphStore
}

func openFLAC(path string) (*flacFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f := &flacFile{}
	if size, _, ok := id3v2Span(data); ok {
		f.prefix = data[:size]
	}
	if f.id3, err = newID3v2Store(f.prefix); err != nil {
		return nil, err
	}
	if f.stream, err = flac.ParseBytes(bytes.NewReader(data[len(f.prefix):])); err != nil {
		return nil, fmt.Errorf("parse flac: %w", err)
	}
	var comment *flac.MetaDataBlock
	if i := f.commentIndex(); i >= 0 {
		comment = f.stream.Meta[i]
	}
	if f.xiph, err = newXiphStore(comment); err != nil {
		return nil, fmt.Errorf("parse vorbis comment: %w", err)
	}
	return f, nil
}

func (f *flacFile) commentIndex() int {
	for i, meta := range f.stream.Meta {
		if meta.Type == flac.VorbisComment {
			return i
		}
	}
	return -1
}

func (f *flacFile) stores() []tagStore {
	return []tagStore{f.xiph, f.id3}
}

func (f *flacFile) audioInfo() (AudioInfo, error) {
	return readFLACAudioInfo(f.stream, f.stream.Marshal())
}

func (f *flacFile) fallbackPicture() *CoverImage {
	return bestFLACPicture(flacPictures(f.stream.Meta))
}

func (f *flacFile) save(path string) error {
	prefix := f.prefix
	if f.id3.modified() {
		var err error
		if prefix, err = f.id3.marshal(); err != nil {
			return err
		}
	}
	if f.xiph.modified() {
		block := f.xiph.marshal()
		if i := f.commentIndex(); i >= 0 {
			f.stream.Meta[i] = block
		} else {
			// right after STREAMINFO, which must stay first
			meta := make([]*flac.MetaDataBlock, 0, len(f.stream.Meta)+1)
			meta = append(meta, f.stream.Meta[0], block)
			meta = append(meta, f.stream.Meta[1:]...)
			f.stream.Meta = meta
		}
	}
	stream := f.stream.Marshal()
	out := make([]byte, 0, len(prefix)+len(stream))
	out = append(out, prefix...)
	out = append(out, stream...)
	return writeFile(path, out)
}

// riffFile is a WAV (RIFF/WAVE) or AIFF (FORM/AIFF, FORM/AIFC) file.
type riffFile struct {
	typ  ContainerType
	data []byte
	form *riff.Form
	id3  *id3v2Store
	info *riffInfoStore // WAV only
	text *aiffTextStore // AIFF only
}

func openRIFF(t ContainerType, path string) (*riffFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	form, err := riff.Parse(data)
	if err != nil {
		return nil, err
	}
	switch {
	case t == WAV && form.Kind == riff.KindRIFF && form.Type == riff.TypeWAVE:
	case t == AIFF && form.Kind == riff.KindFORM && (form.Type == riff.TypeAIFF || form.Type == riff.TypeAIFC):
	default:
		return nil, fmt.Errorf("not a %s file: %s/%s", t, form.Kind, form.Type)
	}

	f := &riffFile{typ: t, data: data, form: form}
	var raw []byte
	if i := form.Index(riff.IsID3); i >= 0 {
		raw = form.Chunks[i].Data
	}
	if f.id3, err = newID3v2Store(raw); err != nil {
		return nil, err
	}
	if t == WAV {
		if f.info, err = newRIFFInfoStore(form); err != nil {
			return nil, err
		}
	} else {
		f.text = newAIFFTextStore(form)
	}
	return f, nil
}

func (f *riffFile) stores() []tagStore {
	if f.typ == WAV {
		return []tagStore{f.id3, f.info}
	}
	return []tagStore{f.id3, f.text}
}

func (f *riffFile) audioInfo() (AudioInfo, error) {
	if f.typ == WAV {
		return readWAVAudioInfo(f.data, f.form)
	}
	return readAIFFAudioInfo(f.form)
}

func (f *riffFile) save(path string) error {
	if f.id3.modified() {
		raw, err := f.id3.marshal()
		if err != nil {
			return err
		}
		i := f.form.Index(riff.IsID3)
		id := riff.ChunkID3Lower
		switch {
		case i >= 0:
			id = f.form.Chunks[i].ID
		case f.typ == AIFF:
			id = riff.ChunkID3Upper
		}
		f.form.Put(i, riff.Chunk{ID: id, Data: raw})
	}
	if f.info != nil && f.info.modified() {
		f.info.apply(f.form)
	}
	return writeFile(path, f.form.Marshal())
}

// wavpackMagic starts every WavPack block.
const wavpackMagic = "wvpk"

// wavpackFile is a WavPack stream with an optional trailing APE tag.
type wavpackFile struct {
	path string
	data []byte
	ape  *apeStore
}

func openWavPack(path string) (*wavpackFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 || string(data[:4]) != wavpackMagic {
		return nil, errors.New("not a WavPack file")
	}
	f := &wavpackFile{path: path, data: data}
	if f.ape, err = newAPEStore(data); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *wavpackFile) stores() []tagStore { return []tagStore{f.ape} }

func (f *wavpackFile) audioInfo() (AudioInfo, error) {
	return readTaglibAudioInfo(f.path, "WAVPACK")
}

func (f *wavpackFile) save(path string) error {
	if !f.ape.modified() {
		return nil
	}
	return writeFile(path, f.ape.apply(f.data))
}

// taglibFile is a container whose tags are read and written by TagLib:
// Ogg Vorbis, Opus and MP4.
type taglibFile struct {
	typ   ContainerType
	path  string
	store *taglibStore
}

func openTaglib(t ContainerType, path string) (*taglibFile, error) {
	var (
		store *taglibStore
		err   error
	)
	if t == MP4 {
		store, err = newTaglibStore(path, MP4Atoms, mp4Keys, mp4Cover(path))
	} else {
		store, err = newTaglibStore(path, XiphComment, xiphKeys, taglibCover(path))
	}
	if err != nil {
		return nil, err
	}
	return &taglibFile{typ: t, path: path, store: store}, nil
}

func (f *taglibFile) stores() []tagStore { return []tagStore{f.store} }

func (f *taglibFile) audioInfo() (AudioInfo, error) {
	switch f.typ {
	case MP4:
		return readM4AAudioInfo(f.path)
	case OPUS:
		return readTaglibAudioInfo(f.path, "OPUS")
	}
	return readTaglibAudioInfo(f.path, "VORBIS")
}

func (f *taglibFile) save(path string) error {
	if !f.store.modified() {
		return nil
	}
	return f.store.save(path)
}
