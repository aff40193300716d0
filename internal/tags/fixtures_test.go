package tags

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/tagsync/internal/ape"
	"github.com/llehouerou/tagsync/internal/riff"
)

var (
	pngData  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
	jpegData = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
)

// mp3Frame returns a single MPEG1 Layer III frame (128kbps, 44100Hz,
// stereo) with silent payload.
func mp3Frame() []byte {
	frame := make([]byte, 417)
	frame[0] = 0xff
	frame[1] = 0xfb
	frame[2] = 0x90
	frame[3] = 0x00
	return frame
}

// id3v1Tag builds a 128-byte ID3v1.1 tag.
func id3v1Tag(title, artist string, track byte) []byte {
	b := make([]byte, id3v1Size)
	copy(b, "TAG")
	copy(b[3:33], title)
	copy(b[33:63], artist)
	b[126] = track
	b[127] = 0xff // no genre
	return b
}

// id3v2Tag builds a complete ID3v2 tag of the given major version.
func id3v2Tag(t *testing.T, version byte, edit func(tag *id3v2.Tag)) []byte {
	t.Helper()
	tag := id3v2.NewEmptyTag()
	tag.SetVersion(version)
	edit(tag)
	var buf bytes.Buffer
	_, err := tag.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

// apeTag builds an APEv2 tag with header and footer.
func apeTag(edit func(tag *ape.Tag)) []byte {
	tag := ape.New()
	edit(tag)
	return tag.Marshal()
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// flacStreamInfo returns a STREAMINFO block for one second of 16-bit
// stereo at 44100Hz.
func flacStreamInfo() *flac.MetaDataBlock {
	data := make([]byte, 34)
	binary.BigEndian.PutUint16(data[0:2], 4096)
	binary.BigEndian.PutUint16(data[2:4], 4096)
	// sample rate (20 bits), channels-1 (3), bits per sample-1 (5), samples (36)
	packed := uint64(44100)<<44 | uint64(1)<<41 | uint64(15)<<36 | uint64(44100)
	binary.BigEndian.PutUint64(data[10:18], packed)
	return &flac.MetaDataBlock{Type: flac.StreamInfo, Data: data}
}

// flacComment returns a VORBIS_COMMENT block holding the KEY=value pairs.
func flacComment(t *testing.T, pairs ...string) *flac.MetaDataBlock {
	t.Helper()
	c := flacvorbis.New()
	for i := 0; i+1 < len(pairs); i += 2 {
		require.NoError(t, c.Add(pairs[i], pairs[i+1]))
	}
	block := c.Marshal()
	return &block
}

// flacPicture returns a PICTURE block.
func flacPicture(pictureType flacpicture.PictureType, mime string, data []byte) *flac.MetaDataBlock {
	pic := &flacpicture.MetadataBlockPicture{
		PictureType: pictureType,
		MIME:        mime,
		ImageData:   data,
	}
	block := pic.Marshal()
	return &block
}

// flacBytes builds a FLAC stream with STREAMINFO followed by blocks and a
// fake frame that only carries the sync code.
func flacBytes(blocks ...*flac.MetaDataBlock) []byte {
	f := &flac.File{
		Meta:   append([]*flac.MetaDataBlock{flacStreamInfo()}, blocks...),
		Frames: []byte{0xff, 0xf8, 0x69, 0x08, 0x00, 0x00},
	}
	return f.Marshal()
}

// wavBytes builds a one second 16-bit stereo PCM WAV file followed by the
// extra chunks.
func wavBytes(extra ...riff.Chunk) []byte {
	fmtChunk := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtChunk[0:2], 1)       // PCM
	binary.LittleEndian.PutUint16(fmtChunk[2:4], 2)       // channels
	binary.LittleEndian.PutUint32(fmtChunk[4:8], 44100)   // sample rate
	binary.LittleEndian.PutUint32(fmtChunk[8:12], 176400) // byte rate
	binary.LittleEndian.PutUint16(fmtChunk[12:14], 4)     // block align
	binary.LittleEndian.PutUint16(fmtChunk[14:16], 16)    // bits per sample
	form := &riff.Form{
		Kind: riff.KindRIFF,
		Type: riff.TypeWAVE,
		Chunks: []riff.Chunk{
			{ID: riff.ChunkFmt, Data: fmtChunk},
			{ID: "data", Data: make([]byte, 176400)},
		},
	}
	form.Chunks = append(form.Chunks, extra...)
	return form.Marshal()
}

// infoChunk builds a LIST/INFO chunk from id/value pairs.
func infoChunk(pairs ...string) riff.Chunk {
	info := riff.NewInfo()
	for i := 0; i+1 < len(pairs); i += 2 {
		info.Set(pairs[i], pairs[i+1])
	}
	return riff.Chunk{ID: riff.ChunkList, Data: info.Marshal()}
}

// aiffBytes builds a one second 16-bit stereo AIFF file followed by the
// extra chunks.
func aiffBytes(extra ...riff.Chunk) []byte {
	comm := make([]byte, 18)
	binary.BigEndian.PutUint16(comm[0:2], 2)     // channels
	binary.BigEndian.PutUint32(comm[2:6], 44100) // sample frames
	binary.BigEndian.PutUint16(comm[6:8], 16)    // sample size
	copy(comm[8:18], riff.FloatToExtended(44100))
	form := &riff.Form{
		Kind: riff.KindFORM,
		Type: riff.TypeAIFF,
		Chunks: []riff.Chunk{
			{ID: riff.ChunkComm, Data: comm},
			{ID: "SSND", Data: make([]byte, 8+16)},
		},
	}
	form.Chunks = append(form.Chunks, extra...)
	return form.Marshal()
}

// writeFixture stores data as name in a fresh temporary directory.
// wavpackBytes returns a single WavPack block header for one second of
// 16-bit stereo at 44.1 kHz, followed by tags.
func wavpackBytes(tags ...[]byte) []byte {
	const (
		bytesPerSample16 = 1
		initialBlock     = 0x800
		finalBlock       = 0x1000
		rate44100        = 9 << 23
	)
	var b bytes.Buffer
	b.WriteString(wavpackMagic)
	_ = binary.Write(&b, binary.LittleEndian, struct {
		Size         uint32
		Version      uint16
		IndexHigh    uint8
		TotalHigh    uint8
		TotalSamples uint32
		BlockIndex   uint32
		BlockSamples uint32
		Flags        uint32
		CRC          uint32
	}{24, 0x410, 0, 0, 44100, 0, 44100, bytesPerSample16 | initialBlock | finalBlock | rate44100, 0})
	return concat(append([][]byte{b.Bytes()}, tags...)...)
}

func writeFixture(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func readFixture(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

// importMetadata imports path and fails the test unless it succeeds.
func importMetadata(t *testing.T, path string) TrackMetadata {
	t.Helper()
	var md TrackMetadata
	res, _ := NewSource(path, TypeFromPath(path), Options{}).
		ImportTrackMetadataAndCoverImage(&md, nil, true)
	require.Equal(t, ImportSucceeded, res)
	return md
}
