package riff

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wavForm() *Form {
	fmtChunk := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtChunk[0:2], 1)       // PCM
	binary.LittleEndian.PutUint16(fmtChunk[2:4], 2)       // channels
	binary.LittleEndian.PutUint32(fmtChunk[4:8], 44100)   // sample rate
	binary.LittleEndian.PutUint32(fmtChunk[8:12], 176400) // byte rate
	binary.LittleEndian.PutUint16(fmtChunk[12:14], 4)     // block align
	binary.LittleEndian.PutUint16(fmtChunk[14:16], 16)    // bits per sample
	return &Form{
		Kind: KindRIFF,
		Type: TypeWAVE,
		Chunks: []Chunk{
			{ID: ChunkFmt, Data: fmtChunk},
			{ID: "data", Data: make([]byte, 400)},
		},
	}
}

func TestParseMarshal_RIFF(t *testing.T) {
	data := wavForm().Marshal()
	assert.Equal(t, "RIFF", string(data[:4]))
	assert.Equal(t, uint32(len(data)-8), binary.LittleEndian.Uint32(data[4:8]))

	f, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, TypeWAVE, f.Type)
	require.Len(t, f.Chunks, 2)
	assert.Equal(t, "data", f.Chunks[1].ID)
	assert.Equal(t, data, f.Marshal())
}

func TestParse_OddChunkPadding(t *testing.T) {
	f := wavForm()
	f.Chunks = append(f.Chunks, Chunk{ID: "junk", Data: []byte{1, 2, 3}})
	f.Chunks = append(f.Chunks, Chunk{ID: "tail", Data: []byte{9}})
	data := f.Marshal()

	got, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, got.Chunks, 4)
	assert.Equal(t, []byte{1, 2, 3}, got.Chunks[2].Data)
	assert.Equal(t, []byte{9}, got.Chunks[3].Data)
}

func TestParse_FORMBigEndian(t *testing.T) {
	f := &Form{Kind: KindFORM, Type: TypeAIFF, Chunks: []Chunk{{ID: ChunkName, Data: []byte("Title")}}}
	data := f.Marshal()
	assert.Equal(t, uint32(len(data)-8), binary.BigEndian.Uint32(data[4:8]))

	got, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "Title", DecodeLatin1(got.Chunks[0].Data))
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("OggS0000000000"))
	assert.ErrorIs(t, err, ErrNotChunked)

	f := wavForm()
	data := f.Marshal()
	// Corrupt the size of the data chunk.
	idx := bytes.Index(data, []byte("data"))
	binary.LittleEndian.PutUint32(data[idx+4:idx+8], 1<<30)
	_, err = Parse(data)
	assert.Error(t, err)
}

func TestParse_OuterSizeTooSmall(t *testing.T) {
	for _, size := range []uint32{0, 3} {
		data := wavForm().Marshal()
		binary.LittleEndian.PutUint32(data[4:8], size)
		_, err := Parse(data)
		assert.ErrorIs(t, err, ErrCorrupt, "size %d", size)
	}

	aiff := (&Form{Kind: KindFORM, Type: TypeAIFF}).Marshal()
	binary.BigEndian.PutUint32(aiff[4:8], 0)
	_, err := Parse(append(aiff, make([]byte, 32)...))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestPut(t *testing.T) {
	f := wavForm()
	f.Put(-1, Chunk{ID: ChunkID3Lower, Data: []byte("ID3")})
	i := f.Index(IsID3)
	require.Equal(t, 2, i)

	f.Put(i, Chunk{ID: ChunkID3Lower, Data: []byte("ID3!")})
	assert.Equal(t, []byte("ID3!"), f.Chunks[2].Data)

	f.Put(i, Chunk{ID: ChunkID3Lower})
	assert.Equal(t, -1, f.Index(IsID3))
	assert.Equal(t, 1, f.Index(ID("data", "DATA")))
}

func TestInfo(t *testing.T) {
	info := NewInfo()
	info.Set("INAM", "Title")
	info.Set("IART", "Artist")
	info.Set("ICMT", "odd")

	f := wavForm()
	f.Put(-1, Chunk{ID: ChunkList, Data: info.Marshal()})

	got, err := Parse(f.Marshal())
	require.NoError(t, err)
	i := got.Index(IsInfoList)
	require.GreaterOrEqual(t, i, 0)

	parsed, err := ParseInfo(got.Chunks[i].Data)
	require.NoError(t, err)
	assert.Equal(t, 3, parsed.Len())
	assert.Equal(t, "Title", parsed.Get("INAM"))
	assert.Equal(t, "odd", parsed.Get("ICMT"))

	parsed.Set("IART", "")
	assert.Empty(t, parsed.Get("IART"))
	assert.Equal(t, 2, parsed.Len())
}

func TestParseInfo_NotInfo(t *testing.T) {
	_, err := ParseInfo([]byte("adtlxxxx"))
	assert.Error(t, err)
}

func TestComm(t *testing.T) {
	data := make([]byte, 18)
	binary.BigEndian.PutUint16(data[0:2], 2)
	binary.BigEndian.PutUint32(data[2:6], 44100)
	binary.BigEndian.PutUint16(data[6:8], 16)
	copy(data[8:], FloatToExtended(44100))

	c, err := ParseComm(data)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Channels)
	assert.Equal(t, 16, c.SampleSize)
	assert.InDelta(t, 44100.0, c.SampleRate, 0.001)

	_, err = ParseComm(data[:10])
	assert.Error(t, err)
}

func TestDecodeLatin1(t *testing.T) {
	assert.Equal(t, "café", DecodeLatin1([]byte{'c', 'a', 'f', 0xe9, 0}))
}
