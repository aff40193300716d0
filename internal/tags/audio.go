package tags

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/wav"
	goflac "github.com/go-flac/go-flac"
	"github.com/gopxl/beep/v2/flac"
	"github.com/llehouerou/go-m4a"
	"github.com/llehouerou/go-mp3"
	"go.senan.xyz/taglib"

	"github.com/llehouerou/tagsync/internal/riff"
)

// readMP3AudioInfo extracts audio info from MPEG audio frames.
func readMP3AudioInfo(audio []byte) (AudioInfo, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(audio))
	if err != nil {
		return AudioInfo{}, err
	}

	sampleRate := decoder.SampleRate()
	if sampleRate == 0 {
		return AudioInfo{}, errors.New("mp3: invalid sample rate")
	}

	sampleCount := max(decoder.SampleCount(), 0)
	duration := time.Duration(float64(sampleCount) / float64(sampleRate) * float64(time.Second))

	info := AudioInfo{
		Duration:   duration,
		Format:     "MP3",
		SampleRate: sampleRate,
		Channels:   mp3Channels(audio),
		BitDepth:   16, // MP3 decodes to 16-bit
	}
	if duration > 0 {
		info.Bitrate = int(float64(len(audio)*8) / duration.Seconds() / 1000)
	}
	return info, nil
}

// mp3Channels reads the channel mode of the first frame header.
func mp3Channels(audio []byte) int {
	for i := 0; i+3 < len(audio); i++ {
		if audio[i] != 0xff || audio[i+1]&0xe0 != 0xe0 {
			continue
		}
		if audio[i+3]>>6 == 3 {
			return 1
		}
		return 2
	}
	return 0
}

// readFLACAudioInfo extracts audio info from the FLAC STREAMINFO block.
func readFLACAudioInfo(stream *goflac.File, raw []byte) (AudioInfo, error) {
	si, err := stream.GetStreamInfo()
	if err != nil || si.SampleRate == 0 {
		// Fallback to beep decoder
		return readFLACWithBeep(bytes.NewReader(raw))
	}

	duration := time.Duration(float64(si.SampleCount) / float64(si.SampleRate) * float64(time.Second))
	info := AudioInfo{
		Duration:   duration,
		Format:     "FLAC",
		SampleRate: si.SampleRate,
		Channels:   si.ChannelCount,
		BitDepth:   si.BitDepth,
	}
	if duration > 0 {
		info.Bitrate = int(float64(len(stream.Frames)*8) / duration.Seconds() / 1000)
	}
	return info, nil
}

// readFLACWithBeep uses beep's FLAC decoder as fallback.
func readFLACWithBeep(r io.Reader) (AudioInfo, error) {
	streamer, format, err := flac.Decode(r)
	if err != nil {
		return AudioInfo{}, err
	}
	defer streamer.Close()

	return AudioInfo{
		Duration:   format.SampleRate.D(streamer.Len()),
		Format:     "FLAC",
		SampleRate: int(format.SampleRate),
		Channels:   format.NumChannels,
		BitDepth:   format.Precision * 8,
	}, nil
}

// readM4AAudioInfo extracts audio info from an M4A/MP4 file. Channel count
// and bitrate come from TagLib when it can read them.
func readM4AAudioInfo(path string) (AudioInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return AudioInfo{}, err
	}
	defer f.Close()

	container, err := m4a.Open(f)
	if err != nil {
		return AudioInfo{}, err
	}

	codecType := container.Codec()
	var format string
	switch codecType {
	case m4a.CodecAAC:
		format = "AAC"
	case m4a.CodecALAC:
		format = "ALAC"
	case m4a.CodecUnknown:
		format = "M4A"
	}

	bitDepth := 16
	if codecType == m4a.CodecALAC && container.SampleSize() == 24 {
		bitDepth = 24
	}

	info := AudioInfo{
		Duration:   container.Duration(),
		Format:     format,
		SampleRate: int(container.SampleRate()),
		BitDepth:   bitDepth,
	}
	if props, err := taglib.ReadProperties(path); err == nil {
		info.Channels = int(props.Channels)
		info.Bitrate = int(props.Bitrate)
	}
	return info, nil
}

// readTaglibAudioInfo reads stream properties through TagLib.
func readTaglibAudioInfo(path, format string) (AudioInfo, error) {
	props, err := taglib.ReadProperties(path)
	if err != nil {
		return AudioInfo{}, fmt.Errorf("read properties: %w", err)
	}
	if props.SampleRate == 0 {
		return AudioInfo{}, fmt.Errorf("%s: invalid sample rate", format)
	}
	info := AudioInfo{
		Duration:   props.Length,
		Format:     format,
		SampleRate: int(props.SampleRate),
		Channels:   int(props.Channels),
		Bitrate:    int(props.Bitrate),
	}
	if format == "OPUS" && info.Duration == 0 {
		if d, err := oggDuration(path); err == nil {
			info.Duration = d
		}
	}
	return info, nil
}

// oggDuration calculates an Opus stream's duration from the granule
// position of the last Ogg page.
func oggDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}

	// Read the last 64KB to find the last OGG page
	searchSize := min(int64(65536), fi.Size())
	if _, err := f.Seek(-searchSize, io.SeekEnd); err != nil {
		return 0, err
	}
	buf := make([]byte, searchSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, err
	}
	buf = buf[:n]

	// Search backwards for OggS magic
	for i := len(buf) - 27; i >= 0; i-- {
		if string(buf[i:i+4]) != "OggS" {
			continue
		}
		// Granule position is at offset 6, 8 bytes little-endian
		var granule int64
		for b := 7; b >= 0; b-- {
			granule = granule<<8 | int64(buf[i+6+b])
		}
		if granule > 0 {
			// Opus granules always count 48 kHz samples
			return time.Duration(float64(granule) / 48000.0 * float64(time.Second)), nil
		}
		break
	}
	return 0, errors.New("could not determine OGG duration")
}

// readWAVAudioInfo reads the fmt chunk with go-audio/wav. The duration is
// derived from the data chunk of the already parsed form.
func readWAVAudioInfo(data []byte, form *riff.Form) (AudioInfo, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return AudioInfo{}, fmt.Errorf("wav: %w", err)
	}
	if dec.SampleRate == 0 || dec.NumChans == 0 {
		return AudioInfo{}, errors.New("wav: invalid format chunk")
	}

	info := AudioInfo{
		Format:     "PCM",
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Bitrate:    int(dec.AvgBytesPerSec) * 8 / 1000,
	}
	if i := form.Index(riff.ID("data")); i >= 0 && dec.AvgBytesPerSec > 0 {
		size := float64(len(form.Chunks[i].Data))
		info.Duration = time.Duration(size / float64(dec.AvgBytesPerSec) * float64(time.Second))
	}
	return info, nil
}

// readAIFFAudioInfo decodes the COMM chunk.
func readAIFFAudioInfo(form *riff.Form) (AudioInfo, error) {
	i := form.Index(riff.ID(riff.ChunkComm))
	if i < 0 {
		return AudioInfo{}, errors.New("aiff: missing COMM chunk")
	}
	comm, err := riff.ParseComm(form.Chunks[i].Data)
	if err != nil {
		return AudioInfo{}, err
	}
	if comm.SampleRate <= 0 || comm.Channels <= 0 {
		return AudioInfo{}, errors.New("aiff: invalid COMM chunk")
	}
	duration := time.Duration(float64(comm.SampleFrames) / comm.SampleRate * float64(time.Second))
	return AudioInfo{
		Duration:   duration,
		Format:     "PCM",
		SampleRate: int(comm.SampleRate),
		Channels:   comm.Channels,
		BitDepth:   comm.SampleSize,
		Bitrate:    int(comm.SampleRate) * comm.Channels * comm.SampleSize / 1000,
	}, nil
}
