// Package tags normalizes the tag containers found in audio files into a
// single TrackMetadata model and writes metadata back through a crash-safe
// file transaction.
//
// Every container type has an ordered list of tag sub-formats. Reading uses
// the first sub-format present in the file and nothing else; writing follows
// a per-container plan that decides which sub-formats are updated or
// created.
package tags

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// File extensions recognized by DetectType.
const (
	ExtMP3  = ".mp3"
	ExtFLAC = ".flac"
	ExtOPUS = ".opus"
	ExtOGG  = ".ogg"
	ExtOGA  = ".oga"
	ExtM4A  = ".m4a"
	ExtM4B  = ".m4b"
	ExtMP4  = ".mp4"
	ExtWV   = ".wv"
	ExtWAV  = ".wav"
	ExtAIFF = ".aiff"
	ExtAIF  = ".aif"
	ExtAIFC = ".aifc"
)

// id3Magic is the magic bytes for ID3v2 header detection.
const id3Magic = "ID3"

// TrackMetadata is the format-independent view of a track's tags.
// Numeric fields use 0 for "absent".
type TrackMetadata struct {
	Title       string
	Artist      string
	Album       string
	AlbumArtist string
	Composer    string
	Grouping    string
	Genre       string
	Comment     string
	Year        string // free-form date, usually YYYY or YYYY-MM-DD

	TrackNumber int
	TrackTotal  int
	DiscNumber  int
	DiscTotal   int
	BPM         int

	// Audio is filled on import and ignored on export.
	Audio AudioInfo
}

// YearNumber derives the year from the Year field.
// Returns 0 if Year is empty or cannot be parsed.
func (m *TrackMetadata) YearNumber() int {
	year := m.Year
	if len(year) > 4 {
		year = year[:4]
	}
	y, _ := strconv.Atoi(year)
	return y
}

// AudioInfo contains audio stream properties (not tags).
type AudioInfo struct {
	Duration   time.Duration
	Format     string // MP3, FLAC, AAC, ALAC, OPUS, VORBIS, WAVPACK, PCM
	SampleRate int
	Channels   int
	BitDepth   int
	Bitrate    int // kbit/s, 0 when unknown
}

// CoverImage is embedded artwork. The data is never decoded.
type CoverImage struct {
	Data     []byte
	MIMEType string
}

// ContainerType identifies the file format wrapping the audio stream.
type ContainerType int

const (
	Unknown ContainerType = iota
	MP3
	MP4
	FLAC
	OGG
	OPUS
	WavPack
	WAV
	AIFF
)

func (t ContainerType) String() string {
	switch t {
	case MP3:
		return "MP3"
	case MP4:
		return "MP4"
	case FLAC:
		return "FLAC"
	case OGG:
		return "OGG"
	case OPUS:
		return "OPUS"
	case WavPack:
		return "WavPack"
	case WAV:
		return "WAV"
	case AIFF:
		return "AIFF"
	}
	return "Unknown"
}

// SubFormat identifies one tag format that may live inside a container.
type SubFormat int

const (
	ID3v2 SubFormat = iota + 1
	APE
	ID3v1
	MP4Atoms
	XiphComment
	RIFFInfo
	AIFFText
)

func (f SubFormat) String() string {
	switch f {
	case ID3v2:
		return "ID3v2"
	case APE:
		return "APE"
	case ID3v1:
		return "ID3v1"
	case MP4Atoms:
		return "MP4"
	case XiphComment:
		return "Xiph"
	case RIFFInfo:
		return "RIFF INFO"
	case AIFFText:
		return "AIFF text"
	}
	return "SubFormat(" + strconv.Itoa(int(f)) + ")"
}

// precedence lists the sub-formats of each container in reading order.
var precedence = map[ContainerType][]SubFormat{
	MP3:     {ID3v2, APE, ID3v1},
	MP4:     {MP4Atoms},
	FLAC:    {XiphComment, ID3v2},
	OGG:     {XiphComment},
	OPUS:    {XiphComment},
	WavPack: {APE},
	WAV:     {ID3v2, RIFFInfo},
	AIFF:    {ID3v2, AIFFText},
}

// Precedence returns the sub-formats of t in reading order. Unknown has
// none.
func Precedence(t ContainerType) []SubFormat {
	return append([]SubFormat(nil), precedence[t]...)
}

// ImportResult is the outcome of reading tags.
type ImportResult int

const (
	ImportSucceeded ImportResult = iota
	ImportUnavailable
	ImportFailed
)

func (r ImportResult) String() string {
	switch r {
	case ImportSucceeded:
		return "succeeded"
	case ImportUnavailable:
		return "unavailable"
	}
	return "failed"
}

// ExportResult is the outcome of writing tags.
type ExportResult int

const (
	ExportSucceeded ExportResult = iota
	ExportFailed
	ExportUnsupported
)

func (r ExportResult) String() string {
	switch r {
	case ExportSucceeded:
		return "succeeded"
	case ExportUnsupported:
		return "unsupported"
	}
	return "failed"
}

// TypeFromPath returns the container type implied by the file extension.
func TypeFromPath(path string) ContainerType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtMP3:
		return MP3
	case ExtM4A, ExtM4B, ExtMP4:
		return MP4
	case ExtFLAC:
		return FLAC
	case ExtOGG, ExtOGA:
		return OGG
	case ExtOPUS:
		return OPUS
	case ExtWV:
		return WavPack
	case ExtWAV:
		return WAV
	case ExtAIFF, ExtAIF, ExtAIFC:
		return AIFF
	}
	return Unknown
}

// IsMusicFile returns true if the path has a supported music file extension.
func IsMusicFile(path string) bool {
	return TypeFromPath(path) != Unknown
}

// parseNumberPair parses a track/disc number that may be "N" or "N/M" format.
func parseNumberPair(s string) (num, total int) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0
	}
	if idx := strings.Index(s, "/"); idx >= 0 {
		num, _ = strconv.Atoi(strings.TrimSpace(s[:idx]))
		total, _ = strconv.Atoi(strings.TrimSpace(s[idx+1:]))
		return num, total
	}
	num, _ = strconv.Atoi(s)
	return num, 0
}
