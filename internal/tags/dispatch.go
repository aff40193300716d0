package tags

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/dhowden/tag"
)

// sniffSize covers the magic of every container and the first Ogg page
// header including the codec identification.
const sniffSize = 64

// DetectType returns the container type of path. The extension is trusted
// when it is recognized; otherwise the content is sniffed.
func DetectType(path string) (ContainerType, error) {
	if t := TypeFromPath(path); t != Unknown {
		return t, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Unknown, err
	}
	defer f.Close()

	head := make([]byte, sniffSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Unknown, err
	}
	head = head[:n]
	if t := sniffMagic(head); t != Unknown {
		return t, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Unknown, err
	}
	format, fileType, err := tag.Identify(f)
	if err != nil {
		return Unknown, nil //nolint:nilerr // unrecognized content is not an error
	}
	switch {
	case format == tag.MP4:
		// any ftyp brand, not only the iTunes ones
		return MP4, nil
	case fileType == tag.FLAC:
		return FLAC, nil
	case fileType == tag.OGG:
		return OGG, nil
	case fileType == tag.MP3:
		return MP3, nil
	}
	return Unknown, nil
}

// sniffMagic recognizes containers that tag.Identify does not know about.
func sniffMagic(head []byte) ContainerType {
	switch {
	case len(head) >= 12 && string(head[:4]) == "RIFF" && string(head[8:12]) == "WAVE":
		return WAV
	case len(head) >= 12 && string(head[:4]) == "FORM" &&
		(string(head[8:12]) == "AIFF" || string(head[8:12]) == "AIFC"):
		return AIFF
	case len(head) >= 4 && string(head[:4]) == wavpackMagic:
		return WavPack
	case len(head) >= 4 && string(head[:4]) == "OggS" && bytes.Contains(head, []byte("OpusHead")):
		return OPUS
	}
	return Unknown
}
