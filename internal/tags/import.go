package tags

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// importFile reads the tags of path into md and cover. Either may be nil,
// but not both. Only the first sub-format present in the file is read, so
// values from different tags are never mixed.
//
// With reset, fields of md that the tag does not carry are cleared;
// otherwise they keep their previous value. The returned time is the
// file's modification time in UTC and is only set on success.
func importFile(
	logger *log.Logger,
	t ContainerType,
	path string,
	md *TrackMetadata,
	cover *CoverImage,
	reset bool,
) (ImportResult, time.Time) {
	if t == Unknown {
		logger.Warn("unsupported container type", "path", path)
		return ImportFailed, time.Time{}
	}
	if md == nil && cover == nil {
		logger.Warn("nothing requested to import", "path", path)
		return ImportUnavailable, time.Time{}
	}

	fi, err := os.Stat(path)
	if err != nil {
		logger.Warn("failed to stat file", "path", path, "err", err)
		return ImportFailed, time.Time{}
	}
	c, err := openContainer(t, path)
	if err != nil {
		logger.Warn("failed to open file", "path", path, "type", t, "err", err)
		return ImportFailed, time.Time{}
	}
	audio, err := c.audioInfo()
	if err != nil {
		logger.Warn("failed to read audio properties", "path", path, "type", t, "err", err)
		return ImportFailed, time.Time{}
	}

	store := firstPresent(c)
	if store == nil {
		logger.Info("no tag found", "path", path, "type", t)
		return ImportUnavailable, time.Time{}
	}
	cd := codec{store}
	logger.Debug("importing tags", "path", path, "type", t, "format", store.format())

	if md != nil {
		cd.importMetadata(md, reset)
		md.Audio = audio
	}
	if cover != nil && !cd.importCover(cover) {
		if fb, ok := c.(pictureFallback); ok {
			if pic := fb.fallbackPicture(); pic != nil {
				*cover = *pic
			}
		}
	}
	return ImportSucceeded, fi.ModTime().UTC()
}

// firstPresent returns the first store of c, in precedence order, that
// exists in the file.
func firstPresent(c container) tagStore {
	for _, s := range c.stores() {
		if s.present() {
			return s
		}
	}
	return nil
}
