package tags

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/llehouerou/tagsync/internal/safefile"
)

// Options configure a Source. The zero value logs nothing and writes
// through a temporary copy.
type Options struct {
	// Logger receives diagnostics. Nil discards them.
	Logger *log.Logger
	// InPlace writes exports directly into the file instead of a verified
	// copy that replaces it. A crash during the write may then corrupt the
	// file.
	InPlace bool
	// Retry bounds the retries of the native replace. The zero value uses
	// safefile.DefaultRetryPolicy.
	Retry safefile.RetryPolicy
	// FS is the filesystem used by exports. Nil means safefile.OS.
	FS safefile.FS
}

// Source reads and writes the tags of one audio file. Calls on a Source
// are synchronous; callers must not run two operations on the same path
// at the same time.
type Source struct {
	path string
	typ  ContainerType
	log  *log.Logger
	tx   safefile.Options
}

// NewSource returns a Source for path, whose content is of type t.
func NewSource(path string, t ContainerType, opts Options) *Source {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	retry := opts.Retry
	if retry == (safefile.RetryPolicy{}) {
		retry = safefile.DefaultRetryPolicy
	}
	return &Source{
		path: path,
		typ:  t,
		log:  logger,
		tx: safefile.Options{
			UseTemporaryFile: !opts.InPlace,
			Retry:            retry,
			Logger:           logger,
			FS:               opts.FS,
		},
	}
}

// Path returns the file path.
func (s *Source) Path() string { return s.path }

// Type returns the container type.
func (s *Source) Type() ContainerType { return s.typ }

// ImportTrackMetadataAndCoverImage reads the file's tags into md and its
// cover into cover. Either may be nil. With reset, fields of md missing
// from the tag are cleared. On success it returns the file's modification
// time in UTC.
func (s *Source) ImportTrackMetadataAndCoverImage(
	md *TrackMetadata,
	cover *CoverImage,
	reset bool,
) (ImportResult, time.Time) {
	return importFile(s.log, s.typ, s.path, md, cover, reset)
}

// ExportTrackMetadata writes md into the file's tags. The replacement is
// atomic: after any failure the original content is still in place. When no
// tag would change the file is left alone and ExportFailed is returned;
// callers that treat that as success compare the metadata first. On success
// it returns the file's modification time in UTC.
func (s *Source) ExportTrackMetadata(md *TrackMetadata) (ExportResult, time.Time) {
	if s.typ == Unknown {
		s.log.Warn("unsupported container type", "path", s.path)
		return ExportUnsupported, time.Time{}
	}
	// logged before touching the file so a crash can be traced back to it
	s.log.Debug("exporting tags", "path", s.path, "type", s.typ)

	tx, err := safefile.Prepare(s.path, s.tx)
	if err != nil {
		return ExportFailed, time.Time{}
	}
	defer tx.Cancel()

	saver, err := newTagSaver(s.typ, tx.Name(), md)
	if err != nil {
		s.log.Warn("failed to open file for writing", "path", s.path, "type", s.typ, "err", err)
		return ExportFailed, time.Time{}
	}
	if !saver.HasModifiedTags() {
		s.log.Info("no modified tags to save", "path", s.path, "type", s.typ)
		return ExportFailed, time.Time{}
	}
	if err := saver.SaveModifiedTags(); err != nil {
		s.log.Warn("failed to save tags", "path", s.path, "type", s.typ, "err", err)
		return ExportFailed, time.Time{}
	}
	if err := tx.Commit(); err != nil {
		s.log.Warn("failed to replace file", "path", s.path, "err", err)
		return ExportFailed, time.Time{}
	}
	return s.synced()
}

func (s *Source) synced() (ExportResult, time.Time) {
	fi, err := os.Stat(s.path)
	if err != nil {
		s.log.Warn("failed to stat file", "path", s.path, "err", err)
		return ExportFailed, time.Time{}
	}
	return ExportSucceeded, fi.ModTime().UTC()
}
