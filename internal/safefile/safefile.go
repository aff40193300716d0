// Package safefile implements a copy-modify-swap transaction for rewriting
// precious files. All modifications go to a sibling copy that replaces the
// original only once the caller commits, so a crash or an I/O error while
// writing leaves the original untouched.
package safefile

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

// Suffixes appended to the original file name. The backup suffix is not
// longer than the temporary one so that a path that fits for the temporary
// file also fits for the backup.
const (
	TempSuffix   = "_temp"
	BackupSuffix = "_orig"
)

// State is the lifecycle state of a File.
type State int

const (
	Uninitialized State = iota
	ReadyOriginal
	ReadyTemporary
	Committed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case ReadyOriginal:
		return "ready (original)"
	case ReadyTemporary:
		return "ready (temporary)"
	case Committed:
		return "committed"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	ErrNotWritable    = errors.New("safefile: file is not writable")
	ErrSizeMismatch   = errors.New("safefile: size of copy differs from original")
	ErrNotReady       = errors.New("safefile: transaction is not ready")
	ErrTempMissing    = errors.New("safefile: temporary file not found")
	ErrBackupExists   = errors.New("safefile: backup file already exists")
	ErrRollbackFailed = errors.New("safefile: original could not be restored")
)

// Options configure a transaction.
type Options struct {
	// UseTemporaryFile writes into a copy of the original. Disabling it
	// writes directly into the original file.
	UseTemporaryFile bool
	Retry            RetryPolicy
	Logger           *log.Logger
	FS               FS
}

// DefaultOptions returns the crash-safe configuration.
func DefaultOptions() Options {
	return Options{
		UseTemporaryFile: true,
		Retry:            DefaultRetryPolicy,
	}
}

// File is a single write transaction on one path. It is not safe for
// concurrent use, and callers must not run two transactions on the same
// path at the same time.
type File struct {
	fs       FS
	log      *log.Logger
	retry    RetryPolicy
	origPath string
	tempPath string
	state    State
}

// Prepare starts a transaction on path. When a temporary file is used the
// original is copied to path+TempSuffix and the copy is verified.
//
// On error the returned File is Uninitialized, nothing on disk has changed,
// and every method is a no-op, so callers may defer Cancel unconditionally.
func Prepare(path string, opts Options) (*File, error) {
	f := &File{
		fs:    opts.FS,
		log:   opts.Logger,
		retry: opts.Retry,
	}
	if f.fs == nil {
		f.fs = OS
	}
	if f.log == nil {
		f.log = log.New(io.Discard)
	}

	if !f.fs.Writable(path) {
		f.log.Warn("failed to prepare file for writing", "path", path, "err", ErrNotWritable)
		return f, fmt.Errorf("%w: %s", ErrNotWritable, path)
	}

	if !opts.UseTemporaryFile {
		f.origPath = path
		f.state = ReadyOriginal
		return f, nil
	}

	tempPath := path + TempSuffix
	if err := f.clone(path, tempPath); err != nil {
		f.log.Warn("failed to clone original into temporary file before writing",
			"path", path, "temp", tempPath, "err", err)
		return f, err
	}
	f.origPath = path
	f.tempPath = tempPath
	f.state = ReadyTemporary
	return f, nil
}

// clone copies src into a new file dst and verifies the copy. A partial dst
// is removed on failure.
func (f *File) clone(src, dst string) (err error) {
	info, err := f.fs.Stat(src)
	if err != nil {
		return fmt.Errorf("stat original: %w", err)
	}

	in, err := f.fs.Open(src)
	if err != nil {
		return fmt.Errorf("open original: %w", err)
	}
	defer in.Close()

	out, err := f.fs.CreateExclusive(dst, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			if rmErr := f.fs.Remove(dst); rmErr != nil {
				f.log.Warn("failed to remove temporary file", "temp", dst, "err", rmErr)
			}
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return fmt.Errorf("sync temporary file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close temporary file: %w", err)
	}

	copied, err := f.fs.Stat(dst)
	if err != nil {
		return fmt.Errorf("stat temporary file: %w", err)
	}
	if copied.Size() != info.Size() {
		return fmt.Errorf("%w: %d <> %d", ErrSizeMismatch, info.Size(), copied.Size())
	}
	return nil
}

// State returns the current lifecycle state.
func (f *File) State() State {
	return f.state
}

// Ready reports whether Name may be written.
func (f *File) Ready() bool {
	return f.state == ReadyOriginal || f.state == ReadyTemporary
}

// Name returns the path that must be opened and modified: the temporary
// copy, or the original when writing in place. It is empty unless Ready.
func (f *File) Name() string {
	if f.tempPath != "" {
		return f.tempPath
	}
	return f.origPath
}

// Commit replaces the original with the modified copy. All handles on Name
// must be closed before calling it. After a successful commit the
// transaction forgets both paths and Cancel becomes a no-op.
//
// If the swap fails the original is restored from its backup. Only when
// that restore fails too are both files left in place for manual recovery;
// the returned error then matches ErrRollbackFailed.
func (f *File) Commit() error {
	switch f.state {
	case ReadyOriginal:
		f.finish(Committed)
		return nil
	case ReadyTemporary:
	default:
		return fmt.Errorf("%w: %s", ErrNotReady, f.state)
	}

	backupPath := f.origPath + BackupSuffix
	err := atomicReplace(f.fs, f.origPath, f.tempPath, backupPath, f.retry, f.log)
	if err != nil {
		if errors.Is(err, ErrRollbackFailed) {
			// Keep both files: removing the temporary one would leave the
			// new content nowhere but in a file we no longer track.
			f.finish(Cancelled)
		}
		return err
	}
	f.finish(Committed)
	return nil
}

// Cancel abandons the transaction and deletes the temporary file. The
// original file is never touched.
func (f *File) Cancel() {
	if !f.Ready() {
		return
	}
	if f.tempPath != "" && exists(f.fs, f.tempPath) {
		if err := f.fs.Remove(f.tempPath); err != nil {
			f.log.Warn("failed to remove temporary file", "temp", f.tempPath, "err", err)
		}
	}
	f.finish(Cancelled)
}

func (f *File) finish(s State) {
	f.origPath = ""
	f.tempPath = ""
	f.state = s
}
