package safefile

import (
	"io"
	"io/fs"
	"os"
)

// FS is the filesystem surface used by a transaction. Every method must
// report failures with an error that can be inspected by the caller.
type FS interface {
	Stat(name string) (fs.FileInfo, error)
	Open(name string) (io.ReadCloser, error)
	// CreateExclusive creates name for writing and fails if it already
	// exists.
	CreateExclusive(name string, perm fs.FileMode) (WriteFile, error)
	Rename(oldpath, newpath string) error
	Remove(name string) error
	// Writable reports whether the current process may modify name.
	Writable(name string) bool
}

// WriteFile is a file opened for writing.
type WriteFile interface {
	io.Writer
	Sync() error
	Close() error
}

// OS is the FS backed by the operating system.
var OS FS = osFS{}

type osFS struct{}

func (osFS) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

func (osFS) Open(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

func (osFS) CreateExclusive(name string, perm fs.FileMode) (WriteFile, error) {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return nil, err
	}
	// The umask may have narrowed perm.
	if err := f.Chmod(perm); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return nil, err
	}
	return f, nil
}

func (osFS) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (osFS) Remove(name string) error {
	return os.Remove(name)
}

func (osFS) Writable(name string) bool {
	info, err := os.Stat(name)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return writable(name, info)
}

func exists(fsys FS, name string) bool {
	_, err := fsys.Stat(name)
	return err == nil
}
