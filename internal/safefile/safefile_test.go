package safefile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// faultyFS wraps OS and injects failures.
type faultyFS struct {
	FS
	notWritable bool
	failWrite   bool
	shortWrite  bool
	renameFail  map[[2]string]error
	removeFail  map[string]error
}

func (f *faultyFS) Writable(name string) bool {
	if f.notWritable {
		return false
	}
	return f.FS.Writable(name)
}

func (f *faultyFS) CreateExclusive(name string, perm fs.FileMode) (WriteFile, error) {
	w, err := f.FS.CreateExclusive(name, perm)
	if err != nil {
		return nil, err
	}
	return &faultyWriter{WriteFile: w, fail: f.failWrite, short: f.shortWrite}, nil
}

func (f *faultyFS) Rename(oldpath, newpath string) error {
	if err, ok := f.renameFail[[2]string{oldpath, newpath}]; ok {
		return err
	}
	return f.FS.Rename(oldpath, newpath)
}

func (f *faultyFS) Remove(name string) error {
	if err, ok := f.removeFail[name]; ok {
		return err
	}
	return f.FS.Remove(name)
}

type faultyWriter struct {
	WriteFile
	fail  bool
	short bool
}

func (w *faultyWriter) Write(p []byte) (int, error) {
	if w.fail {
		return 0, errors.New("disk full")
	}
	if w.short && len(p) > 1 {
		// drop a byte but report success
		n, err := w.WriteFile.Write(p[:len(p)-1])
		if err != nil {
			return n, err
		}
		return len(p), nil
	}
	return w.WriteFile.Write(p)
}

func writeOriginal(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "track.mp3")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func assertMissing(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	assert.True(t, errors.Is(err, fs.ErrNotExist), "expected %s to be absent", path)
}

func TestPrepare_CopiesOriginal(t *testing.T) {
	path := writeOriginal(t, "original audio")

	f, err := Prepare(path, DefaultOptions())
	require.NoError(t, err)
	defer f.Cancel()

	assert.Equal(t, ReadyTemporary, f.State())
	assert.True(t, f.Ready())
	assert.Equal(t, path+TempSuffix, f.Name())
	assert.Equal(t, "original audio", readFile(t, f.Name()))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(f.Name())
		require.NoError(t, err)
		assert.Equal(t, fs.FileMode(0o640), info.Mode().Perm())
	}
}

func TestPrepare_NotWritable(t *testing.T) {
	path := writeOriginal(t, "original audio")
	opts := DefaultOptions()
	opts.FS = &faultyFS{FS: OS, notWritable: true}

	f, err := Prepare(path, opts)
	require.ErrorIs(t, err, ErrNotWritable)
	assert.Equal(t, Uninitialized, f.State())
	assert.False(t, f.Ready())
	assert.Empty(t, f.Name())
	assertMissing(t, path+TempSuffix)

	// every method is a no-op
	f.Cancel()
	assert.ErrorIs(t, f.Commit(), ErrNotReady)
	assert.Equal(t, "original audio", readFile(t, path))
}

func TestPrepare_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.mp3")

	_, err := Prepare(path, DefaultOptions())
	assert.ErrorIs(t, err, ErrNotWritable)
}

func TestPrepare_CopyFailureRemovesTemp(t *testing.T) {
	path := writeOriginal(t, "original audio")
	opts := DefaultOptions()
	opts.FS = &faultyFS{FS: OS, failWrite: true}

	f, err := Prepare(path, opts)
	require.Error(t, err)
	assert.Equal(t, Uninitialized, f.State())
	assertMissing(t, path+TempSuffix)
	assert.Equal(t, "original audio", readFile(t, path))
}

func TestPrepare_SizeMismatch(t *testing.T) {
	path := writeOriginal(t, "original audio")
	opts := DefaultOptions()
	opts.FS = &faultyFS{FS: OS, shortWrite: true}

	_, err := Prepare(path, opts)
	require.ErrorIs(t, err, ErrSizeMismatch)
	assertMissing(t, path+TempSuffix)
}

func TestPrepare_StaleTempFails(t *testing.T) {
	path := writeOriginal(t, "original audio")
	require.NoError(t, os.WriteFile(path+TempSuffix, []byte("stale"), 0o600))

	f, err := Prepare(path, DefaultOptions())
	require.Error(t, err)
	assert.False(t, f.Ready())
	// a temp file we did not create is left alone
	assert.Equal(t, "stale", readFile(t, path+TempSuffix))
}

func TestPrepare_InPlace(t *testing.T) {
	path := writeOriginal(t, "original audio")
	opts := DefaultOptions()
	opts.UseTemporaryFile = false

	f, err := Prepare(path, opts)
	require.NoError(t, err)
	assert.Equal(t, ReadyOriginal, f.State())
	assert.Equal(t, path, f.Name())
	assertMissing(t, path+TempSuffix)

	require.NoError(t, os.WriteFile(f.Name(), []byte("edited"), 0o640))
	require.NoError(t, f.Commit())
	assert.Equal(t, Committed, f.State())
	assert.Empty(t, f.Name())
	assert.Equal(t, "edited", readFile(t, path))
}

func TestCommit_ReplacesOriginal(t *testing.T) {
	path := writeOriginal(t, "original audio")

	f, err := Prepare(path, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.Name(), []byte("tagged audio"), 0o640))

	require.NoError(t, f.Commit())
	assert.Equal(t, Committed, f.State())
	assert.Equal(t, "tagged audio", readFile(t, path))
	assertMissing(t, path+TempSuffix)
	assertMissing(t, path+BackupSuffix)

	// idempotent after commit
	f.Cancel()
	assert.Equal(t, Committed, f.State())
	assert.ErrorIs(t, f.Commit(), ErrNotReady)
	assert.Equal(t, "tagged audio", readFile(t, path))
}

func TestCommit_TempMissing(t *testing.T) {
	path := writeOriginal(t, "original audio")

	f, err := Prepare(path, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, os.Remove(f.Name()))

	require.ErrorIs(t, f.Commit(), ErrTempMissing)
	assert.Equal(t, ReadyTemporary, f.State())
	assert.Equal(t, "original audio", readFile(t, path))
	f.Cancel()
	assert.Equal(t, Cancelled, f.State())
}

func TestCommit_StaleBackup(t *testing.T) {
	path := writeOriginal(t, "original audio")
	require.NoError(t, os.WriteFile(path+BackupSuffix, []byte("old backup"), 0o600))

	f, err := Prepare(path, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.Name(), []byte("tagged audio"), 0o640))

	require.ErrorIs(t, f.Commit(), ErrBackupExists)
	assert.Equal(t, "original audio", readFile(t, path))
	assert.Equal(t, "old backup", readFile(t, path+BackupSuffix))

	f.Cancel()
	assertMissing(t, path+TempSuffix)
}

func TestCommit_RenameFailureRestoresOriginal(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("rename protocol is POSIX only")
	}
	path := writeOriginal(t, "original audio")
	fsys := &faultyFS{FS: OS, renameFail: map[[2]string]error{
		{path + TempSuffix, path}: errors.New("cross-device link"),
	}}
	opts := DefaultOptions()
	opts.FS = fsys

	f, err := Prepare(path, opts)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.Name(), []byte("tagged audio"), 0o640))

	err = f.Commit()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRollbackFailed)
	assert.Equal(t, "original audio", readFile(t, path))
	assertMissing(t, path+BackupSuffix)

	f.Cancel()
	assert.Equal(t, Cancelled, f.State())
	assertMissing(t, path+TempSuffix)
	assert.Equal(t, "original audio", readFile(t, path))
}

func TestCommit_RollbackFailureKeepsBothFiles(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("rename protocol is POSIX only")
	}
	path := writeOriginal(t, "original audio")
	fsys := &faultyFS{FS: OS, renameFail: map[[2]string]error{
		{path + TempSuffix, path}:   errors.New("cross-device link"),
		{path + BackupSuffix, path}: errors.New("i/o error"),
	}}
	opts := DefaultOptions()
	opts.FS = fsys

	f, err := Prepare(path, opts)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.Name(), []byte("tagged audio"), 0o640))

	require.ErrorIs(t, f.Commit(), ErrRollbackFailed)
	assert.Equal(t, Cancelled, f.State())

	f.Cancel()
	assert.Equal(t, "original audio", readFile(t, path+BackupSuffix))
	assert.Equal(t, "tagged audio", readFile(t, path+TempSuffix))
}

func TestCommit_BackupRemovalFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("rename protocol is POSIX only")
	}
	path := writeOriginal(t, "original audio")
	fsys := &faultyFS{FS: OS, removeFail: map[string]error{
		path + BackupSuffix: errors.New("permission denied"),
	}}
	opts := DefaultOptions()
	opts.FS = fsys

	f, err := Prepare(path, opts)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.Name(), []byte("tagged audio"), 0o640))

	require.Error(t, f.Commit())
	// the swap itself happened
	assert.Equal(t, "tagged audio", readFile(t, path))
	assert.Equal(t, "original audio", readFile(t, path+BackupSuffix))
}

func TestCancel_RemovesTemp(t *testing.T) {
	path := writeOriginal(t, "original audio")

	f, err := Prepare(path, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.Name(), []byte("tagged audio"), 0o640))

	f.Cancel()
	assert.Equal(t, Cancelled, f.State())
	assert.Empty(t, f.Name())
	assertMissing(t, path+TempSuffix)
	assert.Equal(t, "original audio", readFile(t, path))

	f.Cancel()
	assert.Equal(t, Cancelled, f.State())
}

func TestRetryPolicy(t *testing.T) {
	var slept []time.Duration
	orig := sleep
	sleep = func(d time.Duration) { slept = append(slept, d) }
	t.Cleanup(func() { sleep = orig })

	busy := errors.New("busy")
	always := func(error) bool { return true }
	never := func(error) bool { return false }

	tests := []struct {
		name      string
		policy    RetryPolicy
		failures  int
		retryable func(error) bool
		wantCalls int
		wantErr   bool
	}{
		{"succeeds first", RetryPolicy{5, time.Millisecond}, 0, always, 1, false},
		{"succeeds after retries", RetryPolicy{5, time.Millisecond}, 3, always, 4, false},
		{"exhausted", RetryPolicy{5, time.Millisecond}, 10, always, 5, true},
		{"not retryable", RetryPolicy{5, time.Millisecond}, 10, never, 1, true},
		{"zero attempts runs once", RetryPolicy{0, time.Millisecond}, 10, always, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slept = nil
			calls := 0
			err := tt.policy.run(func() error {
				calls++
				if calls <= tt.failures {
					return busy
				}
				return nil
			}, tt.retryable)

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr {
				assert.ErrorIs(t, err, busy)
			} else {
				assert.NoError(t, err)
			}
			// no sleep after the final attempt
			assert.Len(t, slept, tt.wantCalls-1)
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "committed", Committed.String())
	assert.Equal(t, "State(42)", State(42).String())
}
