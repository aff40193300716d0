//go:build windows

package safefile

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/windows"
)

const (
	replacefileIgnoreMergeErrors = 0x00000002
	replacefileIgnoreACLErrors   = 0x00000004

	errUnableToRemoveReplaced   syscall.Errno = 1175
	errUnableToMoveReplacement  syscall.Errno = 1176
	errUnableToMoveReplacement2 syscall.Errno = 1177
)

var procReplaceFileW = windows.NewLazySystemDLL("kernel32.dll").NewProc("ReplaceFileW")

// replaceFile is replaced in tests.
var replaceFile = replaceFileW

func replaceFileW(replaced, replacement, backup string) error {
	pReplaced, err := windows.UTF16PtrFromString(replaced)
	if err != nil {
		return err
	}
	pReplacement, err := windows.UTF16PtrFromString(replacement)
	if err != nil {
		return err
	}
	pBackup, err := windows.UTF16PtrFromString(backup)
	if err != nil {
		return err
	}
	r1, _, e1 := procReplaceFileW.Call(
		uintptr(unsafe.Pointer(pReplaced)),
		uintptr(unsafe.Pointer(pReplacement)),
		uintptr(unsafe.Pointer(pBackup)),
		replacefileIgnoreMergeErrors|replacefileIgnoreACLErrors,
		0,
		0,
	)
	if r1 == 0 {
		return e1
	}
	return nil
}

// atomicReplace uses ReplaceFileW, which keeps attributes and streams of the
// original. After the file has been closed an indexer or virus scanner may
// still hold it, so sharing violations are retried; every other error is
// final. The backup is removed only once the replace has succeeded. When
// ReplaceFileW fails after moving the original aside, the backup is renamed
// back.
func atomicReplace(fsys FS, original, replacement, backup string, retry RetryPolicy, logger *log.Logger) error {
	if !exists(fsys, replacement) {
		logger.Warn("temporary file not found", "temp", replacement)
		return fmt.Errorf("%w: %s", ErrTempMissing, replacement)
	}
	if exists(fsys, backup) {
		logger.Error("backup file already exists", "backup", backup)
		return fmt.Errorf("%w: %s", ErrBackupExists, backup)
	}

	err := retry.run(
		func() error { return replaceFile(original, replacement, backup) },
		func(err error) bool {
			if errors.Is(err, windows.ERROR_SHARING_VIOLATION) {
				logger.Warn("file is used by another process, retrying replace",
					"path", original, "temp", replacement)
				return true
			}
			return false
		},
	)
	if err != nil {
		switch {
		case errors.Is(err, errUnableToMoveReplacement):
			logger.Error("unable to rename replacement file", "temp", replacement, "path", original)
		case errors.Is(err, errUnableToMoveReplacement2):
			logger.Error("unable to move replacement file", "temp", replacement, "path", original)
		case errors.Is(err, errUnableToRemoveReplaced):
			logger.Error("unable to remove original before replacing", "path", original, "temp", replacement)
		case errors.Is(err, windows.ERROR_ACCESS_DENIED):
			logger.Error("access denied while replacing", "path", original, "temp", replacement)
		default:
			logger.Error("failed to replace file", "path", original, "temp", replacement, "err", err)
		}
		return restoreBackup(fsys, original, replacement, backup, err, logger)
	}

	if exists(fsys, backup) {
		if rmErr := fsys.Remove(backup); rmErr != nil {
			logger.Warn("failed to remove backup file after writing", "backup", backup, "err", rmErr)
			return fmt.Errorf("remove backup: %w", rmErr)
		}
	}
	return nil
}

// restoreBackup puts the backup back under the original name when a failed
// replace left the original missing.
func restoreBackup(fsys FS, original, replacement, backup string, replaceErr error, logger *log.Logger) error {
	replaceErr = fmt.Errorf("replace original: %w", replaceErr)
	if exists(fsys, original) || !exists(fsys, backup) {
		return replaceErr
	}
	if err := fsys.Rename(backup, original); err != nil {
		logger.Error("both the original and the temporary file are still available, manual intervention required",
			"backup", backup, "temp", replacement, "err", err)
		return errors.Join(replaceErr, fmt.Errorf("%w: %w", ErrRollbackFailed, err))
	}
	logger.Warn("original file restored from backup", "path", original)
	return replaceErr
}
