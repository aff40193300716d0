//go:build !windows

package safefile

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
)

// atomicReplace swaps replacement into original, keeping original under
// backup until the swap has succeeded. Renames within one directory are
// atomic, so readers see either the old or the new content.
func atomicReplace(fsys FS, original, replacement, backup string, _ RetryPolicy, logger *log.Logger) error {
	if !exists(fsys, replacement) {
		logger.Warn("temporary file not found", "temp", replacement)
		return fmt.Errorf("%w: %s", ErrTempMissing, replacement)
	}

	backedUp := false
	if exists(fsys, original) {
		if exists(fsys, backup) {
			logger.Error("backup file already exists", "backup", backup)
			return fmt.Errorf("%w: %s", ErrBackupExists, backup)
		}
		if err := fsys.Rename(original, backup); err != nil {
			logger.Error("failed to rename the original file for backup before writing",
				"path", original, "backup", backup, "err", err)
			return fmt.Errorf("backup original: %w", err)
		}
		backedUp = true
	}

	if err := fsys.Rename(replacement, original); err != nil {
		logger.Error("failed to rename temporary file after writing",
			"temp", replacement, "path", original, "err", err)
		if !backedUp {
			return fmt.Errorf("replace original: %w", err)
		}
		if rerr := fsys.Rename(backup, original); rerr != nil {
			logger.Error("both the original and the temporary file are still available, manual intervention required",
				"backup", backup, "temp", replacement, "err", rerr)
			return errors.Join(
				fmt.Errorf("replace original: %w", err),
				fmt.Errorf("%w: %w", ErrRollbackFailed, rerr),
			)
		}
		return fmt.Errorf("replace original: %w", err)
	}

	if backedUp {
		if err := fsys.Remove(backup); err != nil {
			logger.Warn("failed to remove backup file after writing", "backup", backup, "err", err)
			return fmt.Errorf("remove backup: %w", err)
		}
	}
	return nil
}
