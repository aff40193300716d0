// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import (
	"errors"
	"fmt"

	"github.com/llehouerou/tagsync/internal/tags"
)

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Tag operations
	OpImportTags Op = "read file tags"
	OpExportTags Op = "write file tags"
	OpDetectType Op = "detect file type"

	// File operations
	OpFileStat Op = "read file"

	// Flag parsing
	OpParseField Op = "parse field"

	// Initialization
	OpConfigLoad Op = "load configuration"
	OpLogOpen    Op = "open log file"
)

// errSeeLog stands in for failures whose cause was already logged.
var errSeeLog = errors.New("see log for details")

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}

// FormatImport describes an import that did not succeed. It returns an
// empty string for tags.ImportSucceeded.
func FormatImport(path string, res tags.ImportResult) string {
	switch res {
	case tags.ImportSucceeded:
		return ""
	case tags.ImportUnavailable:
		return fmt.Sprintf("No tags in '%s'", path)
	default:
		return FormatWith(OpImportTags, path, errSeeLog)
	}
}

// FormatExport describes an export that did not succeed. It returns an
// empty string for tags.ExportSucceeded.
func FormatExport(path string, res tags.ExportResult) string {
	switch res {
	case tags.ExportSucceeded:
		return ""
	case tags.ExportUnsupported:
		return FormatWith(OpExportTags, path, tags.ErrUnsupported)
	default:
		return FormatWith(OpExportTags, path, errSeeLog)
	}
}
