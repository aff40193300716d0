//nolint:goconst // test cases intentionally repeat strings for readability
package errmsg

import (
	"errors"
	"testing"

	"github.com/llehouerou/tagsync/internal/tags"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpExportTags,
			err:      nil,
			expected: "",
		},
		{
			name:     "formats error with operation",
			op:       OpExportTags,
			err:      errors.New("file not found"),
			expected: "Failed to write file tags: file not found",
		},
		{
			name:     "config operation",
			op:       OpConfigLoad,
			err:      errors.New("invalid toml"),
			expected: "Failed to load configuration: invalid toml",
		},
		{
			name:     "detect operation",
			op:       OpDetectType,
			err:      errors.New("permission denied"),
			expected: "Failed to detect file type: permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Format(tt.op, tt.err)
			if result != tt.expected {
				t.Errorf("Format(%q, %v) = %q, want %q", tt.op, tt.err, result, tt.expected)
			}
		})
	}
}

func TestFormatWith(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		context  string
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpImportTags,
			context:  "song.mp3",
			err:      nil,
			expected: "",
		},
		{
			name:     "formats error with context",
			op:       OpImportTags,
			context:  "song.mp3",
			err:      errors.New("permission denied"),
			expected: "Failed to read file tags 'song.mp3': permission denied",
		},
		{
			name:     "empty context falls back to Format",
			op:       OpImportTags,
			context:  "",
			err:      errors.New("permission denied"),
			expected: "Failed to read file tags: permission denied",
		},
		{
			name:     "field parsing with flag context",
			op:       OpParseField,
			context:  "track",
			err:      errors.New("invalid syntax"),
			expected: "Failed to parse field 'track': invalid syntax",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatWith(tt.op, tt.context, tt.err)
			if result != tt.expected {
				t.Errorf("FormatWith(%q, %q, %v) = %q, want %q", tt.op, tt.context, tt.err, result, tt.expected)
			}
		})
	}
}

func TestFormatImport(t *testing.T) {
	tests := []struct {
		res      tags.ImportResult
		expected string
	}{
		{tags.ImportSucceeded, ""},
		{tags.ImportUnavailable, "No tags in 'a.flac'"},
		{tags.ImportFailed, "Failed to read file tags 'a.flac': see log for details"},
	}

	for _, tt := range tests {
		t.Run(tt.res.String(), func(t *testing.T) {
			if got := FormatImport("a.flac", tt.res); got != tt.expected {
				t.Errorf("FormatImport() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFormatExport(t *testing.T) {
	tests := []struct {
		res      tags.ExportResult
		expected string
	}{
		{tags.ExportSucceeded, ""},
		{tags.ExportUnsupported, "Failed to write file tags 'a.xyz': unsupported container type"},
		{tags.ExportFailed, "Failed to write file tags 'a.xyz': see log for details"},
	}

	for _, tt := range tests {
		t.Run(tt.res.String(), func(t *testing.T) {
			if got := FormatExport("a.xyz", tt.res); got != tt.expected {
				t.Errorf("FormatExport() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestOpConstants(t *testing.T) {
	// Verify that Op constants are non-empty and produce valid messages
	ops := []Op{
		OpImportTags, OpExportTags, OpDetectType,
		OpFileStat,
		OpParseField,
		OpConfigLoad, OpLogOpen,
	}

	testErr := errors.New("test error")

	for _, op := range ops {
		t.Run(string(op), func(t *testing.T) {
			if op == "" {
				t.Error("Op constant should not be empty")
			}

			// Verify the format includes the operation
			expected := "Failed to " + string(op) + ": test error"
			if result := Format(op, testErr); result != expected {
				t.Errorf("Format = %q, want %q", result, expected)
			}
		})
	}
}
