//go:build windows

package safefile

import (
	"io/fs"

	"golang.org/x/sys/windows"
)

func writable(name string, info fs.FileInfo) bool {
	if info.Mode().Perm()&0o200 == 0 {
		return false
	}
	p, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return false
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return false
	}
	return attrs&windows.FILE_ATTRIBUTE_READONLY == 0
}
