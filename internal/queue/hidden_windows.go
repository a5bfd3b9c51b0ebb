//go:build windows

package queue

import "golang.org/x/sys/windows"

// hide sets FILE_ATTRIBUTE_HIDDEN, since Windows ignores the dot prefix.
func hide(path string) error {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}
	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return err
	}
	return windows.SetFileAttributes(p, attrs|windows.FILE_ATTRIBUTE_HIDDEN)
}
