//go:build darwin

package queue

import "golang.org/x/sys/unix"

// hide sets the Finder hidden flag. Names already start with a dot, so
// this only matters for tools that ignore the dot convention.
func hide(path string) error {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return err
	}
	return unix.Chflags(path, int(st.Flags)|unix.UF_HIDDEN)
}
