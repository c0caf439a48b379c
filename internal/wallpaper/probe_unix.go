//go:build unix

package wallpaper

import "golang.org/x/sys/unix"

func isExecutable(path string) bool {
	if _, err := statRegular(path); err != nil {
		return false
	}
	return unix.Access(path, unix.X_OK) == nil
}
