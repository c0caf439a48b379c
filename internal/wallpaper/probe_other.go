//go:build !unix

package wallpaper

func isExecutable(path string) bool {
	fi, err := statRegular(path)
	if err != nil {
		return false
	}
	return fi.Mode().Perm()&0o111 != 0
}
