package adapter

import "sync"

var (
	defaultOnce sync.Once
	defaultCat  *Catalogue
)

// Default returns the built-in catalogue. GNOME settings comes first, the
// MATE dconf key last.
func Default() *Catalogue {
	defaultOnce.Do(func() {
		defaultCat = MustCatalogue(
			Spec{
				Command: "gsettings",
				Caps:    CanGet | CanSet,
				GetArgs: []string{"get", "org.gnome.desktop.background", "picture-uri"},
				SetArgs: func(abs string) []string {
					return []string{"set", "org.gnome.desktop.background", "picture-uri", "file://" + abs}
				},
				// 'file:///home/me/pic.png' -> /home/me/pic.png
				Transform: func(raw string) string { return slice(raw, 8, 1) },
			},
			Spec{
				Command: "setroot",
				Caps:    CanSet,
				SetArgs: func(abs string) []string { return []string{abs} },
			},
			Spec{
				Command: "pcmanfm",
				Caps:    CanSet,
				SetArgs: func(abs string) []string { return []string{"-w", abs} },
			},
			Spec{
				Command: "feh",
				Caps:    CanSet,
				SetArgs: func(abs string) []string { return []string{"--bg-scale", abs} },
			},
			Spec{
				Command: "xfconf-query",
				Caps:    CanSet,
				SetArgs: func(abs string) []string {
					return []string{
						"-c", "xfce4-desktop",
						"-p", "/backdrop/screen0/monitor0/image-path",
						"-s", abs,
					}
				},
			},
			Spec{
				Command: "gconftool-2",
				Caps:    CanSet,
				SetArgs: func(abs string) []string {
					return []string{"--set", "/desktop/gnome/background/picture_filename", "--type=string", abs}
				},
			},
			Spec{
				Command: "dcop",
				Caps:    CanSet,
				SetArgs: func(abs string) []string {
					return []string{"kdesktop", "KBackgroundIface", "setWallpaper", abs, "1"}
				},
			},
			Spec{
				Command: "dconf",
				Caps:    CanGet | CanSet,
				GetArgs: []string{"read", "/org/mate/desktop/background/picture-filename"},
				SetArgs: func(abs string) []string {
					return []string{"write", "/org/mate/desktop/background/picture-filename", `"` + abs + `"`}
				},
				Transform: func(raw string) string { return slice(raw, 1, 1) },
			},
		)
	})
	return defaultCat
}

// slice drops head bytes from the front and tail bytes from the back,
// returning "" when s is too short.
func slice(s string, head, tail int) string {
	if len(s) < head+tail {
		return ""
	}
	return s[head : len(s)-tail]
}
