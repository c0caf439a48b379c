package wallpaper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/davenicholson-xyz/wallctl/internal/command"
	"github.com/davenicholson-xyz/wallctl/internal/log"
)

// Prober locates executables. Each returned line is either an absolute path
// to a found binary or something else (an alias name, say), which the
// resolver ignores.
type Prober interface {
	Probe(ctx context.Context, names []string) ([]string, error)
}

// ShellProber asks the shell for every match of every name in one process.
type ShellProber struct {
	Runner command.Runner
}

func (p *ShellProber) Probe(ctx context.Context, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	script := "which -a " + strings.Join(names, "; which -a ")

	out, err := p.Runner.Shell(ctx, script)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// The runner's own deadline leaves ctx untouched.
		if isContextErr(err) {
			return nil, err
		}
		// which exits non-zero whenever one name is missing; stdout still
		// lists the names that were found.
		log.Debugf("probe %q: %v", script, err)
	}
	return splitLines(string(out)), nil
}

// PathProber scans the directories in PATH itself instead of spawning a shell.
// Lines come out per name, then per PATH entry, matching which -a.
type PathProber struct {
	// Path overrides $PATH when non-empty.
	Path string
}

func (p *PathProber) Probe(ctx context.Context, names []string) ([]string, error) {
	path := p.Path
	if path == "" {
		path = os.Getenv("PATH")
	}
	dirs := filepath.SplitList(path)

	var found []string
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, dir := range dirs {
			if dir == "" {
				dir = "."
			}
			candidate := filepath.Join(dir, name)
			if !filepath.IsAbs(candidate) {
				abs, err := filepath.Abs(candidate)
				if err != nil {
					continue
				}
				candidate = abs
			}
			if isExecutable(candidate) {
				found = append(found, candidate)
			}
		}
	}
	return found, nil
}

func splitLines(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

var (
	_ Prober = (*ShellProber)(nil)
	_ Prober = (*PathProber)(nil)
)

var errNotRegular = errors.New("not a regular file")

func statRegular(path string) (os.FileInfo, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.Mode().IsRegular() {
		return nil, errNotRegular
	}
	return fi, nil
}
