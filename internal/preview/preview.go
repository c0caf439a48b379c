package preview

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/davenicholson-xyz/wallctl/internal/command"
)

// Renderer turns an image into terminal output of roughly width x height cells.
type Renderer interface {
	Render(ctx context.Context, imagePath string, width, height int) (string, error)
}

// New returns a chafa renderer when chafa is on PATH, otherwise a box
// placeholder.
func New(runner command.Runner) Renderer {
	if _, err := exec.LookPath("chafa"); err == nil {
		return &Chafa{Runner: runner}
	}
	return Placeholder{}
}

// detectFormat picks the chafa --format value. chafa's own detection only
// inspects $TERM, and pixel protocols garble output inside tmux.
func detectFormat() string {
	if os.Getenv("TMUX") != "" {
		return "symbols"
	}
	switch os.Getenv("TERM_PROGRAM") {
	case "WezTerm":
		return "kitty"
	case "iTerm.app":
		return "iterm"
	}
	if os.Getenv("TERM") == "xterm-kitty" {
		return "kitty"
	}
	return "auto"
}

// Chafa renders images using the chafa CLI tool.
type Chafa struct {
	Runner command.Runner
}

func (r *Chafa) Render(ctx context.Context, imagePath string, width, height int) (string, error) {
	out, err := r.Runner.Output(ctx, "chafa",
		"--format="+detectFormat(),
		"--size", fmt.Sprintf("%dx%d", width, height),
		imagePath,
	)
	if err != nil {
		return "", fmt.Errorf("chafa: %w", err)
	}
	return string(out), nil
}

// Placeholder draws a labelled box in place of the image.
type Placeholder struct{}

func (Placeholder) Render(ctx context.Context, imagePath string, width, height int) (string, error) {
	if width < 2 || height < 2 {
		return "", nil
	}
	inner := width - 2
	line := "+" + strings.Repeat("-", inner) + "+\n"

	var sb strings.Builder
	sb.WriteString(line)
	for i := 0; i < height-2; i++ {
		if i == (height-2)/2 {
			sb.WriteString("|" + centerStr("NO PREVIEW", inner) + "|\n")
			continue
		}
		sb.WriteString("|" + strings.Repeat(" ", inner) + "|\n")
	}
	sb.WriteString(line)
	return sb.String(), nil
}

func centerStr(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	pad := (width - len(s)) / 2
	return strings.Repeat(" ", pad) + s + strings.Repeat(" ", width-len(s)-pad)
}

var (
	_ Renderer = (*Chafa)(nil)
	_ Renderer = Placeholder{}
)
