package wallpaper

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDetection means none of the cataloged tools were found on PATH.
	ErrDetection = errors.New("no supported wallpaper tool found on PATH")

	// ErrNoCapableTool means tools were found but none supports the operation.
	ErrNoCapableTool = errors.New("no available wallpaper tool supports this operation")

	// ErrInvalidArgument is returned for an unusable image path.
	ErrInvalidArgument = errors.New("invalid image path")
)

// ExecError reports a wallpaper tool that failed to start or exited non-zero.
type ExecError struct {
	Command string
	Args    []string
	Err     error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Command, strings.Join(e.Args, " "), e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }
