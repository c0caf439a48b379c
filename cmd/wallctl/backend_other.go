//go:build !linux

package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	setwallpaper "github.com/davenicholson-xyz/go-setwallpaper/wallpaper"

	"github.com/davenicholson-xyz/wallctl/internal/config"
	"github.com/davenicholson-xyz/wallctl/internal/wallpaper"
)

// systemBackend sets the wallpaper through the platform's native API. It
// cannot report the current wallpaper.
type systemBackend struct{}

func newBackend(cfg *config.Config) (backend, error) {
	return systemBackend{}, nil
}

func (systemBackend) Get(ctx context.Context) (string, error) {
	return "", errors.New("reading the current wallpaper is only supported on Linux")
}

func (systemBackend) Set(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty path", wallpaper.ErrInvalidArgument)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: %w", wallpaper.ErrInvalidArgument, err)
	}
	return setwallpaper.Set(abs)
}
