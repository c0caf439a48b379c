//go:build linux

package main

import (
	"github.com/davenicholson-xyz/wallctl/internal/command"
	"github.com/davenicholson-xyz/wallctl/internal/config"
	"github.com/davenicholson-xyz/wallctl/internal/wallpaper"
)

func newBackend(cfg *config.Config) (backend, error) {
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	runner := &command.Exec{Timeout: timeout}

	var prober wallpaper.Prober = &wallpaper.ShellProber{Runner: runner}
	if cfg.Prober == "path" {
		prober = &wallpaper.PathProber{}
	}
	return wallpaper.New(wallpaper.Options{Prober: prober, Runner: runner}), nil
}
