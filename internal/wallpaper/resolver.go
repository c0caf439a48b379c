package wallpaper

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/davenicholson-xyz/wallctl/internal/adapter"
	"github.com/davenicholson-xyz/wallctl/internal/command"
	"github.com/davenicholson-xyz/wallctl/internal/log"
)

// Options configures a Resolver. Nil fields fall back to the built-in
// catalogue, real process execution and a batched shell probe.
type Options struct {
	Catalogue *adapter.Catalogue
	Prober    Prober
	Runner    command.Runner

	// Abs makes a caller-supplied path absolute. Defaults to filepath.Abs.
	Abs func(string) (string, error)
}

// Resolver finds out which wallpaper tools are installed and dispatches get
// and set requests to the preferred one.
//
// Discovery runs at most once per Resolver. Its outcome, including a failure
// to find any tool, is kept for the Resolver's lifetime.
type Resolver struct {
	catalogue *adapter.Catalogue
	prober    Prober
	runner    command.Runner
	abs       func(string) (string, error)

	group singleflight.Group

	mu        sync.Mutex
	resolved  bool
	available []adapter.Spec
	err       error
}

func New(opts Options) *Resolver {
	r := &Resolver{
		catalogue: opts.Catalogue,
		prober:    opts.Prober,
		runner:    opts.Runner,
		abs:       opts.Abs,
	}
	if r.catalogue == nil {
		r.catalogue = adapter.Default()
	}
	if r.runner == nil {
		r.runner = &command.Exec{}
	}
	if r.prober == nil {
		r.prober = &ShellProber{Runner: r.runner}
	}
	if r.abs == nil {
		r.abs = filepath.Abs
	}
	return r
}

// Available returns the installed tools in preference order, probing the
// host on first use. Concurrent first callers share a single probe.
func (r *Resolver) Available(ctx context.Context) ([]adapter.Spec, error) {
	avail, err := r.ensureResolved(ctx)
	if err != nil {
		return nil, err
	}
	return append([]adapter.Spec(nil), avail...), nil
}

func (r *Resolver) ensureResolved(ctx context.Context) ([]adapter.Spec, error) {
	if avail, ok, err := r.cached(); ok {
		return avail, err
	}
	// The shared lookup must outlive any one caller's cancellation; each
	// caller still stops waiting when its own ctx is done.
	probeCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan("discover", func() (interface{}, error) {
		if avail, ok, err := r.cached(); ok {
			return avail, err
		}
		avail, err := r.discover(probeCtx)
		if err != nil && isContextErr(err) {
			// Not the host's answer; a later call may probe again.
			return nil, err
		}
		r.mu.Lock()
		r.resolved = true
		r.available = avail
		r.err = err
		r.mu.Unlock()
		return avail, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]adapter.Spec), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Resolver) cached() ([]adapter.Spec, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.available, r.resolved, r.err
}

func (r *Resolver) discover(ctx context.Context) ([]adapter.Spec, error) {
	lines, err := r.prober.Probe(ctx, r.catalogue.Names())
	if err != nil {
		if isContextErr(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDetection, err)
	}
	if len(lines) == 0 {
		return nil, ErrDetection
	}

	var (
		avail []adapter.Spec
		seen  = make(map[string]bool)
	)
	for _, line := range lines {
		if !strings.HasPrefix(line, string(filepath.Separator)) {
			log.Debugf("ignoring non-path probe result %q", line)
			continue
		}
		name := filepath.Base(line)
		spec, ok := r.catalogue.Lookup(name)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		avail = append(avail, spec)
		log.Debugf("found %s at %s", name, line)
	}
	if len(avail) == 0 {
		return nil, ErrDetection
	}
	return avail, nil
}

// Adapter returns the first available tool that supports c.
func (r *Resolver) Adapter(ctx context.Context, c adapter.Capability) (adapter.Spec, error) {
	avail, err := r.ensureResolved(ctx)
	if err != nil {
		return adapter.Spec{}, err
	}
	for _, s := range avail {
		if s.Can(c) {
			return s, nil
		}
	}
	return adapter.Spec{}, fmt.Errorf("%w: %s", ErrNoCapableTool, c)
}

// Get returns the current wallpaper as reported by the preferred tool.
func (r *Resolver) Get(ctx context.Context) (string, error) {
	spec, err := r.Adapter(ctx, adapter.CanGet)
	if err != nil {
		return "", err
	}
	args := spec.GetCommand()
	log.Debugf("get via %s %v", spec.Command, args)

	out, err := r.runner.Output(ctx, spec.Command, args...)
	if err != nil {
		return "", &ExecError{Command: spec.Command, Args: args, Err: err}
	}
	return spec.Normalize(strings.TrimSpace(string(out))), nil
}

// Set makes path, resolved against the working directory, the wallpaper.
func (r *Resolver) Set(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidArgument)
	}
	abs, err := r.abs(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	spec, err := r.Adapter(ctx, adapter.CanSet)
	if err != nil {
		return err
	}
	args := spec.SetCommand(abs)
	log.Debugf("set via %s %v", spec.Command, args)

	if _, err := r.runner.Output(ctx, spec.Command, args...); err != nil {
		return &ExecError{Command: spec.Command, Args: args, Err: err}
	}
	return nil
}

// Catalogue returns the catalogue the Resolver probes for.
func (r *Resolver) Catalogue() *adapter.Catalogue {
	return r.catalogue
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
