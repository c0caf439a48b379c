package wallpaper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/davenicholson-xyz/wallctl/internal/adapter"
)

// alpha can only set; beta can get and set and wraps its output in x's.
func testCatalogue() *adapter.Catalogue {
	return adapter.MustCatalogue(
		adapter.Spec{
			Command: "alpha",
			Caps:    adapter.CanSet,
			SetArgs: func(abs string) []string { return []string{"--wall", abs} },
		},
		adapter.Spec{
			Command: "beta",
			Caps:    adapter.CanGet | adapter.CanSet,
			GetArgs: []string{"current"},
			SetArgs: func(abs string) []string { return []string{"use", abs} },
			Transform: func(raw string) string {
				if len(raw) < 2 {
					return ""
				}
				return raw[1 : len(raw)-1]
			},
		},
	)
}

func newTestResolver(lines ...string) (*Resolver, *fakeProber, *MockRunner) {
	prober := &fakeProber{lines: lines}
	runner := &MockRunner{}
	r := New(Options{Catalogue: testCatalogue(), Prober: prober, Runner: runner})
	return r, prober, runner
}

func TestSetSelectsFirstSetCapable(t *testing.T) {
	r, _, runner := newTestResolver("/usr/bin/alpha", "/usr/bin/beta")
	runner.On("Output", "alpha", []string{"--wall", "/tmp/pic.png"}).Return([]byte(""), nil)

	require.NoError(t, r.Set(context.Background(), "/tmp/pic.png"))
	runner.AssertExpectations(t)
}

func TestGetSelectsFirstGetCapable(t *testing.T) {
	r, _, runner := newTestResolver("/usr/bin/alpha", "/usr/bin/beta")
	runner.On("Output", "beta", []string{"current"}).Return([]byte("  xpic.pngx\n"), nil)

	got, err := r.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pic.png", got)
	runner.AssertExpectations(t)
}

func TestGetWithoutTransformReturnsTrimmedOutput(t *testing.T) {
	cat := adapter.MustCatalogue(adapter.Spec{
		Command: "plain",
		Caps:    adapter.CanGet,
		GetArgs: []string{"show"},
	})
	runner := &MockRunner{}
	runner.On("Output", "plain", []string{"show"}).Return([]byte("\t/home/me/a.png \n"), nil)
	r := New(Options{Catalogue: cat, Prober: &fakeProber{lines: []string{"/bin/plain"}}, Runner: runner})

	got, err := r.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/home/me/a.png", got)
}

func TestDiscoveryRunsOnce(t *testing.T) {
	r, prober, runner := newTestResolver("/usr/bin/alpha", "/usr/bin/beta")
	runner.On("Output", "alpha", mock.Anything).Return([]byte(""), nil)
	runner.On("Output", "beta", []string{"current"}).Return([]byte("xax"), nil)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, r.Set(ctx, "/tmp/a.png"))
		_, err := r.Get(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, prober.Calls())
	assert.Equal(t, []string{"alpha", "beta"}, prober.names)
}

func TestConcurrentCallersShareOneProbe(t *testing.T) {
	r, prober, runner := newTestResolver("/usr/bin/beta")
	prober.delay = 20 * time.Millisecond
	runner.On("Output", "beta", []string{"current"}).Return([]byte("xpx"), nil)

	var wg sync.WaitGroup
	results := make([]string, 16)
	errs := make([]error, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.Get(context.Background())
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, "p", results[i])
	}
	assert.Equal(t, 1, prober.Calls())
}

func TestEmptyProbeIsDetectionFailure(t *testing.T) {
	r, prober, runner := newTestResolver()
	ctx := context.Background()

	_, err := r.Get(ctx)
	assert.True(t, errors.Is(err, ErrDetection))

	err = r.Set(ctx, "/tmp/a.png")
	assert.True(t, errors.Is(err, ErrDetection))

	_, err = r.Available(ctx)
	assert.True(t, errors.Is(err, ErrDetection))

	assert.Equal(t, 1, prober.Calls(), "failure is latched")
	runner.AssertNotCalled(t, "Output", mock.Anything, mock.Anything)
}

func TestAliasOnlyProbeIsDetectionFailure(t *testing.T) {
	r, _, runner := newTestResolver("alpha", "beta: aliased to beta --fancy")

	err := r.Set(context.Background(), "/tmp/a.png")
	assert.True(t, errors.Is(err, ErrDetection))
	runner.AssertNotCalled(t, "Output", mock.Anything, mock.Anything)
}

func TestAliasesAreIgnoredAmongPaths(t *testing.T) {
	r, _, _ := newTestResolver("alpha", "/usr/bin/beta")

	avail, err := r.Available(context.Background())
	require.NoError(t, err)
	require.Len(t, avail, 1)
	assert.Equal(t, "beta", avail[0].Command)
}

func TestAvailableFollowsProbeOrderWithoutDuplicates(t *testing.T) {
	r, _, _ := newTestResolver(
		"/usr/local/bin/beta",
		"/usr/bin/beta",
		"/usr/bin/unknown-tool",
		"/usr/bin/alpha",
	)

	avail, err := r.Available(context.Background())
	require.NoError(t, err)
	var names []string
	for _, s := range avail {
		names = append(names, s.Command)
	}
	assert.Equal(t, []string{"beta", "alpha"}, names)

	avail[0] = adapter.Spec{Command: "mutated"}
	again, err := r.Available(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "beta", again[0].Command)
}

func TestCatalogueOrderDecidesPreference(t *testing.T) {
	setter := func(abs string) []string { return []string{abs} }
	runner := &MockRunner{}
	runner.On("Output", "second", []string{"/w.png"}).Return([]byte(""), nil)

	// The shell probe emits names in catalogue order, so reordering the
	// catalogue reorders the probe output.
	cat := adapter.MustCatalogue(
		adapter.Spec{Command: "second", Caps: adapter.CanSet, SetArgs: setter},
		adapter.Spec{Command: "first", Caps: adapter.CanSet, SetArgs: setter},
	)
	runner.On("Shell", "which -a second; which -a first").Return([]byte("/bin/second\n/bin/first\n"), nil)

	r := New(Options{Catalogue: cat, Runner: runner})
	require.NoError(t, r.Set(context.Background(), "/w.png"))
	runner.AssertExpectations(t)
}

func TestSetRejectsEmptyPathWithoutProbing(t *testing.T) {
	r, prober, runner := newTestResolver("/usr/bin/alpha")

	for _, p := range []string{"", "   "} {
		err := r.Set(context.Background(), p)
		assert.True(t, errors.Is(err, ErrInvalidArgument))
	}
	assert.Equal(t, 0, prober.Calls())
	runner.AssertNotCalled(t, "Output", mock.Anything, mock.Anything)

	// The rejected calls leave discovery untouched.
	runner.On("Output", "alpha", []string{"--wall", "/ok.png"}).Return([]byte(""), nil)
	require.NoError(t, r.Set(context.Background(), "/ok.png"))
	assert.Equal(t, 1, prober.Calls())
}

func TestSetResolvesRelativePath(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{"wall.jpg", filepath.Join(cwd, "wall.jpg")},
		{"./a/../wall.jpg", filepath.Join(cwd, "wall.jpg")},
		{"/srv/./x/../wall.jpg", "/srv/wall.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, _, runner := newTestResolver("/usr/bin/alpha")
			runner.On("Output", "alpha", []string{"--wall", tt.want}).Return([]byte(""), nil)

			require.NoError(t, r.Set(context.Background(), tt.in))
			runner.AssertExpectations(t)
			assert.True(t, filepath.IsAbs(tt.want))
		})
	}
}

func TestSetAbsFailure(t *testing.T) {
	prober := &fakeProber{lines: []string{"/usr/bin/alpha"}}
	r := New(Options{
		Catalogue: testCatalogue(),
		Prober:    prober,
		Runner:    &MockRunner{},
		Abs:       func(string) (string, error) { return "", errors.New("getwd: gone") },
	})
	err := r.Set(context.Background(), "rel.png")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Contains(t, err.Error(), "getwd")
	assert.Equal(t, 0, prober.Calls())
}

func TestGetWithoutCapableTool(t *testing.T) {
	r, _, runner := newTestResolver("/usr/bin/alpha")

	_, err := r.Get(context.Background())
	assert.True(t, errors.Is(err, ErrNoCapableTool))
	assert.False(t, errors.Is(err, ErrDetection))
	assert.Contains(t, err.Error(), "get")
	runner.AssertNotCalled(t, "Output", mock.Anything, mock.Anything)
}

func TestExecutionFailureDoesNotFallBack(t *testing.T) {
	r, _, runner := newTestResolver("/usr/bin/alpha", "/usr/bin/beta")
	exitErr := errors.New("exit status 1")
	runner.On("Output", "alpha", []string{"--wall", "/tmp/a.png"}).Return([]byte(""), exitErr)

	err := r.Set(context.Background(), "/tmp/a.png")
	require.Error(t, err)

	var execErr *ExecError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "alpha", execErr.Command)
	assert.Equal(t, []string{"--wall", "/tmp/a.png"}, execErr.Args)
	assert.True(t, errors.Is(err, exitErr))
	runner.AssertNumberOfCalls(t, "Output", 1)
}

func TestGetExecutionFailure(t *testing.T) {
	r, _, runner := newTestResolver("/usr/bin/beta")
	runner.On("Output", "beta", []string{"current"}).Return(nil, exec.ErrNotFound)

	_, err := r.Get(context.Background())
	var execErr *ExecError
	require.True(t, errors.As(err, &execErr))
	assert.True(t, errors.Is(err, exec.ErrNotFound))
	assert.Contains(t, err.Error(), "beta current")
}

func TestProbeErrorIsLatchedDetectionFailure(t *testing.T) {
	prober := &fakeProber{err: errors.New("permission denied")}
	r := New(Options{Catalogue: testCatalogue(), Prober: prober, Runner: &MockRunner{}})

	for i := 0; i < 3; i++ {
		_, err := r.Available(context.Background())
		assert.True(t, errors.Is(err, ErrDetection))
		assert.Contains(t, err.Error(), "permission denied")
	}
	assert.Equal(t, 1, prober.Calls())
}

func TestCanceledProbeIsNotLatched(t *testing.T) {
	prober := &fakeProber{err: context.Canceled}
	r := New(Options{Catalogue: testCatalogue(), Prober: prober, Runner: &MockRunner{}})

	_, err := r.Available(context.Background())
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, ErrDetection))

	prober.mu.Lock()
	prober.err = nil
	prober.lines = []string{"/usr/bin/alpha"}
	prober.mu.Unlock()

	avail, err := r.Available(context.Background())
	require.NoError(t, err)
	assert.Len(t, avail, 1)
	assert.Equal(t, 2, prober.Calls())
}

func TestRunnerTimeoutIsNotLatched(t *testing.T) {
	runner := &MockRunner{}
	runner.On("Shell", "which -a alpha; which -a beta").
		Return(nil, fmt.Errorf("%w: %w", context.DeadlineExceeded, errors.New("signal: killed"))).Once()
	runner.On("Shell", "which -a alpha; which -a beta").
		Return([]byte("/usr/bin/alpha\n"), nil).Once()
	r := New(Options{Catalogue: testCatalogue(), Prober: &ShellProber{Runner: runner}, Runner: runner})

	_, err := r.Available(context.Background())
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.False(t, errors.Is(err, ErrDetection))

	avail, err := r.Available(context.Background())
	require.NoError(t, err)
	require.Len(t, avail, 1)
	assert.Equal(t, "alpha", avail[0].Command)
	runner.AssertNumberOfCalls(t, "Shell", 2)
}

func TestCanceledCallerDoesNotFailOthers(t *testing.T) {
	r, prober, _ := newTestResolver("/usr/bin/alpha", "/usr/bin/beta")
	prober.delay = 200 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	leaderErr := make(chan error, 1)
	go func() {
		_, err := r.Available(ctx)
		leaderErr <- err
	}()
	require.Eventually(t, func() bool { return prober.Calls() == 1 }, time.Second, time.Millisecond)

	type result struct {
		avail []adapter.Spec
		err   error
	}
	follower := make(chan result, 1)
	go func() {
		avail, err := r.Available(context.Background())
		follower <- result{avail, err}
	}()
	cancel()

	assert.True(t, errors.Is(<-leaderErr, context.Canceled))
	got := <-follower
	require.NoError(t, got.err)
	assert.Len(t, got.avail, 2)
	assert.Equal(t, 1, prober.Calls())

	avail, err := r.Available(context.Background())
	require.NoError(t, err)
	assert.Len(t, avail, 2)
	assert.Equal(t, 1, prober.Calls())
}

func TestDefaultsWithBuiltinCatalogue(t *testing.T) {
	runner := &MockRunner{}
	script := "which -a gsettings; which -a setroot; which -a pcmanfm; which -a feh; " +
		"which -a xfconf-query; which -a gconftool-2; which -a dcop; which -a dconf"
	runner.On("Shell", script).Return([]byte("/usr/bin/feh\n/usr/bin/dconf\n"), errors.New("exit status 1"))
	runner.On("Output", "feh", []string{"--bg-scale", "/tmp/w.jpg"}).Return([]byte(""), nil)
	runner.On("Output", "dconf", []string{"read", "/org/mate/desktop/background/picture-filename"}).
		Return([]byte("'/usr/share/backgrounds/mate.png'\n"), nil)

	r := New(Options{Runner: runner})
	assert.Same(t, adapter.Default(), r.Catalogue())

	require.NoError(t, r.Set(context.Background(), "/tmp/w.jpg"))
	got, err := r.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/usr/share/backgrounds/mate.png", got)

	runner.AssertExpectations(t)
	runner.AssertNumberOfCalls(t, "Shell", 1)
}

func TestAdapterSelection(t *testing.T) {
	r, _, _ := newTestResolver("/usr/bin/alpha", "/usr/bin/beta")
	ctx := context.Background()

	s, err := r.Adapter(ctx, adapter.CanSet)
	require.NoError(t, err)
	assert.Equal(t, "alpha", s.Command)

	s, err = r.Adapter(ctx, adapter.CanGet)
	require.NoError(t, err)
	assert.Equal(t, "beta", s.Command)

	s, err = r.Adapter(ctx, adapter.CanGet|adapter.CanSet)
	require.NoError(t, err)
	assert.Equal(t, "beta", s.Command)
}

func TestExecErrorMessage(t *testing.T) {
	err := &ExecError{Command: "feh", Args: []string{"--bg-scale", "/a.png"}, Err: errors.New("exit status 1")}
	assert.Equal(t, "feh --bg-scale /a.png: exit status 1", err.Error())
}
