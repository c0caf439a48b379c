package wallpaper

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockRunner is a mock implementation of command.Runner.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	a := m.Called(name, args)
	return bytesArg(a, 0), a.Error(1)
}

func (m *MockRunner) Shell(ctx context.Context, script string) ([]byte, error) {
	a := m.Called(script)
	return bytesArg(a, 0), a.Error(1)
}

func bytesArg(a mock.Arguments, i int) []byte {
	if b, ok := a.Get(i).([]byte); ok {
		return b
	}
	return nil
}

// fakeProber returns canned lines and counts how often it was asked.
type fakeProber struct {
	mu    sync.Mutex
	lines []string
	err   error
	delay time.Duration
	calls int
	names []string
}

func (p *fakeProber) Probe(ctx context.Context, names []string) ([]string, error) {
	p.mu.Lock()
	p.calls++
	p.names = names
	lines, err, delay := p.lines, p.err, p.delay
	p.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	return lines, err
}

func (p *fakeProber) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
