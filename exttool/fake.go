package exttool

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/grailbio/base/errors"
)

// FakeResult scripts one invocation of a Fake.
type FakeResult struct {
	Stdout   []string
	Stderr   []string
	ExitCode int
	// StartErr, if set, is returned by Start instead of a Process.
	StartErr error
}

// Call records one invocation of a Fake.
type Call struct {
	Name string
	Args []string
}

// Fake is an in-memory Runner that replays scripted output.  Handler picks
// the result for each invocation; a nil Handler yields an empty, successful
// run.
type Fake struct {
	Handler func(name string, args []string) FakeResult

	mu    sync.Mutex
	calls []Call
}

// Start implements Runner.
func (f *Fake) Start(ctx context.Context, name string, args ...string) (Process, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Name: name, Args: append([]string(nil), args...)})
	f.mu.Unlock()
	var res FakeResult
	if f.Handler != nil {
		res = f.Handler(name, args)
	}
	if res.StartErr != nil {
		return nil, res.StartErr
	}
	return &fakeProcess{
		ctx:    ctx,
		name:   name,
		args:   args,
		res:    res,
		stdout: strings.NewReader(joinLines(res.Stdout)),
		stderr: strings.NewReader(joinLines(res.Stderr)),
	}, nil
}

// Calls returns the invocations made so far.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

type fakeProcess struct {
	ctx    context.Context
	name   string
	args   []string
	res    FakeResult
	stdout io.Reader
	stderr io.Reader

	mu        sync.Mutex
	cancelled bool
}

func (p *fakeProcess) Stdout() io.Reader { return p.stdout }
func (p *fakeProcess) Stderr() io.Reader { return p.stderr }

func (p *fakeProcess) Wait() error {
	p.mu.Lock()
	cancelled := p.cancelled
	p.mu.Unlock()
	if cancelled || p.ctx.Err() != nil {
		return &ToolError{Name: p.name, Args: p.args, ExitCode: -1, Err: errors.E(errors.Canceled, "killed")}
	}
	if p.res.ExitCode != 0 {
		return &ToolError{Name: p.name, Args: p.args, ExitCode: p.res.ExitCode}
	}
	return nil
}

func (p *fakeProcess) Cancel() {
	p.mu.Lock()
	p.cancelled = true
	p.mu.Unlock()
}
