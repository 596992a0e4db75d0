package exttool

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"v.io/x/lib/gosh"
	"v.io/x/lib/lookpath"
)

// GoshRunner starts tools as child processes through v.io/x/lib/gosh.  Tools
// are resolved on the PATH of the current environment.
type GoshRunner struct{}

// NewGoshRunner returns a Runner that spawns real processes.
func NewGoshRunner() *GoshRunner { return &GoshRunner{} }

// Start implements Runner.  Each process gets its own shell, so one tool's
// failure does not poison later invocations.
func (r *GoshRunner) Start(ctx context.Context, name string, args ...string) (Process, error) {
	sh := gosh.NewShell(nil)
	sh.ContinueOnError = true
	path, err := lookpath.Look(sh.Vars, name)
	if err != nil {
		sh.Cleanup()
		return nil, &ToolError{Name: name, Args: args, ExitCode: -1, Err: errors.E(errors.NotExist, err)}
	}
	cmd := sh.Cmd(path, args...)
	p := &goshProcess{
		name:   name,
		args:   args,
		sh:     sh,
		cmd:    cmd,
		stdout: cmd.StdoutPipe(),
		stderr: cmd.StderrPipe(),
		done:   make(chan struct{}),
	}
	cmd.Start()
	if cmd.Err != nil {
		err := cmd.Err
		sh.Cleanup()
		return nil, &ToolError{Name: name, Args: args, ExitCode: -1, Err: err}
	}
	log.Debug.Printf("exttool: started %s %v", path, args)
	go func() {
		select {
		case <-ctx.Done():
			p.Cancel()
		case <-p.done:
		}
	}()
	return p, nil
}

type goshProcess struct {
	name   string
	args   []string
	sh     *gosh.Shell
	cmd    *gosh.Cmd
	stdout io.Reader
	stderr io.Reader
	done   chan struct{}

	mu        sync.Mutex
	exited    bool
	cancelled bool
}

func (p *goshProcess) Stdout() io.Reader { return p.stdout }
func (p *goshProcess) Stderr() io.Reader { return p.stderr }

func (p *goshProcess) Wait() error {
	p.cmd.Wait()
	p.mu.Lock()
	p.exited = true
	cancelled := p.cancelled
	p.mu.Unlock()
	close(p.done)
	err := p.cmd.Err
	p.sh.Cleanup()
	if err == nil {
		return nil
	}
	te := &ToolError{Name: p.name, Args: p.args, ExitCode: -1, Err: err}
	if exitErr, ok := err.(*exec.ExitError); ok {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Exited() {
			te.ExitCode = status.ExitStatus()
		}
	}
	if cancelled {
		te.Err = errors.E(errors.Canceled, err)
	}
	return te
}

func (p *goshProcess) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.exited || p.cancelled {
		return
	}
	p.cancelled = true
	p.cmd.Signal(os.Kill)
}
