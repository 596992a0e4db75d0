// Package exttool runs external command-line tools (samtools and friends)
// and streams their output line by line.  Code that needs a tool depends
// only on the Runner interface, so tests can substitute a Fake.
package exttool

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"strings"
	"sync"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
)

// maxLineLen bounds a single output line.
const maxLineLen = 256 << 20

// stderrTailLines is the number of trailing stderr lines kept for error
// messages.
const stderrTailLines = 20

// Process is a started tool invocation.
type Process interface {
	// Stdout returns the tool's standard output.  It reaches EOF when the
	// tool exits.
	Stdout() io.Reader
	// Stderr returns the tool's standard error.
	Stderr() io.Reader
	// Wait blocks until the tool exits.  A non-zero exit status is reported
	// as a *ToolError.  Both streams must be drained before calling Wait.
	Wait() error
	// Cancel kills the tool.  It is safe to call at any time, and more than
	// once.
	Cancel()
}

// Runner starts tools.  The tool is killed when ctx is done.
type Runner interface {
	Start(ctx context.Context, name string, args ...string) (Process, error)
}

// ToolError reports a tool that failed to run or exited with a non-zero
// status.  It is terminal for the stage that invoked the tool.
type ToolError struct {
	Name string
	Args []string
	// ExitCode is the exit status, or -1 if the tool did not exit normally.
	ExitCode int
	// Stderr holds the last lines the tool wrote to standard error, when
	// known.
	Stderr []string
	// Err is the underlying error, if any.
	Err error
}

func (e *ToolError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "exttool: %s", e.Name)
	if len(e.Args) > 0 {
		fmt.Fprintf(&sb, " %s", strings.Join(e.Args, " "))
	}
	if e.ExitCode >= 0 {
		fmt.Fprintf(&sb, ": exit status %d", e.ExitCode)
	} else if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	if n := len(e.Stderr); n > 0 {
		fmt.Fprintf(&sb, ": %s", e.Stderr[n-1])
	}
	return sb.String()
}

// tail keeps the last few lines written to it.
type tail struct {
	mu    sync.Mutex
	lines []string
}

func (t *tail) add(line string) {
	t.mu.Lock()
	if len(t.lines) == stderrTailLines {
		copy(t.lines, t.lines[1:])
		t.lines = t.lines[:stderrTailLines-1]
	}
	t.lines = append(t.lines, line)
	t.mu.Unlock()
}

func (t *tail) get() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.lines...)
}

// scanLines calls fn on each line of r, without the trailing newline.
func scanLines(r io.Reader, fn func(line string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineLen)
	for sc.Scan() {
		if err := fn(sc.Text()); err != nil {
			return err
		}
	}
	return sc.Err()
}

// Stream runs a tool to completion, passing its standard output to
// onStdout.  Standard error is drained concurrently so the tool never blocks
// on a full pipe; its lines go to the debug log, and the last few are
// attached to any *ToolError.
//
// If onStdout fails or ctx is done, the tool is killed.  The callback's
// error (or ctx.Err()) takes precedence over the tool's exit status.
func Stream(ctx context.Context, r Runner, onStdout func(stdout io.Reader) error, name string, args ...string) error {
	p, err := r.Start(ctx, name, args...)
	if err != nil {
		return err
	}
	var errTail tail
	err = traverse.Each(2, func(i int) error {
		if i == 0 {
			if err := onStdout(p.Stdout()); err != nil {
				p.Cancel()
				// Keep draining so the tool can't block on stdout before the
				// kill lands.
				_, _ = io.Copy(ioutil.Discard, p.Stdout())
				return err
			}
			return nil
		}
		return scanLines(p.Stderr(), func(line string) error {
			if log.At(log.Debug) {
				log.Debug.Printf("%s: %s", name, line)
			}
			errTail.add(line)
			return nil
		})
	})
	waitErr := p.Wait()
	if err != nil {
		return err
	}
	if e := ctx.Err(); e != nil {
		return e
	}
	if te, ok := waitErr.(*ToolError); ok && te.Stderr == nil {
		te.Stderr = errTail.get()
	}
	return waitErr
}

// RunLines is Stream with onStdout called on each line of standard output,
// in order, without the trailing newline.
func RunLines(ctx context.Context, r Runner, onStdout func(line string) error, name string, args ...string) error {
	return Stream(ctx, r, func(stdout io.Reader) error {
		return scanLines(stdout, onStdout)
	}, name, args...)
}

// Output runs a tool to completion and returns its standard output lines.
func Output(ctx context.Context, r Runner, name string, args ...string) ([]string, error) {
	var lines []string
	err := RunLines(ctx, r, func(line string) error {
		lines = append(lines, line)
		return nil
	}, name, args...)
	return lines, err
}
