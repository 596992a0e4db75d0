package exttool_test

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"testing"

	"github.com/genomics-workbench/mist/exttool"
	"github.com/stretchr/testify/require"
	"v.io/x/lib/gosh"
	"v.io/x/lib/lookpath"
)

func TestRunLinesForwardsStdoutInOrder(t *testing.T) {
	fake := &exttool.Fake{Handler: func(name string, args []string) exttool.FakeResult {
		return exttool.FakeResult{
			Stdout: []string{"a", "b", "c"},
			Stderr: []string{"[bam_index] warning"},
		}
	}}
	lines, err := exttool.Output(context.Background(), fake, "samtools", "view", "-h", "x.bam")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, lines)
	require.Equal(t, []exttool.Call{{Name: "samtools", Args: []string{"view", "-h", "x.bam"}}}, fake.Calls())
}

func TestRunLinesExitStatus(t *testing.T) {
	fake := &exttool.Fake{Handler: func(name string, args []string) exttool.FakeResult {
		return exttool.FakeResult{
			Stdout:   []string{"partial"},
			Stderr:   []string{"first", "[main_samview] fail to open \"x.bam\""},
			ExitCode: 1,
		}
	}}
	_, err := exttool.Output(context.Background(), fake, "samtools", "view", "x.bam")
	require.Error(t, err)
	te, ok := err.(*exttool.ToolError)
	require.True(t, ok, "got %v", err)
	require.Equal(t, 1, te.ExitCode)
	require.Equal(t, []string{"first", "[main_samview] fail to open \"x.bam\""}, te.Stderr)
	require.Contains(t, te.Error(), "exit status 1")
	require.Contains(t, te.Error(), "fail to open")
}

func TestRunLinesCallbackErrorCancels(t *testing.T) {
	fake := &exttool.Fake{Handler: func(name string, args []string) exttool.FakeResult {
		return exttool.FakeResult{Stdout: []string{"1", "2", "3", "4"}}
	}}
	stop := fmt.Errorf("stop")
	var seen []string
	err := exttool.RunLines(context.Background(), fake, func(line string) error {
		seen = append(seen, line)
		if line == "2" {
			return stop
		}
		return nil
	}, "tool")
	require.Equal(t, stop, err)
	require.Equal(t, []string{"1", "2"}, seen)
}

func TestRunLinesContextDone(t *testing.T) {
	fake := &exttool.Fake{Handler: func(name string, args []string) exttool.FakeResult {
		return exttool.FakeResult{Stdout: []string{"1"}}
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := exttool.RunLines(ctx, fake, func(string) error { return nil }, "tool")
	require.Equal(t, context.Canceled, err)
}

func TestRunLinesStartError(t *testing.T) {
	startErr := &exttool.ToolError{Name: "samtools", ExitCode: -1, Err: fmt.Errorf("not found")}
	fake := &exttool.Fake{Handler: func(name string, args []string) exttool.FakeResult {
		return exttool.FakeResult{StartErr: startErr}
	}}
	err := exttool.RunLines(context.Background(), fake, func(string) error { return nil }, "samtools")
	require.Equal(t, startErr, err)
	require.Contains(t, err.Error(), "not found")
}

func TestStreamReadsStdout(t *testing.T) {
	fake := &exttool.Fake{Handler: func(name string, args []string) exttool.FakeResult {
		return exttool.FakeResult{Stdout: []string{"x", "y"}, Stderr: []string{"done"}}
	}}
	var got []byte
	err := exttool.Stream(context.Background(), fake, func(stdout io.Reader) error {
		var err error
		got, err = ioutil.ReadAll(stdout)
		return err
	}, "tool")
	require.NoError(t, err)
	require.Equal(t, "x\ny\n", string(got))

	// A callback that stops early still lets the tool be reaped.
	stop := fmt.Errorf("stop")
	err = exttool.Stream(context.Background(), fake, func(io.Reader) error { return stop }, "tool")
	require.Equal(t, stop, err)
}

func hasSh(t *testing.T) bool {
	sh := gosh.NewShell(nil)
	defer sh.Cleanup()
	if _, err := lookpath.Look(sh.Vars, "sh"); err != nil {
		t.Skip("sh not found, skipping test")
		return false
	}
	return true
}

func TestGoshRunner(t *testing.T) {
	if !hasSh(t) {
		return
	}
	r := exttool.NewGoshRunner()
	lines, err := exttool.Output(context.Background(), r, "sh", "-c", "echo one; echo two; echo oops >&2")
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two"}, lines)

	_, err = exttool.Output(context.Background(), r, "sh", "-c", "echo bad input >&2; exit 3")
	te, ok := err.(*exttool.ToolError)
	require.True(t, ok, "got %v", err)
	require.Equal(t, 3, te.ExitCode)
	require.Equal(t, []string{"bad input"}, te.Stderr)

	// A failed run does not affect the next one.
	lines, err = exttool.Output(context.Background(), r, "sh", "-c", "echo again")
	require.NoError(t, err)
	require.Equal(t, []string{"again"}, lines)
}

func TestGoshRunnerMissingTool(t *testing.T) {
	r := exttool.NewGoshRunner()
	_, err := r.Start(context.Background(), "no-such-tool-c0ffee")
	_, ok := err.(*exttool.ToolError)
	require.True(t, ok, "got %v", err)
}
