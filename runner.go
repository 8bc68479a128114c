package kyanite

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/kballard/go-shellquote"
)

// A Runner spawns one child process per job, capturing its output
// streams in full. The child inherits the parent's environment and
// working directory and reads an empty stdin.
type Runner struct {
	// DryRun skips spawning entirely: the completion's stdout is the
	// quoted argv followed by a newline, with exit code zero.
	DryRun bool
}

// Run executes one job to completion. Spawn failures never propagate as
// errors to the caller; they come back as a Completion with Err set so
// one bad job cannot stop the pool.
func (r *Runner) Run(job Job) Completion {
	if len(job.Argv) == 0 {
		return Completion{
			Seq:      job.Seq,
			ExitCode: 127,
			Err:      fmt.Errorf("record %q: empty command", job.Line),
		}
	}
	if r.DryRun {
		return Completion{Seq: job.Seq, Stdout: []byte(shellquote.Join(job.Argv...) + "\n")}
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(job.Argv[0], job.Argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	c := Completion{Seq: job.Seq, Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			c.ExitCode = exitCode(ee.ProcessState)
		} else {
			c.ExitCode = 127
			c.Err = fmt.Errorf("record %q: %w", job.Line, err)
		}
	}
	return c
}

// exitCode reports a signal-terminated child as 128+signo, the shell
// convention.
func exitCode(ps *os.ProcessState) int {
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return ps.ExitCode()
}
