package kyanite

import (
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/kballard/go-shellquote"
)

// Options configure an Engine run.
type Options struct {
	// Jobs is the worker count; values below 1 default to the number
	// of CPUs. The job channel is bounded to the same size, so the
	// producer blocks once Jobs items are queued beyond the workers.
	Jobs int

	// MaxJobs caps the total records consumed. Zero means unlimited.
	MaxJobs uint64

	// KeepOrder emits completions in input order via a reorder buffer.
	KeepOrder bool

	// DryRun prints each resolved argv instead of spawning.
	DryRun bool

	// Split configures field splitting for template expansion.
	Split Splitter

	// Drain, when non-nil, stops intake at the next record boundary
	// once its flag is set.
	Drain *Drain

	// Log receives diagnostics. Nil discards them.
	Log *slog.Logger

	// Stdout and Stderr receive the children's captured output.
	// Nil means the process's own streams.
	Stdout io.Writer
	Stderr io.Writer
}

// An Engine wires the pipeline together: reader to expander to a
// bounded job channel, workers to runner, completions to the sink.
type Engine struct {
	tmpl   *Template
	opts   Options
	runner Runner
}

// NewEngine returns an Engine for one run over one input stream.
func NewEngine(tmpl *Template, opts Options) *Engine {
	if opts.Jobs < 1 {
		opts.Jobs = runtime.NumCPU()
	}
	if opts.Log == nil {
		opts.Log = slog.New(slog.DiscardHandler)
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	return &Engine{tmpl: tmpl, opts: opts, runner: Runner{DryRun: opts.DryRun}}
}

// Run consumes records from in until the stream ends, MaxJobs is
// reached, or a drain is requested, then waits for every in-flight job
// and flushes the sink. It returns the overall exit code: 0 when every
// job exited zero, 1 when any job failed to spawn or exited non-zero.
func (e *Engine) Run(in *Reader) int {
	log := e.opts.Log

	jobs := make(chan Job, e.opts.Jobs)
	results := make(chan Completion)

	var wg sync.WaitGroup
	for range e.opts.Jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				log.Debug("start", "seq", job.Seq, "cmd", shellquote.Join(job.Argv...))
				results <- e.runner.Run(job)
			}
		}()
	}

	// Collector: the sole owner of the sink and reorder buffer.
	var completed, failed uint64
	done := make(chan struct{})
	go func() {
		defer close(done)
		out := &sink{stdout: e.opts.Stdout, stderr: e.opts.Stderr, log: log}
		var buf *reorderBuffer
		if e.opts.KeepOrder {
			buf = newReorderBuffer(out)
		}
		for c := range results {
			completed++
			if c.Failed() {
				failed++
			}
			if buf != nil {
				buf.add(c)
			} else {
				out.emit(c)
			}
		}
		if buf != nil && buf.len() > 0 {
			log.Error("reorder buffer not empty at shutdown", "pending", buf.len())
		}
	}()

	// Producer: single reader, so sequence numbers and channel order
	// both match input order.
	var read uint64
	for !e.opts.Drain.Draining() {
		if e.opts.MaxJobs > 0 && read >= e.opts.MaxJobs {
			break
		}
		rec, err := in.Next()
		if err != nil {
			break // end of input; read errors end the stream too
		}
		read++
		jobs <- Job{
			Seq:  rec.Seq,
			Argv: e.tmpl.Expand(rec.Text, e.opts.Split),
			Line: rec.Text,
		}
	}
	close(jobs)
	wg.Wait()
	close(results)
	<-done

	log.Debug("done", "records", read, "completed", completed, "failed", failed)
	if failed > 0 {
		return 1
	}
	return 0
}
