// Package kyanite runs a command once per line of input, in parallel.
//
// It reads records from an input stream, expands a template into an
// argument vector for each record, and spawns child processes with
// bounded concurrency. Think xargs, but with field selection, sed-style
// substitution, and regex capture extraction built into the template:
//
//	echo {}          whole record
//	echo {2}         second field
//	echo {2+}        fields two through last
//	echo {3-}        fields one through three
//	echo {s/a/b/g}   record with every "a" replaced by "b"
//	echo {/(.+)\./1} first capture group of the pattern
//
// # Templates
//
// A template is a command line containing placeholder expressions. The
// placeholder defaults to {} and may be changed; with the default, "{"
// opens an expression and the matching "}" closes it. Any other
// placeholder acts as a symmetric sentinel: the expression is the text
// between two consecutive occurrences, so with placeholder "@" the
// template "echo @1@" selects the first field. Two adjacent occurrences
// denote the whole record.
//
// The expression grammar:
//
//	expr := ""                           whole record
//	      | INT                          field n (1-indexed)
//	      | INT "+"                      fields n..last, joined
//	      | INT "-"                      fields 1..n, joined
//	      | "s" SEP pat SEP rep SEP FLAGS?   substitution
//	      | "/" pat "/" INT              capture group extraction
//
// SEP is the character following "s" and separates the three parts of a
// substitution. FLAGS is any subset of "g" (replace all occurrences)
// and "i" (case-insensitive). The replacement may reference capture
// groups with \1 through \9. A capture expression's group index may be
// 0 for the whole match.
//
// Templates compile once with [Compile]; expansion is infallible after
// that. A failed regex match expands a capture to the empty string and
// leaves a substitution's record unchanged.
//
// # Execution
//
// [Engine] wires the pieces together: a single reader assigns sequence
// numbers to records, a fixed pool of workers spawns one child process
// per job, and a sink serializes the captured output. With keep-order
// enabled a reorder buffer holds early completions until their turn.
// The first interrupt stops intake and lets in-flight children finish;
// a second interrupt exits immediately.
package kyanite

// A Record is one unit of input plus its assigned sequence number.
// Sequence numbers start at zero and are gap-free in read order.
type Record struct {
	Seq  uint64
	Text string
}

// A Job is the unit of work handed to a worker: the expanded argument
// vector plus the record it came from. Argv[0] is the program to run.
type Job struct {
	Seq  uint64
	Argv []string
	Line string // the origin record, for error context
}

// A Completion is the outcome of running one job. Err is non-nil only
// when the child could not be spawned at all; a child that ran and
// exited non-zero reports through ExitCode alone.
type Completion struct {
	Seq      uint64
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Err      error
}

// Failed reports whether the job should count against the overall exit
// code: a spawn failure or a non-zero child exit.
func (c Completion) Failed() bool {
	return c.Err != nil || c.ExitCode != 0
}
