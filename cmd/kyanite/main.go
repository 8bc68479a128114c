// Command kyanite runs a command once per line of stdin, in parallel.
//
// Usage:
//
//	kyanite [OPTIONS] <TEMPLATE>
//
// Each input line expands the template into an argument vector and
// spawns a child process. See the package documentation of
// [github.com/gemologic/kyanite] for the template expression language.
//
// Examples:
//
//	ls *.mp4 | kyanite 'ffmpeg -i {} {s/.mp4$/.mp3/}'
//	cat hosts.txt | kyanite -j 16 -k 'ssh {1} uptime'
//	find . -name '*.log' -print0 | kyanite -0 'gzip {}'
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/gemologic/kyanite"
	"github.com/phsym/console-slog"
)

const (
	appName    = "kyanite"
	appVersion = "0.1.0"
)

// Sentinel errors for control flow out of parseArgs.
var (
	errShowHelp    = errors.New("show help")
	errShowVersion = errors.New("show version")
)

// config holds one invocation's settings.
type config struct {
	Jobs        int    // -j: worker count
	KeepOrder   bool   // -k: emit completions in input order
	DryRun      bool   // -n: print argvs instead of spawning
	Verbose     bool   // -v: per-job diagnostics on stderr
	MaxJobs     uint64 // --max-jobs: total record cap, 0 = unlimited
	Placeholder string // -I: placeholder token
	FieldSep    string // --field-separator: literal separator
	Null        bool   // -0: NUL-delimited records
	Template    string // the positional template argument
}

// parseArgs parses command line arguments and returns the configuration.
func parseArgs(args []string) (*config, error) {
	cfg := &config{Jobs: runtime.NumCPU(), Placeholder: "{}"}

	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.IntVar(&cfg.Jobs, "j", cfg.Jobs, "worker count")
	fs.IntVar(&cfg.Jobs, "jobs", cfg.Jobs, "worker count")

	fs.BoolVar(&cfg.KeepOrder, "k", false, "emit output in input order")
	fs.BoolVar(&cfg.KeepOrder, "keep-order", false, "emit output in input order")

	fs.BoolVar(&cfg.DryRun, "n", false, "print commands without running them")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "print commands without running them")

	fs.BoolVar(&cfg.Verbose, "v", false, "per-job diagnostics on stderr")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "per-job diagnostics on stderr")

	fs.Uint64Var(&cfg.MaxJobs, "max-jobs", 0, "stop after this many records (0 = unlimited)")

	fs.StringVar(&cfg.Placeholder, "I", cfg.Placeholder, "placeholder token")
	fs.StringVar(&cfg.Placeholder, "input", cfg.Placeholder, "placeholder token")

	fs.StringVar(&cfg.FieldSep, "field-separator", "", "literal field separator (default: whitespace runs)")

	fs.BoolVar(&cfg.Null, "0", false, "records are NUL-delimited")
	fs.BoolVar(&cfg.Null, "null", false, "records are NUL-delimited")

	var showHelp, showVersion bool
	fs.BoolVar(&showHelp, "h", false, "show help")
	fs.BoolVar(&showHelp, "help", false, "show help")
	fs.BoolVar(&showVersion, "V", false, "show version")
	fs.BoolVar(&showVersion, "version", false, "show version")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, errShowHelp
		}
		return nil, err
	}
	if showHelp {
		return nil, errShowHelp
	}
	if showVersion {
		return nil, errShowVersion
	}

	rest := fs.Args()
	if len(rest) != 1 {
		return nil, fmt.Errorf("expected exactly one template argument, got %d", len(rest))
	}
	cfg.Template = rest[0]

	if cfg.Jobs < 1 {
		return nil, fmt.Errorf("jobs must be at least 1, got %d", cfg.Jobs)
	}
	if cfg.Placeholder == "" {
		return nil, errors.New("placeholder must not be empty")
	}
	return cfg, nil
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := parseArgs(args)
	switch {
	case errors.Is(err, errShowHelp):
		showHelp()
		return 0
	case errors.Is(err, errShowVersion):
		fmt.Printf("%s version %s\n", appName, appVersion)
		return 0
	case err != nil:
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return 2
	}

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))

	tmpl, err := kyanite.Compile(cfg.Template, cfg.Placeholder)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return 2
	}

	drain := new(kyanite.Drain)
	drain.Install()

	in := kyanite.NewReader(os.Stdin)
	if cfg.Null {
		in = kyanite.NewNullReader(os.Stdin)
	}

	eng := kyanite.NewEngine(tmpl, kyanite.Options{
		Jobs:      cfg.Jobs,
		MaxJobs:   cfg.MaxJobs,
		KeepOrder: cfg.KeepOrder,
		DryRun:    cfg.DryRun,
		Split:     kyanite.Splitter{Sep: cfg.FieldSep},
		Drain:     drain,
		Log:       logger,
	})
	return eng.Run(in)
}

func showHelp() {
	fmt.Print(`kyanite - run a command once per input line, in parallel

USAGE:
    kyanite [OPTIONS] <TEMPLATE>

OPTIONS:
    -j, --jobs <n>            Worker count (default: number of CPUs)
    -k, --keep-order          Emit output in input order
    -n, --dry-run             Print resolved commands without running them
    -v, --verbose             Per-job diagnostics on stderr
    --max-jobs <n>            Stop after n records (0 = unlimited)
    -I, --input <token>       Placeholder token (default: {})
    --field-separator <s>     Literal field separator (default: whitespace)
    -0, --null                Records are NUL-delimited
    -h, --help                Show this help message
    -V, --version             Show version information

TEMPLATE EXPRESSIONS:
    {}              The whole record
    {2}             Second field
    {2+}            Fields two through last
    {3-}            Fields one through three
    {s/re/rep/gi}   Substitution; \1..\9 reference capture groups
    {/re/1}         First capture group of re (0 = whole match)

EXAMPLES:
    ls *.mp4 | kyanite 'ffmpeg -i {} {s/.mp4$/.mp3/}'
    cat hosts.txt | kyanite -j 16 -k 'ssh {1} uptime'
    find . -name '*.log' -print0 | kyanite -0 'gzip {}'
    cat urls.txt | kyanite -I @ 'curl -sO @@'

EXIT CODES:
    0    every job exited zero
    1    a job exited non-zero or failed to spawn
    2    argument or template error
    130  interrupted twice
`)
}
