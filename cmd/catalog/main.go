// cmd/catalog/main.go
//
// Entry point for the catalog CLI. Every sub-command works on one catalog
// root (papers/, schema/, taxonomy/ and catalog.yaml).
//
// Exit codes: 0 success, 1 invalid records or a failed run, 2 usage errors.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/kingrea/paper-catalog/internal/catalog"
	"github.com/kingrea/paper-catalog/internal/config"
	"github.com/kingrea/paper-catalog/internal/logbook"
	"github.com/kingrea/paper-catalog/internal/logging"
	"github.com/kingrea/paper-catalog/internal/metrics"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type command struct {
	summary string
	// needsConfig is false only for commands that create the catalog layout.
	needsConfig bool
	run         func(ctx context.Context, e *env, args []string) int
}

var commands = map[string]command{
	"init":          {"write a default catalog.yaml", false, runInit},
	"validate":      {"check every paper against the schema and taxonomy", true, runValidate},
	"build":         {"write the consolidated catalog as csv or json", true, runBuild},
	"export":        {"write the domain/subdomain/indicator/paper table", true, runExport},
	"mindmap":       {"render the export as a Markdown mindmap", true, runMindmap},
	"sync-taxonomy": {"add domains and subdomains used by papers to the taxonomy", true, runSyncTaxonomy},
	"query":         {"list or group valid papers", true, runQuery},
	"serve":         {"serve the catalog over a read-only HTTP API", true, runServe},
	"browse":        {"browse valid papers interactively", true, runBrowse},
	"history":       {"show recent runs from the journal", true, runHistory},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// env carries what every command needs once the catalog root is known.
type env struct {
	stdout io.Writer
	stderr io.Writer
	root   string

	cfg     *config.Config
	logger  *logging.Logger
	journal *logbook.Logbook
	metrics *metrics.Metrics
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("catalog", flag.ContinueOnError)
	global.SetOutput(stderr)
	root := global.String("root", ".", "catalog root directory")
	metricsFile := global.String("metrics-file", "", "write Prometheus metrics to this file after the run")
	global.Usage = func() { usage(stderr, global) }
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if global.NArg() == 0 {
		usage(stderr, global)
		return exitUsage
	}
	name, rest := global.Arg(0), global.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		usage(stderr, global)
		return exitUsage
	}

	e := &env{stdout: stdout, stderr: stderr, root: *root}
	if !cmd.needsConfig {
		return cmd.run(ctx, e, rest)
	}
	cfg, err := config.Load(*root)
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return exitFailure
	}
	e.cfg = cfg
	e.logger, err = logging.New(cfg.LogsDir())
	if err != nil {
		fmt.Fprintf(stderr, "warning: %v\n", err)
		e.logger = logging.Discard()
	}
	defer e.logger.Close()
	if journal, err := logbook.New(cfg.JournalPath()); err == nil {
		e.journal = journal.WithRun(e.logger.RunID())
	}
	e.metrics = metrics.New()

	code := cmd.run(ctx, e, rest)
	if err := e.metrics.WriteTextfile(*metricsFile); err != nil {
		fmt.Fprintf(stderr, "warning: %v\n", err)
	}
	e.logger.Info("command finished", "command", name, "exit", code)
	return code
}

func usage(w io.Writer, global *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: catalog [-root dir] [-metrics-file path] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-14s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global flags:")
	global.PrintDefaults()
}

// subcommand returns a flag set that reports errors to stderr without exiting.
func subcommand(e *env, name string) *flag.FlagSet {
	fs := flag.NewFlagSet("catalog "+name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

// parse wraps FlagSet.Parse and rejects stray positional arguments.
func parse(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK, false
		}
		return exitUsage, false
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(fs.Output(), "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		fs.Usage()
		return exitUsage, false
	}
	return 0, true
}

// open loads and validates the catalog, reporting fatal errors.
func (e *env) open(ctx context.Context, command string) (*catalog.Catalog, bool) {
	cat, err := catalog.Open(ctx, e.cfg,
		catalog.WithLogger(e.logger.Slog()),
		catalog.WithMetrics(e.metrics),
	)
	if err != nil {
		e.fail(command, err)
		return nil, false
	}
	return cat, true
}

func (e *env) fail(command string, err error) int {
	fmt.Fprintf(e.stderr, "%s: %v\n", command, err)
	e.logger.Error("command failed", "command", command, "error", err)
	e.journal.Error("%s: %v", command, err)
	return exitFailure
}

func runInit(_ context.Context, e *env, args []string) int {
	fs := subcommand(e, "init")
	if code, ok := parse(fs, args); !ok {
		return code
	}
	if err := config.Init(e.root); err != nil {
		fmt.Fprintf(e.stderr, "init: %v\n", err)
		return exitFailure
	}
	fmt.Fprintf(e.stdout, "initialised catalog in %s\n", e.root)
	return exitOK
}
