package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/paper-catalog/internal/server"
	"github.com/kingrea/paper-catalog/internal/tui"
)

func runServe(ctx context.Context, e *env, args []string) int {
	fs := subcommand(e, "serve")
	settings := server.SettingsFromConfig(e.cfg)
	fs.StringVar(&settings.Host, "host", settings.Host, "bind host")
	fs.IntVar(&settings.Port, "port", settings.Port, "bind port")
	if code, ok := parse(fs, args); !ok {
		return code
	}
	cat, ok := e.open(ctx, "serve")
	if !ok {
		return exitFailure
	}
	srv := server.New(settings, cat,
		server.WithLogger(e.logger.Slog()),
		server.WithMetrics(e.metrics),
	)
	if err := srv.Start(ctx); err != nil {
		return e.fail("serve", err)
	}
	fmt.Fprintf(e.stdout, "serving %d papers on %s\n", len(cat.Papers()), srv.BaseURL())
	e.journal.Info("serve: %s", srv.BaseURL())

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return e.fail("serve", err)
	}
	return exitOK
}

func runBrowse(ctx context.Context, e *env, args []string) int {
	fs := subcommand(e, "browse")
	if code, ok := parse(fs, args); !ok {
		return code
	}
	cat, ok := e.open(ctx, "browse")
	if !ok {
		return exitFailure
	}
	p := tea.NewProgram(
		tui.NewApp(cat, tui.WithLogbook(e.journal)),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		return e.fail("browse", err)
	}
	return exitOK
}

func runHistory(_ context.Context, e *env, args []string) int {
	fs := subcommand(e, "history")
	n := fs.Int("n", 20, "number of entries to show")
	if code, ok := parse(fs, args); !ok {
		return code
	}
	if *n <= 0 {
		fmt.Fprintln(e.stderr, "history: -n must be positive")
		return exitUsage
	}
	lines, total := e.journal.Tail(*n)
	if total == 0 {
		fmt.Fprintln(e.stdout, "no runs recorded yet")
		return exitOK
	}
	for _, line := range lines {
		fmt.Fprintln(e.stdout, line)
	}
	if total > len(lines) {
		fmt.Fprintf(e.stdout, "(%d of %d entries)\n", len(lines), total)
	}
	return exitOK
}
