// Package main is the entry point for the modhost loader.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dshills/modhost/internal/config/store"
	"github.com/dshills/modhost/internal/config/watcher"
	"github.com/dshills/modhost/internal/ctxlog"
	"github.com/dshills/modhost/internal/mod"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

type options struct {
	ModPaths  []string
	StateDir  string
	LogLevel  string
	LogFormat string
	Watch     bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	logger, err := newLogger(opts.LogLevel, opts.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	ctx := ctxlog.WithLogger(context.Background(), logger)

	st := store.NewTOMLStore(opts.StateDir)

	managerOpts := []mod.Option{
		mod.WithStore(st),
		mod.WithLogger(logger),
	}
	if len(opts.ModPaths) > 0 {
		managerOpts = append(managerOpts, mod.WithSearchPaths(opts.ModPaths...))
	}
	mgr := mod.New(managerOpts...)

	report, err := mgr.LoadAll(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load pass failed: %v\n", err)
		return 1
	}
	printReport(report)

	// Ensure mods unload on all exit paths.
	defer func() {
		if err := mgr.UnloadAll(); err != nil {
			logger.Warn("unload failed", slog.Any("error", err))
		}
	}()

	if !opts.Watch {
		if len(report.Failed()) > 0 {
			return 1
		}
		return 0
	}

	w, err := watcher.New(watcher.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: start config watcher: %v\n", err)
		return 1
	}
	defer w.Close()

	if err := w.Watch(st.Dir()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: watch %s: %v\n", st.Dir(), err)
		return 1
	}
	w.Subscribe(func(e watcher.Event) error {
		return mgr.ReloadConfig(ctx, e.Owner)
	})
	logger.Info("watching for config changes", slog.String("dir", st.Dir()))

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals

	return 0
}

// printReport writes the load pass outcome to stdout.
func printReport(r *mod.Report) {
	for _, m := range r.Mods {
		if m.State == mod.StateFailed {
			fmt.Printf("  %-20s FAILED at %s: %v\n", m.Name, m.Stage, m.Err)
			continue
		}
		fmt.Printf("  %-20s %s\n", m.Name, m.State)
	}
	if r.OrderErr != nil {
		fmt.Printf("hook ordering failed: %v\n", r.OrderErr)
	}
	for _, c := range r.Conflicts {
		var parts []string
		for _, oc := range c.Owners {
			parts = append(parts, fmt.Sprintf("%s (%d)", oc.Owner, oc.Total()))
		}
		fmt.Printf("conflict on %s: %s\n", c.Target, strings.Join(parts, ", "))
	}
	fmt.Printf("%d mod(s) loaded, %d failed\n", r.Hooked(), len(r.Failed()))
}

func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", level)
	}

	hopts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, hopts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, hopts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (must be text or json)", format)
	}
}

func parseFlags() options {
	var opts options
	var modPaths string
	var showVersion bool

	flag.StringVar(&modPaths, "mods", "", "Mod search paths (comma-separated; default: standard locations)")
	flag.StringVar(&opts.StateDir, "state", defaultStateDir(), "Directory for persisted mod configuration")
	flag.StringVar(&opts.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.LogFormat, "log-format", "text", "Log format (text, json)")
	flag.BoolVar(&opts.Watch, "watch", false, "Stay running and reload mod configuration on file changes")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Modhost - mod loader and lifecycle host\n\n")
		fmt.Fprintf(os.Stderr, "Usage: modhost [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("Modhost %s (%s)\n", version, commit)
		os.Exit(0)
	}

	if modPaths != "" {
		for _, p := range strings.Split(modPaths, ",") {
			if p = strings.TrimSpace(p); p != "" {
				opts.ModPaths = append(opts.ModPaths, p)
			}
		}
	}
	return opts
}

func defaultStateDir() string {
	if cfgDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(cfgDir, "modhost", "state")
	}
	return ".modhost-state"
}
