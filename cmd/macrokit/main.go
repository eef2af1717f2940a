// Package main provides the macrokit command line player. It plays
// macro files against a real browser, lists the macro store, and runs
// the TCP control and native-messaging endpoints used by external
// clients.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/macrokit/macrokit/pkg/bridge/clip"
	"github.com/macrokit/macrokit/pkg/bridge/cmdline"
	"github.com/macrokit/macrokit/pkg/bridge/playwright"
	"github.com/macrokit/macrokit/pkg/bridge/sandbox"
	"github.com/macrokit/macrokit/pkg/config"
	"github.com/macrokit/macrokit/pkg/control"
	"github.com/macrokit/macrokit/pkg/logging"
	"github.com/macrokit/macrokit/pkg/native"
	"github.com/macrokit/macrokit/pkg/runtime"
	"github.com/macrokit/macrokit/pkg/store"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "play":
		err = runPlay(args)
	case "list":
		err = runList(args)
	case "serve":
		err = runServe(args)
	case "native":
		err = runNative(args)
	case "version":
		fmt.Printf("macrokit v%s\n", version)
	case "help", "-h", "--help":
		usage()
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("macrokit %s: %v", cmd, err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `macrokit v%s - macro player

Usage:
  macrokit play <macro> [flags]   play a macro from the store
  macrokit list [pattern]         list macros in the store
  macrokit serve [flags]          run the TCP control server
  macrokit native                 run the native-messaging channel on stdio
  macrokit version                print the version

Common flags:
  -config <path>   config file (default %s)
`, version, config.DefaultPath())
}

// loadConfig parses shared flags from args via fs and returns the
// resolved configuration plus the remaining positional arguments.
func loadConfig(fs *flag.FlagSet, args []string) (config.Config, []string, error) {
	configPath := fs.String("config", config.DefaultPath(), "config file path")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, fs.Args(), nil
}

// buildRuntime assembles the bridges and the runtime. The returned
// cleanup stops the browser and closes the session log.
func buildRuntime(cfg config.Config, logger *logging.Logger, withBrowser bool) (*runtime.Runtime, func(), error) {
	opts := runtime.Options{Config: cfg, Log: logger}

	files, err := sandbox.New(cfg.MacrosDir, cfg.DenyPatterns)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file sandbox: %w", err)
	}
	opts.File = files
	opts.Cmdline = cmdline.New(cfg.MacrosDir, logger)
	opts.Clipboard = clip.New()

	cleanup := func() { logger.Close() }
	if withBrowser {
		driver := playwright.New(playwright.Options{Headless: cfg.Headless}, logger)
		if err := driver.Start(); err != nil {
			logger.Close()
			return nil, nil, fmt.Errorf("failed to start browser: %w", err)
		}
		opts.Browser = driver
		opts.Content = driver.Content()
		cleanup = func() {
			driver.Stop()
			logger.Close()
		}
	}

	rt, err := runtime.New(opts)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return rt, cleanup, nil
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	cfg, rest, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	pattern := "*"
	if len(rest) > 0 {
		pattern = rest[0]
	}

	st, err := store.New(cfg.MacrosDir)
	if err != nil {
		return err
	}
	names, err := st.List(pattern)
	if err != nil {
		return err
	}
	printMacroList(st.Root(), names)
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "listen address (overrides config)")
	cfg, _, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.ControlAddr = *addr
	}

	// NewLogger falls back to a stderr logger on error, so the
	// returned logger is always usable.
	logger, _ := logging.NewLogger("control")
	rt, cleanup, err := buildRuntime(cfg, logger, true)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	server := control.NewServer(rt, logger)
	server.OnExit = cancel

	fmt.Printf("macrokit control server listening on %s\n", cfg.ControlAddr)
	return server.ListenAndServe(ctx, cfg.ControlAddr)
}

func runNative(args []string) error {
	fs := flag.NewFlagSet("native", flag.ExitOnError)
	cfg, _, err := loadConfig(fs, args)
	if err != nil {
		return err
	}

	logger, _ := logging.NewLogger("native")
	rt, cleanup, err := buildRuntime(cfg, logger, true)
	if err != nil {
		return err
	}
	defer cleanup()

	// Native messaging owns stdio; everything else goes to the log.
	channel := native.NewChannel(rt, logger)
	return channel.Serve(os.Stdin, os.Stdout)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()
	return ctx, cancel
}
