// Package main is the entry point for the voxterm overlay.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dshills/voxterm/internal/config"
	"github.com/dshills/voxterm/internal/logging"
	"github.com/dshills/voxterm/internal/session"
	"github.com/dshills/voxterm/internal/termio"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  string
		logLevel    string
		backendCmd  string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", defaultConfigPath(), "Path to configuration file")
	flag.StringVar(&configPath, "c", defaultConfigPath(), "Path to configuration file (shorthand)")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&backendCmd, "backend", "", "Backend command to wrap (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("voxterm %s (%s)\n", version, commit)
		return 0
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if backendCmd != "" {
		cfg.Backend.Command = backendCmd
		cfg.Backend.Args = nil
	}
	// Everything after the flags belongs to the backend.
	if args := flag.Args(); len(args) > 0 {
		cfg.Backend.Command = args[0]
		cfg.Backend.Args = args[1:]
	}

	// The log goes to a file: stderr is part of the screen the
	// wrapped program owns.
	log := logging.Nop()
	if cfg.LogDir != "" {
		fileLog, closer, err := logging.OpenFile(cfg.LogDir, cfg.Level())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: opening log: %v\n", err)
			return 1
		}
		defer closer.Close()
		log = fileLog
	}

	var cfgUpdates <-chan config.Config
	if watcher, err := config.Watch(configPath, log); err == nil {
		defer watcher.Close()
		cfgUpdates = watcher.Updates()
	} else {
		log.Warn("config watch unavailable: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := session.New(session.Options{
		Config:        cfg,
		Terminal:      termio.Wrap(os.Stdin, os.Stdout),
		ConfigUpdates: cfgUpdates,
		Logger:        log,
	})

	// In raw mode Ctrl+C reaches the backend as bytes; these signals
	// arrive only from outside the terminal.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		<-signals
		engine.Quit()
		cancel()
	}()

	code, err := engine.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return code
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "voxterm", "voxterm.toml")
	}
	return "voxterm.toml"
}
