// Package main implements the entry point for the zukunft knowledge core.
// It loads the configuration, assembles the service (row store, sandbox
// resolver, change log, closure engine, metrics) and runs until a shutdown
// signal arrives.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/zukunftch/zukunft.com/config"
	"github.com/zukunftch/zukunft.com/service"
)

const (
	// Version is the build version, overridden via -ldflags on release
	// builds.
	Version = "0.1.0"
	appName = "zukunftd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cli := parseFlags()

	if cli.ShowVersion {
		fmt.Printf("%s %s\n", appName, Version)
		return nil
	}
	if cli.ShowHelp {
		printUsage()
		return nil
	}

	cfg, err := config.Load(cli.ConfigPath)
	if err != nil {
		return err
	}
	cli.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cli.Validate {
		slog.Info("configuration is valid", "path", cli.ConfigPath)
		return nil
	}

	logger := cfg.Logger()
	slog.SetDefault(logger)

	svc, err := service.New(cfg, service.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := svc.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(ctx, cli.ShutdownTimeout)
	defer cancel()
	return svc.Stop(shutdownCtx)
}
