package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/samvad-hq/kubehttp/internal/app"
	"github.com/samvad-hq/kubehttp/internal/config"
	"github.com/samvad-hq/kubehttp/internal/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "kubehttp: %v\n", err)
		if errors.Is(err, app.ErrUsage) {
			fmt.Fprint(os.Stderr, app.Usage)
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("kubehttp", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, app.Usage, "\nflags:\n", fs.FlagUsages())
	}
	fs.SetInterspersed(false)
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", app.ErrUsage, err)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	log.DebugObj("kubehttp starting", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.NewApp(cfg, log)
	if err != nil {
		log.ErrorObj("failed to initialize app", "error", err)
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.ErrorObj("storage close failed", "error", err)
		}
	}()

	return a.Run(ctx, fs.Args(), os.Stdout)
}
