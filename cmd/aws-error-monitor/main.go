package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Nao-Mk2/aws-error-monitor/cmd"
	"github.com/Nao-Mk2/aws-error-monitor/internal/monitor"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	opts, err := cmd.CollectOptions()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := opts.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx := context.Background()
	mon, err := cmd.NewMonitor(ctx, opts, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build monitor: %v\n", err)
		os.Exit(1)
	}

	if opts.Schedule != "" {
		runScheduled(ctx, mon, opts.Schedule, logger)
		return
	}

	outcome, err := mon.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "monitor run failed: %v\n", err)
		os.Exit(1)
	}
	if outcome.Dispatched {
		fmt.Printf("found and reported %d errors (message id %s)\n", outcome.TotalErrors, outcome.MessageID)
		return
	}
	fmt.Println("no errors found; report suppressed")
}

// runScheduled runs the monitor on a cron schedule until interrupted. The
// production deployment is triggered externally; this mode serves long-lived
// non-Lambda hosts.
func runScheduled(ctx context.Context, mon *monitor.Monitor, schedule string, logger *zap.Logger) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := mon.Run(ctx); err != nil {
			logger.Error("scheduled run failed", zap.Error(err))
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid schedule %q: %v\n", schedule, err)
		os.Exit(2)
	}
	logger.Info("running on schedule", zap.String("schedule", schedule))
	c.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	<-c.Stop().Done()
}
