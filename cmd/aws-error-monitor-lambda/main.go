package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/Nao-Mk2/aws-error-monitor/cmd"
	"github.com/Nao-Mk2/aws-error-monitor/internal/monitor"
)

// mon is built once per cold start; Run carries per-invocation state.
var mon *monitor.Monitor

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	opts, err := cmd.CollectOptions()
	if err != nil {
		logger.Fatal("collect options", zap.Error(err))
	}
	if err := opts.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	mon, err = cmd.NewMonitor(context.Background(), opts, logger)
	if err != nil {
		logger.Fatal("build monitor", zap.Error(err))
	}

	lambda.Start(handle)
}

func handle(ctx context.Context) (string, error) {
	outcome, err := mon.Run(ctx)
	if err != nil {
		return "", err
	}
	if !outcome.Dispatched {
		return "no errors found; report suppressed", nil
	}
	return fmt.Sprintf("found and reported %d errors; message id %s", outcome.TotalErrors, outcome.MessageID), nil
}
