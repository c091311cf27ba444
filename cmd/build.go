package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Nao-Mk2/aws-error-monitor/internal/client"
	"github.com/Nao-Mk2/aws-error-monitor/internal/diag"
	"github.com/Nao-Mk2/aws-error-monitor/internal/mailer"
	"github.com/Nao-Mk2/aws-error-monitor/internal/monitor"
	"github.com/Nao-Mk2/aws-error-monitor/internal/query"
	"github.com/Nao-Mk2/aws-error-monitor/internal/report"
)

// NewMonitor wires the full pipeline from validated options: AWS clients,
// query builder, formatter, mailer and the run coordinator.
func NewMonitor(ctx context.Context, o *Options, logger *zap.Logger) (*monitor.Monitor, error) {
	cfg, err := o.MonitorConfig()
	if err != nil {
		return nil, err
	}
	def, err := o.LoadDefinition()
	if err != nil {
		return nil, &monitor.ConfigError{Reason: err.Error()}
	}
	builder, err := query.NewBuilder(cfg.ServiceType, def)
	if err != nil {
		return nil, &monitor.ConfigError{Reason: err.Error()}
	}

	awsCfg, err := client.NewAWSConfig(ctx, o.Region, o.Profile)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	rec := diag.New(logger)

	exec := client.NewInsights(client.NewLogsClient(awsCfg), client.WithRecorder(rec))

	var fmtOpts []report.Option
	if def != nil && def.Extract != nil {
		fmtOpts = append(fmtOpts, report.WithExtract(def.Extract))
	}
	formatter := report.New(fmtOpts...)

	m := mailer.New(client.NewSESClient(awsCfg), cfg.Sender, mailer.WithRecorder(rec))

	return monitor.New(cfg, builder, exec, formatter, m, monitor.WithRecorder(rec)), nil
}
