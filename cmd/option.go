package cmd

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/Nao-Mk2/aws-error-monitor/internal/monitor"
	"github.com/Nao-Mk2/aws-error-monitor/internal/query"
)

// Options holds the monitor configuration after env and flag resolution.
// Environment variables match the deployed configuration surface; flags
// override for local runs.
type Options struct {
	Project       string `env:"PROJECT_NAME" envDefault:"Generic"`
	Environment   string `env:"ENVIRONMENT" envDefault:"UAT"`
	Service       string `env:"SERVICE_NAME" envDefault:"Error Monitor"`
	ServiceType   string `env:"SERVICE_TYPE" envDefault:"lambda"`
	LogGroupsCSV  string `env:"LOG_GROUPS"`
	Sender        string `env:"SENDER_EMAIL"`
	RecipientsCSV string `env:"RECIPIENT_EMAIL"`

	IntervalMinutes  int    `env:"INTERVAL_MINUTES" envDefault:"60"`
	Region           string `env:"AWS_REGION"`
	Profile          string `env:"AWS_PROFILE"`
	AlwaysReport     bool   `env:"ALWAYS_REPORT"`
	RecordCap        int    `env:"RECORD_CAP" envDefault:"50"`
	Concurrency      int    `env:"CONCURRENCY" envDefault:"4"`
	RunBudgetSeconds int    `env:"RUN_BUDGET_SECONDS" envDefault:"300"`
	QueryDefinition  string `env:"QUERY_DEFINITION"`
	Schedule         string `env:"MONITOR_SCHEDULE"`
}

// CollectOptions resolves options from an optional .env file, environment
// variables and flags, in increasing precedence.
func CollectOptions() (*Options, error) {
	// A .env file is a local-run convenience only
	_ = godotenv.Load()

	o := &Options{}
	if err := env.Parse(o); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	flag.StringVar(&o.Project, "project", o.Project, "Project name used in the report and attachment filename")
	flag.StringVar(&o.Environment, "env", o.Environment, "Environment label, e.g. UAT or PROD")
	flag.StringVar(&o.Service, "service", o.Service, "Monitored service name used in the email subject")
	flag.StringVar(&o.ServiceType, "service-type", o.ServiceType, "Service type: lambda, ecs, rds or custom")
	flag.StringVar(&o.LogGroupsCSV, "groups", o.LogGroupsCSV, "Comma-separated CloudWatch log group names")
	flag.StringVar(&o.Sender, "sender", o.Sender, "SES-verified sender address")
	flag.StringVar(&o.RecipientsCSV, "recipients", o.RecipientsCSV, "Comma-separated recipient addresses")
	flag.IntVar(&o.IntervalMinutes, "window", o.IntervalMinutes, "Monitoring window length in minutes")
	flag.StringVar(&o.Region, "region", o.Region, "AWS region (optional; falls back to AWS defaults)")
	flag.StringVar(&o.Profile, "profile", o.Profile, "AWS shared config profile")
	flag.BoolVar(&o.AlwaysReport, "always-report", o.AlwaysReport, "Send the report even when no errors were found")
	flag.StringVar(&o.QueryDefinition, "query-definition", o.QueryDefinition, "Path to a JSON query definition (service-type custom)")
	flag.StringVar(&o.Schedule, "schedule", o.Schedule, "Cron expression to run on a schedule instead of once")
	flag.Parse()

	return o, nil
}

// Validate checks required fields and cross-field rules. A failure here is a
// configuration error; no query is attempted.
func (o *Options) Validate() error {
	st, err := query.ParseServiceType(o.ServiceType)
	if err != nil {
		return &monitor.ConfigError{Reason: err.Error()}
	}
	if st == query.ServiceCustom && o.QueryDefinition == "" {
		return &monitor.ConfigError{Reason: "service type custom requires a query definition"}
	}
	if len(ParseCSV(o.LogGroupsCSV)) == 0 {
		return &monitor.ConfigError{Reason: "no log groups provided (set LOG_GROUPS or --groups)"}
	}
	if o.Sender == "" {
		return &monitor.ConfigError{Reason: "no sender address provided (set SENDER_EMAIL or --sender)"}
	}
	if len(ParseCSV(o.RecipientsCSV)) == 0 {
		return &monitor.ConfigError{Reason: "no recipients provided (set RECIPIENT_EMAIL or --recipients)"}
	}
	if o.IntervalMinutes <= 0 {
		return &monitor.ConfigError{Reason: "monitoring window must be positive"}
	}
	return nil
}

// LoadDefinition reads the custom query definition when one is configured.
func (o *Options) LoadDefinition() (*query.Definition, error) {
	if o.QueryDefinition == "" {
		return nil, nil
	}
	return query.LoadDefinition(o.QueryDefinition)
}

// MonitorConfig builds the immutable per-invocation configuration.
func (o *Options) MonitorConfig() (monitor.Config, error) {
	st, err := query.ParseServiceType(o.ServiceType)
	if err != nil {
		return monitor.Config{}, &monitor.ConfigError{Reason: err.Error()}
	}
	return monitor.Config{
		Project:      o.Project,
		Environment:  o.Environment,
		Service:      o.Service,
		ServiceType:  st,
		LogGroups:    ParseCSV(o.LogGroupsCSV),
		Window:       time.Duration(o.IntervalMinutes) * time.Minute,
		Sender:       o.Sender,
		Recipients:   ParseCSV(o.RecipientsCSV),
		RecordCap:    o.RecordCap,
		Concurrency:  o.Concurrency,
		RunBudget:    time.Duration(o.RunBudgetSeconds) * time.Second,
		AlwaysReport: o.AlwaysReport,
	}, nil
}

// ParseCSV turns a comma-separated string into a slice, trimming whitespace
// and dropping empty entries.
func ParseCSV(csv string) []string {
	if csv == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(csv, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
