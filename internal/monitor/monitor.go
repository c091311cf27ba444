// Package monitor coordinates one monitoring invocation: it fans out one
// Insights query per configured log group under a bounded worker pool, joins
// all outcomes, aggregates them into a MonitoringReport and dispatches the
// alert. The coordinator holds no state across invocations.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Nao-Mk2/aws-error-monitor/internal/client"
	"github.com/Nao-Mk2/aws-error-monitor/internal/diag"
	"github.com/Nao-Mk2/aws-error-monitor/internal/model"
	"github.com/Nao-Mk2/aws-error-monitor/internal/query"
)

// State is the coordinator's lifecycle position within one run.
type State string

const (
	StateIdle        State = "idle"
	StateQuerying    State = "querying"
	StateAggregating State = "aggregating"
	StateReporting   State = "reporting"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// ErrAllGroupsFailed is returned when every configured log group failed to
// produce a query result.
var ErrAllGroupsFailed = errors.New("all log groups failed to query")

// ConfigError marks an invalid monitor configuration. No query is attempted.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "configuration error: " + e.Reason }

const (
	defaultRecordCap   = 50
	defaultConcurrency = 4
	defaultRunBudget   = 300 * time.Second
)

// Config is the immutable per-invocation configuration.
type Config struct {
	Project     string
	Environment string
	Service     string
	ServiceType query.ServiceType
	LogGroups   []string
	Window      time.Duration
	Sender      string
	Recipients  []string

	// RecordCap bounds retained records per group; counts are not capped.
	RecordCap int
	// Concurrency bounds parallel queries against the backend.
	Concurrency int
	// RunBudget is the hard wall-clock budget for the whole invocation.
	RunBudget time.Duration
	// AlwaysReport dispatches the report even when no errors were found.
	AlwaysReport bool
}

func (c Config) validate() error {
	if len(c.LogGroups) == 0 {
		return &ConfigError{Reason: "no log groups configured"}
	}
	if c.Window <= 0 {
		return &ConfigError{Reason: "time window must be positive"}
	}
	if c.Sender == "" {
		return &ConfigError{Reason: "sender address required"}
	}
	if len(c.Recipients) == 0 {
		return &ConfigError{Reason: "at least one recipient required"}
	}
	return nil
}

func (c Config) recordCap() int {
	if c.RecordCap > 0 {
		return c.RecordCap
	}
	return defaultRecordCap
}

func (c Config) concurrency() int {
	n := c.Concurrency
	if n <= 0 {
		n = defaultConcurrency
	}
	if n > len(c.LogGroups) {
		n = len(c.LogGroups)
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (c Config) runBudget() time.Duration {
	if c.RunBudget > 0 {
		return c.RunBudget
	}
	return defaultRunBudget
}

// Executor runs one query and returns the matched records.
type Executor interface {
	Run(ctx context.Context, q query.LogQuery) ([]model.ErrorRecord, error)
}

// Formatter derives the alert email from a report and invocation time.
type Formatter interface {
	Format(rep model.MonitoringReport, invoked time.Time) model.EmailMessage
}

// Dispatcher sends a composed alert and returns a delivery identifier.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg model.EmailMessage) (string, error)
}

// Outcome summarizes one finished invocation.
type Outcome struct {
	State       State
	RunID       string
	TotalErrors int
	Dispatched  bool
	MessageID   string
}

// Monitor is the run coordinator. It is safe to reuse across invocations;
// each Run carries its own state.
type Monitor struct {
	cfg      Config
	builder  *query.Builder
	exec     Executor
	format   Formatter
	dispatch Dispatcher
	rec      diag.Recorder
	now      func() time.Time
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithRecorder attaches a diagnostic recorder.
func WithRecorder(rec diag.Recorder) Option {
	return func(m *Monitor) { m.rec = rec }
}

// WithClock overrides the invocation clock.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// New creates a Monitor.
func New(cfg Config, b *query.Builder, exec Executor, f Formatter, d Dispatcher, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:      cfg,
		builder:  b,
		exec:     exec,
		format:   f,
		dispatch: d,
		rec:      diag.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run executes one monitoring invocation.
func (m *Monitor) Run(ctx context.Context) (Outcome, error) {
	runID := uuid.NewString()
	state := StateIdle

	fail := func(err error) (Outcome, error) {
		state = StateFailed
		m.rec.RunFinished(runID, string(state), err)
		return Outcome{State: state, RunID: runID}, err
	}

	if err := m.cfg.validate(); err != nil {
		return fail(err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.runBudget())
	defer cancel()

	invoked := m.now().UTC()
	start := invoked.Add(-m.cfg.Window)
	m.rec.RunStarted(runID, len(m.cfg.LogGroups), start, invoked)

	state = StateQuerying
	m.rec.StateChanged(runID, string(state))
	outcomes := m.queryAll(ctx, start, invoked)

	state = StateAggregating
	m.rec.StateChanged(runID, string(state))
	rep := Aggregate(m.cfg, start, invoked, outcomes)
	m.rec.ReportBuilt(rep.TotalErrors, len(rep.Groups))

	state = StateReporting
	m.rec.StateChanged(runID, string(state))
	if rep.AllFailed() {
		return fail(fmt.Errorf("%d log groups: %w", len(rep.Groups), ErrAllGroupsFailed))
	}
	if rep.TotalErrors == 0 && !m.cfg.AlwaysReport {
		state = StateDone
		m.rec.RunFinished(runID, string(state), nil)
		return Outcome{State: state, RunID: runID}, nil
	}

	msg := m.format.Format(rep, invoked)
	id, err := m.dispatch.Dispatch(ctx, msg)
	if err != nil {
		return fail(fmt.Errorf("dispatch report: %w", err))
	}

	state = StateDone
	m.rec.RunFinished(runID, string(state), nil)
	return Outcome{
		State:       state,
		RunID:       runID,
		TotalErrors: rep.TotalErrors,
		Dispatched:  true,
		MessageID:   id,
	}, nil
}

// queryAll runs one query per log group under the concurrency limit and
// returns outcomes indexed by configuration declaration order. Per-group
// failures are recovered into their LogGroupResult; nothing propagates.
func (m *Monitor) queryAll(ctx context.Context, start, end time.Time) []model.LogGroupResult {
	results := make([]model.LogGroupResult, len(m.cfg.LogGroups))

	var g errgroup.Group
	g.SetLimit(m.cfg.concurrency())
	for i, lg := range m.cfg.LogGroups {
		i, lg := i, lg
		g.Go(func() error {
			began := time.Now()
			q := m.builder.Build(lg, start, end)
			records, err := m.exec.Run(ctx, q)
			if err != nil {
				reason := classifyFailure(err)
				m.rec.QueryFailed(lg, string(reason), time.Since(began))
				results[i] = model.LogGroupResult{
					LogGroup:      lg,
					Failure:       reason,
					FailureDetail: err.Error(),
				}
				return nil
			}
			results[i] = model.LogGroupResult{
				LogGroup: lg,
				Count:    len(records),
				Records:  records,
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func classifyFailure(err error) model.FailureReason {
	if errors.Is(err, client.ErrQueryTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return model.FailureTimeout
	}
	return model.FailureQuery
}
