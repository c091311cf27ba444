package monitor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Nao-Mk2/aws-error-monitor/internal/client"
	"github.com/Nao-Mk2/aws-error-monitor/internal/model"
	"github.com/Nao-Mk2/aws-error-monitor/internal/query"
	"github.com/Nao-Mk2/aws-error-monitor/internal/report"
)

// fakeExecutor returns scripted records or errors per log group, with an
// optional per-group delay to vary completion order.
type fakeExecutor struct {
	records map[string][]model.ErrorRecord
	errs    map[string]error
	delays  map[string]time.Duration
}

func (f *fakeExecutor) Run(ctx context.Context, q query.LogQuery) ([]model.ErrorRecord, error) {
	if d := f.delays[q.LogGroup]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, fmt.Errorf("group %s: %w", q.LogGroup, client.ErrQueryTimeout)
		}
	}
	if err := f.errs[q.LogGroup]; err != nil {
		return nil, err
	}
	return f.records[q.LogGroup], nil
}

type fakeDispatcher struct {
	sent []model.EmailMessage
	err  error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, msg model.EmailMessage) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "msg-0001", nil
}

func newTestMonitor(cfg Config, exec Executor, d Dispatcher) *Monitor {
	b, err := query.NewBuilder(cfg.ServiceType, nil)
	if err != nil {
		panic(err)
	}
	fixed := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	return New(cfg, b, exec, report.New(), d, WithClock(func() time.Time { return fixed }))
}

func TestRunReportsErrorsWithTimedOutGroup(t *testing.T) {
	base := time.Date(2025, 9, 1, 11, 30, 0, 0, time.UTC)
	cfg := testConfig("group-a", "group-b")
	exec := &fakeExecutor{
		records: map[string][]model.ErrorRecord{"group-a": records(3, base)},
		errs:    map[string]error{"group-b": fmt.Errorf("poll budget: %w", client.ErrQueryTimeout)},
	}
	disp := &fakeDispatcher{}

	outcome, err := newTestMonitor(cfg, exec, disp).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.State != StateDone {
		t.Fatalf("state=%s, want done", outcome.State)
	}
	if outcome.TotalErrors != 3 || !outcome.Dispatched || outcome.MessageID != "msg-0001" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if len(disp.sent) != 1 {
		t.Fatalf("dispatched %d messages, want 1", len(disp.sent))
	}
	body := disp.sent[0].Body
	for _, want := range []string{"group-a: 3 errors", "group-b: query timed out"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestRunFailsWhenAllGroupsFail(t *testing.T) {
	cfg := testConfig("group-a", "group-b")
	exec := &fakeExecutor{errs: map[string]error{
		"group-a": errors.New("MalformedQueryException"),
		"group-b": fmt.Errorf("poll budget: %w", client.ErrQueryTimeout),
	}}
	disp := &fakeDispatcher{}

	outcome, err := newTestMonitor(cfg, exec, disp).Run(context.Background())
	if !errors.Is(err, ErrAllGroupsFailed) {
		t.Fatalf("error=%v, want ErrAllGroupsFailed", err)
	}
	if outcome.State != StateFailed {
		t.Fatalf("state=%s, want failed", outcome.State)
	}
	if len(disp.sent) != 0 {
		t.Fatal("no email must be dispatched when every group failed")
	}
}

func TestRunZeroErrorsPolicy(t *testing.T) {
	tests := []struct {
		name           string
		alwaysReport   bool
		wantDispatched bool
	}{
		{"suppressed-by-default", false, false},
		{"always-report-sends", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("group-a")
			cfg.AlwaysReport = tt.alwaysReport
			exec := &fakeExecutor{}
			disp := &fakeDispatcher{}

			outcome, err := newTestMonitor(cfg, exec, disp).Run(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if outcome.State != StateDone {
				t.Fatalf("state=%s, want done", outcome.State)
			}
			if outcome.Dispatched != tt.wantDispatched {
				t.Fatalf("dispatched=%v, want %v", outcome.Dispatched, tt.wantDispatched)
			}
			if got := len(disp.sent); got != boolToInt(tt.wantDispatched) {
				t.Fatalf("sent=%d", got)
			}
		})
	}
}

func TestRunFailsOnDispatchError(t *testing.T) {
	base := time.Date(2025, 9, 1, 11, 30, 0, 0, time.UTC)
	cfg := testConfig("group-a")
	exec := &fakeExecutor{records: map[string][]model.ErrorRecord{"group-a": records(1, base)}}
	disp := &fakeDispatcher{err: errors.New("MessageRejected")}

	outcome, err := newTestMonitor(cfg, exec, disp).Run(context.Background())
	if err == nil {
		t.Fatal("expected dispatch failure to surface")
	}
	if outcome.State != StateFailed {
		t.Fatalf("state=%s, want failed", outcome.State)
	}
}

func TestRunFailsOnConfigurationError(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no-groups", func(c *Config) { c.LogGroups = nil }},
		{"no-sender", func(c *Config) { c.Sender = "" }},
		{"no-recipients", func(c *Config) { c.Recipients = nil }},
		{"bad-window", func(c *Config) { c.Window = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("group-a")
			tt.mutate(&cfg)
			exec := &fakeExecutor{}
			disp := &fakeDispatcher{}

			outcome, err := newTestMonitor(cfg, exec, disp).Run(context.Background())
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error=%v, want ConfigError", err)
			}
			if outcome.State != StateFailed {
				t.Fatalf("state=%s, want failed", outcome.State)
			}
			if len(disp.sent) != 0 {
				t.Fatal("no query or dispatch may happen on configuration errors")
			}
		})
	}
}

func TestRunReportOrderIgnoresCompletionOrder(t *testing.T) {
	base := time.Date(2025, 9, 1, 11, 30, 0, 0, time.UTC)
	groups := []string{"g1", "g2", "g3", "g4"}
	cfg := testConfig(groups...)
	cfg.Concurrency = 4
	exec := &fakeExecutor{
		records: map[string][]model.ErrorRecord{
			"g1": records(1, base), "g2": records(2, base),
			"g3": records(3, base), "g4": records(4, base),
		},
		// First declared finishes last
		delays: map[string]time.Duration{"g1": 30 * time.Millisecond, "g2": 20 * time.Millisecond},
	}
	disp := &fakeDispatcher{}

	outcome, err := newTestMonitor(cfg, exec, disp).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.TotalErrors != 10 {
		t.Fatalf("total=%d, want 10", outcome.TotalErrors)
	}
	body := disp.sent[0].Body
	last := -1
	for _, g := range groups {
		i := strings.Index(body, "- "+g+":")
		if i < 0 {
			t.Fatalf("body missing group %s:\n%s", g, body)
		}
		if i < last {
			t.Fatalf("group %s out of declaration order", g)
		}
		last = i
	}
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want model.FailureReason
	}{
		{"timeout", fmt.Errorf("x: %w", client.ErrQueryTimeout), model.FailureTimeout},
		{"deadline", context.DeadlineExceeded, model.FailureTimeout},
		{"canceled", context.Canceled, model.FailureTimeout},
		{"backend-rejection", errors.New("MalformedQueryException"), model.FailureQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyFailure(tt.err); got != tt.want {
				t.Fatalf("classifyFailure=%q, want %q", got, tt.want)
			}
		})
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
