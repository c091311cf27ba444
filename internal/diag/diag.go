// Package diag is the diagnostic side channel for the monitor pipeline.
// Recorders observe query submissions, poll outcomes and dispatches for
// operator troubleshooting; they never return errors and must not block the
// primary path.
package diag

import (
	"time"

	"go.uber.org/zap"
)

// Recorder receives diagnostic events from the run pipeline.
type Recorder interface {
	RunStarted(runID string, groups int, start, end time.Time)
	StateChanged(runID, state string)
	QuerySubmitted(logGroup, queryID string)
	QueryPolled(logGroup, queryID, status string, elapsed time.Duration)
	QueryCompleted(logGroup, queryID string, matches int, elapsed time.Duration)
	QueryFailed(logGroup, reason string, elapsed time.Duration)
	ReportBuilt(totalErrors, groups int)
	EmailDispatched(messageID string, recipients int)
	RunFinished(runID, state string, err error)
}

type zapRecorder struct {
	l *zap.Logger
}

// New returns a Recorder backed by the given zap logger.
func New(l *zap.Logger) Recorder { return &zapRecorder{l: l} }

// Nop returns a Recorder that discards all events.
func Nop() Recorder { return &zapRecorder{l: zap.NewNop()} }

func (r *zapRecorder) RunStarted(runID string, groups int, start, end time.Time) {
	r.l.Info("monitor run started",
		zap.String("run_id", runID),
		zap.Int("log_groups", groups),
		zap.Time("window_start", start),
		zap.Time("window_end", end),
	)
}

func (r *zapRecorder) StateChanged(runID, state string) {
	r.l.Debug("state changed", zap.String("run_id", runID), zap.String("state", state))
}

func (r *zapRecorder) QuerySubmitted(logGroup, queryID string) {
	r.l.Info("query submitted", zap.String("log_group", logGroup), zap.String("query_id", queryID))
}

func (r *zapRecorder) QueryPolled(logGroup, queryID, status string, elapsed time.Duration) {
	r.l.Debug("query polled",
		zap.String("log_group", logGroup),
		zap.String("query_id", queryID),
		zap.String("status", status),
		zap.Duration("elapsed", elapsed),
	)
}

func (r *zapRecorder) QueryCompleted(logGroup, queryID string, matches int, elapsed time.Duration) {
	r.l.Info("query completed",
		zap.String("log_group", logGroup),
		zap.String("query_id", queryID),
		zap.Int("matches", matches),
		zap.Duration("elapsed", elapsed),
	)
}

func (r *zapRecorder) QueryFailed(logGroup, reason string, elapsed time.Duration) {
	r.l.Warn("query failed",
		zap.String("log_group", logGroup),
		zap.String("reason", reason),
		zap.Duration("elapsed", elapsed),
	)
}

func (r *zapRecorder) ReportBuilt(totalErrors, groups int) {
	r.l.Info("report built", zap.Int("total_errors", totalErrors), zap.Int("log_groups", groups))
}

func (r *zapRecorder) EmailDispatched(messageID string, recipients int) {
	r.l.Info("alert dispatched", zap.String("message_id", messageID), zap.Int("recipients", recipients))
}

func (r *zapRecorder) RunFinished(runID, state string, err error) {
	if err != nil {
		r.l.Error("monitor run finished", zap.String("run_id", runID), zap.String("state", state), zap.Error(err))
		return
	}
	r.l.Info("monitor run finished", zap.String("run_id", runID), zap.String("state", state))
}
