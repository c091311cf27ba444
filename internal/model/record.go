package model

import "time"

// ErrorRecord represents a single matched log entry within one log group.
type ErrorRecord struct {
	Timestamp time.Time
	LogStream string
	Message   string
}

// FailureReason classifies why a log group produced no result.
type FailureReason string

const (
	FailureNone    FailureReason = ""
	FailureQuery   FailureReason = "query-error"
	FailureTimeout FailureReason = "timeout"
)

// LogGroupResult is the outcome of querying one log group. Count holds the
// full number of matches; Records is capped by the configured per-group limit.
type LogGroupResult struct {
	LogGroup      string
	Count         int
	Records       []ErrorRecord
	Failure       FailureReason
	FailureDetail string
}

// Failed reports whether the group's query did not complete successfully.
func (r LogGroupResult) Failed() bool { return r.Failure != FailureNone }
